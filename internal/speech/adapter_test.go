package speech

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pcm     []float32
	err     error
	release chan struct{}
}

func (f *fakeSource) Capture(ctx context.Context) ([]float32, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.pcm, f.err
}

type fakeRecognizer struct {
	text  string
	err   error
	lang  string
	calls atomic.Int32
}

func (f *fakeRecognizer) Transcribe(_ context.Context, _ []float32, lang string) (string, error) {
	f.calls.Add(1)
	f.lang = lang
	return f.text, f.err
}
func (f *fakeRecognizer) Name() string { return "fake" }
func (f *fakeRecognizer) Close() error { return nil }

func recv(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "session must yield a result")
		_, open := <-ch
		assert.False(t, open, "channel closes after one result")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return Result{}
	}
}

func TestAdapter_Unsupported(t *testing.T) {
	a := NewAdapter(nil, nil, "ko")
	assert.False(t, a.Available())

	_, err := a.Start(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, a.Listening())
}

func TestAdapter_Recognized(t *testing.T) {
	rec := &fakeRecognizer{text: "  화상을 입었어요 "}
	a := NewAdapter(&fakeSource{pcm: []float32{0.1, 0.2}}, rec, "ko")

	var cued atomic.Bool
	a.OnStart(func() { cued.Store(true) })

	ch, err := a.Start(context.Background())
	require.NoError(t, err)

	r := recv(t, ch)
	assert.True(t, r.Recognized())
	assert.Equal(t, "화상을 입었어요", r.Transcript)
	assert.Equal(t, "ko", rec.lang)
	assert.True(t, cued.Load())
	assert.False(t, a.Listening())
}

func TestAdapter_EndedWithoutResult(t *testing.T) {
	cases := map[string]*Adapter{
		"silence":       NewAdapter(&fakeSource{}, &fakeRecognizer{text: "x"}, ""),
		"capture error": NewAdapter(&fakeSource{err: errors.New("device busy")}, &fakeRecognizer{text: "x"}, ""),
		"engine error":  NewAdapter(&fakeSource{pcm: []float32{1}}, &fakeRecognizer{err: errors.New("model")}, ""),
		"blank text":    NewAdapter(&fakeSource{pcm: []float32{1}}, &fakeRecognizer{text: "   "}, ""),
	}

	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			ch, err := a.Start(context.Background())
			require.NoError(t, err)
			assert.False(t, recv(t, ch).Recognized())
		})
	}
}

func TestAdapter_SingleSession(t *testing.T) {
	src := &fakeSource{pcm: []float32{0.3}, release: make(chan struct{})}
	rec := &fakeRecognizer{text: "발작"}
	a := NewAdapter(src, rec, "ko")

	ch, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, a.Listening())

	_, err = a.Start(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(src.release)
	assert.Equal(t, "발작", recv(t, ch).Transcript)
	assert.EqualValues(t, 1, rec.calls.Load())

	src.release = nil
	ch, err = a.Start(context.Background())
	require.NoError(t, err, "a new session may start once the previous ended")
	recv(t, ch)
}

func TestEncodeWAV(t *testing.T) {
	pcm := []float32{0, 0.5, -0.5, 2, -2}
	data, err := EncodeWAV(pcm, SampleRate)
	require.NoError(t, err)

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, SampleRate, int(dec.SampleRate))
	assert.Equal(t, []int{0, 16383, -16383, 32767, -32767}, buf.Data)
}
