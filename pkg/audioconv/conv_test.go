package audioconv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, channels, frames int) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*channels)
	for i := range data {
		data[i] = 8000
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecodeFile_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utterance.wav")
	writeWAV(t, path, 8000, 2, 800)

	pcm, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Len(t, pcm, 1600)
	assert.InDelta(t, 8000.0/32768, pcm[10], 1e-4)
}

func TestDecodeFile_SniffsWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utterance")
	writeWAV(t, path, 16000, 1, 4000)

	pcm, err := DecodeFile(context.Background(), path, Options{MaxSamples: 1000})
	require.NoError(t, err)
	assert.Len(t, pcm, 1000)
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode(context.Background(), bytes.NewReader([]byte("hello world")), "notes.txt", Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Decode(ctx, bytes.NewReader(nil), "a.wav", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownmixAndResample(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, -1, 1}, 2))

	up := resampleLinear([]float32{0, 1}, 8000, 16000)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)

	same := []float32{1, 2}
	assert.Equal(t, same, resampleLinear(same, 16000, 16000))
}
