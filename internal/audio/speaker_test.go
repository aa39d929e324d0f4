package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mixDevice stands in for the sound card; the test pulls samples by hand.
type mixDevice struct {
	mu  sync.Mutex
	mix beep.Mixer
}

func (d *mixDevice) Init(beep.SampleRate, int) error { return nil }

func (d *mixDevice) Play(s ...beep.Streamer) {
	d.mu.Lock()
	d.mix.Add(s...)
	d.mu.Unlock()
}

func (d *mixDevice) Lock()   { d.mu.Lock() }
func (d *mixDevice) Unlock() { d.mu.Unlock() }

func (d *mixDevice) pump(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mix.Stream(make([][2]float64, n))
}

func (d *mixDevice) playing() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mix.Len()
}

type countDuck struct{ ducks, restores atomic.Int32 }

func (c *countDuck) Duck(context.Context) error    { c.ducks.Add(1); return nil }
func (c *countDuck) Restore(context.Context) error { c.restores.Add(1); return nil }

func TestSpeaker_CancelStopsOnlyOwnStream(t *testing.T) {
	dev := &mixDevice{}
	duck := &countDuck{}
	s := &Speaker{rate: 44100, duck: duck, dev: dev}
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}

	answerCtx, cancelAnswer := context.WithCancel(context.Background())
	answerDone := make(chan error, 1)
	go func() { answerDone <- s.Play(answerCtx, beep.Silence(-1), format) }()

	cueDone := make(chan error, 1)
	go func() { cueDone <- s.Play(context.Background(), beep.Silence(1000), format) }()

	require.Eventually(t, func() bool { return dev.playing() == 2 }, time.Second, 5*time.Millisecond)

	cancelAnswer()
	select {
	case err := <-answerDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled play did not return")
	}

	dev.pump(2048)
	select {
	case err := <-cueDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cue was cut off")
	}
	assert.Equal(t, 0, dev.playing())
	assert.Equal(t, int32(2), duck.ducks.Load())
	assert.Equal(t, int32(2), duck.restores.Load())
}
