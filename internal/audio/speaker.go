package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "log/slog"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Ducking lowers other applications while the speaker is busy.
type Ducking interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// device is the process-wide output the speaker mixes into.
type device interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
}

type defaultDevice struct{}

func (defaultDevice) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}
func (defaultDevice) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (defaultDevice) Lock()                   { speaker.Lock() }
func (defaultDevice) Unlock()                 { speaker.Unlock() }

// Speaker plays beep streams on the default output device. The device is
// opened lazily at a fixed rate; streams are resampled to it.
type Speaker struct {
	rate beep.SampleRate
	duck Ducking
	dev  device

	once    sync.Once
	initErr error
}

func NewSpeaker(duck Ducking) *Speaker {
	return &Speaker{rate: 44100, duck: duck, dev: defaultDevice{}}
}

func (s *Speaker) init() error {
	s.once.Do(func() {
		s.initErr = s.dev.Init(s.rate, s.rate.N(time.Second/10))
	})
	return s.initErr
}

// Play blocks until the stream is drained or ctx is done. Cancelling ctx
// silences only this stream; other streams on the device keep playing.
func (s *Speaker) Play(ctx context.Context, st beep.Streamer, format beep.Format) error {
	if err := s.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	if s.duck != nil {
		if err := s.duck.Duck(ctx); err != nil {
			log.Debug("Duck failed", "err", err)
		}
		defer func() {
			if err := s.duck.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Debug("Restore failed", "err", err)
			}
		}()
	}

	if format.SampleRate != s.rate {
		st = beep.Resample(4, format.SampleRate, s.rate, st)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(st, beep.Callback(func() {
		close(done)
	}))}
	s.dev.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.dev.Lock()
		ctrl.Streamer = nil
		s.dev.Unlock()
		return ctx.Err()
	}
}
