// Package audio owns the local sound devices: the microphone used for speech
// capture and the speaker that plays guidance audio.
package audio

import (
	"context"
	"errors"
	"math"

	"github.com/gordonklaus/portaudio"
)

var ErrNoSpeech = errors.New("no speech detected")

// Recorder captures 16 kHz mono PCM from the default input device.
type Recorder struct {
	SampleRate  int
	FrameSize   int
	Threshold   float64
	Silence     int
	MaxSeconds  int
	LeadSeconds int
}

func NewRecorder() *Recorder {
	return &Recorder{
		SampleRate:  16000,
		FrameSize:   320, // 20ms
		Threshold:   0.015,
		Silence:     800,
		MaxSeconds:  12,
		LeadSeconds: 5,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records one utterance: it waits for the input level to cross the
// threshold and stops after Silence milliseconds of quiet, the MaxSeconds cap
// or ctx cancellation. Nobody speaking within LeadSeconds yields ErrNoSpeech.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.FrameSize)
	out := make([]float32, 0, r.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameMs := r.FrameSize * 1000 / r.SampleRate
	maxFrames := r.MaxSeconds * r.SampleRate / r.FrameSize
	leadFrames := r.LeadSeconds * r.SampleRate / r.FrameSize

	var (
		speaking      bool
		silenceFrames int
	)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.Threshold {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			if i >= leadFrames {
				return nil, ErrNoSpeech
			}
			continue
		}

		silenceFrames++
		out = append(out, buf...)
		if silenceFrames*frameMs >= r.Silence {
			break
		}
	}

	if !speaking {
		return nil, ErrNoSpeech
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
