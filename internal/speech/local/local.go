// Package local wires on-device speech capture and recognition: the default
// microphone through portaudio, audio files through audioconv, and a
// whisper.cpp model.
package local

import (
	"context"
	"fmt"
	"strings"

	"sosai/internal/audio"
	"sosai/pkg/audioconv"
	"sosai/pkg/stt"
)

// prompt nudges the model toward emergency vocabulary.
const prompt = "화상, 출혈, 골절, 심정지, 119, 응급처치"

// Whisper recognizes speech with a local whisper.cpp model.
type Whisper struct {
	tr *stt.Transcriber
}

func NewWhisper(modelPath string) (*Whisper, error) {
	tr, err := stt.NewTranscriber(modelPath)
	if err != nil {
		return nil, err
	}
	return &Whisper{tr: tr}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Close() error { return w.tr.Close() }

func (w *Whisper) Transcribe(ctx context.Context, pcm []float32, lang string) (string, error) {
	res, err := w.tr.TranscribePCM(ctx, pcm, stt.Options{
		Language:      lang,
		InitialPrompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// Mic records until the speaker goes quiet.
type Mic struct {
	rec *audio.Recorder
}

func NewMic() (*Mic, error) {
	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return nil, fmt.Errorf("init audio: %w", err)
	}
	return &Mic{rec: rec}, nil
}

func (m *Mic) Capture(ctx context.Context) ([]float32, error) {
	return m.rec.RecordAuto(ctx)
}

func (m *Mic) Close() { m.rec.Close() }

// File replays a prerecorded utterance, one capture per call.
type File struct {
	Path       string
	MaxSeconds int
}

func (f File) Capture(ctx context.Context) ([]float32, error) {
	max := f.MaxSeconds
	if max <= 0 {
		max = 30
	}
	return audioconv.DecodeFile(ctx, f.Path, audioconv.Options{MaxSamples: max * audioconv.TargetRate})
}
