// Package speech turns a microphone (or any PCM source) plus a recognizer
// into single-shot recognition sessions.
package speech

import (
	"context"
	"errors"
)

const SampleRate = 16000

var (
	ErrUnsupported = errors.New("speech recognition is not available")
	ErrBusy        = errors.New("already listening")
)

// Source captures one utterance as mono float32 PCM at SampleRate.
type Source interface {
	Capture(ctx context.Context) ([]float32, error)
}

// Recognizer converts PCM into text. lang is a bare language code ("ko")
// or "auto".
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []float32, lang string) (string, error)
	Name() string
	Close() error
}

// Result ends a session. An empty Transcript means nothing was recognized.
type Result struct {
	Transcript string
}

func (r Result) Recognized() bool { return r.Transcript != "" }
