package dialog

import "sosai/internal/reasoning"

type Phase string

const (
	Idle           Phase = "idle"
	Listening      Phase = "listening"
	Submitting     Phase = "submitting"
	AwaitingSpeech Phase = "awaiting_speech"
	Ready          Phase = "ready"
	Error          Phase = "error"
)

type Kind string

const (
	KindUnauthorized          Kind = "unauthorized"
	KindServiceUnavailable    Kind = "service_unavailable"
	KindUnsupportedCapability Kind = "unsupported_capability"
	KindEmptyInput            Kind = "empty_input"
	KindPlaybackFailure       Kind = "playback_failure"
)

// ErrorInfo describes the last failed step. HTTPStatus is 0 when no
// response was received.
type ErrorInfo struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// State is a snapshot of one conversation screen. Seq identifies the
// submission the snapshot belongs to.
type State struct {
	Seq            uint64                    `json:"seq"`
	Phase          Phase                     `json:"phase"`
	Transcript     string                    `json:"transcript,omitempty"`
	Answer         string                    `json:"answer,omitempty"`
	AudioURL       string                    `json:"audio_url,omitempty"`
	ImagePreview   string                    `json:"image_preview,omitempty"`
	Classification *reasoning.Classification `json:"classification,omitempty"`
	Similar        []reasoning.SimilarItem   `json:"similar,omitempty"`
	LastError      *ErrorInfo                `json:"last_error,omitempty"`
	Notice         string                    `json:"notice,omitempty"`
}

// Busy reports whether work for the current submission is still pending.
func (s State) Busy() bool {
	return s.Phase == Listening || s.Phase == Submitting || s.Phase == AwaitingSpeech
}

func (s State) clone() State {
	c := s
	if s.Classification != nil {
		cl := *s.Classification
		cl.TopK = append([]reasoning.Prediction(nil), s.Classification.TopK...)
		cl.Similar = append([]reasoning.SimilarItem(nil), s.Classification.Similar...)
		c.Classification = &cl
	}
	c.Similar = append([]reasoning.SimilarItem(nil), s.Similar...)
	if s.LastError != nil {
		e := *s.LastError
		c.LastError = &e
	}
	return c
}
