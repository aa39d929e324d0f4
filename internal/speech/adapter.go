package speech

import (
	"context"
	log "log/slog"
	"strings"
	"sync"
)

// Adapter runs at most one recognition session at a time.
type Adapter struct {
	src  Source
	rec  Recognizer
	lang string

	mu        sync.Mutex
	listening bool
	onStart   func()
}

// NewAdapter accepts nil src or rec; the adapter then reports ErrUnsupported.
func NewAdapter(src Source, rec Recognizer, lang string) *Adapter {
	if lang == "" {
		lang = "auto"
	}
	return &Adapter{src: src, rec: rec, lang: lang}
}

// OnStart registers a hook run when a session begins capturing, e.g. a cue sound.
func (a *Adapter) OnStart(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStart = fn
}

func (a *Adapter) Available() bool {
	return a != nil && a.src != nil && a.rec != nil
}

func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Start begins a session. The returned channel yields exactly one Result and
// is then closed. Interim results are never delivered.
func (a *Adapter) Start(ctx context.Context) (<-chan Result, error) {
	if !a.Available() {
		return nil, ErrUnsupported
	}

	a.mu.Lock()
	if a.listening {
		a.mu.Unlock()
		return nil, ErrBusy
	}
	a.listening = true
	hook := a.onStart
	a.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if hook != nil {
			hook()
		}
		res := a.session(ctx)

		a.mu.Lock()
		a.listening = false
		a.mu.Unlock()

		out <- res
	}()

	return out, nil
}

func (a *Adapter) session(ctx context.Context) Result {
	pcm, err := a.src.Capture(ctx)
	if err != nil {
		log.Warn("Speech capture failed", "err", err)
		return Result{}
	}
	if len(pcm) == 0 {
		log.Info("No speech captured")
		return Result{}
	}

	log.Debug("Captured", "samples", len(pcm))

	text, err := a.rec.Transcribe(ctx, pcm, a.lang)
	if err != nil {
		log.Warn("Transcription failed", "engine", a.rec.Name(), "err", err)
		return Result{}
	}

	text = strings.TrimSpace(text)
	log.Info("Transcribed", "engine", a.rec.Name(), "text", text)
	return Result{Transcript: text}
}

func (a *Adapter) Close() error {
	if a.rec == nil {
		return nil
	}
	return a.rec.Close()
}
