// Package dialog runs one conversation screen: it takes a voice, text or image
// submission, asks the reasoning service for guidance, falls back to speech
// synthesis when the answer has no audio, and plays the result. Every change
// is published as a State snapshot.
//
// Each submission gets a new sequence number. Completions carry the number
// they were started under and are dropped once a newer submission exists.
package dialog

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"sosai/internal/capture"
	"sosai/internal/reasoning"
	"sosai/internal/speech"
)

type Answerer interface {
	Dialog(ctx context.Context, keyword, cred string) (reasoning.DialogResponse, error)
}

type Classifier interface {
	ClassifyImage(ctx context.Context, filename string, data []byte) (reasoning.Classification, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, cred string) (reasoning.TTSResponse, error)
}

type Credentials interface {
	Token() (string, bool)
}

type Player interface {
	Play(ctx context.Context, url string) error
	Stop()
}

type Listener interface {
	Available() bool
	Start(ctx context.Context) (<-chan speech.Result, error)
}

type Notifier interface {
	Notify(title, message string) error
}

type Options struct {
	Answerer    Answerer
	Classifier  Classifier
	Synthesizer Synthesizer
	Credentials Credentials
	Player      Player
	Listener    Listener
	Picker      capture.Picker
	Notifier    Notifier

	// Resolve turns a relative audio reference into a playable URL.
	Resolve func(ref string) string
	Lang    string
	// Timeout bounds each reasoning call, not playback.
	Timeout time.Duration
}

type Orchestrator struct {
	opt Options

	mu     sync.Mutex
	st     State
	cancel context.CancelFunc
	closed bool
	subs   map[int]chan State
	nextID int

	wg sync.WaitGroup
}

func New(opt Options) *Orchestrator {
	if opt.Lang == "" {
		opt.Lang = "ko"
	}
	if opt.Resolve == nil {
		opt.Resolve = func(ref string) string { return ref }
	}
	return &Orchestrator{
		opt:  opt,
		st:   State{Phase: Idle},
		subs: make(map[int]chan State),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.st.clone()
}

// Subscribe returns a channel holding the latest snapshot. A slow reader
// misses intermediate snapshots but always sees the newest one.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan State, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}

	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	ch <- o.st.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

// Wait blocks until the work started by earlier intents, playback included,
// has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.mu.Unlock()

	if o.opt.Player != nil {
		o.opt.Player.Stop()
	}
	o.wg.Wait()
}

// StopAudio silences the current answer without changing the state.
func (o *Orchestrator) StopAudio() {
	if o.opt.Player != nil {
		o.opt.Player.Stop()
	}
}

// StartListening opens one speech session. It is a no-op while a session
// is already running.
func (o *Orchestrator) StartListening(ctx context.Context) error {
	if o.opt.Listener == nil || !o.opt.Listener.Available() {
		return ErrUnsupportedCapability
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if o.st.Phase == Listening {
		return nil
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	results, err := o.opt.Listener.Start(sctx)
	switch {
	case errors.Is(err, speech.ErrBusy):
		cancel()
		return nil
	case errors.Is(err, speech.ErrUnsupported):
		cancel()
		return ErrUnsupportedCapability
	case err != nil:
		cancel()
		return fmt.Errorf("start listening: %w", err)
	}

	seq := o.resetLocked(cancel, Listening)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.awaitSpeech(sctx, seq, results)
	}()
	return nil
}

// SubmitText asks for guidance on a typed description.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}
	if o.opt.Answerer == nil {
		return ErrUnsupportedCapability
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	seq := o.resetLocked(cancel, Submitting)
	o.st.Transcript = text
	o.publishLocked()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.converse(sctx, seq, text)
	}()
	return nil
}

// SubmitImage classifies a photo. The verdict is shown, never spoken.
func (o *Orchestrator) SubmitImage(ctx context.Context, img capture.Image) error {
	if img.Empty() {
		return ErrEmptyInput
	}
	if o.opt.Classifier == nil {
		return ErrUnsupportedCapability
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	seq := o.resetLocked(cancel, Submitting)
	o.st.ImagePreview = img.Preview
	o.publishLocked()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.classify(sctx, seq, img)
	}()
	return nil
}

// PickImage lets the user choose a photo and submits it. Backing out of the
// picker leaves everything as it was.
func (o *Orchestrator) PickImage(ctx context.Context) error {
	if o.opt.Picker == nil {
		return ErrUnsupportedCapability
	}
	img, err := o.opt.Picker.Pick(ctx)
	if errors.Is(err, capture.ErrCanceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pick image: %w", err)
	}
	return o.SubmitImage(ctx, img)
}

// resetLocked starts a new submission: the previous one is cancelled, its
// audio stopped and the state cleared.
func (o *Orchestrator) resetLocked(cancel context.CancelFunc, phase Phase) uint64 {
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	if o.opt.Player != nil {
		o.opt.Player.Stop()
	}

	o.st = State{Seq: o.st.Seq + 1, Phase: phase}
	o.publishLocked()
	return o.st.Seq
}

// apply runs fn on the state if seq is still current.
func (o *Orchestrator) apply(seq uint64, fn func(*State)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.st.Seq != seq {
		log.Debug("Dropping stale result", "seq", seq, "current", o.st.Seq)
		return false
	}
	fn(&o.st)
	o.publishLocked()
	return true
}

func (o *Orchestrator) publishLocked() {
	snap := o.st.clone()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (o *Orchestrator) token() string {
	if o.opt.Credentials == nil {
		return ""
	}
	tok, _ := o.opt.Credentials.Token()
	return tok
}

func (o *Orchestrator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opt.Timeout > 0 {
		return context.WithTimeout(ctx, o.opt.Timeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) awaitSpeech(ctx context.Context, seq uint64, results <-chan speech.Result) {
	var res speech.Result
	select {
	case r, ok := <-results:
		if ok {
			res = r
		}
	case <-ctx.Done():
		return
	}

	if !res.Recognized() {
		if o.apply(seq, func(s *State) {
			s.Phase = Idle
			s.Notice = MsgNotRecognized
		}) {
			o.notify(MsgNotRecognized)
		}
		return
	}

	if !o.apply(seq, func(s *State) {
		s.Transcript = res.Transcript
		s.Phase = Submitting
	}) {
		return
	}
	o.converse(ctx, seq, res.Transcript)
}

func (o *Orchestrator) converse(ctx context.Context, seq uint64, keyword string) {
	cctx, cancel := o.callCtx(ctx)
	resp, err := o.opt.Answerer.Dialog(cctx, keyword, o.token())
	cancel()
	if err != nil {
		o.fail(seq, err)
		return
	}

	answer := strings.TrimSpace(resp.Answer)

	if resp.AudioURL != "" {
		url := o.opt.Resolve(resp.AudioURL)
		if o.apply(seq, func(s *State) {
			s.Phase = Ready
			s.Answer = resp.Answer
			s.AudioURL = url
			s.Similar = resp.Similar
		}) {
			o.play(ctx, seq, url)
		}
		return
	}

	if answer == "" || o.opt.Synthesizer == nil {
		o.apply(seq, func(s *State) {
			s.Phase = Ready
			s.Answer = resp.Answer
			s.Similar = resp.Similar
		})
		return
	}

	if !o.apply(seq, func(s *State) {
		s.Phase = AwaitingSpeech
		s.Answer = resp.Answer
		s.Similar = resp.Similar
	}) {
		return
	}

	cctx, cancel = o.callCtx(ctx)
	tts, err := o.opt.Synthesizer.Synthesize(cctx, resp.Answer, o.opt.Lang, o.token())
	cancel()
	if err != nil {
		log.Warn("Speech synthesis failed", "seq", seq, "err", err)
		o.apply(seq, func(s *State) {
			s.Phase = Ready
			s.LastError = errorInfo(err)
			if s.LastError.Kind == KindServiceUnavailable {
				s.LastError.Message = MsgSpeechFailed
			}
		})
		return
	}

	url := o.opt.Resolve(tts.URL)
	if o.apply(seq, func(s *State) {
		s.Phase = Ready
		s.AudioURL = url
	}) {
		o.play(ctx, seq, url)
	}
}

func (o *Orchestrator) classify(ctx context.Context, seq uint64, img capture.Image) {
	cctx, cancel := o.callCtx(ctx)
	res, err := o.opt.Classifier.ClassifyImage(cctx, img.Name, img.Data)
	cancel()
	if err != nil {
		o.fail(seq, err)
		return
	}

	o.apply(seq, func(s *State) {
		s.Phase = Ready
		s.Classification = &res
		s.Answer = res.Text
		s.Similar = res.Similar
	})
}

func (o *Orchestrator) play(ctx context.Context, seq uint64, url string) {
	if o.opt.Player == nil {
		return
	}
	err := o.opt.Player.Play(ctx, url)
	if err == nil {
		return
	}

	log.Warn("Playback failed", "seq", seq, "url", url, "err", err)
	if o.apply(seq, func(s *State) {
		s.Notice = MsgPlaybackFailed
		s.LastError = &ErrorInfo{Kind: KindPlaybackFailure, Message: MsgPlaybackFailed}
	}) {
		o.notify(MsgPlaybackFailed)
	}
}

func (o *Orchestrator) fail(seq uint64, err error) {
	info := errorInfo(err)
	if o.apply(seq, func(s *State) {
		s.Phase = Error
		s.LastError = info
	}) {
		log.Warn("Request failed", "seq", seq, "kind", info.Kind, "err", err)
		o.notify(info.Message)
	}
}

func (o *Orchestrator) notify(msg string) {
	if o.opt.Notifier == nil {
		return
	}
	if err := o.opt.Notifier.Notify("SOSAI", msg); err != nil {
		log.Debug("Notify failed", "err", err)
	}
}
