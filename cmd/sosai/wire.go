package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"sync"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"sosai/internal/audio"
	"sosai/internal/auth"
	"sosai/internal/capture"
	"sosai/internal/config"
	"sosai/internal/dialog"
	"sosai/internal/mixer"
	"sosai/internal/nlu"
	"sosai/internal/notify"
	"sosai/internal/playback"
	"sosai/internal/proxy"
	"sosai/internal/reasoning"
	"sosai/internal/speech"
	"sosai/internal/speech/local"
	"sosai/internal/store"
)

type app struct {
	screen *dialog.Orchestrator

	once    sync.Once
	closers []func()
}

func (a *app) Close() {
	a.once.Do(func() {
		a.screen.Close()
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}

func build(ctx context.Context, cfg *config.Config, speechFile, cuePath string) (*app, error) {
	a := &app{}

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	log.Debug("Loaded HTTP client", "proxy", cfg.Proxy)

	st, err := store.Open(cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	creds, err := auth.NewProvider(st)
	if err != nil {
		return nil, err
	}

	variant := reasoning.Variant(cfg.Variant)
	if cfg.Variant == "chat" {
		variant = reasoning.VariantDialog
	}
	client, err := reasoning.New(reasoning.Options{
		BaseURL:    cfg.APIURL,
		Variant:    variant,
		TopK:       cfg.TopK,
		ImageTopK:  cfg.ImageTopK,
		DialogAuth: reasoning.AuthPolicy(cfg.DialogAuth),
		TTSAuth:    reasoning.AuthPolicy(cfg.TTSAuth),
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}

	var oa *openai.Client
	if cfg.OpenAIAPIKey != "" {
		c := openai.NewClient(
			option.WithAPIKey(cfg.OpenAIAPIKey),
			option.WithHTTPClient(httpClient),
		)
		oa = &c
		log.Debug("Loaded OpenAI client")
	}

	var answerer dialog.Answerer = client
	if cfg.Variant == "chat" {
		answerer = nlu.NewAdvisor(*oa, cfg.OpenAIModel)
	}

	var duck audio.Ducking
	if cfg.DuckLevel < 1 {
		duck = mixer.NewDucker([]string{"sosai"}, cfg.DuckLevel, 5)
	}
	speaker := audio.NewSpeaker(duck)
	player := playback.New(speaker, playback.Options{
		Rate:        cfg.PlaybackRate,
		SettleDelay: cfg.SettleDelay,
		HTTPClient:  httpClient,
	})

	listener := newListener(cfg, oa, speechFile, a)
	if _, err := os.Stat(cuePath); err == nil {
		cue := audio.Cue{Path: cuePath, Speaker: speaker}
		listener.OnStart(func() {
			if err := cue.Play(ctx); err != nil {
				log.Debug("Cue failed", "err", err)
			}
		})
	}
	a.closers = append(a.closers, func() { listener.Close() })

	a.screen = dialog.New(dialog.Options{
		Answerer:    answerer,
		Classifier:  client,
		Synthesizer: client,
		Credentials: creds,
		Player:      player,
		Listener:    listener,
		Picker:      capture.DialogPicker{},
		Notifier:    notify.New(cfg.Notify),
		Resolve:     client.Resolve,
		Lang:        cfg.Lang,
		Timeout:     cfg.Timeout,
	})
	return a, nil
}

// newListener builds the speech adapter for the configured engine. Engines
// that fail to load leave the adapter unavailable rather than aborting.
func newListener(cfg *config.Config, oa *openai.Client, speechFile string, a *app) *speech.Adapter {
	lang := cfg.RecognizerLanguage()
	if cfg.Speech == "none" {
		return speech.NewAdapter(nil, nil, lang)
	}

	var src speech.Source
	if speechFile != "" {
		src = local.File{Path: speechFile}
	} else {
		mic, err := local.NewMic()
		if err != nil {
			log.Warn("Microphone unavailable", "err", err)
		} else {
			src = mic
			a.closers = append(a.closers, mic.Close)
		}
	}

	var rec speech.Recognizer
	switch cfg.Speech {
	case "whisper":
		w, err := local.NewWhisper(cfg.WhisperModel)
		if err != nil {
			log.Warn("Whisper unavailable", "model", cfg.WhisperModel, "err", err)
		} else {
			rec = w
			log.Debug("Loaded whisper")
		}
	case "openai":
		rec = speech.NewOpenAI(*oa)
	}

	if src == nil || rec == nil {
		if rec != nil {
			rec.Close()
		}
		return speech.NewAdapter(nil, nil, lang)
	}
	return speech.NewAdapter(src, rec, lang)
}
