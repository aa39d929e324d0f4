package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"sosai/internal/config"
	"sosai/internal/console"
	"sosai/internal/dialog"
	"sosai/internal/hub"
	"sosai/internal/ipc"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	apiURL := cli.StringP("api", "a", "", "Reasoning service base URL")
	variant := cli.String("variant", "", "Dialog variant: dialog | answer | chat")
	engine := cli.String("speech", "", "Speech engine: whisper | openai | none")
	speechFile := cli.String("speech-file", "", "Recognize this audio file instead of the microphone")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS5 proxy address")
	hubURL := cli.String("hub", "", "Presentation hub websocket URL")
	storeKind := cli.String("store", "", "Credential store: file | keyring")
	cuePath := cli.String("cue", "assets/listen.mp3", "Sound played when the microphone opens")
	text := cli.StringP("text", "t", "", "Submit this text once and exit")
	image := cli.StringP("image", "i", "", "Submit this image once and exit")
	noConsole := cli.Bool("no-console", false, "Do not read commands from stdin")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	config.LoadEnv(*envFile)

	cfg := config.Load()
	override(&cfg.APIURL, *apiURL)
	override(&cfg.Variant, *variant)
	override(&cfg.Speech, *engine)
	override(&cfg.Proxy, *proxyAddr)
	override(&cfg.HubURL, *hubURL)
	override(&cfg.Store, *storeKind)

	if err := cfg.Validate(); err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, *speechFile, *cuePath)
	if err != nil {
		log.Error("Failed to start", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	log.Info("Boot up - successful", "api", cfg.APIURL, "variant", cfg.Variant, "speech", cfg.Speech)

	states, unsubscribe := app.screen.Subscribe()
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		console.Watch(states, os.Stdout)
	}()

	if *text != "" || *image != "" {
		os.Exit(oneShot(ctx, app, *text, *image, unsubscribe, watched))
	}

	srv, err := ipc.StartServer(cfg.Socket, func(ctx context.Context, msg ipc.ControlMessage) (any, error) {
		return console.Dispatch(ctx, app.screen, msg.Cmd, msg.Arg)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()
	log.Debug("Control socket ready", "path", srv.Path())

	if cfg.HubURL != "" {
		hubStates, cancelHub := app.screen.Subscribe()
		defer cancelHub()
		go func() {
			link := hub.NewLink(cfg.HubURL, cfg.HubReconnect)
			link.Run(ctx, hubStates, func(ctx context.Context, cmd, arg string) error {
				_, err := console.Dispatch(ctx, app.screen, cmd, arg)
				return err
			})
		}()
	}

	if *noConsole {
		<-ctx.Done()
	} else {
		err := console.Run(ctx, os.Stdin, os.Stdout, app.screen)
		if err != nil && !errors.Is(err, console.ErrQuit) {
			log.Error("Console failed", "err", err)
		}
	}

	log.Info("Shutting down")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// oneShot submits a single input, waits for the answer to finish playing
// and returns the exit code.
func oneShot(ctx context.Context, app *app, text, image string, unsubscribe func(), watched <-chan struct{}) int {
	cmd, arg := ipc.CmdText, text
	if image != "" {
		cmd, arg = ipc.CmdImage, image
	}

	if _, err := console.Dispatch(ctx, app.screen, cmd, arg); err != nil {
		log.Error("Submit failed", "err", err)
		return 1
	}
	app.screen.Wait()

	st := app.screen.State()
	unsubscribe()
	<-watched
	app.Close()

	if st.Phase == dialog.Error {
		return 2
	}
	return 0
}
