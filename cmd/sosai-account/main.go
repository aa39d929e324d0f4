package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"sosai/internal/account"
	"sosai/internal/auth"
	"sosai/internal/config"
	"sosai/internal/proxy"
	"sosai/internal/reasoning"
	"sosai/internal/store"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const usage = `usage: sosai-account [flags] <command>

commands:
  signup --email E --password P --name N
  login  --email E --password P
  logout
  medical                      print the medical record
  medical-set --file record.json
`

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	email := cli.String("email", "", "Account email")
	password := cli.String("password", "", "Account password")
	name := cli.String("name", "", "Display name (signup)")
	file := cli.StringP("file", "f", "", "Medical record JSON (medical-set)")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	if cli.NArg() != 1 {
		cli.Usage()
		os.Exit(2)
	}

	config.LoadEnv(*envFile)
	cfg := config.Load()

	svc, err := newService(cfg)
	if err != nil {
		log.Error("Failed to start", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+5*time.Second)
	defer cancel()

	if err := run(ctx, svc, cli.Arg(0), *email, *password, *name, *file); err != nil {
		fmt.Fprintln(os.Stderr, "sosai-account:", explain(err))
		os.Exit(1)
	}
}

func newService(cfg *config.Config) (*account.Service, error) {
	hc, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	client, err := reasoning.New(reasoning.Options{BaseURL: cfg.APIURL, HTTPClient: hc})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, err
	}

	provider, err := auth.NewProvider(st)
	if err != nil {
		return nil, err
	}
	return account.New(client, provider, st), nil
}

func run(ctx context.Context, svc *account.Service, cmd, email, password, name, file string) error {
	switch cmd {
	case "signup":
		if email == "" || password == "" {
			return errors.New("--email and --password are required")
		}
		sess, err := svc.Signup(ctx, email, password, name)
		if err != nil {
			return err
		}
		if sess.Token == "" {
			fmt.Println("가입되었습니다. 로그인해 주세요.")
		} else {
			fmt.Println("가입 및 로그인되었습니다.")
		}
	case "login":
		if email == "" || password == "" {
			return errors.New("--email and --password are required")
		}
		sess, err := svc.Login(ctx, email, password)
		if err != nil {
			return err
		}
		who := email
		if sess.User != nil && sess.User.Name != "" {
			who = sess.User.Name
		}
		fmt.Printf("%s 님, 로그인되었습니다.\n", who)
	case "logout":
		if err := svc.Logout(); err != nil {
			return err
		}
		fmt.Println("로그아웃되었습니다.")
	case "medical":
		rec, err := svc.Medical(ctx)
		if err != nil {
			return err
		}
		return printJSON(rec)
	case "medical-set":
		if file == "" {
			return errors.New("--file is required")
		}
		raw, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var rec reasoning.MedicalRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		saved, err := svc.SaveMedical(ctx, rec)
		if err != nil {
			return err
		}
		return printJSON(saved)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func explain(err error) string {
	var re *reasoning.Error
	if errors.As(err, &re) && re.Kind == reasoning.KindUnauthorized {
		return "인증에 실패했습니다. 이메일과 비밀번호를 확인하거나 다시 로그인해 주세요."
	}
	return err.Error()
}
