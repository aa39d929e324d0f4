package config

import (
	"fmt"
	log "log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL    string
	Variant   string // dialog | answer | chat
	TopK      int    // top_k sent with the answer variant
	ImageTopK int
	Lang      string // TTS language
	Locale    string // speech recognition locale

	DialogAuth string // optional | required
	TTSAuth    string

	Speech       string // whisper | openai | none
	WhisperModel string
	OpenAIAPIKey string
	OpenAIModel  string

	PlaybackRate float64
	SettleDelay  time.Duration
	Timeout      time.Duration

	DuckLevel float64 // other apps' volume factor while an answer plays; 1 disables

	Proxy        string
	HubURL       string
	HubReconnect time.Duration
	Socket       string
	Store        string // file | keyring
	StorePath    string
	Notify       bool
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getDuration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getBool(k string, def bool) bool {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads SOSAI_* variables. Call godotenv first if an env file is used.
// LoadEnv merges an env file into the process environment. A missing file
// is not an error; variables already set win.
func LoadEnv(path string) bool {
	if err := godotenv.Load(path); err != nil {
		log.Debug("No env file", "path", path, "err", err)
		return false
	}
	return true
}

func Load() *Config {
	return &Config{
		APIURL:    getEnv("SOSAI_API_URL", "http://localhost:8000"),
		Variant:   getEnv("SOSAI_VARIANT", "dialog"),
		TopK:      getInt("SOSAI_TOP_K", 1),
		ImageTopK: getInt("SOSAI_IMAGE_TOP_K", 3),
		Lang:      getEnv("SOSAI_LANG", "ko"),
		Locale:    getEnv("SOSAI_LOCALE", "ko-KR"),

		DialogAuth: getEnv("SOSAI_DIALOG_AUTH", "optional"),
		TTSAuth:    getEnv("SOSAI_TTS_AUTH", "optional"),

		Speech:       getEnv("SOSAI_SPEECH", "whisper"),
		WhisperModel: getEnv("WHISPER_MODEL", "third_party/whisper.cpp/models/ggml-medium.bin"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		PlaybackRate: getFloat("SOSAI_PLAYBACK_RATE", 1.25),
		SettleDelay:  getDuration("SOSAI_SETTLE_DELAY", 300*time.Millisecond),
		Timeout:      getDuration("SOSAI_TIMEOUT", 60*time.Second),

		DuckLevel: getFloat("SOSAI_DUCK_LEVEL", 0.3),

		Proxy:        os.Getenv("SOSAI_PROXY"),
		HubURL:       os.Getenv("SOSAI_HUB_URL"),
		HubReconnect: getDuration("SOSAI_HUB_RECONNECT", 3*time.Second),
		Socket:       getEnv("SOSAI_SOCKET", "/tmp/sosai.sock"),
		Store:        getEnv("SOSAI_STORE", "file"),
		StorePath:    os.Getenv("SOSAI_STORE_PATH"),
		Notify:       getBool("SOSAI_NOTIFY", true),
	}
}

func (c *Config) Validate() error {
	switch c.Variant {
	case "dialog", "answer", "chat":
	default:
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	switch c.Speech {
	case "whisper", "openai", "none":
	default:
		return fmt.Errorf("unknown speech engine %q", c.Speech)
	}
	for _, p := range []string{c.DialogAuth, c.TTSAuth} {
		if p != "optional" && p != "required" {
			return fmt.Errorf("unknown auth policy %q", p)
		}
	}
	if c.Store != "file" && c.Store != "keyring" {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Variant == "chat" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("chat variant needs OPENAI_API_KEY")
	}
	if c.Speech == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai speech engine needs OPENAI_API_KEY")
	}
	if c.DuckLevel < 0 || c.DuckLevel > 1 {
		return fmt.Errorf("duck level must be within [0, 1]")
	}
	if c.PlaybackRate <= 0 {
		return fmt.Errorf("playback rate must be positive")
	}
	if c.ImageTopK <= 0 {
		c.ImageTopK = 3
	}
	if c.TopK <= 0 {
		c.TopK = 1
	}
	return nil
}

// RecognizerLanguage maps a locale like ko-KR to the language code speech
// engines expect.
func (c *Config) RecognizerLanguage() string {
	lang, _, _ := strings.Cut(c.Locale, "-")
	if lang == "" {
		return "auto"
	}
	return strings.ToLower(lang)
}
