// Package reasoning talks to the SOSAI backend: dialog answers, image
// classification, speech synthesis and the account endpoints. Every call is a
// single request/response cycle; nothing is retried here.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type Variant string

const (
	VariantDialog Variant = "dialog" // POST /dialog {keyword}
	VariantAnswer Variant = "answer" // POST /answer {question, top_k}
)

// AuthPolicy decides what happens when an endpoint is called without a token.
type AuthPolicy string

const (
	AuthOptional AuthPolicy = "optional"
	AuthRequired AuthPolicy = "required"
)

const maxBody = 8 << 20

type Options struct {
	BaseURL    string
	Variant    Variant
	TopK       int
	ImageTopK  int
	DialogAuth AuthPolicy
	TTSAuth    AuthPolicy
	HTTPClient *http.Client
}

type Client struct {
	base *url.URL
	opt  Options
	hc   *http.Client
}

func New(opt Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opt.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opt.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	if opt.Variant == "" {
		opt.Variant = VariantDialog
	}
	if opt.TopK <= 0 {
		opt.TopK = 1
	}
	if opt.ImageTopK <= 0 {
		opt.ImageTopK = 3
	}
	if opt.DialogAuth == "" {
		opt.DialogAuth = AuthOptional
	}
	if opt.TTSAuth == "" {
		opt.TTSAuth = AuthOptional
	}

	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{base: u, opt: opt, hc: hc}, nil
}

func (c *Client) Variant() Variant { return c.opt.Variant }

// Resolve turns a server-relative reference such as /static/a1.mp3 into an
// absolute URL under the base URL. Absolute references are returned as is.
func (c *Client) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return c.base.String() + "/" + strings.TrimLeft(ref, "/")
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func checkAuth(policy AuthPolicy, cred string) error {
	if policy == AuthRequired && cred == "" {
		return unauthorized(0, "login required")
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, cred string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, cred)
}

func (c *Client) do(req *http.Request, cred string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, unavailable(0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, unavailable(resp.StatusCode, "read response", err)
	}

	log.Debug("Backend call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, unauthorized(resp.StatusCode, serverMessage(raw, "unauthorized"))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, unavailable(resp.StatusCode, serverMessage(raw, http.StatusText(resp.StatusCode)), nil)
	}

	if !gjson.ValidBytes(raw) {
		return nil, unavailable(resp.StatusCode, string(raw), nil)
	}
	return raw, nil
}

// serverMessage extracts {"error": ...} or {"detail": ...} from an error body.
func serverMessage(raw []byte, def string) string {
	if gjson.ValidBytes(raw) {
		doc := gjson.ParseBytes(raw)
		for _, key := range []string{"error", "detail", "message"} {
			if v := doc.Get(key); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return def
}

// object parses raw as a JSON object or fails the way an undecodable body does.
func object(raw []byte) (gjson.Result, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return doc, unavailable(0, string(raw), nil)
	}
	return doc, nil
}

func firstString(doc gjson.Result, keys ...string) (string, bool) {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.String(), true
		}
	}
	return "", false
}

func firstExisting(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
