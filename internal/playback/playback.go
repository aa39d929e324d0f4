// Package playback plays the guidance audio referenced by a reasoning
// response. At most one clip plays at a time; a new Play supersedes the old.
package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

var ErrFailed = errors.New("playback failed")

const maxClip = 32 << 20

// Sink renders a decoded stream and returns once it is drained or ctx ends.
type Sink interface {
	Play(ctx context.Context, s beep.Streamer, format beep.Format) error
}

type Options struct {
	Rate        float64
	SettleDelay time.Duration
	HTTPClient  *http.Client
}

type Controller struct {
	sink   Sink
	hc     *http.Client
	rate   float64
	settle time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func New(sink Sink, opt Options) *Controller {
	if opt.Rate <= 0 {
		opt.Rate = 1
	}
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Controller{sink: sink, hc: hc, rate: opt.Rate, settle: opt.SettleDelay}
}

// Play stops whatever is playing, waits for the settle delay and plays the
// clip at url. It returns nil when the clip finished or was superseded, and
// an error wrapping ErrFailed otherwise.
func (c *Controller) Play(ctx context.Context, rawURL string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	if c.settle > 0 {
		t := time.NewTimer(c.settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}

	err := c.play(ctx, rawURL)
	if ctx.Err() != nil {
		log.Debug("Playback superseded", "url", rawURL)
		return nil
	}
	return err
}

// Stop halts the current clip, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) play(ctx context.Context, rawURL string) error {
	data, ctype, err := c.fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}

	st, format, err := decode(data, ctype, rawURL)
	if err != nil {
		return fmt.Errorf("%w: decode: %w", ErrFailed, err)
	}
	defer st.Close()

	var s beep.Streamer = st
	if c.rate != 1 {
		s = beep.ResampleRatio(4, c.rate, st)
	}

	log.Debug("Playing", "url", rawURL, "rate", c.rate, "sample_rate", format.SampleRate)
	if err := c.sink.Play(ctx, s, format); err != nil {
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("%w: stream: %w", ErrFailed, err)
	}
	return nil
}

func (c *Controller) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClip))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty audio")
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type codec int

const (
	codecUnknown codec = iota
	codecMP3
	codecWAV
	codecVorbis
)

func decode(data []byte, ctype, rawURL string) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(data))

	switch detect(data, ctype, rawURL) {
	case codecMP3:
		return mp3.Decode(rc)
	case codecWAV:
		return wav.Decode(rc)
	case codecVorbis:
		return vorbis.Decode(rc)
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported audio type %q", ctype)
}

// detect trusts the Content-Type first, then the URL extension, then the
// leading bytes.
func detect(data []byte, ctype, rawURL string) codec {
	if mt, _, err := mime.ParseMediaType(ctype); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3":
			return codecMP3
		case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
			return codecWAV
		case "audio/ogg", "application/ogg", "audio/vorbis":
			return codecVorbis
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".mp3":
			return codecMP3
		case ".wav":
			return codecWAV
		case ".ogg", ".oga":
			return codecVorbis
		}
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return codecWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return codecVorbis
	case bytes.HasPrefix(data, []byte("ID3")),
		len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return codecMP3
	}
	return codecUnknown
}
