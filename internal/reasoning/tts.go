package reasoning

import (
	"context"
	"strings"
)

type TTSResponse struct {
	URL string
}

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Synthesize asks the backend to render text as speech. The returned URL is
// as sent by the server, usually a /static path; see Resolve.
func (c *Client) Synthesize(ctx context.Context, text, lang, cred string) (TTSResponse, error) {
	if err := checkAuth(c.opt.TTSAuth, cred); err != nil {
		return TTSResponse{}, err
	}
	if lang == "" {
		lang = "ko"
	}

	raw, err := c.postJSON(ctx, "/tts", cred, ttsRequest{Text: text, Lang: lang})
	if err != nil {
		return TTSResponse{}, err
	}

	doc, err := object(raw)
	if err != nil {
		return TTSResponse{}, err
	}
	url := strings.TrimSpace(doc.Get("url").String())
	if url == "" {
		return TTSResponse{}, unavailable(0, "tts response without url", nil)
	}
	return TTSResponse{URL: url}, nil
}
