package reasoning

import (
	"context"

	"github.com/tidwall/gjson"
)

type SimilarItem struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// DialogResponse is the guidance for one keyword. An empty AudioURL means
// the caller has to synthesize speech itself.
type DialogResponse struct {
	Answer   string
	AudioURL string
	Similar  []SimilarItem
}

type dialogRequest struct {
	Keyword string `json:"keyword"`
}

type answerRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Dialog submits a situation description. cred may be empty.
func (c *Client) Dialog(ctx context.Context, keyword, cred string) (DialogResponse, error) {
	if err := checkAuth(c.opt.DialogAuth, cred); err != nil {
		return DialogResponse{}, err
	}

	var (
		raw []byte
		err error
	)
	switch c.opt.Variant {
	case VariantAnswer:
		raw, err = c.postJSON(ctx, "/answer", cred, answerRequest{Question: keyword, TopK: c.opt.TopK})
	default:
		raw, err = c.postJSON(ctx, "/dialog", cred, dialogRequest{Keyword: keyword})
	}
	if err != nil {
		return DialogResponse{}, err
	}

	return parseDialog(raw)
}

func parseDialog(raw []byte) (DialogResponse, error) {
	doc, err := object(raw)
	if err != nil {
		return DialogResponse{}, err
	}

	answer, _ := firstString(doc, "answer", "text", "best_answer")
	audio, _ := firstString(doc, "audio_url")

	return DialogResponse{
		Answer:   answer,
		AudioURL: audio,
		Similar:  parseSimilar(firstExisting(doc, "top_similar_questions", "results")),
	}, nil
}

// parseSimilar accepts a list of plain strings or of objects carrying a text
// field (question, answer, label or text) and a score (score or similarity).
func parseSimilar(list gjson.Result) []SimilarItem {
	if !list.IsArray() {
		return nil
	}

	var out []SimilarItem
	for _, it := range list.Array() {
		switch {
		case it.Type == gjson.String:
			out = append(out, SimilarItem{Label: it.String()})
		case it.IsObject():
			label, _ := firstString(it, "question", "answer", "label", "text")
			score := firstExisting(it, "score", "similarity").Float()
			out = append(out, SimilarItem{Label: label, Score: score})
		}
	}
	return out
}
