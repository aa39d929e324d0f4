package reasoning

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/tidwall/gjson"
)

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
}

// Classification is the image model's verdict. Text and Similar are only
// filled by the legacy response shape.
type Classification struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	TopK       []Prediction  `json:"topk,omitempty"`
	Text       string        `json:"text,omitempty"`
	Similar    []SimilarItem `json:"similar,omitempty"`
}

// ClassifyImage uploads raw image bytes as multipart field "file". The call
// is always anonymous.
func (c *Client) ClassifyImage(ctx context.Context, filename string, data []byte) (Classification, error) {
	if filename == "" {
		filename = "image"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return Classification{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Classification{}, fmt.Errorf("write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Classification{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/predict-image"), &buf)
	if err != nil {
		return Classification{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req, "")
	if err != nil {
		return Classification{}, err
	}
	return parseClassification(raw, c.opt.ImageTopK)
}

func parseClassification(raw []byte, k int) (Classification, error) {
	doc, err := object(raw)
	if err != nil {
		return Classification{}, err
	}

	if res := doc.Get("result"); res.IsObject() {
		out := Classification{
			Label:      res.Get("label").String(),
			Confidence: clamp01(res.Get("confidence").Float()),
		}
		for _, it := range doc.Get("topk").Array() {
			if len(out.TopK) == k {
				break
			}
			out.TopK = append(out.TopK, prediction(it))
		}
		return out, nil
	}

	// legacy: {prediction, text, top_similar_questions}
	pred := doc.Get("prediction")
	if !pred.Exists() {
		return Classification{}, unavailable(0, "unrecognised classification response: "+string(raw), nil)
	}

	out := Classification{
		Text:    doc.Get("text").String(),
		Similar: parseSimilar(doc.Get("top_similar_questions")),
	}
	if pred.IsObject() {
		p := prediction(pred)
		out.Label, out.Confidence = p.Label, p.Confidence
	} else {
		out.Label = pred.String()
		out.Confidence = clamp01(doc.Get("confidence").Float())
	}
	return out, nil
}

func prediction(it gjson.Result) Prediction {
	return Prediction{
		Label:      it.Get("label").String(),
		Confidence: clamp01(it.Get("confidence").Float()),
		Index:      int(it.Get("index").Int()),
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
