// Package nlu answers emergency descriptions with a hosted chat model. It is
// the "chat" variant of the reasoning service: same request, same response,
// but no server-side audio.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"sosai/internal/reasoning"
)

type reply struct {
	Answer  string   `json:"answer"`
	Related []string `json:"related"`
}

const systemPrompt = `
You are SOSAI, a first-aid assistant for people in an emergency.
The user describes what happened, usually in Korean.

RULES:
1. Answer in the user's language (Korean by default).
2. Give short, concrete first-aid steps a layperson can follow right now.
3. If the situation may be life-threatening, the first step is to call 119.
4. Never diagnose. Never suggest prescription drugs.
5. Keep the answer under 4 sentences; it will be read aloud.

OUTPUT FORMAT (JSON only, no markdown):
{
  "answer": "<guidance>",
  "related": ["<similar situation>", ...]   // at most 3, may be empty
}
`

type Advisor struct {
	client openai.Client
	model  openai.ChatModel
}

func NewAdvisor(client openai.Client, model string) *Advisor {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &Advisor{client: client, model: openai.ChatModel(model)}
}

// Dialog asks the model for guidance. The credential is not used: the model
// is reached with the advisor's own API key.
func (a *Advisor) Dialog(ctx context.Context, keyword, _ string) (reasoning.DialogResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(keyword),
		},
		Model: a.model,
	})
	if err != nil {
		return reasoning.DialogResponse{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return reasoning.DialogResponse{}, unavailable("no choices in response", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return reasoning.DialogResponse{}, unavailable("empty message content", nil)
	}

	log.Debug("Advisor reply", "data", content)
	return parseReply(content), nil
}

// parseReply accepts the JSON the prompt asks for and falls back to using
// the raw text as the answer.
func parseReply(content string) reasoning.DialogResponse {
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil || r.Answer == "" {
		return reasoning.DialogResponse{Answer: content}
	}

	out := reasoning.DialogResponse{Answer: r.Answer}
	for _, q := range r.Related {
		if q = strings.TrimSpace(q); q != "" {
			out.Similar = append(out.Similar, reasoning.SimilarItem{Label: q})
		}
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		// 401 here is the model API key, not the user login.
		if apiErr.StatusCode == 401 {
			return &reasoning.Error{Kind: reasoning.KindServiceUnavailable, Status: 401, Message: "model API key rejected", Err: err}
		}
		return &reasoning.Error{Kind: reasoning.KindServiceUnavailable, Status: apiErr.StatusCode, Message: "chat model unavailable", Err: err}
	}
	return unavailable("chat completion", err)
}

func unavailable(msg string, err error) error {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &reasoning.Error{Kind: reasoning.KindServiceUnavailable, Message: msg, Err: err}
}
