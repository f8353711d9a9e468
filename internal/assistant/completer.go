package assistant

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"sitechat_backend/internal/history"
	"sitechat_backend/platform/apperr"
)

// FallbackReply is used when the model answers with no text.
const FallbackReply = "Jag är osäker just nu. Vill du omformulera frågan?"

// Completer sends one conversation turn to the model.
type Completer struct {
	llm         model.LLM
	temperature float32
}

// NewCompleter wraps llm. A nil llm means no credential is configured and
// every call fails with a configuration error.
func NewCompleter(llm model.LLM, temperature float32) *Completer {
	return &Completer{llm: llm, temperature: temperature}
}

// Configured reports whether a model is available.
func (c *Completer) Configured() bool {
	return c.llm != nil
}

// Complete returns the model's reply to message given the system prompt and
// prior turns.
func (c *Completer) Complete(ctx context.Context, system string, turns []history.Turn, message string) (string, error) {
	if c.llm == nil {
		return "", apperr.MissingCredential("OPENAI_API_KEY")
	}

	temp := c.temperature
	req := &model.LLMRequest{
		Contents: buildContents(turns, message),
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temp,
		},
	}

	var reply string
	for resp, err := range c.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("generate reply: %w", err)
		}
		reply += responseText(resp)
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return FallbackReply, nil
	}
	return reply, nil
}

func buildContents(turns []history.Turn, message string) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns)+1)
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == history.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(t.Content, genai.Role(role)))
	}
	return append(out, genai.NewContentFromText(message, genai.RoleUser))
}

func responseText(resp *model.LLMResponse) string {
	if resp == nil || resp.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
