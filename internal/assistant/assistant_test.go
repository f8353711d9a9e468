package assistant

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"sitechat_backend/internal/history"
	"sitechat_backend/internal/site"
	"sitechat_backend/platform/apperr"
)

type fakeLLM struct {
	reply string
	err   error
	last  *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}, nil)
	}
}

func TestSystemPromptIncludesSiteAndContext(t *testing.T) {
	prompt := SystemPrompt("Acme", "https://acme.se", site.LLMS{Index: "# Acme", FullSV: "Svensk stil"})
	if !strings.HasPrefix(prompt, "Du är Acmes digitala assistent.") {
		t.Fatalf("unexpected prompt start: %q", prompt[:40])
	}
	if !strings.Contains(prompt, "[LLMS-index]\n# Acme\n\n[LLMS-språk-stil (SV)]\nSvensk stil") {
		t.Fatalf("expected llms blocks, got %q", prompt)
	}
	if strings.Contains(prompt, "(EN)") {
		t.Fatal("empty part must be omitted")
	}
}

func TestSystemPromptWithoutContext(t *testing.T) {
	prompt := SystemPrompt("Acme", "https://acme.se", site.LLMS{})
	if strings.Contains(prompt, "[LLMS") {
		t.Fatalf("unexpected llms block in %q", prompt)
	}
	if !strings.HasSuffix(prompt, "guider.") {
		t.Fatalf("expected prompt to end after the knowledge base section, got %q", prompt[len(prompt)-40:])
	}
}

func TestLLMSContextTruncates(t *testing.T) {
	ctx := LLMSContext(site.LLMS{Index: strings.Repeat("å", 1500), Full: strings.Repeat("x", 2500)})
	blocks := strings.Split(ctx, "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("expected two blocks, got %d", len(blocks))
	}
	if got := len([]rune(strings.TrimPrefix(blocks[0], "[LLMS-index]\n"))); got != maxIndexRunes {
		t.Fatalf("expected index truncated to %d runes, got %d", maxIndexRunes, got)
	}
	if got := len(strings.TrimPrefix(blocks[1], "[LLMS-sammanfattning (EN)]\n")); got != maxPartRunes {
		t.Fatalf("expected full truncated to %d, got %d", maxPartRunes, got)
	}
}

func TestCompleteSendsHistoryInOrder(t *testing.T) {
	llm := &fakeLLM{reply: "  Hej!  "}
	c := NewCompleter(llm, 0.3)
	turns := []history.Turn{{Role: history.RoleUser, Content: "q1"}, {Role: history.RoleAssistant, Content: "a1"}}

	reply, err := c.Complete(context.Background(), "system", turns, "q2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hej!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	contents := llm.last.Contents
	if len(contents) != 3 || contents[1].Role != genai.RoleModel || contents[2].Parts[0].Text != "q2" {
		t.Fatalf("unexpected contents %+v", contents)
	}
	if llm.last.Config.SystemInstruction.Parts[0].Text != "system" || *llm.last.Config.Temperature != 0.3 {
		t.Fatalf("unexpected config %+v", llm.last.Config)
	}
}

func TestCompleteEmptyReplyFallsBack(t *testing.T) {
	reply, err := NewCompleter(&fakeLLM{reply: " "}, 0).Complete(context.Background(), "s", nil, "q")
	if err != nil || reply != FallbackReply {
		t.Fatalf("expected fallback, got %q %v", reply, err)
	}
}

func TestCompleteProviderErrorIsFatal(t *testing.T) {
	_, err := NewCompleter(&fakeLLM{err: errors.New("boom")}, 0).Complete(context.Background(), "s", nil, "q")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCompleteWithoutCredential(t *testing.T) {
	_, err := NewCompleter(nil, 0).Complete(context.Background(), "s", nil, "q")
	if !apperr.Is(err, apperr.KindInternal) || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing credential error, got %v", err)
	}
}
