// Package assistant builds the system prompt and calls the completion model.
package assistant

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"sitechat_backend/internal/site"
)

//go:embed templates/system_prompt.tmpl
var templateFS embed.FS

var systemPrompt = template.Must(template.ParseFS(templateFS, "templates/system_prompt.tmpl"))

const (
	maxIndexRunes = 1000
	maxPartRunes  = 2000
)

type promptData struct {
	SiteName string
	BaseURL  string
	Context  string
}

// SystemPrompt renders the system prompt for a site.
func SystemPrompt(siteName, baseURL string, llms site.LLMS) string {
	var buf bytes.Buffer
	data := promptData{SiteName: siteName, BaseURL: baseURL, Context: LLMSContext(llms)}
	if err := systemPrompt.Execute(&buf, data); err != nil {
		// The template is static; a failure here means it was edited badly.
		panic(err)
	}
	return strings.TrimSpace(buf.String())
}

// LLMSContext formats the non-empty LLMS parts as labelled blocks, each
// truncated to its budget.
func LLMSContext(llms site.LLMS) string {
	var blocks []string
	add := func(label, text string, limit int) {
		if text = strings.TrimSpace(truncateRunes(text, limit)); text != "" {
			blocks = append(blocks, "["+label+"]\n"+text)
		}
	}
	add("LLMS-index", llms.Index, maxIndexRunes)
	add("LLMS-sammanfattning (EN)", llms.Full, maxPartRunes)
	add("LLMS-språk-stil (SV)", llms.FullSV, maxPartRunes)
	return strings.Join(blocks, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
