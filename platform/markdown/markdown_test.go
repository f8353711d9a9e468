package markdown

import (
	"strings"
	"testing"
)

func TestRenderLinksAndEmphasis(t *testing.T) {
	got := New().Render("Vi erbjuder **SEO**.\n\n- [SEO](https://example.se/seo/)\n- Webbdesign")
	for _, want := range []string{
		"<strong>SEO</strong>",
		`<a href="https://example.se/seo/">SEO</a>`,
		"<li>Webbdesign</li>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	got := New().Render("hej <script>alert(1)</script>")
	if strings.Contains(got, "<script>") {
		t.Fatalf("raw html leaked: %q", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := New().Render("  \n"); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
