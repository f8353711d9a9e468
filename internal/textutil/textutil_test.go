package textutil

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hur förbättrar jag min SEO på WordPress-sajten?", []string{"forbattrar", "seo", "wordpress", "sajten"}},
		{"lokal_seo/guide.2024", []string{"lokal", "seo", "guide", "2024"}},
		{"A b c", []string{}},
		{"", nil},
		{"Vad kostar en ny hemsida?", []string{"vad", "kostar", "hemsida"}},
	}
	for _, tc := range cases {
		got := Tokenize(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeInvariants(t *testing.T) {
	inputs := []string{
		"Och att som för med en ett det den de vi ni jag",
		"Våra bästa tips för e-handel & SEO (2024)!",
		"https://example.se/blogg/10-tips-for-lokal-seo/",
		"  \t\n ",
	}
	for _, in := range inputs {
		first := Tokenize(in)
		second := Tokenize(in)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("Tokenize is not deterministic for %q", in)
		}
		for _, tok := range first {
			if utf8.RuneCountInString(tok) <= 1 {
				t.Errorf("token %q from %q is too short", tok, in)
			}
			if IsStopWord(tok) {
				t.Errorf("stop word %q leaked from %q", tok, in)
			}
		}
	}
}

func TestTitleFromSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.se/blogg/seo-tips-for-2024/", "SEO tips for 2024"},
		{"https://example.se/2024/05/wordpress-s%C3%A4kerhet", "WordPress säkerhet"},
		{"https://example.se/", "https://example.se/"},
		{"not a url", "not a url"},
		{"https://example.se/%zz", "https://example.se/%zz"},
		{"https://example.se/guide.html", "Guide"},
	}
	for _, tc := range cases {
		if got := TitleFromSlug(tc.in); got != tc.want {
			t.Errorf("TitleFromSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	got := NormalizeLabel("  Lokal SEO\u2013tj\u00e4nster ")
	if got != "lokal seo-tjänster" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestNormalizePunctuation(t *testing.T) {
	got := NormalizePunctuation("a\u00a0b \u2014 c\u2212d\u00ade")
	if got != "a b - c-d-e" {
		t.Fatalf("unexpected: %q", got)
	}
}
