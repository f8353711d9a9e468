package intent

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	c := MustClassifier()

	tests := []struct {
		name string
		msg  string
		want Set
	}{
		{"price question", "Vad kostar en ny hemsida?", Set{Price: true}},
		{"free review is action not price", "Jag vill boka en kostnadsfri genomgång", Set{Action: true, Booking: true}},
		{"plain analysis is action only", "Kan ni göra en analys av vår sajt?", Set{Action: true}},
		{"price analysis counts for both", "Vi behöver en prisanalys", Set{Action: true, Price: true}},
		{"content request", "Har ni en guide om SEO?", Set{Content: true}},
		{"download", "Kan jag ladda ner checklistan som pdf", Set{Content: true}},
		{"how-to is info", "Hur förbättrar jag min SEO?", Set{Info: true}},
		{"optimize inside a word is not info", "seoptimering", Set{}},
		{"product", "Vilka produkter har ni i lager?", Set{Product: true}},
		{"english booking", "Can we schedule a call next week?", Set{Booking: true}},
		{"english pricing", "What is your pricing?", Set{Action: true, Price: true}},
		{"typographic dash", "Hjälp med WordPress\u2011underhåll", Set{Action: true}},
		{"empty", "   ", Set{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.msg); got != tc.want {
				t.Fatalf("Classify(%q) = %+v, want %+v", tc.msg, got, tc.want)
			}
		})
	}
}

func TestLeadType(t *testing.T) {
	if got := (Set{Action: true, Content: true}).LeadType(); got != MagnetContent {
		t.Fatalf("content should win, got %q", got)
	}
	if got := (Set{Action: true}).LeadType(); got != MagnetAction {
		t.Fatalf("expected action, got %q", got)
	}
	if got := (Set{Info: true, Price: true}).LeadType(); got != "" {
		t.Fatalf("expected no lead type, got %q", got)
	}
}

func TestSetNames(t *testing.T) {
	got := Set{Info: true, Price: true, Action: true}.Names()
	if strings.Join(got, ",") != "action,price,info" {
		t.Fatalf("unexpected names %v", got)
	}
	if len(Set{}.Names()) != 0 {
		t.Fatal("expected no names for empty set")
	}
}

func TestClassifyMagnet(t *testing.T) {
	c := MustClassifier()
	cases := map[string]string{
		"Ladda ner vår SEO-guide":      MagnetContent,
		"Boka en kostnadsfri analys":   MagnetAction,
		"Nyhetsbrev":                   MagnetGeneric,
		"Checklista för webbanalys":    MagnetContent,
		"Strategisamtal med en expert": MagnetAction,
	}
	for label, want := range cases {
		if got := c.ClassifyMagnet(label); got != want {
			t.Errorf("ClassifyMagnet(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestDecideBookingUsesRawMessage(t *testing.T) {
	c := MustClassifier()
	if !c.DecideBooking("Kan vi BOKA ett möte?") {
		t.Fatal("expected booking intent")
	}
	if c.DecideBooking("Vad är SEO?") {
		t.Fatal("did not expect booking intent")
	}
}

func TestDecideLead(t *testing.T) {
	c := MustClassifier()
	magnets := c.NewLeadMagnets([]LeadMagnet{
		{Key: "newsletter", Label: "Nyhetsbrev"},
		{Key: "seo-guide", Label: "SEO-guide (pdf)"},
		{Key: "audit", Label: "Kostnadsfri analys"},
		{Key: "", Label: "Trasig post"},
	})
	if len(magnets) != 3 {
		t.Fatalf("expected keyless magnet dropped, got %d", len(magnets))
	}

	tests := []struct {
		name    string
		set     Set
		magnets []LeadMagnet
		want    LeadDecision
	}{
		{"content match", Set{Content: true}, magnets, LeadDecision{Intent: true, Key: "seo-guide"}},
		{"action match", Set{Action: true}, magnets, LeadDecision{Intent: true, Key: "audit"}},
		{"no lead intent", Set{Info: true}, magnets, LeadDecision{}},
		{"generic fallback", Set{Action: true}, magnets[:2], LeadDecision{Intent: true, Key: "newsletter"}},
		{"first magnet fallback", Set{Action: true}, magnets[1:2], LeadDecision{Intent: true, Key: "seo-guide"}},
		{"no magnets forces false", Set{Action: true}, nil, LeadDecision{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecideLead(tc.set, tc.magnets); got != tc.want {
				t.Fatalf("DecideLead = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknownIntent(t *testing.T) {
	if _, err := Parse([]byte("intents:\n  weather:\n    - pattern: 'sol'\n")); err == nil {
		t.Fatal("expected error for unknown intent")
	}
	if _, err := Parse([]byte("intents:\n  price:\n    - pattern: '(unclosed'\n")); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestCaseSensitiveRule(t *testing.T) {
	c, err := Parse([]byte("intents:\n  product:\n    - pattern: 'SKU'\n      ignore_case: false\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Classify("sku 12").Product {
		t.Fatal("case-sensitive rule matched lowercase input")
	}
	if !c.Classify("SKU 12").Product {
		t.Fatal("case-sensitive rule missed exact input")
	}
}
