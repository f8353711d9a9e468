// Package intent classifies visitor messages into the intents that drive
// lead capture, booking prompts, product suggestions and pricing pointers.
package intent

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"sitechat_backend/internal/textutil"
)

//go:embed rules.yaml
var defaultRules []byte

const matchTimeout = 50 * time.Millisecond

// Set holds the intents detected in one message.
type Set struct {
	Action  bool
	Content bool
	Product bool
	Booking bool
	Info    bool
	Price   bool
}

// LeadType returns the lead-magnet type a message asks for. Content wins over
// action; an empty string means neither fired.
func (s Set) LeadType() string {
	switch {
	case s.Content:
		return MagnetContent
	case s.Action:
		return MagnetAction
	default:
		return ""
	}
}

// Names lists the detected intents in a fixed order.
func (s Set) Names() []string {
	var out []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"action", s.Action}, {"content", s.Content}, {"price", s.Price},
		{"product", s.Product}, {"booking", s.Booking}, {"info", s.Info},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

// Lead magnet types.
const (
	MagnetContent = "content"
	MagnetAction  = "action"
	MagnetGeneric = "generic"
)

type ruleFile struct {
	Intents     map[string][]ruleDef `yaml:"intents"`
	MagnetTypes []struct {
		Type     string    `yaml:"type"`
		Patterns []ruleDef `yaml:"patterns"`
	} `yaml:"magnet_types"`
}

type ruleDef struct {
	Pattern    string `yaml:"pattern"`
	IgnoreCase *bool  `yaml:"ignore_case"`
}

type ruleList []*regexp2.Regexp

// match reports whether one of the patterns matches s. Match errors (timeouts)
// count as no match.
func (l ruleList) match(s string) bool {
	for _, re := range l {
		if ok, err := re.MatchString(s); err == nil && ok {
			return true
		}
	}
	return false
}

type magnetRule struct {
	typ   string
	rules ruleList
}

// Classifier evaluates the rule tables against messages. It is safe for
// concurrent use.
type Classifier struct {
	action  ruleList
	content ruleList
	product ruleList
	booking ruleList
	info    ruleList
	price   ruleList
	magnets []magnetRule
}

// NewClassifier compiles the built-in rule tables.
func NewClassifier() (*Classifier, error) {
	return Parse(defaultRules)
}

// MustClassifier is NewClassifier for package-level wiring; it panics on a
// broken built-in table.
func MustClassifier() *Classifier {
	c, err := NewClassifier()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse compiles a YAML rule document.
func Parse(doc []byte) (*Classifier, error) {
	var f ruleFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, fmt.Errorf("parse intent rules: %w", err)
	}

	c := &Classifier{}
	targets := map[string]*ruleList{
		"action":  &c.action,
		"content": &c.content,
		"product": &c.product,
		"booking": &c.booking,
		"info":    &c.info,
		"price":   &c.price,
	}
	for name, defs := range f.Intents {
		dst, ok := targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown intent %q", name)
		}
		compiled, err := compile(name, defs)
		if err != nil {
			return nil, err
		}
		*dst = compiled
	}
	for _, mt := range f.MagnetTypes {
		compiled, err := compile("magnet "+mt.Type, mt.Patterns)
		if err != nil {
			return nil, err
		}
		c.magnets = append(c.magnets, magnetRule{typ: mt.Type, rules: compiled})
	}
	return c, nil
}

func compile(name string, defs []ruleDef) (ruleList, error) {
	out := make(ruleList, 0, len(defs))
	for i, d := range defs {
		opts := regexp2.None
		if d.IgnoreCase == nil || *d.IgnoreCase {
			opts |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(d.Pattern, opts)
		if err != nil {
			return nil, fmt.Errorf("intent %s rule %d: %w", name, i, err)
		}
		re.MatchTimeout = matchTimeout
		out = append(out, re)
	}
	return out, nil
}

// Classify evaluates every intent against the message. Typographic dashes
// and non-breaking spaces are normalized first.
func (c *Classifier) Classify(message string) Set {
	msg := textutil.NormalizePunctuation(strings.TrimSpace(message))
	if msg == "" {
		return Set{}
	}
	return Set{
		Action:  c.action.match(msg),
		Content: c.content.match(msg),
		Product: c.product.match(msg),
		Booking: c.booking.match(msg),
		Info:    c.info.match(msg),
		Price:   c.price.match(msg),
	}
}

// ClassifyMagnet types a lead magnet by its label.
func (c *Classifier) ClassifyMagnet(label string) string {
	label = textutil.NormalizePunctuation(label)
	for _, m := range c.magnets {
		if m.rules.match(label) {
			return m.typ
		}
	}
	return MagnetGeneric
}

// DecideBooking reports whether the visitor should be offered a meeting.
func (c *Classifier) DecideBooking(message string) bool {
	return c.booking.match(textutil.NormalizePunctuation(message))
}
