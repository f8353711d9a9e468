package intent

import "strings"

// LeadMagnet is an offer a tenant can surface when a visitor shows
// commercial intent. Type is derived from Label, never supplied by the site.
type LeadMagnet struct {
	Key   string
	URL   string
	Label string
	Type  string
}

// LeadDecision is the lead outcome for one message.
type LeadDecision struct {
	Intent bool
	Key    string
}

// NewLeadMagnets types raw magnets by label and drops entries without a key.
func (c *Classifier) NewLeadMagnets(raw []LeadMagnet) []LeadMagnet {
	out := make([]LeadMagnet, 0, len(raw))
	for _, m := range raw {
		m.Key = strings.TrimSpace(m.Key)
		if m.Key == "" {
			continue
		}
		m.Type = c.ClassifyMagnet(m.Label)
		out = append(out, m)
	}
	return out
}

// DecideLead picks the magnet to offer. With no magnets there is nothing to
// offer, so the intent is forced off whatever the message said.
func DecideLead(set Set, magnets []LeadMagnet) LeadDecision {
	leadType := set.LeadType()
	if leadType == "" || len(magnets) == 0 {
		return LeadDecision{}
	}

	if m, ok := firstOfType(magnets, leadType); ok {
		return LeadDecision{Intent: true, Key: m.Key}
	}
	if m, ok := firstOfType(magnets, MagnetGeneric); ok {
		return LeadDecision{Intent: true, Key: m.Key}
	}
	return LeadDecision{Intent: true, Key: magnets[0].Key}
}

func firstOfType(magnets []LeadMagnet, typ string) (LeadMagnet, bool) {
	for _, m := range magnets {
		if m.Type == typ {
			return m, true
		}
	}
	return LeadMagnet{}, false
}
