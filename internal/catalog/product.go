// Package catalog models the storefront products a tenant exposes and
// converts them into the shapes the chat pipeline ranks and renders.
package catalog

import (
	"strconv"
	"strings"

	"sitechat_backend/internal/textutil"
)

// Term is a category or tag attached to a product.
type Term struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Attribute is a product attribute with its values.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Price is a product price in minor currency units.
type Price struct {
	Amount    int64  `json:"amount"`
	MinorUnit int    `json:"minor_unit"`
	Currency  string `json:"currency"`
	Prefix    string `json:"prefix,omitempty"`
	Suffix    string `json:"suffix,omitempty"`
	HasAmount bool   `json:"has_amount"`
}

// Product is the cached, normalized form of a storefront product.
type Product struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	URL              string      `json:"url"`
	ShortDescription string      `json:"short_description,omitempty"`
	Categories       []Term      `json:"categories,omitempty"`
	Tags             []Term      `json:"tags,omitempty"`
	Attributes       []Attribute `json:"attributes,omitempty"`
	Price            Price       `json:"price"`
	InStock          bool        `json:"in_stock"`
}

// Tokens is the token bag the ranker scores a product against.
func (p Product) Tokens() []string {
	parts := []string{p.Name, p.Slug, p.ShortDescription}
	for _, t := range p.Categories {
		parts = append(parts, t.Name, t.Slug)
	}
	for _, t := range p.Tags {
		parts = append(parts, t.Name, t.Slug)
	}
	for _, a := range p.Attributes {
		parts = append(parts, a.Name)
		parts = append(parts, a.Values...)
	}
	return textutil.Tokenize(strings.Join(parts, " "))
}

// DisplayPrice renders the price for a reply, e.g. "199 kr" or "1 495,50 kr".
// It returns "" when the product has no price.
func (p Price) DisplayPrice() string {
	if !p.HasAmount {
		return ""
	}
	amount := p.Amount
	neg := amount < 0
	if neg {
		amount = -amount
	}

	div := int64(1)
	for i := 0; i < p.MinorUnit; i++ {
		div *= 10
	}
	whole, frac := amount/div, amount%div

	out := groupThousands(strconv.FormatInt(whole, 10))
	if frac != 0 {
		f := strconv.FormatInt(frac, 10)
		for len(f) < p.MinorUnit {
			f = "0" + f
		}
		out += "," + f
	}
	if neg {
		out = "-" + out
	}

	switch {
	case p.Prefix != "" || p.Suffix != "":
		return strings.TrimSpace(p.Prefix + out + p.Suffix)
	case p.Currency == "SEK" || p.Currency == "":
		return out + " kr"
	default:
		return out + " " + p.Currency
	}
}

// Decimal renders the amount as a plain decimal string for API responses.
func (p Price) Decimal() string {
	if !p.HasAmount {
		return ""
	}
	if p.MinorUnit <= 0 {
		return strconv.FormatInt(p.Amount, 10)
	}
	div := int64(1)
	for i := 0; i < p.MinorUnit; i++ {
		div *= 10
	}
	return strconv.FormatFloat(float64(p.Amount)/float64(div), 'f', p.MinorUnit, 64)
}

// Meta returns the secondary line shown under a product: its short
// description if present, otherwise its category names.
func (p Product) Meta() string {
	if p.ShortDescription != "" {
		return p.ShortDescription
	}
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
