package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sitechat_backend/platform/sanitize"
)

const shortDescriptionRunes = 140

// storeProduct mirrors the fields we read from the WooCommerce Store API
// (wc/store/v1/products).
type storeProduct struct {
	ID               json.Number `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Permalink        string      `json:"permalink"`
	ShortDescription string      `json:"short_description"`
	Description      string      `json:"description"`
	IsInStock        *bool       `json:"is_in_stock"`
	Prices           struct {
		Price             string `json:"price"`
		CurrencyCode      string `json:"currency_code"`
		CurrencyMinorUnit int    `json:"currency_minor_unit"`
		CurrencyPrefix    string `json:"currency_prefix"`
		CurrencySuffix    string `json:"currency_suffix"`
	} `json:"prices"`
	Categories []Term `json:"categories"`
	Tags       []Term `json:"tags"`
	Attributes []struct {
		Name  string `json:"name"`
		Terms []struct {
			Name string `json:"name"`
		} `json:"terms"`
	} `json:"attributes"`
}

// ParseStoreProducts decodes a Store API product listing. Entries without a
// name are skipped; HTML in descriptions and names is stripped.
func ParseStoreProducts(data []byte) ([]Product, error) {
	var raw []storeProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode store products: %w", err)
	}

	products := make([]Product, 0, len(raw))
	for _, sp := range raw {
		name := sanitize.StripHTML(sp.Name)
		if name == "" {
			continue
		}
		desc := sp.ShortDescription
		if strings.TrimSpace(desc) == "" {
			desc = sp.Description
		}

		p := Product{
			ID:               sp.ID.String(),
			Name:             name,
			Slug:             sp.Slug,
			URL:              strings.TrimSpace(sp.Permalink),
			ShortDescription: sanitize.Text(desc, shortDescriptionRunes),
			Categories:       cleanTerms(sp.Categories),
			Tags:             cleanTerms(sp.Tags),
			InStock:          sp.IsInStock == nil || *sp.IsInStock,
			Price: Price{
				MinorUnit: sp.Prices.CurrencyMinorUnit,
				Currency:  sp.Prices.CurrencyCode,
				Prefix:    sanitize.StripHTML(sp.Prices.CurrencyPrefix),
				Suffix:    sanitize.StripHTML(sp.Prices.CurrencySuffix),
			},
		}
		if amount, err := strconv.ParseInt(strings.TrimSpace(sp.Prices.Price), 10, 64); err == nil {
			p.Price.Amount = amount
			p.Price.HasAmount = true
		}
		for _, a := range sp.Attributes {
			attr := Attribute{Name: a.Name}
			for _, t := range a.Terms {
				attr.Values = append(attr.Values, t.Name)
			}
			p.Attributes = append(p.Attributes, attr)
		}
		products = append(products, p)
	}
	return products, nil
}

func cleanTerms(terms []Term) []Term {
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		t.Name = sanitize.StripHTML(t.Name)
		if t.Name == "" && t.Slug == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
