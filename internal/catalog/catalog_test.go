package catalog

import (
	"slices"
	"testing"
)

const storeFixture = `[
  {
    "id": 41,
    "name": "SEO-paket Bas",
    "slug": "seo-paket-bas",
    "permalink": "https://example.se/produkt/seo-paket-bas/",
    "short_description": "<p>Teknisk <strong>SEO</strong> för mindre sajter.</p>",
    "is_in_stock": true,
    "prices": {"price": "149500", "currency_code": "SEK", "currency_minor_unit": 2, "currency_prefix": "", "currency_suffix": " kr"},
    "categories": [{"id": 3, "name": "Sökmotoroptimering", "slug": "sokmotoroptimering"}],
    "tags": [{"id": 9, "name": "WordPress", "slug": "wordpress"}],
    "attributes": [{"name": "Omfattning", "terms": [{"name": "Lokal"}]}]
  },
  {"id": 42, "name": "", "slug": "trasig"},
  {"id": 43, "name": "Hosting", "slug": "hosting", "permalink": "https://example.se/produkt/hosting/", "prices": {"price": "", "currency_code": "SEK"}}
]`

func TestParseStoreProducts(t *testing.T) {
	products, err := ParseStoreProducts([]byte(storeFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected nameless product skipped, got %d", len(products))
	}

	p := products[0]
	if p.ID != "41" || p.URL != "https://example.se/produkt/seo-paket-bas/" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.ShortDescription != "Teknisk SEO för mindre sajter." {
		t.Fatalf("expected stripped description, got %q", p.ShortDescription)
	}
	if got := p.Price.DisplayPrice(); got != "1 495 kr" {
		t.Fatalf("DisplayPrice = %q", got)
	}
	if got := p.Price.Decimal(); got != "1495.00" {
		t.Fatalf("Decimal = %q", got)
	}
	if products[1].Price.HasAmount || products[1].Price.DisplayPrice() != "" {
		t.Fatalf("expected missing price, got %+v", products[1].Price)
	}
}

func TestParseStoreProductsRejectsGarbage(t *testing.T) {
	if _, err := ParseStoreProducts([]byte(`{"code":"rest_no_route"}`)); err == nil {
		t.Fatal("expected error for non-list payload")
	}
}

func TestProductTokens(t *testing.T) {
	products, err := ParseStoreProducts([]byte(storeFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tokens := products[0].Tokens()
	for _, want := range []string{"seo", "paket", "bas", "sokmotoroptimering", "wordpress", "omfattning", "lokal", "teknisk"} {
		if !slices.Contains(tokens, want) {
			t.Errorf("expected token %q in %v", want, tokens)
		}
	}
}

func TestDisplayPrice(t *testing.T) {
	cases := []struct {
		price Price
		want  string
	}{
		{Price{Amount: 19900, MinorUnit: 2, Currency: "SEK", HasAmount: true}, "199 kr"},
		{Price{Amount: 19950, MinorUnit: 2, Currency: "SEK", HasAmount: true}, "199,50 kr"},
		{Price{Amount: 1234567, MinorUnit: 0, Currency: "EUR", HasAmount: true}, "1 234 567 EUR"},
		{Price{Amount: 500, MinorUnit: 2, Prefix: "$", HasAmount: true}, "$5"},
		{Price{}, ""},
	}
	for _, tc := range cases {
		if got := tc.price.DisplayPrice(); got != tc.want {
			t.Errorf("DisplayPrice(%+v) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestMetaFallsBackToCategories(t *testing.T) {
	p := Product{Categories: []Term{{Name: "Hosting"}, {Name: "Drift"}}}
	if got := p.Meta(); got != "Hosting, Drift" {
		t.Fatalf("Meta = %q", got)
	}
}
