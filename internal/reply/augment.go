package reply

import (
	"strings"

	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/intent"
	"sitechat_backend/internal/linker"
	"sitechat_backend/internal/ranking"
	"sitechat_backend/internal/textutil"
)

const (
	footerMarker     = "Källa:"
	relatedHeader    = "📰 Relaterad läsning:"
	productsHeader   = "🛒 Produkter som kan passa:"
	blogFallbackText = "💡 Vill du läsa fler artiklar och guider? Kolla gärna vår "
	pricingText      = "💰 Aktuella priser hittar du här: "

	// rankWindow is how many ranked candidates are considered before
	// dropping those already present in the reply.
	rankWindow = 10
)

// Input is everything Process needs for one reply.
type Input struct {
	Raw      string
	Message  string
	Intents  intent.Set
	Posts    []string
	Products []catalog.Product
}

// Result is the finished reply.
type Result struct {
	Reply         string
	ProductIntent bool
	ProductHits   []catalog.Product
}

// Process sanitizes raw model output, appends related reading, product
// suggestions and a pricing pointer as the intents ask for, and adds the
// source footer when the reply links to the tenant's own site.
func (p *Pipeline) Process(in Input) Result {
	text := p.Sanitize(in.Raw)
	query := textutil.Tokenize(in.Message)

	var res Result
	if in.Intents.Info {
		text = p.appendRelated(text, query, in.Posts)
	}
	if in.Intents.Product {
		text, res.ProductHits = p.appendProducts(text, query, in.Products)
		res.ProductIntent = len(res.ProductHits) > 0
	}
	if in.Intents.Price {
		text = p.appendPricing(text)
	}

	text = strings.TrimSpace(p.resolveOrphans(text))
	res.Reply = AddFooter(text, p.siteName(), p.hasInternalLink(text))
	return res
}

func (p *Pipeline) appendRelated(text string, query []string, posts []string) string {
	ranked := ranking.Rank(query, ranking.PostCandidates(posts), rankWindow)

	var lines []string
	for _, r := range ranked {
		if len(lines) == ranking.MaxRelatedPosts {
			break
		}
		if containsURL(text, r.Item) || !p.keepLink(r.Item) {
			continue
		}
		lines = append(lines, "- "+markdownLink(textutil.TitleFromSlug(r.Item), r.Item))
	}
	if len(lines) > 0 {
		return text + "\n\n" + relatedHeader + "\n" + strings.Join(lines, "\n")
	}

	// A related block from an earlier pass already answers the query.
	if strings.Contains(text, relatedHeader) {
		return text
	}
	blog, ok := p.tableURL("blogg")
	if !ok || !p.resolver.URLIsKnown(blog) || containsURL(text, blog) {
		return text
	}
	return text + "\n\n" + blogFallbackText + markdownLink("artikelsida", blog) + "."
}

// appendProducts lists the best matching linkable products. It returns the
// products offered; none means the product block was suppressed.
func (p *Pipeline) appendProducts(text string, query []string, products []catalog.Product) (string, []catalog.Product) {
	ranked := ranking.Rank(query, ranking.ProductCandidates(products), rankWindow)

	var hits []catalog.Product
	var lines []string
	for _, r := range ranked {
		if len(hits) == ranking.MaxProducts {
			break
		}
		prod := r.Item
		if !p.keepLink(prod.URL) {
			continue
		}
		hits = append(hits, prod)
		if containsURL(text, prod.URL) {
			continue
		}
		lines = append(lines, productLines(prod)...)
	}
	if len(lines) == 0 {
		return text, hits
	}
	return text + "\n\n" + productsHeader + "\n" + strings.Join(lines, "\n"), hits
}

func productLines(prod catalog.Product) []string {
	line := "- " + markdownLink(prod.Name, prod.URL)
	if price := prod.Price.DisplayPrice(); price != "" {
		line += " - " + price
	}
	out := []string{line}
	if meta := strings.Join(strings.Fields(dropBrackets(prod.Meta())), " "); meta != "" {
		out = append(out, "  "+meta)
	}
	return out
}

func (p *Pipeline) appendPricing(text string) string {
	pricing, ok := p.tableURL("priser")
	if !ok || !p.keepLink(pricing) || containsURL(text, pricing) {
		return text
	}
	entry, _ := p.resolver.Table().Lookup("priser")
	label := entry.DisplayLabel
	if label == "" {
		label = "Priser"
	}
	return text + "\n\n" + pricingText + markdownLink(label, pricing)
}

func (p *Pipeline) tableURL(key string) (string, bool) {
	entry, ok := p.resolver.Table().Lookup(key)
	if !ok || entry.URL == "" {
		return "", false
	}
	return entry.URL, true
}

func (p *Pipeline) hasInternalLink(text string) bool {
	for _, u := range linkedURLs(text) {
		if p.resolver.IsInternal(u) {
			return true
		}
	}
	return false
}

func (p *Pipeline) siteName() string {
	if name := strings.TrimSpace(p.opts.SiteName); name != "" {
		return name
	}
	return linker.HostOf(p.opts.BaseURL)
}

// AddFooter appends the source attribution once. A reply that already
// carries one is returned unchanged.
func AddFooter(reply, siteName string, hasInternalLink bool) string {
	if !hasInternalLink || siteName == "" || strings.Contains(reply, footerMarker) {
		return reply
	}
	return reply + "\n\n*" + footerMarker + " " + siteName + "*"
}
