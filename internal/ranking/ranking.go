// Package ranking scores cached site content against a visitor's message by
// token overlap.
package ranking

import (
	"regexp"
	"slices"
	"strings"

	"sitechat_backend/internal/catalog"
	"sitechat_backend/internal/textutil"
)

// Result caps used by the chat pipeline.
const (
	MaxRelatedPosts = 2
	MaxProducts     = 3
)

// Candidate is an item with the token bag it is scored against. Higher
// Priority wins ties on score.
type Candidate[T any] struct {
	Item     T
	Tokens   []string
	Priority int
}

// Ranked is a scored candidate.
type Ranked[T any] struct {
	Item  T
	Score int
}

// Rank scores every candidate by the number of distinct query tokens present
// in its bag, drops zero scores and returns at most limit results ordered by
// score, then priority, then input order. It never fails; empty input yields
// an empty result.
func Rank[T any](query []string, candidates []Candidate[T], limit int) []Ranked[T] {
	if len(query) == 0 || len(candidates) == 0 || limit <= 0 {
		return nil
	}

	q := make(map[string]struct{}, len(query))
	for _, tok := range query {
		q[tok] = struct{}{}
	}

	type scored struct {
		idx   int
		score int
	}
	hits := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		seen := make(map[string]struct{}, len(c.Tokens))
		score := 0
		for _, tok := range c.Tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := q[tok]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return candidates[b.idx].Priority - candidates[a.idx].Priority
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Ranked[T], len(hits))
	for i, h := range hits {
		out[i] = Ranked[T]{Item: candidates[h.idx].Item, Score: h.score}
	}
	return out
}

var (
	blogSegment = regexp.MustCompile(`(?i)/(blog|blogg|nyheter|artiklar|artikel|news|articles|insikter)/`)
	datedPath   = regexp.MustCompile(`/\d{4}/\d{2}/`)
)

// IsBlogPost reports whether a URL looks like a blog post rather than a
// plain page.
func IsBlogPost(rawURL string) bool {
	return blogSegment.MatchString(rawURL) || datedPath.MatchString(rawURL)
}

// PostCandidates builds candidates from post URLs, scored on the tokens of
// their slug. Blog-shaped URLs get priority.
func PostCandidates(urls []string) []Candidate[string] {
	out := make([]Candidate[string], 0, len(urls))
	for _, u := range urls {
		slug, ok := textutil.LastSegment(u)
		if !ok {
			continue
		}
		c := Candidate[string]{Item: u, Tokens: textutil.Tokenize(slug)}
		if IsBlogPost(u) {
			c.Priority = 1
		}
		out = append(out, c)
	}
	return out
}

// ProductCandidates builds candidates from catalog products. Products without
// a URL cannot be linked and are left out.
func ProductCandidates(products []catalog.Product) []Candidate[catalog.Product] {
	out := make([]Candidate[catalog.Product], 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		out = append(out, Candidate[catalog.Product]{Item: p, Tokens: p.Tokens()})
	}
	return out
}

// Items strips scores.
func Items[T any](ranked []Ranked[T]) []T {
	out := make([]T, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}
