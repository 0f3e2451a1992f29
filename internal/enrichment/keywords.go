package enrichment

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

var keywordStoplist = map[string]struct{}{
	"company": {}, "companies": {}, "team": {}, "teams": {}, "product": {},
	"products": {}, "platform": {}, "solution": {}, "solutions": {},
	"customer": {}, "customers": {}, "way": {}, "year": {}, "years": {},
	"today": {}, "world": {}, "home": {}, "cookie": {}, "cookies": {},
}

// extractKeywords tags text and returns up to limit frequent nouns, most
// frequent first. Ties keep first-appearance order.
func extractKeywords(text string, limit int) []string {
	if limit <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil
	}

	type candidate struct {
		word  string
		count int
	}
	seen := make(map[string]*candidate)
	var order []*candidate

	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") {
			continue
		}
		word := strings.ToLower(strings.Trim(tok.Text, ".,;:!?\"'()[]"))
		if utf8.RuneCountInString(word) < 3 {
			continue
		}
		if _, stop := keywordStoplist[word]; stop {
			continue
		}
		if c, ok := seen[word]; ok {
			c.count++
			continue
		}
		c := &candidate{word: word, count: 1}
		seen[word] = c
		order = append(order, c)
	}

	slices.SortStableFunc(order, func(a, b *candidate) int {
		return cmp.Compare(b.count, a.count)
	})

	out := make([]string, 0, min(limit, len(order)))
	for _, c := range order[:min(limit, len(order))] {
		out = append(out, c.word)
	}
	return out
}

// topUpKeywords appends extracted keywords not already present until have
// reaches want.
func topUpKeywords(have []string, want int, text string) []string {
	if len(have) >= want {
		return have
	}

	present := make(map[string]struct{}, len(have))
	for _, k := range have {
		present[strings.ToLower(k)] = struct{}{}
	}

	for _, k := range extractKeywords(text, want*3) {
		if len(have) >= want {
			break
		}
		if _, ok := present[k]; ok {
			continue
		}
		present[k] = struct{}{}
		have = append(have, k)
	}
	return have
}
