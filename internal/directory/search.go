package directory

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vc-scout/backend/internal/storage/models"
)

var stopwords = map[string]struct{}{
	"related":   {},
	"companies": {},
	"startup":   {},
	"firm":      {},
}

// searchTokens lowercases text, splits it on anything that is not a letter or
// digit and drops short tokens and stopwords.
func searchTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func semanticText(c *models.Company) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Industry)
	b.WriteByte(' ')
	b.WriteString(c.Description)
	for _, tag := range c.Tags {
		b.WriteByte(' ')
		b.WriteString(tag)
	}
	return strings.ToLower(b.String())
}

// matcher is built once per query so tokenisation is not repeated per company.
type matcher func(c *models.Company) bool

// Literal mode matches the text exactly as typed, surrounding spaces
// included; only the empty string matches everything.
func newMatcher(search string, mode SearchMode) matcher {
	if search == "" {
		return func(*models.Company) bool { return true }
	}

	if mode == SearchSemantic {
		tokens := searchTokens(search)
		if len(tokens) == 0 {
			return func(*models.Company) bool { return true }
		}
		return func(c *models.Company) bool {
			text := semanticText(c)
			for _, tok := range tokens {
				if strings.Contains(text, tok) {
					return true
				}
			}
			return false
		}
	}

	needle := strings.ToLower(search)
	return func(c *models.Company) bool {
		return strings.Contains(strings.ToLower(c.Name), needle)
	}
}
