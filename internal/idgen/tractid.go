// Package idgen generates human-readable tract IDs for spawned child
// tracts (spec.md §3's spawn pointer, §1's session multiplexing), the
// way steveyegge-beads generates semantic issue IDs from a title: slug
// the caller's display name/purpose, strip stop words, and break
// collisions with a numeric suffix.
package idgen

import (
	"regexp"
	"strings"
	"unicode"
)

// StopWords are common words stripped from a tract's display name/purpose
// when slugging it into an ID. They don't add meaning to the ID.
var StopWords = map[string]bool{
	// Articles
	"a": true, "an": true, "the": true,
	// Prepositions
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true, "as": true,
	// Conjunctions
	"and": true, "or": true, "but": true, "nor": true,
	// Common verbs that don't add meaning
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true,
	// Other common words
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true,
}

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)
var multipleHyphenRegex = regexp.MustCompile(`-+`)

// TractIDGenerator generates tract_id values from a spawn's purpose or
// display name.
type TractIDGenerator struct {
	maxSlugLength int
}

// NewTractIDGenerator creates a generator with default settings.
func NewTractIDGenerator() *TractIDGenerator {
	return &TractIDGenerator{maxSlugLength: 46}
}

// GenerateSlug converts a display name/purpose into a slug: lowercase,
// hyphen-separated, stop words removed.
func (g *TractIDGenerator) GenerateSlug(name string) string {
	if name == "" {
		return "untitled"
	}

	slug := strings.ToLower(name)
	slug = nonAlphanumericRegex.ReplaceAllString(slug, " ")
	words := strings.Fields(slug)

	filtered := make([]string, 0, len(words))
	for _, word := range words {
		if !StopWords[word] {
			filtered = append(filtered, word)
		}
	}
	if len(filtered) == 0 && len(words) > 0 {
		filtered = []string{words[0]}
	}

	slug = strings.Join(filtered, "-")

	if len(slug) > 0 && !unicode.IsLetter(rune(slug[0])) {
		slug = "t" + slug
	}

	if len(slug) > g.maxSlugLength {
		truncated := slug[:g.maxSlugLength]
		if lastHyphen := strings.LastIndex(truncated, "-"); lastHyphen > g.maxSlugLength/2 {
			truncated = truncated[:lastHyphen]
		}
		slug = truncated
	}

	if len(slug) < 3 {
		slug = slug + strings.Repeat("x", 3-len(slug))
	}

	slug = strings.Trim(slug, "-")
	slug = multipleHyphenRegex.ReplaceAllString(slug, "-")

	return slug
}

// GenerateTractID builds a child tract_id from its spawn purpose or
// display name, breaking collisions against exists with a numeric
// suffix (spec.md §3's spawn pointer: child_tract_id must be unique
// within the shared DB file).
func (g *TractIDGenerator) GenerateTractID(purposeOrName string, exists func(id string) bool) string {
	baseID := g.GenerateSlug(purposeOrName)

	id := baseID
	suffix := 2
	for exists(id) {
		id = baseID + "-" + itoa(suffix)
		suffix++
		if suffix > 99 {
			break
		}
	}
	return id
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
