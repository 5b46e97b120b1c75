package search

import (
	"strings"
	"unicode"
)

// stopWords are dropped from free-text queries.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "i": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "looking": {}, "me": {}, "my": {}, "near": {}, "of": {},
	"on": {}, "or": {}, "some": {}, "something": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "want": {}, "with": {}, "would": {}, "like": {},
	"tattoo": {}, "tattoos": {},
}

// ParseQuery splits free text into lowercase tokens on anything that is not a
// letter or digit, drops stop words and single characters, and deduplicates
// while preserving first-seen order.
func ParseQuery(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// mergeKeywords combines explicit keywords with query tokens, lowercased and
// deduplicated, explicit keywords first.
func mergeKeywords(explicit, tokens []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(tokens))
	out := make([]string, 0, len(explicit)+len(tokens))
	for _, list := range [][]string{explicit, tokens} {
		for _, k := range list {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
