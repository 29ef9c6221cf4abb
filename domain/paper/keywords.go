package paper

import (
	"sort"
	"strings"
)

// MaxKeywords caps how many keywords are derived from an abstract.
const MaxKeywords = 10

// stopwords are common English function words plus filler terms that
// dominate abstract prose without describing the work.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "up": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"we": {}, "our": {}, "use": {}, "using": {}, "based": {}, "approach": {},
	"method": {}, "paper": {}, "propose": {}, "proposed": {}, "show": {},
}

// ExtractKeywords derives up to max lowercase keywords from an abstract,
// ranked by descending frequency. Ties keep the order in which the tokens
// first appear in the text, so the result is deterministic. Empty or
// all-stopword input yields an empty list.
func ExtractKeywords(abstract string, max int) []string {
	if abstract == "" || max <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string // distinct tokens in first-occurrence order

	for _, tok := range tokenize(strings.ToLower(abstract)) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	if len(order) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}

// tokenize splits text into maximal runs of ASCII letters; every other
// character is a separator.
func tokenize(text string) []string {
	var tokens []string
	start := -1
	for i, r := range text {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if alpha {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}
