package textproc

import (
	"sort"
	"strings"
)

// BiasedTerms is the lexicon of exclusionary job-ad vocabulary.
var BiasedTerms = []string{"ninja", "rockstar", "guru", "aggressive", "whiz", "bombastic", "alpha", "dominant"}

// SoftSkills are the keywords counted towards persona fit.
var SoftSkills = []string{"team", "collaborative", "leader", "innovative", "adaptable", "communicative", "proactive"}

// DetectBias returns the lexicon terms that occur as whole words in text, in sorted order.
func DetectBias(text string, lexicon []string) []string {
	words := make(map[string]struct{})
	for _, w := range Words(strings.ToLower(text)) {
		words[w] = struct{}{}
	}

	terms := append([]string(nil), lexicon...)
	sort.Strings(terms)

	flagged := make([]string, 0)
	for _, term := range terms {
		if _, ok := words[strings.ToLower(term)]; ok {
			flagged = append(flagged, term)
		}
	}
	return flagged
}

// CountKeywords sums the non-overlapping, case-insensitive substring occurrences of keywords.
func CountKeywords(text string, keywords []string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if keyword == "" {
			continue
		}
		total += strings.Count(lower, keyword)
	}
	return total
}
