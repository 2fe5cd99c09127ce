package commission

import "strings"

var stopWords = map[string]struct{}{
	"a":         {},
	"an":        {},
	"the":       {},
	"of":        {},
	"and":       {},
	"life":      {},
	"insurance": {},
	"final":     {},
	"expense":   {},
	"-":         {},
}

const tokenPunctuation = ".,()&/"

// TokenSet is the set of significant lowercase words in a carrier or product
// label.
type TokenSet map[string]struct{}

func Tokens(text string) TokenSet {
	set := make(TokenSet)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, tokenPunctuation)
		if word == "" {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}

func (s TokenSet) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Overlap is the number of shared words divided by the size of the smaller
// set. Either set being empty yields 0.
func Overlap(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for word := range small {
		if large.Has(word) {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
