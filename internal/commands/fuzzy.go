package commands

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/renato0307/conduit/internal/domain"
)

// MatchThreshold is the worst combined score still reported as a match.
// Scores run from 0 (exact) to 1 (no resemblance).
const MatchThreshold = 0.4

const (
	nameWeight        = 2.0
	descriptionWeight = 1.0
	// exactScore stands in for 0 so a perfect key still weighs in the product
	exactScore = 0.001
)

// Score rates how well query matches cmd. The name counts twice as much as
// the description; a key that does not match at all is left out.
func Score(query string, cmd domain.SlashCommand) (float64, bool) {
	q := normalize(query)
	if q == "" {
		return 0, true
	}

	total := 1.0
	matched := false
	weights := nameWeight + descriptionWeight

	keys := []struct {
		text   string
		weight float64
	}{
		{normalize(cmd.Name), nameWeight},
		{strings.ToLower(cmd.Description), descriptionWeight},
	}
	for _, k := range keys {
		s, ok := keyScore(q, k.text)
		if !ok {
			continue
		}
		matched = true
		if s == 0 {
			s = exactScore
		}
		total *= math.Pow(s, k.weight/weights)
	}

	if !matched || total > MatchThreshold {
		return 1, false
	}
	return total, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/"))
}

// keyScore rates q against one key. Prefix beats substring beats
// subsequence beats a near miss by edit distance.
func keyScore(q, key string) (float64, bool) {
	if key == "" {
		return 1, false
	}
	if q == key {
		return 0, true
	}

	qr, kr := []rune(q), []rune(key)
	ql, kl := float64(len(qr)), float64(len(kr))

	if strings.HasPrefix(key, q) {
		return 0.05 + 0.1*(1-ql/kl), true
	}
	if i := strings.Index(key, q); i >= 0 {
		return 0.2 + 0.1*float64(utf8.RuneCountInString(key[:i]))/kl, true
	}

	if matches := fuzzy.Find(q, []string{key}); len(matches) > 0 {
		idx := matches[0].MatchedIndexes
		first := utf8.RuneCountInString(key[:idx[0]])
		last := utf8.RuneCountInString(key[:idx[len(idx)-1]])
		gaps := float64(last-first+1) - ql
		return 0.2 + 0.2*gaps/kl, true
	}

	// Near miss: compare with the key's prefix of the same length
	prefix := kr
	if len(prefix) > len(qr) {
		prefix = prefix[:len(qr)]
	}
	d := float64(levenshtein(q, string(prefix))) / ql
	if d > 0.5 {
		return 1, false
	}
	return 0.3 + 0.7*d, true
}

// levenshtein returns the edit distance between a and b in runes
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
