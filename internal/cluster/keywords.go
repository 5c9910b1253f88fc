package cluster

import (
	"sort"
	"strings"
	"unicode"
)

// minTokenLength drops short tokens before frequency counting.
const minTokenLength = 4

// tokenize lowercases the text and splits on anything that is not a
// letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// wordCounts tallies token frequencies after stop-word and short-token
// removal.
func wordCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, token := range tokenize(text) {
		if len([]rune(token)) < minTokenLength {
			continue
		}
		if _, stopped := stopwords[token]; stopped {
			continue
		}
		counts[token]++
	}
	return counts
}

// ExtractKeywords returns the top-k tokens of the text by frequency.
// Ties break alphabetically, so the result is deterministic for a given
// input. No stemming is applied: morphological variants count as
// distinct words, a known precision limitation.
func ExtractKeywords(text string, k int) []string {
	return topKeywords(wordCounts(text), k)
}

func topKeywords(counts map[string]int, k int) []string {
	type wordCount struct {
		word  string
		count int
	}

	ranked := make([]wordCount, 0, len(counts))
	for word, count := range counts {
		ranked = append(ranked, wordCount{word: word, count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	if k < 0 {
		k = 0
	}

	keywords := make([]string, k)
	for i := 0; i < k; i++ {
		keywords[i] = ranked[i].word
	}
	return keywords
}

// Jaccard computes set similarity of two keyword lists: intersection
// size over union size. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
