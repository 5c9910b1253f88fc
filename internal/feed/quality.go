package feed

import (
	"math"
	"unicode/utf8"

	"NewsVerifier/internal/domain"
)

// qualityScore produces a best-effort initial score in [0,1] from
// structural signals. Advisory only: the verifier uses it to pick the
// best candidate per source, nothing gates on it.
func qualityScore(article domain.RawArticle, credibility int) float64 {
	if credibility < 0 {
		credibility = 0
	}
	if credibility > 100 {
		credibility = 100
	}

	score := float64(credibility) / 100 * 0.4

	titleLen := utf8.RuneCountInString(article.Title)
	if titleLen >= 20 && titleLen <= 120 {
		score += 0.2
	}

	if article.Author != "" {
		score += 0.1
	}

	switch contentLen := utf8.RuneCountInString(article.Text()); {
	case contentLen >= 1500:
		score += 0.3
	case contentLen >= 500:
		score += 0.2
	case contentLen >= 150:
		score += 0.1
	}

	return math.Round(score*100) / 100
}
