package cluster

import (
	"reflect"
	"testing"
)

func TestExtractKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	text := "De brand in het centrum van Amsterdam werd snel geblust, zei de brandweer over de brand."

	got := ExtractKeywords(text, 10)

	for _, kw := range got {
		if _, stopped := stopwords[kw]; stopped {
			t.Fatalf("stopword %q survived extraction: %v", kw, got)
		}
		if len([]rune(kw)) < minTokenLength {
			t.Fatalf("short token %q survived extraction: %v", kw, got)
		}
	}
	if got[0] != "brand" {
		t.Fatalf("expected most frequent token first, got %v", got)
	}
}

func TestExtractKeywordsRanksByFrequencyThenAlphabetically(t *testing.T) {
	text := "storm storm storm flood flood earthquake avalanche"

	got := ExtractKeywords(text, 4)
	want := []string{"storm", "flood", "avalanche", "earthquake"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractKeywordsBoundsK(t *testing.T) {
	text := "storm flood earthquake"

	if got := ExtractKeywords(text, 2); len(got) != 2 {
		t.Fatalf("expected 2 keywords, got %v", got)
	}
	if got := ExtractKeywords(text, 10); len(got) != 3 {
		t.Fatalf("expected all 3 keywords, got %v", got)
	}
	if got := ExtractKeywords("", 5); len(got) != 0 {
		t.Fatalf("expected no keywords for empty text, got %v", got)
	}
}

func TestJaccard(t *testing.T) {
	a := []string{"storm", "flood", "damage"}
	b := []string{"storm", "flood", "repair"}

	got := Jaccard(a, b)
	if got != 0.5 {
		t.Fatalf("got %v, want 0.5", got)
	}
	if Jaccard(a, b) != Jaccard(b, a) {
		t.Fatalf("similarity is not symmetric")
	}
	if Jaccard(a, a) != 1 {
		t.Fatalf("identical sets must score 1")
	}
	if Jaccard(a, []string{"unrelated"}) != 0 {
		t.Fatalf("disjoint sets must score 0")
	}
	if Jaccard(nil, a) != 0 || Jaccard(a, nil) != 0 {
		t.Fatalf("empty sets must score 0")
	}
}

func TestJaccardIgnoresDuplicates(t *testing.T) {
	a := []string{"storm", "storm", "flood"}
	b := []string{"storm", "flood", "flood"}

	if got := Jaccard(a, b); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}
