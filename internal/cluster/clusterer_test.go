package cluster

import (
	"strings"
	"testing"

	"NewsVerifier/internal/domain"
)

func article(id, title, content string) domain.RawArticle {
	return domain.RawArticle{ID: id, Title: title, Content: content}
}

func TestPartitionGroupsSimilarArticles(t *testing.T) {
	c := NewClusterer(0, 0, 0, nil)

	batch := []domain.RawArticle{
		article("a1", "Grote brand verwoest winkelcentrum Rotterdam",
			"brand winkelcentrum rotterdam brandweer evacuatie schade"),
		article("a2", "Brandweer blust brand winkelcentrum Rotterdam",
			"brand winkelcentrum rotterdam brandweer schade"),
		article("a3", "Kabinet presenteert nieuwe begroting",
			"kabinet begroting miljoenennota belasting koopkracht"),
	}

	clusters := c.Partition(batch)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	first := clusters[0]
	if len(first.ArticleIDs) != 2 || first.ArticleIDs[0] != "a1" || first.ArticleIDs[1] != "a2" {
		t.Fatalf("unexpected members in first cluster: %v", first.ArticleIDs)
	}
	if first.TriggerArticleID != "a1" {
		t.Fatalf("seed article must be the trigger, got %q", first.TriggerArticleID)
	}
	if first.Status != domain.StatusDetecting {
		t.Fatalf("new clusters must start detecting, got %q", first.Status)
	}
	if len(clusters[1].ArticleIDs) != 1 || clusters[1].ArticleIDs[0] != "a3" {
		t.Fatalf("unexpected members in second cluster: %v", clusters[1].ArticleIDs)
	}
}

func TestPartitionIsDeterministicByInputOrder(t *testing.T) {
	c := NewClusterer(0, 0, 0, nil)

	batch := []domain.RawArticle{
		article("a1", "storm causes flooding along coast", "storm flooding coast damage wind"),
		article("a2", "coastal storm flooding damages homes", "storm flooding coast damage homes"),
		article("a3", "storm flooding hits coastal towns", "storm flooding coast towns damage"),
	}

	first := c.Partition(batch)
	second := c.Partition(batch)
	if len(first) != len(second) {
		t.Fatalf("cluster count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if strings.Join(first[i].ArticleIDs, ",") != strings.Join(second[i].ArticleIDs, ",") {
			t.Fatalf("membership differs across runs: %v vs %v", first[i].ArticleIDs, second[i].ArticleIDs)
		}
	}
}

func TestPartitionSingletons(t *testing.T) {
	c := NewClusterer(0, 0, 0, nil)

	batch := []domain.RawArticle{
		article("a1", "voetbalclub wint beker", "voetbalclub beker finale supporters"),
		article("a2", "museum opent tentoonstelling", "museum tentoonstelling schilderijen opening"),
	}

	clusters := c.Partition(batch)
	if len(clusters) != 2 {
		t.Fatalf("dissimilar articles must form singleton clusters, got %d clusters", len(clusters))
	}
	for _, sc := range clusters {
		if len(sc.ArticleIDs) != 1 {
			t.Fatalf("expected singleton, got %v", sc.ArticleIDs)
		}
		if sc.ID == "" {
			t.Fatalf("cluster must get an id")
		}
		if sc.SimilarityThreshold != DefaultClusterThreshold {
			t.Fatalf("cluster threshold metadata not set: %v", sc.SimilarityThreshold)
		}
	}
}

func TestTopicLabel(t *testing.T) {
	if got := topicLabel([]string{"storm", "flooding", "coast", "damage"}, "ignored"); got != "storm flooding coast" {
		t.Fatalf("got %q", got)
	}
	if got := topicLabel([]string{"storm"}, "ignored"); got != "storm" {
		t.Fatalf("got %q", got)
	}

	long := strings.Repeat("x", 80)
	if got := topicLabel(nil, long); len([]rune(got)) != topicTitleLimit {
		t.Fatalf("fallback title not truncated: %d runes", len([]rune(got)))
	}
	if got := topicLabel(nil, "  short title  "); got != "short title" {
		t.Fatalf("got %q", got)
	}
}

func TestKeywordsUsesTitleAndBody(t *testing.T) {
	c := NewClusterer(0, 0, 2, nil)

	a := domain.RawArticle{Title: "hittegolf hittegolf", Content: "temperatuur temperatuur temperatuur"}
	got := c.Keywords(a)
	if len(got) != 2 || got[0] != "temperatuur" || got[1] != "hittegolf" {
		t.Fatalf("got %v", got)
	}
}
