package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"NewsVerifier/internal/config"
	"NewsVerifier/internal/domain"
	"NewsVerifier/internal/ports"
)

const systemPrompt = "You are a news editor. You receive several articles " +
	"covering the same event from independent outlets. Write one unified " +
	"story. Respond with JSON: {\"title\": string, \"body\": string, " +
	"\"confidence\": number between 0 and 1}."

// Synthesizer turns a corroborated cluster into a unified story via an
// OpenAI-compatible chat-completion API.
type Synthesizer struct {
	client *openai.Client
	model  string
	apiKey string
}

var _ ports.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer builds a client from configuration.
func NewSynthesizer(cfg config.OpenAIConfig) *Synthesizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Synthesizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

// Synthesize sends the cluster's matched articles and parses the story.
// Failures surface to the task runner for its standard retry/backoff.
func (s *Synthesizer) Synthesize(ctx context.Context, cluster *domain.StoryCluster, articles []domain.RawArticle) (domain.Synthesis, error) {
	if s.apiKey == "" || s.model == "" {
		return domain.Synthesis{}, fmt.Errorf("synthesizer misconfigured")
	}

	payload, err := buildPayload(cluster, articles)
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("build synthesis payload: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Synthesis{}, fmt.Errorf("no response choices")
	}

	return parseSynthesis(resp.Choices[0].Message.Content, cluster)
}

func buildPayload(cluster *domain.StoryCluster, articles []domain.RawArticle) ([]byte, error) {
	type item struct {
		Source    string `json:"source"`
		Title     string `json:"title"`
		Body      string `json:"body"`
		URL       string `json:"url"`
		Published string `json:"published"`
	}

	items := make([]item, 0, len(articles))
	for _, article := range articles {
		items = append(items, item{
			Source:    article.SourceName,
			Title:     article.Title,
			Body:      article.Text(),
			URL:       article.URL,
			Published: article.PublishedAt.Format("2006-01-02 15:04"),
		})
	}

	return json.Marshal(map[string]any{
		"topic":    cluster.Topic,
		"articles": items,
	})
}

// parseSynthesis decodes the model's JSON answer, tolerating code fences
// around it; anything else is a task failure worth retrying.
func parseSynthesis(content string, cluster *domain.StoryCluster) (domain.Synthesis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var synthesis domain.Synthesis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &synthesis); err != nil {
		return domain.Synthesis{}, fmt.Errorf("decode synthesis response: %w", err)
	}
	if synthesis.Title == "" {
		synthesis.Title = cluster.Topic
	}
	return synthesis, nil
}
