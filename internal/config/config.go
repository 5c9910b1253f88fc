package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"NewsVerifier/internal/domain"
)

const (
	configPathEnv   = "NEWS_VERIFIER_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	httpAddrEnv     = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Runner     RunnerConfig     `yaml:"runner"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Sources    []SourceConfig   `yaml:"sources"`
	Rules      []RuleConfig     `yaml:"rules"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the relational store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig describes the operational API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines how often the periodic drivers fire.
type SchedulerConfig struct {
	CrawlIntervalMinutes   int `yaml:"crawlIntervalMinutes"`
	RecheckIntervalMinutes int `yaml:"recheckIntervalMinutes"`
}

// CrawlInterval returns the full-crawl period.
func (s SchedulerConfig) CrawlInterval() time.Duration {
	return time.Duration(s.CrawlIntervalMinutes) * time.Minute
}

// RecheckInterval returns the recheck sweep period.
func (s SchedulerConfig) RecheckInterval() time.Duration {
	return time.Duration(s.RecheckIntervalMinutes) * time.Minute
}

// FetcherConfig tunes feed retrieval and normalization.
type FetcherConfig struct {
	TimeoutSeconds int  `yaml:"timeoutSeconds"`
	FreshnessHours int  `yaml:"freshnessHours"`
	EnrichContent  bool `yaml:"enrichContent"`
}

// Timeout returns the per-feed request deadline.
func (f FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Freshness returns the window beyond which entries are discarded.
func (f FetcherConfig) Freshness() time.Duration {
	return time.Duration(f.FreshnessHours) * time.Hour
}

// ClusteringConfig tunes keyword extraction and cluster admission.
type ClusteringConfig struct {
	AdmissionThreshold float64 `yaml:"admissionThreshold"`
	ClusterThreshold   float64 `yaml:"clusterThreshold"`
	TopKeywords        int     `yaml:"topKeywords"`
}

// RunnerConfig tunes the background task runner.
type RunnerConfig struct {
	Workers        int `yaml:"workers"`
	PollMillis     int `yaml:"pollMillis"`
	DefaultRetries int `yaml:"defaultRetries"`
}

// PollInterval returns how often the runner looks for eligible tasks.
func (r RunnerConfig) PollInterval() time.Duration {
	return time.Duration(r.PollMillis) * time.Millisecond
}

// OpenAIConfig defines how to contact the synthesis service.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// DeliveryConfig lists listener URLs notified of task results.
type DeliveryConfig struct {
	Listeners []string `yaml:"listeners"`
}

// SourceConfig describes a single configured feed origin.
type SourceConfig struct {
	ID                     string `yaml:"id"`
	Name                   string `yaml:"name"`
	FeedURL                string `yaml:"feedUrl"`
	Country                string `yaml:"country"`
	Language               string `yaml:"language"`
	Credibility            int    `yaml:"credibility"`
	Leaning                string `yaml:"leaning"`
	Tier                   string `yaml:"tier"`
	CrossReferenceRequired bool   `yaml:"crossReferenceRequired"`
}

// Source converts the config entry into a domain entity.
func (s SourceConfig) Source() domain.NewsSource {
	return domain.NewsSource{
		ID:                     s.ID,
		Name:                   s.Name,
		FeedURL:                s.FeedURL,
		Country:                s.Country,
		Language:               s.Language,
		Credibility:            s.Credibility,
		Leaning:                s.Leaning,
		Tier:                   domain.SourceTier(s.Tier),
		CrossReferenceRequired: s.CrossReferenceRequired,
	}
}

// RuleConfig declares one cross-reference rule.
type RuleConfig struct {
	TriggerSource     string   `yaml:"triggerSource"`
	RequiredSources   []string `yaml:"requiredSources"`
	MinimumMatches    int      `yaml:"minimumMatches"`
	RecheckDelayHours int      `yaml:"recheckDelayHours"`
}

// Rule converts the config entry into a domain rule.
func (r RuleConfig) Rule() domain.CrossReferenceRule {
	return domain.CrossReferenceRule{
		TriggerSource:   r.TriggerSource,
		RequiredSources: r.RequiredSources,
		MinimumMatches:  r.MinimumMatches,
		RecheckDelay:    time.Duration(r.RecheckDelayHours) * time.Hour,
	}
}

// DomainSources converts all configured sources.
func (c Config) DomainSources() []domain.NewsSource {
	sources := make([]domain.NewsSource, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, s.Source())
	}
	return sources
}

// DomainRules converts all configured rules.
func (c Config) DomainRules() []domain.CrossReferenceRule {
	rules := make([]domain.CrossReferenceRule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, r.Rule())
	}
	return rules
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = defaultConfig().Rules
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.HTTP.Addr != "" {
		base.HTTP = override.HTTP
	}

	if override.Scheduler.CrawlIntervalMinutes > 0 {
		base.Scheduler.CrawlIntervalMinutes = override.Scheduler.CrawlIntervalMinutes
	}
	if override.Scheduler.RecheckIntervalMinutes > 0 {
		base.Scheduler.RecheckIntervalMinutes = override.Scheduler.RecheckIntervalMinutes
	}

	if override.Fetcher.TimeoutSeconds > 0 {
		base.Fetcher.TimeoutSeconds = override.Fetcher.TimeoutSeconds
	}
	if override.Fetcher.FreshnessHours > 0 {
		base.Fetcher.FreshnessHours = override.Fetcher.FreshnessHours
	}
	if override.Fetcher.EnrichContent {
		base.Fetcher.EnrichContent = true
	}

	if override.Clustering.AdmissionThreshold > 0 {
		base.Clustering.AdmissionThreshold = override.Clustering.AdmissionThreshold
	}
	if override.Clustering.ClusterThreshold > 0 {
		base.Clustering.ClusterThreshold = override.Clustering.ClusterThreshold
	}
	if override.Clustering.TopKeywords > 0 {
		base.Clustering.TopKeywords = override.Clustering.TopKeywords
	}

	if override.Runner.Workers > 0 {
		base.Runner.Workers = override.Runner.Workers
	}
	if override.Runner.PollMillis > 0 {
		base.Runner.PollMillis = override.Runner.PollMillis
	}
	if override.Runner.DefaultRetries > 0 {
		base.Runner.DefaultRetries = override.Runner.DefaultRetries
	}

	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}

	if len(override.Delivery.Listeners) > 0 {
		base.Delivery.Listeners = override.Delivery.Listeners
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Rules) > 0 {
		base.Rules = override.Rules
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{DSN: ""},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{CrawlIntervalMinutes: 60, RecheckIntervalMinutes: 15},
		Fetcher:   FetcherConfig{TimeoutSeconds: 20, FreshnessHours: 48},
		Clustering: ClusteringConfig{
			AdmissionThreshold: 0.30,
			ClusterThreshold:   0.80,
			TopKeywords:        10,
		},
		Runner: RunnerConfig{Workers: 3, PollMillis: 500, DefaultRetries: 3},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Sources: []SourceConfig{
			{
				ID: "nu-nl", Name: "NU.nl", FeedURL: "https://www.nu.nl/rss/Algemeen",
				Country: "nl", Language: "nl", Credibility: 70, Leaning: "center",
				Tier: "primary", CrossReferenceRequired: true,
			},
			{
				ID: "telegraaf", Name: "De Telegraaf", FeedURL: "https://www.telegraaf.nl/rss",
				Country: "nl", Language: "nl", Credibility: 75, Leaning: "center-right",
				Tier: "secondary",
			},
			{
				ID: "nos", Name: "NOS", FeedURL: "https://feeds.nos.nl/nosnieuwsalgemeen",
				Country: "nl", Language: "nl", Credibility: 85, Leaning: "center",
				Tier: "secondary",
			},
			{
				ID: "volkskrant", Name: "De Volkskrant", FeedURL: "https://www.volkskrant.nl/voorpagina/rss.xml",
				Country: "nl", Language: "nl", Credibility: 80, Leaning: "center-left",
				Tier: "secondary",
			},
		},
		Rules: []RuleConfig{
			{
				TriggerSource:     "NU.nl",
				RequiredSources:   []string{"De Telegraaf", "NOS", "De Volkskrant"},
				MinimumMatches:    2,
				RecheckDelayHours: 1,
			},
		},
	}
}
