package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"prepdeck/internal/core"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Gemini    Gemini    `mapstructure:"gemini"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Selection Selection `mapstructure:"selection"`
	PYQ       PYQ       `mapstructure:"pyq"`
	Syllabus  Syllabus  `mapstructure:"syllabus"`
	Feeds     Feeds     `mapstructure:"feeds"`
}

// App holds general application configuration
type App struct {
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Gemini holds Google Gemini configuration
type Gemini struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// Pipeline holds enrichment pipeline configuration
type Pipeline struct {
	RelevanceThreshold int            `mapstructure:"relevance_threshold"`
	BatchSize          int            `mapstructure:"batch_size"`
	MustKnowSources    []SourceConfig `mapstructure:"must_know_sources"`
}

// SourceConfig is a (site, section) pair for the must-know allow-list
type SourceConfig struct {
	Site    string `mapstructure:"site"`
	Section string `mapstructure:"section"`
}

// Selection holds article-selection configuration
type Selection struct {
	Target         int            `mapstructure:"target"`
	DedupThreshold float64        `mapstructure:"dedup_threshold"`
	GSMinimums     map[string]int `mapstructure:"gs_minimums"`
}

// PYQ holds previous-year-question store configuration
type PYQ struct {
	DatabaseURL string `mapstructure:"database_url"`
}

// Syllabus holds taxonomy configuration
type Syllabus struct {
	Path string `mapstructure:"path"` // Empty means the embedded default syllabus
}

// Feeds holds RSS ingestion configuration
type Feeds struct {
	Sources []FeedSource `mapstructure:"sources"`
}

// FeedSource maps one RSS feed URL onto a (site, section) pair
type FeedSource struct {
	URL     string `mapstructure:"url"`
	Site    string `mapstructure:"site"`
	Section string `mapstructure:"section"`
}

// Load reads configuration from .env, environment variables, and an optional
// prepdeck.yaml in the working directory, applying defaults for everything
// not set.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file but surface parse errors
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigName("prepdeck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.prepdeck")

	setDefaults(v)

	v.SetEnvPrefix("PREPDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// API key from the conventional env var wins over config
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		v.Set("gemini.api_key", key)
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		v.Set("pyq.database_url", dsn)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", ".prepdeck")

	v.SetDefault("gemini.model", "gemini-flash-lite-latest")
	v.SetDefault("gemini.max_tokens", int32(2048))
	v.SetDefault("gemini.temperature", float32(0.2))

	v.SetDefault("pipeline.relevance_threshold", 40)
	v.SetDefault("pipeline.batch_size", 10)
	v.SetDefault("pipeline.must_know_sources", []map[string]string{
		{"site": "indianexpress", "section": "explained"},
		{"site": "indianexpress", "section": "editorials"},
		{"site": "hindu", "section": "editorial"},
		{"site": "hindu", "section": "opinion"},
	})

	v.SetDefault("selection.target", 30)
	v.SetDefault("selection.dedup_threshold", 0.40)
	v.SetDefault("selection.gs_minimums", map[string]int{
		"GS1": 5,
		"GS2": 5,
		"GS3": 5,
		"GS4": 1, // Ethics rarely appears in daily news
	})

	v.SetDefault("syllabus.path", "")
}

// MustKnowSet converts the configured allow-list into the lookup set the
// enrichment engine uses.
func (p Pipeline) MustKnowSet() map[core.Source]bool {
	set := make(map[core.Source]bool, len(p.MustKnowSources))
	for _, s := range p.MustKnowSources {
		set[core.Source{Site: s.Site, Section: s.Section}] = true
	}
	return set
}
