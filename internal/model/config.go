package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Config holds the complete dhatu configuration
type Config struct {
	Lexicon      string             `yaml:"lexicon" mapstructure:"lexicon"` // Built-in lexicon name or path to a lexicon file
	Coverage     CoverageConfig     `yaml:"coverage" mapstructure:"coverage"`
	Relations    RelationConfig     `yaml:"relations" mapstructure:"relations"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
}

// CoverageConfig controls coverage scoring and gap detection
type CoverageConfig struct {
	CharWeight        float64 `yaml:"char_weight" mapstructure:"char_weight"`
	WordWeight        float64 `yaml:"word_weight" mapstructure:"word_weight"`
	MinGapTokenLength int     `yaml:"min_gap_token_length" mapstructure:"min_gap_token_length"`
}

// RelationConfig controls the geometric relation classifier
type RelationConfig struct {
	InclusionThreshold   float64 `yaml:"inclusion_threshold" mapstructure:"inclusion_threshold"`
	ExclusionThreshold   float64 `yaml:"exclusion_threshold" mapstructure:"exclusion_threshold"`
	EqualityThreshold    float64 `yaml:"equality_threshold" mapstructure:"equality_threshold"`
	MagnitudeSlack       float64 `yaml:"magnitude_slack" mapstructure:"magnitude_slack"`             // |a| <= |b| * slack for a to be included in b
	IntersectionStrength float64 `yaml:"intersection_strength" mapstructure:"intersection_strength"` // Strength reported for partial overlaps
}

// HTTPConfig controls fetching of URL inputs
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-domain request rates for URL inputs
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
	MaxMatches    int    `yaml:"max_matches" mapstructure:"max_matches"` // Matches listed in Markdown reports (0 = all)
	Format        string `yaml:"format" mapstructure:"format"`           // summary, json or yaml
}

// LLMConfig controls optional gap labelling by a language model.
// Labels are advisory and never change coverage or signals.
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, ollama, or empty to disable
	Model     string        `yaml:"model" mapstructure:"model"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey    string        `yaml:"-" mapstructure:"api_key"` // Read from DHATU_LLM_API_KEY or OPENAI_API_KEY, never written out
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxGaps   int           `yaml:"max_gaps" mapstructure:"max_gaps"` // Gap words sent per report
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Lexicon: "dhatu9",
		Coverage: CoverageConfig{
			CharWeight:        0.7,
			WordWeight:        0.3,
			MinGapTokenLength: 4,
		},
		Relations: RelationConfig{
			InclusionThreshold:   0.3,
			ExclusionThreshold:   0.7,
			EqualityThreshold:    0.1,
			MagnitudeSlack:       1.1,
			IntersectionStrength: 0.5,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "dhatu/0.1 (+https://github.com/ppiankov/dhatu)",
			MaxBodyBytes:  2_000_000,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".dhatu-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			MaxMatches:    50,
			Format:        "summary",
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30 * time.Second,
			MaxTokens: 500,
			MaxGaps:   40,
		},
	}
}

// Validate checks the analysis-related settings.
// Weights must keep semantic coverage inside [0,1].
func (c *Config) Validate() error {
	cov := c.Coverage
	if !finite(cov.CharWeight) || !finite(cov.WordWeight) {
		return &ConfigError{Source: "coverage", Field: "weights", Err: errors.New("weights must be finite numbers")}
	}
	if cov.CharWeight < 0 || cov.WordWeight < 0 {
		return &ConfigError{Source: "coverage", Field: "weights", Err: errors.New("weights must be non-negative")}
	}
	if cov.CharWeight+cov.WordWeight > 1+1e-9 {
		return &ConfigError{Source: "coverage", Field: "weights",
			Err: fmt.Errorf("char_weight + word_weight = %.3f exceeds 1", cov.CharWeight+cov.WordWeight)}
	}
	if cov.MinGapTokenLength < 1 {
		return &ConfigError{Source: "coverage", Field: "min_gap_token_length", Err: errors.New("must be at least 1")}
	}

	rel := c.Relations
	thresholds := []struct {
		name  string
		value float64
	}{
		{"inclusion_threshold", rel.InclusionThreshold},
		{"exclusion_threshold", rel.ExclusionThreshold},
		{"equality_threshold", rel.EqualityThreshold},
	}
	for _, th := range thresholds {
		if !finite(th.value) || th.value < 0 || th.value > 2 {
			return &ConfigError{Source: "relations", Field: th.name, Err: fmt.Errorf("%.3f outside cosine distance range [0,2]", th.value)}
		}
	}
	if !finite(rel.MagnitudeSlack) || rel.MagnitudeSlack <= 0 {
		return &ConfigError{Source: "relations", Field: "magnitude_slack", Err: errors.New("must be a positive finite number")}
	}
	if !finite(rel.IntersectionStrength) || rel.IntersectionStrength < 0 || rel.IntersectionStrength > 1 {
		return &ConfigError{Source: "relations", Field: "intersection_strength",
			Err: fmt.Errorf("%.3f outside [0,1]", rel.IntersectionStrength)}
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
