// Package config defines process configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Output formats for the run report.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address for serve mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BaseURL is the Hacker News API root.
	BaseURL string `koanf:"base_url"`

	// TopN is how many top stories to process; TopK how many commenters to
	// report per story.
	TopN int `koanf:"top_n"`
	TopK int `koanf:"top_k"`

	// WorkerCount bounds top-level stories processed at once.
	WorkerCount int `koanf:"worker_count"`

	// FetchConcurrency bounds in-flight item fetches per story walk.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	RetryCount       int `koanf:"retry_count"`

	// RateLimitRPS caps outbound requests per second; 0 disables the limit.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// RunTimeoutMS bounds a whole run; 0 means no deadline.
	RunTimeoutMS int `koanf:"run_timeout_ms"`

	// FixturePath, when set, reads items from a YAML fixture instead of the API.
	FixturePath string `koanf:"fixture_path"`

	// Output selects the report format: "text" or "json".
	Output string `koanf:"output"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		BaseURL:          "https://hacker-news.firebaseio.com/v0",
		TopN:             30,
		TopK:             10,
		WorkerCount:      runtime.NumCPU(),
		FetchConcurrency: runtime.NumCPU() * 4,
		RequestTimeoutMS: 10_000,
		RetryCount:       2,
		RateLimitRPS:     0,
		RateLimitBurst:   1,
		RunTimeoutMS:     0,
		Output:           OutputText,
	}
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RunTimeout returns the whole-run deadline, zero when unset.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.TopN <= 0:
		return fmt.Errorf("%w: top_n must be positive, got %d", ErrInvalidConfig, c.TopN)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.FetchConcurrency <= 0:
		return fmt.Errorf("%w: fetch_concurrency must be positive, got %d", ErrInvalidConfig, c.FetchConcurrency)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive, got %d", ErrInvalidConfig, c.RequestTimeoutMS)
	case c.RetryCount < 0:
		return fmt.Errorf("%w: retry_count must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.RunTimeoutMS < 0:
		return fmt.Errorf("%w: run_timeout_ms must not be negative", ErrInvalidConfig)
	case c.Output != OutputText && c.Output != OutputJSON:
		return fmt.Errorf("%w: output must be %q or %q, got %q", ErrInvalidConfig, OutputText, OutputJSON, c.Output)
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FixturePath == "" && c.BaseURL == "":
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	}
	return nil
}
