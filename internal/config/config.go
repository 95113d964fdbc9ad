package config

import (
	"fmt"
	"time"
)

// MaxConcurrency caps the worker count so a typo like -c 5000
// does not exhaust file descriptors.
const MaxConcurrency = 200

// Options holds all configuration for a subsort scan.
type Options struct {
	// Input
	InputFile string // empty = read hosts from stdin
	Modules   []string

	// Performance
	Concurrency      int
	Timeout          time.Duration
	Retries          int
	Delay            time.Duration
	AdaptiveThrottle bool

	// HTTP
	UserAgent       string
	Proxy           string
	FollowRedirects bool
	IgnoreSSL       bool
	Headers         map[string]string

	// Output
	OutputFile   string
	OutputFormat string // "text", "json", "csv"
	Quiet        bool
	NoColor      bool

	// Resume
	ResumeFile string
}

// Validate checks option ranges before a scan starts.
func (o *Options) Validate() error {
	if o.Concurrency < 1 || o.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", MaxConcurrency, o.Concurrency)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	if o.Retries < 0 {
		return fmt.Errorf("retries cannot be negative, got %d", o.Retries)
	}
	if o.Delay < 0 {
		return fmt.Errorf("delay cannot be negative, got %s", o.Delay)
	}
	switch o.OutputFormat {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("format must be one of: text, json, csv")
	}
	return nil
}
