package modules

import (
	"context"

	"github.com/subsort/subsort/internal/scanner"
)

// ResponseTime reports the probe latency and a coarse category.
type ResponseTime struct{}

func (r *ResponseTime) Name() string { return "responsetime" }

func (r *ResponseTime) Fields() []string {
	return []string{"response_time_ms", "latency_category"}
}

func (r *ResponseTime) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	ms := resp.Duration.Milliseconds()
	return scanner.Partial{
		"response_time_ms": ms,
		"latency_category": latencyCategory(ms),
	}, nil
}

func latencyCategory(ms int64) string {
	switch {
	case ms < 100:
		return "excellent"
	case ms < 300:
		return "good"
	case ms < 1000:
		return "fair"
	case ms < 3000:
		return "slow"
	default:
		return "very_slow"
	}
}
