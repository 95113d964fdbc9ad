package modules

import (
	"context"

	"github.com/subsort/subsort/internal/scanner"
)

// Status reports the HTTP status code and basic connectivity signals.
type Status struct{}

func (s *Status) Name() string { return "status" }

func (s *Status) Fields() []string {
	return []string{
		"status_code",
		"status_category",
		"accessible",
		"scheme",
		"ssl_enabled",
		"final_url",
		"response_size",
	}
}

func (s *Status) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	return scanner.Partial{
		"status_code":     resp.StatusCode,
		"status_category": categorize(resp.StatusCode),
		"accessible":      resp.StatusCode < 400,
		"scheme":          resp.Scheme,
		"ssl_enabled":     resp.Scheme == "https",
		"final_url":       resp.FinalURL,
		"response_size":   len(resp.Body),
	}, nil
}

func categorize(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code >= 300 && code < 400:
		return "redirect"
	case code >= 400 && code < 500:
		return "client-error"
	case code >= 500 && code < 600:
		return "server-error"
	default:
		return "unknown"
	}
}
