package modules

import (
	"context"
	"strconv"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

// interestingKeywords flag robots.txt paths worth a second look.
var interestingKeywords = []string{
	"admin", "login", "api", "private", "internal", "backup",
	"config", "secret", "debug", "staging", "test", "upload",
}

// Robots fetches and parses robots.txt for disallowed paths, crawl policy,
// and sitemap locations. Requires an extra round-trip.
type Robots struct {
	Fetcher scanner.Fetcher
}

func (r *Robots) Name() string { return "robots" }

func (r *Robots) Fields() []string {
	return []string{
		"robots_accessible",
		"disallowed_paths",
		"allowed_paths",
		"crawl_delay",
		"sitemaps",
		"interesting_paths",
	}
}

func (r *Robots) Analyze(ctx context.Context, resp *scanner.Response) (scanner.Partial, error) {
	partial := scanner.Partial{
		"robots_accessible": false,
		"disallowed_paths":  []string{},
		"allowed_paths":     []string{},
		"crawl_delay":       0,
		"sitemaps":          []string{},
		"interesting_paths": []string{},
	}

	url := resp.Scheme + "://" + resp.Host + "/robots.txt"
	robots, err := r.Fetcher.Fetch(ctx, url)
	if err != nil || robots.StatusCode != 200 || len(robots.Body) == 0 {
		return partial, nil
	}

	partial["robots_accessible"] = true
	parseRobots(string(robots.Body), partial)
	return partial, nil
}

func parseRobots(content string, partial scanner.Partial) {
	var disallowed, allowed, sitemaps, interesting []string

	add := func(list *[]string, value string) {
		if value == "" {
			return
		}
		for _, existing := range *list {
			if existing == value {
				return
			}
		}
		*list = append(*list, value)
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "disallow":
			add(&disallowed, value)
			if isInteresting(value) {
				add(&interesting, value)
			}
		case "allow":
			add(&allowed, value)
		case "crawl-delay":
			if d, err := strconv.Atoi(value); err == nil {
				partial["crawl_delay"] = d
			}
		case "sitemap":
			// The value itself contains "://", re-join what Cut split.
			add(&sitemaps, strings.TrimSpace(strings.TrimPrefix(line[len(key)+1:], " ")))
		}
	}

	partial["disallowed_paths"] = disallowed
	partial["allowed_paths"] = allowed
	partial["sitemaps"] = sitemaps
	partial["interesting_paths"] = interesting
}

func isInteresting(path string) bool {
	low := strings.ToLower(path)
	for _, kw := range interestingKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}
