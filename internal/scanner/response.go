package scanner

import (
	"net/http"
	"time"
)

// Host is a single normalized scan target. Scheme is empty when the input
// did not carry one; the task then probes https first and falls back to http.
type Host struct {
	Input  string // original line as supplied by the caller
	Name   string // normalized hostname
	Scheme string // "http", "https", or "" (inferred)
}

// URL returns the probe URL for the given scheme.
func (h Host) URL(scheme string) string {
	return scheme + "://" + h.Name
}

// Response holds the parsed HTTP response data shared by all modules.
// It is owned by the task that fetched it and never mutated afterwards.
type Response struct {
	Host          string // host[:port] that was probed
	Scheme        string // scheme of the URL that answered
	StatusCode    int
	Headers       http.Header
	Body          []byte
	Truncated     bool // body hit the read cap
	ContentLength int64
	Duration      time.Duration
	FinalURL      string // post-redirect URL
}

// Header returns a header value with case-insensitive lookup.
func (r *Response) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}
