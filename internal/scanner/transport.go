package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/subsort/subsort/internal/config"
)

// maxBodySize caps how much of a response body is retained for analysis.
const maxBodySize = 1 << 20 // 1 MiB

// userAgentPool is rotated per request when no fixed user agent is set.
// Rotation is an anti-detection knob, not a security feature.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:89.0) Gecko/20100101 Firefox/89.0",
}

// Transport wraps an HTTP client for reconnaissance probes. One Transport
// is shared by all tasks of a scan; its connection pool lives exactly as
// long as the scan.
type Transport struct {
	client    *http.Client
	userAgent string // empty = rotate from pool
	headers   map[string]string
	timeout   time.Duration
}

// NewTransport creates a Transport from the provided options.
func NewTransport(opts *config.Options) (*Transport, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.IgnoreSSL},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxIdleConns:        opts.Concurrency,
		MaxIdleConnsPerHost: 4,
		TLSHandshakeTimeout: opts.Timeout,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	if opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errRedirectCap
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Transport{
		client:    client,
		userAgent: opts.UserAgent,
		headers:   opts.Headers,
		timeout:   opts.Timeout,
	}, nil
}

// Fetch issues a GET for the given URL and returns the parsed response.
// The configured timeout bounds connect plus full body read. Failures are
// returned as *TransportError.
func (t *Transport) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, Classify(err)
	}

	ua := t.userAgent
	if ua == "" {
		ua = userAgentPool[rand.Intn(len(userAgentPool))]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, Classify(fmt.Errorf("reading response body for %s: %w", rawURL, err))
	}
	truncated := false
	if len(body) > maxBodySize {
		body = body[:maxBodySize]
		truncated = true
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	scheme := ""
	if u, perr := url.Parse(finalURL); perr == nil {
		scheme = u.Scheme
	}

	return &Response{
		Host:          req.URL.Host,
		Scheme:        scheme,
		StatusCode:    resp.StatusCode,
		Headers:       resp.Header,
		Body:          body,
		Truncated:     truncated,
		ContentLength: int64(len(body)),
		Duration:      time.Since(start),
		FinalURL:      finalURL,
	}, nil
}

// Close tears down the idle connection pool after a scan completes.
func (t *Transport) Close() {
	if tr, ok := t.client.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
}
