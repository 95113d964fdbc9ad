package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/subsort/subsort/internal/config"
)

type fetcherFunc func(ctx context.Context, rawURL string) (*Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return f(ctx, rawURL)
}

type stubModule struct {
	name    string
	fields  []string
	analyze func(resp *Response) (Partial, error)
}

func (m *stubModule) Name() string     { return m.name }
func (m *stubModule) Fields() []string { return m.fields }
func (m *stubModule) Analyze(ctx context.Context, resp *Response) (Partial, error) {
	if m.analyze == nil {
		return Partial{}, nil
	}
	return m.analyze(resp)
}

func testOpts(concurrency int) *config.Options {
	return &config.Options{
		Concurrency: concurrency,
		Timeout:     time.Second,
	}
}

// fastRetry keeps retry tests from sleeping for real.
var fastRetry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

func okResponse(rawURL string) *Response {
	return &Response{
		StatusCode: 200,
		FinalURL:   rawURL,
		Scheme:     strings.SplitN(rawURL, ":", 2)[0],
	}
}

func makeHosts(n int) []Host {
	hosts := make([]Host, n)
	for i := range hosts {
		name := fmt.Sprintf("h%d.example.com", i)
		hosts[i] = Host{Input: name, Name: name, Scheme: "https"}
	}
	return hosts
}

func TestRunPreservesInputOrder(t *testing.T) {
	hosts := makeHosts(20)

	// Later hosts answer faster, so completion order inverts input order.
	var n atomic.Int64
	s := &Scheduler{
		Opts: testOpts(8),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			d := time.Duration(20-n.Add(1)) * time.Millisecond
			time.Sleep(d)
			return okResponse(rawURL), nil
		}),
	}

	result, err := s.Run(context.Background(), hosts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Records) != len(hosts) {
		t.Fatalf("expected %d records, got %d", len(hosts), len(result.Records))
	}
	for i, rec := range result.Records {
		if rec.Host != hosts[i].Input {
			t.Errorf("record %d: got host %q, want %q", i, rec.Host, hosts[i].Input)
		}
	}
	if result.Completed != result.Total {
		t.Errorf("Completed = %d, want %d", result.Completed, result.Total)
	}
	if result.Cancelled {
		t.Error("expected Cancelled = false")
	}
}

func TestRunConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inflight, peak atomic.Int64

	s := &Scheduler{
		Opts: testOpts(limit),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			cur := inflight.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inflight.Add(-1)
			return okResponse(rawURL), nil
		}),
	}

	if _, err := s.Run(context.Background(), makeHosts(30)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := peak.Load(); p > limit {
		t.Errorf("observed %d concurrent fetches, limit is %d", p, limit)
	}
}

func TestRunRetriesTransientThenGivesUp(t *testing.T) {
	var calls atomic.Int64
	s := &Scheduler{
		Opts:  testOpts(1),
		Retry: fastRetry,
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			calls.Add(1)
			return nil, &TransportError{Kind: KindTimeout, Err: errors.New("deadline exceeded")}
		}),
	}

	result, err := s.Run(context.Background(), makeHosts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := result.Records[0]
	if want := int64(fastRetry.MaxRetries + 1); calls.Load() != want {
		t.Errorf("fetch called %d times, want %d", calls.Load(), want)
	}
	if rec.Attempts != fastRetry.MaxRetries+1 {
		t.Errorf("Attempts = %d, want %d", rec.Attempts, fastRetry.MaxRetries+1)
	}
	if rec.Accessible {
		t.Error("expected Accessible = false")
	}
	if rec.ErrorKind != KindTimeout {
		t.Errorf("ErrorKind = %q, want %q", rec.ErrorKind, KindTimeout)
	}
	if !rec.Failed() {
		t.Error("expected Failed() = true")
	}
}

func TestRunTransientRecovers(t *testing.T) {
	var calls atomic.Int64
	s := &Scheduler{
		Opts:  testOpts(1),
		Retry: fastRetry,
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			if calls.Add(1) == 1 {
				return nil, &TransportError{Kind: KindConnectionRefused, Err: errors.New("connection refused")}
			}
			return okResponse(rawURL), nil
		}),
	}

	result, err := s.Run(context.Background(), makeHosts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := result.Records[0]
	if rec.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", rec.Attempts)
	}
	if !rec.Accessible {
		t.Error("expected Accessible = true after recovery")
	}
	if rec.Failed() {
		t.Errorf("unexpected error: %s", rec.Error)
	}
}

func TestRunNoRetryOnHTTPStatus(t *testing.T) {
	var calls atomic.Int64
	s := &Scheduler{
		Opts:  testOpts(1),
		Retry: fastRetry,
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			calls.Add(1)
			r := okResponse(rawURL)
			r.StatusCode = 404
			return r, nil
		}),
	}

	result, err := s.Run(context.Background(), makeHosts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := result.Records[0]
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times for a 404, want 1", calls.Load())
	}
	if rec.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", rec.Attempts)
	}
	if rec.Accessible {
		t.Error("404 should not be accessible")
	}
	if rec.Failed() {
		t.Error("a 404 is a completed probe, not a failure")
	}
}

func TestRunNoRetryOnPermanentError(t *testing.T) {
	var calls atomic.Int64
	s := &Scheduler{
		Opts:  testOpts(1),
		Retry: fastRetry,
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			calls.Add(1)
			return nil, &TransportError{Kind: KindTLS, Err: errors.New("certificate expired")}
		}),
	}

	result, err := s.Run(context.Background(), makeHosts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times for a TLS error, want 1", calls.Load())
	}
	if result.Records[0].ErrorKind != KindTLS {
		t.Errorf("ErrorKind = %q, want %q", result.Records[0].ErrorKind, KindTLS)
	}
}

func TestRunSchemeFallback(t *testing.T) {
	var urls []string
	var mu sync.Mutex

	s := &Scheduler{
		Opts: testOpts(1),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			mu.Lock()
			urls = append(urls, rawURL)
			mu.Unlock()
			if strings.HasPrefix(rawURL, "https://") {
				return nil, &TransportError{Kind: KindConnectionRefused, Err: errors.New("connection refused")}
			}
			return okResponse(rawURL), nil
		}),
	}

	hosts := []Host{{Input: "plain.example.com", Name: "plain.example.com"}}
	result, err := s.Run(context.Background(), hosts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://plain.example.com" || urls[1] != "http://plain.example.com" {
		t.Fatalf("probe order = %v, want https then http", urls)
	}
	rec := result.Records[0]
	if !rec.Accessible {
		t.Error("expected fallback probe to succeed")
	}
	if rec.Attempts != 1 {
		t.Errorf("scheme fallback counts as one attempt, got %d", rec.Attempts)
	}
}

func TestRunExplicitSchemeNoFallback(t *testing.T) {
	var calls atomic.Int64
	s := &Scheduler{
		Opts: testOpts(1),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			calls.Add(1)
			return nil, &TransportError{Kind: KindTLS, Err: errors.New("bad cert")}
		}),
	}

	hosts := []Host{{Input: "https://a.example.com", Name: "a.example.com", Scheme: "https"}}
	if _, err := s.Run(context.Background(), hosts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("explicit scheme probed %d times, want 1", calls.Load())
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		Opts: testOpts(2),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			time.Sleep(20 * time.Millisecond)
			return okResponse(rawURL), nil
		}),
	}

	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	result, err := s.Run(ctx, makeHosts(50))
	if err != nil {
		t.Fatalf("cancelled run should not error, got %v", err)
	}
	if !result.Cancelled {
		t.Error("expected Cancelled = true")
	}
	if result.Completed >= result.Total {
		t.Errorf("Completed = %d, want < %d", result.Completed, result.Total)
	}
	if result.Completed != len(result.Records) {
		t.Errorf("Completed = %d but %d records", result.Completed, len(result.Records))
	}
	for _, rec := range result.Records {
		if rec.Failed() {
			t.Errorf("cancelled run leaked partial record for %s: %s", rec.Host, rec.Error)
		}
	}
}

func TestRunSkip(t *testing.T) {
	hosts := makeHosts(10)
	skipped := map[string]bool{hosts[1].Name: true, hosts[4].Name: true}

	s := &Scheduler{
		Opts: testOpts(4),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			return okResponse(rawURL), nil
		}),
		Skip: func(host string) bool { return skipped[host] },
	}

	result, err := s.Run(context.Background(), hosts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Completed != len(hosts)-len(skipped) {
		t.Errorf("Completed = %d, want %d", result.Completed, len(hosts)-len(skipped))
	}
	for _, rec := range result.Records {
		if skipped[rec.Host] {
			t.Errorf("skipped host %s has a record", rec.Host)
		}
	}
}

func TestRunModuleFieldsAndErrors(t *testing.T) {
	good := &stubModule{
		name:   "good",
		fields: []string{"alpha", "beta"},
		analyze: func(resp *Response) (Partial, error) {
			return Partial{"alpha": 1, "beta": "two"}, nil
		},
	}
	bad := &stubModule{
		name:   "bad",
		fields: []string{"gamma"},
		analyze: func(resp *Response) (Partial, error) {
			return nil, errors.New("boom")
		},
	}

	s := &Scheduler{
		Opts:    testOpts(1),
		Modules: []Module{good, bad},
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			return okResponse(rawURL), nil
		}),
	}

	result, err := s.Run(context.Background(), makeHosts(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := result.Records[0]
	if rec.Fields["alpha"] != 1 || rec.Fields["beta"] != "two" {
		t.Errorf("module fields missing: %v", rec.Fields)
	}
	if rec.Fields["bad_error"] != "boom" {
		t.Errorf("expected bad_error field, got %v", rec.Fields)
	}
	if rec.Failed() {
		t.Error("a module failure must not fail the host")
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(result.FieldNames) != len(want) {
		t.Fatalf("FieldNames = %v, want %v", result.FieldNames, want)
	}
	for i, n := range want {
		if result.FieldNames[i] != n {
			t.Errorf("FieldNames[%d] = %q, want %q", i, result.FieldNames[i], n)
		}
	}
}

func TestRunFieldCollisionAborts(t *testing.T) {
	var calls atomic.Int64
	a := &stubModule{name: "a", fields: []string{"shared"}}
	b := &stubModule{name: "b", fields: []string{"shared"}}

	s := &Scheduler{
		Opts:    testOpts(1),
		Modules: []Module{a, b},
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			calls.Add(1)
			return okResponse(rawURL), nil
		}),
	}

	if _, err := s.Run(context.Background(), makeHosts(3)); err == nil {
		t.Fatal("expected a field collision error")
	}
	if calls.Load() != 0 {
		t.Errorf("collision must abort before any fetch, saw %d", calls.Load())
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	s := &Scheduler{
		Opts: testOpts(0),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			return okResponse(rawURL), nil
		}),
	}
	if _, err := s.Run(context.Background(), makeHosts(1)); err == nil {
		t.Fatal("expected an error for concurrency 0")
	}
}

func TestRunProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var events []int

	s := &Scheduler{
		Opts: testOpts(1),
		Transport: fetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
			return okResponse(rawURL), nil
		}),
		Progress: func(completed, total int) {
			mu.Lock()
			events = append(events, completed)
			mu.Unlock()
		},
	}

	if _, err := s.Run(context.Background(), makeHosts(5)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d progress events, want 5", len(events))
	}
	for i, c := range events {
		if c != i+1 {
			t.Errorf("event %d reported %d completed, want %d", i, c, i+1)
		}
	}
}
