package modules

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/subsort/subsort/internal/scanner"
)

func TestFaviconHashing(t *testing.T) {
	icon := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 100)
	f := &Favicon{Fetcher: stubFetcher{
		"https://app.example.com/favicon.ico": {StatusCode: 200, Body: icon},
	}}

	p, err := f.Analyze(context.Background(), stubResponse(200, nil, ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	hash := p["favicon_hash"].(string)
	if hash == "" {
		t.Fatal("favicon_hash empty")
	}
	if _, err := strconv.ParseInt(hash, 10, 32); err != nil {
		t.Errorf("favicon_hash %q is not an int32", hash)
	}
	if p["favicon_url"] != "https://app.example.com/favicon.ico" {
		t.Errorf("favicon_url = %v", p["favicon_url"])
	}

	// Deterministic: same bytes hash identically.
	if mmh3Hash(icon) != mmh3Hash(append([]byte(nil), icon...)) {
		t.Error("hash not deterministic")
	}
	// Sensitive: different bytes hash differently.
	other := append(append([]byte(nil), icon...), 0xFF)
	if mmh3Hash(icon) == mmh3Hash(other) {
		t.Error("distinct icons collided")
	}
}

func TestFaviconKeepsPort(t *testing.T) {
	icon := []byte{0x00, 0x00, 0x01, 0x00}
	f := &Favicon{Fetcher: stubFetcher{
		"https://app.example.com:8443/favicon.ico": {StatusCode: 200, Body: icon},
	}}
	resp := stubResponse(200, nil, "")
	resp.Host = "app.example.com:8443"

	p, err := f.Analyze(context.Background(), resp)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p["favicon_url"] != "https://app.example.com:8443/favicon.ico" {
		t.Errorf("favicon_url = %v, port dropped", p["favicon_url"])
	}
	if p["favicon_hash"] == "" {
		t.Error("favicon not fetched on the target's port")
	}
}

func TestFaviconMissing(t *testing.T) {
	f := &Favicon{Fetcher: stubFetcher{}}
	p, err := f.Analyze(context.Background(), stubResponse(200, nil, ""))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p["favicon_hash"] != "" || p["favicon_url"] != "" || p["favicon_match"] != "" {
		t.Errorf("missing favicon produced %v", p)
	}
}

func TestFaviconErrorTolerated(t *testing.T) {
	f := &Favicon{Fetcher: failingFetcher{}}
	p, err := f.Analyze(context.Background(), stubResponse(200, nil, ""))
	if err != nil {
		t.Fatalf("a fetch failure must not error the module: %v", err)
	}
	if p["favicon_hash"] != "" {
		t.Errorf("favicon_hash = %v", p["favicon_hash"])
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, rawURL string) (*scanner.Response, error) {
	return nil, &scanner.TransportError{Kind: scanner.KindTimeout, Err: context.DeadlineExceeded}
}
