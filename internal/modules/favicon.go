package modules

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/subsort/subsort/internal/scanner"
)

// faviconTech maps Shodan-convention mmh3 hashes to known technologies.
var faviconTech = map[int32]string{
	-1588080585: "Apache HTTP Server",
	1404073852:  "nginx",
	708578229:   "Microsoft IIS",
	-235893395:  "WordPress",
	81586312:    "Jenkins",
	-1025300011: "Kibana",
	394490493:   "Grafana",
	-1347968860: "pfSense",
}

// Favicon fetches /favicon.ico and computes the Shodan-style mmh3 hash of
// its base64 encoding for technology fingerprinting. Requires an extra
// round-trip through the shared transport.
type Favicon struct {
	Fetcher scanner.Fetcher
}

func (f *Favicon) Name() string { return "favicon" }

func (f *Favicon) Fields() []string {
	return []string{"favicon_hash", "favicon_url", "favicon_match"}
}

func (f *Favicon) Analyze(ctx context.Context, resp *scanner.Response) (scanner.Partial, error) {
	partial := scanner.Partial{
		"favicon_hash":  "",
		"favicon_url":   "",
		"favicon_match": "",
	}

	url := resp.Scheme + "://" + resp.Host + "/favicon.ico"
	fav, err := f.Fetcher.Fetch(ctx, url)
	if err != nil || fav.StatusCode != 200 || len(fav.Body) == 0 {
		return partial, nil
	}

	hash := mmh3Hash(fav.Body)
	partial["favicon_hash"] = fmt.Sprintf("%d", hash)
	partial["favicon_url"] = url
	if tech, ok := faviconTech[hash]; ok {
		partial["favicon_match"] = tech
	}
	return partial, nil
}

// mmh3Hash follows the Shodan convention: murmur3 over the standard base64
// encoding of the body, wrapped at 76 columns with a trailing newline.
func mmh3Hash(data []byte) int32 {
	encoded := base64.StdEncoding.EncodeToString(data)
	var wrapped []byte
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		wrapped = append(wrapped, encoded[i:end]...)
		wrapped = append(wrapped, '\n')
	}
	return int32(murmur3.Sum32(wrapped))
}
