package modules

import (
	"context"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

// securityHeaders is the subset extracted into the record, in output order.
var securityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Referrer-Policy",
	"Permissions-Policy",
}

// serverTypes maps Server header substrings to a coarse classification.
var serverTypes = []struct {
	marker string
	name   string
}{
	{"nginx", "nginx"},
	{"apache", "apache"},
	{"microsoft-iis", "iis"},
	{"cloudflare", "cloudflare"},
	{"litespeed", "litespeed"},
	{"caddy", "caddy"},
	{"openresty", "openresty"},
	{"gunicorn", "gunicorn"},
	{"jetty", "jetty"},
	{"awselb", "aws-elb"},
}

// cdnMarkers identifies CDN/WAF fronting from response headers.
var cdnMarkers = []struct {
	header string
	tag    string
}{
	{"CF-Ray", "cloudflare"},
	{"X-Amz-Cf-Id", "cloudfront"},
	{"X-Served-By", "fastly"},
	{"X-Sucuri-ID", "sucuri"},
	{"X-Iinfo", "incapsula"},
	{"X-Akamai-Transformed", "akamai"},
}

// Server extracts the Server header, security headers, and a CDN/WAF tag.
type Server struct{}

func (s *Server) Name() string { return "server" }

func (s *Server) Fields() []string {
	return []string{"server", "server_type", "security_headers", "security_score", "cdn"}
}

func (s *Server) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	server := resp.Header("Server")

	found := make(map[string]string)
	for _, name := range securityHeaders {
		if v := resp.Header(name); v != "" {
			found[name] = v
		}
	}

	return scanner.Partial{
		"server":           server,
		"server_type":      classifyServer(server),
		"security_headers": found,
		"security_score":   len(found) * 100 / len(securityHeaders),
		"cdn":              detectCDN(resp),
	}, nil
}

func classifyServer(server string) string {
	low := strings.ToLower(server)
	for _, st := range serverTypes {
		if strings.Contains(low, st.marker) {
			return st.name
		}
	}
	if server == "" {
		return "undisclosed"
	}
	return "other"
}

func detectCDN(resp *scanner.Response) string {
	for _, m := range cdnMarkers {
		if resp.Header(m.header) != "" {
			return m.tag
		}
	}
	if strings.Contains(strings.ToLower(resp.Header("Server")), "cloudflare") {
		return "cloudflare"
	}
	return ""
}
