package modules

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"

	"github.com/subsort/subsort/internal/scanner"
)

// maxCnameDepth bounds CNAME chain resolution against loops.
const maxCnameDepth = 10

// takeoverServices maps CNAME target suffixes to hosting services known to
// allow dangling-record claims. A chain ending in NXDOMAIN at one of these
// is a takeover candidate.
var takeoverServices = map[string]string{
	"amazonaws.com":     "AWS S3/ELB",
	"cloudfront.net":    "AWS CloudFront",
	"azurewebsites.net": "Azure Websites",
	"herokuapp.com":     "Heroku",
	"github.io":         "GitHub Pages",
	"netlify.com":       "Netlify",
	"netlify.app":       "Netlify",
	"vercel.app":        "Vercel",
	"surge.sh":          "Surge.sh",
	"bitbucket.io":      "Bitbucket",
	"fastly.net":        "Fastly CDN",
	"unbounce.com":      "Unbounce",
	"zendesk.com":       "Zendesk",
}

// CnameRecord is one hop of a resolved CNAME chain.
type CnameRecord struct {
	Domain   string `json:"domain"`
	Target   string `json:"target"`
	NXDomain bool   `json:"nxdomain,omitempty"`
}

// Cname resolves the host's CNAME chain and flags takeover candidates.
// Unlike most modules it performs its own network round-trips (DNS), under
// the caller's context like any other module execution time.
type Cname struct {
	client *dns.Client
	server string
}

// NewCname creates the module using the system default resolver address.
func NewCname() *Cname {
	server := "8.8.8.8:53"
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
		server = conf.Servers[0] + ":" + conf.Port
	}
	return &Cname{
		client: &dns.Client{Timeout: 5 * time.Second},
		server: server,
	}
}

func (c *Cname) Name() string { return "cname" }

func (c *Cname) Fields() []string {
	return []string{"cname_records", "cname_target", "takeover_service", "takeover_possible", "takeover_risk"}
}

func (c *Cname) Analyze(ctx context.Context, resp *scanner.Response) (scanner.Partial, error) {
	// DNS wants the bare name, not host:port.
	host := resp.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	chain, nxdomain, err := c.resolveChain(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolving CNAME chain: %w", err)
	}

	partial := scanner.Partial{
		"cname_records":     chain,
		"cname_target":      "",
		"takeover_service":  "",
		"takeover_possible": false,
		"takeover_risk":     "low",
	}
	if len(chain) == 0 {
		return partial, nil
	}

	last := chain[len(chain)-1]
	partial["cname_target"] = last.Target

	if service := matchTakeoverService(last.Target); service != "" {
		partial["takeover_service"] = service
		if nxdomain {
			partial["takeover_possible"] = true
			partial["takeover_risk"] = "high"
		} else {
			partial["takeover_risk"] = "medium"
		}
	}
	return partial, nil
}

// resolveChain follows CNAME records up to maxCnameDepth hops. The second
// return reports whether the final target failed to resolve (NXDOMAIN).
func (c *Cname) resolveChain(ctx context.Context, host string) ([]CnameRecord, bool, error) {
	var chain []CnameRecord
	current := dns.Fqdn(host)

	for depth := 0; depth < maxCnameDepth; depth++ {
		if ctx.Err() != nil {
			return chain, false, ctx.Err()
		}

		msg := new(dns.Msg)
		msg.SetQuestion(current, dns.TypeCNAME)
		reply, _, err := c.client.ExchangeContext(ctx, msg, c.server)
		if err != nil {
			return chain, false, err
		}

		if reply.Rcode == dns.RcodeNameError {
			if len(chain) > 0 {
				chain[len(chain)-1].NXDomain = true
				return chain, true, nil
			}
			return chain, false, nil
		}

		var target string
		for _, rr := range reply.Answer {
			if cname, ok := rr.(*dns.CNAME); ok {
				target = cname.Target
				break
			}
		}
		if target == "" {
			return chain, false, nil
		}

		chain = append(chain, CnameRecord{
			Domain: strings.TrimSuffix(current, "."),
			Target: strings.TrimSuffix(target, "."),
		})
		current = target
	}
	return chain, false, nil
}

// matchTakeoverService compares the target's registered domain against the
// known-vulnerable service table.
func matchTakeoverService(target string) string {
	if target == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(target)
	if err != nil {
		domain = target
	}
	if service, ok := takeoverServices[domain]; ok {
		return service
	}
	// Suffix match catches service domains that are themselves public
	// suffixes (github.io, vercel.app).
	for suffix, service := range takeoverServices {
		if target == suffix || strings.HasSuffix(target, "."+suffix) {
			return service
		}
	}
	return ""
}
