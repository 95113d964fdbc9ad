package modules

import (
	"context"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

// techSignature is one detectable technology: any marker hit counts.
type techSignature struct {
	name     string
	category string
	markers  []string
}

var techSignatures = []techSignature{
	// Web servers
	{"apache", "web_server", []string{"Apache"}},
	{"nginx", "web_server", []string{"nginx"}},
	{"iis", "web_server", []string{"Microsoft-IIS"}},
	{"tomcat", "web_server", []string{"Apache-Coyote", "Tomcat"}},

	// Languages / frameworks
	{"php", "language", []string{"PHP", "X-Powered-By: PHP"}},
	{"nodejs", "language", []string{"Express", "X-Powered-By: Express"}},
	{"aspnet", "language", []string{"X-AspNet-Version", "ASP.NET"}},
	{"django", "framework", []string{"csrftoken", "Django"}},
	{"rails", "framework", []string{"_rails_session", "X-Runtime"}},
	{"laravel", "framework", []string{"laravel_session", "Laravel"}},
	{"spring", "framework", []string{"X-Application-Context", "JSESSIONID"}},

	// CMS
	{"wordpress", "cms", []string{"wp-content", "wp-includes"}},
	{"drupal", "cms", []string{"X-Drupal", "Drupal"}},
	{"joomla", "cms", []string{"/components/com_", "Joomla"}},
	{"magento", "cms", []string{"X-Magento", "Magento"}},
	{"shopify", "cms", []string{"myshopify.com", "X-Shopify"}},

	// CDN / cloud
	{"cloudflare", "cdn", []string{"cloudflare", "CF-RAY"}},
	{"cloudfront", "cdn", []string{"X-Amz-Cf-Id", "CloudFront"}},
	{"fastly", "cdn", []string{"X-Served-By: cache", "Fastly"}},

	// Frontend
	{"react", "frontend", []string{"data-reactroot", "__REACT_DEVTOOLS"}},
	{"angular", "frontend", []string{"ng-version"}},
	{"vue", "frontend", []string{"__VUE__", "vue.js"}},
	{"jquery", "frontend", []string{"jquery"}},
	{"bootstrap", "frontend", []string{"bootstrap"}},
}

// Techstack detects technologies from header and body signature matches
// and categorizes the first hit per category.
type Techstack struct{}

func (t *Techstack) Name() string { return "techstack" }

func (t *Techstack) Fields() []string {
	return []string{"technologies", "web_server", "language", "framework", "cms", "cdn_provider", "frontend"}
}

func (t *Techstack) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	var sb strings.Builder
	for name, values := range resp.Headers {
		for _, v := range values {
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	sb.Write(resp.Body)
	haystack := strings.ToLower(sb.String())

	partial := scanner.Partial{
		"technologies": []string{},
		"web_server":   "",
		"language":     "",
		"framework":    "",
		"cms":          "",
		"cdn_provider": "",
		"frontend":     "",
	}

	var detected []string
	for _, sig := range techSignatures {
		for _, marker := range sig.markers {
			if strings.Contains(haystack, strings.ToLower(marker)) {
				detected = append(detected, sig.name)
				key := sig.category
				if key == "cdn" {
					key = "cdn_provider"
				}
				if partial[key] == "" {
					partial[key] = sig.name
				}
				break
			}
		}
	}
	partial["technologies"] = detected
	return partial, nil
}
