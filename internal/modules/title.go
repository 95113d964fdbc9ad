package modules

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/subsort/subsort/internal/scanner"
)

const maxTitleLen = 200

// frameworkMarkers are lightweight substring signatures checked against the
// body for a quick framework tag. Accuracy is best-effort; the techstack
// module does the thorough pass.
var frameworkMarkers = []struct {
	marker string
	name   string
}{
	{"wp-content", "wordpress"},
	{"ng-version", "angular"},
	{"__NEXT_DATA__", "nextjs"},
	{"data-reactroot", "react"},
	{"__VUE__", "vue"},
	{"Drupal.settings", "drupal"},
	{"/sites/default/files", "drupal"},
	{"laravel_session", "laravel"},
}

// Title parses the HTML body for the page title, meta description, and
// content metadata.
type Title struct{}

func (t *Title) Name() string { return "title" }

func (t *Title) Fields() []string {
	return []string{
		"title",
		"title_length",
		"has_title",
		"description",
		"content_type",
		"content_length",
		"framework_hint",
	}
}

func (t *Title) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	contentType := strings.ToLower(resp.Header("Content-Type"))

	partial := scanner.Partial{
		"title":          "",
		"title_length":   0,
		"has_title":      false,
		"description":    "",
		"content_type":   contentType,
		"content_length": resp.ContentLength,
		"framework_hint": detectFramework(resp.Body),
	}

	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return partial, nil
	}

	title, description := parseHTML(resp.Body)
	partial["title"] = title
	partial["title_length"] = len(title)
	partial["has_title"] = title != ""
	partial["description"] = description
	return partial, nil
}

// parseHTML tokenizes the document once, collecting the <title> text and
// falling back to og:title / twitter:title meta tags when it is absent.
func parseHTML(body []byte) (title, description string) {
	var metaTitle string
	z := html.NewTokenizer(bytes.NewReader(body))

	for {
		switch z.Next() {
		case html.ErrorToken:
			if title == "" {
				title = metaTitle
			}
			return cleanText(title), cleanText(description)

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				if z.Next() == html.TextToken {
					title = z.Token().Data
				}
			case "meta":
				var name, property, content string
				for _, a := range tok.Attr {
					switch a.Key {
					case "name":
						name = strings.ToLower(a.Val)
					case "property":
						property = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if content == "" {
					continue
				}
				if metaTitle == "" && (property == "og:title" || name == "twitter:title") {
					metaTitle = content
				}
				if description == "" && (name == "description" || property == "og:description" || name == "twitter:description") {
					description = content
				}
			case "body":
				// Title and meta live in <head>; stop once the body starts.
				if title == "" {
					title = metaTitle
				}
				return cleanText(title), cleanText(description)
			}
		}
	}
}

// cleanText collapses whitespace and trims overlong values on a rune
// boundary so multi-byte titles stay valid UTF-8.
func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxTitleLen {
		r := []rune(s)
		s = string(r[:maxTitleLen-3]) + "..."
	}
	return s
}

func detectFramework(body []byte) string {
	for _, fm := range frameworkMarkers {
		if bytes.Contains(body, []byte(fm.marker)) {
			return fm.name
		}
	}
	return ""
}
