package modules

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/subsort/subsort/internal/scanner"
)

// Auth detects login portals and authentication requirements from the
// response status, headers, and any forms in the body.
type Auth struct{}

func (a *Auth) Name() string { return "auth" }

func (a *Auth) Fields() []string {
	return []string{"has_auth", "auth_types", "login_forms", "requires_auth"}
}

func (a *Auth) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	var authTypes []string
	requiresAuth := false

	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		requiresAuth = true
	}
	if v := resp.Header("WWW-Authenticate"); v != "" {
		requiresAuth = true
		switch {
		case strings.HasPrefix(strings.ToLower(v), "basic"):
			authTypes = append(authTypes, "http-basic")
		case strings.HasPrefix(strings.ToLower(v), "digest"):
			authTypes = append(authTypes, "http-digest")
		case strings.HasPrefix(strings.ToLower(v), "bearer"):
			authTypes = append(authTypes, "bearer")
		default:
			authTypes = append(authTypes, "http-auth")
		}
	}
	if cookies := resp.Headers["Set-Cookie"]; len(cookies) > 0 {
		for _, c := range cookies {
			low := strings.ToLower(c)
			if strings.Contains(low, "session") || strings.Contains(low, "sid=") {
				authTypes = append(authTypes, "session-cookie")
				break
			}
		}
	}

	loginForms := countLoginForms(resp.Body)
	if loginForms > 0 {
		authTypes = append(authTypes, "form-login")
	}

	return scanner.Partial{
		"has_auth":      requiresAuth || len(authTypes) > 0,
		"auth_types":    authTypes,
		"login_forms":   loginForms,
		"requires_auth": requiresAuth,
	}, nil
}

// countLoginForms walks the document counting forms that carry a password
// input.
func countLoginForms(body []byte) int {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return 0
	}

	count := 0
	var walk func(n *html.Node, inForm bool) bool // returns password-seen
	walk = func(n *html.Node, inForm bool) bool {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				found := false
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if walk(c, true) {
						found = true
					}
				}
				if found {
					count++
				}
				return false
			case "input":
				for _, a := range n.Attr {
					if a.Key == "type" && strings.EqualFold(a.Val, "password") {
						return true
					}
				}
			}
		}
		seen := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c, inForm) {
				seen = true
			}
		}
		return seen
	}
	walk(doc, false)
	return count
}
