package modules

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func analyzeTitle(t *testing.T, headers map[string]string, body string) map[string]any {
	t.Helper()
	p, err := (&Title{}).Analyze(context.Background(), stubResponse(200, headers, body))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return p
}

func TestTitleExtraction(t *testing.T) {
	p := analyzeTitle(t, map[string]string{"Content-Type": "text/html; charset=utf-8"},
		`<html><head><title>  Admin   Portal </title>
		<meta name="description" content="Internal tools"></head><body></body></html>`)

	if p["title"] != "Admin Portal" {
		t.Errorf("title = %q", p["title"])
	}
	if p["has_title"] != true {
		t.Error("has_title = false")
	}
	if p["title_length"] != len("Admin Portal") {
		t.Errorf("title_length = %v", p["title_length"])
	}
	if p["description"] != "Internal tools" {
		t.Errorf("description = %q", p["description"])
	}
}

func TestTitleMetaFallback(t *testing.T) {
	p := analyzeTitle(t, map[string]string{"Content-Type": "text/html"},
		`<html><head><meta property="og:title" content="Dashboard"></head><body></body></html>`)
	if p["title"] != "Dashboard" {
		t.Errorf("title = %q, want og:title fallback", p["title"])
	}

	p = analyzeTitle(t, map[string]string{"Content-Type": "text/html"},
		`<html><head><title>Real</title><meta property="og:title" content="Meta"></head></html>`)
	if p["title"] != "Real" {
		t.Errorf("title = %q, <title> must win over og:title", p["title"])
	}
}

func TestTitleNonHTML(t *testing.T) {
	p := analyzeTitle(t, map[string]string{"Content-Type": "application/json"},
		`{"title": "<title>not html</title>"}`)
	if p["title"] != "" || p["has_title"] != false {
		t.Errorf("non-HTML body parsed: %v", p)
	}
	if p["content_type"] != "application/json" {
		t.Errorf("content_type = %v", p["content_type"])
	}
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	p := analyzeTitle(t, map[string]string{"Content-Type": "text/html"},
		"<html><head><title>"+long+"</title></head></html>")
	got := p["title"].(string)
	if len(got) != maxTitleLen {
		t.Errorf("title length = %d, want %d", len(got), maxTitleLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated title missing ellipsis: %q", got[len(got)-10:])
	}
}

func TestTitleTruncationMultiByte(t *testing.T) {
	long := strings.Repeat("ü", 500)
	p := analyzeTitle(t, map[string]string{"Content-Type": "text/html"},
		"<html><head><title>"+long+"</title></head></html>")
	got := p["title"].(string)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxTitleLen {
		t.Errorf("title rune count = %d, want %d", n, maxTitleLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated title missing ellipsis")
	}
}

func TestTitleFrameworkDetection(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`<script src="/wp-content/themes/x.js"></script>`, "wordpress"},
		{`<app-root ng-version="15.2.0"></app-root>`, "angular"},
		{`<script id="__NEXT_DATA__" type="application/json"></script>`, "nextjs"},
		{`<div data-reactroot=""></div>`, "react"},
		{`<p>plain page</p>`, ""},
	}
	for _, tt := range tests {
		p := analyzeTitle(t, map[string]string{"Content-Type": "text/html"}, tt.body)
		if p["framework_hint"] != tt.want {
			t.Errorf("body %q: framework_hint = %v, want %q", tt.body, p["framework_hint"], tt.want)
		}
	}
}

func TestTitleTechstackFieldsDisjoint(t *testing.T) {
	// title's quick marker field must not shadow techstack's thorough one.
	seen := make(map[string]bool)
	for _, f := range (&Title{}).Fields() {
		seen[f] = true
	}
	for _, f := range (&Techstack{}).Fields() {
		if seen[f] {
			t.Errorf("field %q declared by both title and techstack", f)
		}
	}
}
