package modules

import "testing"

func TestMatchTakeoverService(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"bucket.s3.amazonaws.com", "AWS S3/ELB"},
		{"d111111abcdef8.cloudfront.net", "AWS CloudFront"},
		{"myapp.herokuapp.com", "Heroku"},
		{"org.github.io", "GitHub Pages"},
		{"github.io", "GitHub Pages"},
		{"app.vercel.app", "Vercel"},
		{"cdn.example.com", ""},
		{"", ""},
		{"notgithub.io", ""},
	}
	for _, tt := range tests {
		if got := matchTakeoverService(tt.target); got != tt.want {
			t.Errorf("matchTakeoverService(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestCnameFields(t *testing.T) {
	m := NewCname()
	want := []string{"cname_records", "cname_target", "takeover_service", "takeover_possible", "takeover_risk"}
	got := m.Fields()
	if len(got) != len(want) {
		t.Fatalf("Fields = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Fields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
