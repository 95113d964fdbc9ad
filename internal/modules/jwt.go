package modules

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

// jwtPattern matches three dot-separated base64url segments starting with
// the {"... header prefix every JWT shares.
var jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

// JWT scans headers and body for JSON Web Tokens and decodes their headers
// to surface weak configurations (alg=none).
type JWT struct{}

func (j *JWT) Name() string { return "jwt" }

func (j *JWT) Fields() []string {
	return []string{"jwt_count", "jwt_algorithms", "jwt_insecure"}
}

func (j *JWT) Analyze(_ context.Context, resp *scanner.Response) (scanner.Partial, error) {
	seen := make(map[string]bool)
	var tokens []string

	for name, values := range resp.Headers {
		low := strings.ToLower(name)
		if !strings.Contains(low, "authorization") && !strings.Contains(low, "token") && low != "set-cookie" {
			continue
		}
		for _, v := range values {
			for _, tok := range jwtPattern.FindAllString(v, -1) {
				if !seen[tok] {
					seen[tok] = true
					tokens = append(tokens, tok)
				}
			}
		}
	}
	for _, tok := range jwtPattern.FindAllString(string(resp.Body), -1) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}

	var algorithms []string
	insecure := false
	algSeen := make(map[string]bool)
	for _, tok := range tokens {
		alg := decodeAlg(tok)
		if alg == "" {
			continue
		}
		if !algSeen[alg] {
			algSeen[alg] = true
			algorithms = append(algorithms, alg)
		}
		if strings.EqualFold(alg, "none") {
			insecure = true
		}
	}

	return scanner.Partial{
		"jwt_count":      len(tokens),
		"jwt_algorithms": algorithms,
		"jwt_insecure":   insecure,
	}, nil
}

// decodeAlg extracts the alg claim from a token's header segment.
func decodeAlg(token string) string {
	head := token[:strings.IndexByte(token, '.')]
	raw, err := base64.RawURLEncoding.DecodeString(head)
	if err != nil {
		return ""
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return ""
	}
	return header.Alg
}
