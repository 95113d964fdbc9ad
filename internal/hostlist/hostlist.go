// Package hostlist reads scan targets from a file or stdin and normalizes
// them into scanner Hosts.
package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Load reads hosts from path, or from stdin when path is empty. Blank
// lines and # comments are skipped; duplicates are dropped keeping first
// occurrence so the output stays one record per input host.
func Load(path string) ([]scanner.Host, error) {
	var r io.Reader
	if path == "" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening hosts file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var hosts []scanner.Host
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		h, err := Normalize(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[!] Skipping %q: %v\n", line, err)
			continue
		}
		if _, dup := seen[h.Name]; dup {
			continue
		}
		seen[h.Name] = struct{}{}
		hosts = append(hosts, h)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading hosts: %w", err)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no valid hosts found")
	}
	return hosts, nil
}

// Normalize cleans one raw input line into a Host: scheme split off (and
// remembered), path/query/fragment stripped, lowercased, trailing dots
// removed, labels validated. An explicit port is kept so non-standard
// ports stay probeable. Hosts are immutable after this.
func Normalize(raw string) (scanner.Host, error) {
	h := scanner.Host{Input: raw}
	name := strings.TrimSpace(raw)

	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		u, err := url.Parse(name)
		if err != nil {
			return h, fmt.Errorf("invalid URL: %w", err)
		}
		h.Scheme = u.Scheme
		name = u.Host
	}

	// Strip path, query, fragment left over from scheme-less URLs.
	if i := strings.IndexAny(name, "/?#"); i >= 0 {
		name = name[:i]
	}
	// Split off an explicit port; leave IPv6 bracket forms alone.
	var port string
	if strings.Count(name, ":") == 1 {
		i := strings.IndexByte(name, ':')
		name, port = name[:i], name[i+1:]
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return h, fmt.Errorf("invalid port %q", port)
		}
	}

	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if name == "" {
		return h, fmt.Errorf("empty hostname")
	}
	if len(name) > 253 {
		return h, fmt.Errorf("hostname exceeds 253 characters")
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 || len(label) > 63 {
			return h, fmt.Errorf("invalid label %q", label)
		}
		if !labelPattern.MatchString(label) {
			return h, fmt.Errorf("invalid label %q", label)
		}
	}

	h.Name = name
	if port != "" {
		h.Name += ":" + port
	}
	return h, nil
}
