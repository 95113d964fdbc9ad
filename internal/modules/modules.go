// Package modules contains the built-in analysis modules. Each module is a
// pure consumer of the Response its task fetched, except where noted
// (cname, favicon, robots perform their own round-trips).
package modules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/subsort/subsort/internal/scanner"
)

// priority fixes the deterministic execution order: the three core modules
// first, then the extended modules alphabetically. The order modules were
// named on the command line never matters.
var priority = []string{
	"status",
	"server",
	"title",
	"auth",
	"cname",
	"favicon",
	"jwt",
	"responsetime",
	"robots",
	"techstack",
}

// Available returns the names of every built-in module in priority order.
func Available() []string {
	out := make([]string, len(priority))
	copy(out, priority)
	return out
}

// Build constructs the enabled modules in fixed priority order and
// validates that no two of them declare the same field name. Unknown
// names and collisions are configuration errors.
func Build(names []string, fetcher scanner.Fetcher) ([]scanner.Module, error) {
	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if !known(n) {
			return nil, fmt.Errorf("unknown module %q (available: %s)", n, strings.Join(Available(), ", "))
		}
		enabled[n] = true
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no modules enabled")
	}

	var mods []scanner.Module
	for _, name := range priority {
		if !enabled[name] {
			continue
		}
		switch name {
		case "status":
			mods = append(mods, &Status{})
		case "server":
			mods = append(mods, &Server{})
		case "title":
			mods = append(mods, &Title{})
		case "auth":
			mods = append(mods, &Auth{})
		case "cname":
			mods = append(mods, NewCname())
		case "favicon":
			mods = append(mods, &Favicon{Fetcher: fetcher})
		case "jwt":
			mods = append(mods, &JWT{})
		case "responsetime":
			mods = append(mods, &ResponseTime{})
		case "robots":
			mods = append(mods, &Robots{Fetcher: fetcher})
		case "techstack":
			mods = append(mods, &Techstack{})
		}
	}

	if err := scanner.ValidateModules(mods); err != nil {
		return nil, err
	}
	return mods, nil
}

func known(name string) bool {
	i := sort.SearchStrings(sortedNames, name)
	return i < len(sortedNames) && sortedNames[i] == name
}

var sortedNames = func() []string {
	s := Available()
	sort.Strings(s)
	return s
}()
