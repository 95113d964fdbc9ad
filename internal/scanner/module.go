package scanner

import (
	"context"
	"fmt"
)

// Partial holds one module's named field contributions for one host.
type Partial map[string]any

// Module is a pluggable analysis unit. Analyze runs against the Response
// the task already fetched; modules that need an extra round-trip (favicon,
// robots, ...) perform it themselves via a Fetcher and stay subject to the
// per-request timeout.
type Module interface {
	Name() string
	// Fields lists every field name the module may contribute. Used to
	// reject field collisions between enabled modules before the scan starts.
	Fields() []string
	Analyze(ctx context.Context, resp *Response) (Partial, error)
}

// Fetcher issues a single HTTP probe. Implemented by *Transport; stubbed
// in tests.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// ValidateModules rejects module sets where two modules declare the same
// field name. Collisions are a configuration error, caught before any fetch.
func ValidateModules(mods []Module) error {
	owner := make(map[string]string)
	for _, m := range mods {
		for _, f := range m.Fields() {
			if prev, ok := owner[f]; ok {
				return fmt.Errorf("modules %s and %s both declare field %q", prev, m.Name(), f)
			}
			owner[f] = m.Name()
		}
	}
	return nil
}

// FieldNames returns the union of the modules' declared fields in module
// priority order. This is the stable column schema handed to output writers.
func FieldNames(mods []Module) []string {
	var names []string
	for _, m := range mods {
		names = append(names, m.Fields()...)
	}
	return names
}
