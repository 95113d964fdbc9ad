package scanner

import "time"

// Record is the per-host aggregate: identity, accessibility, error state,
// and the union of all enabled modules' field contributions.
type Record struct {
	Host       string
	URL        string // final probe URL, empty when never reached
	Accessible bool
	Attempts   int
	Duration   time.Duration
	Error      string
	ErrorKind  ErrorKind
	Fields     Partial
}

// Failed reports whether the host produced no usable response.
func (r *Record) Failed() bool { return r.Error != "" }

// ScanResult is the ordered outcome of one scan run. Records preserves the
// input host order regardless of completion order.
type ScanResult struct {
	StartedAt  time.Time
	Duration   time.Duration
	Total      int // hosts supplied
	Completed  int // hosts that finished (== Total unless cancelled)
	Cancelled  bool
	Modules    []string // enabled module names, priority order
	FieldNames []string // stable output schema
	Records    []Record
}

// merge folds a module's partial into the record. Later modules never
// overwrite earlier fields; collisions are rejected up front, so a
// duplicate here would be a module lying about its Fields().
func (r *Record) merge(p Partial) {
	if r.Fields == nil {
		r.Fields = make(Partial, len(p))
	}
	for k, v := range p {
		if _, dup := r.Fields[k]; !dup {
			r.Fields[k] = v
		}
	}
}
