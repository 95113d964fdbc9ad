package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subsort/subsort/internal/config"
)

// ProgressFunc receives one event per completed host. Purely observational;
// the scheduler never blocks on it.
type ProgressFunc func(completed, total int)

// Scheduler drives one fetch+analyze pipeline per host through a bounded
// worker pool. At most Opts.Concurrency pipelines are in flight at once,
// regardless of host-list size.
type Scheduler struct {
	Opts      *config.Options
	Transport Fetcher
	Modules   []Module // fixed priority order
	Retry     RetryPolicy
	Throttler *Throttler
	Pauser    *Pauser                // nil = no pause support
	Progress  ProgressFunc           // nil = no progress reporting
	Skip      func(host string) bool // nil = scan everything (resume hook)
}

type job struct {
	index int
	host  Host
}

// Run scans all hosts and returns one Record per input host, in input
// order, regardless of completion order. A cancelled run returns the
// records of the hosts that finished; it is not an error.
// Configuration problems (bad concurrency, module field collisions) abort
// before any host is dispatched.
func (s *Scheduler) Run(ctx context.Context, hosts []Host) (*ScanResult, error) {
	if err := s.Opts.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateModules(s.Modules); err != nil {
		return nil, err
	}

	start := time.Now()
	total := len(hosts)
	records := make([]Record, total)
	finished := make([]bool, total) // one writer per index, read after wg.Wait

	jobs := make(chan job, s.Opts.Concurrency*2)
	var wg sync.WaitGroup
	var completed atomic.Int64

	// Producer: stop dispatching as soon as the scan is cancelled.
	go func() {
		defer close(jobs)
		for i, h := range hosts {
			if s.Skip != nil && s.Skip(h.Name) {
				continue
			}
			select {
			case jobs <- job{index: i, host: h}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < s.Opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				records[j.index] = s.scanHost(ctx, j.host)
				if ctx.Err() != nil && records[j.index].Failed() {
					// Aborted mid-flight; drop the partial record.
					continue
				}
				finished[j.index] = true
				done := completed.Add(1)
				if s.Progress != nil {
					s.Progress(int(done), total)
				}
			}
		}()
	}

	wg.Wait()

	result := &ScanResult{
		StartedAt:  start,
		Duration:   time.Since(start),
		Total:      total,
		Cancelled:  ctx.Err() != nil,
		FieldNames: FieldNames(s.Modules),
	}
	for _, m := range s.Modules {
		result.Modules = append(result.Modules, m.Name())
	}
	for i := range records {
		if finished[i] {
			result.Records = append(result.Records, records[i])
		}
	}
	result.Completed = len(result.Records)
	return result, nil
}

// scanHost runs the full per-host pipeline: throttle, fetch with retries,
// then every enabled module in priority order against the shared response.
// Failures never escape; they end up inside the Record.
func (s *Scheduler) scanHost(ctx context.Context, h Host) Record {
	rec := Record{Host: h.Input, Fields: make(Partial)}
	start := time.Now()
	defer func() { rec.Duration = time.Since(start) }()

	var resp *Response
	var lastErr *TransportError

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			rec.Error = ctx.Err().Error()
			rec.ErrorKind = KindOther
			return rec
		}

		if s.Pauser != nil {
			s.Pauser.Wait()
		}
		if s.Throttler != nil {
			if delay := s.Throttler.Delay(); delay > 0 && !sleep(ctx, delay) {
				rec.Error = ctx.Err().Error()
				rec.ErrorKind = KindOther
				return rec
			}
		}

		r, err := s.fetchHost(ctx, h)
		rec.Attempts = attempt
		if err == nil {
			resp = r
			if s.Throttler != nil {
				s.Throttler.RecordStatus(r.StatusCode)
			}
			break
		}

		lastErr = Classify(err)
		if s.Throttler != nil {
			s.Throttler.RecordError()
		}

		backoff, retry := s.Retry.Next(attempt, lastErr)
		if !retry {
			break
		}
		if !sleep(ctx, backoff) {
			rec.Error = ctx.Err().Error()
			rec.ErrorKind = KindOther
			return rec
		}
	}

	if resp == nil {
		rec.Accessible = false
		rec.Error = lastErr.Error()
		rec.ErrorKind = lastErr.Kind
		return rec
	}

	rec.URL = resp.FinalURL
	rec.Accessible = resp.StatusCode < 400

	for _, m := range s.Modules {
		partial, err := m.Analyze(ctx, resp)
		if err != nil {
			// ModuleError: recorded per module, never fails the host.
			rec.Fields[m.Name()+"_error"] = err.Error()
			continue
		}
		rec.merge(partial)
	}

	return rec
}

// fetchHost probes the host. When the input carried no scheme, https is
// tried first with http as the fallback within the same attempt.
func (s *Scheduler) fetchHost(ctx context.Context, h Host) (*Response, error) {
	if h.Scheme != "" {
		return s.Transport.Fetch(ctx, h.URL(h.Scheme))
	}

	resp, err := s.Transport.Fetch(ctx, h.URL("https"))
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return s.Transport.Fetch(ctx, h.URL("http"))
}

// sleep waits for d or until ctx is cancelled. Returns false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
