package scanner

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Throttler provides the inter-request delay applied before each probe.
// In adaptive mode it backs off exponentially when targets answer 429/503
// or connections start failing in a row, and recovers toward the base
// delay once responses look healthy again.
type Throttler struct {
	mu           sync.Mutex
	baseDelay    time.Duration
	currentDelay time.Duration
	maxDelay     time.Duration
	consecutive  int // consecutive throttle signals
	adaptive     bool
	quiet        bool
}

// NewThrottler creates a throttler with the given base delay. When
// adaptive is false, Delay always returns the base delay.
func NewThrottler(baseDelay time.Duration, adaptive, quiet bool) *Throttler {
	return &Throttler{
		baseDelay:    baseDelay,
		currentDelay: baseDelay,
		maxDelay:     30 * time.Second,
		adaptive:     adaptive,
		quiet:        quiet,
	}
}

// Delay returns the delay tasks should apply before their next probe.
func (t *Throttler) Delay() time.Duration {
	if !t.adaptive {
		return t.baseDelay
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentDelay
}

// RecordStatus updates the throttler based on a response status code.
func (t *Throttler) RecordStatus(statusCode int) {
	if !t.adaptive {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if statusCode == 429 || statusCode == 503 {
		t.consecutive++
		t.backOffLocked(fmt.Sprintf("rate limited (HTTP %d)", statusCode))
		return
	}

	if t.consecutive > 0 {
		t.consecutive = 0
		newDelay := t.currentDelay / 2
		if newDelay < t.baseDelay {
			newDelay = t.baseDelay
		}
		if newDelay != t.currentDelay {
			t.currentDelay = newDelay
			if !t.quiet && t.currentDelay > t.baseDelay {
				fmt.Fprintf(os.Stderr, "\n[+] Recovering — delay now %s/probe\n", t.currentDelay)
			}
		}
	}
}

// RecordError flags a transport failure as a possible rate limit signal.
// Three in a row trigger a back-off.
func (t *Throttler) RecordError() {
	if !t.adaptive {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 {
		t.backOffLocked("multiple transport errors")
	}
}

func (t *Throttler) backOffLocked(reason string) {
	newDelay := t.currentDelay * 2
	if newDelay < 500*time.Millisecond {
		newDelay = 500 * time.Millisecond
	}
	if newDelay > t.maxDelay {
		newDelay = t.maxDelay
	}
	if newDelay != t.currentDelay {
		t.currentDelay = newDelay
		if !t.quiet {
			fmt.Fprintf(os.Stderr, "\n[!] %s — backing off to %s/probe\n", reason, t.currentDelay)
		}
	}
}
