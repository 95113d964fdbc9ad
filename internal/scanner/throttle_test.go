package scanner

import (
	"testing"
	"time"
)

func TestThrottlerFixedDelay(t *testing.T) {
	th := NewThrottler(100*time.Millisecond, false, true)

	if d := th.Delay(); d != 100*time.Millisecond {
		t.Errorf("Delay = %s, want 100ms", d)
	}
	// Non-adaptive throttlers ignore every signal.
	th.RecordStatus(429)
	th.RecordError()
	th.RecordError()
	th.RecordError()
	if d := th.Delay(); d != 100*time.Millisecond {
		t.Errorf("Delay after signals = %s, want 100ms", d)
	}
}

func TestThrottlerBacksOffOnRateLimit(t *testing.T) {
	th := NewThrottler(0, true, true)

	th.RecordStatus(429)
	first := th.Delay()
	if first < 500*time.Millisecond {
		t.Errorf("Delay after 429 = %s, want >= 500ms", first)
	}

	th.RecordStatus(503)
	second := th.Delay()
	if second <= first {
		t.Errorf("Delay after second signal = %s, want > %s", second, first)
	}
}

func TestThrottlerBacksOffOnErrors(t *testing.T) {
	th := NewThrottler(0, true, true)

	th.RecordError()
	th.RecordError()
	if d := th.Delay(); d != 0 {
		t.Errorf("Delay after two errors = %s, want 0", d)
	}
	th.RecordError()
	if d := th.Delay(); d < 500*time.Millisecond {
		t.Errorf("Delay after three errors = %s, want >= 500ms", d)
	}
}

func TestThrottlerRecovers(t *testing.T) {
	th := NewThrottler(0, true, true)

	for i := 0; i < 4; i++ {
		th.RecordStatus(429)
	}
	high := th.Delay()

	th.RecordStatus(200)
	recovered := th.Delay()
	if recovered >= high {
		t.Errorf("Delay after healthy response = %s, want < %s", recovered, high)
	}
	if recovered != high/2 {
		t.Errorf("Delay = %s, want half of %s", recovered, high)
	}
}

func TestThrottlerRecoveryFloor(t *testing.T) {
	base := 50 * time.Millisecond
	th := NewThrottler(base, true, true)

	th.RecordStatus(429)
	th.RecordStatus(200)
	if d := th.Delay(); d < base {
		t.Errorf("Delay recovered below base: %s < %s", d, base)
	}
}

func TestThrottlerDelayCap(t *testing.T) {
	th := NewThrottler(0, true, true)
	for i := 0; i < 50; i++ {
		th.RecordStatus(429)
	}
	if d := th.Delay(); d > 30*time.Second {
		t.Errorf("Delay = %s, want <= 30s", d)
	}
}
