package protocol

import (
	"math"
	"time"
)

const (
	// DefaultCommandTimeout is used when params.timeout is absent or
	// non-positive.
	DefaultCommandTimeout = 30 * time.Second

	minCommandTimeout = 100 * time.Millisecond
	maxCommandTimeout = 60 * time.Second

	// BrokerDeadlineBuffer is added on top of the nominal deadline so
	// that an engine-level timeout (evaluate-timed-out, the
	// waitForSelector null sentinel) has a chance to resolve first.
	BrokerDeadlineBuffer = 2 * time.Second
)

// ClampTimeout applies the [100ms, 60s] clamp from spec §4.1 to a
// requested timeout expressed in milliseconds. A non-positive or
// non-finite value falls back to DefaultCommandTimeout.
func ClampTimeout(requestedMs float64) time.Duration {
	if requestedMs <= 0 || math.IsNaN(requestedMs) || math.IsInf(requestedMs, 0) {
		return DefaultCommandTimeout
	}
	d := time.Duration(requestedMs) * time.Millisecond
	if d < minCommandTimeout {
		return minCommandTimeout
	}
	if d > maxCommandTimeout {
		return maxCommandTimeout
	}
	return d
}

// BrokerDeadline is the deadline the broker itself enforces: the
// clamped command timeout plus the buffer, per spec §4.1 and the
// invariant in spec §8 (100ms <= d <= 62000ms).
func BrokerDeadline(requestedMs float64) time.Duration {
	return ClampTimeout(requestedMs) + BrokerDeadlineBuffer
}
