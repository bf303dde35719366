package alert

import (
	"math/rand/v2"
	"time"
)

// backoffSchedule is the base wait after the n-th failed attempt.
var backoffSchedule = [...]time.Duration{
	time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	12 * time.Hour,
}

const (
	// DefaultMaxAttempts is the number of deliveries tried before giving up.
	DefaultMaxAttempts = 5

	// JitterFactor spreads retries by up to ±20% of the base delay.
	JitterFactor = 0.2
)

// RetryDelay returns the wait after failedAttempts failures (1-based).
// Values past the schedule reuse its last step.
func RetryDelay(failedAttempts int) time.Duration {
	return retryDelay(failedAttempts, rand.Float64)
}

func retryDelay(failedAttempts int, random func() float64) time.Duration {
	i := failedAttempts - 1
	if i < 0 {
		i = 0
	}
	if i >= len(backoffSchedule) {
		i = len(backoffSchedule) - 1
	}
	base := float64(backoffSchedule[i])
	jitter := (random()*2 - 1) * JitterFactor * base
	return time.Duration(base + jitter)
}

// Exhausted reports whether no attempts remain.
func Exhausted(attempts, maxAttempts int) bool {
	return attempts >= maxAttempts
}
