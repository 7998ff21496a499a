package dispatcher

import "time"

const (
	// DefaultMinBackoff is the delay after the first consecutive cycle error
	DefaultMinBackoff = 1 * time.Second
	// DefaultMaxBackoff caps the delay between failing cycles
	DefaultMaxBackoff = 30 * time.Second
)

// Backoff returns the delay after n consecutive cycle errors using the
// default bounds: 0 for n <= 0, otherwise min(30s, 1s*2^(n-1)).
func Backoff(n int) time.Duration {
	return BackoffWith(n, DefaultMinBackoff, DefaultMaxBackoff)
}

// BackoffWith is Backoff with explicit bounds. The result doubles from
// minDelay for every additional error and never exceeds maxDelay.
func BackoffWith(n int, minDelay, maxDelay time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}

	delay := minDelay
	for i := 1; i < n; i++ {
		if delay >= maxDelay {
			break
		}
		delay *= 2
	}

	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// loopState tracks consecutive cycle errors across iterations of Run
type loopState struct {
	consecutiveErrors int
}

// next records the outcome of a cycle and returns how long to wait before
// the following one.
func (s *loopState) next(cycleErr error, pollInterval, minDelay, maxDelay time.Duration) time.Duration {
	if cycleErr == nil {
		s.consecutiveErrors = 0
		return pollInterval
	}

	s.consecutiveErrors++
	return BackoffWith(s.consecutiveErrors, minDelay, maxDelay)
}
