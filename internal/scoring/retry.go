package scoring

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited marks an attempt rejected with HTTP 429. The policy
// waits RateLimitDelay before the next try instead of RetryDelay.
var ErrRateLimited = errors.New("rate limited")

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy is a bounded fixed-backoff retry policy. Rate-limited attempts
// share the same attempt budget as any other failure; no backoff happens
// after the final attempt.
type Policy struct {
	MaxAttempts    int
	RateLimitDelay time.Duration
	RetryDelay     time.Duration
	Sleep          func(time.Duration) // nil means time.Sleep; injectable for tests
}

// Run invokes op until it succeeds or MaxAttempts is reached.
func (p Policy) Run(op func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		if errors.Is(err, ErrRateLimited) {
			sleep(p.RateLimitDelay)
		} else {
			sleep(p.RetryDelay)
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, p.MaxAttempts, lastErr)
}
