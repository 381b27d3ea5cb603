package orchestration

import "time"

// RetryPolicy bounds how often a failed evaluation is attempted again.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff is the delay before the first retry. It doubles for every
	// following retry up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// AttemptTimeout bounds a single attempt. Zero disables it.
	AttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		Backoff:        500 * time.Millisecond,
		MaxBackoff:     4 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxRetries, 0) + 1
}

// delay returns the wait before the given retry, counted from 1.
func (p RetryPolicy) delay(retry int) time.Duration {
	if p.Backoff <= 0 || retry < 1 {
		return 0
	}

	delay := p.Backoff
	for i := 1; i < retry; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}
