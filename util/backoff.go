package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff bounds how long and how often one message exchange is retried.
// Attempt 0 waits Initial, every later attempt doubles the previous wait up
// to Maximum.
type Backoff struct {
	Initial  time.Duration
	Maximum  time.Duration
	Attempts int
}

func NewBackoff(initial, maximum time.Duration, attempts int) Backoff {
	if attempts < 1 {
		attempts = 1
	}
	if maximum < initial {
		maximum = initial
	}
	return Backoff{Initial: initial, Maximum: maximum, Attempts: attempts}
}

// Schedule yields the receive timeout of every attempt in order, then
// backoff.Stop once the attempts run out or ctx is done.
func (b Backoff) Schedule(ctx context.Context) backoff.BackOffContext {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     b.Initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         b.Maximum,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(b.Attempts)), ctx)
}

func (b Backoff) Timeout(attempt int) time.Duration {
	schedule := b.Schedule(context.Background())
	d := schedule.NextBackOff()
	for i := 0; i < attempt; i++ {
		next := schedule.NextBackOff()
		if next == backoff.Stop {
			break
		}
		d = next
	}
	return d
}

// Window is the longest a whole exchange may wait before giving up.
func (b Backoff) Window() time.Duration {
	var total time.Duration
	schedule := b.Schedule(context.Background())
	for d := schedule.NextBackOff(); d != backoff.Stop; d = schedule.NextBackOff() {
		total += d
	}
	return total
}
