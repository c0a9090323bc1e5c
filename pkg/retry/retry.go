package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// Linear waits base, 2*base, 3*base... between attempts.
type Linear struct {
	Base    time.Duration
	attempt int
}

func (b *Linear) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.Base
}

func (b *Linear) Reset() {
	b.attempt = 0
}

// Do calls op until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&Linear{Base: p.BaseDelay}, uint64(attempts-1)),
		ctx,
	)

	return backoff.Retry(op, b)
}

// Permanent wraps err so Do stops retrying and returns err as is.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
