package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxRetries = 4

// Retry runs op until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. Domain errors are returned on the first attempt.
func Retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
