package delivery

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
)

// errSkipStage is returned by a stage function when the stage's work is
// already done and the step should be recorded as skipped.
var errSkipStage = errors.New("stage not needed")

type stageFunc func(ctx context.Context) (output any, warning string, err error)

// stagePolicy bounds one stage's execution. maxAttempts 1 disables retry
// (registration is billing-relevant and never retried); timeout 0 disables
// the per-call timeout (the propagation stage manages its own waiting).
type stagePolicy struct {
	maxAttempts int
	timeout     time.Duration
}

// callWithRetry invokes fn with bounded exponential backoff. Only transient
// errors are retried; permanent and skip outcomes abort immediately.
// Returns how many attempts were made.
func callWithRetry(ctx context.Context, policy stagePolicy, initialInterval time.Duration, fn stageFunc) (any, string, int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0

	var (
		output   any
		warning  string
		attempts int
	)
	op := func() error {
		attempts++
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if policy.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, policy.timeout)
		}
		o, w, err := fn(callCtx)
		cancel()
		if err != nil {
			if errs.IsPermanent(err) || errors.Is(err, errSkipStage) {
				return backoff.Permanent(err)
			}
			return err
		}
		output, warning = o, w
		return nil
	}

	retries := uint64(0)
	if policy.maxAttempts > 1 {
		retries = uint64(policy.maxAttempts - 1)
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
	return output, warning, attempts, err
}
