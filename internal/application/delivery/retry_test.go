package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/stretchr/testify/require"
)

func retryPolicy(maxAttempts int) stagePolicy {
	return stagePolicy{maxAttempts: maxAttempts, timeout: time.Second}
}

func TestCallWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (any, string, error) {
		calls++
		if calls < 3 {
			return nil, "", errs.Transient("api unavailable")
		}
		return "done", "careful", nil
	}

	output, warning, attempts, err := callWithRetry(context.Background(), retryPolicy(3), time.Millisecond, fn)
	require.NoError(t, err)
	require.Equal(t, "done", output)
	require.Equal(t, "careful", warning)
	require.Equal(t, 3, attempts)
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (any, string, error) {
		calls++
		return nil, "", errs.Transient("api unavailable")
	}

	_, _, attempts, err := callWithRetry(context.Background(), retryPolicy(3), time.Millisecond, fn)
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 3, attempts)
	require.Equal(t, "transient", errs.Kind(err))
}

func TestCallWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (any, string, error) {
		calls++
		return nil, "", errs.Permanent("domain taken")
	}

	_, _, attempts, err := callWithRetry(context.Background(), retryPolicy(3), time.Millisecond, fn)
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, attempts)
}

func TestCallWithRetryStopsOnSkip(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (any, string, error) {
		calls++
		return nil, "", errSkipStage
	}

	_, _, attempts, err := callWithRetry(context.Background(), retryPolicy(3), time.Millisecond, fn)
	require.Error(t, err)
	require.True(t, isSkip(err))
	require.Equal(t, 1, attempts)
}

func TestCallWithRetrySingleAttemptPolicy(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) (any, string, error) {
		calls++
		return nil, "", errs.Transient("flaky")
	}

	_, _, _, err := callWithRetry(context.Background(), retryPolicy(1), time.Millisecond, fn)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestCallWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(callCtx context.Context) (any, string, error) {
		calls++
		cancel()
		return nil, "", errs.Transient("api unavailable")
	}

	_, _, _, err := callWithRetry(ctx, retryPolicy(5), time.Millisecond, fn)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestSameNameserverSet(t *testing.T) {
	require.True(t, sameNameserverSet(
		[]string{"ns1.example.net.", "ns2.example.net"},
		[]string{"ns2.example.net.", "ns1.example.net"},
	))
	require.False(t, sameNameserverSet(
		[]string{"ns1.example.net"},
		[]string{"ns1.example.net", "ns2.example.net"},
	))
	require.False(t, sameNameserverSet(nil, nil))
	require.False(t, sameNameserverSet([]string{}, []string{}))
}
