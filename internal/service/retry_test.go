package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"candor/internal/models"
	"candor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLocked = errors.New("database is locked")

func testPolicy() Policy {
	p := DefaultPolicy()
	p.RetryBackoff = time.Millisecond
	return p
}

func TestWithRetry_RecoversFromOneTransientFailure(t *testing.T) {
	t.Parallel()
	calls := 0
	err := withRetry(context.Background(), testPolicy(), "report store", func(context.Context) error {
		calls++
		if calls == 1 {
			return errLocked
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_PersistentFailureIsDependencyUnavailable(t *testing.T) {
	t.Parallel()
	calls := 0
	err := withRetry(context.Background(), testPolicy(), "report store", func(context.Context) error {
		calls++
		return errLocked
	})
	assert.Equal(t, 2, calls)
	assert.True(t, models.IsCode(err, models.CodeDependencyUnavailable))
	assert.ErrorIs(t, err, errLocked)
}

func TestWithRetry_ApplicationErrorsAreNotRetried(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]error{
		"validation": models.NewValidationError("reason is required"),
		"not found":  models.NewNotFoundError("Report", "r1"),
		"duplicate":  repository.ErrDuplicate,
	} {
		calls := 0
		err := withRetry(context.Background(), testPolicy(), "report store", func(context.Context) error {
			calls++
			return want
		})
		assert.Equal(t, 1, calls, name)
		assert.ErrorIs(t, err, want, name)
	}
}

func TestWithRetry_AttemptTimeout(t *testing.T) {
	t.Parallel()
	p := testPolicy()
	p.StoreTimeout = 5 * time.Millisecond
	calls := 0
	err := withRetry(context.Background(), p, "strike ledger", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Equal(t, 2, calls)
	assert.True(t, models.IsCode(err, models.CodeDependencyUnavailable))
}

func TestFetch(t *testing.T) {
	t.Parallel()
	got, err := fetch(context.Background(), testPolicy(), "user store", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
