package service

import (
	"context"
	"errors"

	"candor/internal/models"
	"candor/internal/observability"
	"candor/internal/repository"

	"github.com/cenkalti/backoff/v5"
)

// withRetry runs fn with a per-attempt timeout. A transient store error is
// retried once; if it persists it surfaces as DEPENDENCY_UNAVAILABLE.
// Application errors are returned on the first attempt.
func withRetry(ctx context.Context, p Policy, operation string, fn func(context.Context) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			observability.StoreRetries.WithLabelValues(operation).Inc()
		}
		opCtx, cancel := context.WithTimeout(ctx, p.StoreTimeout)
		defer cancel()

		err := fn(opCtx)
		if err == nil {
			return struct{}{}, nil
		}
		if !repository.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewConstantBackOff(p.RetryBackoff)), backoff.WithMaxTries(2))
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if repository.IsTransient(err) {
		return models.NewDependencyUnavailableError(operation, err)
	}
	return err
}

// fetch is withRetry for single-value reads.
func fetch[T any](ctx context.Context, p Policy, operation string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := withRetry(ctx, p, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
