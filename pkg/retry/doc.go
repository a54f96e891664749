// Package retry re-runs operations that fail transiently, with exponential
// backoff and jitter between attempts.
//
// Only typed errors whose type is retryable (see errors.IsRetryable) are
// retried, which in practice means page navigations that failed to load:
//
//	cfg := retry.NavigationConfig(ctx, 3, log)
//	err := retry.Do(func() error {
//		return page.Goto(storyURL)
//	}, cfg)
//
// A closed page, a login timeout or a capture failure is returned at once.
package retry
