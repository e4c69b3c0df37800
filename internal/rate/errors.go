package rate

import "errors"

var (
	// ErrRateLimited is returned when a key has exhausted its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backend failures of a window store.
	ErrStoreUnavailable = errors.New("rate store unavailable")
)
