package ratelimit

import "errors"

var (
	ErrLimitExceeded = errors.New("rate limit exceeded")
	ErrKeyRequired   = errors.New("key is required")
	ErrStoreRequired = errors.New("store is required")
	ErrInvalidLimit  = errors.New("max requests must be positive")
	ErrInvalidWindow = errors.New("window must be positive")
)
