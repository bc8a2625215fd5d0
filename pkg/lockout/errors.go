package lockout

import "errors"

var (
	ErrNotTracked    = errors.New("no failure record for account")
	ErrStoreRequired = errors.New("store is required")
	ErrEmailRequired = errors.New("email is required")
)
