package remote

import "errors"

// Sentinel kinds for remote store errors.
var (
	ErrNotFound = errors.New("item not found")
)
