package fixture

import "errors"

// Sentinel kinds for fixture errors.
var (
	ErrInvalidFixture = errors.New("invalid fixture")
)
