package service

import "errors"

// Sentinel errors returned by Run.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInsufficientData = errors.New("insufficient data")
)
