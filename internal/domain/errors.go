package domain

import "errors"

// ErrInvalidInput marks malformed or out-of-range caller input (empty
// symbol, non-positive quantity, negative price). Callers surface it
// synchronously; no partial write happens under it.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned by stores when no record exists for a key.
var ErrNotFound = errors.New("not found")
