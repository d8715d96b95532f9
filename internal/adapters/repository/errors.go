package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("store closed")
)
