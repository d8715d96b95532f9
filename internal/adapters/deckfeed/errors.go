package deckfeed

import "errors"

// Sentinel kinds for deck feed errors.
var (
	ErrInvalidDate = errors.New("invalid date")
)
