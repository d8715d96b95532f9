package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for deck provider errors.
var (
	ErrDeckFetch     = errors.New("deck fetch failed")
	ErrMalformedDeck = errors.New("malformed deck")
)

// FetchError reports a non-2xx answer from the deck provider.
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("deck provider answered %s", e.Status)
	}
	return fmt.Sprintf("deck provider answered %d", e.StatusCode)
}

// Is matches ErrDeckFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrDeckFetch
}
