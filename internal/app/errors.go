package service

import "errors"

var (
	// ErrSessionNotFound is returned for an id that is neither live nor stored.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCapacity is returned when the live session limit is reached.
	ErrCapacity = errors.New("too many live sessions")
	// ErrNotStarted is returned before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrNotFinished is returned for results of a session still in play.
	ErrNotFinished = errors.New("session not finished")
	// ErrNoProvider is returned by Start without a deck provider.
	ErrNoProvider = errors.New("no deck provider configured")
)
