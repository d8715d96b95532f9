package deck

import (
	"errors"
	"fmt"
)

// Sentinel kinds for deck errors.
var (
	ErrInsufficientPlayers = errors.New("insufficient players")
	ErrInvalidState        = errors.New("invalid deck state")
)

// InsufficientPlayersError reports a deck that cannot form a matchup.
type InsufficientPlayersError struct {
	Count int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("deck needs at least %d players, got %d", MinPlayers, e.Count)
}

// Is matches ErrInsufficientPlayers.
func (e *InsufficientPlayersError) Is(target error) bool {
	return target == ErrInsufficientPlayers
}
