package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/internal/domain/types"
)

// Error codes carried by error views.
const (
	CodeDeckFetch           = "deck_fetch"
	CodeInsufficientPlayers = "insufficient_players"
	CodeMalformedDeck       = "malformed_deck"
)

// Recovery actions offered by error views.
const (
	ActionRetry = "retry"
	ActionReset = "reset"
)

// classify turns a load failure into the state it leads to and the view
// describing it.
func classify(err error) (State, *types.ErrorView) {
	var fe *model.FetchError
	switch {
	case errors.As(err, &fe):
		return StateError, &types.ErrorView{
			Code:      CodeDeckFetch,
			Message:   fmt.Sprintf("Could not load today's deck (%s).", statusText(fe)),
			Status:    fe.StatusCode,
			Actions:   []string{ActionRetry},
			Retryable: true,
		}
	case errors.Is(err, model.ErrMalformedDeck):
		return StateEmpty, &types.ErrorView{
			Code:      CodeMalformedDeck,
			Message:   "No games found.",
			Actions:   []string{ActionRetry},
			Retryable: true,
		}
	case errors.Is(err, deck.ErrInsufficientPlayers):
		return StateEmpty, &types.ErrorView{
			Code:      CodeInsufficientPlayers,
			Message:   "No games found.",
			Actions:   []string{ActionRetry},
			Retryable: true,
		}
	default:
		return StateError, &types.ErrorView{
			Code:      CodeDeckFetch,
			Message:   "Could not reach the deck provider.",
			Actions:   []string{ActionRetry},
			Retryable: true,
		}
	}
}

func statusText(fe *model.FetchError) string {
	if fe.Status != "" {
		return fe.Status
	}
	if text := http.StatusText(fe.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", fe.StatusCode, text)
	}
	return fmt.Sprintf("status %d", fe.StatusCode)
}
