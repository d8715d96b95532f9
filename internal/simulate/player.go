package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/types"
)

// idempotencyHeader matches the header the API deduplicates picks by.
const idempotencyHeader = "Idempotency-Key"

type createResponse struct {
	SessionID string     `json:"session_id"`
	View      types.View `json:"view"`
}

type pathResponse struct {
	Path []deck.MatchLogEntry `json:"path"`
}

// player plays sessions against the API with random picks.
type player struct {
	client *HTTPClient
	config *Config
	rng    *rand.Rand
}

// play runs one session from creation to its winner.
func (p *player) play(ctx context.Context) outcome {
	var out outcome

	path := "/sessions"
	if p.config.Date != "" {
		path += "?date=" + p.config.Date
	}
	var created createResponse
	status, err := p.client.do(ctx, http.MethodPost, path, nil, &created, nil)
	if err != nil {
		out.err = fmt.Errorf("create session: %w", err)
		return out
	}
	if status != http.StatusCreated {
		out.err = fmt.Errorf("create session: status %d", status)
		return out
	}

	id := created.SessionID
	if !p.config.Keep {
		defer func() {
			_, _ = p.client.do(context.WithoutCancel(ctx), http.MethodDelete, "/sessions/"+id, nil, nil, nil)
		}()
	}

	view := created.View
	switch view.State {
	case "active":
	case "empty":
		out.empty = true
		return out
	default:
		out.err = fmt.Errorf("session %s started in state %q", id, view.State)
		return out
	}
	size := view.Rounds + 1

	for view.State == "active" {
		if err := verifyActive(view, size); err != nil {
			out.violations = append(out.violations, err)
		}
		side := deck.Left
		if p.rng.IntN(2) == 1 {
			side = deck.Right
		}
		key := uuid.NewString()
		next, err := p.pick(ctx, id, side, key)
		if err != nil {
			out.err = err
			return out
		}
		out.picks++

		if p.config.DuplicateEvery > 0 && out.picks%p.config.DuplicateEvery == 0 {
			again, err := p.pick(ctx, id, side, key)
			if err != nil {
				out.err = err
				return out
			}
			out.duplicates++
			if len(again.MatchLog) != len(next.MatchLog) {
				out.violations = append(out.violations,
					fmt.Errorf("duplicate pick %s was applied twice", key))
			}
		}
		view = next
	}

	if view.State != "terminal" {
		out.err = fmt.Errorf("session %s ended in state %q", id, view.State)
		return out
	}

	var victory pathResponse
	if status, err := p.client.do(ctx, http.MethodGet, "/sessions/"+id+"/path", nil, &victory, nil); err != nil || status != http.StatusOK {
		out.err = fmt.Errorf("path to victory: status %d: %v", status, err)
		return out
	}
	if err := verifyTerminal(view, size, victory.Path); err != nil {
		out.violations = append(out.violations, err)
	}
	if out.picks != size-1 {
		out.violations = append(out.violations,
			fmt.Errorf("session %s took %d picks for %d players", id, out.picks, size))
	}
	out.completed = true
	return out
}

func (p *player) pick(ctx context.Context, id string, side deck.Side, key string) (types.View, error) {
	var v types.View
	status, err := p.client.do(ctx, http.MethodPost, "/sessions/"+id+"/pick",
		map[string]string{"side": string(side)}, &v, map[string]string{idempotencyHeader: key})
	if err != nil {
		return v, fmt.Errorf("pick: %w", err)
	}
	if status != http.StatusOK {
		return v, fmt.Errorf("pick: status %d", status)
	}
	return v, nil
}
