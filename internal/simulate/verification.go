package simulate

import (
	"fmt"

	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/types"
)

// verifyActive checks a running view against the deck size: every player is
// either in the pool, in the matchup or eliminated by exactly one decision.
func verifyActive(v types.View, size int) error {
	if v.Left == nil || v.Right == nil {
		return fmt.Errorf("active view without a full matchup")
	}
	if v.Left.ID == v.Right.ID {
		return fmt.Errorf("player %s faces itself", v.Left.ID)
	}
	if got := v.Remaining + 2 + len(v.MatchLog); got != size {
		return fmt.Errorf("pool invariant broken: %d remaining + 2 + %d decisions != %d players",
			v.Remaining, len(v.MatchLog), size)
	}
	return nil
}

// verifyTerminal checks a finished session and its path to victory.
func verifyTerminal(v types.View, size int, path []deck.MatchLogEntry) error {
	if v.Winner == nil {
		return fmt.Errorf("terminal view without a winner")
	}
	if len(v.MatchLog) != size-1 {
		return fmt.Errorf("expected %d decisions for %d players, got %d", size-1, size, len(v.MatchLog))
	}
	last := v.MatchLog[len(v.MatchLog)-1]
	if last.WinnerID != v.Winner.ID {
		return fmt.Errorf("last decision crowned %s, winner is %s", last.WinnerID, v.Winner.ID)
	}

	eliminated := make(map[string]struct{}, len(v.MatchLog))
	for _, entry := range v.MatchLog {
		if _, twice := eliminated[entry.LoserID.String()]; twice {
			return fmt.Errorf("player %s eliminated twice", entry.LoserID)
		}
		eliminated[entry.LoserID.String()] = struct{}{}
	}
	if _, lost := eliminated[v.Winner.ID.String()]; lost {
		return fmt.Errorf("winner %s was eliminated", v.Winner.ID)
	}

	if len(path) == 0 {
		return fmt.Errorf("empty path to victory")
	}
	for _, bout := range path {
		if bout.WinnerID != v.Winner.ID {
			return fmt.Errorf("path contains a bout won by %s", bout.WinnerID)
		}
	}
	return nil
}
