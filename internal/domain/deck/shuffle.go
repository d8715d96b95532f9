package deck

import (
	crand "crypto/rand"
	"math/rand/v2"
	"time"

	"github.com/okian/showdown/internal/domain/model"
)

// newRand returns a ChaCha8 generator seeded from crypto/rand. If the system
// source fails the seed falls back to the clock.
func newRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		now := uint64(time.Now().UnixNano())
		for i := range seed {
			seed[i] = byte(now >> (8 * (i % 8)))
		}
	}
	return rand.New(rand.NewChaCha8(seed))
}

// shuffle permutes players uniformly in place (Fisher-Yates).
func shuffle(r *rand.Rand, players []model.Player) {
	r.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
}
