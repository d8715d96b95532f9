package deckfeed

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/pkg/logger"
)

// Handler serves GET /api/daily-deck[?date=YYYY-MM-DD].
func Handler(s *Source, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
			return
		}
		date := r.URL.Query().Get("date")
		resolved, pairs, err := s.DatedDeck(date)
		if errors.Is(err, ErrInvalidDate) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		if err != nil {
			log.Error(r.Context(), "building deck failed", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
			return
		}
		if resolved != "" {
			w.Header().Set(model.DeckDateHeader, resolved)
		}
		log.Info(r.Context(), "served deck", logger.String("date", resolved), logger.Int("pairs", len(pairs)))
		writeJSON(w, http.StatusOK, pairs)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
