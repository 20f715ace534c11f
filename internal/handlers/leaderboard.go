package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"rating-engine/internal/leaderboard"

	"github.com/gorilla/mux"
)

// Leaderboard serves ranked positions.
type Leaderboard interface {
	Top(ctx context.Context, count int64) ([]leaderboard.Entry, error)
	PlayerRank(ctx context.Context, playerID string) (*leaderboard.Entry, error)
}

const (
	defaultLeaderboardSize = 50
	maxLeaderboardSize     = 500
)

type LeaderboardHandler struct {
	board Leaderboard
}

func NewLeaderboardHandler(board Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{board: board}
}

// GetLeaderboard returns the top players by rating.
// GET /api/leaderboard?limit=50
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := queryLimit(r, defaultLeaderboardSize, maxLeaderboardSize)
	entries, err := h.board.Top(ctx, int64(limit))
	if err != nil {
		log.Printf("Failed to load leaderboard: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// GetPlayerRank returns one player's leaderboard position.
// GET /api/leaderboard/{playerId}
func (h *LeaderboardHandler) GetPlayerRank(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	entry, err := h.board.PlayerRank(ctx, playerID)
	if err != nil {
		log.Printf("Failed to load rank for player %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load rank")
		return
	}
	if entry == nil {
		respondWithError(w, http.StatusNotFound, "Player is not ranked")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}
