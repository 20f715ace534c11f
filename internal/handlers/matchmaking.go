package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"rating-engine/internal/matchmaking"
	"rating-engine/internal/models"
	"rating-engine/internal/store"
)

// RoomSelector picks rooms by rating proximity.
type RoomSelector interface {
	QuickJoin(ctx context.Context, playerID string, rating int) (string, bool, error)
	Browse(ctx context.Context, rating int) ([]matchmaking.RoomMatch, error)
}

// RecordGetter looks up a player's current rating.
type RecordGetter interface {
	GetRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error)
}

type MatchmakingHandler struct {
	selector RoomSelector
	ratings  RecordGetter
	initial  int
}

func NewMatchmakingHandler(selector RoomSelector, ratings RecordGetter, initialRating int) *MatchmakingHandler {
	return &MatchmakingHandler{
		selector: selector,
		ratings:  ratings,
		initial:  initialRating,
	}
}

type QuickJoinRequest struct {
	PlayerID string `json:"playerId"`
}

type QuickJoinResponse struct {
	RoomID  string `json:"roomId"`
	Created bool   `json:"created"`
	Rating  int    `json:"rating"`
}

// QuickJoin finds the closest ranked room for the player or opens a new one.
// POST /api/matchmaking/quick-join
func (h *MatchmakingHandler) QuickJoin(w http.ResponseWriter, r *http.Request) {
	var req QuickJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondWithError(w, http.StatusBadRequest, "Player ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rating, err := h.currentRating(ctx, req.PlayerID)
	if err != nil {
		log.Printf("Quick join: failed to load rating for %s: %v", req.PlayerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load rating")
		return
	}

	roomID, created, err := h.selector.QuickJoin(ctx, req.PlayerID, rating)
	if err != nil {
		log.Printf("Quick join failed for %s: %v", req.PlayerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to find a room")
		return
	}

	respondWithJSON(w, http.StatusOK, QuickJoinResponse{
		RoomID:  roomID,
		Created: created,
		Rating:  rating,
	})
}

// Browse lists ranked rooms close to the player's rating.
// GET /api/matchmaking/browse?playerId=...
func (h *MatchmakingHandler) Browse(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		respondWithError(w, http.StatusBadRequest, "Player ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rating, err := h.currentRating(ctx, playerID)
	if err != nil {
		log.Printf("Browse: failed to load rating for %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load rating")
		return
	}

	rooms, err := h.selector.Browse(ctx, rating)
	if err != nil {
		log.Printf("Browse failed for %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list rooms")
		return
	}

	respondWithJSON(w, http.StatusOK, rooms)
}

func (h *MatchmakingHandler) currentRating(ctx context.Context, playerID string) (int, error) {
	rec, err := h.ratings.GetRecord(ctx, playerID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return h.initial, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Rating, nil
}
