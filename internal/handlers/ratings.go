package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"rating-engine/internal/audit"
	"rating-engine/internal/elo"
	"rating-engine/internal/models"
	"rating-engine/internal/services"
	"rating-engine/internal/store"
	"rating-engine/internal/tier"

	"github.com/gorilla/mux"
)

// OutcomeApplier rates a finished match.
type OutcomeApplier interface {
	ApplyMatchOutcome(ctx context.Context, outcome *models.MatchOutcome) (*services.MatchUpdateReport, error)
}

// RatingReader is the read side of the rating store.
type RatingReader interface {
	GetRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error)
	ListHistory(ctx context.Context, playerID string, limit int) ([]models.RatingHistoryEntry, error)
}

type RatingHandler struct {
	updater   OutcomeApplier
	ratings   RatingReader
	tiers     *tier.Table
	deviation tier.DeviationParams
	initial   int
	audit     services.AuditLogger
	now       func() time.Time
}

func NewRatingHandler(updater OutcomeApplier, ratings RatingReader, tiers *tier.Table, deviation tier.DeviationParams, initialRating int, auditLog services.AuditLogger) *RatingHandler {
	return &RatingHandler{
		updater:   updater,
		ratings:   ratings,
		tiers:     tiers,
		deviation: deviation,
		initial:   initialRating,
		audit:     auditLog,
		now:       time.Now,
	}
}

// RatingView is a rating record with its display labels.
type RatingView struct {
	*models.PlayerRatingRecord
	Tier       string          `json:"tier"`
	Division   string          `json:"division,omitempty"`
	Label      string          `json:"label"`
	Confidence tier.Confidence `json:"confidence"`
	Rated      bool            `json:"rated"`
}

// SubmitOutcome rates a finished match.
// POST /api/matches/outcome
func (h *RatingHandler) SubmitOutcome(w http.ResponseWriter, r *http.Request) {
	var outcome models.MatchOutcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	report, err := h.updater.ApplyMatchOutcome(ctx, &outcome)
	if err != nil {
		if errors.Is(err, elo.ErrInvalidInput) {
			if h.audit != nil {
				h.audit.LogEvent(audit.EventOutcomeRejected, outcome.MatchID, "", err.Error())
			}
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Failed to apply outcome for match %s: %v", outcome.MatchID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to apply match outcome")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// GetRating returns a player's rating with tier and confidence labels. A
// player without a record gets the starting rating.
// GET /api/players/{playerId}/rating
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rec, err := h.ratings.GetRecord(ctx, playerID)
	rated := true
	if errors.Is(err, store.ErrRecordNotFound) {
		rec = models.NewPlayerRatingRecord(playerID, h.initial, h.deviation.InitialRD, time.Now())
		rated = false
		err = nil
	}
	if err != nil {
		log.Printf("Failed to load rating for player %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load rating")
		return
	}

	respondWithJSON(w, http.StatusOK, h.view(rec, rated))
}

// GetHistory returns a player's recent rating changes, newest first.
// GET /api/players/{playerId}/history?limit=50
func (h *RatingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]
	limit := queryLimit(r, models.DefaultHistoryLimit, models.MaxHistoryLimit)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	entries, err := h.ratings.ListHistory(ctx, playerID, limit)
	if err != nil {
		log.Printf("Failed to load history for player %s: %v", playerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load rating history")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// currentRD applies inactivity decay to the stored deviation, which only
// moves when the player finishes a game.
func (h *RatingHandler) currentRD(rec *models.PlayerRatingRecord) float64 {
	if rec.LastGameDate == nil {
		return rec.RatingDeviation
	}
	days := h.now().Sub(*rec.LastGameDate).Hours() / 24
	return h.deviation.DecayRD(rec.RatingDeviation, days)
}

func (h *RatingHandler) view(rec *models.PlayerRatingRecord, rated bool) RatingView {
	rank := h.tiers.Classify(rec.Rating)
	return RatingView{
		PlayerRatingRecord: rec,
		Tier:               rank.Tier,
		Division:           rank.Division,
		Label:              rank.String(),
		Confidence:         tier.ConfidenceLevel(h.currentRD(rec)),
		Rated:              rated,
	}
}
