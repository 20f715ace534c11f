package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rating-engine/internal/elo"
	"rating-engine/internal/store"
)

// ErrorKind names the class of a per-player update failure.
type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindRecordNotFound      ErrorKind = "RecordNotFound"
	KindPersistenceConflict ErrorKind = "PersistenceConflict"
	KindPersistenceTimeout  ErrorKind = "PersistenceTimeout"
	KindPersistenceFailed   ErrorKind = "PersistenceFailed"
)

// UpdateError describes why one player's update did not land. The rest of the
// match is unaffected.
type UpdateError struct {
	Kind            ErrorKind
	PlayerID        string
	MatchID         string
	OldRating       int
	AttemptedRating *int
	Retryable       bool
	Err             error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("rating update for player %s in match %s failed (%s): %v", e.PlayerID, e.MatchID, e.Kind, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

func (e *UpdateError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind            ErrorKind `json:"kind"`
		PlayerID        string    `json:"playerId"`
		MatchID         string    `json:"matchId"`
		OldRating       int       `json:"oldRating"`
		AttemptedRating *int      `json:"attemptedRating,omitempty"`
		Retryable       bool      `json:"retryable"`
		Error           string    `json:"error"`
	}{e.Kind, e.PlayerID, e.MatchID, e.OldRating, e.AttemptedRating, e.Retryable, e.Err.Error()})
}

func newUpdateError(matchID, playerID string, oldRating int, attempted *int, err error) *UpdateError {
	kind, retryable := classify(err)
	return &UpdateError{
		Kind:            kind,
		PlayerID:        playerID,
		MatchID:         matchID,
		OldRating:       oldRating,
		AttemptedRating: attempted,
		Retryable:       retryable,
		Err:             err,
	}
}

func classify(err error) (ErrorKind, bool) {
	switch {
	case errors.Is(err, elo.ErrInvalidInput):
		return KindInvalidInput, false
	case errors.Is(err, store.ErrRecordNotFound):
		return KindRecordNotFound, false
	case errors.Is(err, store.ErrPersistenceConflict):
		return KindPersistenceConflict, true
	case isTimeout(err):
		return KindPersistenceTimeout, true
	default:
		return KindPersistenceFailed, true
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, store.ErrPersistenceTimeout) || errors.Is(err, context.DeadlineExceeded)
}
