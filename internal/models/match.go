package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participant is one player's line in a finished match.
type Participant struct {
	PlayerID      string `json:"playerId" bson:"playerId"`
	VotesReceived int    `json:"votesReceived" bson:"votesReceived"`
	Placement     int    `json:"placement" bson:"placement"` // 1 = best
	RatingAtStart *int   `json:"ratingAtStart,omitempty" bson:"ratingAtStart,omitempty"`
}

// MatchOutcome is the finalized result handed to the rating updater.
type MatchOutcome struct {
	MatchID      string        `json:"matchId" bson:"matchId"`
	IsRanked     bool          `json:"isRanked" bson:"isRanked"`
	Participants []Participant `json:"participants" bson:"participants"`
}

// PendingStatus tracks a failed per-player update awaiting replay.
type PendingStatus string

const (
	PendingStatusQueued    PendingStatus = "queued"
	PendingStatusApplied   PendingStatus = "applied"
	PendingStatusAbandoned PendingStatus = "abandoned"
)

// PendingRatingUpdate is a per-player update that failed and will be replayed.
// Opponents pins the ratings the original attempt was computed against.
// History is set when the record was saved but its history row was not.
type PendingRatingUpdate struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	MatchID       string              `json:"matchId" bson:"matchId"`
	PlayerID      string              `json:"playerId" bson:"playerId"`
	Outcome       MatchOutcome        `json:"outcome" bson:"outcome"`
	Opponents     map[string]int      `json:"opponents" bson:"opponents"`
	History       *RatingHistoryEntry `json:"history,omitempty" bson:"history,omitempty"`
	ErrorKind     string              `json:"errorKind" bson:"errorKind"`
	LastError     string              `json:"lastError" bson:"lastError"`
	Attempts      int                 `json:"attempts" bson:"attempts"`
	Status        PendingStatus       `json:"status" bson:"status"`
	NextAttemptAt time.Time           `json:"nextAttemptAt" bson:"nextAttemptAt"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}
