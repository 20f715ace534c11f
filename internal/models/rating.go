package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlayerRatingRecord is the per-player rating state. It is created on a
// player's first ranked game and only ever mutated by the rating updater.
type PlayerRatingRecord struct {
	PlayerID        string     `json:"playerId" bson:"_id"`
	Rating          int        `json:"rating" bson:"rating"`
	GamesPlayed     int        `json:"gamesPlayed" bson:"gamesPlayed"`
	Wins            int        `json:"wins" bson:"wins"`
	Losses          int        `json:"losses" bson:"losses"`
	WinStreak       int        `json:"winStreak" bson:"winStreak"`
	LossStreak      int        `json:"lossStreak" bson:"lossStreak"`
	PeakRating      int        `json:"peakRating" bson:"peakRating"`
	RatingDeviation float64    `json:"ratingDeviation" bson:"ratingDeviation"`
	LastGameDate    *time.Time `json:"lastGameDate,omitempty" bson:"lastGameDate,omitempty"`
	LastMatchID     string     `json:"lastMatchId,omitempty" bson:"lastMatchId,omitempty"`
	Version         int64      `json:"-" bson:"version"` // optimistic concurrency counter, 0 = never stored
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// NewPlayerRatingRecord returns the default record for a first-time player.
func NewPlayerRatingRecord(playerID string, rating int, rd float64, now time.Time) *PlayerRatingRecord {
	return &PlayerRatingRecord{
		PlayerID:        playerID,
		Rating:          rating,
		PeakRating:      rating,
		RatingDeviation: rd,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RatingUpdateResult is what a single player gets out of one match.
type RatingUpdateResult struct {
	PlayerID        string  `json:"playerId"`
	MatchID         string  `json:"matchId"`
	OldRating       int     `json:"oldRating"`
	NewRating       int     `json:"newRating"`
	RatingChange    int     `json:"ratingChange"`
	ExpectedScore   float64 `json:"expectedScore"`
	ActualScore     float64 `json:"actualScore"`
	Coefficient     int     `json:"coefficient"`
	IsPlacement     bool    `json:"isPlacement"`
	StreakBonus     int     `json:"streakBonus,omitempty"`
	MarginBonus     *int    `json:"marginBonus,omitempty"`
	WinStreak       int     `json:"winStreak"`
	LossStreak      int     `json:"lossStreak"`
	RatingDeviation float64 `json:"ratingDeviation"`
	Tier            string  `json:"tier,omitempty"`
}

// OpponentSnapshot records who a player was rated against.
type OpponentSnapshot struct {
	PlayerID  string `json:"playerId" bson:"playerId"`
	Rating    int    `json:"rating" bson:"rating"`
	Placement int    `json:"placement" bson:"placement"`
}

// RatingHistoryEntry is an immutable row in the rating_history collection.
type RatingHistoryEntry struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MatchID       string             `json:"matchId" bson:"matchId"`
	PlayerID      string             `json:"playerId" bson:"playerId"`
	OldRating     int                `json:"oldRating" bson:"oldRating"`
	NewRating     int                `json:"newRating" bson:"newRating"`
	Delta         int                `json:"delta" bson:"delta"`
	Coefficient   int                `json:"coefficient" bson:"coefficient"`
	ExpectedScore float64            `json:"expectedScore" bson:"expectedScore"`
	ActualScore   float64            `json:"actualScore" bson:"actualScore"`
	IsPlacement   bool               `json:"isPlacement" bson:"isPlacement"`
	StreakBonus   int                `json:"streakBonus" bson:"streakBonus"`
	MarginBonus   *int               `json:"marginBonus,omitempty" bson:"marginBonus,omitempty"`
	Placement     int                `json:"placement" bson:"placement"`
	Opponents     []OpponentSnapshot `json:"opponents" bson:"opponents"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

// Default values
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)
