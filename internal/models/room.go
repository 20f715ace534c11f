package models

import "time"

type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"  // Accepting players
	RoomStatusActive   RoomStatus = "active"   // Match in progress
	RoomStatusFinished RoomStatus = "finished" // Match over
)

// RoomCandidate is a read-only snapshot of a room used for matchmaking.
// Room lifecycle is owned by the room service.
type RoomCandidate struct {
	RoomID             string        `json:"roomId" bson:"_id"`
	Name               string        `json:"name,omitempty" bson:"name,omitempty"`
	IsRanked           bool          `json:"isRanked" bson:"isRanked"`
	Status             RoomStatus    `json:"status" bson:"status"`
	PlayerIDs          []string      `json:"playerIds,omitempty" bson:"playerIds"`
	PlayerRatings      []int         `json:"playerRatings" bson:"playerRatings"`
	Capacity           int           `json:"capacity" bson:"capacity"`
	CountdownStartedAt *time.Time    `json:"countdownStartedAt,omitempty" bson:"countdownStartedAt,omitempty"`
	CountdownDuration  time.Duration `json:"countdownDuration,omitempty" bson:"countdownDuration,omitempty"`
	CreatedAt          time.Time     `json:"createdAt" bson:"createdAt"`
}

// CountdownElapsed reports whether the start countdown has already run out.
func (r *RoomCandidate) CountdownElapsed(now time.Time) bool {
	if r.CountdownStartedAt == nil {
		return false
	}
	return !now.Before(r.CountdownStartedAt.Add(r.CountdownDuration))
}

// IsFull reports whether the room has no free seats.
func (r *RoomCandidate) IsFull() bool {
	return len(r.PlayerRatings) >= r.Capacity
}

// MeanRating averages the participants' ratings, or returns baseline for an empty room.
func (r *RoomCandidate) MeanRating(baseline int) float64 {
	if len(r.PlayerRatings) == 0 {
		return float64(baseline)
	}
	sum := 0
	for _, rating := range r.PlayerRatings {
		sum += rating
	}
	return float64(sum) / float64(len(r.PlayerRatings))
}

// Default values
const (
	DefaultRoomCapacity      = 8
	DefaultCountdownDuration = 30 * time.Second
)
