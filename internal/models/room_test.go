package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomCandidate_CountdownElapsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	started := now.Add(-35 * time.Second)
	elapsed := RoomCandidate{CountdownStartedAt: &started, CountdownDuration: 30 * time.Second}
	assert.True(t, elapsed.CountdownElapsed(now))

	recent := now.Add(-10 * time.Second)
	running := RoomCandidate{CountdownStartedAt: &recent, CountdownDuration: 30 * time.Second}
	assert.False(t, running.CountdownElapsed(now))

	idle := RoomCandidate{}
	assert.False(t, idle.CountdownElapsed(now))
}

func TestRoomCandidate_MeanAndCapacity(t *testing.T) {
	empty := RoomCandidate{Capacity: 4}
	assert.Equal(t, 1200.0, empty.MeanRating(1200))
	assert.False(t, empty.IsFull())

	room := RoomCandidate{Capacity: 2, PlayerRatings: []int{900, 1000}}
	assert.Equal(t, 950.0, room.MeanRating(1200))
	assert.True(t, room.IsFull())
}
