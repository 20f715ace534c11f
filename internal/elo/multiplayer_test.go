package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistribute_TwoPlayersMatchesDuel(t *testing.T) {
	c := newTestCalculator()

	results, err := c.Distribute([]Entry{
		{PlayerID: "a", Rating: 1500, GamesPlayed: 50, Placement: 1, Streak: 1},
		{PlayerID: "b", Rating: 1500, GamesPlayed: 50, Placement: 2},
	}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].PlayerID)
	assert.True(t, results[0].Won)
	assert.Equal(t, 16, results[0].RatingChange)
	assert.Equal(t, -16, results[1].RatingChange)
}

func TestDistribute_TwoPlayersSamePlacementRejected(t *testing.T) {
	c := newTestCalculator()

	_, err := c.Distribute([]Entry{
		{PlayerID: "a", Rating: 1500, Placement: 1},
		{PlayerID: "b", Rating: 1500, Placement: 1},
	}, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDistribute_EqualLobby(t *testing.T) {
	c := newTestCalculator()

	entries := []Entry{
		{PlayerID: "p1", Rating: 1500, GamesPlayed: 60, Placement: 1},
		{PlayerID: "p2", Rating: 1500, GamesPlayed: 60, Placement: 2},
		{PlayerID: "p3", Rating: 1500, GamesPlayed: 60, Placement: 3},
		{PlayerID: "p4", Rating: 1500, GamesPlayed: 60, Placement: 4},
	}
	results, err := c.Distribute(entries, false)
	require.NoError(t, err)

	// K=32, E=0.5 per pairing, weight 1/3.
	assert.Equal(t, 16, results[0].RatingChange)
	assert.Equal(t, 5, results[1].RatingChange)
	assert.Equal(t, -5, results[2].RatingChange)
	assert.Equal(t, -16, results[3].RatingChange)

	assert.True(t, results[0].Won)
	for _, r := range results[1:] {
		assert.False(t, r.Won)
		assert.Nil(t, r.MarginBonus)
	}

	assert.InDelta(t, 1.0, results[0].ActualScore, 1e-9)
	assert.InDelta(t, 0.0, results[3].ActualScore, 1e-9)
	assert.InDelta(t, 0.5, results[1].ExpectedScore, 1e-9)
}

func TestDistribute_MovementComparableToDuel(t *testing.T) {
	c := newTestCalculator()

	for n := 3; n <= 16; n++ {
		entries := make([]Entry, n)
		for i := range entries {
			entries[i] = Entry{PlayerID: string(rune('a' + i)), Rating: 1500, GamesPlayed: 80, Placement: i + 1}
		}
		results, err := c.Distribute(entries, false)
		require.NoError(t, err)

		assert.LessOrEqual(t, results[0].RatingChange, 16, "lobby of %d", n)
		assert.GreaterOrEqual(t, results[n-1].RatingChange, -16, "lobby of %d", n)
	}
}

func TestDistribute_MarginOnlyForOutrightWinner(t *testing.T) {
	c := newTestCalculator()

	entries := []Entry{
		{PlayerID: "w", Rating: 1500, GamesPlayed: 60, Placement: 1, Votes: 6, Streak: 5},
		{PlayerID: "r", Rating: 1500, GamesPlayed: 60, Placement: 2, Votes: 0},
		{PlayerID: "x", Rating: 1500, GamesPlayed: 60, Placement: 3, Votes: 0},
	}
	plain, err := c.Distribute(entries, false)
	require.NoError(t, err)
	withMargin, err := c.Distribute(entries, true)
	require.NoError(t, err)

	require.NotNil(t, withMargin[0].MarginBonus)
	assert.Equal(t, 5, *withMargin[0].MarginBonus)
	assert.Equal(t, 6, withMargin[0].StreakBonus)
	assert.Equal(t, plain[0].RatingChange+5, withMargin[0].RatingChange)
	assert.Nil(t, withMargin[1].MarginBonus)
	assert.Equal(t, plain[1].RatingChange, withMargin[1].RatingChange)
}

func TestDistribute_SharedFirstPlace(t *testing.T) {
	c := newTestCalculator()

	results, err := c.Distribute([]Entry{
		{PlayerID: "a", Rating: 1500, GamesPlayed: 60, Placement: 1, Votes: 3},
		{PlayerID: "b", Rating: 1500, GamesPlayed: 60, Placement: 1, Votes: 3},
		{PlayerID: "c", Rating: 1500, GamesPlayed: 60, Placement: 3, Votes: 0},
	}, true)
	require.NoError(t, err)

	assert.True(t, results[0].Won)
	assert.True(t, results[1].Won)
	assert.Nil(t, results[0].MarginBonus)
	assert.Equal(t, results[0].RatingChange, results[1].RatingChange)
	assert.Less(t, results[2].RatingChange, 0)
}

func TestDistribute_BoundsAndValidation(t *testing.T) {
	c := newTestCalculator()
	p := c.Params()

	results, err := c.Distribute([]Entry{
		{PlayerID: "top", Rating: 100, GamesPlayed: 0, Placement: 1},
		{PlayerID: "mid", Rating: 3990, GamesPlayed: 0, Placement: 3},
		{PlayerID: "low", Rating: 110, GamesPlayed: 0, Placement: 2},
	}, false)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.NewRating, p.MinRating)
		assert.LessOrEqual(t, r.NewRating, p.MaxRating)
	}

	_, err = c.Distribute([]Entry{{PlayerID: "solo", Rating: 1200, Placement: 1}}, false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.Distribute([]Entry{
		{PlayerID: "a", Rating: 1200, Placement: 1},
		{PlayerID: "b", Rating: 1200, Placement: 0},
		{PlayerID: "c", Rating: 1200, Placement: 2},
	}, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
