package elo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator() *Calculator {
	return NewCalculator(DefaultParams())
}

func TestExpectedScore_Symmetric(t *testing.T) {
	pairs := [][2]int{
		{1500, 1500}, {100, 4000}, {1200, 1650}, {2400, 2399}, {0, 0}, {3999, 101},
	}
	for _, p := range pairs {
		sum := ExpectedScore(p[0], p[1]) + ExpectedScore(p[1], p[0])
		assert.InDelta(t, 1.0, sum, 1e-9, "ratings %v", p)
	}
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-12)
}

func TestComputeUpdate_EvenMatch(t *testing.T) {
	c := newTestCalculator()

	winner, err := c.ComputeUpdate(UpdateInput{PlayerRating: 1500, OpponentRating: 1500, Won: true, GamesPlayed: 50})
	require.NoError(t, err)
	loser, err := c.ComputeUpdate(UpdateInput{PlayerRating: 1500, OpponentRating: 1500, Won: false, GamesPlayed: 50})
	require.NoError(t, err)

	assert.Equal(t, 32, winner.Coefficient)
	assert.Equal(t, 16, winner.RatingChange)
	assert.Equal(t, 1516, winner.NewRating)
	assert.Equal(t, -16, loser.RatingChange)
	assert.Nil(t, loser.MarginBonus)
	assert.False(t, winner.IsPlacement)
}

func TestComputeUpdate_PlacementUpset(t *testing.T) {
	c := newTestCalculator()

	res, err := c.ComputeUpdate(UpdateInput{PlayerRating: 1200, OpponentRating: 2000, Won: true, GamesPlayed: 5})
	require.NoError(t, err)

	assert.True(t, res.IsPlacement)
	assert.Equal(t, ClassPlacement, res.Class)
	assert.Greater(t, res.RatingChange, 40)
}

func TestComputeUpdate_DominantWinWithStreak(t *testing.T) {
	c := newTestCalculator()

	plain, err := c.ComputeUpdate(UpdateInput{PlayerRating: 1500, OpponentRating: 1500, Won: true, GamesPlayed: 50})
	require.NoError(t, err)

	res, err := c.ComputeUpdate(UpdateInput{
		PlayerRating:   1500,
		OpponentRating: 1500,
		Won:            true,
		GamesPlayed:    50,
		CurrentStreak:  5,
		Margin:         &MarginInputs{WinnerVotes: 5, SecondPlaceVotes: 0, TotalVotes: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, res.StreakBonus)
	require.NotNil(t, res.MarginBonus)
	assert.Equal(t, 5, *res.MarginBonus)
	assert.Equal(t, plain.RatingChange+11, res.RatingChange)
}

func TestComputeUpdate_LoserGetsNoBonuses(t *testing.T) {
	c := newTestCalculator()

	res, err := c.ComputeUpdate(UpdateInput{
		PlayerRating:   1500,
		OpponentRating: 1500,
		Won:            false,
		GamesPlayed:    50,
		CurrentStreak:  8,
		Margin:         &MarginInputs{WinnerVotes: 5, TotalVotes: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.StreakBonus)
	assert.Nil(t, res.MarginBonus)
	assert.Equal(t, -16, res.RatingChange)
}

func TestComputeUpdate_Bounds(t *testing.T) {
	c := newTestCalculator()
	p := c.Params()

	low, err := c.ComputeUpdate(UpdateInput{PlayerRating: 150, OpponentRating: 2000, Won: false, GamesPlayed: 0})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, low.NewRating, p.MinRating)

	floor, err := c.ComputeUpdate(UpdateInput{PlayerRating: p.MinRating, OpponentRating: p.MinRating, Won: false, GamesPlayed: 3})
	require.NoError(t, err)
	assert.Equal(t, p.MinRating, floor.NewRating)

	high, err := c.ComputeUpdate(UpdateInput{
		PlayerRating:   3995,
		OpponentRating: 4000,
		Won:            true,
		GamesPlayed:    1,
		CurrentStreak:  50,
		Margin:         &MarginInputs{WinnerVotes: 9, TotalVotes: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, p.MaxRating, high.NewRating)

	for rating := 0; rating <= 5000; rating += 250 {
		for _, won := range []bool{true, false} {
			res, err := c.ComputeUpdate(UpdateInput{PlayerRating: rating, OpponentRating: 5000 - rating, Won: won, GamesPlayed: rating % 40, CurrentStreak: 4})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.NewRating, p.MinRating)
			assert.LessOrEqual(t, res.NewRating, p.MaxRating)
			assert.Equal(t, res.NewRating-res.OldRating, res.RatingChange)
		}
	}
}

func TestComputeUpdate_InvalidInput(t *testing.T) {
	c := newTestCalculator()

	cases := []UpdateInput{
		{PlayerRating: -1, OpponentRating: 1200},
		{PlayerRating: 1200, OpponentRating: 1200, GamesPlayed: -3},
		{PlayerRating: 1200, OpponentRating: 1200, CurrentStreak: -1},
		{PlayerRating: 1200, OpponentRating: 1200, Won: true, Margin: &MarginInputs{TotalVotes: -1}},
	}
	for _, in := range cases {
		_, err := c.ComputeUpdate(in)
		assert.True(t, errors.Is(err, ErrInvalidInput), "input %+v", in)
	}
}

func TestCoefficientLadder(t *testing.T) {
	c := newTestCalculator()
	p := c.Params()

	assert.Greater(t, p.PlacementK, p.ProvisionalK)
	assert.Greater(t, p.ProvisionalK, p.NormalK)
	assert.Greater(t, p.NormalK, p.HighK)
	assert.Greater(t, p.HighK, p.MasterK)

	tests := []struct {
		name   string
		rating int
		games  int
		want   CoefficientClass
	}{
		{"placement at low rating", 800, 0, ClassPlacement},
		{"placement ignores master rating", 3000, 9, ClassPlacement},
		{"provisional first game", 1200, 10, ClassProvisional},
		{"provisional ignores high rating", 2200, 29, ClassProvisional},
		{"master", 2400, 30, ClassMaster},
		{"high", 2000, 100, ClassHigh},
		{"just below high", 1999, 100, ClassNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, class := c.Coefficient(tt.rating, tt.games)
			assert.Equal(t, tt.want, class)
		})
	}
}

func TestStreakBonus(t *testing.T) {
	c := newTestCalculator()
	p := c.Params()

	assert.Equal(t, 0, c.StreakBonus(0))
	assert.Equal(t, 0, c.StreakBonus(2))
	assert.Equal(t, 2, c.StreakBonus(3))
	assert.Equal(t, 6, c.StreakBonus(5))

	prev := 0
	for streak := 3; streak <= 1000; streak++ {
		bonus := c.StreakBonus(streak)
		assert.GreaterOrEqual(t, bonus, prev)
		assert.LessOrEqual(t, bonus, p.MaxStreakBonus)
		prev = bonus
	}
	assert.Equal(t, p.MaxStreakBonus, c.StreakBonus(1000))
}

func TestMarginBonus(t *testing.T) {
	c := newTestCalculator()
	p := c.Params()

	zero, err := c.MarginBonus(MarginInputs{WinnerVotes: 0, SecondPlaceVotes: 0, TotalVotes: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, zero)

	for total := 1; total <= 12; total++ {
		unanimous, err := c.MarginBonus(MarginInputs{WinnerVotes: total, SecondPlaceVotes: 0, TotalVotes: total})
		require.NoError(t, err)
		assert.Equal(t, p.MarginMax, unanimous)

		for w := 0; w <= total; w++ {
			for s := 0; s+w <= total; s++ {
				bonus, err := c.MarginBonus(MarginInputs{WinnerVotes: w, SecondPlaceVotes: s, TotalVotes: total})
				require.NoError(t, err)
				assert.GreaterOrEqual(t, bonus, 0)
				assert.LessOrEqual(t, bonus, p.MarginMax)
			}
		}
	}

	_, err = c.MarginBonus(MarginInputs{WinnerVotes: -2, TotalVotes: 3})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNextStreaks(t *testing.T) {
	win, loss := NextStreaks(0, 4, true)
	assert.Equal(t, 1, win)
	assert.Equal(t, 0, loss)

	win, loss = NextStreaks(7, 0, false)
	assert.Equal(t, 0, win)
	assert.Equal(t, 1, loss)

	w, l := 0, 0
	for i, won := range []bool{true, true, false, true, false, false} {
		w, l = NextStreaks(w, l, won)
		assert.True(t, (w == 0) != (l == 0), "step %d: win=%d loss=%d", i, w, l)
	}
}
