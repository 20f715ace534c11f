package elo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for negative or otherwise malformed numeric inputs.
// Callers are expected to validate before reaching the calculator.
var ErrInvalidInput = errors.New("invalid rating input")

// Params is the canonical constant table for the rating engine.
type Params struct {
	MinRating     int
	MaxRating     int
	InitialRating int

	PlacementGames   int
	ProvisionalGames int
	HighThreshold    int
	MasterThreshold  int

	PlacementK   int
	ProvisionalK int
	NormalK      int
	HighK        int
	MasterK      int

	StreakUnit     int
	MaxStreakBonus int
	MarginMax      int
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		MinRating:     100,
		MaxRating:     4000,
		InitialRating: 1200,

		PlacementGames:   10,
		ProvisionalGames: 30,
		HighThreshold:    2000,
		MasterThreshold:  2400,

		PlacementK:   48,
		ProvisionalK: 40,
		NormalK:      32,
		HighK:        24,
		MasterK:      16,

		StreakUnit:     2,
		MaxStreakBonus: 10,
		MarginMax:      5,
	}
}

// MarginInputs carries the vote counts used for the margin-of-victory bonus.
type MarginInputs struct {
	WinnerVotes      int
	SecondPlaceVotes int
	TotalVotes       int
}

// UpdateInput describes one player's side of a one-on-one result.
// CurrentStreak is the player's win streak counting this game; it only
// matters when Won is true.
type UpdateInput struct {
	PlayerRating   int
	OpponentRating int
	Won            bool
	GamesPlayed    int
	CurrentStreak  int
	Margin         *MarginInputs
}

// Result is the outcome of a rating computation for one player.
type Result struct {
	OldRating     int
	NewRating     int
	RatingChange  int
	ExpectedScore float64
	ActualScore   float64
	Coefficient   int
	Class         CoefficientClass
	IsPlacement   bool
	StreakBonus   int
	MarginBonus   *int
}

type Calculator struct {
	params Params
	ladder []coefficientRule
}

func NewCalculator(params Params) *Calculator {
	return &Calculator{
		params: params,
		ladder: buildLadder(params),
	}
}

// Params returns the constant table this calculator was built with.
func (c *Calculator) Params() Params {
	return c.params
}

// ExpectedScore calculates the expected score using the Elo formula
// E = 1 / (1 + 10^((OpponentRating - PlayerRating) / 400))
func ExpectedScore(playerRating, opponentRating int) float64 {
	exponent := float64(opponentRating-playerRating) / 400.0
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// ComputeUpdate calculates a single player's rating change for a one-on-one result.
func (c *Calculator) ComputeUpdate(in UpdateInput) (Result, error) {
	if in.PlayerRating < 0 || in.OpponentRating < 0 || in.GamesPlayed < 0 || in.CurrentStreak < 0 {
		return Result{}, fmt.Errorf("%w: negative rating, games or streak", ErrInvalidInput)
	}

	oldRating := c.Clamp(in.PlayerRating)
	opponent := c.Clamp(in.OpponentRating)

	k, class := c.Coefficient(oldRating, in.GamesPlayed)
	expected := ExpectedScore(oldRating, opponent)

	actual := 0.0
	if in.Won {
		actual = 1.0
	}

	// ΔR = K × (S - E)
	change := int(math.Round(float64(k) * (actual - expected)))

	res := Result{
		OldRating:     oldRating,
		ExpectedScore: expected,
		ActualScore:   actual,
		Coefficient:   k,
		Class:         class,
		IsPlacement:   class == ClassPlacement,
	}

	if in.Won {
		res.StreakBonus = c.StreakBonus(in.CurrentStreak)
		change += res.StreakBonus

		if in.Margin != nil {
			bonus, err := c.MarginBonus(*in.Margin)
			if err != nil {
				return Result{}, err
			}
			res.MarginBonus = &bonus
			change += bonus
		}
	}

	res.NewRating = c.Clamp(oldRating + change)
	res.RatingChange = res.NewRating - oldRating
	return res, nil
}

// Clamp enforces the rating bounds.
func (c *Calculator) Clamp(rating int) int {
	if rating < c.params.MinRating {
		return c.params.MinRating
	}
	if rating > c.params.MaxRating {
		return c.params.MaxRating
	}
	return rating
}

// NextStreaks applies reset-on-win/reset-on-loss semantics.
func NextStreaks(winStreak, lossStreak int, won bool) (int, int) {
	if won {
		return winStreak + 1, 0
	}
	return 0, lossStreak + 1
}
