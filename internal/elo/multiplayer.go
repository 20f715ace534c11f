package elo

import (
	"fmt"
	"math"
)

// Entry is one participant of a free-for-all result. Placement 1 is best.
// Streak is the win streak counting this game and is used only for winners.
type Entry struct {
	PlayerID    string
	Rating      int
	GamesPlayed int
	Streak      int
	Placement   int
	Votes       int
}

// PlayerResult pairs a computed Result with the participant it belongs to.
type PlayerResult struct {
	PlayerID string
	Won      bool
	Result
}

// Distribute rates an N-player result by round-robin pairwise comparison.
// Each pairing is weighted by 1/(N-1) so a lobby moves ratings about as much
// as a single duel. Results are returned in input order.
func (c *Calculator) Distribute(entries []Entry, withMargin bool) ([]PlayerResult, error) {
	n := len(entries)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least two participants, got %d", ErrInvalidInput, n)
	}
	best := entries[0].Placement
	for _, e := range entries {
		if e.Placement < 1 || e.Rating < 0 || e.GamesPlayed < 0 || e.Streak < 0 || e.Votes < 0 {
			return nil, fmt.Errorf("%w: participant %q", ErrInvalidInput, e.PlayerID)
		}
		if e.Placement < best {
			best = e.Placement
		}
	}

	if n == 2 {
		return c.duel(entries, best, withMargin)
	}

	margin, outright := c.multiplayerMargin(entries, best)

	ratings := make([]int, n)
	coeffs := make([]int, n)
	classes := make([]CoefficientClass, n)
	for i, e := range entries {
		ratings[i] = c.Clamp(e.Rating)
		coeffs[i], classes[i] = c.Coefficient(ratings[i], e.GamesPlayed)
	}

	weight := 1.0 / float64(n-1)
	acc := make([]float64, n)
	expected := make([]float64, n)
	actual := make([]float64, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ei := ExpectedScore(ratings[i], ratings[j])
			ej := 1.0 - ei
			expected[i] += ei * weight
			expected[j] += ej * weight

			pi, pj := entries[i].Placement, entries[j].Placement
			switch {
			case pi < pj:
				acc[i] += float64(coeffs[i]) * (1.0 - ei) * weight
				acc[j] += float64(coeffs[j]) * (0.0 - ej) * weight
				actual[i] += weight
			case pj < pi:
				acc[j] += float64(coeffs[j]) * (1.0 - ej) * weight
				acc[i] += float64(coeffs[i]) * (0.0 - ei) * weight
				actual[j] += weight
			default:
				// shared placement exchanges no rating
				actual[i] += 0.5 * weight
				actual[j] += 0.5 * weight
			}
		}
	}

	out := make([]PlayerResult, n)
	for i, e := range entries {
		won := e.Placement == best
		change := int(math.Round(acc[i]))

		res := Result{
			OldRating:     ratings[i],
			ExpectedScore: expected[i],
			ActualScore:   actual[i],
			Coefficient:   coeffs[i],
			Class:         classes[i],
			IsPlacement:   classes[i] == ClassPlacement,
		}

		if won {
			res.StreakBonus = c.StreakBonus(e.Streak)
			change += res.StreakBonus
			if withMargin && outright {
				bonus := margin
				res.MarginBonus = &bonus
				change += bonus
			}
		}

		res.NewRating = c.Clamp(ratings[i] + change)
		res.RatingChange = res.NewRating - ratings[i]
		out[i] = PlayerResult{PlayerID: e.PlayerID, Won: won, Result: res}
	}

	return out, nil
}

// duel routes a two-entry result through the one-on-one path.
func (c *Calculator) duel(entries []Entry, best int, withMargin bool) ([]PlayerResult, error) {
	a, b := entries[0], entries[1]
	if a.Placement == b.Placement {
		return nil, fmt.Errorf("%w: two-player result needs distinct placements", ErrInvalidInput)
	}

	var margin *MarginInputs
	if withMargin {
		w, l := a, b
		if b.Placement == best {
			w, l = b, a
		}
		margin = &MarginInputs{
			WinnerVotes:      w.Votes,
			SecondPlaceVotes: l.Votes,
			TotalVotes:       w.Votes + l.Votes,
		}
	}

	out := make([]PlayerResult, 2)
	for i, pair := range [][2]Entry{{a, b}, {b, a}} {
		self, opp := pair[0], pair[1]
		won := self.Placement == best
		in := UpdateInput{
			PlayerRating:   self.Rating,
			OpponentRating: opp.Rating,
			Won:            won,
			GamesPlayed:    self.GamesPlayed,
			CurrentStreak:  self.Streak,
		}
		if won {
			in.Margin = margin
		}
		res, err := c.ComputeUpdate(in)
		if err != nil {
			return nil, err
		}
		out[i] = PlayerResult{PlayerID: self.PlayerID, Won: won, Result: res}
	}
	return out, nil
}

// multiplayerMargin computes the outright winner's bonus against the runner-up.
// outright is false when placement 1 is shared.
func (c *Calculator) multiplayerMargin(entries []Entry, best int) (int, bool) {
	winners := 0
	winnerVotes, total := 0, 0
	runnerUp, runnerUpVotes := 0, 0

	for _, e := range entries {
		total += e.Votes
		if e.Placement == best {
			winners++
			winnerVotes = e.Votes
			continue
		}
		switch {
		case runnerUp == 0 || e.Placement < runnerUp:
			runnerUp, runnerUpVotes = e.Placement, e.Votes
		case e.Placement == runnerUp && e.Votes > runnerUpVotes:
			runnerUpVotes = e.Votes
		}
	}
	if winners != 1 {
		return 0, false
	}

	bonus, err := c.MarginBonus(MarginInputs{
		WinnerVotes:      winnerVotes,
		SecondPlaceVotes: runnerUpVotes,
		TotalVotes:       total,
	})
	if err != nil {
		return 0, false
	}
	return bonus, true
}
