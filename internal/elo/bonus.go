package elo

import (
	"fmt"
	"math"
)

// StreakBonus rewards a winner on a streak of three or more.
func (c *Calculator) StreakBonus(streak int) int {
	if streak < 3 {
		return 0
	}
	bonus := (streak - 2) * c.params.StreakUnit
	if bonus > c.params.MaxStreakBonus || bonus < 0 {
		// bonus < 0 only on int overflow for absurd streaks
		return c.params.MaxStreakBonus
	}
	return bonus
}

// MarginBonus scales the vote gap between first and second place onto [0, MarginMax].
func (c *Calculator) MarginBonus(m MarginInputs) (int, error) {
	if m.WinnerVotes < 0 || m.SecondPlaceVotes < 0 || m.TotalVotes < 0 {
		return 0, fmt.Errorf("%w: negative vote count", ErrInvalidInput)
	}
	if m.TotalVotes == 0 {
		return 0, nil
	}

	share := float64(m.WinnerVotes-m.SecondPlaceVotes) / float64(m.TotalVotes)
	bonus := int(math.Round(share * float64(c.params.MarginMax)))

	if bonus < 0 {
		return 0, nil
	}
	if bonus > c.params.MarginMax {
		return c.params.MarginMax, nil
	}
	return bonus, nil
}
