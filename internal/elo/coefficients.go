package elo

// CoefficientClass names the rung of the K-factor ladder that applied to an update.
type CoefficientClass string

const (
	ClassPlacement   CoefficientClass = "placement"
	ClassProvisional CoefficientClass = "provisional"
	ClassMaster      CoefficientClass = "master"
	ClassHigh        CoefficientClass = "high"
	ClassNormal      CoefficientClass = "normal"
)

type coefficientRule struct {
	class   CoefficientClass
	applies func(rating, gamesPlayed int) bool
	k       int
}

// buildLadder orders the rules so experience always wins over rating.
// The last rule matches everything.
func buildLadder(p Params) []coefficientRule {
	return []coefficientRule{
		{
			class:   ClassPlacement,
			applies: func(_, games int) bool { return games < p.PlacementGames },
			k:       p.PlacementK,
		},
		{
			class:   ClassProvisional,
			applies: func(_, games int) bool { return games < p.ProvisionalGames },
			k:       p.ProvisionalK,
		},
		{
			class:   ClassMaster,
			applies: func(rating, _ int) bool { return rating >= p.MasterThreshold },
			k:       p.MasterK,
		},
		{
			class:   ClassHigh,
			applies: func(rating, _ int) bool { return rating >= p.HighThreshold },
			k:       p.HighK,
		},
		{
			class:   ClassNormal,
			applies: func(int, int) bool { return true },
			k:       p.NormalK,
		},
	}
}

// Coefficient returns the K-factor for a player, first matching rule wins.
func (c *Calculator) Coefficient(rating, gamesPlayed int) (int, CoefficientClass) {
	for _, rule := range c.ladder {
		if rule.applies(rating, gamesPlayed) {
			return rule.k, rule.class
		}
	}
	return c.params.NormalK, ClassNormal
}
