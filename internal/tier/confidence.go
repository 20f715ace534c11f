package tier

import "math"

type Confidence string

const (
	Uncertain  Confidence = "Uncertain"
	Developing Confidence = "Developing"
	Moderate   Confidence = "Moderate"
	Confident  Confidence = "Confident"
)

// DeviationParams bounds the rating deviation and controls how it moves.
type DeviationParams struct {
	MinRD         float64 `json:"minRd"`
	MaxRD         float64 `json:"maxRd"`
	InitialRD     float64 `json:"initialRd"`
	DecayPerDay   float64 `json:"decayPerDay"`
	ShrinkPerGame float64 `json:"shrinkPerGame"`
}

func DefaultDeviationParams() DeviationParams {
	return DeviationParams{
		MinRD:         50,
		MaxRD:         350,
		InitialRD:     350,
		DecayPerDay:   5,
		ShrinkPerGame: 10,
	}
}

var confidenceLadder = []struct {
	min   float64
	label Confidence
}{
	{250, Uncertain},
	{150, Developing},
	{100, Moderate},
}

// ConfidenceLevel labels a rating deviation, evaluated high to low.
func ConfidenceLevel(rd float64) Confidence {
	for _, step := range confidenceLadder {
		if rd >= step.min {
			return step.label
		}
	}
	return Confident
}

// DecayRD grows the deviation for inactivity, capped at MaxRD.
func (p DeviationParams) DecayRD(rd, daysSinceLastGame float64) float64 {
	if daysSinceLastGame < 0 {
		daysSinceLastGame = 0
	}
	return p.clamp(math.Min(rd+daysSinceLastGame*p.DecayPerDay, p.MaxRD))
}

// ShrinkRD tightens the deviation after a completed game.
func (p DeviationParams) ShrinkRD(rd float64) float64 {
	return p.clamp(math.Max(rd-p.ShrinkPerGame, p.MinRD))
}

func (p DeviationParams) clamp(rd float64) float64 {
	return math.Max(p.MinRD, math.Min(rd, p.MaxRD))
}
