package tier

import "sort"

// Band is one tier of the ladder. The band spans [Floor, next band's Floor);
// the top band has no ceiling.
type Band struct {
	Name      string `json:"name"`
	Floor     int    `json:"floor"`
	Divisions int    `json:"divisions"`
}

// Rank is the human-facing label derived from a rating.
type Rank struct {
	Tier     string `json:"tier"`
	Division string `json:"division,omitempty"`
}

func (r Rank) String() string {
	if r.Division == "" {
		return r.Tier
	}
	return r.Tier + " " + r.Division
}

// Table is an ascending list of bands.
type Table struct {
	bands []Band
}

var divisionNames = []string{"I", "II", "III", "IV", "V"}

// DefaultBands is the production ladder.
func DefaultBands() []Band {
	return []Band{
		{Name: "Bronze", Floor: 0, Divisions: 3},
		{Name: "Silver", Floor: 800, Divisions: 3},
		{Name: "Gold", Floor: 1100, Divisions: 3},
		{Name: "Platinum", Floor: 1400, Divisions: 3},
		{Name: "Diamond", Floor: 1700, Divisions: 3},
		{Name: "Master", Floor: 2000, Divisions: 3},
		{Name: "Grandmaster", Floor: 2300, Divisions: 3},
		{Name: "Legend", Floor: 2600},
	}
}

// NewTable sorts the bands by floor. An empty list falls back to DefaultBands.
func NewTable(bands []Band) *Table {
	if len(bands) == 0 {
		bands = DefaultBands()
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Floor < sorted[j].Floor })
	for i := range sorted {
		if sorted[i].Divisions > len(divisionNames) {
			sorted[i].Divisions = len(divisionNames)
		}
	}
	return &Table{bands: sorted}
}

// Bands returns a copy of the ladder in ascending order.
func (t *Table) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands)
	return out
}

// Classify maps a rating to its tier and division. Division I sits nearest
// the tier's ceiling.
func (t *Table) Classify(rating int) Rank {
	idx := 0
	for i, b := range t.bands {
		if rating >= b.Floor {
			idx = i
		}
	}
	band := t.bands[idx]

	if rating < band.Floor {
		return Rank{Tier: band.Name, Division: lowestDivision(band)}
	}
	if idx == len(t.bands)-1 || band.Divisions <= 1 {
		return Rank{Tier: band.Name}
	}

	ceiling := t.bands[idx+1].Floor
	width := float64(ceiling-band.Floor) / float64(band.Divisions)
	step := int(float64(rating-band.Floor) / width)
	if step >= band.Divisions {
		step = band.Divisions - 1
	}
	// step 0 is the bottom of the band, which is the highest division number
	return Rank{Tier: band.Name, Division: divisionNames[band.Divisions-1-step]}
}

func lowestDivision(b Band) string {
	if b.Divisions <= 1 {
		return ""
	}
	return divisionNames[b.Divisions-1]
}
