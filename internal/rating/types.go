package rating

// DefaultK is the volatility constant used when no model is configured.
const DefaultK = 32

// Tier is a named rating bracket with an inclusive lower threshold.
type Tier struct {
	Name      string `json:"name" yaml:"name"`
	MinRating int    `json:"min_rating" yaml:"min_rating"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Progress describes where a rating sits inside its tier bracket.
type Progress struct {
	Current Tier  `json:"current"`
	Next    *Tier `json:"next,omitempty"`
	Percent int   `json:"percent"`
}

// Model computes rating changes for a settled match.
type Model struct {
	K float64
}
