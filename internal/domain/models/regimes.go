package models

// RegimeStack is the hierarchical classification of current market
// behavior. Order and Genus are placeholders until liquidity-topology and
// setup signals land. Purely derived; never mutated in place.
type RegimeStack struct {
	Universe string `json:"universe"`
	Kingdom  string `json:"kingdom"`
	Phylum   string `json:"phylum"`
	Clazz    string `json:"clazz"`
	Order    string `json:"order"`
	Family   string `json:"family"`
	Genus    string `json:"genus"`

	// Probs holds per-level confidence for the labeled levels.
	Probs map[string]float64 `json:"probs"`

	// Stability in [0,1]; low when tail risk or breakout pressure is high.
	Stability float64 `json:"stability"`
}
