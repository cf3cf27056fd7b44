package models

// Scale is one zoom level of the feature engine. Windows are measured in
// trade prints, not wall time.
type Scale struct {
	Name              string  `yaml:"name" json:"name" validate:"required"`
	TradeCount        int     `yaml:"trade_count" json:"trade_count" validate:"gt=0"`
	SigmaWindowTrades int     `yaml:"sigma_window_trades" json:"sigma_window_trades" validate:"gt=0"`
	SigmaK            float64 `yaml:"sigma_k" json:"sigma_k" validate:"gt=0"`
}

// DefaultScales returns the four standard zoom levels.
func DefaultScales() []Scale {
	return []Scale{
		{Name: "micro", TradeCount: 500, SigmaWindowTrades: 2000, SigmaK: 1.0},
		{Name: "minor", TradeCount: 2000, SigmaWindowTrades: 5000, SigmaK: 1.5},
		{Name: "major", TradeCount: 8000, SigmaWindowTrades: 15000, SigmaK: 2.0},
		{Name: "macro", TradeCount: 30000, SigmaWindowTrades: 60000, SigmaK: 3.0},
	}
}
