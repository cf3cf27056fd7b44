package models

// FeatureSnapshot is the full feature vector for one (instrument, scale)
// pair, recomputed on demand from buffered history. Fixed named fields so
// the classifier and field builders are checked at compile time.
type FeatureSnapshot struct {
	Scale     string  `json:"scale"`
	NTrades   int     `json:"n_trades"`
	LastPrice float64 `json:"last_price"`

	RetSD               float64 `json:"ret_sd"`
	RetMu               float64 `json:"ret_mu"`
	DirectionalStrength float64 `json:"directional_strength"`
	MeanReversionScore  float64 `json:"mean_reversion_score"`
	CVDSlope            float64 `json:"cvd_slope"`
	ProgressSigma       float64 `json:"progress_sigma"`
	VolMult             float64 `json:"vol_mult"`
	TailRisk            float64 `json:"tail_risk"`
	VolPercentile       float64 `json:"vol_percentile"`
	BreakoutProb        float64 `json:"breakout_prob"`

	Funding         float64 `json:"funding"`
	FundingZ        float64 `json:"funding_z"`
	OI              float64 `json:"oi"`
	OIZ             float64 `json:"oi_z"`
	Basis           float64 `json:"basis"`
	BasisZ          float64 `json:"basis_z"`
	BasisPercentile float64 `json:"basis_percentile"`

	SqueezeScore      float64 `json:"squeeze_score"`
	DeleveragingScore float64 `json:"deleveraging_score"`
	ImpulseScore      float64 `json:"impulse_score"`
	ExhaustionScore   float64 `json:"exhaustion_score"`
	StopRunScore      float64 `json:"stoprun_score"`

	BookImbalance float64 `json:"book_imbalance"`
}

// BookSnapshot is the last stored order book for an instrument.
type BookSnapshot struct {
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
	DepthN int         `json:"depth_n"`
}
