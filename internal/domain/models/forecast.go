package models

import "time"

// Cone summarizes the simulated path ensemble: per-step quantile bands and
// mean, keyed by the quantile as formatted by the forecast engine.
type Cone struct {
	Bands map[string][]float64 `json:"bands"`
	Mean  []float64            `json:"mean"`

	// TouchProb is the fraction of paths whose extreme crossed the target
	// level, when a target was requested.
	TouchProb *float64 `json:"touch_prob,omitempty"`
}

// ScaleSnapshot bundles features, regimes and forecast for one scale.
// Cone is nil when there was no price history to simulate from.
type ScaleSnapshot struct {
	Scale    string          `json:"scale"`
	Features FeatureSnapshot `json:"features"`
	Regimes  RegimeStack     `json:"regimes"`
	Cone     *Cone           `json:"cone"`
}

// SnapshotRecord is the periodic output of the pipeline, emitted every Nth
// trade per instrument to the configured sinks.
type SnapshotRecord struct {
	TS        time.Time       `json:"ts"`
	Symbol    string          `json:"symbol"`
	Snapshots []ScaleSnapshot `json:"snapshots"`
}
