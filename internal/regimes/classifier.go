package regimes

import (
	"ConeCast/internal/domain/models"
	"ConeCast/pkg/stats"
)

// Classifier assigns regime stacks from feature snapshots with a fixed
// set of thresholds. Side-effect free and deterministic.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a classifier; zero thresholds fall back to the
// defaults.
func NewClassifier(t Thresholds) *Classifier {
	if t == (Thresholds{}) {
		t = DefaultThresholds()
	}
	return &Classifier{t: t}
}

// Classify resolves the full regime stack for one feature snapshot.
func (c *Classifier) Classify(f models.FeatureSnapshot) models.RegimeStack {
	universe := "neutral"
	if f.FundingZ > 0.25 && f.VolPercentile < 0.75 {
		universe = "risk_on"
	}
	if f.TailRisk > 0.7 && f.VolPercentile > 0.75 {
		universe = "risk_off"
	}

	kingdom, kp := c.t.kingdom(f)
	phylum, pp := c.t.phylum(f)
	clazz, cp := c.t.clazz(f)
	family, fp := c.t.family(f)

	stability := stats.Clamp(1.0-(f.TailRisk*0.6+f.BreakoutProb*0.4), 0, 1)

	return models.RegimeStack{
		Universe: universe,
		Kingdom:  kingdom,
		Phylum:   phylum,
		Clazz:    clazz,
		// pending liquidity-topology and setup signals
		Order:  "liquidity_topology_pending",
		Family: family,
		Genus:  "setup_pending",
		Probs: map[string]float64{
			"universe": 0.6,
			"kingdom":  kp,
			"phylum":   pp,
			"clazz":    cp,
			"family":   fp,
		},
		Stability: stability,
	}
}
