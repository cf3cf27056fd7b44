// Package regimes assigns the hierarchical regime taxonomy from a feature
// snapshot. Classification is a pure function of its input.
package regimes

import (
	"ConeCast/internal/domain/models"
	"ConeCast/pkg/stats"
)

// Thresholds are the rule cutoffs for the primary taxonomy levels.
// Heuristic constants carried as configurable defaults.
type Thresholds struct {
	TrendStrength           float64
	MRStrength              float64
	CompressionPct          float64
	ExpansionPct            float64
	FundingZCrowded         float64
	OIZHot                  float64
	AbsorptionVolMult       float64
	AbsorptionProgressSigma float64
}

// DefaultThresholds returns the standard rule cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendStrength:           0.75,
		MRStrength:              0.60,
		CompressionPct:          0.15,
		ExpansionPct:            0.75,
		FundingZCrowded:         1.25,
		OIZHot:                  1.0,
		AbsorptionVolMult:       1.5,
		AbsorptionProgressSigma: 0.25,
	}
}

// kingdom resolves the top behavioral label. Rules evaluate top to
// bottom; the first match wins.
func (t Thresholds) kingdom(f models.FeatureSnapshot) (string, float64) {
	if f.TailRisk > 0.8 && f.DirectionalStrength > 0.7 {
		return "crash_or_melt", stats.Clamp(0.5+0.5*f.TailRisk, 0, 1)
	}
	if f.BreakoutProb > 0.75 {
		return "breakout", f.BreakoutProb
	}
	if f.DirectionalStrength > t.TrendStrength && f.MeanReversionScore < 0.45 {
		return "trend", stats.Clamp(f.DirectionalStrength, 0, 1)
	}
	if f.MeanReversionScore > t.MRStrength && f.DirectionalStrength < 0.55 {
		return "mean_revert", stats.Clamp(f.MeanReversionScore, 0, 1)
	}
	return "range", 0.55
}

// phylum resolves the volatility-structure label.
func (t Thresholds) phylum(f models.FeatureSnapshot) (string, float64) {
	volPct := f.VolPercentile
	vov := f.TailRisk + max0(f.BasisZ)*0.1
	if vov > 1 {
		vov = 1
	}
	if volPct < t.CompressionPct && vov < 0.35 {
		return "compression", stats.Clamp(1.0-volPct, 0, 1)
	}
	if volPct > t.ExpansionPct || vov > 0.7 {
		return "expansion", stats.Clamp(volPct, 0, 1)
	}
	if volPct > 0.6 {
		return "elevated", volPct
	}
	return "decay", 0.55
}

// clazz resolves the positioning label.
func (t Thresholds) clazz(f models.FeatureSnapshot) (string, float64) {
	if f.DeleveragingScore > 0.7 {
		return "deleveraging", f.DeleveragingScore
	}
	if f.FundingZ > t.FundingZCrowded && f.OIZ > t.OIZHot && f.BasisPercentile > 0.7 {
		return "crowded_long", stats.Clamp((f.FundingZ/2.0+f.OIZ/2.0)/2.0, 0, 1)
	}
	if f.FundingZ < -t.FundingZCrowded && f.OIZ > t.OIZHot && f.BasisPercentile < 0.3 {
		return "crowded_short", stats.Clamp((-f.FundingZ/2.0+f.OIZ/2.0)/2.0, 0, 1)
	}
	if f.SqueezeScore > 0.65 {
		return "squeeze_setup", f.SqueezeScore
	}
	return "balanced", 0.55
}

// family resolves the flow-microstructure label.
func (t Thresholds) family(f models.FeatureSnapshot) (string, float64) {
	if f.StopRunScore > 0.7 {
		return "stop_run", f.StopRunScore
	}
	if f.VolMult > t.AbsorptionVolMult && f.ProgressSigma < t.AbsorptionProgressSigma {
		conf := stats.Clamp((f.VolMult/2.0)*(1.0-f.ProgressSigma), 0, 1)
		return "absorption", conf
	}
	if f.ExhaustionScore > 0.65 {
		return "exhaustion", f.ExhaustionScore
	}
	if f.ImpulseScore > 0.65 {
		return "impulse", f.ImpulseScore
	}
	return "neutral", 0.55
}

func max0(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
