package regimes

import (
	"reflect"
	"testing"

	"ConeCast/internal/domain/models"
)

func TestTrendKingdom(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{
		DirectionalStrength: 0.9,
		MeanReversionScore:  0.3,
		TailRisk:            0.1,
		BreakoutProb:        0.2,
		VolPercentile:       0.5,
		VolMult:             1.0,
	}
	got := c.Classify(f)
	if got.Kingdom != "trend" {
		t.Fatalf("kingdom = %q, want trend", got.Kingdom)
	}
	if got.Probs["kingdom"] != 0.9 {
		t.Fatalf("kingdom confidence = %v", got.Probs["kingdom"])
	}
}

func TestCrashBeatsTrend(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{
		DirectionalStrength: 0.9,
		TailRisk:            0.9,
		VolPercentile:       0.5,
		VolMult:             1.0,
	}
	if got := c.Classify(f); got.Kingdom != "crash_or_melt" {
		t.Fatalf("kingdom = %q, want crash_or_melt", got.Kingdom)
	}
}

func TestCrowdedLongClazz(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{
		FundingZ:        2.0,
		OIZ:             1.5,
		BasisPercentile: 0.9,
		VolPercentile:   0.5,
		VolMult:         1.0,
	}
	if got := c.Classify(f); got.Clazz != "crowded_long" {
		t.Fatalf("clazz = %q, want crowded_long", got.Clazz)
	}
}

func TestUniverseRiskOff(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{
		TailRisk:      0.8,
		VolPercentile: 0.9,
		VolMult:       1.0,
	}
	if got := c.Classify(f); got.Universe != "risk_off" {
		t.Fatalf("universe = %q, want risk_off", got.Universe)
	}
}

func TestStabilityFormula(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{TailRisk: 0.5, BreakoutProb: 0.5, VolPercentile: 0.5, VolMult: 1.0}
	got := c.Classify(f)
	want := 1.0 - (0.5*0.6 + 0.5*0.4)
	if got.Stability != want {
		t.Fatalf("stability = %v, want %v", got.Stability, want)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := NewClassifier(Thresholds{})
	f := models.FeatureSnapshot{
		DirectionalStrength: 0.42,
		MeanReversionScore:  0.61,
		TailRisk:            0.12,
		BreakoutProb:        0.3,
		VolPercentile:       0.55,
		FundingZ:            0.9,
		OIZ:                 0.2,
		BasisPercentile:     0.5,
		VolMult:             1.4,
		ProgressSigma:       0.8,
	}
	a := c.Classify(f)
	b := c.Classify(f)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated calls differ: %+v vs %+v", a, b)
	}
}

func TestDefaultLabels(t *testing.T) {
	c := NewClassifier(Thresholds{})
	got := c.Classify(models.FeatureSnapshot{VolPercentile: 0.5, VolMult: 1.0})
	if got.Kingdom != "range" || got.Clazz != "balanced" || got.Family != "neutral" {
		t.Fatalf("defaults = %s/%s/%s", got.Kingdom, got.Clazz, got.Family)
	}
	if got.Order != "liquidity_topology_pending" || got.Genus != "setup_pending" {
		t.Fatalf("placeholders = %s/%s", got.Order, got.Genus)
	}
	if got.Phylum != "decay" {
		t.Fatalf("phylum = %q, want decay", got.Phylum)
	}
}
