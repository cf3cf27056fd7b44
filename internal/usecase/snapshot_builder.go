package usecase

import (
	"fmt"
	"time"

	"ConeCast/internal/domain/models"
	"ConeCast/internal/features"
	"ConeCast/internal/field"
	"ConeCast/internal/forecast"
	"ConeCast/internal/regimes"
)

// BuilderParams holds the forecast knobs. All constants are heuristic
// defaults, kept configurable rather than derived.
type BuilderParams struct {
	GridPoints   int
	ConeSteps    int
	NPaths       int
	Seed         int64
	Quantiles    []float64
	FieldWeights map[string]float64
	Coefficients forecast.Coefficients
}

// SnapshotBuilder turns the engine's current state into a full snapshot
// record: per-scale features, regime stack and forecast cone.
type SnapshotBuilder struct {
	engine     *features.Engine
	classifier *regimes.Classifier
	params     BuilderParams
}

// NewSnapshotBuilder creates a builder over the shared feature engine.
func NewSnapshotBuilder(engine *features.Engine, classifier *regimes.Classifier, params BuilderParams) *SnapshotBuilder {
	if params.GridPoints <= 0 {
		params.GridPoints = 401
	}
	if params.ConeSteps <= 0 {
		params.ConeSteps = 250
	}
	if params.NPaths <= 0 {
		params.NPaths = 2000
	}
	if len(params.Quantiles) == 0 {
		params.Quantiles = forecast.DefaultQuantiles
	}
	if params.FieldWeights == nil {
		params.FieldWeights = map[string]float64{"liq": 1.0, "pos": 1.0}
	}
	if params.Coefficients == (forecast.Coefficients{}) {
		params.Coefficients = forecast.DefaultCoefficients()
	}
	return &SnapshotBuilder{engine: engine, classifier: classifier, params: params}
}

// Build produces the snapshot record for one instrument across every
// configured scale. Scales without price history get a nil cone.
func (b *SnapshotBuilder) Build(ts time.Time, symbol string) (*models.SnapshotRecord, error) {
	scales := b.engine.Scales()
	snaps := make([]models.ScaleSnapshot, 0, len(scales))

	for _, sc := range scales {
		f := b.engine.Snapshot(symbol, sc)
		reg := b.classifier.Classify(f)

		var cone *models.Cone
		if f.NTrades > 0 {
			var err error
			cone, err = b.cone(symbol, f, reg)
			if err != nil {
				return nil, fmt.Errorf("cone for %s/%s: %w", symbol, sc.Name, err)
			}
		}

		snaps = append(snaps, models.ScaleSnapshot{
			Scale:    sc.Name,
			Features: f,
			Regimes:  reg,
			Cone:     cone,
		})
	}

	return &models.SnapshotRecord{TS: ts, Symbol: symbol, Snapshots: snaps}, nil
}

func (b *SnapshotBuilder) cone(symbol string, f models.FeatureSnapshot, reg models.RegimeStack) (*models.Cone, error) {
	p0 := f.LastPrice
	sigma := f.RetSD

	grid := field.NewGrid(p0, sigma, b.params.GridPoints)
	uLiq := field.Liquidity(grid, b.engine.LastBook(symbol), p0)
	uPos := field.Positioning(grid, f, p0, sigma)
	u, err := field.Total(map[string][]float64{"liq": uLiq, "pos": uPos}, b.params.FieldWeights)
	if err != nil {
		return nil, err
	}

	alpha, beta, gamma := b.params.Coefficients.For(reg)

	sigmaLocal := sigma
	if sigmaLocal < 1e-6 {
		sigmaLocal = 1e-6
	}

	paths := forecast.SimulatePaths(grid, u, forecast.SimParams{
		P0:         p0,
		V0:         0,
		FlowForce:  forecast.FlowForce(f.CVDSlope),
		SigmaLocal: sigmaLocal,
		Alpha:      alpha,
		Beta:       beta,
		Gamma:      gamma,
		Steps:      b.params.ConeSteps,
		NPaths:     b.params.NPaths,
		Seed:       b.params.Seed,
	})
	return forecast.Summarize(paths, b.params.Quantiles), nil
}
