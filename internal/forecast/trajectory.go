// Package forecast runs the seeded Monte Carlo path simulation over a
// potential field and summarizes the ensemble into quantile cones.
package forecast

import (
	"math"
	"math/rand"
	"sort"
	"strconv"

	"ConeCast/internal/domain/models"
	"ConeCast/internal/field"
	"ConeCast/pkg/stats"
)

// DefaultQuantiles is the standard cone band set.
var DefaultQuantiles = []float64{0.05, 0.25, 0.5, 0.75, 0.95}

// SimParams parameterizes one simulation run. Identical params and seed
// produce a bit-identical path matrix.
type SimParams struct {
	P0         float64
	V0         float64
	FlowForce  float64
	SigmaLocal float64
	Alpha      float64
	Beta       float64
	Gamma      float64
	Steps      int
	NPaths     int
	Seed       int64
}

// SimulatePaths integrates NPaths independent velocity processes over the
// potential u defined on g. Row i is path i with Steps+1 positions, the
// first being P0. Noise draws happen per step across all paths so the
// matrix is reproducible from the seed alone.
func SimulatePaths(g field.Grid, u []float64, p SimParams) [][]float64 {
	rng := rand.New(rand.NewSource(p.Seed))
	gradU := field.Gradient(u, g.Prices)

	paths := make([][]float64, p.NPaths)
	vel := make([]float64, p.NPaths)
	for i := range paths {
		paths[i] = make([]float64, p.Steps+1)
		paths[i][0] = p.P0
		vel[i] = p.V0
	}

	for k := 0; k < p.Steps; k++ {
		for i := 0; i < p.NPaths; i++ {
			noise := rng.NormFloat64() * p.SigmaLocal
			g0 := field.Interp(paths[i][k], g.Prices, gradU)
			vel[i] = p.Alpha*vel[i] - p.Beta*g0 + p.Gamma*p.FlowForce + noise
			paths[i][k+1] = paths[i][k] + vel[i]
		}
	}
	return paths
}

// Summarize reduces the path matrix to per-timestep quantile bands and
// the ensemble mean. Empty quantiles falls back to DefaultQuantiles.
func Summarize(paths [][]float64, quantiles []float64) *models.Cone {
	if len(paths) == 0 {
		return nil
	}
	if len(quantiles) == 0 {
		quantiles = DefaultQuantiles
	}
	steps := len(paths[0])
	cone := &models.Cone{
		Bands: make(map[string][]float64, len(quantiles)),
		Mean:  make([]float64, steps),
	}
	for _, q := range quantiles {
		cone.Bands[quantileKey(q)] = make([]float64, steps)
	}

	col := make([]float64, len(paths))
	for t := 0; t < steps; t++ {
		sum := 0.0
		for i := range paths {
			col[i] = paths[i][t]
			sum += col[i]
		}
		cone.Mean[t] = sum / float64(len(paths))
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		for _, q := range quantiles {
			cone.Bands[quantileKey(q)][t] = stats.QuantileSorted(sorted, q)
		}
	}
	return cone
}

// TouchProbability returns the fraction of paths whose extreme crossed
// level: the maximum when level sits at or above the starting price, the
// minimum otherwise.
func TouchProbability(paths [][]float64, level float64) float64 {
	if len(paths) == 0 {
		return 0
	}
	var startMean float64
	for _, p := range paths {
		startMean += p[0]
	}
	startMean /= float64(len(paths))

	touched := 0
	for _, p := range paths {
		hit := false
		if level >= startMean {
			for _, px := range p {
				if px >= level {
					hit = true
					break
				}
			}
		} else {
			for _, px := range p {
				if px <= level {
					hit = true
					break
				}
			}
		}
		if hit {
			touched++
		}
	}
	return float64(touched) / float64(len(paths))
}

// FlowForce squashes the CVD slope into a bounded drift term.
func FlowForce(cvdSlope float64) float64 {
	return math.Tanh(cvdSlope / 50.0)
}

// Coefficients maps regimes to the velocity-model coefficients. The
// constants are heuristic defaults, configurable rather than derived.
type Coefficients struct {
	TrendAlpha  float64
	BaseAlpha   float64
	CrowdedBeta float64
	BaseBeta    float64
	Gamma       float64
}

// DefaultCoefficients returns the baseline regime conditioning.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		TrendAlpha:  0.90,
		BaseAlpha:   0.80,
		CrowdedBeta: 0.15,
		BaseBeta:    0.10,
		Gamma:       0.25,
	}
}

// For resolves alpha/beta/gamma for a regime stack: more momentum for
// trend and breakout kingdoms, stronger field coupling for crowded and
// squeeze positioning.
func (c Coefficients) For(reg models.RegimeStack) (alpha, beta, gamma float64) {
	alpha = c.BaseAlpha
	if reg.Kingdom == "trend" || reg.Kingdom == "breakout" {
		alpha = c.TrendAlpha
	}
	beta = c.BaseBeta
	switch reg.Clazz {
	case "crowded_long", "crowded_short", "squeeze_setup":
		beta = c.CrowdedBeta
	}
	return alpha, beta, c.Gamma
}

func quantileKey(q float64) string {
	return strconv.FormatFloat(q, 'g', -1, 64)
}
