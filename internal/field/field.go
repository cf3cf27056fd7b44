// Package field builds the potential-energy landscape the forecast paths
// move through: an attractive liquidity component from book depth and a
// repulsive positioning component from crowding signals.
package field

import (
	"fmt"
	"math"

	"ConeCast/internal/domain/models"
)

const gridEps = 1e-9

// Grid is a 1-D price grid with the potential components evaluated on it.
type Grid struct {
	Prices []float64
}

// NewGrid spans [p0-6σ, p0+6σ] with n linearly spaced points.
func NewGrid(p0, sigma float64, n int) Grid {
	if n < 2 {
		n = 401
	}
	span := 6.0 * math.Max(sigma, gridEps)
	lo := p0 - span
	step := 2 * span / float64(n-1)
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = lo + float64(i)*step
	}
	return Grid{Prices: prices}
}

// Liquidity builds the book-depth potential: each of the top 20 levels
// per side contributes a Gaussian well (more depth, lower potential),
// plus a gentle quadratic term for numerical stability. No book yields a
// zero field.
func Liquidity(g Grid, book *models.BookSnapshot, p0 float64) []float64 {
	u := make([]float64, len(g.Prices))
	if book == nil {
		return u
	}
	addLevels := func(levels []models.BookLevel) {
		for i, lvl := range levels {
			if i >= 20 {
				break
			}
			width := math.Max(1.0, math.Abs(lvl.Price-p0)*0.02+5.0)
			for j, px := range g.Prices {
				d := (px - lvl.Price) / width
				u[j] -= math.Exp(-0.5*d*d) * lvl.Size * 0.002
			}
		}
	}
	addLevels(book.Bids)
	addLevels(book.Asks)

	for j, px := range g.Prices {
		d := px - p0
		u[j] += 1e-6 * d * d
	}
	return u
}

// Positioning builds the crowding potential: a repulsive Gaussian hump
// offset from p0 in the direction implied by funding (basis tie-breaks),
// scaled by a clamped crowd strength. Below the activation threshold or
// with non-positive sigma the field is zero — a quiet market is a
// legitimate state, not an error.
func Positioning(g Grid, f models.FeatureSnapshot, p0, sigma float64) []float64 {
	u := make([]float64, len(g.Prices))

	crowdRaw := math.Abs(f.FundingZ) + math.Max(0, f.OIZ) + 0.5*math.Abs(f.BasisZ)
	crowd := math.Min(1.0, math.Max(0, crowdRaw)/3.5)
	if crowd <= 0.05 || sigma <= 0 {
		return u
	}

	// funding dominates direction; basis acts as tie-breaker
	direction := -1.0
	if f.FundingZ+0.5*f.BasisZ > 0 {
		direction = 1.0
	}
	center := p0 + direction*2.0*math.Max(sigma, gridEps)*10.0
	width := 2.5 * math.Max(sigma, gridEps) * 10.0

	for j, px := range g.Prices {
		d := (px - center) / width
		u[j] += math.Exp(-0.5*d*d) * crowd * 0.75
	}
	return u
}

// Total combines named component fields with per-component weights
// (missing weight defaults to 1.0). An empty component set is a wiring
// mistake upstream and is rejected.
func Total(components map[string][]float64, weights map[string]float64) ([]float64, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("field: no potential components provided")
	}
	var u []float64
	for name, arr := range components {
		if u == nil {
			u = make([]float64, len(arr))
		}
		if len(arr) != len(u) {
			return nil, fmt.Errorf("field: component %q length %d != %d", name, len(arr), len(u))
		}
		w, ok := weights[name]
		if !ok {
			w = 1.0
		}
		for j, v := range arr {
			u[j] += w * v
		}
	}
	return u, nil
}

// Gradient approximates dU/dp via central finite differences, one-sided
// at the boundaries.
func Gradient(u, prices []float64) []float64 {
	n := len(u)
	grad := make([]float64, n)
	if n < 2 {
		return grad
	}
	grad[0] = (u[1] - u[0]) / (prices[1] - prices[0])
	grad[n-1] = (u[n-1] - u[n-2]) / (prices[n-1] - prices[n-2])
	for i := 1; i < n-1; i++ {
		grad[i] = (u[i+1] - u[i-1]) / (prices[i+1] - prices[i-1])
	}
	return grad
}

// Interp linearly interpolates ys (defined over xs, ascending) at x,
// clamping outside the domain.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	frac := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + frac*(ys[hi]-ys[lo])
}
