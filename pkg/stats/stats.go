// Package stats provides the small set of moment, rank and regression
// helpers the feature engine and forecast summarizer rely on.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Stdev returns the sample standard deviation, or 0 with fewer than two
// values.
func Stdev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := Mean(xs)
	var acc float64
	for _, x := range xs {
		d := x - m
		acc += d * d
	}
	v := acc / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// ZScore returns (x-mu)/max(sd, eps).
func ZScore(x, mu, sd, eps float64) float64 {
	return (x - mu) / math.Max(sd, eps)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Lag1Corr returns the Pearson correlation between xs[:-1] and xs[1:].
// The second value is false when either half has near-zero variance or
// there are fewer than three samples.
func Lag1Corr(xs []float64) (float64, bool) {
	n := len(xs) - 1
	if n < 2 {
		return 0, false
	}
	a := xs[:n]
	b := xs[1:]
	ma, mb := Mean(a), Mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va < 1e-18 || vb < 1e-18 {
		return 0, false
	}
	return cov / math.Sqrt(va*vb), true
}

// Slope returns the least-squares slope of ys against its 0..n-1 index.
func Slope(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	mx := float64(n-1) / 2.0
	my := Mean(ys)
	var num, den float64
	for i, y := range ys {
		dx := float64(i) - mx
		num += dx * (y - my)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// RankRight returns the fraction of sorted values <= x (right-continuous
// percentile rank). sorted must be ascending and non-empty.
func RankRight(sorted []float64, x float64) float64 {
	idx := sort.SearchFloat64s(sorted, x)
	for idx < len(sorted) && sorted[idx] == x {
		idx++
	}
	return float64(idx) / float64(len(sorted))
}

// Quantile returns the q-th quantile of xs with linear interpolation
// between order statistics. q outside [0,1] is clamped.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return QuantileSorted(sorted, q)
}

// QuantileSorted is Quantile over already-sorted ascending input.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	q = Clamp(q, 0, 1)
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
