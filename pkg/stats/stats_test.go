package stats

import (
	"math"
	"testing"
)

func almost(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestMeanStdev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if m := Mean(xs); !almost(m, 5, 1e-12) {
		t.Fatalf("mean = %v", m)
	}
	// sample stdev of the classic example
	if sd := Stdev(xs); !almost(sd, 2.138089935299395, 1e-12) {
		t.Fatalf("stdev = %v", sd)
	}
	if sd := Stdev([]float64{1}); sd != 0 {
		t.Fatalf("stdev of single = %v", sd)
	}
}

func TestZScoreEpsGuard(t *testing.T) {
	if z := ZScore(1, 0, 0, 1e-12); z != 1e12 {
		t.Fatalf("z = %v", z)
	}
}

func TestLag1Corr(t *testing.T) {
	// perfectly alternating series has lag-1 correlation -1
	xs := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	c, ok := Lag1Corr(xs)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !almost(c, -1, 1e-12) {
		t.Fatalf("corr = %v", c)
	}
	if _, ok := Lag1Corr([]float64{5, 5, 5, 5}); ok {
		t.Fatalf("expected degenerate variance to report !ok")
	}
}

func TestSlope(t *testing.T) {
	ys := []float64{1, 3, 5, 7, 9}
	if s := Slope(ys); !almost(s, 2, 1e-12) {
		t.Fatalf("slope = %v", s)
	}
	if s := Slope([]float64{4}); s != 0 {
		t.Fatalf("slope of single = %v", s)
	}
}

func TestRankRight(t *testing.T) {
	sorted := []float64{1, 2, 2, 3}
	if r := RankRight(sorted, 2); !almost(r, 0.75, 1e-12) {
		t.Fatalf("rank = %v", r)
	}
	if r := RankRight(sorted, 0); r != 0 {
		t.Fatalf("rank = %v", r)
	}
	if r := RankRight(sorted, 9); r != 1 {
		t.Fatalf("rank = %v", r)
	}
}

func TestQuantileInterpolates(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	if q := Quantile(xs, 0.5); !almost(q, 2.5, 1e-12) {
		t.Fatalf("median = %v", q)
	}
	if q := Quantile(xs, 0); q != 1 {
		t.Fatalf("q0 = %v", q)
	}
	if q := Quantile(xs, 1); q != 4 {
		t.Fatalf("q1 = %v", q)
	}
	if q := Quantile(xs, 0.25); !almost(q, 1.75, 1e-12) {
		t.Fatalf("q25 = %v", q)
	}
}
