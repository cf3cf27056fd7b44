package forecast

import (
	"math"
	"testing"

	"ConeCast/internal/domain/models"
	"ConeCast/internal/field"
)

func flatField(n int) (field.Grid, []float64) {
	g := field.NewGrid(100, 1, n)
	return g, make([]float64, n)
}

func TestSeededSimulationIsReproducible(t *testing.T) {
	g, u := flatField(201)
	p := SimParams{
		P0: 100, SigmaLocal: 0.5,
		Alpha: 0.9, Beta: 0.1, Gamma: 0.25, FlowForce: 0.3,
		Steps: 50, NPaths: 20, Seed: 7,
	}
	a := SimulatePaths(g, u, p)
	b := SimulatePaths(g, u, p)
	for i := range a {
		for k := range a[i] {
			if a[i][k] != b[i][k] {
				t.Fatalf("path %d step %d differs: %v vs %v", i, k, a[i][k], b[i][k])
			}
		}
	}
}

func TestZeroForcesStayAtP0(t *testing.T) {
	g, u := flatField(401)
	p := SimParams{
		P0: 100, SigmaLocal: 0,
		Alpha: 0.9, Beta: 0.1, Gamma: 0.25, FlowForce: 0,
		Steps: 250, NPaths: 200, Seed: 7,
	}
	paths := SimulatePaths(g, u, p)
	for i, path := range paths {
		for k, px := range path {
			if px != 100 {
				t.Fatalf("path %d step %d = %v, want exactly 100", i, k, px)
			}
		}
	}
}

func TestFlowForceDrivesDrift(t *testing.T) {
	g, u := flatField(201)
	p := SimParams{
		P0: 100, SigmaLocal: 0,
		Alpha: 0.5, Beta: 0, Gamma: 1.0, FlowForce: 1.0,
		Steps: 100, NPaths: 1, Seed: 1,
	}
	paths := SimulatePaths(g, u, p)
	final := paths[0][len(paths[0])-1]
	if final <= 100 {
		t.Fatalf("positive flow should drift up, final = %v", final)
	}
}

func TestSummarizeBandsOrdered(t *testing.T) {
	g, u := flatField(201)
	p := SimParams{
		P0: 100, SigmaLocal: 1,
		Alpha: 0.8, Beta: 0.1, Gamma: 0.25,
		Steps: 30, NPaths: 300, Seed: 42,
	}
	cone := Summarize(SimulatePaths(g, u, p), nil)
	if cone == nil {
		t.Fatal("nil cone")
	}
	lo, mid, hi := cone.Bands["0.05"], cone.Bands["0.5"], cone.Bands["0.95"]
	if len(lo) != 31 || len(mid) != 31 || len(hi) != 31 {
		t.Fatalf("band lengths %d/%d/%d", len(lo), len(mid), len(hi))
	}
	for step := range lo {
		if lo[step] > mid[step] || mid[step] > hi[step] {
			t.Fatalf("bands out of order at step %d: %v %v %v", step, lo[step], mid[step], hi[step])
		}
	}
	if cone.Mean[0] != 100 {
		t.Fatalf("mean[0] = %v", cone.Mean[0])
	}
}

func TestTouchProbabilityBounds(t *testing.T) {
	g, u := flatField(201)
	p := SimParams{
		P0: 100, SigmaLocal: 1,
		Alpha: 0.8, Beta: 0.1, Gamma: 0.25,
		Steps: 30, NPaths: 100, Seed: 3,
	}
	paths := SimulatePaths(g, u, p)
	if got := TouchProbability(paths, 100); got != 1 {
		t.Fatalf("touch at start price = %v, want 1", got)
	}
	if got := TouchProbability(paths, 1e9); got != 0 {
		t.Fatalf("touch at unreachable level = %v, want 0", got)
	}
}

func TestFlowForceBounded(t *testing.T) {
	for _, slope := range []float64{-1e9, -50, 0, 50, 1e9} {
		f := FlowForce(slope)
		if f < -1 || f > 1 {
			t.Fatalf("flow force %v out of [-1,1]", f)
		}
	}
	if FlowForce(0) != 0 {
		t.Fatalf("flow force at zero slope should be 0")
	}
}

func TestRegimeConditionedCoefficients(t *testing.T) {
	c := DefaultCoefficients()
	alpha, beta, gamma := c.For(models.RegimeStack{Kingdom: "trend", Clazz: "balanced"})
	if alpha != 0.90 || beta != 0.10 || gamma != 0.25 {
		t.Fatalf("trend coeffs = %v/%v/%v", alpha, beta, gamma)
	}
	alpha, beta, _ = c.For(models.RegimeStack{Kingdom: "range", Clazz: "squeeze_setup"})
	if alpha != 0.80 || beta != 0.15 {
		t.Fatalf("squeeze coeffs = %v/%v", alpha, beta)
	}
}

func TestGradientPullsTowardWell(t *testing.T) {
	// quadratic well centered at 100: paths released above should move down
	g := field.NewGrid(100, 2, 401)
	u := make([]float64, len(g.Prices))
	for i, px := range g.Prices {
		d := px - 100
		u[i] = d * d
	}
	p := SimParams{
		P0: 106, SigmaLocal: 0,
		Alpha: 0.5, Beta: 0.2, Gamma: 0,
		Steps: 80, NPaths: 1, Seed: 9,
	}
	paths := SimulatePaths(g, u, p)
	final := paths[0][len(paths[0])-1]
	if math.Abs(final-100) >= math.Abs(106.0-100) {
		t.Fatalf("path did not relax toward well: final = %v", final)
	}
}
