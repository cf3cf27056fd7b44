// Package features maintains incremental multi-scale statistics per
// instrument and derives feature snapshots on demand.
package features

import (
	"math"
	"sort"

	"ConeCast/internal/domain/models"
	"ConeCast/pkg/ring"
	"ConeCast/pkg/stats"
)

const (
	eps     = 1e-9
	zedEps  = 1e-12
	derivN  = 500
	mrLag   = 200
	cvdLag  = 300
	tailLag = 500
)

type scaleKey struct {
	symbol string
	scale  string
}

// scaleState holds the sliding trade windows for one (instrument, scale)
// pair. Owned exclusively by the engine; touched only by the pipeline
// consumer goroutine.
type scaleState struct {
	prices  *ring.Buffer[float64]
	rets    *ring.Buffer[float64]
	sizes   *ring.Buffer[float64]
	signed  *ring.Buffer[float64]
	cvd     float64
	last    float64
	hasLast bool
}

// derivState holds funding/OI/basis history for one instrument.
type derivState struct {
	fundingHist *ring.Buffer[float64]
	oiHist      *ring.Buffer[float64]
	basisHist   *ring.Buffer[float64]
	funding     float64
	oi          float64
	basis       float64
}

// Engine is the multi-scale feature engine. State is created lazily per
// (instrument, scale) on first trade and lives for the process lifetime.
type Engine struct {
	scales      []models.Scale
	scaleStates map[scaleKey]*scaleState
	derivs      map[string]*derivState
	lastBook    map[string]*models.BookSnapshot
	tradeCount  map[string]int64
}

// NewEngine creates an engine over the given scales; nil falls back to
// the defaults.
func NewEngine(scales []models.Scale) *Engine {
	if len(scales) == 0 {
		scales = models.DefaultScales()
	}
	return &Engine{
		scales:      scales,
		scaleStates: make(map[scaleKey]*scaleState),
		derivs:      make(map[string]*derivState),
		lastBook:    make(map[string]*models.BookSnapshot),
		tradeCount:  make(map[string]int64),
	}
}

// Scales returns the configured scales.
func (e *Engine) Scales() []models.Scale { return e.scales }

// TradeCount returns the number of trades seen for symbol.
func (e *Engine) TradeCount(symbol string) int64 { return e.tradeCount[symbol] }

// LastBook returns the latest stored book snapshot for symbol, or nil.
func (e *Engine) LastBook(symbol string) *models.BookSnapshot { return e.lastBook[symbol] }

// CVD returns the running cumulative signed-size total for the pair.
func (e *Engine) CVD(symbol, scale string) float64 {
	if st, ok := e.scaleStates[scaleKey{symbol, scale}]; ok {
		return st.cvd
	}
	return 0
}

func (e *Engine) scaleState(symbol string, sc models.Scale) *scaleState {
	key := scaleKey{symbol, sc.Name}
	st, ok := e.scaleStates[key]
	if !ok {
		n := sc.TradeCount
		if n <= 0 {
			n = 2000
		}
		st = &scaleState{
			prices: ring.New[float64](n),
			rets:   ring.New[float64](n),
			sizes:  ring.New[float64](n),
			signed: ring.New[float64](n),
		}
		e.scaleStates[key] = st
	}
	return st
}

func (e *Engine) derivState(symbol string) *derivState {
	d, ok := e.derivs[symbol]
	if !ok {
		d = &derivState{
			fundingHist: ring.New[float64](derivN),
			oiHist:      ring.New[float64](derivN),
			basisHist:   ring.New[float64](derivN),
		}
		e.derivs[symbol] = d
	}
	return d
}

// Update routes an event to its per-kind update logic. Pass-through
// kinds (liquidation, onchain, macro) and unknown kinds are ignored.
func (e *Engine) Update(ev models.Event) {
	switch t := ev.(type) {
	case models.TradePrint:
		e.updateTrade(t)
	case models.BookDelta:
		e.updateBook(t)
	case models.FundingTick:
		d := e.derivState(t.Symbol)
		d.funding = t.FundingRate
		d.fundingHist.Append(d.funding)
	case models.OITick:
		d := e.derivState(t.Symbol)
		d.oi = t.OpenInterest
		d.oiHist.Append(d.oi)
	case models.BasisTick:
		d := e.derivState(t.Symbol)
		d.basis = t.Basis
		d.basisHist.Append(d.basis)
	}
}

func (e *Engine) updateTrade(t models.TradePrint) {
	e.tradeCount[t.Symbol]++
	sign := t.Side.Sign()

	for _, sc := range e.scales {
		st := e.scaleState(t.Symbol, sc)
		if !st.hasLast {
			st.last = t.Price
			st.hasLast = true
		}
		ret := t.Price - st.last
		st.last = t.Price

		st.prices.Append(t.Price)
		st.rets.Append(ret)
		st.sizes.Append(t.Size)
		st.signed.Append(sign * t.Size)
		st.cvd += sign * t.Size
	}
}

func (e *Engine) updateBook(b models.BookDelta) {
	e.lastBook[b.Symbol] = &models.BookSnapshot{
		Bids:   b.Bids,
		Asks:   b.Asks,
		DepthN: b.DepthN,
	}
}

// Snapshot derives the feature vector for (symbol, scale) from buffered
// history only. Pull-based; nothing is cached.
func (e *Engine) Snapshot(symbol string, sc models.Scale) models.FeatureSnapshot {
	st := e.scaleState(symbol, sc)
	d := e.derivState(symbol)

	prices := st.prices.Values()
	rets := st.rets.Values()
	sizes := st.sizes.Values()
	signed := st.signed.Values()

	f := models.FeatureSnapshot{
		Scale:   sc.Name,
		NTrades: len(prices),
		VolMult: 1.0,
	}
	if n := len(prices); n > 0 {
		f.LastPrice = prices[n-1]
	}

	f.RetSD = stats.Stdev(rets)
	f.RetMu = stats.Mean(rets)

	dirRaw := math.Abs(f.RetMu) / (f.RetSD + eps)
	f.DirectionalStrength = 1.0 - math.Exp(-dirRaw)

	if len(rets) > 20 {
		if corr, ok := stats.Lag1Corr(tail(rets, mrLag)); ok {
			f.MeanReversionScore = stats.Clamp((1.0-corr)/2.0, 0, 1)
		}
	}

	if len(signed) > 50 {
		window := tail(signed, cvdLag)
		cum := make([]float64, len(window))
		acc := 0.0
		for i, v := range window {
			acc += v
			cum[i] = acc
		}
		f.CVDSlope = stats.Slope(cum)
	}

	if len(prices) > 10 {
		progress := prices[len(prices)-1] - prices[0]
		f.ProgressSigma = math.Abs(progress) / (f.RetSD*math.Sqrt(float64(len(prices)))+eps)
	}

	if len(sizes) > 100 {
		f.VolMult = (stats.Mean(tail(sizes, 50)) + eps) / (stats.Mean(sizes) + eps)
	}

	if len(rets) > 50 && f.RetSD > eps {
		window := tail(rets, tailLag)
		hits := 0
		for _, r := range window {
			if math.Abs(r) > 2.0*f.RetSD {
				hits++
			}
		}
		f.TailRisk = float64(hits) / float64(len(window))
	}

	f.VolPercentile = volPercentile(rets, f.RetSD)
	f.BreakoutProb = stats.Clamp((1.0-f.VolPercentile)*f.DirectionalStrength, 0, 1)

	funding := d.fundingHist.Values()
	f.Funding = d.funding
	f.FundingZ = stats.ZScore(d.funding, stats.Mean(funding), stats.Stdev(funding), zedEps)

	oi := d.oiHist.Values()
	f.OI = d.oi
	f.OIZ = stats.ZScore(d.oi, stats.Mean(oi), stats.Stdev(oi), zedEps)

	basis := d.basisHist.Values()
	f.Basis = d.basis
	f.BasisZ = stats.ZScore(d.basis, stats.Mean(basis), stats.Stdev(basis), zedEps)

	f.BasisPercentile = 0.5
	if len(basis) > 0 {
		sorted := append([]float64(nil), basis...)
		sort.Float64s(sorted)
		f.BasisPercentile = stats.RankRight(sorted, d.basis)
	}

	f.SqueezeScore = stats.Clamp((math.Abs(f.FundingZ)+math.Max(0, f.OIZ))/4.0, 0, 1)
	f.DeleveragingScore = stats.Clamp(math.Max(0, -f.OIZ)*0.5+f.TailRisk, 0, 1)
	f.ImpulseScore = stats.Clamp(f.DirectionalStrength*math.Abs(f.CVDSlope)/(stats.Mean(sizes)+eps)/10.0, 0, 1)
	f.ExhaustionScore = stats.Clamp((1.0-f.DirectionalStrength)*f.TailRisk, 0, 1)
	f.StopRunScore = stats.Clamp(f.TailRisk*f.VolMult, 0, 1)

	if book := e.lastBook[symbol]; book != nil {
		f.BookImbalance = bookImbalance(book)
	}

	return f
}

// volPercentile ranks the current return stdev against rolling 200-return
// stdev samples taken every 50 returns. Needs more than 600 returns;
// otherwise returns the 0.5 default.
func volPercentile(rets []float64, retSD float64) float64 {
	if len(rets) <= 600 {
		return 0.5
	}
	var hist []float64
	for i := 0; i+200 < len(rets); i += 50 {
		hist = append(hist, stats.Stdev(rets[i:i+200]))
	}
	if len(hist) == 0 {
		return 0.5
	}
	sort.Float64s(hist)
	return stats.RankRight(hist, retSD)
}

func bookImbalance(book *models.BookSnapshot) float64 {
	var bidDepth, askDepth float64
	for i, lvl := range book.Bids {
		if i >= 10 {
			break
		}
		bidDepth += lvl.Size
	}
	for i, lvl := range book.Asks {
		if i >= 10 {
			break
		}
		askDepth += lvl.Size
	}
	return (bidDepth - askDepth) / (bidDepth + askDepth + eps)
}

// tail returns the last n values of xs (all of xs when shorter).
func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
