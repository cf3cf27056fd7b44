// Package synthetic generates a deterministic in-process market stream
// with latent regime switches. It is used for pipeline validation and
// replay-determinism checks without touching a live venue.
package synthetic

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/service/feed"

	"github.com/rs/zerolog"
)

// Config holds the generator parameters.
type Config struct {
	Symbol     string
	Steps      int
	Seed       int64
	StartPrice float64
	QueueSize  int
}

// Stream is the synthetic MarketFeed. Unlike the live feeds it is
// finite: the channel closes after Steps trade prints.
type Stream struct {
	cfg Config
	log zerolog.Logger
}

// New creates the synthetic feed.
func New(cfg Config, log zerolog.Logger) *Stream {
	if cfg.Symbol == "" {
		cfg.Symbol = "BTC"
	}
	if cfg.Steps <= 0 {
		cfg.Steps = 5000
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100_000.0
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 5000
	}
	return &Stream{cfg: cfg, log: log.With().Str("venue", "synthetic").Logger()}
}

// Venue reports the feed's venue.
func (s *Stream) Venue() models.Venue { return models.VenueSynthetic }

// Events starts the generator and returns the bounded stream.
func (s *Stream) Events(ctx context.Context) <-chan models.Event {
	out := make(chan models.Event, s.cfg.QueueSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, out)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

var regimeNames = []string{"range", "trend_up", "trend_down", "chop_highvol"}
var regimeWeights = []float64{0.45, 0.2, 0.2, 0.15}

func pickRegime(rng *rand.Rand) string {
	r := rng.Float64()
	acc := 0.0
	for i, w := range regimeWeights {
		acc += w
		if r < acc {
			return regimeNames[i]
		}
	}
	return regimeNames[len(regimeNames)-1]
}

func (s *Stream) run(ctx context.Context, out chan<- models.Event) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))
	ts := time.Now().UTC()
	p := s.cfg.StartPrice
	v := 0.0

	regime := "range"
	regimeTTL := 500

	funding := 0.0001
	oi := 1_000_000.0
	basis := 5.0

	for i := 0; i < s.cfg.Steps; i++ {
		if ctx.Err() != nil {
			return
		}

		if regimeTTL <= 0 {
			regime = pickRegime(rng)
			regimeTTL = 300 + rng.Intn(901)
		}
		regimeTTL--

		var drift, sigma float64
		switch regime {
		case "trend_up":
			drift, sigma = 0.9, 10.0
		case "trend_down":
			drift, sigma = -0.9, 10.0
		case "chop_highvol":
			drift, sigma = 0.0, 18.0
		default: // range
			drift, sigma = 0.0, 8.0
		}

		// simple particle motion
		v = 0.90*v + drift + rng.NormFloat64()*sigma
		p = p + v
		if p < 1.0 {
			p = 1.0
		}

		// size correlates with volatility
		size := abs(rng.NormFloat64()*0.18+0.25) * (1.0 + sigma/20.0)
		if size < 0.001 {
			size = 0.001
		}

		// aggressor side weakly follows velocity sign
		var side models.TradeSide
		switch {
		case v > 2.0:
			side = models.SideBuy
		case v < -2.0:
			side = models.SideSell
		default:
			side = []models.TradeSide{models.SideBuy, models.SideSell, models.SideUnknown}[rng.Intn(3)]
		}

		ts = ts.Add(200 * time.Millisecond)
		recv := ts.Add(time.Duration(1+rng.Intn(15)) * time.Millisecond)

		trade := models.TradePrint{
			EventBase: models.EventBase{
				TS:     ts,
				RecvTS: recv,
				Symbol: s.cfg.Symbol,
				Venue:  models.VenueSynthetic,
				Etype:  models.KindTradePrint,
				Meta:   map[string]any{"regime_hint": regime},
			},
			Price: p,
			Size:  size,
			Side:  side,
		}
		if !feed.Send(ctx, out, trade) {
			return
		}

		if i%20 == 0 {
			if !feed.Send(ctx, out, s.book(rng, ts, recv, p, sigma)) {
				return
			}
		}

		if i%100 == 0 {
			switch regime {
			case "trend_up":
				funding += 0.00002
			case "trend_down":
				funding -= 0.00002
			}
			funding += rng.NormFloat64() * 0.00003
			funding = clamp(funding, -0.003, 0.003)

			if regime == "trend_up" || regime == "trend_down" {
				oi += 5000
			} else {
				oi += 1000
			}
			oi += rng.NormFloat64() * 3000
			if regime == "chop_highvol" && rng.Float64() < 0.03 {
				oi *= 0.95 // deleveraging pulse
			}

			if funding > 0 {
				basis += 0.15
			} else {
				basis -= 0.15
			}
			basis += rng.NormFloat64() * 0.25

			base := models.EventBase{
				TS:     ts,
				RecvTS: recv,
				Symbol: s.cfg.Symbol,
				Venue:  models.VenueSynthetic,
			}

			fundingBase := base
			fundingBase.Etype = models.KindFundingTick
			if !feed.Send(ctx, out, models.FundingTick{EventBase: fundingBase, FundingRate: funding}) {
				return
			}

			oiBase := base
			oiBase.Etype = models.KindOITick
			oiBase.Meta = map[string]any{"units": "contracts"}
			if !feed.Send(ctx, out, models.OITick{EventBase: oiBase, OpenInterest: oi}) {
				return
			}

			basisBase := base
			basisBase.Etype = models.KindBasisTick
			if !feed.Send(ctx, out, models.BasisTick{EventBase: basisBase, Basis: basis, BasisType: "perp_minus_spot"}) {
				return
			}
		}
	}
	s.log.Info().Int("steps", s.cfg.Steps).Msg("synthetic stream exhausted")
}

func (s *Stream) book(rng *rand.Rand, ts, recv time.Time, p, sigma float64) models.BookDelta {
	spread := 0.02 * sigma
	if spread < 0.5 {
		spread = 0.5
	}
	bids := make([]models.BookLevel, 0, 20)
	asks := make([]models.BookLevel, 0, 20)
	for lvl := 0; lvl < 20; lvl++ {
		dp := float64(lvl+1) * spread
		bids = append(bids, models.BookLevel{Price: p - dp, Size: levelSize(rng)})
		asks = append(asks, models.BookLevel{Price: p + dp, Size: levelSize(rng)})
	}
	return models.BookDelta{
		EventBase: models.EventBase{
			TS:     ts,
			RecvTS: recv,
			Symbol: s.cfg.Symbol,
			Venue:  models.VenueSynthetic,
			Etype:  models.KindBookDelta,
		},
		Bids:   bids,
		Asks:   asks,
		DepthN: 20,
	}
}

func levelSize(rng *rand.Rand) float64 {
	sz := rng.Float64() * 5
	if sz < 0.1 {
		sz = 0.1
	}
	return sz
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

var _ drepo.MarketFeed = (*Stream)(nil)
