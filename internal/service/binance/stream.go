// Package binance implements the USDⓈ-M futures market feed.
//
// Trades, book deltas and mark price (funding + basis) arrive over the
// combined WebSocket stream; open interest and the basis endpoint are
// polled over REST because Binance has no standard WS open-interest
// stream for USDM futures.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/service/feed"
	phttp "ConeCast/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	fstreamBase = "wss://fstream.binance.com/stream?streams="
	fapiBase    = "https://fapi.binance.com"

	pingInterval = 20 * time.Second
)

// Config holds the feed parameters. Symbols maps canonical instrument
// ids to the venue's lowercase stream symbols (e.g. BTC -> btcusdt).
type Config struct {
	Instruments []string
	Symbols     map[string]string
	DepthN      int
	DepthSpeed  string
	OIPoll      time.Duration
	BasisPoll   time.Duration
	BasisPeriod string

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	QueueSize      int
}

// Stream is the Binance futures MarketFeed.
type Stream struct {
	cfg     Config
	reverse map[string]string // uppercase raw symbol -> canonical id
	client  *phttp.Client
	log     zerolog.Logger
}

// New validates the symbol table and creates the feed. Every configured
// instrument must have a symbol mapping; a hole in the table is a
// configuration error, not something to skip at runtime.
func New(cfg Config, client *phttp.Client, log zerolog.Logger) (*Stream, error) {
	if cfg.DepthN <= 0 {
		cfg.DepthN = 20
	}
	if cfg.DepthSpeed == "" {
		cfg.DepthSpeed = "100ms"
	}
	if cfg.OIPoll <= 0 {
		cfg.OIPoll = 5 * time.Second
	}
	if cfg.BasisPoll <= 0 {
		cfg.BasisPoll = 60 * time.Second
	}
	if cfg.BasisPeriod == "" {
		cfg.BasisPeriod = "5m"
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 5000
	}

	reverse := make(map[string]string, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		raw, ok := cfg.Symbols[inst]
		if !ok || raw == "" {
			return nil, fmt.Errorf("binance: no symbol mapping for instrument %q", inst)
		}
		reverse[strings.ToUpper(raw)] = inst
	}

	return &Stream{
		cfg:     cfg,
		reverse: reverse,
		client:  client,
		log:     log.With().Str("venue", "binance").Logger(),
	}, nil
}

// Venue reports the feed's venue.
func (s *Stream) Venue() models.Venue { return models.VenueBinance }

// Events starts the WebSocket and polling producers and returns the
// merged bounded stream. The channel closes only after both producers
// have terminated.
func (s *Stream) Events(ctx context.Context) <-chan models.Event {
	out := make(chan models.Event, s.cfg.QueueSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.wsLoop(ctx, out)
	}()
	go func() {
		defer wg.Done()
		s.pollLoop(ctx, out)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (s *Stream) streamURL() string {
	streams := make([]string, 0, 3*len(s.cfg.Instruments))
	for _, inst := range s.cfg.Instruments {
		raw := s.cfg.Symbols[inst]
		streams = append(streams,
			raw+"@aggTrade",
			fmt.Sprintf("%s@depth%d@%s", raw, s.cfg.DepthN, s.cfg.DepthSpeed),
			raw+"@markPrice@1s",
		)
	}
	return fstreamBase + strings.Join(streams, "/")
}

func (s *Stream) wsLoop(ctx context.Context, out chan<- models.Event) {
	url := s.streamURL()
	backoff := s.cfg.InitialBackoff

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("connect failed")
			if !feed.Sleep(ctx, backoff) {
				return
			}
			backoff = feed.NextBackoff(backoff, s.cfg.MaxBackoff)
			continue
		}
		backoff = s.cfg.InitialBackoff
		s.log.Info().Msg("stream connected")

		err = s.readLoop(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("stream dropped")
		if !feed.Sleep(ctx, backoff) {
			return
		}
		backoff = feed.NextBackoff(backoff, s.cfg.MaxBackoff)
	}
}

// readLoop consumes one connection until it fails or ctx is cancelled.
func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- models.Event) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// unblock ReadMessage on cancellation
	go func() {
		<-cctx.Done()
		_ = conn.Close()
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cctx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		data := env.Data
		if len(data) == 0 {
			data = raw
		}

		var hdr struct {
			Event string `json:"e"`
		}
		if err := json.Unmarshal(data, &hdr); err != nil {
			continue
		}

		switch hdr.Event {
		case "aggTrade":
			ev, err := s.parseTrade(data)
			if err != nil {
				continue
			}
			if !feed.Send(ctx, out, ev) {
				return ctx.Err()
			}
		case "depthUpdate":
			ev, err := s.parseDepth(data)
			if err != nil {
				continue
			}
			if !feed.Send(ctx, out, ev) {
				return ctx.Err()
			}
		case "markPriceUpdate":
			// fans out to FundingTick + BasisTick: both or neither
			evs, err := s.parseMarkPrice(data)
			if err != nil {
				continue
			}
			for _, ev := range evs {
				if !feed.Send(ctx, out, ev) {
					return ctx.Err()
				}
			}
		}
	}
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// canonical resolves a raw venue symbol; raw symbols outside the table
// are treated as malformed messages and skipped.
func (s *Stream) canonical(raw string) (string, bool) {
	inst, ok := s.reverse[strings.ToUpper(raw)]
	return inst, ok
}

func (s *Stream) parseTrade(data []byte) (models.TradePrint, error) {
	// the "e" field must be declared: without an exact match the
	// case-insensitive matcher binds "e" to EventTime's "E" tag
	var m struct {
		Event      string `json:"e"`
		Symbol     string `json:"s"`
		Price      string `json:"p"`
		Qty        string `json:"q"`
		TradeTime  int64  `json:"T"`
		EventTime  int64  `json:"E"`
		AggID      int64  `json:"a"`
		BuyerMaker bool   `json:"m"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return models.TradePrint{}, fmt.Errorf("aggTrade: %w", err)
	}
	inst, ok := s.canonical(m.Symbol)
	if !ok {
		return models.TradePrint{}, fmt.Errorf("aggTrade: unmapped symbol %q", m.Symbol)
	}
	price, err := strconv.ParseFloat(m.Price, 64)
	if err != nil {
		return models.TradePrint{}, fmt.Errorf("aggTrade price: %w", err)
	}
	size, err := strconv.ParseFloat(m.Qty, 64)
	if err != nil {
		return models.TradePrint{}, fmt.Errorf("aggTrade qty: %w", err)
	}

	// buyer is maker means the aggressor sold
	side := models.SideBuy
	if m.BuyerMaker {
		side = models.SideSell
	}
	eventMS := m.EventTime
	if eventMS == 0 {
		eventMS = m.TradeTime
	}

	return models.TradePrint{
		EventBase: models.EventBase{
			TS:     msToTime(m.TradeTime),
			RecvTS: time.Now().UTC(),
			Symbol: inst,
			Venue:  models.VenueBinance,
			Etype:  models.KindTradePrint,
			Meta: map[string]any{
				"stream_event_time_ms": eventMS,
				"agg_id":               m.AggID,
			},
		},
		Price: price,
		Size:  size,
		Side:  side,
	}, nil
}

func parseLevels(raw [][]string) ([]models.BookLevel, error) {
	out := make([]models.BookLevel, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			return nil, fmt.Errorf("short book level")
		}
		price, err := strconv.ParseFloat(lvl[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level price: %w", err)
		}
		size, err := strconv.ParseFloat(lvl[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level size: %w", err)
		}
		out = append(out, models.BookLevel{Price: price, Size: size})
	}
	return out, nil
}

func (s *Stream) parseDepth(data []byte) (models.BookDelta, error) {
	var m struct {
		Event     string     `json:"e"`
		Symbol    string     `json:"s"`
		EventTime int64      `json:"E"`
		TradeTime int64      `json:"T"`
		FirstID   int64      `json:"U"`
		LastID    int64      `json:"u"`
		PrevID    int64      `json:"pu"`
		Bids      [][]string `json:"b"`
		Asks      [][]string `json:"a"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return models.BookDelta{}, fmt.Errorf("depthUpdate: %w", err)
	}
	inst, ok := s.canonical(m.Symbol)
	if !ok {
		return models.BookDelta{}, fmt.Errorf("depthUpdate: unmapped symbol %q", m.Symbol)
	}
	bids, err := parseLevels(m.Bids)
	if err != nil {
		return models.BookDelta{}, err
	}
	asks, err := parseLevels(m.Asks)
	if err != nil {
		return models.BookDelta{}, err
	}

	tsMS := m.TradeTime
	if tsMS == 0 {
		tsMS = m.EventTime
	}
	ts := time.Now().UTC()
	if tsMS != 0 {
		ts = msToTime(tsMS)
	}

	return models.BookDelta{
		EventBase: models.EventBase{
			TS:     ts,
			RecvTS: time.Now().UTC(),
			Symbol: inst,
			Venue:  models.VenueBinance,
			Etype:  models.KindBookDelta,
			Meta: map[string]any{
				"U":             m.FirstID,
				"u":             m.LastID,
				"pu":            m.PrevID,
				"event_time_ms": m.EventTime,
			},
		},
		Bids:   feed.TruncateBids(bids, s.cfg.DepthN),
		Asks:   feed.TruncateAsks(asks, s.cfg.DepthN),
		DepthN: s.cfg.DepthN,
	}, nil
}

func (s *Stream) parseMarkPrice(data []byte) ([]models.Event, error) {
	// "e" and "P" (estimated settle) must be declared: without exact
	// matches the case-insensitive matcher binds them to "E" and "p"
	var m struct {
		Event       string `json:"e"`
		Symbol      string `json:"s"`
		EventTime   int64  `json:"E"`
		Mark        string `json:"p"`
		EstSettle   string `json:"P"`
		Index       string `json:"i"`
		FundingRate string `json:"r"`
		NextFunding int64  `json:"T"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("markPriceUpdate: %w", err)
	}
	inst, ok := s.canonical(m.Symbol)
	if !ok {
		return nil, fmt.Errorf("markPriceUpdate: unmapped symbol %q", m.Symbol)
	}
	mark, err := strconv.ParseFloat(m.Mark, 64)
	if err != nil {
		return nil, fmt.Errorf("mark price: %w", err)
	}
	index, err := strconv.ParseFloat(m.Index, 64)
	if err != nil {
		return nil, fmt.Errorf("index price: %w", err)
	}
	rate, err := strconv.ParseFloat(m.FundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("funding rate: %w", err)
	}

	eventMS := m.EventTime
	ts := time.Now().UTC()
	if eventMS != 0 {
		ts = msToTime(eventMS)
	}
	recv := time.Now().UTC()
	meta := map[string]any{"mark": mark, "index": index, "event_time_ms": eventMS}

	var nextFunding *time.Time
	if m.NextFunding != 0 {
		t := msToTime(m.NextFunding)
		nextFunding = &t
	}

	base := models.EventBase{
		TS:     ts,
		RecvTS: recv,
		Symbol: inst,
		Venue:  models.VenueBinance,
		Meta:   meta,
	}

	fundingBase := base
	fundingBase.Etype = models.KindFundingTick
	basisBase := base
	basisBase.Etype = models.KindBasisTick

	return []models.Event{
		models.FundingTick{
			EventBase:     fundingBase,
			FundingRate:   rate,
			NextFundingTS: nextFunding,
		},
		models.BasisTick{
			EventBase: basisBase,
			Basis:     mark - index,
			BasisType: "mark_minus_index",
		},
	}, nil
}

// pollLoop drives the REST metrics on their own cadences. Poll failures
// are logged and swallowed; a bad response never terminates the loop.
func (s *Stream) pollLoop(ctx context.Context, out chan<- models.Event) {
	// small delay so we don't spike right at startup
	if !feed.Sleep(ctx, time.Second) {
		return
	}

	oiTicker := time.NewTicker(s.cfg.OIPoll)
	defer oiTicker.Stop()
	basisTicker := time.NewTicker(s.cfg.BasisPoll)
	defer basisTicker.Stop()

	s.pollOpenInterest(ctx, out)
	s.pollBasis(ctx, out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-oiTicker.C:
			s.pollOpenInterest(ctx, out)
		case <-basisTicker.C:
			s.pollBasis(ctx, out)
		}
	}
}

func (s *Stream) pollOpenInterest(ctx context.Context, out chan<- models.Event) {
	for _, inst := range s.cfg.Instruments {
		raw := strings.ToUpper(s.cfg.Symbols[inst])

		var resp struct {
			OpenInterest string `json:"openInterest"`
			Time         int64  `json:"time"`
		}
		err := s.client.GetJSON(ctx, fapiBase+"/fapi/v1/openInterest", map[string]string{"symbol": raw}, &resp)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", raw).Msg("open interest poll failed")
			continue
		}
		oi, err := strconv.ParseFloat(resp.OpenInterest, 64)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", raw).Msg("open interest parse failed")
			continue
		}

		ts := time.Now().UTC()
		if resp.Time != 0 {
			ts = msToTime(resp.Time)
		}
		ev := models.OITick{
			EventBase: models.EventBase{
				TS:     ts,
				RecvTS: time.Now().UTC(),
				Symbol: inst,
				Venue:  models.VenueBinance,
				Etype:  models.KindOITick,
			},
			OpenInterest: oi,
		}
		if !feed.Send(ctx, out, ev) {
			return
		}
	}
}

func (s *Stream) pollBasis(ctx context.Context, out chan<- models.Event) {
	for _, inst := range s.cfg.Instruments {
		pair := strings.ToUpper(s.cfg.Symbols[inst])

		var rows []struct {
			Basis     string `json:"basis"`
			Timestamp int64  `json:"timestamp"`
		}
		err := s.client.GetJSON(ctx, fapiBase+"/futures/data/basis", map[string]string{
			"pair":         pair,
			"contractType": "PERPETUAL",
			"period":       s.cfg.BasisPeriod,
			"limit":        "1",
		}, &rows)
		if err != nil {
			s.log.Debug().Err(err).Str("pair", pair).Msg("basis poll failed")
			continue
		}
		if len(rows) == 0 {
			continue
		}
		basis, err := strconv.ParseFloat(rows[0].Basis, 64)
		if err != nil {
			s.log.Debug().Err(err).Str("pair", pair).Msg("basis parse failed")
			continue
		}

		ts := time.Now().UTC()
		if rows[0].Timestamp != 0 {
			ts = msToTime(rows[0].Timestamp)
		}
		ev := models.BasisTick{
			EventBase: models.EventBase{
				TS:     ts,
				RecvTS: time.Now().UTC(),
				Symbol: inst,
				Venue:  models.VenueBinance,
				Etype:  models.KindBasisTick,
			},
			Basis:     basis,
			BasisType: "endpoint_PERPETUAL_" + s.cfg.BasisPeriod,
		}
		if !feed.Send(ctx, out, ev) {
			return
		}
	}
}

var _ drepo.MarketFeed = (*Stream)(nil)
