// Package okx implements the OKX public-channel market feed (trades and
// order books). Funding and open interest for OKX are out of scope of
// the public stream used here.
package okx

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

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	publicURL    = "wss://ws.okx.com:8443/ws/v5/public"
	pingInterval = 20 * time.Second
)

// Config holds the feed parameters. InstIDs maps canonical instrument
// ids to OKX instrument ids (e.g. BTC -> BTC-USDT).
type Config struct {
	Instruments []string
	InstIDs     map[string]string
	DepthN      int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	QueueSize      int
}

// Stream is the OKX public MarketFeed.
type Stream struct {
	cfg     Config
	reverse map[string]string
	log     zerolog.Logger
}

// New validates the instrument table and creates the feed.
func New(cfg Config, log zerolog.Logger) (*Stream, error) {
	if cfg.DepthN <= 0 {
		cfg.DepthN = 20
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
		id, ok := cfg.InstIDs[inst]
		if !ok || id == "" {
			return nil, fmt.Errorf("okx: no instId mapping for instrument %q", inst)
		}
		reverse[strings.ToUpper(id)] = inst
	}

	return &Stream{
		cfg:     cfg,
		reverse: reverse,
		log:     log.With().Str("venue", "okx").Logger(),
	}, nil
}

// Venue reports the feed's venue.
func (s *Stream) Venue() models.Venue { return models.VenueOKX }

// Events starts the single WebSocket producer and returns the bounded
// stream. The channel closes once the producer has terminated.
func (s *Stream) Events(ctx context.Context) <-chan models.Event {
	out := make(chan models.Event, s.cfg.QueueSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.wsLoop(ctx, out)
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (s *Stream) wsLoop(ctx context.Context, out chan<- models.Event) {
	backoff := s.cfg.InitialBackoff

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, publicURL, nil)
		if err != nil {
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("connect failed")
			if !feed.Sleep(ctx, backoff) {
				return
			}
			backoff = feed.NextBackoff(backoff, s.cfg.MaxBackoff)
			continue
		}

		err = s.subscribe(conn)
		if err == nil {
			backoff = s.cfg.InitialBackoff
			s.log.Info().Msg("stream connected")
			err = s.readLoop(ctx, conn, out)
		}
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

func (s *Stream) subscribe(conn *websocket.Conn) error {
	type arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	}
	args := make([]arg, 0, 2*len(s.cfg.Instruments))
	for _, inst := range s.cfg.Instruments {
		id := s.cfg.InstIDs[inst]
		args = append(args, arg{Channel: "trades", InstID: id})
		args = append(args, arg{Channel: "books", InstID: id})
	}
	req := map[string]any{"id": "conecast", "op": "subscribe", "args": args}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- models.Event) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

		var frame struct {
			Event string `json:"event"`
			Arg   struct {
				Channel string `json:"channel"`
				InstID  string `json:"instId"`
			} `json:"arg"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Event != "" {
			// subscribe ack, error notice, etc.
			continue
		}

		inst, ok := s.reverse[strings.ToUpper(frame.Arg.InstID)]
		if !ok {
			continue
		}

		switch frame.Arg.Channel {
		case "trades":
			evs, err := s.parseTrades(inst, frame.Data)
			if err != nil {
				continue
			}
			for _, ev := range evs {
				if !feed.Send(ctx, out, ev) {
					return ctx.Err()
				}
			}
		case "books":
			ev, err := s.parseBooks(inst, frame.Data)
			if err != nil {
				continue
			}
			if !feed.Send(ctx, out, ev) {
				return ctx.Err()
			}
		}
	}
}

func parseMillis(raw string) (time.Time, bool) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (s *Stream) parseTrades(inst string, data []byte) ([]models.Event, error) {
	var rows []struct {
		Px      string `json:"px"`
		Sz      string `json:"sz"`
		Side    string `json:"side"`
		TS      string `json:"ts"`
		TradeID string `json:"tradeId"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}

	out := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		price, err := strconv.ParseFloat(row.Px, 64)
		if err != nil {
			return nil, fmt.Errorf("trade px: %w", err)
		}
		size, err := strconv.ParseFloat(row.Sz, 64)
		if err != nil {
			return nil, fmt.Errorf("trade sz: %w", err)
		}

		var side models.TradeSide
		switch strings.ToLower(row.Side) {
		case "buy":
			side = models.SideBuy
		case "sell":
			side = models.SideSell
		default:
			side = models.SideUnknown
		}

		// a frame without ts keeps the zero value rather than
		// substituting local time
		ts, _ := parseMillis(row.TS)

		out = append(out, models.TradePrint{
			EventBase: models.EventBase{
				TS:     ts,
				RecvTS: time.Now().UTC(),
				Symbol: inst,
				Venue:  models.VenueOKX,
				Etype:  models.KindTradePrint,
				Meta:   map[string]any{"trade_id": row.TradeID},
			},
			Price: price,
			Size:  size,
			Side:  side,
		})
	}
	return out, nil
}

func (s *Stream) parseBooks(inst string, data []byte) (models.BookDelta, error) {
	var rows []struct {
		Bids     [][]string `json:"bids"`
		Asks     [][]string `json:"asks"`
		TS       string     `json:"ts"`
		Checksum int64      `json:"checksum"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return models.BookDelta{}, fmt.Errorf("books: %w", err)
	}
	if len(rows) == 0 {
		return models.BookDelta{}, fmt.Errorf("books: empty data")
	}
	row := rows[0]

	parse := func(raw [][]string) ([]models.BookLevel, error) {
		out := make([]models.BookLevel, 0, len(raw))
		for _, lvl := range raw {
			// OKX levels carry [price, size, liq orders, order count]
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

	bids, err := parse(row.Bids)
	if err != nil {
		return models.BookDelta{}, err
	}
	asks, err := parse(row.Asks)
	if err != nil {
		return models.BookDelta{}, err
	}

	ts, ok := parseMillis(row.TS)
	if !ok {
		ts = time.Now().UTC()
	}

	return models.BookDelta{
		EventBase: models.EventBase{
			TS:     ts,
			RecvTS: time.Now().UTC(),
			Symbol: inst,
			Venue:  models.VenueOKX,
			Etype:  models.KindBookDelta,
			Meta:   map[string]any{"checksum": row.Checksum},
		},
		Bids:   feed.TruncateBids(bids, s.cfg.DepthN),
		Asks:   feed.TruncateAsks(asks, s.cfg.DepthN),
		DepthN: s.cfg.DepthN,
	}, nil
}

var _ drepo.MarketFeed = (*Stream)(nil)
