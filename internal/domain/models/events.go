package models

import "time"

// EventKind discriminates the market event variants. It is written to the
// event log as the "etype" field.
type EventKind string

const (
	KindTradePrint          EventKind = "trade_print"
	KindBookDelta           EventKind = "book_delta"
	KindFundingTick         EventKind = "funding_tick"
	KindOITick              EventKind = "oi_tick"
	KindBasisTick           EventKind = "basis_tick"
	KindLiquidationSnapshot EventKind = "liquidation_snapshot"
	KindOnchainSnapshot     EventKind = "onchain_snapshot"
	KindMacroSnapshot       EventKind = "macro_snapshot"
)

// Venue identifies the exchange an event originated from.
type Venue string

const (
	VenueBinance   Venue = "binance"
	VenueOKX       Venue = "okx"
	VenueSynthetic Venue = "synthetic"
)

// TradeSide is the aggressor side of a print.
type TradeSide string

const (
	SideBuy     TradeSide = "buy"
	SideSell    TradeSide = "sell"
	SideUnknown TradeSide = "unknown"
)

// Sign maps the aggressor side to a signed-size multiplier.
func (s TradeSide) Sign() float64 {
	switch s {
	case SideBuy:
		return 1.0
	case SideSell:
		return -1.0
	default:
		return 0.0
	}
}

// EventBase carries the fields common to every market event. TS is the
// exchange event time, RecvTS the local receipt time; TS <= RecvTS is
// expected but not enforced.
type EventBase struct {
	TS     time.Time      `json:"ts"`
	RecvTS time.Time      `json:"recv_ts"`
	Symbol string         `json:"symbol"`
	Venue  Venue          `json:"venue"`
	Etype  EventKind      `json:"etype"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Event is the closed set of market event variants. Adding a kind means
// adding a concrete type here, so dispatch sites fail to compile until
// they handle it.
type Event interface {
	Kind() EventKind
	Base() EventBase
}

// BookLevel is one (price, size) pair of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// TradePrint is a single executed trade.
type TradePrint struct {
	EventBase
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Side  TradeSide `json:"side"`
}

// BookDelta is a truncated order book update: bids descending by price,
// asks ascending, both capped at DepthN levels per side.
type BookDelta struct {
	EventBase
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
	DepthN int         `json:"depth_n"`
}

// FundingTick is a perpetual funding-rate observation.
type FundingTick struct {
	EventBase
	FundingRate   float64    `json:"funding_rate"`
	NextFundingTS *time.Time `json:"next_funding_ts,omitempty"`
}

// OITick is an open-interest observation.
type OITick struct {
	EventBase
	OpenInterest float64 `json:"open_interest"`
}

// BasisTick is a basis (mark minus reference) observation.
type BasisTick struct {
	EventBase
	Basis     float64 `json:"basis"`
	BasisType string  `json:"basis_type"`
}

// LiquidationSnapshot carries liquidation bands as (price, notional) pairs.
// Pass-through: the feature engine ignores it.
type LiquidationSnapshot struct {
	EventBase
	Bands [][2]float64 `json:"bands"`
}

// OnchainSnapshot carries on-chain metrics. Pass-through.
type OnchainSnapshot struct {
	EventBase
	Metrics map[string]float64 `json:"metrics"`
}

// MacroSnapshot carries macro metrics. Pass-through.
type MacroSnapshot struct {
	EventBase
	Metrics map[string]float64 `json:"metrics"`
}

func (e TradePrint) Kind() EventKind          { return KindTradePrint }
func (e BookDelta) Kind() EventKind           { return KindBookDelta }
func (e FundingTick) Kind() EventKind         { return KindFundingTick }
func (e OITick) Kind() EventKind              { return KindOITick }
func (e BasisTick) Kind() EventKind           { return KindBasisTick }
func (e LiquidationSnapshot) Kind() EventKind { return KindLiquidationSnapshot }
func (e OnchainSnapshot) Kind() EventKind     { return KindOnchainSnapshot }
func (e MacroSnapshot) Kind() EventKind       { return KindMacroSnapshot }

func (b EventBase) Base() EventBase { return b }

// RawEvent wraps base fields of an event whose kind is not recognized,
// e.g. a log line written by a newer build. Replay falls back to it.
type RawEvent struct {
	EventBase
}

func (e RawEvent) Kind() EventKind { return e.Etype }

