package binance

import (
	"strconv"
	"testing"
	"time"

	"ConeCast/internal/domain/models"

	"github.com/rs/zerolog"
)

func testStream(t *testing.T) *Stream {
	t.Helper()
	s, err := New(Config{
		Instruments: []string{"BTC", "ETH"},
		Symbols:     map[string]string{"BTC": "btcusdt", "ETH": "ethusdt"},
	}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	return s
}

func TestNewRejectsUnmappedInstrument(t *testing.T) {
	_, err := New(Config{
		Instruments: []string{"BTC", "SOL"},
		Symbols:     map[string]string{"BTC": "btcusdt"},
	}, nil, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected configuration error for unmapped instrument")
	}
}

func TestParseTrade(t *testing.T) {
	s := testStream(t)
	data := []byte(`{"e":"aggTrade","E":1700000000100,"s":"BTCUSDT","a":42,"p":"50000.5","q":"0.25","T":1700000000000,"m":true}`)

	tr, err := s.parseTrade(data)
	if err != nil {
		t.Fatalf("parse trade: %v", err)
	}
	if tr.Symbol != "BTC" {
		t.Fatalf("symbol = %q", tr.Symbol)
	}
	if tr.Price != 50000.5 || tr.Size != 0.25 {
		t.Fatalf("price/size = %v/%v", tr.Price, tr.Size)
	}
	if tr.Side != models.SideSell {
		t.Fatalf("buyer-is-maker should map to sell, got %s", tr.Side)
	}
	if !tr.TS.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("ts = %v", tr.TS)
	}
}

func TestParseTradeUnmappedSymbolSkipped(t *testing.T) {
	s := testStream(t)
	data := []byte(`{"e":"aggTrade","s":"DOGEUSDT","p":"0.1","q":"1","T":1700000000000}`)
	if _, err := s.parseTrade(data); err == nil {
		t.Fatalf("expected error for unmapped raw symbol")
	}
}

func TestParseDepthTruncatesAndSorts(t *testing.T) {
	s := testStream(t)
	s.cfg.DepthN = 20

	bids := "["
	for i := 0; i < 25; i++ {
		if i > 0 {
			bids += ","
		}
		// ascending input; parser must resort descending
		bids += `["` + strconv.Itoa(100+i) + `","1.0"]`
	}
	bids += "]"
	data := []byte(`{"e":"depthUpdate","s":"BTCUSDT","T":1700000000000,"b":` + bids + `,"a":[["130","2.0"],["129","1.0"]]}`)

	bd, err := s.parseDepth(data)
	if err != nil {
		t.Fatalf("parse depth: %v", err)
	}
	if len(bd.Bids) != 20 {
		t.Fatalf("expected 20 bid levels, got %d", len(bd.Bids))
	}
	for i := 1; i < len(bd.Bids); i++ {
		if bd.Bids[i].Price >= bd.Bids[i-1].Price {
			t.Fatalf("bids not strictly descending at %d", i)
		}
	}
	for i := 1; i < len(bd.Asks); i++ {
		if bd.Asks[i].Price <= bd.Asks[i-1].Price {
			t.Fatalf("asks not strictly ascending at %d", i)
		}
	}
}

func TestParseMarkPriceFansOut(t *testing.T) {
	s := testStream(t)
	// "P" (estimated settle) must not clobber the "p" mark price
	data := []byte(`{"e":"markPriceUpdate","E":1700000000000,"s":"BTCUSDT","p":"101","P":"999","i":"100","r":"0.0001","T":1700028800000}`)

	evs, err := s.parseMarkPrice(data)
	if err != nil {
		t.Fatalf("parse mark price: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected funding+basis, got %d events", len(evs))
	}

	funding, ok := evs[0].(models.FundingTick)
	if !ok {
		t.Fatalf("first event is %T", evs[0])
	}
	basis, ok := evs[1].(models.BasisTick)
	if !ok {
		t.Fatalf("second event is %T", evs[1])
	}
	if basis.Basis != 1 {
		t.Fatalf("basis = %v, want 1", basis.Basis)
	}
	if basis.BasisType != "mark_minus_index" {
		t.Fatalf("basis type = %q", basis.BasisType)
	}
	if !funding.TS.Equal(basis.TS) {
		t.Fatalf("funding ts %v != basis ts %v", funding.TS, basis.TS)
	}
	if funding.FundingRate != 0.0001 {
		t.Fatalf("funding rate = %v", funding.FundingRate)
	}
	if funding.NextFundingTS == nil || !funding.NextFundingTS.Equal(time.UnixMilli(1700028800000).UTC()) {
		t.Fatalf("next funding ts = %v", funding.NextFundingTS)
	}
}

func TestStreamURL(t *testing.T) {
	s := testStream(t)
	s.cfg.DepthN = 20
	s.cfg.DepthSpeed = "100ms"

	url := s.streamURL()
	want := fstreamBase + "btcusdt@aggTrade/btcusdt@depth20@100ms/btcusdt@markPrice@1s/ethusdt@aggTrade/ethusdt@depth20@100ms/ethusdt@markPrice@1s"
	if url != want {
		t.Fatalf("url mismatch:\n got %s\nwant %s", url, want)
	}
}
