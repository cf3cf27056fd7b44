package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ConeCast/internal/domain/models"
)

func sampleRecord(symbol string, price float64) *models.SnapshotRecord {
	return &models.SnapshotRecord{
		TS:     time.Unix(1_700_000_000, 0).UTC(),
		Symbol: symbol,
		Snapshots: []models.ScaleSnapshot{
			{
				Scale:    "micro",
				Features: models.FeatureSnapshot{LastPrice: price, NTrades: 10},
			},
		},
	}
}

func TestJSONLSinkRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "derived", "snapshots.jsonl")

	sink, err := NewJSONLSnapshotSink(path, 1)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	ctx := context.Background()
	if err := sink.Emit(ctx, sampleRecord("BTC", 50_000)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := sink.Emit(ctx, sampleRecord("ETH", 3_000)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var recs []models.SnapshotRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec models.SnapshotRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Symbol != "BTC" || recs[1].Symbol != "ETH" {
		t.Fatalf("symbols = %s/%s", recs[0].Symbol, recs[1].Symbol)
	}
	if recs[0].Snapshots[0].Features.LastPrice != 50_000 {
		t.Fatalf("last price = %v", recs[0].Snapshots[0].Features.LastPrice)
	}
}

func TestJSONLSinkFlushOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")

	sink, err := NewJSONLSnapshotSink(path, 1000)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Emit(context.Background(), sampleRecord("BTC", 1)); err != nil {
		t.Fatalf("emit: %v", err)
	}

	// below the flush threshold, the line only lands on Close
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("file empty after close")
	}
}
