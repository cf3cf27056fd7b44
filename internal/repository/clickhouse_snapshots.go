package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	pkgch "ConeCast/pkg/clickhouse"
)

var snapshotSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		ts         DateTime64(3, 'UTC'),
		symbol     LowCardinality(String),
		scale      LowCardinality(String),
		kingdom    LowCardinality(String),
		last_price Float64,
		cone       String,
		payload    String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, scale, ts)`,
}

// ClickHouseSnapshotStore persists one row per (record, scale) with the
// query columns materialized and the full scale snapshot as JSON.
type ClickHouseSnapshotStore struct {
	client *pkgch.Client
}

// NewClickHouseSnapshotStore ensures the schema and creates the store.
func NewClickHouseSnapshotStore(ctx context.Context, client *pkgch.Client) (*ClickHouseSnapshotStore, error) {
	if err := client.InitSchema(ctx, snapshotSchema); err != nil {
		return nil, fmt.Errorf("snapshot schema: %w", err)
	}
	return &ClickHouseSnapshotStore{client: client}, nil
}

// Emit inserts the record's per-scale rows.
func (s *ClickHouseSnapshotStore) Emit(ctx context.Context, rec *models.SnapshotRecord) error {
	const q = `INSERT INTO snapshots (ts, symbol, scale, kingdom, last_price, cone, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, snap := range rec.Snapshots {
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		cone := "null"
		if snap.Cone != nil {
			b, err := json.Marshal(snap.Cone)
			if err != nil {
				return fmt.Errorf("marshal cone: %w", err)
			}
			cone = string(b)
		}
		_, err = s.client.DB().ExecContext(ctx, q,
			rec.TS, rec.Symbol, snap.Scale, snap.Regimes.Kingdom,
			snap.Features.LastPrice, cone, string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *ClickHouseSnapshotStore) Close() error {
	return s.client.Close()
}

var _ drepo.SnapshotSink = (*ClickHouseSnapshotStore)(nil)
