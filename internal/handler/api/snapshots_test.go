package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ConeCast/internal/domain/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type fakeReader struct {
	rec *models.SnapshotRecord
	err error
}

func (r *fakeReader) Latest(context.Context, string) (*models.SnapshotRecord, error) {
	return r.rec, r.err
}

func serve(t *testing.T, reader SnapshotReader, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	NewSnapshotsHandler(reader, zerolog.Nop()).RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLatestFound(t *testing.T) {
	stored := &models.SnapshotRecord{
		TS:     time.Unix(1_700_000_000, 0).UTC(),
		Symbol: "BTC",
	}
	rec := serve(t, &fakeReader{rec: stored}, "/v1/snapshots/BTC")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.SnapshotRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Symbol != "BTC" {
		t.Fatalf("symbol = %q", got.Symbol)
	}
}

func TestLatestNotFound(t *testing.T) {
	rec := serve(t, &fakeReader{}, "/v1/snapshots/DOGE")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestLatestLookupError(t *testing.T) {
	rec := serve(t, &fakeReader{err: errors.New("redis down")}, "/v1/snapshots/BTC")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
