// Package api exposes the read-only snapshot lookups.
package api

import (
	"context"
	"net/http"

	"ConeCast/internal/domain/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SnapshotReader looks up the latest snapshot record for a symbol. A nil
// record with a nil error means no snapshot exists yet.
type SnapshotReader interface {
	Latest(ctx context.Context, symbol string) (*models.SnapshotRecord, error)
}

// SnapshotsHandler serves the latest snapshot record per symbol.
type SnapshotsHandler struct {
	cache SnapshotReader
	log   zerolog.Logger
}

// NewSnapshotsHandler creates the handler.
func NewSnapshotsHandler(cache SnapshotReader, log zerolog.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{cache: cache, log: log}
}

// RegisterRoutes mounts the handler's routes.
func (h *SnapshotsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/snapshots/:symbol", h.latest)
}

func (h *SnapshotsHandler) latest(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "symbol required")
	}

	rec, err := h.cache.Latest(c.Request().Context(), symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("snapshot lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "snapshot lookup failed")
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no snapshot for symbol")
	}
	return c.JSON(http.StatusOK, rec)
}
