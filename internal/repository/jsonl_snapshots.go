package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
)

// JSONLSnapshotSink appends snapshot records to a newline-delimited JSON
// file, flushing every flushEvery writes and on Close.
type JSONLSnapshotSink struct {
	f          *os.File
	w          *bufio.Writer
	flushEvery int
	pending    int
}

// NewJSONLSnapshotSink opens (or creates) the file for appending.
func NewJSONLSnapshotSink(path string, flushEvery int) (*JSONLSnapshotSink, error) {
	if flushEvery <= 0 {
		flushEvery = 200
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &JSONLSnapshotSink{f: f, w: bufio.NewWriter(f), flushEvery: flushEvery}, nil
}

// Emit appends one record as a single line.
func (s *JSONLSnapshotSink) Emit(_ context.Context, rec *models.SnapshotRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.pending++
	if s.pending >= s.flushEvery {
		s.pending = 0
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flush snapshots: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the file.
func (s *JSONLSnapshotSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("flush snapshots: %w", err)
	}
	return s.f.Close()
}

var _ drepo.SnapshotSink = (*JSONLSnapshotSink)(nil)
