// Package recorder persists normalized events to an append-only JSONL
// log and replays them deterministically.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ConeCast/internal/domain/models"
)

// Writer appends one JSON object per event, flushing every FlushEvery
// writes and on Close. Write and Close errors propagate to the caller:
// a broken log is a data-loss condition.
type Writer struct {
	f          *os.File
	w          *bufio.Writer
	flushEvery int
	n          int
}

// NewWriter opens (creating parent directories) the log at path for
// appending. flushEvery <= 0 defaults to 200.
func NewWriter(path string, flushEvery int) (*Writer, error) {
	if flushEvery <= 0 {
		flushEvery = 200
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("recorder: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	return &Writer{f: f, w: bufio.NewWriter(f), flushEvery: flushEvery}, nil
}

// Write serializes one event as a single line.
func (w *Writer) Write(ev models.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("recorder: marshal %s: %w", ev.Kind(), err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("recorder: write: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("recorder: write: %w", err)
	}
	w.n++
	if w.n%w.flushEvery == 0 {
		if err := w.w.Flush(); err != nil {
			return fmt.Errorf("recorder: flush: %w", err)
		}
	}
	return nil
}

// Close flushes pending writes and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("recorder: flush: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("recorder: close: %w", err)
	}
	return nil
}

// Reader replays a recorded log. The sequence is finite and restartable
// only by opening a new Reader.
type Reader struct {
	f  *os.File
	sc *bufio.Scanner
}

// NewReader opens the log at path for replay.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{f: f, sc: sc}, nil
}

// Next returns the next event, or io.EOF at end of log.
func (r *Reader) Next() (models.Event, error) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := Decode(line)
		if err != nil {
			return nil, err
		}
		return ev, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("recorder: scan: %w", err)
	}
	return nil, io.EOF
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Decode reconstructs the tagged variant from one serialized event.
// Unknown kinds fall back to the common base fields.
func Decode(line []byte) (models.Event, error) {
	var probe struct {
		Etype models.EventKind `json:"etype"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("recorder: decode: %w", err)
	}

	unmarshal := func(v models.Event) (models.Event, error) {
		if err := json.Unmarshal(line, v); err != nil {
			return nil, fmt.Errorf("recorder: decode %s: %w", probe.Etype, err)
		}
		return deref(v), nil
	}

	switch probe.Etype {
	case models.KindTradePrint:
		return unmarshal(&models.TradePrint{})
	case models.KindBookDelta:
		return unmarshal(&models.BookDelta{})
	case models.KindFundingTick:
		return unmarshal(&models.FundingTick{})
	case models.KindOITick:
		return unmarshal(&models.OITick{})
	case models.KindBasisTick:
		return unmarshal(&models.BasisTick{})
	case models.KindLiquidationSnapshot:
		return unmarshal(&models.LiquidationSnapshot{})
	case models.KindOnchainSnapshot:
		return unmarshal(&models.OnchainSnapshot{})
	case models.KindMacroSnapshot:
		return unmarshal(&models.MacroSnapshot{})
	default:
		return unmarshal(&models.RawEvent{})
	}
}

func deref(v models.Event) models.Event {
	switch t := v.(type) {
	case *models.TradePrint:
		return *t
	case *models.BookDelta:
		return *t
	case *models.FundingTick:
		return *t
	case *models.OITick:
		return *t
	case *models.BasisTick:
		return *t
	case *models.LiquidationSnapshot:
		return *t
	case *models.OnchainSnapshot:
		return *t
	case *models.MacroSnapshot:
		return *t
	case *models.RawEvent:
		return *t
	default:
		return v
	}
}
