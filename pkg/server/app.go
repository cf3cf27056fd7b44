package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/recorder"
	"ConeCast/internal/usecase"
	"ConeCast/pkg/config"
	xhttp "ConeCast/pkg/http"

	"github.com/rs/zerolog"
)

// App encapsulates the application lifecycle: event source, pipeline and
// the read-only HTTP surface.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	feed       drepo.MarketFeed
	pipeline   *usecase.Pipeline
	rec        drepo.EventRecorder
	sinks      []drepo.SnapshotSink
	httpServer *xhttp.Server
}

// New creates the App. feed is nil in replay mode; rec is nil when
// recording is disabled.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	feed drepo.MarketFeed,
	pipeline *usecase.Pipeline,
	rec drepo.EventRecorder,
	sinks []drepo.SnapshotSink,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		feed:       feed,
		pipeline:   pipeline,
		rec:        rec,
		sinks:      sinks,
		httpServer: httpServer,
	}
}

// Run starts the pipeline and HTTP server and blocks until the feed
// drains, the pipeline fails, or a shutdown signal arrives.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error().Err(err).Msg("http server failed")
		}
	}()

	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		runErr = a.runPipeline(ctx)
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown signal received")
		<-done
	case <-done:
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return runErr
}

func (a *App) runPipeline(ctx context.Context) error {
	if a.cfg.Mode == "replay" {
		return a.replay(ctx)
	}

	a.log.Info().
		Str("mode", a.cfg.Mode).
		Str("venue", string(a.feed.Venue())).
		Strs("instruments", a.cfg.Instruments).
		Msg("starting pipeline")
	return a.pipeline.Run(ctx, a.feed.Events(ctx))
}

// replay feeds the recorded event log through the same pipeline. The
// sequence is finite and terminates at end of file.
func (a *App) replay(ctx context.Context) error {
	r, err := recorder.NewReader(a.cfg.Replay.Path)
	if err != nil {
		return fmt.Errorf("open replay log: %w", err)
	}
	defer r.Close()

	a.log.Info().Str("path", a.cfg.Replay.Path).Msg("replaying event log")

	events := make(chan models.Event)
	var readErr error
	go func() {
		defer close(events)
		n := 0
		for {
			ev, err := r.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr = fmt.Errorf("read replay log: %w", err)
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			n++
			if a.cfg.Replay.MaxEvents > 0 && n >= a.cfg.Replay.MaxEvents {
				return
			}
		}
	}()

	if err := a.pipeline.Run(ctx, events); err != nil {
		return err
	}
	return readErr
}

func (a *App) shutdown() error {
	a.log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown error")
	}

	var firstErr error
	if a.rec != nil {
		if err := a.rec.Close(); err != nil {
			a.log.Error().Err(err).Msg("recorder close error")
			firstErr = err
		}
	}
	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			a.log.Warn().Err(err).Msg("sink close error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
