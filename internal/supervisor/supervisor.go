package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reactir/internal/acquisition"
	"reactir/internal/cancel"
	"reactir/internal/config"
	"reactir/internal/errlog"
	"reactir/internal/instrument"
	"reactir/internal/logging"
	"reactir/internal/metrics"
	"reactir/internal/store"
	"reactir/internal/textutil"
)

const runningStatus = "running"

// Supervisor coordinates one acquisition session over a connected link.
type Supervisor struct {
	cfg    *config.Config
	link   instrument.Link
	store  *store.Store
	logger *slog.Logger

	now      func() time.Time
	newRunID func() string

	sawRunning atomic.Bool
}

// New constructs a supervisor. The link must already be connected; Run
// closes it before returning.
func New(cfg *config.Config, link instrument.Link, st *store.Store, logger *slog.Logger) (*Supervisor, error) {
	if cfg == nil || link == nil || st == nil {
		return nil, errors.New("supervisor requires config, link, and store")
	}
	return &Supervisor{
		cfg:      cfg,
		link:     link,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "supervisor"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}, nil
}

// Run executes one session and blocks until both loops have stopped. The
// returned error joins any fatal loop errors; setup failures return before
// either loop starts.
func (s *Supervisor) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	lock, err := store.AcquireWriterLock(s.store.Path())
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("release writer lock failed", logging.Error(err))
		}
	}()

	runID := s.newRunID()
	document := s.cfg.DocumentName(s.now())
	run, err := s.store.EnsureRun(ctx, store.RunContext{
		User:       s.cfg.Run.User,
		Project:    s.cfg.Run.Project,
		Experiment: s.cfg.Run.Experiment,
		Document:   document,
		RunID:      runID,
	})
	if err != nil {
		return summary, fmt.Errorf("record run: %w", err)
	}
	summary.RunID = runID
	summary.DocumentID = run.DocumentID
	summary.Document = document

	logger := s.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.Int64(logging.FieldDocumentID, run.DocumentID),
	)

	if closed, err := s.store.CloseOrphanTrends(ctx, run.DocumentID); err != nil {
		logging.WarnWithContext(logger, "closing orphaned trends failed", "orphan_close_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "earlier trends keep no end time"),
		)
	} else if closed > 0 {
		logger.Info("closed trends left open by an earlier run", logging.Int64("count", closed))
	}

	m := metrics.New()
	logPath := filepath.Join(s.cfg.Paths.LogDir,
		fmt.Sprintf("errors_%s_%s.log", textutil.SanitizeFileName(document), runID))
	sink, err := errlog.Open(logPath, logger, m)
	if err != nil {
		return summary, err
	}
	if err := s.store.SetErrorLogPath(ctx, run.DocumentID, logPath); err != nil {
		return summary, err
	}
	summary.ErrorLogPath = logPath

	metricsCtx, stopMetrics := context.WithCancel(context.WithoutCancel(ctx))
	defer stopMetrics()
	if listen := s.cfg.Metrics.Listen; listen != "" {
		if _, err := m.Serve(metricsCtx, listen, logger); err != nil {
			logging.WarnWithContext(logger, "metrics listener unavailable", "metrics_listen_failed",
				logging.Error(err),
				logging.String("listen", listen),
				logging.String(logging.FieldErrorHint, "check metrics.listen or free the port"),
			)
		}
	}

	signal := cancel.New()
	raw := acquisition.NewRawLoop(acquisition.RawDeps{
		Config:     s.cfg,
		Link:       s.link,
		Store:      s.store,
		Sink:       sink,
		Signal:     signal,
		Metrics:    m,
		Logger:     logger,
		DocumentID: run.DocumentID,
	})
	trend := acquisition.NewTrendLoop(acquisition.TrendDeps{
		Config:     s.cfg,
		Link:       s.link,
		Store:      s.store,
		Sink:       sink,
		Signal:     signal,
		Metrics:    m,
		Logger:     logger,
		DocumentID: run.DocumentID,
	})

	logger.Info("acquisition session started",
		logging.String("document", document),
		logging.String("error_log", logPath),
	)

	var (
		wg          sync.WaitGroup
		rawResult   acquisition.RawResult
		trendResult acquisition.TrendResult
	)
	runEnded := make(chan struct{})
	wg.Go(func() {
		rawResult = raw.Run(ctx)
		switch {
		case rawResult.Fatal != nil:
			// Nothing left to record spectra; wind the trend down too.
			signal.Set()
		case rawResult.RunEnded:
			close(runEnded)
		}
	})
	wg.Go(func() {
		trendResult = trend.Run(ctx)
	})
	loopsDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(loopsDone)
	}()

	s.watch(ctx, signal, sink, loopsDone, runEnded, logger)
	<-loopsDone

	if err := s.link.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("closing instrument link failed", logging.Error(err))
	}

	summary.Spectra = rawResult.Spectra
	summary.TrendID = trendResult.TrendID
	summary.TrendRows = trendResult.Rows()
	summary.Flushes = trendResult.Flushes
	summary.LostTicks = trendResult.LostTicks
	summary.TrendClosed = trendResult.Closed
	summary.Faults = sink.Count()

	logger.Info("acquisition session finished",
		logging.Int("spectra", summary.Spectra),
		logging.Int("trend_rows", summary.TrendRows),
		logging.Int("lost_ticks", summary.LostTicks),
		logging.Int64("faults", summary.Faults),
	)

	var fatal []error
	if rawResult.Fatal != nil {
		fatal = append(fatal, fmt.Errorf("raw loop: %w", rawResult.Fatal))
	}
	if trendResult.Fatal != nil {
		fatal = append(fatal, fmt.Errorf("trend loop: %w", trendResult.Fatal))
	}
	return summary, errors.Join(fatal...)
}

// watch polls the run status until the session should end, then sets the
// signal. The raw loop seeing the run end counts as a stop even when no
// poll observed it. It returns early when both loops have already exited.
func (s *Supervisor) watch(ctx context.Context, signal *cancel.Signal, sink *errlog.Sink, loopsDone, runEnded <-chan struct{}, logger *slog.Logger) {
	work := context.WithoutCancel(ctx)
	poll := s.cfg.Supervisor.StatusPollInterval.Std()
	stop := func(status string) {
		grace := s.cfg.Supervisor.GraceDelay.Std()
		logger.Info("experiment stopped; stopping loops after grace delay",
			logging.String("status", status),
			logging.Duration("grace", grace),
		)
		s.pause(ctx, grace, loopsDone, nil)
		signal.Set()
	}

	for {
		select {
		case <-loopsDone:
			return
		case <-ctx.Done():
			logger.Info("interrupt received; stopping loops")
			signal.Set()
			return
		case <-runEnded:
			stop("ended during sampling")
			return
		default:
		}

		status, err := s.link.Read(work, s.cfg.Instrument.StatusNode).String()
		switch {
		case err != nil:
			sink.Record("supervisor: run status read", err)
		case instrument.StatusIs(status, runningStatus):
			if !s.sawRunning.Swap(true) {
				logger.Info("experiment running")
			}
		case s.sawRunning.Load():
			stop(status)
			return
		}

		s.pause(ctx, poll, loopsDone, runEnded)
	}
}

// pause waits for d and reports whether the full duration elapsed. A nil
// runEnded never interrupts the wait.
func (s *Supervisor) pause(ctx context.Context, d time.Duration, loopsDone, runEnded <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-loopsDone:
		return false
	case <-runEnded:
		return false
	}
}
