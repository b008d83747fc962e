package acquisition

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reactir/internal/cancel"
	"reactir/internal/config"
	"reactir/internal/errlog"
	"reactir/internal/logging"
	"reactir/internal/store"
	"reactir/internal/testsupport"
)

var errDiskFull = errors.New("disk full")

type harness struct {
	cfg    *config.Config
	link   *testsupport.FakeLink
	store  *store.Store
	run    store.Run
	sink   *errlog.Sink
	signal *cancel.Signal
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	sink, err := errlog.Open(filepath.Join(cfg.Paths.LogDir, "errors.log"), logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("errlog.Open: %v", err)
	}
	return &harness{
		cfg:    cfg,
		link:   testsupport.NewFakeLink(),
		store:  st,
		run:    testsupport.MustEnsureRun(t, st, cfg),
		sink:   sink,
		signal: cancel.New(),
	}
}

func (h *harness) rawLoop(w SpectrumWriter) *RawLoop {
	if w == nil {
		w = h.store
	}
	return NewRawLoop(RawDeps{
		Config:     h.cfg,
		Link:       h.link,
		Store:      w,
		Sink:       h.sink,
		Signal:     h.signal,
		Logger:     logging.NewNop(),
		DocumentID: h.run.DocumentID,
	})
}

func (h *harness) trendLoop(w TrendWriter) *TrendLoop {
	if w == nil {
		w = h.store
	}
	return NewTrendLoop(TrendDeps{
		Config:     h.cfg,
		Link:       h.link,
		Store:      w,
		Sink:       h.sink,
		Signal:     h.signal,
		Logger:     logging.NewNop(),
		DocumentID: h.run.DocumentID,
	})
}

// sleepLog replaces real waits with an instant, recorded sleep. After
// stopAfter sleeps (when positive) it sets the signal.
type sleepLog struct {
	mu        sync.Mutex
	durations []time.Duration
	stopAfter int
	signal    *cancel.Signal
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) bool {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	n := len(s.durations)
	s.mu.Unlock()
	if s.stopAfter > 0 && n >= s.stopAfter {
		s.signal.Set()
	}
	return !s.signal.IsSet() && ctx.Err() == nil
}

func (s *sleepLog) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.durations...)
}

// flakySpectrumWriter fails the listed 1-based calls.
type flakySpectrumWriter struct {
	SpectrumWriter
	mu    sync.Mutex
	calls int
	fail  map[int]bool
}

func (w *flakySpectrumWriter) AppendSpectrum(ctx context.Context, in store.SpectrumAppend) ([]store.SpectrumRecord, error) {
	w.mu.Lock()
	w.calls++
	fail := w.fail[w.calls]
	w.mu.Unlock()
	if fail {
		return nil, errDiskFull
	}
	return w.SpectrumWriter.AppendSpectrum(ctx, in)
}

// recordingTrendWriter logs call order and batch sizes, failing the listed
// 1-based append calls.
type recordingTrendWriter struct {
	TrendWriter
	mu      sync.Mutex
	events  []string
	batches []int
	fail    map[int]bool
}

func (w *recordingTrendWriter) AppendTrendBatch(ctx context.Context, trendID int64, ticks []store.TrendTick) error {
	w.mu.Lock()
	w.batches = append(w.batches, len(ticks))
	fail := w.fail[len(w.batches)]
	w.mu.Unlock()
	if fail {
		w.record("append_failed")
		return errDiskFull
	}
	if err := w.TrendWriter.AppendTrendBatch(ctx, trendID, ticks); err != nil {
		return err
	}
	w.record("append")
	return nil
}

func (w *recordingTrendWriter) CloseTrend(ctx context.Context, trendID int64, end time.Time) error {
	w.record("close")
	return w.TrendWriter.CloseTrend(ctx, trendID, end)
}

func (w *recordingTrendWriter) record(event string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
}

func repeat(value string, n int) []testsupport.Step {
	steps := make([]testsupport.Step, n)
	for i := range steps {
		steps[i] = testsupport.Val(value)
	}
	return steps
}
