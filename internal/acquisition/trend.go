package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reactir/internal/cancel"
	"reactir/internal/config"
	"reactir/internal/errlog"
	"reactir/internal/instrument"
	"reactir/internal/logging"
	"reactir/internal/metrics"
	"reactir/internal/store"
)

// TrendResult summarizes one TrendLoop run.
type TrendResult struct {
	TrendID       int64
	Ticks         int
	ProbeRows     int
	PeakRows      int
	Flushes       int
	FailedFlushes int
	// LostTicks counts buffered ticks dropped after a failed flush.
	LostTicks int
	Faults    int
	// Closed reports whether the trend's EndTime was written.
	Closed bool
	State  State
	Fatal  error
}

// Rows returns the committed probe and peak rows.
func (r TrendResult) Rows() int { return r.ProbeRows + r.PeakRows }

// TrendLoop samples probe temperature and tracked peaks at a fixed interval.
type TrendLoop struct {
	cfg        *config.Config
	link       instrument.Link
	store      TrendWriter
	sink       *errlog.Sink
	signal     *cancel.Signal
	metrics    *metrics.Metrics
	logger     *slog.Logger
	documentID int64

	sleep sleeper
	now   func() time.Time
	state atomic.Int32

	trendID     int64
	buffer      []store.TrendTick
	probeSource string
	probeDesc   string
	peakLabels  []string
}

// TrendDeps bundles the collaborators of a TrendLoop.
type TrendDeps struct {
	Config     *config.Config
	Link       instrument.Link
	Store      TrendWriter
	Sink       *errlog.Sink
	Signal     *cancel.Signal
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	DocumentID int64
}

// NewTrendLoop constructs a trend sampling loop.
func NewTrendLoop(deps TrendDeps) *TrendLoop {
	l := &TrendLoop{
		cfg:        deps.Config,
		link:       deps.Link,
		store:      deps.Store,
		sink:       deps.Sink,
		signal:     deps.Signal,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(deps.Logger, "acquisition").With(logging.String(logging.FieldLoop, "trend")),
		documentID: deps.DocumentID,
		now:        time.Now,
	}
	l.sleep = l.signal.Sleep
	return l
}

// State returns the current loop state.
func (l *TrendLoop) State() State { return State(l.state.Load()) }

func (l *TrendLoop) setState(s State) {
	l.state.Store(int32(s))
	l.metrics.LoopState("trend", int(s))
}

func (l *TrendLoop) fault(res *TrendResult, what string, err error) {
	res.Faults++
	l.sink.Record("trend loop: "+what, err)
}

// Run opens a trend, samples until stopped, then drains the buffer and
// closes the trend. The trend is left open when the final flush fails.
func (l *TrendLoop) Run(ctx context.Context) (res TrendResult) {
	work := context.WithoutCancel(ctx)
	defer func() {
		l.setState(StateStopped)
		res.State = StateStopped
		l.logger.Info("trend loop stopped",
			logging.Int64(logging.FieldTrendID, res.TrendID),
			logging.Int("ticks", res.Ticks),
			logging.Int("rows", res.Rows()),
			logging.Int("flushes", res.Flushes),
			logging.Int("lost_ticks", res.LostTicks),
			logging.Bool("closed", res.Closed),
		)
	}()

	l.setState(StateAwaitingRun)
	trend, err := l.store.OpenTrend(work, l.documentID, l.cfg.Trend.Note, l.now())
	if err != nil {
		res.Fatal = fmt.Errorf("open trend: %w", err)
		l.fault(&res, "open trend", err)
		return res
	}
	l.trendID = trend.TrendID
	res.TrendID = trend.TrendID
	l.resolveLabels(work)

	l.setState(StateSampling)
	interval := l.cfg.Trend.Interval.Std()
	l.logger.Info("trend sampling started",
		logging.Int64(logging.FieldTrendID, l.trendID),
		logging.Duration("interval", interval),
		logging.Int("batch_size", l.cfg.Trend.BatchSize),
	)

	next := l.now()
	for !stopRequested(ctx, l.signal) {
		if tick, ok := l.sample(work, &res); ok {
			l.buffer = append(l.buffer, tick)
		}
		res.Ticks++
		if len(l.buffer) >= l.cfg.Trend.BatchSize {
			l.flush(work, &res)
		}
		if !l.sleep(ctx, l.untilNextTick(&next, interval)) {
			break
		}
	}

	l.setState(StateDraining)
	l.drain(work, &res)
	return res
}

// untilNextTick advances the schedule by one interval and returns the wait
// until that slot. An overrun tick restarts the schedule from now.
func (l *TrendLoop) untilNextTick(next *time.Time, interval time.Duration) time.Duration {
	*next = next.Add(interval)
	now := l.now()
	wait := next.Sub(now)
	if wait < 0 {
		*next = now
		return 0
	}
	return wait
}

func (l *TrendLoop) drain(work context.Context, res *TrendResult) {
	var last time.Time
	for _, tick := range l.buffer {
		if tick.Timestamp.After(last) {
			last = tick.Timestamp
		}
	}
	if len(l.buffer) > 0 && !l.flush(work, res) {
		logging.ErrorWithContext(l.logger, "final trend flush failed; trend left open", "trend_drain_failed",
			logging.Int64(logging.FieldTrendID, l.trendID),
			logging.String(logging.FieldImpact, "trend has no end time until the next run closes it"),
		)
		return
	}

	end := l.now().UTC()
	if last.After(end) {
		end = last
	}
	if err := l.store.CloseTrend(work, l.trendID, end); err != nil {
		l.fault(res, "close trend", err)
		return
	}
	res.Closed = true
}

// flush commits the buffer in one transaction. On failure the buffer is
// dropped, or retained up to MaxRetainedTicks when configured.
func (l *TrendLoop) flush(work context.Context, res *TrendResult) bool {
	probeRows, peakRows := 0, 0
	for _, tick := range l.buffer {
		p, k := tick.Rows()
		probeRows += p
		peakRows += k
	}

	if err := l.store.AppendTrendBatch(work, l.trendID, l.buffer); err != nil {
		res.FailedFlushes++
		l.metrics.Flush(false)
		l.fault(res, fmt.Sprintf("flush %d ticks", len(l.buffer)), err)
		if !l.cfg.Trend.RetainFailedBatches {
			res.LostTicks += len(l.buffer)
			l.logger.Warn("trend batch dropped after failed flush",
				logging.Int("ticks", len(l.buffer)),
				logging.String(logging.FieldEventType, "trend_batch_lost"),
			)
			l.buffer = nil
			return false
		}
		if excess := len(l.buffer) - l.cfg.Trend.MaxRetainedTicks; excess > 0 {
			res.LostTicks += excess
			l.buffer = append([]store.TrendTick(nil), l.buffer[excess:]...)
			l.logger.Warn("retained trend buffer full; oldest ticks dropped",
				logging.Int("dropped", excess),
				logging.String(logging.FieldEventType, "trend_batch_lost"),
			)
		}
		return false
	}

	res.Flushes++
	res.ProbeRows += probeRows
	res.PeakRows += peakRows
	l.metrics.Flush(true)
	l.metrics.TrendRowsWritten(probeRows + peakRows)
	l.logger.Debug("trend batch flushed",
		logging.Int("ticks", len(l.buffer)),
		logging.Int("rows", probeRows+peakRows),
	)
	l.buffer = nil
	return true
}

// sample reads one tick. It reports false when every read faulted.
func (l *TrendLoop) sample(work context.Context, res *TrendResult) (store.TrendTick, bool) {
	inst := l.cfg.Instrument
	tick := store.TrendTick{Timestamp: l.now().UTC()}

	if value, err := l.link.Read(work, inst.ProbeTemperatureNode).Float(); err != nil {
		l.fault(res, "probe temperature read", err)
	} else {
		treated := value
		treatedOK := true
		if inst.ProbeTreatedNode != "" {
			if treated, err = l.link.Read(work, inst.ProbeTreatedNode).Float(); err != nil {
				l.fault(res, "treated temperature read", err)
				treatedOK = false
			}
		}
		if treatedOK {
			tick.Probe = &store.ProbeTempSample{
				Description:  l.probeDesc,
				Source:       l.probeSource,
				Value:        value,
				TreatedValue: treated,
			}
		}
	}

	for i, peak := range inst.PeakNodes {
		value, err := l.link.Read(work, peak.NodeID).Float()
		if err != nil {
			l.fault(res, "peak read "+peak.NodeID, err)
			continue
		}
		tick.Peaks = append(tick.Peaks, store.PeakSample{NodeID: peak.NodeID, Label: l.peakLabels[i], Value: value})
	}

	return tick, tick.Probe != nil || len(tick.Peaks) > 0
}

// resolveLabels looks up display names once per run.
func (l *TrendLoop) resolveLabels(work context.Context) {
	inst := l.cfg.Instrument
	l.probeSource = l.link.DisplayName(work, inst.ProbeTemperatureNode)
	if inst.ProbeNode != "" {
		l.probeDesc = l.link.DisplayName(work, inst.ProbeNode)
	}
	l.peakLabels = make([]string, len(inst.PeakNodes))
	for i, peak := range inst.PeakNodes {
		if peak.Label != "" {
			l.peakLabels[i] = peak.Label
			continue
		}
		l.peakLabels[i] = l.link.DisplayName(work, peak.NodeID)
	}
}
