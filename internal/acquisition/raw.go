package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reactir/internal/cancel"
	"reactir/internal/config"
	"reactir/internal/errlog"
	"reactir/internal/instrument"
	"reactir/internal/logging"
	"reactir/internal/metadata"
	"reactir/internal/metrics"
	"reactir/internal/spectrum"
	"reactir/internal/store"
)

const runningStatus = "running"

// RawResult summarizes one RawLoop run.
type RawResult struct {
	Spectra int
	Faults  int
	State   State
	// RunEnded reports that the instrument left "running" while sampling.
	RunEnded bool
	// Fatal is set when the loop aborted early.
	Fatal error
}

// RawLoop captures raw spectra while the instrument reports "running".
type RawLoop struct {
	cfg        *config.Config
	link       instrument.Link
	store      SpectrumWriter
	sink       *errlog.Sink
	signal     *cancel.Signal
	metrics    *metrics.Metrics
	logger     *slog.Logger
	documentID int64

	sleep     sleeper
	now       func() time.Time
	state     atomic.Int32
	lastStamp time.Time
}

// RawDeps bundles the collaborators of a RawLoop.
type RawDeps struct {
	Config     *config.Config
	Link       instrument.Link
	Store      SpectrumWriter
	Sink       *errlog.Sink
	Signal     *cancel.Signal
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	DocumentID int64
}

// NewRawLoop constructs a raw spectrum loop.
func NewRawLoop(deps RawDeps) *RawLoop {
	l := &RawLoop{
		cfg:        deps.Config,
		link:       deps.Link,
		store:      deps.Store,
		sink:       deps.Sink,
		signal:     deps.Signal,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(deps.Logger, "acquisition").With(logging.String(logging.FieldLoop, "raw")),
		documentID: deps.DocumentID,
		now:        time.Now,
	}
	l.sleep = l.signal.Sleep
	return l
}

// State returns the current loop state.
func (l *RawLoop) State() State { return State(l.state.Load()) }

func (l *RawLoop) setState(s State) {
	l.state.Store(int32(s))
	l.metrics.LoopState("raw", int(s))
}

func (l *RawLoop) fault(res *RawResult, what string, err error) {
	res.Faults++
	l.sink.Record("raw loop: "+what, err)
}

// Run blocks until the run stops, the signal is set, or a loop-fatal fault
// occurs. Store and instrument calls are not interrupted by ctx so an
// in-flight tick always completes.
func (l *RawLoop) Run(ctx context.Context) (res RawResult) {
	work := context.WithoutCancel(ctx)
	defer func() {
		l.setState(StateStopped)
		res.State = StateStopped
		l.logger.Info("raw loop stopped",
			logging.Int("spectra", res.Spectra),
			logging.Int("faults", res.Faults),
		)
	}()

	l.setState(StateAwaitingRun)
	started, err := l.awaitRun(ctx, work, &res)
	if err != nil {
		res.Fatal = err
		l.logger.Error("raw loop aborted while waiting for run",
			logging.Error(err),
			logging.String(logging.FieldEventType, "raw_startup_failed"),
			logging.String(logging.FieldErrorHint, "check the instrument status node"),
		)
		return res
	}
	if !started {
		return res
	}

	l.setState(StateSampling)
	interval := l.samplingInterval(work, &res)
	l.logger.Info("raw sampling started", logging.Duration("interval", interval))

	var axis []float64
	// The read that ended the wait already confirmed "running" for tick one.
	statusChecked := true
	for {
		if stopRequested(ctx, l.signal) {
			l.setState(StateDraining)
			return res
		}

		if !statusChecked {
			status, err := l.link.Read(work, l.cfg.Instrument.StatusNode).String()
			if err != nil {
				l.fault(&res, "run status read", err)
				if !l.sleep(ctx, interval) {
					l.setState(StateDraining)
					return res
				}
				continue
			}
			if !instrument.StatusIs(status, runningStatus) {
				l.logger.Info("run no longer running", logging.String("status", status))
				res.RunEnded = true
				return res
			}
		}
		statusChecked = false

		out := l.tick(work, &axis, &res)
		switch out.Kind() {
		case instrument.OutcomeFatal:
			res.Fatal = out.Err()
			l.sink.Record("raw loop: fatal", out.Err())
			l.logger.Error("raw loop aborted",
				logging.Error(out.Err()),
				logging.String(logging.FieldEventType, "raw_loop_fatal"),
				logging.String(logging.FieldErrorHint, "check the spectrum node and probe state"),
			)
			return res
		case instrument.OutcomeOk:
			res.Spectra++
		}

		if !l.sleep(ctx, interval) {
			l.setState(StateDraining)
			return res
		}
	}
}

// awaitRun polls the status node until it reads "running". It returns false
// without error when stopped first.
func (l *RawLoop) awaitRun(ctx, work context.Context, res *RawResult) (bool, error) {
	poll := l.cfg.Acquisition.StatusPollInterval.Std()
	maxFaults := l.cfg.Acquisition.MaxStartupFaults
	consecutive := 0
	for {
		if stopRequested(ctx, l.signal) {
			return false, nil
		}
		status, err := l.link.Read(work, l.cfg.Instrument.StatusNode).String()
		switch {
		case err != nil:
			consecutive++
			l.fault(res, "run status read while waiting", err)
			if consecutive >= maxFaults {
				return false, fmt.Errorf("run status unreadable after %d attempts: %w", consecutive, err)
			}
		case instrument.StatusIs(status, runningStatus):
			return true, nil
		default:
			consecutive = 0
			l.logger.Debug("waiting for run", logging.String("status", status))
		}
		if !l.sleep(ctx, poll) {
			return false, nil
		}
	}
}

// samplingInterval reads the instrument interval once, in milliseconds,
// falling back to the configured default.
func (l *RawLoop) samplingInterval(work context.Context, res *RawResult) time.Duration {
	fallback := l.cfg.Acquisition.DefaultDelay.Std()
	node := l.cfg.Instrument.SamplingIntervalNode
	if node == "" {
		return fallback
	}
	ms, err := l.link.Read(work, node).Float()
	if err != nil {
		l.fault(res, "sampling interval read", err)
		l.logger.Warn("sampling interval unreadable; using default",
			logging.Duration("default", fallback),
			logging.String(logging.FieldEventType, "interval_fallback"),
		)
		return fallback
	}
	if ms <= 0 {
		l.logger.Warn("sampling interval not positive; using default",
			logging.Float64("reported_ms", ms),
			logging.Duration("default", fallback),
		)
		return fallback
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// tick captures one spectrum. Skip outcomes have already been recorded.
func (l *RawLoop) tick(work context.Context, axis *[]float64, res *RawResult) instrument.Outcome {
	node := l.cfg.Instrument.RawSpectrumNode
	first := *axis == nil

	values, err := l.link.Read(work, node).Floats()
	if err == nil && len(values) == 0 {
		err = instrument.Transient(node, instrument.ErrEmptySpectrum)
	}
	if err != nil {
		if first {
			return instrument.Fatal(fmt.Errorf("first spectrum read: %w", err))
		}
		l.fault(res, "spectrum read", err)
		return instrument.Skip(err)
	}

	if first {
		*axis = spectrum.Axis(l.cfg.Acquisition.WavenumberStart, l.cfg.Acquisition.WavenumberEnd, len(values))
	}
	if len(values) != len(*axis) {
		err := instrument.Transient(node, fmt.Errorf("%w: axis has %d points, spectrum has %d",
			spectrum.ErrLengthMismatch, len(*axis), len(values)))
		l.fault(res, "spectrum length", err)
		return instrument.Skip(err)
	}

	stamp := l.nextStamp()
	name := spectrum.FileName(spectrum.RawPrefix, stamp)
	path, err := spectrum.WriteCSV(l.cfg.Paths.SpectraDir, name, *axis, values)
	if err != nil {
		l.fault(res, "write spectrum sidecar", err)
		return instrument.Skip(err)
	}

	in := store.SpectrumAppend{
		DocumentID: l.documentID,
		RecordedAt: spectrum.RecordedAt(name, stamp),
		Sidecars:   []store.Sidecar{{Type: store.SpectrumRaw, Path: path}},
	}
	if l.cfg.Acquisition.CaptureMetadata {
		l.attachMetadata(work, stamp, *axis, &in, res)
	}

	if _, err := l.store.AppendSpectrum(work, in); err != nil {
		l.fault(res, "persist spectrum "+path, err)
		return instrument.Skip(err)
	}
	l.metrics.SpectrumRecorded()
	l.logger.Debug("spectrum recorded", logging.String("path", path), logging.Int("points", len(values)))
	return instrument.Ok(path)
}

// attachMetadata adds probe info and an optional treated sidecar to in.
// Metadata faults are recorded but never skip the tick.
func (l *RawLoop) attachMetadata(work context.Context, stamp time.Time, axis []float64, in *store.SpectrumAppend, res *RawResult) {
	if node := l.cfg.Instrument.ProbeTemperatureNode; node != "" {
		if temp, err := l.link.Read(work, node).Float(); err == nil {
			at := stamp.UTC()
			in.Probe.Temperature = &temp
			in.Probe.TemperatureTime = &at
		}
	}

	probeNode := l.cfg.Instrument.ProbeNode
	if probeNode == "" {
		return
	}
	snap, err := metadata.Read(work, instrument.NodeOf(l.link, probeNode))
	if err != nil {
		l.fault(res, "probe metadata", err)
		return
	}
	in.Probe.Description = snap.Description()
	in.Probe.SampleCount = snap.SampleCount
	in.Probe.LastSampleTime = snap.LastSampleTime
	in.Probe.SamplingInterval = snap.CurrentSamplingInterval

	if len(snap.LastSampleTreated) == 0 {
		return
	}
	name := spectrum.FileName(spectrum.TreatedPrefix, stamp)
	path, err := spectrum.WriteCSV(l.cfg.Paths.SpectraDir, name, axis, snap.LastSampleTreated)
	if err != nil {
		if errors.Is(err, spectrum.ErrLengthMismatch) {
			err = instrument.Transient(probeNode, err)
		}
		l.fault(res, "write treated sidecar", err)
		return
	}
	in.Sidecars = append(in.Sidecars, store.Sidecar{Type: store.SpectrumProcessed, Path: path})
}

// nextStamp returns now truncated to milliseconds, advanced past the previous
// stamp so sidecar names never collide.
func (l *RawLoop) nextStamp() time.Time {
	stamp := l.now().Truncate(time.Millisecond)
	if !stamp.After(l.lastStamp) {
		stamp = l.lastStamp.Add(time.Millisecond)
	}
	l.lastStamp = stamp
	return stamp
}
