package acquisition

import (
	"context"
	"time"

	"reactir/internal/cancel"
	"reactir/internal/store"
)

// State is the lifecycle position of a polling loop.
type State int32

const (
	StateAwaitingRun State = iota
	StateSampling
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAwaitingRun:
		return "awaiting_run"
	case StateSampling:
		return "sampling"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SpectrumWriter persists raw spectrum provenance.
type SpectrumWriter interface {
	AppendSpectrum(ctx context.Context, in store.SpectrumAppend) ([]store.SpectrumRecord, error)
}

// TrendWriter owns the lifecycle and rows of one trend.
type TrendWriter interface {
	OpenTrend(ctx context.Context, documentID int64, note string, start time.Time) (store.Trend, error)
	AppendTrendBatch(ctx context.Context, trendID int64, ticks []store.TrendTick) error
	CloseTrend(ctx context.Context, trendID int64, end time.Time) error
}

type sleeper func(ctx context.Context, d time.Duration) bool

func stopRequested(ctx context.Context, signal *cancel.Signal) bool {
	return signal.IsSet() || ctx.Err() != nil
}
