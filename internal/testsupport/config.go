package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"reactir/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and short timings so loops tick quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.SpectraDir = filepath.Join(base, "spectra")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "reactir.db")
	cfgVal.Instrument.ConnectAttempts = 1
	cfgVal.Instrument.ConnectDelay = 0
	cfgVal.Acquisition.DefaultDelay = config.Duration(5 * time.Millisecond)
	cfgVal.Acquisition.StatusPollInterval = config.Duration(2 * time.Millisecond)
	cfgVal.Acquisition.CaptureMetadata = false
	cfgVal.Trend.Interval = config.Duration(2 * time.Millisecond)
	cfgVal.Trend.BatchSize = 3
	cfgVal.Supervisor.StatusPollInterval = config.Duration(2 * time.Millisecond)
	cfgVal.Supervisor.GraceDelay = config.Duration(5 * time.Millisecond)
	cfgVal.Run.User = "tester"
	cfgVal.Run.Project = "project"
	cfgVal.Run.Experiment = "experiment"
	cfgVal.Run.Document = "document"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPeaks adds tracked peak nodes to the test config.
func WithPeaks(peaks ...config.PeakNode) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Instrument.PeakNodes = append(b.cfg.Instrument.PeakNodes, peaks...)
	}
}

// WithBatchSize overrides the trend batch size.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trend.BatchSize = size
	}
}

// WithMetadata enables probe metadata capture on every raw tick.
func WithMetadata() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Acquisition.CaptureMetadata = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
