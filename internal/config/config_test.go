package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reactir/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REACTIR_ENDPOINT", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reactir")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SpectraDir != filepath.Join(wantData, "spectra") {
		t.Fatalf("unexpected spectra dir: %q", cfg.Paths.SpectraDir)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.DatabasePath != filepath.Join(wantData, "reactir.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if cfg.Acquisition.DefaultDelay.Std() != time.Second {
		t.Fatalf("unexpected default delay: %s", cfg.Acquisition.DefaultDelay.Std())
	}
	if cfg.Trend.BatchSize != config.Default().Trend.BatchSize {
		t.Fatalf("unexpected batch size: %d", cfg.Trend.BatchSize)
	}
	if cfg.Trend.RetainFailedBatches {
		t.Fatal("expected failed batches to be dropped by default")
	}
	if cfg.Acquisition.MaxStartupFaults != 30 {
		t.Fatalf("expected a bounded startup fault limit, got %d", cfg.Acquisition.MaxStartupFaults)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.SpectraDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reactir.toml")
	t.Setenv("REACTIR_ENDPOINT", "")

	contents := `
[paths]
data_dir = "` + filepath.ToSlash(filepath.Join(tempDir, "data")) + `"

[instrument]
endpoint = "opc.tcp://10.0.0.5:4840"

[[instrument.peak_nodes]]
node_id = "ns=2;s=Peak1"
label = " C=O stretch "

[[instrument.peak_nodes]]
node_id = "ns=2;s=Peak1"

[[instrument.peak_nodes]]
node_id = "  "

[acquisition]
max_startup_faults = 0

[trend]
interval = "500ms"
batch_size = 4
retain_failed_batches = true
max_retained_ticks = 40

[supervisor]
grace_delay = "250ms"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Instrument.Endpoint != "opc.tcp://10.0.0.5:4840" {
		t.Fatalf("unexpected endpoint: %q", cfg.Instrument.Endpoint)
	}
	if len(cfg.Instrument.PeakNodes) != 1 {
		t.Fatalf("expected deduplicated peak nodes, got %#v", cfg.Instrument.PeakNodes)
	}
	if cfg.Instrument.PeakNodes[0].Label != "C=O stretch" {
		t.Fatalf("expected trimmed label, got %q", cfg.Instrument.PeakNodes[0].Label)
	}
	if cfg.Trend.Interval.Std() != 500*time.Millisecond {
		t.Fatalf("unexpected trend interval: %s", cfg.Trend.Interval.Std())
	}
	if cfg.Trend.BatchSize != 4 {
		t.Fatalf("unexpected batch size: %d", cfg.Trend.BatchSize)
	}
	if cfg.Acquisition.MaxStartupFaults != config.Default().Acquisition.MaxStartupFaults {
		t.Fatalf("expected zero startup fault limit to fall back to the default, got %d", cfg.Acquisition.MaxStartupFaults)
	}
	if cfg.Supervisor.GraceDelay.Std() != 250*time.Millisecond {
		t.Fatalf("unexpected grace delay: %s", cfg.Supervisor.GraceDelay.Std())
	}
	if cfg.Paths.SpectraDir != filepath.Join(tempDir, "data", "spectra") {
		t.Fatalf("expected spectra dir under data dir, got %q", cfg.Paths.SpectraDir)
	}
}

func TestEndpointEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REACTIR_ENDPOINT", "opc.tcp://override:4840")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Instrument.Endpoint != "opc.tcp://override:4840" {
		t.Fatalf("expected env endpoint, got %q", cfg.Instrument.Endpoint)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "endpoint scheme",
			mutate:  func(c *config.Config) { c.Instrument.Endpoint = "http://localhost" },
			wantErr: "instrument.endpoint",
		},
		{
			name:    "missing status node",
			mutate:  func(c *config.Config) { c.Instrument.StatusNode = "" },
			wantErr: "instrument.status_node",
		},
		{
			name: "ascending axis",
			mutate: func(c *config.Config) {
				c.Acquisition.WavenumberStart = 650
				c.Acquisition.WavenumberEnd = 4000
			},
			wantErr: "wavenumber_start",
		},
		{
			name: "retained ticks below batch",
			mutate: func(c *config.Config) {
				c.Trend.RetainFailedBatches = true
				c.Trend.BatchSize = 10
				c.Trend.MaxRetainedTicks = 5
			},
			wantErr: "trend.max_retained_ticks",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error to mention %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseInvalidDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "reactir.toml")
	if err := os.WriteFile(configPath, []byte("[trend]\ninterval = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REACTIR_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Trend.Interval.Std() != 2*time.Second {
		t.Fatalf("unexpected sample trend interval: %s", cfg.Trend.Interval.Std())
	}
}

func TestDocumentNameFallsBackToExperiment(t *testing.T) {
	cfg := config.Default()
	cfg.Run.Experiment = "esterification"
	now := time.Date(2025, 7, 21, 15, 0, 0, 0, time.UTC)
	if got := cfg.DocumentName(now); got != "esterification_2025-07-21_15-00-00" {
		t.Fatalf("unexpected document name: %q", got)
	}
	cfg.Run.Document = "batch-42"
	if got := cfg.DocumentName(now); got != "batch-42" {
		t.Fatalf("unexpected document name: %q", got)
	}
}
