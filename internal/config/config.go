package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	SpectraDir string `toml:"spectra_dir"`
	LogDir     string `toml:"log_dir"`
	// DatabasePath defaults to <data_dir>/reactir.db.
	DatabasePath string `toml:"database_path"`
}

// PeakNode names one tracked spectral feature on the instrument.
type PeakNode struct {
	NodeID string `toml:"node_id"`
	Label  string `toml:"label"`
}

// Instrument contains the OPC UA endpoint and node addresses.
type Instrument struct {
	Endpoint             string     `toml:"endpoint"`
	ConnectAttempts      int        `toml:"connect_attempts"`
	ConnectDelay         Duration   `toml:"connect_delay"`
	RequestTimeout       Duration   `toml:"request_timeout"`
	ProbeNode            string     `toml:"probe_node"`
	StatusNode           string     `toml:"status_node"`
	RawSpectrumNode      string     `toml:"raw_spectrum_node"`
	SamplingIntervalNode string     `toml:"sampling_interval_node"`
	ProbeTemperatureNode string     `toml:"probe_temperature_node"`
	ProbeTreatedNode     string     `toml:"probe_treated_node"`
	PeakNodes            []PeakNode `toml:"peak_nodes"`
}

// Acquisition contains raw spectrum loop settings.
type Acquisition struct {
	WavenumberStart    float64  `toml:"wavenumber_start"`
	WavenumberEnd      float64  `toml:"wavenumber_end"`
	DefaultDelay       Duration `toml:"default_delay"`
	StatusPollInterval Duration `toml:"status_poll_interval"`
	// MaxStartupFaults bounds consecutive status read faults while waiting
	// for the probe to start. Non-positive values fall back to the default.
	MaxStartupFaults int  `toml:"max_startup_faults"`
	CaptureMetadata  bool `toml:"capture_metadata"`
}

// Trend contains trend sampling loop settings.
type Trend struct {
	Interval  Duration `toml:"interval"`
	BatchSize int      `toml:"batch_size"`
	Note      string   `toml:"note"`
	// RetainFailedBatches keeps rows from a failed flush buffered for the
	// next flush instead of dropping them.
	RetainFailedBatches bool `toml:"retain_failed_batches"`
	MaxRetainedTicks    int  `toml:"max_retained_ticks"`
}

// Supervisor contains run-status polling and shutdown settings.
type Supervisor struct {
	StatusPollInterval Duration `toml:"status_poll_interval"`
	GraceDelay         Duration `toml:"grace_delay"`
}

// Run names the dimension rows a session is recorded under.
type Run struct {
	User       string `toml:"user"`
	Project    string `toml:"project"`
	Experiment string `toml:"experiment"`
	Document   string `toml:"document"`
}

// Metrics contains Prometheus exposition settings.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reactir.
//
// Configuration sections by subsystem:
//   - Paths: data, spectra, and log directories plus the database file
//   - Instrument: OPC UA endpoint, connection retries, and node addresses
//   - Acquisition: raw spectrum loop timing and wavenumber axis
//   - Trend: trend loop cadence, batch size, and failed-batch policy
//   - Supervisor: run-status polling and shutdown grace delay
//   - Run: user/project/experiment/document names for the session
//   - Metrics: optional Prometheus listener
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Instrument  Instrument  `toml:"instrument"`
	Acquisition Acquisition `toml:"acquisition"`
	Trend       Trend       `toml:"trend"`
	Supervisor  Supervisor  `toml:"supervisor"`
	Run         Run         `toml:"run"`
	Metrics     Metrics     `toml:"metrics"`
	Logging     Logging     `toml:"logging"`
}

// Duration is a time.Duration that reads from TOML strings such as "1.5s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reactir/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reactir.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, spectra, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.SpectraDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DocumentName returns the configured document name, or a timestamped name
// derived from the experiment when none is set.
func (c *Config) DocumentName(now time.Time) string {
	if name := strings.TrimSpace(c.Run.Document); name != "" {
		return name
	}
	return fmt.Sprintf("%s_%s", c.Run.Experiment, now.Format("2006-01-02_15-04-05"))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
