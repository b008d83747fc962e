package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInstrument()
	c.normalizeAcquisition()
	c.normalizeTrend()
	c.normalizeSupervisor()
	c.normalizeRun()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SpectraDir) == "" {
		c.Paths.SpectraDir = filepath.Join(c.Paths.DataDir, "spectra")
	}
	if c.Paths.SpectraDir, err = expandPath(c.Paths.SpectraDir); err != nil {
		return fmt.Errorf("paths.spectra_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeInstrument() {
	if value, ok := os.LookupEnv("REACTIR_ENDPOINT"); ok && strings.TrimSpace(value) != "" {
		c.Instrument.Endpoint = value
	}
	c.Instrument.Endpoint = strings.TrimSpace(c.Instrument.Endpoint)
	if c.Instrument.Endpoint == "" {
		c.Instrument.Endpoint = defaultEndpoint
	}
	if c.Instrument.ConnectAttempts <= 0 {
		c.Instrument.ConnectAttempts = defaultConnectAttempts
	}
	if c.Instrument.ConnectDelay < 0 {
		c.Instrument.ConnectDelay = Duration(defaultConnectDelay)
	}
	if c.Instrument.RequestTimeout <= 0 {
		c.Instrument.RequestTimeout = Duration(defaultRequestTimeout)
	}
	c.Instrument.ProbeNode = strings.TrimSpace(c.Instrument.ProbeNode)
	c.Instrument.StatusNode = strings.TrimSpace(c.Instrument.StatusNode)
	c.Instrument.RawSpectrumNode = strings.TrimSpace(c.Instrument.RawSpectrumNode)
	c.Instrument.SamplingIntervalNode = strings.TrimSpace(c.Instrument.SamplingIntervalNode)
	c.Instrument.ProbeTemperatureNode = strings.TrimSpace(c.Instrument.ProbeTemperatureNode)
	c.Instrument.ProbeTreatedNode = strings.TrimSpace(c.Instrument.ProbeTreatedNode)

	peaks := make([]PeakNode, 0, len(c.Instrument.PeakNodes))
	seen := make(map[string]struct{}, len(c.Instrument.PeakNodes))
	for _, peak := range c.Instrument.PeakNodes {
		id := strings.TrimSpace(peak.NodeID)
		if id == "" {
			continue
		}
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		peaks = append(peaks, PeakNode{NodeID: id, Label: strings.TrimSpace(peak.Label)})
	}
	c.Instrument.PeakNodes = peaks
}

func (c *Config) normalizeAcquisition() {
	if c.Acquisition.DefaultDelay <= 0 {
		c.Acquisition.DefaultDelay = Duration(defaultAcquisitionDelay)
	}
	if c.Acquisition.StatusPollInterval <= 0 {
		c.Acquisition.StatusPollInterval = Duration(defaultStatusPollInterval)
	}
	if c.Acquisition.MaxStartupFaults <= 0 {
		c.Acquisition.MaxStartupFaults = defaultMaxStartupFaults
	}
}

func (c *Config) normalizeTrend() {
	if c.Trend.Interval <= 0 {
		c.Trend.Interval = Duration(defaultTrendInterval)
	}
	if c.Trend.BatchSize <= 0 {
		c.Trend.BatchSize = defaultTrendBatchSize
	}
	if c.Trend.MaxRetainedTicks <= 0 {
		c.Trend.MaxRetainedTicks = defaultTrendMaxRetainedTicks
	}
	c.Trend.Note = strings.TrimSpace(c.Trend.Note)
}

func (c *Config) normalizeSupervisor() {
	if c.Supervisor.StatusPollInterval <= 0 {
		c.Supervisor.StatusPollInterval = Duration(defaultSupervisorPollInterval)
	}
	if c.Supervisor.GraceDelay < 0 {
		c.Supervisor.GraceDelay = 0
	}
}

func (c *Config) normalizeRun() {
	if value, ok := os.LookupEnv("REACTIR_USER"); ok && strings.TrimSpace(c.Run.User) == "" {
		c.Run.User = value
	}
	c.Run.User = strings.TrimSpace(c.Run.User)
	if c.Run.User == "" {
		c.Run.User = defaultUser
	}
	c.Run.Project = strings.TrimSpace(c.Run.Project)
	if c.Run.Project == "" {
		c.Run.Project = defaultProject
	}
	c.Run.Experiment = strings.TrimSpace(c.Run.Experiment)
	if c.Run.Experiment == "" {
		c.Run.Experiment = defaultExperiment
	}
	c.Run.Document = strings.TrimSpace(c.Run.Document)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
