package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInstrument(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateTrend(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInstrument() error {
	if !strings.HasPrefix(c.Instrument.Endpoint, "opc.tcp://") {
		return fmt.Errorf("instrument.endpoint must be an opc.tcp:// URL, got %q", c.Instrument.Endpoint)
	}
	required := map[string]string{
		"instrument.status_node":            c.Instrument.StatusNode,
		"instrument.raw_spectrum_node":      c.Instrument.RawSpectrumNode,
		"instrument.probe_temperature_node": c.Instrument.ProbeTemperatureNode,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	start, end := c.Acquisition.WavenumberStart, c.Acquisition.WavenumberEnd
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return errors.New("acquisition.wavenumber_start and wavenumber_end must be finite")
	}
	if start <= end {
		return errors.New("acquisition.wavenumber_start must be greater than acquisition.wavenumber_end (descending axis)")
	}
	return nil
}

func (c *Config) validateTrend() error {
	if c.Trend.RetainFailedBatches && c.Trend.MaxRetainedTicks < c.Trend.BatchSize {
		return errors.New("trend.max_retained_ticks must be >= trend.batch_size when trend.retain_failed_batches is true")
	}
	return nil
}
