package config

import "time"

const (
	defaultDataDir                = "~/.local/share/reactir"
	defaultDatabaseFile           = "reactir.db"
	defaultEndpoint               = "opc.tcp://localhost:62552/iCOpcUaServer"
	defaultConnectAttempts        = 3
	defaultConnectDelay           = 2 * time.Second
	defaultRequestTimeout         = 10 * time.Second
	defaultProbeNode              = "ns=2;s=Local.iCIR.Probe1"
	defaultStatusNode             = "ns=2;s=Local.iCIR.Probe1.ProbeStatus"
	defaultRawSpectrumNode        = "ns=2;s=Local.iCIR.Probe1.SpectraRaw"
	defaultSamplingIntervalNode   = "ns=2;s=Local.iCIR.Probe1.SamplingInterval"
	defaultProbeTemperatureNode   = "ns=2;s=Local.iCIR.Probe1.Temperature"
	defaultWavenumberStart        = 4000.0
	defaultWavenumberEnd          = 650.0
	defaultAcquisitionDelay       = 1 * time.Second
	defaultStatusPollInterval     = 1 * time.Second
	defaultMaxStartupFaults       = 30
	defaultTrendInterval          = 2 * time.Second
	defaultTrendBatchSize         = 10
	defaultTrendMaxRetainedTicks  = 500
	defaultSupervisorPollInterval = 1 * time.Second
	defaultSupervisorGraceDelay   = 3 * time.Second
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultUser                   = "operator"
	defaultProject                = "default"
	defaultExperiment             = "default"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Instrument: Instrument{
			Endpoint:             defaultEndpoint,
			ConnectAttempts:      defaultConnectAttempts,
			ConnectDelay:         Duration(defaultConnectDelay),
			RequestTimeout:       Duration(defaultRequestTimeout),
			ProbeNode:            defaultProbeNode,
			StatusNode:           defaultStatusNode,
			RawSpectrumNode:      defaultRawSpectrumNode,
			SamplingIntervalNode: defaultSamplingIntervalNode,
			ProbeTemperatureNode: defaultProbeTemperatureNode,
		},
		Acquisition: Acquisition{
			WavenumberStart:    defaultWavenumberStart,
			WavenumberEnd:      defaultWavenumberEnd,
			DefaultDelay:       Duration(defaultAcquisitionDelay),
			StatusPollInterval: Duration(defaultStatusPollInterval),
			MaxStartupFaults:   defaultMaxStartupFaults,
			CaptureMetadata:    true,
		},
		Trend: Trend{
			Interval:         Duration(defaultTrendInterval),
			BatchSize:        defaultTrendBatchSize,
			MaxRetainedTicks: defaultTrendMaxRetainedTicks,
		},
		Supervisor: Supervisor{
			StatusPollInterval: Duration(defaultSupervisorPollInterval),
			GraceDelay:         Duration(defaultSupervisorGraceDelay),
		},
		Run: Run{
			User:       defaultUser,
			Project:    defaultProject,
			Experiment: defaultExperiment,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
