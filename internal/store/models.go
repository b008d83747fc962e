package store

import "time"

// RunContext names the dimension rows a session records under.
type RunContext struct {
	User       string
	Project    string
	Experiment string
	Document   string
	RunID      string
}

// Run is the Documents row a session writes into, with its parents.
type Run struct {
	DocumentID   int64
	Name         string
	ExperimentID int64
	ProjectID    int64
	UserID       int64
	RunID        string
	ErrorLogPath string
	CreatedAt    time.Time
}

// RunSummary is a Documents row with aggregate counts for listing.
type RunSummary struct {
	Run
	Experiment string
	Project    string
	User       string
	Spectra    int64
	Trends     int64
}

// Trend is one trend series owned by a document.
type Trend struct {
	TrendID    int64
	DocumentID int64
	StartTime  time.Time
	EndTime    *time.Time
	Usernote   string
}

// Open reports whether the trend has no EndTime.
func (t Trend) Open() bool { return t.EndTime == nil }

// ProbeTempSample is one probe temperature reading.
type ProbeTempSample struct {
	Description  string
	Source       string
	Value        float64
	TreatedValue float64
}

// PeakSample is one tracked peak reading.
type PeakSample struct {
	NodeID string
	Label  string
	Value  float64
}

// TrendTick is the set of rows captured in one trend tick. All rows share Timestamp.
type TrendTick struct {
	Timestamp time.Time
	Probe     *ProbeTempSample
	Peaks     []PeakSample
}

// Rows returns the number of rows the tick inserts.
func (t TrendTick) Rows() (probe, peaks int) {
	if t.Probe != nil {
		probe = 1
	}
	return probe, len(t.Peaks)
}

// SpectrumType is the kind of spectrum stored in a sidecar.
type SpectrumType string

const (
	SpectrumRaw        SpectrumType = "raw"
	SpectrumBackground SpectrumType = "background"
	SpectrumProcessed  SpectrumType = "processed"
	SpectrumReference  SpectrumType = "reference"
)

// Valid reports whether t is one of the known spectrum types.
func (t SpectrumType) Valid() bool {
	switch t {
	case SpectrumRaw, SpectrumBackground, SpectrumProcessed, SpectrumReference:
		return true
	}
	return false
}

// ProbeInfo carries the probe metadata recorded with a spectrum. Nil fields
// are stored as NULL.
type ProbeInfo struct {
	Description      string
	Temperature      *float64
	TemperatureTime  *time.Time
	SampleCount      *int64
	LastSampleTime   *time.Time
	SamplingInterval *float64
}

// Sidecar is one CSV file attached to a sample.
type Sidecar struct {
	Type SpectrumType
	Path string
}

// SpectrumAppend describes the provenance rows for one captured spectrum.
type SpectrumAppend struct {
	DocumentID int64
	RecordedAt time.Time
	Probe      ProbeInfo
	Sidecars   []Sidecar
}

// SpectrumRecord is one Spectra row.
type SpectrumRecord struct {
	SpectrumID int64
	SampleID   int64
	Type       SpectrumType
	FilePath   string
	RecordedAt time.Time
}

// TrendRowCounts holds per-table row counts for a trend.
type TrendRowCounts struct {
	Probe int64
	Peaks int64
}
