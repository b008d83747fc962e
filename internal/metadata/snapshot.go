// Package metadata reads the probe's descriptive child nodes into a typed
// snapshot recorded alongside each raw spectrum.
package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"reactir/internal/instrument"
)

// Snapshot holds the probe children present at read time. Nil fields were
// absent or unreadable.
type Snapshot struct {
	ProbeName               *string
	ProbeDescription        *string
	ProbeStatus             *string
	DocumentName            *string
	ExperimentName          *string
	Suffix                  *string
	UserName                *string
	ProjectName             *string
	SampleCount             *int64
	CurrentSamplingInterval *float64
	LastSampleTime          *time.Time
	LastSampleRaw           []float64
	LastSampleBackground    []float64
	LastSampleTreated       []float64

	// Faults counts allowed children whose read failed.
	Faults int
}

type field int

const (
	fieldProbeName field = iota
	fieldProbeDescription
	fieldProbeStatus
	fieldDocumentName
	fieldExperimentName
	fieldSuffix
	fieldUserName
	fieldProjectName
	fieldSampleCount
	fieldSamplingInterval
	fieldLastSampleTime
	fieldRaw
	fieldBackground
	fieldTreated
)

var fold = cases.Fold()

var allowed = func() map[string]field {
	names := map[string]field{
		"Probe Name":                     fieldProbeName,
		"Probe Description":              fieldProbeDescription,
		"Probe Status":                   fieldProbeStatus,
		"Document Name":                  fieldDocumentName,
		"Experiment Name":                fieldExperimentName,
		"Suffix":                         fieldSuffix,
		"User Name":                      fieldUserName,
		"Project Name":                   fieldProjectName,
		"Sample Count":                   fieldSampleCount,
		"Current Sampling Interval":      fieldSamplingInterval,
		"Last Sample Time":               fieldLastSampleTime,
		"Last Sample Raw Spectra":        fieldRaw,
		"Last Sample Background Spectra": fieldBackground,
		"Last Sample Treated Spectra":    fieldTreated,
	}
	out := make(map[string]field, len(names))
	for name, f := range names {
		out[key(name)] = f
	}
	return out
}()

func key(name string) string {
	return fold.String(strings.Join(strings.Fields(name), " "))
}

// Read enumerates the children of probe and fills a Snapshot. Unknown
// children are ignored. Only a failure to list children is returned as an error.
func Read(ctx context.Context, probe instrument.Node) (Snapshot, error) {
	var snap Snapshot
	children, err := probe.Children(ctx)
	if err != nil {
		return snap, fmt.Errorf("list probe children: %w", err)
	}
	for _, child := range children {
		f, ok := allowed[key(child.DisplayName(ctx))]
		if !ok {
			continue
		}
		out := child.Value(ctx)
		if !out.IsOk() {
			snap.Faults++
			continue
		}
		if err := snap.set(f, out); err != nil {
			snap.Faults++
		}
	}
	return snap, nil
}

func (s *Snapshot) set(f field, out instrument.Outcome) error {
	switch f {
	case fieldProbeName:
		return setString(&s.ProbeName, out)
	case fieldProbeDescription:
		return setString(&s.ProbeDescription, out)
	case fieldProbeStatus:
		return setString(&s.ProbeStatus, out)
	case fieldDocumentName:
		return setString(&s.DocumentName, out)
	case fieldExperimentName:
		return setString(&s.ExperimentName, out)
	case fieldSuffix:
		return setString(&s.Suffix, out)
	case fieldUserName:
		return setString(&s.UserName, out)
	case fieldProjectName:
		return setString(&s.ProjectName, out)
	case fieldSampleCount:
		n, err := out.Int()
		if err != nil {
			return err
		}
		s.SampleCount = &n
	case fieldSamplingInterval:
		v, err := out.Float()
		if err != nil {
			return err
		}
		s.CurrentSamplingInterval = &v
	case fieldLastSampleTime:
		ts, err := asTime(out.Value())
		if err != nil {
			return err
		}
		s.LastSampleTime = &ts
	case fieldRaw:
		return setFloats(&s.LastSampleRaw, out)
	case fieldBackground:
		return setFloats(&s.LastSampleBackground, out)
	case fieldTreated:
		return setFloats(&s.LastSampleTreated, out)
	}
	return nil
}

func setString(dst **string, out instrument.Outcome) error {
	v, err := out.String()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func setFloats(dst *[]float64, out instrument.Outcome) error {
	v, err := out.Floats()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "02-01-2006 15:04:05"}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", v)
	default:
		return time.Time{}, fmt.Errorf("value of type %T is not a time", value)
	}
}

// Description returns the best human label for the probe.
func (s Snapshot) Description() string {
	if s.ProbeDescription != nil && strings.TrimSpace(*s.ProbeDescription) != "" {
		return *s.ProbeDescription
	}
	if s.ProbeName != nil {
		return *s.ProbeName
	}
	return ""
}
