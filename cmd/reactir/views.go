package main

import (
	"fmt"
	"time"

	"reactir/internal/store"
)

const displayTimeLayout = "2006-01-02 15:04:05"

type runView struct {
	DocumentID   int64     `json:"document_id"`
	Document     string    `json:"document"`
	Experiment   string    `json:"experiment"`
	Project      string    `json:"project"`
	User         string    `json:"user"`
	RunID        string    `json:"run_id,omitempty"`
	ErrorLogPath string    `json:"error_log_path,omitempty"`
	Spectra      int64     `json:"spectra"`
	Trends       int64     `json:"trends"`
	CreatedAt    time.Time `json:"created_at"`
}

func newRunView(r store.RunSummary) runView {
	return runView{
		DocumentID:   r.DocumentID,
		Document:     r.Name,
		Experiment:   r.Experiment,
		Project:      r.Project,
		User:         r.User,
		RunID:        r.RunID,
		ErrorLogPath: r.ErrorLogPath,
		Spectra:      r.Spectra,
		Trends:       r.Trends,
		CreatedAt:    r.CreatedAt,
	}
}

func (v runView) row() []string {
	return []string{
		fmt.Sprint(v.DocumentID),
		v.Document,
		v.Experiment,
		v.Project,
		v.User,
		fmt.Sprint(v.Spectra),
		fmt.Sprint(v.Trends),
		formatDisplayTime(&v.CreatedAt),
	}
}

var runColumns = []column{
	{header: "ID", right: true},
	{header: "Document"},
	{header: "Experiment"},
	{header: "Project"},
	{header: "User"},
	{header: "Spectra", right: true},
	{header: "Trends", right: true},
	{header: "Created"},
}

type trendView struct {
	TrendID    int64      `json:"trend_id"`
	DocumentID int64      `json:"document_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Note       string     `json:"note,omitempty"`
	ProbeRows  int64      `json:"probe_rows"`
	PeakRows   int64      `json:"peak_rows"`
}

func newTrendView(t store.Trend, counts store.TrendRowCounts) trendView {
	return trendView{
		TrendID:    t.TrendID,
		DocumentID: t.DocumentID,
		StartTime:  t.StartTime,
		EndTime:    t.EndTime,
		Note:       t.Usernote,
		ProbeRows:  counts.Probe,
		PeakRows:   counts.Peaks,
	}
}

func (v trendView) row() []string {
	end := "open"
	if v.EndTime != nil {
		end = formatDisplayTime(v.EndTime)
	}
	return []string{
		fmt.Sprint(v.TrendID),
		fmt.Sprint(v.DocumentID),
		formatDisplayTime(&v.StartTime),
		end,
		fmt.Sprint(v.ProbeRows),
		fmt.Sprint(v.PeakRows),
		v.Note,
	}
}

var trendColumns = []column{
	{header: "Trend", right: true},
	{header: "Document", right: true},
	{header: "Start"},
	{header: "End"},
	{header: "Probe rows", right: true},
	{header: "Peak rows", right: true},
	{header: "Note"},
}

func formatDisplayTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(displayTimeLayout)
}
