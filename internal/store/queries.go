package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListRuns returns documents newest first with spectrum and trend counts.
// A limit <= 0 returns every document.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
        SELECT d.DocumentID, d.Name, d.ExperimentID, e.ProjectID, p.UserID,
               COALESCE(d.RunID, ''), COALESCE(d.ErrorLogPath, ''), d.CreatedAt,
               e.Name, p.Name, u.Name,
               (SELECT COUNT(1) FROM Spectra sp
                    JOIN Samples sa ON sa.SampleID = sp.SampleID
                    JOIN Probes pr ON pr.ProbeID = sa.ProbeID
                 WHERE pr.DocumentID = d.DocumentID),
               (SELECT COUNT(1) FROM Trends t WHERE t.DocumentID = d.DocumentID)
          FROM Documents d
          JOIN Experiments e ON e.ExperimentID = d.ExperimentID
          JOIN Projects p ON p.ProjectID = e.ProjectID
          JOIN Users u ON u.UserID = p.UserID
         ORDER BY d.DocumentID DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			createdRaw string
		)
		if err := rows.Scan(
			&summary.DocumentID, &summary.Name, &summary.ExperimentID, &summary.ProjectID, &summary.UserID,
			&summary.RunID, &summary.ErrorLogPath, &createdRaw,
			&summary.Experiment, &summary.Project, &summary.User,
			&summary.Spectra, &summary.Trends,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			summary.CreatedAt = created
		}
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}

const trendColumns = "TrendID, DocumentID, StartTime, EndTime, COALESCE(Usernote, '')"

func scanTrend(scanner interface{ Scan(dest ...any) error }) (Trend, error) {
	var (
		trend    Trend
		startRaw string
		endRaw   sql.NullString
	)
	if err := scanner.Scan(&trend.TrendID, &trend.DocumentID, &startRaw, &endRaw, &trend.Usernote); err != nil {
		return Trend{}, err
	}
	if start, err := parseTimeString(startRaw); err == nil {
		trend.StartTime = start
	}
	trend.EndTime = parseNullTime(endRaw)
	return trend, nil
}

// GetTrend fetches a trend by ID, returning nil when it does not exist.
func (s *Store) GetTrend(ctx context.Context, trendID int64) (*Trend, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+trendColumns+" FROM Trends WHERE TrendID = ?", trendID)
	trend, err := scanTrend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trend: %w", err)
	}
	return &trend, nil
}

// ListTrends returns the trends of documentID oldest first. A documentID of
// zero lists every trend.
func (s *Store) ListTrends(ctx context.Context, documentID int64) ([]Trend, error) {
	query := "SELECT " + trendColumns + " FROM Trends"
	args := []any{}
	if documentID != 0 {
		query += " WHERE DocumentID = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY TrendID"
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}
	defer rows.Close()

	var trends []Trend
	for rows.Next() {
		trend, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

// CountTrendRows returns probe and peak row counts for trendID.
func (s *Store) CountTrendRows(ctx context.Context, trendID int64) (TrendRowCounts, error) {
	var counts TrendRowCounts
	err := s.db.QueryRowContext(ensureContext(ctx), `
        SELECT (SELECT COUNT(1) FROM ProbeTempSamples WHERE TrendID = ?),
               (SELECT COUNT(1) FROM PeakSamples WHERE TrendID = ?)`,
		trendID, trendID,
	).Scan(&counts.Probe, &counts.Peaks)
	if err != nil {
		return TrendRowCounts{}, fmt.Errorf("count trend rows: %w", err)
	}
	return counts, nil
}

// LatestTrendTimestamp returns the newest row timestamp of trendID, or nil
// when the trend has no rows.
func (s *Store) LatestTrendTimestamp(ctx context.Context, trendID int64) (*time.Time, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx), `
        SELECT MAX(ts) FROM (
            SELECT Timestamp AS ts FROM ProbeTempSamples WHERE TrendID = ?
            UNION ALL
            SELECT Timestamp AS ts FROM PeakSamples WHERE TrendID = ?
        )`,
		trendID, trendID,
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest trend timestamp: %w", err)
	}
	return parseNullTime(latest), nil
}

// CountSpectra returns the number of Spectra rows recorded for documentID.
func (s *Store) CountSpectra(ctx context.Context, documentID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ensureContext(ctx), `
        SELECT COUNT(1) FROM Spectra sp
          JOIN Samples sa ON sa.SampleID = sp.SampleID
          JOIN Probes pr ON pr.ProbeID = sa.ProbeID
         WHERE pr.DocumentID = ?`,
		documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count spectra: %w", err)
	}
	return count, nil
}

// ListSpectra returns the Spectra rows of documentID in recording order.
func (s *Store) ListSpectra(ctx context.Context, documentID int64) ([]SpectrumRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT sp.SpectrumID, sp.SampleID, sp.Type, sp.FilePath, sp.RecordedAt FROM Spectra sp
          JOIN Samples sa ON sa.SampleID = sp.SampleID
          JOIN Probes pr ON pr.ProbeID = sa.ProbeID
         WHERE pr.DocumentID = ?
         ORDER BY sp.SpectrumID`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list spectra: %w", err)
	}
	defer rows.Close()

	var records []SpectrumRecord
	for rows.Next() {
		var (
			record      SpectrumRecord
			kind        string
			recordedRaw string
		)
		if err := rows.Scan(&record.SpectrumID, &record.SampleID, &kind, &record.FilePath, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan spectrum: %w", err)
		}
		record.Type = SpectrumType(kind)
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			record.RecordedAt = recorded
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
