package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// OpenTrend inserts a new open trend for documentID starting at start.
func (s *Store) OpenTrend(ctx context.Context, documentID int64, note string, start time.Time) (Trend, error) {
	trend := Trend{DocumentID: documentID, StartTime: start.UTC(), Usernote: strings.TrimSpace(note)}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO Trends (DocumentID, StartTime, Usernote) VALUES (?, ?, ?)",
			documentID, formatTime(start), nullableString(trend.Usernote),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: document %d", ErrTrendOpen, documentID)
			}
			return fmt.Errorf("insert trend: %w", err)
		}
		trend.TrendID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return Trend{}, err
	}
	return trend, nil
}

// CloseTrend sets EndTime on an open trend. Closing twice returns ErrTrendClosed.
func (s *Store) CloseTrend(ctx context.Context, trendID int64, end time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE Trends SET EndTime = ? WHERE TrendID = ? AND EndTime IS NULL",
			formatTime(end), trendID,
		)
		if err != nil {
			return fmt.Errorf("close trend: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("close trend rows affected: %w", err)
		}
		if n == 1 {
			return nil
		}
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM Trends WHERE TrendID = ?", trendID).Scan(&exists); err != nil {
			return fmt.Errorf("lookup trend: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %d", ErrTrendNotFound, trendID)
		}
		return fmt.Errorf("%w: %d", ErrTrendClosed, trendID)
	})
}

// CloseOrphanTrends closes trends of documentID left open by an earlier run
// that did not shut down cleanly. EndTime is the latest row timestamp, or the
// start time for an empty trend. It returns the number of trends closed.
func (s *Store) CloseOrphanTrends(ctx context.Context, documentID int64) (int64, error) {
	var closed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE Trends SET EndTime = MAX(
                StartTime,
                COALESCE((SELECT MAX(Timestamp) FROM ProbeTempSamples p WHERE p.TrendID = Trends.TrendID), StartTime),
                COALESCE((SELECT MAX(Timestamp) FROM PeakSamples k WHERE k.TrendID = Trends.TrendID), StartTime)
            )
            WHERE DocumentID = ? AND EndTime IS NULL`,
			documentID,
		)
		if err != nil {
			return fmt.Errorf("close orphan trends: %w", err)
		}
		closed, err = res.RowsAffected()
		return err
	})
	return closed, err
}

// AppendTrendBatch inserts every row of ticks in one transaction. Either all
// rows commit or none do.
func (s *Store) AppendTrendBatch(ctx context.Context, trendID int64, ticks []TrendTick) error {
	if len(ticks) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		probeStmt, err := tx.PrepareContext(ctx, `INSERT INTO ProbeTempSamples
            (TrendID, Timestamp, Description, Source, Value, TreatedValue) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare probe insert: %w", err)
		}
		defer probeStmt.Close()
		peakStmt, err := tx.PrepareContext(ctx, `INSERT INTO PeakSamples
            (TrendID, Timestamp, NodeID, Label, Value) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare peak insert: %w", err)
		}
		defer peakStmt.Close()

		for _, tick := range ticks {
			stamp := formatTime(tick.Timestamp)
			if p := tick.Probe; p != nil {
				if _, err := probeStmt.ExecContext(ctx, trendID, stamp,
					nullableString(p.Description), nullableString(p.Source), p.Value, p.TreatedValue); err != nil {
					return fmt.Errorf("insert probe sample: %w", err)
				}
			}
			for _, peak := range tick.Peaks {
				if _, err := peakStmt.ExecContext(ctx, trendID, stamp,
					peak.NodeID, nullableString(peak.Label), peak.Value); err != nil {
					return fmt.Errorf("insert peak sample: %w", err)
				}
			}
		}
		return nil
	})
}

// AppendSpectrum inserts the Probe, Sample, and Spectra rows for one capture
// in one transaction. Every sidecar must exist and be non-empty.
func (s *Store) AppendSpectrum(ctx context.Context, in SpectrumAppend) ([]SpectrumRecord, error) {
	if len(in.Sidecars) == 0 {
		return nil, errors.New("append spectrum: no sidecars")
	}
	for _, sc := range in.Sidecars {
		if !sc.Type.Valid() {
			return nil, fmt.Errorf("append spectrum: unknown type %q", sc.Type)
		}
		info, err := os.Stat(sc.Path)
		if err != nil || info.Size() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrSidecarMissing, sc.Path)
		}
	}

	recordedAt := in.RecordedAt.UTC()
	var records []SpectrumRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records = records[:0]
		p := in.Probe
		res, err := tx.ExecContext(ctx, `INSERT INTO Probes
            (DocumentID, Description, LatestTemperatureCelsius, LatestTemperatureTime) VALUES (?, ?, ?, ?)`,
			in.DocumentID, nullableString(p.Description), nullableFloat(p.Temperature), nullableTime(p.TemperatureTime),
		)
		if err != nil {
			return fmt.Errorf("insert probe: %w", err)
		}
		probeID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("probe id: %w", err)
		}

		res, err = tx.ExecContext(ctx, `INSERT INTO Samples
            (ProbeID, SampleCount, LastSampleTime, CurrentSamplingInterval) VALUES (?, ?, ?, ?)`,
			probeID, nullableInt(p.SampleCount), nullableTime(p.LastSampleTime), nullableFloat(p.SamplingInterval),
		)
		if err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
		sampleID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sample id: %w", err)
		}

		for _, sc := range in.Sidecars {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO Spectra (SampleID, Type, FilePath, RecordedAt) VALUES (?, ?, ?, ?)",
				sampleID, string(sc.Type), sc.Path, formatTime(recordedAt),
			)
			if err != nil {
				return fmt.Errorf("insert spectrum %s: %w", sc.Path, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("spectrum id: %w", err)
			}
			records = append(records, SpectrumRecord{
				SpectrumID: id,
				SampleID:   sampleID,
				Type:       sc.Type,
				FilePath:   sc.Path,
				RecordedAt: recordedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
