package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// getOrCreate returns the primary key of the row in table whose Name equals
// name, inserting it with the extra columns when absent.
func getOrCreate(ctx context.Context, tx *sql.Tx, table, idColumn, name string, extra map[string]any) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%s name is empty", strings.ToLower(strings.TrimSuffix(table, "s")))
	}

	var id int64
	err := tx.QueryRowContext(ctx, "SELECT "+idColumn+" FROM "+table+" WHERE Name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}

	columns := []string{"Name", "CreatedAt"}
	args := []any{name, formatTime(time.Now())}
	for column, value := range extra {
		columns = append(columns, column)
		args = append(args, value)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	res, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" ("+strings.Join(columns, ", ")+") VALUES ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// EnsureUser returns the UserID for name, creating the row if needed.
func (s *Store) EnsureUser(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreate(ctx, tx, "Users", "UserID", name, nil)
		return err
	})
	return id, err
}

// EnsureProject returns the ProjectID for name, creating it under userID if needed.
func (s *Store) EnsureProject(ctx context.Context, name string, userID int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreate(ctx, tx, "Projects", "ProjectID", name, map[string]any{"UserID": userID})
		return err
	})
	return id, err
}

// EnsureExperiment returns the ExperimentID for name, creating it under projectID if needed.
func (s *Store) EnsureExperiment(ctx context.Context, name string, projectID int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreate(ctx, tx, "Experiments", "ExperimentID", name, map[string]any{"ProjectID": projectID})
		return err
	})
	return id, err
}

// EnsureDocument returns the DocumentID for name, creating it under experimentID if needed.
func (s *Store) EnsureDocument(ctx context.Context, name string, experimentID int64) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = getOrCreate(ctx, tx, "Documents", "DocumentID", name, map[string]any{"ExperimentID": experimentID})
		return err
	})
	return id, err
}

// EnsureRun resolves the whole dimension chain for rc in one transaction and
// stamps the document with rc.RunID.
func (s *Store) EnsureRun(ctx context.Context, rc RunContext) (Run, error) {
	var run Run
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := getOrCreate(ctx, tx, "Users", "UserID", rc.User, nil)
		if err != nil {
			return err
		}
		projectID, err := getOrCreate(ctx, tx, "Projects", "ProjectID", rc.Project, map[string]any{"UserID": userID})
		if err != nil {
			return err
		}
		experimentID, err := getOrCreate(ctx, tx, "Experiments", "ExperimentID", rc.Experiment, map[string]any{"ProjectID": projectID})
		if err != nil {
			return err
		}
		documentID, err := getOrCreate(ctx, tx, "Documents", "DocumentID", rc.Document, map[string]any{"ExperimentID": experimentID})
		if err != nil {
			return err
		}
		if rc.RunID != "" {
			if _, err := tx.ExecContext(ctx, "UPDATE Documents SET RunID = ? WHERE DocumentID = ?", rc.RunID, documentID); err != nil {
				return fmt.Errorf("stamp run id: %w", err)
			}
		}
		run = Run{
			DocumentID:   documentID,
			Name:         strings.TrimSpace(rc.Document),
			ExperimentID: experimentID,
			ProjectID:    projectID,
			UserID:       userID,
			RunID:        rc.RunID,
		}
		return nil
	})
	if err != nil {
		return Run{}, fmt.Errorf("ensure run: %w", err)
	}
	return run, nil
}

// SetErrorLogPath records where a document's error log lives.
func (s *Store) SetErrorLogPath(ctx context.Context, documentID int64, path string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE Documents SET ErrorLogPath = ? WHERE DocumentID = ?", nullableString(path), documentID)
		if err != nil {
			return fmt.Errorf("set error log path: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("set error log path: document %d not found", documentID)
		}
		return nil
	})
}
