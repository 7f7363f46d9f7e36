package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

const seriesColumns = `id, task_name, endpoint, node_id, target_value, data_type, rrule_str,
	category_id, priority, is_enabled, security_policy, security_mode, username, password,
	timeout_seconds, write_timeout_seconds, created_at, updated_at`

// CreateSeries inserts a new series and returns it with its assigned id.
func (s *Storage) CreateSeries(ctx context.Context, series persistence.Series) (persistence.Series, error) {
	now := s.now()
	series.CreatedAt = now
	series.UpdatedAt = now

	err := s.write(ctx, func(tx *sql.Tx) error {
		creds := series.Credentials
		if creds == nil {
			creds = &persistence.SinkCredentials{}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO schedules (task_name, endpoint, node_id, target_value, data_type, rrule_str,
				category_id, priority, is_enabled, security_policy, security_mode, username, password,
				timeout_seconds, write_timeout_seconds, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			series.TaskName, series.Endpoint, series.NodeID, series.TargetValue,
			string(series.DataType), series.RuleString, series.CategoryID, series.Priority,
			boolToInt(series.Enabled), creds.SecurityPolicy, creds.SecurityMode,
			creds.Username, creds.Password,
			int(series.Timeout/time.Second), int(series.WriteTimeout/time.Second),
			s.formatTime(series.CreatedAt), s.formatTime(series.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert series: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: series id: %w", err)
		}
		series.ID = id
		return nil
	})
	if err != nil {
		return persistence.Series{}, err
	}
	return series, nil
}

// UpdateSeries rewrites every mutable column of an existing series.
func (s *Storage) UpdateSeries(ctx context.Context, series persistence.Series) (persistence.Series, error) {
	series.UpdatedAt = s.now()

	err := s.write(ctx, func(tx *sql.Tx) error {
		creds := series.Credentials
		if creds == nil {
			creds = &persistence.SinkCredentials{}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE schedules SET task_name = ?, endpoint = ?, node_id = ?, target_value = ?,
				data_type = ?, rrule_str = ?, category_id = ?, priority = ?, is_enabled = ?,
				security_policy = ?, security_mode = ?, username = ?, password = ?,
				timeout_seconds = ?, write_timeout_seconds = ?, updated_at = ?
			 WHERE id = ?`,
			series.TaskName, series.Endpoint, series.NodeID, series.TargetValue,
			string(series.DataType), series.RuleString, series.CategoryID, series.Priority,
			boolToInt(series.Enabled), creds.SecurityPolicy, creds.SecurityMode,
			creds.Username, creds.Password,
			int(series.Timeout/time.Second), int(series.WriteTimeout/time.Second),
			s.formatTime(series.UpdatedAt), series.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update series: %w", err)
		}
		return requireRowAffected(res)
	})
	if err != nil {
		return persistence.Series{}, err
	}
	return series, nil
}

// GetSeries retrieves one series by id.
func (s *Storage) GetSeries(ctx context.Context, id int64) (persistence.Series, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+seriesColumns+" FROM schedules WHERE id = ?", id)
	series, err := s.scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Series{}, persistence.ErrNotFound
	}
	return series, err
}

// ListSeries returns series ordered by id, optionally restricted to enabled
// ones.
func (s *Storage) ListSeries(ctx context.Context, enabledOnly bool) ([]persistence.Series, error) {
	query := "SELECT " + seriesColumns + " FROM schedules"
	if enabledOnly {
		query += " WHERE is_enabled = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list series: %w", err)
	}
	defer rows.Close()

	var out []persistence.Series
	for rows.Next() {
		series, err := s.scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

// DeleteSeries removes a series and its exceptions.
func (s *Storage) DeleteSeries(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("sqlite: delete series: %w", err)
		}
		if err := requireRowAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_exceptions WHERE schedule_id = ?", id); err != nil {
			return fmt.Errorf("sqlite: delete series exceptions: %w", err)
		}
		return nil
	})
}

// SetSeriesEnabled toggles a series without touching its other fields.
func (s *Storage) SetSeriesEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE schedules SET is_enabled = ?, updated_at = ? WHERE id = ?",
			boolToInt(enabled), s.formatTime(s.now()), id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: toggle series: %w", err)
		}
		return requireRowAffected(res)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanSeries(row rowScanner) (persistence.Series, error) {
	var (
		series       persistence.Series
		dataType     string
		enabled      int
		creds        persistence.SinkCredentials
		timeoutSec   int
		writeSec     int
		createdAtRaw string
		updatedAtRaw string
	)
	err := row.Scan(
		&series.ID, &series.TaskName, &series.Endpoint, &series.NodeID, &series.TargetValue,
		&dataType, &series.RuleString, &series.CategoryID, &series.Priority, &enabled,
		&creds.SecurityPolicy, &creds.SecurityMode, &creds.Username, &creds.Password,
		&timeoutSec, &writeSec, &createdAtRaw, &updatedAtRaw,
	)
	if err != nil {
		return persistence.Series{}, err
	}
	series.DataType = persistence.DataType(dataType)
	series.Enabled = enabled != 0
	series.Timeout = time.Duration(timeoutSec) * time.Second
	series.WriteTimeout = time.Duration(writeSec) * time.Second
	if creds != (persistence.SinkCredentials{}) {
		series.Credentials = &creds
	}
	if series.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
		return persistence.Series{}, fmt.Errorf("sqlite: series created_at: %w", err)
	}
	if series.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
		return persistence.Series{}, fmt.Errorf("sqlite: series updated_at: %w", err)
	}
	return series, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
