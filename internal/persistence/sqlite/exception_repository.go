package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

const exceptionColumns = `id, schedule_id, occurrence_date, action, override_start, override_end,
	override_task_name, override_target_value, override_category_id, note, created_at, updated_at`

// UpsertException inserts or replaces the exception for the (series, date)
// pair, preserving the documented one-exception-per-date uniqueness.
func (s *Storage) UpsertException(ctx context.Context, exc persistence.Exception) (persistence.Exception, error) {
	now := s.now()
	exc.UpdatedAt = now

	err := s.write(ctx, func(tx *sql.Tx) error {
		dateKey := s.formatDate(exc.Date)
		var existingID int64
		var createdAtRaw string
		err := tx.QueryRowContext(ctx,
			"SELECT id, created_at FROM schedule_exceptions WHERE schedule_id = ? AND occurrence_date = ?",
			exc.SeriesID, dateKey,
		).Scan(&existingID, &createdAtRaw)
		switch {
		case err == sql.ErrNoRows:
			exc.CreatedAt = now
			res, err := tx.ExecContext(ctx,
				`INSERT INTO schedule_exceptions (schedule_id, occurrence_date, action, override_start,
					override_end, override_task_name, override_target_value, override_category_id,
					note, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				exc.SeriesID, dateKey, string(exc.Action),
				s.nullTime(exc.OverrideStart), s.nullTime(exc.OverrideEnd),
				nullString(exc.OverrideTaskName), nullString(exc.OverrideTargetValue),
				nullInt64(exc.OverrideCategoryID), exc.Note,
				s.formatTime(exc.CreatedAt), s.formatTime(exc.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert exception: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			exc.ID = id
			return nil
		case err != nil:
			return fmt.Errorf("sqlite: lookup exception: %w", err)
		}

		if exc.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
			return fmt.Errorf("sqlite: exception created_at: %w", err)
		}
		exc.ID = existingID
		_, err = tx.ExecContext(ctx,
			`UPDATE schedule_exceptions SET action = ?, override_start = ?, override_end = ?,
				override_task_name = ?, override_target_value = ?, override_category_id = ?,
				note = ?, updated_at = ?
			 WHERE id = ?`,
			string(exc.Action),
			s.nullTime(exc.OverrideStart), s.nullTime(exc.OverrideEnd),
			nullString(exc.OverrideTaskName), nullString(exc.OverrideTargetValue),
			nullInt64(exc.OverrideCategoryID), exc.Note,
			s.formatTime(exc.UpdatedAt), existingID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update exception: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistence.Exception{}, err
	}
	return exc, nil
}

// DeleteException removes one exception by id.
func (s *Storage) DeleteException(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM schedule_exceptions WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("sqlite: delete exception: %w", err)
		}
		return requireRowAffected(res)
	})
}

// ListExceptions returns the exceptions of one series whose dates fall inside
// the window's covered days.
func (s *Storage) ListExceptions(ctx context.Context, seriesID int64, from, to time.Time) ([]persistence.Exception, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+exceptionColumns+` FROM schedule_exceptions
		 WHERE schedule_id = ? AND occurrence_date >= ? AND occurrence_date <= ?
		 ORDER BY occurrence_date`,
		seriesID, s.formatDate(from), s.formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list exceptions: %w", err)
	}
	defer rows.Close()
	return s.collectExceptions(rows)
}

// ListAllExceptions returns every exception whose date falls inside the
// window's covered days, regardless of series.
func (s *Storage) ListAllExceptions(ctx context.Context, from, to time.Time) ([]persistence.Exception, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+exceptionColumns+` FROM schedule_exceptions
		 WHERE occurrence_date >= ? AND occurrence_date <= ?
		 ORDER BY schedule_id, occurrence_date`,
		s.formatDate(from), s.formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list all exceptions: %w", err)
	}
	defer rows.Close()
	return s.collectExceptions(rows)
}

func (s *Storage) collectExceptions(rows *sql.Rows) ([]persistence.Exception, error) {
	var out []persistence.Exception
	for rows.Next() {
		var (
			exc          persistence.Exception
			dateRaw      string
			action       string
			startRaw     sql.NullString
			endRaw       sql.NullString
			taskName     sql.NullString
			targetValue  sql.NullString
			categoryID   sql.NullInt64
			createdAtRaw string
			updatedAtRaw string
		)
		err := rows.Scan(&exc.ID, &exc.SeriesID, &dateRaw, &action, &startRaw, &endRaw,
			&taskName, &targetValue, &categoryID, &exc.Note, &createdAtRaw, &updatedAtRaw)
		if err != nil {
			return nil, err
		}
		exc.Action = persistence.ExceptionAction(action)
		if exc.Date, err = s.parseDate(dateRaw); err != nil {
			return nil, fmt.Errorf("sqlite: exception date: %w", err)
		}
		if exc.OverrideStart, err = s.scanNullTime(startRaw); err != nil {
			return nil, fmt.Errorf("sqlite: exception override_start: %w", err)
		}
		if exc.OverrideEnd, err = s.scanNullTime(endRaw); err != nil {
			return nil, fmt.Errorf("sqlite: exception override_end: %w", err)
		}
		exc.OverrideTaskName = taskName.String
		exc.OverrideTargetValue = targetValue.String
		exc.OverrideCategoryID = scanNullInt64(categoryID)
		if exc.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
			return nil, err
		}
		if exc.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
			return nil, err
		}
		out = append(out, exc)
	}
	return out, rows.Err()
}
