package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// AppendEvent records one sink write attempt in the event log.
func (s *Storage) AppendEvent(ctx context.Context, event persistence.ScheduleEvent) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_events (id, occurrence_key, schedule_id, value, status, detail, executed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.OccurrenceKey, event.SeriesID, event.Value, event.Status,
			event.Detail, s.formatTime(event.ExecutedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: append event: %w", err)
		}
		return nil
	})
}

// ListEvents returns events executed inside [from, to) ordered by time.
func (s *Storage) ListEvents(ctx context.Context, from, to time.Time) ([]persistence.ScheduleEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurrence_key, schedule_id, value, status, detail, executed_at
		 FROM schedule_events
		 WHERE executed_at >= ? AND executed_at < ?
		 ORDER BY executed_at, id`,
		s.formatTime(from), s.formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list events: %w", err)
	}
	defer rows.Close()

	var out []persistence.ScheduleEvent
	for rows.Next() {
		var (
			event         persistence.ScheduleEvent
			executedAtRaw string
		)
		if err := rows.Scan(&event.ID, &event.OccurrenceKey, &event.SeriesID, &event.Value,
			&event.Status, &event.Detail, &executedAtRaw); err != nil {
			return nil, err
		}
		if event.ExecutedAt, err = s.parseTime(executedAtRaw); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// PruneEvents deletes events older than the cutoff and reports how many
// were removed.
func (s *Storage) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	var pruned int64
	err := s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM schedule_events WHERE executed_at < ?", s.formatTime(olderThan))
		if err != nil {
			return fmt.Errorf("sqlite: prune events: %w", err)
		}
		pruned, err = res.RowsAffected()
		return err
	})
	return pruned, err
}
