package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

const holidayEntryColumns = `id, calendar_id, holiday_date, name, is_full_day, start_time, end_time,
	override_category_id, override_target_value, created_at, updated_at`

// CreateHolidayCalendar inserts a calendar; when it is flagged default, any
// previous default is demoted in the same transaction.
func (s *Storage) CreateHolidayCalendar(ctx context.Context, cal persistence.HolidayCalendar) (persistence.HolidayCalendar, error) {
	now := s.now()
	cal.CreatedAt = now
	cal.UpdatedAt = now

	err := s.write(ctx, func(tx *sql.Tx) error {
		if cal.IsDefault {
			if _, err := tx.ExecContext(ctx, "UPDATE holiday_calendars SET is_default = 0"); err != nil {
				return fmt.Errorf("sqlite: demote default calendar: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO holiday_calendars (name, description, is_default, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			cal.Name, cal.Description, boolToInt(cal.IsDefault),
			s.formatTime(cal.CreatedAt), s.formatTime(cal.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.ErrConflict
			}
			return fmt.Errorf("sqlite: insert holiday calendar: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		cal.ID = id
		return nil
	})
	if err != nil {
		return persistence.HolidayCalendar{}, err
	}
	return cal, nil
}

// UpdateHolidayCalendar rewrites a calendar's mutable fields.
func (s *Storage) UpdateHolidayCalendar(ctx context.Context, cal persistence.HolidayCalendar) (persistence.HolidayCalendar, error) {
	cal.UpdatedAt = s.now()
	err := s.write(ctx, func(tx *sql.Tx) error {
		if cal.IsDefault {
			if _, err := tx.ExecContext(ctx, "UPDATE holiday_calendars SET is_default = 0 WHERE id <> ?", cal.ID); err != nil {
				return fmt.Errorf("sqlite: demote default calendar: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE holiday_calendars SET name = ?, description = ?, is_default = ?, updated_at = ?
			 WHERE id = ?`,
			cal.Name, cal.Description, boolToInt(cal.IsDefault), s.formatTime(cal.UpdatedAt), cal.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return persistence.ErrConflict
			}
			return fmt.Errorf("sqlite: update holiday calendar: %w", err)
		}
		return requireRowAffected(res)
	})
	if err != nil {
		return persistence.HolidayCalendar{}, err
	}
	return cal, nil
}

// DeleteHolidayCalendar removes a calendar and all of its entries.
func (s *Storage) DeleteHolidayCalendar(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM holiday_calendars WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("sqlite: delete holiday calendar: %w", err)
		}
		if err := requireRowAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM holiday_entries WHERE calendar_id = ?", id); err != nil {
			return fmt.Errorf("sqlite: delete calendar entries: %w", err)
		}
		return nil
	})
}

// ListHolidayCalendars returns all calendars ordered by name.
func (s *Storage) ListHolidayCalendars(ctx context.Context) ([]persistence.HolidayCalendar, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, is_default, created_at, updated_at FROM holiday_calendars ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list holiday calendars: %w", err)
	}
	defer rows.Close()

	var out []persistence.HolidayCalendar
	for rows.Next() {
		cal, err := s.scanHolidayCalendar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cal)
	}
	return out, rows.Err()
}

// DefaultHolidayCalendar returns the calendar flagged default.
func (s *Storage) DefaultHolidayCalendar(ctx context.Context) (persistence.HolidayCalendar, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, is_default, created_at, updated_at FROM holiday_calendars WHERE is_default = 1")
	cal, err := s.scanHolidayCalendar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.HolidayCalendar{}, persistence.ErrNotFound
	}
	return cal, err
}

func (s *Storage) scanHolidayCalendar(row rowScanner) (persistence.HolidayCalendar, error) {
	var (
		cal          persistence.HolidayCalendar
		isDefault    int
		createdAtRaw string
		updatedAtRaw string
	)
	err := row.Scan(&cal.ID, &cal.Name, &cal.Description, &isDefault, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return persistence.HolidayCalendar{}, err
	}
	cal.IsDefault = isDefault != 0
	if cal.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
		return persistence.HolidayCalendar{}, err
	}
	if cal.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
		return persistence.HolidayCalendar{}, err
	}
	return cal, nil
}

// UpsertHolidayEntry inserts a new entry or rewrites the entry with the same
// id when one is supplied.
func (s *Storage) UpsertHolidayEntry(ctx context.Context, entry persistence.HolidayEntry) (persistence.HolidayEntry, error) {
	now := s.now()
	entry.UpdatedAt = now

	err := s.write(ctx, func(tx *sql.Tx) error {
		if entry.ID == 0 {
			entry.CreatedAt = now
			res, err := tx.ExecContext(ctx,
				`INSERT INTO holiday_entries (calendar_id, holiday_date, name, is_full_day, start_time,
					end_time, override_category_id, override_target_value, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				entry.CalendarID, s.formatDate(entry.Date), entry.Name, boolToInt(entry.IsFullDay),
				s.nullClock(entry.StartTime), s.nullClock(entry.EndTime),
				nullInt64(entry.OverrideCategoryID), nullString(entry.OverrideTargetValue),
				s.formatTime(entry.CreatedAt), s.formatTime(entry.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert holiday entry: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			entry.ID = id
			return nil
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE holiday_entries SET calendar_id = ?, holiday_date = ?, name = ?, is_full_day = ?,
				start_time = ?, end_time = ?, override_category_id = ?, override_target_value = ?,
				updated_at = ?
			 WHERE id = ?`,
			entry.CalendarID, s.formatDate(entry.Date), entry.Name, boolToInt(entry.IsFullDay),
			s.nullClock(entry.StartTime), s.nullClock(entry.EndTime),
			nullInt64(entry.OverrideCategoryID), nullString(entry.OverrideTargetValue),
			s.formatTime(entry.UpdatedAt), entry.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update holiday entry: %w", err)
		}
		return requireRowAffected(res)
	})
	if err != nil {
		return persistence.HolidayEntry{}, err
	}
	return entry, nil
}

// DeleteHolidayEntry removes one entry by id.
func (s *Storage) DeleteHolidayEntry(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM holiday_entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("sqlite: delete holiday entry: %w", err)
		}
		return requireRowAffected(res)
	})
}

// ListHolidayEntries returns the entries of one calendar whose dates cover
// the window's days.
func (s *Storage) ListHolidayEntries(ctx context.Context, calendarID int64, from, to time.Time) ([]persistence.HolidayEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+holidayEntryColumns+` FROM holiday_entries
		 WHERE calendar_id = ? AND holiday_date >= ? AND holiday_date <= ?
		 ORDER BY holiday_date, id`,
		calendarID, s.formatDate(from), s.formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list holiday entries: %w", err)
	}
	defer rows.Close()

	var out []persistence.HolidayEntry
	for rows.Next() {
		entry, err := s.scanHolidayEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Storage) scanHolidayEntry(row rowScanner) (persistence.HolidayEntry, error) {
	var (
		entry        persistence.HolidayEntry
		dateRaw      string
		isFullDay    int
		startRaw     sql.NullString
		endRaw       sql.NullString
		categoryID   sql.NullInt64
		targetValue  sql.NullString
		createdAtRaw string
		updatedAtRaw string
	)
	err := row.Scan(&entry.ID, &entry.CalendarID, &dateRaw, &entry.Name, &isFullDay,
		&startRaw, &endRaw, &categoryID, &targetValue, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return persistence.HolidayEntry{}, err
	}
	entry.IsFullDay = isFullDay != 0
	entry.OverrideCategoryID = scanNullInt64(categoryID)
	entry.OverrideTargetValue = targetValue.String
	if entry.Date, err = s.parseDate(dateRaw); err != nil {
		return persistence.HolidayEntry{}, err
	}
	if entry.StartTime, err = s.scanNullClock(entry.Date, startRaw); err != nil {
		return persistence.HolidayEntry{}, err
	}
	if entry.EndTime, err = s.scanNullClock(entry.Date, endRaw); err != nil {
		return persistence.HolidayEntry{}, err
	}
	if entry.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
		return persistence.HolidayEntry{}, err
	}
	if entry.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
		return persistence.HolidayEntry{}, err
	}
	return entry, nil
}

// nullClock stores the time-of-day component of t as HH:MM:SS.
func (s *Storage) nullClock(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(clockLayout), Valid: true}
}

// scanNullClock rebuilds a wall-clock instant on the given date from a
// stored HH:MM:SS value.
func (s *Storage) scanNullClock(date time.Time, value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	clock, err := time.Parse(clockLayout, value.String)
	if err != nil {
		// Older rows store HH:MM without seconds.
		clock, err = time.Parse("15:04", value.String)
		if err != nil {
			return nil, fmt.Errorf("sqlite: holiday time %q: %w", value.String, err)
		}
	}
	t := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, s.loc)
	return &t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
