package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// HolidayCalendarInput captures caller provided calendar fields.
type HolidayCalendarInput struct {
	Name        string
	Description string
	IsDefault   bool
}

// HolidayEntryInput captures caller provided entry fields.
type HolidayEntryInput struct {
	CalendarID          int64
	Date                time.Time
	Name                string
	IsFullDay           bool
	StartTime           *time.Time
	EndTime             *time.Time
	OverrideCategoryID  *int64
	OverrideTargetValue string
}

// HolidayService validates and persists holiday calendars and entries.
type HolidayService struct {
	holidays persistence.HolidayRepository
	logger   *slog.Logger
}

// NewHolidayService wires dependencies for holiday operations.
func NewHolidayService(holidays persistence.HolidayRepository, logger *slog.Logger) *HolidayService {
	return &HolidayService{holidays: holidays, logger: defaultLogger(logger)}
}

// CreateCalendar validates and stores a calendar. Marking it default
// demotes any previous default.
func (s *HolidayService) CreateCalendar(ctx context.Context, input HolidayCalendarInput) (persistence.HolidayCalendar, error) {
	if s == nil {
		return persistence.HolidayCalendar{}, fmt.Errorf("HolidayService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "holiday", "create_calendar")

	if strings.TrimSpace(input.Name) == "" {
		vErr := &ValidationError{}
		vErr.add("name", "calendar name is required")
		return persistence.HolidayCalendar{}, vErr
	}

	created, err := s.holidays.CreateHolidayCalendar(ctx, persistence.HolidayCalendar{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		IsDefault:   input.IsDefault,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			vErr := &ValidationError{}
			vErr.add("name", "calendar name already exists")
			return persistence.HolidayCalendar{}, vErr
		}
		logger.Error("calendar create failed", "error", err)
		return persistence.HolidayCalendar{}, err
	}
	logger.Info("calendar created", "calendar_id", created.ID)
	return created, nil
}

// UpdateCalendar rewrites a calendar's mutable fields.
func (s *HolidayService) UpdateCalendar(ctx context.Context, id int64, input HolidayCalendarInput) (persistence.HolidayCalendar, error) {
	if strings.TrimSpace(input.Name) == "" {
		vErr := &ValidationError{}
		vErr.add("name", "calendar name is required")
		return persistence.HolidayCalendar{}, vErr
	}
	updated, err := s.holidays.UpdateHolidayCalendar(ctx, persistence.HolidayCalendar{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		IsDefault:   input.IsDefault,
	})
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return persistence.HolidayCalendar{}, ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		vErr := &ValidationError{}
		vErr.add("name", "calendar name already exists")
		return persistence.HolidayCalendar{}, vErr
	}
	return updated, err
}

// DeleteCalendar removes a calendar and its entries.
func (s *HolidayService) DeleteCalendar(ctx context.Context, id int64) error {
	err := s.holidays.DeleteHolidayCalendar(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListCalendars returns every calendar.
func (s *HolidayService) ListCalendars(ctx context.Context) ([]persistence.HolidayCalendar, error) {
	return s.holidays.ListHolidayCalendars(ctx)
}

// UpsertEntry validates and stores a holiday entry.
func (s *HolidayService) UpsertEntry(ctx context.Context, input HolidayEntryInput) (persistence.HolidayEntry, error) {
	if s == nil {
		return persistence.HolidayEntry{}, fmt.Errorf("HolidayService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "holiday", "upsert_entry", "calendar_id", input.CalendarID)

	vErr := &ValidationError{}
	if input.CalendarID <= 0 {
		vErr.add("calendar_id", "calendar id is required")
	}
	if input.Date.IsZero() {
		vErr.add("holiday_date", "holiday date is required")
	}
	if !input.IsFullDay {
		switch {
		case input.StartTime == nil || input.EndTime == nil:
			vErr.add("start_time", "time-window entries need both start and end times")
		case !input.EndTime.After(*input.StartTime):
			vErr.add("end_time", "end time must be after start time")
		}
	}
	if vErr.HasErrors() {
		logger.Warn("holiday entry rejected", "kind", ErrorKind(vErr))
		return persistence.HolidayEntry{}, vErr
	}

	persisted, err := s.holidays.UpsertHolidayEntry(ctx, persistence.HolidayEntry{
		CalendarID:          input.CalendarID,
		Date:                truncateToDate(input.Date),
		Name:                input.Name,
		IsFullDay:           input.IsFullDay,
		StartTime:           input.StartTime,
		EndTime:             input.EndTime,
		OverrideCategoryID:  input.OverrideCategoryID,
		OverrideTargetValue: input.OverrideTargetValue,
	})
	if err != nil {
		logger.Error("holiday entry upsert failed", "error", err)
		return persistence.HolidayEntry{}, err
	}
	return persisted, nil
}

// DeleteEntry removes one holiday entry.
func (s *HolidayService) DeleteEntry(ctx context.Context, id int64) error {
	err := s.holidays.DeleteHolidayEntry(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListEntries returns a calendar's entries over a date range.
func (s *HolidayService) ListEntries(ctx context.Context, calendarID int64, from, to time.Time) ([]persistence.HolidayEntry, error) {
	return s.holidays.ListHolidayEntries(ctx, calendarID, from, to)
}
