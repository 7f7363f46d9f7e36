package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// ExceptionInput captures caller provided exception fields.
type ExceptionInput struct {
	SeriesID            int64
	Date                time.Time
	Action              persistence.ExceptionAction
	OverrideStart       *time.Time
	OverrideEnd         *time.Time
	OverrideTaskName    string
	OverrideTargetValue string
	OverrideCategoryID  *int64
	Note                string
}

// ExceptionService validates and persists per-date exceptions.
type ExceptionService struct {
	exceptions persistence.ExceptionRepository
	series     persistence.SeriesRepository
	logger     *slog.Logger
}

// NewExceptionService wires dependencies for exception operations.
func NewExceptionService(exceptions persistence.ExceptionRepository, series persistence.SeriesRepository, logger *slog.Logger) *ExceptionService {
	return &ExceptionService{
		exceptions: exceptions,
		series:     series,
		logger:     defaultLogger(logger),
	}
}

// UpsertException validates and stores the exception for its (series, date)
// pair, replacing an earlier record for the same pair.
func (s *ExceptionService) UpsertException(ctx context.Context, input ExceptionInput) (persistence.Exception, error) {
	if s == nil {
		return persistence.Exception{}, fmt.Errorf("ExceptionService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "exception", "upsert", "series_id", input.SeriesID)

	if err := s.validate(ctx, input); err != nil {
		logger.Warn("exception rejected", "kind", ErrorKind(err))
		return persistence.Exception{}, err
	}

	persisted, err := s.exceptions.UpsertException(ctx, persistence.Exception{
		SeriesID:            input.SeriesID,
		Date:                truncateToDate(input.Date),
		Action:              input.Action,
		OverrideStart:       input.OverrideStart,
		OverrideEnd:         input.OverrideEnd,
		OverrideTaskName:    input.OverrideTaskName,
		OverrideTargetValue: input.OverrideTargetValue,
		OverrideCategoryID:  input.OverrideCategoryID,
		Note:                input.Note,
	})
	if err != nil {
		logger.Error("exception upsert failed", "error", err)
		return persistence.Exception{}, err
	}
	logger.Info("exception stored", "date", persisted.Date.Format("2006-01-02"), "action", string(persisted.Action))
	return persisted, nil
}

// DeleteException removes one exception.
func (s *ExceptionService) DeleteException(ctx context.Context, id int64) error {
	err := s.exceptions.DeleteException(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListExceptions returns the exceptions of one series over a date range.
func (s *ExceptionService) ListExceptions(ctx context.Context, seriesID int64, from, to time.Time) ([]persistence.Exception, error) {
	return s.exceptions.ListExceptions(ctx, seriesID, from, to)
}

func (s *ExceptionService) validate(ctx context.Context, input ExceptionInput) error {
	vErr := &ValidationError{}

	if input.SeriesID <= 0 {
		vErr.add("schedule_id", "series id is required")
	} else if s.series != nil {
		if _, err := s.series.GetSeries(ctx, input.SeriesID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("schedule_id", "series does not exist")
			} else {
				return err
			}
		}
	}
	if input.Date.IsZero() {
		vErr.add("occurrence_date", "occurrence date is required")
	}

	switch input.Action {
	case persistence.ExceptionCancel:
	case persistence.ExceptionOverride:
		if input.OverrideStart == nil && input.OverrideEnd == nil &&
			input.OverrideTaskName == "" && input.OverrideTargetValue == "" &&
			input.OverrideCategoryID == nil {
			vErr.add("action", "override requires at least one override field")
		}
		if input.OverrideStart != nil && input.OverrideEnd != nil &&
			!input.OverrideEnd.After(*input.OverrideStart) {
			vErr.add("override_end", "override end must be after override start")
		}
		if input.OverrideStart != nil && !sameDate(*input.OverrideStart, input.Date) {
			vErr.add("override_start", "override start must fall on the occurrence date")
		}
		if input.OverrideEnd != nil && !sameDate(*input.OverrideEnd, input.Date) {
			vErr.add("override_end", "override end must fall on the occurrence date")
		}
	default:
		vErr.add("action", fmt.Sprintf("unknown action %q", input.Action))
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
