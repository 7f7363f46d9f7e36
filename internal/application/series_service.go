package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/recurrence"
)

// defaultCategoryID is assigned to newly created series when none is given.
const defaultCategoryID = 1

// SeriesInput captures caller provided series fields.
type SeriesInput struct {
	TaskName     string
	Endpoint     string
	NodeID       string
	TargetValue  string
	DataType     persistence.DataType
	RuleString   string
	CategoryID   int64
	Priority     int
	Enabled      bool
	Credentials  *persistence.SinkCredentials
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// SeriesService orchestrates validation and persistence for series
// operations.
type SeriesService struct {
	series     persistence.SeriesRepository
	categories persistence.CategoryRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewSeriesService wires dependencies for series operations.
func NewSeriesService(series persistence.SeriesRepository, categories persistence.CategoryRepository, logger *slog.Logger, now func() time.Time) *SeriesService {
	if now == nil {
		now = time.Now
	}
	return &SeriesService{
		series:     series,
		categories: categories,
		logger:     defaultLogger(logger),
		now:        now,
	}
}

// CreateSeries validates the request before delegating to persistence.
func (s *SeriesService) CreateSeries(ctx context.Context, input SeriesInput) (persistence.Series, error) {
	if s == nil {
		return persistence.Series{}, fmt.Errorf("SeriesService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "series", "create")

	if input.CategoryID == 0 {
		input.CategoryID = defaultCategoryID
	}
	if input.Priority == 0 {
		input.Priority = 1
	}
	if input.DataType == "" {
		input.DataType = persistence.DataTypeAuto
	}

	if err := s.validate(ctx, input); err != nil {
		logger.Warn("series rejected", "kind", ErrorKind(err))
		return persistence.Series{}, err
	}

	created, err := s.series.CreateSeries(ctx, seriesFromInput(input))
	if err != nil {
		logger.Error("series create failed", "error", err)
		return persistence.Series{}, err
	}
	logger.Info("series created", "series_id", created.ID)
	return created, nil
}

// UpdateSeries validates and rewrites an existing series.
func (s *SeriesService) UpdateSeries(ctx context.Context, id int64, input SeriesInput) (persistence.Series, error) {
	if s == nil {
		return persistence.Series{}, fmt.Errorf("SeriesService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "series", "update", "series_id", id)

	existing, err := s.series.GetSeries(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Series{}, ErrNotFound
		}
		return persistence.Series{}, err
	}

	if input.CategoryID == 0 {
		input.CategoryID = existing.CategoryID
	}
	if input.Priority == 0 {
		input.Priority = existing.Priority
	}
	if input.DataType == "" {
		input.DataType = existing.DataType
	}

	if err := s.validate(ctx, input); err != nil {
		logger.Warn("series rejected", "kind", ErrorKind(err))
		return persistence.Series{}, err
	}

	updated := seriesFromInput(input)
	updated.ID = id
	updated.CreatedAt = existing.CreatedAt

	persisted, err := s.series.UpdateSeries(ctx, updated)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Series{}, ErrNotFound
		}
		logger.Error("series update failed", "error", err)
		return persistence.Series{}, err
	}
	logger.Info("series updated")
	return persisted, nil
}

// DeleteSeries removes a series and its exceptions.
func (s *SeriesService) DeleteSeries(ctx context.Context, id int64) error {
	if s == nil {
		return fmt.Errorf("SeriesService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "series", "delete", "series_id", id)

	if err := s.series.DeleteSeries(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("series delete failed", "error", err)
		return err
	}
	logger.Info("series deleted")
	return nil
}

// GetSeries retrieves one series by id.
func (s *SeriesService) GetSeries(ctx context.Context, id int64) (persistence.Series, error) {
	series, err := s.series.GetSeries(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.Series{}, ErrNotFound
	}
	return series, err
}

// ListSeries enumerates series, optionally restricted to enabled ones.
func (s *SeriesService) ListSeries(ctx context.Context, enabledOnly bool) ([]persistence.Series, error) {
	return s.series.ListSeries(ctx, enabledOnly)
}

// SetEnabled toggles a series.
func (s *SeriesService) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	err := s.series.SetSeriesEnabled(ctx, id, enabled)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *SeriesService) validate(ctx context.Context, input SeriesInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.TaskName) == "" {
		vErr.add("task_name", "task name is required")
	}
	if _, err := recurrence.Parse(input.RuleString, s.now()); err != nil {
		vErr.add("rrule_str", fmt.Sprintf("rule does not parse: %v", err))
	}
	switch input.DataType {
	case persistence.DataTypeAuto, persistence.DataTypeInt, persistence.DataTypeFloat,
		persistence.DataTypeString, persistence.DataTypeBool:
	default:
		vErr.add("data_type", fmt.Sprintf("unknown data type %q", input.DataType))
	}
	if input.Priority < 1 {
		vErr.add("priority", "priority must be positive")
	}

	if s.categories != nil {
		if _, err := s.categories.GetCategory(ctx, input.CategoryID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("category_id", "category does not exist")
			} else {
				return err
			}
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func seriesFromInput(input SeriesInput) persistence.Series {
	return persistence.Series{
		TaskName:     strings.TrimSpace(input.TaskName),
		Endpoint:     input.Endpoint,
		NodeID:       input.NodeID,
		TargetValue:  input.TargetValue,
		DataType:     input.DataType,
		RuleString:   input.RuleString,
		CategoryID:   input.CategoryID,
		Priority:     input.Priority,
		Enabled:      input.Enabled,
		Credentials:  input.Credentials,
		Timeout:      input.Timeout,
		WriteTimeout: input.WriteTimeout,
	}
}
