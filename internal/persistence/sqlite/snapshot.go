package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// Snapshot captures every resolver input in one call: enabled series, their
// exceptions, the default calendar's holiday entries, all categories and the
// runtime override. It holds the write mutex for the whole call, so no write
// lands between the reads and they observe one consistent state.
func (s *Storage) Snapshot(ctx context.Context, from, to time.Time) (persistence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := persistence.Snapshot{TakenAt: s.now()}

	series, err := s.ListSeries(ctx, true)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot series: %w", err)
	}
	snapshot.Series = series

	exceptions, err := s.ListAllExceptions(ctx, from, to)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot exceptions: %w", err)
	}
	snapshot.Exceptions = exceptions

	defaultCal, err := s.DefaultHolidayCalendar(ctx)
	switch {
	case err == nil:
		holidays, err := s.ListHolidayEntries(ctx, defaultCal.ID, from, to)
		if err != nil {
			return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot holidays: %w", err)
		}
		snapshot.Holidays = holidays
	case errors.Is(err, persistence.ErrNotFound):
		// No default calendar means no holiday layer.
	default:
		return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot default calendar: %w", err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot categories: %w", err)
	}
	snapshot.Categories = make(map[int64]persistence.Category, len(categories))
	for _, cat := range categories {
		snapshot.Categories[cat.ID] = cat
	}

	override, err := s.GetOverride(ctx)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: snapshot override: %w", err)
	}
	snapshot.Override = override

	return snapshot, nil
}
