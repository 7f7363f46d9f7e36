package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/industrial-scheduler/internal/testfixtures"
)

func TestHolidayServiceCalendars(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewMemoryStorage(testfixtures.NewClock(time.Time{}))
	service := NewHolidayService(store, nil)
	ctx := context.Background()

	first, err := service.CreateCalendar(ctx, HolidayCalendarInput{Name: "plant", IsDefault: true})
	if err != nil {
		t.Fatalf("CreateCalendar error: %v", err)
	}
	second, err := service.CreateCalendar(ctx, HolidayCalendarInput{Name: "office", IsDefault: true})
	if err != nil {
		t.Fatalf("CreateCalendar error: %v", err)
	}

	// At most one calendar stays default.
	def, err := store.DefaultHolidayCalendar(ctx)
	if err != nil {
		t.Fatalf("DefaultHolidayCalendar error: %v", err)
	}
	if def.ID != second.ID {
		t.Errorf("default calendar = %d, want the most recently promoted %d", def.ID, second.ID)
	}
	if _, err := service.CreateCalendar(ctx, HolidayCalendarInput{Name: "plant"}); err == nil {
		t.Error("duplicate calendar name accepted")
	}
	_ = first
}

func TestHolidayServiceEntryValidation(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewMemoryStorage(testfixtures.NewClock(time.Time{}))
	service := NewHolidayService(store, nil)
	ctx := context.Background()

	cal, err := service.CreateCalendar(ctx, HolidayCalendarInput{Name: "plant", IsDefault: true})
	if err != nil {
		t.Fatalf("CreateCalendar error: %v", err)
	}
	date := testfixtures.Date(2026, time.February, 19)

	t.Run("time window needs both bounds", func(t *testing.T) {
		_, err := service.UpsertEntry(ctx, HolidayEntryInput{
			CalendarID: cal.ID,
			Date:       date,
			IsFullDay:  false,
			StartTime:  testfixtures.TimePtr(testfixtures.At(2026, time.February, 19, 9, 0)),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("window must be ordered", func(t *testing.T) {
		_, err := service.UpsertEntry(ctx, HolidayEntryInput{
			CalendarID: cal.ID,
			Date:       date,
			IsFullDay:  false,
			StartTime:  testfixtures.TimePtr(testfixtures.At(2026, time.February, 19, 12, 0)),
			EndTime:    testfixtures.TimePtr(testfixtures.At(2026, time.February, 19, 9, 0)),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})

	t.Run("full day entry stores", func(t *testing.T) {
		entry, err := service.UpsertEntry(ctx, HolidayEntryInput{
			CalendarID:          cal.ID,
			Date:                date,
			Name:                "maintenance",
			IsFullDay:           true,
			OverrideTargetValue: "manual",
		})
		if err != nil {
			t.Fatalf("UpsertEntry error: %v", err)
		}
		if entry.ID == 0 || !entry.IsFullDay {
			t.Errorf("entry = %+v", entry)
		}
	})
}
