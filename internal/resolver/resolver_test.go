package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/testfixtures"
)

var (
	weekFrom = testfixtures.Date(2026, time.February, 16)
	weekTo   = testfixtures.Date(2026, time.February, 23)
)

func newTestResolver(store *testfixtures.MemoryStorage, clock *testfixtures.Clock) *Resolver {
	return New(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), clock.NowFunc())
}

func seedMorningSeries(t *testing.T, store *testfixtures.MemoryStorage) persistence.Series {
	t.Helper()
	series, err := store.CreateSeries(context.Background(), testfixtures.WeekdayMorningSeries(1))
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}
	return series
}

func defaultCalendar(t *testing.T, store *testfixtures.MemoryStorage) persistence.HolidayCalendar {
	t.Helper()
	cal, err := store.CreateHolidayCalendar(context.Background(), persistence.HolidayCalendar{
		Name:      "plant holidays",
		IsDefault: true,
	})
	if err != nil {
		t.Fatalf("seed calendar: %v", err)
	}
	return cal
}

func TestResolveBaseWeek(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 5 {
		t.Fatalf("len(occurrences) = %d, want 5", len(occurrences))
	}
	for i, occ := range occurrences {
		wantStart := testfixtures.At(2026, time.February, 16+i, 9, 0)
		if !occ.Start.Equal(wantStart) {
			t.Errorf("occurrence %d start = %v, want %v", i, occ.Start, wantStart)
		}
		if !occ.End.Equal(wantStart.Add(time.Hour)) {
			t.Errorf("occurrence %d end = %v, want 10:00", i, occ.End)
		}
		if occ.Source != SourceWeekly {
			t.Errorf("occurrence %d source = %s, want weekly", i, occ.Source)
		}
		if occ.BgColor != "#FF0000" || occ.FgColor != "#FFFFFF" {
			t.Errorf("occurrence %d colours = %s/%s, want category 1", i, occ.BgColor, occ.FgColor)
		}
		if !occ.End.After(occ.Start) {
			t.Errorf("occurrence %d violates end > start", i)
		}
	}
}

func TestResolveCancelException(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	if _, err := store.UpsertException(context.Background(), persistence.Exception{
		SeriesID: 1,
		Date:     testfixtures.Date(2026, time.February, 18),
		Action:   persistence.ExceptionCancel,
	}); err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("len(occurrences) = %d, want 4", len(occurrences))
	}
	for _, occ := range occurrences {
		if occ.Start.Day() == 18 {
			t.Errorf("cancelled Wednesday occurrence survived: %v", occ.Start)
		}
	}

	// Re-resolving is a no-op: the cancel stays absolute.
	again, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}
	if len(again) != len(occurrences) {
		t.Errorf("second resolve produced %d occurrences, want %d", len(again), len(occurrences))
	}
}

func TestResolveOverrideException(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	if _, err := store.UpsertException(context.Background(), persistence.Exception{
		SeriesID:            1,
		Date:                testfixtures.Date(2026, time.February, 17),
		Action:              persistence.ExceptionOverride,
		OverrideTargetValue: "0",
		OverrideCategoryID:  testfixtures.Int64Ptr(3),
	}); err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 5 {
		t.Fatalf("len(occurrences) = %d, want 5", len(occurrences))
	}
	tuesday := occurrences[1]
	if !tuesday.Start.Equal(testfixtures.At(2026, time.February, 17, 9, 0)) {
		t.Fatalf("tuesday start = %v", tuesday.Start)
	}
	if tuesday.TargetValue != "0" {
		t.Errorf("tuesday value = %q, want 0", tuesday.TargetValue)
	}
	if tuesday.Source != SourceException || !tuesday.IsException {
		t.Errorf("tuesday source = %s is_exception = %v", tuesday.Source, tuesday.IsException)
	}
	if tuesday.BgColor != "#DDA0DD" || tuesday.FgColor != "#000000" {
		t.Errorf("tuesday colours = %s/%s, want Light Purple", tuesday.BgColor, tuesday.FgColor)
	}
	if !tuesday.End.Equal(tuesday.Start.Add(time.Hour)) {
		t.Errorf("tuesday interval changed: %v-%v", tuesday.Start, tuesday.End)
	}
}

func TestResolveHolidayFullDay(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	cal := defaultCalendar(t, store)
	if _, err := store.UpsertHolidayEntry(context.Background(), persistence.HolidayEntry{
		CalendarID:          cal.ID,
		Date:                testfixtures.Date(2026, time.February, 19),
		Name:                "maintenance day",
		IsFullDay:           true,
		OverrideCategoryID:  testfixtures.Int64Ptr(3),
		OverrideTargetValue: "manual",
	}); err != nil {
		t.Fatalf("seed holiday: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	thursday := occurrences[3]
	if thursday.Start.Day() != 19 {
		t.Fatalf("occurrence order unexpected, got day %d", thursday.Start.Day())
	}
	if thursday.TargetValue != "manual" {
		t.Errorf("thursday value = %q, want manual", thursday.TargetValue)
	}
	if thursday.Source != SourceHoliday || !thursday.IsHoliday {
		t.Errorf("thursday source = %s is_holiday = %v", thursday.Source, thursday.IsHoliday)
	}
	if thursday.CategoryID != 3 {
		t.Errorf("thursday category = %d, want 3", thursday.CategoryID)
	}
}

func TestResolveHolidayTimeWindow(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	cal := defaultCalendar(t, store)
	day := testfixtures.Date(2026, time.February, 19)

	// An afternoon window does not touch the 09:00-10:00 occurrence.
	if _, err := store.UpsertHolidayEntry(context.Background(), persistence.HolidayEntry{
		CalendarID:          cal.ID,
		Date:                day,
		IsFullDay:           false,
		StartTime:           testfixtures.TimePtr(testfixtures.At(2026, time.February, 19, 13, 0)),
		EndTime:             testfixtures.TimePtr(testfixtures.At(2026, time.February, 19, 15, 0)),
		OverrideTargetValue: "manual",
	}); err != nil {
		t.Fatalf("seed holiday: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	thursday := occurrences[3]
	if thursday.IsHoliday {
		t.Error("afternoon window rewrote a morning occurrence")
	}
	if thursday.TargetValue != "auto" {
		t.Errorf("thursday value = %q, want untouched auto", thursday.TargetValue)
	}
}

func TestResolveRuntimeOverride(t *testing.T) {
	t.Parallel()

	now := testfixtures.At(2026, time.February, 16, 9, 30)
	clock := testfixtures.NewClock(now)
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	if err := store.SetOverride(context.Background(), persistence.RuntimeOverride{
		Value: "0",
		Until: testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 10, 30)),
	}); err != nil {
		t.Fatalf("seed override: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	monday := occurrences[0]
	if monday.TargetValue != "0" || !monday.IsOverride || monday.Source != SourceOverride {
		t.Errorf("live occurrence not overridden: value=%q source=%s", monday.TargetValue, monday.Source)
	}
	for _, occ := range occurrences[1:] {
		if occ.IsOverride {
			t.Errorf("occurrence %s not covering now was overridden", occ.OccurrenceKey)
		}
	}
}

func TestResolvePrecedenceCombo(t *testing.T) {
	t.Parallel()

	// Series category 1, holiday category 3 over a 09:00-09:30 window,
	// exception category 6 moving the start to 09:45, runtime override
	// active at 10:10: colour follows the exception, value the override.
	now := testfixtures.At(2026, time.February, 16, 10, 10)
	clock := testfixtures.NewClock(now)
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	cal := defaultCalendar(t, store)
	ctx := context.Background()

	if _, err := store.UpsertHolidayEntry(ctx, persistence.HolidayEntry{
		CalendarID:         cal.ID,
		Date:               testfixtures.Date(2026, time.February, 16),
		IsFullDay:          false,
		StartTime:          testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 9, 0)),
		EndTime:            testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 9, 30)),
		OverrideCategoryID: testfixtures.Int64Ptr(3),
	}); err != nil {
		t.Fatalf("seed holiday: %v", err)
	}
	if _, err := store.UpsertException(ctx, persistence.Exception{
		SeriesID:           1,
		Date:               testfixtures.Date(2026, time.February, 16),
		Action:             persistence.ExceptionOverride,
		OverrideStart:      testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 9, 45)),
		OverrideEnd:        testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 10, 45)),
		OverrideCategoryID: testfixtures.Int64Ptr(6),
	}); err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	if err := store.SetOverride(ctx, persistence.RuntimeOverride{Value: "75"}); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	res := newTestResolver(store, clock)
	occurrences, err := res.Resolve(ctx, weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	monday := occurrences[0]
	if !monday.Start.Equal(testfixtures.At(2026, time.February, 16, 9, 45)) {
		t.Fatalf("monday start = %v, want the exception's 09:45", monday.Start)
	}
	if monday.TargetValue != "75" {
		t.Errorf("value = %q, want the runtime override", monday.TargetValue)
	}
	if monday.CategoryID != 6 {
		t.Errorf("category = %d, want the exception's 6", monday.CategoryID)
	}
	if monday.BgColor != "#FFFF00" || monday.FgColor != "#000000" {
		t.Errorf("colours = %s/%s, want Yellow", monday.BgColor, monday.FgColor)
	}
	if monday.Source != SourceOverride {
		t.Errorf("source = %s, want override", monday.Source)
	}
}

func TestResolveDropsCollapsedOverride(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	if _, err := store.UpsertException(context.Background(), persistence.Exception{
		SeriesID:      1,
		Date:          testfixtures.Date(2026, time.February, 17),
		Action:        persistence.ExceptionOverride,
		OverrideStart: testfixtures.TimePtr(testfixtures.At(2026, time.February, 17, 11, 0)),
		OverrideEnd:   testfixtures.TimePtr(testfixtures.At(2026, time.February, 17, 10, 0)),
	}); err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 4 {
		t.Errorf("len(occurrences) = %d, want 4 after dropping the collapsed interval", len(occurrences))
	}
}

func TestResolveSkipsBadRuleOnly(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	seedMorningSeries(t, store)
	bad := testfixtures.WeekdayMorningSeries(2)
	bad.TaskName = "broken"
	bad.RuleString = "FREQ=NEVER"
	if _, err := store.CreateSeries(context.Background(), bad); err != nil {
		t.Fatalf("seed bad series: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 5 {
		t.Errorf("len(occurrences) = %d, want the healthy series' 5", len(occurrences))
	}
}

func TestResolveDisabledSeriesContributesNothing(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	series := testfixtures.WeekdayMorningSeries(1)
	series.Enabled = false
	if _, err := store.CreateSeries(context.Background(), series); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	if _, err := store.UpsertException(context.Background(), persistence.Exception{
		SeriesID:            1,
		Date:                testfixtures.Date(2026, time.February, 17),
		Action:              persistence.ExceptionOverride,
		OverrideTargetValue: "0",
	}); err != nil {
		t.Fatalf("seed exception: %v", err)
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 0 {
		t.Errorf("disabled series produced %d occurrences", len(occurrences))
	}
}

func TestResolveOrderingAndKeys(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	low := testfixtures.WeekdayMorningSeries(4)
	low.Priority = 1
	high := testfixtures.WeekdayMorningSeries(2)
	high.TaskName = "priority override"
	high.Priority = 5
	for _, series := range []persistence.Series{low, high} {
		if _, err := store.CreateSeries(context.Background(), series); err != nil {
			t.Fatalf("seed series: %v", err)
		}
	}
	res := newTestResolver(store, clock)

	occurrences, err := res.Resolve(context.Background(), weekFrom, weekTo)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(occurrences) != 10 {
		t.Fatalf("len(occurrences) = %d, want 10", len(occurrences))
	}
	seen := make(map[string]struct{})
	for i, occ := range occurrences {
		if _, dup := seen[occ.OccurrenceKey]; dup {
			t.Errorf("duplicate occurrence key %s", occ.OccurrenceKey)
		}
		seen[occ.OccurrenceKey] = struct{}{}
		if i == 0 {
			continue
		}
		prev := occurrences[i-1]
		switch {
		case prev.Start.Before(occ.Start):
		case prev.Start.Equal(occ.Start) && prev.Priority > occ.Priority:
		case prev.Start.Equal(occ.Start) && prev.Priority == occ.Priority && prev.SeriesID < occ.SeriesID:
		default:
			t.Errorf("ordering violated between %d and %d", i-1, i)
		}
	}
	// Same start: the priority 5 series (id 2) must precede the
	// priority 1 series (id 4).
	if occurrences[0].SeriesID != 2 || occurrences[1].SeriesID != 4 {
		t.Errorf("tie-break order = %d,%d, want 2,4", occurrences[0].SeriesID, occurrences[1].SeriesID)
	}
}

func TestResolveDayClipsCrossMidnight(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	series := testfixtures.WeekdayMorningSeries(1)
	series.TaskName = "night shift"
	series.RuleString = "FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR,SA,SU;BYHOUR=22;BYMINUTE=0;DTSTART:20260216T220000;DURATION=PT4H"
	if _, err := store.CreateSeries(context.Background(), series); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	res := newTestResolver(store, clock)

	day := testfixtures.Date(2026, time.February, 17)
	occurrences, err := res.ResolveDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ResolveDay error: %v", err)
	}

	var spill *ResolvedOccurrence
	for i := range occurrences {
		if occurrences[i].Start.Equal(day) {
			spill = &occurrences[i]
		}
	}
	if spill == nil {
		t.Fatal("cross-midnight fragment missing from day view")
	}
	if !spill.End.Equal(testfixtures.At(2026, time.February, 17, 2, 0)) {
		t.Errorf("fragment end = %v, want 02:00", spill.End)
	}
	if spill.OccurrenceKey != "1:2026-02-16T22:00:00" {
		t.Errorf("fragment key = %s, want the unclipped key", spill.OccurrenceKey)
	}
}
