package runtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/resolver"
	"github.com/example/industrial-scheduler/internal/testfixtures"
)

func newTestEvaluator(store *testfixtures.MemoryStorage, clock *testfixtures.Clock) *Evaluator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res := resolver.New(store, nil, logger, clock.NowFunc())
	return NewEvaluator(res, store, logger)
}

func TestCurrentStatusOverrideWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.At(2026, time.February, 16, 10, 15))
	store := testfixtures.NewMemoryStorage(clock)

	series := testfixtures.WeekdayMorningSeries(1)
	series.RuleString = "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=10;BYMINUTE=0;DTSTART:20260216T100000;DURATION=PT1H"
	if _, err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	if err := store.SetOverride(ctx, persistence.RuntimeOverride{
		Value: "0",
		Until: testfixtures.TimePtr(testfixtures.At(2026, time.February, 16, 10, 30)),
	}); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	evaluator := newTestEvaluator(store, clock)

	// At 10:15 the override wins the value and bounds busy_until.
	status, err := evaluator.CurrentStatus(ctx, clock.Now())
	if err != nil {
		t.Fatalf("CurrentStatus error: %v", err)
	}
	if !status.Live || !status.HasOccurrence {
		t.Fatal("expected a live occurrence")
	}
	if status.Value != "0" {
		t.Errorf("value = %q, want the override's 0", status.Value)
	}
	if status.Source != resolver.SourceOverride {
		t.Errorf("source = %s, want override", status.Source)
	}
	wantBusy := testfixtures.At(2026, time.February, 16, 10, 30)
	if !status.BusyUntil.Equal(wantBusy) {
		t.Errorf("busy until = %v, want %v", status.BusyUntil, wantBusy)
	}

	// At 10:31 the override has expired and the base value returns.
	clock.Set(testfixtures.At(2026, time.February, 16, 10, 31))
	status, err = evaluator.CurrentStatus(ctx, clock.Now())
	if err != nil {
		t.Fatalf("CurrentStatus error: %v", err)
	}
	if status.Value != "auto" {
		t.Errorf("value after expiry = %q, want auto", status.Value)
	}
	if status.Source == resolver.SourceOverride {
		t.Error("expired override still reported as source")
	}
	if !status.BusyUntil.Equal(testfixtures.At(2026, time.February, 16, 11, 0)) {
		t.Errorf("busy until = %v, want the occurrence end", status.BusyUntil)
	}
}

func TestCurrentStatusIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.At(2026, time.February, 16, 3, 0))
	store := testfixtures.NewMemoryStorage(clock)
	if _, err := store.CreateSeries(ctx, testfixtures.WeekdayMorningSeries(1)); err != nil {
		t.Fatalf("seed series: %v", err)
	}

	status, err := newTestEvaluator(store, clock).CurrentStatus(ctx, clock.Now())
	if err != nil {
		t.Fatalf("CurrentStatus error: %v", err)
	}
	if status.Live {
		t.Errorf("status live at 03:00 with no override: %+v", status)
	}
}

func TestCurrentStatusBareOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.At(2026, time.February, 16, 3, 0))
	store := testfixtures.NewMemoryStorage(clock)
	if err := store.SetOverride(ctx, persistence.RuntimeOverride{Value: "55"}); err != nil {
		t.Fatalf("seed override: %v", err)
	}

	status, err := newTestEvaluator(store, clock).CurrentStatus(ctx, clock.Now())
	if err != nil {
		t.Fatalf("CurrentStatus error: %v", err)
	}
	if !status.Live || status.HasOccurrence {
		t.Fatalf("expected a live override-only status, got %+v", status)
	}
	if status.Value != "55" || status.Source != resolver.SourceOverride {
		t.Errorf("value/source = %q/%s", status.Value, status.Source)
	}
	if !status.BusyUntil.IsZero() {
		t.Errorf("permanent override busy until = %v, want zero", status.BusyUntil)
	}
}

func TestCurrentStatusTieBreak(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := testfixtures.At(2026, time.February, 16, 9, 0)
	clock := testfixtures.NewClock(now)
	store := testfixtures.NewMemoryStorage(clock)

	low := testfixtures.WeekdayMorningSeries(4)
	high := testfixtures.WeekdayMorningSeries(2)
	high.TaskName = "priority task"
	high.TargetValue = "override-wins"
	high.Priority = 9
	for _, series := range []persistence.Series{low, high} {
		if _, err := store.CreateSeries(ctx, series); err != nil {
			t.Fatalf("seed series: %v", err)
		}
	}

	status, err := newTestEvaluator(store, clock).CurrentStatus(ctx, now)
	if err != nil {
		t.Fatalf("CurrentStatus error: %v", err)
	}
	if status.Occurrence.SeriesID != 2 {
		t.Errorf("winning series = %d, want the higher priority 2", status.Occurrence.SeriesID)
	}
	if status.Value != "override-wins" {
		t.Errorf("value = %q", status.Value)
	}
}

func TestNextEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.At(2026, time.February, 16, 10, 30))
	store := testfixtures.NewMemoryStorage(clock)
	if _, err := store.CreateSeries(ctx, testfixtures.WeekdayMorningSeries(1)); err != nil {
		t.Fatalf("seed series: %v", err)
	}

	next, err := newTestEvaluator(store, clock).NextEvent(ctx, clock.Now())
	if err != nil {
		t.Fatalf("NextEvent error: %v", err)
	}
	if next == nil {
		t.Fatal("NextEvent returned nothing")
	}
	want := testfixtures.At(2026, time.February, 17, 9, 0)
	if !next.Start.Equal(want) {
		t.Errorf("next start = %v, want %v", next.Start, want)
	}
	if next.Title != "morning line start" || next.Value != "auto" {
		t.Errorf("next = %+v", next)
	}
}

func TestNextEventHorizonCoversSparseRules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.At(2026, time.February, 16, 12, 0))
	store := testfixtures.NewMemoryStorage(clock)

	series := testfixtures.WeekdayMorningSeries(1)
	series.TaskName = "monthly report"
	// The next first-of-month is more than a week out; the horizon must
	// stretch to the rule's period.
	series.RuleString = "FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=6;BYMINUTE=0;DTSTART:20260101T060000"
	if _, err := store.CreateSeries(ctx, series); err != nil {
		t.Fatalf("seed series: %v", err)
	}

	next, err := newTestEvaluator(store, clock).NextEvent(ctx, clock.Now())
	if err != nil {
		t.Fatalf("NextEvent error: %v", err)
	}
	if next == nil {
		t.Fatal("NextEvent returned nothing inside the stretched horizon")
	}
	want := testfixtures.At(2026, time.March, 1, 6, 0)
	if !next.Start.Equal(want) {
		t.Errorf("next start = %v, want %v", next.Start, want)
	}
}
