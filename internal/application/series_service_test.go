package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/testfixtures"
)

func newSeriesService(store *testfixtures.MemoryStorage, clock *testfixtures.Clock) *SeriesService {
	return NewSeriesService(store, store, nil, clock.NowFunc())
}

func validSeriesInput() SeriesInput {
	return SeriesInput{
		TaskName:    "boiler warmup",
		Endpoint:    "opc.tcp://127.0.0.1:4840",
		NodeID:      "ns=2;s=Boiler.Setpoint",
		TargetValue: "80",
		DataType:    persistence.DataTypeInt,
		RuleString:  "FREQ=DAILY;BYHOUR=5;BYMINUTE=30;DURATION=PT2H",
		Enabled:     true,
	}
}

func TestSeriesServiceCreate(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	service := newSeriesService(store, clock)
	ctx := context.Background()

	created, err := service.CreateSeries(ctx, validSeriesInput())
	if err != nil {
		t.Fatalf("CreateSeries error: %v", err)
	}
	if created.ID == 0 {
		t.Error("created series has no id")
	}
	if created.CategoryID != 1 {
		t.Errorf("CategoryID = %d, want the default 1", created.CategoryID)
	}
	if created.Priority != 1 {
		t.Errorf("Priority = %d, want the default 1", created.Priority)
	}
}

func TestSeriesServiceValidation(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	service := newSeriesService(store, clock)
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(*SeriesInput)
		field string
	}{
		{"empty task name", func(in *SeriesInput) { in.TaskName = "  " }, "task_name"},
		{"bad rule", func(in *SeriesInput) { in.RuleString = "FREQ=SOMETIMES" }, "rrule_str"},
		{"bad data type", func(in *SeriesInput) { in.DataType = "decimal" }, "data_type"},
		{"missing category", func(in *SeriesInput) { in.CategoryID = 404 }, "category_id"},
		{"negative priority", func(in *SeriesInput) { in.Priority = -2 }, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validSeriesInput()
			tc.edit(&input)
			_, err := service.CreateSeries(ctx, input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Errorf("field %s not flagged: %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestSeriesServiceUpdateKeepsDefaults(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	store := testfixtures.NewMemoryStorage(clock)
	service := newSeriesService(store, clock)
	ctx := context.Background()

	input := validSeriesInput()
	input.CategoryID = 5
	input.Priority = 3
	created, err := service.CreateSeries(ctx, input)
	if err != nil {
		t.Fatalf("CreateSeries error: %v", err)
	}

	update := validSeriesInput()
	update.TaskName = "boiler warmup v2"
	updated, err := service.UpdateSeries(ctx, created.ID, update)
	if err != nil {
		t.Fatalf("UpdateSeries error: %v", err)
	}
	if updated.CategoryID != 5 || updated.Priority != 3 {
		t.Errorf("zero-valued fields overwrote existing: category=%d priority=%d", updated.CategoryID, updated.Priority)
	}
	if updated.TaskName != "boiler warmup v2" {
		t.Errorf("TaskName = %q", updated.TaskName)
	}

	if _, err := service.UpdateSeries(ctx, 9999, update); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing series error = %v, want ErrNotFound", err)
	}
}
