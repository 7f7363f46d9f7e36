// Package scheduler drives the value sink from the evaluator's current
// status on a fixed tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/runtime"
	"github.com/example/industrial-scheduler/internal/sink"
)

// eventRetention bounds how long execution events are kept before the
// periodic prune removes them.
const eventRetention = 30 * 24 * time.Hour

// StatusSource answers the current-status query each tick.
type StatusSource interface {
	CurrentStatus(ctx context.Context, now time.Time) (runtime.Status, error)
}

// ExecutionStatus labels the outcome of the latest write attempt for an
// occurrence.
type ExecutionStatus string

const (
	ExecutionOK       ExecutionStatus = "ok"
	ExecutionFailed   ExecutionStatus = "failed"
	ExecutionRetrying ExecutionStatus = "retrying"
)

// occState tracks per-occurrence write progress across ticks.
type occState struct {
	writtenValue string
	written      bool
	status       ExecutionStatus
	nextRetryAt  time.Time
	done         bool
	end          time.Time
}

// Loop is the cooperative worker that, every scan_rate seconds, asks the
// evaluator for the current status and drives the sink.
type Loop struct {
	status   StatusSource
	settings persistence.SettingsRepository
	events   persistence.EventRepository
	sink     sink.Sink
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu            sync.Mutex
	states        map[string]*occState
	settingsStamp time.Time

	cron *cron.Cron
}

// NewLoop wires a scheduler loop. events may be nil when the event log is
// disabled entirely; logger and now default when nil.
func NewLoop(status StatusSource, settings persistence.SettingsRepository, events persistence.EventRepository, valueSink sink.Sink, logger *slog.Logger, now func() time.Time) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Loop{
		status:   status,
		settings: settings,
		events:   events,
		sink:     valueSink,
		logger:   logger,
		now:      now,
		newID:    func() string { return uuid.NewString() },
		states:   make(map[string]*occState),
	}
}

// Start reads the scan rate and begins ticking on a cron schedule. The loop
// also prunes old execution events hourly.
func (l *Loop) Start(ctx context.Context) error {
	if l.cron != nil {
		return fmt.Errorf("scheduler: loop already started")
	}
	settings, err := l.settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: read settings: %w", err)
	}
	scanRate := settings.ScanRate
	if scanRate <= 0 {
		scanRate = 30
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", scanRate), func() {
		if ctx.Err() != nil {
			return
		}
		if err := l.Tick(ctx, l.now()); err != nil {
			l.logger.Error("scheduler tick failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduler: register tick: %w", err)
	}
	if l.events != nil {
		if _, err := c.AddFunc("@every 1h", func() {
			if ctx.Err() != nil {
				return
			}
			pruned, err := l.events.PruneEvents(ctx, l.now().Add(-eventRetention))
			if err != nil {
				l.logger.Error("event prune failed", "error", err)
				return
			}
			if pruned > 0 {
				l.logger.Info("pruned execution events", "count", pruned)
			}
		}); err != nil {
			return fmt.Errorf("scheduler: register prune: %w", err)
		}
	}
	l.cron = c
	c.Start()
	l.logger.Info("scheduler loop started", "scan_rate_seconds", scanRate)
	return nil
}

// Stop halts ticking and waits for an in-flight tick to finish.
func (l *Loop) Stop() {
	if l.cron == nil {
		return
	}
	<-l.cron.Stop().Done()
	l.cron = nil
	l.logger.Info("scheduler loop stopped")
}

// Tick performs one scheduling pass at the given instant.
func (l *Loop) Tick(ctx context.Context, now time.Time) error {
	settings, err := l.settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: read settings: %w", err)
	}

	l.mu.Lock()
	l.pruneLocked(now)
	if settings.RefreshOutput && !settings.UpdatedAt.Equal(l.settingsStamp) {
		// A settings write with refresh enabled re-arms the current value.
		l.states = make(map[string]*occState)
	}
	l.settingsStamp = settings.UpdatedAt
	l.mu.Unlock()

	status, err := l.status.CurrentStatus(ctx, now)
	if err != nil {
		return fmt.Errorf("scheduler: current status: %w", err)
	}
	if !status.Live || !status.HasOccurrence {
		// A bare runtime override has no wire target to drive.
		return nil
	}
	occ := status.Occurrence

	if !settings.EnableSchedule {
		return nil
	}
	if settings.UseActivePeriod && !insidePeriod(now, settings.ActiveFrom, settings.ActiveTo) {
		return nil
	}

	l.mu.Lock()
	state, ok := l.states[occ.OccurrenceKey]
	if !ok {
		state = &occState{end: occ.End}
		l.states[occ.OccurrenceKey] = state
	}
	state.end = occ.End
	skip := state.done ||
		(state.written && state.writtenValue == status.Value) ||
		(!state.nextRetryAt.IsZero() && now.Before(state.nextRetryAt))
	l.mu.Unlock()
	if skip {
		return nil
	}

	l.write(ctx, now, status, state, settings.GenerateEvents)
	return nil
}

// LastExecution reports the latest write outcome for an occurrence key.
func (l *Loop) LastExecution(occurrenceKey string) (ExecutionStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.states[occurrenceKey]
	if !ok || state.status == "" {
		return "", false
	}
	return state.status, true
}

func (l *Loop) write(ctx context.Context, now time.Time, status runtime.Status, state *occState, generateEvents bool) {
	occ := status.Occurrence

	value, err := sink.Parse(occ.DataType, status.Value)
	if err != nil {
		l.logger.Error("target value does not coerce", "occurrence", occ.OccurrenceKey, "error", err)
		l.finish(state, ExecutionFailed)
		l.record(ctx, now, status, ExecutionFailed, err.Error(), generateEvents)
		return
	}

	writeCtx := ctx
	if occ.Timeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, occ.Timeout)
		defer cancel()
	}

	err = l.sink.Write(writeCtx, sink.Request{
		Endpoint:    occ.Endpoint,
		NodeID:      occ.NodeID,
		Value:       value,
		Credentials: occ.Credentials,
		Timeout:     occ.Timeout,
	})
	if err == nil {
		l.mu.Lock()
		state.written = true
		state.writtenValue = status.Value
		state.status = ExecutionOK
		state.nextRetryAt = time.Time{}
		l.mu.Unlock()
		l.logger.Info("sink write succeeded",
			"occurrence", occ.OccurrenceKey, "value", value.String())
		l.record(ctx, now, status, ExecutionOK, "", generateEvents)
		return
	}

	l.logger.Error("sink write failed",
		"occurrence", occ.OccurrenceKey, "value", value.String(), "error", err)

	switch {
	case errors.Is(err, sink.ErrFatal):
		l.finish(state, ExecutionFailed)
		l.record(ctx, now, status, ExecutionFailed, err.Error(), generateEvents)
	case occ.SingleShot:
		// Single-shot events fail fast; there is no interval to retry in.
		l.finish(state, ExecutionFailed)
		l.record(ctx, now, status, ExecutionFailed, err.Error(), generateEvents)
	default:
		retryAt := now.Add(retryInterval(occ.WriteTimeout))
		if retryAt.Before(occ.End) {
			l.mu.Lock()
			state.status = ExecutionRetrying
			state.nextRetryAt = retryAt
			l.mu.Unlock()
			l.record(ctx, now, status, ExecutionRetrying, err.Error(), generateEvents)
			return
		}
		l.finish(state, ExecutionFailed)
		l.record(ctx, now, status, ExecutionFailed, err.Error(), generateEvents)
	}
}

func (l *Loop) finish(state *occState, status ExecutionStatus) {
	l.mu.Lock()
	state.status = status
	state.done = true
	l.mu.Unlock()
}

// record appends to the execution event log when enabled.
func (l *Loop) record(ctx context.Context, now time.Time, status runtime.Status, outcome ExecutionStatus, detail string, enabled bool) {
	if !enabled || l.events == nil {
		return
	}
	occ := status.Occurrence
	event := persistence.ScheduleEvent{
		ID:            l.newID(),
		OccurrenceKey: occ.OccurrenceKey,
		SeriesID:      occ.SeriesID,
		Value:         status.Value,
		Status:        string(outcome),
		Detail:        detail,
		ExecutedAt:    now,
	}
	if err := l.events.AppendEvent(ctx, event); err != nil {
		l.logger.Error("event append failed", "occurrence", occ.OccurrenceKey, "error", err)
	}
}

// pruneLocked drops state for occurrences whose interval has ended.
func (l *Loop) pruneLocked(now time.Time) {
	for key, state := range l.states {
		if !state.end.IsZero() && state.end.Before(now.Add(-time.Minute)) {
			delete(l.states, key)
		}
	}
}

func retryInterval(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return 10 * time.Second
	}
	return writeTimeout
}

func insidePeriod(now time.Time, from, to *time.Time) bool {
	if from != nil && now.Before(*from) {
		return false
	}
	if to != nil && now.After(*to) {
		return false
	}
	return true
}
