// Package runtime computes the live output state the scheduler loop and the
// status display consume.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/recurrence"
	"github.com/example/industrial-scheduler/internal/resolver"
)

// lookback bounds how far back the evaluator searches for an occurrence
// still covering now.
const lookback = 7 * 24 * time.Hour

// minHorizon is the smallest forward search window for the next event.
const minHorizon = 7 * 24 * time.Hour

// Status describes the effective output at one instant.
type Status struct {
	// Live is false when neither an occurrence nor an override covers
	// the instant.
	Live bool
	// Occurrence is the merged occurrence backing the status; zero when
	// only the runtime override is active.
	Occurrence    resolver.ResolvedOccurrence
	HasOccurrence bool
	Value         string
	Title         string
	Source        resolver.Source
	Priority      int
	// BusyUntil is when the current state ends: the occurrence end, or
	// the earlier of occurrence end and override expiry while an
	// override is active. Zero for a permanent bare override.
	BusyUntil     time.Time
	OverrideValue string
	OverrideUntil *time.Time
}

// Upcoming describes the next occurrence starting after now.
type Upcoming struct {
	Start time.Time
	Title string
	Value string
}

// Evaluator answers current-status and next-event queries from resolver
// output plus the runtime override.
type Evaluator struct {
	resolver  *resolver.Resolver
	snapshots persistence.SnapshotReader
	logger    *slog.Logger
}

// NewEvaluator wires an evaluator over the resolver and the snapshot source
// used for horizon sizing and override reads.
func NewEvaluator(res *resolver.Resolver, snapshots persistence.SnapshotReader, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{resolver: res, snapshots: snapshots, logger: logger}
}

// CurrentStatus reports the effective output at now. When several
// occurrences are live the most recently started wins; ties go to higher
// priority, then lower series id.
func (e *Evaluator) CurrentStatus(ctx context.Context, now time.Time) (Status, error) {
	occurrences, err := e.resolver.Resolve(ctx, now.Add(-lookback), now.Add(time.Minute))
	if err != nil {
		return Status{}, err
	}

	var (
		current resolver.ResolvedOccurrence
		found   bool
	)
	for _, occ := range occurrences {
		if !occ.Contains(now) {
			continue
		}
		if !found || startsLater(occ, current) {
			current = occ
			found = true
		}
	}

	snapshot, err := e.snapshots.Snapshot(ctx, now, now.Add(time.Minute))
	if err != nil {
		return Status{}, err
	}
	override := snapshot.Override
	overrideActive := override.Active(now)

	if !found && !overrideActive {
		return Status{}, nil
	}

	status := Status{Live: true}
	if overrideActive {
		status.OverrideValue = override.Value
		status.OverrideUntil = override.Until
	}

	if found {
		status.Occurrence = current
		status.HasOccurrence = true
		status.Title = current.Title
		status.Priority = current.Priority
		status.Value = current.TargetValue
		status.Source = current.Source
		status.BusyUntil = current.End
		if overrideActive {
			status.Value = override.Value
			status.Source = resolver.SourceOverride
			if override.Until != nil && override.Until.Before(current.End) {
				status.BusyUntil = *override.Until
			}
		}
		return status, nil
	}

	// Bare override: no occurrence is live but the forced value is.
	status.Value = override.Value
	status.Source = resolver.SourceOverride
	if override.Until != nil {
		status.BusyUntil = *override.Until
	}
	return status, nil
}

// NextEvent reports the first occurrence starting strictly after now inside
// the forward horizon, or nil when nothing is scheduled.
func (e *Evaluator) NextEvent(ctx context.Context, now time.Time) (*Upcoming, error) {
	horizon, err := e.horizon(ctx, now)
	if err != nil {
		return nil, err
	}
	occurrences, err := e.resolver.Resolve(ctx, now, now.Add(horizon))
	if err != nil {
		return nil, err
	}
	for _, occ := range occurrences {
		if occ.Start.After(now) {
			return &Upcoming{Start: occ.Start, Title: occ.Title, Value: occ.TargetValue}, nil
		}
	}
	return nil, nil
}

// horizon is the larger of one week and the longest rule's natural period.
func (e *Evaluator) horizon(ctx context.Context, now time.Time) (time.Duration, error) {
	snapshot, err := e.snapshots.Snapshot(ctx, now, now)
	if err != nil {
		return 0, err
	}
	horizon := minHorizon
	for _, series := range snapshot.Series {
		rule, err := recurrence.Parse(series.RuleString, now)
		if err != nil {
			continue
		}
		if period := rule.Period(); period > horizon {
			horizon = period
		}
	}
	return horizon, nil
}

// startsLater orders live occurrences: later start first, then higher
// priority, then lower series id.
func startsLater(a, b resolver.ResolvedOccurrence) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.After(b.Start)
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.SeriesID < b.SeriesID
}
