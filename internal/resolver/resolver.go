// Package resolver merges base recurrences, holiday rewrites, per-date
// exceptions and the runtime override into one deterministic timeline.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/example/industrial-scheduler/internal/category"
	"github.com/example/industrial-scheduler/internal/persistence"
	"github.com/example/industrial-scheduler/internal/recurrence"
)

// ColorLookup resolves category ids to display colours (the cached category
// resolver in production wiring).
type ColorLookup interface {
	Resolve(ctx context.Context, id int64) (category.Colors, bool)
}

// Resolver produces resolved occurrence timelines for time windows. It is
// safe for concurrent use from UI-query and scheduler goroutines.
type Resolver struct {
	snapshots persistence.SnapshotReader
	colors    ColorLookup
	logger    *slog.Logger
	now       func() time.Time
}

// New wires a resolver. logger and now may be nil; they default to
// slog.Default and time.Now.
func New(snapshots persistence.SnapshotReader, colors ColorLookup, logger *slog.Logger, now func() time.Time) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{snapshots: snapshots, colors: colors, logger: logger, now: now}
}

// Resolve returns every occurrence whose start falls inside [from, to),
// fully merged and ordered by (start asc, priority desc, series id asc).
// A series whose rule fails to parse is logged and skipped; the window
// never fails as a whole on one bad rule.
func (r *Resolver) Resolve(ctx context.Context, from, to time.Time) ([]ResolvedOccurrence, error) {
	snapshot, err := r.snapshots.Snapshot(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return r.merge(ctx, snapshot, from, to), nil
}

// ResolveDay returns the occurrences intersecting the single day containing
// the given instant. Cross-midnight occurrences are clipped to the day but
// keep their original occurrence key.
func (r *Resolver) ResolveDay(ctx context.Context, day time.Time) ([]ResolvedOccurrence, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	// Reach one day back so events spilling over midnight are seen.
	occurrences, err := r.Resolve(ctx, dayStart.Add(-24*time.Hour), dayEnd)
	if err != nil {
		return nil, err
	}

	clipped := make([]ResolvedOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if !occ.End.After(dayStart) || !occ.Start.Before(dayEnd) {
			continue
		}
		if occ.Start.Before(dayStart) {
			occ.Start = dayStart
		}
		if occ.End.After(dayEnd) {
			occ.End = dayEnd
		}
		clipped = append(clipped, occ)
	}
	return clipped, nil
}

func (r *Resolver) merge(ctx context.Context, snapshot persistence.Snapshot, from, to time.Time) []ResolvedOccurrence {
	now := r.now()

	exceptionIndex := make(map[exceptionKey]persistence.Exception, len(snapshot.Exceptions))
	for _, exc := range snapshot.Exceptions {
		exceptionIndex[exceptionKey{exc.SeriesID, dateKey(exc.Date)}] = exc
	}

	holidayIndex := make(map[string][]persistence.HolidayEntry, len(snapshot.Holidays))
	for _, entry := range snapshot.Holidays {
		key := dateKey(entry.Date)
		holidayIndex[key] = append(holidayIndex[key], entry)
	}

	var resolved []ResolvedOccurrence
	for _, series := range snapshot.Series {
		if !series.Enabled {
			continue
		}
		rule, err := recurrence.Parse(series.RuleString, now)
		if err != nil {
			r.logger.Error("skipping series with invalid rule",
				"series_id", series.ID, "rule", series.RuleString, "error", err)
			continue
		}
		expanded, err := rule.Expand(from, to)
		if err != nil {
			r.logger.Error("skipping series that failed to expand",
				"series_id", series.ID, "rule", series.RuleString, "error", err)
			continue
		}

		for _, base := range expanded {
			occ, ok := r.layer(ctx, series, base, exceptionIndex, holidayIndex, snapshot, now)
			if ok {
				resolved = append(resolved, occ)
			}
		}
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		if !resolved[i].Start.Equal(resolved[j].Start) {
			return resolved[i].Start.Before(resolved[j].Start)
		}
		if resolved[i].Priority != resolved[j].Priority {
			return resolved[i].Priority > resolved[j].Priority
		}
		return resolved[i].SeriesID < resolved[j].SeriesID
	})

	return dedupeByKey(resolved)
}

type exceptionKey struct {
	seriesID int64
	date     string
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// layer applies holiday, exception and runtime override rewrites to one base
// occurrence, in that precedence order. The boolean is false when the
// occurrence is cancelled or collapses to an empty interval.
func (r *Resolver) layer(
	ctx context.Context,
	series persistence.Series,
	base recurrence.Occurrence,
	exceptions map[exceptionKey]persistence.Exception,
	holidays map[string][]persistence.HolidayEntry,
	snapshot persistence.Snapshot,
	now time.Time,
) (ResolvedOccurrence, bool) {
	occ := ResolvedOccurrence{
		SeriesID:     series.ID,
		Source:       SourceWeekly,
		Title:        series.TaskName,
		Start:        base.Start,
		End:          base.End,
		CategoryID:   series.CategoryID,
		TargetValue:  series.TargetValue,
		DataType:     series.DataType,
		Endpoint:     series.Endpoint,
		NodeID:       series.NodeID,
		Priority:     series.Priority,
		SingleShot:   base.SingleShot,
		WriteTimeout: series.WriteTimeout,
		Timeout:      series.Timeout,
		Credentials:  series.Credentials,
	}

	day := dateKey(base.Start)

	// Holiday layer: a matching entry rewrites category and target value
	// but never the interval.
	if entry, ok := pickHolidayEntry(holidays[day], occ.Start, occ.End); ok {
		occ.IsHoliday = true
		occ.Source = SourceHoliday
		if entry.OverrideCategoryID != nil {
			occ.CategoryID = *entry.OverrideCategoryID
		}
		if entry.OverrideTargetValue != "" {
			occ.TargetValue = entry.OverrideTargetValue
		}
	}

	// Exception layer: keyed by date, so a sub-daily series has the same
	// exception applied to every occurrence of that day.
	if exc, ok := exceptions[exceptionKey{series.ID, day}]; ok {
		if exc.Action == persistence.ExceptionCancel {
			return ResolvedOccurrence{}, false
		}
		occ.IsException = true
		occ.Source = SourceException
		if exc.OverrideStart != nil {
			occ.Start = *exc.OverrideStart
		}
		if exc.OverrideEnd != nil {
			occ.End = *exc.OverrideEnd
		}
		if exc.OverrideTaskName != "" {
			occ.Title = exc.OverrideTaskName
		}
		if exc.OverrideTargetValue != "" {
			occ.TargetValue = exc.OverrideTargetValue
		}
		if exc.OverrideCategoryID != nil {
			occ.CategoryID = *exc.OverrideCategoryID
		}
	}

	if !occ.End.After(occ.Start) {
		return ResolvedOccurrence{}, false
	}

	// Runtime override layer: only occurrences live right now carry the
	// forced value; the override never synthesises events and never
	// resurrects a cancelled occurrence.
	if snapshot.Override.Active(now) && occ.Contains(now) {
		occ.TargetValue = snapshot.Override.Value
		occ.IsOverride = true
		occ.Source = SourceOverride
	}

	occ.BgColor, occ.FgColor = r.resolveColors(ctx, snapshot, occ.CategoryID, occ.Title)
	occ.OccurrenceKey = occurrenceKey(occ.SeriesID, occ.Start)
	return occ, true
}

// resolveColors consults the cached colour resolver first, then the
// snapshot's category set, then the deterministic title-hash fallback.
func (r *Resolver) resolveColors(ctx context.Context, snapshot persistence.Snapshot, categoryID int64, title string) (string, string) {
	if r.colors != nil {
		if colors, ok := r.colors.Resolve(ctx, categoryID); ok {
			return colors.Bg, colors.Fg
		}
	}
	if cat, ok := snapshot.Categories[categoryID]; ok {
		return cat.BgColor, cat.FgColor
	}
	fallback := category.FallbackColors(title)
	return fallback.Bg, fallback.Fg
}

// pickHolidayEntry chooses which same-day holiday entry applies to an
// occurrence: entries carrying an override win over plain markers, and
// time-window entries must intersect the occurrence interval.
func pickHolidayEntry(entries []persistence.HolidayEntry, start, end time.Time) (persistence.HolidayEntry, bool) {
	var matched []persistence.HolidayEntry
	for _, entry := range entries {
		if holidayOverlaps(entry, start, end) {
			matched = append(matched, entry)
		}
	}
	if len(matched) == 0 {
		return persistence.HolidayEntry{}, false
	}
	for _, entry := range matched {
		if entry.OverrideTargetValue != "" || entry.OverrideCategoryID != nil {
			return entry, true
		}
	}
	return matched[0], true
}

func holidayOverlaps(entry persistence.HolidayEntry, start, end time.Time) bool {
	if entry.IsFullDay {
		return true
	}
	if entry.StartTime == nil || entry.EndTime == nil {
		return false
	}
	hStart := onDate(start, *entry.StartTime)
	hEnd := onDate(start, *entry.EndTime)
	if !hEnd.After(hStart) {
		return false
	}
	return start.Before(hEnd) && hStart.Before(end)
}

// onDate transplants the wall-clock of t onto the date of day.
func onDate(day, t time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

// dedupeByKey drops later duplicates of an occurrence key, keeping the
// first in sorted order.
func dedupeByKey(occurrences []ResolvedOccurrence) []ResolvedOccurrence {
	seen := make(map[string]struct{}, len(occurrences))
	out := occurrences[:0]
	for _, occ := range occurrences {
		if _, dup := seen[occ.OccurrenceKey]; dup {
			continue
		}
		seen[occ.OccurrenceKey] = struct{}{}
		out = append(out, occ)
	}
	return out
}
