package resolver

import (
	"fmt"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// Source identifies which layer last rewrote an occurrence.
type Source string

const (
	SourceWeekly    Source = "weekly"
	SourceHoliday   Source = "holiday"
	SourceException Source = "exception"
	SourceOverride  Source = "override"
)

// ResolvedOccurrence is one fully merged occurrence. Values are immutable
// once produced and may be aliased freely across goroutines.
type ResolvedOccurrence struct {
	SeriesID      int64
	Source        Source
	Title         string
	Start         time.Time
	End           time.Time
	CategoryID    int64
	BgColor       string
	FgColor       string
	TargetValue   string
	DataType      persistence.DataType
	Endpoint      string
	NodeID        string
	Priority      int
	IsException   bool
	IsHoliday     bool
	IsOverride    bool
	SingleShot    bool
	WriteTimeout  time.Duration
	Timeout       time.Duration
	Credentials   *persistence.SinkCredentials
	OccurrenceKey string
}

// Contains reports whether the occurrence interval [Start, End) covers the
// instant.
func (o ResolvedOccurrence) Contains(t time.Time) bool {
	return !t.Before(o.Start) && t.Before(o.End)
}

// occurrenceKey builds the stable per-instance key. Clipped day fragments
// keep the key of the unclipped occurrence.
func occurrenceKey(seriesID int64, start time.Time) string {
	return fmt.Sprintf("%d:%s", seriesID, start.Format("2006-01-02T15:04:05"))
}
