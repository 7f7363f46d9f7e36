package persistence

import (
	"context"
	"time"
)

// SeriesRepository exposes CRUD operations for schedule series.
type SeriesRepository interface {
	CreateSeries(ctx context.Context, series Series) (Series, error)
	UpdateSeries(ctx context.Context, series Series) (Series, error)
	GetSeries(ctx context.Context, id int64) (Series, error)
	ListSeries(ctx context.Context, enabledOnly bool) ([]Series, error)
	DeleteSeries(ctx context.Context, id int64) error
	SetSeriesEnabled(ctx context.Context, id int64, enabled bool) error
}

// ExceptionRepository stores per-date cancel/override records. Upsert keys
// on the (SeriesID, Date) pair.
type ExceptionRepository interface {
	UpsertException(ctx context.Context, exc Exception) (Exception, error)
	DeleteException(ctx context.Context, id int64) error
	ListExceptions(ctx context.Context, seriesID int64, from, to time.Time) ([]Exception, error)
	ListAllExceptions(ctx context.Context, from, to time.Time) ([]Exception, error)
}

// HolidayRepository stores holiday calendars and their entries.
type HolidayRepository interface {
	CreateHolidayCalendar(ctx context.Context, cal HolidayCalendar) (HolidayCalendar, error)
	UpdateHolidayCalendar(ctx context.Context, cal HolidayCalendar) (HolidayCalendar, error)
	DeleteHolidayCalendar(ctx context.Context, id int64) error
	ListHolidayCalendars(ctx context.Context) ([]HolidayCalendar, error)
	DefaultHolidayCalendar(ctx context.Context) (HolidayCalendar, error)

	UpsertHolidayEntry(ctx context.Context, entry HolidayEntry) (HolidayEntry, error)
	DeleteHolidayEntry(ctx context.Context, id int64) error
	ListHolidayEntries(ctx context.Context, calendarID int64, from, to time.Time) ([]HolidayEntry, error)
}

// CategoryRepository stores display categories. Deleting or renaming system
// categories, and deleting referenced ones, is refused at the service layer;
// DeleteCategory itself performs no reference check, and CategoryReferences
// supplies the counts the service checks.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, cat Category) (Category, error)
	UpdateCategory(ctx context.Context, cat Category) (Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	// CategoryReferences counts series, exceptions and holiday entries
	// still pointing at the category.
	CategoryReferences(ctx context.Context, id int64) (CategoryRefs, error)
}

// CategoryRefs summarises what still references a category.
type CategoryRefs struct {
	Series     int
	Exceptions int
	Holidays   int
}

// Total reports the combined reference count.
func (r CategoryRefs) Total() int {
	return r.Series + r.Exceptions + r.Holidays
}

// SettingsRepository reads and writes the single general settings row.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (GeneralSettings, error)
	SaveSettings(ctx context.Context, settings GeneralSettings) error
}

// OverrideRepository reads and writes the single runtime override row.
type OverrideRepository interface {
	GetOverride(ctx context.Context) (*RuntimeOverride, error)
	SetOverride(ctx context.Context, override RuntimeOverride) error
	ClearOverride(ctx context.Context) error
}

// EventRepository appends to and queries the execution event log.
type EventRepository interface {
	AppendEvent(ctx context.Context, event ScheduleEvent) error
	ListEvents(ctx context.Context, from, to time.Time) ([]ScheduleEvent, error)
	PruneEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// Snapshot is the consistent read the resolver merges. All four layers are
// captured in one repository call so no layer observes a later write.
type Snapshot struct {
	Series     []Series
	Exceptions []Exception
	Holidays   []HolidayEntry
	Categories map[int64]Category
	Override   *RuntimeOverride
	TakenAt    time.Time
}

// SnapshotReader produces resolver snapshots for a window. Holiday entries
// come from the default calendar only.
type SnapshotReader interface {
	Snapshot(ctx context.Context, from, to time.Time) (Snapshot, error)
}
