package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// MemoryStorage is an in-memory implementation of the persistence
// contracts, mirroring the sqlite storage's observable behaviour.
type MemoryStorage struct {
	mu         sync.RWMutex
	now        func() time.Time
	nextID     int64
	Series     map[int64]persistence.Series
	Exceptions map[int64]persistence.Exception
	Calendars  map[int64]persistence.HolidayCalendar
	Entries    map[int64]persistence.HolidayEntry
	Categories map[int64]persistence.Category
	Settings   *persistence.GeneralSettings
	Override   *persistence.RuntimeOverride
	Events     []persistence.ScheduleEvent
}

// NewMemoryStorage builds an empty storage seeded with the system
// categories and driven by the given clock.
func NewMemoryStorage(clock *Clock) *MemoryStorage {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &MemoryStorage{
		now:        now,
		nextID:     100,
		Series:     make(map[int64]persistence.Series),
		Exceptions: make(map[int64]persistence.Exception),
		Calendars:  make(map[int64]persistence.HolidayCalendar),
		Entries:    make(map[int64]persistence.HolidayEntry),
		Categories: SeededCategories(),
	}
}

func (m *MemoryStorage) allocateID() int64 {
	m.nextID++
	return m.nextID
}

// --- SeriesRepository ---

func (m *MemoryStorage) CreateSeries(ctx context.Context, series persistence.Series) (persistence.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if series.ID == 0 {
		series.ID = m.allocateID()
	}
	series.CreatedAt = m.now()
	series.UpdatedAt = series.CreatedAt
	m.Series[series.ID] = series
	return series, nil
}

func (m *MemoryStorage) UpdateSeries(ctx context.Context, series persistence.Series) (persistence.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Series[series.ID]; !ok {
		return persistence.Series{}, persistence.ErrNotFound
	}
	series.UpdatedAt = m.now()
	m.Series[series.ID] = series
	return series, nil
}

func (m *MemoryStorage) GetSeries(ctx context.Context, id int64) (persistence.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	series, ok := m.Series[id]
	if !ok {
		return persistence.Series{}, persistence.ErrNotFound
	}
	return series, nil
}

func (m *MemoryStorage) ListSeries(ctx context.Context, enabledOnly bool) ([]persistence.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]persistence.Series, 0, len(m.Series))
	for _, series := range m.Series {
		if enabledOnly && !series.Enabled {
			continue
		}
		out = append(out, series)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) DeleteSeries(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Series[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.Series, id)
	for excID, exc := range m.Exceptions {
		if exc.SeriesID == id {
			delete(m.Exceptions, excID)
		}
	}
	return nil
}

func (m *MemoryStorage) SetSeriesEnabled(ctx context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	series, ok := m.Series[id]
	if !ok {
		return persistence.ErrNotFound
	}
	series.Enabled = enabled
	series.UpdatedAt = m.now()
	m.Series[id] = series
	return nil
}

// --- ExceptionRepository ---

func (m *MemoryStorage) UpsertException(ctx context.Context, exc persistence.Exception) (persistence.Exception, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.Exceptions {
		if existing.SeriesID == exc.SeriesID && sameDay(existing.Date, exc.Date) {
			exc.ID = id
			exc.CreatedAt = existing.CreatedAt
			exc.UpdatedAt = m.now()
			m.Exceptions[id] = exc
			return exc, nil
		}
	}
	exc.ID = m.allocateID()
	exc.CreatedAt = m.now()
	exc.UpdatedAt = exc.CreatedAt
	m.Exceptions[exc.ID] = exc
	return exc, nil
}

func (m *MemoryStorage) DeleteException(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Exceptions[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.Exceptions, id)
	return nil
}

func (m *MemoryStorage) ListExceptions(ctx context.Context, seriesID int64, from, to time.Time) ([]persistence.Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []persistence.Exception
	for _, exc := range m.Exceptions {
		if exc.SeriesID == seriesID && insideDays(exc.Date, from, to) {
			out = append(out, exc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStorage) ListAllExceptions(ctx context.Context, from, to time.Time) ([]persistence.Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []persistence.Exception
	for _, exc := range m.Exceptions {
		if insideDays(exc.Date, from, to) {
			out = append(out, exc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// --- HolidayRepository ---

func (m *MemoryStorage) CreateHolidayCalendar(ctx context.Context, cal persistence.HolidayCalendar) (persistence.HolidayCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Calendars {
		if existing.Name == cal.Name {
			return persistence.HolidayCalendar{}, persistence.ErrConflict
		}
	}
	if cal.IsDefault {
		m.demoteDefaultLocked(0)
	}
	cal.ID = m.allocateID()
	cal.CreatedAt = m.now()
	cal.UpdatedAt = cal.CreatedAt
	m.Calendars[cal.ID] = cal
	return cal, nil
}

func (m *MemoryStorage) UpdateHolidayCalendar(ctx context.Context, cal persistence.HolidayCalendar) (persistence.HolidayCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Calendars[cal.ID]; !ok {
		return persistence.HolidayCalendar{}, persistence.ErrNotFound
	}
	if cal.IsDefault {
		m.demoteDefaultLocked(cal.ID)
	}
	cal.UpdatedAt = m.now()
	m.Calendars[cal.ID] = cal
	return cal, nil
}

func (m *MemoryStorage) demoteDefaultLocked(keep int64) {
	for id, cal := range m.Calendars {
		if id != keep && cal.IsDefault {
			cal.IsDefault = false
			m.Calendars[id] = cal
		}
	}
}

func (m *MemoryStorage) DeleteHolidayCalendar(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Calendars[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.Calendars, id)
	for entryID, entry := range m.Entries {
		if entry.CalendarID == id {
			delete(m.Entries, entryID)
		}
	}
	return nil
}

func (m *MemoryStorage) ListHolidayCalendars(ctx context.Context) ([]persistence.HolidayCalendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]persistence.HolidayCalendar, 0, len(m.Calendars))
	for _, cal := range m.Calendars {
		out = append(out, cal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStorage) DefaultHolidayCalendar(ctx context.Context) (persistence.HolidayCalendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cal := range m.Calendars {
		if cal.IsDefault {
			return cal, nil
		}
	}
	return persistence.HolidayCalendar{}, persistence.ErrNotFound
}

func (m *MemoryStorage) UpsertHolidayEntry(ctx context.Context, entry persistence.HolidayEntry) (persistence.HolidayEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == 0 {
		entry.ID = m.allocateID()
		entry.CreatedAt = m.now()
	} else if _, ok := m.Entries[entry.ID]; !ok {
		return persistence.HolidayEntry{}, persistence.ErrNotFound
	}
	entry.UpdatedAt = m.now()
	m.Entries[entry.ID] = entry
	return entry, nil
}

func (m *MemoryStorage) DeleteHolidayEntry(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Entries[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.Entries, id)
	return nil
}

func (m *MemoryStorage) ListHolidayEntries(ctx context.Context, calendarID int64, from, to time.Time) ([]persistence.HolidayEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []persistence.HolidayEntry
	for _, entry := range m.Entries {
		if entry.CalendarID == calendarID && insideDays(entry.Date, from, to) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- CategoryRepository ---

func (m *MemoryStorage) CreateCategory(ctx context.Context, cat persistence.Category) (persistence.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxSort := 0
	for _, existing := range m.Categories {
		if existing.Name == cat.Name {
			return persistence.Category{}, persistence.ErrConflict
		}
		if existing.SortOrder > maxSort {
			maxSort = existing.SortOrder
		}
	}
	if cat.SortOrder == 0 {
		cat.SortOrder = maxSort + 1
	}
	cat.ID = m.allocateID()
	cat.CreatedAt = m.now()
	cat.UpdatedAt = cat.CreatedAt
	m.Categories[cat.ID] = cat
	return cat, nil
}

func (m *MemoryStorage) UpdateCategory(ctx context.Context, cat persistence.Category) (persistence.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Categories[cat.ID]; !ok {
		return persistence.Category{}, persistence.ErrNotFound
	}
	cat.UpdatedAt = m.now()
	m.Categories[cat.ID] = cat
	return cat, nil
}

func (m *MemoryStorage) GetCategory(ctx context.Context, id int64) (persistence.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cat, ok := m.Categories[id]
	if !ok {
		return persistence.Category{}, persistence.ErrNotFound
	}
	return cat, nil
}

func (m *MemoryStorage) ListCategories(ctx context.Context) ([]persistence.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]persistence.Category, 0, len(m.Categories))
	for _, cat := range m.Categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStorage) DeleteCategory(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Categories[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.Categories, id)
	return nil
}

func (m *MemoryStorage) CategoryReferences(ctx context.Context, id int64) (persistence.CategoryRefs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var refs persistence.CategoryRefs
	for _, series := range m.Series {
		if series.CategoryID == id {
			refs.Series++
		}
	}
	for _, exc := range m.Exceptions {
		if exc.OverrideCategoryID != nil && *exc.OverrideCategoryID == id {
			refs.Exceptions++
		}
	}
	for _, entry := range m.Entries {
		if entry.OverrideCategoryID != nil && *entry.OverrideCategoryID == id {
			refs.Holidays++
		}
	}
	return refs, nil
}

// --- SettingsRepository ---

func (m *MemoryStorage) GetSettings(ctx context.Context) (persistence.GeneralSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Settings == nil {
		return persistence.GeneralSettings{
			ProfileName:    "default",
			EnableSchedule: true,
			ScanRate:       30,
			RefreshRate:    60,
			OutputType:     "value",
		}, nil
	}
	return *m.Settings, nil
}

func (m *MemoryStorage) SaveSettings(ctx context.Context, settings persistence.GeneralSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings.UpdatedAt = m.now()
	m.Settings = &settings
	return nil
}

// --- OverrideRepository ---

func (m *MemoryStorage) GetOverride(ctx context.Context) (*persistence.RuntimeOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Override == nil {
		return nil, nil
	}
	clone := *m.Override
	return &clone, nil
}

func (m *MemoryStorage) SetOverride(ctx context.Context, override persistence.RuntimeOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	override.CreatedAt = m.now()
	m.Override = &override
	return nil
}

func (m *MemoryStorage) ClearOverride(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Override = nil
	return nil
}

// --- EventRepository ---

func (m *MemoryStorage) AppendEvent(ctx context.Context, event persistence.ScheduleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MemoryStorage) ListEvents(ctx context.Context, from, to time.Time) ([]persistence.ScheduleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []persistence.ScheduleEvent
	for _, event := range m.Events {
		if !event.ExecutedAt.Before(from) && event.ExecutedAt.Before(to) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *MemoryStorage) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Events[:0]
	var pruned int64
	for _, event := range m.Events {
		if event.ExecutedAt.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, event)
	}
	m.Events = kept
	return pruned, nil
}

// --- SnapshotReader ---

func (m *MemoryStorage) Snapshot(ctx context.Context, from, to time.Time) (persistence.Snapshot, error) {
	series, _ := m.ListSeries(ctx, true)
	exceptions, _ := m.ListAllExceptions(ctx, from, to)
	snapshot := persistence.Snapshot{
		Series:     series,
		Exceptions: exceptions,
		TakenAt:    m.now(),
	}
	if cal, err := m.DefaultHolidayCalendar(ctx); err == nil {
		snapshot.Holidays, _ = m.ListHolidayEntries(ctx, cal.ID, from, to)
	}
	categories, _ := m.ListCategories(ctx)
	snapshot.Categories = make(map[int64]persistence.Category, len(categories))
	for _, cat := range categories {
		snapshot.Categories[cat.ID] = cat
	}
	snapshot.Override, _ = m.GetOverride(ctx)
	return snapshot, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// insideDays reports whether the date falls on any day the window touches.
func insideDays(date, from, to time.Time) bool {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return !date.Before(fromDay) && !date.After(toDay)
}
