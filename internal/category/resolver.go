// Package category maps category ids to display colour pairs with a
// read-mostly process-local cache.
package category

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// Colors is a resolved background/foreground pair.
type Colors struct {
	Bg string
	Fg string
}

// Source supplies category records, typically the sqlite storage.
type Source interface {
	GetCategory(ctx context.Context, id int64) (persistence.Category, error)
}

// Resolver caches category colour lookups. Invalidate flushes the whole
// cache; callers invoke it after any category write.
type Resolver struct {
	mu     sync.RWMutex
	source Source
	cache  map[int64]Colors
}

// NewResolver wires a resolver over the given source.
func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[int64]Colors),
	}
}

// Resolve returns the colour pair for a category id. The boolean is false
// when the category does not exist; callers then fall back to a derived
// colour (see FallbackColors).
func (r *Resolver) Resolve(ctx context.Context, id int64) (Colors, bool) {
	if r == nil || id == 0 {
		return Colors{}, false
	}

	r.mu.RLock()
	colors, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return colors, true
	}

	cat, err := r.source.GetCategory(ctx, id)
	if err != nil {
		return Colors{}, false
	}
	colors = Colors{Bg: cat.BgColor, Fg: cat.FgColor}

	r.mu.Lock()
	r.cache[id] = colors
	r.mu.Unlock()
	return colors, true
}

// Invalidate flushes every cached entry.
func (r *Resolver) Invalidate() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.cache = make(map[int64]Colors)
	r.mu.Unlock()
}

// fallbackPalette supplies stable colours for occurrences whose category
// cannot be resolved.
var fallbackPalette = []Colors{
	{Bg: "#1F6FD6", Fg: "#FFFFFF"},
	{Bg: "#008000", Fg: "#FFFFFF"},
	{Bg: "#800080", Fg: "#FFFFFF"},
	{Bg: "#B8860B", Fg: "#FFFFFF"},
	{Bg: "#C0392B", Fg: "#FFFFFF"},
	{Bg: "#2C3E50", Fg: "#FFFFFF"},
}

// FallbackColors derives a deterministic colour pair from a title, used when
// a category lookup misses.
func FallbackColors(title string) Colors {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	return fallbackPalette[int(h.Sum32())%len(fallbackPalette)]
}
