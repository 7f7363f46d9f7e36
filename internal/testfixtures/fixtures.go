// Package testfixtures provides deterministic helpers shared by the test
// suites: a fake clock, reference data and an in-memory storage.
package testfixtures

import (
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// ReferenceTime is Monday 2026-02-16 08:00 local, the anchor most scenario
// tests build their windows around.
func ReferenceTime() time.Time {
	return time.Date(2026, time.February, 16, 8, 0, 0, 0, time.Local)
}

// WeekdayMorningSeries is a Mon-Fri 09:00-10:00 series starting on the
// reference Monday.
func WeekdayMorningSeries(id int64) persistence.Series {
	return persistence.Series{
		ID:          id,
		TaskName:    "morning line start",
		Endpoint:    "opc.tcp://127.0.0.1:4840",
		NodeID:      "ns=2;s=Line1.Setpoint",
		TargetValue: "auto",
		DataType:    persistence.DataTypeAuto,
		RuleString:  "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=9;BYMINUTE=0;DTSTART:20260216T090000;DURATION=PT1H",
		CategoryID:  1,
		Priority:    1,
		Enabled:     true,
	}
}

// Date builds a local calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// At builds a local instant with minute precision.
func At(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.Local)
}

// TimePtr returns a pointer to its argument.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Int64Ptr returns a pointer to its argument.
func Int64Ptr(v int64) *int64 {
	return &v
}

// SeededCategories mirrors the eight system categories installed on first
// start.
func SeededCategories() map[int64]persistence.Category {
	seeds := []struct {
		name string
		bg   string
		fg   string
	}{
		{"Red", "#FF0000", "#FFFFFF"},
		{"Pink", "#FF69B4", "#FFFFFF"},
		{"Light Purple", "#DDA0DD", "#000000"},
		{"Green", "#00FF00", "#000000"},
		{"Blue", "#0000FF", "#FFFFFF"},
		{"Yellow", "#FFFF00", "#000000"},
		{"Orange", "#FFA500", "#000000"},
		{"Gray", "#808080", "#FFFFFF"},
	}
	out := make(map[int64]persistence.Category, len(seeds))
	for i, seed := range seeds {
		id := int64(i + 1)
		out[id] = persistence.Category{
			ID:        id,
			Name:      seed.name,
			BgColor:   seed.bg,
			FgColor:   seed.fg,
			SortOrder: i + 1,
			IsSystem:  true,
		}
	}
	return out
}
