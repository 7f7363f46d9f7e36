// Package export renders resolved occurrences as an iCalendar feed so
// external calendar apps can display the schedule read-only.
package export

import (
	"fmt"
	"io"

	ics "github.com/arran4/golang-ical"

	"github.com/example/industrial-scheduler/internal/resolver"
)

// prodID identifies this process as the feed generator.
const prodID = "-//industrial-scheduler//calendar//EN"

// Calendar builds an iCalendar document from resolved occurrences. Each
// occurrence becomes one VEVENT keyed by its occurrence key.
func Calendar(occurrences []resolver.ResolvedOccurrence) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(prodID)

	for _, occ := range occurrences {
		event := cal.AddEvent(occ.OccurrenceKey)
		event.SetSummary(occ.Title)
		event.SetStartAt(occ.Start)
		event.SetEndAt(occ.End)
		event.SetDescription(fmt.Sprintf("target value: %s", occ.TargetValue))
		if occ.Source != resolver.SourceWeekly {
			event.AddProperty(ics.ComponentProperty("X-SCHEDULER-SOURCE"), string(occ.Source))
		}
	}
	return cal
}

// Write serialises the occurrences as ICS onto w.
func Write(w io.Writer, occurrences []resolver.ResolvedOccurrence) error {
	return Calendar(occurrences).SerializeTo(w)
}
