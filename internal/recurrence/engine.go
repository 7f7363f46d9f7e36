package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// minimumWidth is the floor applied to occurrence intervals so zero-duration
// events remain drawable and schedulable.
const minimumWidth = time.Minute

// Occurrence is one concrete expansion of a rule.
type Occurrence struct {
	Start time.Time
	End   time.Time
	// SingleShot carries the PT0M marker even though End was lifted a
	// minute past Start.
	SingleShot bool
}

// Expand enumerates the occurrences of the rule whose starts fall inside the
// half-open window [from, to). The result is strictly increasing in Start and
// every End equals Start plus the nominal duration (at least one minute).
func (r Rule) Expand(from, to time.Time) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, nil
	}

	opt := rrule.ROption{
		Freq:     r.freqOption(),
		Interval: r.Interval,
		Dtstart:  r.DTStart.Truncate(time.Minute),
		Byhour:   []int{r.ByHour},
		Byminute: []int{r.ByMinute},
		Bysecond: []int{0},
		Wkst:     rrule.MO,
	}
	if len(r.ByDay) > 0 {
		opt.Byweekday = append([]rrule.Weekday(nil), r.ByDay...)
	}
	if r.ByMonthDay > 0 {
		opt.Bymonthday = []int{r.ByMonthDay}
	}
	if r.ByMonth > 0 {
		opt.Bymonth = []int{r.ByMonth}
	}
	if r.BySetPos != 0 {
		opt.Bysetpos = []int{r.BySetPos}
	}
	if r.Count > 0 {
		opt.Count = r.Count
	}
	if r.Until != nil {
		opt.Until = *r.Until
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	width := r.Duration
	if width < minimumWidth {
		width = minimumWidth
	}
	singleShot := r.SingleShot()

	starts := rule.Between(from, to, true)
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		if start.Before(from) || !start.Before(to) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Start:      start,
			End:        start.Add(width),
			SingleShot: singleShot,
		})
	}
	return occurrences, nil
}

// NextAfter reports the first occurrence starting strictly after the given
// instant, scanning up to horizon ahead. The boolean is false when the rule
// produces nothing inside the horizon.
func (r Rule) NextAfter(after time.Time, horizon time.Duration) (Occurrence, bool, error) {
	if horizon <= 0 {
		horizon = r.Period()
	}
	occurrences, err := r.Expand(after.Add(time.Minute), after.Add(horizon))
	if err != nil {
		return Occurrence{}, false, err
	}
	for _, occ := range occurrences {
		if occ.Start.After(after) {
			return occ, true, nil
		}
	}
	return Occurrence{}, false, nil
}

func (r Rule) freqOption() rrule.Frequency {
	switch r.Freq {
	case FreqWeekly:
		return rrule.WEEKLY
	case FreqMonthly:
		return rrule.MONTHLY
	case FreqYearly:
		return rrule.YEARLY
	default:
		return rrule.DAILY
	}
}
