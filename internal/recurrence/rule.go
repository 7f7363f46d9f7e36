package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRule indicates a rule string could not be parsed or validated.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// timestampLayout is the DTSTART/UNTIL wire form (e.g. 20260214T090000).
const timestampLayout = "20060102T150405"

// Frequency identifies the repeat cadence of a rule.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

var weekdayTokens = map[string]rrule.Weekday{
	"SU": rrule.SU,
	"MO": rrule.MO,
	"TU": rrule.TU,
	"WE": rrule.WE,
	"TH": rrule.TH,
	"FR": rrule.FR,
	"SA": rrule.SA,
}

var weekdayOrder = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Rule is a fully resolved recurrence configuration. Parse fills every
// defaultable field, so two rules that expand identically compare equal.
type Rule struct {
	Freq       Frequency
	Interval   int
	ByDay      []rrule.Weekday
	ByMonthDay int
	ByMonth    int
	BySetPos   int
	ByHour     int
	ByMinute   int
	Count      int
	Until      *time.Time
	DTStart    time.Time
	// Duration is the nominal occurrence width. Zero marks the event
	// single-shot; Expand lifts the drawn/scheduled width to one minute.
	Duration time.Duration
}

// SingleShot reports whether the rule describes instantaneous events
// (explicit or defaulted PT0M), which the scheduler must not retry.
func (r Rule) SingleShot() bool {
	return r.Duration == 0
}

// Parse decodes a rule string into a resolved Rule. Defaults that depend on
// the current instant (BYHOUR, DTSTART) are derived from now. Unknown keys
// are ignored; malformed tokens fail with ErrInvalidRule.
func Parse(raw string, now time.Time) (Rule, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "RRULE:")
	if s == "" {
		return Rule{}, fmt.Errorf("%w: empty rule string", ErrInvalidRule)
	}

	rule := Rule{
		Freq:     FreqDaily,
		Interval: 1,
		ByHour:   -1,
		ByMinute: 0,
	}
	var (
		sawFreq    bool
		sawByDay   bool
		dtstartRaw string
	)

	for _, token := range strings.Split(s, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(token, "DTSTART:"); ok {
			dtstartRaw = rest
			continue
		}
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return Rule{}, fmt.Errorf("%w: malformed token %q", ErrInvalidRule, token)
		}
		switch key {
		case "FREQ":
			if sawFreq {
				return Rule{}, fmt.Errorf("%w: duplicate FREQ", ErrInvalidRule)
			}
			sawFreq = true
			switch Frequency(value) {
			case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
				rule.Freq = Frequency(value)
			default:
				return Rule{}, fmt.Errorf("%w: unsupported FREQ %q", ErrInvalidRule, value)
			}
		case "INTERVAL":
			n, err := parseBoundedInt(value, 1, 1<<20)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: INTERVAL %q", ErrInvalidRule, value)
			}
			rule.Interval = n
		case "BYDAY":
			days, err := parseWeekdays(value)
			if err != nil {
				return Rule{}, err
			}
			rule.ByDay = days
			sawByDay = true
		case "BYMONTHDAY":
			n, err := parseBoundedInt(value, 1, 31)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: BYMONTHDAY %q", ErrInvalidRule, value)
			}
			rule.ByMonthDay = n
		case "BYMONTH":
			n, err := parseBoundedInt(value, 1, 12)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: BYMONTH %q", ErrInvalidRule, value)
			}
			rule.ByMonth = n
		case "BYSETPOS":
			n, err := strconv.Atoi(value)
			if err != nil || n == 0 {
				return Rule{}, fmt.Errorf("%w: BYSETPOS %q", ErrInvalidRule, value)
			}
			rule.BySetPos = n
		case "BYHOUR":
			n, err := parseBoundedInt(value, 0, 23)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: BYHOUR %q", ErrInvalidRule, value)
			}
			rule.ByHour = n
		case "BYMINUTE":
			n, err := parseBoundedInt(value, 0, 59)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: BYMINUTE %q", ErrInvalidRule, value)
			}
			rule.ByMinute = n
		case "COUNT":
			n, err := parseBoundedInt(value, 1, 1<<30)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: COUNT %q", ErrInvalidRule, value)
			}
			rule.Count = n
		case "UNTIL":
			t, err := time.ParseInLocation(timestampLayout, value, now.Location())
			if err != nil {
				return Rule{}, fmt.Errorf("%w: UNTIL %q", ErrInvalidRule, value)
			}
			rule.Until = &t
		case "DURATION":
			d, err := parseDuration(value)
			if err != nil {
				return Rule{}, err
			}
			rule.Duration = d
		default:
			// Unknown keys are tolerated so rules written by newer
			// revisions still expand.
		}
	}

	if rule.ByHour < 0 {
		rule.ByHour = nearestFutureHour(now)
	}

	switch rule.Freq {
	case FreqDaily, FreqWeekly:
		if !sawByDay {
			rule.ByDay = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
		}
	case FreqMonthly, FreqYearly:
		if rule.ByMonthDay == 0 && !sawByDay {
			rule.ByMonthDay = 1
		}
	}

	if dtstartRaw != "" {
		t, err := time.ParseInLocation(timestampLayout, dtstartRaw, now.Location())
		if err != nil {
			return Rule{}, fmt.Errorf("%w: DTSTART %q", ErrInvalidRule, dtstartRaw)
		}
		rule.DTStart = t
	} else {
		rule.DTStart = time.Date(now.Year(), now.Month(), now.Day(), rule.ByHour, rule.ByMinute, 0, 0, now.Location())
	}

	return rule, nil
}

// String renders the rule in its canonical wire form. Every resolved field is
// emitted, so parsing the result reproduces the receiver exactly.
func (r Rule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FREQ=%s;INTERVAL=%d", r.Freq, r.Interval)
	if len(r.ByDay) > 0 {
		b.WriteString(";BYDAY=")
		b.WriteString(formatWeekdays(r.ByDay))
	}
	if r.ByMonthDay > 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", r.ByMonthDay)
	}
	if r.ByMonth > 0 {
		fmt.Fprintf(&b, ";BYMONTH=%d", r.ByMonth)
	}
	if r.BySetPos != 0 {
		fmt.Fprintf(&b, ";BYSETPOS=%d", r.BySetPos)
	}
	fmt.Fprintf(&b, ";BYHOUR=%d;BYMINUTE=%d", r.ByHour, r.ByMinute)
	if r.Count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	}
	if r.Until != nil {
		fmt.Fprintf(&b, ";UNTIL=%s", r.Until.Format(timestampLayout))
	}
	fmt.Fprintf(&b, ";DTSTART:%s", r.DTStart.Format(timestampLayout))
	fmt.Fprintf(&b, ";DURATION=%s", formatDuration(r.Duration))
	return b.String()
}

// Period reports the natural repeat period, used to size lookahead horizons.
func (r Rule) Period() time.Duration {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	var unit time.Duration
	switch r.Freq {
	case FreqWeekly:
		unit = 7 * 24 * time.Hour
	case FreqMonthly:
		unit = 31 * 24 * time.Hour
	case FreqYearly:
		unit = 366 * 24 * time.Hour
	default:
		unit = 24 * time.Hour
	}
	return time.Duration(interval) * unit
}

func parseBoundedInt(value string, min, max int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("value %d out of range [%d,%d]", n, min, max)
	}
	return n, nil
}

func parseWeekdays(value string) ([]rrule.Weekday, error) {
	parts := strings.Split(value, ",")
	seen := make(map[string]struct{}, len(parts))
	days := make([]rrule.Weekday, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		day, ok := weekdayTokens[part]
		if !ok {
			return nil, fmt.Errorf("%w: BYDAY token %q", ErrInvalidRule, part)
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty BYDAY", ErrInvalidRule)
	}
	sortWeekdays(days)
	return days, nil
}

func sortWeekdays(days []rrule.Weekday) {
	rank := make(map[string]int, len(weekdayOrder))
	for i, token := range weekdayOrder {
		rank[token] = i
	}
	sort.Slice(days, func(i, j int) bool {
		return rank[days[i].String()] < rank[days[j].String()]
	})
}

func formatWeekdays(days []rrule.Weekday) string {
	tokens := make([]string, len(days))
	for i, day := range days {
		tokens[i] = day.String()
	}
	return strings.Join(tokens, ",")
}

// parseDuration decodes the non-standard PT[<n>H][<n>M] token. PT0M is the
// explicit instantaneous marker.
func parseDuration(value string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(value, "PT")
	if !ok || rest == "" {
		return 0, fmt.Errorf("%w: DURATION %q", ErrInvalidRule, value)
	}
	var total time.Duration
	sawComponent := false
	digits := ""
	for _, ch := range rest {
		switch {
		case ch >= '0' && ch <= '9':
			digits += string(ch)
		case ch == 'H':
			if digits == "" {
				return 0, fmt.Errorf("%w: DURATION %q", ErrInvalidRule, value)
			}
			n, _ := strconv.Atoi(digits)
			total += time.Duration(n) * time.Hour
			digits = ""
			sawComponent = true
		case ch == 'M':
			if digits == "" {
				return 0, fmt.Errorf("%w: DURATION %q", ErrInvalidRule, value)
			}
			n, _ := strconv.Atoi(digits)
			total += time.Duration(n) * time.Minute
			digits = ""
			sawComponent = true
		default:
			return 0, fmt.Errorf("%w: DURATION %q", ErrInvalidRule, value)
		}
	}
	if !sawComponent || digits != "" {
		return 0, fmt.Errorf("%w: DURATION %q", ErrInvalidRule, value)
	}
	return total, nil
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "PT0M"
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("PT%dH%dM", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("PT%dH", hours)
	default:
		return fmt.Sprintf("PT%dM", minutes)
	}
}

// nearestFutureHour picks the next whole hour after now, wrapping at
// midnight. An instant already on the hour keeps that hour.
func nearestFutureHour(now time.Time) int {
	if now.Minute() == 0 && now.Second() == 0 {
		return now.Hour()
	}
	return (now.Hour() + 1) % 24
}
