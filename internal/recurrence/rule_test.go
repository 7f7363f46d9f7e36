package recurrence

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/teambition/rrule-go"
)

var parseReference = time.Date(2026, time.February, 16, 8, 15, 0, 0, time.Local)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("resolves explicit weekly rule", func(t *testing.T) {
		t.Parallel()

		rule, err := Parse("FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=9;BYMINUTE=0;DTSTART:20260216T090000;DURATION=PT1H", parseReference)
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}
		if rule.Freq != FreqWeekly {
			t.Errorf("Freq = %s, want WEEKLY", rule.Freq)
		}
		if len(rule.ByDay) != 5 {
			t.Errorf("len(ByDay) = %d, want 5", len(rule.ByDay))
		}
		if rule.ByHour != 9 || rule.ByMinute != 0 {
			t.Errorf("time of day = %d:%d, want 9:0", rule.ByHour, rule.ByMinute)
		}
		want := time.Date(2026, time.February, 16, 9, 0, 0, 0, time.Local)
		if !rule.DTStart.Equal(want) {
			t.Errorf("DTStart = %v, want %v", rule.DTStart, want)
		}
		if rule.Duration != time.Hour {
			t.Errorf("Duration = %v, want 1h", rule.Duration)
		}
		if rule.SingleShot() {
			t.Error("SingleShot() = true for a one hour rule")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		rule, err := Parse("FREQ=DAILY", parseReference)
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}
		if rule.Interval != 1 {
			t.Errorf("Interval = %d, want 1", rule.Interval)
		}
		// 08:15 rounds up to the next whole hour.
		if rule.ByHour != 9 {
			t.Errorf("ByHour = %d, want 9", rule.ByHour)
		}
		if rule.ByMinute != 0 {
			t.Errorf("ByMinute = %d, want 0", rule.ByMinute)
		}
		if len(rule.ByDay) != 5 {
			t.Errorf("len(ByDay) = %d, want the weekday default", len(rule.ByDay))
		}
		if !rule.SingleShot() {
			t.Error("SingleShot() = false without DURATION")
		}
		wantStart := time.Date(2026, time.February, 16, 9, 0, 0, 0, time.Local)
		if !rule.DTStart.Equal(wantStart) {
			t.Errorf("DTStart = %v, want %v", rule.DTStart, wantStart)
		}
	})

	t.Run("monthly default day of month", func(t *testing.T) {
		t.Parallel()

		rule, err := Parse("FREQ=MONTHLY;BYHOUR=10;BYMINUTE=30", parseReference)
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}
		if rule.ByMonthDay != 1 {
			t.Errorf("ByMonthDay = %d, want 1", rule.ByMonthDay)
		}
		if len(rule.ByDay) != 0 {
			t.Errorf("ByDay populated for monthly rule: %v", rule.ByDay)
		}
	})

	t.Run("accepts count until and setpos", func(t *testing.T) {
		t.Parallel()

		rule, err := Parse("FREQ=MONTHLY;BYDAY=FR;BYSETPOS=-1;BYHOUR=17;BYMINUTE=0;COUNT=12;UNTIL=20261231T235900;DTSTART:20260101T170000", parseReference)
		if err != nil {
			t.Fatalf("Parse returned error: %v", err)
		}
		if rule.BySetPos != -1 {
			t.Errorf("BySetPos = %d, want -1", rule.BySetPos)
		}
		if rule.Count != 12 {
			t.Errorf("Count = %d, want 12", rule.Count)
		}
		if rule.Until == nil || rule.Until.Year() != 2026 {
			t.Errorf("Until = %v, want a 2026 instant", rule.Until)
		}
	})

	t.Run("ignores unknown keys", func(t *testing.T) {
		t.Parallel()

		if _, err := Parse("FREQ=DAILY;X-FUTURE=1;BYHOUR=6;BYMINUTE=0", parseReference); err != nil {
			t.Fatalf("Parse rejected unknown key: %v", err)
		}
	})

	t.Run("rejects malformed rules", func(t *testing.T) {
		t.Parallel()

		cases := map[string]string{
			"empty":              "",
			"bad freq":           "FREQ=HOURLY",
			"duplicate freq":     "FREQ=DAILY;FREQ=WEEKLY",
			"bare token":         "FREQ=DAILY;NONSENSE",
			"bad weekday":        "FREQ=WEEKLY;BYDAY=XX",
			"hour out of range":  "FREQ=DAILY;BYHOUR=24",
			"zero interval":      "FREQ=DAILY;INTERVAL=0",
			"zero setpos":        "FREQ=MONTHLY;BYSETPOS=0",
			"bad duration":       "FREQ=DAILY;DURATION=PT",
			"bad duration unit":  "FREQ=DAILY;DURATION=PT5S",
			"bad dtstart":        "FREQ=DAILY;DTSTART:2026-02-16",
			"bad until":          "FREQ=DAILY;UNTIL=tomorrow",
			"monthday too large": "FREQ=MONTHLY;BYMONTHDAY=32",
		}
		for name, raw := range cases {
			if _, err := Parse(raw, parseReference); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("%s: Parse(%q) error = %v, want ErrInvalidRule", name, raw, err)
			}
		}
	})
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"PT0M", 0},
		{"PT30M", 30 * time.Minute},
		{"PT1H", time.Hour},
		{"PT2H15M", 2*time.Hour + 15*time.Minute},
	}
	for _, tc := range cases {
		got, err := parseDuration(tc.raw)
		if err != nil {
			t.Errorf("parseDuration(%q) error: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestRuleRoundTrip(t *testing.T) {
	t.Parallel()

	rules := []string{
		"FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=9;BYMINUTE=0;DTSTART:20260216T090000;DURATION=PT1H",
		"FREQ=DAILY;BYHOUR=6;BYMINUTE=30;DURATION=PT0M",
		"FREQ=MONTHLY;BYMONTHDAY=15;BYHOUR=10;BYMINUTE=0;COUNT=6",
		"FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=24;BYHOUR=18;BYMINUTE=0;UNTIL=20301231T235900",
		"FREQ=MONTHLY;BYDAY=FR;BYSETPOS=-1;BYHOUR=17;BYMINUTE=0;DTSTART:20260102T170000;DURATION=PT45M",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=SA,SU;BYHOUR=8;BYMINUTE=0",
	}
	for _, raw := range rules {
		first, err := Parse(raw, parseReference)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", raw, err)
		}
		second, err := Parse(first.String(), parseReference)
		if err != nil {
			t.Fatalf("reparse of %q failed: %v", first.String(), err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip changed rule:\n  in:  %#v\n  out: %#v", first, second)
		}
	}
}

func TestRulePeriod(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"FREQ=DAILY;BYHOUR=6;BYMINUTE=0", 24 * time.Hour},
		{"FREQ=WEEKLY;BYDAY=MO;BYHOUR=6;BYMINUTE=0", 7 * 24 * time.Hour},
		{"FREQ=WEEKLY;INTERVAL=2;BYDAY=MO;BYHOUR=6;BYMINUTE=0", 14 * 24 * time.Hour},
		{"FREQ=MONTHLY;BYHOUR=6;BYMINUTE=0", 31 * 24 * time.Hour},
		{"FREQ=YEARLY;BYHOUR=6;BYMINUTE=0", 366 * 24 * time.Hour},
	}
	for _, tc := range cases {
		rule, err := Parse(tc.raw, parseReference)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.raw, err)
		}
		if got := rule.Period(); got != tc.want {
			t.Errorf("Period(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestWeekdayHelpers(t *testing.T) {
	t.Parallel()

	days, err := parseWeekdays("FR,MO,MO")
	if err != nil {
		t.Fatalf("parseWeekdays error: %v", err)
	}
	want := []rrule.Weekday{rrule.MO, rrule.FR}
	if !reflect.DeepEqual(days, want) {
		t.Errorf("parseWeekdays = %v, want %v", days, want)
	}
	if got := formatWeekdays(days); got != "MO,FR" {
		t.Errorf("formatWeekdays = %q, want MO,FR", got)
	}
}

func TestRuleBuilders(t *testing.T) {
	t.Parallel()

	if got := DailyRule(9, 30); got != "FREQ=DAILY;BYHOUR=9;BYMINUTE=30" {
		t.Errorf("DailyRule = %q", got)
	}
	if got := WeeklyRule(14, 0, []string{"MO", "WE", "FR"}); got != "FREQ=WEEKLY;BYHOUR=14;BYMINUTE=0;BYDAY=MO,WE,FR" {
		t.Errorf("WeeklyRule = %q", got)
	}
	if got := MonthlyRule(10, 0, 15); got != "FREQ=MONTHLY;BYHOUR=10;BYMINUTE=0;BYMONTHDAY=15" {
		t.Errorf("MonthlyRule = %q", got)
	}
	for _, raw := range []string{DailyRule(9, 30), WeeklyRule(14, 0, []string{"MO"}), MonthlyRule(10, 0, 15)} {
		if _, err := Parse(raw, parseReference); err != nil {
			t.Errorf("builder output %q does not parse: %v", raw, err)
		}
	}
}
