package recurrence

import (
	"fmt"
	"strings"
)

// DailyRule builds a daily rule string firing at the given wall-clock time.
func DailyRule(hour, minute int) string {
	return fmt.Sprintf("FREQ=DAILY;BYHOUR=%d;BYMINUTE=%d", hour, minute)
}

// WeeklyRule builds a weekly rule string for the supplied BYDAY tokens.
func WeeklyRule(hour, minute int, days []string) string {
	return fmt.Sprintf("FREQ=WEEKLY;BYHOUR=%d;BYMINUTE=%d;BYDAY=%s", hour, minute, strings.Join(days, ","))
}

// MonthlyRule builds a monthly rule string firing on the given day of month.
func MonthlyRule(hour, minute, monthday int) string {
	return fmt.Sprintf("FREQ=MONTHLY;BYHOUR=%d;BYMINUTE=%d;BYMONTHDAY=%d", hour, minute, monthday)
}
