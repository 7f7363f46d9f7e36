package persistence

import "time"

// DataType hints how a series target value is typed at write time.
type DataType string

const (
	DataTypeAuto   DataType = "auto"
	DataTypeInt    DataType = "int"
	DataTypeFloat  DataType = "float"
	DataTypeString DataType = "string"
	DataTypeBool   DataType = "bool"
)

// Series represents one repeating schedule definition stored in persistence.
type Series struct {
	ID          int64
	TaskName    string
	Endpoint    string
	NodeID      string
	TargetValue string
	DataType    DataType
	RuleString  string
	CategoryID  int64
	Priority    int
	Enabled     bool
	// Credentials is the opaque security block forwarded to the sink.
	Credentials  *SinkCredentials
	WriteTimeout time.Duration
	Timeout      time.Duration
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SinkCredentials carries connection security settings the core never
// interprets.
type SinkCredentials struct {
	SecurityPolicy string
	SecurityMode   string
	Username       string
	Password       string
}

// ExceptionAction selects how an exception treats its occurrence date.
type ExceptionAction string

const (
	ExceptionCancel   ExceptionAction = "cancel"
	ExceptionOverride ExceptionAction = "override"
)

// Exception is a per-date cancel or override attached to a series. At most
// one exception exists per (SeriesID, Date) pair.
type Exception struct {
	ID                  int64
	SeriesID            int64
	Date                time.Time // calendar date; time-of-day is zero
	Action              ExceptionAction
	OverrideStart       *time.Time
	OverrideEnd         *time.Time
	OverrideTaskName    string
	OverrideTargetValue string
	OverrideCategoryID  *int64
	Note                string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HolidayCalendar groups holiday entries. At most one calendar is default.
type HolidayCalendar struct {
	ID          int64
	Name        string
	Description string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HolidayEntry marks one date on a calendar, either full-day or a time
// window, optionally rewriting category and target value for that day.
type HolidayEntry struct {
	ID                  int64
	CalendarID          int64
	Date                time.Time // calendar date; time-of-day is zero
	Name                string
	IsFullDay           bool
	StartTime           *time.Time // wall-clock time-of-day on Date
	EndTime             *time.Time
	OverrideCategoryID  *int64
	OverrideTargetValue string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Category is a named colour pair used for display and grouping. System
// categories are seeded at first start and immutable in identity.
type Category struct {
	ID        int64
	Name      string
	BgColor   string
	FgColor   string
	SortOrder int
	IsSystem  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GeneralSettings is the single-row process configuration.
type GeneralSettings struct {
	ProfileName     string
	EnableSchedule  bool
	ScanRate        int // seconds between scheduler ticks
	RefreshRate     int // seconds between UI polls
	UseActivePeriod bool
	ActiveFrom      *time.Time
	ActiveTo        *time.Time
	OutputType      string
	RefreshOutput   bool
	GenerateEvents  bool
	UpdatedAt       time.Time
}

// RuntimeOverride is the single-row process-wide forced value. A nil Until
// means the override holds until cleared.
type RuntimeOverride struct {
	Value     string
	Until     *time.Time
	CreatedAt time.Time
}

// Active reports whether the override is in force at the given instant.
func (o *RuntimeOverride) Active(now time.Time) bool {
	if o == nil {
		return false
	}
	return o.Until == nil || o.Until.After(now)
}

// ScheduleEvent records one sink write attempt in the execution event log.
type ScheduleEvent struct {
	ID            string // uuid
	OccurrenceKey string
	SeriesID      int64
	Value         string
	Status        string // ok | failed | retrying
	Detail        string
	ExecutedAt    time.Time
}
