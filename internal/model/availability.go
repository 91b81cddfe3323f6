package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// WeeklyAvailability is a doctor's recurring working window for one weekday.
type WeeklyAvailability struct {
	ID          int64        `db:"id" json:"id"`
	DoctorID    int64        `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime   Clock        `db:"start_time" json:"start_time"`
	EndTime     Clock        `db:"end_time" json:"end_time"`
	IsAvailable bool         `db:"is_available" json:"is_available"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

type WeeklyAvailabilityEntry struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string `json:"end_time" validate:"required,datetime=15:04"`
	IsAvailable *bool  `json:"is_available"`
}

type ReplaceScheduleRequest struct {
	Days []WeeklyAvailabilityEntry `json:"days" validate:"max=7,dive"`
}

// Window is a doctor's working interval on a concrete date.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Minutes int
}

func NewClock(hour, minute int) Clock {
	return Clock{Minutes: hour*60 + minute}
}

// ParseClock accepts "15:04" and "15:04:05".
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return Clock{}, fmt.Errorf("invalid time of day %q", s)
}

// On anchors the clock to the calendar date of day in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Minutes/60, c.Minutes%60, 0, 0, loc)
}

func (c Clock) Before(o Clock) bool {
	return c.Minutes < o.Minutes
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Minutes/60, c.Minutes%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan reads Postgres TIME values.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = NewClock(v.Hour(), v.Minute())
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}

func (c *Clock) scanString(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}
