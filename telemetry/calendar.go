package telemetry

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/soniakeys/meeus/v3/julian"
)

// ParseRunDate converts a year and a 1-based day-of-year into a UTC
// calendar date at midnight, the same way
// sixy6e-go-gsf/decode/params.go's parse_reftime resolves a GSF
// reference time, via julian.DayOfYearToCalendar and
// julian.LeapYearGregorian.
func ParseRunDate(year, dayOfYear int) (time.Time, error) {
	if dayOfYear < 1 || dayOfYear > 366 {
		return time.Time{}, fmt.Errorf("telemetry.ParseRunDate: day-of-year %d out of range", dayOfYear)
	}
	month, day := julian.DayOfYearToCalendar(dayOfYear, julian.LeapYearGregorian(year))
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// RotatingName formats a report filename from an strftime pattern and a
// timestamp, the same github.com/lestrrat-go/strftime call
// doismellburning-samoyed/src/xmit.go and tq.go use to name
// timestamped audio captures, generalized here to naming daily/hourly
// report files instead.
func RotatingName(pattern string, t time.Time) (string, error) {
	name, err := strftime.Format(pattern, t)
	if err != nil {
		return "", fmt.Errorf("telemetry.RotatingName: %w", err)
	}
	return name, nil
}
