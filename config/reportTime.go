package config

import (
	"os"
	"strings"
	"time"
)

const defaultReportTimezone = "Asia/Kolkata"

// ReportLocation is the zone report calendars are read in: the date axis,
// the future-month check and the feedback date filter.
//
// Set via env:
// - REPORT_TIMEZONE=Asia/Kolkata
func ReportLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("REPORT_TIMEZONE"))
	if name == "" {
		name = defaultReportTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}

// ReportNow is the current time in ReportLocation.
func ReportNow() time.Time {
	return time.Now().In(ReportLocation())
}
