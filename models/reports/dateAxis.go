package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
)

// DateLayout is the dd-mm-yyyy key used for the report's date axis.
const DateLayout = "02-01-2006"

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// reportClock reads now on the report calendar, whatever zone it was taken in.
func reportClock(now time.Time) time.Time {
	return now.In(config.ReportLocation())
}

// DatesInMonth lists every day of year/month formatted as dd-mm-yyyy.
// When year/month is now's month, days after now's day are left out entirely.
func DatesInMonth(year, month int, now time.Time) []string {
	if month < 1 || month > 12 {
		return nil
	}
	now = reportClock(now)
	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	last := daysInMonth
	if year == now.Year() && month == int(now.Month()) && now.Day() < last {
		last = now.Day()
	}

	dates := make([]string, 0, last)
	for day := 1; day <= last; day++ {
		dates = append(dates, fmt.Sprintf("%02d-%02d-%04d", day, month, year))
	}
	return dates
}

// YearOptions are the selectable report years: two prior years and the current one.
func YearOptions(now time.Time) []int {
	y := reportClock(now).Year()
	return []int{y - 2, y - 1, y}
}

type MonthOption struct {
	Value    int    `json:"value"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// MonthOptions disables months after now's month when year is the current year.
func MonthOptions(year int, now time.Time) []MonthOption {
	now = reportClock(now)
	opts := make([]MonthOption, 0, 12)
	for i, name := range monthNames {
		m := i + 1
		opts = append(opts, MonthOption{
			Value:    m,
			Name:     name,
			Disabled: year == now.Year() && m > int(now.Month()),
		})
	}
	return opts
}

var dateLayouts = []string{
	DateLayout,
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

var ErrInvalidDate = errors.New("invalid date")

// NormalizeDate converts the date strings found in report payloads into
// DateLayout. Timestamps keep their calendar day as written (no zone shift).
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}
