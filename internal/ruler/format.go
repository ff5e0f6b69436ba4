package ruler

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DefaultDayThreshold is the span from which elapsed days drop to one decimal.
const DefaultDayThreshold = 10 * 24 * time.Hour

// FormatPercent renders the change from y0 to y1 as a signed percentage.
// A zero or non-finite base yields "--".
func FormatPercent(y0, y1 float64) string {
	if y0 == 0 || math.IsNaN(y0) || math.IsInf(y0, 0) {
		return "--"
	}
	pct := (y1 - y0) / y0 * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "--"
	}
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormatElapsed renders d in minutes below an hour, hours below a day and
// days otherwise. Days carry two decimals below dayThreshold and one from it
// on; a non-positive threshold means DefaultDayThreshold. The unit is picked
// after rounding, so 59m45s reads "1.0 h" rather than "60 min".
func FormatElapsed(d time.Duration, dayThreshold time.Duration) string {
	if d < 0 {
		d = -d
	}
	if dayThreshold <= 0 {
		dayThreshold = DefaultDayThreshold
	}
	if m := math.Round(d.Minutes()); m < 60 {
		return fmt.Sprintf("%.0f min", m)
	}
	if h := math.Round(d.Hours()*10) / 10; h < 24 {
		return fmt.Sprintf("%.1f h", h)
	}
	days := d.Hours() / 24
	if d < dayThreshold && math.Round(days*100)/100 < dayThreshold.Hours()/24 {
		return fmt.Sprintf("%.2f días", days)
	}
	return fmt.Sprintf("%.1f días", days)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseX reads a date-axis coordinate. The surface reports either a date
// string or milliseconds since the epoch.
func parseX(v any) (time.Time, bool) {
	switch x := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, x, time.UTC); err == nil {
				return t, true
			}
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(x)).UTC(), true
	case time.Time:
		return x, true
	}
	return time.Time{}, false
}

// parseY reads a value-axis coordinate.
func parseY(v any) (float64, bool) {
	switch y := v.(type) {
	case float64:
		return y, !math.IsNaN(y) && !math.IsInf(y, 0)
	case int:
		return float64(y), true
	case string:
		f, err := strconv.ParseFloat(y, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func formatX(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
