package chat

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DisplayLayout is the layout FormatDate uses.
const DisplayLayout = "Jan 2, 2006 15:04"

// FormatDate renders a message date in local time, or "Unknown date" when
// it is missing or unparseable.
func FormatDate(d Date) string {
	if !d.Valid() {
		return "Unknown date"
	}
	return d.Time().Local().Format(DisplayLayout)
}

// DayLabel is the date part of FormatDate, used for day separators.
func DayLabel(d Date) string {
	if !d.Valid() {
		return "Unknown date"
	}
	return d.Time().Local().Format("Jan 2, 2006")
}

// TimeLabel is the time-of-day part of FormatDate.
func TimeLabel(d Date) string {
	if !d.Valid() {
		return "Unknown date"
	}
	return d.Time().Local().Format("15:04")
}

// FormatFileSize renders a byte count with a binary unit, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	if i == 0 {
		return fmt.Sprintf("%d Bytes", bytes)
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + " " + units[i]
}

// Age returns a coarse "how long ago" label relative to now.
func Age(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
