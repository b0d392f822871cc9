// Package presence renders last-activity instants for display.
package presence

import (
	"fmt"
	"time"
)

// ClockLayout is the hour:minute form used for message display times and on
// the push channel wire.
const ClockLayout = "3:04 PM"

// RelativeTime renders how long ago past was, relative to now.
//
// The ladder is seconds (<60), minutes (<60), hours (<24), days (<7),
// weeks (<4), then months counted as whole 30-day blocks. past is expected to
// be at or before now; a past in the future is not handled specially.
func RelativeTime(now, past time.Time) string {
	seconds := int64(now.Sub(past) / time.Second)
	if seconds < 60 {
		return ago(seconds, "second")
	}
	minutes := seconds / 60
	if minutes < 60 {
		return ago(minutes, "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return ago(hours, "hour")
	}
	days := hours / 24
	if days < 7 {
		return ago(days, "day")
	}
	if weeks := days / 7; weeks < 4 {
		return ago(weeks, "week")
	}
	return ago(days/30, "month")
}

func ago(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// ClockTime formats t as a local hour:minute string in loc.
// A nil loc means the process local zone.
func ClockTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(ClockLayout)
}
