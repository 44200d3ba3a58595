package weather

import "time"

// DayMillis is one day in milliseconds.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

const daySeconds = int64(24 * time.Hour / time.Second)

// NormalizeDate maps epoch seconds to the start of its calendar day under a
// fixed UTC offset, expressed as UTC milliseconds. The result depends only
// on the inputs, never on the process time zone.
func NormalizeDate(epochSeconds int64, offset time.Duration) int64 {
	local := epochSeconds + int64(offset/time.Second)
	days := local / daySeconds
	if local%daySeconds < 0 {
		days--
	}
	return days * DayMillis
}

// NormalizeTime is NormalizeDate for a time.Time.
func NormalizeTime(t time.Time, offset time.Duration) int64 {
	return NormalizeDate(t.Unix(), offset)
}

// DateTime converts a normalized date back to a UTC time.
func DateTime(date int64) time.Time {
	return time.UnixMilli(date).UTC()
}
