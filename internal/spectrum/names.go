package spectrum

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	RawPrefix     = "raw_spectrum_"
	TreatedPrefix = "treated_spectrum_"

	stampLayout = "02-01-2006_15-04-05"
)

// FileName returns "<prefix><dd-mm-yyyy_HH-MM-SS_mmm>.csv" for t.
func FileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%s_%03d.csv", prefix, t.Format(stampLayout), t.Nanosecond()/int(time.Millisecond))
}

// ParseRecordedAt recovers the timestamp encoded by FileName. The second
// return value is false when name does not carry a parseable stamp.
func ParseRecordedAt(name string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	base := strings.TrimSuffix(name, ".csv")
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	// stamp is the last len(stampLayout)+4 characters: layout plus "_mmm".
	width := len(stampLayout) + 4
	if len(base) < width {
		return time.Time{}, false
	}
	stamp := base[len(base)-width:]
	millis, err := strconv.Atoi(stamp[len(stamp)-3:])
	if err != nil || stamp[len(stamp)-4] != '_' {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(stampLayout, stamp[:len(stampLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.Add(time.Duration(millis) * time.Millisecond), true
}

// RecordedAt parses the stamp from name, falling back to now.
func RecordedAt(name string, now time.Time) time.Time {
	if parsed, ok := ParseRecordedAt(name, now.Location()); ok {
		return parsed
	}
	return now
}
