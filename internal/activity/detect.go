package activity

import "time"

// Detection thresholds. A group is reported when it crosses any of them;
// classification is first match wins, evaluated in this order.
const (
	MaxDistinctFilesPerHour = 10
	MaxDownloadsPerHour     = 5

	nightStartHour = 22
	nightEndHour   = 6
)

// Suspicious classification tags.
const (
	TypeHighAccessRate   = "high_access_rate"
	TypeHighDownloadRate = "high_download_rate"
	TypeUnusualHours     = "unusual_hours"
)

// ResultCap bounds a single detector report.
const ResultCap = 100

// DefaultWindowDays is the trailing window when the caller does not choose one.
const DefaultWindowDays = 7

// Classify applies the detection rules to one (employee, hour) group.
// ok is false when the group is unremarkable and must not be reported.
func Classify(distinctFiles, downloads int, firstAccess time.Time) (tag string, ok bool) {
	switch {
	case distinctFiles > MaxDistinctFilesPerHour:
		return TypeHighAccessRate, true
	case downloads > MaxDownloadsPerHour:
		return TypeHighDownloadRate, true
	case Nocturnal(firstAccess.Hour()):
		return TypeUnusualHours, true
	}
	return "", false
}

// Nocturnal reports whether the hour of day falls in [22:00, 24:00) or [0:00, 6:00).
func Nocturnal(hour int) bool {
	return hour >= nightStartHour || hour < nightEndHour
}
