package report

import "time"

const (
	// DefaultPrefix names reports when no prefix is configured.
	DefaultPrefix = "identification_report"
	// RegionalOffset is added to UTC for the filename timestamp. It is a
	// fixed offset and ignores daylight saving.
	RegionalOffset = 2 * time.Hour

	timestampLayout = "2006-01-02_15-04-05"
)

// Filename returns <prefix>_<YYYY-MM-DD_HH-MM-SS>.csv for now shifted by
// RegionalOffset.
func Filename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + now.UTC().Add(RegionalOffset).Format(timestampLayout) + ".csv"
}
