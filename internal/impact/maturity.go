package impact

import "time"

// IsMature reports whether enough data has accrued after an action to trust
// its measurement. The buffer absorbs attribution lag in uploaded reports:
// conversions land days after their clicks, so a window that has nominally
// elapsed may still be incomplete.
func IsMature(actionDate time.Time, horizonDays, bufferDays int, latestDataDate time.Time) bool {
	required := actionDate.AddDate(0, 0, horizonDays+bufferDays)
	return !latestDataDate.Before(required)
}
