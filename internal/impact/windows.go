package impact

import (
	"sort"
	"time"
)

// Window is a half-open date range [Start, End) with its nominal length.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// Contains reports whether a data date falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Windows are the before/after comparison ranges around an action date.
// LowConfidence is set when the account's upload cadence was too irregular
// to trust a full-horizon window and a short fallback window was used.
type Windows struct {
	Before        Window
	After         Window
	LowConfidence bool
}

// BuildWindows derives symmetric before/after windows around actionDate.
// dataDates are the account's distinct data dates in any order; their median
// gap is the observed upload cadence, and each window spans two report
// buckets at that cadence so a single odd upload cannot dominate either
// side. horizonDays caps the window for slow cadences. When no cadence can
// be measured, or it is wider than the horizon, both windows shrink to
// fallbackDays and the result is flagged low confidence.
func BuildWindows(actionDate time.Time, horizonDays, fallbackDays int, dataDates []time.Time) Windows {
	days := fallbackDays
	low := true

	if gap := medianGapDays(dataDates); gap > 0 && gap <= horizonDays {
		days = 2 * gap
		if days > horizonDays {
			days = horizonDays
		}
		low = false
	}

	return Windows{
		Before: Window{
			Start: actionDate.AddDate(0, 0, -days),
			End:   actionDate,
			Days:  days,
		},
		After: Window{
			Start: actionDate,
			End:   actionDate.AddDate(0, 0, days),
			Days:  days,
		},
		LowConfidence: low,
	}
}

// medianGapDays returns the median gap in days between consecutive distinct
// data dates, or 0 when fewer than two dates exist.
func medianGapDays(dates []time.Time) int {
	if len(dates) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var gaps []int
	for i := 1; i < len(sorted); i++ {
		gap := int(sorted[i].Sub(sorted[i-1]).Hours() / 24)
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Ints(gaps)
	return gaps[len(gaps)/2]
}
