package selector

import "time"

// Period names accepted by ResolvePeriod.
const (
	PeriodAuto       = "auto"
	PeriodFirstHalf  = "first_half"
	PeriodSecondHalf = "second_half"
)

// ResolvePeriod maps a period name to concrete window bounds: the 1st-15th
// of the current month, or the 16th through month end. "auto" picks the
// half containing now.
func ResolvePeriod(periodType string, now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()

	if periodType == PeriodAuto {
		if day <= 15 {
			periodType = PeriodFirstHalf
		} else {
			periodType = PeriodSecondHalf
		}
	}

	if periodType == PeriodFirstHalf {
		start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(year, month, 15, 23, 59, 59, 0, now.Location())
		return start, end
	}

	start := time.Date(year, month, 16, 0, 0, 0, 0, now.Location())
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 0, -1).Day()
	end := time.Date(year, month, lastDay, 23, 59, 59, 0, now.Location())
	return start, end
}
