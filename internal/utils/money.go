package utils

import (
	"math"
	"time"
)

// roundEpsilon absorbs binary floating point drift before rounding, so that
// values like 0.014999999999999999 (intended 0.015) still round half-up.
const roundEpsilon = 1e-9

// Round2 rounds a currency amount to 2 decimal places using half-up rounding.
func Round2(v float64) float64 {
	if v < 0 {
		return -Round2(-v)
	}
	return math.Floor(v*100+0.5+roundEpsilon) / 100
}

// AddMonthsClamped advances t by the given number of calendar months,
// clamping the day to the last valid day of the target month.
// Jan 31 + 1 month = Feb 28 (or Feb 29 in a leap year), never Mar 2/3,
// which is what time.AddDate would produce.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
