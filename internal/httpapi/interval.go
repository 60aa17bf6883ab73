package httpapi

import "time"

// StandardIntervals are the chart groupings offered to clients, in minutes.
var StandardIntervals = []int{1, 5, 15, 30, 60, 360, 1440}

// FitInterval returns requested when the history spans at least that long;
// otherwise the largest standard interval below it that the history does
// span, or the smallest standard interval when none does.
func FitInterval(requested int, oldest, now time.Time) int {
	if requested <= 0 {
		requested = StandardIntervals[0]
	}
	if oldest.IsZero() {
		return requested
	}
	age := now.Sub(oldest)
	if time.Duration(requested)*time.Minute <= age {
		return requested
	}
	fit := StandardIntervals[0]
	for _, c := range StandardIntervals {
		if c >= requested {
			break
		}
		if time.Duration(c)*time.Minute <= age {
			fit = c
		}
	}
	return fit
}
