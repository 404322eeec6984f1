// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"sync"
	"time"
)

// Kenya's government fiscal year runs 1 July through 30 June. Budget and
// audit publications are labelled with the fiscal year ("FY2023/24"),
// while quarterly implementation reports follow calendar quarters.

// FiscalYearStart returns the calendar year in which the fiscal year
// containing t begins. July onwards belongs to the fiscal year starting
// that July; January through June belongs to the previous year's.
func FiscalYearStart(t time.Time) int {
	if t.Month() >= time.July {
		return t.Year()
	}
	return t.Year() - 1
}

// FiscalYearLabel formats a fiscal year label from its starting calendar
// year, e.g. 2023 -> "FY2023/24".
func FiscalYearLabel(startYear int) string {
	return fmt.Sprintf("FY%d/%02d", startYear, (startYear+1)%100)
}

// FiscalYearBounds returns the first and last day of the fiscal year
// beginning in startYear, normalized to midnight UTC.
func FiscalYearBounds(startYear int) (time.Time, time.Time) {
	start := time.Date(startYear, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(startYear+1, time.June, 30, 0, 0, 0, 0, time.UTC)
	return start, end
}

// DateOnly strips the time component, returning midnight UTC of the same
// calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var (
	quarterEndsMu       sync.Mutex
	cachedQuarterEnds   []time.Time
	cachedQuarterYear   int
	quarterEndsComputed time.Time
)

// QuarterEnds returns the calendar quarter end dates (31 Mar, 30 Jun,
// 30 Sep, 31 Dec) for the previous, current and next calendar years
// around now. The set is cached and recomputed at most once every 24
// hours; publication cadences key off these dates so the twelve entries
// cover every lookback and lookahead the schedulers need.
func QuarterEnds(now time.Time) []time.Time {
	quarterEndsMu.Lock()
	defer quarterEndsMu.Unlock()

	year := now.Year()
	if cachedQuarterEnds != nil && cachedQuarterYear == year && now.Sub(quarterEndsComputed) < 24*time.Hour {
		return cachedQuarterEnds
	}

	ends := make([]time.Time, 0, 12)
	for y := year - 1; y <= year+1; y++ {
		ends = append(ends,
			time.Date(y, time.March, 31, 0, 0, 0, 0, time.UTC),
			time.Date(y, time.June, 30, 0, 0, 0, 0, time.UTC),
			time.Date(y, time.September, 30, 0, 0, 0, 0, time.UTC),
			time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
		)
	}

	cachedQuarterEnds = ends
	cachedQuarterYear = year
	quarterEndsComputed = now
	return ends
}

// LastQuarterEnd returns the most recent calendar quarter end on or
// before now.
func LastQuarterEnd(now time.Time) time.Time {
	today := DateOnly(now)
	var last time.Time
	for _, end := range QuarterEnds(now) {
		if !end.After(today) && end.After(last) {
			last = end
		}
	}
	return last
}

// DaysSinceQuarterEnd returns the number of whole days elapsed since the
// most recent calendar quarter end. The quarter end itself counts as day
// zero.
func DaysSinceQuarterEnd(now time.Time) int {
	last := LastQuarterEnd(now)
	if last.IsZero() {
		return -1
	}
	return int(DateOnly(now).Sub(last).Hours() / 24)
}

// QuarterOf returns the calendar quarter (1-4) containing t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
