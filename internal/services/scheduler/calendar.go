// Package scheduler decides, per source, whether a collection run is due
// right now based on Kenya's fiscal publication calendar. Everything here
// is a pure function of (source key, wall clock); the scheduler never
// sleeps and never launches jobs; an external tick driver consults it.
package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

// Publication cadences per source. The first matching calendar period
// defines the cadence for that day; high-frequency windows take
// precedence over the default. Reasons are operator-facing and name the
// window that decided.

// shouldRunTreasury: budget season (May-July) daily; 0-7 days after a
// quarter end daily; otherwise weekly on Monday.
func shouldRunTreasury(now time.Time) (bool, string) {
	if m := now.Month(); m >= time.May && m <= time.July {
		return true, "budget season (May-July): daily collection"
	}
	if d := common.DaysSinceQuarterEnd(now); d >= 0 && d <= 7 {
		return true, fmt.Sprintf("quarter-end window: %d days after quarter end, daily collection", d)
	}
	if now.Weekday() == time.Monday {
		return true, "weekly collection day (Monday)"
	}
	return false, "outside collection windows, weekly cadence runs on Monday"
}

// shouldRunCOB: BIRR publication lands 45-59 days after quarter end, so
// that window runs every second day (even day-of-year); otherwise
// biweekly on Monday of even ISO weeks.
func shouldRunCOB(now time.Time) (bool, string) {
	if d := common.DaysSinceQuarterEnd(now); d >= 45 && d <= 59 {
		if now.YearDay()%2 == 0 {
			return true, fmt.Sprintf("BIRR publication window: %d days after quarter end, every 2nd day", d)
		}
		return false, fmt.Sprintf("BIRR publication window (%d days after quarter end) but odd day-of-year, every 2nd day", d)
	}
	if now.Weekday() == time.Monday && isoWeekEven(now) {
		return true, "biweekly collection day (Monday, even ISO week)"
	}
	return false, "outside BIRR window, biweekly cadence runs Monday of even ISO weeks"
}

// shouldRunOAG: audit season (Nov-Jan) weekly on Wednesday; 30 or more
// days after a quarter end biweekly on Wednesday of even ISO weeks;
// otherwise monthly on the 15th.
func shouldRunOAG(now time.Time) (bool, string) {
	if m := now.Month(); m >= time.November || m == time.January {
		if now.Weekday() == time.Wednesday {
			return true, "audit season (Nov-Jan): weekly collection on Wednesday"
		}
		return false, "audit season (Nov-Jan), weekly cadence runs on Wednesday"
	}
	if d := common.DaysSinceQuarterEnd(now); d >= 30 {
		if now.Weekday() == time.Wednesday && isoWeekEven(now) {
			return true, fmt.Sprintf("post-quarter review window: %d days after quarter end, biweekly Wednesday", d)
		}
		return false, "post-quarter review window, biweekly cadence runs Wednesday of even ISO weeks"
	}
	if now.Day() == 15 {
		return true, "monthly collection day (15th)"
	}
	return false, "monthly cadence runs on the 15th"
}

// shouldRunKNBS: Economic Survey month (May) weekly on Tuesday;
// Statistical Abstract month (December) weekly on Thursday; 14-35 days
// after a quarter end biweekly on Tuesday of even ISO weeks (quarterly
// GDP and CPI releases); otherwise monthly on the 1st.
func shouldRunKNBS(now time.Time) (bool, string) {
	if now.Month() == time.May {
		if now.Weekday() == time.Tuesday {
			return true, "Economic Survey season (May): weekly collection on Tuesday"
		}
		return false, "Economic Survey season (May), weekly cadence runs on Tuesday"
	}
	if now.Month() == time.December {
		if now.Weekday() == time.Thursday {
			return true, "Statistical Abstract season (December): weekly collection on Thursday"
		}
		return false, "Statistical Abstract season (December), weekly cadence runs on Thursday"
	}
	if d := common.DaysSinceQuarterEnd(now); d >= 14 && d <= 35 {
		if now.Weekday() == time.Tuesday && isoWeekEven(now) {
			return true, fmt.Sprintf("quarterly release window: %d days after quarter end, biweekly Tuesday", d)
		}
		return false, "quarterly release window, biweekly cadence runs Tuesday of even ISO weeks"
	}
	if now.Day() == 1 {
		return true, "monthly collection day (1st)"
	}
	return false, "monthly cadence runs on the 1st"
}

// shouldRunOpenData: weekly on Friday.
func shouldRunOpenData(now time.Time) (bool, string) {
	if now.Weekday() == time.Friday {
		return true, "weekly collection day (Friday)"
	}
	return false, "weekly cadence runs on Friday"
}

// shouldRunCRA: allocation season (February) weekly on Monday; otherwise
// monthly on the 1st.
func shouldRunCRA(now time.Time) (bool, string) {
	if now.Month() == time.February {
		if now.Weekday() == time.Monday {
			return true, "allocation season (February): weekly collection on Monday"
		}
		return false, "allocation season (February), weekly cadence runs on Monday"
	}
	if now.Day() == 1 {
		return true, "monthly collection day (1st)"
	}
	return false, "monthly cadence runs on the 1st"
}

// isoWeekEven reports whether now falls in an even ISO week number.
func isoWeekEven(now time.Time) bool {
	_, week := now.ISOWeek()
	return week%2 == 0
}

// CurrentPeriodLabel describes where now sits in the fiscal calendar,
// e.g. "FY2024/25 Q4 (budget season)".
func CurrentPeriodLabel(now time.Time) string {
	fyStart := common.FiscalYearStart(now)
	label := common.FiscalYearLabel(fyStart)
	// Fiscal quarters: Q1 Jul-Sep, Q2 Oct-Dec, Q3 Jan-Mar, Q4 Apr-Jun.
	fq := (int(now.Month())+5)%12/3 + 1
	out := fmt.Sprintf("%s Q%d", label, fq)

	var seasons []string
	if m := now.Month(); m >= time.May && m <= time.July {
		seasons = append(seasons, "budget season")
	}
	if m := now.Month(); m >= time.November || m == time.January {
		seasons = append(seasons, "audit season")
	}
	if now.Month() == time.February {
		seasons = append(seasons, "allocation season")
	}
	if d := common.DaysSinceQuarterEnd(now); d >= 0 && d <= 59 {
		seasons = append(seasons, fmt.Sprintf("%d days after quarter end", d))
	}
	if len(seasons) > 0 {
		out += " (" + strings.Join(seasons, ", ") + ")"
	}
	return out
}

// shouldRun dispatches to the per-source rule. Unknown sources never run.
func shouldRun(sourceKey string, now time.Time) (bool, string) {
	switch sourceKey {
	case models.SourceTreasury:
		return shouldRunTreasury(now)
	case models.SourceCOB:
		return shouldRunCOB(now)
	case models.SourceOAG:
		return shouldRunOAG(now)
	case models.SourceKNBS:
		return shouldRunKNBS(now)
	case models.SourceOpenData:
		return shouldRunOpenData(now)
	case models.SourceCRA:
		return shouldRunCRA(now)
	default:
		return false, fmt.Sprintf("unknown source %q has no calendar", sourceKey)
	}
}
