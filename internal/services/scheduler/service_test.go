package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func allSources() []string {
	return []string{
		models.SourceTreasury, models.SourceCOB, models.SourceOAG,
		models.SourceKNBS, models.SourceOpenData, models.SourceCRA,
	}
}

func TestShouldRunTreasury(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		want       bool
		wantReason string
	}{
		{"budget season start", date(2025, time.May, 1), true, "budget"},
		{"budget season midweek", date(2025, time.June, 15), true, "budget"},
		{"budget season last day", date(2025, time.July, 31), true, "budget"},
		{"after quarter end", date(2025, time.October, 3), true, "quarter end"},
		{"quarter end day itself", date(2025, time.September, 30), true, "quarter end"},
		{"plain Monday", date(2025, time.September, 15), true, "Monday"},
		{"plain Tuesday", date(2025, time.September, 16), false, ""},
		{"plain Sunday", date(2025, time.October, 19), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := shouldRunTreasury(tt.now)
			if got != tt.want {
				t.Errorf("shouldRunTreasury(%s) = %v, want %v (reason %q)", tt.now.Format("2006-01-02"), got, tt.want, reason)
			}
			if tt.want && !strings.Contains(strings.ToLower(reason), strings.ToLower(tt.wantReason)) {
				t.Errorf("reason %q does not mention %q", reason, tt.wantReason)
			}
		})
	}
}

func TestShouldRunTreasuryEveryDayOfBudgetSeason(t *testing.T) {
	day := date(2025, time.May, 1)
	for day.Month() <= time.July && day.Year() == 2025 {
		due, reason := shouldRunTreasury(day)
		if !due {
			t.Errorf("treasury not due on %s: %s", day.Format("2006-01-02"), reason)
		}
		if !strings.Contains(strings.ToLower(reason), "budget") {
			t.Errorf("reason on %s missing budget mention: %q", day.Format("2006-01-02"), reason)
		}
		day = day.AddDate(0, 0, 1)
	}
}

func TestShouldRunCOBWindow(t *testing.T) {
	// The BIRR window opens 45 days after quarter end. From 2025-03-31
	// that is 2025-05-15 through 2025-06-08 at day 59; within it, runs
	// happen on even days-of-year only.
	for d := 45; d <= 59; d++ {
		day := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		due, reason := shouldRunCOB(day)
		wantDue := day.YearDay()%2 == 0
		if due != wantDue {
			t.Errorf("cob on %s (day-of-year %d) = %v, want %v: %s",
				day.Format("2006-01-02"), day.YearDay(), due, wantDue, reason)
		}
	}
}

func TestShouldRunCOBBiweekly(t *testing.T) {
	// 2025-09-01 is a Monday in ISO week 36 (even) and well past the
	// BIRR window; 2025-09-08 is the Monday of odd week 37.
	if due, reason := shouldRunCOB(date(2025, time.September, 1)); !due {
		t.Errorf("cob biweekly Monday not due: %s", reason)
	}
	if due, _ := shouldRunCOB(date(2025, time.September, 8)); due {
		t.Error("cob due on odd-week Monday")
	}
	if due, _ := shouldRunCOB(date(2025, time.September, 2)); due {
		t.Error("cob due on a Tuesday outside the BIRR window")
	}
}

func TestShouldRunOAG(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"audit season Wednesday", date(2025, time.November, 5), true},
		{"audit season Thursday", date(2025, time.November, 6), false},
		{"audit season January Wednesday", date(2025, time.January, 8), true},
		// 76 days after 2025-03-31: biweekly window, but a Sunday.
		{"post-quarter Sunday", date(2025, time.June, 15), false},
		// 2025-04-15: 15 days post quarter, monthly rule day.
		{"monthly 15th", date(2025, time.April, 15), true},
		{"monthly 14th", date(2025, time.April, 14), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := shouldRunOAG(tt.now)
			if got != tt.want {
				t.Errorf("shouldRunOAG(%s) = %v, want %v (reason %q)", tt.now.Format("2006-01-02"), got, tt.want, reason)
			}
		})
	}
}

func TestShouldRunKNBS(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"Economic Survey Tuesday", date(2025, time.May, 6), true},
		{"Economic Survey Wednesday", date(2025, time.May, 7), false},
		{"Statistical Abstract Thursday", date(2025, time.December, 4), true},
		{"Statistical Abstract Friday", date(2025, time.December, 5), false},
		// 22 days post quarter end, Tuesday of even ISO week 30.
		{"quarterly window even-week Tuesday", date(2025, time.July, 22), true},
		// 15 days post quarter end, Tuesday of odd ISO week 29.
		{"quarterly window odd-week Tuesday", date(2025, time.July, 15), false},
		{"monthly 1st", date(2025, time.September, 1), true},
		{"monthly 2nd", date(2025, time.September, 2), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := shouldRunKNBS(tt.now)
			if got != tt.want {
				t.Errorf("shouldRunKNBS(%s) = %v, want %v (reason %q)", tt.now.Format("2006-01-02"), got, tt.want, reason)
			}
		})
	}
}

func TestShouldRunOpenDataAndCRA(t *testing.T) {
	if due, _ := shouldRunOpenData(date(2025, time.June, 20)); !due {
		t.Error("opendata not due on Friday")
	}
	if due, _ := shouldRunOpenData(date(2025, time.June, 19)); due {
		t.Error("opendata due on Thursday")
	}

	if due, _ := shouldRunCRA(date(2025, time.February, 3)); !due {
		t.Error("cra not due on allocation-season Monday")
	}
	// February 1st 2025 is a Saturday: the allocation season cadence
	// governs the whole month, so the monthly-1st rule does not fire.
	if due, _ := shouldRunCRA(date(2025, time.February, 1)); due {
		t.Error("cra due on allocation-season Saturday")
	}
	if due, _ := shouldRunCRA(date(2025, time.March, 1)); !due {
		t.Error("cra not due on monthly 1st")
	}
}

func TestScheduleReportJune15(t *testing.T) {
	// 2025-06-15 is a Sunday in budget season: treasury due, oag not
	// (biweekly window but not Wednesday), everything else idle.
	now := date(2025, time.June, 15)
	svc := NewService(allSources(), common.GetLogger())
	report := svc.GenerateScheduleReport(now)

	if len(report) != 6 {
		t.Fatalf("report has %d sources, want 6", len(report))
	}

	byKey := map[string]bool{}
	for _, decision := range report {
		byKey[decision.Source] = decision.ShouldRunNow
		if decision.CurrentPeriod == "" {
			t.Errorf("%s: empty current period", decision.Source)
		}
		if !decision.ShouldRunNow && decision.NextRun.IsZero() {
			t.Errorf("%s: idle but no next run", decision.Source)
		}
	}

	if !byKey[models.SourceTreasury] {
		t.Error("treasury should run in budget season")
	}
	for _, key := range []string{models.SourceCOB, models.SourceOAG, models.SourceKNBS, models.SourceOpenData, models.SourceCRA} {
		if byKey[key] {
			t.Errorf("%s should not run on 2025-06-15", key)
		}
	}

	for _, decision := range report {
		if decision.Source == models.SourceTreasury {
			if !strings.Contains(strings.ToLower(decision.Reason), "budget") {
				t.Errorf("treasury reason %q does not reference budget season", decision.Reason)
			}
		}
	}
}

func TestNextRun(t *testing.T) {
	svc := NewService(allSources(), common.GetLogger())

	// From Tuesday 2025-09-09 the next treasury run is Monday 09-15.
	next, reason := svc.NextRun(models.SourceTreasury, date(2025, time.September, 9))
	want := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun(treasury) = %s (%s), want %s", next.Format("2006-01-02"), reason, want.Format("2006-01-02"))
	}

	// Next run is always strictly after now.
	next, _ = svc.NextRun(models.SourceTreasury, date(2025, time.June, 15))
	if !next.After(common.DateOnly(date(2025, time.June, 15))) {
		t.Errorf("NextRun not after now: %s", next)
	}

	// Unknown sources never get a slot.
	next, _ = svc.NextRun("nonexistent", date(2025, time.June, 15))
	if !next.IsZero() {
		t.Errorf("NextRun(nonexistent) = %s, want zero", next)
	}
}

func TestCurrentPeriodLabel(t *testing.T) {
	label := CurrentPeriodLabel(date(2025, time.June, 15))
	if !strings.Contains(label, "FY2024/25") {
		t.Errorf("label %q missing fiscal year", label)
	}
	if !strings.Contains(label, "Q4") {
		t.Errorf("label %q missing fiscal quarter", label)
	}
	if !strings.Contains(label, "budget season") {
		t.Errorf("label %q missing budget season", label)
	}

	label = CurrentPeriodLabel(date(2025, time.November, 20))
	if !strings.Contains(label, "FY2025/26") || !strings.Contains(label, "Q2") {
		t.Errorf("November label wrong: %q", label)
	}
	if !strings.Contains(label, "audit season") {
		t.Errorf("November label %q missing audit season", label)
	}
}
