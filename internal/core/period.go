package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is the recurrence of a budget.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodWeekly  Period = "weekly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod normalizes s; blank input yields PeriodMonthly.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PeriodMonthly, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (p Period) Valid() bool {
	_, ok := windowers[p]
	return ok
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether a YYYY-MM-DD date falls inside the window.
// Unparseable dates are never contained.
func (w Window) Contains(date string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return FormatDate(w.Start) + ".." + FormatDate(w.End)
}

// windower computes the window of a period that contains a reference day.
type windower interface {
	Window(day time.Time) Window
}

type monthlyWindow struct{}

func (monthlyWindow) Window(day time.Time) Window {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}
}

// weeklyWindow runs Monday through Sunday.
type weeklyWindow struct{}

func (weeklyWindow) Window(day time.Time) Window {
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

type yearlyWindow struct{}

func (yearlyWindow) Window(day time.Time) Window {
	return Window{
		Start: time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

var windowers = map[Period]windower{
	PeriodMonthly: monthlyWindow{},
	PeriodWeekly:  weeklyWindow{},
	PeriodYearly:  yearlyWindow{},
}

// CurrentWindow returns the window of p containing now. Unknown periods
// fall back to monthly.
func (p Period) CurrentWindow(now time.Time) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	w, ok := windowers[p]
	if !ok {
		w = monthlyWindow{}
	}
	return w.Window(day)
}

// SpentInWindow sums expenses whose category matches case-insensitively and
// whose date lies in w.
func SpentInWindow(expenses []Expense, category string, w Window) Money {
	var total Money
	for _, e := range expenses {
		if !strings.EqualFold(strings.TrimSpace(e.Category), strings.TrimSpace(category)) {
			continue
		}
		if w.Contains(e.Date) {
			total = total.Add(e.Amount)
		}
	}
	return total
}
