package core

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
		err  error
	}{
		{"", PeriodMonthly, nil},
		{"Weekly", PeriodWeekly, nil},
		{" yearly ", PeriodYearly, nil},
		{"daily", "", ErrInvalidPeriod},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Fatalf("ParsePeriod(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestCurrentWindow(t *testing.T) {
	cases := []struct {
		period     Period
		now        time.Time
		start, end string
	}{
		{PeriodMonthly, time.Date(2025, 11, 12, 15, 4, 0, 0, time.UTC), "2025-11-01", "2025-11-30"},
		{PeriodMonthly, day("2024-02-10"), "2024-02-01", "2024-02-29"},
		{PeriodWeekly, day("2025-11-12"), "2025-11-10", "2025-11-16"}, // Wednesday
		{PeriodWeekly, day("2025-11-16"), "2025-11-10", "2025-11-16"}, // Sunday
		{PeriodWeekly, day("2025-11-10"), "2025-11-10", "2025-11-16"}, // Monday
		{PeriodYearly, day("2025-06-30"), "2025-01-01", "2025-12-31"},
		{Period("bogus"), day("2025-06-30"), "2025-06-01", "2025-06-30"},
	}
	for _, tc := range cases {
		w := tc.period.CurrentWindow(tc.now)
		if FormatDate(w.Start) != tc.start || FormatDate(w.End) != tc.end {
			t.Fatalf("%s %s: got %s", tc.period, FormatDate(tc.now), w)
		}
	}
}

func TestSpentInWindow(t *testing.T) {
	expenses := []Expense{
		{Amount: Dollars(10, 0), Category: "Dining", Date: "2025-11-01"},
		{Amount: Dollars(5, 50), Category: "dining", Date: "2025-11-30"},
		{Amount: Dollars(7, 0), Category: "Dining", Date: "2025-10-31"},
		{Amount: Dollars(3, 0), Category: "Groceries", Date: "2025-11-02"},
		{Amount: Dollars(1, 0), Category: "Dining", Date: "not a date"},
	}
	w := PeriodMonthly.CurrentWindow(day("2025-11-15"))
	if got := SpentInWindow(expenses, "DINING", w); got != Dollars(15, 50) {
		t.Fatalf("spent = %s", got)
	}
}
