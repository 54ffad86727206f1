package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReportMonthly  = "monthly"
	ReportCategory = "category"
	ReportTrends   = "trends"
)

const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// trendDays is how many distinct dates a trends report keeps.
const trendDays = 7

var ErrInvalidReportType = errors.New("report_type must be monthly, category or trends")

type ReportRequest struct {
	ReportType string `json:"report_type"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

// Normalize applies the default report type.
func (r ReportRequest) Normalize() ReportRequest {
	r.ReportType = strings.TrimSpace(r.ReportType)
	if r.ReportType == "" {
		r.ReportType = ReportMonthly
	}
	return r
}

func (r ReportRequest) Validate() error {
	switch r.Normalize().ReportType {
	case ReportMonthly, ReportCategory, ReportTrends:
	default:
		return ErrInvalidReportType
	}
	for _, d := range []string{r.StartDate, r.EndDate} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}

type CategoryTotal struct {
	Category   string  `json:"category"`
	Total      Money   `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TrendPoint struct {
	Date   string `json:"date"`
	Amount Money  `json:"amount"`
}

// Report is a spending summary. Fields that only apply to one report type
// are omitted for the others.
type Report struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message,omitempty"`
	ReportType        string          `json:"report_type"`
	TotalSpent        Money           `json:"total_spent"`
	TransactionCount  int             `json:"transaction_count"`
	CategoryBreakdown []CategoryTotal `json:"category_breakdown"`
	TopCategory       *string         `json:"top_category"`
	StartDate         string          `json:"start_date,omitempty"`
	EndDate           string          `json:"end_date,omitempty"`
	PeriodDescription string          `json:"period_description,omitempty"`

	DailyAverage    *Money       `json:"daily_average,omitempty"`
	TotalCategories *int         `json:"total_categories,omitempty"`
	TrendData       []TrendPoint `json:"trend_data,omitempty"`
	TrendDirection  string       `json:"trend_direction,omitempty"`
}

// BuildReport summarizes expenses according to req. now anchors the default
// monthly window.
func BuildReport(expenses []Expense, req ReportRequest, now time.Time) Report {
	req = req.Normalize()
	start, end := req.StartDate, req.EndDate
	if req.ReportType == ReportMonthly && start == "" && end == "" {
		start = FormatDate(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
		end = FormatDate(now)
	}
	if start != "" || end != "" {
		expenses = filterByDate(expenses, start, end)
	}

	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	breakdown := breakdownByCategory(expenses, total)

	r := Report{
		Success:           true,
		ReportType:        req.ReportType,
		TotalSpent:        total,
		TransactionCount:  len(expenses),
		CategoryBreakdown: breakdown,
		StartDate:         start,
		EndDate:           end,
	}
	if len(breakdown) > 0 {
		top := breakdown[0].Category
		r.TopCategory = &top
	}

	switch req.ReportType {
	case ReportMonthly:
		avg := total.DivRound(periodDays(start, end))
		r.DailyAverage = &avg
		r.PeriodDescription = "This Month"
	case ReportCategory:
		byName := make([]CategoryTotal, len(breakdown))
		copy(byName, breakdown)
		sort.SliceStable(byName, func(i, j int) bool { return byName[i].Category < byName[j].Category })
		r.CategoryBreakdown = byName
		n := len(byName)
		r.TotalCategories = &n
		r.PeriodDescription = "All Time"
	case ReportTrends:
		r.TrendData = dailyTrend(expenses)
		r.TrendDirection = trendDirection(r.TrendData)
		r.PeriodDescription = "Last 7 Days"
	}
	return r
}

func filterByDate(expenses []Expense, start, end string) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if start != "" && e.Date < start {
			continue
		}
		if end != "" && e.Date > end {
			continue
		}
		out = append(out, e)
	}
	return out
}

// breakdownByCategory groups by category in first-seen order, then sorts by
// total descending.
func breakdownByCategory(expenses []Expense, total Money) []CategoryTotal {
	index := make(map[string]int)
	out := make([]CategoryTotal, 0)
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = "Other"
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryTotal{Category: cat})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	for i := range out {
		if total.Cents > 0 {
			out[i].Percentage = out[i].Total.Percent(total)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.Cents > out[j].Total.Cents })
	return out
}

// periodDays is the inclusive day count between start and end (end defaults
// to start). Without a start it is 30.
func periodDays(start, end string) int64 {
	if start == "" {
		return 30
	}
	if end == "" {
		end = start
	}
	s, err := ParseDate(start)
	if err != nil {
		return 30
	}
	e, err := ParseDate(end)
	if err != nil {
		return 30
	}
	days := int64(e.Sub(s).Hours()/24) + 1
	if days <= 0 {
		return 0
	}
	return days
}

func dailyTrend(expenses []Expense) []TrendPoint {
	byDate := make(map[string]Money)
	for _, e := range expenses {
		if e.Date == "" {
			continue
		}
		byDate[e.Date] = byDate[e.Date].Add(e.Amount)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > trendDays {
		dates = dates[len(dates)-trendDays:]
	}
	points := make([]TrendPoint, 0, len(dates))
	for _, d := range dates {
		points = append(points, TrendPoint{Date: d, Amount: byDate[d]})
	}
	return points
}

func trendDirection(points []TrendPoint) string {
	if len(points) < 2 {
		return TrendInsufficientData
	}
	var recent, older decimal.Decimal
	if len(points) >= 3 {
		recent = meanCents(points[len(points)-3:])
		older = meanCents(points[:3])
	} else {
		recent = decimal.NewFromInt(points[len(points)-1].Amount.Cents)
		older = decimal.NewFromInt(points[0].Amount.Cents)
	}
	switch {
	case recent.GreaterThan(older.Mul(decimal.NewFromFloat(1.1))):
		return TrendIncreasing
	case recent.LessThan(older.Mul(decimal.NewFromFloat(0.9))):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func meanCents(points []TrendPoint) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range points {
		sum = sum.Add(decimal.NewFromInt(p.Amount.Cents))
	}
	return sum.Div(decimal.NewFromInt(int64(len(points))))
}
