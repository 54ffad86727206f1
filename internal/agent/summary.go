package agent

import (
	"fmt"
	"sort"
	"strings"

	"finagent/internal/core"
)

// confirmationMessage lists up to three candidates when a delete request
// matched more than one transaction.
func confirmationMessage(del DeleteResult) string {
	if len(del.Matches) <= 1 {
		return del.Message
	}
	var b strings.Builder
	b.WriteString(del.Message)
	b.WriteString("\n\nMatching transactions:")
	for i, m := range del.Matches {
		if i == maxCandidates {
			break
		}
		fmt.Fprintf(&b, "\n%d. $%s at %s on %s", i+1, m.Amount, orDefault(m.Merchant, core.DefaultMerchant), orDefault(m.Date, "Unknown date"))
	}
	b.WriteString("\n\nPlease be more specific about which transaction you want to delete.")
	return b.String()
}

func periodNoun(p core.Period) string {
	switch p {
	case core.PeriodWeekly:
		return "week"
	case core.PeriodYearly:
		return "year"
	default:
		return "month"
	}
}

func budgetSummary(budgets []core.Budget) string {
	if len(budgets) == 0 {
		return "You don't have any budgets yet. Try: 'Set my dining budget to $400 this month'"
	}
	var b strings.Builder
	b.WriteString("Here are your budgets:")
	for _, bud := range budgets {
		bud = bud.Derive()
		fmt.Fprintf(&b, "\n- %s: $%s of $%s spent this %s ($%s remaining)",
			bud.Category, bud.Spent, bud.Amount, periodNoun(bud.Period), bud.Remaining)
	}
	return b.String()
}

// mostRecent returns up to n expenses ordered by date, newest first.
func mostRecent(expenses []core.Expense, n int) []core.Expense {
	sorted := append([]core.Expense(nil), expenses...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func expenseSummary(recent []core.Expense, count int, total core.Money) string {
	if count == 0 {
		return "You haven't recorded any expenses yet."
	}
	var b strings.Builder
	b.WriteString("Here are your most recent expenses:")
	for _, e := range recent {
		e = e.WithDefaults()
		fmt.Fprintf(&b, "\n- %s: $%s at %s (%s)", orDefault(e.Date, "Unknown date"), e.Amount, e.Merchant, e.Category)
	}
	fmt.Fprintf(&b, "\n\nTotal across %d expenses: $%s", count, total)
	return b.String()
}
