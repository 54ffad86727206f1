package google

import (
	"fmt"
	"strings"

	"finagent/internal/core"
)

// header is the first row of the mirror sheet. Column A holds the expense id.
var header = []any{"ID", "Date", "Merchant", "Category", "Amount", "Description"}

func rowValues(e core.Expense) []any {
	e = e.WithDefaults()
	return []any{e.ID, e.Date, e.Merchant, e.Category, e.Amount.Float(), e.Description}
}

// findRow returns the zero-based index of the row whose first cell is id,
// or -1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}
