package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"finagent/internal/core"
	"finagent/internal/log"
)

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	pages, err := c.queryAll(ctx, c.expensesDB, "list expenses")
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(pages))
	for i := range pages {
		out = append(out, parseExpense(&pages[i]))
	}
	return out, nil
}

func (c *Client) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	page, err := c.getLivePage(ctx, id, "get expense "+id)
	if err != nil {
		return core.Expense{}, err
	}
	return parseExpense(page), nil
}

// CreateExpense reads the database schema first so that properties are
// written under whatever names the user's database uses.
func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseCreate) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	db, err := c.api.GetDatabase(ctx, c.expensesDB)
	if err != nil {
		return core.Expense{}, wrapErr("read expenses schema", err)
	}
	values := map[string]notionapi.Property{
		"amount":      numberValue(in.Amount),
		"category":    selectValue(in.Category),
		"merchant":    richTextValue(in.Merchant),
		"date":        dateValue(in.Date),
		"description": richTextValue(in.Description),
	}
	title := fmt.Sprintf("%s - $%s", in.Merchant, in.Amount)
	page, err := c.api.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.expensesDB,
		},
		Properties: buildCreateProperties(db.Properties, title, values, expenseFields),
	})
	if err != nil {
		return core.Expense{}, wrapErr("create expense", err)
	}
	c.logger.InfoContext(ctx, "Expense page created", "page_id", string(page.ID), log.FieldMerchant, in.Merchant)
	return parseExpense(page), nil
}

// UpdateExpense writes the provided fields under the conventional property names.
func (c *Client) UpdateExpense(ctx context.Context, id string, in core.ExpenseUpdate) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	props := notionapi.Properties{}
	if in.Amount != nil {
		props["Amount"] = numberValue(*in.Amount)
	}
	if in.Category != nil {
		props["Category"] = selectValue(*in.Category)
	}
	if in.Merchant != nil {
		props["Merchant"] = richTextValue(*in.Merchant)
	}
	if in.Date != nil {
		props["Date"] = dateValue(*in.Date)
	}
	if in.Description != nil {
		props["Description"] = richTextValue(*in.Description)
	}
	page, err := c.api.UpdatePage(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return core.Expense{}, wrapErr("update expense "+id, err)
	}
	return parseExpense(page), nil
}

// DeleteExpense archives the page.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.archive(ctx, id, "delete expense "+id)
}

func parseExpense(page *notionapi.Page) core.Expense {
	v := pageValues(page, expenseFields)
	return core.Expense{
		ID:          string(page.ID),
		Amount:      core.FromFloat(num(v, "amount")),
		Category:    str(v, "category"),
		Merchant:    str(v, "merchant"),
		Date:        str(v, "date"),
		Description: str(v, "description"),
		CreatedTime: createdTime(page),
	}
}
