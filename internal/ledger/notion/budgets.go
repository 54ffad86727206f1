package notion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"finagent/internal/core"
)

var errNoBudgetsDB = errors.New("notion: NOTION_BUDGETS_DB_ID is not configured")

func (c *Client) budgetsEnabled() error {
	if c.budgetsDB == "" {
		return errNoBudgetsDB
	}
	return nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	if err := c.budgetsEnabled(); err != nil {
		return nil, err
	}
	pages, err := c.queryAll(ctx, c.budgetsDB, "list budgets")
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(pages))
	for i := range pages {
		out = append(out, parseBudget(&pages[i]))
	}
	return out, nil
}

func (c *Client) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	if err := c.budgetsEnabled(); err != nil {
		return core.Budget{}, err
	}
	page, err := c.getLivePage(ctx, id, "get budget "+id)
	if err != nil {
		return core.Budget{}, err
	}
	return parseBudget(page), nil
}

func (c *Client) CreateBudget(ctx context.Context, in core.BudgetCreate) (core.Budget, error) {
	if err := c.budgetsEnabled(); err != nil {
		return core.Budget{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	db, err := c.api.GetDatabase(ctx, c.budgetsDB)
	if err != nil {
		return core.Budget{}, wrapErr("read budgets schema", err)
	}
	period := in.Period
	if period == "" {
		period = core.PeriodMonthly
	}
	start := in.StartDate
	if start == "" {
		start = core.FormatDate(time.Now())
	}
	values := map[string]notionapi.Property{
		"category": selectValue(in.Category),
		"amount":   numberValue(in.Amount),
		"period":   selectValue(string(period)),
		"start":    dateValue(start),
		"spent":    numberValue(core.Money{}),
	}
	page, err := c.api.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.budgetsDB,
		},
		Properties: buildCreateProperties(db.Properties, in.Category+" budget", values, budgetFields),
	})
	if err != nil {
		return core.Budget{}, wrapErr("create budget", err)
	}
	return parseBudget(page), nil
}

func (c *Client) UpdateBudget(ctx context.Context, id string, in core.BudgetUpdate) (core.Budget, error) {
	if err := c.budgetsEnabled(); err != nil {
		return core.Budget{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	props := notionapi.Properties{}
	if in.Category != nil {
		props["Category"] = selectValue(*in.Category)
	}
	if in.Amount != nil {
		props["Amount"] = numberValue(*in.Amount)
	}
	if in.Period != nil {
		props["Period"] = selectValue(string(*in.Period))
	}
	if in.StartDate != nil {
		props["Start Date"] = dateValue(*in.StartDate)
	}
	if in.Spent != nil {
		props["Spent"] = numberValue(*in.Spent)
	}
	page, err := c.api.UpdatePage(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return core.Budget{}, wrapErr("update budget "+id, err)
	}
	return parseBudget(page), nil
}

func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	if err := c.budgetsEnabled(); err != nil {
		return err
	}
	return c.archive(ctx, id, "delete budget "+id)
}

func parseBudget(page *notionapi.Page) core.Budget {
	v := pageValues(page, budgetFields)
	return core.Budget{
		ID:          string(page.ID),
		Category:    str(v, "category"),
		Amount:      core.FromFloat(num(v, "amount")),
		Period:      core.Period(strings.ToLower(str(v, "period"))),
		StartDate:   str(v, "start"),
		Spent:       core.FromFloat(num(v, "spent")),
		CreatedTime: createdTime(page),
	}.Derive()
}
