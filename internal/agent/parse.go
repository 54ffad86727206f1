package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"finagent/internal/core"
	"finagent/internal/log"
)

// minConfidence is the lowest model confidence the agent acts on.
const minConfidence = 0.5

// ExpenseParse is an expense extracted from free text.
type ExpenseParse struct {
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Merchant    string     `json:"merchant"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"`
}

// ToCreate converts the parse into a ledger write.
func (p ExpenseParse) ToCreate() core.ExpenseCreate {
	return core.ExpenseCreate{
		Amount:      p.Amount,
		Category:    p.Category,
		Merchant:    p.Merchant,
		Date:        p.Date,
		Description: p.Description,
	}
}

// BudgetParse is a budget instruction extracted from free text.
type BudgetParse struct {
	Category   string      `json:"category"`
	Amount     core.Money  `json:"amount"`
	Period     core.Period `json:"period"`
	Confidence float64     `json:"confidence"`
}

// DeletionDetails narrows which transaction a delete request refers to.
type DeletionDetails struct {
	Amount   *core.Money `json:"amount,omitempty"`
	Merchant string      `json:"merchant,omitempty"`
	Date     string      `json:"date,omitempty"`
	Query    string      `json:"query,omitempty"`
}

// Criteria converts the details into a ledger search; fallback is used as
// the free-text query when the model gave none.
func (d DeletionDetails) Criteria(fallback string) core.SearchCriteria {
	q := d.Query
	if q == "" {
		q = fallback
	}
	return core.SearchCriteria{Query: q, Amount: d.Amount, Merchant: d.Merchant, Date: d.Date}
}

// ReceiptData is what the vision model read off a receipt.
type ReceiptData struct {
	Merchant    string     `json:"merchant"`
	Amount      core.Money `json:"amount"`
	Date        string     `json:"date"`
	Category    string     `json:"category"`
	Items       []any      `json:"items"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"`
}

// confidence decodes an optional confidence, defaulting to 1 like a
// well-formed reply that omitted it.
type confidence struct {
	Confidence *float64 `json:"confidence"`
}

func (c confidence) value() float64 {
	if c.Confidence == nil {
		return 1
	}
	return *c.Confidence
}

func confident(v float64) bool {
	return v >= minConfidence && v <= 1
}

// ParseExpense extracts an expense from text. It returns nil without error
// when the model is unsure or the result is unusable.
func (a *Agent) ParseExpense(ctx context.Context, text string) (*ExpenseParse, error) {
	var raw struct {
		Amount      core.Money `json:"amount"`
		Category    string     `json:"category"`
		Merchant    string     `json:"merchant"`
		Date        string     `json:"date"`
		Description string     `json:"description"`
		confidence
	}
	user := fmt.Sprintf("Today is %s. Parse this expense: %s", a.today(), text)
	if err := a.llm.CompleteJSON(ctx, expensePrompt, user, 0, &raw); err != nil {
		return nil, fmt.Errorf("parse expense: %w", err)
	}
	p := ExpenseParse{
		Amount:      raw.Amount,
		Category:    strings.TrimSpace(raw.Category),
		Merchant:    strings.TrimSpace(raw.Merchant),
		Date:        strings.TrimSpace(raw.Date),
		Description: raw.Description,
		Confidence:  raw.confidence.value(),
	}
	if p.Date == "" {
		p.Date = a.today()
	} else if _, err := core.ParseDate(p.Date); err != nil {
		a.logger.WarnContext(ctx, "Model returned unusable date, using today", "date", p.Date)
		p.Date = a.today()
	}

	if !confident(p.Confidence) {
		a.logger.InfoContext(ctx, "Expense parse below confidence threshold", log.FieldConfidence, p.Confidence)
		return nil, nil
	}
	if err := p.ToCreate().Validate(); err != nil {
		a.logger.InfoContext(ctx, "Expense parse failed validation", log.FieldError, err)
		return nil, nil
	}
	return &p, nil
}

// ParseBudget extracts a budget instruction from text, or nil when unsure.
func (a *Agent) ParseBudget(ctx context.Context, text string) (*BudgetParse, error) {
	var raw struct {
		Category string     `json:"category"`
		Amount   core.Money `json:"amount"`
		Period   string     `json:"period"`
		confidence
	}
	if err := a.llm.CompleteJSON(ctx, budgetPrompt, "Parse this budget request: "+text, 0, &raw); err != nil {
		return nil, fmt.Errorf("parse budget: %w", err)
	}
	p := BudgetParse{
		Category:   strings.TrimSpace(raw.Category),
		Amount:     raw.Amount,
		Confidence: raw.confidence.value(),
	}
	if !confident(p.Confidence) {
		return nil, nil
	}
	period, err := core.ParsePeriod(raw.Period)
	if err != nil {
		return nil, nil
	}
	p.Period = period
	if (core.BudgetCreate{Category: p.Category, Amount: p.Amount, Period: p.Period}).Validate() != nil {
		return nil, nil
	}
	return &p, nil
}

var amountPattern = regexp.MustCompile(`\$?(\d+\.?\d*)`)

// ExtractDeletionDetails asks the model which transaction a delete request
// means. On any model failure it falls back to the raw text as query plus
// the first number in it as amount.
func (a *Agent) ExtractDeletionDetails(ctx context.Context, text string) DeletionDetails {
	var d DeletionDetails
	err := a.llm.CompleteJSON(ctx, deletionPrompt, "Extract details from: "+text, deletionMaxTokens, &d)
	if err == nil {
		return d
	}
	a.logger.WarnContext(ctx, "Deletion detail extraction failed, using fallback", log.FieldError, err)

	d = DeletionDetails{Query: text}
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if amt, err := core.ParseAmount(m[1]); err == nil {
			d.Amount = &amt
		}
	}
	return d
}

// ExtractReceipt reads an expense off a receipt image. It returns nil when
// the model fails or is unsure.
func (a *Agent) ExtractReceipt(ctx context.Context, image []byte, contentType string) *ReceiptData {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
	text := fmt.Sprintf("Today is %s. Extract expense details from this receipt image:", a.today())

	var raw struct {
		ReceiptData
		Confidence *float64 `json:"confidence"`
	}
	if err := a.llm.CompleteImageJSON(ctx, receiptPrompt, text, dataURL, receiptMaxTokens, &raw); err != nil {
		a.logger.ErrorContext(ctx, "Receipt extraction failed", log.FieldError, err)
		return nil
	}
	// A receipt reply without a confidence is not trusted.
	if raw.Confidence == nil || !confident(*raw.Confidence) {
		return nil
	}
	r := raw.ReceiptData
	r.Confidence = *raw.Confidence
	return &r
}

// GeneralResponse produces a short conversational reply.
func (a *Agent) GeneralResponse(ctx context.Context, message string) string {
	text, err := a.llm.Complete(ctx, generalPrompt, message, generalMaxTokens)
	if err != nil {
		a.logger.WarnContext(ctx, "General response failed", log.FieldError, err)
		return generalFallback
	}
	return text
}
