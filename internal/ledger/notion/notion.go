// Package notion stores expenses and budgets as pages in two Notion databases.
package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"finagent/internal/ledger"
	"finagent/internal/log"
)

// pageSize is the maximum Notion allows per query.
const pageSize = 100

// api is the subset of the Notion client the adapter needs.
type api interface {
	QueryDatabase(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	GetDatabase(ctx context.Context, id notionapi.DatabaseID) (*notionapi.Database, error)
	GetPage(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type clientAPI struct {
	c *notionapi.Client
}

func (a clientAPI) QueryDatabase(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return a.c.Database.Query(ctx, id, req)
}

func (a clientAPI) GetDatabase(ctx context.Context, id notionapi.DatabaseID) (*notionapi.Database, error) {
	return a.c.Database.Get(ctx, id)
}

func (a clientAPI) GetPage(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error) {
	return a.c.Page.Get(ctx, id)
}

func (a clientAPI) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return a.c.Page.Create(ctx, req)
}

func (a clientAPI) UpdatePage(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return a.c.Page.Update(ctx, id, req)
}

type Config struct {
	APIKey       string
	ExpensesDBID string
	BudgetsDBID  string
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "NOTION_API_KEY")
	}
	if strings.TrimSpace(c.ExpensesDBID) == "" {
		missing = append(missing, "NOTION_EXPENSES_DB_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("notion: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Client implements ledger.Ledger on top of the Notion API.
type Client struct {
	api        api
	expensesDB notionapi.DatabaseID
	budgetsDB  notionapi.DatabaseID
	logger     *log.Logger
}

var _ ledger.Ledger = (*Client)(nil)

// New builds a client for cfg. A nil logger discards output.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newWithAPI(clientAPI{c: notionapi.NewClient(notionapi.Token(cfg.APIKey))}, cfg, logger), nil
}

func newWithAPI(a api, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		api:        a,
		expensesDB: notionapi.DatabaseID(cfg.ExpensesDBID),
		budgetsDB:  notionapi.DatabaseID(cfg.BudgetsDBID),
		logger:     logger.WithComponent(log.ComponentLedger),
	}
}

// queryAll follows has_more/next_cursor until the database is exhausted.
func (c *Client) queryAll(ctx context.Context, db notionapi.DatabaseID, op string) ([]notionapi.Page, error) {
	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		resp, err := c.api.QueryDatabase(ctx, db, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, wrapErr(op, err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	c.logger.DebugContext(ctx, "Notion database queried", "database", string(db), "pages", len(pages))
	return pages, nil
}

// getLivePage fetches a page and treats archived pages as missing.
func (c *Client) getLivePage(ctx context.Context, id, op string) (*notionapi.Page, error) {
	page, err := c.api.GetPage(ctx, notionapi.PageID(id))
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if page.Archived {
		return nil, ledger.ErrNotFound
	}
	return page, nil
}

func (c *Client) archive(ctx context.Context, id, op string) error {
	_, err := c.api.UpdatePage(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	})
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// wrapErr maps Notion failures to ledger errors.
func wrapErr(op string, err error) error {
	var nerr *notionapi.Error
	if errors.As(err, &nerr) {
		if nerr.Status == 404 || string(nerr.Code) == "object_not_found" {
			return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
		}
		return &ledger.APIError{Op: op, Status: nerr.Status, Code: string(nerr.Code), Message: nerr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &ledger.APIError{Op: op, Message: err.Error()}
}
