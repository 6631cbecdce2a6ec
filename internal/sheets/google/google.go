package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads income and expense rows from two sheets of one spreadsheet.
// Each sheet holds a label in column A and an amount in column B, with a
// header in row 1.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	incomeSheet   string
	expenseSheet  string
}

var _ ports.EntrySource = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to read it.
type Config struct {
	SpreadsheetID   string
	IncomeSheet     string
	ExpenseSheet    string
	CredentialsFile string
	CredentialsJSON string
}

// New creates a read-only Sheets client from service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets", "spreadsheet_id", cfg.SpreadsheetID)

	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	income, expense := cfg.IncomeSheet, cfg.ExpenseSheet
	if income == "" {
		income = "Income"
	}
	if expense == "" {
		expense = "Expenses"
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, incomeSheet: income, expenseSheet: expense}
}

// ReadEntries fetches both sheets in one batch request.
func (c *Client) ReadEntries(ctx context.Context) ([]core.RawEntry, []core.RawEntry, error) {
	if c.svc == nil {
		return nil, nil, errors.New("sheets service not initialized")
	}

	ranges := []string{c.incomeSheet + "!A2:B", c.expenseSheet + "!A2:B"}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, nil, fmt.Errorf("read ranges %v: %w", ranges, err)
	}
	if len(resp.ValueRanges) != len(ranges) {
		return nil, nil, fmt.Errorf("read ranges %v: got %d value ranges", ranges, len(resp.ValueRanges))
	}

	income := parseEntries(resp.ValueRanges[0].Values)
	expense := parseEntries(resp.ValueRanges[1].Values)
	slog.InfoContext(ctx, "Entries read from sheets",
		"component", "sheets",
		"income_entries", len(income),
		"expense_entries", len(expense))
	return income, expense, nil
}
