package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Side tells which column of the budget an entry belongs to.
type Side string

const (
	SideIncome  Side = "income"
	SideExpense Side = "expense"
)

type (
	// RawEntry is a row as typed by the user: the amount is still text.
	RawEntry struct {
		ID    string `json:"id" yaml:"id" toml:"id"`
		Label string `json:"label" yaml:"label" toml:"label"`
		Value string `json:"value" yaml:"value" toml:"value"`
	}

	// Entry is a parsed income or expense line.
	Entry struct {
		ID     string
		Label  string
		Amount float64
	}

	// Budget groups the two entry lists a diagram is drawn from.
	Budget struct {
		ID        string
		Name      string
		Income    []RawEntry
		Expense   []RawEntry
		Version   int64
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Totals summarises a budget the way the diagram balances it.
	Totals struct {
		Income  float64
		Expense float64
		Debt    float64
		Savings float64
	}
)

var (
	ErrEmptyName    = errors.New("empty budget name")
	ErrNameTooLong  = errors.New("budget name too long (max 100 characters)")
	ErrTooManyItems = errors.New("too many entries (max 200 per side)")
)

// MaxEntriesPerSide bounds how many rows a single budget side may hold.
const MaxEntriesPerSide = 200

// Parse converts the raw row into an Entry. Unparsable amounts become 0.
func (r RawEntry) Parse() Entry {
	return Entry{
		ID:     r.ID,
		Label:  strings.TrimSpace(r.Label),
		Amount: ParseAmount(r.Value),
	}
}

// ParseAll parses every row, keeping input order.
func ParseAll(rows []RawEntry) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Parse())
	}
	return out
}

// Validate checks the fields the storage layer cares about. Amounts are not
// checked: bad amounts are kept and not drawn.
func (b Budget) Validate() error {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > 100 {
		return ErrNameTooLong
	}
	if len(b.Income) > MaxEntriesPerSide || len(b.Expense) > MaxEntriesPerSide {
		return ErrTooManyItems
	}
	return nil
}

// Totals sums the positive amounts on each side and derives the balancing
// debt or savings figure.
func (b Budget) Totals() Totals {
	var t Totals
	for _, e := range b.Income {
		t.Income += e.Parse().Amount
	}
	for _, e := range b.Expense {
		t.Expense += e.Parse().Amount
	}
	if t.Expense > t.Income {
		t.Debt = t.Expense - t.Income
	} else {
		t.Savings = t.Income - t.Expense
	}
	return t
}
