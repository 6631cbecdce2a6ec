// Package sheets defines where budget entries can be imported from.
package sheets

import (
	"context"

	"bilancio/internal/core"
)

// EntrySource yields the two entry lists of a budget from an external
// system.
type EntrySource interface {
	ReadEntries(ctx context.Context) (income, expense []core.RawEntry, err error)
}
