package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"bilancio/internal/core"
)

var (
	labelColor   = color.New(color.FgHiBlack)
	incomeColor  = color.New(color.FgGreen)
	expenseColor = color.New(color.FgYellow)
	debtColor    = color.New(color.FgRed, color.Bold)
	savingsColor = color.New(color.FgCyan, color.Bold)
)

// PrintSummary writes the budget totals: income, expenses and whichever of
// debt or savings balances them.
func PrintSummary(w io.Writer, income, expense []core.RawEntry) core.Totals {
	t := core.Budget{Income: income, Expense: expense}.Totals()

	row := func(c *color.Color, label string, v float64) {
		fmt.Fprintf(w, "  %s %s\n", labelColor.Sprintf("%-9s", label), c.Sprint(core.FormatAmount(v)))
	}
	row(incomeColor, "Income", t.Income)
	row(expenseColor, "Expenses", t.Expense)
	if t.Debt > 0 {
		row(debtColor, "Debt", t.Debt)
	} else {
		row(savingsColor, "Savings", t.Savings)
	}
	return t
}
