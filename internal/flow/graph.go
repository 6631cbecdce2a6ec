// Package flow turns income and expense entries into a flow diagram and keeps
// that diagram interactive.
//
// The pipeline is BuildGraph -> NewLayout -> Route. A Diagram owns one
// graph/layout pair and mutates only node positions and column order while
// the user drags nodes around; Scene returns an immutable snapshot for a
// renderer to draw.
package flow

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

// Kind classifies a node.
type Kind int

const (
	KindIncome Kind = iota
	KindDebt
	KindPool
	KindExpense
	KindSavings
)

var kindNames = [...]string{"income", "debt", "pool", "expense", "savings"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText makes kinds readable in JSON scenes.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Rank is the column a kind is drawn in.
func (k Kind) Rank() Rank {
	switch k {
	case KindIncome, KindDebt:
		return RankSource
	case KindPool:
		return RankPool
	default:
		return RankSink
	}
}

const (
	PoolID    = "pool"
	DebtID    = "debt"
	SavingsID = "savings"

	PoolName    = "Total Budget"
	DebtName    = "Debt"
	SavingsName = "Savings"

	defaultIncomeLabel  = "Income"
	defaultExpenseLabel = "Expense"
)

var (
	// ErrEmpty signals there is nothing to draw. Callers show a placeholder.
	ErrEmpty = errors.New("flow: no entries to draw")
	// ErrUnknownNode is returned when an operation names a node that is not
	// part of the diagram.
	ErrUnknownNode = errors.New("flow: unknown node")
)

// Node is a bar in the diagram.
type Node struct {
	ID    string
	Name  string
	Kind  Kind
	Value float64
}

// Link is a weighted edge between two nodes.
type Link struct {
	Source string
	Target string
	Value  float64
}

// Graph is the output of BuildGraph. It is never modified afterwards.
type Graph struct {
	Nodes []Node
	Links []Link
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Flows returns the summed inbound and outbound link values of every node.
// The maps are built per call.
func (g Graph) Flows() (in, out map[string]float64) {
	in = make(map[string]float64, len(g.Nodes))
	out = make(map[string]float64, len(g.Nodes))
	for _, l := range g.Links {
		out[l.Source] += l.Value
		in[l.Target] += l.Value
	}
	return in, out
}

// BuildGraph builds the star-shaped flow graph: sources feed the pool, the
// pool feeds the sinks. Entries with a non-positive amount are dropped. When
// expenses exceed income a debt node balances the sources; when income
// exceeds expenses a savings node balances the sinks.
func BuildGraph(income, expense []core.Entry) (Graph, error) {
	incomes, totalIncome := usable(income, defaultIncomeLabel)
	expenses, totalExpense := usable(expense, defaultExpenseLabel)
	if totalIncome <= 0 && totalExpense <= 0 {
		return Graph{}, ErrEmpty
	}

	debt := max(0, totalExpense-totalIncome)
	savings := max(0, totalIncome-totalExpense)
	pool := totalIncome + debt

	var g Graph
	for i, e := range incomes {
		g.Nodes = append(g.Nodes, Node{ID: nodeID(KindIncome, i), Name: e.Label, Kind: KindIncome, Value: e.Amount})
	}
	if debt > 0 {
		g.Nodes = append(g.Nodes, Node{ID: DebtID, Name: DebtName, Kind: KindDebt, Value: debt})
	}
	g.Nodes = append(g.Nodes, Node{ID: PoolID, Name: PoolName, Kind: KindPool, Value: pool})
	for i, e := range expenses {
		g.Nodes = append(g.Nodes, Node{ID: nodeID(KindExpense, i), Name: e.Label, Kind: KindExpense, Value: e.Amount})
	}
	if savings > 0 {
		g.Nodes = append(g.Nodes, Node{ID: SavingsID, Name: SavingsName, Kind: KindSavings, Value: savings})
	}

	for i, e := range incomes {
		g.Links = append(g.Links, Link{Source: nodeID(KindIncome, i), Target: PoolID, Value: e.Amount})
	}
	if debt > 0 {
		g.Links = append(g.Links, Link{Source: DebtID, Target: PoolID, Value: debt})
	}
	for i, e := range expenses {
		g.Links = append(g.Links, Link{Source: PoolID, Target: nodeID(KindExpense, i), Value: e.Amount})
	}
	if savings > 0 {
		g.Links = append(g.Links, Link{Source: PoolID, Target: SavingsID, Value: savings})
	}
	if len(g.Links) == 0 {
		return Graph{}, ErrEmpty
	}

	// A node is never shorter than the flow passing through it.
	in, out := g.Flows()
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.Value = max(n.Value, in[n.ID], out[n.ID])
	}
	return g, nil
}

// usable keeps the entries with a positive, finite amount and returns their
// total. An entry that would push the total past the float range is dropped.
func usable(entries []core.Entry, fallback string) ([]core.Entry, float64) {
	out := make([]core.Entry, 0, len(entries))
	var total float64
	for _, e := range entries {
		if !(e.Amount > 0) || math.IsInf(e.Amount, 0) || math.IsInf(total+e.Amount, 0) {
			continue
		}
		e.Label = strings.TrimSpace(e.Label)
		if e.Label == "" {
			e.Label = fallback
		}
		total += e.Amount
		out = append(out, e)
	}
	return out, total
}

func nodeID(k Kind, i int) string {
	return k.String() + "-" + strconv.Itoa(i)
}
