package ledger

import (
	"iter"
	"maps"
	"slices"

	"github.com/iho/gosettle/internal/domain"
)

// Edge is a directed amount: From owes (or pays) To.
type Edge struct {
	From   string
	To     string
	Amount int64
}

// DebtGraph is a directed graph of debtor -> creditor edges with each
// member's net position precomputed. Nodes are members whose net position is
// nonzero.
type DebtGraph struct {
	out       map[string]map[string]int64
	positions map[string]int64
	members   []string
	debtors   []string
	edges     int
	positive  int64
}

// NewDebtGraph builds a graph from pairwise balances. Every amount must be
// strictly positive and no member may owe itself.
func NewDebtGraph(b Balances) (*DebtGraph, error) {
	g := &DebtGraph{
		out:       make(map[string]map[string]int64, len(b)),
		positions: make(map[string]int64),
	}

	for debtor, creditors := range b {
		for creditor, amount := range creditors {
			if debtor == creditor {
				return nil, domain.NewInvalidInput("balances", "member %q owes itself", debtor)
			}
			if amount <= 0 {
				return nil, domain.NewInvalidInput("balances", "%s -> %s has non-positive amount %d", debtor, creditor, amount)
			}
			if reverse := b[creditor][debtor]; reverse > 0 {
				return nil, domain.NewInvalidInput("balances", "%s and %s owe each other", debtor, creditor)
			}

			if g.out[debtor] == nil {
				g.out[debtor] = make(map[string]int64)
			}
			g.out[debtor][creditor] = amount
			g.positions[debtor] -= amount
			g.positions[creditor] += amount
			g.edges++
		}
	}

	for id, v := range g.positions {
		switch {
		case v == 0:
			delete(g.positions, id)
		case v > 0:
			g.positive += v
		}
	}

	g.members = slices.Sorted(maps.Keys(g.positions))
	g.debtors = slices.Sorted(maps.Keys(g.out))

	return g, nil
}

// NewDebtGraphFromLedger is shorthand for NewDebtGraph(l.Balances()).
func NewDebtGraphFromLedger(l *BalanceLedger) (*DebtGraph, error) {
	return NewDebtGraph(l.Balances())
}

// NetPosition returns the member's net position; zero for unknown members.
func (g *DebtGraph) NetPosition(memberID string) int64 {
	return g.positions[memberID]
}

// Positions returns a copy of all nonzero net positions.
func (g *DebtGraph) Positions() map[string]int64 {
	return maps.Clone(g.positions)
}

// Members returns members with a nonzero net position in ascending order.
func (g *DebtGraph) Members() []string {
	return slices.Clone(g.members)
}

// Owed returns the amount from owes to, or zero when there is no edge.
func (g *DebtGraph) Owed(from, to string) int64 {
	return g.out[from][to]
}

// Creditors returns the members that debtor owes, in ascending order.
func (g *DebtGraph) Creditors(debtor string) []string {
	return slices.Sorted(maps.Keys(g.out[debtor]))
}

// Edges yields every edge ordered by debtor, then creditor.
func (g *DebtGraph) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, debtor := range g.debtors {
			for _, creditor := range g.Creditors(debtor) {
				if !yield(Edge{From: debtor, To: creditor, Amount: g.out[debtor][creditor]}) {
					return
				}
			}
		}
	}
}

// EdgeCount returns the number of edges.
func (g *DebtGraph) EdgeCount() int {
	return g.edges
}

// TotalPositive returns the sum of all positive net positions, which is the
// total amount any complete settlement plan must move.
func (g *DebtGraph) TotalPositive() int64 {
	return g.positive
}

// Components groups members with a nonzero net position by the connected
// component of the undirected graph they belong to. Members within a
// component are ascending and components are ordered by their first member.
// Components whose members all net to zero are omitted.
func (g *DebtGraph) Components() [][]string {
	parent := make(map[string]string)
	var find func(string) string
	find = func(id string) string {
		p, ok := parent[id]
		if !ok {
			parent[id] = id
			return id
		}
		if p == id {
			return id
		}
		root := find(p)
		parent[id] = root
		return root
	}

	for _, debtor := range g.debtors {
		for creditor := range g.out[debtor] {
			if a, b := find(debtor), find(creditor); a != b {
				parent[b] = a
			}
		}
	}

	index := make(map[string]int)
	var components [][]string
	for _, id := range g.members {
		root := find(id)
		i, ok := index[root]
		if !ok {
			i = len(components)
			index[root] = i
			components = append(components, nil)
		}
		components[i] = append(components[i], id)
	}

	return components
}
