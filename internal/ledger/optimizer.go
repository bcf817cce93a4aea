package ledger

import (
	"container/heap"
	"fmt"

	"github.com/iho/gosettle/internal/domain"
)

// Result is a verified settlement plan.
type Result struct {
	Transfers                 []Edge
	OriginalTransactionCount  int
	OptimizedTransactionCount int
	Savings                   int
}

// TotalTransferred returns the sum of all transfer amounts.
func (r *Result) TotalTransferred() int64 {
	var total int64
	for _, t := range r.Transfers {
		total += t.Amount
	}
	return total
}

// Optimize computes transfers for raw net positions. With no pairwise
// edges to compare against, the original count equals the optimized count.
func Optimize(positions map[string]int64) (*Result, error) {
	if err := checkPositions(positions); err != nil {
		return nil, err
	}

	transfers := greedy(positions)
	return verified(positions, transfers, len(transfers))
}

// OptimizeGraph settles each connected component of the graph on its own and
// reports savings against the graph's pairwise edges. A component with k
// nonzero members yields at most k-1 transfers, never more than the edges
// connecting it, and every plan moves exactly TotalPositive.
func OptimizeGraph(g *DebtGraph) (*Result, error) {
	positions := g.Positions()
	if err := checkPositions(positions); err != nil {
		return nil, err
	}

	transfers := make([]Edge, 0, max(len(positions)-1, 0))
	for _, component := range g.Components() {
		sub := make(map[string]int64, len(component))
		for _, id := range component {
			sub[id] = positions[id]
		}
		transfers = append(transfers, greedy(sub)...)
	}

	return verified(positions, transfers, g.EdgeCount())
}

func checkPositions(positions map[string]int64) error {
	var residual int64
	for id, v := range positions {
		if id == "" {
			return domain.NewInvalidInput("memberId", "empty member id")
		}
		residual += v
	}
	if residual != 0 {
		return &domain.UnbalancedInputError{Residual: residual}
	}
	return nil
}

func verified(positions map[string]int64, transfers []Edge, original int) (*Result, error) {
	if err := Verify(positions, transfers); err != nil {
		return nil, err
	}

	return &Result{
		Transfers:                 transfers,
		OriginalTransactionCount:  original,
		OptimizedTransactionCount: len(transfers),
		Savings:                   original - len(transfers),
	}, nil
}

// greedy repeatedly pairs the largest debtor with the largest creditor and
// moves the smaller of the two magnitudes. Every step retires at least one
// member, so N nonzero positions yield at most N-1 transfers.
func greedy(positions map[string]int64) []Edge {
	debtors := &positionHeap{}
	creditors := &positionHeap{}

	for id, v := range positions {
		switch {
		case v < 0:
			*debtors = append(*debtors, position{id: id, amount: -v})
		case v > 0:
			*creditors = append(*creditors, position{id: id, amount: v})
		}
	}
	heap.Init(debtors)
	heap.Init(creditors)

	transfers := make([]Edge, 0, max(len(positions)-1, 0))
	for debtors.Len() > 0 && creditors.Len() > 0 {
		d := heap.Pop(debtors).(position)
		c := heap.Pop(creditors).(position)

		amount := min(d.amount, c.amount)
		transfers = append(transfers, Edge{From: d.id, To: c.id, Amount: amount})

		d.amount -= amount
		c.amount -= amount
		if d.amount > 0 {
			heap.Push(debtors, d)
		}
		if c.amount > 0 {
			heap.Push(creditors, c)
		}
	}

	return transfers
}

// Verify replays transfers through a BalanceLedger as completed payments and
// checks that they cancel every position exactly. Members absent from
// positions may appear in transfers only if they end up at zero.
func Verify(positions map[string]int64, transfers []Edge) error {
	l := NewBalanceLedger("", nil)
	for i, t := range transfers {
		if t.Amount <= 0 {
			return fmt.Errorf("transfer %d: non-positive amount %d", i, t.Amount)
		}
		if t.From == "" || t.To == "" || t.From == t.To {
			return fmt.Errorf("transfer %d: invalid endpoints %q -> %q", i, t.From, t.To)
		}
		// A payment from From to To leaves To owing From.
		l.Record(t.To, t.From, t.Amount)
	}

	applied := l.Positions()
	for id, v := range positions {
		if v+applied[id] != 0 {
			return fmt.Errorf("member %s: position %d left at %d after transfers", id, v, v+applied[id])
		}
	}
	for id, v := range applied {
		if _, ok := positions[id]; !ok && v != 0 {
			return fmt.Errorf("member %s: not in positions but left at %d", id, v)
		}
	}

	return nil
}

type position struct {
	id     string
	amount int64
}

// positionHeap is a max-heap by amount, ties broken by ascending id.
type positionHeap []position

func (h positionHeap) Len() int { return len(h) }

func (h positionHeap) Less(i, j int) bool {
	if h[i].amount != h[j].amount {
		return h[i].amount > h[j].amount
	}
	return h[i].id < h[j].id
}

func (h positionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *positionHeap) Push(x any) { *h = append(*h, x.(position)) }

func (h *positionHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
