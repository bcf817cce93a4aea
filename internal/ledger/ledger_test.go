package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gosettle/internal/domain"
)

func split(debtor, payer, amount string) domain.ExpenseSplit {
	return domain.ExpenseSplit{
		ExpenseID: "exp-1",
		DebtorID:  debtor,
		PayerID:   payer,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
	}
}

func settlement(payer, payee, amount string, status domain.SettlementStatus) domain.Settlement {
	return domain.Settlement{
		ID:       "stl-" + payer + payee,
		GroupID:  "grp-1",
		PayerID:  payer,
		PayeeID:  payee,
		Amount:   decimal.RequireFromString(amount),
		Currency: "USD",
		Status:   status,
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	roster := []string{"alice", "bob", "carol"}

	tests := []struct {
		name        string
		splits      []domain.ExpenseSplit
		settlements []domain.Settlement
		want        Balances
		wantErr     bool
	}{
		{
			name:   "single split",
			splits: []domain.ExpenseSplit{split("bob", "alice", "12.50")},
			want:   Balances{"bob": {"alice": 1250}},
		},
		{
			name: "opposite splits net out",
			splits: []domain.ExpenseSplit{
				split("bob", "alice", "10"),
				split("alice", "bob", "4"),
			},
			want: Balances{"bob": {"alice": 600}},
		},
		{
			name: "opposite splits flip direction",
			splits: []domain.ExpenseSplit{
				split("bob", "alice", "3"),
				split("alice", "bob", "5"),
			},
			want: Balances{"alice": {"bob": 200}},
		},
		{
			name: "payer share and settled splits ignored",
			splits: []domain.ExpenseSplit{
				split("alice", "alice", "10"),
				{ExpenseID: "exp-2", DebtorID: "bob", PayerID: "alice", Amount: decimal.NewFromInt(7), Currency: "USD", Settled: true},
			},
			want: Balances{},
		},
		{
			name:        "completed settlement reduces debt",
			splits:      []domain.ExpenseSplit{split("bob", "alice", "10")},
			settlements: []domain.Settlement{settlement("bob", "alice", "4", domain.SettlementStatusCompleted)},
			want:        Balances{"bob": {"alice": 600}},
		},
		{
			name:        "completed settlement clears debt",
			splits:      []domain.ExpenseSplit{split("bob", "alice", "10")},
			settlements: []domain.Settlement{settlement("bob", "alice", "10", domain.SettlementStatusCompleted)},
			want:        Balances{},
		},
		{
			name:        "pending settlement has no effect",
			splits:      []domain.ExpenseSplit{split("bob", "alice", "10")},
			settlements: []domain.Settlement{settlement("bob", "alice", "10", domain.SettlementStatusPending)},
			want:        Balances{"bob": {"alice": 1000}},
		},
		{
			name:        "overpayment reverses direction",
			splits:      []domain.ExpenseSplit{split("bob", "alice", "10")},
			settlements: []domain.Settlement{settlement("bob", "alice", "15", domain.SettlementStatusCompleted)},
			want:        Balances{"alice": {"bob": 500}},
		},
		{
			name:    "unknown debtor",
			splits:  []domain.ExpenseSplit{split("mallory", "alice", "10")},
			wantErr: true,
		},
		{
			name:        "unknown payee",
			settlements: []domain.Settlement{settlement("bob", "mallory", "10", domain.SettlementStatusCompleted)},
			wantErr:     true,
		},
		{
			name:    "negative amount",
			splits:  []domain.ExpenseSplit{split("bob", "alice", "-1")},
			wantErr: true,
		},
		{
			name:    "too many decimals",
			splits:  []domain.ExpenseSplit{split("bob", "alice", "1.005")},
			wantErr: true,
		},
		{
			name:        "cancelled settlement rejected",
			settlements: []domain.Settlement{settlement("bob", "alice", "1", domain.SettlementStatusCancelled)},
			wantErr:     true,
		},
		{
			name:        "self settlement rejected",
			settlements: []domain.Settlement{settlement("bob", "bob", "1", domain.SettlementStatusCompleted)},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := Build("USD", roster, tt.splits, tt.settlements)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsInvalidInput(err), "want InvalidInputError, got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Balances())
		})
	}
}

func TestBuild_CurrencyMismatch(t *testing.T) {
	t.Parallel()

	s := split("bob", "alice", "10")
	s.Currency = "EUR"

	_, err := Build("USD", []string{"alice", "bob"}, []domain.ExpenseSplit{s}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestBalanceLedger_Antisymmetry(t *testing.T) {
	t.Parallel()

	members := []string{"a", "b", "c", "d"}
	l := NewBalanceLedger("USD", members)

	ops := []struct {
		debtor, creditor string
		units            int64
	}{
		{"a", "b", 500}, {"b", "a", 200}, {"c", "a", 1}, {"d", "c", 999},
		{"a", "d", 40}, {"d", "a", 40}, {"b", "c", -300},
	}

	for _, op := range ops {
		l.Record(op.debtor, op.creditor, op.units)

		for _, x := range members {
			for _, y := range members {
				require.Equal(t, l.NetBalance(x, y), -l.NetBalance(y, x), "NetBalance(%s,%s)", x, y)
			}
		}
	}

	assert.Equal(t, int64(300), l.NetBalance("a", "b"))
	assert.Equal(t, int64(-300), l.NetBalance("b", "c"))
	assert.Equal(t, int64(0), l.NetBalance("a", "d"))
}

func TestBalanceLedger_Positions(t *testing.T) {
	t.Parallel()

	l := NewBalanceLedger("USD", []string{"a", "b", "c"})
	l.Record("a", "b", 100)
	l.Record("c", "a", 100)

	// a owes b and is owed by c, so a nets to zero and is omitted.
	assert.Equal(t, map[string]int64{"b": 100, "c": -100}, l.Positions())
	assert.Equal(t, 2, l.PairCount())
	assert.Equal(t, []string{"a", "b", "c"}, l.Roster())
}

func TestBalanceLedger_ZeroExponentCurrency(t *testing.T) {
	t.Parallel()

	s := split("bob", "alice", "500")
	s.Currency = "JPY"

	l, err := Build("jpy", []string{"alice", "bob"}, []domain.ExpenseSplit{s}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), l.NetBalance("bob", "alice"))

	s.Amount = decimal.RequireFromString("1.5")
	_, err = Build("JPY", []string{"alice", "bob"}, []domain.ExpenseSplit{s}, nil)
	assert.True(t, domain.IsInvalidInput(err))
}
