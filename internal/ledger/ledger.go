// Package ledger derives pairwise balances from expense splits and
// settlements, models them as a debt graph, and reduces that graph to a small
// set of transfers that zero every member's net position.
//
// All arithmetic is done in int64 minor units. Conversion from and to
// decimal amounts happens only in Build and at the callers' boundaries.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/gosettle/internal/domain"
)

// pair is an unordered member pair stored with lo < hi.
type pair struct {
	lo, hi string
}

// Balances maps debtor -> creditor -> strictly positive amount owed.
type Balances map[string]map[string]int64

// BalanceLedger accumulates signed pairwise balances for one group.
type BalanceLedger struct {
	currency string
	roster   map[string]struct{}
	// positive value: lo owes hi
	pairs map[pair]int64
}

// NewBalanceLedger creates an empty ledger for the given roster.
func NewBalanceLedger(currency string, roster []string) *BalanceLedger {
	members := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		members[id] = struct{}{}
	}

	return &BalanceLedger{
		currency: domain.NormalizeCurrency(currency),
		roster:   members,
		pairs:    make(map[pair]int64),
	}
}

// Build creates a ledger from a group's unsettled splits and non-cancelled
// settlements.
func Build(currency string, roster []string, splits []domain.ExpenseSplit, settlements []domain.Settlement) (*BalanceLedger, error) {
	l := NewBalanceLedger(currency, roster)

	for i := range splits {
		if err := l.AddSplit(splits[i]); err != nil {
			return nil, err
		}
	}

	for i := range settlements {
		if err := l.AddSettlement(settlements[i]); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// AddSplit records that the split's debtor owes the expense payer. Settled
// splits and the payer's own share leave the ledger untouched.
func (l *BalanceLedger) AddSplit(s domain.ExpenseSplit) error {
	if err := l.checkMember("debtorId", s.DebtorID); err != nil {
		return err
	}
	if err := l.checkMember("payerId", s.PayerID); err != nil {
		return err
	}

	units, err := l.toUnits(s.Amount, s.Currency)
	if err != nil {
		return err
	}

	if s.Settled || s.DebtorID == s.PayerID {
		return nil
	}

	l.Record(s.DebtorID, s.PayerID, units)
	return nil
}

// AddSettlement applies a settlement. Only COMPLETED settlements reduce what
// the payer owes the payee; PENDING ones are validated and ignored.
func (l *BalanceLedger) AddSettlement(s domain.Settlement) error {
	if s.Status == domain.SettlementStatusCancelled {
		return domain.NewInvalidInput("status", "settlement %s is cancelled", s.ID)
	}
	if !s.Status.IsValid() {
		return domain.NewInvalidInput("status", "unknown settlement status %q", s.Status)
	}
	if err := l.checkMember("payerId", s.PayerID); err != nil {
		return err
	}
	if err := l.checkMember("payeeId", s.PayeeID); err != nil {
		return err
	}
	if s.PayerID == s.PayeeID {
		return domain.NewInvalidInput("payeeId", "settlement %s pays its own payer", s.ID)
	}

	units, err := l.toUnits(s.Amount, s.Currency)
	if err != nil {
		return err
	}

	if s.Status != domain.SettlementStatusCompleted {
		return nil
	}

	// Paying the payee is the same as the payee now owing the payer.
	l.Record(s.PayeeID, s.PayerID, units)
	return nil
}

// Record adds units to what debtor owes creditor. Negative units reduce the
// debt and may flip its direction.
func (l *BalanceLedger) Record(debtor, creditor string, units int64) {
	if debtor == creditor || units == 0 {
		return
	}

	key, sign := orient(debtor, creditor)
	v := l.pairs[key] + sign*units
	if v == 0 {
		delete(l.pairs, key)
		return
	}
	l.pairs[key] = v
}

// NetBalance returns what a owes b; negative means b owes a.
// NetBalance(a, b) == -NetBalance(b, a) always holds.
func (l *BalanceLedger) NetBalance(a, b string) int64 {
	if a == b {
		return 0
	}
	key, sign := orient(a, b)
	return sign * l.pairs[key]
}

// Balances returns every strictly positive debtor -> creditor amount.
func (l *BalanceLedger) Balances() Balances {
	out := make(Balances)
	for key, v := range l.pairs {
		debtor, creditor, amount := key.lo, key.hi, v
		if v < 0 {
			debtor, creditor, amount = key.hi, key.lo, -v
		}
		if out[debtor] == nil {
			out[debtor] = make(map[string]int64)
		}
		out[debtor][creditor] = amount
	}
	return out
}

// Positions returns each member's nonzero net position: total owed to the
// member minus total the member owes.
func (l *BalanceLedger) Positions() map[string]int64 {
	positions := make(map[string]int64)
	for key, v := range l.pairs {
		positions[key.lo] -= v
		positions[key.hi] += v
	}
	for id, v := range positions {
		if v == 0 {
			delete(positions, id)
		}
	}
	return positions
}

// PairCount returns the number of member pairs with a nonzero balance.
func (l *BalanceLedger) PairCount() int {
	return len(l.pairs)
}

// Roster returns the ledger's members in ascending order.
func (l *BalanceLedger) Roster() []string {
	ids := make([]string, 0, len(l.roster))
	for id := range l.roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Currency returns the ledger currency.
func (l *BalanceLedger) Currency() string {
	return l.currency
}

func (l *BalanceLedger) checkMember(field, id string) error {
	if _, ok := l.roster[id]; !ok {
		return domain.NewInvalidInput(field, "member %q is not in the group roster", id)
	}
	return nil
}

func (l *BalanceLedger) toUnits(amount decimal.Decimal, currency string) (int64, error) {
	if domain.NormalizeCurrency(currency) != l.currency {
		return 0, domain.NewInvalidInput("currency", "%s does not match group currency %s", currency, l.currency)
	}

	units, err := domain.ToMinorUnits(amount, l.currency)
	if err != nil {
		return 0, err
	}
	if units <= 0 {
		return 0, domain.NewInvalidInput("amount", "%s must be positive", amount)
	}
	return units, nil
}

func orient(a, b string) (pair, int64) {
	if a < b {
		return pair{lo: a, hi: b}, 1
	}
	return pair{lo: b, hi: a}, -1
}
