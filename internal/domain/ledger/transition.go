package ledger

import "github.com/shopspring/decimal"

// Direction is the balance direction a record type moves when it is paid
type Direction string

const (
	// DirectionCredit increases the balance when paid (payments)
	DirectionCredit Direction = "CREDIT"
	// DirectionDebit decreases the balance when paid (cashouts)
	DirectionDebit Direction = "DEBIT"
)

// TransitionKind classifies the balance effect of a status change
type TransitionKind string

const (
	TransitionNone    TransitionKind = "NONE"
	TransitionApply   TransitionKind = "APPLY"
	TransitionReverse TransitionKind = "REVERSE"
)

// Transition is the balance effect decided for a status change.
// Floor is non-nil only when the delta spends money and the account must
// keep at least Floor after the adjustment.
type Transition struct {
	Kind  TransitionKind
	Delta decimal.Decimal
	Floor *decimal.Decimal
}

// IsNoop reports whether the transition leaves the balance untouched
func (t Transition) IsNoop() bool {
	return t.Kind == TransitionNone
}

// Decide maps a status change of a record with the given direction and
// amount to a signed balance delta.
//
//	              Pending->Paid  Paid->Pending  same status
//	credit        +amount        -amount        none
//	debit         -amount        +amount        none
//
// Only the debit apply carries a floor of zero. Reversals are never floored
// so that an erroneous Paid marking can always be undone.
func Decide(direction Direction, previous, next Status, amount decimal.Decimal) Transition {
	if previous == next {
		return Transition{Kind: TransitionNone, Delta: decimal.Zero}
	}

	var t Transition
	switch {
	case previous == StatusPending && next == StatusPaid:
		t = Transition{Kind: TransitionApply, Delta: amount}
	case previous == StatusPaid && next == StatusPending:
		t = Transition{Kind: TransitionReverse, Delta: amount.Neg()}
	default:
		return Transition{Kind: TransitionNone, Delta: decimal.Zero}
	}

	if direction == DirectionDebit {
		t.Delta = t.Delta.Neg()
		if t.Kind == TransitionApply {
			floor := decimal.Zero
			t.Floor = &floor
		}
	}
	return t
}

// DecideCreate returns the effect of creating a record directly in status.
// Creation behaves like a transition out of an implicit Pending state.
func DecideCreate(direction Direction, status Status, amount decimal.Decimal) Transition {
	return Decide(direction, StatusPending, status, amount)
}
