package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciliation compares an account's stored balance with the balance
// implied by its paid payments and cashouts
type Reconciliation struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
	PaidPayments decimal.Decimal `json:"paid_payments"`
	PaidCashouts decimal.Decimal `json:"paid_cashouts"`
	Expected     decimal.Decimal `json:"expected"`
	Difference   decimal.Decimal `json:"difference"`
	Consistent   bool            `json:"consistent"`
}

// Reconcile checks balance == paidPayments - paidCashouts for account
func Reconcile(account *Account, paidPayments, paidCashouts decimal.Decimal) Reconciliation {
	expected := paidPayments.Sub(paidCashouts)
	diff := account.Balance.Sub(expected)
	return Reconciliation{
		AccountID:    account.ID,
		Balance:      account.Balance,
		PaidPayments: paidPayments,
		PaidCashouts: paidCashouts,
		Expected:     expected,
		Difference:   diff,
		Consistent:   diff.IsZero(),
	}
}
