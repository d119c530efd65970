package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CostOfSalesEntries builds the two entries that move inventory into cost of
// goods sold: debit cogsAccountID, credit inventoryAccountID, each for
// unitCost × quantity rounded to the minor unit.
func CostOfSalesEntries(unitCost, quantity decimal.Decimal, cogsAccountID, inventoryAccountID, description string) ([]Entry, error) {
	if !unitCost.IsPositive() {
		return nil, errors.New("unit cost must be greater than zero")
	}
	if !quantity.IsPositive() {
		return nil, errors.New("quantity must be greater than zero")
	}
	amount, err := AmountFromDecimal(unitCost.Mul(quantity).Round(minorDigits))
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errors.New("cost of sales rounds to zero")
	}
	return []Entry{
		{Sequence: 1, AccountID: cogsAccountID, DebitAmount: amount, Description: description},
		{Sequence: 2, AccountID: inventoryAccountID, CreditAmount: amount, Description: description},
	}, nil
}
