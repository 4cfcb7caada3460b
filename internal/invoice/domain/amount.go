package domain

import "strings"

// ResolveAmount validates a declared total against its line items and
// returns the authoritative amount. Itemized totals must have internally
// consistent lines whose sum matches the declared total when one was
// declared; non-itemized totals must simply be positive. Recurring
// templates run through the same check so generated invoices inherit a
// consistent amount.
func ResolveAmount(amount int64, items []InvoiceItem) (int64, error) {
	if len(items) == 0 {
		if amount <= 0 {
			return 0, ErrInvalidAmount
		}
		return amount, nil
	}

	var sum int64
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return 0, ErrInvalidItems
		}
		if item.Quantity <= 0 || item.Price < 0 {
			return 0, ErrInvalidItems
		}
		if item.Amount != item.Quantity*item.Price {
			return 0, ErrInvalidItems
		}
		sum += item.Amount
	}
	if sum <= 0 {
		return 0, ErrInvalidAmount
	}
	if amount != 0 && amount != sum {
		return 0, ErrInvalidAmount
	}
	return sum, nil
}
