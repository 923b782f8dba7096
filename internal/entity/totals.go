package entity

import "github.com/shopspring/decimal"

// ComputeTotals recomputes order money fields from the full item set.
// Always called with the authoritative set, never incrementally, so repeated
// calls are idempotent. tax = subtotal * taxRate (taxRate may be zero).
func ComputeTotals(items []OrderItem, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
	}
	tax = subtotal.Mul(taxRate)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}
