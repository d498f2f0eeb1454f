package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
)

// FeeSchedule is the platform transaction fee: RatePercent of the subtotal
// plus a Fixed amount per order. It is supplied by configuration.
type FeeSchedule struct {
	RatePercent decimal.Decimal
	Fixed       decimal.Decimal
}

// Fee computes the transaction fee for subtotal. An empty order pays nothing.
func (f FeeSchedule) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	fee := money.Percent(subtotal, money.NonNegative(f.RatePercent)).Add(money.NonNegative(f.Fixed))
	return money.Round(fee)
}
