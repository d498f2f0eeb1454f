// Package pricing evaluates promotional offers against a base price and
// quantity, and aggregates the results into order totals.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
)

// Input describes a single product line to price.
type Input struct {
	BasePrice   decimal.Decimal
	Quantity    int
	Offers      []offer.Offer
	PromoPrice  *decimal.Decimal
	PromoActive bool
	// CustomerUses maps offer IDs to the caller's prior redemptions.
	CustomerUses map[string]int
	// At is the evaluation instant. Zero means the engine clock.
	At time.Time
}

// Result is the priced line. Amounts are rounded to two fractional digits.
type Result struct {
	OriginalPrice  decimal.Decimal `json:"originalPrice"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Savings        decimal.Decimal `json:"savings"`
	Quantity       int             `json:"quantity"`
	AppliedOffer   *offer.Offer    `json:"appliedOffer,omitempty"`
	PromoApplied   bool            `json:"promoApplied"`
}

// HasDiscount reports whether the line is charged less than the base price.
func (r Result) HasDiscount() bool {
	return r.TotalCost.LessThan(r.OriginalPrice.Mul(decimal.NewFromInt(int64(r.Quantity))))
}

// Engine selects the single best offer per line. The zero value is usable.
type Engine struct {
	Now      func() time.Time
	Observer Observer
	Fees     FeeSchedule
}

// candidate tracks the cheapest option seen during selection. offerIdx is -1
// for the base price and the promo price.
type candidate struct {
	offerIdx int
	promo    bool
	unit     decimal.Decimal
	total    decimal.Decimal
}

// Calculate prices in according to the minimum-total, non-stacking policy.
// Offers never fail the evaluation; they are reported to the Observer and skipped.
func (e *Engine) Calculate(in Input) (Result, error) {
	if in.Quantity < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, in.Quantity)
	}
	if in.BasePrice.IsNegative() {
		return Result{}, fmt.Errorf("%w: got %s", ErrInvalidPrice, in.BasePrice.String())
	}
	at := in.At
	if at.IsZero() {
		at = e.now()
	}
	base := money.Round(in.BasePrice)
	qty := decimal.NewFromInt(int64(in.Quantity))
	baseline := base.Mul(qty)
	best := candidate{offerIdx: -1, unit: base, total: baseline}

	for i := range in.Offers {
		o := in.Offers[i]
		if err := o.Eligibility(at, in.CustomerUses[o.ID]); err != nil {
			e.observer().OfferSkipped(o, err)
			continue
		}
		p, err := resolveUnitPrice(o.Terms, base, in.Quantity)
		if err != nil {
			e.observer().OfferSkipped(o, err)
			continue
		}
		total := money.Round(p.total(base, in.Quantity))
		if !total.LessThan(baseline) {
			e.observer().OfferSkipped(o, ErrNoBenefit)
			continue
		}
		if total.LessThan(best.total) {
			best = candidate{offerIdx: i, unit: p.unit, total: total}
		}
	}

	if in.PromoActive && in.PromoPrice != nil {
		promo := money.Round(money.NonNegative(*in.PromoPrice))
		if total := promo.Mul(qty); total.LessThan(best.total) {
			best = candidate{offerIdx: -1, promo: true, unit: promo, total: total}
		}
	}

	result := buildResult(base, in.Quantity, best.unit, best.total)
	result.PromoApplied = best.promo
	if best.offerIdx >= 0 {
		applied := in.Offers[best.offerIdx]
		result.AppliedOffer = &applied
		e.observer().OfferApplied(applied, result)
	}
	return result, nil
}

// buildResult derives the per-unit figures from a line total. When the total
// is not an exact multiple of unit the effective price is the rounded average.
func buildResult(base decimal.Decimal, quantity int, unit, total decimal.Decimal) Result {
	qty := decimal.NewFromInt(int64(quantity))
	effective := unit
	if !unit.Mul(qty).Equal(total) {
		effective = money.Round(total.Div(qty))
	}
	if effective.GreaterThan(base) {
		effective = base
	}
	return Result{
		OriginalPrice:  base,
		EffectivePrice: effective,
		DiscountAmount: base.Sub(effective),
		TotalCost:      total,
		Savings:        base.Mul(qty).Sub(total),
		Quantity:       quantity,
	}
}

// CalculatePromotionalPricing prices a line with a default Engine.
func CalculatePromotionalPricing(basePrice decimal.Decimal, quantity int, offers []offer.Offer, promoPrice *decimal.Decimal, promoActive bool) (Result, error) {
	var e Engine
	return e.Calculate(Input{
		BasePrice:   basePrice,
		Quantity:    quantity,
		Offers:      offers,
		PromoPrice:  promoPrice,
		PromoActive: promoActive,
	})
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) observer() Observer {
	if e != nil && e.Observer != nil {
		return e.Observer
	}
	return NopObserver{}
}
