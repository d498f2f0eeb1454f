package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
)

// priced is the outcome of resolving one offer for a line: units are charged
// discountedTotal in aggregate and any remaining units pay the base price.
type priced struct {
	unit            decimal.Decimal
	units           int
	discountedTotal decimal.Decimal
}

func (p priced) total(base decimal.Decimal, quantity int) decimal.Decimal {
	rest := quantity - p.units
	if rest <= 0 {
		return p.discountedTotal
	}
	return p.discountedTotal.Add(base.Mul(decimal.NewFromInt(int64(rest))))
}

// flat charges unit for every unit up to limit (0 meaning no limit).
func flat(unit decimal.Decimal, quantity, limit int) priced {
	units := quantity
	if limit > 0 && limit < quantity {
		units = limit
	}
	return priced{unit: unit, units: units, discountedTotal: unit.Mul(decimal.NewFromInt(int64(units)))}
}

// resolveUnitPrice computes the candidate price of a single offer. The switch
// covers every offer.Terms variant; unknown shapes are never applicable.
func resolveUnitPrice(terms offer.Terms, base decimal.Decimal, quantity int) (priced, error) {
	switch t := terms.(type) {
	case offer.PercentOff:
		if t.Percentage == nil {
			return priced{}, ErrMalformedOffer
		}
		if quantity < t.Limits.Min {
			return priced{}, ErrNotApplicable
		}
		return flat(percentOff(base, *t.Percentage), quantity, t.Limits.Max), nil
	case offer.AmountOff:
		if t.Amount == nil {
			return priced{}, ErrMalformedOffer
		}
		if quantity < t.Limits.Min {
			return priced{}, ErrNotApplicable
		}
		return flat(amountOff(base, *t.Amount), quantity, t.Limits.Max), nil
	case offer.FixedPrice:
		if t.Price == nil {
			return priced{}, ErrMalformedOffer
		}
		return flat(money.Round(money.NonNegative(*t.Price)), quantity, t.Limits.Max), nil
	case offer.BuyXGetY:
		return buyXGetY(t, base, quantity)
	case offer.MultiBuy:
		if quantity < max(t.Threshold, 0) {
			return priced{}, ErrNotApplicable
		}
		unit, err := adjust(base, t.Adjustment)
		if err != nil {
			return priced{}, err
		}
		return flat(unit, quantity, 0), nil
	case offer.Tiered:
		return tiered(t, base, quantity)
	case offer.Bundle, offer.FreeShipping:
		return priced{}, ErrOrderLevel
	case offer.Malformed:
		return priced{}, ErrMalformedOffer
	case offer.Unknown:
		return priced{}, ErrNotApplicable
	default:
		return priced{}, ErrNotApplicable
	}
}

func buyXGetY(t offer.BuyXGetY, base decimal.Decimal, quantity int) (priced, error) {
	buy, get := max(t.Buy, 0), max(t.Get, 0)
	if buy == 0 {
		return priced{}, ErrMalformedOffer
	}
	if quantity < buy {
		return priced{}, ErrNotApplicable
	}
	if get == 0 {
		return flat(base, quantity, 0), nil
	}
	bundleUnits := buy + get
	bundles := quantity / bundleUnits
	charged := decimal.NewFromInt(int64(bundles * buy))
	return priced{
		unit:            money.Round(base.Mul(decimal.NewFromInt(int64(buy))).Div(decimal.NewFromInt(int64(bundleUnits)))),
		units:           bundles * bundleUnits,
		discountedTotal: base.Mul(charged),
	}, nil
}

func tiered(t offer.Tiered, base decimal.Decimal, quantity int) (priced, error) {
	tier, ok := ResolveTier(t.Tiers, quantity)
	if !ok {
		return priced{}, ErrNotApplicable
	}
	switch {
	case tier.PricePerUnit != nil:
		return flat(money.Round(money.NonNegative(*tier.PricePerUnit)), quantity, 0), nil
	case t.PriceOnly:
		return priced{}, ErrMalformedOffer
	case tier.DiscountPercentage != nil:
		return flat(percentOff(base, *tier.DiscountPercentage), quantity, 0), nil
	case tier.DiscountAmount != nil:
		return flat(amountOff(base, *tier.DiscountAmount), quantity, 0), nil
	default:
		return priced{}, ErrMalformedOffer
	}
}

// adjust applies a percentage or fixed reduction to price.
func adjust(price decimal.Decimal, a offer.Adjustment) (decimal.Decimal, error) {
	if a.Value == nil {
		return decimal.Zero, ErrMalformedOffer
	}
	switch a.Kind {
	case offer.DiscountPercentage:
		return percentOff(price, *a.Value), nil
	case offer.DiscountFixed:
		return amountOff(price, *a.Value), nil
	default:
		return decimal.Zero, ErrMalformedOffer
	}
}

func percentOff(price, pct decimal.Decimal) decimal.Decimal {
	pct = money.NonNegative(pct)
	return money.Round(money.NonNegative(price.Sub(money.Percent(price, pct))))
}

func amountOff(price, amount decimal.Decimal) decimal.Decimal {
	return money.Round(money.NonNegative(price.Sub(money.NonNegative(amount))))
}
