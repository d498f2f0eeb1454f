// Package campaign renders promotional copy from offers and pricing results.
package campaign

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Lines returns one line of copy per offer eligible at at, followed by a price
// badge when the result is discounted. Offers the engine would exclude by
// status, date or usage are not advertised.
func Lines(offers []offer.Offer, result pricing.Result, currency string, at time.Time) []string {
	out := make([]string, 0, len(offers)+1)
	for _, o := range offers {
		if _, bad := o.Terms.(offer.Malformed); bad || !o.Eligible(at, 0) {
			continue
		}
		text := Phrase(o, currency)
		if text == "" {
			continue
		}
		if name := strings.TrimSpace(o.Name); name != "" && name != text {
			text = name + ": " + text
		}
		out = append(out, text)
	}
	if badge := Badge(result, currency); badge != "" {
		out = append(out, badge)
	}
	return out
}

// Describe joins Lines with newlines.
func Describe(offers []offer.Offer, result pricing.Result, currency string, at time.Time) string {
	return strings.Join(Lines(offers, result, currency, at), "\n")
}

// Badge renders the storefront PROMO badge, or "" when no discount applies.
func Badge(result pricing.Result, currency string) string {
	if !result.EffectivePrice.LessThan(result.OriginalPrice) {
		return ""
	}
	return fmt.Sprintf("PROMO %s each (was %s)", money.Format(result.EffectivePrice, currency), money.Format(result.OriginalPrice, currency))
}

// Phrase describes a single offer.
func Phrase(o offer.Offer, currency string) string {
	switch t := o.Terms.(type) {
	case offer.PercentOff:
		if t.Percentage == nil {
			return fallback(o)
		}
		return withMinimum(fmt.Sprintf("%s%% OFF", t.Percentage.String()), t.Limits.Min)
	case offer.AmountOff:
		if t.Amount == nil {
			return fallback(o)
		}
		return withMinimum(fmt.Sprintf("%s OFF each", money.Format(*t.Amount, currency)), t.Limits.Min)
	case offer.FixedPrice:
		if t.Price == nil {
			return fallback(o)
		}
		return fmt.Sprintf("Now %s each", money.Format(*t.Price, currency))
	case offer.BuyXGetY:
		return fmt.Sprintf("Buy %d Get %d FREE", t.Buy, t.Get)
	case offer.MultiBuy:
		if t.Adjustment.Value == nil {
			return fallback(o)
		}
		return fmt.Sprintf("Buy %d+ and save %s", t.Threshold, saving(t.Adjustment, currency))
	case offer.Tiered:
		return tiers(t, currency)
	case offer.Bundle:
		if t.Price != nil {
			return fmt.Sprintf("Bundle of %d for %s", len(t.Products), money.Format(*t.Price, currency))
		}
		if t.Adjustment.Value == nil {
			return fallback(o)
		}
		return fmt.Sprintf("Bundle of %d: save %s", len(t.Products), saving(t.Adjustment, currency))
	case offer.FreeShipping:
		if t.MinimumOrderValue.IsPositive() {
			return fmt.Sprintf("FREE delivery over %s", money.Format(t.MinimumOrderValue, currency))
		}
		return "FREE delivery"
	default:
		return fallback(o)
	}
}

func tiers(t offer.Tiered, currency string) string {
	sorted := slices.Clone(t.Tiers)
	slices.SortStableFunc(sorted, func(a, b offer.Tier) int { return cmp.Compare(a.MinQuantity, b.MinQuantity) })
	parts := make([]string, 0, len(sorted))
	for _, tier := range sorted {
		switch {
		case tier.PricePerUnit != nil:
			parts = append(parts, fmt.Sprintf("%d+ units %s each", tier.MinQuantity, money.Format(*tier.PricePerUnit, currency)))
		case t.PriceOnly:
		case tier.DiscountPercentage != nil:
			parts = append(parts, fmt.Sprintf("%d+ units %s%% OFF", tier.MinQuantity, tier.DiscountPercentage.String()))
		case tier.DiscountAmount != nil:
			parts = append(parts, fmt.Sprintf("%d+ units %s OFF each", tier.MinQuantity, money.Format(*tier.DiscountAmount, currency)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Bulk: " + strings.Join(parts, "; ")
}

func saving(a offer.Adjustment, currency string) string {
	if a.Kind == offer.DiscountPercentage {
		return a.Value.String() + "%"
	}
	return money.Format(decimal.Max(*a.Value, decimal.Zero), currency) + " each"
}

func withMinimum(text string, minimum int) string {
	if minimum > 1 {
		return fmt.Sprintf("%s when you buy %d+", text, minimum)
	}
	return text
}

func fallback(o offer.Offer) string {
	if desc := strings.TrimSpace(o.Description); desc != "" {
		return desc
	}
	return strings.TrimSpace(o.Name)
}
