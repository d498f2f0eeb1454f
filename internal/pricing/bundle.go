package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
)

// BundleLine is one product taking part in a bundle evaluation.
type BundleLine struct {
	ProductID string
	BasePrice decimal.Decimal
	Quantity  int
}

// BundleQuote is the outcome of pricing lines under a bundle offer.
type BundleQuote struct {
	Offer   offer.Offer
	Bundles int
	// LineTotals holds the charged amount per participating product.
	LineTotals map[string]decimal.Decimal
	Total      decimal.Decimal
}

// EvaluateBundle prices the participating lines under o. Every bundled product
// must be present; the number of bundles is limited by the scarcest product and
// units outside full bundles pay the base price.
func EvaluateBundle(o offer.Offer, lines []BundleLine) (BundleQuote, error) {
	terms, ok := o.Terms.(offer.Bundle)
	if !ok {
		return BundleQuote{}, ErrNotApplicable
	}
	products := uniqueProducts(terms.Products)
	if len(products) == 0 {
		return BundleQuote{}, ErrNotApplicable
	}
	byProduct := make(map[string]BundleLine, len(lines))
	for _, line := range lines {
		if _, seen := byProduct[line.ProductID]; !seen {
			byProduct[line.ProductID] = line
		}
	}

	participants := make([]BundleLine, 0, len(products))
	bundles := -1
	sumBase := decimal.Zero
	for _, id := range products {
		line, found := byProduct[id]
		if !found || line.Quantity < 1 {
			return BundleQuote{}, ErrNotApplicable
		}
		line.BasePrice = money.Round(money.NonNegative(line.BasePrice))
		participants = append(participants, line)
		sumBase = sumBase.Add(line.BasePrice)
		if bundles < 0 || line.Quantity < bundles {
			bundles = line.Quantity
		}
	}
	if sumBase.IsZero() {
		return BundleQuote{}, ErrNotApplicable
	}

	var bundleCost decimal.Decimal
	if terms.Price != nil {
		bundleCost = money.Round(money.NonNegative(*terms.Price))
	} else {
		cost, err := adjust(sumBase, terms.Adjustment)
		if err != nil {
			return BundleQuote{}, err
		}
		bundleCost = cost
	}
	if !bundleCost.LessThan(sumBase) {
		return BundleQuote{}, ErrNoBenefit
	}

	shares := allocate(bundleCost, participants, sumBase)
	quote := BundleQuote{Offer: o, Bundles: bundles, LineTotals: make(map[string]decimal.Decimal, len(participants)), Total: decimal.Zero}
	n := decimal.NewFromInt(int64(bundles))
	for i, line := range participants {
		rest := decimal.NewFromInt(int64(line.Quantity - bundles))
		lineTotal := shares[i].Mul(n).Add(line.BasePrice.Mul(rest))
		quote.LineTotals[line.ProductID] = lineTotal
		quote.Total = quote.Total.Add(lineTotal)
	}
	return quote, nil
}

// allocate splits cost across lines in proportion to their base price. Shares
// are truncated to cents and the remaining cents go to the dearest lines
// first, never lifting a share above its line's base price. cost must be
// below sumBase.
func allocate(cost decimal.Decimal, lines []BundleLine, sumBase decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lines))
	remainder := cost
	for i, line := range lines {
		shares[i] = cost.Mul(line.BasePrice).Div(sumBase).Truncate(money.Scale)
		remainder = remainder.Sub(shares[i])
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return lines[b].BasePrice.Cmp(lines[a].BasePrice)
	})
	for _, i := range order {
		if !remainder.IsPositive() {
			break
		}
		extra := decimal.Min(remainder, lines[i].BasePrice.Sub(shares[i]))
		shares[i] = shares[i].Add(extra)
		remainder = remainder.Sub(extra)
	}
	return shares
}

func uniqueProducts(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
