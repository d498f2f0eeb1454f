package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
)

// Line is a product line in an order quote.
type Line struct {
	ProductID   string
	BasePrice   decimal.Decimal
	Quantity    int
	Offers      []offer.Offer
	PromoPrice  *decimal.Decimal
	PromoActive bool
}

// OrderInput collects the lines and order-level offers to quote.
type OrderInput struct {
	Lines []Line
	// Offers apply to the whole order, e.g. free shipping or bundle deals.
	Offers       []offer.Offer
	DeliveryCost decimal.Decimal
	CustomerUses map[string]int
	At           time.Time
}

// LineQuote is a priced order line.
type LineQuote struct {
	ProductID string `json:"productId"`
	Result
}

// Summary aggregates computed order components.
type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Savings        decimal.Decimal `json:"savings"`
	TransactionFee decimal.Decimal `json:"transactionFee"`
	DeliveryCost   decimal.Decimal `json:"deliveryCost"`
	Total          decimal.Decimal `json:"total"`
}

// OrderSummary is the full order breakdown.
type OrderSummary struct {
	Summary
	Lines             []LineQuote   `json:"lines"`
	FreeShippingOffer *offer.Offer  `json:"freeShippingOffer,omitempty"`
	BundleOffers      []offer.Offer `json:"bundleOffers,omitempty"`
}

// Summarize combines priced line totals with the transaction fee and delivery
// charge. Delivery is waived when freeDelivery is set.
func Summarize(lineTotals []decimal.Decimal, savings decimal.Decimal, fees FeeSchedule, delivery decimal.Decimal, freeDelivery bool) Summary {
	subtotal := decimal.Zero
	for _, total := range lineTotals {
		if total.IsNegative() {
			continue
		}
		subtotal = subtotal.Add(total)
	}
	subtotal = money.Round(subtotal)
	delivery = money.Round(money.NonNegative(delivery))
	if freeDelivery {
		delivery = decimal.Zero
	}
	fee := fees.Fee(subtotal)
	return Summary{
		Subtotal:       subtotal,
		Savings:        money.Round(money.NonNegative(savings)),
		TransactionFee: fee,
		DeliveryCost:   delivery,
		Total:          subtotal.Add(fee).Add(delivery),
	}
}

// QuoteOrder prices every line, applies bundle deals where they beat the
// individually selected prices and then adds fees and delivery.
func (e *Engine) QuoteOrder(in OrderInput) (OrderSummary, error) {
	at := in.At
	if at.IsZero() {
		at = e.now()
	}
	out := OrderSummary{Lines: make([]LineQuote, 0, len(in.Lines))}
	for i, line := range in.Lines {
		res, err := e.Calculate(Input{
			BasePrice:    line.BasePrice,
			Quantity:     line.Quantity,
			Offers:       line.Offers,
			PromoPrice:   line.PromoPrice,
			PromoActive:  line.PromoActive,
			CustomerUses: in.CustomerUses,
			At:           at,
		})
		if err != nil {
			return OrderSummary{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, err)
		}
		out.Lines = append(out.Lines, LineQuote{ProductID: line.ProductID, Result: res})
	}

	orderOffers := collectOrderOffers(in)
	out.BundleOffers = e.applyBundles(out.Lines, orderOffers, at, in.CustomerUses)

	totals := make([]decimal.Decimal, 0, len(out.Lines))
	savings := decimal.Zero
	for _, lq := range out.Lines {
		totals = append(totals, lq.TotalCost)
		savings = savings.Add(lq.Savings)
	}
	subtotal := money.Round(decimal.Sum(decimal.Zero, totals...))

	for i := range orderOffers {
		o := orderOffers[i]
		terms, ok := o.Terms.(offer.FreeShipping)
		if !ok {
			continue
		}
		if err := o.Eligibility(at, in.CustomerUses[o.ID]); err != nil {
			e.observer().OfferSkipped(o, err)
			continue
		}
		if subtotal.LessThan(money.NonNegative(terms.MinimumOrderValue)) {
			e.observer().OfferSkipped(o, ErrNotApplicable)
			continue
		}
		out.FreeShippingOffer = &o
		break
	}

	out.Summary = Summarize(totals, savings, e.Fees, in.DeliveryCost, out.FreeShippingOffer != nil)
	return out, nil
}

// applyBundles replaces line results with bundle pricing when cheaper. A line
// joins at most one bundle; bundles are tried in the order supplied.
func (e *Engine) applyBundles(lines []LineQuote, offers []offer.Offer, at time.Time, uses map[string]int) []offer.Offer {
	var applied []offer.Offer
	consumed := make(map[int]bool)
	for i := range offers {
		o := offers[i]
		if _, ok := o.Terms.(offer.Bundle); !ok {
			continue
		}
		if err := o.Eligibility(at, uses[o.ID]); err != nil {
			e.observer().OfferSkipped(o, err)
			continue
		}
		index := make(map[string]int)
		bundleLines := make([]BundleLine, 0, len(lines))
		for idx, lq := range lines {
			if consumed[idx] {
				continue
			}
			if _, seen := index[lq.ProductID]; seen {
				continue
			}
			index[lq.ProductID] = idx
			bundleLines = append(bundleLines, BundleLine{ProductID: lq.ProductID, BasePrice: lq.OriginalPrice, Quantity: lq.Quantity})
		}
		quote, err := EvaluateBundle(o, bundleLines)
		if err != nil {
			e.observer().OfferSkipped(o, err)
			continue
		}
		current := decimal.Zero
		for id := range quote.LineTotals {
			current = current.Add(lines[index[id]].TotalCost)
		}
		if !quote.Total.LessThan(current) {
			e.observer().OfferSkipped(o, ErrNoBenefit)
			continue
		}
		for id, total := range quote.LineTotals {
			idx := index[id]
			lq := lines[idx]
			res := buildResult(lq.OriginalPrice, lq.Quantity, money.Round(total.Div(decimal.NewFromInt(int64(lq.Quantity)))), money.Round(total))
			res.AppliedOffer = &o
			lines[idx].Result = res
			consumed[idx] = true
		}
		applied = append(applied, o)
	}
	return applied
}

// collectOrderOffers merges order-level offers with the line offers that only
// act on whole orders, keeping the first occurrence of each ID.
func collectOrderOffers(in OrderInput) []offer.Offer {
	seen := make(map[string]bool)
	var out []offer.Offer
	add := func(o offer.Offer) {
		switch o.Terms.(type) {
		case offer.Bundle, offer.FreeShipping:
		default:
			return
		}
		if o.ID != "" {
			if seen[o.ID] {
				return
			}
			seen[o.ID] = true
		}
		out = append(out, o)
	}
	for _, o := range in.Offers {
		add(o)
	}
	for _, line := range in.Lines {
		for _, o := range line.Offers {
			add(o)
		}
	}
	return out
}
