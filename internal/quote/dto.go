package quote

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

type quoteRequest struct {
	BasePrice   *decimal.Decimal `json:"basePrice" validate:"required"`
	Quantity    *int             `json:"quantity" validate:"required"`
	Offers      []offer.Offer    `json:"offers" validate:"max=100"`
	PromoPrice  *decimal.Decimal `json:"promoPrice"`
	PromoActive bool             `json:"promoActive"`
	Currency    string           `json:"currency" validate:"omitempty,iso4217"`
	// CustomerUses maps offer ids to the caller's previous redemptions.
	CustomerUses map[string]int `json:"customerUses"`
}

type orderLineRequest struct {
	ProductID   string           `json:"productId" validate:"required_without=BasePrice,omitempty,uuid"`
	Quantity    *int             `json:"quantity" validate:"required"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	Offers      []offer.Offer    `json:"offers" validate:"max=100"`
	PromoPrice  *decimal.Decimal `json:"promoPrice"`
	PromoActive bool             `json:"promoActive"`
}

type orderQuoteRequest struct {
	Lines        []orderLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
	Offers       []offer.Offer      `json:"offers" validate:"max=100"`
	DeliveryCost *decimal.Decimal   `json:"deliveryCost"`
	Currency     string             `json:"currency" validate:"omitempty,iso4217"`
	CustomerUses map[string]int     `json:"customerUses"`
}

// Formatted carries display strings for a priced line.
type Formatted struct {
	OriginalPrice  string `json:"originalPrice"`
	EffectivePrice string `json:"effectivePrice"`
	TotalCost      string `json:"totalCost"`
	Savings        string `json:"savings"`
}

// QuoteResponse is the payload of a single-line quote.
type QuoteResponse struct {
	Result    pricing.Result `json:"result"`
	Currency  money.Currency `json:"currency"`
	Formatted Formatted      `json:"formatted"`
	Badge     string         `json:"badge,omitempty"`
	Campaign  []string       `json:"campaign"`
}

// ProductQuoteResponse adds catalog context to a quote.
type ProductQuoteResponse struct {
	QuoteResponse
	Product         catalog.Product `json:"product"`
	OfferSetVersion int64           `json:"offerSetVersion"`
	Cached          bool            `json:"cached"`
}

// OrderFormatted carries display strings for order totals.
type OrderFormatted struct {
	Subtotal       string `json:"subtotal"`
	Savings        string `json:"savings"`
	TransactionFee string `json:"transactionFee"`
	DeliveryCost   string `json:"deliveryCost"`
	Total          string `json:"total"`
}

// OrderQuoteResponse is the payload of an order quote.
type OrderQuoteResponse struct {
	pricing.OrderSummary
	Currency  money.Currency `json:"currency"`
	Formatted OrderFormatted `json:"formatted"`
}

func formatResult(r pricing.Result, c money.Currency) Formatted {
	code := string(c)
	return Formatted{
		OriginalPrice:  money.Format(r.OriginalPrice, code),
		EffectivePrice: money.Format(r.EffectivePrice, code),
		TotalCost:      money.Format(r.TotalCost, code),
		Savings:        money.Format(r.Savings, code),
	}
}

func formatSummary(s pricing.Summary, c money.Currency) OrderFormatted {
	code := string(c)
	return OrderFormatted{
		Subtotal:       money.Format(s.Subtotal, code),
		Savings:        money.Format(s.Savings, code),
		TransactionFee: money.Format(s.TransactionFee, code),
		DeliveryCost:   money.Format(s.DeliveryCost, code),
		Total:          money.Format(s.Total, code),
	}
}
