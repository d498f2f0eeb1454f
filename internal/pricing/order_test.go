package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

func TestSummarize(t *testing.T) {
	fees := FeeSchedule{RatePercent: d("5.5"), Fixed: d("0.20")}
	s := Summarize([]decimal.Decimal{d("40"), d("20")}, d("10"), fees, d("4.99"), false)
	requireDecimal(t, "60", s.Subtotal)
	requireDecimal(t, "3.5", s.TransactionFee)
	requireDecimal(t, "4.99", s.DeliveryCost)
	requireDecimal(t, "68.49", s.Total)

	free := Summarize([]decimal.Decimal{d("60")}, d("0"), FeeSchedule{RatePercent: d("3.3")}, d("4.99"), true)
	requireDecimal(t, "1.98", free.TransactionFee)
	requireDecimal(t, "0", free.DeliveryCost)
	requireDecimal(t, "61.98", free.Total)

	empty := Summarize(nil, d("0"), fees, d("0"), false)
	requireDecimal(t, "0", empty.Total)
}

func TestQuoteOrderFreeShippingThreshold(t *testing.T) {
	engine, obs := testEngine()
	ship := active("ship50", offer.FreeShipping{MinimumOrderValue: d("50.00")})

	over, err := engine.QuoteOrder(OrderInput{
		Lines:        []Line{{ProductID: "p1", BasePrice: d("12"), Quantity: 5}},
		Offers:       []offer.Offer{ship},
		DeliveryCost: d("6.50"),
	})
	require.NoError(t, err)
	requireDecimal(t, "60", over.Subtotal)
	requireDecimal(t, "0", over.DeliveryCost)
	require.NotNil(t, over.FreeShippingOffer)
	requireDecimal(t, "60", over.Total)

	under, err := engine.QuoteOrder(OrderInput{
		Lines:        []Line{{ProductID: "p1", BasePrice: d("8"), Quantity: 5, Offers: []offer.Offer{ship}}},
		DeliveryCost: d("6.50"),
	})
	require.NoError(t, err)
	requireDecimal(t, "40", under.Subtotal)
	requireDecimal(t, "6.5", under.DeliveryCost)
	require.Nil(t, under.FreeShippingOffer)
	require.ErrorIs(t, obs.skipped["ship50"], ErrNotApplicable)
}

func TestQuoteOrderUsesDiscountedSubtotalForFreeShipping(t *testing.T) {
	engine, _ := testEngine()
	ship := active("ship50", offer.FreeShipping{MinimumOrderValue: d("50.00")})
	pct := active("pct", offer.PercentOff{Percentage: dp("20")})
	quote, err := engine.QuoteOrder(OrderInput{
		Lines:        []Line{{ProductID: "p1", BasePrice: d("11"), Quantity: 5, Offers: []offer.Offer{pct}}},
		Offers:       []offer.Offer{ship},
		DeliveryCost: d("3"),
	})
	require.NoError(t, err)
	requireDecimal(t, "44", quote.Subtotal)
	requireDecimal(t, "3", quote.DeliveryCost)
	requireDecimal(t, "11", quote.Savings)
}

func TestQuoteOrderAppliesFees(t *testing.T) {
	engine, _ := testEngine()
	engine.Fees = FeeSchedule{RatePercent: d("5.5"), Fixed: d("0.30")}
	quote, err := engine.QuoteOrder(OrderInput{
		Lines: []Line{
			{ProductID: "p1", BasePrice: d("9"), Quantity: 3, Offers: []offer.Offer{active("b2g1", offer.BuyXGetY{Buy: 2, Get: 1})}},
			{ProductID: "p2", BasePrice: d("2.50"), Quantity: 4},
		},
		DeliveryCost: d("5"),
	})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 2)
	requireDecimal(t, "18", quote.Lines[0].TotalCost)
	requireDecimal(t, "28", quote.Subtotal)
	requireDecimal(t, "1.84", quote.TransactionFee)
	requireDecimal(t, "34.84", quote.Total)
}

func TestQuoteOrderRejectsInvalidLine(t *testing.T) {
	engine, _ := testEngine()
	_, err := engine.QuoteOrder(OrderInput{Lines: []Line{{ProductID: "p1", BasePrice: d("1"), Quantity: 0}}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
