package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

func TestEvaluateBundleFixedPrice(t *testing.T) {
	o := active("duo", offer.Bundle{Products: []string{"a", "b"}, Price: dp("8")})
	quote, err := EvaluateBundle(o, []BundleLine{
		{ProductID: "a", BasePrice: d("6"), Quantity: 2},
		{ProductID: "b", BasePrice: d("4"), Quantity: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 2, quote.Bundles)
	requireDecimal(t, "9.6", quote.LineTotals["a"])
	requireDecimal(t, "10.4", quote.LineTotals["b"])
	requireDecimal(t, "20", quote.Total)
}

func TestEvaluateBundleAdjustment(t *testing.T) {
	o := active("trio", offer.Bundle{
		Products:   []string{"a", "b", "c"},
		Adjustment: offer.Adjustment{Kind: offer.DiscountPercentage, Value: dp("10")},
	})
	quote, err := EvaluateBundle(o, []BundleLine{
		{ProductID: "a", BasePrice: d("1"), Quantity: 1},
		{ProductID: "b", BasePrice: d("1"), Quantity: 1},
		{ProductID: "c", BasePrice: d("1"), Quantity: 1},
	})
	require.NoError(t, err)
	requireDecimal(t, "2.7", quote.Total)
	requireDecimal(t, "0.9", quote.LineTotals["a"])
	requireDecimal(t, "0.9", quote.LineTotals["c"])
}

func TestEvaluateBundleGuards(t *testing.T) {
	lines := []BundleLine{{ProductID: "a", BasePrice: d("5"), Quantity: 1}}

	_, err := EvaluateBundle(active("missing", offer.Bundle{Products: []string{"a", "z"}, Price: dp("1")}), lines)
	require.ErrorIs(t, err, ErrNotApplicable)

	_, err = EvaluateBundle(active("empty", offer.Bundle{Price: dp("1")}), lines)
	require.ErrorIs(t, err, ErrNotApplicable)

	_, err = EvaluateBundle(active("free-items", offer.Bundle{Products: []string{"x"}, Price: dp("0")}), []BundleLine{{ProductID: "x", BasePrice: d("0"), Quantity: 2}})
	require.ErrorIs(t, err, ErrNotApplicable)

	_, err = EvaluateBundle(active("dearer", offer.Bundle{Products: []string{"a"}, Price: dp("6")}), lines)
	require.ErrorIs(t, err, ErrNoBenefit)

	_, err = EvaluateBundle(active("no-value", offer.Bundle{Products: []string{"a"}}), lines)
	require.ErrorIs(t, err, ErrMalformedOffer)

	_, err = EvaluateBundle(active("wrong-type", offer.PercentOff{Percentage: dp("5")}), lines)
	require.ErrorIs(t, err, ErrNotApplicable)
}

func TestQuoteOrderAppliesBundleWhenCheaper(t *testing.T) {
	engine, _ := testEngine()
	duo := active("duo", offer.Bundle{Products: []string{"a", "b"}, Price: dp("8")})
	quote, err := engine.QuoteOrder(OrderInput{
		Lines: []Line{
			{ProductID: "a", BasePrice: d("6"), Quantity: 2, Offers: []offer.Offer{duo}},
			{ProductID: "b", BasePrice: d("4"), Quantity: 3},
			{ProductID: "c", BasePrice: d("1"), Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, quote.BundleOffers, 1)
	require.Equal(t, "duo", quote.Lines[0].AppliedOffer.ID)
	require.Equal(t, "duo", quote.Lines[1].AppliedOffer.ID)
	require.Nil(t, quote.Lines[2].AppliedOffer)
	requireDecimal(t, "9.6", quote.Lines[0].TotalCost)
	requireDecimal(t, "4.8", quote.Lines[0].EffectivePrice)
	requireDecimal(t, "10.4", quote.Lines[1].TotalCost)
	requireDecimal(t, "21", quote.Subtotal)
	requireDecimal(t, "4", quote.Savings)
}

func TestQuoteOrderKeepsBetterLineOffers(t *testing.T) {
	engine, obs := testEngine()
	duo := active("duo", offer.Bundle{Products: []string{"a", "b"}, Price: dp("8")})
	half := active("half", offer.PercentOff{Percentage: dp("50")})
	quote, err := engine.QuoteOrder(OrderInput{
		Lines: []Line{
			{ProductID: "a", BasePrice: d("6"), Quantity: 1, Offers: []offer.Offer{half}},
			{ProductID: "b", BasePrice: d("4"), Quantity: 1, Offers: []offer.Offer{half}},
		},
		Offers: []offer.Offer{duo},
	})
	require.NoError(t, err)
	require.Empty(t, quote.BundleOffers)
	require.Equal(t, "half", quote.Lines[0].AppliedOffer.ID)
	requireDecimal(t, "5", quote.Subtotal)
	require.ErrorIs(t, obs.skipped["duo"], ErrNoBenefit)
}

func TestEvaluateBundleNeverChargesAboveBase(t *testing.T) {
	o := active("kit", offer.Bundle{Products: []string{"a", "b", "c"}, Price: dp("20")})
	lines := []BundleLine{
		{ProductID: "a", BasePrice: d("10"), Quantity: 1},
		{ProductID: "b", BasePrice: d("10"), Quantity: 1},
		{ProductID: "c", BasePrice: d("0.05"), Quantity: 1},
	}
	quote, err := EvaluateBundle(o, lines)
	require.NoError(t, err)
	requireDecimal(t, "20", quote.Total)
	for _, line := range lines {
		total := quote.LineTotals[line.ProductID]
		require.False(t, total.GreaterThan(line.BasePrice), "line %s charged %s above base %s", line.ProductID, total, line.BasePrice)
		require.False(t, total.IsNegative())
	}
	requireDecimal(t, "9.99", quote.LineTotals["a"])
	requireDecimal(t, "9.97", quote.LineTotals["b"])
	requireDecimal(t, "0.04", quote.LineTotals["c"])
}
