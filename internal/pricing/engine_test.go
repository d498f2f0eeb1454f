package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal { return offer.Dec(d(s)) }

func intp(v int) *int { return &v }

type recordingObserver struct {
	skipped map[string]error
	applied []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{skipped: map[string]error{}}
}

func (r *recordingObserver) OfferSkipped(o offer.Offer, reason error) { r.skipped[o.ID] = reason }
func (r *recordingObserver) OfferApplied(o offer.Offer, _ Result)     { r.applied = append(r.applied, o.ID) }

func testEngine() (*Engine, *recordingObserver) {
	obs := newRecordingObserver()
	return &Engine{Now: func() time.Time { return fixedNow }, Observer: obs}, obs
}

func active(id string, terms offer.Terms) offer.Offer {
	return offer.Offer{ID: id, Name: id, IsActive: true, Terms: terms}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s got %s", want, got)
}

func TestCalculateNoOffers(t *testing.T) {
	res, err := CalculatePromotionalPricing(d("10.00"), 5, nil, nil, false)
	require.NoError(t, err)
	requireDecimal(t, "10", res.OriginalPrice)
	requireDecimal(t, "10", res.EffectivePrice)
	requireDecimal(t, "50", res.TotalCost)
	requireDecimal(t, "0", res.DiscountAmount)
	require.Nil(t, res.AppliedOffer)
	require.False(t, res.PromoApplied)
}

func TestCalculatePercentageDiscount(t *testing.T) {
	engine, obs := testEngine()
	o := active("pct20", offer.PercentOff{Percentage: dp("20")})
	res, err := engine.Calculate(Input{BasePrice: d("10.00"), Quantity: 5, Offers: []offer.Offer{o}})
	require.NoError(t, err)
	requireDecimal(t, "8", res.EffectivePrice)
	requireDecimal(t, "40", res.TotalCost)
	requireDecimal(t, "2", res.DiscountAmount)
	requireDecimal(t, "10", res.Savings)
	require.NotNil(t, res.AppliedOffer)
	require.Equal(t, "pct20", res.AppliedOffer.ID)
	require.Equal(t, []string{"pct20"}, obs.applied)
}

func TestCalculateBulkTierSelection(t *testing.T) {
	engine, _ := testEngine()
	o := active("bulk", offer.Tiered{PriceOnly: true, Tiers: []offer.Tier{
		{MinQuantity: 10, PricePerUnit: dp("8.00")},
		{MinQuantity: 50, PricePerUnit: dp("6.00")},
	}})
	res, err := engine.Calculate(Input{BasePrice: d("10.00"), Quantity: 60, Offers: []offer.Offer{o}})
	require.NoError(t, err)
	requireDecimal(t, "6", res.EffectivePrice)
	requireDecimal(t, "360", res.TotalCost)
}

func TestCalculateBOGOBundleArithmetic(t *testing.T) {
	engine, _ := testEngine()
	o := active("b2g1", offer.BuyXGetY{Buy: 2, Get: 1})

	res, err := engine.Calculate(Input{BasePrice: d("9.00"), Quantity: 3, Offers: []offer.Offer{o}})
	require.NoError(t, err)
	requireDecimal(t, "18", res.TotalCost)
	requireDecimal(t, "6", res.EffectivePrice)

	res, err = engine.Calculate(Input{BasePrice: d("9.00"), Quantity: 7, Offers: []offer.Offer{o}})
	require.NoError(t, err)
	// two bundles of three (4 units charged) plus one leftover at base
	requireDecimal(t, "45", res.TotalCost)
	requireDecimal(t, "6.43", res.EffectivePrice)
}

func TestCalculateBOGOGuards(t *testing.T) {
	engine, obs := testEngine()
	zeroGet := active("zero-get", offer.BuyXGetY{Buy: 2, Get: 0})
	noBuy := active("no-buy", offer.BuyXGetY{Get: 1})
	short := active("short", offer.BuyXGetY{Buy: 3, Get: 1})
	res, err := engine.Calculate(Input{BasePrice: d("5"), Quantity: 2, Offers: []offer.Offer{zeroGet, noBuy, short}})
	require.NoError(t, err)
	requireDecimal(t, "5", res.EffectivePrice)
	require.Nil(t, res.AppliedOffer)
	require.ErrorIs(t, obs.skipped["zero-get"], ErrNoBenefit)
	require.ErrorIs(t, obs.skipped["no-buy"], ErrMalformedOffer)
	require.ErrorIs(t, obs.skipped["short"], ErrNotApplicable)
}

func TestCalculateExcludesIneligibleOffers(t *testing.T) {
	engine, obs := testEngine()
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	expired := active("expired", offer.PercentOff{Percentage: dp("90")})
	expired.EndDate = &past
	upcoming := active("upcoming", offer.PercentOff{Percentage: dp("90")})
	upcoming.StartDate = &future
	exhausted := active("exhausted", offer.PercentOff{Percentage: dp("90")})
	exhausted.MaxUses = intp(3)
	exhausted.UsesCount = 3
	inactive := active("inactive", offer.PercentOff{Percentage: dp("90")})
	inactive.IsActive = false
	perCustomer := active("per-customer", offer.PercentOff{Percentage: dp("90")})
	perCustomer.MaxUsesPerCustomer = intp(1)
	modest := active("modest", offer.PercentOff{Percentage: dp("10")})

	res, err := engine.Calculate(Input{
		BasePrice:    d("10"),
		Quantity:     1,
		Offers:       []offer.Offer{expired, upcoming, exhausted, inactive, perCustomer, modest},
		CustomerUses: map[string]int{"per-customer": 1},
	})
	require.NoError(t, err)
	require.Equal(t, "modest", res.AppliedOffer.ID)
	requireDecimal(t, "9", res.EffectivePrice)
	require.ErrorIs(t, obs.skipped["expired"], offer.ErrExpired)
	require.ErrorIs(t, obs.skipped["upcoming"], offer.ErrNotStarted)
	require.ErrorIs(t, obs.skipped["exhausted"], offer.ErrUsageExhausted)
	require.ErrorIs(t, obs.skipped["inactive"], offer.ErrInactive)
	require.ErrorIs(t, obs.skipped["per-customer"], offer.ErrCustomerLimitReached)
}

func TestCalculateSelectsMinimumAndBreaksTiesByOrder(t *testing.T) {
	engine, _ := testEngine()
	first := active("first", offer.AmountOff{Amount: dp("2")})
	second := active("second", offer.PercentOff{Percentage: dp("20")})
	better := active("better", offer.FixedPrice{Price: dp("7.50")})

	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 4, Offers: []offer.Offer{first, second}})
	require.NoError(t, err)
	require.Equal(t, "first", res.AppliedOffer.ID)

	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 4, Offers: []offer.Offer{first, second, better}})
	require.NoError(t, err)
	require.Equal(t, "better", res.AppliedOffer.ID)
	requireDecimal(t, "30", res.TotalCost)
}

func TestCalculatePromoPrice(t *testing.T) {
	engine, _ := testEngine()
	o := active("pct10", offer.PercentOff{Percentage: dp("10")})

	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{o}, PromoPrice: dp("8.50"), PromoActive: true})
	require.NoError(t, err)
	require.True(t, res.PromoApplied)
	require.Nil(t, res.AppliedOffer)
	requireDecimal(t, "8.5", res.EffectivePrice)

	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{o}, PromoPrice: dp("8.50"), PromoActive: false})
	require.NoError(t, err)
	require.False(t, res.PromoApplied)
	require.Equal(t, "pct10", res.AppliedOffer.ID)

	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{o}, PromoPrice: dp("9.00"), PromoActive: true})
	require.NoError(t, err)
	require.False(t, res.PromoApplied, "offer wins a tie with the promo price")

	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, PromoPrice: dp("12.00"), PromoActive: true})
	require.NoError(t, err)
	require.False(t, res.PromoApplied)
	requireDecimal(t, "10", res.EffectivePrice)
}

func TestCalculateQuantityLimits(t *testing.T) {
	engine, obs := testEngine()
	capped := active("capped", offer.PercentOff{Percentage: dp("50"), Limits: offer.QuantityLimits{Max: 2}})
	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 4, Offers: []offer.Offer{capped}})
	require.NoError(t, err)
	// two units at 5.00, two at 10.00
	requireDecimal(t, "30", res.TotalCost)
	requireDecimal(t, "7.5", res.EffectivePrice)

	minimum := active("minimum", offer.AmountOff{Amount: dp("1"), Limits: offer.QuantityLimits{Min: 5}})
	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 4, Offers: []offer.Offer{minimum}})
	require.NoError(t, err)
	require.Nil(t, res.AppliedOffer)
	require.ErrorIs(t, obs.skipped["minimum"], ErrNotApplicable)
}

func TestCalculateClampsAndMalformedOffers(t *testing.T) {
	engine, obs := testEngine()
	huge := active("huge", offer.AmountOff{Amount: dp("25")})
	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 3, Offers: []offer.Offer{huge}})
	require.NoError(t, err)
	requireDecimal(t, "0", res.EffectivePrice)
	requireDecimal(t, "0", res.TotalCost)

	negative := active("negative", offer.PercentOff{Percentage: dp("-30")})
	missing := active("missing", offer.FixedPrice{})
	overpriced := active("overpriced", offer.FixedPrice{Price: dp("12")})
	unknown := active("unknown", offer.Unknown{RawType: "mystery_box"})
	nilTerms := active("nil-terms", nil)
	res, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: 1, Offers: []offer.Offer{negative, missing, overpriced, unknown, nilTerms}})
	require.NoError(t, err)
	require.Nil(t, res.AppliedOffer)
	requireDecimal(t, "10", res.EffectivePrice)
	require.ErrorIs(t, obs.skipped["negative"], ErrNoBenefit)
	require.ErrorIs(t, obs.skipped["missing"], ErrMalformedOffer)
	require.ErrorIs(t, obs.skipped["overpriced"], ErrNoBenefit)
	require.ErrorIs(t, obs.skipped["unknown"], ErrNotApplicable)
	require.ErrorIs(t, obs.skipped["nil-terms"], ErrNotApplicable)
}

func TestCalculateSkipsUndecodableOffer(t *testing.T) {
	engine, obs := testEngine()
	broken := active("broken", offer.Malformed{RawType: "percentage_discount", Reason: `invalid endDate "31/12/2025"`})
	good := active("good", offer.PercentOff{Percentage: dp("10")})
	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{broken, good}})
	require.NoError(t, err)
	require.Equal(t, "good", res.AppliedOffer.ID)
	requireDecimal(t, "18", res.TotalCost)
	require.ErrorIs(t, obs.skipped["broken"], ErrMalformedOffer)
}

func TestCalculateMultiBuy(t *testing.T) {
	engine, obs := testEngine()
	pct := active("pct", offer.MultiBuy{Threshold: 3, Adjustment: offer.Adjustment{Kind: offer.DiscountPercentage, Value: dp("25")}})
	res, err := engine.Calculate(Input{BasePrice: d("4"), Quantity: 3, Offers: []offer.Offer{pct}})
	require.NoError(t, err)
	requireDecimal(t, "3", res.EffectivePrice)

	fixed := active("fixed", offer.MultiBuy{Threshold: 3, Adjustment: offer.Adjustment{Kind: offer.DiscountFixed, Value: dp("0.50")}})
	res, err = engine.Calculate(Input{BasePrice: d("4"), Quantity: 2, Offers: []offer.Offer{fixed}})
	require.NoError(t, err)
	require.Nil(t, res.AppliedOffer)
	require.ErrorIs(t, obs.skipped["fixed"], ErrNotApplicable)

	noKind := active("no-kind", offer.MultiBuy{Threshold: 1, Adjustment: offer.Adjustment{Value: dp("1")}})
	_, err = engine.Calculate(Input{BasePrice: d("4"), Quantity: 2, Offers: []offer.Offer{noKind}})
	require.NoError(t, err)
	require.ErrorIs(t, obs.skipped["no-kind"], ErrMalformedOffer)
}

func TestCalculateBulkDiscountFallbacks(t *testing.T) {
	engine, obs := testEngine()
	o := active("bulk-discount", offer.Tiered{Tiers: []offer.Tier{
		{MinQuantity: 5, DiscountPercentage: dp("10")},
		{MinQuantity: 20, DiscountAmount: dp("3")},
		{MinQuantity: 100, PricePerUnit: dp("5")},
	}})
	cases := map[int]string{5: "9", 20: "7", 150: "5"}
	for qty, want := range cases {
		res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: qty, Offers: []offer.Offer{o}})
		require.NoError(t, err)
		requireDecimal(t, want, res.EffectivePrice)
	}

	priceOnly := active("price-only", offer.Tiered{PriceOnly: true, Tiers: []offer.Tier{{MinQuantity: 1, DiscountPercentage: dp("10")}}})
	_, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{priceOnly}})
	require.NoError(t, err)
	require.ErrorIs(t, obs.skipped["price-only"], ErrMalformedOffer)
}

func TestCalculateOrderLevelOffersDeferred(t *testing.T) {
	engine, obs := testEngine()
	ship := active("ship", offer.FreeShipping{MinimumOrderValue: d("10")})
	bundle := active("bundle", offer.Bundle{Products: []string{"a", "b"}, Price: dp("5")})
	res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 2, Offers: []offer.Offer{ship, bundle}})
	require.NoError(t, err)
	require.Nil(t, res.AppliedOffer)
	require.ErrorIs(t, obs.skipped["ship"], ErrOrderLevel)
	require.ErrorIs(t, obs.skipped["bundle"], ErrOrderLevel)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	engine, _ := testEngine()
	_, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: 0})
	require.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = engine.Calculate(Input{BasePrice: d("10"), Quantity: -2})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = engine.Calculate(Input{BasePrice: d("-0.01"), Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCalculateProperties(t *testing.T) {
	engine, _ := testEngine()
	offers := []offer.Offer{
		active("pct", offer.PercentOff{Percentage: dp("15")}),
		active("amt", offer.AmountOff{Amount: dp("1.25")}),
		active("bogo", offer.BuyXGetY{Buy: 3, Get: 1}),
		active("multi", offer.MultiBuy{Threshold: 12, Adjustment: offer.Adjustment{Kind: offer.DiscountPercentage, Value: dp("22")}}),
		active("tiers", offer.Tiered{Tiers: []offer.Tier{{MinQuantity: 6, DiscountAmount: dp("2")}, {MinQuantity: 30, PricePerUnit: dp("4.10")}}}),
	}
	for _, base := range []string{"0", "0.99", "7.49", "12.00", "250.10"} {
		for qty := 1; qty <= 40; qty++ {
			in := Input{BasePrice: d(base), Quantity: qty, Offers: offers}
			first, err := engine.Calculate(in)
			require.NoError(t, err)
			require.False(t, first.EffectivePrice.IsNegative())
			require.True(t, first.EffectivePrice.LessThanOrEqual(first.OriginalPrice), "base %s qty %d", base, qty)
			require.True(t, first.TotalCost.LessThanOrEqual(first.OriginalPrice.Mul(decimal.NewFromInt(int64(qty)))))

			second, err := engine.Calculate(in)
			require.NoError(t, err)
			require.Equal(t, first, second)
		}
	}
}

func TestCalculateBulkTierMonotonic(t *testing.T) {
	engine, _ := testEngine()
	o := active("tiers", offer.Tiered{Tiers: []offer.Tier{
		{MinQuantity: 50, PricePerUnit: dp("6.00")},
		{MinQuantity: 10, PricePerUnit: dp("8.00")},
		{MinQuantity: 25, DiscountPercentage: dp("25")},
	}})
	previous := d("10")
	for qty := 1; qty <= 120; qty++ {
		res, err := engine.Calculate(Input{BasePrice: d("10"), Quantity: qty, Offers: []offer.Offer{o}})
		require.NoError(t, err)
		require.True(t, res.EffectivePrice.LessThanOrEqual(previous), "qty %d raised price to %s", qty, res.EffectivePrice)
		previous = res.EffectivePrice
	}
}
