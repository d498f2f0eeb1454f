package campaign

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

func dp(s string) *decimal.Decimal { return offer.Dec(decimal.RequireFromString(s)) }

func TestPhrase(t *testing.T) {
	cases := []struct {
		terms offer.Terms
		want  string
	}{
		{offer.PercentOff{Percentage: dp("20")}, "20% OFF"},
		{offer.PercentOff{Percentage: dp("12.5"), Limits: offer.QuantityLimits{Min: 3}}, "12.5% OFF when you buy 3+"},
		{offer.AmountOff{Amount: dp("1.5")}, "£1.50 OFF each"},
		{offer.FixedPrice{Price: dp("7")}, "Now £7.00 each"},
		{offer.BuyXGetY{Buy: 2, Get: 1}, "Buy 2 Get 1 FREE"},
		{offer.MultiBuy{Threshold: 6, Adjustment: offer.Adjustment{Kind: offer.DiscountFixed, Value: dp("0.5")}}, "Buy 6+ and save £0.50 each"},
		{offer.Tiered{PriceOnly: true, Tiers: []offer.Tier{{MinQuantity: 50, PricePerUnit: dp("6")}, {MinQuantity: 10, PricePerUnit: dp("8")}}}, "Bulk: 10+ units £8.00 each; 50+ units £6.00 each"},
		{offer.Tiered{Tiers: []offer.Tier{{MinQuantity: 5, DiscountPercentage: dp("5")}}}, "Bulk: 5+ units 5% OFF"},
		{offer.Bundle{Products: []string{"a", "b", "c"}, Price: dp("20")}, "Bundle of 3 for £20.00"},
		{offer.Bundle{Products: []string{"a", "b"}, Adjustment: offer.Adjustment{Kind: offer.DiscountPercentage, Value: dp("10")}}, "Bundle of 2: save 10%"},
		{offer.FreeShipping{MinimumOrderValue: decimal.NewFromInt(1500)}, "FREE delivery over £1,500.00"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Phrase(offer.Offer{Terms: tc.terms}, "GBP"))
	}
}

func TestPhraseFallsBackToDescription(t *testing.T) {
	o := offer.Offer{Name: "Mystery", Description: "Surprise gift with every order", Terms: offer.Unknown{RawType: "gift"}}
	require.Equal(t, "Surprise gift with every order", Phrase(o, "GBP"))
	require.Equal(t, "Mystery", Phrase(offer.Offer{Name: "Mystery", Terms: offer.FixedPrice{}}, "GBP"))
}

func TestDescribeAddsBadge(t *testing.T) {
	offers := []offer.Offer{
		{Name: "Spring sale", IsActive: true, Terms: offer.PercentOff{Percentage: dp("20")}},
		{IsActive: true, Terms: offer.BuyXGetY{Buy: 2, Get: 1}},
	}
	result, err := pricing.CalculatePromotionalPricing(decimal.NewFromInt(10), 5, offers, nil, false)
	require.NoError(t, err)
	text := Describe(offers, result, "USD", time.Now())
	require.Equal(t, "Spring sale: 20% OFF\nBuy 2 Get 1 FREE\nPROMO $8.00 each (was $10.00)", text)

	plain, err := pricing.CalculatePromotionalPricing(decimal.NewFromInt(10), 1, nil, nil, false)
	require.NoError(t, err)
	require.Empty(t, Badge(plain, "GBP"))
}

func TestLinesSkipIneligibleOffers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)
	upcoming := now.Add(time.Hour)
	maxUses := 3
	offers := []offer.Offer{
		{Name: "Half price", IsActive: true, EndDate: &ended, Terms: offer.PercentOff{Percentage: dp("50")}},
		{Name: "Paused", IsActive: false, Terms: offer.PercentOff{Percentage: dp("40")}},
		{Name: "Soon", IsActive: true, StartDate: &upcoming, Terms: offer.AmountOff{Amount: dp("2")}},
		{Name: "Sold out", IsActive: true, MaxUses: &maxUses, UsesCount: 3, Terms: offer.FixedPrice{Price: dp("1")}},
		{Name: "Broken", IsActive: true, Terms: offer.Malformed{RawType: "percentage_discount", Reason: "bad endDate"}},
		{IsActive: true, Terms: offer.BuyXGetY{Buy: 2, Get: 1}},
	}
	result, err := pricing.CalculatePromotionalPricing(decimal.NewFromInt(10), 1, nil, nil, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Buy 2 Get 1 FREE"}, Lines(offers, result, "GBP", now))
}
