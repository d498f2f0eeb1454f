package pricing

import (
	"cmp"
	"slices"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

// ResolveTier returns the tier with the largest MinQuantity not above quantity.
// Input order is not assumed. Tiers sharing a MinQuantity resolve to the one
// supplied last. ok is false when quantity is below every tier.
func ResolveTier(tiers []offer.Tier, quantity int) (tier offer.Tier, ok bool) {
	if len(tiers) == 0 {
		return offer.Tier{}, false
	}
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b offer.Tier) int {
		return cmp.Compare(max(a.MinQuantity, 0), max(b.MinQuantity, 0))
	})
	for _, t := range sorted {
		if max(t.MinQuantity, 0) > quantity {
			break
		}
		tier, ok = t, true
	}
	return tier, ok
}
