package pricing

import (
	"errors"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

// Observer receives evaluation events. Implementations must be safe for
// concurrent use when the Engine is shared.
type Observer interface {
	// OfferSkipped is called for every offer excluded from selection together
	// with the reason it was excluded.
	OfferSkipped(o offer.Offer, reason error)
	// OfferApplied is called once per evaluation that selects an offer.
	OfferApplied(o offer.Offer, result Result)
}

// NopObserver discards all events.
type NopObserver struct{}

// OfferSkipped implements Observer.
func (NopObserver) OfferSkipped(offer.Offer, error) {}

// OfferApplied implements Observer.
func (NopObserver) OfferApplied(offer.Offer, Result) {}

// ReasonLabel maps an exclusion reason to a short, bounded label suitable for
// logs and metric dimensions.
func ReasonLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, offer.ErrInactive):
		return "inactive"
	case errors.Is(err, offer.ErrNotStarted):
		return "not_started"
	case errors.Is(err, offer.ErrExpired):
		return "expired"
	case errors.Is(err, offer.ErrUsageExhausted):
		return "usage_exhausted"
	case errors.Is(err, offer.ErrCustomerLimitReached):
		return "customer_limit"
	case errors.Is(err, ErrNotApplicable):
		return "not_applicable"
	case errors.Is(err, ErrMalformedOffer):
		return "malformed"
	case errors.Is(err, ErrNoBenefit):
		return "no_benefit"
	case errors.Is(err, ErrOrderLevel):
		return "order_level"
	default:
		return "other"
	}
}
