package catalog

import (
	"time"

	"github.com/noah-isme/backend-pricing/internal/offer"
)

// nextBoundary returns the earliest instant after at when one of the offers
// starts or stops being eligible by date. End dates are inclusive, so an offer
// drops out one nanosecond after its EndDate.
func nextBoundary(offers []offer.Offer, at time.Time) (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	consider := func(b time.Time) {
		if !b.After(at) {
			return
		}
		if !found || b.Before(next) {
			next, found = b, true
		}
	}
	for _, o := range offers {
		if o.StartDate != nil {
			consider(*o.StartDate)
		}
		if o.EndDate != nil {
			consider(o.EndDate.Add(time.Nanosecond))
		}
	}
	return next, found
}

// stale reports whether q may have changed because an offer window opened or
// closed between when it was computed and now.
func stale(q ProductQuote, now time.Time) bool {
	if q.QuotedAt.IsZero() {
		return true
	}
	b, ok := nextBoundary(q.Offers, q.QuotedAt)
	return ok && !now.Before(b)
}

func hasMalformed(offers []offer.Offer) bool {
	for _, o := range offers {
		if _, ok := o.Terms.(offer.Malformed); ok {
			return true
		}
	}
	return false
}
