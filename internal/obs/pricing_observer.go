package obs

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// QuoteMeter counts evaluated offers through the OpenTelemetry metric API.
type QuoteMeter struct {
	evaluated metric.Int64Counter
}

// NewQuoteMeter creates the instruments on m.
func NewQuoteMeter(m metric.Meter) (*QuoteMeter, error) {
	evaluated, err := m.Int64Counter("pricing.offers.evaluated",
		metric.WithDescription("Offers evaluated by the pricing engine."),
		metric.WithUnit("{offer}"),
	)
	if err != nil {
		return nil, err
	}
	return &QuoteMeter{evaluated: evaluated}, nil
}

func (q *QuoteMeter) record(o offer.Offer, outcome string) {
	if q == nil || q.evaluated == nil {
		return
	}
	q.evaluated.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("offer.type", string(o.Type)),
		attribute.String("outcome", outcome),
	))
}

// PricingObserver reports engine decisions to zerolog, Prometheus and the
// OpenTelemetry meter. The zero value only feeds Prometheus.
type PricingObserver struct {
	Logger zerolog.Logger
	Meter  *QuoteMeter
}

var _ pricing.Observer = PricingObserver{}

// OfferSkipped implements pricing.Observer.
func (p PricingObserver) OfferSkipped(o offer.Offer, reason error) {
	label := pricing.ReasonLabel(reason)
	if OffersSkippedTotal != nil {
		OffersSkippedTotal.WithLabelValues(label).Inc()
	}
	p.Meter.record(o, label)
	p.Logger.Debug().
		Str("offer_id", o.ID).
		Str("offer_type", string(o.Type)).
		Str("reason", label).
		Err(reason).
		Msg("offer_skipped")
}

// OfferApplied implements pricing.Observer.
func (p PricingObserver) OfferApplied(o offer.Offer, result pricing.Result) {
	if OffersAppliedTotal != nil {
		OffersAppliedTotal.WithLabelValues(string(o.Type)).Inc()
	}
	p.Meter.record(o, "applied")
	p.Logger.Debug().
		Str("offer_id", o.ID).
		Str("offer_type", string(o.Type)).
		Int("quantity", result.Quantity).
		Str("total_cost", result.TotalCost.StringFixed(2)).
		Str("savings", result.Savings.StringFixed(2)).
		Msg("offer_applied")
}
