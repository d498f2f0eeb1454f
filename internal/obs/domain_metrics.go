package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts quote requests by endpoint and outcome.
	QuotesTotal *prometheus.CounterVec
	// OffersAppliedTotal counts offers selected by the engine, by offer type.
	OffersAppliedTotal *prometheus.CounterVec
	// OffersSkippedTotal counts offers excluded from selection, by reason.
	OffersSkippedTotal *prometheus.CounterVec
	// QuoteCacheTotal counts quote cache lookups by result: hit, miss, stale
	// (an offer window moved since caching), error, or bypass while the cache
	// breaker is open.
	QuoteCacheTotal *prometheus.CounterVec
	// OfferSetInvalidations counts offer-set version bumps handled by the worker.
	OfferSetInvalidations prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers pricing collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of quote requests by endpoint and outcome.",
		}, []string{"endpoint", "result"})
		OffersAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_applied_total",
			Help:      "Count of offers selected as the best price.",
		}, []string{"type"})
		OffersSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_skipped_total",
			Help:      "Count of offers excluded from selection.",
		}, []string{"reason"})
		QuoteCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_total",
			Help:      "Quote cache lookups by result.",
		}, []string{"result"})
		OfferSetInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_set_invalidations_total",
			Help:      "Number of offer-set version bumps.",
		})

		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, OffersAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OffersAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, OffersSkippedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OffersSkippedTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteCacheTotal = v
			}
		})
		mustRegisterCollector(reg, OfferSetInvalidations, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OfferSetInvalidations = v
			}
		})
	})
}

// ObserveQuote records a quote outcome. It is a no-op before registration.
func ObserveQuote(endpoint, result string) {
	if QuotesTotal != nil {
		QuotesTotal.WithLabelValues(endpoint, result).Inc()
	}
}

// ObserveCache records a quote cache lookup result.
func ObserveCache(result string) {
	if QuoteCacheTotal != nil {
		QuoteCacheTotal.WithLabelValues(result).Inc()
	}
}

// ObserveInvalidation records an offer-set version bump.
func ObserveInvalidation() {
	if OfferSetInvalidations != nil {
		OfferSetInvalidations.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
