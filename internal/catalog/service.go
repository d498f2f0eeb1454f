package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/offer"
	"github.com/noah-isme/backend-pricing/internal/pricing"
	"github.com/noah-isme/backend-pricing/internal/resilience"
)

// ErrInvalidProductID is returned for ids that are not UUIDs.
var ErrInvalidProductID = errors.New("catalog: product id must be a UUID")

// ProductQuote is a product priced with its attached offers.
type ProductQuote struct {
	Product Product        `json:"product"`
	Offers  []offer.Offer  `json:"offers"`
	Result  pricing.Result `json:"result"`

	// Version is the offer-set version the quote was computed against.
	Version  int64     `json:"offerSetVersion"`
	// QuotedAt is the evaluation instant of Result.
	QuotedAt time.Time `json:"quotedAt"`
	Cached   bool      `json:"cached"`
}

// LineRef identifies a catalog product and quantity in an order.
type LineRef struct {
	ProductID string
	Quantity  int
}

// Service loads catalog data and prices it with the pricing engine.
type Service struct {
	queries queryProvider
	cache   *QuoteCache
	engine  *pricing.Engine
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	// Cache is optional; quotes are computed on every call without it.
	Cache  *QuoteCache
	Engine *pricing.Engine
	Logger zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	engine := cfg.Engine
	if engine == nil {
		engine = &pricing.Engine{}
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, engine: engine, logger: cfg.Logger}, nil
}

// Engine returns the engine quotes are computed with.
func (s *Service) Engine() *pricing.Engine { return s.engine }

// QuoteProduct prices quantity units of a product. Results are served from
// the quote cache when one exists for the current offer-set version.
func (s *Service) QuoteProduct(ctx context.Context, productID string, quantity int) (ProductQuote, error) {
	id, err := parseProductID(productID)
	if err != nil {
		return ProductQuote{}, err
	}
	if quantity < 1 {
		return ProductQuote{}, fmt.Errorf("%w: got %d", pricing.ErrInvalidQuantity, quantity)
	}

	now := s.now()
	version, err := s.cache.Version(ctx)
	cacheUsable := err == nil
	if err != nil {
		s.cacheFailed(err, id, "read offer-set version")
	}
	if cacheUsable {
		if cached, found, err := s.cache.Get(ctx, version, id, quantity); err != nil {
			s.cacheFailed(err, id, "read quote cache")
		} else if found && !stale(cached, now) {
			obs.ObserveCache("hit")
			cached.Cached = true
			return cached, nil
		} else if found {
			obs.ObserveCache("stale")
		} else {
			obs.ObserveCache("miss")
		}
	}

	product, offers, err := s.load(ctx, id)
	if err != nil {
		return ProductQuote{}, err
	}
	result, err := s.engine.Calculate(pricing.Input{
		BasePrice:   product.BasePrice,
		Quantity:    quantity,
		Offers:      offers,
		PromoPrice:  product.PromoPrice,
		PromoActive: product.PromoActive,
		At:          now,
	})
	if err != nil {
		return ProductQuote{}, err
	}
	quote := ProductQuote{Product: product, Offers: offers, Result: result, Version: version, QuotedAt: now}
	if cacheUsable {
		if err := s.cache.Set(ctx, version, id, quantity, quote); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
			s.logger.Warn().Err(err).Str("product_id", id.String()).Msg("write quote cache")
		}
	}
	return quote, nil
}

func (s *Service) now() time.Time {
	if s.engine.Now != nil {
		return s.engine.Now()
	}
	return time.Now()
}

// cacheFailed records a cache call that did not complete. An open breaker is
// expected while Redis is down and is only counted.
func (s *Service) cacheFailed(err error, id uuid.UUID, msg string) {
	if errors.Is(err, resilience.ErrOpenCircuit) {
		obs.ObserveCache("bypass")
		return
	}
	obs.ObserveCache("error")
	s.logger.Warn().Err(err).Str("product_id", id.String()).Msg(msg)
}

// ResolveLines loads the products behind refs as engine order lines.
func (s *Service) ResolveLines(ctx context.Context, refs []LineRef) ([]pricing.Line, error) {
	lines := make([]pricing.Line, 0, len(refs))
	for _, ref := range refs {
		id, err := parseProductID(ref.ProductID)
		if err != nil {
			return nil, err
		}
		product, offers, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Line{
			ProductID:   product.ID.String(),
			BasePrice:   product.BasePrice,
			Quantity:    ref.Quantity,
			Offers:      offers,
			PromoPrice:  product.PromoPrice,
			PromoActive: product.PromoActive,
		})
	}
	return lines, nil
}

// OrderOffers returns the catalog's order-level offers.
func (s *Service) OrderOffers(ctx context.Context) ([]offer.Offer, error) {
	return s.queries.ListOrderOffers(ctx)
}

// QuoteOrder prices an order after appending the catalog's order-level
// offers to those supplied by the caller.
func (s *Service) QuoteOrder(ctx context.Context, in pricing.OrderInput) (pricing.OrderSummary, error) {
	orderOffers, err := s.OrderOffers(ctx)
	if err != nil {
		return pricing.OrderSummary{}, err
	}
	in.Offers = append(append([]offer.Offer{}, in.Offers...), orderOffers...)
	return s.engine.QuoteOrder(in)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (Product, []offer.Offer, error) {
	product, err := s.queries.GetProduct(ctx, id)
	if err != nil {
		return Product{}, nil, err
	}
	offers, err := s.queries.ListProductOffers(ctx, id)
	if err != nil {
		return Product{}, nil, err
	}
	return product, offers, nil
}

func parseProductID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidProductID, raw)
	}
	return id, nil
}
