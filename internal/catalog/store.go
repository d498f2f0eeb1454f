package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pricing/internal/money"
	"github.com/noah-isme/backend-pricing/internal/offer"
)

// ErrProductNotFound is returned when no product has the requested id.
var ErrProductNotFound = errors.New("catalog: product not found")

// Product is the priced view of a catalog product.
type Product struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	BasePrice   decimal.Decimal  `json:"basePrice"`
	PromoPrice  *decimal.Decimal `json:"promoPrice,omitempty"`
	PromoActive bool             `json:"promoActive"`
	Currency    money.Currency   `json:"currency"`
}

type queryProvider interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProductOffers(ctx context.Context, productID uuid.UUID) ([]offer.Offer, error)
	ListOrderOffers(ctx context.Context) ([]offer.Offer, error)
}

// PGStore reads products and offers from Postgres. Prices are stored in minor
// units and offers as their JSON definition.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const getProductSQL = `
SELECT id, name, base_price_minor, promo_price_minor, promo_active, currency
FROM products
WHERE id = $1`

// GetProduct loads a single product.
func (s *PGStore) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var (
		p          Product
		baseMinor  int64
		promoMinor *int64
		currency   string
	)
	err := s.pool.QueryRow(ctx, getProductSQL, id).Scan(&p.ID, &p.Name, &baseMinor, &promoMinor, &p.PromoActive, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	p.BasePrice = money.FromMinor(baseMinor)
	if promoMinor != nil {
		promo := money.FromMinor(*promoMinor)
		p.PromoPrice = &promo
	}
	p.Currency = money.ParseCurrency(strings.TrimSpace(currency))
	return p, nil
}

const listProductOffersSQL = `
SELECT o.id, o.type, o.definition
FROM product_offers po
JOIN offers o ON o.id = po.offer_id
WHERE po.product_id = $1
ORDER BY po.position, o.id`

// ListProductOffers returns the offers attached to a product in display order.
func (s *PGStore) ListProductOffers(ctx context.Context, productID uuid.UUID) ([]offer.Offer, error) {
	rows, err := s.pool.Query(ctx, listProductOffersSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("list offers for %s: %w", productID, err)
	}
	return collectOffers(rows)
}

const listOrderOffersSQL = `
SELECT id, type, definition
FROM offers
WHERE scope = 'order'
ORDER BY updated_at, id`

// ListOrderOffers returns offers that act on whole orders.
func (s *PGStore) ListOrderOffers(ctx context.Context) ([]offer.Offer, error) {
	rows, err := s.pool.Query(ctx, listOrderOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("list order offers: %w", err)
	}
	return collectOffers(rows)
}

// collectOffers decodes rows of (id, type, definition). The row's id and type
// columns override whatever the stored definition says. A definition that does
// not decode yields a Malformed offer so the rest of the product still prices.
func collectOffers(rows pgx.Rows) ([]offer.Offer, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (offer.Offer, error) {
		var (
			id, typ    string
			definition []byte
		)
		if err := row.Scan(&id, &typ, &definition); err != nil {
			return offer.Offer{}, err
		}
		return decodeStored(id, typ, definition), nil
	})
}

func decodeStored(id, typ string, definition []byte) offer.Offer {
	o, err := DecodeOffer(id, typ, definition)
	if err != nil {
		return offer.Offer{
			ID:       id,
			Type:     offer.Type(typ),
			IsActive: true,
			Terms:    offer.Malformed{RawType: typ, Reason: err.Error()},
		}
	}
	return o
}

// DecodeOffer parses a stored offer definition.
func DecodeOffer(id, typ string, definition []byte) (offer.Offer, error) {
	fields := map[string]json.RawMessage{}
	if len(definition) > 0 {
		if err := json.Unmarshal(definition, &fields); err != nil {
			return offer.Offer{}, fmt.Errorf("decode offer %s: %w", id, err)
		}
	}
	var err error
	if fields["id"], err = json.Marshal(id); err != nil {
		return offer.Offer{}, err
	}
	if fields["type"], err = json.Marshal(typ); err != nil {
		return offer.Offer{}, err
	}
	normalised, err := json.Marshal(fields)
	if err != nil {
		return offer.Offer{}, fmt.Errorf("encode offer %s: %w", id, err)
	}
	var o offer.Offer
	if err := json.Unmarshal(normalised, &o); err != nil {
		return offer.Offer{}, fmt.Errorf("decode offer %s: %w", id, err)
	}
	return o, nil
}
