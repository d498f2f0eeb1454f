package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/catalog"
)

// seedNamespace keeps seeded product IDs stable across runs.
var seedNamespace = uuid.MustParse("6f1c52a4-8d7e-4f0b-9a57-3c1d2e9b8a10")

type seedProduct struct {
	Name       string
	BaseMinor  int64
	PromoMinor *int64
	Promo      bool
	Offers     []string
}

type seedOffer struct {
	ID         string
	Scope      string
	Definition map[string]any
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	if err := catalog.Migrate(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer conn.Close(context.Background())

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := seedOffers(ctx, tx, offers()); err != nil {
			return err
		}
		return seedProducts(ctx, tx, products())
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Msg("seeding completed")
}

func offers() []seedOffer {
	return []seedOffer{
		{ID: "spring-20", Scope: "product", Definition: map[string]any{
			"name": "Spring sale", "type": "percentage_discount", "isActive": true,
			"discountPercentage": 20, "startDate": "2025-03-01", "endDate": "2030-12-31T23:59:59Z",
		}},
		{ID: "b2g1", Scope: "product", Definition: map[string]any{
			"name": "Buy 2 get 1", "type": "buy_x_get_y_free", "isActive": true, "buyQuantity": 2, "getQuantity": 1,
		}},
		{ID: "six-pack", Scope: "product", Definition: map[string]any{
			"name": "Six pack", "type": "multi_buy", "isActive": true, "quantity": 6, "discountType": "percent", "discountValue": 15,
		}},
		{ID: "trade-tiers", Scope: "product", Definition: map[string]any{
			"name": "Trade pricing", "type": "bulk_tier", "isActive": true,
			"bulkTiers": []map[string]any{{"minQuantity": 10, "pricePerUnit": "8.00"}, {"minQuantity": 50, "pricePerUnit": "6.00"}},
		}},
		{ID: "flash-fixed", Scope: "product", Definition: map[string]any{
			"name": "Flash price", "type": "fixed_price", "isActive": true, "fixedPrice": "7.00", "maxUses": 500,
		}},
		{ID: "starter-bundle", Scope: "order", Definition: map[string]any{
			"name": "Starter bundle", "type": "bundle_deal", "isActive": true,
			"bundleProducts": []string{productID("Espresso beans").String(), productID("Milk frother").String()},
			"bundlePrice":    "30.00",
		}},
		{ID: "free-delivery-50", Scope: "order", Definition: map[string]any{
			"name": "Free delivery", "type": "free_shipping", "isActive": true, "minimumOrderValue": 50,
		}},
	}
}

func products() []seedProduct {
	promo := int64(899)
	return []seedProduct{
		{Name: "Espresso beans", BaseMinor: 1000, Offers: []string{"spring-20", "b2g1"}},
		{Name: "Milk frother", BaseMinor: 2500, PromoMinor: &promo, Promo: false, Offers: []string{"flash-fixed"}},
		{Name: "Paper filters", BaseMinor: 350, Offers: []string{"six-pack"}},
		{Name: "Cold brew keg", BaseMinor: 1000, Offers: []string{"trade-tiers"}},
		{Name: "Ceramic mug", BaseMinor: 1200, PromoMinor: &promo, Promo: true},
	}
}

func productID(name string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(name))
}

func seedOffers(ctx context.Context, tx pgx.Tx, items []seedOffer) error {
	for _, o := range items {
		definition, err := json.Marshal(o.Definition)
		if err != nil {
			return fmt.Errorf("encode offer %s: %w", o.ID, err)
		}
		typ, _ := o.Definition["type"].(string)
		_, err = tx.Exec(ctx, `
			INSERT INTO offers (id, type, scope, definition)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET type = EXCLUDED.type, scope = EXCLUDED.scope, definition = EXCLUDED.definition, updated_at = now()`,
			o.ID, typ, o.Scope, definition)
		if err != nil {
			return fmt.Errorf("upsert offer %s: %w", o.ID, err)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, tx pgx.Tx, items []seedProduct) error {
	for _, p := range items {
		id := productID(p.Name)
		_, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, base_price_minor, promo_price_minor, promo_active, currency)
			VALUES ($1, $2, $3, $4, $5, 'GBP')
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, base_price_minor = EXCLUDED.base_price_minor,
			    promo_price_minor = EXCLUDED.promo_price_minor, promo_active = EXCLUDED.promo_active, updated_at = now()`,
			id, p.Name, p.BaseMinor, p.PromoMinor, p.Promo)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_offers WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("reset offers for %s: %w", p.Name, err)
		}
		for pos, offerID := range p.Offers {
			if _, err := tx.Exec(ctx, `INSERT INTO product_offers (product_id, offer_id, position) VALUES ($1, $2, $3)`, id, offerID, pos); err != nil {
				return fmt.Errorf("link offer %s to %s: %w", offerID, p.Name, err)
			}
		}
		fmt.Printf("%s\t%s\n", id, p.Name)
	}
	return nil
}
