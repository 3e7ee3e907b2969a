package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type productSeed struct {
	SKU              string
	Name             string
	ImageURL         string
	RetailPriceCents int64
	SalePriceCents   int64
	Stock            int
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ensureUser(ctx, pool, "demo@bestwishes.local", "demo-password", "Demo"); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	products := []productSeed{
		{
			SKU:              "SKU-GIFT-BOX",
			Name:             "Deluxe Gift Box",
			ImageURL:         "/images/gift-box.jpg",
			RetailPriceCents: 7999,
			Stock:            25,
		},
		{
			SKU:              "SKU-ESPRESSO",
			Name:             "Espresso Machine",
			ImageURL:         "/images/espresso.jpg",
			RetailPriceCents: 24999,
			SalePriceCents:   19999,
			Stock:            10,
		},
		{
			SKU:              "SKU-PICNIC-SET",
			Name:             "Picnic Set for Four",
			ImageURL:         "/images/picnic.jpg",
			RetailPriceCents: 5499,
			Stock:            40,
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	return nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, email, password, firstName string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	const q = `
INSERT INTO users (email, password_hash, first_name)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO NOTHING
`
	_, err = pool.Exec(ctx, q, email, string(hash), firstName)
	return err
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, image_url, retail_price_cents, sale_price_cents, stock)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    image_url = EXCLUDED.image_url,
    retail_price_cents = EXCLUDED.retail_price_cents,
    sale_price_cents = EXCLUDED.sale_price_cents,
    stock = EXCLUDED.stock
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Name, p.ImageURL, p.RetailPriceCents, p.SalePriceCents, p.Stock)
	return err
}
