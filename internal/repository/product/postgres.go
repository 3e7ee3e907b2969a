package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bestwishes/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id::text, name, sku, image_url, retail_price_cents, sale_price_cents, stock, created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.Name,
		&p.SKU,
		&p.ImageURL,
		&p.RetailPriceCents,
		&p.SalePriceCents,
		&p.Stock,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, sku, image_url, retail_price_cents, sale_price_cents, stock)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, created_at
`
	if err := r.pool.QueryRow(ctx, q, p.Name, p.SKU, p.ImageURL, p.RetailPriceCents, p.SalePriceCents, p.Stock).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
