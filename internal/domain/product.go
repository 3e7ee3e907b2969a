package domain

import "time"

type Product struct {
	ID               string
	Name             string
	SKU              string
	ImageURL         string
	RetailPriceCents int64
	SalePriceCents   int64
	Stock            int
	CreatedAt        time.Time
}

// EffectivePriceCents returns the sale price when one is set, otherwise the
// retail price.
func (p Product) EffectivePriceCents() int64 {
	if p.SalePriceCents > 0 {
		return p.SalePriceCents
	}
	return p.RetailPriceCents
}
