package domain

import "time"

// Order is created once every participant of a collaborative purchase has
// paid; it belongs to the purchase creator.
type Order struct {
	ID            string
	UserID        string
	Items         []OrderItem
	SubtotalCents int64
	ShippingCents int64
	TotalCents    int64
	Status        string
	CreatedAt     time.Time
}

type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  string
	Name       string
	PriceCents int64
	Quantity   int
}
