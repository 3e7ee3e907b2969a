package purchase

import (
	"context"
	"errors"
	"time"

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

const purchaseColumns = `
p.id::text, p.product_id::text, p.product_name, p.product_image,
p.unit_price_cents, p.quantity, p.total_cents, p.share_cents,
p.created_by::text, u.email, u.first_name,
p.status, p.deadline, p.created_at, p.updated_at,
p.completed_at, p.cancelled_at, p.order_id::text
`

func (r *postgresRepo) Create(ctx context.Context, in CreatePurchaseInput) (*domain.CollaborativePurchase, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
INSERT INTO collaborative_purchases
  (product_id, product_name, product_image, unit_price_cents, quantity, total_cents, share_cents, created_by, deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text
`, in.ProductID, in.ProductName, in.ProductImage, in.UnitPriceCents, in.Quantity, in.TotalCents, in.ShareCents, in.CreatedBy, in.Deadline).Scan(&id)
	if err != nil {
		return nil, err
	}

	for i, part := range in.Participants {
		if _, err := tx.Exec(ctx, `
INSERT INTO purchase_participants (purchase_id, email, payment_link, position)
VALUES ($1, $2, $3, $4)
`, id, part.Email, part.PaymentLink, i); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.CollaborativePurchase, error) {
	const q = `
SELECT ` + purchaseColumns + `
FROM collaborative_purchases p
JOIN users u ON u.id = p.created_by
WHERE p.id = $1
`
	return r.fetchPurchase(ctx, q, id)
}

func (r *postgresRepo) GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, error) {
	const q = `
SELECT ` + purchaseColumns + `
FROM collaborative_purchases p
JOIN users u ON u.id = p.created_by
JOIN purchase_participants pp ON pp.purchase_id = p.id
WHERE pp.payment_link = $1
`
	return r.fetchPurchase(ctx, q, link)
}

func (r *postgresRepo) ListForUser(ctx context.Context, userID, email string) ([]domain.CollaborativePurchase, error) {
	const q = `
SELECT DISTINCT ` + purchaseColumns + `
FROM collaborative_purchases p
JOIN users u ON u.id = p.created_by
LEFT JOIN purchase_participants pp ON pp.purchase_id = p.id
WHERE p.created_by = $1 OR pp.email = $2
ORDER BY p.created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []domain.CollaborativePurchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range purchases {
		parts, err := r.loadParticipants(ctx, r.pool, purchases[i].ID)
		if err != nil {
			return nil, err
		}
		purchases[i].Participants = parts
	}
	return purchases, nil
}

func (r *postgresRepo) MarkPaid(ctx context.Context, purchaseID, link, intentID string) (*domain.CollaborativePurchase, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE purchase_participants
SET payment_status = 'paid', paid_at = now(), payment_intent_id = $1
WHERE purchase_id = $2 AND payment_link = $3 AND payment_status <> 'paid'
`, intentID, purchaseID, link)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrAlreadyPaid
	}

	var unpaid int
	if err := tx.QueryRow(ctx, `
SELECT count(*) FROM purchase_participants
WHERE purchase_id = $1 AND payment_status <> 'paid'
`, purchaseID).Scan(&unpaid); err != nil {
		return nil, err
	}

	if unpaid == 0 {
		if err := completeWithOrder(ctx, tx, purchaseID); err != nil {
			return nil, err
		}
	} else {
		if _, err := tx.Exec(ctx, `
UPDATE collaborative_purchases SET updated_at = now() WHERE id = $1
`, purchaseID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, purchaseID)
}

// completeWithOrder creates the creator's order from the purchase snapshot
// and marks the purchase completed, all within the caller's transaction.
func completeWithOrder(ctx context.Context, tx pgx.Tx, purchaseID string) error {
	var (
		productID  string
		name       string
		unitPrice  int64
		quantity   int
		totalCents int64
		createdBy  string
	)
	if err := tx.QueryRow(ctx, `
SELECT product_id::text, product_name, unit_price_cents, quantity, total_cents, created_by::text
FROM collaborative_purchases
WHERE id = $1
FOR UPDATE
`, purchaseID).Scan(&productID, &name, &unitPrice, &quantity, &totalCents, &createdBy); err != nil {
		return err
	}

	subtotal := unitPrice * int64(quantity)
	shipping := totalCents - subtotal

	var orderID string
	if err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, subtotal_cents, shipping_cents, total_cents, status)
VALUES ($1, $2, $3, $4, 'processing')
RETURNING id::text
`, createdBy, subtotal, shipping, totalCents).Scan(&orderID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, name, price_cents, quantity)
VALUES ($1, $2, $3, $4, $5)
`, orderID, productID, name, unitPrice, quantity); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
UPDATE collaborative_purchases
SET status = 'completed', completed_at = now(), updated_at = now(), order_id = $1
WHERE id = $2
`, orderID, purchaseID)
	return err
}

func (r *postgresRepo) Decline(ctx context.Context, purchaseID, link string) (*domain.CollaborativePurchase, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE purchase_participants
SET payment_status = 'declined'
WHERE purchase_id = $1 AND payment_link = $2
`, purchaseID, link)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
UPDATE collaborative_purchases
SET status = 'cancelled', cancelled_at = now(), updated_at = now()
WHERE id = $1
`, purchaseID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, purchaseID)
}

func (r *postgresRepo) SetStatus(ctx context.Context, purchaseID string, status domain.PurchaseStatus) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE collaborative_purchases
SET status = $1,
    updated_at = now(),
    cancelled_at = CASE WHEN $1 IN ('cancelled', 'expired') THEN now() ELSE cancelled_at END
WHERE id = $2
`, string(status), purchaseID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkRefunded(ctx context.Context, participantID, refundID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE purchase_participants
SET payment_status = 'refunded', refund_id = $1
WHERE id = $2
`, refundID, participantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE collaborative_purchases
SET status = 'expired', updated_at = now()
WHERE status = 'pending' AND deadline < $1
`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (*domain.CollaborativePurchase, error) {
	var p domain.CollaborativePurchase
	var orderID *string
	if err := row.Scan(
		&p.ID,
		&p.ProductID,
		&p.ProductName,
		&p.ProductImage,
		&p.UnitPriceCents,
		&p.Quantity,
		&p.TotalCents,
		&p.ShareCents,
		&p.CreatedBy,
		&p.CreatorEmail,
		&p.CreatorName,
		&p.Status,
		&p.Deadline,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CompletedAt,
		&p.CancelledAt,
		&orderID,
	); err != nil {
		return nil, err
	}
	p.OrderID = orderID
	return &p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresRepo) loadParticipants(ctx context.Context, q querier, purchaseID string) ([]domain.Participant, error) {
	rows, err := q.Query(ctx, `
SELECT id::text, purchase_id::text, email, payment_status, payment_link, paid_at, payment_intent_id, refund_id
FROM purchase_participants
WHERE purchase_id = $1
ORDER BY position
`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.Participant
	for rows.Next() {
		var part domain.Participant
		if err := rows.Scan(
			&part.ID,
			&part.PurchaseID,
			&part.Email,
			&part.Status,
			&part.PaymentLink,
			&part.PaidAt,
			&part.PaymentIntentID,
			&part.RefundID,
		); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *postgresRepo) fetchPurchase(ctx context.Context, q string, args ...any) (*domain.CollaborativePurchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	parts, err := r.loadParticipants(ctx, r.pool, p.ID)
	if err != nil {
		return nil, err
	}
	p.Participants = parts
	return p, nil
}
