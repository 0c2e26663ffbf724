package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

func (r *OrderRepo) Insert(ctx context.Context, tx pgx.Tx, o *Order) error {
	return tx.QueryRow(ctx, `
		INSERT INTO orders(id, hold_id, product_id, quantity, total_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, o.HoldID, o.ProductID, o.Qty, o.TotalCents, o.Status).
		Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*Order, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, hold_id, product_id, quantity, total_cents, status, created_at, updated_at
		FROM orders WHERE id = $1`, id))
}

// GetForUpdate: nil, nil jika tidak ada.
func (r *OrderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	return r.scanOne(tx.QueryRow(ctx, `
		SELECT id, hold_id, product_id, quantity, total_cents, status, created_at, updated_at
		FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// GetByHoldForUpdate: resolve order lewat hold_id (webhook tanpa order_id).
func (r *OrderRepo) GetByHoldForUpdate(ctx context.Context, tx pgx.Tx, holdID string) (*Order, error) {
	return r.scanOne(tx.QueryRow(ctx, `
		SELECT id, hold_id, product_id, quantity, total_cents, status, created_at, updated_at
		FROM orders WHERE hold_id = $1 FOR UPDATE`, holdID))
}

func (r *OrderRepo) GetByHold(ctx context.Context, holdID string) (*Order, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, hold_id, product_id, quantity, total_cents, status, created_at, updated_at
		FROM orders WHERE hold_id = $1`, holdID))
}

func (r *OrderRepo) SetStatus(ctx context.Context, tx pgx.Tx, id string, status OrderStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func (r *OrderRepo) scanOne(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.HoldID, &o.ProductID, &o.Qty, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
