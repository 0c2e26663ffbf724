package checkout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct{ DB *pgxpool.Pool }

// Insert: unique constraint di idempotency_key adalah garda terakhir.
// Delivery duplikat yang balapan pun cuma satu yang berhasil insert.
func (r *PaymentRepo) Insert(ctx context.Context, tx pgx.Tx, p *Payment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payments(id, idempotency_key, order_id, hold_id, status, amount_cents, metadata, applied)
		VALUES ($1, $2, NULLIF($3::text, '')::uuid, NULLIF($4::text, '')::uuid, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.IdempotencyKey, p.OrderID, p.HoldID, p.Status, p.AmountCents, p.Metadata, p.Applied).
		Scan(&p.CreatedAt)
}

func (r *PaymentRepo) FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, idempotency_key, order_id, hold_id, status, amount_cents, metadata, applied, created_at
		FROM payments WHERE idempotency_key = $1`, key))
}

// FindPendingForHold: payment sukses yang belum applied untuk hold ini,
// di-lock supaya nggak balapan sama webhook yang lagi jalan.
func (r *PaymentRepo) FindPendingForHold(ctx context.Context, tx pgx.Tx, holdID string) (*Payment, error) {
	return r.scanOne(tx.QueryRow(ctx, `
		SELECT id, idempotency_key, order_id, hold_id, status, amount_cents, metadata, applied, created_at
		FROM payments
		WHERE hold_id = $1 AND status = 'success' AND applied = false
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE`, holdID))
}

// MarkApplied: applied false->true sekali, sekalian link ke order.
func (r *PaymentRepo) MarkApplied(ctx context.Context, tx pgx.Tx, paymentID, orderID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments SET applied = true, order_id = $2 WHERE id = $1`, paymentID, orderID)
	return err
}

func (r *PaymentRepo) scanOne(row pgx.Row) (*Payment, error) {
	var p Payment
	var orderID, holdID sql.NullString
	err := row.Scan(&p.ID, &p.IdempotencyKey, &orderID, &holdID, &p.Status, &p.AmountCents, &p.Metadata, &p.Applied, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.OrderID = orderID.String
	p.HoldID = holdID.String
	return &p, nil
}
