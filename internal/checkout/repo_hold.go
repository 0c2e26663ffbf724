package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HoldRepo struct{ DB *pgxpool.Pool }

// rowQuerier: biar SumActive bisa dipakai lewat pool maupun tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SumActive: total qty hold aktif (belum released, belum expired) untuk satu
// product. Di jalur tulis, panggil di dalam tx yang sudah lock row product-nya.
func (r *HoldRepo) SumActive(ctx context.Context, q rowQuerier, productID string, now time.Time) (int, error) {
	var total int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM holds
		WHERE product_id = $1 AND released = false AND expires_at > $2`,
		productID, now).Scan(&total)
	return total, err
}

func (r *HoldRepo) Insert(ctx context.Context, tx pgx.Tx, h *Hold) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO holds(id, product_id, qty, expires_at, used, released)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.ProductID, h.Qty, h.ExpiresAt, h.Used, h.Released)
	return err
}

// GetForUpdate: lock row hold sebelum branching (lock dulu, baru putuskan).
// nil, nil jika tidak ada.
func (r *HoldRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Hold, error) {
	var h Hold
	err := tx.QueryRow(ctx, `
		SELECT id, product_id, qty, expires_at, used, released, created_at
		FROM holds WHERE id = $1 FOR UPDATE`, id).
		Scan(&h.ID, &h.ProductID, &h.Qty, &h.ExpiresAt, &h.Used, &h.Released, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldRepo) Get(ctx context.Context, id string) (*Hold, error) {
	var h Hold
	err := r.DB.QueryRow(ctx, `
		SELECT id, product_id, qty, expires_at, used, released, created_at
		FROM holds WHERE id = $1`, id).
		Scan(&h.ID, &h.ProductID, &h.Qty, &h.ExpiresAt, &h.Used, &h.Released, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldRepo) MarkUsed(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `UPDATE holds SET used = true WHERE id = $1`, id)
	return err
}

func (r *HoldRepo) MarkReleased(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `UPDATE holds SET released = true WHERE id = $1`, id)
	return err
}

// ListExpired: kandidat sweep, belum released dan expires_at <= now.
// Hold used ikut dirilis; stok order-nya dijaga decrement kondisional,
// bukan status hold.
func (r *HoldRepo) ListExpired(ctx context.Context, now time.Time) ([]Hold, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, qty, expires_at, used, released, created_at
		FROM holds WHERE released = false AND expires_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hold
	for rows.Next() {
		var h Hold
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Qty, &h.ExpiresAt, &h.Used, &h.Released, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
