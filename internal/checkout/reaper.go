package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const DefaultReaperInterval = time.Minute

// Reaper melepaskan hold yang lewat expiry supaya stoknya balik available.
type Reaper struct {
	DB       *pgxpool.Pool
	Products *ProductRepo
	Holds    *HoldRepo
	Cache    AvailabilityCache
	Log      zerolog.Logger

	// optional, dipanggil setelah satu hold sukses dirilis (publish event dsb)
	OnReleased func(ctx context.Context, h Hold)
}

// SweepExpiredHolds: release semua hold dengan expires_at <= now. Tiap hold
// transaksinya sendiri, satu gagal nggak ngeblok sisanya. Return jumlah
// yang dirilis.
func (r *Reaper) SweepExpiredHolds(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := r.Holds.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, h := range expired {
		if err := r.releaseOne(ctx, h); err != nil {
			r.Log.Error().Err(err).Str("hold_id", h.ID).Msg("release expired hold")
			continue
		}
		released++
		if r.OnReleased != nil {
			r.OnReleased(ctx, h)
		}
	}

	r.Log.Info().Int("released", released).Int("candidates", len(expired)).Msg("expiry sweep done")
	return released, nil
}

func (r *Reaper) releaseOne(ctx context.Context, h Hold) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// re-check di bawah lock: hold bisa keburu dirilis jalur lain
	cur, err := r.Holds.GetForUpdate(ctx, tx, h.ID)
	if err != nil {
		return err
	}
	if cur == nil || cur.Released {
		return nil
	}

	if err := r.Holds.MarkReleased(ctx, tx, h.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// product bisa sudah hilang -> skip + warn, bukan fatal
	if _, err := r.Products.Get(ctx, h.ProductID); errors.Is(err, ErrProductNotFound) {
		r.Log.Warn().Str("hold_id", h.ID).Str("product_id", h.ProductID).
			Msg("hold has no product, skip cache clear")
		return nil
	}
	if err := r.Cache.Forget(ctx, h.ProductID); err != nil {
		r.Log.Warn().Err(err).Str("product_id", h.ProductID).Msg("forget availability cache")
	}
	return nil
}

// Run: sweep tiap interval sampai ctx selesai.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Log.Info().Dur("interval", interval).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SweepExpiredHolds(ctx); err != nil {
				r.Log.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}
