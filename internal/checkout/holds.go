package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const DefaultHoldTTL = 2 * time.Minute

// HoldService bikin hold baru terhadap availability live (stok - hold aktif).
type HoldService struct {
	DB       *pgxpool.Pool
	Products *ProductRepo
	Holds    *HoldRepo
	Cache    AvailabilityCache
	HoldTTL  time.Duration
	Log      zerolog.Logger
}

func (s *HoldService) ttl() time.Duration {
	if s.HoldTTL > 0 {
		return s.HoldTTL
	}
	return DefaultHoldTTL
}

// CreateHold: satu transaksi: lock product -> hitung hold aktif -> insert hold.
// Lock dulu baru hitung, supaya nggak ada race antara SUM dan INSERT.
// ErrProductNotFound / ErrInsufficientStock untuk kegagalan bisnis.
func (s *HoldService) CreateHold(ctx context.Context, productID string, qty int) (*Hold, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	product, err := s.Products.GetForUpdate(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	activeQty, err := s.Holds.SumActive(ctx, tx, productID, now)
	if err != nil {
		return nil, err
	}

	if product.Stock-activeQty < qty {
		return nil, ErrInsufficientStock
	}

	h := &Hold{
		ID:        uuid.NewString(),
		ProductID: productID,
		Qty:       qty,
		ExpiresAt: now.Add(s.ttl()),
		Used:      false,
		Released:  false,
		CreatedAt: now,
	}
	if err := s.Holds.Insert(ctx, tx, h); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// invalidasi cache wajib setelah sukses
	if err := s.Cache.Forget(ctx, productID); err != nil {
		s.Log.Warn().Err(err).Str("product_id", productID).Msg("forget availability cache")
	}
	return h, nil
}

// Availability: available = max(0, stock - hold aktif), coba cache dulu.
// Nilai cache boleh basi sampai TTL (~3s).
func (s *HoldService) Availability(ctx context.Context, product *Product) (int, error) {
	if v, ok, err := s.Cache.Get(ctx, product.ID); err == nil && ok {
		return v, nil
	}

	activeQty, err := s.Holds.SumActive(ctx, s.DB, product.ID, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	available := product.Stock - activeQty
	if available < 0 {
		available = 0
	}
	if err := s.Cache.Set(ctx, product.ID, available, AvailabilityTTL); err != nil {
		s.Log.Warn().Err(err).Str("product_id", product.ID).Msg("set availability cache")
	}
	return available, nil
}
