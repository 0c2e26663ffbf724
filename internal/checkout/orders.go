package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	placeOrderMaxAttempts = 3
	placeOrderBackoffBase = 100 * time.Millisecond
)

// OrderService mengubah hold valid yang belum dipakai jadi order, dalam satu
// transaksi, dengan retry untuk konflik transien (deadlock/serialization).
type OrderService struct {
	DB       *pgxpool.Pool
	Products *ProductRepo
	Holds    *HoldRepo
	Orders   *OrderRepo
	Payments *PaymentRepo
	Registry *StrategyRegistry
	Cache    AvailabilityCache
	Log      zerolog.Logger
}

// PlaceOrder: semua kegagalan rule jadi PlaceOrderResult, bukan error.
// Error hanya untuk storage. Urutan: lock hold -> validasi -> order
// pre_payment -> used=true -> terapkan payment sukses yang sudah nunggu.
func (s *OrderService) PlaceOrder(ctx context.Context, holdID string) (PlaceOrderResult, error) {
	var res PlaceOrderResult
	err := Retry(ctx, s.Log, placeOrderMaxAttempts, ConflictBackoff(placeOrderBackoffBase), IsTxConflict,
		func(ctx context.Context) error {
			var err error
			res, err = s.placeOrderTx(ctx, holdID)
			return err
		})
	if err != nil {
		s.Log.Error().Err(err).Str("hold_id", holdID).Msg("place order failed")
		return PlaceOrderResult{}, err
	}
	return res, nil
}

func (s *OrderService) placeOrderTx(ctx context.Context, holdID string) (PlaceOrderResult, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PlaceOrderResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock hold dulu, baru evaluasi. dua request paralel di hold yang sama
	// antre di sini
	hold, err := s.Holds.GetForUpdate(ctx, tx, holdID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if hold == nil {
		return PlaceOrderResult{Code: PlaceHoldNotFound}, nil
	}

	now := time.Now().UTC()
	if hold.Released || !hold.ExpiresAt.After(now) {
		return PlaceOrderResult{Code: PlaceHoldExpiredOrReleased}, nil
	}
	if hold.Used {
		return PlaceOrderResult{Code: PlaceHoldAlreadyUsed}, nil
	}

	product, err := s.Products.GetForUpdate(ctx, tx, hold.ProductID)
	if errors.Is(err, ErrProductNotFound) {
		return PlaceOrderResult{Code: PlaceProductMissing}, nil
	}
	if err != nil {
		return PlaceOrderResult{}, err
	}

	order := &Order{
		ID:         uuid.NewString(),
		HoldID:     hold.ID,
		ProductID:  product.ID,
		Qty:        hold.Qty,
		TotalCents: product.PriceCents * hold.Qty,
		Status:     OrderPrePayment,
	}
	if err := s.Orders.Insert(ctx, tx, order); err != nil {
		return PlaceOrderResult{}, err
	}

	if err := s.Holds.MarkUsed(ctx, tx, hold.ID); err != nil {
		return PlaceOrderResult{}, err
	}

	// webhook bisa sudah duluan: cek payment sukses yang belum applied
	pending, err := s.Payments.FindPendingForHold(ctx, tx, hold.ID)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if pending != nil {
		applied, err := s.Registry.ApplyBest(ctx, tx, pending, order)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		if !applied {
			// stok keburu habis: cancel order, release hold, payment tetap
			// dicatat applied + link ke order
			if err := s.Orders.SetStatus(ctx, tx, order.ID, OrderCancelled); err != nil {
				return PlaceOrderResult{}, err
			}
			order.Status = OrderCancelled
			if err := s.Holds.MarkReleased(ctx, tx, hold.ID); err != nil {
				return PlaceOrderResult{}, err
			}
			if err := s.Payments.MarkApplied(ctx, tx, pending.ID, order.ID); err != nil {
				return PlaceOrderResult{}, err
			}
			if err := tx.Commit(ctx); err != nil {
				return PlaceOrderResult{}, err
			}
			s.forget(ctx, product.ID)
			return PlaceOrderResult{Code: PlaceInsufficientStock, Order: order}, nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return PlaceOrderResult{}, err
	}
	s.forget(ctx, product.ID)
	return PlaceOrderResult{Code: PlaceOK, Order: order}, nil
}

func (s *OrderService) forget(ctx context.Context, productID string) {
	if err := s.Cache.Forget(ctx, productID); err != nil {
		s.Log.Warn().Err(err).Str("product_id", productID).Msg("forget availability cache")
	}
}
