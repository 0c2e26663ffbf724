package checkout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PaymentNotification struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Status         PaymentStatus   `json:"status"`
	OrderID        string          `json:"order_id,omitempty"`
	HoldID         string          `json:"hold_id,omitempty"`
	AmountCents    int             `json:"amount_cents,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// PaymentService mencatat notifikasi payment secara idempoten dan men-settle
// order-nya. Urutan kedatangan relatif terhadap pembuatan order tidak
// ngaruh ke hasil akhir.
type PaymentService struct {
	DB       *pgxpool.Pool
	Products *ProductRepo
	Holds    *HoldRepo
	Orders   *OrderRepo
	Payments *PaymentRepo
	Cache    AvailabilityCache
	Log      zerolog.Logger
}

// HandleNotification: transaksional. Key yang sudah pernah diproses
// dikembalikan outcome lamanya tanpa diproses ulang; body baru (status/amount
// beda) sengaja diabaikan.
func (s *PaymentService) HandleNotification(ctx context.Context, in PaymentNotification) (WebhookResult, error) {
	res, err := s.handleTx(ctx, in)
	if err == nil {
		return res, nil
	}

	// Dua delivery dengan key sama bisa balapan: yang kalah gagal di unique
	// constraint, lalu baca ulang outcome yang sudah commit.
	if IsUniqueViolation(err) {
		if replay, rerr := s.resolveExisting(ctx, in.IdempotencyKey); rerr == nil && replay != nil {
			return *replay, nil
		}
	}
	return WebhookResult{}, err
}

func (s *PaymentService) handleTx(ctx context.Context, in PaymentNotification) (WebhookResult, error) {
	// cek idempoten di luar tx: key yang sudah commit langsung di-replay
	if replay, err := s.resolveExisting(ctx, in.IdempotencyKey); err != nil {
		return WebhookResult{}, err
	} else if replay != nil {
		return *replay, nil
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return WebhookResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// validasi referensi dulu, sebelum ada insert. Referensi nggak dikenal
	// jadi ErrHoldNotFound/ErrOrderNotFound tanpa mutasi apa pun. Cek hold
	// tanpa lock: urutan lock tetap order -> hold, sama dengan settle.
	if in.HoldID != "" {
		h, err := s.Holds.Get(ctx, in.HoldID)
		if err != nil {
			return WebhookResult{}, err
		}
		if h == nil {
			return WebhookResult{}, ErrHoldNotFound
		}
	}

	var order *Order
	if in.OrderID != "" {
		order, err = s.Orders.GetForUpdate(ctx, tx, in.OrderID)
		if err != nil {
			return WebhookResult{}, err
		}
		if order == nil {
			return WebhookResult{}, ErrOrderNotFound
		}
	} else if in.HoldID != "" {
		order, err = s.Orders.GetByHoldForUpdate(ctx, tx, in.HoldID)
		if err != nil {
			return WebhookResult{}, err
		}
	}

	payment := &Payment{
		ID:             uuid.NewString(),
		IdempotencyKey: in.IdempotencyKey,
		OrderID:        in.OrderID,
		HoldID:         in.HoldID,
		Status:         in.Status,
		AmountCents:    in.AmountCents,
		Metadata:       in.Metadata,
		Applied:        false,
	}
	if err := s.Payments.Insert(ctx, tx, payment); err != nil {
		return WebhookResult{}, err
	}

	if order != nil {
		return s.settleOrder(ctx, tx, payment, order)
	}

	// belum ada order. failure + hold_id -> release hold sekarang biar
	// checkout yang pasti gagal nggak jalan terus.
	if in.Status == PaymentFailure && in.HoldID != "" {
		hold, err := s.Holds.GetForUpdate(ctx, tx, in.HoldID)
		if err != nil {
			return WebhookResult{}, err
		}
		if hold != nil && !hold.Released {
			if err := s.Holds.MarkReleased(ctx, tx, hold.ID); err != nil {
				return WebhookResult{}, err
			}
			if err := tx.Commit(ctx); err != nil {
				return WebhookResult{}, err
			}
			s.forget(ctx, hold.ProductID)
			return WebhookResult{Status: WebhookRecorded}, nil
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return WebhookResult{}, err
	}
	// payment sukses tinggal nunggu: PlaceOrder bakal nemu lewat
	// FindPendingForHold
	return WebhookResult{Status: WebhookRecorded}, nil
}

func (s *PaymentService) settleOrder(ctx context.Context, tx pgx.Tx, payment *Payment, order *Order) (WebhookResult, error) {
	// order sudah terminal: notifikasi telat/duplikat, catat applied saja
	if order.Status.Terminal() {
		if err := s.Payments.MarkApplied(ctx, tx, payment.ID, order.ID); err != nil {
			return WebhookResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return WebhookResult{}, err
		}
		return WebhookResult{Status: string(order.Status), OrderID: order.ID}, nil
	}

	if payment.Status == PaymentSuccess {
		ok, err := s.Products.DecrementStock(ctx, tx, order.ProductID, order.Qty)
		if err != nil {
			return WebhookResult{}, err
		}
		if !ok {
			// stok habis duluan: cancel + release
			if res, err := s.cancelOrder(ctx, tx, payment, order); err != nil {
				return WebhookResult{}, err
			} else {
				res.Reason = ReasonInsufficientStock
				return res, nil
			}
		}

		if err := s.Orders.SetStatus(ctx, tx, order.ID, OrderPaid); err != nil {
			return WebhookResult{}, err
		}
		if err := s.Payments.MarkApplied(ctx, tx, payment.ID, order.ID); err != nil {
			return WebhookResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return WebhookResult{}, err
		}
		s.forget(ctx, order.ProductID)
		return WebhookResult{Status: string(OrderPaid), OrderID: order.ID}, nil
	}

	// failure: cancel order + release hold
	return s.cancelOrder(ctx, tx, payment, order)
}

func (s *PaymentService) cancelOrder(ctx context.Context, tx pgx.Tx, payment *Payment, order *Order) (WebhookResult, error) {
	if err := s.Orders.SetStatus(ctx, tx, order.ID, OrderCancelled); err != nil {
		return WebhookResult{}, err
	}
	if err := s.Holds.MarkReleased(ctx, tx, order.HoldID); err != nil {
		return WebhookResult{}, err
	}
	if err := s.Payments.MarkApplied(ctx, tx, payment.ID, order.ID); err != nil {
		return WebhookResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return WebhookResult{}, err
	}
	s.forget(ctx, order.ProductID)
	return WebhookResult{Status: string(OrderCancelled), OrderID: order.ID}, nil
}

// resolveExisting: replay outcome untuk key yang sudah tercatat.
// nil kalau belum ada. Error storage diteruskan, bukan di-fallback.
func (s *PaymentService) resolveExisting(ctx context.Context, key string) (*WebhookResult, error) {
	existing, err := s.Payments.FindByIdempotencyKey(ctx, key)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.OrderID != "" {
		order, err := s.Orders.Get(ctx, existing.OrderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return &WebhookResult{Status: string(order.Status), OrderID: order.ID}, nil
		}
	}
	return &WebhookResult{Status: string(existing.Status)}, nil
}

func (s *PaymentService) forget(ctx context.Context, productID string) {
	if err := s.Cache.Forget(ctx, productID); err != nil {
		s.Log.Warn().Err(err).Str("product_id", productID).Msg("forget availability cache")
	}
}
