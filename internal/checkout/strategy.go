package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PaymentStrategy: cara menerapkan payment sukses ke sebuah order.
// Apply jalan di dalam transaksi caller (tx), strategy nggak buka tx sendiri.
// Return (false, nil) artinya gagal bisnis (mis. stok habis) tanpa mutasi state.
type PaymentStrategy interface {
	Supports(p *Payment) bool
	Apply(ctx context.Context, tx pgx.Tx, p *Payment, o *Order) (bool, error)
}

// StrategyRegistry nyoba strategy sesuai urutan registrasi, first-match wins.
// Tidak ada yang match = "not handled" biasa, bukan error.
type StrategyRegistry struct {
	strategies []PaymentStrategy
}

func NewStrategyRegistry(strategies ...PaymentStrategy) *StrategyRegistry {
	return &StrategyRegistry{strategies: strategies}
}

// DefaultRegistry: urutan penting. Strategy gateway-spesifik duluan, karena
// DefaultStrategy men-support semua payment sukses dan bakal menutupi sisanya.
func DefaultRegistry(products *ProductRepo, orders *OrderRepo, payments *PaymentRepo) *StrategyRegistry {
	return NewStrategyRegistry(
		&StripeStrategy{Products: products, Orders: orders, Payments: payments},
		&DefaultStrategy{Products: products, Orders: orders, Payments: payments},
	)
}

func (r *StrategyRegistry) StrategyFor(p *Payment) PaymentStrategy {
	for _, s := range r.strategies {
		if s.Supports(p) {
			return s
		}
	}
	return nil
}

func (r *StrategyRegistry) ApplyBest(ctx context.Context, tx pgx.Tx, p *Payment, o *Order) (bool, error) {
	s := r.StrategyFor(p)
	if s == nil {
		return false, nil
	}
	return s.Apply(ctx, tx, p, o)
}

// DefaultStrategy: berlaku untuk payment sukses apa pun. Kurangi stok atomik
// (dijaga stock >= qty), set order paid, tandai payment applied.
type DefaultStrategy struct {
	Products *ProductRepo
	Orders   *OrderRepo
	Payments *PaymentRepo
}

func (s *DefaultStrategy) Supports(p *Payment) bool {
	return p.Status == PaymentSuccess
}

func (s *DefaultStrategy) Apply(ctx context.Context, tx pgx.Tx, p *Payment, o *Order) (bool, error) {
	ok, err := s.Products.DecrementStock(ctx, tx, o.ProductID, o.Qty)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil // stok kurang, jangan mutasi apa pun
	}

	if err := s.Orders.SetStatus(ctx, tx, o.ID, OrderPaid); err != nil {
		return false, err
	}
	o.Status = OrderPaid

	if err := s.Payments.MarkApplied(ctx, tx, p.ID, o.ID); err != nil {
		return false, err
	}
	p.Applied = true
	p.OrderID = o.ID
	return true, nil
}

// StripeStrategy: dipilih kalau metadata payment menyebut gateway stripe.
// Kontrak sama dengan default; bedanya cuma side effect spesifik gateway
// (di sini: nggak ada panggilan keluar, cukup settle lokal).
type StripeStrategy struct {
	Products *ProductRepo
	Orders   *OrderRepo
	Payments *PaymentRepo
}

func (s *StripeStrategy) Supports(p *Payment) bool {
	return p.Status == PaymentSuccess && p.Gateway() == "stripe"
}

func (s *StripeStrategy) Apply(ctx context.Context, tx pgx.Tx, p *Payment, o *Order) (bool, error) {
	ok, err := s.Products.DecrementStock(ctx, tx, o.ProductID, o.Qty)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := s.Orders.SetStatus(ctx, tx, o.ID, OrderPaid); err != nil {
		return false, err
	}
	o.Status = OrderPaid

	if err := s.Payments.MarkApplied(ctx, tx, p.ID, o.ID); err != nil {
		return false, err
	}
	p.Applied = true
	p.OrderID = o.ID
	return true, nil
}
