package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// engine: semua service di-wire ke satu pool test + MemCache.
type engine struct {
	pool      *pgxpool.Pool
	cache     *testutil.MemCache
	products  *checkout.ProductRepo
	holdRepo  *checkout.HoldRepo
	orderRepo *checkout.OrderRepo
	payRepo   *checkout.PaymentRepo
	holds     *checkout.HoldService
	orders    *checkout.OrderService
	payments  *checkout.PaymentService
	reaper    *checkout.Reaper
}

func newEngine(t *testing.T) (*engine, context.Context) {
	t.Helper()
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	log := zerolog.Nop()
	cache := testutil.NewMemCache()
	products := &checkout.ProductRepo{DB: pool}
	holdRepo := &checkout.HoldRepo{DB: pool}
	orderRepo := &checkout.OrderRepo{DB: pool}
	payRepo := &checkout.PaymentRepo{DB: pool}
	registry := checkout.DefaultRegistry(products, orderRepo, payRepo)

	return &engine{
		pool:      pool,
		cache:     cache,
		products:  products,
		holdRepo:  holdRepo,
		orderRepo: orderRepo,
		payRepo:   payRepo,
		holds: &checkout.HoldService{
			DB: pool, Products: products, Holds: holdRepo, Cache: cache, Log: log,
		},
		orders: &checkout.OrderService{
			DB: pool, Products: products, Holds: holdRepo, Orders: orderRepo,
			Payments: payRepo, Registry: registry, Cache: cache, Log: log,
		},
		payments: &checkout.PaymentService{
			DB: pool, Products: products, Holds: holdRepo, Orders: orderRepo,
			Payments: payRepo, Cache: cache, Log: log,
		},
		reaper: &checkout.Reaper{
			DB: pool, Products: products, Holds: holdRepo, Cache: cache, Log: log,
		},
	}, ctx
}

func (e *engine) productStock(t *testing.T, ctx context.Context, id string) int {
	t.Helper()
	p, err := e.products.Get(ctx, id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Stock
}

func (e *engine) hold(t *testing.T, ctx context.Context, id string) *checkout.Hold {
	t.Helper()
	h, err := e.holdRepo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if h == nil {
		t.Fatalf("hold %s not found", id)
	}
	return h
}

func activeHold(productID string, qty int) checkout.Hold {
	return checkout.Hold{
		ProductID: productID,
		Qty:       qty,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
}
