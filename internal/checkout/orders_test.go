package checkout_test

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPlaceOrderFromValidHold(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "shirt", 2500, 10)
	holdID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 2))

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	require.Equal(t, checkout.PlaceOK, res.Code)
	require.NotNil(t, res.Order)
	assert.Equal(t, checkout.OrderPrePayment, res.Order.Status)
	assert.Equal(t, holdID, res.Order.HoldID)
	assert.Equal(t, 2, res.Order.Qty)
	assert.Equal(t, 5000, res.Order.TotalCents)

	// hold ikut ditandai terpakai
	assert.True(t, e.hold(t, ctx, holdID).Used)
	// stok belum dikurangi sebelum payment
	assert.Equal(t, 10, e.productStock(t, ctx, productID))
	assert.GreaterOrEqual(t, e.cache.ForgetCount(productID), 1)
}

func TestPlaceOrderHoldNotFound(t *testing.T) {
	e, ctx := newEngine(t)

	res, err := e.orders.PlaceOrder(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, checkout.PlaceHoldNotFound, res.Code)
	assert.Nil(t, res.Order)
}

func TestPlaceOrderExpiredHold(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "cap", 1200, 5)

	h := activeHold(productID, 1)
	h.ExpiresAt = time.Now().UTC().Add(-time.Second)
	holdID := testutil.InsertHold(t, ctx, e.pool, h)

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PlaceHoldExpiredOrReleased, res.Code)

	order, err := e.orderRepo.GetByHold(ctx, holdID)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestPlaceOrderReleasedHold(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "cap", 1200, 5)

	h := activeHold(productID, 1)
	h.Released = true
	holdID := testutil.InsertHold(t, ctx, e.pool, h)

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PlaceHoldExpiredOrReleased, res.Code)
}

func TestPlaceOrderTwiceSameHold(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "sticker", 300, 5)
	holdID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 1))

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	require.Equal(t, checkout.PlaceOK, res.Code)

	res, err = e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PlaceHoldAlreadyUsed, res.Code)

	var n int
	require.NoError(t, e.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE hold_id = $1`, holdID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPlaceOrderAppliesPendingPayment(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "hoodie", 2500, 10)
	holdID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 2))

	// webhook dateng duluan sebelum checkout
	wres, err := e.payments.HandleNotification(ctx, checkout.PaymentNotification{
		IdempotencyKey: "pay-early-1",
		Status:         checkout.PaymentSuccess,
		HoldID:         holdID,
		AmountCents:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, checkout.WebhookRecorded, wres.Status)

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	require.Equal(t, checkout.PlaceOK, res.Code)

	order, err := e.orderRepo.Get(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.OrderPaid, order.Status)
	assert.Equal(t, 8, e.productStock(t, ctx, productID))

	pay, err := e.payRepo.FindByIdempotencyKey(ctx, "pay-early-1")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.True(t, pay.Applied)
	assert.Equal(t, order.ID, pay.OrderID)
}

func TestPlaceOrderPendingPaymentInsufficientStock(t *testing.T) {
	e, ctx := newEngine(t)
	// hold qty 2 atas stok 1: dulu valid, stoknya keburu dimakan jalur lain
	productID := testutil.InsertProduct(t, ctx, e.pool, "limited", 4000, 1)
	holdID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 2))

	_, err := e.payments.HandleNotification(ctx, checkout.PaymentNotification{
		IdempotencyKey: "pay-early-2",
		Status:         checkout.PaymentSuccess,
		HoldID:         holdID,
		AmountCents:    8000,
	})
	require.NoError(t, err)

	res, err := e.orders.PlaceOrder(ctx, holdID)
	require.NoError(t, err)
	require.Equal(t, checkout.PlaceInsufficientStock, res.Code)
	require.NotNil(t, res.Order)
	assert.Equal(t, checkout.OrderCancelled, res.Order.Status)

	assert.True(t, e.hold(t, ctx, holdID).Released)
	assert.Equal(t, 1, e.productStock(t, ctx, productID))

	pay, err := e.payRepo.FindByIdempotencyKey(ctx, "pay-early-2")
	require.NoError(t, err)
	require.NotNil(t, pay)
	assert.True(t, pay.Applied)
}

func TestParallelPlaceOrderSingleWinner(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "drop", 10000, 10)
	holdID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 1))

	codes := make([]checkout.PlaceOrderCode, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			res, err := e.orders.PlaceOrder(ctx, holdID)
			if err != nil {
				return err
			}
			codes[i] = res.Code
			return nil
		})
	}
	require.NoError(t, g.Wait())

	won, lost := 0, 0
	for _, c := range codes {
		switch c {
		case checkout.PlaceOK:
			won++
		case checkout.PlaceHoldAlreadyUsed:
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	var n int
	require.NoError(t, e.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE hold_id = $1`, holdID).Scan(&n))
	assert.Equal(t, 1, n)
}
