package checkout_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCreateHoldReservesAgainstAvailability(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "keyboard", 5000, 10)

	h, err := e.holds.CreateHold(ctx, productID, 4)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, productID, h.ProductID)
	assert.Equal(t, 4, h.Qty)
	assert.False(t, h.Used)
	assert.False(t, h.Released)
	assert.True(t, h.ExpiresAt.After(time.Now().UTC()))
	assert.Equal(t, 1, e.cache.ForgetCount(productID))

	p, err := e.products.Get(ctx, productID)
	require.NoError(t, err)
	avail, err := e.holds.Availability(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 6, avail)

	// sisa 6, minta 7 -> gagal
	_, err = e.holds.CreateHold(ctx, productID, 7)
	assert.ErrorIs(t, err, checkout.ErrInsufficientStock)

	// stok fisik nggak berubah, hold cuma reservasi
	assert.Equal(t, 10, e.productStock(t, ctx, productID))
}

func TestCreateHoldProductMissing(t *testing.T) {
	e, ctx := newEngine(t)

	_, err := e.holds.CreateHold(ctx, uuid.NewString(), 1)
	assert.ErrorIs(t, err, checkout.ErrProductNotFound)
}

func TestCreateHoldIgnoresExpiredAndReleasedHolds(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "mug", 900, 10)

	expired := activeHold(productID, 10)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	testutil.InsertHold(t, ctx, e.pool, expired)

	released := activeHold(productID, 10)
	released.Released = true
	testutil.InsertHold(t, ctx, e.pool, released)

	// dua hold qty 10 itu nggak dihitung sebagai aktif
	_, err := e.holds.CreateHold(ctx, productID, 10)
	require.NoError(t, err)
}

func TestAvailabilityUsesCache(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "poster", 1500, 10)

	require.NoError(t, e.cache.Set(ctx, productID, 3, checkout.AvailabilityTTL))

	p, err := e.products.Get(ctx, productID)
	require.NoError(t, err)

	// nilai cache dipakai walau beda dari hitungan live
	avail, err := e.holds.Availability(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, avail)

	require.NoError(t, e.cache.Forget(ctx, productID))
	avail, err = e.holds.Availability(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 10, avail)
}

func TestConcurrentHoldsNeverOversell(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "gpu", 99900, 10)

	const workers = 25
	results := make([]error, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, err := e.holds.CreateHold(ctx, productID, 1)
			if err != nil && !errors.Is(err, checkout.ErrInsufficientStock) {
				return err
			}
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 10, ok, "tepat 10 hold yang boleh lolos")

	var active int
	err := e.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM holds
		WHERE product_id = $1 AND NOT released AND expires_at > now()`,
		productID).Scan(&active)
	require.NoError(t, err)
	assert.Equal(t, 10, active)
}
