package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepReleasesExpiredHolds(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "badge", 700, 20)

	expired1 := activeHold(productID, 2)
	expired1.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	expired1ID := testutil.InsertHold(t, ctx, e.pool, expired1)

	expired2 := activeHold(productID, 3)
	expired2.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	expired2ID := testutil.InsertHold(t, ctx, e.pool, expired2)

	activeID := testutil.InsertHold(t, ctx, e.pool, activeHold(productID, 1))

	alreadyReleased := activeHold(productID, 1)
	alreadyReleased.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	alreadyReleased.Released = true
	testutil.InsertHold(t, ctx, e.pool, alreadyReleased)

	var callbacks []string
	e.reaper.OnReleased = func(ctx context.Context, h checkout.Hold) {
		callbacks = append(callbacks, h.ID)
	}

	released, err := e.reaper.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.ElementsMatch(t, []string{expired1ID, expired2ID}, callbacks)

	assert.True(t, e.hold(t, ctx, expired1ID).Released)
	assert.True(t, e.hold(t, ctx, expired2ID).Released)
	assert.False(t, e.hold(t, ctx, activeID).Released)

	assert.GreaterOrEqual(t, e.cache.ForgetCount(productID), 2)

	// sweep kedua: nggak ada kandidat tersisa
	released, err = e.reaper.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestSweepFreesAvailabilityForNewHolds(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "pass", 15000, 2)

	stale := activeHold(productID, 2)
	stale.ExpiresAt = time.Now().UTC().Add(-time.Second)
	testutil.InsertHold(t, ctx, e.pool, stale)

	// hold kadaluarsa sudah nggak dihitung aktif bahkan sebelum sweep
	_, err := e.holds.CreateHold(ctx, productID, 2)
	require.NoError(t, err)

	released, err := e.reaper.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
}

func TestSweepReleasesUsedExpiredHolds(t *testing.T) {
	e, ctx := newEngine(t)
	productID := testutil.InsertProduct(t, ctx, e.pool, "entry", 500, 5)

	// hold used yang kadaluarsa tetap dirilis: konvergensi sweep berlaku untuk
	// semua hold released=false, dan stok order dijaga decrement kondisional
	used := activeHold(productID, 1)
	used.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	used.Used = true
	usedID := testutil.InsertHold(t, ctx, e.pool, used)

	released, err := e.reaper.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.True(t, e.hold(t, ctx, usedID).Released)

	// konvergen: nggak ada kandidat tersisa
	released, err = e.reaper.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}
