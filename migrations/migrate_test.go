package migrations_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-flash-checkout.git/internal/testutil"
	"github.com/ariefcatur/go-flash-checkout.git/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyIsIdempotent(t *testing.T) {
	// NewTestPool sudah menjalankan Apply sekali
	pool := testutil.NewTestPool(t)
	ctx := context.Background()

	var before int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM schema_migrations`).Scan(&before))
	assert.Greater(t, before, 0)

	// jalan kedua: nggak ada migration yang diulang
	require.NoError(t, migrations.Apply(ctx, pool))

	var after int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM schema_migrations`).Scan(&after))
	assert.Equal(t, before, after)

	for _, table := range []string{"products", "holds", "orders", "payments"} {
		var n int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM `+table).Scan(&n),
			"table %s harus ada", table)
	}
}
