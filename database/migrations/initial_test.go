package migrations

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/database"
	"github.com/feastly/feastly/pkg/migration"
)

func TestSchemaRoundTrip(t *testing.T) {
	db, err := database.Open("sqlite", "file:migrations_test?mode=memory&cache=shared")
	require.NoError(t, err)

	r := migration.New(db, io.Discard)
	n, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	for _, table := range []string{"users", "order_history_entries", "foods", "restaurants", "orders", "order_items", "failed_jobs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	store := repo.GormStore(db)
	ctx := context.Background()
	key := "k-1"
	o := &models.Order{
		UserID: "u-1", TotalAmount: decimal.NewFromInt(1), OrderType: models.OrderTypePickup,
		Status: models.StatusPending, IdempotencyKey: &key,
	}
	require.NoError(t, store.Orders.Create(ctx, o))
	got, err := store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1)))

	st, err := r.Status()
	require.NoError(t, err)
	assert.Len(t, st, 5)

	n, err = r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, db.Migrator().HasTable("orders"))
}
