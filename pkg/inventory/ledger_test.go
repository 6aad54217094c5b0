package inventory

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(stock int) (*Ledger, *store.MemoryStore) {
	mem := store.NewMemory()
	mem.PutProduct(&models.Product{ID: "p-1", Name: "Widget", Price: 1000, StockQuantity: stock})
	return NewLedger(mem), mem
}

func TestCheckAvailable(t *testing.T) {
	ledger, _ := newTestLedger(5)
	ctx := context.Background()

	ok, err := ledger.CheckAvailable(ctx, "p-1", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.CheckAvailable(ctx, "p-1", 6)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ledger.CheckAvailable(ctx, "missing", 1)
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = ledger.CheckAvailable(ctx, "p-1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDecrement(t *testing.T) {
	ledger, mem := newTestLedger(5)
	ctx := context.Background()

	require.NoError(t, ledger.Decrement(ctx, "p-1", 3))

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockQuantity)

	// More than what is left must fail and leave stock untouched.
	err = ledger.Decrement(ctx, "p-1", 3)
	require.ErrorIs(t, err, ErrInsufficientStock)

	product, err = mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, product.StockQuantity)
}

func TestDecrementExactlyToZero(t *testing.T) {
	ledger, mem := newTestLedger(4)
	ctx := context.Background()

	require.NoError(t, ledger.Decrement(ctx, "p-1", 4))

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockQuantity)

	require.ErrorIs(t, ledger.Decrement(ctx, "p-1", 1), ErrInsufficientStock)
}

func TestRestoreConservation(t *testing.T) {
	ledger, mem := newTestLedger(10)
	ctx := context.Background()

	require.NoError(t, ledger.Decrement(ctx, "p-1", 7))
	require.NoError(t, ledger.Restore(ctx, "p-1", 7))

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 10, product.StockQuantity)
}

func TestRestoreUnknownProduct(t *testing.T) {
	ledger, _ := newTestLedger(1)
	require.ErrorIs(t, ledger.Restore(context.Background(), "missing", 1), ErrProductNotFound)
}

func TestInvalidQuantities(t *testing.T) {
	ledger, _ := newTestLedger(5)
	ctx := context.Background()

	require.ErrorIs(t, ledger.Decrement(ctx, "p-1", 0), ErrInvalidQuantity)
	require.ErrorIs(t, ledger.Decrement(ctx, "p-1", -2), ErrInvalidQuantity)
	require.ErrorIs(t, ledger.Restore(ctx, "p-1", 0), ErrInvalidQuantity)
}
