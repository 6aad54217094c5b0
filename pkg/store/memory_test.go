package store

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicCommitsOnSuccess(t *testing.T) {
	mem := NewMemory()
	mem.PutProduct(&models.Product{ID: "p-1", StockQuantity: 5})
	ctx := context.Background()

	err := mem.Atomic(ctx, func(tx Store) error {
		return tx.DecrementStock(ctx, "p-1", 2)
	})
	require.NoError(t, err)

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 3, product.StockQuantity)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	mem := NewMemory()
	mem.PutProduct(&models.Product{ID: "p-1", StockQuantity: 5})
	ctx := context.Background()

	boom := errors.New("boom")
	err := mem.Atomic(ctx, func(tx Store) error {
		if err := tx.DecrementStock(ctx, "p-1", 2); err != nil {
			return err
		}
		if err := tx.CreateOrder(ctx, &models.Order{ID: "o-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 5, product.StockQuantity, "stock must be untouched after rollback")

	_, err = mem.GetOrder(ctx, "o-1")
	require.ErrorIs(t, err, ErrNotFound, "order created inside a failed transaction must not exist")
}

func TestAtomicNests(t *testing.T) {
	mem := NewMemory()
	mem.PutProduct(&models.Product{ID: "p-1", StockQuantity: 5})
	ctx := context.Background()

	err := mem.Atomic(ctx, func(tx Store) error {
		return tx.Atomic(ctx, func(inner Store) error {
			return inner.DecrementStock(ctx, "p-1", 1)
		})
	})
	require.NoError(t, err)

	product, err := mem.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 4, product.StockQuantity)
}

func TestVoucherGuards(t *testing.T) {
	mem := NewMemory()
	mem.PutVoucher(&models.Voucher{ID: "v-1", Code: "X", UsageLimit: 1})
	ctx := context.Background()

	require.NoError(t, mem.IncrementVoucherUsed(ctx, "v-1"))
	require.ErrorIs(t, mem.IncrementVoucherUsed(ctx, "v-1"), ErrVoucherExhausted)

	require.NoError(t, mem.UpsertVoucherUsage(ctx, "v-1", "u-1", 1))
	require.ErrorIs(t, mem.UpsertVoucherUsage(ctx, "v-1", "u-1", 1), ErrPerUserLimitReached)
	// Unlimited per-user keeps counting.
	require.NoError(t, mem.UpsertVoucherUsage(ctx, "v-1", "u-2", 0))
	require.NoError(t, mem.UpsertVoucherUsage(ctx, "v-1", "u-2", 0))

	require.NoError(t, mem.CreateVoucherRedemption(ctx, &models.VoucherRedemption{VoucherID: "v-1", OrderID: "o-1"}))
	require.ErrorIs(t,
		mem.CreateVoucherRedemption(ctx, &models.VoucherRedemption{VoucherID: "v-1", OrderID: "o-1"}),
		ErrDuplicateRedemption)
}
