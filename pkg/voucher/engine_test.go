package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeVoucher() *models.Voucher {
	return &models.Voucher{
		ID:            "v-1",
		Code:          "SALE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: 10,
		MinOrderValue: 100000,
		MaxDiscount:   50000,
		StartDate:     time.Now().Add(-24 * time.Hour),
		EndDate:       time.Now().Add(24 * time.Hour),
		IsActive:      true,
	}
}

func newTestEngine(vouchers ...*models.Voucher) (*Engine, *store.MemoryStore) {
	mem := store.NewMemory()
	for _, v := range vouchers {
		mem.PutVoucher(v)
	}
	return NewEngine(mem), mem
}

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name        string
		voucher     *models.Voucher
		orderAmount float64
		want        float64
	}{
		{
			name: "percentage capped at max discount",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountPercentage,
				DiscountValue: 10,
				MaxDiscount:   50000,
			},
			orderAmount: 1000000,
			want:        50000,
		},
		{
			name: "percentage under the cap",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountPercentage,
				DiscountValue: 10,
				MaxDiscount:   50000,
			},
			orderAmount: 250000,
			want:        25000,
		},
		{
			name: "percentage without a cap",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountPercentage,
				DiscountValue: 25,
			},
			orderAmount: 1000000,
			want:        250000,
		},
		{
			name: "percentage floors fractional currency",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountPercentage,
				DiscountValue: 15,
			},
			orderAmount: 333,
			want:        49, // 49.95 floored
		},
		{
			name: "fixed capped at the order amount",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountFixed,
				DiscountValue: 50000,
			},
			orderAmount: 30000,
			want:        30000,
		},
		{
			name: "fixed below the order amount",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountFixed,
				DiscountValue: 50000,
			},
			orderAmount: 80000,
			want:        50000,
		},
		{
			name: "freeship is worth nothing against the subtotal",
			voucher: &models.Voucher{
				DiscountType:  models.DiscountFreeship,
				DiscountValue: 30000,
			},
			orderAmount: 200000,
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateDiscount(tt.voucher, tt.orderAmount))
		})
	}
}

func TestValidateHappyPath(t *testing.T) {
	engine, _ := newTestEngine(activeVoucher())

	result, err := engine.Validate(context.Background(), "SALE10", "user-1", 1000000)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 50000.0, result.Discount)
	assert.Equal(t, 950000.0, result.FinalAmount)
	require.NotNil(t, result.Voucher)
	assert.Equal(t, "SALE10", result.Voucher.Code)
}

func TestValidateNormalizesCode(t *testing.T) {
	engine, _ := newTestEngine(activeVoucher())

	result, err := engine.Validate(context.Background(), "  sale10 ", "user-1", 500000)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateNotFound(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Validate(context.Background(), "NOPE", "user-1", 500000)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateFailFastOrder(t *testing.T) {
	base := func() *models.Voucher { return activeVoucher() }

	tests := []struct {
		name   string
		mutate func(*models.Voucher)
		usage  *models.VoucherUsage
		amount float64
		reason string
	}{
		{
			name:   "inactive",
			mutate: func(v *models.Voucher) { v.IsActive = false },
			amount: 500000,
			reason: ReasonInactive,
		},
		{
			name:   "not yet active",
			mutate: func(v *models.Voucher) { v.StartDate = time.Now().Add(time.Hour) },
			amount: 500000,
			reason: ReasonNotYetActive,
		},
		{
			name:   "expired",
			mutate: func(v *models.Voucher) { v.EndDate = time.Now().Add(-time.Hour) },
			amount: 500000,
			reason: ReasonExpired,
		},
		{
			name: "exhausted",
			mutate: func(v *models.Voucher) {
				v.UsageLimit = 5
				v.UsedCount = 5
			},
			amount: 500000,
			reason: ReasonExhausted,
		},
		{
			name:   "per-user limit reached despite global headroom",
			mutate: func(v *models.Voucher) { v.PerUserLimit = 1 },
			usage:  &models.VoucherUsage{VoucherID: "v-1", UserID: "user-1", TimesUsed: 1},
			amount: 500000,
			reason: ReasonPerUserLimit,
		},
		{
			name:   "minimum order not met",
			mutate: func(*models.Voucher) {},
			amount: 50000,
			reason: ReasonMinimumOrder,
		},
		{
			name: "inactive wins over expired",
			mutate: func(v *models.Voucher) {
				v.IsActive = false
				v.EndDate = time.Now().Add(-time.Hour)
			},
			amount: 500000,
			reason: ReasonInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base()
			tt.mutate(v)
			engine, mem := newTestEngine(v)
			if tt.usage != nil {
				mem.PutVoucherUsage(tt.usage)
			}

			_, err := engine.Validate(context.Background(), v.Code, "user-1", tt.amount)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.reason, validationErr.Reason)
		})
	}
}

func TestValidateSkipsPerUserCheckWithoutUser(t *testing.T) {
	v := activeVoucher()
	v.PerUserLimit = 1
	engine, mem := newTestEngine(v)
	mem.PutVoucherUsage(&models.VoucherUsage{VoucherID: "v-1", UserID: "user-1", TimesUsed: 1})

	// Anonymous preview cannot know the user; it must still succeed.
	result, err := engine.Validate(context.Background(), "SALE10", "", 500000)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestRecordUsage(t *testing.T) {
	v := activeVoucher()
	v.UsageLimit = 10
	v.PerUserLimit = 3
	engine, mem := newTestEngine(v)

	ctx := context.Background()
	require.NoError(t, engine.RecordUsage(ctx, v, "user-1", "order-1", 25000))

	stored, err := mem.GetVoucherByCode(ctx, "SALE10")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	usage, err := mem.GetVoucherUsage(ctx, v.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.TimesUsed)
}

func TestRecordUsageIdempotentPerOrder(t *testing.T) {
	v := activeVoucher()
	v.UsageLimit = 10
	engine, mem := newTestEngine(v)

	ctx := context.Background()
	require.NoError(t, engine.RecordUsage(ctx, v, "user-1", "order-1", 25000))
	// Same order retried, e.g. after a transaction replay.
	require.NoError(t, engine.RecordUsage(ctx, v, "user-1", "order-1", 25000))

	stored, err := mem.GetVoucherByCode(ctx, "SALE10")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	usage, err := mem.GetVoucherUsage(ctx, v.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.TimesUsed)
}

func TestRecordUsageEnforcesLimitsAtWriteTime(t *testing.T) {
	v := activeVoucher()
	v.UsageLimit = 1
	engine, _ := newTestEngine(v)

	ctx := context.Background()
	require.NoError(t, engine.RecordUsage(ctx, v, "user-1", "order-1", 25000))

	err := engine.RecordUsage(ctx, v, "user-2", "order-2", 25000)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, ReasonExhausted, validationErr.Reason)
}

func TestValidateWindowBoundary(t *testing.T) {
	v := activeVoucher()
	engine, _ := newTestEngine(v)
	engine.now = func() time.Time { return v.EndDate }

	// End date itself is still inside the window.
	result, err := engine.Validate(context.Background(), "SALE10", "user-1", 500000)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
