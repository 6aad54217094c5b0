package lifecycle

import (
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanCancel(t *testing.T) {
	cancellable := []models.OrderStatus{
		models.OrderStatusNew,
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
	}
	for _, status := range cancellable {
		assert.True(t, CanCancel(status), "expected %s to be cancellable", status)
	}

	notCancellable := []models.OrderStatus{
		models.OrderStatusShipping,
		models.OrderStatusDelivered,
		models.OrderStatusCanceled,
		models.OrderStatusCancelRequest,
	}
	for _, status := range notCancellable {
		assert.False(t, CanCancel(status), "expected %s to not be cancellable", status)
	}
}

func TestCancelTarget(t *testing.T) {
	tests := []struct {
		name    string
		status  models.OrderStatus
		want    models.OrderStatus
		wantErr bool
	}{
		{"new cancels outright", models.OrderStatusNew, models.OrderStatusCanceled, false},
		{"confirmed cancels outright", models.OrderStatusConfirmed, models.OrderStatusCanceled, false},
		{"preparing routes to cancel request", models.OrderStatusPreparing, models.OrderStatusCancelRequest, false},
		{"shipping rejects", models.OrderStatusShipping, "", true},
		{"delivered rejects", models.OrderStatusDelivered, "", true},
		{"already canceled rejects", models.OrderStatusCanceled, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CancelTarget(tt.status)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.OrderStatusNew, models.OrderStatusConfirmed))
	assert.True(t, CanTransition(models.OrderStatusShipping, models.OrderStatusDelivered))
	assert.True(t, CanTransition(models.OrderStatusCancelRequest, models.OrderStatusCanceled))
	assert.True(t, CanTransition(models.OrderStatusCancelRequest, models.OrderStatusPreparing))

	assert.False(t, CanTransition(models.OrderStatusNew, models.OrderStatusDelivered))
	assert.False(t, CanTransition(models.OrderStatusDelivered, models.OrderStatusShipping))
	assert.False(t, CanTransition(models.OrderStatusCanceled, models.OrderStatusNew))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.OrderStatusDelivered))
	assert.True(t, IsTerminal(models.OrderStatusCanceled))
	assert.False(t, IsTerminal(models.OrderStatusNew))
	assert.False(t, IsTerminal(models.OrderStatusCancelRequest))
}

func TestCanSettleCOD(t *testing.T) {
	assert.True(t, CanSettleCOD(models.OrderStatusNew))
	assert.True(t, CanSettleCOD(models.OrderStatusShipping))
	assert.False(t, CanSettleCOD(models.OrderStatusDelivered))
	assert.False(t, CanSettleCOD(models.OrderStatusCanceled))
	assert.False(t, CanSettleCOD(models.OrderStatusCancelRequest))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want models.OrderStatus
	}{
		{"pending", models.OrderStatusNew},
		{"paid", models.OrderStatusConfirmed},
		{"shipped", models.OrderStatusShipping},
		{"completed", models.OrderStatusDelivered},
		{"cancelled", models.OrderStatusCanceled},
		{"NEW", models.OrderStatusNew},
		{"CANCEL_REQUEST", models.OrderStatusCancelRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.raw), "raw value %q", tt.raw)
	}
}
