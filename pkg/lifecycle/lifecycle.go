// Package lifecycle owns the order status state machine. Rules are pure
// functions over status values so callers never reach through a storage
// object to ask what is legal.
package lifecycle

import (
	"errors"

	"github.com/example/storefront/pkg/models"
)

var ErrInvalidTransition = errors.New("lifecycle: invalid order status transition")

// transitions lists the legal forward moves. CANCELED and CANCEL_REQUEST are
// reached through CancelTarget, not here.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusNew:           {models.OrderStatusConfirmed},
	models.OrderStatusConfirmed:     {models.OrderStatusPreparing},
	models.OrderStatusPreparing:     {models.OrderStatusShipping},
	models.OrderStatusShipping:      {models.OrderStatusDelivered},
	models.OrderStatusCancelRequest: {models.OrderStatusCanceled, models.OrderStatusPreparing},
}

// CanTransition reports whether moving from one status to another along the
// happy path is legal.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may touch the order.
func IsTerminal(status models.OrderStatus) bool {
	return status == models.OrderStatusDelivered || status == models.OrderStatusCanceled
}

// CanCancel reports whether a cancellation may be initiated at all.
func CanCancel(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusNew, models.OrderStatusConfirmed, models.OrderStatusPreparing:
		return true
	}
	return false
}

// CancelTarget resolves where a cancellation lands. Orders already being
// prepared route to CANCEL_REQUEST (goods may be packed, staff must confirm)
// instead of cancelling outright.
func CancelTarget(status models.OrderStatus) (models.OrderStatus, error) {
	switch status {
	case models.OrderStatusNew, models.OrderStatusConfirmed:
		return models.OrderStatusCanceled, nil
	case models.OrderStatusPreparing:
		return models.OrderStatusCancelRequest, nil
	}
	return "", ErrInvalidTransition
}

// CanSettleCOD reports whether a cash-on-delivery settlement may run. COD is
// settled at delivery confirmation, so any live order qualifies; terminal and
// cancel-requested orders do not.
func CanSettleCOD(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusNew, models.OrderStatusConfirmed,
		models.OrderStatusPreparing, models.OrderStatusShipping:
		return true
	}
	return false
}

// legacyStatuses maps the retired lowercase status set, still present in rows
// written before the migration, onto the canonical enum.
var legacyStatuses = map[string]models.OrderStatus{
	"pending":   models.OrderStatusNew,
	"paid":      models.OrderStatusConfirmed,
	"shipped":   models.OrderStatusShipping,
	"completed": models.OrderStatusDelivered,
	"cancelled": models.OrderStatusCanceled,
}

// Normalize maps a raw status column value to the canonical enum. Canonical
// values pass through; legacy values are translated; anything else is
// returned as-is for the caller to reject.
func Normalize(raw string) models.OrderStatus {
	if mapped, ok := legacyStatuses[raw]; ok {
		return mapped
	}
	return models.OrderStatus(raw)
}
