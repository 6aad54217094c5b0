// Package store is the persistence boundary for the checkout subsystem.
// Every mutation the orchestrator performs goes through a Store; Atomic is
// the unit-of-work that makes the multi-entity checkout and cancellation
// flows all-or-nothing.
package store

import (
	"context"
	"errors"

	"github.com/example/storefront/pkg/models"
)

var (
	ErrNotFound            = errors.New("store: record not found")
	ErrInsufficientStock   = errors.New("store: insufficient stock")
	ErrVoucherExhausted    = errors.New("store: voucher usage limit reached")
	ErrPerUserLimitReached = errors.New("store: per-user voucher limit reached")
	ErrDuplicateRedemption = errors.New("store: voucher already redeemed for this order")
)

type Store interface {
	// Atomic runs fn against a transaction-scoped store. If fn returns an
	// error every write made inside it is rolled back.
	Atomic(ctx context.Context, fn func(Store) error) error

	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID string) error

	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	// DecrementStock subtracts quantity as a single conditional update and
	// returns ErrInsufficientStock when the row has less than quantity left.
	DecrementStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error

	GetPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, payment models.PaymentStatus, cancelReason string) error

	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string) error

	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	GetVoucherUsage(ctx context.Context, voucherID, userID string) (*models.VoucherUsage, error)
	// CreateVoucherRedemption inserts the per-order redemption marker and
	// returns ErrDuplicateRedemption when the order already redeemed it.
	CreateVoucherRedemption(ctx context.Context, redemption *models.VoucherRedemption) error
	// IncrementVoucherUsed bumps used_count, failing with ErrVoucherExhausted
	// once the usage limit is hit. A zero limit means unlimited.
	IncrementVoucherUsed(ctx context.Context, voucherID string) error
	// UpsertVoucherUsage bumps the per-user counter, failing with
	// ErrPerUserLimitReached once perUserLimit is hit. A zero limit means
	// unlimited.
	UpsertVoucherUsage(ctx context.Context, voucherID, userID string, perUserLimit int) error
}
