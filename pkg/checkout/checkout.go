// Package checkout turns a cart into an order, payment and inventory
// movement as one atomic unit, and owns the reverse flow for cancellation
// and cash-on-delivery settlement.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/lifecycle"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/store"
	"github.com/example/storefront/pkg/voucher"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	ErrCartNotFound          = errors.New("checkout: cart not found")
	ErrEmptyCart             = errors.New("checkout: cart is empty")
	ErrProductNotFound       = errors.New("checkout: product not found")
	ErrPaymentMethodNotFound = errors.New("checkout: payment method not found")
	ErrPaymentMethodInactive = errors.New("checkout: payment method is inactive")
	ErrOrderNotFound         = errors.New("checkout: order not found")
	ErrAmountMismatch        = errors.New("checkout: declared amount does not match the computed amount")
	ErrNotCOD                = errors.New("checkout: order is not cash on delivery")
)

const defaultAmountEpsilon = 0.01

// CheckoutRequest carries the client's view of the purchase. The declared
// amounts exist only to catch stale client state; the server recomputes
// everything.
type CheckoutRequest struct {
	UserID          string   `json:"user_id"`
	CartID          string   `json:"cart_id"`
	PaymentMethodID string   `json:"payment_method_id"`
	TotalAmount     float64  `json:"total_amount"`
	VoucherCode     string   `json:"voucher_code,omitempty"`
	FinalAmount     *float64 `json:"final_amount,omitempty"`
	ShippingAddress string   `json:"shipping_address,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type OrderSummary struct {
	Order           *models.Order   `json:"order"`
	Payment         *models.Payment `json:"payment"`
	TotalItems      int             `json:"total_items"`
	TotalAmount     float64         `json:"total_amount"`
	VoucherDiscount float64         `json:"voucher_discount"`
}

type OrderDetails struct {
	Order        *models.Order        `json:"order"`
	Payment      *models.Payment      `json:"payment,omitempty"`
	OrderDetails []models.OrderDetail `json:"order_details"`
}

type Service struct {
	store    store.Store
	redis    *repository.RedisRepository
	mongo    *repository.MongoRepository
	logger   *zap.Logger
	epsilon  float64
	cacheTTL time.Duration
}

// NewService wires the orchestrator. Redis and Mongo are optional side
// channels; passing nil disables caching and audit logging respectively.
func NewService(s store.Store, redisRepo *repository.RedisRepository, mongoRepo *repository.MongoRepository, logger *zap.Logger, cfg *config.CheckoutConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		store:    s,
		redis:    redisRepo,
		mongo:    mongoRepo,
		logger:   logger,
		epsilon:  defaultAmountEpsilon,
		cacheTTL: 30 * time.Minute,
	}
	if cfg != nil {
		if cfg.AmountEpsilon > 0 {
			svc.epsilon = cfg.AmountEpsilon
		}
		if cfg.CacheTTL > 0 {
			svc.cacheTTL = cfg.CacheTTL
		}
	}
	return svc
}

// CreateOrderWithPayment converts a cart into an order, line items, payment
// and voucher redemption, decrements inventory and clears the cart. Every
// step runs inside one transaction; a failure anywhere leaves no trace.
func (s *Service) CreateOrderWithPayment(ctx context.Context, req *CheckoutRequest) (*OrderSummary, error) {
	var summary *OrderSummary
	var appliedVoucher *models.Voucher

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		cart, err := tx.GetCart(ctx, req.CartID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		method, err := tx.GetPaymentMethod(ctx, req.PaymentMethodID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPaymentMethodNotFound
			}
			return err
		}
		if !method.IsActive {
			return ErrPaymentMethodInactive
		}

		ledger := inventory.NewLedger(tx)

		// Price and availability pass. Unit prices are snapshotted here so
		// later product price changes cannot touch the order.
		var subtotal float64
		details := make([]models.OrderDetail, 0, len(cart.Items))
		for _, item := range cart.Items {
			product, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
				}
				return err
			}
			ok, err := ledger.CheckAvailable(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s: requested %d, available %d",
					inventory.ErrInsufficientStock, product.Name, item.Quantity, product.StockQuantity)
			}
			subtotal += product.Price * float64(item.Quantity)
			details = append(details, models.OrderDetail{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
		}

		discount := 0.0
		finalAmount := subtotal
		if req.VoucherCode != "" {
			engine := voucher.NewEngine(tx)
			result, err := engine.Validate(ctx, req.VoucherCode, req.UserID, subtotal)
			if err != nil {
				return err
			}
			discount = result.Discount
			finalAmount = result.FinalAmount
			appliedVoucher = result.Voucher
		}
		if req.FinalAmount != nil && math.Abs(finalAmount-*req.FinalAmount) > s.epsilon {
			return fmt.Errorf("%w: declared final %.2f, computed %.2f", ErrAmountMismatch, *req.FinalAmount, finalAmount)
		}

		// The client's declared total defends against a stale cart view.
		if math.Abs(subtotal-req.TotalAmount) > s.epsilon {
			return fmt.Errorf("%w: declared total %.2f, computed %.2f", ErrAmountMismatch, req.TotalAmount, subtotal)
		}

		order := &models.Order{
			ID:              uuid.NewString(),
			UserID:          req.UserID,
			TotalAmount:     finalAmount,
			Status:          models.OrderStatusNew,
			PaymentMethodID: method.ID,
			PaymentStatus:   models.PaymentStatusPending,
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			VoucherDiscount: discount,
			Details:         details,
		}
		if appliedVoucher != nil {
			order.VoucherCode = appliedVoucher.Code
		}
		for i := range order.Details {
			order.Details[i].OrderID = order.ID
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, item := range cart.Items {
			if err := ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		payment := &models.Payment{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			PaymentMethodID: method.ID,
			Amount:          finalAmount,
			Status:          models.PaymentStatusPending,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		if appliedVoucher != nil {
			engine := voucher.NewEngine(tx)
			if err := engine.RecordUsage(ctx, appliedVoucher, req.UserID, order.ID, discount); err != nil {
				return err
			}
		}

		if err := tx.ClearCart(ctx, req.CartID); err != nil {
			return err
		}

		totalItems := 0
		for _, item := range cart.Items {
			totalItems += item.Quantity
		}
		summary = &OrderSummary{
			Order:           order,
			Payment:         payment,
			TotalItems:      totalItems,
			TotalAmount:     finalAmount,
			VoucherDiscount: discount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout completed",
		zap.String("order_id", summary.Order.ID),
		zap.String("user_id", req.UserID),
		zap.Float64("total_amount", summary.TotalAmount),
		zap.Float64("voucher_discount", summary.VoucherDiscount))

	s.invalidateCache(ctx, summary.Order.ID)
	s.audit(AuditEntry{
		Action:   repository.AuditCheckout,
		EntityID: summary.Order.ID,
		Data: bson.M{
			"user_id":      req.UserID,
			"total_amount": summary.TotalAmount,
			"total_items":  summary.TotalItems,
		},
	})
	if appliedVoucher != nil {
		s.audit(AuditEntry{
			Action:   repository.AuditVoucherRedeemed,
			EntityID: summary.Order.ID,
			Data: bson.M{
				"voucher_code": appliedVoucher.Code,
				"user_id":      req.UserID,
				"discount":     summary.VoucherDiscount,
			},
		})
	}

	return summary, nil
}

// CancelOrder reverses an order when the lifecycle allows it: inventory goes
// back, the payment (if any) is cancelled, and the status flip commits last.
// Orders already in preparation become CANCEL_REQUEST and keep their stock
// until staff confirm.
func (s *Service) CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error) {
	var updated *models.Order

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		target, err := lifecycle.CancelTarget(order.Status)
		if err != nil {
			return err
		}

		if target == models.OrderStatusCancelRequest {
			if err := tx.UpdateOrderStatus(ctx, orderID, target, order.PaymentStatus, reason); err != nil {
				return err
			}
			order.Status = target
			order.CancelReason = reason
			updated = order
			return nil
		}

		ledger := inventory.NewLedger(tx)
		for _, detail := range order.Details {
			if err := ledger.Restore(ctx, detail.ProductID, detail.Quantity); err != nil {
				return err
			}
		}

		// Very old orders may predate payment creation; that is not an error.
		if err := tx.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusCancelled, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, models.OrderStatusCanceled, models.PaymentStatusCancelled, reason); err != nil {
			return err
		}
		order.Status = models.OrderStatusCanceled
		order.PaymentStatus = models.PaymentStatusCancelled
		order.CancelReason = reason
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", orderID),
		zap.String("status", string(updated.Status)),
		zap.String("reason", reason))

	s.invalidateCache(ctx, orderID)
	s.audit(AuditEntry{
		Action:   repository.AuditCancelOrder,
		EntityID: orderID,
		Data:     bson.M{"status": string(updated.Status), "reason": reason},
	})

	return updated, nil
}

// ProcessCODPayment settles a cash-on-delivery order: payment goes PAID and
// the order goes DELIVERED in one step, at delivery confirmation.
func (s *Service) ProcessCODPayment(ctx context.Context, orderID string) (*models.Order, error) {
	var updated *models.Order

	err := s.store.Atomic(ctx, func(tx store.Store) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		method, err := tx.GetPaymentMethod(ctx, order.PaymentMethodID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPaymentMethodNotFound
			}
			return err
		}
		if method.Code != models.PaymentMethodCOD {
			return ErrNotCOD
		}
		if !lifecycle.CanSettleCOD(order.Status) {
			return lifecycle.ErrInvalidTransition
		}

		transactionID := "COD-" + uuid.NewString()
		if err := tx.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusPaid, transactionID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, models.OrderStatusDelivered, models.PaymentStatusPaid, ""); err != nil {
			return err
		}
		order.Status = models.OrderStatusDelivered
		order.PaymentStatus = models.PaymentStatusPaid
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cod payment processed", zap.String("order_id", orderID))

	s.invalidateCache(ctx, orderID)
	s.audit(AuditEntry{
		Action:   repository.AuditCODSettlement,
		EntityID: orderID,
		Data:     bson.M{"amount": updated.TotalAmount},
	})

	return updated, nil
}

// GetOrderWithPayment joins an order with its line items and optional
// payment. Pure read, served from cache when possible.
func (s *Service) GetOrderWithPayment(ctx context.Context, orderID string) (*OrderDetails, error) {
	if s.redis != nil {
		var cached OrderDetails
		if err := s.redis.GetOrderCache(ctx, orderID, &cached); err == nil && cached.Order != nil {
			return &cached, nil
		}
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	payment, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	details := &OrderDetails{
		Order:        order,
		Payment:      payment,
		OrderDetails: order.Details,
	}

	if s.redis != nil {
		if err := s.redis.CacheOrder(ctx, orderID, details, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache order", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	return details, nil
}

// PreviewVoucher validates a voucher without a user context; nothing is
// recorded.
func (s *Service) PreviewVoucher(ctx context.Context, code string, orderAmount float64) (*voucher.Result, error) {
	return voucher.NewEngine(s.store).Validate(ctx, code, "", orderAmount)
}

// ValidateVoucherForUser validates a voucher including per-user limits;
// nothing is recorded.
func (s *Service) ValidateVoucherForUser(ctx context.Context, code, userID string, orderAmount float64) (*voucher.Result, error) {
	return voucher.NewEngine(s.store).Validate(ctx, code, userID, orderAmount)
}

type AuditEntry struct {
	Action   string
	EntityID string
	Data     bson.M
}

// audit writes the trail entry best-effort, off the request path, the same
// way the order flow must never fail because the audit store is down.
func (s *Service) audit(entry AuditEntry) {
	if s.mongo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongo.CreateAuditLog(ctx, &repository.AuditLog{
			Service:  "checkout-service",
			Action:   entry.Action,
			EntityID: entry.EntityID,
			Data:     entry.Data,
		}); err != nil {
			s.logger.Warn("failed to write audit log",
				zap.String("action", entry.Action),
				zap.String("entity_id", entry.EntityID),
				zap.Error(err))
		}
	}()
}

func (s *Service) invalidateCache(ctx context.Context, orderID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.InvalidateOrder(ctx, orderID); err != nil {
		s.logger.Warn("failed to invalidate order cache", zap.String("order_id", orderID), zap.Error(err))
	}
}
