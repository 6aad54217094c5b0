// Package voucher decides whether a discount code applies to an order and
// computes the exact discount amount.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/store"
)

var ErrNotFound = errors.New("voucher: not found")

// Validation failure reasons, exposed to clients so they can render a
// precise message.
const (
	ReasonInactive     = "VOUCHER_INACTIVE"
	ReasonExpired      = "VOUCHER_EXPIRED"
	ReasonNotYetActive = "VOUCHER_NOT_YET_ACTIVE"
	ReasonExhausted    = "VOUCHER_EXHAUSTED"
	ReasonPerUserLimit = "PER_USER_LIMIT_REACHED"
	ReasonMinimumOrder = "MINIMUM_ORDER_NOT_MET"
)

// ValidationError is a business rejection of a voucher, as opposed to an
// infrastructure failure.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("voucher: %s: %s", e.Reason, e.Message)
}

// Result is the outcome of a successful validation.
type Result struct {
	Valid       bool            `json:"valid"`
	Discount    float64         `json:"discount"`
	FinalAmount float64         `json:"final_amount"`
	Voucher     *models.Voucher `json:"voucher,omitempty"`
}

type Engine struct {
	store store.Store
	now   func() time.Time
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// NormalizeCode maps user input onto the stored code form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a voucher against (user, orderAmount) and computes the
// discount. Rules run in a fixed order and the first violated rule wins.
// An empty userID skips the per-user limit check (anonymous preview).
func (e *Engine) Validate(ctx context.Context, code, userID string, orderAmount float64) (*Result, error) {
	v, err := e.store.GetVoucherByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !v.IsActive {
		return nil, &ValidationError{Reason: ReasonInactive, Message: "voucher is not active"}
	}

	now := e.now()
	if now.Before(v.StartDate) {
		return nil, &ValidationError{Reason: ReasonNotYetActive, Message: "voucher is not active yet"}
	}
	if now.After(v.EndDate) {
		return nil, &ValidationError{Reason: ReasonExpired, Message: "voucher has expired"}
	}

	if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
		return nil, &ValidationError{Reason: ReasonExhausted, Message: "voucher usage limit reached"}
	}

	if userID != "" && v.PerUserLimit > 0 {
		usage, err := e.store.GetVoucherUsage(ctx, v.ID, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if usage != nil && usage.TimesUsed >= v.PerUserLimit {
			return nil, &ValidationError{Reason: ReasonPerUserLimit, Message: "you have already used this voucher"}
		}
	}

	if orderAmount < v.MinOrderValue {
		return nil, &ValidationError{
			Reason:  ReasonMinimumOrder,
			Message: fmt.Sprintf("order amount must be at least %.2f", v.MinOrderValue),
		}
	}

	discount := CalculateDiscount(v, orderAmount)
	return &Result{
		Valid:       true,
		Discount:    discount,
		FinalAmount: math.Max(0, orderAmount-discount),
		Voucher:     v,
	}, nil
}

// CalculateDiscount is deterministic and floors to whole currency units so
// repeated validation of the same order always yields the same figure.
func CalculateDiscount(v *models.Voucher, orderAmount float64) float64 {
	var raw float64
	switch v.DiscountType {
	case models.DiscountPercentage:
		raw = v.DiscountValue / 100 * orderAmount
		if v.MaxDiscount > 0 && raw > v.MaxDiscount {
			raw = v.MaxDiscount
		}
	case models.DiscountFixed:
		raw = math.Min(orderAmount, v.DiscountValue)
	case models.DiscountFreeship:
		// The shipping fee is waived outside this engine; against the order
		// subtotal a freeship voucher is worth nothing.
		raw = 0
	}
	return math.Max(0, math.Floor(raw))
}

// RecordUsage counts one redemption: the voucher's global counter and the
// user's counter both move by one. Keyed off the order id it is idempotent,
// so re-running a retried checkout transaction cannot double-count.
func (e *Engine) RecordUsage(ctx context.Context, v *models.Voucher, userID, orderID string, discountApplied float64) error {
	err := e.store.CreateVoucherRedemption(ctx, &models.VoucherRedemption{
		VoucherID:       v.ID,
		UserID:          userID,
		OrderID:         orderID,
		DiscountApplied: discountApplied,
	})
	if errors.Is(err, store.ErrDuplicateRedemption) {
		// Already counted for this order.
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.store.IncrementVoucherUsed(ctx, v.ID); err != nil {
		if errors.Is(err, store.ErrVoucherExhausted) {
			return &ValidationError{Reason: ReasonExhausted, Message: "voucher usage limit reached"}
		}
		return err
	}

	if err := e.store.UpsertVoucherUsage(ctx, v.ID, userID, v.PerUserLimit); err != nil {
		if errors.Is(err, store.ErrPerUserLimitReached) {
			return &ValidationError{Reason: ReasonPerUserLimit, Message: "you have already used this voucher"}
		}
		return err
	}
	return nil
}
