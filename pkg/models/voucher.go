package models

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
	DiscountFreeship   DiscountType = "FREESHIP"
)

// Voucher is a coded discount rule. Code is stored uppercase; zero UsageLimit,
// MaxDiscount or PerUserLimit means "no limit".
type Voucher struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code          string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountType  DiscountType   `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue float64        `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MinOrderValue float64        `gorm:"type:decimal(12,2);not null;default:0" json:"min_order_value"`
	MaxDiscount   float64        `gorm:"type:decimal(12,2);not null;default:0" json:"max_discount"`
	StartDate     time.Time      `gorm:"index;not null" json:"start_date"`
	EndDate       time.Time      `gorm:"index;not null" json:"end_date"`
	UsageLimit    int            `gorm:"not null;default:0" json:"usage_limit"`
	UsedCount     int            `gorm:"not null;default:0" json:"used_count"`
	PerUserLimit  int            `gorm:"not null;default:0" json:"per_user_limit"`
	Combinable    bool           `gorm:"not null;default:false" json:"combinable"`
	IsActive      bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

// VoucherUsage counts redemptions per (voucher, user). Rows are never deleted.
type VoucherUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VoucherID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voucher_user" json:"voucher_id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voucher_user" json:"user_id"`
	TimesUsed int       `gorm:"not null;default:0" json:"times_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VoucherUsage) TableName() string {
	return "voucher_usages"
}

// VoucherRedemption records one redemption per order. The unique index on
// (voucher_id, order_id) is what makes usage recording idempotent under
// whole-transaction retry.
type VoucherRedemption struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	VoucherID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voucher_order" json:"voucher_id"`
	UserID          string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	OrderID         string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_voucher_order" json:"order_id"`
	DiscountApplied float64   `gorm:"type:decimal(12,2);not null;default:0" json:"discount_applied"`
	CreatedAt       time.Time `json:"created_at"`
}

func (VoucherRedemption) TableName() string {
	return "voucher_redemptions"
}
