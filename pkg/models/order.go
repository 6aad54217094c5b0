package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusNew           OrderStatus = "NEW"
	OrderStatusConfirmed     OrderStatus = "CONFIRMED"
	OrderStatusPreparing     OrderStatus = "PREPARING"
	OrderStatusShipping      OrderStatus = "SHIPPING"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
	OrderStatusCanceled      OrderStatus = "CANCELED"
	OrderStatusCancelRequest OrderStatus = "CANCEL_REQUEST"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Order is a committed purchase. Everything except Status/PaymentStatus is
// immutable after creation.
type Order struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	TotalAmount     float64        `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status          OrderStatus    `gorm:"type:varchar(20);not null;default:'NEW'" json:"status"`
	PaymentMethodID string         `gorm:"type:varchar(36);not null" json:"payment_method_id"`
	PaymentStatus   PaymentStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"payment_status"`
	VoucherCode     string         `gorm:"type:varchar(50)" json:"voucher_code,omitempty"`
	VoucherDiscount float64        `gorm:"type:decimal(12,2);not null;default:0" json:"voucher_discount"`
	ShippingAddress string         `gorm:"type:varchar(500)" json:"shipping_address,omitempty"`
	Notes           string         `gorm:"type:varchar(500)" json:"notes,omitempty"`
	CancelReason    string         `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"`
	Details         []OrderDetail  `gorm:"foreignKey:OrderID" json:"details,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderDetail snapshots product price at order time; UnitPrice never changes
// afterwards even when the product price does.
type OrderDetail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   string    `gorm:"type:varchar(36);index;not null" json:"order_id"`
	ProductID string    `gorm:"type:varchar(36);not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderDetail) TableName() string {
	return "order_details"
}

// Payment is the 1:1 monetary settlement for an order. Amount equals the
// order's total amount at creation time.
type Payment struct {
	ID              string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID         string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"order_id"`
	PaymentMethodID string        `gorm:"type:varchar(36);not null" json:"payment_method_id"`
	Amount          float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status          PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TransactionID   string        `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
