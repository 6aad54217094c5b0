package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name          string         `gorm:"type:varchar(200);not null" json:"name"`
	Price         float64        `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int            `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

type PaymentMethod struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// Payment method codes. COD settles at delivery confirmation, everything else
// settles through an external gateway out of scope here.
const (
	PaymentMethodCOD = "COD"
)
