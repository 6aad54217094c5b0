package models

import (
	"time"
)

// Cart is a user's pending selection. At most one active cart per user.
type Cart struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    string    `gorm:"type:varchar(36);index;not null" json:"cart_id"`
	ProductID string    `gorm:"type:varchar(36);not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
