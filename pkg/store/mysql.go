package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/lifecycle"
	"github.com/example/storefront/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore is the production Store backed by gorm/MySQL.
type MySQLStore struct {
	db *gorm.DB
}

func NewMySQL(cfg *config.MySQLConfig) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Product{},
		&models.PaymentMethod{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderDetail{},
		&models.Payment{},
		&models.Voucher{},
		&models.VoucherUsage{},
		&models.VoucherRedemption{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MySQLStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *MySQLStore) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	var cart models.Cart
	if err := s.db.WithContext(ctx).Preload("Items").First(&cart, "id = ?", cartID).Error; err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

func (s *MySQLStore) ClearCart(ctx context.Context, cartID string) error {
	return s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (s *MySQLStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// DecrementStock is a single conditional update so two concurrent checkouts
// can never both pass a stock check and drive the quantity below zero.
func (s *MySQLStore) DecrementStock(ctx context.Context, productID string, quantity int) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProduct(ctx, productID); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (s *MySQLStore) RestoreStock(ctx context.Context, productID string, quantity int) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) GetPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := s.db.WithContext(ctx).First(&method, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &method, nil
}

func (s *MySQLStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Details").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, notFound(err)
	}
	// Rows written before the status migration carry the legacy value set.
	order.Status = lifecycle.Normalize(string(order.Status))
	return &order, nil
}

func (s *MySQLStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, payment models.PaymentStatus, cancelReason string) error {
	updates := map[string]interface{}{
		"status":         status,
		"payment_status": payment,
	}
	if cancelReason != "" {
		updates["cancel_reason"] = cancelReason
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).First(&models.Order{}, "id = ?", orderID).Error; err != nil {
			return notFound(err)
		}
	}
	return nil
}

func (s *MySQLStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *MySQLStore) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (s *MySQLStore) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string) error {
	updates := map[string]interface{}{"status": status}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}

	res := s.db.WithContext(ctx).Model(&models.Payment{}).Where("order_id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).First(&models.Payment{}, "order_id = ?", orderID).Error; err != nil {
			return notFound(err)
		}
	}
	return nil
}

func (s *MySQLStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := s.db.WithContext(ctx).First(&voucher, "code = ?", code).Error; err != nil {
		return nil, notFound(err)
	}
	return &voucher, nil
}

func (s *MySQLStore) GetVoucherUsage(ctx context.Context, voucherID, userID string) (*models.VoucherUsage, error) {
	var usage models.VoucherUsage
	err := s.db.WithContext(ctx).
		First(&usage, "voucher_id = ? AND user_id = ?", voucherID, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &usage, nil
}

func (s *MySQLStore) CreateVoucherRedemption(ctx context.Context, redemption *models.VoucherRedemption) error {
	err := s.db.WithContext(ctx).Create(redemption).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRedemption
	}
	return err
}

// IncrementVoucherUsed guards the global usage limit in the update itself so
// the counter can never pass usage_limit, no matter how many transactions
// validated the same voucher concurrently.
func (s *MySQLStore) IncrementVoucherUsed(ctx context.Context, voucherID string) error {
	res := s.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", voucherID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).First(&models.Voucher{}, "id = ?", voucherID).Error; err != nil {
			return notFound(err)
		}
		return ErrVoucherExhausted
	}
	return nil
}

func (s *MySQLStore) UpsertVoucherUsage(ctx context.Context, voucherID, userID string, perUserLimit int) error {
	res := s.db.WithContext(ctx).Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND user_id = ? AND (? = 0 OR times_used < ?)",
			voucherID, userID, perUserLimit, perUserLimit).
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Either the row does not exist yet or the user is at the limit.
	err := s.db.WithContext(ctx).
		First(&models.VoucherUsage{}, "voucher_id = ? AND user_id = ?", voucherID, userID).Error
	if err == nil {
		return ErrPerUserLimitReached
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	usage := &models.VoucherUsage{VoucherID: voucherID, UserID: userID, TimesUsed: 1}
	if err := s.db.WithContext(ctx).Create(usage).Error; err != nil {
		// Lost an insert race with another transaction; count through the
		// guarded update instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.UpsertVoucherUsage(ctx, voucherID, userID, perUserLimit)
		}
		return err
	}
	return nil
}
