package store

import (
	"context"
	"sync"

	"github.com/example/storefront/pkg/models"
)

// MemoryStore keeps everything in maps behind one mutex. It backs unit tests
// and local development; Atomic gives the same all-or-nothing semantics as
// the MySQL store by running the callback against a copy and swapping it in
// only on success.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

type memoryData struct {
	carts          map[string]*models.Cart
	products       map[string]*models.Product
	paymentMethods map[string]*models.PaymentMethod
	orders         map[string]*models.Order
	payments       map[string]*models.Payment           // keyed by order id
	vouchers       map[string]*models.Voucher           // keyed by voucher id
	voucherCodes   map[string]string                    // code -> voucher id
	usages         map[string]*models.VoucherUsage      // voucherID|userID
	redemptions    map[string]*models.VoucherRedemption // voucherID|orderID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memoryData{
			carts:          map[string]*models.Cart{},
			products:       map[string]*models.Product{},
			paymentMethods: map[string]*models.PaymentMethod{},
			orders:         map[string]*models.Order{},
			payments:       map[string]*models.Payment{},
			vouchers:       map[string]*models.Voucher{},
			voucherCodes:   map[string]string{},
			usages:         map[string]*models.VoucherUsage{},
			redemptions:    map[string]*models.VoucherRedemption{},
		},
	}
}

func (m *MemoryStore) lock() {
	if !m.inTx {
		m.mu.Lock()
	}
}

func (m *MemoryStore) unlock() {
	if !m.inTx {
		m.mu.Unlock()
	}
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clone := m.data.clone()
	tx := &MemoryStore{mu: m.mu, data: clone, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = clone
	return nil
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		carts:          make(map[string]*models.Cart, len(d.carts)),
		products:       make(map[string]*models.Product, len(d.products)),
		paymentMethods: make(map[string]*models.PaymentMethod, len(d.paymentMethods)),
		orders:         make(map[string]*models.Order, len(d.orders)),
		payments:       make(map[string]*models.Payment, len(d.payments)),
		vouchers:       make(map[string]*models.Voucher, len(d.vouchers)),
		voucherCodes:   make(map[string]string, len(d.voucherCodes)),
		usages:         make(map[string]*models.VoucherUsage, len(d.usages)),
		redemptions:    make(map[string]*models.VoucherRedemption, len(d.redemptions)),
	}
	for k, v := range d.carts {
		cart := *v
		cart.Items = append([]models.CartItem(nil), v.Items...)
		out.carts[k] = &cart
	}
	for k, v := range d.products {
		p := *v
		out.products[k] = &p
	}
	for k, v := range d.paymentMethods {
		pm := *v
		out.paymentMethods[k] = &pm
	}
	for k, v := range d.orders {
		o := *v
		o.Details = append([]models.OrderDetail(nil), v.Details...)
		out.orders[k] = &o
	}
	for k, v := range d.payments {
		p := *v
		out.payments[k] = &p
	}
	for k, v := range d.vouchers {
		vo := *v
		out.vouchers[k] = &vo
	}
	for k, v := range d.voucherCodes {
		out.voucherCodes[k] = v
	}
	for k, v := range d.usages {
		u := *v
		out.usages[k] = &u
	}
	for k, v := range d.redemptions {
		r := *v
		out.redemptions[k] = &r
	}
	return out
}

// Put helpers seed state for tests and local fixtures.

func (m *MemoryStore) PutCart(cart *models.Cart) {
	m.lock()
	defer m.unlock()
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	m.data.carts[cart.ID] = &c
}

func (m *MemoryStore) PutProduct(product *models.Product) {
	m.lock()
	defer m.unlock()
	p := *product
	m.data.products[product.ID] = &p
}

func (m *MemoryStore) PutPaymentMethod(method *models.PaymentMethod) {
	m.lock()
	defer m.unlock()
	pm := *method
	m.data.paymentMethods[method.ID] = &pm
}

func (m *MemoryStore) PutVoucher(voucher *models.Voucher) {
	m.lock()
	defer m.unlock()
	v := *voucher
	m.data.vouchers[voucher.ID] = &v
	m.data.voucherCodes[voucher.Code] = voucher.ID
}

func (m *MemoryStore) PutOrder(order *models.Order) {
	m.lock()
	defer m.unlock()
	o := *order
	o.Details = append([]models.OrderDetail(nil), order.Details...)
	m.data.orders[order.ID] = &o
}

func (m *MemoryStore) PutPayment(payment *models.Payment) {
	m.lock()
	defer m.unlock()
	p := *payment
	m.data.payments[payment.OrderID] = &p
}

func (m *MemoryStore) PutVoucherUsage(usage *models.VoucherUsage) {
	m.lock()
	defer m.unlock()
	u := *usage
	m.data.usages[usage.VoucherID+"|"+usage.UserID] = &u
}

func (m *MemoryStore) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	m.lock()
	defer m.unlock()
	cart, ok := m.data.carts[cartID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	return &c, nil
}

func (m *MemoryStore) ClearCart(ctx context.Context, cartID string) error {
	m.lock()
	defer m.unlock()
	if cart, ok := m.data.carts[cartID]; ok {
		cart.Items = nil
	}
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	m.lock()
	defer m.unlock()
	product, ok := m.data.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	p := *product
	return &p, nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, productID string, quantity int) error {
	m.lock()
	defer m.unlock()
	product, ok := m.data.products[productID]
	if !ok {
		return ErrNotFound
	}
	if product.StockQuantity < quantity {
		return ErrInsufficientStock
	}
	product.StockQuantity -= quantity
	return nil
}

func (m *MemoryStore) RestoreStock(ctx context.Context, productID string, quantity int) error {
	m.lock()
	defer m.unlock()
	product, ok := m.data.products[productID]
	if !ok {
		return ErrNotFound
	}
	product.StockQuantity += quantity
	return nil
}

func (m *MemoryStore) GetPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error) {
	m.lock()
	defer m.unlock()
	method, ok := m.data.paymentMethods[id]
	if !ok {
		return nil, ErrNotFound
	}
	pm := *method
	return &pm, nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.lock()
	defer m.unlock()
	o := *order
	o.Details = append([]models.OrderDetail(nil), order.Details...)
	m.data.orders[order.ID] = &o
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.lock()
	defer m.unlock()
	order, ok := m.data.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	o := *order
	o.Details = append([]models.OrderDetail(nil), order.Details...)
	return &o, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, payment models.PaymentStatus, cancelReason string) error {
	m.lock()
	defer m.unlock()
	order, ok := m.data.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.PaymentStatus = payment
	if cancelReason != "" {
		order.CancelReason = cancelReason
	}
	return nil
}

func (m *MemoryStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	m.lock()
	defer m.unlock()
	p := *payment
	m.data.payments[payment.OrderID] = &p
	return nil
}

func (m *MemoryStore) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	m.lock()
	defer m.unlock()
	payment, ok := m.data.payments[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	p := *payment
	return &p, nil
}

func (m *MemoryStore) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, transactionID string) error {
	m.lock()
	defer m.unlock()
	payment, ok := m.data.payments[orderID]
	if !ok {
		return ErrNotFound
	}
	payment.Status = status
	if transactionID != "" {
		payment.TransactionID = transactionID
	}
	return nil
}

func (m *MemoryStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	m.lock()
	defer m.unlock()
	id, ok := m.data.voucherCodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	v := *m.data.vouchers[id]
	return &v, nil
}

func (m *MemoryStore) GetVoucherUsage(ctx context.Context, voucherID, userID string) (*models.VoucherUsage, error) {
	m.lock()
	defer m.unlock()
	usage, ok := m.data.usages[voucherID+"|"+userID]
	if !ok {
		return nil, ErrNotFound
	}
	u := *usage
	return &u, nil
}

func (m *MemoryStore) CreateVoucherRedemption(ctx context.Context, redemption *models.VoucherRedemption) error {
	m.lock()
	defer m.unlock()
	key := redemption.VoucherID + "|" + redemption.OrderID
	if _, ok := m.data.redemptions[key]; ok {
		return ErrDuplicateRedemption
	}
	r := *redemption
	m.data.redemptions[key] = &r
	return nil
}

func (m *MemoryStore) IncrementVoucherUsed(ctx context.Context, voucherID string) error {
	m.lock()
	defer m.unlock()
	voucher, ok := m.data.vouchers[voucherID]
	if !ok {
		return ErrNotFound
	}
	if voucher.UsageLimit > 0 && voucher.UsedCount >= voucher.UsageLimit {
		return ErrVoucherExhausted
	}
	voucher.UsedCount++
	return nil
}

func (m *MemoryStore) UpsertVoucherUsage(ctx context.Context, voucherID, userID string, perUserLimit int) error {
	m.lock()
	defer m.unlock()
	key := voucherID + "|" + userID
	usage, ok := m.data.usages[key]
	if !ok {
		m.data.usages[key] = &models.VoucherUsage{VoucherID: voucherID, UserID: userID, TimesUsed: 1}
		return nil
	}
	if perUserLimit > 0 && usage.TimesUsed >= perUserLimit {
		return ErrPerUserLimitReached
	}
	usage.TimesUsed++
	return nil
}
