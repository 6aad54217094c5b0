// Package inventory is the authoritative gate for stock mutation. All stock
// changes made by checkout and cancellation pass through a Ledger; nothing
// else may write Product.StockQuantity.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/store"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Ledger is cheap to construct; the orchestrator builds one per transaction
// over the tx-scoped store so its mutations join the surrounding unit of work.
type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// CheckAvailable reports whether the product currently has at least quantity
// in stock. A passing check is advisory only; Decrement re-checks atomically.
func (l *Ledger) CheckAvailable(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	product, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrProductNotFound
		}
		return false, err
	}
	return product.StockQuantity >= quantity, nil
}

// Decrement subtracts quantity from the product's stock. The store performs
// it as one conditional update, so stock can never go negative even under
// concurrent checkouts.
func (l *Ledger) Decrement(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	err := l.store.DecrementStock(ctx, productID, quantity)
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return fmt.Errorf("%w: product %s short by request of %d", ErrInsufficientStock, productID, quantity)
	case errors.Is(err, store.ErrNotFound):
		return ErrProductNotFound
	}
	return err
}

// Restore returns quantity to stock, used when an order is cancelled. There
// is no upper bound; inventory can always grow back.
func (l *Ledger) Restore(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	err := l.store.RestoreStock(ctx, productID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}
