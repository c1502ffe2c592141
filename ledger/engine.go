/*
engine.go - Checkout/debt-ledger engine

PURPOSE:
  Implements the transactional procedures that keep inventory, orders
  and customer balances consistent:

    Checkout        validate stock, decrement it, resolve/create the
                    customer, create order + items, raise debt
    EditOrder       reverse the old order's effects, then re-apply the
                    checkout procedure into the same row
    DeleteOrder     reverse effects, then remove order + items
    Debt log CRUD   manual balance adjustments with an audit row
    UpdateOrderDate rewrite an order's timestamp only

INVARIANTS:
  - Stock never goes negative; a failing line aborts the whole request.
  - customer.debt always equals the sum of linked order totals plus the
    sum of manual debt-log change amounts. Every path that moves debt
    goes through applyDebt inside the same transaction as the event
    that caused the move.
  - Sale-driven debt changes never write a DebtLog row. The order is
    the audit record; mixing the two double-counts the debt.

SEE ALSO:
  - history.go: Merged audit trail per customer
  - store.go:   Transaction boundary
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Engine executes all ledger-affecting operations against an injected
// store. Construct one per process; it owns the ordering-key clock.
type Engine struct {
	store Store
	clock *Clock
}

// NewEngine creates an engine bound to the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		clock: NewClock(),
	}
}

// CheckoutResult identifies the order a successful checkout created.
type CheckoutResult struct {
	OrderID int64
	Total   int64
}

// =============================================================================
// CHECKOUT
// =============================================================================

// Checkout rings up a cart as a single transaction. An empty or blank
// customerName records an anonymous walk-in sale: no customer row, no
// debt change. customerPhone is only used when a new customer is created.
func (e *Engine) Checkout(ctx context.Context, cart []CartItem, customerName, customerPhone string) (*CheckoutResult, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	var result CheckoutResult
	err := e.store.WithTx(ctx, func(tx Tx) error {
		total, err := e.takeStock(ctx, tx, cart)
		if err != nil {
			return err
		}

		customerID, name, err := e.resolveCustomer(ctx, tx, customerName, customerPhone)
		if err != nil {
			return err
		}
		if customerID != nil {
			if err := e.applyDebt(ctx, tx, *customerID, total); err != nil {
				return err
			}
		}

		now := time.Now()
		order := &Order{
			CustomerID:   customerID,
			CustomerName: name,
			TotalAmount:  total,
			CreatedAt:    now,
			CreatedTS:    e.clock.Stamp(now),
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := e.writeItems(ctx, tx, order.ID, cart); err != nil {
			return err
		}

		result = CheckoutResult{OrderID: order.ID, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// EDIT / DELETE (reversal flows)
// =============================================================================

// EditOrder replaces an order's cart and customer link. Implemented as
// reverse-then-reapply: the old order's stock and debt effects are
// undone first, so the stock check for the new cart runs against
// post-reversal levels (reducing a line's quantity frees capacity the
// same edit can reuse). The order's timestamp is refreshed to now,
// which re-sorts it to the top of history.
func (e *Engine) EditOrder(ctx context.Context, orderID int64, cart []CartItem, customerName, customerPhone string) error {
	if err := validateCart(cart); err != nil {
		return err
	}

	return e.store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		if err := e.reverseOrder(ctx, tx, order); err != nil {
			return err
		}

		total, err := e.takeStock(ctx, tx, cart)
		if err != nil {
			return err
		}
		customerID, name, err := e.resolveCustomer(ctx, tx, customerName, customerPhone)
		if err != nil {
			return err
		}
		if customerID != nil {
			if err := e.applyDebt(ctx, tx, *customerID, total); err != nil {
				return err
			}
		}

		now := time.Now()
		order.CustomerID = customerID
		order.CustomerName = name
		order.TotalAmount = total
		order.CreatedAt = now
		order.CreatedTS = e.clock.Stamp(now)
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return e.writeItems(ctx, tx, order.ID, cart)
	})
}

// DeleteOrder undoes an order completely: stock back, debt back, rows
// gone. No DebtLog is written; the reversal is symmetric with
// checkout's no-log-for-sale-debt rule.
func (e *Engine) DeleteOrder(ctx context.Context, orderID int64) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		if err := e.reverseOrder(ctx, tx, order); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
}

// UpdateOrderDate rewrites an order's timestamp without touching its
// items, total or debt effects.
func (e *Engine) UpdateOrderDate(ctx context.Context, orderID int64, at time.Time) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		order.CreatedAt = at
		order.CreatedTS = e.clock.Stamp(at)
		return tx.UpdateOrder(ctx, order)
	})
}

// reverseOrder restores stock for every item whose variant still
// exists (dangling references are skipped, not errors), subtracts the
// order total from the linked customer's debt, and deletes the item
// rows. The order row itself is left to the caller.
func (e *Engine) reverseOrder(ctx context.Context, tx Tx, order *Order) error {
	items, err := tx.ItemsByOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	for _, it := range items {
		if it.VariantID == nil {
			continue
		}
		variant, err := tx.GetVariant(ctx, *it.VariantID)
		if err != nil {
			return err
		}
		if variant == nil {
			// Variant deleted since the sale; its stock cannot be restored.
			continue
		}
		if err := tx.AdjustStock(ctx, variant.ID, it.Quantity); err != nil {
			return err
		}
	}

	if order.CustomerID != nil {
		customer, err := tx.GetCustomer(ctx, *order.CustomerID)
		if err != nil {
			return err
		}
		if customer != nil {
			if err := e.applyDebt(ctx, tx, customer.ID, -order.TotalAmount); err != nil {
				return err
			}
		}
	}

	return tx.DeleteOrderItems(ctx, order.ID)
}

// =============================================================================
// MANUAL DEBT ADJUSTMENTS
// =============================================================================

// CreateDebtLog applies a manual balance adjustment and records it.
// changeAmount is signed: positive raises the debt, negative records a
// payment. A non-nil at backdates the entry.
func (e *Engine) CreateDebtLog(ctx context.Context, customerID, changeAmount int64, note string, at *time.Time) (*DebtLog, error) {
	var created *DebtLog
	err := e.store.WithTx(ctx, func(tx Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		if err := e.applyDebt(ctx, tx, customerID, changeAmount); err != nil {
			return err
		}

		when := time.Now()
		if at != nil {
			when = *at
		}
		log := &DebtLog{
			CustomerID:   customerID,
			ChangeAmount: changeAmount,
			NewBalance:   customer.Debt + changeAmount,
			Note:         note,
			CreatedAt:    when,
			CreatedTS:    e.clock.Stamp(when),
		}
		if err := tx.CreateDebtLog(ctx, log); err != nil {
			return err
		}
		created = log
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDebtLog overwrites an existing log entry and moves the
// customer's debt by the difference between the new and old amounts.
func (e *Engine) UpdateDebtLog(ctx context.Context, customerID, logID, changeAmount int64, note string, at *time.Time) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		log, err := tx.GetDebtLog(ctx, logID)
		if err != nil {
			return err
		}
		if log == nil || log.CustomerID != customerID {
			return ErrLogNotFound
		}

		delta := changeAmount - log.ChangeAmount
		if err := e.applyDebt(ctx, tx, customerID, delta); err != nil {
			return err
		}

		log.ChangeAmount = changeAmount
		log.NewBalance = customer.Debt + delta
		log.Note = note
		if at != nil {
			log.CreatedAt = *at
			log.CreatedTS = e.clock.Stamp(*at)
		}
		return tx.UpdateDebtLog(ctx, log)
	})
}

// DeleteDebtLog removes a log entry, undoing exactly what creating it
// did to the balance.
func (e *Engine) DeleteDebtLog(ctx context.Context, customerID, logID int64) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		log, err := tx.GetDebtLog(ctx, logID)
		if err != nil {
			return err
		}
		if log == nil || log.CustomerID != customerID {
			return ErrLogNotFound
		}

		if err := e.applyDebt(ctx, tx, customerID, -log.ChangeAmount); err != nil {
			return err
		}
		return tx.DeleteDebtLog(ctx, logID)
	})
}

// =============================================================================
// INTERNAL STEPS
// =============================================================================

// takeStock validates and decrements stock for every cart line,
// returning the cart total. A failing line aborts with
// InsufficientStockError; the surrounding transaction rolls back any
// lines already decremented.
func (e *Engine) takeStock(ctx context.Context, tx Tx, cart []CartItem) (int64, error) {
	var total int64
	for _, item := range cart {
		variant, err := tx.GetVariant(ctx, item.VariantID)
		if err != nil {
			return 0, err
		}
		if variant == nil {
			return 0, &InsufficientStockError{Product: item.ProductName, Requested: item.Quantity}
		}
		if variant.Stock < item.Quantity {
			return 0, &InsufficientStockError{
				Product:   item.ProductName,
				Requested: item.Quantity,
				Available: variant.Stock,
			}
		}
		if err := tx.AdjustStock(ctx, variant.ID, -item.Quantity); err != nil {
			return 0, err
		}
		total += item.Subtotal()
	}
	return total, nil
}

// resolveCustomer maps a checkout's customer name onto a row. Blank
// names mean a walk-in sale: nil ID, sentinel name, no debt effects.
// Names match case-insensitively; the first sale under an unseen name
// creates the customer with zero debt. Phone is only written on
// creation and is not an identity key.
func (e *Engine) resolveCustomer(ctx context.Context, tx Tx, name, phone string) (*int64, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, WalkInName, nil
	}

	customer, err := tx.FindCustomerByName(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if customer == nil {
		customer = &Customer{Name: name, Phone: phone, CreatedAt: time.Now()}
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return nil, "", err
		}
	}
	return &customer.ID, customer.Name, nil
}

// applyDebt is the only place customer debt moves. Checkout, reversal
// and the debt-log operations all route through here so the running
// total cannot drift from the events that feed it.
func (e *Engine) applyDebt(ctx context.Context, tx Tx, customerID, delta int64) error {
	return tx.AdjustDebt(ctx, customerID, delta)
}

// writeItems snapshots the cart into order_items rows.
func (e *Engine) writeItems(ctx context.Context, tx Tx, orderID int64, cart []CartItem) error {
	for _, item := range cart {
		variantID := item.VariantID
		it := &OrderItem{
			OrderID:     orderID,
			VariantID:   &variantID,
			ProductName: item.ProductName,
			VariantInfo: item.Info(),
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
		if err := tx.CreateOrderItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func validateCart(cart []CartItem) error {
	if len(cart) == 0 {
		return ErrEmptyCart
	}
	for _, item := range cart {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %q has quantity %d", ErrInvalidQuantity, item.ProductName, item.Quantity)
		}
	}
	return nil
}
