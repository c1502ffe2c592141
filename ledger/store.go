/*
store.go - Persistence interface for the ledger engine

PURPOSE:
  The engine never talks to a database directly; it receives a Store at
  construction and runs every operation inside one WithTx call. A failed
  callback rolls the whole transaction back, which is what makes the
  checkout/reversal procedures all-or-nothing.

IMPLEMENTATIONS:
  store/sqlite:        Production store (SQLite, WAL)
  ledger/store/memory: In-memory store for tests and dev mode
*/
package ledger

import "context"

// Tx is the set of typed operations available inside a transaction.
// Lookup methods return nil (not an error) for missing rows; the engine
// turns that into its own not-found errors.
type Tx interface {
	// Catalog
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	AdjustStock(ctx context.Context, variantID, delta int64) error

	// Customers
	FindCustomerByName(ctx context.Context, name string) (*Customer, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) error
	AdjustDebt(ctx context.Context, customerID, delta int64) error

	// Orders
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id int64) error
	OrdersByCustomer(ctx context.Context, customerID int64) ([]Order, error)

	// Order items
	CreateOrderItem(ctx context.Context, it *OrderItem) error
	ItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error)
	DeleteOrderItems(ctx context.Context, orderID int64) error

	// Debt logs
	CreateDebtLog(ctx context.Context, l *DebtLog) error
	GetDebtLog(ctx context.Context, id int64) (*DebtLog, error)
	UpdateDebtLog(ctx context.Context, l *DebtLog) error
	DeleteDebtLog(ctx context.Context, id int64) error
	LogsByCustomer(ctx context.Context, customerID int64) ([]DebtLog, error)
}

// Store runs a function inside a single all-or-nothing transaction.
// If fn returns an error every write made through the Tx is rolled back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
