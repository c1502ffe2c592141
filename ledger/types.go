/*
types.go - Core domain types for the shop ledger

PURPOSE:
  Defines the records the checkout/debt-ledger engine operates on.
  These map 1:1 to store rows; the API layer has its own DTOs.

MONEY:
  All amounts are int64 in whole currency units. The shop sells in a
  currency without fractional prices, so no decimal arithmetic is needed
  inside the engine (reports that divide use shopspring/decimal at the
  API layer).

WEAK REFERENCES:
  OrderItem.VariantID and Order.CustomerID are optional identifiers next
  to denormalized snapshot fields. Deleting a variant or customer must
  not corrupt historical orders, so these are looked up best-effort and
  never assumed valid.

SEE ALSO:
  - engine.go: Operations over these types
  - store.go: Persistence interface
*/
package ledger

import (
	"fmt"
	"time"
)

// WalkInName is the customer name recorded on anonymous sales.
// Walk-in orders have no customer link and never touch a debt balance.
const WalkInName = "walk-in"

// Variant is a sellable color/size combination of a product, carrying
// its own price and stock count. Stock is never negative.
type Variant struct {
	ID        int64
	ProductID int64
	Color     string
	Size      string
	Price     int64
	Stock     int64
}

// Customer is identified case-insensitively by name. Debt is a
// materialized running total: the sum of linked order totals plus the
// sum of manual debt-log adjustments, maintained transactionally by the
// engine on every ledger-affecting operation.
type Customer struct {
	ID        int64
	Name      string
	Phone     string
	Debt      int64
	CreatedAt time.Time
}

// Order is an immutable sale record except for the explicit edit and
// date-edit operations. CustomerName is a snapshot that survives
// customer deletion; CustomerID is nil for walk-in sales.
type Order struct {
	ID           int64
	CustomerID   *int64
	CustomerName string
	TotalAmount  int64
	CreatedAt    time.Time
	CreatedTS    int64 // monotonic sort key, see clock.go
	Items        []OrderItem
}

// OrderItem snapshots what was sold at the time of sale. VariantID may
// dangle if the variant is later deleted; reversal flows skip it then.
type OrderItem struct {
	ID          int64
	OrderID     int64
	VariantID   *int64
	ProductName string
	VariantInfo string
	Quantity    int64
	Price       int64 // unit price at time of sale, never re-read from catalog
}

// DebtLog is an append-only record of a manual (non-sale) balance
// adjustment. Sale-driven debt changes never produce a DebtLog row; the
// order itself is the audit record for those.
type DebtLog struct {
	ID           int64
	CustomerID   int64
	ChangeAmount int64
	NewBalance   int64 // snapshot of debt right after this entry; audit convenience
	Note         string
	CreatedAt    time.Time
	CreatedTS    int64
}

// CartItem is one line of a checkout request. Price and the snapshot
// fields come from the client's view of the catalog at sale time.
type CartItem struct {
	VariantID   int64
	Quantity    int64
	Price       int64
	ProductName string
	Color       string
	Size        string
}

// Info renders the human-readable variant snapshot stored on order items.
func (c CartItem) Info() string {
	return fmt.Sprintf("%s - Size %s", c.Color, c.Size)
}

// Subtotal is quantity times unit price.
func (c CartItem) Subtotal() int64 {
	return c.Quantity * c.Price
}

// EntryType distinguishes the two history sources.
type EntryType string

const (
	EntryOrder EntryType = "ORDER"
	EntryLog   EntryType = "LOG"
)

// HistoryEntry is one row of a customer's merged audit trail: orders
// (always a debt increase) and manual debt logs (signed), sorted by
// CreatedTS descending.
type HistoryEntry struct {
	Type        EntryType
	Timestamp   time.Time
	CreatedTS   int64
	Description string
	Amount      int64
	Order       *Order // set when Type == EntryOrder
	LogID       int64  // set when Type == EntryLog
}
