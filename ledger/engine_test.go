package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoshop/pos-engine/ledger"
	"github.com/aoshop/pos-engine/ledger/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*ledger.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	return ledger.NewEngine(store), store
}

func seedVariant(store *memory.Store, price, stock int64) int64 {
	return store.AddVariant(ledger.Variant{Color: "Black", Size: "M", Price: price, Stock: stock})
}

func line(variantID, qty, price int64, name string) ledger.CartItem {
	return ledger.CartItem{
		VariantID:   variantID,
		Quantity:    qty,
		Price:       price,
		ProductName: name,
		Color:       "Black",
		Size:        "M",
	}
}

// =============================================================================
// CHECKOUT
// =============================================================================

func TestCheckout_WalkIn_NoCustomerNoDebt(t *testing.T) {
	// GIVEN: A variant with stock 10
	// WHEN: Checking out 2 units with a blank customer name
	// THEN: Stock drops to 8, no customer row exists, order is walk-in

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 2, 100, "Tee")}, "  ", "")
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.Total)

	v, _ := store.Variant(vid)
	assert.Equal(t, int64(8), v.Stock)

	customers, orders, items, logs := store.Counts()
	assert.Equal(t, 0, customers, "walk-in sale must not create a customer")
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, items)
	assert.Equal(t, 0, logs, "sale debt never writes a debt log")
}

func TestCheckout_NamedCustomer_CreatesAndRaisesDebt(t *testing.T) {
	// GIVEN: An empty customer table
	// WHEN: A first sale happens under an unseen name
	// THEN: The customer is created with debt equal to the order total

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 150, 5)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 3, 150, "Tee")}, "Alice", "555-0101")
	require.NoError(t, err)
	assert.Equal(t, int64(450), result.Total)

	c, ok := store.CustomerByName("Alice")
	require.True(t, ok)
	assert.Equal(t, int64(450), c.Debt)
	assert.Equal(t, "555-0101", c.Phone)

	_, _, _, logs := store.Counts()
	assert.Equal(t, 0, logs, "sale debt never writes a debt log")
}

func TestCheckout_CaseInsensitiveName_ReusesCustomer(t *testing.T) {
	// GIVEN: A customer "Alice" with an existing balance from one sale
	// WHEN: A second sale comes in under "ALICE"
	// THEN: The same row accumulates, no duplicate customer appears

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	_, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "Alice", "555-0101")
	require.NoError(t, err)
	_, err = engine.Checkout(ctx, []ledger.CartItem{line(vid, 2, 100, "Tee")}, "ALICE", "ignored")
	require.NoError(t, err)

	customers, _, _, _ := store.Counts()
	assert.Equal(t, 1, customers)

	c, _ := store.CustomerByName("alice")
	assert.Equal(t, int64(300), c.Debt)
	assert.Equal(t, "555-0101", c.Phone, "phone is only written on creation")
}

func TestCheckout_InsufficientStock_SecondLine_RollsBackFirst(t *testing.T) {
	// GIVEN: Two variants, the second without enough stock
	// WHEN: A two-line checkout fails on the second line
	// THEN: The first line's decrement is rolled back; nothing is written

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid1 := seedVariant(store, 100, 10)
	vid2 := seedVariant(store, 200, 1)

	_, err := engine.Checkout(ctx, []ledger.CartItem{
		line(vid1, 4, 100, "Tee"),
		line(vid2, 5, 200, "Jacket"),
	}, "Bob", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Jacket", stockErr.Product)
	assert.Equal(t, int64(5), stockErr.Requested)
	assert.Equal(t, int64(1), stockErr.Available)

	v1, _ := store.Variant(vid1)
	assert.Equal(t, int64(10), v1.Stock, "first line must be rolled back")

	customers, orders, items, _ := store.Counts()
	assert.Equal(t, 0, customers)
	assert.Equal(t, 0, orders)
	assert.Equal(t, 0, items)
}

func TestCheckout_EmptyCart_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Checkout(context.Background(), nil, "Alice", "")
	assert.ErrorIs(t, err, ledger.ErrEmptyCart)
}

func TestCheckout_NonPositiveQuantity_Rejected(t *testing.T) {
	engine, store := newTestEngine(t)
	vid := seedVariant(store, 100, 10)

	_, err := engine.Checkout(context.Background(), []ledger.CartItem{line(vid, 0, 100, "Tee")}, "", "")
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
}

// =============================================================================
// EDIT ORDER
// =============================================================================

func TestEditOrder_ReversalFreesStockForSameEdit(t *testing.T) {
	// GIVEN: Stock 10, an order holding 5 of it (stock now 5)
	// WHEN: Editing that order down to quantity 2
	// THEN: The edit succeeds and stock ends at 8 - the reversal freed
	//       the original 5 before the new cart was checked

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 5, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	v, _ := store.Variant(vid)
	require.Equal(t, int64(5), v.Stock)

	err = engine.EditOrder(ctx, result.OrderID, []ledger.CartItem{line(vid, 2, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	v, _ = store.Variant(vid)
	assert.Equal(t, int64(8), v.Stock)

	c, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(200), c.Debt, "debt must track the edited total")
}

func TestEditOrder_SwitchCustomer_MovesDebt(t *testing.T) {
	// GIVEN: An order on Alice's tab
	// WHEN: The order is edited onto Bob's tab
	// THEN: Alice's debt returns to zero and Bob carries the total

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 3, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	err = engine.EditOrder(ctx, result.OrderID, []ledger.CartItem{line(vid, 3, 100, "Tee")}, "Bob", "")
	require.NoError(t, err)

	alice, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(0), alice.Debt)
	bob, _ := store.CustomerByName("Bob")
	assert.Equal(t, int64(300), bob.Debt)
}

func TestEditOrder_InsufficientStock_RestoresOriginalState(t *testing.T) {
	// GIVEN: Stock 10, an order holding 5
	// WHEN: Editing the order up to 20 (more than 5 held + 5 free)
	// THEN: The edit fails and the original order, stock and debt survive

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 5, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	err = engine.EditOrder(ctx, result.OrderID, []ledger.CartItem{line(vid, 20, 100, "Tee")}, "Alice", "")
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	v, _ := store.Variant(vid)
	assert.Equal(t, int64(5), v.Stock, "failed edit must not move stock")

	c, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(500), c.Debt, "failed edit must not move debt")

	_, orders, items, _ := store.Counts()
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, items)
}

func TestEditOrder_Missing_ReturnsNotFound(t *testing.T) {
	engine, store := newTestEngine(t)
	vid := seedVariant(store, 100, 10)

	err := engine.EditOrder(context.Background(), 999, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "", "")
	assert.ErrorIs(t, err, ledger.ErrOrderNotFound)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// DELETE ORDER
// =============================================================================

func TestDeleteOrder_RestoresStockAndDebt(t *testing.T) {
	// GIVEN: A sale on Alice's tab
	// WHEN: The order is deleted
	// THEN: Stock and debt return to their pre-sale values and the
	//       order and item rows are gone; no debt log appears

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 4, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	require.NoError(t, engine.DeleteOrder(ctx, result.OrderID))

	v, _ := store.Variant(vid)
	assert.Equal(t, int64(10), v.Stock)

	c, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(0), c.Debt)

	_, orders, items, logs := store.Counts()
	assert.Equal(t, 0, orders)
	assert.Equal(t, 0, items)
	assert.Equal(t, 0, logs)
}

func TestDeleteOrder_DanglingVariant_SkipsStockRestore(t *testing.T) {
	// GIVEN: A sale whose variant has since been deleted from the catalog
	// WHEN: The order is deleted
	// THEN: The deletion succeeds, debt is reversed, and the missing
	//       variant is skipped silently

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)

	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 4, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	store.RemoveVariant(vid)

	require.NoError(t, engine.DeleteOrder(ctx, result.OrderID))

	c, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(0), c.Debt)

	_, orders, _, _ := store.Counts()
	assert.Equal(t, 0, orders)
}

func TestDeleteOrder_Missing_ReturnsNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	err := engine.DeleteOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ledger.ErrOrderNotFound)
}

// =============================================================================
// DEBT LOG CRUD
// =============================================================================

func TestDebtLog_CreateUpdateDelete_BalanceConservation(t *testing.T) {
	// GIVEN: Alice owes 500 from a sale
	// WHEN: A -200 payment log is created, updated to -300, then deleted
	// THEN: Debt moves 500 -> 300 -> 200 -> 500

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)
	_, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 5, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	alice, _ := store.CustomerByName("Alice")

	log, err := engine.CreateDebtLog(ctx, alice.ID, -200, "partial payment", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(300), log.NewBalance)

	c, _ := store.Customer(alice.ID)
	assert.Equal(t, int64(300), c.Debt)

	require.NoError(t, engine.UpdateDebtLog(ctx, alice.ID, log.ID, -300, "corrected payment", nil))
	c, _ = store.Customer(alice.ID)
	assert.Equal(t, int64(200), c.Debt)

	require.NoError(t, engine.DeleteDebtLog(ctx, alice.ID, log.ID))
	c, _ = store.Customer(alice.ID)
	assert.Equal(t, int64(500), c.Debt, "deleting the log must undo its effect exactly")
}

func TestDebtLog_Backdated_CarriesStatedTime(t *testing.T) {
	// GIVEN: A customer
	// WHEN: A log is created with an explicit past timestamp
	// THEN: The entry's CreatedAt and ordering key reflect that time

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)
	_, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)
	alice, _ := store.CustomerByName("Alice")

	past := time.Now().Add(-48 * time.Hour)
	log, err := engine.CreateDebtLog(ctx, alice.ID, 50, "old IOU", &past)
	require.NoError(t, err)

	assert.True(t, log.CreatedAt.Equal(past))
	assert.Less(t, log.CreatedTS, time.Now().Add(-time.Hour).UnixMilli()*1000,
		"backdated entries must sort at their stated time")
}

func TestDebtLog_WrongCustomer_ReturnsNotFound(t *testing.T) {
	// GIVEN: A log belonging to Alice
	// WHEN: Bob's ID is used to update or delete it
	// THEN: Both operations fail with not-found and nothing changes

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)
	_, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)
	_, err = engine.Checkout(ctx, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "Bob", "")
	require.NoError(t, err)

	alice, _ := store.CustomerByName("Alice")
	bob, _ := store.CustomerByName("Bob")

	log, err := engine.CreateDebtLog(ctx, alice.ID, -50, "payment", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, engine.UpdateDebtLog(ctx, bob.ID, log.ID, -99, "", nil), ledger.ErrLogNotFound)
	assert.ErrorIs(t, engine.DeleteDebtLog(ctx, bob.ID, log.ID), ledger.ErrLogNotFound)

	c, _ := store.Customer(alice.ID)
	assert.Equal(t, int64(50), c.Debt)
}

func TestDebtLog_MissingCustomer_ReturnsNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.CreateDebtLog(context.Background(), 99, 100, "", nil)
	assert.ErrorIs(t, err, ledger.ErrCustomerNotFound)
}

// =============================================================================
// ORDER DATE EDIT
// =============================================================================

func TestUpdateOrderDate_RewritesTimestampOnly(t *testing.T) {
	// GIVEN: A fresh order
	// WHEN: Its date is rewritten to last week
	// THEN: Total, items, stock and debt are untouched; only the
	//       timestamp and ordering key move

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 10)
	result, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 2, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	lastWeek := time.Now().Add(-7 * 24 * time.Hour)
	require.NoError(t, engine.UpdateOrderDate(ctx, result.OrderID, lastWeek))

	v, _ := store.Variant(vid)
	assert.Equal(t, int64(8), v.Stock)
	c, _ := store.CustomerByName("Alice")
	assert.Equal(t, int64(200), c.Debt)

	entries, err := engine.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Timestamp.Equal(lastWeek))
}

func TestUpdateOrderDate_Missing_ReturnsNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	err := engine.UpdateOrderDate(context.Background(), 7, time.Now())
	assert.ErrorIs(t, err, ledger.ErrOrderNotFound)
}

// =============================================================================
// DEBT CONSERVATION
// =============================================================================

func TestDebt_AlwaysEqualsOrdersPlusLogs(t *testing.T) {
	// GIVEN: A mix of sales, an edit, a delete, and manual adjustments
	// WHEN: All operations complete
	// THEN: debt == sum(order totals) + sum(log change amounts)

	engine, store := newTestEngine(t)
	ctx := context.Background()

	vid := seedVariant(store, 100, 100)

	r1, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 3, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)
	r2, err := engine.Checkout(ctx, []ledger.CartItem{line(vid, 2, 100, "Tee")}, "Alice", "")
	require.NoError(t, err)

	alice, _ := store.CustomerByName("Alice")

	_, err = engine.CreateDebtLog(ctx, alice.ID, -150, "payment", nil)
	require.NoError(t, err)

	require.NoError(t, engine.EditOrder(ctx, r1.OrderID, []ledger.CartItem{line(vid, 1, 100, "Tee")}, "Alice", ""))
	require.NoError(t, engine.DeleteOrder(ctx, r2.OrderID))

	// Remaining: one order of 100, one log of -150.
	c, _ := store.Customer(alice.ID)
	assert.Equal(t, int64(-50), c.Debt)

	// Stock conservation: only the surviving order's single unit is held.
	v, _ := store.Variant(vid)
	assert.Equal(t, int64(99), v.Stock)
}
