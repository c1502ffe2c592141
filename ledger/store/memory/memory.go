// Package memory provides an in-memory ledger.Store for tests and dev mode.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/aoshop/pos-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps all rows in maps. WithTx simulates rollback with a
// snapshot + restore, so a failing callback leaves no partial writes -
// the same contract the SQLite store gets from real transactions.
type Store struct {
	mu sync.Mutex
	st state
}

type state struct {
	variants  map[int64]ledger.Variant
	customers map[int64]ledger.Customer
	orders    map[int64]ledger.Order
	items     map[int64]ledger.OrderItem
	logs      map[int64]ledger.DebtLog

	variantSeq  int64
	customerSeq int64
	orderSeq    int64
	itemSeq     int64
	logSeq      int64
}

// New returns an empty store.
func New() *Store {
	return &Store{st: state{
		variants:  make(map[int64]ledger.Variant),
		customers: make(map[int64]ledger.Customer),
		orders:    make(map[int64]ledger.Order),
		items:     make(map[int64]ledger.OrderItem),
		logs:      make(map[int64]ledger.DebtLog),
	}}
}

// WithTx executes fn against a transactional view. On error the state
// is restored from a snapshot taken before fn ran.
func (m *Store) WithTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&view{st: &m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (s state) clone() state {
	c := s
	c.variants = make(map[int64]ledger.Variant, len(s.variants))
	for k, v := range s.variants {
		c.variants[k] = v
	}
	c.customers = make(map[int64]ledger.Customer, len(s.customers))
	for k, v := range s.customers {
		c.customers[k] = v
	}
	c.orders = make(map[int64]ledger.Order, len(s.orders))
	for k, v := range s.orders {
		c.orders[k] = v
	}
	c.items = make(map[int64]ledger.OrderItem, len(s.items))
	for k, v := range s.items {
		c.items[k] = v
	}
	c.logs = make(map[int64]ledger.DebtLog, len(s.logs))
	for k, v := range s.logs {
		c.logs[k] = v
	}
	return c
}

// =============================================================================
// SEED / INSPECTION HELPERS (outside transactions)
// =============================================================================

// AddVariant seeds a variant and returns its ID.
func (m *Store) AddVariant(v ledger.Variant) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.st.variantSeq++
	v.ID = m.st.variantSeq
	m.st.variants[v.ID] = v
	return v.ID
}

// RemoveVariant deletes a variant, leaving any order items that
// reference it dangling (that is the point, for reversal tests).
func (m *Store) RemoveVariant(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.variants, id)
}

// Variant returns a copy of a seeded variant.
func (m *Store) Variant(id int64) (ledger.Variant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.st.variants[id]
	return v, ok
}

// Customer returns a copy of a customer row.
func (m *Store) Customer(id int64) (ledger.Customer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.st.customers[id]
	return c, ok
}

// CustomerByName returns a customer row by case-insensitive name.
func (m *Store) CustomerByName(name string) (ledger.Customer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.st.customers {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ledger.Customer{}, false
}

// Counts reports row counts for assertions.
func (m *Store) Counts() (customers, orders, items, logs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.customers), len(m.st.orders), len(m.st.items), len(m.st.logs)
}

// =============================================================================
// TRANSACTIONAL VIEW - implements ledger.Tx
// =============================================================================

type view struct {
	st *state
}

func (v *view) GetVariant(_ context.Context, id int64) (*ledger.Variant, error) {
	if row, ok := v.st.variants[id]; ok {
		return &row, nil
	}
	return nil, nil
}

func (v *view) AdjustStock(_ context.Context, variantID, delta int64) error {
	row, ok := v.st.variants[variantID]
	if !ok {
		return nil
	}
	row.Stock += delta
	v.st.variants[variantID] = row
	return nil
}

func (v *view) FindCustomerByName(_ context.Context, name string) (*ledger.Customer, error) {
	for _, c := range v.st.customers {
		if strings.EqualFold(c.Name, name) {
			row := c
			return &row, nil
		}
	}
	return nil, nil
}

func (v *view) GetCustomer(_ context.Context, id int64) (*ledger.Customer, error) {
	if row, ok := v.st.customers[id]; ok {
		return &row, nil
	}
	return nil, nil
}

func (v *view) CreateCustomer(_ context.Context, c *ledger.Customer) error {
	v.st.customerSeq++
	c.ID = v.st.customerSeq
	v.st.customers[c.ID] = *c
	return nil
}

func (v *view) AdjustDebt(_ context.Context, customerID, delta int64) error {
	row, ok := v.st.customers[customerID]
	if !ok {
		return ledger.ErrCustomerNotFound
	}
	row.Debt += delta
	v.st.customers[customerID] = row
	return nil
}

func (v *view) CreateOrder(_ context.Context, o *ledger.Order) error {
	v.st.orderSeq++
	o.ID = v.st.orderSeq
	v.st.orders[o.ID] = *o
	return nil
}

func (v *view) GetOrder(_ context.Context, id int64) (*ledger.Order, error) {
	if row, ok := v.st.orders[id]; ok {
		return &row, nil
	}
	return nil, nil
}

func (v *view) UpdateOrder(_ context.Context, o *ledger.Order) error {
	if _, ok := v.st.orders[o.ID]; !ok {
		return ledger.ErrOrderNotFound
	}
	v.st.orders[o.ID] = *o
	return nil
}

func (v *view) DeleteOrder(_ context.Context, id int64) error {
	delete(v.st.orders, id)
	return nil
}

func (v *view) OrdersByCustomer(_ context.Context, customerID int64) ([]ledger.Order, error) {
	var out []ledger.Order
	for _, o := range v.st.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (v *view) CreateOrderItem(_ context.Context, it *ledger.OrderItem) error {
	v.st.itemSeq++
	it.ID = v.st.itemSeq
	v.st.items[it.ID] = *it
	return nil
}

func (v *view) ItemsByOrder(_ context.Context, orderID int64) ([]ledger.OrderItem, error) {
	var out []ledger.OrderItem
	for _, it := range v.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (v *view) DeleteOrderItems(_ context.Context, orderID int64) error {
	for id, it := range v.st.items {
		if it.OrderID == orderID {
			delete(v.st.items, id)
		}
	}
	return nil
}

func (v *view) CreateDebtLog(_ context.Context, l *ledger.DebtLog) error {
	v.st.logSeq++
	l.ID = v.st.logSeq
	v.st.logs[l.ID] = *l
	return nil
}

func (v *view) GetDebtLog(_ context.Context, id int64) (*ledger.DebtLog, error) {
	if row, ok := v.st.logs[id]; ok {
		return &row, nil
	}
	return nil, nil
}

func (v *view) UpdateDebtLog(_ context.Context, l *ledger.DebtLog) error {
	if _, ok := v.st.logs[l.ID]; !ok {
		return ledger.ErrLogNotFound
	}
	v.st.logs[l.ID] = *l
	return nil
}

func (v *view) DeleteDebtLog(_ context.Context, id int64) error {
	delete(v.st.logs, id)
	return nil
}

func (v *view) LogsByCustomer(_ context.Context, customerID int64) ([]ledger.DebtLog, error) {
	var out []ledger.DebtLog
	for _, l := range v.st.logs {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out, nil
}
