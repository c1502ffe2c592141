/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store (transactional engine operations) plus the
  catalog and listing queries the HTTP layer needs. A single local
  SQLite file is the system of record; there is exactly one writer at a
  time.

KEY TABLES:
  products:    Catalog entries (name, description, image path)
  variants:    Color/size/price/stock per product
  customers:   Name-keyed customers with the materialized debt total
  orders:      Sale records with denormalized customer name snapshot
  order_items: Denormalized line snapshots; variant_id is a soft reference
  debt_logs:   Manual balance adjustments with post-entry balance snapshot

ORDERING:
  orders.created_ts and debt_logs.created_ts hold the monotonic sort key
  (epoch millis * 1000 + sequence) generated by ledger.Clock. History
  and listings order by it, never by the display date string.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. Engine
  mutations run inside WithTx, which holds the write lock for the whole
  database transaction.

USAGE:
  store, err := sqlite.New("./data/shop.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory: In-memory implementation for testing
  - catalog.go: Product/listing queries used by the API layer
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aoshop/pos-engine/ledger"
)

// Store implements ledger.Store and the catalog queries using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases exist per connection; a single writer also
	// sidesteps SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

	CREATE TABLE IF NOT EXISTS variants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		color TEXT NOT NULL DEFAULT '',
		size TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
	);

	CREATE INDEX IF NOT EXISTS idx_variants_product ON variants(product_id);

	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		debt INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Customer identity is the case-insensitive name
	CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_name
		ON customers(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER,
		customer_name TEXT NOT NULL,
		total_amount INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		created_ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created_ts ON orders(created_ts DESC);

	CREATE TABLE IF NOT EXISTS order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		variant_id INTEGER,
		product_name TEXT NOT NULL,
		variant_info TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		price INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS debt_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		change_amount INTEGER NOT NULL,
		new_balance INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		created_ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_debt_logs_customer ON debt_logs(customer_id);
	CREATE INDEX IF NOT EXISTS idx_debt_logs_created_ts ON debt_logs(created_ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (ledger.Store interface)
// =============================================================================

// WithTx executes fn within a database transaction. Any error from fn
// rolls the whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn implements ledger.Tx over either the raw handle or a transaction.
type conn struct {
	db dbtx
}

// =============================================================================
// VARIANTS (ledger.Tx)
// =============================================================================

func (c *conn) GetVariant(ctx context.Context, id int64) (*ledger.Variant, error) {
	var v ledger.Variant
	err := c.db.QueryRowContext(ctx,
		"SELECT id, product_id, color, size, price, stock FROM variants WHERE id = ?", id,
	).Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Price, &v.Stock)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return &v, nil
}

func (c *conn) AdjustStock(ctx context.Context, variantID, delta int64) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE variants SET stock = stock + ? WHERE id = ?", delta, variantID)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	return nil
}

// =============================================================================
// CUSTOMERS (ledger.Tx)
// =============================================================================

func (c *conn) FindCustomerByName(ctx context.Context, name string) (*ledger.Customer, error) {
	return scanCustomer(c.db.QueryRowContext(ctx,
		"SELECT id, name, phone, debt, created_at FROM customers WHERE name = ? COLLATE NOCASE", name))
}

func (c *conn) GetCustomer(ctx context.Context, id int64) (*ledger.Customer, error) {
	return scanCustomer(c.db.QueryRowContext(ctx,
		"SELECT id, name, phone, debt, created_at FROM customers WHERE id = ?", id))
}

func scanCustomer(row *sql.Row) (*ledger.Customer, error) {
	var cust ledger.Customer
	var createdAt string
	err := row.Scan(&cust.ID, &cust.Name, &cust.Phone, &cust.Debt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	cust.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &cust, nil
}

func (c *conn) CreateCustomer(ctx context.Context, cust *ledger.Customer) error {
	res, err := c.db.ExecContext(ctx,
		"INSERT INTO customers (name, phone, debt, created_at) VALUES (?, ?, ?, ?)",
		cust.Name, cust.Phone, cust.Debt, cust.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	cust.ID, err = res.LastInsertId()
	return err
}

func (c *conn) AdjustDebt(ctx context.Context, customerID, delta int64) error {
	res, err := c.db.ExecContext(ctx,
		"UPDATE customers SET debt = debt + ? WHERE id = ?", delta, customerID)
	if err != nil {
		return fmt.Errorf("failed to adjust debt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrCustomerNotFound
	}
	return nil
}

// =============================================================================
// ORDERS (ledger.Tx)
// =============================================================================

func (c *conn) CreateOrder(ctx context.Context, o *ledger.Order) error {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO orders (customer_id, customer_name, total_amount, created_at, created_ts)
		 VALUES (?, ?, ?, ?, ?)`,
		nullID(o.CustomerID), o.CustomerName, o.TotalAmount,
		o.CreatedAt.UTC().Format(time.RFC3339), o.CreatedTS)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetOrder(ctx context.Context, id int64) (*ledger.Order, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, customer_id, customer_name, total_amount, created_at, created_ts
		 FROM orders WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (c *conn) UpdateOrder(ctx context.Context, o *ledger.Order) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET customer_id = ?, customer_name = ?, total_amount = ?,
		 created_at = ?, created_ts = ? WHERE id = ?`,
		nullID(o.CustomerID), o.CustomerName, o.TotalAmount,
		o.CreatedAt.UTC().Format(time.RFC3339), o.CreatedTS, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrOrderNotFound
	}
	return nil
}

func (c *conn) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
	return err
}

func (c *conn) OrdersByCustomer(ctx context.Context, customerID int64) ([]ledger.Order, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, customer_id, customer_name, total_amount, created_at, created_ts
		 FROM orders WHERE customer_id = ? ORDER BY created_ts DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]ledger.Order, error) {
	var orders []ledger.Order
	for rows.Next() {
		var o ledger.Order
		var customerID sql.NullInt64
		var createdAt string
		if err := rows.Scan(&o.ID, &customerID, &o.CustomerName, &o.TotalAmount, &createdAt, &o.CreatedTS); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if customerID.Valid {
			id := customerID.Int64
			o.CustomerID = &id
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// =============================================================================
// ORDER ITEMS (ledger.Tx)
// =============================================================================

func (c *conn) CreateOrderItem(ctx context.Context, it *ledger.OrderItem) error {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO order_items (order_id, variant_id, product_name, variant_info, quantity, price)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		it.OrderID, nullID(it.VariantID), it.ProductName, it.VariantInfo, it.Quantity, it.Price)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	it.ID, err = res.LastInsertId()
	return err
}

func (c *conn) ItemsByOrder(ctx context.Context, orderID int64) ([]ledger.OrderItem, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, order_id, variant_id, product_name, variant_info, quantity, price
		 FROM order_items WHERE order_id = ? ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []ledger.OrderItem
	for rows.Next() {
		var it ledger.OrderItem
		var variantID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.OrderID, &variantID, &it.ProductName, &it.VariantInfo, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if variantID.Valid {
			id := variantID.Int64
			it.VariantID = &id
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (c *conn) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", orderID)
	return err
}

// =============================================================================
// DEBT LOGS (ledger.Tx)
// =============================================================================

func (c *conn) CreateDebtLog(ctx context.Context, l *ledger.DebtLog) error {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO debt_logs (customer_id, change_amount, new_balance, note, created_at, created_ts)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.CustomerID, l.ChangeAmount, l.NewBalance, l.Note,
		l.CreatedAt.UTC().Format(time.RFC3339), l.CreatedTS)
	if err != nil {
		return fmt.Errorf("failed to create debt log: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return err
}

func (c *conn) GetDebtLog(ctx context.Context, id int64) (*ledger.DebtLog, error) {
	var l ledger.DebtLog
	var createdAt string
	err := c.db.QueryRowContext(ctx,
		`SELECT id, customer_id, change_amount, new_balance, note, created_at, created_ts
		 FROM debt_logs WHERE id = ?`, id,
	).Scan(&l.ID, &l.CustomerID, &l.ChangeAmount, &l.NewBalance, &l.Note, &createdAt, &l.CreatedTS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt log: %w", err)
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &l, nil
}

func (c *conn) UpdateDebtLog(ctx context.Context, l *ledger.DebtLog) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE debt_logs SET change_amount = ?, new_balance = ?, note = ?,
		 created_at = ?, created_ts = ? WHERE id = ?`,
		l.ChangeAmount, l.NewBalance, l.Note,
		l.CreatedAt.UTC().Format(time.RFC3339), l.CreatedTS, l.ID)
	if err != nil {
		return fmt.Errorf("failed to update debt log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrLogNotFound
	}
	return nil
}

func (c *conn) DeleteDebtLog(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM debt_logs WHERE id = ?", id)
	return err
}

func (c *conn) LogsByCustomer(ctx context.Context, customerID int64) ([]ledger.DebtLog, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, customer_id, change_amount, new_balance, note, created_at, created_ts
		 FROM debt_logs WHERE customer_id = ? ORDER BY created_ts DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debt logs: %w", err)
	}
	defer rows.Close()

	var logs []ledger.DebtLog
	for rows.Next() {
		var l ledger.DebtLog
		var createdAt string
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.ChangeAmount, &l.NewBalance, &l.Note, &createdAt, &l.CreatedTS); err != nil {
			return nil, fmt.Errorf("failed to scan debt log: %w", err)
		}
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Helper functions

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
