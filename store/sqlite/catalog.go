/*
catalog.go - Product catalog and listing queries

PURPOSE:
  The non-ledger half of the store: product/variant CRUD for the
  catalog screens, paginated order and customer listings, and the
  revenue aggregate behind the summary report. These run outside the
  engine's transaction boundary; only plain reads and self-contained
  writes live here.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aoshop/pos-engine/ledger"
)

// Product is a catalog entry with its variants.
type Product struct {
	ID          int64
	Name        string
	Description string
	ImagePath   string
	CreatedAt   time.Time
	Variants    []ledger.Variant
}

// OrderSummary aggregates the order table for the revenue report.
type OrderSummary struct {
	OrderCount   int64
	GrossRevenue int64
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ListProducts returns products whose name contains search (all
// products when search is empty), with variants attached, paginated by
// limit/offset. limit <= 0 means no limit.
func (s *Store) ListProducts(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, description, image_path, created_at FROM products`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImagePath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		variants, err := s.variantsByProduct(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variants = variants
	}
	return products, nil
}

// GetProduct returns a product with its variants, or nil if absent.
func (s *Store) GetProduct(ctx context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Product
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, image_path, created_at FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.ImagePath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	p.Variants, err = s.variantsByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) variantsByProduct(ctx context.Context, productID int64) ([]ledger.Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, product_id, color, size, price, stock FROM variants WHERE product_id = ? ORDER BY id ASC",
		productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []ledger.Variant
	for rows.Next() {
		var v ledger.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Price, &v.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// CreateProduct inserts a product and its variants, filling in the IDs.
func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"INSERT INTO products (name, description, image_path, created_at) VALUES (?, ?, ?, ?)",
		p.Name, p.Description, p.ImagePath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		v.ProductID = p.ID
		res, err := sqlTx.ExecContext(ctx,
			"INSERT INTO variants (product_id, color, size, price, stock) VALUES (?, ?, ?, ?, ?)",
			v.ProductID, v.Color, v.Size, v.Price, v.Stock)
		if err != nil {
			return fmt.Errorf("failed to create variant: %w", err)
		}
		v.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// UpdateProduct rewrites a product and syncs its variant set: variants
// missing from p.Variants are deleted, variants with IDs are updated in
// place, variants without IDs are inserted. Historical order items keep
// their snapshots either way.
func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"UPDATE products SET name = ?, description = ?, image_path = ? WHERE id = ?",
		p.Name, p.Description, p.ImagePath, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrProductNotFound
	}

	rows, err := sqlTx.QueryContext(ctx, "SELECT id FROM variants WHERE product_id = ?", p.ID)
	if err != nil {
		return fmt.Errorf("failed to query variant ids: %w", err)
	}
	current := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		current[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	incoming := make(map[int64]bool)
	for _, v := range p.Variants {
		if v.ID != 0 {
			incoming[v.ID] = true
		}
	}
	for id := range current {
		if !incoming[id] {
			if _, err := sqlTx.ExecContext(ctx, "DELETE FROM variants WHERE id = ?", id); err != nil {
				return fmt.Errorf("failed to delete variant: %w", err)
			}
		}
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID != 0 && current[v.ID] {
			_, err = sqlTx.ExecContext(ctx,
				"UPDATE variants SET color = ?, size = ?, price = ?, stock = ? WHERE id = ?",
				v.Color, v.Size, v.Price, v.Stock, v.ID)
		} else {
			var res sql.Result
			res, err = sqlTx.ExecContext(ctx,
				"INSERT INTO variants (product_id, color, size, price, stock) VALUES (?, ?, ?, ?, ?)",
				p.ID, v.Color, v.Size, v.Price, v.Stock)
			if err == nil {
				v.ID, err = res.LastInsertId()
				v.ProductID = p.ID
			}
		}
		if err != nil {
			return fmt.Errorf("failed to sync variant: %w", err)
		}
	}
	return sqlTx.Commit()
}

// DeleteProduct removes a product; its variants cascade. Order items
// referencing the variants keep their snapshots and dangle.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrProductNotFound
	}
	return nil
}

// =============================================================================
// LISTINGS
// =============================================================================

// ListOrders returns orders newest-first with items attached,
// paginated by limit/offset. limit <= 0 means no limit.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]ledger.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, customer_id, customer_name, total_amount, created_at, created_ts
		 FROM orders ORDER BY created_ts DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	orders, err := scanOrders(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	c := &conn{db: s.db}
	for i := range orders {
		items, err := c.ItemsByOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// ListCustomers returns all customers ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, debt, created_at FROM customers ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		var cust ledger.Customer
		var createdAt string
		if err := rows.Scan(&cust.ID, &cust.Name, &cust.Phone, &cust.Debt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		cust.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		customers = append(customers, cust)
	}
	return customers, rows.Err()
}

// Summary aggregates order count and gross revenue.
func (s *Store) Summary(ctx context.Context) (OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum OrderSummary
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders",
	).Scan(&sum.OrderCount, &sum.GrossRevenue)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	return sum, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"debt_logs", "order_items", "orders", "customers", "variants", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
