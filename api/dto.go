/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run
  validate.Struct before touching the engine, so malformed carts never
  reach a transaction.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/aoshop/pos-engine/ledger"
	"github.com/aoshop/pos-engine/store/sqlite"
)

// displayDate is the compact day/month hour:minute format the desktop
// client shows. Ordering never relies on it; that is what created_ts
// is for.
const displayDate = "02/01 15:04"

// =============================================================================
// CHECKOUT / ORDERS
// =============================================================================

// CartItemDTO is one line of a checkout or order-edit request.
type CartItemDTO struct {
	VariantID   int64  `json:"variant_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Price       int64  `json:"price" validate:"gte=0"`
	ProductName string `json:"product_name"`
	Color       string `json:"color"`
	Size        string `json:"size"`
}

// CheckoutRequest is the request to ring up a sale. A blank
// customer_name means a walk-in sale.
type CheckoutRequest struct {
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	Cart          []CartItemDTO `json:"cart" validate:"required,min=1,dive"`
}

// CheckoutResponse reports the created order.
type CheckoutResponse struct {
	OrderID int64 `json:"order_id"`
	Total   int64 `json:"total"`
}

// UpdateOrderDateRequest rewrites an order's timestamp.
type UpdateOrderDateRequest struct {
	Date string `json:"date" validate:"required"` // RFC3339
}

// OrderItemDTO is a denormalized line snapshot.
type OrderItemDTO struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	Qty     int64  `json:"qty"`
	Price   int64  `json:"price"`
}

// OrderDTO is an order with its items, as shown in history listings.
type OrderDTO struct {
	ID         int64          `json:"id"`
	Customer   string         `json:"customer"`
	CustomerID *int64         `json:"customer_id,omitempty"`
	Date       string         `json:"date"`
	CreatedAt  string         `json:"created_at"`
	TotalMoney int64          `json:"total_money"`
	TotalQty   int64          `json:"total_qty"`
	Items      []OrderItemDTO `json:"items"`
}

// SummaryDTO is the revenue report.
type SummaryDTO struct {
	OrderCount   int64  `json:"order_count"`
	GrossRevenue int64  `json:"gross_revenue"`
	AverageOrder string `json:"average_order"`
}

// =============================================================================
// CUSTOMERS / DEBT
// =============================================================================

// CustomerDTO is a customer with the materialized debt balance.
type CustomerDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Debt  int64  `json:"debt"`
}

// DebtLogRequest creates or updates a manual balance adjustment.
// ChangeAmount is signed; Timestamp (RFC3339) backdates the entry.
type DebtLogRequest struct {
	ChangeAmount int64   `json:"change_amount" validate:"required"`
	Note         string  `json:"note"`
	Timestamp    *string `json:"timestamp,omitempty"`
}

// DebtLogDTO is a stored adjustment entry.
type DebtLogDTO struct {
	ID           int64  `json:"id"`
	CustomerID   int64  `json:"customer_id"`
	ChangeAmount int64  `json:"change_amount"`
	NewBalance   int64  `json:"new_balance"`
	Note         string `json:"note"`
	Date         string `json:"date"`
}

// HistoryEntryDTO is one row of the merged per-customer audit trail.
type HistoryEntryDTO struct {
	Type        string    `json:"type"` // ORDER or LOG
	Date        string    `json:"date"`
	CreatedTS   int64     `json:"created_ts"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Order       *OrderDTO `json:"order,omitempty"`
	LogID       int64     `json:"log_id,omitempty"`
}

// =============================================================================
// CATALOG
// =============================================================================

// VariantRequest is a variant inside a product create/update. A zero
// ID on update means "insert new"; IDs absent from the request are
// deleted.
type VariantRequest struct {
	ID    int64  `json:"id,omitempty"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Price int64  `json:"price" validate:"gte=0"`
	Stock int64  `json:"stock" validate:"gte=0"`
}

// ProductRequest creates or updates a product with its variant set.
type ProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	ImagePath   string           `json:"image_path"`
	Variants    []VariantRequest `json:"variants" validate:"dive"`
}

// VariantDTO is a variant in API responses.
type VariantDTO struct {
	ID    int64  `json:"id"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Price int64  `json:"price"`
	Stock int64  `json:"stock"`
}

// ProductDTO is a catalog entry with its variants.
type ProductDTO struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Variants    []VariantDTO `json:"variants"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCart(items []CartItemDTO) []ledger.CartItem {
	cart := make([]ledger.CartItem, len(items))
	for i, it := range items {
		cart[i] = ledger.CartItem{
			VariantID:   it.VariantID,
			Quantity:    it.Quantity,
			Price:       it.Price,
			ProductName: it.ProductName,
			Color:       it.Color,
			Size:        it.Size,
		}
	}
	return cart
}

func toOrderDTO(o ledger.Order) OrderDTO {
	var totalQty int64
	items := make([]OrderItemDTO, len(o.Items))
	for i, it := range o.Items {
		totalQty += it.Quantity
		items[i] = OrderItemDTO{
			Name:    it.ProductName,
			Variant: it.VariantInfo,
			Qty:     it.Quantity,
			Price:   it.Price,
		}
	}
	return OrderDTO{
		ID:         o.ID,
		Customer:   o.CustomerName,
		CustomerID: o.CustomerID,
		Date:       o.CreatedAt.Local().Format(displayDate),
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
		TotalMoney: o.TotalAmount,
		TotalQty:   totalQty,
		Items:      items,
	}
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{ID: c.ID, Name: c.Name, Phone: c.Phone, Debt: c.Debt}
}

func toHistoryDTO(entry ledger.HistoryEntry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		Type:        string(entry.Type),
		Date:        entry.Timestamp.Local().Format(displayDate),
		CreatedTS:   entry.CreatedTS,
		Description: entry.Description,
		Amount:      entry.Amount,
		LogID:       entry.LogID,
	}
	if entry.Order != nil {
		o := toOrderDTO(*entry.Order)
		dto.Order = &o
	}
	return dto
}

func toProductDTO(p sqlite.Product) ProductDTO {
	variants := make([]VariantDTO, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = VariantDTO{ID: v.ID, Color: v.Color, Size: v.Size, Price: v.Price, Stock: v.Stock}
	}
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.ImagePath,
		Variants:    variants,
	}
}
