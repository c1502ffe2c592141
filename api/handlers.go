/*
handlers.go - HTTP API handlers for the shop ledger

PURPOSE:
  Exposes the checkout/debt-ledger engine and the catalog store via
  REST. Handles HTTP request/response, JSON serialization, validation,
  and delegates to domain logic.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator/v10 struct tags)
  3. Call domain logic (engine or store)
  4. Serialize response

ERROR HANDLING:
  - 400: Validation errors, insufficient stock, malformed carts
  - 404: Order/customer/log/product no longer exists (stale UI state)
  - 500: Store failures

  Core errors abort their transaction before surfacing, so a 4xx never
  leaves partial stock or debt changes behind.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aoshop/pos-engine/ledger"
	"github.com/aoshop/pos-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Engine   *ledger.Engine
	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler with the given store, engine and logger.
func NewHandler(store *sqlite.Store, engine *ledger.Engine, log *logrus.Logger) *Handler {
	return &Handler{
		Store:    store,
		Engine:   engine,
		Log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// CHECKOUT / ORDER HANDLERS
// =============================================================================

// Checkout rings up a cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid checkout request", err)
		return
	}

	result, err := h.Engine.Checkout(r.Context(), toCart(req.Cart), req.CustomerName, req.CustomerPhone)
	if err != nil {
		h.writeEngineError(w, err, "Checkout failed")
		return
	}

	h.Log.WithFields(logrus.Fields{
		"order_id": result.OrderID,
		"total":    result.Total,
		"customer": req.CustomerName,
	}).Info("checkout complete")

	writeJSON(w, http.StatusCreated, CheckoutResponse{OrderID: result.OrderID, Total: result.Total})
}

// ListOrders returns orders newest-first with items attached.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)
	orders, err := h.Store.ListOrders(r.Context(), limit, offset)
	if err != nil {
		h.writeEngineError(w, err, "Failed to list orders")
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EditOrder replaces an order's cart and customer link.
func (h *Handler) EditOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id", err)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order edit request", err)
		return
	}

	if err := h.Engine.EditOrder(r.Context(), orderID, toCart(req.Cart), req.CustomerName, req.CustomerPhone); err != nil {
		h.writeEngineError(w, err, "Failed to edit order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteOrder reverses and removes an order.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id", err)
		return
	}

	if err := h.Engine.DeleteOrder(r.Context(), orderID); err != nil {
		h.writeEngineError(w, err, "Failed to delete order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateOrderDate rewrites an order's timestamp only.
func (h *Handler) UpdateOrderDate(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id", err)
		return
	}

	var req UpdateOrderDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use RFC3339)", err)
		return
	}

	if err := h.Engine.UpdateOrderDate(r.Context(), orderID, at); err != nil {
		h.writeEngineError(w, err, "Failed to update order date")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// OrderSummary returns the revenue report. The average is a decimal
// because gross/count rarely divides evenly.
func (h *Handler) OrderSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Store.Summary(r.Context())
	if err != nil {
		h.writeEngineError(w, err, "Failed to aggregate orders")
		return
	}

	average := decimal.Zero
	if sum.OrderCount > 0 {
		average = decimal.NewFromInt(sum.GrossRevenue).
			Div(decimal.NewFromInt(sum.OrderCount)).
			Round(2)
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		OrderCount:   sum.OrderCount,
		GrossRevenue: sum.GrossRevenue,
		AverageOrder: average.String(),
	})
}

// =============================================================================
// CUSTOMER / DEBT HANDLERS
// =============================================================================

// ListCustomers returns all customers with their running debt.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		h.writeEngineError(w, err, "Failed to list customers")
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHistory returns a customer's merged order + debt-log audit trail,
// newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	entries, err := h.Engine.History(r.Context(), customerID)
	if err != nil {
		h.writeEngineError(w, err, "Failed to load history")
		return
	}

	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toHistoryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDebtLog records a manual balance adjustment.
func (h *Handler) CreateDebtLog(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}

	req, at, ok := h.decodeDebtLog(w, r)
	if !ok {
		return
	}

	log, err := h.Engine.CreateDebtLog(r.Context(), customerID, req.ChangeAmount, req.Note, at)
	if err != nil {
		h.writeEngineError(w, err, "Failed to create debt log")
		return
	}

	writeJSON(w, http.StatusCreated, DebtLogDTO{
		ID:           log.ID,
		CustomerID:   log.CustomerID,
		ChangeAmount: log.ChangeAmount,
		NewBalance:   log.NewBalance,
		Note:         log.Note,
		Date:         log.CreatedAt.Local().Format(displayDate),
	})
}

// UpdateDebtLog overwrites a manual adjustment.
func (h *Handler) UpdateDebtLog(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}
	logID, err := urlID(r, "logID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid log id", err)
		return
	}

	req, at, ok := h.decodeDebtLog(w, r)
	if !ok {
		return
	}

	if err := h.Engine.UpdateDebtLog(r.Context(), customerID, logID, req.ChangeAmount, req.Note, at); err != nil {
		h.writeEngineError(w, err, "Failed to update debt log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteDebtLog removes a manual adjustment, undoing its balance effect.
func (h *Handler) DeleteDebtLog(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer id", err)
		return
	}
	logID, err := urlID(r, "logID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid log id", err)
		return
	}

	if err := h.Engine.DeleteDebtLog(r.Context(), customerID, logID); err != nil {
		h.writeEngineError(w, err, "Failed to delete debt log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decodeDebtLog(w http.ResponseWriter, r *http.Request) (DebtLogRequest, *time.Time, bool) {
	var req DebtLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debt log request", err)
		return req, nil, false
	}

	var at *time.Time
	if req.Timestamp != nil {
		t, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timestamp format (use RFC3339)", err)
			return req, nil, false
		}
		at = &t
	}
	return req, at, true
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListProducts returns the catalog, optionally filtered by ?search=
// and paginated by ?limit= / ?offset=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 0)
	products, err := h.Store.ListProducts(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		h.writeEngineError(w, err, "Failed to list products")
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct adds a catalog entry with its variants.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product request", err)
		return
	}

	product := productFromRequest(0, req)
	if err := h.Store.CreateProduct(r.Context(), product); err != nil {
		h.writeEngineError(w, err, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*product))
}

// UpdateProduct rewrites a product and syncs its variant set.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product request", err)
		return
	}

	product := productFromRequest(productID, req)
	if err := h.Store.UpdateProduct(r.Context(), product); err != nil {
		h.writeEngineError(w, err, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteProduct removes a product and its variants. Historical order
// items keep their snapshots.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id", err)
		return
	}

	if err := h.Store.DeleteProduct(r.Context(), productID); err != nil {
		h.writeEngineError(w, err, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func productFromRequest(id int64, req ProductRequest) *sqlite.Product {
	variants := make([]ledger.Variant, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = ledger.Variant{
			ID:    v.ID,
			Color: v.Color,
			Size:  v.Size,
			Price: v.Price,
			Stock: v.Stock,
		}
	}
	return &sqlite.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ImagePath:   req.ImagePath,
		Variants:    variants,
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeEngineError maps domain errors onto HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Log.WithError(err).Error(fallback)
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func urlID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
