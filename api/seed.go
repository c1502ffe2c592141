/*
seed.go - Demo data endpoints

PURPOSE:
  Dev-only helpers behind /api/admin: populate the catalog with demo
  products so the client has something to sell, and wipe the database
  back to empty. Neither endpoint is meant for production use; the
  server runs on a trusted LAN.
*/
package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aoshop/pos-engine/ledger"
	"github.com/aoshop/pos-engine/store/sqlite"
)

// SeedDemo inserts a small demo catalog. Safe to call repeatedly; each
// call adds another copy.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	demo := []sqlite.Product{
		{
			Name:        "Basic Tee",
			Description: "Soft cotton tee, unisex fit",
			Variants: []ledger.Variant{
				{Color: "White", Size: "M", Price: 120, Stock: 25},
				{Color: "White", Size: "L", Price: 120, Stock: 18},
				{Color: "Black", Size: "M", Price: 125, Stock: 30},
				{Color: "Black", Size: "L", Price: 125, Stock: 12},
			},
		},
		{
			Name:        "Denim Jacket",
			Description: "Classic fit, stonewashed",
			Variants: []ledger.Variant{
				{Color: "Blue", Size: "M", Price: 450, Stock: 8},
				{Color: "Blue", Size: "L", Price: 450, Stock: 6},
			},
		},
		{
			Name:        "Summer Dress",
			Description: "Floral print, knee length",
			Variants: []ledger.Variant{
				{Color: "Red", Size: "S", Price: 320, Stock: 10},
				{Color: "Red", Size: "M", Price: 320, Stock: 14},
				{Color: "Yellow", Size: "S", Price: 320, Stock: 7},
			},
		},
		{
			Name:        "Canvas Sneakers",
			Description: "Low top, rubber sole",
			Variants: []ledger.Variant{
				{Color: "White", Size: "39", Price: 280, Stock: 9},
				{Color: "White", Size: "40", Price: 280, Stock: 11},
				{Color: "Black", Size: "41", Price: 280, Stock: 5},
			},
		},
	}

	created := make([]int64, 0, len(demo))
	for i := range demo {
		p := &demo[i]
		// Placeholder image name until a real upload replaces it.
		p.ImagePath = "demo-" + uuid.NewString() + ".jpg"
		if err := h.Store.CreateProduct(r.Context(), p); err != nil {
			h.writeEngineError(w, err, "Failed to seed products")
			return
		}
		created = append(created, p.ID)
	}

	h.Log.WithField("products", len(created)).Info("demo catalog seeded")
	writeJSON(w, http.StatusCreated, map[string]any{"status": "seeded", "product_ids": created})
}

// ResetDatabase wipes all rows from every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeEngineError(w, err, "Failed to reset database")
		return
	}
	h.Log.Warn("database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
