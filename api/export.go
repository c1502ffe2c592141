/*
export.go - Excel export of the order ledger

PURPOSE:
  Streams the full order history as an .xlsx workbook so the shop
  owner can archive or hand it to an accountant. One row per order
  line; orders keep their newest-first listing order.
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Order ID", "Date", "Customer", "Product", "Variant", "Quantity", "Unit Price", "Line Total", "Order Total"}

// ExportOrders writes every order as an Excel attachment.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListOrders(r.Context(), 0, 0)
	if err != nil {
		h.writeEngineError(w, err, "Failed to load orders for export")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	row := 2
	for _, o := range orders {
		customer := o.CustomerName
		for _, it := range o.Items {
			values := []any{
				o.ID,
				o.CreatedAt.Local().Format("2006-01-02 15:04"),
				customer,
				it.ProductName,
				it.VariantInfo,
				it.Quantity,
				it.Price,
				it.Quantity * it.Price,
				o.TotalAmount,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
		// Orders with no surviving items still get a row so totals
		// reconcile against the summary report.
		if len(o.Items) == 0 {
			values := []any{o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), customer, "", "", 0, 0, 0, o.TotalAmount}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := f.Write(w); err != nil {
		h.Log.WithError(err).Error("failed to stream export")
	}
}
