/*
history.go - Merged audit trail per customer

PURPOSE:
  Produces one reverse-chronological list from two disjoint sources:
  orders linked to the customer (always a debt increase) and manual
  debt-log entries (signed). Sorted by the monotonic created_ts key,
  never by the display date string - many entries can share the same
  wall-clock minute.
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
)

// History returns the customer's full audit trail, newest first.
func (e *Engine) History(ctx context.Context, customerID int64) ([]HistoryEntry, error) {
	var entries []HistoryEntry

	err := e.store.WithTx(ctx, func(tx Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}

		orders, err := tx.OrdersByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for i := range orders {
			order := orders[i]
			items, err := tx.ItemsByOrder(ctx, order.ID)
			if err != nil {
				return err
			}
			order.Items = items
			entries = append(entries, HistoryEntry{
				Type:        EntryOrder,
				Timestamp:   order.CreatedAt,
				CreatedTS:   order.CreatedTS,
				Description: fmt.Sprintf("order #%d", order.ID),
				Amount:      order.TotalAmount,
				Order:       &order,
			})
		}

		logs, err := tx.LogsByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for _, log := range logs {
			entries = append(entries, HistoryEntry{
				Type:        EntryLog,
				Timestamp:   log.CreatedAt,
				CreatedTS:   log.CreatedTS,
				Description: log.Note,
				Amount:      log.ChangeAmount,
				LogID:       log.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedTS > entries[j].CreatedTS
	})
	return entries, nil
}
