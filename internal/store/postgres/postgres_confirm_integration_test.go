package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
)

func TestConfirmBatchTransaction(t *testing.T) {
	databaseURL := os.Getenv("GUDANGKU_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set GUDANGKU_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("itm-confirm-it-%d", stamp)
	groupID := fmt.Sprintf("grp-confirm-it-%d", stamp)
	entryID := fmt.Sprintf("ent-confirm-it-%d", stamp)
	rowID := fmt.Sprintf("log-confirm-it-%d", stamp)
	usageRowID := fmt.Sprintf("log-usage-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_log WHERE id IN ($1, $2)`, rowID, usageRowID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM batch_entries WHERE group_id = $1`, groupID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM batch_groups WHERE id = $1`, groupID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, name, unit, qty_per_piece, unit_cost, current_stock,
			low_stock_threshold, archived, created_at, updated_at
		) VALUES ($1, $2, 'kg', 1, 9000, 4, 0, false, now(), now())
	`, itemID, fmt.Sprintf("Bahan Confirm IT %d", stamp)); err != nil {
		t.Fatalf("insert item: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_groups (id, kind, device_id, confirmed, created_at)
		VALUES ($1, 'purchase', 'device-it', false, now())
	`, groupID); err != nil {
		t.Fatalf("insert group: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_entries (
			id, group_id, item_id, item_name, qty, unit_cost, created_at, updated_at
		) VALUES ($1, $2, $3, 'Bahan Confirm IT', 6, 11100, now(), now())
	`, entryID, groupID, itemID); err != nil {
		t.Fatalf("insert entry: %v", err)
	}

	confirmedAt := time.Now().UTC()
	unitCost := decimal.NewFromInt(11100)
	rows := []domain.InventoryLogRow{{
		ID:             rowID,
		OperationCode:  domain.OpNewPurchase,
		ItemID:         itemID,
		ItemName:       "Bahan Confirm IT",
		Qty:            decimal.NewFromInt(6),
		UnitCost:       unitCost,
		UnitCostNet:    decimal.NewFromInt(10000),
		UnitCostTax:    decimal.NewFromInt(1100),
		TaxName:        "PPN",
		TaxRatePercent: decimal.NewFromInt(11),
		GroupID:        groupID,
		AdjustedAt:     confirmedAt,
		CreatedAt:      confirmedAt,
		UpdatedAt:      confirmedAt,
	}}
	updates := []domain.ItemCacheUpdate{{
		ItemID:      itemID,
		StockDelta:  decimal.NewFromInt(6),
		SetUnitCost: &unitCost,
	}}

	group, err := s.ConfirmBatch(ctx, groupID, confirmedAt, rows, updates)
	if err != nil {
		t.Fatalf("confirm batch: %v", err)
	}
	if !group.Confirmed || group.ConfirmedAt == nil {
		t.Fatalf("group not marked confirmed: %+v", group)
	}

	item, err := s.GetItemByID(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.CurrentStock.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected stock 10 after confirm, got %s", item.CurrentStock)
	}
	if !item.UnitCost.Equal(unitCost) {
		t.Fatalf("expected cached cost 11100, got %s", item.UnitCost)
	}

	entries, err := s.ListBatchEntries(ctx, groupID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected entries cleared, found %d", len(entries))
	}

	logged, err := s.GetLogRowByID(ctx, rowID)
	if err != nil {
		t.Fatalf("get log row: %v", err)
	}
	if !logged.UnitCostNet.Equal(decimal.NewFromInt(10000)) || !logged.UnitCostTax.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("tax split not persisted: net=%s tax=%s", logged.UnitCostNet, logged.UnitCostTax)
	}

	// Confirming the same group again must fail.
	if _, err := s.ConfirmBatch(ctx, groupID, time.Now().UTC(), nil, nil); err == nil {
		t.Fatalf("expected error confirming an already-confirmed group")
	}

	// A limited ledger read keeps the newest rows, oldest first.
	later := confirmedAt.Add(time.Hour)
	if _, err := s.AppendAdjustment(ctx, domain.InventoryLogRow{
		ID:            usageRowID,
		OperationCode: domain.OpStockUsage,
		ItemID:        itemID,
		ItemName:      "Bahan Confirm IT",
		Qty:           decimal.NewFromInt(2),
		UnitCost:      unitCost,
		UnitCostNet:   decimal.NewFromInt(10000),
		UnitCostTax:   decimal.NewFromInt(1100),
		AdjustedAt:    later,
		CreatedAt:     later,
		UpdatedAt:     later,
	}, domain.ItemCacheUpdate{ItemID: itemID, StockDelta: decimal.NewFromInt(-2)}); err != nil {
		t.Fatalf("append adjustment: %v", err)
	}
	limited, err := s.ListLogRows(ctx, domain.LogFilter{ItemID: itemID, Limit: 1})
	if err != nil {
		t.Fatalf("list limited rows: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != usageRowID {
		t.Fatalf("expected the newest row from a limited read, got %+v", limited)
	}
}
