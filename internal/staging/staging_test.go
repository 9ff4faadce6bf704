package staging

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/devicestate"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/store/memory"
)

func newTestManager() (*Manager, *memory.Store, *devicestate.MemoryStore) {
	repo := memory.NewSeeded()
	state := devicestate.NewMemoryStore()
	return New(repo, state), repo, state
}

func TestCurrentGroupCreatesOncePerKind(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-a"}

	first, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("current group: %v", err)
	}
	second, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("current group again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same open group, got %s and %s", first.ID, second.ID)
	}

	usage, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindUsage)
	if err != nil {
		t.Fatalf("usage group: %v", err)
	}
	if usage.ID == first.ID {
		t.Fatalf("kinds must not share a group")
	}
}

func TestLostPointerRecoversLatestGroup(t *testing.T) {
	mgr, _, state := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-b"}

	group, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("current group: %v", err)
	}

	// Simulate a restart losing the in-process pointer.
	if err := state.ClearCurrentGroup(ctx, sess.DeviceID, domain.BatchKindPurchase); err != nil {
		t.Fatalf("clear pointer: %v", err)
	}

	recovered, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("recover group: %v", err)
	}
	if recovered.ID != group.ID {
		t.Fatalf("expected to adopt the existing open group")
	}
}

func TestPointerToMissingGroupSelfHeals(t *testing.T) {
	mgr, _, state := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-c"}

	if err := state.SetCurrentGroup(ctx, sess.DeviceID, domain.BatchKindUsage, "batch-gone"); err != nil {
		t.Fatalf("set pointer: %v", err)
	}

	group, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindUsage)
	if err != nil {
		t.Fatalf("expected self-heal, got %v", err)
	}
	if group.ID == "batch-gone" {
		t.Fatalf("adopted a nonexistent group")
	}

	groupID, ok, err := state.CurrentGroup(ctx, sess.DeviceID, domain.BatchKindUsage)
	if err != nil || !ok || groupID != group.ID {
		t.Fatalf("pointer not rewritten: %q %v %v", groupID, ok, err)
	}
}

func TestUpsertEntryValidation(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-d"}

	if _, err := mgr.UpsertEntry(ctx, sess, domain.StageEntryRequest{
		Kind: "refund", ItemID: "itm-beras", Qty: decimal.NewFromInt(1),
	}); !errors.Is(err, store.ErrInvalidEntry) {
		t.Fatalf("expected invalid kind error, got %v", err)
	}

	if _, err := mgr.UpsertEntry(ctx, sess, domain.StageEntryRequest{
		Kind: domain.BatchKindPurchase, ItemID: "itm-beras", Qty: decimal.NewFromInt(-1),
	}); !errors.Is(err, store.ErrInvalidEntry) {
		t.Fatalf("expected negative qty error, got %v", err)
	}

	if _, err := mgr.UpsertEntry(ctx, sess, domain.StageEntryRequest{
		Kind: domain.BatchKindPurchase, ItemID: "itm-missing", Qty: decimal.NewFromInt(1),
	}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
}

func TestPurchaseEntryUpdatesDefaultTax(t *testing.T) {
	mgr, repo, _ := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-e"}

	// Seeded itm-beras defaults to the tax-free rate; staging it under PPN
	// should flip the default.
	if _, err := mgr.UpsertEntry(ctx, sess, domain.StageEntryRequest{
		Kind:     domain.BatchKindPurchase,
		ItemID:   "itm-beras",
		Qty:      decimal.NewFromInt(5),
		UnitCost: decimal.NewFromInt(14000),
		TaxID:    "tax-ppn",
	}); err != nil {
		t.Fatalf("upsert entry: %v", err)
	}

	item, err := repo.GetItemByID(ctx, "itm-beras")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.DefaultTaxID != "tax-ppn" {
		t.Fatalf("expected default tax updated, got %s", item.DefaultTaxID)
	}
}

func TestDiscardClearsGroupAndPointer(t *testing.T) {
	mgr, repo, state := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-f"}

	group, err := mgr.CurrentGroup(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("current group: %v", err)
	}
	if err := mgr.Discard(ctx, sess, domain.BatchKindPurchase); err != nil {
		t.Fatalf("discard: %v", err)
	}

	if _, err := repo.GetBatchGroup(ctx, group.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected group deleted, got %v", err)
	}
	if _, ok, _ := state.CurrentGroup(ctx, sess.DeviceID, domain.BatchKindPurchase); ok {
		t.Fatalf("expected pointer cleared")
	}

	// Nothing staged: discard stays quiet.
	if err := mgr.Discard(ctx, sess, domain.BatchKindPurchase); err != nil {
		t.Fatalf("second discard: %v", err)
	}
}

func TestEntriesTotalsStagedValue(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()
	sess := Session{DeviceID: "dev-g"}

	stages := []struct {
		itemID string
		qty    int64
		cost   int64
	}{
		{"itm-beras", 2, 14000},
		{"itm-gula", 3, 17000},
	}
	for _, stage := range stages {
		if _, err := mgr.UpsertEntry(ctx, sess, domain.StageEntryRequest{
			Kind:     domain.BatchKindPurchase,
			ItemID:   stage.itemID,
			Qty:      decimal.NewFromInt(stage.qty),
			UnitCost: decimal.NewFromInt(stage.cost),
			TaxID:    "tax-ppn",
		}); err != nil {
			t.Fatalf("upsert %s: %v", stage.itemID, err)
		}
	}

	resp, err := mgr.Entries(ctx, sess, domain.BatchKindPurchase)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	want := decimal.NewFromInt(2*14000 + 3*17000)
	if !resp.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, resp.Total)
	}
}
