// Package staging manages the unconfirmed batch a device is building.
// Each device holds at most one open group per batch kind; the pointer to
// it is cached in device state but the repository stays authoritative, so
// every lookup revalidates the pointer and heals it when it is stale.
package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/devicestate"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/xid"
)

// Session identifies the device doing the staging. Passing it explicitly
// keeps the manager free of ambient state.
type Session struct {
	DeviceID string
}

type Manager struct {
	repo  store.Repository
	state devicestate.Store
}

func New(repo store.Repository, state devicestate.Store) *Manager {
	return &Manager{repo: repo, state: state}
}

func validKind(kind string) bool {
	return kind == domain.BatchKindPurchase || kind == domain.BatchKindUsage
}

// CurrentGroup resolves the session's open group, creating one when none
// exists. A cached pointer naming a confirmed or deleted group is treated
// as drift and replaced silently.
func (m *Manager) CurrentGroup(ctx context.Context, sess Session, kind string) (*domain.BatchGroup, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	if strings.TrimSpace(sess.DeviceID) == "" {
		return nil, fmt.Errorf("%w: device id required", store.ErrInvalidEntry)
	}

	group, err := m.peek(ctx, sess, kind)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := m.repo.CreateBatchGroup(ctx, domain.BatchGroup{
		ID:        xid.New("batch"),
		Kind:      kind,
		DeviceID:  sess.DeviceID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := m.state.SetCurrentGroup(ctx, sess.DeviceID, kind, created.ID); err != nil {
		return nil, err
	}
	return created, nil
}

// peek finds the open group without creating one. store.ErrNotFound means
// the device has nothing staged for this kind.
func (m *Manager) peek(ctx context.Context, sess Session, kind string) (*domain.BatchGroup, error) {
	if groupID, ok, err := m.state.CurrentGroup(ctx, sess.DeviceID, kind); err != nil {
		return nil, err
	} else if ok {
		group, err := m.repo.GetBatchGroup(ctx, groupID)
		if err == nil && !group.Confirmed && group.Kind == kind && group.DeviceID == sess.DeviceID {
			return group, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Stale pointer: the group was confirmed elsewhere or is gone.
		if err := m.state.ClearCurrentGroup(ctx, sess.DeviceID, kind); err != nil {
			return nil, err
		}
	}

	group, err := m.repo.LatestUnconfirmedGroup(ctx, sess.DeviceID, kind)
	if err != nil {
		return nil, err
	}
	if err := m.state.SetCurrentGroup(ctx, sess.DeviceID, kind, group.ID); err != nil {
		return nil, err
	}
	return group, nil
}

// UpsertEntry stages one line for an item, replacing any previous line for
// the same item. Quantity zero removes the line.
func (m *Manager) UpsertEntry(ctx context.Context, sess Session, req domain.StageEntryRequest) (*domain.StageEntryResponse, error) {
	kind := req.Kind
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	if req.Qty.Sign() < 0 {
		return nil, fmt.Errorf("%w: quantity may not be negative", store.ErrInvalidEntry)
	}

	item, err := m.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Archived {
		return nil, fmt.Errorf("%w: item %s is archived", store.ErrInvalidEntry, item.Name)
	}

	if req.Qty.IsZero() {
		return m.removeEntry(ctx, sess, kind, item.ID)
	}

	unitCost := req.UnitCost
	taxID := ""
	switch kind {
	case domain.BatchKindPurchase:
		if unitCost.Sign() < 0 {
			return nil, fmt.Errorf("%w: unit cost may not be negative", store.ErrInvalidEntry)
		}
		taxID = req.TaxID
		if taxID == "" {
			taxID = item.DefaultTaxID
		}
		if taxID == "" {
			return nil, fmt.Errorf("%w: purchase entry requires a tax", store.ErrInvalidEntry)
		}
		if _, err := m.repo.GetTaxByID(ctx, taxID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: tax %s not found", store.ErrInvalidEntry, req.TaxID)
			}
			return nil, err
		}
		if req.VendorID != "" {
			if _, err := m.repo.GetVendorByID(ctx, req.VendorID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: vendor %s not found", store.ErrInvalidEntry, req.VendorID)
				}
				return nil, err
			}
		}
	case domain.BatchKindUsage:
		if req.Qty.Cmp(item.CurrentStock) > 0 {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
		}
		// Usage lines are displayed and confirmed at the cached cost.
		unitCost = item.UnitCost
	}

	group, err := m.CurrentGroup(ctx, sess, kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry, err := m.repo.UpsertBatchEntry(ctx, domain.BatchEntry{
		ID:        xid.New("entry"),
		GroupID:   group.ID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Qty:       req.Qty,
		UnitCost:  unitCost,
		TaxID:     taxID,
		VendorID:  req.VendorID,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	// Choosing a different tax while staging a purchase becomes the item's
	// new default.
	if kind == domain.BatchKindPurchase && taxID != item.DefaultTaxID {
		if err := m.repo.SetItemDefaultTax(ctx, item.ID, taxID, now); err != nil {
			return nil, err
		}
	}

	entries, err := m.repo.ListBatchEntries(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &domain.StageEntryResponse{
		GroupID: group.ID,
		Entry:   entry,
		Entries: entries,
	}, nil
}

func (m *Manager) removeEntry(ctx context.Context, sess Session, kind string, itemID string) (*domain.StageEntryResponse, error) {
	group, err := m.peek(ctx, sess, kind)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.StageEntryResponse{Removed: true, Entries: []domain.BatchEntry{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := m.repo.DeleteBatchEntry(ctx, group.ID, itemID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	entries, err := m.repo.ListBatchEntries(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &domain.StageEntryResponse{
		GroupID: group.ID,
		Removed: true,
		Entries: entries,
	}, nil
}

// Entries lists the staged lines with a running value total. A device with
// nothing staged gets an empty response, not an error.
func (m *Manager) Entries(ctx context.Context, sess Session, kind string) (*domain.StagedBatchResponse, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	group, err := m.peek(ctx, sess, kind)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.StagedBatchResponse{
			Kind:    kind,
			Entries: []domain.BatchEntry{},
			Total:   decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	entries, err := m.repo.ListBatchEntries(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.UnitCost.Mul(entry.Qty))
	}
	return &domain.StagedBatchResponse{
		GroupID: group.ID,
		Kind:    kind,
		Entries: entries,
		Total:   total,
	}, nil
}

// PendingGroup exposes peek for callers that must not create a group,
// such as confirmation.
func (m *Manager) PendingGroup(ctx context.Context, sess Session, kind string) (*domain.BatchGroup, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	return m.peek(ctx, sess, kind)
}

// Discard deletes the open group and its entries. Nothing staged is a
// no-op.
func (m *Manager) Discard(ctx context.Context, sess Session, kind string) error {
	if !validKind(kind) {
		return fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	group, err := m.peek(ctx, sess, kind)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.repo.DeleteUnconfirmedGroup(ctx, group.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return m.state.ClearCurrentGroup(ctx, sess.DeviceID, kind)
}

// ClearPointer drops the cached pointer after a confirmation commits.
func (m *Manager) ClearPointer(ctx context.Context, sess Session, kind string) error {
	return m.state.ClearCurrentGroup(ctx, sess.DeviceID, kind)
}
