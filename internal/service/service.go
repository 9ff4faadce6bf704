package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/costing"
	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/staging"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/xid"
)

// ErrCountExceedsLedger rejects an ending count above the ledger-implied
// stock; surpluses must be booked through the purchase flow.
var ErrCountExceedsLedger = errors.New("counted quantity exceeds ledger stock, book the surplus as a purchase")

// Limits caps the catalog sizes. Zero means unlimited.
type Limits struct {
	MaxItems   int
	MaxVendors int
	MaxTaxes   int
}

type Service struct {
	repo            store.Repository
	staging         *staging.Manager
	limits          Limits
	defaultDeviceID string
}

func New(repo store.Repository, stagingMgr *staging.Manager, limits Limits, defaultDeviceID string) *Service {
	return &Service{
		repo:            repo,
		staging:         stagingMgr,
		limits:          limits,
		defaultDeviceID: defaultDeviceID,
	}
}

type actorContextKey struct{}

type Actor struct {
	Username string
	Role     string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

func (s *Service) requireManager(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return fmt.Errorf("manager role required")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	entry := domain.AuditLog{
		ID:         xid.New("audit"),
		Actor:      actor.Username,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("audit log write failed (%s %s): %v", action, entityID, err)
	}
}

func (s *Service) session(deviceID string) staging.Session {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = s.defaultDeviceID
	}
	return staging.Session{DeviceID: deviceID}
}

// Catalog.

func (s *Service) ListItems(ctx context.Context, includeArchived bool) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, includeArchived)
}

func (s *Service) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.repo.GetItemByID(ctx, itemID)
}

func (s *Service) CreateItem(ctx context.Context, req domain.CreateItemRequest) (*domain.Item, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" {
		return nil, fmt.Errorf("%w: name and unit are required", store.ErrInvalidEntry)
	}
	if req.InitialStock.Sign() < 0 || req.UnitCost.Sign() < 0 || req.LowStockThreshold.Sign() < 0 {
		return nil, fmt.Errorf("%w: quantities and costs may not be negative", store.ErrInvalidEntry)
	}
	if s.limits.MaxItems > 0 {
		count, err := s.repo.CountItems(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.limits.MaxItems {
			return nil, fmt.Errorf("%w: at most %d items", store.ErrLimitReached, s.limits.MaxItems)
		}
	}

	var defaultTax *domain.Tax
	if req.DefaultTaxID != "" {
		tax, err := s.repo.GetTaxByID(ctx, req.DefaultTaxID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: tax %s not found", store.ErrInvalidEntry, req.DefaultTaxID)
			}
			return nil, err
		}
		defaultTax = tax
	}
	if req.DefaultVendorID != "" {
		if _, err := s.repo.GetVendorByID(ctx, req.DefaultVendorID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: vendor %s not found", store.ErrInvalidEntry, req.DefaultVendorID)
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	qtyPerPiece := req.QtyPerPiece
	if qtyPerPiece.Sign() <= 0 {
		qtyPerPiece = decimal.NewFromInt(1)
	}
	item, err := s.repo.CreateItem(ctx, domain.Item{
		ID:                xid.New("itm"),
		Name:              name,
		Unit:              unit,
		PieceUnit:         strings.TrimSpace(req.PieceUnit),
		QtyPerPiece:       qtyPerPiece,
		UnitCost:          req.UnitCost,
		CurrentStock:      decimal.Zero,
		DefaultTaxID:      req.DefaultTaxID,
		DefaultVendorID:   req.DefaultVendorID,
		LowStockThreshold: req.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, err
	}

	// The opening balance goes through the ledger like everything else.
	if req.InitialStock.Sign() > 0 {
		row := s.buildLogRow(domain.OpInitialStock, *item, req.InitialStock, req.UnitCost, defaultTax, "", "", now)
		if _, err := s.repo.AppendAdjustment(ctx, row, domain.ItemCacheUpdate{
			ItemID:     item.ID,
			StockDelta: req.InitialStock,
		}); err != nil {
			return nil, err
		}
		item.CurrentStock = req.InitialStock
	}

	s.logAudit(ctx, "item.create", "item", item.ID, name)
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, req domain.UpdateItemRequest) (*domain.Item, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name may not be empty", store.ErrInvalidEntry)
		}
		item.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, fmt.Errorf("%w: unit may not be empty", store.ErrInvalidEntry)
		}
		item.Unit = unit
	}
	if req.PieceUnit != nil {
		item.PieceUnit = strings.TrimSpace(*req.PieceUnit)
	}
	if req.QtyPerPiece != nil {
		if req.QtyPerPiece.Sign() <= 0 {
			return nil, fmt.Errorf("%w: qty per piece must be positive", store.ErrInvalidEntry)
		}
		item.QtyPerPiece = *req.QtyPerPiece
	}
	if req.DefaultTaxID != nil {
		if *req.DefaultTaxID != "" {
			if _, err := s.repo.GetTaxByID(ctx, *req.DefaultTaxID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: tax %s not found", store.ErrInvalidEntry, *req.DefaultTaxID)
				}
				return nil, err
			}
		}
		item.DefaultTaxID = *req.DefaultTaxID
	}
	if req.DefaultVendorID != nil {
		if *req.DefaultVendorID != "" {
			if _, err := s.repo.GetVendorByID(ctx, *req.DefaultVendorID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: vendor %s not found", store.ErrInvalidEntry, *req.DefaultVendorID)
				}
				return nil, err
			}
		}
		item.DefaultVendorID = *req.DefaultVendorID
	}
	if req.LowStockThreshold != nil {
		if req.LowStockThreshold.Sign() < 0 {
			return nil, fmt.Errorf("%w: low stock threshold may not be negative", store.ErrInvalidEntry)
		}
		item.LowStockThreshold = *req.LowStockThreshold
	}

	item.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.UpdateItem(ctx, *item)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "item.update", "item", updated.ID, updated.Name)
	return updated, nil
}

func (s *Service) ArchiveItem(ctx context.Context, itemID string) (*domain.Item, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	item, err := s.repo.SetItemArchived(ctx, itemID, true, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "item.archive", "item", item.ID, item.Name)
	return item, nil
}

func (s *Service) ListTaxes(ctx context.Context) ([]domain.Tax, error) {
	return s.repo.ListTaxes(ctx)
}

func (s *Service) CreateTax(ctx context.Context, req domain.CreateTaxRequest) (*domain.Tax, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalidEntry)
	}
	if req.RatePercent.Sign() < 0 {
		return nil, fmt.Errorf("%w: rate may not be negative", store.ErrInvalidEntry)
	}
	if s.limits.MaxTaxes > 0 {
		count, err := s.repo.CountTaxes(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.limits.MaxTaxes {
			return nil, fmt.Errorf("%w: at most %d taxes", store.ErrLimitReached, s.limits.MaxTaxes)
		}
	}
	tax, err := s.repo.CreateTax(ctx, domain.Tax{
		ID:          xid.New("tax"),
		Name:        name,
		RatePercent: req.RatePercent,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "tax.create", "tax", tax.ID, name)
	return tax, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	return s.repo.ListVendors(ctx)
}

func (s *Service) CreateVendor(ctx context.Context, req domain.CreateVendorRequest) (*domain.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalidEntry)
	}
	if s.limits.MaxVendors > 0 {
		count, err := s.repo.CountVendors(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.limits.MaxVendors {
			return nil, fmt.Errorf("%w: at most %d vendors", store.ErrLimitReached, s.limits.MaxVendors)
		}
	}
	vendor, err := s.repo.CreateVendor(ctx, domain.Vendor{
		ID:        xid.New("vnd"),
		Name:      name,
		Contact:   strings.TrimSpace(req.Contact),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "vendor.create", "vendor", vendor.ID, name)
	return vendor, nil
}

func (s *Service) ListOperations(ctx context.Context) ([]domain.Operation, error) {
	return s.repo.ListOperations(ctx)
}

// Staging.

func (s *Service) StageEntry(ctx context.Context, req domain.StageEntryRequest) (*domain.StageEntryResponse, error) {
	return s.staging.UpsertEntry(ctx, s.session(req.DeviceID), req)
}

func (s *Service) StagedBatch(ctx context.Context, deviceID string, kind string) (*domain.StagedBatchResponse, error) {
	return s.staging.Entries(ctx, s.session(deviceID), kind)
}

func (s *Service) DiscardStaged(ctx context.Context, deviceID string, kind string) error {
	sess := s.session(deviceID)
	if err := s.staging.Discard(ctx, sess, kind); err != nil {
		return err
	}
	s.logAudit(ctx, "batch.discard", "batch", "", fmt.Sprintf("%s/%s", sess.DeviceID, kind))
	return nil
}

// Confirmation.

func (s *Service) ConfirmPurchase(ctx context.Context, req domain.ConfirmBatchRequest) (*domain.ConfirmBatchResponse, error) {
	return s.confirmBatch(ctx, domain.BatchKindPurchase, req)
}

func (s *Service) ConfirmUsage(ctx context.Context, req domain.ConfirmBatchRequest) (*domain.ConfirmBatchResponse, error) {
	return s.confirmBatch(ctx, domain.BatchKindUsage, req)
}

func (s *Service) confirmBatch(ctx context.Context, kind string, req domain.ConfirmBatchRequest) (*domain.ConfirmBatchResponse, error) {
	sess := s.session(req.DeviceID)
	group, err := s.staging.PendingGroup(ctx, sess, kind)
	if errors.Is(err, store.ErrNotFound) {
		// Nothing staged: confirming is a quiet no-op.
		return &domain.ConfirmBatchResponse{Rows: []domain.InventoryLogRow{}}, nil
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListBatchEntries(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &domain.ConfirmBatchResponse{GroupID: group.ID, Rows: []domain.InventoryLogRow{}}, nil
	}

	now := time.Now().UTC()
	adjustedAt := now
	if req.Date != nil {
		adjustedAt = req.Date.UTC()
	}

	rows := make([]domain.InventoryLogRow, 0, len(entries))
	updates := make([]domain.ItemCacheUpdate, 0, len(entries))
	for _, entry := range entries {
		item, err := s.repo.GetItemByID(ctx, entry.ItemID)
		if err != nil {
			return nil, err
		}

		switch kind {
		case domain.BatchKindPurchase:
			tax, err := s.repo.GetTaxByID(ctx, entry.TaxID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: tax for %s no longer exists", store.ErrInvalidEntry, item.Name)
				}
				return nil, err
			}
			vendorID := entry.VendorID
			if vendorID == "" {
				vendorID = item.DefaultVendorID
			}
			if vendorID == "" {
				return nil, fmt.Errorf("%w: purchase of %s requires a vendor", store.ErrInvalidEntry, item.Name)
			}
			if _, err := s.repo.GetVendorByID(ctx, vendorID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("%w: vendor for %s no longer exists", store.ErrInvalidEntry, item.Name)
				}
				return nil, err
			}

			row := s.buildLogRow(domain.OpNewPurchase, *item, entry.Qty, entry.UnitCost, tax, vendorID, group.ID, adjustedAt)
			rows = append(rows, row)
			cost := entry.UnitCost
			updates = append(updates, domain.ItemCacheUpdate{
				ItemID:      item.ID,
				StockDelta:  entry.Qty,
				SetUnitCost: &cost,
			})
		case domain.BatchKindUsage:
			var tax *domain.Tax
			if item.DefaultTaxID != "" {
				tax, err = s.repo.GetTaxByID(ctx, item.DefaultTaxID)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					return nil, err
				}
			}
			row := s.buildLogRow(domain.OpStockUsage, *item, entry.Qty, entry.UnitCost, tax, "", group.ID, adjustedAt)
			rows = append(rows, row)
			updates = append(updates, domain.ItemCacheUpdate{
				ItemID:     item.ID,
				StockDelta: entry.Qty.Neg(),
			})
		}
	}

	confirmed, err := s.repo.ConfirmBatch(ctx, group.ID, now, rows, updates)
	if err != nil {
		return nil, err
	}
	if err := s.staging.ClearPointer(ctx, sess, kind); err != nil {
		log.Printf("clear batch pointer failed for %s/%s: %v", sess.DeviceID, kind, err)
	}

	s.logAudit(ctx, "batch.confirm", "batch", confirmed.ID, fmt.Sprintf("%s, %d rows", kind, len(rows)))
	return &domain.ConfirmBatchResponse{GroupID: confirmed.ID, Rows: rows}, nil
}

// buildLogRow snapshots the tax into the row and splits the gross cost so
// gross = net + tax holds exactly. A nil tax means untaxed.
func (s *Service) buildLogRow(operation string, item domain.Item, qty decimal.Decimal, unitCost decimal.Decimal, tax *domain.Tax, vendorID string, groupID string, adjustedAt time.Time) domain.InventoryLogRow {
	taxName := ""
	rate := decimal.Zero
	if tax != nil {
		taxName = tax.Name
		rate = tax.RatePercent
	}
	net, taxPart := costing.SplitCost(unitCost, rate)
	now := time.Now().UTC()
	return domain.InventoryLogRow{
		ID:             xid.New("log"),
		OperationCode:  operation,
		ItemID:         item.ID,
		ItemName:       item.Name,
		Qty:            qty,
		UnitCost:       unitCost,
		UnitCostNet:    net,
		UnitCostTax:    taxPart,
		TaxName:        taxName,
		TaxRatePercent: rate,
		VendorID:       vendorID,
		GroupID:        groupID,
		AdjustedAt:     adjustedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Stock and costing queries.

func (s *Service) StockLevel(ctx context.Context, itemID string) (*domain.StockLevel, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLogRows(ctx, domain.LogFilter{ItemID: itemID})
	if err != nil {
		return nil, err
	}
	qty := costing.StockQty(rows)
	return &domain.StockLevel{
		Item:     *item,
		Qty:      qty,
		LowStock: item.LowStockThreshold.Sign() > 0 && qty.Cmp(item.LowStockThreshold) <= 0,
	}, nil
}

func (s *Service) StockLevels(ctx context.Context, includeArchived bool) ([]domain.StockLevel, error) {
	items, err := s.repo.ListItems(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StockLevel, 0, len(items))
	for _, item := range items {
		rows, err := s.repo.ListLogRows(ctx, domain.LogFilter{ItemID: item.ID})
		if err != nil {
			return nil, err
		}
		qty := costing.StockQty(rows)
		out = append(out, domain.StockLevel{
			Item:     item,
			Qty:      qty,
			LowStock: item.LowStockThreshold.Sign() > 0 && qty.Cmp(item.LowStockThreshold) <= 0,
		})
	}
	return out, nil
}

// AverageCost reports the weighted-average unit cost for an item, over the
// whole ledger or through the end of a month given as "2006-01".
func (s *Service) AverageCost(ctx context.Context, itemID string, month string) (*domain.AverageCostResponse, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	filter := domain.LogFilter{ItemID: itemID}
	var through *time.Time
	if month != "" {
		parsed, err := time.ParseInLocation("2006-01", month, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: month must look like 2006-01", store.ErrInvalidEntry)
		}
		cutoff := costing.NextMonthStart(parsed.Year(), parsed.Month())
		through = &cutoff
		filter.Through = through
	}

	rows, err := s.repo.ListLogRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	avg := costing.AverageUnitCost(rows)
	return &domain.AverageCostResponse{
		ItemID:   itemID,
		Through:  through,
		Defined:  avg.Defined,
		Gross:    avg.Gross,
		Net:      avg.Net,
		Tax:      avg.Tax,
		TotalQty: avg.TotalQty,
	}, nil
}

// Reconciliation.

// SubmitEndingCount compares a physical count with the ledger, through the
// end of the counted month when one is given. A shortfall is booked as one
// usage row at the weighted-average cost over the same window; a surplus is
// rejected; a perfect match writes nothing.
func (s *Service) SubmitEndingCount(ctx context.Context, req domain.EndingCountRequest) (*domain.EndingCountResponse, error) {
	if req.CountedQty.Sign() < 0 {
		return nil, fmt.Errorf("%w: counted quantity may not be negative", store.ErrInvalidEntry)
	}
	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	filter := domain.LogFilter{ItemID: item.ID}
	var cutoff *time.Time
	if req.Month != "" {
		parsed, err := time.ParseInLocation("2006-01", req.Month, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: month must look like 2006-01", store.ErrInvalidEntry)
		}
		end := costing.NextMonthStart(parsed.Year(), parsed.Month())
		cutoff = &end
		filter.Through = cutoff
	}

	rows, err := s.repo.ListLogRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	ledgerQty := costing.StockQty(rows)
	delta := ledgerQty.Sub(req.CountedQty)

	if delta.Sign() < 0 {
		return nil, fmt.Errorf("%w: ledger has %s, counted %s", ErrCountExceedsLedger, ledgerQty, req.CountedQty)
	}
	if delta.IsZero() {
		return &domain.EndingCountResponse{ItemID: item.ID, LedgerQty: ledgerQty, Delta: decimal.Zero}, nil
	}

	avg := costing.AverageUnitCost(rows)
	var row domain.InventoryLogRow
	now := time.Now().UTC()
	adjustedAt := now
	switch {
	case req.Date != nil:
		adjustedAt = req.Date.UTC()
	case cutoff != nil:
		// Book the write-off inside the counted month so a repeated count
		// for the same month sees it.
		adjustedAt = cutoff.Add(-time.Second)
	}
	if avg.Defined {
		row = domain.InventoryLogRow{
			ID:            xid.New("log"),
			OperationCode: domain.OpStockUsage,
			ItemID:        item.ID,
			ItemName:      item.Name,
			Qty:           delta,
			UnitCost:      avg.Gross,
			UnitCostNet:   avg.Net,
			UnitCostTax:   avg.Tax,
			AdjustedAt:    adjustedAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	} else {
		// No priced additions yet: fall back to the cached cost split by
		// the item's default tax.
		var tax *domain.Tax
		if item.DefaultTaxID != "" {
			tax, err = s.repo.GetTaxByID(ctx, item.DefaultTaxID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
		row = s.buildLogRow(domain.OpStockUsage, *item, delta, item.UnitCost, tax, "", "", adjustedAt)
	}

	written, err := s.repo.AppendAdjustment(ctx, row, domain.ItemCacheUpdate{
		ItemID:     item.ID,
		StockDelta: delta.Neg(),
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "count.submit", "item", item.ID, fmt.Sprintf("counted %s, wrote off %s", req.CountedQty, delta))
	return &domain.EndingCountResponse{
		ItemID:    item.ID,
		LedgerQty: ledgerQty,
		Delta:     delta,
		Row:       written,
	}, nil
}

// History and voiding.

func (s *Service) GroupHistory(ctx context.Context, kind string, limit int) ([]domain.GroupSummary, error) {
	if kind != "" && kind != domain.BatchKindPurchase && kind != domain.BatchKindUsage {
		return nil, fmt.Errorf("%w: unknown batch kind %q", store.ErrInvalidEntry, kind)
	}
	return s.repo.ListConfirmedGroups(ctx, kind, limit)
}

func (s *Service) GroupRows(ctx context.Context, groupID string) ([]domain.InventoryLogRow, error) {
	if _, err := s.repo.GetBatchGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.ListLogRows(ctx, domain.LogFilter{GroupID: groupID, IncludeVoided: true})
}

func (s *Service) ItemLog(ctx context.Context, itemID string, includeVoided bool, limit int) ([]domain.InventoryLogRow, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListLogRows(ctx, domain.LogFilter{ItemID: itemID, IncludeVoided: includeVoided, Limit: limit})
}

func (s *Service) VoidLogRow(ctx context.Context, rowID string, reason string) (*domain.InventoryLogRow, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	row, err := s.repo.VoidLogRow(ctx, rowID, strings.TrimSpace(reason), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "log.void", "log_row", row.ID, reason)
	return row, nil
}

func (s *Service) AuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}
