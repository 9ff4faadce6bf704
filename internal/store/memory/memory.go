package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
	"gudangku/backend/internal/xid"
)

// Store is an in-memory Repository used for local development and tests.
type Store struct {
	mu         sync.RWMutex
	items      map[string]domain.Item
	taxes      map[string]domain.Tax
	vendors    map[string]domain.Vendor
	operations map[string]domain.Operation
	groups     map[string]domain.BatchGroup
	entries    map[string]map[string]domain.BatchEntry
	logRows    map[string]domain.InventoryLogRow
	logOrder   []string
	audits     []domain.AuditLog
	users      map[string]domain.UserAccount
}

func New() *Store {
	s := &Store{
		items:      make(map[string]domain.Item),
		taxes:      make(map[string]domain.Tax),
		vendors:    make(map[string]domain.Vendor),
		operations: make(map[string]domain.Operation),
		groups:     make(map[string]domain.BatchGroup),
		entries:    make(map[string]map[string]domain.BatchEntry),
		logRows:    make(map[string]domain.InventoryLogRow),
		users:      make(map[string]domain.UserAccount),
	}
	for _, op := range domain.DefaultOperations() {
		s.operations[op.Code] = op
	}
	return s
}

// NewSeeded returns a store pre-filled with a small pantry so the API is
// usable out of the box. Seed items carry matching initial-stock log rows
// so the ledger and the cached stock agree from the start.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	ppn := domain.Tax{ID: "tax-ppn", Name: "PPN", RatePercent: decimal.NewFromInt(11), CreatedAt: now}
	bebas := domain.Tax{ID: "tax-bebas", Name: "Bebas Pajak", RatePercent: decimal.Zero, CreatedAt: now}
	s.taxes[ppn.ID] = ppn
	s.taxes[bebas.ID] = bebas

	vendors := []domain.Vendor{
		{ID: "vnd-sumber-rejeki", Name: "Toko Sumber Rejeki", Contact: "0812-1111-2222", CreatedAt: now},
		{ID: "vnd-pasar-induk", Name: "Pasar Induk Kramat Jati", Contact: "0813-3333-4444", CreatedAt: now},
	}
	for _, v := range vendors {
		s.vendors[v.ID] = v
	}

	type seedItem struct {
		id       string
		name     string
		unit     string
		stock    int64
		cost     int64
		taxID    string
		vendorID string
		low      int64
	}
	seeds := []seedItem{
		{"itm-beras", "Beras Premium", "kg", 50, 14000, bebas.ID, "vnd-sumber-rejeki", 10},
		{"itm-minyak", "Minyak Goreng", "liter", 24, 18500, ppn.ID, "vnd-sumber-rejeki", 6},
		{"itm-telur", "Telur Ayam", "kg", 15, 28000, bebas.ID, "vnd-pasar-induk", 5},
		{"itm-gula", "Gula Pasir", "kg", 20, 17500, ppn.ID, "vnd-sumber-rejeki", 5},
		{"itm-ayam", "Ayam Potong", "kg", 12, 38000, bebas.ID, "vnd-pasar-induk", 4},
	}
	for _, sd := range seeds {
		stock := decimal.NewFromInt(sd.stock)
		cost := decimal.NewFromInt(sd.cost)
		tax := s.taxes[sd.taxID]
		s.items[sd.id] = domain.Item{
			ID:                sd.id,
			Name:              sd.name,
			Unit:              sd.unit,
			QtyPerPiece:       decimal.NewFromInt(1),
			UnitCost:          cost,
			CurrentStock:      stock,
			DefaultTaxID:      sd.taxID,
			DefaultVendorID:   sd.vendorID,
			LowStockThreshold: decimal.NewFromInt(sd.low),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		net, taxPart := splitSeedCost(cost, tax.RatePercent)
		row := domain.InventoryLogRow{
			ID:             xid.New("log"),
			OperationCode:  domain.OpInitialStock,
			ItemID:         sd.id,
			ItemName:       sd.name,
			Qty:            stock,
			UnitCost:       cost,
			UnitCostNet:    net,
			UnitCostTax:    taxPart,
			TaxName:        tax.Name,
			TaxRatePercent: tax.RatePercent,
			AdjustedAt:     now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.logRows[row.ID] = row
		s.logOrder = append(s.logOrder, row.ID)
	}

	managerPassword := seedPassword("SEED_MANAGER_PASSWORD", "manager-dev-password")
	staffPassword := seedPassword("SEED_STAFF_PASSWORD", "staff-dev-password")
	s.users["manager"] = domain.UserAccount{
		Username:     "manager",
		DisplayName:  "Kepala Gudang",
		Role:         domain.RoleManager,
		PasswordHash: mustHash(managerPassword),
		CreatedAt:    now,
	}
	s.users["staff"] = domain.UserAccount{
		Username:     "staff",
		DisplayName:  "Staf Gudang",
		Role:         domain.RoleStaff,
		PasswordHash: mustHash(staffPassword),
		CreatedAt:    now,
	}

	return s
}

func seedPassword(envKey string, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	log.Printf("WARNING: %s not set, seeding with default development password", envKey)
	return fallback
}

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}
	return string(hash)
}

func splitSeedCost(gross decimal.Decimal, ratePercent decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if ratePercent.IsZero() {
		return gross, decimal.Zero
	}
	net := gross.Div(decimal.NewFromInt(1).Add(ratePercent.Div(decimal.NewFromInt(100))))
	return net, gross.Sub(net)
}

func (s *Store) ListItems(_ context.Context, includeArchived bool) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Archived && !includeArchived {
			continue
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.Item) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if strings.EqualFold(existing.Name, item.Name) {
			return nil, fmt.Errorf("%w: item name already in use", store.ErrInvalidEntry)
		}
	}
	s.items[item.ID] = item
	copied := item
	return &copied, nil
}

func (s *Store) GetItemByID(_ context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := item
	return &copied, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.items[item.ID] = item
	copied := item
	return &copied, nil
}

func (s *Store) SetItemArchived(_ context.Context, itemID string, archived bool, at time.Time) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.Archived = archived
	item.UpdatedAt = at
	s.items[itemID] = item
	copied := item
	return &copied, nil
}

func (s *Store) SetItemDefaultTax(_ context.Context, itemID string, taxID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.taxes[taxID]; !ok {
		return store.ErrNotFound
	}
	item.DefaultTaxID = taxID
	item.UpdatedAt = at
	s.items[itemID] = item
	return nil
}

func (s *Store) CountItems(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *Store) ListTaxes(_ context.Context) ([]domain.Tax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tax, 0, len(s.taxes))
	for _, tax := range s.taxes {
		out = append(out, tax)
	}
	slices.SortFunc(out, func(a, b domain.Tax) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) CreateTax(_ context.Context, tax domain.Tax) (*domain.Tax, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.taxes {
		if strings.EqualFold(existing.Name, tax.Name) {
			return nil, fmt.Errorf("%w: tax name already in use", store.ErrInvalidEntry)
		}
	}
	s.taxes[tax.ID] = tax
	copied := tax
	return &copied, nil
}

func (s *Store) GetTaxByID(_ context.Context, taxID string) (*domain.Tax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tax, ok := s.taxes[taxID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := tax
	return &copied, nil
}

func (s *Store) CountTaxes(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.taxes), nil
}

func (s *Store) ListVendors(_ context.Context) ([]domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Vendor, 0, len(s.vendors))
	for _, vendor := range s.vendors {
		out = append(out, vendor)
	}
	slices.SortFunc(out, func(a, b domain.Vendor) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Store) CreateVendor(_ context.Context, vendor domain.Vendor) (*domain.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vendors {
		if strings.EqualFold(existing.Name, vendor.Name) {
			return nil, fmt.Errorf("%w: vendor name already in use", store.ErrInvalidEntry)
		}
	}
	s.vendors[vendor.ID] = vendor
	copied := vendor
	return &copied, nil
}

func (s *Store) GetVendorByID(_ context.Context, vendorID string) (*domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vendor, ok := s.vendors[vendorID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := vendor
	return &copied, nil
}

func (s *Store) CountVendors(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vendors), nil
}

func (s *Store) ListOperations(_ context.Context) ([]domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Operation, 0, len(s.operations))
	for _, op := range s.operations {
		out = append(out, op)
	}
	slices.SortFunc(out, func(a, b domain.Operation) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out, nil
}

func (s *Store) SeedOperations(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range domain.DefaultOperations() {
		s.operations[op.Code] = op
	}
	return nil
}

func (s *Store) CreateBatchGroup(_ context.Context, group domain.BatchGroup) (*domain.BatchGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.ID] = group
	s.entries[group.ID] = make(map[string]domain.BatchEntry)
	copied := group
	return &copied, nil
}

func (s *Store) GetBatchGroup(_ context.Context, groupID string) (*domain.BatchGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := group
	return &copied, nil
}

func (s *Store) LatestUnconfirmedGroup(_ context.Context, deviceID string, kind string) (*domain.BatchGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.BatchGroup
	for _, group := range s.groups {
		if group.Confirmed || group.DeviceID != deviceID || group.Kind != kind {
			continue
		}
		if latest == nil || group.CreatedAt.After(latest.CreatedAt) {
			copied := group
			latest = &copied
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (s *Store) DeleteUnconfirmedGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[groupID]
	if !ok {
		return store.ErrNotFound
	}
	if group.Confirmed {
		return store.ErrGroupConfirmed
	}
	delete(s.groups, groupID)
	delete(s.entries, groupID)
	return nil
}

func (s *Store) ListConfirmedGroups(_ context.Context, kind string, limit int) ([]domain.GroupSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GroupSummary, 0)
	for _, group := range s.groups {
		if !group.Confirmed {
			continue
		}
		if kind != "" && group.Kind != kind {
			continue
		}
		summary := domain.GroupSummary{Group: group, TotalValue: decimal.Zero}
		for _, id := range s.logOrder {
			row := s.logRows[id]
			if row.GroupID != group.ID || row.Voided {
				continue
			}
			summary.EntryCount++
			summary.TotalValue = summary.TotalValue.Add(row.UnitCost.Mul(row.Qty))
		}
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b domain.GroupSummary) int {
		return b.Group.CreatedAt.Compare(a.Group.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertBatchEntry(_ context.Context, entry domain.BatchEntry) (*domain.BatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[entry.GroupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if group.Confirmed {
		return nil, store.ErrGroupConfirmed
	}
	byItem := s.entries[entry.GroupID]
	if existing, ok := byItem[entry.ItemID]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}
	byItem[entry.ItemID] = entry
	copied := entry
	return &copied, nil
}

func (s *Store) DeleteBatchEntry(_ context.Context, groupID string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byItem, ok := s.entries[groupID]
	if !ok {
		return store.ErrNotFound
	}
	delete(byItem, itemID)
	return nil
}

func (s *Store) ListBatchEntries(_ context.Context, groupID string) ([]domain.BatchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byItem, ok := s.entries[groupID]
	if !ok {
		if _, exists := s.groups[groupID]; !exists {
			return nil, store.ErrNotFound
		}
		return []domain.BatchEntry{}, nil
	}
	out := make([]domain.BatchEntry, 0, len(byItem))
	for _, entry := range byItem {
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b domain.BatchEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) ConfirmBatch(_ context.Context, groupID string, confirmedAt time.Time, rows []domain.InventoryLogRow, updates []domain.ItemCacheUpdate) (*domain.BatchGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if group.Confirmed {
		return nil, store.ErrGroupConfirmed
	}

	// Validate everything up front so a failure leaves no partial state.
	for _, update := range updates {
		item, ok := s.items[update.ItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if item.CurrentStock.Add(update.StockDelta).Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
		}
	}

	for _, row := range rows {
		s.logRows[row.ID] = row
		s.logOrder = append(s.logOrder, row.ID)
	}
	for _, update := range updates {
		item := s.items[update.ItemID]
		item.CurrentStock = item.CurrentStock.Add(update.StockDelta)
		if update.SetUnitCost != nil {
			item.UnitCost = *update.SetUnitCost
		}
		item.UpdatedAt = confirmedAt
		s.items[update.ItemID] = item
	}

	s.entries[groupID] = make(map[string]domain.BatchEntry)
	group.Confirmed = true
	group.ConfirmedAt = &confirmedAt
	s.groups[groupID] = group

	copied := group
	return &copied, nil
}

func (s *Store) AppendAdjustment(_ context.Context, row domain.InventoryLogRow, update domain.ItemCacheUpdate) (*domain.InventoryLogRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[update.ItemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if item.CurrentStock.Add(update.StockDelta).Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
	}

	s.logRows[row.ID] = row
	s.logOrder = append(s.logOrder, row.ID)

	item.CurrentStock = item.CurrentStock.Add(update.StockDelta)
	if update.SetUnitCost != nil {
		item.UnitCost = *update.SetUnitCost
	}
	item.UpdatedAt = row.UpdatedAt
	s.items[update.ItemID] = item

	copied := row
	return &copied, nil
}

func (s *Store) ListLogRows(_ context.Context, filter domain.LogFilter) ([]domain.InventoryLogRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryLogRow, 0)
	for _, id := range s.logOrder {
		row := s.logRows[id]
		if row.Voided && !filter.IncludeVoided {
			continue
		}
		if filter.ItemID != "" && row.ItemID != filter.ItemID {
			continue
		}
		if filter.GroupID != "" && row.GroupID != filter.GroupID {
			continue
		}
		if filter.OperationCode != "" && row.OperationCode != filter.OperationCode {
			continue
		}
		if filter.Through != nil && !row.AdjustedAt.Before(*filter.Through) {
			continue
		}
		out = append(out, row)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

func (s *Store) GetLogRowByID(_ context.Context, rowID string) (*domain.InventoryLogRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.logRows[rowID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (s *Store) VoidLogRow(_ context.Context, rowID string, reason string, at time.Time) (*domain.InventoryLogRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.logRows[rowID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if row.Voided {
		return nil, fmt.Errorf("%w: row already voided", store.ErrInvalidEntry)
	}

	// Voiding reverses the row's effect on the cached stock; the row itself
	// stays in the log.
	effect, ok := domain.StockEffectFor(row.OperationCode)
	if ok {
		item, exists := s.items[row.ItemID]
		if exists {
			if effect == domain.StockEffectAdd {
				if item.CurrentStock.Sub(row.Qty).Sign() < 0 {
					return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
				}
				item.CurrentStock = item.CurrentStock.Sub(row.Qty)
			} else {
				item.CurrentStock = item.CurrentStock.Add(row.Qty)
			}
			item.UpdatedAt = at
			s.items[row.ItemID] = item
		}
	}

	row.Voided = true
	row.VoidedAt = &at
	row.VoidReason = reason
	row.UpdatedAt = at
	s.logRows[rowID] = row
	copied := row
	return &copied, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0)
	for _, entry := range s.audits {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return fmt.Errorf("%w: username required", store.ErrInvalidEntry)
	}
	if _, ok := s.users[username]; ok {
		return fmt.Errorf("%w: username already in use", store.ErrInvalidEntry)
	}
	user.Username = username
	s.users[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	slices.SortFunc(out, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = password
	s.users[user.Username] = user
	return nil
}
