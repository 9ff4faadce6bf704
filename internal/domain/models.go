package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch kinds. A device stages at most one unconfirmed group per kind.
const (
	BatchKindPurchase = "purchase"
	BatchKindUsage    = "usage"
)

// Operation codes. The catalog is fixed per release and seeded into the
// store so log rows can join against it.
const (
	OpInitialStock = "initial_stock"
	OpNewPurchase  = "new_purchase"
	OpRecount      = "inventory_recount"
	OpStockUsage   = "stock_usage"
)

// Stock effects. Add-stock rows count positive toward the ledger balance,
// remove-stock rows count negative.
const (
	StockEffectAdd    = "add_stock"
	StockEffectRemove = "remove_stock"
)

const (
	RoleManager = "manager"
	RoleStaff   = "staff"
)

type Operation struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	StockEffect string `json:"stockEffect"`
}

// DefaultOperations returns the seeded catalog.
func DefaultOperations() []Operation {
	return []Operation{
		{Code: OpInitialStock, Name: "Initial stock", StockEffect: StockEffectAdd},
		{Code: OpNewPurchase, Name: "New purchase", StockEffect: StockEffectAdd},
		{Code: OpRecount, Name: "Inventory recount", StockEffect: StockEffectRemove},
		{Code: OpStockUsage, Name: "Stock usage", StockEffect: StockEffectRemove},
	}
}

var stockEffects = func() map[string]string {
	m := make(map[string]string)
	for _, op := range DefaultOperations() {
		m[op.Code] = op.StockEffect
	}
	return m
}()

// StockEffectFor resolves an operation code to its stock effect. Unknown
// codes report no effect so a malformed row cannot skew the balance.
func StockEffectFor(code string) (string, bool) {
	effect, ok := stockEffects[code]
	return effect, ok
}

type Item struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	PieceUnit         string          `json:"pieceUnit,omitempty"`
	QtyPerPiece       decimal.Decimal `json:"qtyPerPiece"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	CurrentStock      decimal.Decimal `json:"currentStock"`
	DefaultTaxID      string          `json:"defaultTaxId,omitempty"`
	DefaultVendorID   string          `json:"defaultVendorId,omitempty"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
	Archived          bool            `json:"archived"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type Tax struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	RatePercent decimal.Decimal `json:"ratePercent"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type BatchGroup struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	DeviceID    string     `json:"deviceId"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// BatchEntry holds one staged line. A group carries at most one entry per
// item; re-staging the same item replaces the line.
type BatchEntry struct {
	ID        string          `json:"id"`
	GroupID   string          `json:"groupId"`
	ItemID    string          `json:"itemId"`
	ItemName  string          `json:"itemName"`
	Qty       decimal.Decimal `json:"qty"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TaxID     string          `json:"taxId,omitempty"`
	VendorID  string          `json:"vendorId,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// InventoryLogRow is the unit of truth. Rows are append-only; the only
// mutation ever applied is setting the voided fields.
type InventoryLogRow struct {
	ID             string          `json:"id"`
	OperationCode  string          `json:"operationCode"`
	ItemID         string          `json:"itemId"`
	ItemName       string          `json:"itemName"`
	Qty            decimal.Decimal `json:"qty"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	UnitCostNet    decimal.Decimal `json:"unitCostNet"`
	UnitCostTax    decimal.Decimal `json:"unitCostTax"`
	TaxName        string          `json:"taxName,omitempty"`
	TaxRatePercent decimal.Decimal `json:"taxRatePercent"`
	VendorID       string          `json:"vendorId,omitempty"`
	GroupID        string          `json:"groupId,omitempty"`
	AdjustedAt     time.Time       `json:"adjustedAt"`
	Voided         bool            `json:"voided"`
	VoidedAt       *time.Time      `json:"voidedAt,omitempty"`
	VoidReason     string          `json:"voidReason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ItemCacheUpdate carries the denormalized item fields a confirmation
// rewrites alongside the log rows.
type ItemCacheUpdate struct {
	ItemID      string
	StockDelta  decimal.Decimal
	SetUnitCost *decimal.Decimal
}

// LogFilter narrows ledger reads. Zero values mean no constraint; Through
// is an exclusive upper bound on AdjustedAt. Limit keeps the newest rows;
// results always come back oldest first.
type LogFilter struct {
	ItemID        string
	GroupID       string
	OperationCode string
	Through       *time.Time
	IncludeVoided bool
	Limit         int
}

type GroupSummary struct {
	Group      BatchGroup      `json:"group"`
	EntryCount int             `json:"entryCount"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type UserAccount struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Requests and responses.

type CreateItemRequest struct {
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	PieceUnit         string          `json:"pieceUnit"`
	QtyPerPiece       decimal.Decimal `json:"qtyPerPiece"`
	InitialStock      decimal.Decimal `json:"initialStock"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	DefaultTaxID      string          `json:"defaultTaxId"`
	DefaultVendorID   string          `json:"defaultVendorId"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
}

type UpdateItemRequest struct {
	ItemID            string           `json:"itemId"`
	Name              *string          `json:"name"`
	Unit              *string          `json:"unit"`
	PieceUnit         *string          `json:"pieceUnit"`
	QtyPerPiece       *decimal.Decimal `json:"qtyPerPiece"`
	DefaultTaxID      *string          `json:"defaultTaxId"`
	DefaultVendorID   *string          `json:"defaultVendorId"`
	LowStockThreshold *decimal.Decimal `json:"lowStockThreshold"`
}

type CreateTaxRequest struct {
	Name        string          `json:"name"`
	RatePercent decimal.Decimal `json:"ratePercent"`
}

type CreateVendorRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type StageEntryRequest struct {
	DeviceID string          `json:"deviceId"`
	Kind     string          `json:"kind"`
	ItemID   string          `json:"itemId"`
	Qty      decimal.Decimal `json:"qty"`
	UnitCost decimal.Decimal `json:"unitCost"`
	TaxID    string          `json:"taxId"`
	VendorID string          `json:"vendorId"`
	Note     string          `json:"note"`
}

type StagedBatchResponse struct {
	GroupID string          `json:"groupId"`
	Kind    string          `json:"kind"`
	Entries []BatchEntry    `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}

type StageEntryResponse struct {
	GroupID string       `json:"groupId"`
	Entry   *BatchEntry  `json:"entry,omitempty"`
	Removed bool         `json:"removed"`
	Entries []BatchEntry `json:"entries"`
}

type ConfirmBatchRequest struct {
	DeviceID string     `json:"deviceId"`
	Date     *time.Time `json:"date"`
}

type ConfirmBatchResponse struct {
	GroupID string            `json:"groupId,omitempty"`
	Rows    []InventoryLogRow `json:"rows"`
}

type StockLevel struct {
	Item     Item            `json:"item"`
	Qty      decimal.Decimal `json:"qty"`
	LowStock bool            `json:"lowStock"`
}

type AverageCostResponse struct {
	ItemID   string          `json:"itemId"`
	Through  *time.Time      `json:"through,omitempty"`
	Defined  bool            `json:"defined"`
	Gross    decimal.Decimal `json:"gross"`
	Net      decimal.Decimal `json:"net"`
	Tax      decimal.Decimal `json:"tax"`
	TotalQty decimal.Decimal `json:"totalQty"`
}

type EndingCountRequest struct {
	ItemID     string          `json:"itemId"`
	CountedQty decimal.Decimal `json:"countedQty"`
	Month      string          `json:"month"`
	Date       *time.Time      `json:"date"`
}

type EndingCountResponse struct {
	ItemID    string           `json:"itemId"`
	LedgerQty decimal.Decimal  `json:"ledgerQty"`
	Delta     decimal.Decimal  `json:"delta"`
	Row       *InventoryLogRow `json:"row,omitempty"`
}

type VoidLogRowRequest struct {
	RowID      string `json:"rowId"`
	Reason     string `json:"reason"`
	ManagerPIN string `json:"managerPin"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string `json:"token"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	ExpiresAt   int64  `json:"expiresAt"`
}

type CreateStaffRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}
