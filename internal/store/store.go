package store

import (
	"context"
	"errors"
	"time"

	"gudangku/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEntry      = errors.New("invalid entry")
	ErrLimitReached      = errors.New("limit reached")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrGroupConfirmed    = errors.New("batch group already confirmed")
)

type Repository interface {
	ListItems(ctx context.Context, includeArchived bool) ([]domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	GetItemByID(ctx context.Context, itemID string) (*domain.Item, error)
	UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	SetItemArchived(ctx context.Context, itemID string, archived bool, at time.Time) (*domain.Item, error)
	SetItemDefaultTax(ctx context.Context, itemID string, taxID string, at time.Time) error
	CountItems(ctx context.Context) (int, error)

	ListTaxes(ctx context.Context) ([]domain.Tax, error)
	CreateTax(ctx context.Context, tax domain.Tax) (*domain.Tax, error)
	GetTaxByID(ctx context.Context, taxID string) (*domain.Tax, error)
	CountTaxes(ctx context.Context) (int, error)

	ListVendors(ctx context.Context) ([]domain.Vendor, error)
	CreateVendor(ctx context.Context, vendor domain.Vendor) (*domain.Vendor, error)
	GetVendorByID(ctx context.Context, vendorID string) (*domain.Vendor, error)
	CountVendors(ctx context.Context) (int, error)

	ListOperations(ctx context.Context) ([]domain.Operation, error)
	SeedOperations(ctx context.Context) error

	CreateBatchGroup(ctx context.Context, group domain.BatchGroup) (*domain.BatchGroup, error)
	GetBatchGroup(ctx context.Context, groupID string) (*domain.BatchGroup, error)
	LatestUnconfirmedGroup(ctx context.Context, deviceID string, kind string) (*domain.BatchGroup, error)
	DeleteUnconfirmedGroup(ctx context.Context, groupID string) error
	ListConfirmedGroups(ctx context.Context, kind string, limit int) ([]domain.GroupSummary, error)

	UpsertBatchEntry(ctx context.Context, entry domain.BatchEntry) (*domain.BatchEntry, error)
	DeleteBatchEntry(ctx context.Context, groupID string, itemID string) error
	ListBatchEntries(ctx context.Context, groupID string) ([]domain.BatchEntry, error)

	// ConfirmBatch performs the whole confirmation in one transaction:
	// insert rows, apply item cache updates, delete the staged entries and
	// mark the group confirmed.
	ConfirmBatch(ctx context.Context, groupID string, confirmedAt time.Time, rows []domain.InventoryLogRow, updates []domain.ItemCacheUpdate) (*domain.BatchGroup, error)

	// AppendAdjustment writes one log row plus its item cache update
	// atomically. Used by initial stock and ending-count reconciliation.
	AppendAdjustment(ctx context.Context, row domain.InventoryLogRow, update domain.ItemCacheUpdate) (*domain.InventoryLogRow, error)

	ListLogRows(ctx context.Context, filter domain.LogFilter) ([]domain.InventoryLogRow, error)
	GetLogRowByID(ctx context.Context, rowID string) (*domain.InventoryLogRow, error)
	VoidLogRow(ctx context.Context, rowID string, reason string, at time.Time) (*domain.InventoryLogRow, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
