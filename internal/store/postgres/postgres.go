package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
	"gudangku/backend/internal/store"
)

// Store implements store.Repository backed by PostgreSQL. The schema is
// assumed provisioned; the only writes outside the documented operations
// are the operation-catalog upserts in SeedOperations.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (s *Store) ListItems(ctx context.Context, includeArchived bool) ([]domain.Item, error) {
	query := `
		SELECT id, name, unit, COALESCE(piece_unit, ''), qty_per_piece, unit_cost,
		       current_stock, COALESCE(default_tax_id, ''), COALESCE(default_vendor_id, ''),
		       low_stock_threshold, archived, created_at, updated_at
		FROM items`
	if !includeArchived {
		query += ` WHERE archived = FALSE`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Unit, &item.PieceUnit, &item.QtyPerPiece,
			&item.UnitCost, &item.CurrentStock, &item.DefaultTaxID, &item.DefaultVendorID,
			&item.LowStockThreshold, &item.Archived, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, name, unit, piece_unit, qty_per_piece, unit_cost, current_stock,
			default_tax_id, default_vendor_id, low_stock_threshold, archived,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.Name, item.Unit, nullIfEmpty(item.PieceUnit), item.QtyPerPiece,
		item.UnitCost, item.CurrentStock, nullIfEmpty(item.DefaultTaxID),
		nullIfEmpty(item.DefaultVendorID), item.LowStockThreshold, item.Archived,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: item name already in use", store.ErrInvalidEntry)
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

func (s *Store) GetItemByID(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit, COALESCE(piece_unit, ''), qty_per_piece, unit_cost,
		       current_stock, COALESCE(default_tax_id, ''), COALESCE(default_vendor_id, ''),
		       low_stock_threshold, archived, created_at, updated_at
		FROM items WHERE id = $1`, itemID,
	).Scan(
		&item.ID, &item.Name, &item.Unit, &item.PieceUnit, &item.QtyPerPiece,
		&item.UnitCost, &item.CurrentStock, &item.DefaultTaxID, &item.DefaultVendorID,
		&item.LowStockThreshold, &item.Archived, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			name = $2, unit = $3, piece_unit = $4, qty_per_piece = $5,
			default_tax_id = $6, default_vendor_id = $7, low_stock_threshold = $8,
			updated_at = $9
		WHERE id = $1`,
		item.ID, item.Name, item.Unit, nullIfEmpty(item.PieceUnit), item.QtyPerPiece,
		nullIfEmpty(item.DefaultTaxID), nullIfEmpty(item.DefaultVendorID),
		item.LowStockThreshold, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: item name already in use", store.ErrInvalidEntry)
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetItemByID(ctx, item.ID)
}

func (s *Store) SetItemArchived(ctx context.Context, itemID string, archived bool, at time.Time) (*domain.Item, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET archived = $2, updated_at = $3 WHERE id = $1`,
		itemID, archived, at,
	)
	if err != nil {
		return nil, fmt.Errorf("archive item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetItemByID(ctx, itemID)
}

func (s *Store) SetItemDefaultTax(ctx context.Context, itemID string, taxID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET default_tax_id = $2, updated_at = $3 WHERE id = $1`,
		itemID, taxID, at,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("set item default tax: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func (s *Store) ListTaxes(ctx context.Context) ([]domain.Tax, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, rate_percent, created_at FROM taxes ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list taxes: %w", err)
	}
	defer rows.Close()

	taxes := make([]domain.Tax, 0)
	for rows.Next() {
		var tax domain.Tax
		if err := rows.Scan(&tax.ID, &tax.Name, &tax.RatePercent, &tax.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tax: %w", err)
		}
		taxes = append(taxes, tax)
	}
	return taxes, rows.Err()
}

func (s *Store) CreateTax(ctx context.Context, tax domain.Tax) (*domain.Tax, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO taxes (id, name, rate_percent, created_at) VALUES ($1, $2, $3, $4)`,
		tax.ID, tax.Name, tax.RatePercent, tax.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: tax name already in use", store.ErrInvalidEntry)
		}
		return nil, fmt.Errorf("create tax: %w", err)
	}
	return &tax, nil
}

func (s *Store) GetTaxByID(ctx context.Context, taxID string) (*domain.Tax, error) {
	var tax domain.Tax
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rate_percent, created_at FROM taxes WHERE id = $1`, taxID,
	).Scan(&tax.ID, &tax.Name, &tax.RatePercent, &tax.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tax: %w", err)
	}
	return &tax, nil
}

func (s *Store) CountTaxes(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM taxes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count taxes: %w", err)
	}
	return count, nil
}

func (s *Store) ListVendors(ctx context.Context) ([]domain.Vendor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(contact, ''), created_at FROM vendors ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]domain.Vendor, 0)
	for rows.Next() {
		var vendor domain.Vendor
		if err := rows.Scan(&vendor.ID, &vendor.Name, &vendor.Contact, &vendor.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	return vendors, rows.Err()
}

func (s *Store) CreateVendor(ctx context.Context, vendor domain.Vendor) (*domain.Vendor, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, contact, created_at) VALUES ($1, $2, $3, $4)`,
		vendor.ID, vendor.Name, nullIfEmpty(vendor.Contact), vendor.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: vendor name already in use", store.ErrInvalidEntry)
		}
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	return &vendor, nil
}

func (s *Store) GetVendorByID(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	var vendor domain.Vendor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(contact, ''), created_at FROM vendors WHERE id = $1`, vendorID,
	).Scan(&vendor.ID, &vendor.Name, &vendor.Contact, &vendor.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return &vendor, nil
}

func (s *Store) CountVendors(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vendors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count vendors: %w", err)
	}
	return count, nil
}

func (s *Store) ListOperations(ctx context.Context) ([]domain.Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, stock_effect FROM operations ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := make([]domain.Operation, 0)
	for rows.Next() {
		var op domain.Operation
		if err := rows.Scan(&op.Code, &op.Name, &op.StockEffect); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (s *Store) SeedOperations(ctx context.Context) error {
	for _, op := range domain.DefaultOperations() {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO operations (code, name, stock_effect)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, stock_effect = EXCLUDED.stock_effect`,
			op.Code, op.Name, op.StockEffect,
		)
		if err != nil {
			return fmt.Errorf("seed operation %s: %w", op.Code, err)
		}
	}
	return nil
}

func (s *Store) CreateBatchGroup(ctx context.Context, group domain.BatchGroup) (*domain.BatchGroup, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_groups (id, kind, device_id, confirmed, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		group.ID, group.Kind, group.DeviceID, group.Confirmed, nullTime(group.ConfirmedAt), group.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create batch group: %w", err)
	}
	return &group, nil
}

func scanGroup(row interface{ Scan(...any) error }) (*domain.BatchGroup, error) {
	var group domain.BatchGroup
	var confirmedAt sql.NullTime
	err := row.Scan(&group.ID, &group.Kind, &group.DeviceID, &group.Confirmed, &confirmedAt, &group.CreatedAt)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		group.ConfirmedAt = &confirmedAt.Time
	}
	return &group, nil
}

func (s *Store) GetBatchGroup(ctx context.Context, groupID string) (*domain.BatchGroup, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx, `
		SELECT id, kind, device_id, confirmed, confirmed_at, created_at
		FROM batch_groups WHERE id = $1`, groupID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch group: %w", err)
	}
	return group, nil
}

func (s *Store) LatestUnconfirmedGroup(ctx context.Context, deviceID string, kind string) (*domain.BatchGroup, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx, `
		SELECT id, kind, device_id, confirmed, confirmed_at, created_at
		FROM batch_groups
		WHERE device_id = $1 AND kind = $2 AND confirmed = FALSE
		ORDER BY created_at DESC
		LIMIT 1`, deviceID, kind))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest unconfirmed group: %w", err)
	}
	return group, nil
}

func (s *Store) DeleteUnconfirmedGroup(ctx context.Context, groupID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete group: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var confirmed bool
	err = tx.QueryRowContext(ctx,
		`SELECT confirmed FROM batch_groups WHERE id = $1 FOR UPDATE`, groupID,
	).Scan(&confirmed)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock group: %w", err)
	}
	if confirmed {
		return store.ErrGroupConfirmed
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_entries WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_groups WHERE id = $1`, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListConfirmedGroups(ctx context.Context, kind string, limit int) ([]domain.GroupSummary, error) {
	query := `
		SELECT g.id, g.kind, g.device_id, g.confirmed, g.confirmed_at, g.created_at,
		       COUNT(l.id), COALESCE(SUM(l.unit_cost * l.qty), 0)
		FROM batch_groups g
		LEFT JOIN inventory_log l ON l.group_id = g.id AND l.voided = FALSE
		WHERE g.confirmed = TRUE`
	args := []any{}
	if kind != "" {
		args = append(args, kind)
		query += fmt.Sprintf(" AND g.kind = $%d", len(args))
	}
	query += `
		GROUP BY g.id, g.kind, g.device_id, g.confirmed, g.confirmed_at, g.created_at
		ORDER BY g.confirmed_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list confirmed groups: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GroupSummary, 0)
	for rows.Next() {
		var summary domain.GroupSummary
		var confirmedAt sql.NullTime
		if err := rows.Scan(
			&summary.Group.ID, &summary.Group.Kind, &summary.Group.DeviceID,
			&summary.Group.Confirmed, &confirmedAt, &summary.Group.CreatedAt,
			&summary.EntryCount, &summary.TotalValue,
		); err != nil {
			return nil, fmt.Errorf("scan group summary: %w", err)
		}
		if confirmedAt.Valid {
			summary.Group.ConfirmedAt = &confirmedAt.Time
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) UpsertBatchEntry(ctx context.Context, entry domain.BatchEntry) (*domain.BatchEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert entry: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var confirmed bool
	err = tx.QueryRowContext(ctx,
		`SELECT confirmed FROM batch_groups WHERE id = $1 FOR UPDATE`, entry.GroupID,
	).Scan(&confirmed)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock group: %w", err)
	}
	if confirmed {
		return nil, store.ErrGroupConfirmed
	}

	// One entry per item per group; re-staging replaces the line.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO batch_entries (
			id, group_id, item_id, item_name, qty, unit_cost, tax_id, vendor_id,
			note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (group_id, item_id) DO UPDATE SET
			item_name = EXCLUDED.item_name,
			qty = EXCLUDED.qty,
			unit_cost = EXCLUDED.unit_cost,
			tax_id = EXCLUDED.tax_id,
			vendor_id = EXCLUDED.vendor_id,
			note = EXCLUDED.note,
			updated_at = EXCLUDED.updated_at`,
		entry.ID, entry.GroupID, entry.ItemID, entry.ItemName, entry.Qty, entry.UnitCost,
		nullIfEmpty(entry.TaxID), nullIfEmpty(entry.VendorID), nullIfEmpty(entry.Note),
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("upsert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert entry: %w", err)
	}
	return s.getBatchEntry(ctx, entry.GroupID, entry.ItemID)
}

func (s *Store) getBatchEntry(ctx context.Context, groupID string, itemID string) (*domain.BatchEntry, error) {
	var entry domain.BatchEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, item_id, item_name, qty, unit_cost,
		       COALESCE(tax_id, ''), COALESCE(vendor_id, ''), COALESCE(note, ''),
		       created_at, updated_at
		FROM batch_entries WHERE group_id = $1 AND item_id = $2`, groupID, itemID,
	).Scan(
		&entry.ID, &entry.GroupID, &entry.ItemID, &entry.ItemName, &entry.Qty,
		&entry.UnitCost, &entry.TaxID, &entry.VendorID, &entry.Note,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) DeleteBatchEntry(ctx context.Context, groupID string, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM batch_entries WHERE group_id = $1 AND item_id = $2`, groupID, itemID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *Store) ListBatchEntries(ctx context.Context, groupID string) ([]domain.BatchEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, item_id, item_name, qty, unit_cost,
		       COALESCE(tax_id, ''), COALESCE(vendor_id, ''), COALESCE(note, ''),
		       created_at, updated_at
		FROM batch_entries WHERE group_id = $1 ORDER BY created_at ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.BatchEntry, 0)
	for rows.Next() {
		var entry domain.BatchEntry
		if err := rows.Scan(
			&entry.ID, &entry.GroupID, &entry.ItemID, &entry.ItemName, &entry.Qty,
			&entry.UnitCost, &entry.TaxID, &entry.VendorID, &entry.Note,
			&entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) ConfirmBatch(ctx context.Context, groupID string, confirmedAt time.Time, logRows []domain.InventoryLogRow, updates []domain.ItemCacheUpdate) (*domain.BatchGroup, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin confirm: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var confirmed bool
	err = tx.QueryRowContext(ctx,
		`SELECT confirmed FROM batch_groups WHERE id = $1 FOR UPDATE`, groupID,
	).Scan(&confirmed)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock group: %w", err)
	}
	if confirmed {
		return nil, store.ErrGroupConfirmed
	}

	// Lock every touched item and verify no update drives stock negative
	// before any write.
	for _, update := range updates {
		var currentStock decimal.Decimal
		var name string
		err = tx.QueryRowContext(ctx,
			`SELECT current_stock, name FROM items WHERE id = $1 FOR UPDATE`, update.ItemID,
		).Scan(&currentStock, &name)
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lock item: %w", err)
		}
		if currentStock.Add(update.StockDelta).Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
		}
	}

	for _, row := range logRows {
		if err := insertLogRow(ctx, tx, row); err != nil {
			return nil, err
		}
	}

	for _, update := range updates {
		var setCost any
		if update.SetUnitCost != nil {
			setCost = *update.SetUnitCost
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE items SET
				current_stock = current_stock + $2,
				unit_cost = COALESCE($3, unit_cost),
				updated_at = $4
			WHERE id = $1`,
			update.ItemID, update.StockDelta, setCost, confirmedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("update item cache: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_entries WHERE group_id = $1`, groupID); err != nil {
		return nil, fmt.Errorf("clear entries: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE batch_groups SET confirmed = TRUE, confirmed_at = $2 WHERE id = $1`,
		groupID, confirmedAt,
	); err != nil {
		return nil, fmt.Errorf("confirm group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}
	return s.GetBatchGroup(ctx, groupID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLogRow(ctx context.Context, db execer, row domain.InventoryLogRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory_log (
			id, operation_code, item_id, item_name, qty, unit_cost, unit_cost_net,
			unit_cost_tax, tax_name, tax_rate_percent, vendor_id, group_id,
			adjusted_at, voided, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		row.ID, row.OperationCode, row.ItemID, row.ItemName, row.Qty, row.UnitCost,
		row.UnitCostNet, row.UnitCostTax, nullIfEmpty(row.TaxName), row.TaxRatePercent,
		nullIfEmpty(row.VendorID), nullIfEmpty(row.GroupID), row.AdjustedAt, row.Voided,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("insert log row: %w", err)
	}
	return nil
}

func (s *Store) AppendAdjustment(ctx context.Context, row domain.InventoryLogRow, update domain.ItemCacheUpdate) (*domain.InventoryLogRow, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin adjustment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStock decimal.Decimal
	var name string
	err = tx.QueryRowContext(ctx,
		`SELECT current_stock, name FROM items WHERE id = $1 FOR UPDATE`, update.ItemID,
	).Scan(&currentStock, &name)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}
	if currentStock.Add(update.StockDelta).Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
	}

	if err := insertLogRow(ctx, tx, row); err != nil {
		return nil, err
	}

	var setCost any
	if update.SetUnitCost != nil {
		setCost = *update.SetUnitCost
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE items SET
			current_stock = current_stock + $2,
			unit_cost = COALESCE($3, unit_cost),
			updated_at = $4
		WHERE id = $1`,
		update.ItemID, update.StockDelta, setCost, row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update item cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit adjustment: %w", err)
	}
	return s.GetLogRowByID(ctx, row.ID)
}

const logRowColumns = `
	id, operation_code, item_id, item_name, qty, unit_cost, unit_cost_net,
	unit_cost_tax, COALESCE(tax_name, ''), tax_rate_percent,
	COALESCE(vendor_id, ''), COALESCE(group_id, ''), adjusted_at, voided,
	voided_at, COALESCE(void_reason, ''), created_at, updated_at`

func scanLogRow(row interface{ Scan(...any) error }) (*domain.InventoryLogRow, error) {
	var out domain.InventoryLogRow
	var voidedAt sql.NullTime
	err := row.Scan(
		&out.ID, &out.OperationCode, &out.ItemID, &out.ItemName, &out.Qty,
		&out.UnitCost, &out.UnitCostNet, &out.UnitCostTax, &out.TaxName,
		&out.TaxRatePercent, &out.VendorID, &out.GroupID, &out.AdjustedAt,
		&out.Voided, &voidedAt, &out.VoidReason, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if voidedAt.Valid {
		out.VoidedAt = &voidedAt.Time
	}
	return &out, nil
}

func (s *Store) ListLogRows(ctx context.Context, filter domain.LogFilter) ([]domain.InventoryLogRow, error) {
	query := `SELECT ` + logRowColumns + ` FROM inventory_log WHERE 1 = 1`
	args := []any{}

	if !filter.IncludeVoided {
		query += ` AND voided = FALSE`
	}
	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		query += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if filter.OperationCode != "" {
		args = append(args, filter.OperationCode)
		query += fmt.Sprintf(" AND operation_code = $%d", len(args))
	}
	if filter.Through != nil {
		args = append(args, *filter.Through)
		query += fmt.Sprintf(" AND adjusted_at < $%d", len(args))
	}
	// A limit keeps the newest rows. Callers still receive them oldest
	// first, so the limited query orders descending and the scanned slice
	// is reversed below.
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" ORDER BY adjusted_at DESC, created_at DESC LIMIT $%d", len(args))
	} else {
		query += ` ORDER BY adjusted_at ASC, created_at ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list log rows: %w", err)
	}
	defer rows.Close()

	out := make([]domain.InventoryLogRow, 0)
	for rows.Next() {
		row, err := scanLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, *row)
	}
	if filter.Limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, rows.Err()
}

func (s *Store) GetLogRowByID(ctx context.Context, rowID string) (*domain.InventoryLogRow, error) {
	row, err := scanLogRow(s.db.QueryRowContext(ctx,
		`SELECT `+logRowColumns+` FROM inventory_log WHERE id = $1`, rowID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get log row: %w", err)
	}
	return row, nil
}

func (s *Store) VoidLogRow(ctx context.Context, rowID string, reason string, at time.Time) (*domain.InventoryLogRow, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin void: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var itemID, operationCode string
	var qty decimal.Decimal
	var voided bool
	err = tx.QueryRowContext(ctx,
		`SELECT item_id, operation_code, qty, voided FROM inventory_log WHERE id = $1 FOR UPDATE`, rowID,
	).Scan(&itemID, &operationCode, &qty, &voided)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock log row: %w", err)
	}
	if voided {
		return nil, fmt.Errorf("%w: row already voided", store.ErrInvalidEntry)
	}

	if effect, ok := domain.StockEffectFor(operationCode); ok {
		delta := qty
		if effect == domain.StockEffectAdd {
			delta = qty.Neg()
		}
		var currentStock decimal.Decimal
		var name string
		err = tx.QueryRowContext(ctx,
			`SELECT current_stock, name FROM items WHERE id = $1 FOR UPDATE`, itemID,
		).Scan(&currentStock, &name)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("lock item: %w", err)
		}
		if err == nil {
			if currentStock.Add(delta).Sign() < 0 {
				return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET current_stock = current_stock + $2, updated_at = $3 WHERE id = $1`,
				itemID, delta, at,
			); err != nil {
				return nil, fmt.Errorf("reverse stock: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory_log SET
			voided = TRUE, voided_at = $2, void_reason = $3, updated_at = $2
		WHERE id = $1`,
		rowID, at, nullIfEmpty(reason),
	); err != nil {
		return nil, fmt.Errorf("void log row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}
	return s.GetLogRowByID(ctx, rowID)
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Actor, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID),
		nullIfEmpty(entry.Detail), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_type, COALESCE(entity_id, ''), COALESCE(detail, ''), created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AuditLog, 0)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(
			&entry.ID, &entry.Actor, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Detail, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, display_name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		strings.ToLower(strings.TrimSpace(user.Username)), user.DisplayName, user.Role,
		user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already in use", store.ErrInvalidEntry)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, display_name, role, password_hash, created_at
		FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.UserAccount, 0)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(
			&user.Username, &user.DisplayName, &user.Role, &user.PasswordHash, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE username = $1`,
		strings.ToLower(strings.TrimSpace(username)), password,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
