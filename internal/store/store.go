// Package store implements the SQLite-backed entity store holding the
// derived stock records that batch runs keep in sync.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dukaforge/stocklink/pkg/types"
)

//go:embed schema.sql
var schemaFS embed.FS

// Backend implements types.EntityStore on a local SQLite database. Writes
// go through per-record transactions, which gives concurrent batch runs the
// record-level isolation the Apply phase relies on.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
}

// Compile-time interface check.
var _ types.EntityStore = (*Backend)(nil)

// NewBackend creates an unattached backend; call Attach with a data
// directory to open the database.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database under dataDir and applies the
// schema. Attaching twice is an error.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return fmt.Errorf("store already attached")
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "stocklink.db"))
	if err != nil {
		return err
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	b.db = db
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// ResolveKeys maps source keys to local item IDs. Keys without a local
// record are absent from the result, never an error.
func (b *Backend) ResolveKeys(keys []string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := b.db.Query(
		"SELECT source_key, item_id FROM items WHERE source_key IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving keys: %w", err)
	}
	defer rows.Close()

	resolved := make(map[string]string)
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		resolved[key] = id
	}
	return resolved, rows.Err()
}

// Load retrieves records by item ID, including their per-warehouse stock.
func (b *Backend) Load(ids []string) ([]*types.StoredItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	items := make([]*types.StoredItem, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, types.ErrInvalidID
		}
		item, err := b.loadOne(id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (b *Backend) loadOne(id string) (*types.StoredItem, error) {
	item := &types.StoredItem{}
	var updatedAt string
	err := b.db.QueryRow(
		"SELECT item_id, source_key, kind, stock, updated_at FROM items WHERE item_id = ?", id,
	).Scan(&item.ID, &item.SourceKey, &item.Kind, &item.Stock, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading item %s: %w", id, err)
	}
	if t, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
		item.UpdatedAt = t
	}

	rows, err := b.db.Query("SELECT warehouse, qty FROM item_stock WHERE item_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("loading warehouse stock for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var wh string
		var qty float64
		if err := rows.Scan(&wh, &qty); err != nil {
			return nil, fmt.Errorf("scanning warehouse stock: %w", err)
		}
		if item.ByWarehouse == nil {
			item.ByWarehouse = make(map[string]float64)
		}
		item.ByWarehouse[wh] = qty
	}
	return item, rows.Err()
}

// Save persists a record inside one transaction. A record without an ID is
// created with a fresh UUID v7; the generated ID is written back.
func (b *Backend) Save(item *types.StoredItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	if item.SourceKey == "" {
		return fmt.Errorf("save: %w: empty source key", types.ErrInvalidID)
	}

	if item.ID == "" {
		item.ID = newID()
	}
	item.UpdatedAt = time.Now().UTC()

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO items (item_id, source_key, kind, stock, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET stock = excluded.stock, updated_at = excluded.updated_at`,
		item.ID, item.SourceKey, item.Kind, item.Stock, item.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("persisting item %s: %w", item.SourceKey, err)
	}

	if _, err := tx.Exec("DELETE FROM item_stock WHERE item_id = ?", item.ID); err != nil {
		return fmt.Errorf("clearing warehouse stock: %w", err)
	}
	warehouses := make([]string, 0, len(item.ByWarehouse))
	for wh := range item.ByWarehouse {
		warehouses = append(warehouses, wh)
	}
	sort.Strings(warehouses)
	for _, wh := range warehouses {
		if _, err := tx.Exec(
			"INSERT INTO item_stock (item_id, warehouse, qty) VALUES (?, ?, ?)",
			item.ID, wh, item.ByWarehouse[wh],
		); err != nil {
			return fmt.Errorf("persisting warehouse stock: %w", err)
		}
	}

	return tx.Commit()
}

// StaleNonzero returns records of the given kind with any nonzero stock
// field whose source key was not seen in the current run. Backs the
// zero-fill pass at the end of a full simple-stock run.
func (b *Backend) StaleNonzero(seen map[string]bool, kind string) ([]*types.StoredItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.Query(`SELECT DISTINCT i.item_id, i.source_key FROM items i
		LEFT JOIN item_stock s ON s.item_id = i.item_id
		WHERE i.kind = ? AND (i.stock <> 0 OR s.qty <> 0)
		ORDER BY i.source_key`, kind)
	if err != nil {
		return nil, fmt.Errorf("querying stale items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("scanning stale item: %w", err)
		}
		if !seen[key] {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]*types.StoredItem, 0, len(ids))
	for _, id := range ids {
		item, err := b.loadOne(id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// newID generates a UUID v7, falling back to v4 if the clock misbehaves.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
