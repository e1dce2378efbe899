package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entity store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidID     = errors.New("invalid record ID")
	ErrStoreDetached = errors.New("store not attached")
)

// FieldStock is the overall stock field of a stored item. Per-warehouse
// fields are addressed as "stock:<warehouse>"; see StockField.
const FieldStock = "stock"

// StockField returns the field name addressing the stock of one warehouse.
func StockField(warehouse string) string {
	return FieldStock + ":" + warehouse
}

// StoredItem is one record of the entity store.
type StoredItem struct {
	ID          string
	SourceKey   string
	Kind        string
	Stock       float64
	ByWarehouse map[string]float64
	UpdatedAt   time.Time
}

// FieldValue returns the current value of a stock field. The second return
// is false when the field is not present on the record.
func (it *StoredItem) FieldValue(field string) (float64, bool) {
	if field == FieldStock {
		return it.Stock, true
	}
	wh, ok := strings.CutPrefix(field, FieldStock+":")
	if !ok {
		return 0, false
	}
	v, ok := it.ByWarehouse[wh]
	return v, ok
}

// SetField sets a stock field and reports whether the stored value changed.
// Unchanged writes return false so callers can skip the downstream save.
func (it *StoredItem) SetField(field string, value float64) (bool, error) {
	if field == FieldStock {
		if it.Stock == value {
			return false, nil
		}
		it.Stock = value
		return true, nil
	}
	wh, ok := strings.CutPrefix(field, FieldStock+":")
	if !ok {
		return false, fmt.Errorf("unknown stock field %q", field)
	}
	if cur, present := it.ByWarehouse[wh]; present && cur == value {
		return false, nil
	}
	if it.ByWarehouse == nil {
		it.ByWarehouse = make(map[string]float64)
	}
	it.ByWarehouse[wh] = value
	return true, nil
}

// NonzeroFields returns the names of all stock fields currently holding a
// nonzero value. Used by the zero-fill pass at the end of a full run.
func (it *StoredItem) NonzeroFields() []string {
	var fields []string
	if it.Stock != 0 {
		fields = append(fields, FieldStock)
	}
	for wh, v := range it.ByWarehouse {
		if v != 0 {
			fields = append(fields, StockField(wh))
		}
	}
	return fields
}

// EntityStore is the contract the aggregation engine needs from the local
// record store. Implementations must provide per-record conditional-write
// semantics on Save when concurrent runs are possible; the engine itself
// does not serialize across runs.
type EntityStore interface {
	// ResolveKeys maps remote source keys to local record IDs. Keys with no
	// local record are simply absent from the result.
	ResolveKeys(keys []string) (map[string]string, error)

	// Load retrieves records by local ID.
	Load(ids []string) ([]*StoredItem, error)

	// Save persists a record.
	Save(item *StoredItem) error

	// StaleNonzero returns records of the given kind whose stock fields are
	// nonzero and whose source key is not in seen.
	StaleNonzero(seen map[string]bool, kind string) ([]*StoredItem, error)
}
