package stock

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/pkg/types"
)

// stockSet is the outcome of one reconciliation pass: stock items keyed by
// source key, in first-observation order.
type stockSet struct {
	items map[string]*types.StockItem
	order []string
}

func newStockSet() *stockSet {
	return &stockSet{items: make(map[string]*types.StockItem)}
}

func (s *stockSet) get(key string) (*types.StockItem, bool) {
	it, ok := s.items[key]
	return it, ok
}

// reconcileRows folds tabular rows into a stock set. Negative quantities
// clamp to zero before anything else. A duplicate key (or duplicate
// key/warehouse pair) after the first occurrence is dropped and logged,
// never merged or overwritten.
func reconcileRows(rows []types.Row, set *Settings, keyField string, logger *zap.Logger) *stockSet {
	out := newStockSet()

	// Tracks which (key, warehouse) pairs have been taken; the empty
	// warehouse stands for the scalar value.
	taken := make(map[string]map[string]bool)

	for _, row := range rows {
		key := row[keyField]
		if key == "" {
			continue
		}
		qty := clampQty(row[set.QtyField])
		warehouse := row[set.WarehouseField]

		seen := taken[key]
		if seen == nil {
			seen = make(map[string]bool)
			taken[key] = seen
		}
		if seen[warehouse] {
			logger.Warn("duplicate stock row dropped",
				zap.String("key", key),
				zap.String("warehouse", warehouse),
			)
			continue
		}
		seen[warehouse] = true

		item, ok := out.items[key]
		if !ok {
			item = &types.StockItem{SourceKey: key}
			out.items[key] = item
			out.order = append(out.order, key)
		}

		if warehouse == "" {
			item.Value = qty
			continue
		}
		if item.ByWarehouse == nil {
			item.ByWarehouse = make(map[string]float64)
		}
		item.ByWarehouse[warehouse] = qty
	}
	return out
}

// clampQty parses a quantity field, clamping negatives to zero. An
// unparseable value counts as zero.
func clampQty(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// aggregateParts computes a combination's stock as the minimum among all
// known part values. A part with no known value is skipped and does not
// force the minimum to zero; a part with value zero participates normally.
// The boolean result is false when no part value is known at all.
func aggregateParts(partKeys []string, lookup func(key string) (*types.StockItem, bool)) (types.StockItem, bool) {
	var agg types.StockItem

	scalarKnown := false
	warehouseMins := map[string]float64{}
	warehouseKnown := map[string]bool{}

	for _, part := range partKeys {
		stock, ok := lookup(part)
		if !ok || stock == nil {
			continue
		}
		if stock.Warehoused() {
			for wh, v := range stock.ByWarehouse {
				if !warehouseKnown[wh] || v < warehouseMins[wh] {
					warehouseMins[wh] = v
					warehouseKnown[wh] = true
				}
			}
			continue
		}
		if !scalarKnown || stock.Value < agg.Value {
			agg.Value = stock.Value
			scalarKnown = true
		}
	}

	if len(warehouseMins) > 0 {
		// A scalar part constrains every warehouse of the combination.
		if scalarKnown {
			for wh, v := range warehouseMins {
				if agg.Value < v {
					warehouseMins[wh] = agg.Value
				}
			}
		}
		agg.Value = 0
		agg.ByWarehouse = warehouseMins
		return agg, true
	}
	return agg, scalarKnown
}
