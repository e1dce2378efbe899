package stock

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/pkg/types"
)

// CombinationJob synchronizes composite items whose stock derives from their
// parts: fetch the combination record set, group part keys per combination,
// resolve each part's stock from the configured source, and apply the
// per-combination minimum. Combination runs never zero-fill; the record set
// covers only combinations present remotely, so absence is not staleness.
type CombinationJob struct {
	settings Settings
	fetcher  *erp.Fetcher
	store    types.EntityStore
	applier  *applier
	logger   *zap.Logger

	combos map[string]*types.CombinationItem
	parts  partLookup
}

var _ types.Job = (*CombinationJob)(nil)

// NewCombinationJob builds the combination job.
func NewCombinationJob(settings Settings, fetcher *erp.Fetcher, store types.EntityStore, logger *zap.Logger) *CombinationJob {
	settings.withDefaults()
	return &CombinationJob{
		settings: settings,
		fetcher:  fetcher,
		store:    store,
		applier:  newApplier(store, KindCombination, "combination", settings.DryRun, logger),
		logger:   logger,
	}
}

// SettingsSchema implements types.Job.
func (j *CombinationJob) SettingsSchema() []types.SettingField {
	return settingsSchema()
}

// Init fetches the combination record set, groups parts per combination key,
// and prepares the part stock source. Limit and single-item filters count
// distinct combination keys, not rows.
func (j *CombinationJob) Init(ctx context.Context) ([]types.Item, error) {
	if j.settings.Connector == "" {
		return nil, ErrNoConnector
	}
	var filters any
	if j.settings.Item != "" {
		filters = map[string]string{j.settings.KeyField: j.settings.Item}
	}

	rows, err := fetchWithRetry(ctx, j.fetcher, "combination", j.settings.Connector, filters, j.settings.Tries, j.logger)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", j.settings.Connector, err)
	}

	j.combos = make(map[string]*types.CombinationItem)
	var order []string
	partSeen := make(map[string]map[string]bool)
	for _, row := range rows {
		key := row[j.settings.KeyField]
		part := row[j.settings.PartField]
		if key == "" || part == "" {
			continue
		}
		combo, ok := j.combos[key]
		if !ok {
			combo = &types.CombinationItem{SourceKey: key}
			j.combos[key] = combo
			order = append(order, key)
			partSeen[key] = make(map[string]bool)
		}
		if partSeen[key][part] {
			continue
		}
		partSeen[key][part] = true
		combo.PartKeys = append(combo.PartKeys, part)
	}

	j.parts, err = j.partSource(ctx, rows)
	if err != nil {
		return nil, err
	}

	items := make([]types.Item, 0, len(order))
	for _, key := range order {
		if j.settings.Limit > 0 && len(items) >= j.settings.Limit {
			break
		}
		items = append(items, types.Item{Key: key})
	}
	j.logger.Info("grouped combination rows",
		zap.String("connector", j.settings.Connector),
		zap.Int("rows", len(rows)),
		zap.Int("combinations", len(items)),
	)
	return items, nil
}

// ProcessItem aggregates one combination's part stock and applies the result.
// A combination with no known part value at all is skipped, never written.
func (j *CombinationJob) ProcessItem(ctx context.Context, item types.Item) error {
	combo, ok := j.combos[item.Key]
	if !ok {
		return fmt.Errorf("no combination grouped for %s", item.Key)
	}
	agg, known := aggregateParts(combo.PartKeys, j.parts)
	if !known {
		j.applier.count("skipped", &j.applier.counters.Skipped)
		j.logger.Debug("no part stock known, combination skipped",
			zap.String("key", item.Key))
		return nil
	}
	agg.SourceKey = item.Key
	combo.Stock = agg
	return j.applier.apply(&agg)
}

// Finish returns the run summary. Combination runs have no zero-fill pass.
func (j *CombinationJob) Finish(ctx context.Context) (string, error) {
	return j.applier.counters.Summary(), nil
}

// partLookup resolves a part key to its reconciled stock.
type partLookup func(key string) (*types.StockItem, bool)

// partSource prepares the part stock lookup for the configured source.
func (j *CombinationJob) partSource(ctx context.Context, mainRows []types.Row) (partLookup, error) {
	switch j.settings.PartSource {
	case PartsFromPrimary:
		// Part stock rides on the combination rows themselves, keyed by the
		// part field.
		set := reconcileRows(mainRows, &j.settings, j.settings.PartField, j.logger)
		return set.get, nil

	case PartsFromSecondary:
		if j.settings.Secondary == "" {
			return nil, fmt.Errorf("stock: part source %q needs a secondary connector", j.settings.PartSource)
		}
		rows, err := fetchWithRetry(ctx, j.fetcher, "combination", j.settings.Secondary, nil, j.settings.Tries, j.logger)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", j.settings.Secondary, err)
		}
		set := reconcileRows(rows, &j.settings, j.settings.KeyField, j.logger)
		return set.get, nil

	case PartsFromStore:
		return j.storeLookup(), nil

	default:
		return nil, fmt.Errorf("stock: unknown part source %q", j.settings.PartSource)
	}
}

// storeLookup resolves part stock from the local entity store, one part at a
// time, memoizing misses so an unknown part is queried only once per run.
func (j *CombinationJob) storeLookup() partLookup {
	cache := make(map[string]*types.StockItem)
	return func(key string) (*types.StockItem, bool) {
		if stock, ok := cache[key]; ok {
			return stock, stock != nil
		}
		resolved, err := j.store.ResolveKeys([]string{key})
		if err != nil {
			j.logger.Warn("part key resolution failed", zap.String("key", key), zap.Error(err))
			cache[key] = nil
			return nil, false
		}
		id, ok := resolved[key]
		if !ok {
			cache[key] = nil
			return nil, false
		}
		records, err := j.store.Load([]string{id})
		if err != nil || len(records) == 0 {
			cache[key] = nil
			return nil, false
		}
		stock := storedStock(records[0])
		cache[key] = stock
		return stock, true
	}
}

// storedStock converts a store record into its reconciled stock shape.
func storedStock(record *types.StoredItem) *types.StockItem {
	stock := &types.StockItem{SourceKey: record.SourceKey, Value: record.Stock}
	if len(record.ByWarehouse) > 0 {
		stock.ByWarehouse = make(map[string]float64, len(record.ByWarehouse))
		for wh, v := range record.ByWarehouse {
			stock.ByWarehouse[wh] = v
		}
	}
	return stock
}
