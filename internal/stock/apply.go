package stock

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/metrics"
	"github.com/dukaforge/stocklink/pkg/types"
)

// Counters accumulates the outcomes of one run's Apply phase.
type Counters struct {
	Updated    int
	Unchanged  int
	LoadErrors int
	NotFound   int
	ZeroFilled int
	Skipped    int
}

// Summary renders the human-readable run result.
func (c Counters) Summary() string {
	s := fmt.Sprintf("updated %d (%d zero-filled), unchanged %d, load errors %d, not in store %d",
		c.Updated+c.ZeroFilled, c.ZeroFilled, c.Unchanged, c.LoadErrors, c.NotFound)
	if c.Skipped > 0 {
		s += fmt.Sprintf(", skipped %d", c.Skipped)
	}
	return s
}

// applier writes reconciled stock values to the entity store, counting
// outcomes and touching only records whose values actually changed.
type applier struct {
	store   types.EntityStore
	kind    string
	jobName string
	dryRun  bool
	logger  *zap.Logger

	counters Counters
	seen     map[string]bool
}

func newApplier(store types.EntityStore, kind, jobName string, dryRun bool, logger *zap.Logger) *applier {
	return &applier{
		store:   store,
		kind:    kind,
		jobName: jobName,
		dryRun:  dryRun,
		logger:  logger,
		seen:    make(map[string]bool),
	}
}

// apply pushes one reconciled stock value into the store.
func (a *applier) apply(stock *types.StockItem) error {
	a.seen[stock.SourceKey] = true

	resolved, err := a.store.ResolveKeys([]string{stock.SourceKey})
	if err != nil {
		a.count("load_error", &a.counters.LoadErrors)
		return fmt.Errorf("resolving %s: %w", stock.SourceKey, err)
	}
	id, ok := resolved[stock.SourceKey]
	if !ok {
		a.count("not_found", &a.counters.NotFound)
		a.logger.Debug("source key not in store", zap.String("key", stock.SourceKey))
		return nil
	}

	items, err := a.store.Load([]string{id})
	if err != nil {
		a.count("load_error", &a.counters.LoadErrors)
		a.logger.Warn("loading store record failed",
			zap.String("key", stock.SourceKey), zap.Error(err))
		return nil
	}
	record := items[0]

	changed, err := setStockFields(record, stock)
	if err != nil {
		a.count("load_error", &a.counters.LoadErrors)
		return nil
	}
	if !changed {
		a.count("unchanged", &a.counters.Unchanged)
		return nil
	}

	if !a.dryRun {
		if err := a.store.Save(record); err != nil {
			a.count("load_error", &a.counters.LoadErrors)
			a.logger.Warn("saving store record failed",
				zap.String("key", stock.SourceKey), zap.Error(err))
			return nil
		}
	}
	a.count("updated", &a.counters.Updated)
	return nil
}

// zeroFill sets every stale nonzero record of the run's kind to zero.
// Only full runs call this; filtered runs are known incomplete.
func (a *applier) zeroFill() error {
	stale, err := a.store.StaleNonzero(a.seen, a.kind)
	if err != nil {
		return fmt.Errorf("querying stale records: %w", err)
	}
	for _, record := range stale {
		for _, field := range record.NonzeroFields() {
			if _, err := record.SetField(field, 0); err != nil {
				return fmt.Errorf("zero-filling %s: %w", record.SourceKey, err)
			}
		}
		if !a.dryRun {
			if err := a.store.Save(record); err != nil {
				a.count("load_error", &a.counters.LoadErrors)
				continue
			}
		}
		a.count("zero_filled", &a.counters.ZeroFilled)
		a.logger.Info("zero-filled stale record", zap.String("key", record.SourceKey))
	}
	return nil
}

func (a *applier) count(outcome string, counter *int) {
	*counter++
	metrics.ItemsTotal.WithLabelValues(a.jobName, outcome).Inc()
}

// setStockFields writes a reconciled stock value onto a store record,
// field by field, and reports whether anything changed.
func setStockFields(record *types.StoredItem, stock *types.StockItem) (bool, error) {
	changed := false
	if stock.Warehoused() {
		for wh, v := range stock.ByWarehouse {
			c, err := record.SetField(types.StockField(wh), v)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		}
		return changed, nil
	}
	return record.SetField(types.FieldStock, stock.Value)
}
