package stock

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/pkg/types"
)

// ErrNoConnector is returned by Init when the run has no main connector
// configured. Init failing is terminal for the run.
var ErrNoConnector = errors.New("stock: no connector configured")

// SimpleJob synchronizes plain per-item stock: fetch the main record set,
// reconcile quantities per key and warehouse, apply changed values to the
// entity store, then zero-fill stale records on unfiltered runs.
type SimpleJob struct {
	settings Settings
	fetcher  *erp.Fetcher
	applier  *applier
	logger   *zap.Logger

	set     *stockSet
	rawBody []byte
}

var _ types.Job = (*SimpleJob)(nil)

// NewSimpleJob builds the simple-stock job.
func NewSimpleJob(settings Settings, fetcher *erp.Fetcher, store types.EntityStore, logger *zap.Logger) *SimpleJob {
	settings.withDefaults()
	return &SimpleJob{
		settings: settings,
		fetcher:  fetcher,
		applier:  newApplier(store, KindSimple, "simple", settings.DryRun, logger),
		logger:   logger,
	}
}

// SettingsSchema implements types.Job.
func (j *SimpleJob) SettingsSchema() []types.SettingField {
	return settingsSchema()
}

// Init fetches and reconciles the main record set. Raw mode short-circuits:
// the payload is kept untouched and no items are produced.
func (j *SimpleJob) Init(ctx context.Context) ([]types.Item, error) {
	if j.settings.Connector == "" {
		return nil, ErrNoConnector
	}
	filters := j.itemFilter()

	if j.settings.Raw {
		payload, err := j.fetcher.TableRaw(ctx, j.settings.Connector, filters, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", j.settings.Connector, err)
		}
		j.rawBody = payload
		return nil, nil
	}

	rows, err := fetchWithRetry(ctx, j.fetcher, "simple", j.settings.Connector, filters, j.settings.Tries, j.logger)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", j.settings.Connector, err)
	}
	j.set = reconcileRows(rows, &j.settings, j.settings.KeyField, j.logger)

	items := make([]types.Item, 0, len(j.set.order))
	for _, key := range j.set.order {
		if j.settings.Limit > 0 && len(items) >= j.settings.Limit {
			break
		}
		items = append(items, types.Item{Key: key})
	}
	j.logger.Info("reconciled stock rows",
		zap.String("connector", j.settings.Connector),
		zap.Int("rows", len(rows)),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// ProcessItem applies one reconciled stock value to the store.
func (j *SimpleJob) ProcessItem(ctx context.Context, item types.Item) error {
	stock, ok := j.set.get(item.Key)
	if !ok {
		return fmt.Errorf("no reconciled stock for %s", item.Key)
	}
	return j.applier.apply(stock)
}

// Finish zero-fills stale nonzero records unless the run was filtered, and
// returns the run summary.
func (j *SimpleJob) Finish(ctx context.Context) (string, error) {
	if j.settings.Raw {
		return fmt.Sprintf("raw fetch: %d bytes", len(j.rawBody)), nil
	}
	if !j.settings.filtered() {
		if err := j.applier.zeroFill(); err != nil {
			return "", err
		}
	} else {
		j.logger.Info("zero-fill skipped: filtered run")
	}
	return j.applier.counters.Summary(), nil
}

// RawPayload returns the payload of a raw-mode run, nil otherwise.
func (j *SimpleJob) RawPayload() []byte {
	return j.rawBody
}

func (j *SimpleJob) itemFilter() any {
	if j.settings.Item == "" {
		return nil
	}
	return map[string]string{j.settings.KeyField: j.settings.Item}
}
