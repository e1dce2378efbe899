package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/internal/stock"
	"github.com/dukaforge/stocklink/pkg/types"
)

func TestSimpleSyncEndToEnd(t *testing.T) {
	payload := tablePayload(
		map[string]string{"ItemCode": "A", "Stock": "12"},
		map[string]string{"ItemCode": "B", "Warehouse": "W1", "Stock": "4"},
		map[string]string{"ItemCode": "B", "Warehouse": "W2", "Stock": "-2"},
	)
	fetcher := newFetcher(t, func(ctx context.Context, op string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
		return payload, nil
	})
	backend := newStore(t,
		&types.StoredItem{SourceKey: "A", Kind: stock.KindSimple, Stock: 1},
		&types.StoredItem{SourceKey: "B", Kind: stock.KindSimple},
		&types.StoredItem{SourceKey: "STALE", Kind: stock.KindSimple, Stock: 7},
	)

	job := stock.NewSimpleJob(stock.Settings{Connector: "Articles"}, fetcher, backend, zap.NewNop())
	summary, err := stock.NewRunner(zap.NewNop()).Run(context.Background(), "simple", job)
	require.NoError(t, err)
	assert.Contains(t, summary, "updated 3")

	a := loadByKey(t, backend, "A")
	assert.Equal(t, 12.0, a.Stock)

	b := loadByKey(t, backend, "B")
	assert.Equal(t, 4.0, b.ByWarehouse["W1"])
	assert.Equal(t, 0.0, b.ByWarehouse["W2"], "negative quantity clamped before persisting")

	stale := loadByKey(t, backend, "STALE")
	assert.Equal(t, 0.0, stale.Stock, "record absent from the fetch zero-filled")
}

func TestSimpleSyncLimitOneSkipsZeroFill(t *testing.T) {
	payload := tablePayload(
		map[string]string{"ItemCode": "A", "Stock": "5"},
		map[string]string{"ItemCode": "B", "Stock": "3"},
	)
	fetcher := newFetcher(t, func(ctx context.Context, op string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
		return payload, nil
	})
	backend := newStore(t,
		&types.StoredItem{SourceKey: "A", Kind: stock.KindSimple, Stock: 1},
		&types.StoredItem{SourceKey: "B", Kind: stock.KindSimple, Stock: 1},
		&types.StoredItem{SourceKey: "STALE", Kind: stock.KindSimple, Stock: 7},
	)

	job := stock.NewSimpleJob(stock.Settings{Connector: "Articles", Limit: 1}, fetcher, backend, zap.NewNop())
	_, err := stock.NewRunner(zap.NewNop()).Run(context.Background(), "simple", job)
	require.NoError(t, err)

	assert.Equal(t, 5.0, loadByKey(t, backend, "A").Stock, "first item processed")
	assert.Equal(t, 1.0, loadByKey(t, backend, "B").Stock, "second item beyond the limit")
	assert.Equal(t, 7.0, loadByKey(t, backend, "STALE").Stock, "zero-fill skipped under limit")
}

func TestCombinationSyncEndToEnd(t *testing.T) {
	// SET1 = min(P1: 6, P2: 2) = 2; SET2 has only the unknown PX.
	payload := tablePayload(
		map[string]string{"ItemCode": "SET1", "PartCode": "P1", "Stock": "6"},
		map[string]string{"ItemCode": "SET1", "PartCode": "P2", "Stock": "2"},
		map[string]string{"ItemCode": "SET2", "PartCode": "PX"},
	)
	fetcher := newFetcher(t, func(ctx context.Context, op string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
		return payload, nil
	})
	backend := newStore(t,
		&types.StoredItem{SourceKey: "SET1", Kind: stock.KindCombination, Stock: 9},
		&types.StoredItem{SourceKey: "SET2", Kind: stock.KindCombination, Stock: 9},
	)

	job := stock.NewCombinationJob(stock.Settings{Connector: "Sets"}, fetcher, backend, zap.NewNop())
	summary, err := stock.NewRunner(zap.NewNop()).Run(context.Background(), "combination", job)
	require.NoError(t, err)

	assert.Equal(t, 2.0, loadByKey(t, backend, "SET1").Stock)
	// PX carries no quantity field, so it reconciles to zero and SET2 drops
	// to zero with it.
	assert.Equal(t, 0.0, loadByKey(t, backend, "SET2").Stock)
	assert.Contains(t, summary, "updated 2")

	// Combination runs never zero-fill, so a second limited run leaves the
	// other combination at its last synced value.
	payload = tablePayload(
		map[string]string{"ItemCode": "SET1", "PartCode": "P1", "Stock": "1"},
	)
	job = stock.NewCombinationJob(stock.Settings{Connector: "Sets", Limit: 1}, fetcher, backend, zap.NewNop())
	_, err = stock.NewRunner(zap.NewNop()).Run(context.Background(), "combination", job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, loadByKey(t, backend, "SET1").Stock)
	assert.Equal(t, 0.0, loadByKey(t, backend, "SET2").Stock)
}

func TestSyncRetriesTransportTimeout(t *testing.T) {
	calls := 0
	payload := tablePayload(map[string]string{"ItemCode": "A", "Stock": "5"})
	fetcher := newFetcher(t, func(ctx context.Context, op string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout expired")
		}
		return payload, nil
	})
	backend := newStore(t, &types.StoredItem{SourceKey: "A", Kind: stock.KindSimple, Stock: 1})

	job := stock.NewSimpleJob(stock.Settings{Connector: "Articles", Tries: 2}, fetcher, backend, zap.NewNop())
	_, err := stock.NewRunner(zap.NewNop()).Run(context.Background(), "simple", job)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 5.0, loadByKey(t, backend, "A").Stock)
}
