package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/internal/store"
	"github.com/dukaforge/stocklink/pkg/types"
)

type transportFunc func(ctx context.Context, operation string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error)

func (f transportFunc) Execute(ctx context.Context, operation string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
	return f(ctx, operation, args, kind)
}

// newFetcher builds a connection over the scripted transport.
func newFetcher(t *testing.T, fn transportFunc) *erp.Fetcher {
	t.Helper()
	cfg := types.ConnectionConfig{
		BaseURL:     "http://erp.test",
		Environment: "TEST",
		Domain:      "DOM",
		User:        "user",
		Password:    "secret",
	}
	conn, err := erp.New(cfg, fn, erp.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return erp.NewFetcher(conn)
}

// newStore attaches a SQLite backend under a temp directory and seeds it.
func newStore(t *testing.T, seed ...*types.StoredItem) *store.Backend {
	t.Helper()
	backend := store.NewBackend()
	require.NoError(t, backend.Attach(t.TempDir()))
	t.Cleanup(func() { _ = backend.Detach() })

	for _, item := range seed {
		require.NoError(t, backend.Save(item))
	}
	return backend
}

// loadByKey reads one record back through the store's public surface.
func loadByKey(t *testing.T, backend *store.Backend, key string) *types.StoredItem {
	t.Helper()
	resolved, err := backend.ResolveKeys([]string{key})
	require.NoError(t, err)
	id, ok := resolved[key]
	require.True(t, ok, "key %s not in store", key)
	items, err := backend.Load([]string{id})
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0]
}

// tablePayload renders a tabular wire payload, fields sorted per row.
func tablePayload(rows ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString("<GetDataSetResult>")
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<Row>")
		for _, k := range keys {
			fmt.Fprintf(&b, "<%s>%s</%s>", k, row[k], k)
		}
		b.WriteString("</Row>")
	}
	b.WriteString("</GetDataSetResult>")
	return []byte(b.String())
}
