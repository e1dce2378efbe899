package stock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/pkg/types"
)

type transportFunc func(ctx context.Context, operation string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error)

func (f transportFunc) Execute(ctx context.Context, operation string, args []erp.WireArg, kind erp.ConnectorKind) ([]byte, error) {
	return f(ctx, operation, args, kind)
}

func newTestFetcher(t *testing.T, fn transportFunc) *erp.Fetcher {
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

// rowsPayload renders a tabular wire payload from ordered rows. Fields are
// emitted in sorted order within each row.
func rowsPayload(rows ...map[string]string) []byte {
	var b strings.Builder
	b.WriteString("<GetDataSetResult>")
	for _, row := range rows {
		fields := make([]string, 0, len(row))
		for k := range row {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		b.WriteString("<Row>")
		for _, k := range fields {
			fmt.Fprintf(&b, "<%s>%s</%s>", k, row[k], k)
		}
		b.WriteString("</Row>")
	}
	b.WriteString("</GetDataSetResult>")
	return []byte(b.String())
}

// fakeStore is an in-memory types.EntityStore for job tests.
type fakeStore struct {
	byID  map[string]*types.StoredItem
	byKey map[string]string
	saved []string
}

func newFakeStore(items ...*types.StoredItem) *fakeStore {
	s := &fakeStore{
		byID:  make(map[string]*types.StoredItem),
		byKey: make(map[string]string),
	}
	for i, it := range items {
		if it.ID == "" {
			it.ID = fmt.Sprintf("id-%d", i+1)
		}
		s.byID[it.ID] = it
		s.byKey[it.SourceKey] = it.ID
	}
	return s
}

func (s *fakeStore) ResolveKeys(keys []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range keys {
		if id, ok := s.byKey[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func (s *fakeStore) Load(ids []string) ([]*types.StoredItem, error) {
	out := make([]*types.StoredItem, 0, len(ids))
	for _, id := range ids {
		it, ok := s.byID[id]
		if !ok {
			return nil, types.ErrNotFound
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *fakeStore) Save(item *types.StoredItem) error {
	s.saved = append(s.saved, item.SourceKey)
	s.byID[item.ID] = item
	return nil
}

func (s *fakeStore) StaleNonzero(seen map[string]bool, kind string) ([]*types.StoredItem, error) {
	var out []*types.StoredItem
	for _, it := range s.byID {
		if it.Kind != kind || seen[it.SourceKey] {
			continue
		}
		if len(it.NonzeroFields()) > 0 {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out, nil
}
