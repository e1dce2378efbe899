package erp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/pkg/types"
)

// fakeTransport replays scripted results and records every dispatch.
type fakeTransport struct {
	results []fakeResult
	calls   []fakeCall
	panicAt int // 1-based call index that panics; 0 disables
}

type fakeResult struct {
	payload []byte
	err     error
}

type fakeCall struct {
	operation string
	args      []WireArg
	kind      ConnectorKind
}

func (f *fakeTransport) Execute(ctx context.Context, operation string, args []WireArg, kind ConnectorKind) ([]byte, error) {
	f.calls = append(f.calls, fakeCall{operation: operation, args: args, kind: kind})
	if f.panicAt == len(f.calls) {
		panic("boom")
	}
	if len(f.results) == 0 {
		return []byte("<ok/>"), nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.payload, res.err
}

func (f *fakeCall) argValue(name string) (string, bool) {
	for _, a := range f.args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func testConfig() types.ConnectionConfig {
	return types.ConnectionConfig{
		BaseURL:     "https://erp.example.com/services",
		Environment: "400",
		Domain:      "CORP",
		User:        "svc_stock",
		Password:    "secret",
	}
}

func newTestConnection(t *testing.T, tr Transport, opts ...Option) *Connection {
	t.Helper()
	conn, err := New(testConfig(), tr, append([]Option{WithLogger(zap.NewNop())}, opts...)...)
	require.NoError(t, err)
	return conn
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""
	_, err := New(cfg, &fakeTransport{})
	require.Error(t, err)

	info, ok := AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, types.SourceConfig, info.Source)
}

func TestSetConfigOnlyBeforeFirstCall(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConnection(t, tr)

	cfg := testConfig()
	cfg.Environment = "500"
	require.NoError(t, conn.SetConfig(cfg))
	assert.Equal(t, "500", conn.Config().Environment)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "Items"}, KindRetrieval)
	require.NoError(t, err)

	err = conn.SetConfig(testConfig())
	require.Error(t, err)
	info, _ := AsCallError(err)
	assert.Equal(t, types.SourceCode, info.Source)
}

func TestCallRejectsEmptyOperation(t *testing.T) {
	conn := newTestConnection(t, &fakeTransport{})
	_, err := conn.Call(context.Background(), "", nil, KindRetrieval)
	require.Error(t, err)
	info, _ := AsCallError(err)
	assert.Equal(t, types.SourceCall, info.Source)
}

func TestCallRetrievalRequiresConnectorID(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConnection(t, tr)
	_, err := conn.Call(context.Background(), "GetDataSet", Args{}, KindRetrieval)
	require.Error(t, err)
	info, _ := AsCallError(err)
	assert.Equal(t, types.SourceCall, info.Source)
	assert.Empty(t, tr.calls, "rejected call must not reach the transport")
}

func TestCallNormalizesRetrievalArguments(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{
		argConnectorID: "Items",
		argFilters:     map[string]string{"ItemCode": "AB-100"},
		argOperator:    "LIKE",
		"extraFlag":    "1",
	}, KindRetrieval)
	require.NoError(t, err)
	require.Len(t, tr.calls, 1)

	call := tr.calls[0]
	// connectorId leads, then the folded fragments, then extras.
	v, ok := call.argValue(argConnectorID)
	require.True(t, ok)
	assert.Equal(t, "Items", v)

	filters, ok := call.argValue("Filters")
	require.True(t, ok)
	assert.Equal(t, `<Filters><Filter FilterId="Filter1"><Field FieldId="ItemCode" OperatorType="6">AB-100</Field></Filter></Filters>`, filters)

	options, ok := call.argValue("options")
	require.True(t, ok)
	assert.Contains(t, options, "<Outputmode>1</Outputmode>")

	// Normalization-only keys never reach the wire.
	_, ok = call.argValue(argFilters)
	assert.False(t, ok)
	_, ok = call.argValue(argOperator)
	assert.False(t, ok)
	_, ok = call.argValue(argOptions)
	assert.False(t, ok)

	_, ok = call.argValue("extraFlag")
	assert.True(t, ok)
}

func TestCallSchemaTemplatesRequestBody(t *testing.T) {
	tr := &fakeTransport{}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSetSchema", Args{"operation": "GetDataSet"}, KindSchema)
	require.NoError(t, err)
	require.Len(t, tr.calls, 1)

	body, ok := tr.calls[0].argValue(argSchemaBody)
	require.True(t, ok)
	assert.Equal(t, `<SchemaRequest operation="GetDataSet" version="1"/>`, body)
}

func TestCallClassifiesFaultAsWire(t *testing.T) {
	tr := &fakeTransport{results: []fakeResult{
		{err: &Fault{Message: "connector 'Nope' does not exist", Detail: "stack"}},
	}}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "Nope"}, KindRetrieval)
	require.Error(t, err)
	info, ok := AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, types.SourceWire, info.Source)
	assert.Equal(t, "stack", info.Detail)
	assert.False(t, info.Temporary)
}

func TestCallInfersTemporaryFromSignature(t *testing.T) {
	tr := &fakeTransport{results: []fakeResult{
		{err: errors.New("Timeout expired while waiting for the service")},
	}}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "Items"}, KindRetrieval)
	require.Error(t, err)
	info, _ := AsCallError(err)
	assert.Equal(t, types.SourceTransport, info.Source)
	assert.True(t, info.Temporary)
}

func TestCallNeverMarksCallErrorsTemporary(t *testing.T) {
	// The message matches a transient signature, but call-sourced errors are
	// not eligible for the inference.
	conn := newTestConnection(t, &fakeTransport{})
	err := conn.handleError(&types.ErrorInfo{
		Source:  types.SourceCall,
		Message: "Timeout expired is a field name here",
	})
	info, _ := AsCallError(err)
	assert.False(t, info.Temporary)
}

func TestCallConvertsTransportPanicToCodeError(t *testing.T) {
	tr := &fakeTransport{panicAt: 1}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "Items"}, KindRetrieval)
	require.Error(t, err)
	info, ok := AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, types.SourceCode, info.Source)
	assert.Contains(t, info.Message, "boom")
}

func TestLastCallMergesErrorWithOperation(t *testing.T) {
	tr := &fakeTransport{results: []fakeResult{
		{err: errors.New("connection refused")},
	}}
	conn := newTestConnection(t, tr)

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "Items"}, KindRetrieval)
	require.Error(t, err)

	last := conn.LastCall()
	assert.Equal(t, "GetDataSet", last.Operation)
	require.NotNil(t, last.Err)
	assert.Equal(t, types.SourceTransport, last.Err.Source)

	// An error raised outside a call keeps the in-flight operation identity.
	_ = conn.handleError(&types.ErrorInfo{Source: types.SourceCall, Message: "post-call validation failed"})
	last = conn.LastCall()
	assert.Equal(t, "GetDataSet", last.Operation)
	assert.Equal(t, "post-call validation failed", last.Err.Message)
}

func TestCustomTransientSignatures(t *testing.T) {
	table := []TransientSignature{{Substring: "flaky widget", Meaning: "test override"}}
	tr := &fakeTransport{results: []fakeResult{
		{err: errors.New("the flaky widget failed again")},
		{err: errors.New("Timeout expired")},
	}}
	conn := newTestConnection(t, tr, WithTransientSignatures(table))

	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "A"}, KindRetrieval)
	info, _ := AsCallError(err)
	assert.True(t, info.Temporary)

	// The default table is fully replaced, not merged.
	_, err = conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "A"}, KindRetrieval)
	info, _ = AsCallError(err)
	assert.False(t, info.Temporary)
}

func TestUserSinkReporting(t *testing.T) {
	tr := &fakeTransport{results: []fakeResult{
		{err: &Fault{Message: "bad filter", Detail: "field 'X' unknown"}},
		{err: &Fault{Message: "bad filter", Detail: "field 'X' unknown"}},
	}}

	var brief bytes.Buffer
	conn := newTestConnection(t, tr,
		WithUserSink(&brief),
		WithReportConfig(ReportConfig{User: ReportBrief}),
	)
	_, err := conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "A"}, KindRetrieval)
	require.Error(t, err)
	assert.Contains(t, brief.String(), "error (wire): bad filter")
	assert.NotContains(t, brief.String(), "field 'X' unknown")

	var detailed bytes.Buffer
	conn2 := newTestConnection(t, tr,
		WithUserSink(&detailed),
		WithReportConfig(ReportConfig{User: ReportDetailed}),
	)
	_, err = conn2.Call(context.Background(), "GetDataSet", Args{argConnectorID: "A"}, KindRetrieval)
	require.Error(t, err)
	assert.Contains(t, detailed.String(), "bad filter")
	assert.Contains(t, detailed.String(), "field 'X' unknown")
}

func TestConnectionTimeoutAppliesToContext(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = time.Millisecond

	var sawDeadline bool
	tr := transportFunc(func(ctx context.Context, op string, args []WireArg, kind ConnectorKind) ([]byte, error) {
		_, sawDeadline = ctx.Deadline()
		return []byte("<ok/>"), nil
	})

	conn, err := New(cfg, tr, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	_, err = conn.Call(context.Background(), "GetDataSet", Args{argConnectorID: "A"}, KindRetrieval)
	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

type transportFunc func(ctx context.Context, op string, args []WireArg, kind ConnectorKind) ([]byte, error)

func (f transportFunc) Execute(ctx context.Context, op string, args []WireArg, kind ConnectorKind) ([]byte, error) {
	return f(ctx, op, args, kind)
}
