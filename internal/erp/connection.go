package erp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/metrics"
	"github.com/dukaforge/stocklink/pkg/types"
)

// Args holds the caller-supplied arguments of one call. The keys "filters",
// "operator" and "options_array" are normalization-only: they are folded
// into wire fragments and stripped before dispatch.
type Args map[string]any

// Normalization-only argument keys.
const (
	argFilters  = "filters"
	argOperator = "operator"
	argOptions  = "options_array"
)

// Required argument keys per connector kind.
const (
	argConnectorID = "connectorId"
	argReportID    = "reportID"
	argSubjectID   = "subjectID"
	argSchemaBody  = "schemaRequest"
)

// schemaRequestTemplate is the fixed request body of a schema operation,
// templated with the operation whose schema is wanted.
const schemaRequestTemplate = `<SchemaRequest operation="%s" version="1"/>`

// CallError carries the structured ErrorInfo of a failed call. Connection
// returns it for every expected failure mode instead of throwing across its
// boundary.
type CallError struct {
	Info types.ErrorInfo
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Info.Source, e.Info.Message)
}

// AsCallError extracts the ErrorInfo from an error returned by Connection.
func AsCallError(err error) (*types.ErrorInfo, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return &ce.Info, true
	}
	return nil, false
}

// CallResult is the outcome of one successful call: the raw payload plus
// the record of what was dispatched. Returning the record with the result
// replaces querying mutable last-call state after the fact.
type CallResult struct {
	Payload []byte
	Record  types.CallRecord
}

// Connection owns the configuration for one remote endpoint, normalizes
// arguments per operation kind, dispatches through its Transport, and
// classifies failures. It performs no retries.
type Connection struct {
	cfg       types.ConnectionConfig
	transport Transport
	logger    *zap.Logger
	userSink  io.Writer
	reportCfg ReportConfig
	sigTable  []TransientSignature

	called bool
	last   types.CallRecord

	schemaCache map[string]schemaEntry
}

type schemaEntry struct {
	payload []byte
	fetched time.Time
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the structured log sink.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithUserSink sets the user-facing error sink.
func WithUserSink(w io.Writer) Option {
	return func(c *Connection) { c.userSink = w }
}

// WithReportConfig sets the error-reporting levels for both sinks.
func WithReportConfig(rc ReportConfig) Option {
	return func(c *Connection) { c.reportCfg = rc }
}

// WithTransientSignatures overrides the transient-classification table.
func WithTransientSignatures(table []TransientSignature) Option {
	return func(c *Connection) { c.sigTable = table }
}

// New builds a Connection. The configuration must carry all five identity
// fields; a missing field fails here, before any call is attempted.
func New(cfg types.ConnectionConfig, transport Transport, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &CallError{Info: types.ErrorInfo{
			Source:  types.SourceConfig,
			Message: err.Error(),
			Time:    time.Now(),
		}}
	}
	if transport == nil {
		return nil, &CallError{Info: types.ErrorInfo{
			Source:  types.SourceCode,
			Message: "transport must not be nil",
			Time:    time.Now(),
		}}
	}
	c := &Connection{
		cfg:         cfg,
		transport:   transport,
		reportCfg:   ReportConfig{Log: ReportBrief},
		sigTable:    DefaultTransientSignatures,
		schemaCache: make(map[string]schemaEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the active configuration.
func (c *Connection) Config() types.ConnectionConfig {
	return c.cfg
}

// SetConfig replaces the configuration. Allowed only before the first call.
func (c *Connection) SetConfig(cfg types.ConnectionConfig) error {
	if c.called {
		return c.handleError(&types.ErrorInfo{
			Source:  types.SourceCode,
			Message: "configuration is immutable after the first call",
		})
	}
	if err := cfg.Validate(); err != nil {
		return c.handleError(&types.ErrorInfo{
			Source:  types.SourceConfig,
			Message: err.Error(),
		})
	}
	c.cfg = cfg
	return nil
}

// LastCall returns the record of the most recent call, including any merged
// error info.
func (c *Connection) LastCall() types.CallRecord {
	return c.last
}

// Call normalizes arguments for the operation kind, dispatches through the
// Transport, and classifies any failure. On success the raw payload comes
// back wrapped in a CallResult; on failure the returned error is a
// *CallError whose ErrorInfo is also merged into the last-call record.
func (c *Connection) Call(ctx context.Context, operation string, args Args, kind ConnectorKind) (*CallResult, error) {
	if operation == "" {
		return nil, c.handleError(&types.ErrorInfo{
			Source:  types.SourceCall,
			Message: "operation name must not be empty",
		})
	}

	normalized, wireArgs, errInfo := c.normalizeArgs(operation, args, kind)
	if errInfo != nil {
		return nil, c.handleError(errInfo)
	}

	// A new call overwrites the prior operation and arguments; error fields
	// are merged in later by handleError.
	c.last = types.CallRecord{Operation: operation, Arguments: normalized}
	c.called = true

	start := time.Now()
	payload, err := c.execute(ctx, operation, wireArgs, kind)
	metrics.CallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CallsTotal.WithLabelValues(operation, "error").Inc()
		return nil, c.handleError(classifyDispatchError(err))
	}
	metrics.CallsTotal.WithLabelValues(operation, "ok").Inc()

	return &CallResult{Payload: payload, Record: c.last}, nil
}

// execute invokes the Transport, converting a panic into an error so that
// truly unexpected failures surface as code-sourced ErrorInfo instead of
// crossing the Connection boundary.
func (c *Connection) execute(ctx context.Context, operation string, args []WireArg, kind ConnectorKind) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.transport.Execute(ctx, operation, args, kind)
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("transport panic: %v", p.value)
}

// classifyDispatchError maps a dispatch failure onto the error taxonomy:
// a Fault is a wire error, a panic is a code error, anything else is a
// transport-layer failure.
func classifyDispatchError(err error) *types.ErrorInfo {
	var fault *Fault
	if errors.As(err, &fault) {
		return &types.ErrorInfo{
			Source:  types.SourceWire,
			Message: fault.Message,
			Detail:  fault.Detail,
		}
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return &types.ErrorInfo{
			Source:  types.SourceCode,
			Message: pe.Error(),
		}
	}
	return &types.ErrorInfo{
		Source:  types.SourceTransport,
		Message: err.Error(),
	}
}

// handleError finalizes an ErrorInfo: stamps it, infers the temporary flag
// for eligible sources when the producer has not classified it, merges it
// into the last-call record without touching the operation identity, and
// pushes it through the configured report sinks.
func (c *Connection) handleError(info *types.ErrorInfo) error {
	if info.Time.IsZero() {
		info.Time = time.Now()
	}
	if !info.Temporary &&
		(info.Source == types.SourceWire || info.Source == types.SourceTransport) {
		if _, ok := MatchTransient(c.sigTable, info.Message); ok {
			info.Temporary = true
		}
	}
	c.last.Err = info
	c.report(info)
	return &CallError{Info: *info}
}

// normalizeArgs merges the operation-kind defaults, folds filters and
// options into their wire fragments, and strips normalization-only keys.
// It returns the normalized argument map (as recorded on the CallRecord)
// and the ordered wire arguments.
func (c *Connection) normalizeArgs(operation string, args Args, kind ConnectorKind) (map[string]any, []WireArg, *types.ErrorInfo) {
	normalized := make(map[string]any, len(args)+2)
	for k, v := range args {
		normalized[k] = v
	}

	switch kind {
	case KindRetrieval:
		if _, ok := normalized[argConnectorID]; !ok {
			return nil, nil, &types.ErrorInfo{
				Source:  types.SourceCall,
				Message: fmt.Sprintf("retrieval operation %s requires %s", operation, argConnectorID),
			}
		}
		operator, _ := normalized[argOperator].(string)
		_, fragment, err := NormalizeFilters(normalized[argFilters], operator)
		if err != nil {
			return nil, nil, &types.ErrorInfo{
				Source:  types.SourceCall,
				Message: err.Error(),
			}
		}
		if fragment != "" {
			normalized["Filters"] = fragment
		}
		opts := outputOptionsFromArgs(normalized[argOptions])
		normalized["options"] = opts.Fragment()
	case KindReport:
		if _, ok := normalized[argReportID]; !ok {
			return nil, nil, &types.ErrorInfo{
				Source:  types.SourceCall,
				Message: fmt.Sprintf("report operation %s requires %s", operation, argReportID),
			}
		}
	case KindAttachment:
		if _, ok := normalized[argSubjectID]; !ok {
			return nil, nil, &types.ErrorInfo{
				Source:  types.SourceCall,
				Message: fmt.Sprintf("attachment operation %s requires %s", operation, argSubjectID),
			}
		}
	case KindSchema:
		target, _ := normalized["operation"].(string)
		if target == "" {
			target = operation
		}
		normalized[argSchemaBody] = fmt.Sprintf(schemaRequestTemplate, escapeXML(target))
		delete(normalized, "operation")
	}

	delete(normalized, argFilters)
	delete(normalized, argOperator)
	delete(normalized, argOptions)

	return normalized, buildWireArgs(normalized), nil
}

// outputOptionsFromArgs resolves the caller's options_array value. Accepts
// an OutputOptions value or a map with Outputmode / Metadata /
// Outputoptions keys; anything else gets the defaults.
func outputOptionsFromArgs(raw any) OutputOptions {
	switch v := raw.(type) {
	case OutputOptions:
		return v
	case map[string]any:
		opts := DefaultOutputOptions()
		if n, ok := toInt(v["Outputmode"]); ok {
			opts.Mode = n
		}
		if n, ok := toInt(v["Metadata"]); ok {
			opts.Metadata = n
		}
		if n, ok := toInt(v["Outputoptions"]); ok {
			opts.Detail = n
		}
		return opts
	default:
		return DefaultOutputOptions()
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// wireArgPriority fixes the position of well-known arguments at the front
// of the wire call; everything else follows alphabetically.
var wireArgPriority = []string{argConnectorID, argReportID, argSubjectID, argSchemaBody, "Filters", "options"}

func buildWireArgs(normalized map[string]any) []WireArg {
	taken := make(map[string]bool, len(normalized))
	var args []WireArg
	for _, k := range wireArgPriority {
		if v, ok := normalized[k]; ok {
			args = append(args, WireArg{Name: k, Value: fmt.Sprint(v)})
			taken[k] = true
		}
	}
	rest := make([]string, 0, len(normalized))
	for k := range normalized {
		if !taken[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		args = append(args, WireArg{Name: k, Value: fmt.Sprint(normalized[k])})
	}
	return args
}
