package erp

import (
	"context"
	"time"

	"github.com/dukaforge/stocklink/pkg/types"
)

// FetchMode selects one of the retrieval patterns. Each mode maps to one
// fixed remote operation and one required argument key.
type FetchMode int

const (
	ModeTable FetchMode = iota
	ModeTableRaw
	ModeReport
	ModeAttachment
	ModeSchema
)

// Fixed operation names per mode.
const (
	opGetDataSet       = "GetDataSet"
	opGetReport        = "GetReport"
	opGetAttachment    = "GetAttachment"
	opGetDataSetSchema = "GetDataSetSchema"
)

// String returns the mode tag.
func (m FetchMode) String() string {
	switch m {
	case ModeTable:
		return "tabular"
	case ModeTableRaw:
		return "tabular-raw"
	case ModeReport:
		return "report"
	case ModeAttachment:
		return "attachment"
	case ModeSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// FetchResult is the shaped outcome of a fetch: rows for tabular mode, the
// raw payload otherwise.
type FetchResult struct {
	Rows    []types.Row
	Payload []byte
	Record  types.CallRecord
}

// Fetch is the higher-level convenience over Call: it selects the remote
// operation for the mode, wires the data identifier into the required
// argument, and shapes the payload. Tabular mode parses rows; tabular-raw
// returns the payload untouched.
func (c *Connection) Fetch(ctx context.Context, dataID string, filters any, mode FetchMode, extra Args) (*FetchResult, error) {
	args := make(Args, len(extra)+2)
	for k, v := range extra {
		args[k] = v
	}

	var operation string
	var kind ConnectorKind
	switch mode {
	case ModeTable, ModeTableRaw:
		operation, kind = opGetDataSet, KindRetrieval
		args[argConnectorID] = dataID
		if filters != nil {
			args[argFilters] = filters
		}
	case ModeReport:
		operation, kind = opGetReport, KindReport
		args[argReportID] = dataID
	case ModeAttachment:
		operation, kind = opGetAttachment, KindAttachment
		args[argSubjectID] = dataID
	case ModeSchema:
		operation, kind = opGetDataSetSchema, KindSchema
		args["operation"] = dataID
	default:
		return nil, c.handleError(&types.ErrorInfo{
			Source:  types.SourceCall,
			Message: "unknown fetch mode",
		})
	}

	opts := outputOptionsFromArgs(args[argOptions])

	res, err := c.Call(ctx, operation, args, kind)
	if err != nil {
		return nil, err
	}

	// Text output is rejected only after the call: the wire cost has been
	// incurred either way and the record must show the attempted operation.
	if (mode == ModeTable || mode == ModeTableRaw) && opts.Mode == OutputModeText {
		return nil, c.handleError(&types.ErrorInfo{
			Source:  types.SourceCall,
			Message: "text output mode is not supported",
		})
	}

	out := &FetchResult{Payload: res.Payload, Record: res.Record}
	if mode == ModeTable {
		rows, perr := ParseRows(res.Payload)
		if perr != nil {
			return nil, c.handleError(&types.ErrorInfo{
				Source:  types.SourceWire,
				Message: perr.Error(),
			})
		}
		out.Rows = rows
	}
	return out, nil
}

// Fetcher is the typed convenience layer used by the aggregation engine.
type Fetcher struct {
	conn *Connection
}

// NewFetcher wraps a Connection.
func NewFetcher(conn *Connection) *Fetcher {
	return &Fetcher{conn: conn}
}

// Table fetches a connector's records as parsed rows.
func (f *Fetcher) Table(ctx context.Context, connectorID string, filters any, extra Args) ([]types.Row, error) {
	res, err := f.conn.Fetch(ctx, connectorID, filters, ModeTable, extra)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// TableRaw fetches a connector's records as the unparsed payload.
func (f *Fetcher) TableRaw(ctx context.Context, connectorID string, filters any, extra Args) ([]byte, error) {
	res, err := f.conn.Fetch(ctx, connectorID, filters, ModeTableRaw, extra)
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// Report fetches a rendered report payload.
func (f *Fetcher) Report(ctx context.Context, reportID string, extra Args) ([]byte, error) {
	res, err := f.conn.Fetch(ctx, reportID, nil, ModeReport, extra)
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// Attachment fetches a binary attachment for a subject.
func (f *Fetcher) Attachment(ctx context.Context, subjectID string) ([]byte, error) {
	res, err := f.conn.Fetch(ctx, subjectID, nil, ModeAttachment, nil)
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// Schema fetches the schema metadata of an operation. Results are cached on
// the Connection for the configured TTL; a zero TTL disables caching.
func (f *Fetcher) Schema(ctx context.Context, operation string) ([]byte, error) {
	ttl := f.conn.cfg.SchemaCacheTTL
	if ttl > 0 {
		if entry, ok := f.conn.schemaCache[operation]; ok && time.Since(entry.fetched) < ttl {
			return entry.payload, nil
		}
	}
	res, err := f.conn.Fetch(ctx, operation, nil, ModeSchema, nil)
	if err != nil {
		return nil, err
	}
	if ttl > 0 {
		f.conn.schemaCache[operation] = schemaEntry{payload: res.Payload, fetched: time.Now()}
	}
	return res.Payload, nil
}
