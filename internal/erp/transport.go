package erp

import (
	"context"
	"fmt"

	"github.com/dukaforge/stocklink/pkg/types"
)

// ConnectorKind identifies the category of remote endpoint an operation
// addresses. The kind decides which default arguments Call merges in.
type ConnectorKind int

const (
	KindRetrieval ConnectorKind = iota
	KindUpdate
	KindReport
	KindAttachment
	KindSchema
)

// String returns the short name of the kind.
func (k ConnectorKind) String() string {
	switch k {
	case KindRetrieval:
		return "retrieval"
	case KindUpdate:
		return "update"
	case KindReport:
		return "report"
	case KindAttachment:
		return "attachment"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// WireArg is one ordered argument of a wire call. Values are already in
// their wire form (escaped XML fragments included).
type WireArg struct {
	Name  string
	Value string
}

// Transport performs the actual wire call. Implementations return the raw
// response payload or an error; a *Fault marks a structured service-layer
// fault, any other error is a connection or timeout-layer failure.
//
// Two interchangeable implementations exist: the native HTTP transport and
// the WSDL transport with manual NTLM authentication.
type Transport interface {
	Execute(ctx context.Context, operation string, args []WireArg, kind ConnectorKind) ([]byte, error)
}

// NewTransport selects the transport implementation for a configuration:
// the WSDL transport when the wire-mode flag is set, the native one
// otherwise.
func NewTransport(cfg types.ConnectionConfig) (Transport, error) {
	if cfg.UseWSDL {
		return NewWSDLTransport(cfg)
	}
	return NewHTTPTransport(cfg)
}

// Fault is a structured fault returned by the remote service layer.
type Fault struct {
	Message string
	Detail  string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Detail == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Message, f.Detail)
}
