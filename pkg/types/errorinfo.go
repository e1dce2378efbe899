package types

import "time"

// ErrorSource classifies where a failure originated. The source decides how
// the failure is handled: code errors are always surfaced and never retried,
// call and config errors are rejected before dispatch, and only wire and
// transport errors are eligible for temporary classification.
type ErrorSource int

const (
	// SourceCode marks a programming or contract violation.
	SourceCode ErrorSource = iota
	// SourceCall marks bad caller input rejected before dispatch.
	SourceCall
	// SourceConfig marks missing required configuration.
	SourceConfig
	// SourceWire marks a protocol or service-layer fault.
	SourceWire
	// SourceTransport marks a connection or timeout-layer fault.
	SourceTransport
)

// String returns the short name of the source.
func (s ErrorSource) String() string {
	switch s {
	case SourceCode:
		return "code"
	case SourceCall:
		return "call"
	case SourceConfig:
		return "config"
	case SourceWire:
		return "wire"
	case SourceTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ErrorInfo is the structured record of one failure. Temporary is inferred
// from a table of known transient-failure signatures when the producer did
// not classify the error itself; that inference is best-effort and may mark
// a permanent error as temporary.
type ErrorInfo struct {
	Source     ErrorSource
	Message    string
	Preescaped bool // Message is already markup-escaped for the user sink.
	Detail     string
	Temporary  bool
	Time       time.Time
}

// CallRecord describes the most recent call on a Connection: the operation,
// its normalized arguments, and any failure. A new call overwrites the
// operation and arguments; error fields are merged in by the error handler
// so that an error raised after the call (a post-call validation failure,
// for example) still carries the operation it belongs to.
type CallRecord struct {
	Operation string
	Arguments map[string]any
	Err       *ErrorInfo
}
