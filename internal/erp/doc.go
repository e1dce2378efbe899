// Package erp implements the remote-call abstraction for the ERP system:
// connection configuration, request-argument normalization (including the
// filter-expression forms), dispatch through a pluggable Transport, payload
// shaping, and structured error classification.
//
// The package never panics across its boundary and does not retry; expected
// failures come back as a *CallError carrying a types.ErrorInfo, and retry
// policy belongs to the caller.
package erp
