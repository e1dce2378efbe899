// Package types defines the shared data model for stocklink: connection
// configuration, call and error records, canonical filters, stock values,
// the entity-store contract, and the batch-job surface consumed by the
// runner and the CLI.
package types
