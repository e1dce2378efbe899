// Shared helpers for stocklink CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/internal/store"
)

// buildFetcher builds a connection against the configured endpoint and wraps
// it in a fetcher. Errors reported to the user on stderr are brief; the log
// carries the detail.
func buildFetcher() (*erp.Fetcher, error) {
	ccfg := connectionConfig()
	transport, err := erp.NewTransport(ccfg)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	conn, err := erp.New(ccfg, transport,
		erp.WithLogger(logger),
		erp.WithUserSink(os.Stderr),
		erp.WithReportConfig(erp.ReportConfig{Log: erp.ReportDetailed, User: erp.ReportBrief}),
	)
	if err != nil {
		return nil, err
	}
	return erp.NewFetcher(conn), nil
}

// attachStore resolves the data directory and attaches the SQLite backend.
// The caller must defer backend.Detach().
func attachStore() (*store.Backend, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	backend := store.NewBackend()
	if err := backend.Attach(dataDir); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return backend, nil
}
