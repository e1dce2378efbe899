package stock

import (
	"context"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
	"github.com/dukaforge/stocklink/internal/metrics"
	"github.com/dukaforge/stocklink/pkg/types"
)

// fetchWithRetry fetches a connector's rows with the bounded retry loop.
// Only a transport failure carrying the known timeout signature is retried,
// and only while attempts remain; every other failure aborts immediately.
// There is no backoff between attempts: the remote system's own server-side
// timeout dominates the latency either way.
func fetchWithRetry(ctx context.Context, fetcher *erp.Fetcher, jobName, connector string, filters any, tries int, logger *zap.Logger) ([]types.Row, error) {
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		rows, err := fetcher.Table(ctx, connector, filters, nil)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		info, ok := erp.AsCallError(err)
		retryable := ok &&
			info.Temporary &&
			info.Source == types.SourceTransport &&
			erp.IsTimeout(info.Message)
		if !retryable || attempt == tries {
			return nil, lastErr
		}

		metrics.RetriesTotal.WithLabelValues(jobName).Inc()
		logger.Warn("fetch timed out, retrying",
			zap.String("connector", connector),
			zap.Int("attempt", attempt),
			zap.Int("tries", tries),
		)
	}
	return nil, lastErr
}
