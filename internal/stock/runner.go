package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/pkg/types"
)

// Runner drives a batch job through its phases: Init once, ProcessItem for
// every produced item in order, Finish once. An Init failure is terminal and
// becomes the run's result; a ProcessItem failure is logged and the run
// continues with the remaining items.
type Runner struct {
	logger *zap.Logger
}

// NewRunner builds a runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes one batch run and returns its summary.
func (r *Runner) Run(ctx context.Context, name string, job types.Job) (string, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	logger := r.logger.With(zap.String("job", name), zap.String("run_id", runID))
	logger.Info("run starting")

	items, err := job.Init(ctx)
	if err != nil {
		logger.Error("run init failed", zap.Error(err))
		return "", fmt.Errorf("%s init: %w", name, err)
	}

	failed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%s interrupted: %w", name, err)
		}
		if err := job.ProcessItem(ctx, item); err != nil {
			failed++
			logger.Warn("item failed", zap.String("key", item.Key), zap.Error(err))
		}
	}

	summary, err := job.Finish(ctx)
	if err != nil {
		logger.Error("run finish failed", zap.Error(err))
		return "", fmt.Errorf("%s finish: %w", name, err)
	}
	if failed > 0 {
		summary = fmt.Sprintf("%s, %d item(s) failed", summary, failed)
	}
	logger.Info("run finished", zap.Int("items", len(items)), zap.String("summary", summary))
	return summary, nil
}
