package erp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/pkg/types"
)

// ReportLevel controls how much of an error one sink receives.
type ReportLevel int

const (
	ReportOff ReportLevel = iota
	ReportBrief
	ReportDetailed
)

// ReportConfig selects, independently per sink, how errors are surfaced.
// The structured-log sink and the user-facing sink each have their own
// level; detailed is additive over brief.
type ReportConfig struct {
	Log  ReportLevel
	User ReportLevel
}

// report pushes one classified error through the configured sinks.
func (c *Connection) report(info *types.ErrorInfo) {
	if c.reportCfg.Log >= ReportBrief && c.logger != nil {
		fields := []zap.Field{
			zap.String("source", info.Source.String()),
			zap.String("operation", c.last.Operation),
			zap.Bool("temporary", info.Temporary),
		}
		if c.reportCfg.Log >= ReportDetailed && info.Detail != "" {
			fields = append(fields, zap.String("detail", info.Detail))
		}
		c.logger.Error(info.Message, fields...)
	}

	if c.reportCfg.User >= ReportBrief && c.userSink != nil {
		fmt.Fprintf(c.userSink, "error (%s): %s\n", info.Source, info.Message)
		if c.reportCfg.User >= ReportDetailed && info.Detail != "" {
			fmt.Fprintln(c.userSink, info.Detail)
		}
	}
}
