package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes buffered logs before process exit. Prometheus is pull-based,
// so metrics need no flush. Call after in-flight trip requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
