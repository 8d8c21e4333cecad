package service

import (
	"context"
	"time"

	"gps-fleet-api-server/internal/isolate"

	"go.uber.org/zap"
)

// runSideEffect runs a best-effort step detached from request cancellation
// and logs it when it fails.
func runSideEffect(ctx context.Context, logger *zap.Logger, timeout time.Duration, step string, fields []zap.Field, fn func(ctx context.Context) error) isolate.Outcome {
	outcome := isolate.Run(context.WithoutCancel(ctx), step, timeout, fn)
	if !outcome.OK() {
		logger.Warn("Side effect failed",
			append(fields,
				zap.String("step", outcome.Step),
				zap.Duration("elapsed", outcome.Elapsed),
				zap.Bool("timed_out", outcome.TimedOut),
				zap.Error(outcome.Err),
			)...,
		)
	}
	return outcome
}
