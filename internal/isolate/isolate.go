// Package isolate runs best-effort side effects (mirror writes, broadcasts,
// device pushes) in their own failure domain. A step never returns an error to
// its caller; it returns an Outcome that the caller logs and discards.
package isolate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome describes how a best-effort step ended.
type Outcome struct {
	Step     string
	Err      error
	Elapsed  time.Duration
	TimedOut bool
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Run executes fn with a context bounded by timeout. fn runs on its own
// goroutine so that a call ignoring ctx still cannot hold the caller past the
// deadline. Panics inside fn are recovered into Outcome.Err.
func Run(ctx context.Context, step string, timeout time.Duration, fn func(ctx context.Context) error) Outcome {
	start := time.Now()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s panicked: %v", step, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		return Outcome{
			Step:     step,
			Err:      err,
			Elapsed:  time.Since(start),
			TimedOut: err != nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded),
		}
	case <-stepCtx.Done():
		return Outcome{
			Step:     step,
			Err:      fmt.Errorf("%s: %w", step, stepCtx.Err()),
			Elapsed:  time.Since(start),
			TimedOut: errors.Is(stepCtx.Err(), context.DeadlineExceeded),
		}
	}
}
