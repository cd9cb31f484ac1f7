package release

import (
	"context"
	"log/slog"
	"time"
)

// DefaultIndexingDelay is how long to wait after confirmation before asking
// the explorer to verify. Explorer indexing latency is not observable, so
// this is a heuristic.
const DefaultIndexingDelay = 120 * time.Second

// Sleeper blocks for d. It returns early only when ctx is cancelled, which
// happens when the process is being terminated.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DelayGate returns a step that waits the full delay and passes the
// deployment result through unchanged.
func DelayGate(delay time.Duration, sleep Sleeper, logger *slog.Logger) Step[*DeploymentResult, *DeploymentResult] {
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, res *DeploymentResult) (*DeploymentResult, error) {
		logger.Info("waiting for explorer indexing before verification",
			slog.String("address", res.Address),
			slog.Duration("delay", delay),
		)

		if err := sleep(ctx, delay); err != nil {
			return nil, &InfrastructureError{Op: "indexing delay interrupted", Err: err}
		}
		return res, nil
	}
}
