package instrument

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reactir/internal/config"
	"reactir/internal/logging"
)

// Dial connects to the configured endpoint, retrying up to ConnectAttempts
// times with ConnectDelay between attempts.
func Dial(ctx context.Context, cfg config.Instrument, logger *slog.Logger) (*OPCUALink, error) {
	logger = logging.NewComponentLogger(logger, "instrument")
	return dialWith(ctx, cfg, logger, func(ctx context.Context) (*OPCUALink, error) {
		return newOPCUALink(ctx, cfg.Endpoint, cfg.RequestTimeout.Std(), logger)
	})
}

func dialWith[L any](ctx context.Context, cfg config.Instrument, logger *slog.Logger, connect func(context.Context) (L, error)) (L, error) {
	var zero L
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.ConnectDelay.Std()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		link, err := connect(ctx)
		if err == nil {
			logger.Info("instrument connected",
				logging.String("endpoint", cfg.Endpoint),
				logging.Int("attempt", attempt),
			)
			return link, nil
		}
		lastErr = err
		logger.Warn("instrument connection attempt failed",
			logging.String("endpoint", cfg.Endpoint),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldEventType, "connect_attempt_failed"),
		)
		if attempt == attempts {
			break
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Endpoint, attempts, lastErr)
}
