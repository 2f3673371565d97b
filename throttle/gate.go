package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Gate restricts how often workers may start their transport
// interaction, using the time/rate token bucket limiter.
type Gate struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	logFn   func() *slog.Logger
}

// NewGate returns a Gate admitting rps requests per second with the
// given burst capacity. logFn lazily resolves the logger at wait time,
// making option ordering irrelevant. A nil-returning logFn skips the
// calls to *Limiter.Allow().
func NewGate(rps, burst int, logFn func() *slog.Logger) (*Gate, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		logFn:   logFn,
	}, nil
}

// Wait blocks until a token is available or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	var logger *slog.Logger
	if g.logFn != nil {
		logger = g.logFn()
	}
	if logger != nil && !g.limiter.Allow() {
		logger.Info("throttle tokens exhausted", "rate", g.rps, "burst", g.burst)

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", g.rps, "burst", g.burst)
		}()
	}

	start := time.Now()

	err := g.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}
