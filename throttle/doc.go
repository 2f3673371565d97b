// Package throttle provides a token-bucket gate that rate-limits
// scheduler workers using [golang.org/x/time/rate].
//
// # Usage
//
// Create a [Gate] and have each worker wait on it before starting its
// transport interaction:
//
//	gate, err := throttle.NewGate(
//		10,  // requests per second
//		5,   // burst capacity
//		func() *slog.Logger { return slog.Default() },
//	)
//	...
//	if err := gate.Wait(ctx); err != nil { ... }
//
// When the bucket is exhausted, Wait blocks until a token becomes
// available or the context is cancelled.
package throttle
