package fetchq

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/fetchq/throttle"
)

// Option is a functional option for configuring a [Scheduler] via [New].
type Option func(*options) error

type options struct {
	logger    *slog.Logger
	transport Transport
	spawner   Spawner
	tracer    trace.Tracer
	throttle  *throttleConfig
}

type throttleConfig struct {
	rps   int
	burst int
}

// WithLogger injects a custom [slog.Logger] into the [Scheduler].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTransport replaces the default net/http-backed [Transport].
func WithTransport(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport must not be nil")
		}
		o.transport = t
		return nil
	}
}

// WithSpawner replaces the default goroutine [Spawner].
func WithSpawner(sp Spawner) Option {
	return func(o *options) error {
		if sp == nil {
			return errors.New("spawner must not be nil")
		}
		o.spawner = sp
		return nil
	}
}

// WithTracer sets the tracer used for per-job spans. The default is a
// noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of workers with the
// given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// RequestOption is a functional option applied to a single request.
// Options are immutable once the job starts.
type RequestOption func(*requestOpts) error

type requestOpts struct {
	timeout          time.Duration
	maxBodyBytes     int
	maxHeaderBytes   int
	skipTLSNameCheck bool
	allowRedirects   bool
	headers          Headers
	contentType      string
}

// WithTimeout overrides the scheduler's default timeout for this
// request.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOpts) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = d
		return nil
	}
}

// WithMaxBodyBytes overrides the body byte budget for this request.
// For buffered requests excess bytes are truncated; for streaming
// requests the interaction aborts once n bytes have been forwarded.
func WithMaxBodyBytes(n int) RequestOption {
	return func(o *requestOpts) error {
		if n <= 0 {
			return errors.New("max body bytes must be greater than zero")
		}
		o.maxBodyBytes = n
		return nil
	}
}

// WithMaxHeaderBytes overrides the aggregate header byte budget for
// this request.
func WithMaxHeaderBytes(n int) RequestOption {
	return func(o *requestOpts) error {
		if n <= 0 {
			return errors.New("max header bytes must be greater than zero")
		}
		o.maxHeaderBytes = n
		return nil
	}
}

// WithSkipTLSNameCheck disables server certificate verification for
// this request.
func WithSkipTLSNameCheck() RequestOption {
	return func(o *requestOpts) error {
		o.skipTLSNameCheck = true
		return nil
	}
}

// WithNoFollowRedirects prevents the transport from following
// redirects for this request.
func WithNoFollowRedirects() RequestOption {
	return func(o *requestOpts) error {
		o.allowRedirects = false
		return nil
	}
}

// WithHeader appends one extra request header. Headers are sent
// verbatim in the order supplied, after any injected defaults; a
// caller-supplied User-Agent or Content-Type suppresses the default.
func WithHeader(name, value string) RequestOption {
	return func(o *requestOpts) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		o.headers = append(o.headers, Header{Name: name, Value: value})
		return nil
	}
}

// WithContentType overrides the scheduler's default Content-Type for a
// buffered POST request.
func WithContentType(contentType string) RequestOption {
	return func(o *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}
		o.contentType = contentType
		return nil
	}
}
