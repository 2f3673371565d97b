package fetchq

import "time"

// Config holds the scheduler-wide defaults. Zero-valued byte limits
// mean unbounded; a zero SlotAcquireWait makes admission fail fast when
// no slot is free. Per-request options override the defaults for a
// single job.
type Config struct {
	// MaxConcurrent caps how many admitted jobs may be mid-flight at
	// once. It must be greater than zero.
	MaxConcurrent int `json:"max_concurrent" validate:"gt=0"`

	// DefaultTimeout bounds a single transport interaction unless the
	// request overrides it. Zero means no timeout.
	DefaultTimeout time.Duration `json:"default_timeout" validate:"gte=0"`

	// MaxBodyBytes caps buffered response bodies. Zero means unbounded.
	MaxBodyBytes int `json:"max_body_bytes" validate:"gte=0"`

	// MaxHeaderBytes caps the aggregate name+value size of accepted
	// response headers. Zero means unbounded.
	MaxHeaderBytes int `json:"max_header_bytes" validate:"gte=0"`

	// SlotAcquireWait bounds how long a request waits for an admission
	// slot before failing. Zero fails fast.
	SlotAcquireWait time.Duration `json:"slot_acquire_wait" validate:"gte=0"`

	// SkipTLSNameCheck disables server certificate verification for
	// every request. A request can also opt in individually.
	SkipTLSNameCheck bool `json:"skip_tls_name_check"`

	// FollowRedirects lets the transport follow redirects. A request
	// can opt out individually but cannot re-enable it when the
	// scheduler default is off.
	FollowRedirects bool `json:"follow_redirects"`

	// UserAgent is applied when the caller did not supply a User-Agent
	// header of their own.
	UserAgent string `json:"user_agent"`

	// ContentType is applied to buffered POST requests when the caller
	// supplied neither a Content-Type header nor a per-request
	// override.
	ContentType string `json:"content_type"`
}

// DefaultConfig returns the stock configuration: 4 concurrent slots,
// 15s timeout, 16KiB body and 4KiB header budgets, fail-fast admission.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:   4,
		DefaultTimeout:  15 * time.Second,
		MaxBodyBytes:    16 << 10,
		MaxHeaderBytes:  4 << 10,
		SlotAcquireWait: 0,
		FollowRedirects: true,
		UserAgent:       "fetchq/1.0",
		ContentType:     "application/json",
	}
}
