package fetchq

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/adamwoolhether/fetchq/limit"
	"github.com/adamwoolhether/fetchq/throttle"
)

var (
	// ErrNotInitialized is returned when a fetch method is called on a
	// nil scheduler.
	ErrNotInitialized = errors.New("fetch scheduler not initialized")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("fetch scheduler closed")
	// ErrNoSlots is returned when no admission slot frees up within the
	// configured wait bound.
	ErrNoSlots = errors.New("no available fetch slots")
	// ErrMissingURL is returned for an empty request URL. Admission
	// state is never touched in this case.
	ErrMissingURL = errors.New("url is empty")
	// ErrMissingChunkSink is returned when GetStream is called without
	// an onChunk sink.
	ErrMissingChunkSink = errors.New("stream requests require an onChunk sink")
	// ErrSpawnFailed wraps a Spawner rejection. The admission slot is
	// released before it is returned.
	ErrSpawnFailed = errors.New("failed to spawn fetch worker")
)

// Error codes carried in [ResultError.Code]. Transport failures are
// classified into these; they are reported inside the delivered result,
// never returned from the original call.
const (
	CodeTimeout      = "timeout"
	CodeConnect      = "connect"
	CodeTLS          = "tls"
	CodeSizeExceeded = "size_exceeded"
	CodeCanceled     = "canceled"
	CodeThrottled    = "throttled"
	CodeProtocol     = "protocol"
	CodeFailedStart  = "failed_start"
)

// ResultError carries a classified error code and a human-readable
// message inside a delivered result. A nil *ResultError marshals as
// JSON null, matching the no-error case.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ResultError) Error() string {
	return e.Code + ": " + e.Message
}

// classifyError maps a worker-side failure to a ResultError. A nil err
// returns nil.
func classifyError(err error) *ResultError {
	if err == nil {
		return nil
	}

	code := CodeProtocol
	switch {
	case errors.Is(err, limit.ErrExceeded):
		code = CodeSizeExceeded
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, context.Canceled):
		code = CodeCanceled
	case errors.Is(err, throttle.ErrWaitingFailed), errors.Is(err, throttle.ErrContextEnded):
		code = CodeThrottled
	case isTimeout(err):
		code = CodeTimeout
	case isTLS(err):
		code = CodeTLS
	case isConnect(err):
		code = CodeConnect
	}

	return &ResultError{Code: code, Message: err.Error()}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTLS(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var recErr tls.RecordHeaderError
	return errors.As(err, &recErr)
}

func isConnect(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
