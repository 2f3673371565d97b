package fetchq

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

// readChunkSize is the worker-side read buffer. Streaming mode never
// holds more than one chunk of this size inside the scheduler.
const readChunkSize = 4 << 10 // 4KB

// TransportRequest carries everything the scheduler hands to a
// [Transport] for one interaction.
type TransportRequest struct {
	URL              string
	Method           string
	Timeout          time.Duration
	Headers          Headers
	Body             []byte
	FollowRedirects  bool
	SkipTLSNameCheck bool
}

// EventSink receives transport events in the order they are produced.
// A non-nil error from OnData aborts the interaction.
type EventSink interface {
	OnHeader(name, value string)
	OnData(p []byte) error
}

// Transport performs a single HTTP interaction, feeding header and
// body events into the sink as they arrive, and returns the final HTTP
// status and transport error. Implementations must deliver all header
// events before the first data event.
type Transport interface {
	RoundTrip(ctx context.Context, req *TransportRequest, sink EventSink) (status int, err error)
}

// httpTransport is the default Transport built on [net/http]. Each
// interaction uses its own http.Client; connection reuse across
// requests is out of scope.
type httpTransport struct {
	logFn func() *slog.Logger
}

func (t httpTransport) RoundTrip(ctx context.Context, req *TransportRequest, sink EventSink) (int, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return 0, fmt.Errorf("instantiating request: %w", err)
	}

	for _, h := range req.Headers {
		hr.Header.Add(h.Name, h.Value)
	}

	client := &http.Client{}
	if !req.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	if req.SkipTLSNameCheck {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // pass-through flag, caller opted in
		client.Transport = transport
	}

	resp, err := client.Do(hr)
	if err != nil {
		return 0, fmt.Errorf("transport do: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logFn().Error("failed to close response body", "error", err)
		}
	}()

	// net/http hands headers back as a map; sort names so event order
	// is stable for the accumulator.
	for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, value := range resp.Header[name] {
			sink.OnHeader(name, value)
		}
	}

	buf := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if sinkErr := sink.OnData(buf[:n]); sinkErr != nil {
				return resp.StatusCode, sinkErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return resp.StatusCode, fmt.Errorf("reading response body: %w", readErr)
		}
	}

	return resp.StatusCode, nil
}
