package fetchq

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/adamwoolhether/fetchq/limit"
)

// deliveryMode selects which discipline fires exactly once when a job
// completes.
type deliveryMode int

const (
	modeCallback deliveryMode = iota + 1
	modeSync
	modeStream
)

// job is the unit of work: one admitted request with its resolved
// options, limits, delivery variant, and accumulated response state.
// It is exclusively owned by its worker from dispatch until release.
type job struct {
	id     string
	url    string
	method string
	body   []byte

	mode     deliveryMode
	onResult func(Result)
	handle   *syncHandle
	onChunk  func([]byte)
	onDone   func(StreamResult)

	timeout          time.Duration
	headers          Headers // resolved, order preserved
	followRedirects  bool
	skipTLSNameCheck bool

	// buffered accumulation
	bodyBuf     *limit.BodyBuffer
	hdrBudget   *limit.HeaderBudget
	recvHeaders Headers

	// streaming accumulation
	gate *limit.StreamGate

	status int
}

// newJob resolves request options against the scheduler defaults and
// builds the job. The admission slot is not yet held at this point.
func (s *Scheduler) newJob(rawURL, method string, body []byte, mode deliveryMode, optFns []RequestOption) (*job, error) {
	opts := requestOpts{allowRedirects: true}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, err
		}
	}

	j := &job{
		id:               uuid.New().String(),
		url:              rawURL,
		method:           method,
		body:             body,
		mode:             mode,
		timeout:          s.cfg.DefaultTimeout,
		followRedirects:  opts.allowRedirects && s.cfg.FollowRedirects,
		skipTLSNameCheck: opts.skipTLSNameCheck || s.cfg.SkipTLSNameCheck,
	}
	if opts.timeout > 0 {
		j.timeout = opts.timeout
	}

	j.hdrBudget = limit.NewHeaderBudget(limit.Resolve(opts.maxHeaderBytes, s.cfg.MaxHeaderBytes))

	if mode == modeStream {
		// Streaming defaults to unbounded unless the request sets a cap;
		// the scheduler-wide body default applies to buffered mode only.
		j.gate = limit.NewStreamGate(limit.Bytes(opts.maxBodyBytes))
	} else {
		j.bodyBuf = limit.NewBodyBuffer(limit.Resolve(opts.maxBodyBytes, s.cfg.MaxBodyBytes))
	}

	j.headers = resolveHeaders(s.cfg, method, mode, opts)

	return j, nil
}

// resolveHeaders injects the default User-Agent, and Content-Type for
// buffered POSTs, only when the caller did not supply those names
// (case-insensitively). Caller headers follow verbatim, permitting
// override or duplication.
func resolveHeaders(cfg Config, method string, mode deliveryMode, opts requestOpts) Headers {
	var hs Headers

	if cfg.UserAgent != "" && !opts.headers.Has("User-Agent") {
		hs = append(hs, Header{Name: "User-Agent", Value: cfg.UserAgent})
	}

	contentType := opts.contentType
	if contentType == "" {
		contentType = cfg.ContentType
	}
	if mode != modeStream && method == http.MethodPost && contentType != "" && !opts.headers.Has("Content-Type") {
		hs = append(hs, Header{Name: "Content-Type", Value: contentType})
	}

	return append(hs, opts.headers...)
}

// OnHeader implements EventSink. A header is accepted whole or dropped
// whole against the aggregate budget; a drop flags truncation for the
// rest of the job.
func (j *job) OnHeader(name, value string) {
	if !j.hdrBudget.Admit(name, value) {
		return
	}
	if j.mode != modeStream {
		j.recvHeaders = append(j.recvHeaders, Header{Name: name, Value: value})
	}
}

// OnData implements EventSink. Buffered jobs accumulate up to the body
// budget; streaming jobs forward the permitted prefix to the chunk
// sink and abort the interaction once the budget is violated.
func (j *job) OnData(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	if j.mode == modeStream {
		forward, err := j.gate.Clip(p)
		if len(forward) > 0 {
			j.onChunk(forward)
			j.gate.Advance(len(forward))
		}
		return err
	}

	j.bodyBuf.Write(p)

	return nil
}

// runJob covers Running through Released: the transport interaction,
// result synthesis, delivery, and the unconditional slot release.
func (s *Scheduler) runJob(j *job) {
	defer s.active.Done()
	defer s.slots.Release(1)

	start := time.Now()

	ctx, span := s.startSpan(context.Background(), "fetchq.job",
		attribute.String("job.id", j.id),
		attribute.String("http.url", j.url),
		attribute.String("http.method", j.method),
	)
	defer span.End()

	var runErr error
	if runErr = s.gate.Wait(ctx); runErr == nil {
		treq := &TransportRequest{
			URL:              j.url,
			Method:           j.method,
			Timeout:          j.timeout,
			Headers:          j.headers,
			Body:             j.body,
			FollowRedirects:  j.followRedirects,
			SkipTLSNameCheck: j.skipTLSNameCheck,
		}
		j.status, runErr = s.transport.RoundTrip(ctx, treq, j)
	}

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("http.status_code", j.status))

	if j.mode == modeStream {
		sr := StreamResult{
			ID:       j.id,
			Status:   j.status,
			Received: j.gate.Received(),
			Err:      classifyError(runErr),
		}
		if j.onDone != nil {
			j.onDone(sr)
		}
		s.logger.Debug("stream complete", "id", j.id, "url", j.url,
			"status", sr.Status, "received", sr.Received, "duration", elapsed.Round(time.Millisecond))
		return
	}

	res := buildResult(j, runErr, elapsed)
	j.deliver(res)
	s.logger.Debug("fetch complete", "id", j.id, "url", j.url,
		"status", res.Status, "ok", res.OK, "duration", elapsed.Round(time.Millisecond))
}

// deliver fires the job's delivery discipline exactly once.
func (j *job) deliver(res Result) {
	switch j.mode {
	case modeCallback:
		if j.onResult != nil {
			j.onResult(res)
		}
	case modeSync:
		j.handle.complete(res)
	}
}

// syncHandle is shared between the original caller and the worker for
// blocking-wait delivery. The worker stores the result and flips ready
// before closing done; a caller whose wait expired can still trust the
// result whenever ready reports true. Both sides hold plain pointers,
// so the handle outlives whichever drops it first.
type syncHandle struct {
	done   chan struct{}
	ready  atomic.Bool
	result Result
}

func newSyncHandle() *syncHandle {
	return &syncHandle{done: make(chan struct{})}
}

// complete stores the result and signals the waiter. It must be called
// at most once.
func (h *syncHandle) complete(res Result) {
	h.result = res
	h.ready.Store(true)
	close(h.done)
}

// await blocks until the worker signals or wait elapses. The ready
// check takes precedence over the timer: a result that landed as the
// timer fired is still returned.
func (h *syncHandle) await(wait time.Duration) (Result, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
	}

	if h.ready.Load() {
		return h.result, true
	}

	return Result{}, false
}
