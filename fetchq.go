package fetchq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"

	"github.com/adamwoolhether/fetchq/throttle"
)

// Scheduler admits fetch requests against a fixed concurrency budget
// and runs each admitted job on its own worker. Independent Scheduler
// instances may coexist; there is no package-level state.
type Scheduler struct {
	cfg       Config
	logger    *slog.Logger
	transport Transport
	spawner   Spawner
	tracer    trace.Tracer
	gate      *throttle.Gate

	slots  *semaphore.Weighted
	active sync.WaitGroup
	closed atomic.Bool
}

// New builds a Scheduler from cfg and the given options. It fails when
// the config is invalid (MaxConcurrent must be greater than zero) or
// any option errors.
func New(cfg Config, optFns ...Option) (*Scheduler, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	s := &Scheduler{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer(""),
		slots:  semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
	s.transport = httpTransport{logFn: func() *slog.Logger { return s.logger }}
	s.spawner = goSpawner{}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying scheduler option: %w", err)
		}
	}

	if opts.logger != nil {
		s.logger = opts.logger
	}
	if opts.transport != nil {
		s.transport = opts.transport
	}
	if opts.spawner != nil {
		s.spawner = opts.spawner
	}
	if opts.tracer != nil {
		s.tracer = opts.tracer
	}
	if opts.throttle != nil {
		gate, err := throttle.NewGate(opts.throttle.rps, opts.throttle.burst, func() *slog.Logger { return s.logger })
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		s.gate = gate
	}

	return s, nil
}

// Close stops admitting new requests and blocks until every in-flight
// job has drained. It is safe to call more than once.
func (s *Scheduler) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.active.Wait()
}

// Get issues a buffered GET and invokes onResult with the synthesized
// result when the job completes. Transport failures are reported inside
// the result; the returned error covers admission and dispatch only.
func (s *Scheduler) Get(url string, onResult func(Result), opts ...RequestOption) error {
	if s == nil {
		return ErrNotInitialized
	}
	if url == "" {
		return ErrMissingURL
	}

	j, err := s.newJob(url, http.MethodGet, nil, modeCallback, opts)
	if err != nil {
		return err
	}
	j.onResult = onResult

	return s.enqueue(j)
}

// GetSync issues a buffered GET and blocks up to wait for the result.
// Failures to start, and waits that expire before the worker signals,
// return an error-shaped Result rather than blocking indefinitely.
func (s *Scheduler) GetSync(url string, wait time.Duration, opts ...RequestOption) Result {
	return s.fetchSync(url, http.MethodGet, nil, wait, opts)
}

// Post issues a buffered POST with payload serialized as JSON and
// invokes onResult when the job completes.
func (s *Scheduler) Post(url string, payload any, onResult func(Result), opts ...RequestOption) error {
	if s == nil {
		return ErrNotInitialized
	}
	if url == "" {
		return ErrMissingURL
	}

	body, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	j, err := s.newJob(url, http.MethodPost, body, modeCallback, opts)
	if err != nil {
		return err
	}
	j.onResult = onResult

	return s.enqueue(j)
}

// PostSync issues a buffered POST with payload serialized as JSON and
// blocks up to wait for the result.
func (s *Scheduler) PostSync(url string, payload any, wait time.Duration, opts ...RequestOption) Result {
	body, err := marshalPayload(payload)
	if err != nil {
		return errorResult(url, http.MethodPost, CodeFailedStart, fmt.Sprintf("encoding request payload: %v", err))
	}

	return s.fetchSync(url, http.MethodPost, body, wait, opts)
}

// GetStream issues a streaming GET. onChunk is invoked with each
// admitted body chunk as it arrives and must not retain the slice past
// its return; onDone, if non-nil, is invoked exactly once with the
// final status, error, and byte count. No body bytes are buffered by
// the scheduler.
func (s *Scheduler) GetStream(url string, onChunk func([]byte), onDone func(StreamResult), opts ...RequestOption) error {
	if s == nil {
		return ErrNotInitialized
	}
	if url == "" {
		return ErrMissingURL
	}
	if onChunk == nil {
		return ErrMissingChunkSink
	}

	j, err := s.newJob(url, http.MethodGet, nil, modeStream, opts)
	if err != nil {
		return err
	}
	j.onChunk = onChunk
	j.onDone = onDone

	return s.enqueue(j)
}

// fetchSync runs the blocking-wait discipline shared by GetSync and
// PostSync.
func (s *Scheduler) fetchSync(url, method string, body []byte, wait time.Duration, opts []RequestOption) Result {
	startFailure := "failed to start http get"
	if method == http.MethodPost {
		startFailure = "failed to start http post"
	}

	if url == "" {
		return errorResult(url, method, CodeFailedStart, ErrMissingURL.Error())
	}
	if s == nil {
		return errorResult(url, method, CodeFailedStart, startFailure)
	}

	j, err := s.newJob(url, method, body, modeSync, opts)
	if err != nil {
		return errorResult(url, method, CodeFailedStart, err.Error())
	}
	handle := newSyncHandle()
	j.handle = handle

	if err := s.enqueue(j); err != nil {
		return errorResult(url, method, CodeFailedStart, startFailure)
	}

	res, ok := handle.await(wait)
	if !ok {
		return errorResult(url, method, CodeTimeout, "timeout waiting for fetch result")
	}

	return res
}

// enqueue covers Admitted and Dispatched: it reserves a slot, then
// hands the job to the spawner. A spawn rejection releases the slot
// before the error is returned, so no admission unit ever leaks.
func (s *Scheduler) enqueue(j *job) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if !s.acquireSlot() {
		s.logger.Warn("no available fetch slots", "url", j.url)
		return ErrNoSlots
	}

	s.active.Add(1)
	if err := s.spawner.Spawn(func() { s.runJob(j) }); err != nil {
		s.active.Done()
		s.slots.Release(1)
		s.logger.Error("failed to spawn fetch worker", "id", j.id, "error", err)
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}

	return nil
}

// acquireSlot reserves one admission unit, waiting up to the configured
// bound. A zero bound fails fast.
func (s *Scheduler) acquireSlot() bool {
	if s.cfg.SlotAcquireWait <= 0 {
		return s.slots.TryAcquire(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SlotAcquireWait)
	defer cancel()

	return s.slots.Acquire(ctx, 1) == nil
}

// marshalPayload serializes the POST payload. A nil payload means no
// request body.
func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	return body, nil
}
