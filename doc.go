// Package fetchq is a bounded-concurrency HTTP request scheduler.
//
// A [Scheduler] admits GET/POST requests against a fixed concurrency
// budget, runs each on its own worker goroutine, enforces byte budgets
// on response bodies and headers, and delivers results through one of
// three disciplines: a fire-and-forget callback, a blocking wait with a
// bound, or incremental chunk streaming.
//
// # Building a Scheduler
//
// Use [New] with a [Config] and functional options:
//
//	s, err := fetchq.New(fetchq.DefaultConfig(),
//		fetchq.WithLogger(logger),
//		fetchq.WithThrottle(10, 5),
//	)
//	...
//	defer s.Close() // drains in-flight jobs
//
// # Making Requests
//
// Fire-and-forget with a callback:
//
//	err := s.Get("https://api.example.com/v1/state", func(res fetchq.Result) {
//		if res.OK { ... }
//	})
//
// Blocking with a wait bound:
//
//	res := s.PostSync("https://api.example.com/v1/report", payload, 5*time.Second)
//	if !res.OK { ... }
//
// Streaming, never buffering the body inside the scheduler:
//
//	err := s.GetStream("https://example.com/firmware.bin",
//		func(chunk []byte) { _, _ = f.Write(chunk) },
//		func(sr fetchq.StreamResult) { ... },
//		fetchq.WithMaxBodyBytes(1<<20),
//	)
//
// # Limits
//
// Body and header byte budgets resolve per request: the request
// override wins, else the [Config] default applies; zero means
// unbounded. Buffered requests truncate silently and flag it in the
// [Result]; streaming requests abort with a size_exceeded error after
// forwarding the permitted prefix. See
// [github.com/adamwoolhether/fetchq/limit] for the budget types.
package fetchq
