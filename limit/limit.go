package limit

import (
	"bytes"
	"errors"
)

// ErrExceeded is returned by [StreamGate.Admit] when a chunk cannot be
// fully forwarded within the budget.
var ErrExceeded = errors.New("byte budget exceeded")

// reserveBytes caps the initial buffer reservation so an unbounded or
// very large budget doesn't pre-allocate a large block.
const reserveBytes = 1024

// Limit is an optional byte budget. The zero value is unbounded.
type Limit struct {
	n       int
	bounded bool
}

// Bytes returns a budget of n bytes. A non-positive n means unbounded.
func Bytes(n int) Limit {
	if n <= 0 {
		return Limit{}
	}
	return Limit{n: n, bounded: true}
}

// Unbounded returns a budget that admits everything.
func Unbounded() Limit {
	return Limit{}
}

// Resolve picks the request override if set, else the system default.
// A zero or negative resolved value means unbounded.
func Resolve(override, fallback int) Limit {
	if override > 0 {
		return Bytes(override)
	}
	return Bytes(fallback)
}

// Bounded reports whether the budget is finite.
func (l Limit) Bounded() bool { return l.bounded }

// Bytes returns the budget size. It is only meaningful when Bounded.
func (l Limit) Bytes() int { return l.n }

// remaining returns how many more bytes fit after used. The second
// return is false when the budget is unbounded.
func (l Limit) remaining(used int) (int, bool) {
	if !l.bounded {
		return 0, false
	}
	if used >= l.n {
		return 0, true
	}
	return l.n - used, true
}

// BodyBuffer accumulates body bytes up to a budget. Bytes beyond the
// budget are dropped and the truncation flag is set; the flag is never
// cleared.
type BodyBuffer struct {
	limit     Limit
	buf       bytes.Buffer
	truncated bool
}

// NewBodyBuffer returns a BodyBuffer enforcing l.
func NewBodyBuffer(l Limit) *BodyBuffer {
	b := &BodyBuffer{limit: l}

	reserve := reserveBytes
	if l.bounded && l.n < reserve {
		reserve = l.n
	}
	b.buf.Grow(reserve)

	return b
}

// Write admits as much of p as the budget allows and returns the number
// of bytes kept. It never fails; excess bytes are silently dropped.
func (b *BodyBuffer) Write(p []byte) int {
	copyLen := len(p)
	if remaining, bounded := b.limit.remaining(b.buf.Len()); bounded && copyLen > remaining {
		copyLen = remaining
	}

	if copyLen > 0 {
		b.buf.Write(p[:copyLen])
	}
	if copyLen < len(p) {
		b.truncated = true
	}

	return copyLen
}

// Bytes returns the accumulated body.
func (b *BodyBuffer) Bytes() []byte { return b.buf.Bytes() }

// Len returns the accumulated byte count.
func (b *BodyBuffer) Len() int { return b.buf.Len() }

// Truncated reports whether any byte was dropped.
func (b *BodyBuffer) Truncated() bool { return b.truncated }

// HeaderBudget admits headers while the aggregate name+value byte size
// of all accepted headers stays within the budget. A header is accepted
// or dropped whole; a drop sets the truncation flag permanently.
type HeaderBudget struct {
	limit     Limit
	used      int
	truncated bool
}

// NewHeaderBudget returns a HeaderBudget enforcing l.
func NewHeaderBudget(l Limit) *HeaderBudget {
	return &HeaderBudget{limit: l}
}

// Admit reports whether the header fits the remaining budget and, when
// it does, charges it.
func (h *HeaderBudget) Admit(name, value string) bool {
	size := len(name) + len(value)
	if remaining, bounded := h.limit.remaining(h.used); bounded && size > remaining {
		h.truncated = true
		return false
	}

	h.used += size
	return true
}

// Truncated reports whether any header was dropped.
func (h *HeaderBudget) Truncated() bool { return h.truncated }

// StreamGate meters chunks flowing to a caller's sink without buffering
// them. When a chunk does not fully fit, the permitted prefix is still
// forwarded before the gate reports [ErrExceeded]; partial delivery of
// the final over-budget chunk is intended behavior.
//
// The caller forwards the clipped prefix to its sink first and only
// then calls Advance, so the received count never includes a byte the
// sink has not seen.
type StreamGate struct {
	limit    Limit
	received int
}

// NewStreamGate returns a StreamGate enforcing l.
func NewStreamGate(l Limit) *StreamGate {
	return &StreamGate{limit: l}
}

// Clip returns the prefix of p that fits the remaining budget and
// [ErrExceeded] when the budget was already spent or p had to be cut.
// The returned prefix is still valid for forwarding in the clipped
// case. Clip does not advance the received count.
func (g *StreamGate) Clip(p []byte) ([]byte, error) {
	remaining, bounded := g.limit.remaining(g.received)
	if !bounded {
		return p, nil
	}

	if remaining == 0 {
		return nil, ErrExceeded
	}

	forward := p
	if len(p) > remaining {
		forward = p[:remaining]
	}

	if len(forward) < len(p) {
		return forward, ErrExceeded
	}

	return forward, nil
}

// Advance records n bytes as delivered to the sink.
func (g *StreamGate) Advance(n int) {
	g.received += n
}

// Received returns the cumulative bytes delivered through the gate.
func (g *StreamGate) Received() int { return g.received }
