package limit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		name       string
		override   int
		fallback   int
		expBounded bool
		expBytes   int
	}{
		{
			name:       "Override wins",
			override:   100,
			fallback:   200,
			expBounded: true,
			expBytes:   100,
		},
		{
			name:       "Fallback applies when override unset",
			override:   0,
			fallback:   200,
			expBounded: true,
			expBytes:   200,
		},
		{
			name:       "Both unset means unbounded",
			override:   0,
			fallback:   0,
			expBounded: false,
		},
		{
			name:       "Negative treated as unset",
			override:   -1,
			fallback:   -1,
			expBounded: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := Resolve(tc.override, tc.fallback)

			if l.Bounded() != tc.expBounded {
				t.Errorf("expected bounded=%v, got %v", tc.expBounded, l.Bounded())
			}
			if tc.expBounded && l.Bytes() != tc.expBytes {
				t.Errorf("expected %d bytes, got %d", tc.expBytes, l.Bytes())
			}
		})
	}
}

func TestBodyBuffer_Truncation(t *testing.T) {
	testCases := []struct {
		name         string
		limit        Limit
		chunks       []string
		expBody      string
		expTruncated bool
	}{
		{
			name:    "Under the budget",
			limit:   Bytes(10),
			chunks:  []string{"hello"},
			expBody: "hello",
		},
		{
			name:    "Exactly the budget",
			limit:   Bytes(10),
			chunks:  []string{"hello", "world"},
			expBody: "helloworld",
		},
		{
			name:         "Clipped mid-chunk",
			limit:        Bytes(8),
			chunks:       []string{"hello", "world"},
			expBody:      "hellowor",
			expTruncated: true,
		},
		{
			name:         "Chunks after the budget are dropped whole",
			limit:        Bytes(5),
			chunks:       []string{"hello", "world", "again"},
			expBody:      "hello",
			expTruncated: true,
		},
		{
			name:    "Unbounded keeps everything",
			limit:   Unbounded(),
			chunks:  []string{strings.Repeat("x", 4096), strings.Repeat("y", 4096)},
			expBody: strings.Repeat("x", 4096) + strings.Repeat("y", 4096),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBodyBuffer(tc.limit)
			for _, chunk := range tc.chunks {
				b.Write([]byte(chunk))
			}

			if got := string(b.Bytes()); got != tc.expBody {
				t.Errorf("expected body %q, got %q", tc.expBody, got)
			}
			if b.Truncated() != tc.expTruncated {
				t.Errorf("expected truncated=%v, got %v", tc.expTruncated, b.Truncated())
			}
		})
	}
}

func TestBodyBuffer_FlagIsMonotone(t *testing.T) {
	b := NewBodyBuffer(Bytes(3))

	b.Write([]byte("abcdef"))
	if !b.Truncated() {
		t.Fatal("expected truncated after over-budget write")
	}

	// Later writes are dropped without clearing the flag.
	b.Write([]byte("g"))
	if !b.Truncated() {
		t.Error("truncation flag must never clear")
	}
	if b.Len() != 3 {
		t.Errorf("expected stored length 3, got %d", b.Len())
	}
}

func TestHeaderBudget_Admission(t *testing.T) {
	h := NewHeaderBudget(Bytes(20))

	if !h.Admit("Content-Type", "json") { // 16 bytes
		t.Fatal("expected first header to fit")
	}
	if h.Admit("X-Long-Header-Name", "value") {
		t.Error("expected over-budget header to be dropped")
	}
	if !h.Truncated() {
		t.Error("expected truncated flag after a drop")
	}

	// A smaller header that still fits is admitted even after a drop.
	if !h.Admit("ab", "cd") { // 4 more bytes, total 20
		t.Error("expected small header to fit remaining budget")
	}
	if !h.Truncated() {
		t.Error("truncation flag must never clear")
	}
}

func TestHeaderBudget_Unbounded(t *testing.T) {
	h := NewHeaderBudget(Unbounded())

	for range 1000 {
		if !h.Admit(strings.Repeat("n", 100), strings.Repeat("v", 100)) {
			t.Fatal("unbounded budget must admit everything")
		}
	}
	if h.Truncated() {
		t.Error("unbounded budget must never truncate")
	}
}

func TestStreamGate_Clip(t *testing.T) {
	g := NewStreamGate(Bytes(8))

	forward, err := g.Clip([]byte("hello"))
	if err != nil {
		t.Fatalf("expected nil err within budget, got %v", err)
	}
	if !bytes.Equal(forward, []byte("hello")) {
		t.Errorf("expected full chunk, got %q", forward)
	}
	g.Advance(len(forward))

	// The next chunk is clipped: the permitted prefix is still handed
	// back alongside the error.
	forward, err = g.Clip([]byte("world"))
	if !errors.Is(err, ErrExceeded) {
		t.Errorf("expected ErrExceeded, got %v", err)
	}
	if !bytes.Equal(forward, []byte("wor")) {
		t.Errorf("expected clipped prefix %q, got %q", "wor", forward)
	}
	g.Advance(len(forward))

	if g.Received() != 8 {
		t.Errorf("expected 8 bytes received, got %d", g.Received())
	}

	// Budget already spent: nothing to forward.
	forward, err = g.Clip([]byte("more"))
	if !errors.Is(err, ErrExceeded) {
		t.Errorf("expected ErrExceeded on spent budget, got %v", err)
	}
	if len(forward) != 0 {
		t.Errorf("expected empty prefix on spent budget, got %q", forward)
	}
}

func TestStreamGate_Unbounded(t *testing.T) {
	g := NewStreamGate(Unbounded())

	for range 100 {
		forward, err := g.Clip(make([]byte, 4096))
		if err != nil {
			t.Fatalf("unbounded gate must not error, got %v", err)
		}
		g.Advance(len(forward))
	}

	if g.Received() != 100*4096 {
		t.Errorf("expected %d received, got %d", 100*4096, g.Received())
	}
}
