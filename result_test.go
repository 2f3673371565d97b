package fetchq

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/fetchq/limit"
)

func TestHeaders_Get(t *testing.T) {
	hs := Headers{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "X-Token", Value: "first"},
		{Name: "x-token", Value: "second"},
	}

	value, ok := hs.Get("content-type")
	if !ok || value != "application/json" {
		t.Errorf("expected case-insensitive match, got %q (%v)", value, ok)
	}

	// First occurrence wins on duplicates.
	value, _ = hs.Get("X-TOKEN")
	if value != "first" {
		t.Errorf("expected first occurrence, got %q", value)
	}

	if hs.Has("Missing") {
		t.Error("expected Has to be false for absent header")
	}
}

func TestHeaders_MarshalPreservesOrder(t *testing.T) {
	hs := Headers{
		{Name: "Zulu", Value: "1"},
		{Name: "Alpha", Value: "2"},
		{Name: "Mike", Value: "3"},
	}

	got, err := json.Marshal(hs)
	if err != nil {
		t.Fatalf("failed to marshal headers: %v", err)
	}

	want := `{"Zulu":"1","Alpha":"2","Mike":"3"}`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("ordered marshal mismatch (-want +got):\n%s", diff)
	}

	empty, err := json.Marshal(Headers(nil))
	if err != nil {
		t.Fatalf("failed to marshal empty headers: %v", err)
	}
	if string(empty) != "{}" {
		t.Errorf("expected empty object, got %s", empty)
	}
}

func TestResult_MarshalShape(t *testing.T) {
	res := Result{
		URL:            "https://example.com",
		Method:         http.MethodGet,
		Status:         200,
		OK:             true,
		DurationMillis: 12,
		Body:           "{}",
		Headers:        Headers{{Name: "Content-Type", Value: "application/json"}},
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	// The no-error case must carry an explicit null, not omit the key.
	errVal, present := doc["error"]
	if !present {
		t.Error("expected error key to be present")
	}
	if errVal != nil {
		t.Errorf("expected error=null, got %v", errVal)
	}

	for _, key := range []string{"url", "method", "status", "ok", "duration_ms", "body", "body_truncated", "headers_truncated", "headers"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("expected key %q in result document", key)
		}
	}
}

func TestClassifyError(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		expCode string
	}{
		{
			name:    "nil error",
			err:     nil,
			expCode: "",
		},
		{
			name:    "size budget violation",
			err:     limit.ErrExceeded,
			expCode: CodeSizeExceeded,
		},
		{
			name:    "wrapped size budget violation",
			err:     errors.Join(errors.New("aborted"), limit.ErrExceeded),
			expCode: CodeSizeExceeded,
		},
		{
			name:    "context deadline",
			err:     context.DeadlineExceeded,
			expCode: CodeTimeout,
		},
		{
			name:    "context canceled",
			err:     context.Canceled,
			expCode: CodeCanceled,
		},
		{
			name:    "network op error",
			err:     &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			expCode: CodeConnect,
		},
		{
			name:    "anything else",
			err:     errors.New("malformed chunk encoding"),
			expCode: CodeProtocol,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError(tc.err)

			if tc.expCode == "" {
				if got != nil {
					t.Errorf("expected nil ResultError, got: %+v", got)
				}
				return
			}

			if got == nil {
				t.Fatal("expected non-nil ResultError")
			}
			if got.Code != tc.expCode {
				t.Errorf("expected code %q, got %q", tc.expCode, got.Code)
			}
			if got.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	cfg := DefaultConfig()

	testCases := []struct {
		name   string
		method string
		mode   deliveryMode
		opts   requestOpts
		want   Headers
	}{
		{
			name:   "GET gets user agent only",
			method: http.MethodGet,
			mode:   modeCallback,
			want:   Headers{{Name: "User-Agent", Value: "fetchq/1.0"}},
		},
		{
			name:   "buffered POST gets both defaults",
			method: http.MethodPost,
			mode:   modeSync,
			want: Headers{
				{Name: "User-Agent", Value: "fetchq/1.0"},
				{Name: "Content-Type", Value: "application/json"},
			},
		},
		{
			name:   "stream never gets content type",
			method: http.MethodGet,
			mode:   modeStream,
			want:   Headers{{Name: "User-Agent", Value: "fetchq/1.0"}},
		},
		{
			name:   "caller names suppress defaults case-insensitively",
			method: http.MethodPost,
			mode:   modeCallback,
			opts: requestOpts{headers: Headers{
				{Name: "USER-AGENT", Value: "custom"},
				{Name: "content-type", Value: "text/plain"},
			}},
			want: Headers{
				{Name: "USER-AGENT", Value: "custom"},
				{Name: "content-type", Value: "text/plain"},
			},
		},
		{
			name:   "content type override beats config default",
			method: http.MethodPost,
			mode:   modeCallback,
			opts:   requestOpts{contentType: "application/cbor"},
			want: Headers{
				{Name: "User-Agent", Value: "fetchq/1.0"},
				{Name: "Content-Type", Value: "application/cbor"},
			},
		},
		{
			name:   "caller headers follow defaults in order",
			method: http.MethodGet,
			mode:   modeCallback,
			opts: requestOpts{headers: Headers{
				{Name: "X-B", Value: "2"},
				{Name: "X-A", Value: "1"},
				{Name: "X-B", Value: "3"},
			}},
			want: Headers{
				{Name: "User-Agent", Value: "fetchq/1.0"},
				{Name: "X-B", Value: "2"},
				{Name: "X-A", Value: "1"},
				{Name: "X-B", Value: "3"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveHeaders(cfg, tc.method, tc.mode, tc.opts)

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("resolved headers mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSyncHandle_ReadyBeatsTimeout(t *testing.T) {
	h := newSyncHandle()
	want := Result{URL: "https://example.com", OK: true}

	// The worker signals while the caller's timer is still pending.
	h.complete(want)

	got, ok := h.await(time.Hour)
	if !ok {
		t.Fatal("expected ready result")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncHandle_TimeoutWithoutSignal(t *testing.T) {
	h := newSyncHandle()

	start := time.Now()
	_, ok := h.await(20 * time.Millisecond)
	if ok {
		t.Error("expected timeout, got ready result")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("await overstayed its bound: %v", elapsed)
	}

	// A late completion is still readable through the ready flag.
	want := Result{OK: true}
	h.complete(want)
	got, ok := h.await(0)
	if !ok || !got.OK {
		t.Error("expected late result to be readable once ready")
	}
}
