package fetchq

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Header is one name/value pair. Request headers are sent in the order
// the caller supplied them; response headers are kept in the order the
// transport delivered them.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers is an ordered header sequence.
type Headers []Header

// Get returns the first value for name, matching case-insensitively.
func (hs Headers) Get(name string) (string, bool) {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}

	return "", false
}

// Has reports whether a header with name exists, matching
// case-insensitively.
func (hs Headers) Has(name string) bool {
	_, ok := hs.Get(name)
	return ok
}

// MarshalJSON encodes the headers as a JSON object preserving the
// sequence order. Repeated names are emitted repeatedly.
func (hs Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, h := range hs {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(h.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')

		value, err := json.Marshal(h.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Result is the structured outcome of a buffered request. OK is true
// only when the transport reported no error and the status landed in
// [200, 400). Truncation flags report silently dropped body bytes or
// headers; they do not make the result an error.
type Result struct {
	ID               string       `json:"id"`
	URL              string       `json:"url"`
	Method           string       `json:"method"`
	Status           int          `json:"status"`
	OK               bool         `json:"ok"`
	DurationMillis   int64        `json:"duration_ms"`
	Body             string       `json:"body"`
	BodyTruncated    bool         `json:"body_truncated"`
	HeadersTruncated bool         `json:"headers_truncated"`
	Headers          Headers      `json:"headers"`
	Err              *ResultError `json:"error"`
}

// StreamResult is the completion summary of a streaming request. No
// body is retained; Received counts the bytes handed to the chunk sink.
type StreamResult struct {
	ID       string       `json:"id"`
	Status   int          `json:"status"`
	Received int          `json:"received_bytes"`
	Err      *ResultError `json:"error"`
}

// errorResult synthesizes a failed Result for paths where no job ever
// ran: missing URL, admission or dispatch failure, sync-wait timeout.
func errorResult(url, method, code, message string) Result {
	return Result{
		URL:    url,
		Method: method,
		OK:     false,
		Err:    &ResultError{Code: code, Message: message},
	}
}

// buildResult converts final job state into the delivered document.
func buildResult(j *job, runErr error, elapsed time.Duration) Result {
	httpOK := j.status >= 200 && j.status < 400

	return Result{
		ID:               j.id,
		URL:              j.url,
		Method:           j.method,
		Status:           j.status,
		OK:               runErr == nil && httpOK,
		DurationMillis:   elapsed.Milliseconds(),
		Body:             string(j.bodyBuf.Bytes()),
		BodyTruncated:    j.bodyBuf.Truncated(),
		HeadersTruncated: j.hdrBudget.Truncated(),
		Headers:          j.recvHeaders,
		Err:              classifyError(runErr),
	}
}
