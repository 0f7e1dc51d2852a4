package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// TransportError is a failed exchange with the backend: either no response
// arrived (StatusCode == 0) or the server answered with a non-2xx status.
// Sent marks a missing response after the request was fully written.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Sent       bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: transport error: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: transport error: HTTP %d", e.Op, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the request never left the host
func (e *TransportError) Unreachable() bool {
	return e.StatusCode == 0 && !e.Sent
}

// Unanswered reports whether the request was sent but no response arrived
func (e *TransportError) Unanswered() bool {
	return e.StatusCode == 0 && e.Sent
}

// SchemaError is a well-formed JSON response with an unrecognized shape.
// Index is the offending record position, or -1 for envelope-level problems.
type SchemaError struct {
	Op     string
	Reason string
	Keys   []string
	Index  int
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: schema error: ", e.Op)
	if e.Index >= 0 {
		fmt.Fprintf(&b, "record %d: ", e.Index)
	}
	b.WriteString(e.Reason)
	if len(e.Keys) > 0 {
		quoted := make([]string, len(e.Keys))
		for i, k := range e.Keys {
			quoted[i] = strconv.Quote(k)
		}
		fmt.Fprintf(&b, " (top-level keys: %s)", strings.Join(quoted, ", "))
	}
	return b.String()
}

// ObjectKeys lists the keys of a JSON object, for SchemaError.Keys
func ObjectKeys(obj gjson.Result) []string {
	if !obj.IsObject() {
		return nil
	}
	var keys []string
	obj.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// ParseError is malformed JSON, from the network or from the shared store
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
