package core

import (
	"encoding/json"

	"github.com/segmentio/ksuid"
)

// -----------------------------------------------------------------------------
// Output
// -----------------------------------------------------------------------------

// Output is the structured result of an agent invocation or a whole flow run.
type Output map[string]any

func (o Output) String() string {
	bytes, err := json.Marshal(o)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// AsOutput converts an arbitrary decoded value into an Output when it is an
// object, returning ok=false otherwise.
func AsOutput(v any) (Output, bool) {
	switch m := v.(type) {
	case Output:
		return m, true
	case map[string]any:
		return Output(m), true
	default:
		return nil, false
	}
}

// IsTruthy reports whether a decoded JSON value counts as present for the
// final result check: empty strings, zero numbers, false, and nil do not.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		return t.String() != "0" && t.String() != ""
	default:
		return true
	}
}

// NewExecutionID returns a sortable unique identifier for one flow run.
func NewExecutionID() string {
	return ksuid.New().String()
}
