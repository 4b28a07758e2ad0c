package apiclient

import (
	"encoding/json"
	"net/http"
)

// Result is the outcome of one call. It is a Success when OK reports true and a Failure otherwise.
// A Failure carries either an HTTP status with whatever JSON body came back, or a transport error.
type Result struct {
	Status  int
	Payload json.RawMessage
	Err     error
}

// OK reports whether the call completed with a 2xx status and a JSON body.
func (r Result) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// Message renders the result the way it is shown to the user: the payload verbatim when there is
// one, otherwise the error or status text.
func (r Result) Message() string {
	if len(r.Payload) > 0 {
		return string(r.Payload)
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Status != 0 {
		return http.StatusText(r.Status)
	}
	return ""
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal(r.Payload, v)
}
