package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reserved envelope keys. They never reach the caller-visible result.
const (
	envelopeEventKey   = "_event"
	envelopeConsoleKey = "_console"
)

// Envelope is a decoded API response body. Object bodies have their
// side-channel fields lifted into Event and Console; every other body shape
// is kept verbatim in Body.
type Envelope struct {
	// Event is the value of "_event" when it is a string
	Event string
	// Console holds the elements of "_console" when it is an array
	Console []json.RawMessage
	// Body is the response body with reserved keys removed, or the raw
	// body when it is not an object
	Body json.RawMessage

	shape shape
}

// IsObject reports whether the body was a JSON object.
func (e *Envelope) IsObject() bool {
	return e.shape == shapeObject
}

// ParseEnvelope splits a response body into its domain fields and its
// side-channel fields. Arrays, scalars and empty bodies pass through with no
// inspection.
func ParseEnvelope(body []byte) (*Envelope, error) {
	env := &Envelope{Body: json.RawMessage(body), shape: bodyShape(body)}
	if env.shape != shapeObject {
		return env, nil
	}

	var fields *Object
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("sdk: decode response envelope: %w", err)
	}

	if v, ok := fields.Get(envelopeEventKey); ok {
		if name, isString := v.(string); isString {
			env.Event = name
		}
		fields.Delete(envelopeEventKey)
	}
	if v, ok := fields.Get(envelopeConsoleKey); ok {
		if items, isList := v.([]any); isList {
			for _, item := range items {
				raw, err := json.Marshal(item)
				if err != nil {
					return nil, fmt.Errorf("sdk: decode %s: %w", envelopeConsoleKey, err)
				}
				env.Console = append(env.Console, raw)
			}
		}
		fields.Delete(envelopeConsoleKey)
	}

	stripped, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("sdk: re-encode response body: %w", err)
	}
	env.Body = stripped
	return env, nil
}

// bodyShape looks at the first significant byte of a JSON document.
func bodyShape(body []byte) shape {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return shapeScalar
	}
	switch trimmed[0] {
	case '{':
		return shapeObject
	case '[':
		return shapeArray
	}
	return shapeScalar
}

// Result is the normalized outcome of a successful request: the response
// body without its reserved keys, or the untouched body when it is not an
// object.
//
// Example:
//
//	result, err := client.Request(ctx, "products", "GET", nil)
//	if err != nil {
//	    return err
//	}
//	var page struct {
//	    Data []Product `json:"data"`
//	}
//	if err := result.Decode(&page); err != nil {
//	    return err
//	}
type Result struct {
	raw   json.RawMessage
	shape shape
	event string
}

func newResult(env *Envelope) *Result {
	return &Result{raw: env.Body, shape: env.shape, event: env.Event}
}

// Event returns the event name the response carried, "" when none.
func (r *Result) Event() string {
	return r.event
}

// Raw returns the normalized body as JSON.
func (r *Result) Raw() json.RawMessage {
	return r.raw
}

// IsObject reports whether the body was a JSON object.
func (r *Result) IsObject() bool {
	return r.shape == shapeObject
}

// Decode unmarshals the normalized body into dst.
func (r *Result) Decode(dst any) error {
	if len(bytes.TrimSpace(r.raw)) == 0 {
		return fmt.Errorf("sdk: empty response body")
	}
	if raw, ok := dst.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], r.raw...)
		return nil
	}
	return json.Unmarshal(r.raw, dst)
}

// Data returns the normalized body decoded into generic Go values, nil for
// an empty body. Non-JSON bodies come back as a string.
func (r *Result) Data() any {
	return decodeLoose(r.raw)
}

// Object returns the body as an ordered Object, nil when it is not an object.
func (r *Result) Object() *Object {
	if r.shape != shapeObject {
		return nil
	}
	var obj *Object
	if err := json.Unmarshal(r.raw, &obj); err != nil {
		return nil
	}
	return obj
}

// decodeLoose decodes JSON when it can and falls back to the text.
func decodeLoose(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
