package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorKind tells which shape of error payload the server returned.
type ErrorKind int

const (
	// KindNetwork: no usable response (connection refused, DNS, timeout).
	KindNetwork ErrorKind = iota
	// KindNonFieldErrors: a "non_field_errors" list (or a bare JSON list).
	KindNonFieldErrors
	// KindGeneric: a single "error" message, or no parsable details at all.
	KindGeneric
	// KindFieldErrors: field name → messages.
	KindFieldErrors
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNonFieldErrors:
		return "non_field_errors"
	case KindFieldErrors:
		return "field_errors"
	default:
		return "generic"
	}
}

// FieldError holds the messages reported for one form field.
type FieldError struct {
	Field    string
	Messages []string
}

// APIError is the single error type returned for every failed remote call.
//
// Error() yields one human-readable message, picked in this order:
//  1. the first entry of "non_field_errors";
//  2. the "error" field;
//  3. the first message of the first field, in document order.
//
// Unwrap exposes the matching sentinel (ErrUnauthorized, ErrValidation, ...)
// together with the transport cause, so callers can use errors.Is.
type APIError struct {
	Op         string
	StatusCode int

	NonFieldErrors []string
	Detail         string
	Fields         []FieldError

	Err error
}

// Kind classifies the payload, in the same priority order as Message.
func (e *APIError) Kind() ErrorKind {
	switch {
	case e.StatusCode == 0:
		return KindNetwork
	case len(e.NonFieldErrors) > 0:
		return KindNonFieldErrors
	case e.Detail != "":
		return KindGeneric
	case len(e.Fields) > 0:
		return KindFieldErrors
	default:
		return KindGeneric
	}
}

// Message reduces the payload to one string.
func (e *APIError) Message() string {
	if len(e.NonFieldErrors) > 0 {
		return e.NonFieldErrors[0]
	}
	if e.Detail != "" {
		return e.Detail
	}
	for _, f := range e.Fields {
		if len(f.Messages) > 0 {
			return f.Messages[0]
		}
	}
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s failed: server unavailable (%v)", e.Op, e.Err)
		}
		return fmt.Sprintf("%s failed: server unavailable", e.Op)
	}
	if e.Err != nil && e.StatusCode < 300 {
		return fmt.Sprintf("%s failed: malformed response", e.Op)
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, strings.ToLower(text))
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
}

func (e *APIError) Error() string {
	return e.Message()
}

// FieldMessages returns the messages for a field, or nil.
func (e *APIError) FieldMessages(field string) []string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Messages
		}
	}
	return nil
}

func (e *APIError) sentinel() error {
	switch {
	case e.StatusCode == 0:
		return ErrUnavailable
	case e.StatusCode < 300:
		return ErrMalformedResponse
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusBadGateway, e.StatusCode == http.StatusServiceUnavailable,
		e.StatusCode == http.StatusGatewayTimeout:
		return ErrUnavailable
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.sentinel(), e.Err}
	}
	return []error{e.sentinel()}
}

// IsUnauthorized reports whether err is an explicit rejection of the credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// newNetworkError wraps a transport failure.
func newNetworkError(op string, err error) *APIError {
	return &APIError{Op: op, Err: err}
}

// parseErrorBody turns a non-2xx response body into an APIError. JSON keys are
// walked in document order, which is what makes "first field" deterministic.
func parseErrorBody(op string, status int, body []byte) *APIError {
	e := &APIError{Op: op, StatusCode: status}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return e
	}

	res := gjson.ParseBytes(body)
	switch {
	case res.IsObject():
		res.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			switch name {
			case "non_field_errors":
				e.NonFieldErrors = append(e.NonFieldErrors, messages(value)...)
			case "error":
				if msgs := messages(value); len(msgs) > 0 && e.Detail == "" {
					e.Detail = msgs[0]
				}
			default:
				if msgs := messages(value); len(msgs) > 0 {
					e.Fields = append(e.Fields, FieldError{Field: name, Messages: msgs})
				}
			}
			return true
		})
	case res.IsArray():
		e.NonFieldErrors = messages(res)
	}
	return e
}

// messages flattens a JSON value into its string leaves, in order. Nested
// objects (errors of a nested serializer) are flattened too.
func messages(v gjson.Result) []string {
	switch {
	case v.IsArray(), v.IsObject():
		var out []string
		v.ForEach(func(_, item gjson.Result) bool {
			out = append(out, messages(item)...)
			return true
		})
		return out
	case v.Type == gjson.Null:
		return nil
	default:
		if s := strings.TrimSpace(v.String()); s != "" {
			return []string{s}
		}
		return nil
	}
}
