package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is implemented only by the four error types in this package.
type Error interface {
	error
	Kind() Kind
	apiError()
}

// KindOf returns the kind of the first API error in err's chain.
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}

// ValidationError carries per-field messages the user can act on.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

// NewValidationError returns an empty ValidationError; use Add to fill it.
func NewValidationError() *ValidationError {
	return &ValidationError{Message: "validation failed", Fields: map[string][]string{}}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() Kind { return KindValidation }
func (e *ValidationError) apiError()  {}

// NotFoundError means the entity no longer exists remotely.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }
func (e *NotFoundError) apiError()  {}

// AuthError means the credential is missing, invalid or lacks permission.
// Forbidden distinguishes 403 from 401; only 401 invalidates the credential.
type AuthError struct {
	Forbidden bool
	Message   string
}

func (e *AuthError) Error() string {
	if e.Forbidden {
		return "forbidden: " + e.Message
	}
	return "unauthorized: " + e.Message
}

func (e *AuthError) Kind() Kind { return KindAuth }
func (e *AuthError) apiError()  {}

// NetworkError covers transport failures and any response the client cannot
// interpret. Status is 0 when no response arrived. Safe to retry.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
func (e *NetworkError) Kind() Kind    { return KindNetwork }
func (e *NetworkError) apiError()     {}

const maxErrorBody = 1 << 20

// errorFromResponse turns a non-2xx response into one of the API error types.
func errorFromResponse(op, resource string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return parseValidation(body)
	case http.StatusUnauthorized:
		return &AuthError{Message: detailOr(body, "invalid or expired credentials")}
	case http.StatusForbidden:
		return &AuthError{Forbidden: true, Message: detailOr(body, "access denied")}
	case http.StatusNotFound:
		return &NotFoundError{Resource: resource, Message: detailOr(body, "")}
	default:
		return &NetworkError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    errors.New(detailOr(body, http.StatusText(resp.StatusCode))),
		}
	}
}

// detailOr extracts the "detail", "message" or "error" string from a JSON
// error body.
func detailOr(body []byte, fallback string) string {
	var msg struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return fallback
	}
	switch {
	case msg.Detail != "":
		return msg.Detail
	case msg.Message != "":
		return msg.Message
	case msg.Error != "":
		return msg.Error
	}
	return fallback
}

// parseValidation accepts the field-error shapes the API produces:
// {"field": ["msg"]}, {"field": "msg"}, {"non_field_errors": [...]},
// {"detail": "msg"} and {"message": "...", "errors": {...}}.
func parseValidation(body []byte) *ValidationError {
	ve := NewValidationError()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			for _, m := range list {
				ve.Add("non_field_errors", m)
			}
		}
		return ve
	}

	for key, value := range raw {
		switch key {
		case "detail", "message", "error":
			var s string
			if json.Unmarshal(value, &s) == nil {
				ve.Message = s
				continue
			}
		case "errors":
			var nested map[string][]string
			if json.Unmarshal(value, &nested) == nil {
				for field, msgs := range nested {
					for _, m := range msgs {
						ve.Add(field, m)
					}
				}
				continue
			}
		}

		var list []string
		if json.Unmarshal(value, &list) == nil {
			for _, m := range list {
				ve.Add(key, m)
			}
			continue
		}
		var s string
		if json.Unmarshal(value, &s) == nil {
			ve.Add(key, s)
			continue
		}
		ve.Add(key, string(value))
	}
	return ve
}
