package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTransport         = errors.New("transport failure")
	ErrServer            = errors.New("server failure")
	ErrMalformedResponse = errors.New("malformed response")
)

// TransportError covers faults below HTTP: refused connections, timeouts, DNS.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
}

func (e *TransportError) Message() string {
	return "connection error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Retryable is false only when the caller cancelled the request.
func (e *TransportError) Retryable() bool { return !errors.Is(e.Err, context.Canceled) }

// ServerError is a non-2xx answer. Message holds the response body when the
// server sent one.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message())
}

func (e *ServerError) Message() string {
	detail := strings.TrimSpace(e.Body)
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	if detail == "" {
		detail = "server error"
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, detail)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// Retryable is true for 5xx and 429; other client errors will not change on retry.
func (e *ServerError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NotFound reports a 404.
func (e *ServerError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// MalformedResponseError is a 2xx answer whose body is empty or does not decode.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message())
}

func (e *MalformedResponseError) Message() string {
	return "malformed response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }
func (e *MalformedResponseError) Retryable() bool { return false }

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.NotFound()
}
