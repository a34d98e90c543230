// Package result models the outcome of a remote call as one of three states:
// still loading, succeeded with a value, or failed with an error.
package result

import "errors"

// State is the variant tag of a Result.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Messager is implemented by errors that carry a user-facing message
// distinct from their Error() text.
type Messager interface {
	Message() string
}

// Result is a tagged union. The zero value is Loading.
type Result[T any] struct {
	state State
	value T
	err   error
}

func Loading[T any]() Result[T] {
	return Result[T]{state: StateLoading}
}

func Success[T any](v T) Result[T] {
	return Result[T]{state: StateSuccess, value: v}
}

// Failure wraps err. A nil err is replaced so an Error result never lacks a cause.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Result[T]{state: StateError, err: err}
}

// From converts a Go (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

func (r Result[T]) State() State    { return r.state }
func (r Result[T]) IsLoading() bool { return r.state == StateLoading }
func (r Result[T]) IsSuccess() bool { return r.state == StateSuccess }
func (r Result[T]) IsError() bool   { return r.state == StateError }
func (r Result[T]) Err() error      { return r.err }

// Value returns the success value and whether the result is a success.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.state == StateSuccess
}

// OrElse returns the value on success and fallback otherwise.
func (r Result[T]) OrElse(fallback T) T {
	if r.state == StateSuccess {
		return r.value
	}
	return fallback
}

// Unwrap converts back to a (value, error) pair. Loading maps to ErrLoading.
func (r Result[T]) Unwrap() (T, error) {
	switch r.state {
	case StateSuccess:
		return r.value, nil
	case StateError:
		return r.value, r.err
	default:
		return r.value, ErrLoading
	}
}

// ErrLoading is returned by Unwrap on a result that has not completed.
var ErrLoading = errors.New("result still loading")

// Message is the text shown to the user for an Error result.
func (r Result[T]) Message() string {
	if r.state != StateError {
		return ""
	}
	var m Messager
	if errors.As(r.err, &m) {
		return m.Message()
	}
	return r.err.Error()
}

// Map applies fn to a success value and carries other states through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.state {
	case StateSuccess:
		return Success(fn(r.value))
	case StateError:
		return Failure[U](r.err)
	default:
		return Loading[U]()
	}
}
