package vmap

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies extraction failures.
type ErrorKind int

const (
	KindNone       ErrorKind = iota
	KindResolution           // archive cannot locate a path
	KindMalformed            // structural validation failed
	KindTruncated            // placement stream shorter than declared
	KindWrite                // output could not be written
)

// Sentinel errors, one per kind. Match with errors.Is.
var (
	ErrResolution     = errors.New("resolution error")
	ErrMalformedModel = errors.New("malformed model")
	ErrMalformedInput = errors.New("malformed placement stream")
	ErrTruncatedInput = errors.New("truncated input")
	ErrWriteFailure   = errors.New("write failure")
	ErrModelNotOK     = errors.New("model is not open")
)

// String returns the kind name used in logs and reports.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindResolution:
		return "resolution"
	case KindMalformed:
		return "malformed"
	case KindTruncated:
		return "truncated"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindResolution:
		return ErrResolution
	case KindMalformed:
		return ErrMalformedModel
	case KindTruncated:
		return ErrTruncatedInput
	case KindWrite:
		return ErrWriteFailure
	default:
		return nil
	}
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrResolution):
		return KindResolution
	case errors.Is(err, ErrMalformedModel), errors.Is(err, ErrMalformedInput), errors.Is(err, ErrModelNotOK):
		return KindMalformed
	case errors.Is(err, ErrTruncatedInput):
		return KindTruncated
	case errors.Is(err, ErrWriteFailure):
		return KindWrite
	default:
		return KindNone
	}
}

// ModelError reports a failure tied to one model path.
type ModelError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ModelError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func modelError(kind ErrorKind, path string, err error) *ModelError {
	return &ModelError{Path: path, Kind: kind, Err: err}
}

var (
	errPreviouslyFailed = errors.New("failed earlier in this run")
	errEmptyModel       = errors.New("model has no triangles")
)
