// Package fault classifies pipeline failures so the calling boundary
// can decide whether to enqueue a request for redelivery.
package fault

import (
	"errors"
	"fmt"
)

type Class string

const (
	// Validation means malformed input; permanent, never retried.
	Validation Class = "VALIDATION"
	// DependencyUnavailable covers store or completion-service outages.
	DependencyUnavailable Class = "DEPENDENCY_UNAVAILABLE"
	// EmptyResult means the completion service returned nothing usable.
	EmptyResult Class = "EMPTY_RESULT"
	// PartialPersistence means some but not all turns of an exchange
	// were durably written.
	PartialPersistence Class = "PARTIAL_PERSISTENCE"
)

// Error wraps a cause with its class and the pipeline stage it occurred
// in.
type Error struct {
	Class Class
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at %s", e.Class, e.Stage)
	}
	return fmt.Sprintf("%s at %s: %v", e.Class, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(class Class, stage string, err error) *Error {
	return &Error{Class: class, Stage: stage, Err: err}
}

func Newf(class Class, stage, format string, args ...any) *Error {
	return &Error{Class: class, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Retryable reports whether the caller should requeue the original
// request. Only classified, non-validation failures qualify.
func Retryable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Class != Validation
}

// ClassOf returns the class of a classified error, or "" for anything
// else.
func ClassOf(err error) Class {
	var fe *Error
	if !errors.As(err, &fe) {
		return ""
	}
	return fe.Class
}
