// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// ErrorClass tells the stage machine which recovery policy applies to a
// failure. Every external-call failure is classified at the point of call
// so the caller never parses error text to decide retry-ability.
type ErrorClass string

const (
	// ClassRetryable failures are retried locally up to the per-stage
	// bound and surface as run failures only when the bound is exceeded.
	ClassRetryable ErrorClass = "retryable"

	// ClassDegraded failures are logged and recorded as omissions in the
	// final result; the run proceeds with reduced capability.
	ClassDegraded ErrorClass = "degraded"

	// ClassFatal failures propagate immediately to the failed terminal
	// state with no partial result.
	ClassFatal ErrorClass = "fatal"
)

// Classified wraps an error with its recovery class.
type Classified struct {
	Class ErrorClass
	Err   error
}

func (c *Classified) Error() string { return c.Err.Error() }

func (c *Classified) Unwrap() error { return c.Err }

// Retryable wraps err as retryable.
func Retryable(err error) error {
	return &Classified{Class: ClassRetryable, Err: err}
}

// Degraded wraps err as degraded-mode.
func Degraded(err error) error {
	return &Classified{Class: ClassDegraded, Err: err}
}

// Fatal wraps err as fatal.
func Fatal(err error) error {
	return &Classified{Class: ClassFatal, Err: err}
}

// ClassOf returns the class of err. Unclassified errors default to fatal:
// a failure nobody labeled is a failure nobody planned to recover from.
func ClassOf(err error) ErrorClass {
	var c *Classified
	if errors.As(err, &c) {
		return c.Class
	}
	return ClassFatal
}
