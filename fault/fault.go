// Package fault defines the error taxonomy shared by every Bastion package.
//
// Each error carries a Kind. Specific errors wrap the sentinel for their
// kind, so callers can match either the specific error or the broad class:
//
//	errors.Is(err, bastion.ErrRoleNotFound) // specific
//	errors.Is(err, fault.ErrNotFound)       // any not-found
//	fault.KindOf(err) == fault.NotFound     // classification
package fault

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
)

// Kind classifies an error.
type Kind int

// Error kinds.
const (
	Unknown Kind = iota
	Forbidden
	NotFound
	Validation
	InvalidArgument
	Unavailable
	Conflict
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case InvalidArgument:
		return "invalid_argument"
	case Unavailable:
		return "unavailable"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified error. A specific Error unwraps to the sentinel
// of its kind.
type Error struct {
	kind Kind
	msg  string
	root bool
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// Kind returns the classification.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap returns the kind sentinel for specific errors.
func (e *Error) Unwrap() error {
	if e.root {
		return nil
	}
	return sentinel(e.kind)
}

// Sentinels, one per kind.
var (
	ErrForbidden       = &Error{kind: Forbidden, msg: "forbidden", root: true}
	ErrNotFound        = &Error{kind: NotFound, msg: "not found", root: true}
	ErrValidation      = &Error{kind: Validation, msg: "validation failed", root: true}
	ErrInvalidArgument = &Error{kind: InvalidArgument, msg: "invalid argument", root: true}
	ErrUnavailable     = &Error{kind: Unavailable, msg: "unavailable", root: true}
	ErrConflict        = &Error{kind: Conflict, msg: "conflict", root: true}
)

func sentinel(k Kind) error {
	switch k {
	case Forbidden:
		return ErrForbidden
	case NotFound:
		return ErrNotFound
	case Validation:
		return ErrValidation
	case InvalidArgument:
		return ErrInvalidArgument
	case Unavailable:
		return ErrUnavailable
	case Conflict:
		return ErrConflict
	default:
		return nil
	}
}

// New returns a specific error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// KindOf returns the kind of the first classified error in err's chain,
// or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

type wrapped struct {
	kind error
	err  error
}

func (w *wrapped) Error() string   { return w.err.Error() }
func (w *wrapped) Unwrap() []error { return []error{w.kind, w.err} }

// Wrap classifies err as kind while keeping the original chain intact.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	s := sentinel(kind)
	if s == nil {
		return err
	}
	return &wrapped{kind: s, err: err}
}

// Classify marks connectivity and deadline failures as Unavailable.
// Already classified errors and nil are returned unchanged.
func Classify(err error) error {
	if err == nil || KindOf(err) != Unknown {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr):
		return Wrap(Unavailable, err)
	}
	return err
}
