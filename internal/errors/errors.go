// Package errors provides the error vocabulary of the import pipeline.
// Errors carry an operation name and a kind, and can be marked fatal so that
// the retry harness knows a failure will never succeed on a later attempt.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Op represents an operation name for error context.
type Op string

// Error represents an application error with context.
type Error struct {
	Op    Op     // Operation that failed
	Kind  Kind   // Category of error
	Err   error  // Underlying error
	Msg   string // Additional context message
	Fatal bool   // Retrying cannot succeed
}

// Kind represents the category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDatabase
	KindParse
	KindStatus
	KindSubmission
	KindIO
	KindConfig
	KindNetwork
	KindValidation
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindParse:
		return "parse"
	case KindStatus:
		return "status"
	case KindSubmission:
		return "submission"
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error with the given arguments.
// Arguments can be: Op, Kind, error, string (message).
func E(args ...interface{}) *Error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Msg = a
		}
	}
	return e
}

// Wrap wraps an error with an operation name for context.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: GetKind(err), Err: err, Fatal: IsFatal(err)}
}

// WrapMsg wraps an error with an operation name and message.
func WrapMsg(op Op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: GetKind(err), Msg: msg, Err: err, Fatal: IsFatal(err)}
}

// MarkFatal flags err as not worth retrying.
func MarkFatal(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		cp := *e
		cp.Fatal = true
		return &cp
	}
	return &Error{Kind: GetKind(err), Err: err, Fatal: true}
}

// IsFatal reports whether any error in the chain was marked fatal.
func IsFatal(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Fatal {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable reports whether a failed attempt may be tried again.
func IsRetryable(err error) bool {
	return err != nil && !IsFatal(err)
}

// IsKind checks if an error is of the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetKind returns the first known kind in the chain, or KindUnknown.
func GetKind(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != KindUnknown {
			return e.Kind
		}
		err = stderrors.Unwrap(err)
	}
	return KindUnknown
}

// Is and As forward to the standard library so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// New returns a plain error, as the standard library does.
func New(text string) error { return stderrors.New(text) }

// SkipCounter tracks how many items an operation skipped.
// Use this to provide visibility into tolerated malformed input.
type SkipCounter struct {
	Op         string
	Count      int
	LastErr    error
	LastDetail string
}

// NewSkipCounter creates a new skip counter for the given operation.
func NewSkipCounter(op string) *SkipCounter {
	return &SkipCounter{Op: op}
}

// Skip records a skipped item.
func (s *SkipCounter) Skip(err error, detail string) {
	s.Count++
	s.LastErr = err
	s.LastDetail = detail
}

// Summary describes the skips, or returns "" when nothing was skipped.
func (s *SkipCounter) Summary() string {
	if s.Count == 0 {
		return ""
	}
	return fmt.Sprintf("%s skipped %d items (last error: %v, detail: %s)",
		s.Op, s.Count, s.LastErr, s.LastDetail)
}
