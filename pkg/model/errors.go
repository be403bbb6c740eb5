// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the ingress pipeline
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	// ErrorKindMissingInput: a source file is absent. Fatal.
	ErrorKindMissingInput
	// ErrorKindSchemaMismatch: a required column is absent. Fatal.
	ErrorKindSchemaMismatch
	// ErrorKindMalformedInput: a source file cannot be parsed. Fatal.
	ErrorKindMalformedInput
	// ErrorKindParseFailure: a cell cannot be coerced. Recovered as null.
	ErrorKindParseFailure
	// ErrorKindPartialData: an optional column is absent downstream. Recovered by skipping.
	ErrorKindPartialData
	// ErrorKindOutput: an output file could not be written. Fatal.
	ErrorKindOutput
)

// String returns a string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "None"
	case ErrorKindMissingInput:
		return "MissingInput"
	case ErrorKindSchemaMismatch:
		return "SchemaMismatch"
	case ErrorKindMalformedInput:
		return "MalformedInput"
	case ErrorKindParseFailure:
		return "ParseFailure"
	case ErrorKindPartialData:
		return "PartialData"
	case ErrorKindOutput:
		return "Output"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Fatal reports whether errors of this kind abort a pipeline stage
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrorKindParseFailure, ErrorKindPartialData, ErrorKindNone:
		return false
	default:
		return true
	}
}

// Error is a classified pipeline error
type Error struct {
	Kind ErrorKind
	Op   string // Operation that failed, e.g. "merge" or "read"
	Path string // File involved, if any
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindNone
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
