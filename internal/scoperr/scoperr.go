// Package scoperr defines the structured error taxonomy shared by the scope
// expression engine. Every failure that crosses a package boundary inside
// scopeql is (or wraps) an [*Error] carrying a stable [Code], a short
// user-presentable message, and a [Diagnostic] with developer detail.
//
// The split matters: user messages are fixed, non-technical strings chosen by
// the recovery layer (internal/repair), while diagnostics are logged and never
// shown to end users. Callers branch on codes via [errors.Is] against the
// sentinel values ([ErrSyntax], [ErrCycle], ...) rather than string matching.
package scoperr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Code identifies a failure category in the scope engine.
type Code string

const (
	// CodeSyntax marks malformed expression text. Always fatal to the parse.
	CodeSyntax Code = "syntax"

	// CodeUnknownRoot marks an expression whose root token is not a
	// recognised context root or reference identifier.
	CodeUnknownRoot Code = "unknown_root"

	// CodeUnknownReference marks a Reference node naming an unregistered
	// sub-expression.
	CodeUnknownReference Code = "unknown_reference"

	// CodeInvalidSlot marks an unrecognised equipment slot name.
	// Recoverable via similarity-based suggestion.
	CodeInvalidSlot Code = "invalid_slot"

	// CodeInvalidLayer marks an unrecognised clothing layer name.
	// Recoverable via similarity-based suggestion.
	CodeInvalidLayer Code = "invalid_layer"

	// CodeDataCorrupted marks equipment component data that could not be
	// interpreted. Recoverable via best-effort rebuild.
	CodeDataCorrupted Code = "data_corrupted"

	// CodeCycle marks a resolution that revisited an (entity, field) pair.
	// Always fatal; recovering silently would mask a data-modelling bug.
	CodeCycle Code = "cycle_detected"

	// CodeTooDeep marks an expression exceeding the AST depth limit.
	// Always fatal.
	CodeTooDeep Code = "too_deep"

	// CodePredicate marks a filter predicate that failed to evaluate for a
	// single candidate. Localised; never aborts the whole resolution.
	CodePredicate Code = "predicate_failed"
)

// IsValid reports whether c is a recognised error code.
func (c Code) IsValid() bool {
	switch c {
	case CodeSyntax, CodeUnknownRoot, CodeUnknownReference, CodeInvalidSlot,
		CodeInvalidLayer, CodeDataCorrupted, CodeCycle, CodeTooDeep, CodePredicate:
		return true
	}
	return false
}

// Fatal reports whether errors of this code must propagate to the caller as
// typed errors. Non-fatal codes are first offered to the recovery subsystem
// and, if unrecovered, resolve to an empty result set instead of failing.
func (c Code) Fatal() bool {
	switch c {
	case CodeSyntax, CodeUnknownRoot, CodeUnknownReference, CodeCycle, CodeTooDeep:
		return true
	}
	return false
}

// Sentinel errors, one per code, for use with [errors.Is]. Each sentinel is a
// bare *Error with no diagnostic; concrete errors created by [New] compare
// equal to the sentinel of the same code.
var (
	ErrSyntax           = &Error{Code: CodeSyntax}
	ErrUnknownRoot      = &Error{Code: CodeUnknownRoot}
	ErrUnknownReference = &Error{Code: CodeUnknownReference}
	ErrInvalidSlot      = &Error{Code: CodeInvalidSlot}
	ErrInvalidLayer     = &Error{Code: CodeInvalidLayer}
	ErrDataCorrupted    = &Error{Code: CodeDataCorrupted}
	ErrCycle            = &Error{Code: CodeCycle}
	ErrTooDeep          = &Error{Code: CodeTooDeep}
	ErrPredicate        = &Error{Code: CodePredicate}
)

// Diagnostic carries the developer-facing detail of an [Error]. It is logged
// by the recovery layer and never rendered to end users.
type Diagnostic struct {
	// ID is a unique identifier for correlating log lines with user reports.
	ID string

	// Path is the resolution path at the point of failure, outermost first,
	// as "entity.field" strings.
	Path []string

	// Detail is free-text developer context (offending token, raw values).
	Detail string
}

// Error is the concrete error type for all scope engine failures.
type Error struct {
	// Code is the failure category.
	Code Code

	// Message is a short human-readable description. For recoverable codes
	// the recovery layer replaces it with a fixed user-facing template.
	Message string

	// Diagnostic holds developer detail. Zero value means "none recorded".
	Diagnostic Diagnostic
}

// New creates an [*Error] with a fresh diagnostic ID.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Diagnostic: Diagnostic{ID: uuid.NewString()},
	}
}

// WithPath returns a copy of e with the resolution path recorded in its
// diagnostic. The original error is not modified.
func (e *Error) WithPath(path []string) *Error {
	clone := *e
	clone.Diagnostic.Path = append([]string(nil), path...)
	return &clone
}

// WithDetail returns a copy of e with developer detail attached.
func (e *Error) WithDetail(format string, args ...any) *Error {
	clone := *e
	clone.Diagnostic.Detail = fmt.Sprintf(format, args...)
	return &clone
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an [*Error] with the same code, making every
// concrete error match its sentinel under [errors.Is].
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Fatal reports whether e must propagate rather than be offered to recovery.
func (e *Error) Fatal() bool {
	return e.Code.Fatal()
}

// PathString renders the diagnostic path as "a.b -> c.d" for log output.
func (e *Error) PathString() string {
	return strings.Join(e.Diagnostic.Path, " -> ")
}
