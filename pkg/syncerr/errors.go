// Package syncerr defines the error taxonomy shared by the alignment and
// transfer pipeline.
package syncerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a pipeline failure.
type Code string

const (
	CodePageCountMismatch   Code = "PAGE_COUNT_MISMATCH"
	CodeAlignment           Code = "ALIGNMENT_ERROR"
	CodeExternalEngine      Code = "EXTERNAL_ENGINE_ERROR"
	CodeEngineTimeout       Code = "ENGINE_TIMEOUT"
	CodeUnsupportedRotation Code = "UNSUPPORTED_ROTATION"
	CodeEmptySelection      Code = "EMPTY_SELECTION"
	CodeConverter           Code = "CONVERTER_ERROR"
)

// Error is a classified pipeline failure. Paths and Page identify the
// documents and page involved; Page is zero when not applicable.
type Error struct {
	Code    Code
	Message string
	Paths   []string
	Page    int
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Code, e.Message)
	if len(e.Paths) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.Paths, ", "))
	}
	if e.Page != 0 {
		fmt.Fprintf(&sb, " (page %d)", e.Page)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrPageCountMismatch   = &Error{Code: CodePageCountMismatch}
	ErrAlignment           = &Error{Code: CodeAlignment}
	ErrExternalEngine      = &Error{Code: CodeExternalEngine}
	ErrEngineTimeout       = &Error{Code: CodeEngineTimeout}
	ErrUnsupportedRotation = &Error{Code: CodeUnsupportedRotation}
	ErrEmptySelection      = &Error{Code: CodeEmptySelection}
	ErrConverter           = &Error{Code: CodeConverter}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func NewPageCountMismatch(pathA string, countA int, pathB string, countB int) *Error {
	return &Error{
		Code:    CodePageCountMismatch,
		Message: fmt.Sprintf("page count mismatch (%d vs %d)", countA, countB),
		Paths:   []string{pathA, pathB},
	}
}

func NewAlignment(page int, message string, paths ...string) *Error {
	return &Error{
		Code:    CodeAlignment,
		Message: message,
		Paths:   paths,
		Page:    page,
	}
}

func NewExternalEngine(message string, cause error, paths ...string) *Error {
	return &Error{
		Code:    CodeExternalEngine,
		Message: message,
		Paths:   paths,
		Cause:   cause,
	}
}

func NewEngineTimeout(message string, cause error, paths ...string) *Error {
	return &Error{
		Code:    CodeEngineTimeout,
		Message: message,
		Paths:   paths,
		Cause:   cause,
	}
}

func NewUnsupportedRotation(rotation int, path string, page int) *Error {
	e := &Error{
		Code:    CodeUnsupportedRotation,
		Message: fmt.Sprintf("unsupported page orientation %d", rotation),
		Page:    page,
	}
	if path != "" {
		e.Paths = []string{path}
	}
	return e
}

func NewEmptySelection(path string, page int, message string) *Error {
	return &Error{
		Code:    CodeEmptySelection,
		Message: message,
		Paths:   []string{path},
		Page:    page,
	}
}

func NewConverter(message string, cause error, paths ...string) *Error {
	return &Error{
		Code:    CodeConverter,
		Message: message,
		Paths:   paths,
		Cause:   cause,
	}
}
