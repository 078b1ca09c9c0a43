// Package errors defines the categorized error type used across the
// reconciliation engine.
//
// Errors carry a category (which part of the system failed), a specific code,
// a human-readable message, an optional suggestion for fixing the problem,
// and arbitrary context values. Field-level errors additionally identify the
// record index and mapped field that failed, so the engine can recover them
// into run diagnostics instead of aborting a batch.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category identifies which part of the system produced an error
type Category string

const (
	CategoryRule     Category = "rule"
	CategoryField    Category = "field"
	CategoryConfig   Category = "config"
	CategoryHistory  Category = "history"
	CategoryMatch    Category = "match"
	CategoryStore    Category = "store"
	CategoryFile     Category = "file"
	CategoryInternal Category = "internal"
)

// Code identifies a specific failure within a category
type Code string

const (
	// Rule errors (format rule engine)
	CodeFormat               Code = "format"
	CodeUnsupportedOperation Code = "unsupported_operation"

	// Field errors (normalization)
	CodeAmountParse   Code = "amount_parse"
	CodeTimeParse     Code = "time_parse"
	CodeMissingColumn Code = "missing_column"

	// Configuration errors (validated up front, fail the run)
	CodeAmbiguousStatusMapping Code = "ambiguous_status_mapping"
	CodeInvalidHistoryWindow   Code = "invalid_history_window"
	CodeInvalidConfig          Code = "invalid_config"
	CodeMissingConfig          Code = "missing_config"

	// Matching warnings/errors
	CodeDuplicateIdentifier Code = "duplicate_identifier"

	// Historical store errors
	CodeStoreQuery       Code = "store_query"
	CodeStoreUnavailable Code = "store_unavailable"

	// File errors (CLI edges, not the core)
	CodeFileNotFound Code = "file_not_found"
	CodeFileRead     Code = "file_read"
	CodeFileWrite    Code = "file_write"

	// Internal errors
	CodeUnexpected Code = "unexpected"
)

// Error is the application error type. It satisfies the standard error
// interface and unwraps to its cause.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional key/value information about an error
type Context map[string]interface{}

func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category to a CLI exit code
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryRule, CategoryField:
		return 3
	case CategoryConfig:
		return 4
	case CategoryMatch, CategoryHistory, CategoryInternal:
		return 5
	case CategoryStore:
		return 6
	default:
		return 1
	}
}

// WithContext attaches a context value and returns the error for chaining
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a fix suggestion and returns the error for chaining
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new Error with a captured stack trace
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Newf creates a new Error with a formatted message
func Newf(category Category, code Code, format string, args ...interface{}) *Error {
	return New(category, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error, preserving it as the cause
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// RuleError reports a failed format rule application. The operation is the
// rule operation string; value is the operand that could not be applied.
func RuleError(code Code, operation, value string, err error) *Error {
	var message, suggestion string
	switch code {
	case CodeUnsupportedOperation:
		message = fmt.Sprintf("unsupported format rule operation %q", operation)
		suggestion = "check the mapping's formatRules against the supported operation list"
	default:
		message = fmt.Sprintf("format rule %s failed for operand %q", operation, value)
		suggestion = "check the rule operand value in the channel configuration"
	}

	var result *Error
	if err != nil {
		result = Wrap(err, CategoryRule, code, message)
	} else {
		result = New(CategoryRule, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation).
		WithContext("value", value)
}

// FieldError reports a normalization failure for one mapped field of one
// record. recordIndex is the zero-based row position within the source file,
// header rows included.
func FieldError(code Code, recordIndex int, fieldName, value string, err error) *Error {
	var message, suggestion string
	switch code {
	case CodeAmountParse:
		message = fmt.Sprintf("record %d field %q: cannot parse amount from %q", recordIndex, fieldName, value)
		suggestion = "ensure amounts are decimal numbers, or add format rules to clean the column"
	case CodeTimeParse:
		message = fmt.Sprintf("record %d field %q: cannot parse time from %q", recordIndex, fieldName, value)
		suggestion = "check the mapping's rule type and the source timezone"
	case CodeMissingColumn:
		message = fmt.Sprintf("record %d field %q: source column %q not present", recordIndex, fieldName, value)
		suggestion = "verify the source column name against the file's header row"
	default:
		message = fmt.Sprintf("record %d field %q: invalid value %q", recordIndex, fieldName, value)
		suggestion = "check the column mapping for this field"
	}

	var result *Error
	if err != nil {
		result = Wrap(err, CategoryField, code, message)
	} else {
		result = New(CategoryField, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("record_index", recordIndex).
		WithContext("field", fieldName).
		WithContext("value", value)
}

// ConfigError reports a broken channel configuration. These fail the whole
// run before any normalization begins.
func ConfigError(code Code, setting string, value interface{}, err error) *Error {
	var message, suggestion string
	switch code {
	case CodeAmbiguousStatusMapping:
		message = fmt.Sprintf("status %v appears in more than one mapping for %s", value, setting)
		suggestion = "remove the raw status from all but one status mapping"
	case CodeInvalidHistoryWindow:
		message = fmt.Sprintf("historyDays must be a positive integer, got %v", value)
		suggestion = "set historyDays to a positive day count or disable historical matching"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting in the channel configuration"
	default:
		message = fmt.Sprintf("invalid configuration for %s: %v", setting, value)
		suggestion = "check the channel configuration document"
	}

	var result *Error
	if err != nil {
		result = Wrap(err, CategoryConfig, code, message)
	} else {
		result = New(CategoryConfig, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// DuplicateIdentifierWarning reports a post-dedup duplicate identifier inside
// one source. It is attached to the result as a warning, never fatal.
func DuplicateIdentifierWarning(source, identifier string, count int) *Error {
	return New(CategoryMatch, CodeDuplicateIdentifier,
		fmt.Sprintf("identifier %q appears %d times in %s after deduplication", identifier, count, source)).
		WithSuggestion("review the id field mapping; ties are resolved in insertion order").
		WithContext("source", source).
		WithContext("identifier", identifier).
		WithContext("count", count)
}

// StoreError reports a historical store failure
func StoreError(code Code, operation string, err error) *Error {
	message := fmt.Sprintf("historical store %s failed", operation)
	result := Wrap(err, CategoryStore, code, message)
	if result == nil {
		result = New(CategoryStore, code, message)
	}
	return result.
		WithSuggestion("check the store connection settings").
		WithContext("operation", operation)
}

// FileError reports a file access failure at the CLI edge
func FileError(code Code, path string, err error) *Error {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the path is correct and the file exists"
	case CodeFileWrite:
		message = fmt.Sprintf("cannot write file: %s", path)
		suggestion = "check directory permissions"
	default:
		message = fmt.Sprintf("cannot read file: %s", path)
		suggestion = "check file permissions and encoding"
	}

	var result *Error
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// InternalError reports an unexpected failure
func InternalError(operation string, err error) *Error {
	result := Wrap(err, CategoryInternal, CodeUnexpected,
		fmt.Sprintf("unexpected error during %s", operation))
	if result == nil {
		result = New(CategoryInternal, CodeUnexpected,
			fmt.Sprintf("unexpected error during %s", operation))
	}
	return result.WithContext("operation", operation)
}

// Is reports whether err is an *Error
func Is(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// Summary aggregates a list of errors by category and code, for diagnostics
// reporting after a run.
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	ByCode     map[Code]int     `json:"by_code"`
	Errors     []*Error         `json:"errors"`
}

// NewSummary builds a Summary from the given errors
func NewSummary(errs []*Error) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[Category]int),
		ByCode:     make(map[Code]int),
		Errors:     errs,
	}
	for _, e := range errs {
		summary.ByCategory[e.Category]++
		summary.ByCode[e.Code]++
	}
	return summary
}

// Error formats the summary as a single message
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}
	if s.Total == 1 {
		return s.Errors[0].Error()
	}
	var parts []string
	for category, count := range s.ByCategory {
		parts = append(parts, fmt.Sprintf("%s: %d", category, count))
	}
	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(parts, ", "))
}

// ExitCode returns the highest exit code among the summarized errors
func (s *Summary) ExitCode() int {
	if s.Total == 0 {
		return 0
	}
	max := 1
	for _, e := range s.Errors {
		if code := e.ExitCode(); code > max {
			max = code
		}
	}
	return max
}
