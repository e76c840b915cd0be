package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while constructing an instance
// or materializing a catalog.
//
// Runtime errors include:
//   - Missing method: a hook or Call names a member that does not exist
//   - Not a method: the named member is a Field
//   - Hook failed: a hook returned an error
//   - Initialize failed: the initialize method returned an error
//   - Unknown type, mixin or builtin while building from a catalog
//
// Declaring types never produces a RuntimeError; failures are deferred to
// construction time.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Type names the type involved, if any.
	Type string

	// Instance is the instance ID, if construction had started.
	Instance string

	// Hook is the label of the failing hook, if any.
	Hook string

	// Err is the underlying error returned by user behavior.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMissingMethod indicates a member name did not resolve.
	ErrCodeMissingMethod RuntimeErrorCode = "MISSING_METHOD"

	// ErrCodeNotAMethod indicates the resolved member is a Field.
	ErrCodeNotAMethod RuntimeErrorCode = "NOT_A_METHOD"

	// ErrCodeHookFailed indicates an init hook returned an error.
	ErrCodeHookFailed RuntimeErrorCode = "HOOK_FAILED"

	// ErrCodeInitializeFailed indicates initialize returned an error.
	ErrCodeInitializeFailed RuntimeErrorCode = "INITIALIZE_FAILED"

	// ErrCodeUnknownType indicates a type name is not registered.
	ErrCodeUnknownType RuntimeErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownMixin indicates a catalog includes an undeclared mixin.
	ErrCodeUnknownMixin RuntimeErrorCode = "UNKNOWN_MIXIN"

	// ErrCodeUnknownBuiltin indicates a catalog binds a method to a builtin
	// the library does not provide.
	ErrCodeUnknownBuiltin RuntimeErrorCode = "UNKNOWN_BUILTIN"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Type != "" && e.Hook != "" {
		msg = fmt.Sprintf("%s (type=%s, hook=%s)", msg, e.Type, e.Hook)
	} else if e.Type != "" {
		msg = fmt.Sprintf("%s (type=%s)", msg, e.Type)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsMissingMethod reports whether err is a failed member lookup.
// Uses errors.As to handle wrapped errors.
func IsMissingMethod(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingMethod || re.Code == ErrCodeNotAMethod
	}
	return false
}

// IsHookFailure reports whether err came out of an init hook.
func IsHookFailure(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHookFailed
	}
	return false
}

// CodeOf returns the RuntimeErrorCode carried by err, or "" if none.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func newMissingMethodError(typeName, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingMethod,
		Message: fmt.Sprintf("no member %q", name),
		Type:    typeName,
	}
}

func newNotAMethodError(typeName, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotAMethod,
		Message: fmt.Sprintf("member %q is a field, not a method", name),
		Type:    typeName,
	}
}
