package types

import "fmt"

// ErrorKind classifies a reference-handling failure.
type ErrorKind string

const (
	KindSyntax               ErrorKind = "SyntaxError"
	KindVariableNotFound     ErrorKind = "VariableNotFoundError"
	KindPropertyNotFound     ErrorKind = "PropertyNotFoundError"
	KindIndexOutOfRange      ErrorKind = "IndexOutOfRangeError"
	KindTypeMismatch         ErrorKind = "TypeMismatchError"
	KindDuplicateStepBinding ErrorKind = "DuplicateStepBindingError"
)

// ReferenceError is a failure tied to one ${...} reference. Reference holds
// the full reference text and Accessor the specific path segment that
// failed, so step-failure reports can name both.
type ReferenceError struct {
	Kind      ErrorKind
	Message   string
	Reference string // full reference text, e.g. "${items[5]}"
	Accessor  string // failing accessor, e.g. "[5]" or ".price"
}

// Error implements the error interface.
func (e *ReferenceError) Error() string {
	if e.Reference != "" && e.Accessor != "" {
		return fmt.Sprintf("%s: %s (in %s at %s)", e.Kind, e.Message, e.Reference, e.Accessor)
	}
	if e.Reference != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Reference)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Recoverable reports whether resolution may continue past this error by
// leaving the original reference text in place. A missing root variable and
// a malformed reference are warnings; structural walk failures are fatal.
func (e *ReferenceError) Recoverable() bool {
	return e.Kind == KindVariableNotFound || e.Kind == KindSyntax
}

// ToValue converts the error to an object value for wire transport.
func (e *ReferenceError) ToValue() Value {
	m := NewOrderedMap()
	m.Set("kind", NewString(string(e.Kind)))
	m.Set("message", NewString(e.Message))
	if e.Reference != "" {
		m.Set("reference", NewString(e.Reference))
	}
	if e.Accessor != "" {
		m.Set("accessor", NewString(e.Accessor))
	}
	return NewObject(m)
}

// NewSyntaxError creates a SyntaxError for malformed reference text.
func NewSyntaxError(reference, msg string) *ReferenceError {
	return &ReferenceError{Kind: KindSyntax, Message: msg, Reference: reference}
}

// NewVariableNotFoundError creates a VariableNotFoundError for a missing root.
func NewVariableNotFoundError(reference, name string) *ReferenceError {
	return &ReferenceError{
		Kind:      KindVariableNotFound,
		Message:   fmt.Sprintf("variable %q is not defined in this execution", name),
		Reference: reference,
	}
}

// NewPropertyNotFoundError creates a PropertyNotFoundError for a missing object key.
func NewPropertyNotFoundError(reference, key string) *ReferenceError {
	return &ReferenceError{
		Kind:      KindPropertyNotFound,
		Message:   fmt.Sprintf("property %q not found", key),
		Reference: reference,
		Accessor:  "." + key,
	}
}

// NewIndexOutOfRangeError creates an IndexOutOfRangeError for an out-of-bounds index.
func NewIndexOutOfRangeError(reference string, index int, length int) *ReferenceError {
	return &ReferenceError{
		Kind:      KindIndexOutOfRange,
		Message:   fmt.Sprintf("index %d out of range (length %d)", index, length),
		Reference: reference,
		Accessor:  fmt.Sprintf("[%d]", index),
	}
}

// NewTypeMismatchError creates a TypeMismatchError for an accessor applied
// to an incompatible value shape.
func NewTypeMismatchError(reference, accessor string, got ValueType) *ReferenceError {
	return &ReferenceError{
		Kind:      KindTypeMismatch,
		Message:   fmt.Sprintf("cannot apply %s to a %s value", accessor, got),
		Reference: reference,
		Accessor:  accessor,
	}
}

// NewDuplicateStepBindingError creates a DuplicateStepBindingError for a
// step that binds the same output name twice with conflicting values.
func NewDuplicateStepBindingError(name string, stepIndex int) *ReferenceError {
	return &ReferenceError{
		Kind:    KindDuplicateStepBinding,
		Message: fmt.Sprintf("step %d already bound variable %q with a different value", stepIndex, name),
	}
}
