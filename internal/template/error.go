package template

import "fmt"

// NotGenericError indicates an attempt to parametrize a template that
// declares no free parameters.
type NotGenericError struct {
	Name string
}

func (e *NotGenericError) Error() string {
	return fmt.Sprintf("%s is not a generic template and cannot be parametrized", e.Name)
}

func NewNotGenericError(name string) *NotGenericError {
	return &NotGenericError{Name: name}
}

// ParameterArityError indicates more arguments than declared parameters.
type ParameterArityError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *ParameterArityError) Error() string {
	return fmt.Sprintf("too many parameters for %s; actual %d, expected %d", e.Name, e.Actual, e.Expected)
}

func NewParameterArityError(name string, expected, actual int) *ParameterArityError {
	return &ParameterArityError{Name: name, Expected: expected, Actual: actual}
}

// InvalidParameterError indicates a template declaration whose parameter
// list contains something other than a type parameter.
type InvalidParameterError struct {
	Name     string
	Position int
	Got      string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("template %s: declared parameter %d must be a type parameter, got %s", e.Name, e.Position, e.Got)
}

func NewInvalidParameterError(name string, position int, got string) *InvalidParameterError {
	return &InvalidParameterError{Name: name, Position: position, Got: got}
}

// UnresolvedReferenceError indicates a forward or self reference used
// before the owning template was finalized.
type UnresolvedReferenceError struct {
	Name string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("template %s has unresolved references; finalize it before parametrizing", e.Name)
}

func NewUnresolvedReferenceError(name string) *UnresolvedReferenceError {
	return &UnresolvedReferenceError{Name: name}
}

// Deferred reports that the failure resolves itself once the referent
// finalizes. Substitution keeps such references symbolic instead of
// failing the enclosing parametrization (typeexpr.DeferredError).
func (e *UnresolvedReferenceError) Deferred() bool { return true }
