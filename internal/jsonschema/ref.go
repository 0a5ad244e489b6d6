package jsonschema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/varigen/varigen/internal/typeexpr"
)

// RefNotFoundError indicates a "$ref" that points at no known
// definition.
type RefNotFoundError struct {
	Ref string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("schema reference %s not found", e.Ref)
}

// Handler chains into the next schema generation step and resolves
// "$ref" indirection produced along the way.
type Handler interface {
	// Generate invokes the next generation step for a type expression.
	Generate(t typeexpr.Type) (Schema, error)
	// Resolve returns the concrete schema behind a possibly-$ref schema.
	// Non-ref schemas are returned as-is, so callers never need to check
	// first.
	Resolve(maybeRef Schema) (Schema, error)
}

// GenerateFunc is a user schema-modifying step: it receives the node and
// the handler for the rest of the chain.
type GenerateFunc func(t typeexpr.Type, h Handler) (Schema, error)

// DefsHandler is the standard Handler backed by a Generator's shared
// definitions.
type DefsHandler struct {
	Gen *Generator
}

func (h DefsHandler) Generate(t typeexpr.Type) (Schema, error) {
	return h.Gen.typeSchema(t)
}

func (h DefsHandler) Resolve(maybeRef Schema) (Schema, error) {
	ref, ok := maybeRef["$ref"].(string)
	if !ok {
		return maybeRef, nil
	}
	name := strings.TrimPrefix(ref, "#/$defs/")
	def, ok := h.Gen.defs[name]
	if !ok {
		return nil, &RefNotFoundError{Ref: ref}
	}
	return def, nil
}

// UnpackedRefHandler wraps a Handler so a generation function always
// sees the concrete schema even when the chain produced a "$ref", and
// Update writes the function's result back through the indirection.
type UnpackedRefHandler struct {
	inner    Handler
	original Schema
}

func NewUnpackedRefHandler(inner Handler) *UnpackedRefHandler {
	return &UnpackedRefHandler{inner: inner}
}

func (h *UnpackedRefHandler) Resolve(maybeRef Schema) (Schema, error) {
	return h.inner.Resolve(maybeRef)
}

func (h *UnpackedRefHandler) Generate(t typeexpr.Type) (Schema, error) {
	original, err := h.inner.Generate(t)
	if err != nil {
		return nil, err
	}
	h.original = original
	return h.Resolve(original)
}

// Update reconciles the schema a generation function returned with the
// original, possibly-indirect schema recorded by Generate. A brand-new
// schema replaces the resolved original in place, so every holder of the
// "$ref" observes the mutation; the original (ref or not) is what the
// caller keeps.
func (h *UnpackedRefHandler) Update(schema Schema) (Schema, error) {
	if h.original == nil {
		// Generate was never called; nothing to write back.
		return schema, nil
	}
	original, err := h.Resolve(h.original)
	if err != nil {
		return nil, err
	}
	if !sameSchema(original, h.original) && !sameSchema(schema, original) {
		for k := range original {
			delete(original, k)
		}
		for k, v := range schema {
			original[k] = v
		}
	}
	return h.original, nil
}

// WrapWithRefUnpacking adapts fn so it can mutate the concrete form of a
// schema without knowing whether the chain produced indirection.
func WrapWithRefUnpacking(fn GenerateFunc) GenerateFunc {
	return func(t typeexpr.Type, h Handler) (Schema, error) {
		wrapped := NewUnpackedRefHandler(h)
		s, err := fn(t, wrapped)
		if err != nil {
			return nil, err
		}
		return wrapped.Update(s)
	}
}

// sameSchema reports map identity, not equality: write-back must only be
// skipped when the two values are the same underlying map.
func sameSchema(a, b Schema) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
