// Package jsonschema renders concrete variants into JSON Schema
// values. Nested template references become "$ref" entries against a
// shared "$defs" section, which keeps self-referential variants finite.
package jsonschema

import (
	"fmt"

	"github.com/varigen/varigen/internal/config"
	"github.com/varigen/varigen/internal/template"
	"github.com/varigen/varigen/internal/typeexpr"
)

// Schema is a JSON Schema fragment.
type Schema = map[string]any

// NotConcreteError indicates schema generation was attempted on a
// template that still declares free parameters.
type NotConcreteError struct {
	Name string
}

func (e *NotConcreteError) Error() string {
	return fmt.Sprintf("%s still declares free parameters and cannot be compiled to a schema", e.Name)
}

// UnsupportedTypeError indicates a type expression with no JSON Schema
// rendering (callables, type-of nodes, unknown constructors).
type UnsupportedTypeError struct {
	Expr string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no JSON Schema form for %s", e.Expr)
}

// Generator accumulates shared definitions across one or more Generate
// calls.
type Generator struct {
	defs     map[string]Schema
	building map[string]bool
}

func NewGenerator() *Generator {
	return &Generator{
		defs:     make(map[string]Schema),
		building: make(map[string]bool),
	}
}

// Generate returns the schema of a concrete variant. Definitions pulled
// in by nested template references are attached under "$defs".
func (g *Generator) Generate(t *template.Template) (Schema, error) {
	if !t.Concrete() {
		return nil, &NotConcreteError{Name: t.Name()}
	}
	root, err := g.object(t)
	if err != nil {
		return nil, err
	}
	if len(g.defs) > 0 {
		defs := make(Schema, len(g.defs))
		for name, def := range g.defs {
			defs[name] = def
		}
		root["$defs"] = defs
	}
	return root, nil
}

func (g *Generator) object(t *template.Template) (Schema, error) {
	props := Schema{}
	var required []string
	for _, f := range t.Fields() {
		fs, err := g.typeSchema(f.Type)
		if err != nil {
			return nil, err
		}
		fs = annotate(fs, f)
		props[f.Name] = fs
		if f.Required {
			required = append(required, f.Name)
		}
	}
	s := Schema{
		"title":      t.Name(),
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s, nil
}

func (g *Generator) typeSchema(t typeexpr.Type) (Schema, error) {
	switch typ := t.(type) {
	case *typeexpr.TCon:
		if typ.Underlying != nil && len(typ.TypeParams) == 0 {
			return g.typeSchema(typ.Underlying)
		}
		if typ.Name == config.AnyTypeName {
			return Schema{}, nil
		}
		if js, ok := config.JSONSchemaTypes[typ.Name]; ok {
			return Schema{"type": js}, nil
		}
		return nil, &UnsupportedTypeError{Expr: typ.String()}

	case *typeexpr.TApp:
		if typ.Constructor.Underlying != nil {
			return g.typeSchema(typeexpr.ExpandAlias(typ))
		}
		switch typ.Constructor.Name {
		case config.ListTypeName, config.SetTypeName:
			items, err := g.typeSchema(typ.Args[0])
			if err != nil {
				return nil, err
			}
			s := Schema{"type": "array", "items": items}
			if typ.Constructor.Name == config.SetTypeName {
				s["uniqueItems"] = true
			}
			return s, nil
		case config.MapTypeName:
			value, err := g.typeSchema(typ.Args[1])
			if err != nil {
				return nil, err
			}
			return Schema{"type": "object", "additionalProperties": value}, nil
		}
		return nil, &UnsupportedTypeError{Expr: typ.String()}

	case *typeexpr.TUnion:
		members := make([]any, len(typ.Types))
		for i, m := range typ.Types {
			ms, err := g.typeSchema(m)
			if err != nil {
				return nil, err
			}
			members[i] = ms
		}
		return Schema{"anyOf": members}, nil

	case *typeexpr.TTuple:
		items := make([]any, len(typ.Elements))
		for i, e := range typ.Elements {
			es, err := g.typeSchema(e)
			if err != nil {
				return nil, err
			}
			items[i] = es
		}
		n := len(typ.Elements)
		return Schema{"type": "array", "prefixItems": items, "minItems": n, "maxItems": n}, nil

	case *typeexpr.TRef:
		return g.refSchema(typ)
	}
	return nil, &UnsupportedTypeError{Expr: t.String()}
}

func (g *Generator) refSchema(ref *typeexpr.TRef) (Schema, error) {
	target := ref.Target
	if len(ref.Args) > 0 {
		// A reference left symbolic by substitution: resolve it now that
		// the target may have finalized.
		if !target.RefFinalized() {
			return nil, template.NewUnresolvedReferenceError(target.RefName())
		}
		inst, err := target.Instantiate(ref.Args)
		if err != nil {
			return nil, err
		}
		target = inst
	}
	tm, ok := target.(*template.Template)
	if !ok {
		return nil, &UnsupportedTypeError{Expr: ref.String()}
	}
	if !tm.Concrete() {
		return nil, &NotConcreteError{Name: tm.Name()}
	}
	name := tm.Name()
	if _, done := g.defs[name]; !done && !g.building[name] {
		g.building[name] = true
		def, err := g.object(tm)
		delete(g.building, name)
		if err != nil {
			return nil, err
		}
		g.defs[name] = def
	}
	return Schema{"$ref": "#/$defs/" + name}, nil
}

// annotate layers field-level metadata over the type schema. The type
// schema may be shared (a "$ref" map), so annotation copies first.
func annotate(s Schema, f template.Field) Schema {
	if f.Doc == "" && f.Default == nil {
		return s
	}
	out := make(Schema, len(s)+2)
	for k, v := range s {
		out[k] = v
	}
	if f.Doc != "" {
		out["description"] = f.Doc
	}
	if f.Default != nil {
		out["default"] = f.Default
	}
	return out
}
