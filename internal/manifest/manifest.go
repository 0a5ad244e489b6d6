// Package manifest loads template declarations from YAML. Type
// expressions are declared as structured one-of nodes, not parsed from
// type syntax.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the top-level document: template declarations plus the
// variants to synthesize from them.
type Manifest struct {
	Templates []TemplateSpec `yaml:"templates"`
	Variants  []VariantSpec  `yaml:"variants,omitempty"`
}

// TemplateSpec declares one template.
type TemplateSpec struct {
	// Name is the template's display name. Required and unique.
	Name string `yaml:"name"`

	// Params names the declared type parameters in order. Optional: when
	// omitted, parameters are inferred from the fields in first
	// occurrence order.
	Params []string `yaml:"params,omitempty"`

	// Fields lists the template's own fields.
	Fields []FieldSpec `yaml:"fields"`

	// Bases lists inherited templates, each with its own argument list.
	// Arguments may reference this template's parameters.
	Bases []BaseSpec `yaml:"bases,omitempty"`

	// Frozen and Strict are template-level configuration flags,
	// propagated unchanged to every variant.
	Frozen bool `yaml:"frozen,omitempty"`
	Strict bool `yaml:"strict,omitempty"`
}

// FieldSpec declares one field.
type FieldSpec struct {
	Name     string    `yaml:"name"`
	Type     *TypeSpec `yaml:"type"`
	Required bool      `yaml:"required,omitempty"`
	Default  any       `yaml:"default,omitempty"`
	Doc      string    `yaml:"doc,omitempty"`
}

// BaseSpec names an inherited template and its argument list.
type BaseSpec struct {
	Template string      `yaml:"template"`
	Args     []*TypeSpec `yaml:"args,omitempty"`
}

// VariantSpec requests one parametrization.
type VariantSpec struct {
	Template string      `yaml:"template"`
	Args     []*TypeSpec `yaml:"args"`
}

// TypeSpec is a structured type expression node. Exactly one of its
// groups must be set.
type TypeSpec struct {
	// Con names a concrete leaf type (int, str, bool, float, ...).
	Con string `yaml:"con,omitempty"`

	// Param references a type parameter of the enclosing template.
	Param string `yaml:"param,omitempty"`

	// List, Set and Optional wrap a single element type.
	List     *TypeSpec `yaml:"list,omitempty"`
	Set      *TypeSpec `yaml:"set,omitempty"`
	Optional *TypeSpec `yaml:"optional,omitempty"`

	// Map is a [key, value] pair.
	Map []*TypeSpec `yaml:"map,omitempty"`

	// Union and Tuple list member types in order. Union order is
	// significant: the first member wins during downstream coercion.
	Union []*TypeSpec `yaml:"union,omitempty"`
	Tuple []*TypeSpec `yaml:"tuple,omitempty"`

	// Func declares a callable signature.
	Func *FuncSpec `yaml:"func,omitempty"`

	// TypeOf denotes the type value itself rather than an instance.
	TypeOf *TypeSpec `yaml:"typeOf,omitempty"`

	// Ref references another template, with optional arguments.
	Ref *RefSpec `yaml:"ref,omitempty"`
}

// FuncSpec declares a callable signature.
type FuncSpec struct {
	Params []*TypeSpec `yaml:"params"`
	Return *TypeSpec   `yaml:"return"`
}

// RefSpec references a declared template by name.
type RefSpec struct {
	Template string      `yaml:"template"`
	Args     []*TypeSpec `yaml:"args,omitempty"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest content from bytes. The path argument is used
// only for error messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate checks the manifest for semantic errors.
func (m *Manifest) validate(path string) error {
	if len(m.Templates) == 0 {
		return fmt.Errorf("%s: no templates defined", path)
	}
	names := make(map[string]bool, len(m.Templates))
	for i, t := range m.Templates {
		if t.Name == "" {
			return fmt.Errorf("%s: templates[%d]: name is required", path, i)
		}
		if names[t.Name] {
			return fmt.Errorf("%s: templates[%d]: duplicate template name %q", path, i, t.Name)
		}
		names[t.Name] = true
		for j, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("%s: templates[%d].fields[%d]: name is required", path, i, j)
			}
			if f.Type == nil {
				return fmt.Errorf("%s: templates[%d].fields[%d] (%s): type is required", path, i, j, f.Name)
			}
			if err := f.Type.validate(fmt.Sprintf("%s: templates[%d].fields[%d] (%s)", path, i, j, f.Name)); err != nil {
				return err
			}
		}
		for j, b := range t.Bases {
			if b.Template == "" {
				return fmt.Errorf("%s: templates[%d].bases[%d]: template is required", path, i, j)
			}
			for k, a := range b.Args {
				if err := a.validate(fmt.Sprintf("%s: templates[%d].bases[%d].args[%d]", path, i, j, k)); err != nil {
					return err
				}
			}
		}
	}
	for i, v := range m.Variants {
		if v.Template == "" {
			return fmt.Errorf("%s: variants[%d]: template is required", path, i)
		}
		if len(v.Args) == 0 {
			return fmt.Errorf("%s: variants[%d] (%s): args is required", path, i, v.Template)
		}
		for j, a := range v.Args {
			if err := a.validate(fmt.Sprintf("%s: variants[%d].args[%d]", path, i, j)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *TypeSpec) validate(ctx string) error {
	count := 0
	if s.Con != "" {
		count++
	}
	if s.Param != "" {
		count++
	}
	for _, sub := range []*TypeSpec{s.List, s.Set, s.Optional, s.TypeOf} {
		if sub != nil {
			count++
		}
	}
	if s.Map != nil {
		count++
	}
	if s.Union != nil {
		count++
	}
	if s.Tuple != nil {
		count++
	}
	if s.Func != nil {
		count++
	}
	if s.Ref != nil {
		count++
	}
	if count == 0 {
		return fmt.Errorf("%s: empty type expression", ctx)
	}
	if count > 1 {
		return fmt.Errorf("%s: type expression must set exactly one of con, param, list, set, optional, map, union, tuple, func, typeOf, ref", ctx)
	}
	if s.Map != nil && len(s.Map) != 2 {
		return fmt.Errorf("%s: map takes exactly [key, value]", ctx)
	}
	if s.Union != nil && len(s.Union) < 2 {
		return fmt.Errorf("%s: union needs at least two members", ctx)
	}
	if s.Func != nil && s.Func.Return == nil {
		return fmt.Errorf("%s: func requires a return type", ctx)
	}
	for _, sub := range s.children() {
		if err := sub.validate(ctx); err != nil {
			return err
		}
	}
	if s.Ref != nil && s.Ref.Template == "" {
		return fmt.Errorf("%s: ref requires a template name", ctx)
	}
	return nil
}

func (s *TypeSpec) children() []*TypeSpec {
	var out []*TypeSpec
	for _, sub := range []*TypeSpec{s.List, s.Set, s.Optional, s.TypeOf} {
		if sub != nil {
			out = append(out, sub)
		}
	}
	out = append(out, s.Map...)
	out = append(out, s.Union...)
	out = append(out, s.Tuple...)
	if s.Func != nil {
		out = append(out, s.Func.Params...)
		out = append(out, s.Func.Return)
	}
	if s.Ref != nil {
		out = append(out, s.Ref.Args...)
	}
	return out
}
