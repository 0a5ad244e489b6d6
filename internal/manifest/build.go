package manifest

import (
	"fmt"

	"github.com/varigen/varigen/internal/config"
	"github.com/varigen/varigen/internal/template"
	"github.com/varigen/varigen/internal/typeexpr"
)

// Set is the built form of a manifest: the declared templates and the
// requested variants, in declaration order.
type Set struct {
	Templates map[string]*template.Template
	Order     []string
	Variants  []*template.Template
}

// Build declares every template and parametrizes the requested variants
// against the default cache.
func (m *Manifest) Build() (*Set, error) {
	return m.BuildWith(template.DefaultCache)
}

// BuildWith is Build against an explicit cache. Templates are declared
// in two passes so fields may reference templates declared later in the
// document; bases must be declared before the templates inheriting them.
func (m *Manifest) BuildWith(c *template.Cache) (*Set, error) {
	b := &builder{
		templates: make(map[string]*template.Template, len(m.Templates)),
		scopes:    make(map[string]map[string]*typeexpr.TVar, len(m.Templates)),
	}
	set := &Set{Templates: b.templates}

	for _, spec := range m.Templates {
		t := template.Declare(spec.Name)
		t.SetCache(c)
		t.SetConfig(template.Config{Frozen: spec.Frozen, Strict: spec.Strict})
		b.templates[spec.Name] = t
		b.scopes[spec.Name] = make(map[string]*typeexpr.TVar)
		set.Order = append(set.Order, spec.Name)
	}

	for _, spec := range m.Templates {
		t := b.templates[spec.Name]
		fields := make([]template.Field, len(spec.Fields))
		for i, fs := range spec.Fields {
			typ, err := b.resolve(fs.Type, spec.Name)
			if err != nil {
				return nil, err
			}
			fields[i] = template.Field{
				Name:     fs.Name,
				Type:     typ,
				Required: fs.Required,
				Default:  fs.Default,
				Doc:      fs.Doc,
			}
		}
		var bases []template.Base
		for _, bs := range spec.Bases {
			parent, ok := b.templates[bs.Template]
			if !ok {
				return nil, fmt.Errorf("template %s: unknown base template %q", spec.Name, bs.Template)
			}
			args := make([]typeexpr.Type, len(bs.Args))
			for i, as := range bs.Args {
				arg, err := b.resolve(as, spec.Name)
				if err != nil {
					return nil, err
				}
				args[i] = arg
			}
			bases = append(bases, template.Base{Template: parent, Args: args})
		}
		var params []typeexpr.Type
		if spec.Params != nil {
			params = make([]typeexpr.Type, len(spec.Params))
			for i, name := range spec.Params {
				params[i] = b.paramVar(spec.Name, name)
			}
		}
		if err := t.Define(params, fields, bases...); err != nil {
			return nil, fmt.Errorf("template %s: %w", spec.Name, err)
		}
	}

	for _, vs := range m.Variants {
		t, ok := b.templates[vs.Template]
		if !ok {
			return nil, fmt.Errorf("variant: unknown template %q", vs.Template)
		}
		args := make([]typeexpr.Type, len(vs.Args))
		for i, as := range vs.Args {
			arg, err := b.resolve(as, vs.Template)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		v, err := t.Parametrize(args...)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", vs.Template, err)
		}
		set.Variants = append(set.Variants, v)
	}
	return set, nil
}

type builder struct {
	templates map[string]*template.Template
	scopes    map[string]map[string]*typeexpr.TVar
}

// paramVar resolves a parameter name within a template's scope, creating
// the parameter on first mention. Identity scoping keeps same-named
// parameters of different templates distinct.
func (b *builder) paramVar(tmpl, name string) *typeexpr.TVar {
	scope := b.scopes[tmpl]
	if v, ok := scope[name]; ok {
		return v
	}
	v := typeexpr.NewVar(name)
	scope[name] = v
	return v
}

func (b *builder) resolve(spec *TypeSpec, tmpl string) (typeexpr.Type, error) {
	switch {
	case spec.Con != "":
		return leafFor(spec.Con), nil
	case spec.Param != "":
		return b.paramVar(tmpl, spec.Param), nil
	case spec.List != nil:
		elem, err := b.resolve(spec.List, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.List(elem), nil
	case spec.Set != nil:
		elem, err := b.resolve(spec.Set, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.SetOf(elem), nil
	case spec.Optional != nil:
		inner, err := b.resolve(spec.Optional, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.Optional(inner), nil
	case spec.Map != nil:
		key, err := b.resolve(spec.Map[0], tmpl)
		if err != nil {
			return nil, err
		}
		value, err := b.resolve(spec.Map[1], tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.MapOf(key, value), nil
	case spec.Union != nil:
		members, err := b.resolveAll(spec.Union, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewUnion(members...), nil
	case spec.Tuple != nil:
		elems, err := b.resolveAll(spec.Tuple, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewTuple(elems...), nil
	case spec.Func != nil:
		params, err := b.resolveAll(spec.Func.Params, tmpl)
		if err != nil {
			return nil, err
		}
		ret, err := b.resolve(spec.Func.Return, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewFunc(params, ret), nil
	case spec.TypeOf != nil:
		inner, err := b.resolve(spec.TypeOf, tmpl)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewTypeOf(inner), nil
	case spec.Ref != nil:
		target, ok := b.templates[spec.Ref.Template]
		if !ok {
			return nil, fmt.Errorf("template %s: unknown template reference %q", tmpl, spec.Ref.Template)
		}
		args, err := b.resolveAll(spec.Ref.Args, tmpl)
		if err != nil {
			return nil, err
		}
		return target.Ref(args...), nil
	}
	return nil, fmt.Errorf("template %s: empty type expression", tmpl)
}

func (b *builder) resolveAll(specs []*TypeSpec, tmpl string) ([]typeexpr.Type, error) {
	out := make([]typeexpr.Type, len(specs))
	for i, s := range specs {
		t, err := b.resolve(s, tmpl)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func leafFor(name string) *typeexpr.TCon {
	switch name {
	case config.IntTypeName:
		return typeexpr.Int
	case config.StringTypeName:
		return typeexpr.Str
	case config.BoolTypeName:
		return typeexpr.Bool
	case config.FloatTypeName:
		return typeexpr.Float
	case config.BytesTypeName:
		return typeexpr.Bytes
	case config.AnyTypeName:
		return typeexpr.Any
	case config.NoneTypeName:
		return typeexpr.None
	}
	return typeexpr.NewCon(name)
}
