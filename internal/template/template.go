package template

import (
	"strings"

	"github.com/google/uuid"
	"github.com/varigen/varigen/internal/typeexpr"
)

// Field is a named, typed slot of a template. Field declarations come
// from the record definition layer; the engine only substitutes their
// type expressions and carries the rest verbatim.
type Field struct {
	Name     string
	Type     typeexpr.Type
	Required bool
	Default  any
	Doc      string
}

// Config carries template-level flags. Variants inherit it unchanged.
type Config struct {
	Frozen bool
	Strict bool
}

// NameFunc overrides the default bracketed display name of a variant.
// It receives the fully resolved argument tuple.
type NameFunc func(args []typeexpr.Type) string

// Base is a parent template inherited with its own argument list. The
// arguments may reference the child's declared parameters.
type Base struct {
	Template *Template
	Args     []typeexpr.Type
}

// Template is a generic, field-bearing type declaration. Declared
// templates and the variants the factory synthesizes from them share
// this representation: a variant is a template whose origin and origin
// arguments are recorded for naming, subtype checks and further
// parametrization.
//
// Templates are immutable once finalized. Reference identity is the
// equality contract: the cache guarantees at most one variant instance
// per canonical key.
type Template struct {
	id        uuid.UUID
	name      string
	params    []*typeexpr.TVar
	ownFields []Field
	fields    []Field // effective fields, merged across bases at finalization
	bases     []Base
	cfg       Config
	nameFunc  NameFunc

	origin     *Template // declared template this variant was derived from
	originArgs []typeexpr.Type

	finalized bool
	cache     *Cache
}

// Declare creates an open template: a named shell whose fields may
// reference templates that do not exist yet. Mutually recursive
// declarations Declare both shells first, then Define each.
func Declare(name string) *Template {
	return &Template{id: uuid.New(), name: name, cache: DefaultCache}
}

// Define sets the declaration and finalizes the template. Each element
// of params must be a type parameter; fields and base arguments may
// reference open templates, which are resolved when parametrization
// first touches them.
func (t *Template) Define(params []typeexpr.Type, fields []Field, bases ...Base) error {
	declared := make([]*typeexpr.TVar, len(params))
	for i, p := range params {
		v, ok := p.(*typeexpr.TVar)
		if !ok || v == nil {
			got := "nil"
			if p != nil {
				got = p.String()
			}
			return NewInvalidParameterError(t.name, i, got)
		}
		declared[i] = v
	}
	for _, b := range bases {
		if !b.Template.finalized {
			return NewUnresolvedReferenceError(b.Template.name)
		}
		if len(b.Args) > len(b.Template.params) {
			return NewParameterArityError(b.Template.name, len(b.Template.params), len(b.Args))
		}
	}
	merged, err := mergeFields(fields, bases)
	if err != nil {
		return err
	}
	t.ownFields = fields
	t.bases = bases
	t.fields = merged
	if params == nil {
		// Recover the declared-parameter invariant from the declaration
		// itself.
		t.params = inferParams(t.fields, t.bases)
	} else {
		t.params = declared
	}
	t.finalized = true
	return nil
}

// New declares and defines a template in one step.
func New(name string, params []typeexpr.Type, fields []Field, bases ...Base) (*Template, error) {
	t := Declare(name)
	if err := t.Define(params, fields, bases...); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is New for statically known declarations.
func MustNew(name string, params []typeexpr.Type, fields []Field, bases ...Base) *Template {
	t, err := New(name, params, fields, bases...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the display name. For variants this is the bracketed
// rendering of the origin name and arguments, or the NameFunc override.
func (t *Template) Name() string { return t.name }

// Params returns the declared parameters in order. Empty means the
// template is concrete and its field list is schema-compilable.
func (t *Template) Params() []*typeexpr.TVar { return t.params }

// Fields returns the effective, fully merged field list. For a concrete
// variant every type expression is fully substituted; this is the
// surface the validation and serialization engine compiles from.
func (t *Template) Fields() []Field { return t.fields }

// Bases returns the inherited parent references.
func (t *Template) Bases() []Base { return t.bases }

// Config returns the template-level configuration flags.
func (t *Template) Config() Config { return t.cfg }

// Origin returns the declared template a variant was derived from, or
// nil for a declared template.
func (t *Template) Origin() *Template { return t.origin }

// Args returns the resolved argument tuple a variant was created with.
func (t *Template) Args() []typeexpr.Type { return t.originArgs }

// Concrete reports whether no free parameters remain.
func (t *Template) Concrete() bool { return t.finalized && len(t.params) == 0 }

// Finalized reports whether the template declaration is complete.
func (t *Template) Finalized() bool { return t.finalized }

// SetConfig replaces the configuration flags. Must be called before the
// template is parametrized; variants copy the flags at creation time.
func (t *Template) SetConfig(cfg Config) { t.cfg = cfg }

// SetNameFunc installs a custom variant naming function.
func (t *Template) SetNameFunc(f NameFunc) { t.nameFunc = f }

// SetCache routes this template's parametrization through c. Variants
// inherit the cache of the template they were derived from.
func (t *Template) SetCache(c *Cache) { t.cache = c }

// Parametrize applies args to the template's declared parameters and
// returns the memoized variant. Arguments that are themselves free
// parameters produce a partial, still-generic variant.
func (t *Template) Parametrize(args ...typeexpr.Type) (*Template, error) {
	return t.cache.GetOrCreate(t, args)
}

// IsSubtypeOf reports whether t is other or derives from it through its
// origin or ancestry chain. Siblings sharing an ancestor are unrelated.
func (t *Template) IsSubtypeOf(other *Template) bool {
	if t == other {
		return true
	}
	if t.origin != nil && t.origin.IsSubtypeOf(other) {
		return true
	}
	for _, b := range t.bases {
		if b.Template.IsSubtypeOf(other) {
			return true
		}
	}
	return false
}

// Referent implementation: templates are referenceable from type
// expressions without typeexpr importing this package.

func (t *Template) RefName() string { return t.name }

func (t *Template) RefID() string { return t.id.String() }

func (t *Template) RefParams() []*typeexpr.TVar { return t.params }

func (t *Template) RefFinalized() bool { return t.finalized }

func (t *Template) Instantiate(args []typeexpr.Type) (typeexpr.Referent, error) {
	return t.cache.GetOrCreate(t, args)
}

// Ref builds a type expression referencing t applied to args.
func (t *Template) Ref(args ...typeexpr.Type) *typeexpr.TRef {
	return typeexpr.NewRef(t, args...)
}

// mergeFields linearizes the effective field list: own fields first,
// then each base depth first, left to right, with the first occurrence
// of a name winning. Base fields are substituted under the base's own
// argument list, so a child binding of a shared parameter flows through.
func mergeFields(own []Field, bases []Base) ([]Field, error) {
	out := make([]Field, 0, len(own))
	seen := make(map[string]bool)
	for _, f := range own {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	for _, b := range bases {
		s := make(typeexpr.Subst)
		for i, p := range b.Template.params {
			if i < len(b.Args) {
				s[p] = b.Args[i]
			}
		}
		for _, f := range b.Template.fields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			ft, err := typeexpr.SubstituteStrict(f.Type, s)
			if err != nil {
				return nil, err
			}
			f.Type = ft
			out = append(out, f)
		}
	}
	return out, nil
}

// inferParams recovers the declared-parameter invariant: the free
// parameters reachable from fields and unresolved base arguments, in
// first occurrence order, deduplicated.
func inferParams(fields []Field, bases []Base) []*typeexpr.TVar {
	var out []*typeexpr.TVar
	seen := make(map[*typeexpr.TVar]bool)
	collect := func(t typeexpr.Type) {
		for v := range typeexpr.Scan(t) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, f := range fields {
		collect(f.Type)
	}
	for _, b := range bases {
		if len(b.Args) == 0 {
			// A base carried without a pending argument list keeps its own
			// remaining parameters. Nothing else mentions them when the
			// child shadows every field that carried one.
			for _, p := range b.Template.params {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
			continue
		}
		for _, a := range b.Args {
			collect(a)
		}
	}
	return out
}

func defaultName(base string, args []typeexpr.Type, unbound []*typeexpr.TVar) string {
	parts := make([]string, 0, len(args)+len(unbound))
	for _, a := range args {
		parts = append(parts, renderArg(a))
	}
	for _, v := range unbound {
		parts = append(parts, v.String())
	}
	return base + "[" + strings.Join(parts, ", ") + "]"
}

// renderArg names an argument for display: template references render
// the referenced template's name, everything else its string form.
func renderArg(t typeexpr.Type) string {
	if ref, ok := t.(*typeexpr.TRef); ok && len(ref.Args) == 0 {
		return ref.Target.RefName()
	}
	return t.String()
}
