package typeexpr

import (
	"fmt"
	"strings"

	"github.com/varigen/varigen/internal/config"
)

// Type is the interface for all type expressions in the engine.
//
// Every node is a pointer type, so comparing two Type values with ==
// compares node identity. The substitutor relies on this: an unchanged
// subtree is returned as the original pointer, never an equal copy.
type Type interface {
	String() string
	Apply(Subst) Type
}

// Referent is the template side of a TRef. The concrete implementation
// lives in the template package; typeexpr only needs enough of it to
// scan, key and re-instantiate references.
type Referent interface {
	// RefName returns the display name of the referenced template.
	RefName() string
	// RefID returns a stable, process-unique identity for cache keys.
	RefID() string
	// RefParams returns the remaining free parameters in declared order.
	RefParams() []*TVar
	// RefFinalized reports whether the referenced template has been
	// finalized. References to open templates are substituted symbolically
	// and resolved again after finalization.
	RefFinalized() bool
	// Instantiate parametrizes the referenced template through its cache.
	Instantiate(args []Type) (Referent, error)
}

// TVar is a free type parameter (e.g. T, K, V) with an optional bound.
// Identity, not name, distinguishes parameters: two TVars named "T"
// declared by different templates are unrelated.
type TVar struct {
	Name  string
	Bound Type
}

func NewVar(name string) *TVar {
	return &TVar{Name: name}
}

func NewBoundVar(name string, bound Type) *TVar {
	return &TVar{Name: name, Bound: bound}
}

func (t *TVar) String() string {
	return "~" + t.Name
}

func (t *TVar) Apply(s Subst) Type { return Substitute(t, s) }

// TCon is a concrete leaf type (int, str, a user-defined scalar). A TCon
// with a non-nil Underlying is a type alias; TypeParams names the alias
// parameters for parameterized aliases.
type TCon struct {
	Name       string
	Module     string
	Underlying Type
	TypeParams []*TVar
}

func NewCon(name string) *TCon {
	return &TCon{Name: name}
}

// NewAlias declares a (possibly parameterized) alias: Name over params
// expands to underlying.
func NewAlias(name string, underlying Type, params ...*TVar) *TCon {
	return &TCon{Name: name, Underlying: underlying, TypeParams: params}
}

func (t *TCon) String() string {
	if t.Module != "" {
		return t.Module + "." + t.Name
	}
	return t.Name
}

func (t *TCon) Apply(s Subst) Type { return Substitute(t, s) }

// TApp is a subscripted container: a named constructor applied to
// arguments, e.g. List[T] or Map[K, V].
type TApp struct {
	Constructor *TCon
	Args        []Type
}

func NewApp(con *TCon, args ...Type) *TApp {
	return &TApp{Constructor: con, Args: args}
}

func (t *TApp) String() string {
	return t.Constructor.String() + bracketed(t.Args)
}

func (t *TApp) Apply(s Subst) Type { return Substitute(t, s) }

// TUnion is an untagged union. Member order is significant and is never
// normalized: the downstream validator coerces against the first listed
// member, so Union[int, float] and Union[float, int] are distinct types
// and distinct cache entries.
type TUnion struct {
	Types []Type
}

func NewUnion(types ...Type) *TUnion {
	return &TUnion{Types: types}
}

func (t *TUnion) String() string {
	return "Union" + bracketed(t.Types)
}

func (t *TUnion) Apply(s Subst) Type { return Substitute(t, s) }

// TTuple is a fixed-length heterogeneous tuple.
type TTuple struct {
	Elements []Type
}

func NewTuple(elems ...Type) *TTuple {
	return &TTuple{Elements: elems}
}

func (t *TTuple) String() string {
	return "Tuple" + bracketed(t.Elements)
}

func (t *TTuple) Apply(s Subst) Type { return Substitute(t, s) }

// TFunc is a callable signature. Its parameter list is structurally a
// sequence, which is why cache keys flatten it through Key rather than
// using the node directly.
type TFunc struct {
	Params []Type
	Return Type
}

func NewFunc(params []Type, ret Type) *TFunc {
	return &TFunc{Params: params, Return: ret}
}

func (t *TFunc) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("Callable[[%s], %s]", strings.Join(parts, ", "), t.Return.String())
}

func (t *TFunc) Apply(s Subst) Type { return Substitute(t, s) }

// TType is the type-of node: the expression denotes the type value
// itself rather than an instance of it.
type TType struct {
	Type Type
}

func NewTypeOf(inner Type) *TType {
	return &TType{Type: inner}
}

func (t *TType) String() string {
	return fmt.Sprintf("Type[%s]", t.Type.String())
}

func (t *TType) Apply(s Subst) Type { return Substitute(t, s) }

// TRef is a reference to a template, optionally applied to arguments.
// A TRef with empty Args refers to the template as-is (typically an
// already-instantiated variant).
type TRef struct {
	Target Referent
	Args   []Type
}

func NewRef(target Referent, args ...Type) *TRef {
	return &TRef{Target: target, Args: args}
}

func (t *TRef) String() string {
	if len(t.Args) == 0 {
		return t.Target.RefName()
	}
	return t.Target.RefName() + bracketed(t.Args)
}

func (t *TRef) Apply(s Subst) Type { return Substitute(t, s) }

// Built-in leaf singletons. Shared pointers are safe: nodes are immutable
// after construction.
var (
	Int     = &TCon{Name: config.IntTypeName}
	Str     = &TCon{Name: config.StringTypeName}
	Bool    = &TCon{Name: config.BoolTypeName}
	Float   = &TCon{Name: config.FloatTypeName}
	Bytes   = &TCon{Name: config.BytesTypeName}
	Any     = &TCon{Name: config.AnyTypeName}
	None    = &TCon{Name: config.NoneTypeName}
	listCon = &TCon{Name: config.ListTypeName}
	mapCon  = &TCon{Name: config.MapTypeName}
	setCon  = &TCon{Name: config.SetTypeName}
)

// List builds List[elem].
func List(elem Type) *TApp {
	return &TApp{Constructor: listCon, Args: []Type{elem}}
}

// MapOf builds Map[key, value].
func MapOf(key, value Type) *TApp {
	return &TApp{Constructor: mapCon, Args: []Type{key, value}}
}

// SetOf builds Set[elem].
func SetOf(elem Type) *TApp {
	return &TApp{Constructor: setCon, Args: []Type{elem}}
}

// Optional builds Union[t, none].
func Optional(t Type) *TUnion {
	return &TUnion{Types: []Type{t, None}}
}

func bracketed(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
