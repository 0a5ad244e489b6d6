package typeexpr

import (
	"testing"
)

func TestSubstituteReplacesParameter(t *testing.T) {
	v := NewVar("T")
	s := Subst{v: Int}

	got := Substitute(v, s)
	if got != Type(Int) {
		t.Errorf("expected int, got %s", got)
	}
}

func TestSubstituteEmptyMappingReturnsSameNode(t *testing.T) {
	v := NewVar("T")
	expr := List(v)

	if got := Substitute(expr, Subst{}); got != Type(expr) {
		t.Errorf("empty mapping must return the original node, got %s", got)
	}
	if got := Substitute(expr, nil); got != Type(expr) {
		t.Errorf("nil mapping must return the original node, got %s", got)
	}
}

func TestSubstituteUnchangedSubtreeKeepsIdentity(t *testing.T) {
	v := NewVar("T")
	other := NewVar("U")
	expr := MapOf(Str, List(v))
	s := Subst{other: Int}

	if got := Substitute(expr, s); got != Type(expr) {
		t.Errorf("substitution not touching the tree must return the original node")
	}
}

func TestSubstituteParameterToItselfIsNoOp(t *testing.T) {
	v := NewVar("T")
	s := Subst{v: v}

	if got := Substitute(v, s); got != Type(v) {
		t.Errorf("binding a parameter to itself must return the same node")
	}
	expr := List(v)
	if got := Substitute(expr, s); got != Type(expr) {
		t.Errorf("self-binding inside a container must return the original node")
	}
}

func TestSubstituteBoundParameter(t *testing.T) {
	v := NewBoundVar("N", Int)
	if v.String() != "~N" {
		t.Errorf("unexpected rendering %q", v.String())
	}
	if got := Substitute(v, Subst{v: Int}); got != Type(Int) {
		t.Errorf("a bounded parameter substitutes like any other, got %s", got)
	}
}

func TestSubstituteIdentityIsKeyedNotNamed(t *testing.T) {
	a := NewVar("T")
	b := NewVar("T")
	s := Subst{a: Int}

	if got := Substitute(b, s); got != Type(b) {
		t.Errorf("a same-named but distinct parameter must not be captured, got %s", got)
	}
}

func TestSubstituteContainers(t *testing.T) {
	k := NewVar("K")
	v := NewVar("V")
	s := Subst{k: Str, v: Int}

	tests := []struct {
		name string
		expr Type
		want string
	}{
		{"list", List(v), "List[int]"},
		{"map", MapOf(k, v), "Map[str, int]"},
		{"set", SetOf(k), "Set[str]"},
		{"nested", List(MapOf(k, List(v))), "List[Map[str, List[int]]]"},
		{"tuple", NewTuple(k, v, Bool), "Tuple[str, int, bool]"},
		{"typeof", NewTypeOf(v), "Type[int]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Substitute(tt.expr, s)
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
			if got == tt.expr {
				t.Errorf("a changed tree must be a fresh node")
			}
		})
	}
}

func TestSubstituteUnionPreservesOrder(t *testing.T) {
	v := NewVar("T")
	s := Subst{v: Float}

	got := Substitute(NewUnion(Int, v, None), s)
	if got.String() != "Union[int, float, none]" {
		t.Errorf("member order must survive substitution, got %s", got.String())
	}
}

func TestSubstituteCallable(t *testing.T) {
	a := NewVar("A")
	r := NewVar("R")
	fn := NewFunc([]Type{a, Int}, r)
	s := Subst{a: Str, r: Bool}

	got := Substitute(fn, s)
	if got.String() != "Callable[[str, int], bool]" {
		t.Errorf("unexpected callable rendering: %s", got.String())
	}

	// Only the return changes: parameters keep their nodes but the
	// callable itself must still be rebuilt.
	partial := Substitute(fn, Subst{r: Bool})
	if partial == Type(fn) {
		t.Errorf("changed return type must produce a fresh callable node")
	}
}

func TestExpandAlias(t *testing.T) {
	v := NewVar("T")
	plain := NewAlias("UserId", Int)
	parameterized := NewAlias("Pair", NewTuple(v, v), v)

	if got := ExpandAlias(plain); got != Type(Int) {
		t.Errorf("bare alias must expand to its underlying type, got %s", got)
	}
	if got := ExpandAlias(NewApp(parameterized, Str)); got.String() != "Tuple[str, str]" {
		t.Errorf("parameterized alias must substitute its arguments, got %s", got.String())
	}
	if got := ExpandAlias(Int); got != Type(Int) {
		t.Errorf("non-alias must pass through unchanged")
	}
	// A parameterized alias mentioned without arguments stays symbolic.
	if got := ExpandAlias(parameterized); got != Type(parameterized) {
		t.Errorf("unapplied parameterized alias must not expand")
	}
}

// stubReferent implements Referent for substitution tests without
// pulling in the template layer.
type stubReferent struct {
	name      string
	params    []*TVar
	finalized bool
	inst      Referent
	err       error
}

func (r *stubReferent) RefName() string      { return r.name }
func (r *stubReferent) RefID() string        { return "stub:" + r.name }
func (r *stubReferent) RefParams() []*TVar   { return r.params }
func (r *stubReferent) RefFinalized() bool   { return r.finalized }
func (r *stubReferent) Instantiate(args []Type) (Referent, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.inst, nil
}

type notReadyError struct{}

func (notReadyError) Error() string  { return "referent not ready" }
func (notReadyError) Deferred() bool { return true }

type brokenError struct{}

func (brokenError) Error() string { return "instantiation rejected" }

func TestSubstituteStrictSurfacesInstantiationFailure(t *testing.T) {
	v := NewVar("T")
	target := &stubReferent{name: "R", params: []*TVar{v}, finalized: true, err: brokenError{}}
	expr := NewRef(target, v)

	_, err := SubstituteStrict(expr, Subst{v: Int})
	if _, ok := err.(brokenError); !ok {
		t.Fatalf("expected the instantiation failure, got %v", err)
	}

	// The lenient form degrades to the symbolic reference.
	got := Substitute(expr, Subst{v: Int})
	ref, ok := got.(*TRef)
	if !ok || ref.Target != Referent(target) || len(ref.Args) != 1 || ref.Args[0] != Type(Int) {
		t.Errorf("lenient substitution must stay symbolic, got %s", got)
	}
}

func TestSubstituteStrictDefersUnresolvedReferent(t *testing.T) {
	v := NewVar("T")
	target := &stubReferent{name: "R", params: []*TVar{v}, finalized: true, err: notReadyError{}}
	expr := NewRef(target, v)

	got, err := SubstituteStrict(expr, Subst{v: Int})
	if err != nil {
		t.Fatalf("deferred failures must not surface, got %v", err)
	}
	ref, ok := got.(*TRef)
	if !ok || len(ref.Args) != 1 || ref.Args[0] != Type(Int) {
		t.Errorf("deferred reference must stay symbolic with resolved arguments, got %s", got)
	}
}

func TestSubstituteStrictResolvesReferent(t *testing.T) {
	v := NewVar("T")
	resolved := &stubReferent{name: "R[int]", finalized: true}
	target := &stubReferent{name: "R", params: []*TVar{v}, finalized: true, inst: resolved}
	expr := NewRef(target, v)

	got, err := SubstituteStrict(expr, Subst{v: Int})
	if err != nil {
		t.Fatal(err)
	}
	ref, ok := got.(*TRef)
	if !ok || ref.Target != Referent(resolved) {
		t.Errorf("resolved reference must point at the instantiated referent, got %s", got)
	}
}
