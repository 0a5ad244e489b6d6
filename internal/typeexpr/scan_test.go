package typeexpr

import "testing"

func names(vars []*TVar) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

func collect(t Type) []*TVar {
	var out []*TVar
	for v := range Scan(t) {
		out = append(out, v)
	}
	return out
}

func TestScanOrderAndDuplicates(t *testing.T) {
	a := NewVar("A")
	b := NewVar("B")

	tests := []struct {
		name string
		expr Type
		want []string
	}{
		{"leaf", Int, nil},
		{"var", a, []string{"A"}},
		{"list", List(a), []string{"A"}},
		{"map", MapOf(a, b), []string{"A", "B"}},
		{"duplicate", MapOf(a, List(a)), []string{"A", "A"}},
		{"union", NewUnion(b, a, b), []string{"B", "A", "B"}},
		{"callable", NewFunc([]Type{a, b}, a), []string{"A", "B", "A"}},
		{"typeof", NewTypeOf(b), []string{"B"}},
		{"tuple", NewTuple(Str, a, b), []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(collect(tt.expr))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestScanYieldsIdentity(t *testing.T) {
	a := NewVar("T")
	b := NewVar("T")

	got := collect(NewTuple(a, b))
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("same-named parameters must scan as distinct nodes")
	}
}

func TestScanStopsEarly(t *testing.T) {
	a := NewVar("A")
	expr := NewTuple(a, a, a)

	var seen int
	for range Scan(expr) {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("expected the scan to stop after the first yield, saw %d", seen)
	}
}

func TestFreeVarsDeduplicates(t *testing.T) {
	a := NewVar("A")
	b := NewVar("B")
	expr := NewFunc([]Type{a, b, a}, b)

	got := FreeVars(expr)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("expected [A B] in first occurrence order, got %v", names(got))
	}
}

func TestKeyDistinguishesParameterIdentity(t *testing.T) {
	a := NewVar("T")
	b := NewVar("T")

	if Key(a) == Key(b) {
		t.Errorf("distinct same-named parameters must key differently")
	}
	if Key(a) != Key(a) {
		t.Errorf("a parameter must key stably")
	}
}

func TestKeyIsStructural(t *testing.T) {
	first := NewFunc([]Type{Int, Str}, Bool)
	second := NewFunc([]Type{Int, Str}, Bool)

	if Key(first) != Key(second) {
		t.Errorf("structurally equal callables must share a key")
	}
	if Key(first) == Key(NewFunc([]Type{Str, Int}, Bool)) {
		t.Errorf("parameter order must be significant")
	}
	if Key(NewUnion(Int, Float)) == Key(NewUnion(Float, Int)) {
		t.Errorf("union member order must be significant")
	}
}
