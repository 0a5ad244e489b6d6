package typeexpr

import "iter"

// Scan yields every free parameter occurring in t, depth first and left
// to right, preserving duplicates. Callers that need repetition counts
// (callable signatures repeat parameters) consume the raw sequence;
// callers that need the declared-parameter invariant use FreeVars.
//
// A reference to a template yields the arguments applied at the
// reference site, or, for a bare reference, the referent's remaining
// free parameters in the order it declared them. Fully concrete
// references yield nothing.
func Scan(t Type) iter.Seq[*TVar] {
	return func(yield func(*TVar) bool) {
		scan(t, yield)
	}
}

func scan(t Type, yield func(*TVar) bool) bool {
	switch typ := t.(type) {
	case *TVar:
		return yield(typ)
	case *TApp:
		return scanAll(typ.Args, yield)
	case *TUnion:
		return scanAll(typ.Types, yield)
	case *TTuple:
		return scanAll(typ.Elements, yield)
	case *TFunc:
		if !scanAll(typ.Params, yield) {
			return false
		}
		return scan(typ.Return, yield)
	case *TType:
		return scan(typ.Type, yield)
	case *TRef:
		if len(typ.Args) > 0 {
			return scanAll(typ.Args, yield)
		}
		for _, p := range typ.Target.RefParams() {
			if !yield(p) {
				return false
			}
		}
		return true
	default:
		// Leaves and opaque kinds contain no parameters.
		return true
	}
}

func scanAll(types []Type, yield func(*TVar) bool) bool {
	for _, t := range types {
		if !scan(t, yield) {
			return false
		}
	}
	return true
}

// FreeVars returns the free parameters of t deduplicated in first
// occurrence order.
func FreeVars(t Type) []*TVar {
	var out []*TVar
	seen := make(map[*TVar]bool)
	for v := range Scan(t) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
