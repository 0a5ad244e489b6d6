package typeexpr

import "errors"

// Subst is a mapping from free parameters to replacement expressions.
// It is keyed by parameter identity rather than name, so same-named
// parameters declared by different templates never capture each other.
type Subst map[*TVar]Type

// DeferredError marks instantiation failures that only mean the
// referent is not finalized yet. Substitution keeps such references
// symbolic and they are resolved again after finalization; any other
// instantiation failure is a real error.
type DeferredError interface {
	error
	Deferred() bool
}

// Substitute rewrites t under s, returning t itself (same pointer)
// whenever nothing in the subtree changed. Callers rely on that identity
// to short-circuit further work, so new nodes are only allocated along
// paths that actually substituted something. Instantiation failures are
// discarded; callers that must report them use SubstituteStrict.
//
// Unrecognized node kinds pass through unchanged: substitution into
// opaque third-party composites is unsupported.
func Substitute(t Type, s Subst) Type {
	out, _ := SubstituteStrict(t, s)
	return out
}

// SubstituteStrict is Substitute surfacing reference errors: when
// re-parametrizing a reference fails for any reason other than an
// unfinalized referent (see DeferredError), the failure is returned
// alongside the symbolic form instead of being hidden until a later
// consumer trips on it.
func SubstituteStrict(t Type, s Subst) (Type, error) {
	if t == nil || len(s) == 0 {
		return t, nil
	}
	switch typ := t.(type) {
	case *TVar:
		replacement, ok := s[typ]
		if !ok {
			return typ, nil
		}
		// Binding a parameter to itself is a no-op, not a fresh copy.
		if rv, ok := replacement.(*TVar); ok && rv == typ {
			return typ, nil
		}
		return replacement, nil

	case *TCon:
		// Leaves never change. Alias bodies are expanded at the
		// application site (see ExpandAlias), not here.
		return typ, nil

	case *TApp:
		args, changed, err := substituteAll(typ.Args, s)
		if err != nil {
			return typ, err
		}
		if !changed {
			return typ, nil
		}
		return &TApp{Constructor: typ.Constructor, Args: args}, nil

	case *TUnion:
		// Member order is preserved; it is significant downstream.
		members, changed, err := substituteAll(typ.Types, s)
		if err != nil {
			return typ, err
		}
		if !changed {
			return typ, nil
		}
		return &TUnion{Types: members}, nil

	case *TTuple:
		elems, changed, err := substituteAll(typ.Elements, s)
		if err != nil {
			return typ, err
		}
		if !changed {
			return typ, nil
		}
		return &TTuple{Elements: elems}, nil

	case *TFunc:
		params, changed, err := substituteAll(typ.Params, s)
		if err != nil {
			return typ, err
		}
		ret, err := SubstituteStrict(typ.Return, s)
		if err != nil {
			return typ, err
		}
		if !changed && ret == typ.Return {
			return typ, nil
		}
		return &TFunc{Params: params, Return: ret}, nil

	case *TType:
		inner, err := SubstituteStrict(typ.Type, s)
		if err != nil {
			return typ, err
		}
		if inner == typ.Type {
			return typ, nil
		}
		return &TType{Type: inner}, nil

	case *TRef:
		site := typ.Args
		if len(site) == 0 {
			// A bare reference to a still-generic template stands for the
			// template applied to its own parameters; substituting through
			// them is what lets a binding reach nested templates.
			if params := typ.Target.RefParams(); len(params) > 0 {
				site = make([]Type, len(params))
				for i, p := range params {
					site[i] = p
				}
			}
		}
		args, changed, err := substituteAll(site, s)
		if err != nil {
			return typ, err
		}
		if !changed {
			return typ, nil
		}
		if !typ.Target.RefFinalized() {
			// The referent is still open (forward or mutual reference).
			// Keep the reference symbolic; it is resolved again once the
			// owning template finalizes.
			return &TRef{Target: typ.Target, Args: args}, nil
		}
		inst, err := typ.Target.Instantiate(args)
		if err != nil {
			var deferred DeferredError
			if errors.As(err, &deferred) && deferred.Deferred() {
				return &TRef{Target: typ.Target, Args: args}, nil
			}
			return &TRef{Target: typ.Target, Args: args}, err
		}
		return &TRef{Target: inst}, nil

	default:
		return t, nil
	}
}

// ExpandAlias expands one level of alias indirection: an alias TCon
// yields its underlying type, a parameterized alias application
// substitutes the arguments into the underlying type. Non-aliases are
// returned unchanged.
func ExpandAlias(t Type) Type {
	switch typ := t.(type) {
	case *TCon:
		if typ.Underlying == nil || len(typ.TypeParams) > 0 {
			return t
		}
		return typ.Underlying
	case *TApp:
		con := typ.Constructor
		if con.Underlying == nil || len(typ.Args) < len(con.TypeParams) {
			return t
		}
		s := make(Subst, len(con.TypeParams))
		for i, p := range con.TypeParams {
			s[p] = typ.Args[i]
		}
		return Substitute(con.Underlying, s)
	default:
		return t
	}
}

func substituteAll(types []Type, s Subst) ([]Type, bool, error) {
	changed := false
	out := make([]Type, len(types))
	for i, t := range types {
		sub, err := SubstituteStrict(t, s)
		if err != nil {
			return nil, false, err
		}
		out[i] = sub
		if sub != t {
			changed = true
		}
	}
	return out, changed, nil
}
