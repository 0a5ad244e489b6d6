package template

import (
	"github.com/google/uuid"
	"github.com/varigen/varigen/internal/typeexpr"
)

// create builds a new variant of t under args and caches it. The caller
// already missed the cache under key.
func (c *Cache) create(t *Template, args []typeexpr.Type, key string) (*Template, error) {
	if !t.finalized {
		return nil, NewUnresolvedReferenceError(t.name)
	}
	if len(t.params) == 0 {
		return nil, NewNotGenericError(t.name)
	}
	if len(args) > len(t.params) {
		return nil, NewParameterArityError(t.name, len(t.params), len(args))
	}
	if err := checkOpenRefs(t); err != nil {
		return nil, err
	}

	// Binding every parameter to itself is a no-op: M[T][T][T] is M.
	if c.allIdentical(t.params, args) {
		return t, nil
	}

	// A variant composes through its declared origin: applying further
	// arguments to a partial variant resolves the origin's argument
	// tuple and lands on the same cache entry a direct application
	// would. partial = M[int, B]; partial[str] is M[int, str].
	if t.origin != nil {
		s := mappingFor(t.params, args)
		full := make([]typeexpr.Type, len(t.originArgs))
		for i, a := range t.originArgs {
			fa, err := typeexpr.SubstituteStrict(a, s)
			if err != nil {
				return nil, err
			}
			full[i] = fa
		}
		v, err := c.GetOrCreate(t.origin, full)
		if err != nil {
			return nil, err
		}
		c.insert(key, v)
		if len(args) == 1 {
			c.insert(scalarKey(t, args[0]), v)
		}
		return v, nil
	}

	s := mappingFor(t.params, args)
	unbound := t.params[len(args):]

	// The recorded argument tuple is always full length: unapplied
	// positions hold the declared parameter itself, so completing a
	// partial later substitutes into the right slot.
	fullArgs := make([]typeexpr.Type, len(t.params))
	copy(fullArgs, args)
	for i := len(args); i < len(t.params); i++ {
		fullArgs[i] = t.params[i]
	}

	// A custom namer sees the full tuple for partial applications too.
	name := ""
	if t.nameFunc != nil {
		name = t.nameFunc(fullArgs)
	} else {
		name = defaultName(t.name, args, unbound)
	}

	// The variant is inserted before its fields are substituted so that
	// recursive references back into it resolve to this same instance
	// instead of recursing forever. Only the constructing goroutine can
	// observe the shell: the creation lock is held until it is finished.
	// Its parameter list is provisionally derived from the argument
	// tuple and recomputed from the finished declaration below.
	v := &Template{
		id:         uuid.New(),
		name:       name,
		params:     provisionalParams(t.params, args),
		cfg:        t.cfg,
		nameFunc:   t.nameFunc,
		origin:     t,
		originArgs: fullArgs,
		finalized:  true,
		cache:      c,
	}
	if winner := c.insert(key, v); winner != v {
		return winner, nil
	}
	if len(args) == 1 {
		c.insert(scalarKey(t, args[0]), v)
	}

	fields := make([]Field, len(t.fields))
	for i, f := range t.fields {
		ft, err := typeexpr.SubstituteStrict(f.Type, s)
		if err != nil {
			c.evict(t, args, key, v)
			return nil, err
		}
		f.Type = ft
		fields[i] = f
	}
	v.fields = fields

	bases, err := c.resolveBases(t.bases, s)
	if err != nil {
		c.evict(t, args, key, v)
		return nil, err
	}
	v.bases = bases
	v.params = inferParams(fields, bases)

	c.register(v)
	return v, nil
}

// resolveBases re-resolves each base's argument list under the mapping
// and re-parametrizes the base through the cache. This is what carries a
// binding through multiple inheritance levels.
func (c *Cache) resolveBases(bases []Base, s typeexpr.Subst) ([]Base, error) {
	out := make([]Base, 0, len(bases))
	for _, b := range bases {
		if len(b.Args) == 0 {
			out = append(out, b)
			continue
		}
		resolved := make([]typeexpr.Type, len(b.Args))
		for i, a := range b.Args {
			ra, err := typeexpr.SubstituteStrict(a, s)
			if err != nil {
				return nil, err
			}
			resolved[i] = ra
		}
		bv, err := c.GetOrCreate(b.Template, resolved)
		if err != nil {
			return nil, err
		}
		if bv == b.Template {
			// Arguments were the base's own parameters; keep the
			// reference unresolved.
			out = append(out, Base{Template: b.Template, Args: resolved})
			continue
		}
		out = append(out, Base{Template: bv})
	}
	return out, nil
}

// register records a first-time, directly issued variant under its
// display name in the declaring module's namespace so external
// serialization can find it again.
func (c *Cache) register(v *Template) {
	if c.provider == nil {
		return
	}
	module, direct, err := c.provider.CallerContext()
	if err != nil || !direct || module == "" {
		return
	}
	c.registry.Register(module, v.name, v)
}

func mappingFor(params []*typeexpr.TVar, args []typeexpr.Type) typeexpr.Subst {
	s := make(typeexpr.Subst, len(args))
	for i, a := range args {
		s[params[i]] = a
	}
	return s
}

// provisionalParams derives a variant's parameter list from the
// argument tuple: free parameters of each bound argument, then the
// unbound trailing parameters, first occurrence wins.
func provisionalParams(declared []*typeexpr.TVar, args []typeexpr.Type) []*typeexpr.TVar {
	var out []*typeexpr.TVar
	seen := make(map[*typeexpr.TVar]bool)
	add := func(v *typeexpr.TVar) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for i, p := range declared {
		if i < len(args) {
			for v := range typeexpr.Scan(args[i]) {
				add(v)
			}
			continue
		}
		add(p)
	}
	return out
}

// checkOpenRefs fails when any field still references an unfinalized
// template: the forward reference was never completed, so substitution
// cannot resolve it.
func checkOpenRefs(t *Template) error {
	for _, f := range t.fields {
		if open := openRef(f.Type); open != nil {
			return NewUnresolvedReferenceError(open.RefName())
		}
	}
	return nil
}

func openRef(t typeexpr.Type) typeexpr.Referent {
	switch typ := t.(type) {
	case *typeexpr.TRef:
		if !typ.Target.RefFinalized() {
			return typ.Target
		}
		for _, a := range typ.Args {
			if open := openRef(a); open != nil {
				return open
			}
		}
	case *typeexpr.TApp:
		for _, a := range typ.Args {
			if open := openRef(a); open != nil {
				return open
			}
		}
	case *typeexpr.TUnion:
		for _, m := range typ.Types {
			if open := openRef(m); open != nil {
				return open
			}
		}
	case *typeexpr.TTuple:
		for _, e := range typ.Elements {
			if open := openRef(e); open != nil {
				return open
			}
		}
	case *typeexpr.TFunc:
		for _, p := range typ.Params {
			if open := openRef(p); open != nil {
				return open
			}
		}
		return openRef(typ.Return)
	case *typeexpr.TType:
		return openRef(typ.Type)
	}
	return nil
}
