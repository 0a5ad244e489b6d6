package typeexpr

import (
	"fmt"
	"strings"
)

// Key renders t into the canonical cache-key surrogate: a deterministic
// string that is equal exactly for structurally equal expressions.
//
// Two leaves compare by name, parameters and template references by
// identity (distinct same-named declarations must occupy distinct cache
// entries). Callable parameter lists, which are structurally sequences
// and have no natural hashable form, flatten into the string like any
// other child list. The surrogate is key-internal and never user
// observable.
func Key(t Type) string {
	switch typ := t.(type) {
	case *TVar:
		return fmt.Sprintf("var:%s@%p", typ.Name, typ)
	case *TCon:
		if typ.Module != "" {
			return "con:" + typ.Module + "." + typ.Name
		}
		return "con:" + typ.Name
	case *TApp:
		return "app:" + typ.Constructor.String() + keyList(typ.Args)
	case *TUnion:
		return "union" + keyList(typ.Types)
	case *TTuple:
		return "tuple" + keyList(typ.Elements)
	case *TFunc:
		return "fn" + keyList(typ.Params) + "->" + Key(typ.Return)
	case *TType:
		return "type[" + Key(typ.Type) + "]"
	case *TRef:
		return "ref:" + typ.Target.RefID() + keyList(typ.Args)
	default:
		// Opaque kinds key on their rendering.
		return "opaque:" + t.String()
	}
}

func keyList(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = Key(t)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
