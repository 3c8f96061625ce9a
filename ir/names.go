package ir

import "strings"

// TrimTag strips a leading struct/union/enum tag keyword from a type
// name, returning the referenced name itself.
func TrimTag(name string) string {
	for _, tag := range []string{"struct ", "union ", "enum "} {
		if strings.HasPrefix(name, tag) {
			return strings.TrimSpace(strings.TrimPrefix(name, tag))
		}
	}
	return name
}

// HasTag reports whether name carries a struct/union/enum tag prefix and
// which one.
func HasTag(name string) (string, bool) {
	for _, tag := range []string{"struct", "union", "enum"} {
		if strings.HasPrefix(name, tag+" ") {
			return tag, true
		}
	}
	return "", false
}

// ReferencedNames returns every named type t mentions, with tag prefixes
// stripped. Total over the closed Type set: unknown shapes contribute no
// names rather than erroring.
func ReferencedNames(t Type) map[string]struct{} {
	names := make(map[string]struct{})
	collectNames(t, names)
	return names
}

func collectNames(t Type, names map[string]struct{}) {
	switch v := t.(type) {
	case *BaseType:
		if v.Name != "" {
			names[TrimTag(v.Name)] = struct{}{}
		}
	case *PointerType:
		collectNames(v.Pointee, names)
	case *ArrayType:
		collectNames(v.Element, names)
	case *FuncPtrType:
		collectNames(v.Return, names)
		for _, p := range v.Params {
			collectNames(p.Type, names)
		}
	}
}
