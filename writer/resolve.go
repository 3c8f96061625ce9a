package writer

import (
	"sort"
	"strings"

	"pxdgen/ir"
	"pxdgen/orderedmap"
)

type localKind int

const (
	localStruct localKind = iota
	localUnion
	localEnum
	localTypedef
)

// resolver decides how each referenced type name renders: as a locally
// declared name, as an import from a known module, or as a name that
// needs a bare forward declaration at the top of the unit. One resolver
// exists per Write call and nothing escapes it.
type resolver struct {
	w     *Writer
	local map[string]localKind

	// import accumulators, keyed by module, valued by the set of type
	// names pulled from it.
	stdlib *orderedmap.Map[string, map[string]struct{}]
	cpp    *orderedmap.Map[string, map[string]struct{}]
	stubs  *orderedmap.Map[string, map[string]struct{}]

	// forwards records names that need a bare forward declaration, in
	// first-reference order. The value tells the tag kind to declare.
	forwards *orderedmap.Map[string, string]
}

func newResolver(w *Writer, decls []ir.Decl) *resolver {
	r := &resolver{
		w:        w,
		local:    make(map[string]localKind),
		stdlib:   orderedmap.New[string, map[string]struct{}](),
		cpp:      orderedmap.New[string, map[string]struct{}](),
		stubs:    orderedmap.New[string, map[string]struct{}](),
		forwards: orderedmap.New[string, string](),
	}
	for _, d := range decls {
		switch v := d.(type) {
		case *ir.Struct:
			if v.Name == "" {
				continue
			}
			if v.IsUnion {
				r.local[v.Name] = localUnion
			} else {
				r.local[v.Name] = localStruct
			}
		case *ir.Enum:
			if v.Name != "" {
				r.local[v.Name] = localEnum
			}
		case *ir.Typedef:
			r.local[v.Name] = localTypedef
		}
	}
	return r
}

// external reports whether name resolves through one of the module
// registries, without recording an import.
func (r *resolver) external(name string) bool {
	name = ir.TrimTag(name)
	if _, _, ok := r.w.StdlibModule(name); ok {
		return true
	}
	if _, ok := r.w.CppModule(name); ok {
		return true
	}
	_, ok := r.w.StubModule(name)
	return ok
}

// resolveName maps a referenced type name to the text that names it in
// the output, recording import and forward-declaration needs as a side
// effect. namespace is the scope of the referencing declaration; only
// global-namespace references may request top-level forward
// declarations.
func (r *resolver) resolveName(name, namespace string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}

	if i := strings.IndexByte(name, '<'); i >= 0 {
		return r.resolveTemplate(name, i, namespace)
	}

	tag, tagged := ir.HasTag(name)
	bare := ir.TrimTag(name)

	// Built-in spellings need neither an import nor a declaration.
	if renamed, ok := r.w.Builtin(bare); ok {
		return renamed
	}

	// Registries win over local bookkeeping: an imported name needs no
	// forward declaration here even if a local shadow exists.
	if module, _, ok := r.w.StdlibModule(bare); ok {
		r.record(r.stdlib, module, bare)
		return bare
	}
	if module, ok := r.w.CppModule(bare); ok {
		r.record(r.cpp, module, bare)
		return bare
	}
	if module, ok := r.w.StubModule(bare); ok {
		r.record(r.stubs, module, bare)
		return bare
	}

	if _, ok := r.local[bare]; ok {
		// Local references use bare names; the tag prefix is only valid
		// in the source language.
		return bare
	}

	if tagged && tag != "enum" && namespace == "" {
		if !r.forwards.Has(bare) {
			r.forwards.Set(bare, tag)
		}
	}
	return bare
}

// resolveTemplate resolves a composite name like Outer<Arg1,Arg2>. The
// outer name and each argument resolve independently; arguments split on
// commas at bracket depth zero. Malformed nesting is not an error: the
// resolver stops at the first unmatched bracket and treats the remainder
// as opaque text.
func (r *resolver) resolveTemplate(name string, open int, namespace string) string {
	inner, rest, ok := matchBrackets(name, open)
	if !ok {
		return name
	}

	outer := r.resolveName(name[:open], namespace)

	var args []string
	for _, arg := range splitTopLevel(inner) {
		args = append(args, r.resolveArg(arg, namespace))
	}

	resolved := outer + "[" + strings.Join(args, ", ") + "]"
	if rest != "" {
		resolved += rest
	}
	return resolved
}

// resolveArg resolves one template argument, preserving pointer suffixes
// and const qualifiers around the resolved name.
func (r *resolver) resolveArg(arg string, namespace string) string {
	arg = strings.TrimSpace(arg)
	core := arg
	suffix := ""
	for strings.HasSuffix(core, "*") || strings.HasSuffix(core, "&") {
		suffix = core[len(core)-1:] + suffix
		core = strings.TrimSpace(core[:len(core)-1])
	}
	prefix := ""
	if strings.HasPrefix(core, "const ") {
		prefix = "const "
		core = strings.TrimSpace(strings.TrimPrefix(core, "const "))
	}
	return prefix + r.resolveName(core, namespace) + suffix
}

// matchBrackets returns the text between the bracket at open and its
// match, plus whatever follows the match. ok is false when nesting is
// inconsistent.
func matchBrackets(s string, open int) (inner, rest string, ok bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return s[open+1 : i], s[i+1:], true
			}
			if depth < 0 {
				return "", "", false
			}
		}
	}
	return "", "", false
}

// splitTopLevel splits on commas at bracket depth zero.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func (r *resolver) record(imports *orderedmap.Map[string, map[string]struct{}], module, name string) {
	set, ok := imports.Get(module)
	if !ok {
		set = make(map[string]struct{})
		imports.Set(module, set)
	}
	set[name] = struct{}{}
}

// importLines renders the three import blocks (stdlib, C++ standard
// library, bundled stubs), each sorted by module name with per-module
// type lists sorted lexically. Blocks are blank-line separated.
func (r *resolver) importLines() []string {
	var blocks [][]string
	for _, imports := range []*orderedmap.Map[string, map[string]struct{}]{r.stdlib, r.cpp, r.stubs} {
		var lines []string
		modules := append([]string(nil), imports.Keys()...)
		sort.Strings(modules)
		for _, module := range modules {
			set, _ := imports.Get(module)
			names := make([]string, 0, len(set))
			for n := range set {
				names = append(names, n)
			}
			sort.Strings(names)
			lines = append(lines, "from "+module+" cimport "+strings.Join(names, ", "))
		}
		if len(lines) > 0 {
			blocks = append(blocks, lines)
		}
	}

	var out []string
	for i, block := range blocks {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, block...)
	}
	return out
}

// forwardLines renders the accumulated bare forward declarations.
func (r *resolver) forwardLines() []string {
	var out []string
	for _, name := range r.forwards.Keys() {
		tag, _ := r.forwards.Get(name)
		out = append(out, "cdef "+tag+" "+name)
	}
	return out
}
