// Package writer turns a parsed header into Cython pxd declaration text.
// It owns the hard part of the pipeline: dependency graph construction
// over the unordered declarations, deterministic topological sequencing,
// cycle detection with five-phase fallback emission, and import/forward
// declaration resolution against the module registries.
package writer

import (
	"fmt"
	"sort"
	"strings"

	"pxdgen/ir"
	"pxdgen/orderedmap"
	"pxdgen/registry"
)

const indent = "    "

// Writer renders headers. It holds only the registry lookups and is
// itself stateless: every Write call allocates its own working state, so
// one Writer may serve concurrent calls on independent headers.
type Writer struct {
	StdlibModule func(name string) (module, header string, ok bool)
	CppModule    func(name string) (module string, ok bool)
	StubModule   func(name string) (module string, ok bool)
	Builtin      func(name string) (renamed string, ok bool)
	Reserved     func(name string) bool
}

// New returns a Writer wired to the built-in registries.
func New() *Writer {
	return &Writer{
		StdlibModule: registry.StdlibModule,
		CppModule:    registry.CppModule,
		StubModule:   registry.StubModule,
		Builtin:      registry.BuiltinRename,
		Reserved:     registry.IsReservedWord,
	}
}

// Write renders h into a single pxd text blob: import lines first, then
// one extern block per namespace group (global group first, named groups
// in lexical order). Either the whole blob is produced or an error
// identifies the declaration that could not be rendered; there are no
// partial writes.
func (w *Writer) Write(h *ir.Header) (string, error) {
	r := newResolver(w, h.Decls)
	rd := &renderer{w: w, r: r}

	groups := orderedmap.New[string, []int]()
	for i, d := range h.Decls {
		ns := d.DeclNamespace()
		idxs, _ := groups.Get(ns)
		groups.Set(ns, append(idxs, i))
	}

	type renderedGroup struct {
		ns    string
		lines []string
	}
	var rendered []renderedGroup
	for _, ns := range groupOrder(groups.Keys()) {
		idxs, _ := groups.Get(ns)
		lines, err := rd.renderGroup(h, ns, idxs)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, renderedGroup{ns: ns, lines: lines})
	}

	// Degenerate but valid: an empty header still emits one well formed
	// extern block.
	if len(rendered) == 0 {
		rendered = append(rendered, renderedGroup{ns: ""})
	}

	// Bare forward declarations accumulated by the resolver go at the
	// top of the unit, inside the global extern block. Synthesize one if
	// every declaration was namespaced.
	forwards := r.forwardLines()
	if len(forwards) > 0 && rendered[0].ns != "" {
		rendered = append([]renderedGroup{{ns: ""}}, rendered...)
	}

	var out []string
	if imports := r.importLines(); len(imports) > 0 {
		out = append(out, imports...)
		out = append(out, "")
	}

	for gi, g := range rendered {
		if gi > 0 {
			out = append(out, "")
		}
		marker := "cdef extern from " + quoted(h.Path)
		if g.ns != "" {
			marker += " namespace " + quoted(g.ns)
		}
		out = append(out, marker+":")

		body := g.lines
		if g.ns == "" && len(forwards) > 0 {
			prefix := append([]string(nil), forwards...)
			if len(body) > 0 {
				prefix = append(prefix, "")
			}
			body = append(prefix, body...)
		}
		if len(body) == 0 {
			body = []string{"pass"}
		}
		for _, line := range body {
			if line == "" {
				out = append(out, "")
			} else {
				out = append(out, indent+line)
			}
		}
	}

	return strings.Join(out, "\n") + "\n", nil
}

func quoted(s string) string {
	return "\"" + s + "\""
}

// groupOrder puts the global group first and the rest in lexical order.
func groupOrder(keys []string) []string {
	var named []string
	hasGlobal := false
	for _, k := range keys {
		if k == "" {
			hasGlobal = true
			continue
		}
		named = append(named, k)
	}
	sort.Strings(named)
	if hasGlobal {
		return append([]string{""}, named...)
	}
	return named
}

type renderer struct {
	w *Writer
	r *resolver
}

// renderGroup emits one namespace group's body lines. Acyclic groups use
// the sequenced linear order; groups with cycle members switch to the
// five-phase plan.
func (rd *renderer) renderGroup(h *ir.Header, ns string, idxs []int) ([]string, error) {
	decls := make([]ir.Decl, len(idxs))
	for i, idx := range idxs {
		decls[i] = h.Decls[idx]
	}

	g := buildGraph(decls)
	combined, suppressed := combinedForms(decls)
	ordered, cyclic := sequence(len(decls), g.edges)

	var blocks [][]string
	emit := func(i int) error {
		if suppressed[i] {
			return nil
		}
		lines, err := rd.declLines(decls[i], ns, combined[i])
		if err != nil {
			return err
		}
		blocks = append(blocks, lines)
		return nil
	}

	if len(cyclic) == 0 {
		for _, i := range ordered {
			if err := emit(i); err != nil {
				return nil, err
			}
		}
	} else {
		plan := planCyclicEmission(g, combined, suppressed, rd.r.external)
		for _, i := range plan.Forward {
			s := decls[i].(*ir.Struct)
			blocks = append(blocks, []string{"cdef " + structKeyword(s) + " " + rd.declName(s.Name)})
		}
		for _, phase := range [][]int{plan.Typedefs, plan.Simple, plan.Bodies, plan.Funcs} {
			for _, i := range phase {
				if err := emit(i); err != nil {
					return nil, err
				}
			}
		}
	}

	var lines []string
	for bi, block := range blocks {
		if bi > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, block...)
	}
	return lines, nil
}

// combinedForms finds structs whose name coincides with the typedef that
// aliases them. Emitting both separately would produce an invalid
// self-referential alias, so the pair collapses into one ctypedef-struct
// declaration: the struct renders combined and the typedef is
// suppressed.
func combinedForms(decls []ir.Decl) (combined, suppressed map[int]bool) {
	combined = make(map[int]bool)
	suppressed = make(map[int]bool)
	structIdx := make(map[string]int)
	for i, d := range decls {
		if s, ok := d.(*ir.Struct); ok && s.Name != "" {
			structIdx[s.Name] = i
		}
	}
	for i, d := range decls {
		td, ok := d.(*ir.Typedef)
		if !ok {
			continue
		}
		base, ok := td.Underlying.(*ir.BaseType)
		if !ok || ir.TrimTag(base.Name) != td.Name {
			continue
		}
		if si, ok := structIdx[td.Name]; ok {
			combined[si] = true
			suppressed[i] = true
		}
	}
	return combined, suppressed
}

func structKeyword(s *ir.Struct) string {
	switch {
	case s.IsUnion:
		return "union"
	case s.IsClass:
		return "cppclass"
	default:
		return "struct"
	}
}

// declLines renders one declaration as unindented lines. An IR variant
// outside the closed declaration set is a programming error in the
// upstream adapter and fails loudly.
func (rd *renderer) declLines(d ir.Decl, ns string, combined bool) ([]string, error) {
	switch v := d.(type) {
	case *ir.Struct:
		return rd.structLines(v, ns, combined)
	case *ir.Enum:
		return rd.enumLines(v)
	case *ir.Typedef:
		text, err := rd.declarator(v.Underlying, rd.declName(v.Name), ns)
		if err != nil {
			return nil, fmt.Errorf("typedef %s: %w", v.Name, err)
		}
		return []string{"ctypedef " + text}, nil
	case *ir.Function:
		sig, err := rd.signature(v, ns)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", v.Name, err)
		}
		return []string{sig}, nil
	case *ir.Variable:
		text, err := rd.declarator(v.Type, rd.declName(v.Name), ns)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		return []string{text}, nil
	case *ir.Constant:
		return rd.constantLines(v, ns)
	default:
		return nil, fmt.Errorf("unknown declaration shape %T (%q)", d, d.DeclName())
	}
}

func (rd *renderer) structLines(s *ir.Struct, ns string, combined bool) ([]string, error) {
	kw := "cdef " + structKeyword(s)
	if combined {
		kw = "ctypedef " + structKeyword(s)
	}

	// A forward declaration renders name-only: "known but incomplete" is
	// a different statement than "defined with zero members".
	if s.Forward() {
		return []string{kw + " " + rd.declName(s.Name)}, nil
	}

	lines := []string{kw + " " + rd.declName(s.Name) + ":"}
	for _, f := range s.Fields {
		text, err := rd.declarator(f.Type, rd.declName(f.Name), ns)
		if err != nil {
			return nil, fmt.Errorf("struct %s, field %s: %w", s.Name, f.Name, err)
		}
		lines = append(lines, indent+text)
	}
	for i := range s.Methods {
		sig, err := rd.signature(&s.Methods[i], ns)
		if err != nil {
			return nil, fmt.Errorf("struct %s, method %s: %w", s.Name, s.Methods[i].Name, err)
		}
		lines = append(lines, indent+sig)
	}
	return lines, nil
}

func (rd *renderer) enumLines(e *ir.Enum) ([]string, error) {
	head := "cdef enum"
	if e.Name != "" {
		head += " " + rd.declName(e.Name)
	}
	lines := []string{head + ":"}
	for _, v := range e.Values {
		if v.Value == nil {
			lines = append(lines, indent+rd.declName(v.Name))
			continue
		}
		lines = append(lines, indent+rd.declName(v.Name)+" = "+ir.ExprString(v.Value))
	}
	if len(lines) == 1 {
		lines = append(lines, indent+"pass")
	}
	return lines, nil
}

func (rd *renderer) constantLines(c *ir.Constant, ns string) ([]string, error) {
	var typeText string
	switch {
	case c.Type != nil:
		text, err := rd.declarator(c.Type, "", ns)
		if err != nil {
			return nil, fmt.Errorf("constant %s: %w", c.Name, err)
		}
		typeText = text
	default:
		typeText = inferConstType(c.Value)
	}
	return []string{"const " + typeText + " " + rd.declName(c.Name)}, nil
}

// inferConstType picks a C type for a macro constant whose type the
// front end did not pin down. Extern declarations carry no initializer,
// so only the shape of the value matters.
func inferConstType(e ir.Expr) string {
	switch e.(type) {
	case *ir.FloatLit:
		return "double"
	case *ir.StrLit:
		return "char*"
	default:
		return "long"
	}
}

func (rd *renderer) signature(f *ir.Function, ns string) (string, error) {
	// Rendering the name through the declarator keeps pointer returns
	// attached: "Point *get_point", not "Point * get_point".
	head, err := rd.declarator(f.Return, rd.declName(f.Name), ns)
	if err != nil {
		return "", err
	}
	var params []string
	for _, p := range f.Params {
		text, err := rd.declarator(p.Type, rd.declName(p.Name), ns)
		if err != nil {
			return "", err
		}
		params = append(params, text)
	}
	if f.IsVariadic {
		params = append(params, "...")
	}
	return head + "(" + strings.Join(params, ", ") + ")", nil
}

// declarator renders a type around a declared name in C declarator
// syntax, resolving every base name through the import resolver.
func (rd *renderer) declarator(t ir.Type, decl, ns string) (string, error) {
	switch v := t.(type) {
	case *ir.BaseType:
		base := rd.refName(rd.r.resolveName(v.Name, ns))
		parts := append(dedupQualifiers(v.Qualifiers), base)
		text := strings.Join(parts, " ")
		if decl != "" {
			text += " " + decl
		}
		return text, nil
	case *ir.PointerType:
		return rd.declarator(v.Pointee, "*"+decl, ns)
	case *ir.ArrayType:
		return rd.declarator(v.Element, decl+"["+v.Size+"]", ns)
	case *ir.FuncPtrType:
		ret, err := rd.declarator(v.Return, "", ns)
		if err != nil {
			return "", err
		}
		var params []string
		for _, p := range v.Params {
			text, err := rd.declarator(p.Type, rd.declName(p.Name), ns)
			if err != nil {
				return "", err
			}
			params = append(params, text)
		}
		if v.IsVariadic {
			params = append(params, "...")
		}
		return ret + " (*" + decl + ")(" + strings.Join(params, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unknown type shape %T", t)
	}
}

// dedupQualifiers suppresses duplicate qualifiers while keeping first
// occurrence order; suppression happens at render time only.
func dedupQualifiers(quals []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range quals {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// declName escapes a declared name that collides with a reserved word,
// pairing the escaped spelling with the original literal so linkage
// stays bit-exact.
func (rd *renderer) declName(name string) string {
	if name != "" && rd.w.Reserved(name) {
		return name + "_ \"" + name + "\""
	}
	return name
}

// refName escapes a referenced name; references carry no cname pairing.
func (rd *renderer) refName(name string) string {
	if name != "" && rd.w.Reserved(name) {
		return name + "_"
	}
	return name
}
