package writer

import (
	"sort"

	"pxdgen/ir"
)

// typeUse is one named type mentioned by a declaration, together with the
// indirection it was reached through. Anything behind a pointer never
// needs the complete type, only the name binding; function-pointer
// returns and parameters count as behind a pointer.
type typeUse struct {
	Name       string
	ViaPointer bool
}

func collectUses(t ir.Type, viaPointer bool, out *[]typeUse) {
	switch v := t.(type) {
	case *ir.BaseType:
		if v.Name != "" {
			*out = append(*out, typeUse{Name: ir.TrimTag(v.Name), ViaPointer: viaPointer})
		}
	case *ir.PointerType:
		collectUses(v.Pointee, true, out)
	case *ir.ArrayType:
		collectUses(v.Element, viaPointer, out)
	case *ir.FuncPtrType:
		collectUses(v.Return, true, out)
		for _, p := range v.Params {
			collectUses(p.Type, true, out)
		}
	}
}

// depGraph holds the dependency edges for one namespace group.
// edges[i] is the set of indices declaration i must appear after.
type depGraph struct {
	decls []ir.Decl
	edges map[int]map[int]struct{}

	// byName tracks every index sharing a name, not just the last one;
	// a struct tag and a typedef may legally share a name and both may
	// need to precede a dependent declaration.
	byName map[string][]int

	// typedefToStruct resolves "value usage of typedef T" into "must
	// also depend on T's underlying struct".
	typedefToStruct map[string]string
}

type declFilter func(ir.Decl) bool

func isTypeDecl(d ir.Decl) bool {
	switch d.(type) {
	case *ir.Struct, *ir.Enum, *ir.Typedef:
		return true
	}
	return false
}

func isTypedef(d ir.Decl) bool {
	_, ok := d.(*ir.Typedef)
	return ok
}

func isStruct(d ir.Decl) bool {
	_, ok := d.(*ir.Struct)
	return ok
}

func isValueTarget(d ir.Decl) bool {
	switch d.(type) {
	case *ir.Struct, *ir.Enum:
		return true
	}
	return false
}

func isConstLike(d ir.Decl) bool {
	switch d.(type) {
	case *ir.Constant, *ir.Enum:
		return true
	}
	return false
}

// buildGraph builds the directed dependency graph over one flat ordered
// list of declarations. An edge i -> j means i's textual emission
// requires j to already be known.
func buildGraph(decls []ir.Decl) *depGraph {
	g := &depGraph{
		decls:           decls,
		edges:           make(map[int]map[int]struct{}),
		byName:          make(map[string][]int),
		typedefToStruct: make(map[string]string),
	}

	for i, d := range decls {
		if n := d.DeclName(); n != "" {
			g.byName[n] = append(g.byName[n], i)
		}
	}

	for _, d := range decls {
		td, ok := d.(*ir.Typedef)
		if !ok {
			continue
		}
		for _, name := range sortedNames(ir.ReferencedNames(td.Underlying)) {
			if g.anyOfKind(name, isStruct) {
				g.typedefToStruct[td.Name] = name
				break
			}
		}
	}

	for i, d := range decls {
		switch v := d.(type) {
		case *ir.Typedef:
			// Typedef names must always be lexically bound before use,
			// even behind a pointer: no pointer exemption here.
			for _, name := range sortedNames(ir.ReferencedNames(v.Underlying)) {
				g.dependOn(i, name, isTypeDecl)
			}
		case *ir.Struct:
			for _, f := range v.Fields {
				g.fieldDeps(i, f.Type)
			}
			for _, m := range v.Methods {
				g.signatureDeps(i, m.Return, m.Params)
			}
		case *ir.Function:
			g.signatureDeps(i, v.Return, v.Params)
		case *ir.Variable:
			g.fieldDeps(i, v.Type)
		case *ir.Constant:
			if v.Type != nil {
				g.fieldDeps(i, v.Type)
			}
			g.exprDeps(i, v.Value)
		case *ir.Enum:
			for _, ev := range v.Values {
				g.exprDeps(i, ev.Value)
			}
		}
	}

	return g
}

// fieldDeps records the dependencies a value-holding slot (struct field,
// variable, typed constant) imposes. Pointer usage exempts struct and
// enum completeness but still binds typedef names, plus the struct a
// typedef aliases.
func (g *depGraph) fieldDeps(i int, t ir.Type) {
	var uses []typeUse
	collectUses(t, false, &uses)
	for _, use := range uses {
		if !use.ViaPointer {
			g.dependOn(i, use.Name, isValueTarget)
		}
		g.dependOn(i, use.Name, isTypedef)
		if s, ok := g.typedefToStruct[use.Name]; ok {
			g.dependOn(i, s, isStruct)
		}
	}
}

// signatureDeps records what a function signature needs: typedef name
// bindings only. Functions never gate on struct completeness.
func (g *depGraph) signatureDeps(i int, ret ir.Type, params []ir.Param) {
	names := ir.ReferencedNames(ret)
	for _, p := range params {
		for n := range ir.ReferencedNames(p.Type) {
			names[n] = struct{}{}
		}
	}
	for _, name := range sortedNames(names) {
		g.dependOn(i, name, isTypedef)
	}
}

func (g *depGraph) exprDeps(i int, e ir.Expr) {
	if e == nil {
		return
	}
	for _, name := range ir.ExprRefs(e, nil) {
		g.dependOn(i, name, isConstLike)
	}
}

// dependOn adds edges from index i to every declaration named name that
// passes the filter. Every index sharing the name gets an edge.
func (g *depGraph) dependOn(i int, name string, filter declFilter) {
	for _, j := range g.byName[name] {
		if j == i || !filter(g.decls[j]) {
			continue
		}
		if g.edges[i] == nil {
			g.edges[i] = make(map[int]struct{})
		}
		g.edges[i][j] = struct{}{}
	}
}

func (g *depGraph) anyOfKind(name string, filter declFilter) bool {
	for _, j := range g.byName[name] {
		if filter(g.decls[j]) {
			return true
		}
	}
	return false
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
