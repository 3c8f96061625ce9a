package writer

import "pxdgen/ir"

// phasePlan is the five-phase emission order used when a group contains
// a dependency cycle. It applies to the whole group, not just the cyclic
// subset, so relative ordering stays coherent: forward declarations make
// every aggregate name valid as an incomplete type, typedefs bind every
// alias, simple declarations follow, full bodies land once every name
// they can reference exists, and functions come last.
type phasePlan struct {
	Forward  []int // structs/unions that need a name-only declaration
	Typedefs []int
	Simple   []int // enums, variables, constants, body-less structs
	Bodies   []int // full struct bodies, re-sorted by value dependencies
	Funcs    []int
}

// planCyclicEmission partitions decls into the five phases. combined
// marks struct indices that render in the collapsed typedef-struct form
// (those must not be forward-declared separately, and their typedef
// counterpart is suppressed elsewhere); external reports names that
// resolve through an import rather than a local declaration.
func planCyclicEmission(g *depGraph, combined map[int]bool, suppressed map[int]bool, external func(string) bool) phasePlan {
	var plan phasePlan

	// Names that own a full body in this group. A standalone forward
	// entry for such a name is already covered by the body's phase-1
	// forward declaration and must not render a second time.
	bodied := make(map[string]bool)
	for _, d := range g.decls {
		if s, ok := d.(*ir.Struct); ok && !s.Forward() {
			bodied[s.Name] = true
		}
	}

	for i, d := range g.decls {
		switch v := d.(type) {
		case *ir.Struct:
			if v.Forward() {
				if !combined[i] && !bodied[v.Name] {
					plan.Simple = append(plan.Simple, i)
				}
				continue
			}
			if !combined[i] && !external(v.Name) {
				plan.Forward = append(plan.Forward, i)
			}
			plan.Bodies = append(plan.Bodies, i)
		case *ir.Typedef:
			if !suppressed[i] {
				plan.Typedefs = append(plan.Typedefs, i)
			}
		case *ir.Enum, *ir.Variable, *ir.Constant:
			plan.Simple = append(plan.Simple, i)
		case *ir.Function:
			plan.Funcs = append(plan.Funcs, i)
		}
	}

	plan.Bodies = orderBodies(g, plan.Bodies)
	return plan
}

// orderBodies re-sorts full struct bodies by value-type-only field
// dependencies, pointer fields excluded exactly as in the main graph, so
// a struct embedding another struct by value still precedes it within
// the body phase. Any remaining cycle among bodies falls back to
// original order; at that point bodies can only reference each other
// through pointers, which the forward declarations already made valid.
func orderBodies(g *depGraph, bodies []int) []int {
	if len(bodies) < 2 {
		return bodies
	}

	local := make(map[int]int, len(bodies)) // group index -> body slot
	for slot, idx := range bodies {
		local[idx] = slot
	}

	edges := make(map[int]map[int]struct{})
	addEdge := func(from, to int) {
		if from == to {
			return
		}
		if edges[from] == nil {
			edges[from] = make(map[int]struct{})
		}
		edges[from][to] = struct{}{}
	}

	for slot, idx := range bodies {
		s := g.decls[idx].(*ir.Struct)
		for _, f := range s.Fields {
			var uses []typeUse
			collectUses(f.Type, false, &uses)
			for _, use := range uses {
				if use.ViaPointer {
					continue
				}
				name := use.Name
				if aliased, ok := g.typedefToStruct[name]; ok {
					name = aliased
				}
				for _, j := range g.byName[name] {
					if target, ok := local[j]; ok && isStruct(g.decls[j]) {
						addEdge(slot, target)
					}
				}
			}
		}
	}

	ordered, _ := sequence(len(bodies), edges)
	out := make([]int, len(bodies))
	for i, slot := range ordered {
		out[i] = bodies[slot]
	}
	return out
}
