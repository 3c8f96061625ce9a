package writer

import "sort"

// sequence orders the declarations of one group so that every dependency
// precedes its dependent (Kahn's algorithm). Ties among ready nodes break
// toward the lowest original index, with an explicit sort before each
// pop: determinism over the original declaration order is a hard
// requirement, not an optimization.
//
// Indices that cannot be placed are cycle members. They are appended to
// the returned order in their original relative order and additionally
// returned in cyclic; if cyclic is empty, the order is a valid linear
// extension of the dependency partial order. The sequencer never breaks
// cycles itself; the caller switches to phased emission.
func sequence(n int, edges map[int]map[int]struct{}) (ordered, cyclic []int) {
	waiting := make([]int, n)
	dependents := make(map[int][]int)
	for i := 0; i < n; i++ {
		waiting[i] = len(edges[i])
		for j := range edges[i] {
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if waiting[i] == 0 {
			ready = append(ready, i)
		}
	}

	placed := make([]bool, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)
		placed[next] = true
		for _, dep := range dependents[next] {
			waiting[dep]--
			if waiting[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) < n {
		for i := 0; i < n; i++ {
			if !placed[i] {
				cyclic = append(cyclic, i)
				ordered = append(ordered, i)
			}
		}
	}
	return ordered, cyclic
}
