// Package orderedmap provides a small generic map that remembers first
// insertion order, so accumulated sets can be iterated deterministically.
package orderedmap

type Map[K comparable, V any] struct {
	values map[K]V
	order  []K
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
		order:  make([]K, 0),
	}
}

// Set stores value under key. The first Set of a key fixes its position;
// later Sets replace the value without moving it.
func (m *Map[K, V]) Set(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.order = append(m.order, key)
	}
	m.values[key] = value
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	value, ok := m.values[key]
	return value, ok
}

func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.values[key]
	return ok
}

func (m *Map[K, V]) Delete(key K) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (m *Map[K, V]) Keys() []K {
	return m.order
}

func (m *Map[K, V]) Values() []V {
	values := make([]V, len(m.order))
	for i, k := range m.order {
		values[i] = m.values[k]
	}
	return values
}

func (m *Map[K, V]) Len() int {
	return len(m.order)
}
