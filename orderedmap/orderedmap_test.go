package orderedmap

import "testing"

func TestInsertionOrder(t *testing.T) {
	m := New[string, int]()
	m.Set("c", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	want := []string{"c", "a", "b"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetKeepsPosition(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3) // replaces the value, must not move the key

	if got := m.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Keys() after re-Set = %v, want [a b]", got)
	}
	if v, ok := m.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = (%d, %v), want (3, true)", v, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Delete("b")
	m.Delete("missing")

	if m.Has("b") {
		t.Error("Has(b) = true after Delete")
	}
	if got := m.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Keys() after Delete = %v, want [a c]", got)
	}
}

func TestValues(t *testing.T) {
	m := New[int, string]()
	m.Set(2, "two")
	m.Set(1, "one")

	got := m.Values()
	if len(got) != 2 || got[0] != "two" || got[1] != "one" {
		t.Errorf("Values() = %v, want [two one]", got)
	}
}
