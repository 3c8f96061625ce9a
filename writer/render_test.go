package writer

import (
	"strings"
	"testing"

	"pxdgen/ir"
)

func mustWrite(t *testing.T, h *ir.Header) string {
	t.Helper()
	out, err := New().Write(h)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return out
}

func TestWritePointHeader(t *testing.T) {
	h := &ir.Header{Path: "point.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Point", Fields: []ir.Field{
			{Name: "x", Type: &ir.BaseType{Name: "int32_t"}},
			{Name: "y", Type: &ir.BaseType{Name: "int32_t"}},
		}},
		&ir.Function{
			Name:   "get_point",
			Return: &ir.PointerType{Pointee: &ir.BaseType{Name: "Point"}},
			Params: []ir.Param{{Name: "idx", Type: &ir.BaseType{Name: "size_t"}}},
		},
	}}

	want := `from libc.stddef cimport size_t
from libc.stdint cimport int32_t

cdef extern from "point.h":
    cdef struct Point:
        int32_t x
        int32_t y

    Point *get_point(size_t idx)
`
	if got := mustWrite(t, h); got != want {
		t.Errorf("Write() =\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteStripsTagsOnLocalReferences(t *testing.T) {
	h := &ir.Header{Path: "p.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Point", Fields: []ir.Field{
			{Name: "x", Type: &ir.BaseType{Name: "int"}},
		}},
		&ir.Function{Name: "origin", Return: &ir.BaseType{Name: "struct Point"}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "Point origin()") {
		t.Errorf("local reference must render bare, got:\n%s", got)
	}
	if strings.Contains(got, "struct Point origin") {
		t.Errorf("tag prefix must be stripped on local references:\n%s", got)
	}
}

func TestWriteDeterministic(t *testing.T) {
	// Lots of map-backed state: imports from three registries, multiple
	// namespaces, shared names. Two runs must agree byte for byte.
	h := &ir.Header{Path: "mix.h", Decls: []ir.Decl{
		&ir.Struct{Name: "S", Fields: []ir.Field{
			{Name: "a", Type: &ir.BaseType{Name: "uint8_t"}},
			{Name: "b", Type: &ir.BaseType{Name: "int64_t"}},
			{Name: "c", Type: &ir.BaseType{Name: "size_t"}},
			{Name: "d", Type: &ir.BaseType{Name: "pid_t"}},
			{Name: "e", Type: &ir.BaseType{Name: "time_t"}},
		}},
		&ir.Typedef{Name: "V", Underlying: &ir.BaseType{Name: "vector<int>"}, Namespace: "ml"},
		&ir.Variable{Name: "g", Type: &ir.BaseType{Name: "off_t"}},
		&ir.Function{Name: "f", Return: &ir.BaseType{Name: "void"}, Params: nil, Namespace: "ml"},
	}}

	first := mustWrite(t, h)
	for i := 0; i < 20; i++ {
		if again := mustWrite(t, h); again != first {
			t.Fatalf("run %d differs:\n%s\nfirst:\n%s", i, again, first)
		}
	}
}

func TestWriteEmptyHeader(t *testing.T) {
	h := &ir.Header{Path: "empty.h"}
	want := "cdef extern from \"empty.h\":\n    pass\n"
	if got := mustWrite(t, h); got != want {
		t.Errorf("Write() = %q, want %q", got, want)
	}
}

func TestWriteForwardDeclarationHasNoBody(t *testing.T) {
	h := &ir.Header{Path: "opaque.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Handle"},
		&ir.Struct{Name: "Shared", IsUnion: true},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "    cdef struct Handle\n") {
		t.Errorf("missing name-only struct declaration in:\n%s", got)
	}
	if !strings.Contains(got, "    cdef union Shared\n") {
		t.Errorf("missing name-only union declaration in:\n%s", got)
	}
	if strings.Contains(got, "Handle:") || strings.Contains(got, "pass") {
		t.Errorf("forward declaration must not open a body:\n%s", got)
	}
}

func TestWriteReservedNames(t *testing.T) {
	h := &ir.Header{Path: "kw.h", Decls: []ir.Decl{
		&ir.Function{
			Name:   "class",
			Return: &ir.BaseType{Name: "void"},
			Params: []ir.Param{{Name: "lambda", Type: &ir.BaseType{Name: "int"}}},
		},
		&ir.Typedef{Name: "ok_t", Underlying: &ir.BaseType{Name: "lambda"}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, `void class_ "class"(int lambda_ "lambda")`) {
		t.Errorf("declared reserved names must carry a cname pairing:\n%s", got)
	}
	if !strings.Contains(got, "ctypedef lambda_ ok_t") {
		t.Errorf("referenced reserved names escape without a pairing:\n%s", got)
	}
}

func TestWriteNamespaceGroups(t *testing.T) {
	h := &ir.Header{Path: "api.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Tensor", IsClass: true, Namespace: "ml", Fields: []ir.Field{
			{Name: "rank", Type: &ir.BaseType{Name: "int"}},
		}},
		&ir.Variable{Name: "g_count", Type: &ir.BaseType{Name: "int"}},
		&ir.Function{Name: "init", Return: &ir.BaseType{Name: "void"}, Namespace: "aux"},
	}}
	got := mustWrite(t, h)

	global := strings.Index(got, "cdef extern from \"api.h\":")
	aux := strings.Index(got, "cdef extern from \"api.h\" namespace \"aux\":")
	ml := strings.Index(got, "cdef extern from \"api.h\" namespace \"ml\":")
	if global < 0 || aux < 0 || ml < 0 {
		t.Fatalf("missing extern group markers in:\n%s", got)
	}
	if !(global < aux && aux < ml) {
		t.Errorf("group order must be global then lexical, got positions %d/%d/%d in:\n%s", global, aux, ml, got)
	}
	if !strings.Contains(got, "cdef cppclass Tensor:") {
		t.Errorf("missing cppclass declaration in:\n%s", got)
	}
}

func TestWriteCombinedTypedefStruct(t *testing.T) {
	h := &ir.Header{Path: "c.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Foo", Fields: []ir.Field{
			{Name: "x", Type: &ir.BaseType{Name: "int"}},
		}},
		&ir.Typedef{Name: "Foo", Underlying: &ir.BaseType{Name: "struct Foo"}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "ctypedef struct Foo:") {
		t.Errorf("missing combined ctypedef struct form in:\n%s", got)
	}
	if strings.Contains(got, "cdef struct Foo") {
		t.Errorf("combined struct must not also render separately:\n%s", got)
	}
	if strings.Contains(got, "ctypedef Foo Foo") {
		t.Errorf("self-referential alias must be suppressed:\n%s", got)
	}
}

func TestWriteCyclicGroupUsesPhases(t *testing.T) {
	h := &ir.Header{Path: "knot.h", Decls: []ir.Decl{
		&ir.Typedef{Name: "P", Underlying: &ir.BaseType{Name: "struct Q"}},
		&ir.Struct{Name: "Q", Fields: []ir.Field{
			{Name: "v", Type: &ir.BaseType{Name: "P"}},
		}},
	}}

	want := `cdef extern from "knot.h":
    cdef struct Q

    ctypedef Q P

    cdef struct Q:
        P v
`
	if got := mustWrite(t, h); got != want {
		t.Errorf("Write() =\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteMutualPointerStructsKeepForward(t *testing.T) {
	// Decl list exactly as the front ends deliver it for
	// struct A { struct B *b; }; struct B { struct A *a; };
	// The reference-time forward declaration of B is its own entry and
	// must survive into the output ahead of the body that points at it.
	h := &ir.Header{Path: "mutual.h", Decls: []ir.Decl{
		&ir.Struct{Name: "B"},
		&ir.Struct{Name: "A", Fields: []ir.Field{
			{Name: "b", Type: &ir.PointerType{Pointee: &ir.BaseType{Name: "struct B"}}},
		}},
		&ir.Struct{Name: "B", Fields: []ir.Field{
			{Name: "a", Type: &ir.PointerType{Pointee: &ir.BaseType{Name: "struct A"}}},
		}},
	}}

	want := `cdef extern from "mutual.h":
    cdef struct B

    cdef struct A:
        B *b

    cdef struct B:
        A *a
`
	got := mustWrite(t, h)
	if got != want {
		t.Errorf("Write() =\n%s\nwant:\n%s", got, want)
	}
	// No name may be used before a line declaring it.
	if use, decl := strings.Index(got, "B *b"), strings.Index(got, "cdef struct B"); use < decl {
		t.Errorf("B used before declared:\n%s", got)
	}
}

func TestWriteCyclicGroupWithForwardEntry(t *testing.T) {
	// Same knot as above, but with a reference-time forward entry in the
	// list; the name must appear exactly once as a forward declaration.
	h := &ir.Header{Path: "knot.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Q"},
		&ir.Typedef{Name: "P", Underlying: &ir.BaseType{Name: "struct Q"}},
		&ir.Struct{Name: "Q", Fields: []ir.Field{
			{Name: "v", Type: &ir.BaseType{Name: "P"}},
		}},
	}}
	got := mustWrite(t, h)
	if n := strings.Count(got, "cdef struct Q\n"); n != 1 {
		t.Errorf("forward declaration of Q appears %d times, want 1:\n%s", n, got)
	}
	if n := strings.Count(got, "cdef struct Q:"); n != 1 {
		t.Errorf("body of Q appears %d times, want 1:\n%s", n, got)
	}
	forward := strings.Index(got, "cdef struct Q\n")
	body := strings.Index(got, "cdef struct Q:")
	if forward > body {
		t.Errorf("forward declaration must precede the body:\n%s", got)
	}
}

func TestWriteBoolHandling(t *testing.T) {
	h := &ir.Header{Path: "b.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Flags", Fields: []ir.Field{
			{Name: "ok", Type: &ir.BaseType{Name: "_Bool"}},
		}},
		&ir.Function{Name: "is_ready", Return: &ir.BaseType{Name: "bool"}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "bint ok") {
		t.Errorf("C _Bool must render as bint:\n%s", got)
	}
	if strings.Contains(got, "cimport bint") || strings.Contains(got, "cimport _Bool") {
		t.Errorf("bint needs no import:\n%s", got)
	}
	if !strings.Contains(got, "from libcpp cimport bool") {
		t.Errorf("C++ bool still imports from libcpp:\n%s", got)
	}
	if !strings.Contains(got, "bool is_ready()") {
		t.Errorf("missing bool return in:\n%s", got)
	}
}

func TestWriteUnknownTaggedNameGetsForwardDeclaration(t *testing.T) {
	h := &ir.Header{Path: "fwd.h", Decls: []ir.Decl{
		&ir.Struct{Name: "S", Fields: []ir.Field{
			{Name: "p", Type: &ir.PointerType{Pointee: &ir.BaseType{Name: "struct Ext"}}},
		}},
	}}

	want := `cdef extern from "fwd.h":
    cdef struct Ext

    cdef struct S:
        Ext *p
`
	if got := mustWrite(t, h); got != want {
		t.Errorf("Write() =\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteTemplateResolution(t *testing.T) {
	h := &ir.Header{Path: "tpl.h", Decls: []ir.Decl{
		&ir.Typedef{Name: "IntVec", Underlying: &ir.BaseType{Name: "vector<int>"}},
		&ir.Typedef{Name: "VecPtr", Underlying: &ir.BaseType{Name: "shared_ptr<vector<int>>"}},
		&ir.Typedef{Name: "NameMap", Underlying: &ir.BaseType{Name: "map<string, const char*>"}},
	}}
	got := mustWrite(t, h)

	for _, want := range []string{
		"ctypedef vector[int] IntVec",
		"ctypedef shared_ptr[vector[int]] VecPtr",
		"ctypedef map[string, const char*] NameMap",
		"from libcpp.map cimport map",
		"from libcpp.memory cimport shared_ptr",
		"from libcpp.string cimport string",
		"from libcpp.vector cimport vector",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestWriteMalformedTemplateStaysOpaque(t *testing.T) {
	h := &ir.Header{Path: "bad.h", Decls: []ir.Decl{
		&ir.Typedef{Name: "Bad", Underlying: &ir.BaseType{Name: "broken<int"}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "ctypedef broken<int Bad") {
		t.Errorf("malformed template text must pass through verbatim:\n%s", got)
	}
}

func TestWriteVariadicAndFunctionPointer(t *testing.T) {
	h := &ir.Header{Path: "fn.h", Decls: []ir.Decl{
		&ir.Function{
			Name:   "log_msg",
			Return: &ir.BaseType{Name: "int"},
			Params: []ir.Param{
				{Name: "fmt", Type: &ir.PointerType{Pointee: &ir.BaseType{Name: "char"}}},
			},
			IsVariadic: true,
		},
		&ir.Struct{Name: "Ops", Fields: []ir.Field{
			{Name: "on_event", Type: &ir.FuncPtrType{
				Return: &ir.BaseType{Name: "void"},
				Params: []ir.Param{{Name: "code", Type: &ir.BaseType{Name: "int"}}},
			}},
		}},
	}}
	got := mustWrite(t, h)
	if !strings.Contains(got, "int log_msg(char *fmt, ...)") {
		t.Errorf("missing variadic signature in:\n%s", got)
	}
	if !strings.Contains(got, "void (*on_event)(int code)") {
		t.Errorf("missing function pointer field in:\n%s", got)
	}
}

func TestWriteEnumsAndConstants(t *testing.T) {
	h := &ir.Header{Path: "e.h", Decls: []ir.Decl{
		&ir.Enum{Name: "", Values: []ir.EnumValue{
			{Name: "A"},
			{Name: "B", Value: &ir.IntLit{Value: 16, Text: "0x10"}},
		}},
		&ir.Enum{Name: "Empty"},
		&ir.Constant{Name: "MAX_LEN", Value: &ir.IntLit{Value: 128}, IsMacro: true},
		&ir.Constant{Name: "VERSION", Value: &ir.StrLit{Value: "1.0"}, IsMacro: true},
		&ir.Constant{Name: "PI", Value: &ir.FloatLit{Value: 3.14, Text: "3.14"}, IsMacro: true},
	}}
	got := mustWrite(t, h)

	for _, want := range []string{
		"cdef enum:\n        A\n        B = 0x10",
		"cdef enum Empty:\n        pass",
		"const long MAX_LEN",
		"const char* VERSION",
		"const double PI",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestWriteArraysAndQualifiers(t *testing.T) {
	h := &ir.Header{Path: "a.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Buf", Fields: []ir.Field{
			{Name: "data", Type: &ir.ArrayType{Element: &ir.BaseType{Name: "uint8_t"}, Size: "64"}},
			{Name: "grid", Type: &ir.ArrayType{
				Element: &ir.ArrayType{Element: &ir.BaseType{Name: "double"}, Size: "3"},
				Size:    "2",
			}},
			{Name: "tail", Type: &ir.ArrayType{Element: &ir.BaseType{Name: "char"}}},
			{Name: "dyn", Type: &ir.ArrayType{Element: &ir.BaseType{Name: "int"}, Size: "2 * DIM"}},
		}},
		&ir.Variable{Name: "v", Type: &ir.BaseType{Name: "int", Qualifiers: []string{"const", "const", "volatile"}}},
	}}
	got := mustWrite(t, h)

	for _, want := range []string{
		"uint8_t data[64]",
		"double grid[2][3]",
		"char tail[]",
		"int dyn[2 * DIM]",
		"const volatile int v",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestWriteValueFieldOrdersStructsTopologically(t *testing.T) {
	// Outer declared first but embeds Inner by value; Inner must render
	// first.
	h := &ir.Header{Path: "ord.h", Decls: []ir.Decl{
		&ir.Struct{Name: "Outer", Fields: []ir.Field{
			{Name: "inner", Type: &ir.BaseType{Name: "struct Inner"}},
		}},
		&ir.Struct{Name: "Inner", Fields: []ir.Field{
			{Name: "x", Type: &ir.BaseType{Name: "int"}},
		}},
	}}
	got := mustWrite(t, h)
	inner := strings.Index(got, "cdef struct Inner:")
	outer := strings.Index(got, "cdef struct Outer:")
	if inner < 0 || outer < 0 || inner > outer {
		t.Errorf("Inner must precede Outer in:\n%s", got)
	}
}
