// Package ir defines the intermediate representation produced by the
// parser front ends and consumed by the pxd writer: type expressions,
// declarations and the Header aggregate. Pure data; the only behavior is
// structural helpers.
package ir

// Type is a C/C++ type expression. The set of implementations is closed;
// the writer type-switches over it and fails loudly on anything else.
type Type interface {
	isType()
}

// BaseType is a named type, possibly qualified. The name may carry a
// struct/union/enum tag prefix exactly as spelled in the source, e.g.
// "struct foo_s".
type BaseType struct {
	Name string
	// Qualifiers are semantically a set, but order affects rendering.
	// Duplicates are suppressed at render time, not here.
	Qualifiers []string
}

// PointerType is a pointer to Pointee.
type PointerType struct {
	Pointee    Type
	Qualifiers []string
}

// ArrayType is an array of Element. Size is empty for incomplete/flexible
// arrays; otherwise it holds a decimal literal or a symbolic size
// expression kept verbatim.
type ArrayType struct {
	Element Type
	Size    string
}

// FuncPtrType is a pointer to a function.
type FuncPtrType struct {
	Return     Type
	Params     []Param
	IsVariadic bool
}

func (*BaseType) isType()    {}
func (*PointerType) isType() {}
func (*ArrayType) isType()   {}
func (*FuncPtrType) isType() {}

// Param is a function or function-pointer parameter. Name is empty for
// abstract parameters.
type Param struct {
	Name string
	Type Type
}

// Location is a source position, carried for diagnostics only.
type Location struct {
	File string
	Line int
}

// Decl is a top-level declaration. Like Type, the set is closed.
type Decl interface {
	isDecl()
	// DeclName is the declared name; empty for anonymous declarations.
	DeclName() string
	// DeclNamespace is the "::"-joined enclosing scope path, empty for
	// the global namespace.
	DeclNamespace() string
}

// Field is a struct or union member.
type Field struct {
	Name string
	Type Type
}

// Struct is a struct, union or C++ class declaration. A Struct with no
// fields and no methods is a forward declaration: the name is known but
// the type is incomplete. That state is distinct from an unknown name and
// the writer's cycle handling depends on the distinction.
type Struct struct {
	Name      string
	Fields    []Field
	Methods   []Function
	IsUnion   bool
	IsClass   bool
	Namespace string
	Loc       Location
}

// Forward reports whether s is a forward declaration.
func (s *Struct) Forward() bool { return len(s.Fields) == 0 && len(s.Methods) == 0 }

// EnumValue is one enumerator. Value is nil when the source leaves the
// value implicit.
type EnumValue struct {
	Name  string
	Value Expr
}

// Enum is an enum declaration. Name is empty for anonymous enums.
type Enum struct {
	Name      string
	Values    []EnumValue
	Namespace string
	Loc       Location
}

// Function is a function declaration (or a class method when it appears
// in Struct.Methods).
type Function struct {
	Name       string
	Return     Type
	Params     []Param
	IsVariadic bool
	Namespace  string
	Loc        Location
}

// Typedef binds a name to an underlying type.
type Typedef struct {
	Name       string
	Underlying Type
	Namespace  string
	Loc        Location
}

// Variable is a file-scope variable declaration.
type Variable struct {
	Name      string
	Type      Type
	Namespace string
	Loc       Location
}

// Constant is a macro constant or other named constant. Value may be nil
// when the macro expands to something outside the supported expression
// subset; Type may still be inferred, and may itself be nil.
type Constant struct {
	Name      string
	Value     Expr
	Type      Type
	IsMacro   bool
	Namespace string
	Loc       Location
}

func (*Struct) isDecl()   {}
func (*Enum) isDecl()     {}
func (*Function) isDecl() {}
func (*Typedef) isDecl()  {}
func (*Variable) isDecl() {}
func (*Constant) isDecl() {}

func (s *Struct) DeclName() string   { return s.Name }
func (e *Enum) DeclName() string     { return e.Name }
func (f *Function) DeclName() string { return f.Name }
func (t *Typedef) DeclName() string  { return t.Name }
func (v *Variable) DeclName() string { return v.Name }
func (c *Constant) DeclName() string { return c.Name }

func (s *Struct) DeclNamespace() string   { return s.Namespace }
func (e *Enum) DeclNamespace() string     { return e.Namespace }
func (f *Function) DeclNamespace() string { return f.Namespace }
func (t *Typedef) DeclNamespace() string  { return t.Namespace }
func (v *Variable) DeclNamespace() string { return v.Namespace }
func (c *Constant) DeclNamespace() string { return c.Namespace }

// Header is the root aggregate for one parsed header file. It is created
// once per parse, immutable afterwards, and consumed by the writer.
type Header struct {
	Path          string
	Decls         []Decl
	IncludedFiles map[string]struct{}
}
