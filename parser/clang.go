// Package parser holds the two front ends that turn C/C++ headers into
// the IR consumed by the writer. Backend selection belongs to the CLI
// layer; the writer never learns that backends exist.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/divan/num2words"
	"github.com/go-clang/clang-v13/clang"

	"pxdgen/ir"
)

// Clang parses headers through libclang. It keeps a verbose trace of the
// cursor walk, printed by the CLI under -v.
type Clang struct {
	includeDirs []string
	trace       strings.Builder

	path      string
	decls     []ir.Decl
	included  map[string]struct{}
	seen      map[clang.Cursor]bool
	anonNames map[string]string // clang spelling -> assigned name
	recordIdx map[string]int    // struct/union name -> index in decls
}

func NewClang(includeDirs []string) *Clang {
	return &Clang{includeDirs: includeDirs}
}

// Trace returns the parsing log accumulated by the last ParseHeader.
func (p *Clang) Trace() string { return p.trace.String() }

// ParseHeader parses filename and returns the Header aggregate. Forward
// declarations are kept as struct declarations with empty member lists;
// the writer depends on "known but incomplete" being represented.
func (p *Clang) ParseHeader(filename string) (*ir.Header, error) {
	p.path = filename
	p.decls = nil
	p.included = make(map[string]struct{})
	p.seen = make(map[clang.Cursor]bool)
	p.anonNames = make(map[string]string)
	p.recordIdx = make(map[string]int)
	p.trace.Reset()
	p.trace.WriteString(fmt.Sprintf("Parsing header: %s\n", filename))

	// Parse through a temporary C file that includes the header, so the
	// header's own include guards behave as they would in client code.
	tempFile := filename + "_temp.c"
	tempContent := fmt.Sprintf("#include \"%s\"\n", filepath.Base(filename))
	if err := os.WriteFile(tempFile, []byte(tempContent), 0644); err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile)

	args := []string{"-I" + filepath.Dir(filename)}
	for _, dir := range p.includeDirs {
		args = append(args, "-I"+dir)
	}

	idx := clang.NewIndex(0, 0)
	defer idx.Dispose()

	tu := idx.ParseTranslationUnit(tempFile, args, nil, uint32(clang.TranslationUnit_DetailedPreprocessingRecord))
	if tu == (clang.TranslationUnit{}) {
		return nil, fmt.Errorf("failed to parse translation unit for %s", filename)
	}
	defer tu.Dispose()

	tu.TranslationUnitCursor().Visit(func(cursor, parent clang.Cursor) clang.ChildVisitResult {
		p.visitTop(cursor, "", 0)
		return clang.ChildVisit_Continue
	})

	return &ir.Header{Path: filename, Decls: p.decls, IncludedFiles: p.included}, nil
}

func (p *Clang) visitTop(cursor clang.Cursor, ns string, depth int) {
	if cursor.Location().IsInSystemHeader() {
		return
	}
	if p.seen[cursor] {
		return
	}
	p.seen[cursor] = true

	kind := cursor.Kind()
	p.trace.WriteString(fmt.Sprintf("%s[DEBUG] Visiting cursor: %s (%s)\n",
		strings.Repeat("  ", depth), cursor.Spelling(), kind.String()))

	switch kind {
	case clang.Cursor_Namespace:
		child := cursor.Spelling()
		if ns != "" {
			child = ns + "::" + child
		}
		cursor.Visit(func(c, parent clang.Cursor) clang.ChildVisitResult {
			p.visitTop(c, child, depth+1)
			return clang.ChildVisit_Continue
		})
	case clang.Cursor_StructDecl:
		p.handleRecord(cursor, ns, depth, false, false)
	case clang.Cursor_UnionDecl:
		p.handleRecord(cursor, ns, depth, true, false)
	case clang.Cursor_ClassDecl:
		p.handleRecord(cursor, ns, depth, false, true)
	case clang.Cursor_EnumDecl:
		p.handleEnum(cursor, ns, depth)
	case clang.Cursor_TypedefDecl:
		p.handleTypedef(cursor, ns, depth)
	case clang.Cursor_FunctionDecl:
		p.handleFunction(cursor, ns, depth)
	case clang.Cursor_VarDecl:
		p.decls = append(p.decls, &ir.Variable{
			Name:      cursor.Spelling(),
			Type:      p.typeFromClang(cursor.Type()),
			Namespace: ns,
			Loc:       p.location(cursor),
		})
	case clang.Cursor_MacroDefinition:
		p.handleMacro(cursor, depth)
	case clang.Cursor_InclusionDirective:
		p.included[cursor.Spelling()] = struct{}{}
	}
}

func isAnonymousSpelling(s string) bool {
	return s == "" || strings.Contains(s, "unnamed") || strings.Contains(s, " at ")
}

// recordName picks a stable name for a record cursor. Anonymous records
// take the enclosing typedef's name when one exists; otherwise a
// deterministic size-based name.
func (p *Clang) recordName(cursor clang.Cursor, isUnion bool) string {
	spelling := cursor.Spelling()
	if !isAnonymousSpelling(spelling) {
		if mapped, ok := p.anonNames[spelling]; ok {
			return mapped
		}
		return spelling
	}

	var name string
	parent := cursor.SemanticParent()
	if parent.Kind() == clang.Cursor_TypedefDecl {
		name = parent.Spelling()
	} else {
		kind := "struct"
		if isUnion {
			kind = "union"
		}
		size := cursor.Type().SizeOf()
		name = "anon_" + kind + "_" + identWords(num2words.Convert(int(size))) + "_bytes"
	}
	if spelling != "" {
		p.anonNames[spelling] = name
		p.trace.WriteString(fmt.Sprintf("[DEBUG] Mapping anonymous spelling %q to %q\n", spelling, name))
	}
	return name
}

// identWords makes a num2words phrase identifier-safe.
func identWords(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// arraySizeSpelling pulls the symbolic size text out of an array type
// spelling like "int [dim]".
func arraySizeSpelling(s string) string {
	open := strings.LastIndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if open < 0 || end <= open+1 {
		return ""
	}
	return strings.TrimSpace(s[open+1 : end])
}

func (p *Clang) handleRecord(cursor clang.Cursor, ns string, depth int, isUnion, isClass bool) {
	name := p.recordName(cursor, isUnion)

	decl := &ir.Struct{
		Name:      name,
		IsUnion:   isUnion,
		IsClass:   isClass,
		Namespace: ns,
		Loc:       p.location(cursor),
	}

	if cursor.IsCursorDefinition() {
		cursor.Visit(func(child, parent clang.Cursor) clang.ChildVisitResult {
			switch child.Kind() {
			case clang.Cursor_FieldDecl:
				decl.Fields = append(decl.Fields, ir.Field{
					Name: child.Spelling(),
					Type: p.typeFromClang(child.Type()),
				})
			case clang.Cursor_StructDecl:
				p.visitTop(child, ns, depth+1)
			case clang.Cursor_UnionDecl:
				p.visitTop(child, ns, depth+1)
			case clang.Cursor_EnumDecl:
				p.visitTop(child, ns, depth+1)
			case clang.Cursor_CXXMethod:
				decl.Methods = append(decl.Methods, p.functionFrom(child, ns))
			}
			return clang.ChildVisit_Continue
		})
	}

	if prev, ok := p.recordIdx[name]; ok {
		// A repeated forward declaration or a redefinition adds nothing.
		// A definition after a forward declaration appends separately:
		// the forward entry stays in the list, so the emitted text
		// declares the name before any body that points at it.
		if existing, isRec := p.decls[prev].(*ir.Struct); isRec {
			if decl.Forward() || !existing.Forward() {
				return
			}
		}
	}
	p.recordIdx[name] = len(p.decls)
	p.decls = append(p.decls, decl)
	p.trace.WriteString(fmt.Sprintf("%sRegistered record: %s\n", strings.Repeat("  ", depth), name))
}

func (p *Clang) handleEnum(cursor clang.Cursor, ns string, depth int) {
	name := cursor.Spelling()
	if isAnonymousSpelling(name) {
		name = ""
	}
	decl := &ir.Enum{Name: name, Namespace: ns, Loc: p.location(cursor)}
	cursor.Visit(func(child, parent clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_EnumConstantDecl {
			decl.Values = append(decl.Values, ir.EnumValue{
				Name:  child.Spelling(),
				Value: &ir.IntLit{Value: child.EnumConstantDeclValue()},
			})
		}
		return clang.ChildVisit_Continue
	})
	p.decls = append(p.decls, decl)
	p.trace.WriteString(fmt.Sprintf("%sFound enum: %s with %d members\n",
		strings.Repeat("  ", depth), name, len(decl.Values)))
}

func (p *Clang) handleTypedef(cursor clang.Cursor, ns string, depth int) {
	name := cursor.Spelling()
	underlying := cursor.TypedefDeclUnderlyingType()
	p.trace.WriteString(fmt.Sprintf("%sFound typedef: %s -> %s\n",
		strings.Repeat("  ", depth), name, underlying.Spelling()))
	p.decls = append(p.decls, &ir.Typedef{
		Name:       name,
		Underlying: p.typeFromClang(underlying),
		Namespace:  ns,
		Loc:        p.location(cursor),
	})
}

func (p *Clang) handleFunction(cursor clang.Cursor, ns string, depth int) {
	if cursor.Spelling() == "" {
		return
	}
	fn := p.functionFrom(cursor, ns)
	p.decls = append(p.decls, &fn)
	p.trace.WriteString(fmt.Sprintf("%sFound function: %s\n", strings.Repeat("  ", depth), fn.Name))
}

func (p *Clang) functionFrom(cursor clang.Cursor, ns string) ir.Function {
	fn := ir.Function{
		Name:       cursor.Spelling(),
		Return:     p.typeFromClang(cursor.ResultType()),
		IsVariadic: cursor.IsVariadic(),
		Namespace:  ns,
		Loc:        p.location(cursor),
	}
	n := int(cursor.NumArguments())
	for i := 0; i < n; i++ {
		arg := cursor.Argument(uint32(i))
		fn.Params = append(fn.Params, ir.Param{
			Name: arg.Spelling(),
			Type: p.typeFromClang(arg.Type()),
		})
	}
	return fn
}

// handleMacro recovers simple object-like macro constants by reading the
// defining line back out of the source file, the only way libclang
// exposes the replacement text.
func (p *Clang) handleMacro(cursor clang.Cursor, depth int) {
	name := cursor.Spelling()
	location := cursor.Location()
	file, _, _, _ := location.FileLocation()
	if file == (clang.File{}) {
		return
	}
	content, err := os.ReadFile(file.Name())
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#define "+name+"(") {
			return // function-like macro, not a constant
		}
		if !strings.HasPrefix(line, "#define "+name+" ") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "#define "+name+" "))
		if value == "" {
			return
		}
		p.decls = append(p.decls, &ir.Constant{
			Name:    name,
			Value:   ir.ParseLiteral(value), // nil when outside the literal subset
			IsMacro: true,
			Loc:     p.location(cursor),
		})
		p.trace.WriteString(fmt.Sprintf("%sFound macro: %s = %s\n", strings.Repeat("  ", depth), name, value))
		return
	}
}

// typeFromClang converts a clang type to the IR type expression.
func (p *Clang) typeFromClang(t clang.Type) ir.Type {
	switch t.Kind() {
	case clang.Type_Pointer:
		pointee := t.PointeeType()
		if pointee.Kind() == clang.Type_FunctionProto || pointee.Kind() == clang.Type_FunctionNoProto {
			fp := &ir.FuncPtrType{
				Return:     p.typeFromClang(pointee.ResultType()),
				IsVariadic: pointee.IsFunctionTypeVariadic(),
			}
			n := int(pointee.NumArgTypes())
			for i := 0; i < n; i++ {
				fp.Params = append(fp.Params, ir.Param{Type: p.typeFromClang(pointee.ArgType(uint32(i)))})
			}
			return fp
		}
		return &ir.PointerType{Pointee: p.typeFromClang(pointee)}
	case clang.Type_ConstantArray:
		return &ir.ArrayType{
			Element: p.typeFromClang(t.ElementType()),
			Size:    strconv.FormatInt(t.ArraySize(), 10),
		}
	case clang.Type_IncompleteArray:
		return &ir.ArrayType{Element: p.typeFromClang(t.ElementType())}
	case clang.Type_VariableArray, clang.Type_DependentSizedArray:
		return &ir.ArrayType{
			Element: p.typeFromClang(t.ElementType()),
			Size:    arraySizeSpelling(t.Spelling()),
		}
	default:
		name := t.Spelling()
		var quals []string
		if t.IsConstQualifiedType() {
			quals = append(quals, "const")
			name = strings.TrimPrefix(name, "const ")
		}
		if t.IsVolatileQualifiedType() {
			quals = append(quals, "volatile")
			name = strings.TrimPrefix(name, "volatile ")
		}
		if mapped, ok := p.anonNames[name]; ok {
			name = mapped
		}
		return &ir.BaseType{Name: name, Qualifiers: quals}
	}
}

func (p *Clang) location(cursor clang.Cursor) ir.Location {
	file, line, _, _ := cursor.Location().FileLocation()
	if file == (clang.File{}) {
		return ir.Location{}
	}
	return ir.Location{File: file.Name(), Line: int(line)}
}
