package parser

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	cc "modernc.org/cc/v4"

	"pxdgen/ir"
)

// CC parses headers with the pure Go modernc.org/cc front end, so the
// tool also runs where libclang is not installed. C only; C++ headers
// need the clang backend. Enum values that the front end cannot reduce
// to an integer stay implicit, which extern declarations tolerate.
type CC struct {
	includeDirs []string
	trace       strings.Builder

	path      string
	decls     []ir.Decl
	recordIdx map[string]int
}

func NewCC(includeDirs []string) *CC {
	return &CC{includeDirs: includeDirs}
}

// Trace returns the parsing log accumulated by the last ParseHeader.
func (p *CC) Trace() string { return p.trace.String() }

func (p *CC) ParseHeader(filename string) (*ir.Header, error) {
	p.path = filename
	p.decls = nil
	p.recordIdx = make(map[string]int)
	p.trace.Reset()
	p.trace.WriteString(fmt.Sprintf("Parsing header: %s\n", filename))

	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("cc config: %w", err)
	}
	cfg.IncludePaths = append(cfg.IncludePaths, filepath.Dir(filename))
	cfg.IncludePaths = append(cfg.IncludePaths, p.includeDirs...)
	cfg.SysIncludePaths = append(cfg.SysIncludePaths, p.includeDirs...)

	ast, err := cc.Translate(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: filename},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse C header %s: %w", filename, err)
	}

	for tu := ast.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		ex := tu.ExternalDeclaration
		if ex == nil {
			continue
		}
		if ex.Position().Filename != filename {
			continue
		}
		if ex.Case != cc.ExternalDeclarationDecl || ex.Declaration == nil {
			continue
		}
		p.handleDeclaration(ex.Declaration)
	}
	p.handleMacros(ast, filename)

	return &ir.Header{Path: filename, Decls: p.decls, IncludedFiles: map[string]struct{}{}}, nil
}

func (p *CC) handleDeclaration(decl *cc.Declaration) {
	isTypedef, base := p.specifiers(decl.DeclarationSpecifiers)
	if decl.InitDeclaratorList == nil {
		// The specifier itself declared an aggregate or enum; nothing
		// else to bind.
		return
	}
	for l := decl.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
		d := l.InitDeclarator
		if d == nil || d.Declarator == nil {
			continue
		}
		name, typ, fn := p.applyDeclarator(base, d.Declarator)
		if name == "" {
			continue
		}
		loc := ir.Location{File: d.Declarator.Position().Filename, Line: d.Declarator.Position().Line}
		switch {
		case fn != nil:
			p.decls = append(p.decls, &ir.Function{
				Name:       name,
				Return:     typ,
				Params:     fn.params,
				IsVariadic: fn.variadic,
				Loc:        loc,
			})
		case isTypedef:
			p.decls = append(p.decls, &ir.Typedef{Name: name, Underlying: typ, Loc: loc})
		default:
			p.decls = append(p.decls, &ir.Variable{Name: name, Type: typ, Loc: loc})
		}
	}
}

// specifiers folds a declaration specifier chain into a base IR type,
// reporting whether the typedef storage class is present. Struct, union
// and enum specifiers with bodies are emitted as their own declarations
// as a side effect.
func (p *CC) specifiers(ds *cc.DeclarationSpecifiers) (isTypedef bool, t ir.Type) {
	var words, quals []string
	for s := ds; s != nil; s = s.DeclarationSpecifiers {
		switch s.Case {
		case cc.DeclarationSpecifiersStorage:
			if s.StorageClassSpecifier != nil && s.StorageClassSpecifier.Case == cc.StorageClassSpecifierTypedef {
				isTypedef = true
			}
		case cc.DeclarationSpecifiersTypeQual:
			if s.TypeQualifier != nil {
				quals = append(quals, s.TypeQualifier.Token.SrcStr())
			}
		case cc.DeclarationSpecifiersTypeSpec:
			if s.TypeSpecifier != nil {
				words = append(words, p.typeSpecifierName(s.TypeSpecifier))
			}
		}
	}
	name := strings.TrimSpace(strings.Join(words, " "))
	if name == "" {
		name = "int"
	}
	return isTypedef, &ir.BaseType{Name: name, Qualifiers: quals}
}

func (p *CC) typeSpecifierName(ts *cc.TypeSpecifier) string {
	switch ts.Case {
	case cc.TypeSpecifierStructOrUnion:
		return p.structOrUnion(ts.StructOrUnionSpecifier)
	case cc.TypeSpecifierEnum:
		return p.enumSpec(ts.EnumSpecifier)
	default:
		return ts.Token.SrcStr()
	}
}

func (p *CC) structOrUnion(sus *cc.StructOrUnionSpecifier) string {
	if sus == nil {
		return ""
	}
	isUnion := sus.StructOrUnion != nil && sus.StructOrUnion.Case == cc.StructOrUnionUnion
	kind := "struct"
	if isUnion {
		kind = "union"
	}
	tag := sus.Token.SrcStr()
	if tag == "" {
		tag = fmt.Sprintf("anon_%s_l%d", kind, sus.Position().Line)
	}

	if sus.StructDeclarationList == nil {
		// Tag reference. Record a forward declaration once so the
		// writer knows the name as an incomplete type.
		if _, ok := p.recordIdx[tag]; !ok {
			p.recordIdx[tag] = len(p.decls)
			p.decls = append(p.decls, &ir.Struct{Name: tag, IsUnion: isUnion})
		}
		return kind + " " + tag
	}

	s := &ir.Struct{
		Name:    tag,
		IsUnion: isUnion,
		Loc:     ir.Location{File: sus.Position().Filename, Line: sus.Position().Line},
	}
	for l := sus.StructDeclarationList; l != nil; l = l.StructDeclarationList {
		sd := l.StructDeclaration
		if sd == nil {
			continue
		}
		base := p.qualifierList(sd.SpecifierQualifierList)
		for dl := sd.StructDeclaratorList; dl != nil; dl = dl.StructDeclaratorList {
			std := dl.StructDeclarator
			if std == nil || std.Declarator == nil {
				continue
			}
			fname, ftyp, fn := p.applyDeclarator(base, std.Declarator)
			if fname == "" {
				continue
			}
			if fn != nil {
				// A bare function declarator inside a struct cannot
				// occur in C; keep it as a function pointer anyway.
				ftyp = &ir.FuncPtrType{Return: ftyp, Params: fn.params, IsVariadic: fn.variadic}
			}
			s.Fields = append(s.Fields, ir.Field{Name: fname, Type: ftyp})
		}
	}

	if prev, ok := p.recordIdx[tag]; ok {
		if existing, isRec := p.decls[prev].(*ir.Struct); isRec && !existing.Forward() {
			// Redefinition; nothing to add.
			return kind + " " + tag
		}
	}
	// The definition appends as its own entry. An earlier reference-time
	// forward declaration stays in the list, so the emitted text declares
	// the name before any body that points at it.
	p.recordIdx[tag] = len(p.decls)
	p.decls = append(p.decls, s)
	p.trace.WriteString(fmt.Sprintf("Registered %s: %s (%d fields)\n", kind, tag, len(s.Fields)))
	return kind + " " + tag
}

func (p *CC) qualifierList(sql *cc.SpecifierQualifierList) ir.Type {
	var words, quals []string
	for l := sql; l != nil; l = l.SpecifierQualifierList {
		switch l.Case {
		case cc.SpecifierQualifierListTypeSpec:
			if l.TypeSpecifier != nil {
				words = append(words, p.typeSpecifierName(l.TypeSpecifier))
			}
		case cc.SpecifierQualifierListTypeQual:
			if l.TypeQualifier != nil {
				quals = append(quals, l.TypeQualifier.Token.SrcStr())
			}
		}
	}
	name := strings.TrimSpace(strings.Join(words, " "))
	if name == "" {
		name = "int"
	}
	return &ir.BaseType{Name: name, Qualifiers: quals}
}

func (p *CC) enumSpec(es *cc.EnumSpecifier) string {
	if es == nil {
		return ""
	}
	tag := es.Token.SrcStr()
	if es.EnumeratorList != nil {
		e := &ir.Enum{
			Name: tag,
			Loc:  ir.Location{File: es.Position().Filename, Line: es.Position().Line},
		}
		for l := es.EnumeratorList; l != nil; l = l.EnumeratorList {
			en := l.Enumerator
			if en == nil {
				continue
			}
			v := ir.EnumValue{Name: en.Token.SrcStr()}
			if en.Case == cc.EnumeratorExpr && en.ConstantExpression != nil {
				if n, ok := intValue(en.ConstantExpression.Value()); ok {
					v.Value = &ir.IntLit{Value: n}
				}
			}
			e.Values = append(e.Values, v)
		}
		p.decls = append(p.decls, e)
		p.trace.WriteString(fmt.Sprintf("Registered enum: %s (%d values)\n", tag, len(e.Values)))
	}
	if tag == "" {
		return "int"
	}
	return "enum " + tag
}

type fnSig struct {
	params   []ir.Param
	variadic bool
}

// applyDeclarator wraps base in the pointer, array and function shapes
// the declarator spells, returning the declared name. A non-nil fnSig
// means the declarator declares a function with base as return type.
func (p *CC) applyDeclarator(base ir.Type, d *cc.Declarator) (string, ir.Type, *fnSig) {
	t := base
	for ptr := d.Pointer; ptr != nil; ptr = ptr.Pointer {
		t = &ir.PointerType{Pointee: t}
	}
	return p.applyDirect(t, d.DirectDeclarator)
}

func (p *CC) applyDirect(t ir.Type, dd *cc.DirectDeclarator) (string, ir.Type, *fnSig) {
	if dd == nil {
		return "", t, nil
	}
	switch dd.Case {
	case cc.DirectDeclaratorIdent:
		return dd.Token.SrcStr(), t, nil
	case cc.DirectDeclaratorDecl:
		if dd.Declarator == nil {
			return "", t, nil
		}
		return p.applyDeclarator(t, dd.Declarator)
	case cc.DirectDeclaratorArr:
		size := ""
		if ae := dd.AssignmentExpression; ae != nil {
			if n, ok := intValue(ae.Value()); ok {
				size = strconv.FormatInt(n, 10)
			} else {
				// Not reducible to an integer; keep the source text as a
				// symbolic size.
				size = strings.TrimSpace(cc.NodeSource(ae))
			}
		}
		return p.applyDirect(&ir.ArrayType{Element: t, Size: size}, dd.DirectDeclarator)
	case cc.DirectDeclaratorFuncParam:
		params, variadic := p.parameters(dd.ParameterTypeList)
		inner := dd.DirectDeclarator
		if inner != nil && inner.Case == cc.DirectDeclaratorDecl && inner.Declarator != nil && inner.Declarator.Pointer != nil {
			// (*name)(...) is a function pointer, not a function.
			name := declaratorName(inner.Declarator)
			return name, &ir.FuncPtrType{Return: t, Params: params, IsVariadic: variadic}, nil
		}
		name, _, _ := p.applyDirect(t, inner)
		return name, t, &fnSig{params: params, variadic: variadic}
	case cc.DirectDeclaratorFuncIdent:
		name, _, _ := p.applyDirect(t, dd.DirectDeclarator)
		return name, t, &fnSig{}
	default:
		return "", t, nil
	}
}

func declaratorName(d *cc.Declarator) string {
	for dd := d.DirectDeclarator; dd != nil; {
		switch dd.Case {
		case cc.DirectDeclaratorIdent:
			return dd.Token.SrcStr()
		case cc.DirectDeclaratorDecl:
			if dd.Declarator == nil {
				return ""
			}
			dd = dd.Declarator.DirectDeclarator
		default:
			dd = dd.DirectDeclarator
		}
	}
	return ""
}

func (p *CC) parameters(ptl *cc.ParameterTypeList) ([]ir.Param, bool) {
	if ptl == nil {
		return nil, false
	}
	variadic := ptl.Case == cc.ParameterTypeListVar
	var params []ir.Param
	for pl := ptl.ParameterList; pl != nil; pl = pl.ParameterList {
		pd := pl.ParameterDeclaration
		if pd == nil {
			continue
		}
		_, base := p.specifiers(pd.DeclarationSpecifiers)
		name := ""
		typ := base
		if pd.Declarator != nil {
			name, typ, _ = p.applyDeclarator(base, pd.Declarator)
		} else if pd.AbstractDeclarator != nil {
			for ptr := pd.AbstractDeclarator.Pointer; ptr != nil; ptr = ptr.Pointer {
				typ = &ir.PointerType{Pointee: typ}
			}
		}
		// A lone void parameter list means "no parameters".
		if bt, ok := typ.(*ir.BaseType); ok && bt.Name == "void" && name == "" &&
			len(params) == 0 && pl.ParameterList == nil {
			break
		}
		params = append(params, ir.Param{Name: name, Type: typ})
	}
	return params, variadic
}

// handleMacros recovers object-like macro constants defined in the
// parsed file itself, in name order for determinism.
func (p *CC) handleMacros(ast *cc.AST, filename string) {
	names := make([]string, 0, len(ast.Macros))
	for name := range ast.Macros {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := ast.Macros[name]
		if m == nil || m.IsFnLike {
			continue
		}
		if m.Name.Position().Filename != filename {
			continue
		}
		var b strings.Builder
		for _, tok := range m.ReplacementList() {
			b.WriteString(tok.SrcStr())
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		p.decls = append(p.decls, &ir.Constant{
			Name:    name,
			Value:   ir.ParseLiteral(text), // nil when outside the literal subset
			IsMacro: true,
			Loc:     ir.Location{File: filename, Line: m.Name.Position().Line},
		})
	}
}

func intValue(v cc.Value) (int64, bool) {
	switch n := v.(type) {
	case cc.Int64Value:
		return int64(n), true
	case cc.UInt64Value:
		return int64(n), true
	default:
		return 0, false
	}
}
