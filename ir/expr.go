package ir

import (
	"strconv"
	"strings"
)

// Expr is a constant expression attached to enum values and macro
// constants: literal, reference, unary and binary forms only. Anything a
// front end cannot shape into this set stays out of the IR entirely.
type Expr interface {
	isExpr()
}

// IntLit is an integer literal. Text preserves the original spelling
// (e.g. "0x10"); when empty the value renders in decimal.
type IntLit struct {
	Value int64
	Text  string
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
	Text  string
}

// StrLit is a string literal.
type StrLit struct {
	Value string
}

// Ref names another constant or enumerator.
type Ref struct {
	Name string
}

// Unary applies a prefix operator.
type Unary struct {
	Op      string
	Operand Expr
}

// Binary applies an infix operator.
type Binary struct {
	Op          string
	Left, Right Expr
}

func (*IntLit) isExpr()   {}
func (*FloatLit) isExpr() {}
func (*StrLit) isExpr()   {}
func (*Ref) isExpr()      {}
func (*Unary) isExpr()    {}
func (*Binary) isExpr()   {}

// ExprString renders e in C syntax. Nested binary operands are
// parenthesized so the symbolic form never changes meaning.
func ExprString(e Expr) string {
	switch v := e.(type) {
	case *IntLit:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatInt(v.Value, 10)
	case *FloatLit:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *StrLit:
		return strconv.Quote(v.Value)
	case *Ref:
		return v.Name
	case *Unary:
		return v.Op + exprOperand(v.Operand)
	case *Binary:
		return exprOperand(v.Left) + " " + v.Op + " " + exprOperand(v.Right)
	default:
		return ""
	}
}

func exprOperand(e Expr) string {
	if _, ok := e.(*Binary); ok {
		return "(" + ExprString(e) + ")"
	}
	return ExprString(e)
}

// EvalInt folds e to an integer when every leaf is an integer literal.
// A tree with any non-literal leaf is never partially folded: either the
// whole expression reduces, or the caller keeps the symbolic form.
func EvalInt(e Expr) (int64, bool) {
	switch v := e.(type) {
	case *IntLit:
		return v.Value, true
	case *Unary:
		n, ok := EvalInt(v.Operand)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case "-":
			return -n, true
		case "+":
			return n, true
		case "~":
			return ^n, true
		}
		return 0, false
	case *Binary:
		l, ok := EvalInt(v.Left)
		if !ok {
			return 0, false
		}
		r, ok := EvalInt(v.Right)
		if !ok {
			return 0, false
		}
		switch v.Op {
		case "+":
			return l + r, true
		case "-":
			return l - r, true
		case "*":
			return l * r, true
		case "/":
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case "%":
			if r == 0 {
				return 0, false
			}
			return l % r, true
		case "<<":
			return l << uint(r), true
		case ">>":
			return l >> uint(r), true
		case "&":
			return l & r, true
		case "|":
			return l | r, true
		case "^":
			return l ^ r, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ExprRefs appends the names referenced anywhere in e.
func ExprRefs(e Expr, out []string) []string {
	switch v := e.(type) {
	case *Ref:
		out = append(out, v.Name)
	case *Unary:
		out = ExprRefs(v.Operand, out)
	case *Binary:
		out = ExprRefs(v.Left, out)
		out = ExprRefs(v.Right, out)
	}
	return out
}

// ParseLiteral shapes a macro replacement text into an Expr when it is a
// plain integer, float, string or identifier. Anything else yields nil;
// callers keep the constant with an unknown value.
func ParseLiteral(text string) Expr {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "\"") && strings.HasSuffix(text, "\"") && len(text) >= 2 {
		if s, err := strconv.Unquote(text); err == nil {
			return &StrLit{Value: s}
		}
		return nil
	}
	trimmed := strings.TrimRight(text, "uUlL")
	if n, err := strconv.ParseInt(trimmed, 0, 64); err == nil {
		return &IntLit{Value: n, Text: trimmed}
	}
	ftrimmed := strings.TrimRight(text, "fFlL")
	if strings.ContainsAny(ftrimmed, ".eE") {
		if f, err := strconv.ParseFloat(ftrimmed, 64); err == nil {
			return &FloatLit{Value: f, Text: ftrimmed}
		}
	}
	if isIdent(text) {
		return &Ref{Name: text}
	}
	return nil
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return len(s) > 0
}
