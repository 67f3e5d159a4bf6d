package types

import "mpl/internal/ast"

// Infer returns the type a numeric expression evaluates to on its own.
// A float anywhere in a binary subtree makes the whole subtree float.
func Infer(e ast.NumExpr) ast.Type {
	switch e := e.(type) {
	case *ast.IntLit:
		return ast.Int
	case *ast.FloatLit:
		return ast.Float
	case *ast.VarRef:
		return e.Type
	case *ast.NegExpr:
		return Infer(e.Expr)
	case *ast.BinaryExpr:
		return Widen(Infer(e.Left), Infer(e.Right))
	default:
		return ast.Int
	}
}

// Widen is the result type of a binary operation over a and b.
func Widen(a, b ast.Type) ast.Type {
	if a == ast.Float || b == ast.Float {
		return ast.Float
	}
	return ast.Int
}

// HasFloatLeaf reports whether any literal or variable leaf of e is float.
func HasFloatLeaf(e ast.NumExpr) bool {
	switch e := e.(type) {
	case *ast.FloatLit:
		return true
	case *ast.VarRef:
		return e.Type == ast.Float
	case *ast.NegExpr:
		return HasFloatLeaf(e.Expr)
	case *ast.BinaryExpr:
		return HasFloatLeaf(e.Left) || HasFloatLeaf(e.Right)
	default:
		return false
	}
}
