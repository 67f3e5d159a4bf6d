package compiler

import (
	"mpl/internal/ast"
	"mpl/internal/types"
	"mpl/internal/wasm"
)

// Literal text and the newline constant are always placed 16-byte aligned.
const textAlign = 16

// emitAs leaves exactly one value of type target on the stack.
func (e *funcEmitter) emitAs(expr ast.NumExpr, target ast.Type) error {
	switch expr := expr.(type) {
	case *ast.IntLit:
		e.code.I32Const(expr.Value)
		convert(e.code, ast.Int, target)
	case *ast.FloatLit:
		e.code.F64Const(expr.Value)
		convert(e.code, ast.Float, target)
	case *ast.VarRef:
		slot, ok := e.fn.Lookup(expr.Name)
		if !ok {
			return errorf(expr.Pos, "unknown variable '%s'", expr.Name)
		}
		e.code.LocalGet(uint32(slot))
		convert(e.code, e.fn.Variables[slot].Type, target)
	case *ast.NegExpr:
		if target == ast.Float {
			if err := e.emitAs(expr.Expr, ast.Float); err != nil {
				return err
			}
			e.code.F64Neg()
			return nil
		}
		e.code.I32Const(0)
		if err := e.emitAs(expr.Expr, ast.Int); err != nil {
			return err
		}
		e.code.I32Sub()
	case *ast.BinaryExpr:
		natural := types.Infer(expr)
		if err := e.emitAs(expr.Left, natural); err != nil {
			return err
		}
		if err := e.emitAs(expr.Right, natural); err != nil {
			return err
		}
		emitBinOp(e.code, expr.Op, natural)
		convert(e.code, natural, target)
	default:
		return errorf(expr.GetPos(), "unsupported numeric expression %T", expr)
	}
	return nil
}

func emitBinOp(code *wasm.Function, op ast.BinOp, t ast.Type) {
	if t == ast.Float {
		switch op {
		case ast.Add:
			code.F64Add()
		case ast.Sub:
			code.F64Sub()
		case ast.Mul:
			code.F64Mul()
		case ast.Div:
			code.F64Div()
		}
		return
	}
	switch op {
	case ast.Add:
		code.I32Add()
	case ast.Sub:
		code.I32Sub()
	case ast.Mul:
		code.I32Mul()
	case ast.Div:
		code.I32DivS()
	}
}

// convert bridges a value of type from on the stack to type to. Narrowing
// truncates toward zero and traps at run time on NaN or overflow.
func convert(code *wasm.Function, from, to ast.Type) {
	switch {
	case from == to:
	case from == ast.Int && to == ast.Float:
		code.F64ConvertI32S()
	case from == ast.Float && to == ast.Int:
		code.I32TruncF64S()
	}
}

// emitStr leaves a (ptr, len) pair on the stack.
func (e *funcEmitter) emitStr(expr ast.StrExpr) error {
	switch expr := expr.(type) {
	case *ast.StrLit:
		e.emitBlob(e.pool.Place(expr.Value, textAlign))
	case *ast.Newline:
		e.emitBlob(e.pool.Place("\n", textAlign))
	case *ast.NumToStr:
		t := types.Infer(expr.Expr)
		if err := e.emitAs(expr.Expr, t); err != nil {
			return err
		}
		if t == ast.Float {
			e.code.Call(e.host.fromFloat64)
		} else {
			e.code.Call(e.host.fromInt32)
		}
	default:
		return errorf(expr.GetPos(), "unsupported text expression %T", expr)
	}
	return nil
}

func (e *funcEmitter) emitBlob(b Blob) {
	e.code.I32Const(int32(b.Ptr)).I32Const(int32(b.Len))
}
