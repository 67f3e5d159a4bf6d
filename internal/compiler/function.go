package compiler

import (
	"mpl/internal/ast"
	"mpl/internal/wasm"
)

type hostFuncs struct {
	output      uint32
	fromInt32   uint32
	fromFloat64 uint32
	concat      uint32
}

type funcEmitter struct {
	fn    *ast.Function
	code  *wasm.Function
	pool  *Pool
	host  hostFuncs
	funcs map[string]uint32
}

func localTypes(fn *ast.Function) []wasm.ValType {
	out := make([]wasm.ValType, len(fn.Variables))
	for i, v := range fn.Variables {
		out[i] = valType(v.Type)
	}
	return out
}

func valType(t ast.Type) wasm.ValType {
	if t == ast.Float {
		return wasm.F64
	}
	return wasm.I32
}

func (e *funcEmitter) emitBody() error {
	for _, stmt := range e.fn.Body {
		if err := e.emitStmt(stmt); err != nil {
			return err
		}
	}
	e.code.End()
	return nil
}

func (e *funcEmitter) emitStmt(stmt ast.Stmt) error {
	switch stmt := stmt.(type) {
	case *ast.PrintStmt:
		return e.emitPrint(stmt)
	case *ast.CallStmt:
		idx, ok := e.funcs[stmt.Name]
		if !ok {
			return errorf(stmt.Pos, "unknown function '%s'", stmt.Name)
		}
		e.code.Call(idx)
	case *ast.AssignStmt:
		slot, ok := e.fn.Lookup(stmt.Var.Name)
		if !ok {
			return errorf(stmt.Var.Pos, "unknown variable '%s'", stmt.Var.Name)
		}
		value, ok := stmt.Value.(ast.NumExpr)
		if !ok {
			return errorf(stmt.Value.GetPos(), "cannot assign text to %s variable '%s'",
				e.fn.Variables[slot].Type, stmt.Var.Name)
		}
		if err := e.emitAs(value, e.fn.Variables[slot].Type); err != nil {
			return err
		}
		e.code.LocalSet(uint32(slot))
	default:
		return errorf(stmt.GetPos(), "unsupported statement %T", stmt)
	}
	return nil
}

// emitPrint folds the arguments left to right through text.concat and hands
// the result to environment.output.
func (e *funcEmitter) emitPrint(stmt *ast.PrintStmt) error {
	if len(stmt.Args) == 0 {
		return nil
	}
	for i, arg := range stmt.Args {
		if err := e.emitStr(arg); err != nil {
			return err
		}
		if i > 0 {
			e.code.Call(e.host.concat)
		}
	}
	if stmt.Newline {
		e.emitBlob(e.pool.Place("\n", textAlign))
		e.code.Call(e.host.concat)
	}
	e.code.Call(e.host.output)
	return nil
}
