package compiler

import (
	"go.uber.org/zap"

	"mpl/internal/abi"
	"mpl/internal/ast"
	"mpl/internal/logging"
	"mpl/internal/wasm"
)

// Version identifies the code generator in compile cache keys. Bump it
// whenever the emitted bytes for an unchanged program would differ.
const Version = "mpl-gen/1"

type Generator struct {
	log *zap.Logger
}

func NewGenerator() *Generator {
	return &Generator{log: logging.Named("generator")}
}

// Generate lowers prog into an encoded module named name. The result is a
// pure function of its inputs; on error no bytes are returned.
func Generate(name string, prog *ast.Program) ([]byte, error) {
	return NewGenerator().Generate(name, prog)
}

type assembly struct {
	types   wasm.TypeSection
	imports wasm.ImportSection
	funcs   wasm.FunctionSection
	globals wasm.GlobalSection
	exports wasm.ExportSection
	code    wasm.CodeSection
	names   wasm.NameSection

	fnNames    wasm.NameMap
	localNames wasm.IndirectNameMap

	pool     *Pool
	host     hostFuncs
	fnIndex  map[string]uint32
	nextFunc uint32
	typeVoid uint32
}

func (g *Generator) Generate(name string, prog *ast.Program) ([]byte, error) {
	if prog == nil || prog.Main == nil || prog.Main.Main == nil {
		return nil, &Error{Pos: ast.Position{File: name}, Msg: "program has no main block"}
	}
	a := &assembly{pool: NewPool(), fnIndex: map[string]uint32{}}
	a.names.Module(name)
	a.declareHost()

	ordered := make([]*ast.Function, 0, len(prog.Functions)+len(prog.Main.Functions)+1)
	ordered = append(ordered, prog.Functions...)
	ordered = append(ordered, prog.Main.Functions...)
	ordered = append(ordered, prog.Main.Main)
	for _, fn := range ordered {
		if err := a.declare(fn); err != nil {
			return nil, err
		}
		g.log.Debug("declared function", zap.String("name", fn.Name), zap.Uint32("index", a.fnIndex[fn.Name]))
	}
	a.names.Functions(&a.fnNames)

	for _, fn := range ordered {
		if err := a.emit(fn); err != nil {
			return nil, err
		}
	}

	heap := alignUp(a.pool.End(), 16)
	heapIdx := a.globals.GlobalI32(true, int32(heap))
	a.exports.Export(abi.ExportMain, wasm.ExternFunc, a.fnIndex[prog.Main.Main.Name])
	a.exports.Export(abi.ExportHeapPtr, wasm.ExternGlobal, heapIdx)
	a.names.Locals(&a.localNames)

	out := wasm.NewModule().
		Section(&a.types).
		Section(&a.imports).
		Section(&a.funcs).
		Section(&a.globals).
		Section(&a.exports).
		Section(&a.code).
		Section(a.pool.Section()).
		Section(&a.names).
		Finish()
	g.log.Debug("generated module",
		zap.String("module", name),
		zap.Uint32("functions", a.funcs.Len()),
		zap.Uint32("segments", a.pool.Section().Len()),
		zap.Uint32("data_end", a.pool.End()),
		zap.Uint32("heap_start", heap),
		zap.Int("bytes", len(out)))
	return out, nil
}

// declareHost registers the fixed host contract. Host functions take the
// lowest function indices and stay out of the user namespace.
func (a *assembly) declareHost() {
	a.typeVoid = a.types.Func(nil, nil)
	i32, f64 := wasm.I32, wasm.F64
	a.host.output = a.importFunc(abi.ModuleEnvironment, abi.FuncOutput, []wasm.ValType{i32, i32}, nil)
	a.host.fromInt32 = a.importFunc(abi.ModuleText, abi.FuncFromInt32, []wasm.ValType{i32}, []wasm.ValType{i32, i32})
	a.host.fromFloat64 = a.importFunc(abi.ModuleText, abi.FuncFromFloat64, []wasm.ValType{f64}, []wasm.ValType{i32, i32})
	a.host.concat = a.importFunc(abi.ModuleText, abi.FuncConcat, []wasm.ValType{i32, i32, i32, i32}, []wasm.ValType{i32, i32})
	a.imports.Memory(abi.ModuleEnvironment, abi.Memory, wasm.MemoryType{Min: abi.MemoryMinPages})
}

func (a *assembly) importFunc(module, name string, params, results []wasm.ValType) uint32 {
	typeIdx := a.types.Func(params, results)
	a.imports.Func(module, name, typeIdx)
	idx := a.nextFunc
	a.fnNames.Append(idx, name)
	a.nextFunc++
	return idx
}

func (a *assembly) declare(fn *ast.Function) error {
	if _, ok := a.fnIndex[fn.Name]; ok {
		return errorf(fn.Pos, "function '%s' is declared more than once", fn.Name)
	}
	a.fnIndex[fn.Name] = a.nextFunc
	a.fnNames.Append(a.nextFunc, fn.Name)
	a.funcs.Func(a.typeVoid)
	a.nextFunc++
	return nil
}

func (a *assembly) emit(fn *ast.Function) error {
	e := &funcEmitter{
		fn:    fn,
		code:  wasm.NewFunction(localTypes(fn)),
		pool:  a.pool,
		host:  a.host,
		funcs: a.fnIndex,
	}
	if err := e.emitBody(); err != nil {
		return err
	}
	a.code.Func(e.code)

	locals := &wasm.NameMap{}
	for i, v := range fn.Variables {
		locals.Append(uint32(i), v.Name)
	}
	a.localNames.Append(a.fnIndex[fn.Name], locals)
	return nil
}
