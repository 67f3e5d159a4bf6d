package runtime

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"mpl/internal/abi"
	"mpl/internal/wasm"
)

const (
	fnOutput uint32 = iota
	fnFromInt32
	fnFromFloat64
	fnConcat
)

// guest encodes a module with the same host contract the code generator
// emits. data is placed at offset 0.
type guest struct {
	data   string
	noHeap bool
	start  bool
	body   func(f *wasm.Function)
}

func (g guest) encode() []byte {
	var (
		types   wasm.TypeSection
		imports wasm.ImportSection
		funcs   wasm.FunctionSection
		globals wasm.GlobalSection
		exports wasm.ExportSection
		code    wasm.CodeSection
		data    wasm.DataSection
	)
	i32, f64 := wasm.I32, wasm.F64
	void := types.Func(nil, nil)
	imports.Func(abi.ModuleEnvironment, abi.FuncOutput, types.Func([]wasm.ValType{i32, i32}, nil))
	imports.Func(abi.ModuleText, abi.FuncFromInt32, types.Func([]wasm.ValType{i32}, []wasm.ValType{i32, i32}))
	imports.Func(abi.ModuleText, abi.FuncFromFloat64, types.Func([]wasm.ValType{f64}, []wasm.ValType{i32, i32}))
	imports.Func(abi.ModuleText, abi.FuncConcat, types.Func([]wasm.ValType{i32, i32, i32, i32}, []wasm.ValType{i32, i32}))
	imports.Memory(abi.ModuleEnvironment, abi.Memory, wasm.MemoryType{Min: 1})
	funcs.Func(void)

	heap := (int32(len(g.data)) + 15) / 16 * 16
	if !g.noHeap {
		idx := globals.GlobalI32(true, heap)
		exports.Export(abi.ExportHeapPtr, wasm.ExternGlobal, idx)
	}
	exports.Export(abi.ExportMain, wasm.ExternFunc, imports.Funcs())

	f := wasm.NewFunction(nil)
	if g.body != nil {
		g.body(f)
	}
	code.Func(f.End())
	if g.data != "" {
		data.Active(0, 0, []byte(g.data))
	}
	m := wasm.NewModule().
		Section(&types).
		Section(&imports).
		Section(&funcs).
		Section(&globals).
		Section(&exports)
	if g.start {
		m.Section(wasm.StartSection{Func: imports.Funcs()})
	}
	return m.Section(&code).Section(&data).Finish()
}

func engines(t *testing.T) []Engine {
	t.Helper()
	out := Engines()
	if len(out) == 0 || out[0] != defaultEngine {
		t.Fatalf("engines %v do not start with the default %s", out, defaultEngine)
	}
	return out
}

func run(t *testing.T, engine Engine, bin []byte) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := NewRunner(WithEngine(engine), WithOutput(&out)).Run(context.Background(), bin)
	return out.String(), err
}

func TestRunConcatenatesConversions(t *testing.T) {
	bin := guest{
		data: "hi ",
		body: func(f *wasm.Function) {
			f.I32Const(0).I32Const(3).
				I32Const(42).Call(fnFromInt32).
				Call(fnConcat).
				F64Const(-2.5).Call(fnFromFloat64).
				Call(fnConcat).
				Call(fnOutput)
		},
	}.encode()
	for _, engine := range engines(t) {
		out, err := run(t, engine, bin)
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		if out != "hi 42-2.5" {
			t.Fatalf("%s: output = %q", engine, out)
		}
	}
}

func TestRunGrowsMemory(t *testing.T) {
	// 40000 + 40000 bytes does not fit in the initial page.
	bin := guest{
		body: func(f *wasm.Function) {
			f.I32Const(0).I32Const(40000).I32Const(0).I32Const(40000).
				Call(fnConcat).
				Call(fnOutput)
		},
	}.encode()
	for _, engine := range engines(t) {
		out, err := run(t, engine, bin)
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		if len(out) != 80000 {
			t.Fatalf("%s: wrote %d bytes", engine, len(out))
		}
	}
}

func TestRunTrapOnInvalidTruncation(t *testing.T) {
	bin := guest{
		body: func(f *wasm.Function) {
			f.F64Const(1e20).I32TruncF64S().Drop()
		},
	}.encode()
	for _, engine := range engines(t) {
		_, err := run(t, engine, bin)
		var trap *TrapError
		if !errors.As(err, &trap) {
			t.Fatalf("%s: expected *TrapError, got %T %v", engine, err, err)
		}
	}
}

func TestRunHostFailureBecomesTrap(t *testing.T) {
	bin := guest{
		body: func(f *wasm.Function) {
			f.I32Const(-16).I32Const(4).Call(fnOutput)
		},
	}.encode()
	for _, engine := range engines(t) {
		_, err := run(t, engine, bin)
		var trap *TrapError
		if !errors.As(err, &trap) {
			t.Fatalf("%s: expected *TrapError, got %T %v", engine, err, err)
		}
		if !strings.Contains(trap.Message, "out of bounds") {
			t.Fatalf("%s: message = %q", engine, trap.Message)
		}
	}
}

func TestHeapUsedBeforeBindFails(t *testing.T) {
	bin := guest{
		start: true,
		body: func(f *wasm.Function) {
			f.I32Const(1).Call(fnFromInt32).Drop().Drop()
		},
	}.encode()
	for _, engine := range engines(t) {
		_, err := run(t, engine, bin)
		var host *HostError
		if !errors.As(err, &host) || host.Op != "instantiate" {
			t.Fatalf("%s: expected instantiate *HostError, got %T %v", engine, err, err)
		}
		if !strings.Contains(err.Error(), ErrUnbound.Error()) {
			t.Fatalf("%s: error does not mention the unbound cell: %v", engine, err)
		}
	}
}

func TestRunMissingHeapExport(t *testing.T) {
	bin := guest{noHeap: true}.encode()
	for _, engine := range engines(t) {
		_, err := run(t, engine, bin)
		var host *HostError
		if !errors.As(err, &host) || host.Op != "bind" {
			t.Fatalf("%s: expected bind *HostError, got %T %v", engine, err, err)
		}
	}
}

func TestRunRejectsGarbage(t *testing.T) {
	_, err := run(t, EngineWazero, []byte("#!/bin/sh"))
	var host *HostError
	if !errors.As(err, &host) || host.Op != "decode" {
		t.Fatalf("expected decode *HostError, got %T %v", err, err)
	}
}

func TestUnknownEngine(t *testing.T) {
	_, err := run(t, Engine("v8"), guest{}.encode())
	var host *HostError
	if !errors.As(err, &host) || host.Op != "engine" {
		t.Fatalf("expected engine *HostError, got %T %v", err, err)
	}
	if _, err := ParseEngine("v8"); err == nil {
		t.Fatal("ParseEngine should reject unknown names")
	}
}

func TestDefaultEngineFromEnv(t *testing.T) {
	t.Setenv(EngineEnv, string(EngineWazero))
	if got := DefaultEngine(); got != EngineWazero {
		t.Fatalf("DefaultEngine = %s", got)
	}
	t.Setenv(EngineEnv, "bogus")
	if got := DefaultEngine(); got != defaultEngine {
		t.Fatalf("DefaultEngine with bad env = %s", got)
	}
}
