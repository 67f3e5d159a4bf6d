package runtime

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"mpl/internal/abi"
)

type wazeroMemory struct {
	mem api.Memory
}

func (m wazeroMemory) Bytes() []byte {
	b, _ := m.mem.Read(0, m.mem.Size())
	return b
}

func (m wazeroMemory) Grow(pages uint32) error {
	if _, ok := m.mem.Grow(pages); !ok {
		return errors.New("memory cannot grow")
	}
	return nil
}

type wazeroCursor struct {
	global api.MutableGlobal
}

func (c wazeroCursor) Get() int32 { return api.DecodeI32(c.global.Get()) }

func (c wazeroCursor) Set(v int32) error {
	c.global.Set(api.EncodeI32(v))
	return nil
}

// wazero turns a panic inside a host function into an error from the
// guest call.
func check[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func check0(err error) {
	if err != nil {
		panic(err)
	}
}

func runWazero(ctx context.Context, h *Host, bin []byte, log *zap.Logger) error {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var memory Cell[api.Memory]
	var heap Cell[api.MutableGlobal]
	if err := defineWazero(ctx, rt, &memory, &heap, h); err != nil {
		return &HostError{Op: "link", Err: err}
	}

	bridge, err := rt.InstantiateWithConfig(ctx, bridgeModule(true),
		wazero.NewModuleConfig().WithName(abi.ModuleEnvironment))
	if err != nil {
		return &HostError{Op: "memory", Err: err}
	}
	if err := memory.Bind(bridge.ExportedMemory(abi.Memory)); err != nil {
		return &HostError{Op: "memory", Err: err}
	}

	mod, err := rt.InstantiateWithConfig(ctx, bin,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return &HostError{Op: "instantiate", Err: err}
	}
	log.Debug("instantiated")

	global, ok := mod.ExportedGlobal(abi.ExportHeapPtr).(api.MutableGlobal)
	if !ok {
		return missingExport(abi.ExportHeapPtr)
	}
	if err := heap.Bind(global); err != nil {
		return &HostError{Op: "bind", Err: err}
	}
	log.Debug("heap bound", zap.Int32("heap_ptr", api.DecodeI32(global.Get())))

	main := mod.ExportedFunction(abi.ExportMain)
	if main == nil {
		return missingExport(abi.ExportMain)
	}
	if _, err := main.Call(ctx); err != nil {
		return &TrapError{Message: err.Error(), Err: err}
	}
	return nil
}

func defineWazero(ctx context.Context, rt wazero.Runtime, memory *Cell[api.Memory], heap *Cell[api.MutableGlobal], h *Host) error {
	i32, f64 := api.ValueTypeI32, api.ValueTypeF64
	mem := func() Memory {
		return wazeroMemory{mem: check(memory.Get())}
	}
	cursor := func() Cursor {
		return wazeroCursor{global: check(heap.Get())}
	}
	ret := func(stack []uint64, ptr, length int32, err error) {
		check0(err)
		stack[0], stack[1] = api.EncodeI32(ptr), api.EncodeI32(length)
	}

	_, err := rt.NewHostModuleBuilder(abi.ModuleEnvironment+hostSuffix).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			check0(h.Output(mem(), api.DecodeI32(stack[0]), api.DecodeI32(stack[1])))
		}), []api.ValueType{i32, i32}, nil).
		Export(abi.FuncOutput).
		Instantiate(ctx)
	if err != nil {
		return err
	}

	_, err = rt.NewHostModuleBuilder(abi.ModuleText).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			ptr, length, err := h.FromInt32(mem(), cursor(), api.DecodeI32(stack[0]))
			ret(stack, ptr, length, err)
		}), []api.ValueType{i32}, []api.ValueType{i32, i32}).
		Export(abi.FuncFromInt32).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			ptr, length, err := h.FromFloat64(mem(), cursor(), api.DecodeF64(stack[0]))
			ret(stack, ptr, length, err)
		}), []api.ValueType{f64}, []api.ValueType{i32, i32}).
		Export(abi.FuncFromFloat64).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			ptr, length, err := h.Concat(mem(), cursor(),
				api.DecodeI32(stack[0]), api.DecodeI32(stack[1]), api.DecodeI32(stack[2]), api.DecodeI32(stack[3]))
			ret(stack, ptr, length, err)
		}), []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32, i32}).
		Export(abi.FuncConcat).
		Instantiate(ctx)
	return err
}
