//go:build cgo

package runtime

import (
	"context"
	"errors"

	"github.com/bytecodealliance/wasmtime-go/v41"
	"go.uber.org/zap"

	"mpl/internal/abi"
)

const (
	defaultEngine     = EngineWasmtime
	wasmtimeAvailable = true
)

type wasmtimeMemory struct {
	mem   *wasmtime.Memory
	store wasmtime.Storelike
}

func (m wasmtimeMemory) Bytes() []byte { return m.mem.UnsafeData(m.store) }

func (m wasmtimeMemory) Grow(pages uint32) error {
	_, err := m.mem.Grow(m.store, uint64(pages))
	return err
}

type wasmtimeCursor struct {
	global *wasmtime.Global
	store  wasmtime.Storelike
}

func (c wasmtimeCursor) Get() int32 { return c.global.Get(c.store).I32() }

func (c wasmtimeCursor) Set(v int32) error {
	return c.global.Set(c.store, wasmtime.ValI32(v))
}

// hostTrap turns a host failure into a trap the guest call returns. A
// panicking closure would be re-raised by Func.Call instead.
func hostTrap(err error) *wasmtime.Trap {
	if err == nil {
		return nil
	}
	return wasmtime.NewTrap(err.Error())
}

func runWasmtime(_ context.Context, h *Host, bin []byte, log *zap.Logger) error {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	linker := wasmtime.NewLinker(engine)

	bridgeMod, err := wasmtime.NewModule(engine, bridgeModule(false))
	if err != nil {
		return &HostError{Op: "memory", Err: err}
	}
	bridge, err := wasmtime.NewInstance(store, bridgeMod, nil)
	if err != nil {
		return &HostError{Op: "memory", Err: err}
	}
	memory := bridge.GetExport(store, abi.Memory).Memory()
	if err := linker.DefineInstance(store, abi.ModuleEnvironment, bridge); err != nil {
		return &HostError{Op: "link", Err: err}
	}

	var heap Cell[*wasmtime.Global]
	if err := defineWasmtime(linker, store, memory, &heap, h); err != nil {
		return &HostError{Op: "link", Err: err}
	}

	module, err := wasmtime.NewModule(engine, bin)
	if err != nil {
		return &HostError{Op: "compile", Err: err}
	}
	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return &HostError{Op: "instantiate", Err: err}
	}
	log.Debug("instantiated")

	ext := instance.GetExport(store, abi.ExportHeapPtr)
	if ext == nil || ext.Global() == nil {
		return missingExport(abi.ExportHeapPtr)
	}
	if err := heap.Bind(ext.Global()); err != nil {
		return &HostError{Op: "bind", Err: err}
	}
	log.Debug("heap bound", zap.Int32("heap_ptr", ext.Global().Get(store).I32()))

	main := instance.GetFunc(store, abi.ExportMain)
	if main == nil {
		return missingExport(abi.ExportMain)
	}
	if _, err := main.Call(store); err != nil {
		return &TrapError{Message: trapMessage(err), Err: err}
	}
	return nil
}

func defineWasmtime(linker *wasmtime.Linker, store *wasmtime.Store, memory *wasmtime.Memory, heap *Cell[*wasmtime.Global], h *Host) error {
	mem := func(caller *wasmtime.Caller) Memory {
		return wasmtimeMemory{mem: memory, store: caller}
	}
	cursor := func(caller *wasmtime.Caller) (Cursor, error) {
		global, err := heap.Get()
		if err != nil {
			return nil, err
		}
		return wasmtimeCursor{global: global, store: caller}, nil
	}
	// alloc runs an allocating host function once the cursor is reachable.
	alloc := func(caller *wasmtime.Caller, fn func(Memory, Cursor) (int32, int32, error)) (int32, int32, *wasmtime.Trap) {
		c, err := cursor(caller)
		if err != nil {
			return 0, 0, hostTrap(err)
		}
		ptr, length, err := fn(mem(caller), c)
		return ptr, length, hostTrap(err)
	}

	if err := linker.DefineFunc(store, abi.ModuleEnvironment, abi.FuncOutput, func(caller *wasmtime.Caller, ptr int32, length int32) *wasmtime.Trap {
		return hostTrap(h.Output(mem(caller), ptr, length))
	}); err != nil {
		return err
	}
	if err := linker.DefineFunc(store, abi.ModuleText, abi.FuncFromInt32, func(caller *wasmtime.Caller, v int32) (int32, int32, *wasmtime.Trap) {
		return alloc(caller, func(m Memory, c Cursor) (int32, int32, error) { return h.FromInt32(m, c, v) })
	}); err != nil {
		return err
	}
	if err := linker.DefineFunc(store, abi.ModuleText, abi.FuncFromFloat64, func(caller *wasmtime.Caller, v float64) (int32, int32, *wasmtime.Trap) {
		return alloc(caller, func(m Memory, c Cursor) (int32, int32, error) { return h.FromFloat64(m, c, v) })
	}); err != nil {
		return err
	}
	if err := linker.DefineFunc(store, abi.ModuleText, abi.FuncConcat, func(caller *wasmtime.Caller, p1, l1, p2, l2 int32) (int32, int32, *wasmtime.Trap) {
		return alloc(caller, func(m Memory, c Cursor) (int32, int32, error) { return h.Concat(m, c, p1, l1, p2, l2) })
	}); err != nil {
		return err
	}
	return nil
}

func trapMessage(err error) string {
	var trap *wasmtime.Trap
	if errors.As(err, &trap) {
		return trap.Message()
	}
	return err.Error()
}
