package runtime

import (
	"mpl/internal/abi"
	"mpl/internal/wasm"
)

// hostSuffix names the host-implemented half of a module that also needs
// wasm-defined items, such as environment's memory.
const hostSuffix = "$host"

// bridgeModule encodes the "environment" module the guest links against. It
// defines the guest memory and, with forwardOutput, re-exports output from
// the host module environment$host so both imports resolve to one module.
func bridgeModule(forwardOutput bool) []byte {
	var (
		types   wasm.TypeSection
		imports wasm.ImportSection
		mems    wasm.MemorySection
		exports wasm.ExportSection
	)
	m := wasm.NewModule()
	if forwardOutput {
		t := types.Func([]wasm.ValType{wasm.I32, wasm.I32}, nil)
		imports.Func(abi.ModuleEnvironment+hostSuffix, abi.FuncOutput, t)
		m.Section(&types).Section(&imports)
	}
	mems.Memory(wasm.MemoryType{Min: abi.MemoryMinPages})
	exports.Export(abi.Memory, wasm.ExternMemory, 0)
	if forwardOutput {
		exports.Export(abi.FuncOutput, wasm.ExternFunc, 0)
	}
	var names wasm.NameSection
	names.Module(abi.ModuleEnvironment)
	return m.Section(&mems).Section(&exports).Section(&names).Finish()
}
