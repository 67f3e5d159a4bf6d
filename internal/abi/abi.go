// Package abi names the contract between generated modules and the host
// that runs them.
package abi

const (
	ModuleEnvironment = "environment"
	ModuleText        = "text"

	FuncOutput      = "output"
	FuncFromInt32   = "from-int32"
	FuncFromFloat64 = "from-float64"
	FuncConcat      = "concat"
	Memory          = "memory"

	ExportMain    = "main"
	ExportHeapPtr = "heap_ptr"

	// MemoryMinPages is the initial size of guest memory. It has no maximum.
	MemoryMinPages = 1
)
