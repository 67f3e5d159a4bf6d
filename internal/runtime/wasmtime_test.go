//go:build cgo

package runtime

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v41"
)

func TestWasmtimeRunsWatFixture(t *testing.T) {
	bin, err := wasmtime.Wat2Wasm(`
	(module
	  (import "environment" "output" (func $output (param i32 i32)))
	  (import "text" "from-int32" (func $from_int32 (param i32) (result i32 i32)))
	  (import "text" "from-float64" (func $from_float64 (param f64) (result i32 i32)))
	  (import "text" "concat" (func $concat (param i32 i32 i32 i32) (result i32 i32)))
	  (import "environment" "memory" (memory 1))
	  (global $heap (export "heap_ptr") (mut i32) (i32.const 16))
	  (data (i32.const 0) "n=")
	  (func (export "main")
	    (call $output
	      (call $concat (i32.const 0) (i32.const 2) (call $from_int32 (i32.const 7))))
	    (call $output
	      (call $from_float64 (f64.const 0.5)))))
	`)
	if err != nil {
		t.Fatalf("wat2wasm failed: %v", err)
	}

	var out bytes.Buffer
	runner := NewRunner(WithEngine(EngineWasmtime), WithOutput(&out))
	if err := runner.Run(context.Background(), bin); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "n=70.5" {
		t.Fatalf("unexpected stdout: got %q, want %q", out.String(), "n=70.5")
	}
}

func TestWasmtimeTrapMessage(t *testing.T) {
	bin, err := wasmtime.Wat2Wasm(`
	(module
	  (import "environment" "memory" (memory 1))
	  (global (export "heap_ptr") (mut i32) (i32.const 0))
	  (func (export "main")
	    (drop (i32.trunc_f64_s (f64.const nan)))))
	`)
	if err != nil {
		t.Fatalf("wat2wasm failed: %v", err)
	}
	err = NewRunner(WithEngine(EngineWasmtime)).Run(context.Background(), bin)
	var trap *TrapError
	if !errors.As(err, &trap) {
		t.Fatalf("expected *TrapError, got %T %v", err, err)
	}
	if trap.Message == "" {
		t.Fatal("trap message is empty")
	}
}

func TestWasmtimeHostFailureReturnsTrap(t *testing.T) {
	bin, err := wasmtime.Wat2Wasm(`
	(module
	  (import "environment" "output" (func $output (param i32 i32)))
	  (import "environment" "memory" (memory 1))
	  (global (export "heap_ptr") (mut i32) (i32.const 0))
	  (func (export "main")
	    (call $output (i32.const 1073741824) (i32.const 8))))
	`)
	if err != nil {
		t.Fatalf("wat2wasm failed: %v", err)
	}
	var out bytes.Buffer
	err = NewRunner(WithEngine(EngineWasmtime), WithOutput(&out)).Run(context.Background(), bin)
	var trap *TrapError
	if !errors.As(err, &trap) {
		t.Fatalf("expected *TrapError, got %T %v", err, err)
	}
	if !strings.Contains(trap.Message, "out of bounds") {
		t.Fatalf("message = %q", trap.Message)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected stdout %q", out.String())
	}
}

func TestWasmtimeStartFunctionBeforeBind(t *testing.T) {
	bin, err := wasmtime.Wat2Wasm(`
	(module
	  (import "text" "from-int32" (func $from_int32 (param i32) (result i32 i32)))
	  (import "environment" "memory" (memory 1))
	  (global (export "heap_ptr") (mut i32) (i32.const 0))
	  (func $init
	    i32.const 1
	    call $from_int32
	    drop
	    drop)
	  (start $init)
	  (func (export "main")))
	`)
	if err != nil {
		t.Fatalf("wat2wasm failed: %v", err)
	}
	err = NewRunner(WithEngine(EngineWasmtime)).Run(context.Background(), bin)
	var host *HostError
	if !errors.As(err, &host) || host.Op != "instantiate" {
		t.Fatalf("expected instantiate *HostError, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), ErrUnbound.Error()) {
		t.Fatalf("error does not mention the unbound cell: %v", err)
	}
}
