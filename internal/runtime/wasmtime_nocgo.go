//go:build !cgo

package runtime

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	defaultEngine     = EngineWazero
	wasmtimeAvailable = false
)

func runWasmtime(context.Context, *Host, []byte, *zap.Logger) error {
	return &HostError{Op: "engine", Err: errors.New("wasmtime requires a cgo build; use -engine wazero")}
}
