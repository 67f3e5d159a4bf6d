package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mpl/internal/logging"
	"mpl/internal/wasm"
)

type Engine string

const (
	EngineWasmtime Engine = "wasmtime"
	EngineWazero   Engine = "wazero"
)

// EngineEnv selects the default engine when set.
const EngineEnv = "MPL_ENGINE"

// ParseEngine maps an engine name to an Engine. The empty name selects the
// build's default.
func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case "":
		return defaultEngine, nil
	case EngineWasmtime, EngineWazero:
		return Engine(name), nil
	default:
		return "", fmt.Errorf("unknown engine %q (want %s or %s)", name, EngineWasmtime, EngineWazero)
	}
}

// DefaultEngine honors MPL_ENGINE and otherwise prefers wasmtime when it is
// compiled in.
func DefaultEngine() Engine {
	if e, err := ParseEngine(os.Getenv(EngineEnv)); err == nil {
		return e
	}
	return defaultEngine
}

// Engines lists the engines compiled into this build, default first.
func Engines() []Engine {
	if wasmtimeAvailable {
		return []Engine{EngineWasmtime, EngineWazero}
	}
	return []Engine{EngineWazero}
}

type Option func(*Runner)

func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func WithEngine(e Engine) Option {
	return func(r *Runner) { r.engine = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// Runner executes generated modules. Each Run gets a fresh store, memory and
// heap cursor.
type Runner struct {
	out    io.Writer
	engine Engine
	log    *zap.Logger
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{out: os.Stdout, engine: DefaultEngine(), log: logging.Named("runtime")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Engine() Engine { return r.engine }

// Run instantiates bin, binds heap_ptr and calls main. Guest failures are
// returned as *TrapError, everything else as *HostError.
func (r *Runner) Run(ctx context.Context, bin []byte) error {
	log := r.log.With(zap.String("run", uuid.NewString()), zap.String("engine", string(r.engine)))
	if _, err := wasm.ReadSections(bin); err != nil {
		return &HostError{Op: "decode", Err: err}
	}
	h := NewHost(r.out)
	var err error
	switch r.engine {
	case EngineWazero:
		err = runWazero(ctx, h, bin, log)
	case EngineWasmtime:
		err = runWasmtime(ctx, h, bin, log)
	default:
		return &HostError{Op: "engine", Err: fmt.Errorf("unknown engine %q", r.engine)}
	}
	var trap *TrapError
	switch {
	case err == nil:
		log.Debug("done")
	case errors.As(err, &trap):
		log.Debug("trapped", zap.String("message", trap.Message))
	default:
		log.Debug("host failure", zap.Error(err))
	}
	return err
}

func missingExport(name string) error {
	return &HostError{Op: "bind", Err: fmt.Errorf("module does not export %q", name)}
}
