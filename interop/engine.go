// Package interop loads external WebAssembly modules and calls their
// exports from Ark code. Module metadata comes from the lightweight
// export parser in the wasm package; execution is delegated to wazero.
//
// Bytecode fuel does not extend into guest execution: a call into a
// WASM export runs unmetered until it returns.
package interop

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/host"
)

var logger = zap.NewNop()

// SetLogger installs a logger for the package. Passing nil restores
// the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Engine owns a wazero runtime with the ark_host module linked.
type Engine struct {
	rt wazero.Runtime
}

// NewEngine creates a runtime and registers the host module.
func NewEngine(ctx context.Context) (*Engine, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := host.Register(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return &Engine{rt: rt}, nil
}

// Instantiate compiles and instantiates a module. The module name is
// left anonymous so several instances can coexist.
func (e *Engine) Instantiate(ctx context.Context, bin []byte) (api.Module, error) {
	compiled, err := e.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInterop, errors.KindInvalidData, err, "compile module")
	}
	mod, err := e.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInterop, errors.KindExecution, err, "instantiate module")
	}
	return mod, nil
}

// Validate compiles a module without instantiating it.
func (e *Engine) Validate(ctx context.Context, bin []byte) error {
	compiled, err := e.rt.CompileModule(ctx, bin)
	if err != nil {
		return errors.Wrap(errors.PhaseInterop, errors.KindInvalidData, err, "compile module")
	}
	return compiled.Close(ctx)
}

// Close tears the runtime down, along with every module it holds.
func (e *Engine) Close(ctx context.Context) error {
	return e.rt.Close(ctx)
}
