package interop

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/runtime"
	"github.com/merchantmoh-debug/ArkLang/wasm"
)

// Handle identifies a loaded module. It packs a table index and a
// generation tag, so a handle kept across a Drop can never reach a
// recycled slot.
type Handle int64

func makeHandle(index int, gen uint32) Handle {
	return Handle(int64(gen)<<32 | int64(index))
}

func (h Handle) split() (index int, gen uint32) {
	return int(int64(h) & 0xFFFFFFFF), uint32(int64(h) >> 32)
}

// Module is a loaded module's metadata.
type Module struct {
	Path    string
	Exports []string
	Bytes   []byte
}

func (m *Module) hasExport(name string) bool {
	for _, e := range m.Exports {
		if e == name {
			return true
		}
	}
	return false
}

type entry struct {
	mod      *Module
	instance api.Module
	gen      uint32
	refs     int
	dropped  bool
}

// Registry is a session-scoped table of loaded modules. Each
// execution context owns its own registry; handles never cross
// registries. The lock guards the table only, never a guest call: a
// call runs on the instance reference it resolved, and a concurrent
// Drop defers teardown until the call finishes.
type Registry struct {
	engine *Engine

	mu      sync.Mutex
	entries []*entry
	free    []int
}

// NewRegistry creates an empty registry backed by an engine.
func NewRegistry(engine *Engine) *Registry {
	return &Registry{engine: engine}
}

// Load reads a module from disk and registers it.
func (r *Registry) Load(ctx context.Context, path string) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseInterop, errors.KindNotFound, err, "read module")
	}
	return r.LoadBytes(ctx, path, data)
}

// LoadBytes registers a module from raw bytes. The exports are parsed
// and the module is instantiated before a handle is issued, so a
// handle always refers to a runnable instance.
func (r *Registry) LoadBytes(ctx context.Context, path string, data []byte) (Handle, error) {
	exports, err := wasm.FunctionExports(data)
	if err != nil {
		return 0, err
	}

	instance, err := r.engine.Instantiate(ctx, data)
	if err != nil {
		return 0, err
	}

	mod := &Module{Path: path, Exports: exports, Bytes: data}

	r.mu.Lock()
	var index int
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
		e := r.entries[index]
		e.mod = mod
		e.instance = instance
		e.dropped = false
		e.refs = 0
	} else {
		index = len(r.entries)
		r.entries = append(r.entries, &entry{mod: mod})
		r.entries[index].instance = instance
	}
	gen := r.entries[index].gen
	r.mu.Unlock()

	h := makeHandle(index, gen)
	logger.Debug("module loaded",
		zap.String("path", path),
		zap.Int64("handle", int64(h)),
		zap.Strings("exports", exports))
	return h, nil
}

// resolve returns the live entry for a handle.
func (r *Registry) resolve(h Handle) (*entry, error) {
	index, gen := h.split()
	if index < 0 || index >= len(r.entries) {
		return nil, errors.NotFound(errors.PhaseInterop, "module handle", h.String())
	}
	e := r.entries[index]
	if e.dropped || e.mod == nil || e.gen != gen {
		return nil, errors.NotFound(errors.PhaseInterop, "module handle", h.String())
	}
	return e, nil
}

// Exports lists the exported function names of a loaded module.
func (r *Registry) Exports(h Handle) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.resolve(h)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.mod.Exports))
	copy(out, e.mod.Exports)
	return out, nil
}

// Call invokes an exported function. The export name is checked
// against the parsed export list before the engine is engaged, and
// the registry lock is released before guest code runs.
func (r *Registry) Call(ctx context.Context, h Handle, name string, args []runtime.Value) (runtime.Value, error) {
	r.mu.Lock()
	e, err := r.resolve(h)
	if err != nil {
		r.mu.Unlock()
		return runtime.Unit, err
	}
	if !e.mod.hasExport(name) {
		r.mu.Unlock()
		return runtime.Unit, errors.NotFound(errors.PhaseInterop, "export", name)
	}
	e.refs++
	instance := e.instance
	r.mu.Unlock()

	defer r.release(e)

	fn := instance.ExportedFunction(name)
	if fn == nil {
		return runtime.Unit, errors.NotFound(errors.PhaseInterop, "export", name)
	}

	params := make([]uint64, len(args))
	for i, a := range args {
		v, err := lowerValue(a)
		if err != nil {
			return runtime.Unit, err
		}
		params[i] = v
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return runtime.Unit, errors.Execution(name, err)
	}
	if len(results) == 0 {
		return runtime.Unit, nil
	}
	return runtime.Int(int64(results[0])), nil
}

// release drops a call reference, finishing a deferred Drop when the
// last in-flight call returns.
func (r *Registry) release(e *entry) {
	r.mu.Lock()
	e.refs--
	teardown := e.dropped && e.refs == 0 && e.instance != nil
	var instance api.Module
	if teardown {
		instance = e.instance
		e.instance = nil
	}
	r.mu.Unlock()

	if teardown {
		_ = instance.Close(context.Background())
	}
}

// Drop unregisters a module. It reports whether the handle was live.
// In-flight calls on the module finish on their instance reference;
// the instance is closed when the last of them returns.
func (r *Registry) Drop(h Handle) bool {
	r.mu.Lock()
	e, err := r.resolve(h)
	if err != nil {
		r.mu.Unlock()
		return false
	}

	index, _ := h.split()
	e.dropped = true
	e.mod = nil
	e.gen++
	r.free = append(r.free, index)

	var instance api.Module
	if e.refs == 0 && e.instance != nil {
		instance = e.instance
		e.instance = nil
	}
	r.mu.Unlock()

	if instance != nil {
		_ = instance.Close(context.Background())
	}
	logger.Debug("module dropped", zap.Int64("handle", int64(h)))
	return true
}

// Close drops every module. The registry is unusable afterwards.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.free = nil
	r.mu.Unlock()

	for _, e := range entries {
		if e.instance != nil {
			_ = e.instance.Close(ctx)
		}
	}
}

func (h Handle) String() string {
	index, gen := h.split()
	return fmt.Sprintf("handle(%d, gen %d)", index, gen)
}

// lowerValue converts an Ark value to the i64 ABI.
func lowerValue(v runtime.Value) (uint64, error) {
	if n, ok := v.AsInt(); ok {
		return uint64(n), nil
	}
	if b, ok := v.AsBool(); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.TypeMismatch(errors.PhaseInterop, "Int or Bool", v.Kind().String())
}
