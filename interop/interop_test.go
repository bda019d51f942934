package interop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/merchantmoh-debug/ArkLang/codegen"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/parser"
	"github.com/merchantmoh-debug/ArkLang/runtime"
	"github.com/merchantmoh-debug/ArkLang/vm"
)

// the registry bridge must keep satisfying the vm intrinsic surface
var _ vm.WasmBridge = (*Bridge)(nil)

func buildModule(t *testing.T, src string) []byte {
	t.Helper()
	block, err := parser.ParseBlock(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bin, err := codegen.CompileToBytes(block)
	if err != nil {
		t.Fatalf("codegen: %v", err)
	}
	return bin
}

const addSrc = `
#[export]
func add(a: Int, b: Int) -> Int {
    return a + b
}
`

func newRegistry(t *testing.T) (context.Context, *Registry) {
	t.Helper()
	ctx := context.Background()
	engine, err := NewEngine(ctx)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { engine.Close(ctx) })
	reg := NewRegistry(engine)
	t.Cleanup(func() { reg.Close(ctx) })
	return ctx, reg
}

func TestLoadCallDrop(t *testing.T) {
	ctx, reg := newRegistry(t)

	h, err := reg.LoadBytes(ctx, "add.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	exports, err := reg.Exports(h)
	if err != nil {
		t.Fatalf("exports: %v", err)
	}
	if len(exports) != 1 || exports[0] != "add" {
		t.Fatalf("exports = %v", exports)
	}

	v, err := reg.Call(ctx, h, "add", []runtime.Value{runtime.Int(10), runtime.Int(20)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if n, _ := v.AsInt(); n != 30 {
		t.Fatalf("add(10, 20) = %s, want 30", v)
	}

	if !reg.Drop(h) {
		t.Fatal("drop reported dead handle")
	}
	if reg.Drop(h) {
		t.Fatal("second drop succeeded")
	}
}

func TestLoadFromDisk(t *testing.T) {
	ctx, reg := newRegistry(t)

	path := filepath.Join(t.TempDir(), "add.wasm")
	if err := os.WriteFile(path, buildModule(t, addSrc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := reg.Load(ctx, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := reg.Call(ctx, h, "add", []runtime.Value{runtime.Int(1), runtime.Int(2)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if n, _ := v.AsInt(); n != 3 {
		t.Fatalf("add(1, 2) = %s", v)
	}
}

func TestLoadMissingFile(t *testing.T) {
	ctx, reg := newRegistry(t)
	_, err := reg.Load(ctx, filepath.Join(t.TempDir(), "nope.wasm"))
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindNotFound {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	ctx, reg := newRegistry(t)
	if _, err := reg.LoadBytes(ctx, "bad.wasm", []byte("not wasm at all")); err == nil {
		t.Fatal("garbage module accepted")
	}
}

func TestCallAbsentExport(t *testing.T) {
	ctx, reg := newRegistry(t)

	h, err := reg.LoadBytes(ctx, "add.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = reg.Call(ctx, h, "multiply", nil)
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindNotFound {
		t.Fatalf("error = %v", err)
	}
}

func TestCallAfterDrop(t *testing.T) {
	ctx, reg := newRegistry(t)

	h, err := reg.LoadBytes(ctx, "add.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg.Drop(h)
	if _, err := reg.Call(ctx, h, "add", []runtime.Value{runtime.Int(1), runtime.Int(2)}); err == nil {
		t.Fatal("call on dropped handle succeeded")
	}
	if _, err := reg.Exports(h); err == nil {
		t.Fatal("exports on dropped handle succeeded")
	}
}

func TestStaleHandleAfterSlotReuse(t *testing.T) {
	ctx, reg := newRegistry(t)

	first, err := reg.LoadBytes(ctx, "a.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg.Drop(first)

	// the freed slot is reused under a new generation
	second, err := reg.LoadBytes(ctx, "b.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first == second {
		t.Fatal("recycled slot reissued the same handle")
	}

	if _, err := reg.Call(ctx, first, "add", []runtime.Value{runtime.Int(1), runtime.Int(2)}); err == nil {
		t.Fatal("stale handle reached the recycled slot")
	}
	v, err := reg.Call(ctx, second, "add", []runtime.Value{runtime.Int(2), runtime.Int(3)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if n, _ := v.AsInt(); n != 5 {
		t.Fatalf("add(2, 3) = %s", v)
	}
}

func TestBoolArgsLowered(t *testing.T) {
	ctx, reg := newRegistry(t)

	h, err := reg.LoadBytes(ctx, "pick.wasm", buildModule(t, `
#[export]
func pick(flag: Bool, a: Int, b: Int) -> Int {
    if flag {
        return a
    }
    return b
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := reg.Call(ctx, h, "pick", []runtime.Value{runtime.Bool(true), runtime.Int(7), runtime.Int(9)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if n, _ := v.AsInt(); n != 7 {
		t.Fatalf("pick(true, 7, 9) = %s", v)
	}
}

func TestLinearArgRejected(t *testing.T) {
	ctx, reg := newRegistry(t)

	h, err := reg.LoadBytes(ctx, "add.wasm", buildModule(t, addSrc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = reg.Call(ctx, h, "add", []runtime.Value{runtime.List(nil), runtime.Int(1)})
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindTypeMismatch {
		t.Fatalf("error = %v", err)
	}
}

func TestEngineValidate(t *testing.T) {
	ctx, reg := newRegistry(t)
	if err := reg.engine.Validate(ctx, buildModule(t, addSrc)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := reg.engine.Validate(ctx, []byte("garbage")); err == nil {
		t.Fatal("garbage validated")
	}
}
