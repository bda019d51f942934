package vm

import (
	"context"
	"testing"

	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/runtime"
)

// fakeBridge is an in-memory WasmBridge with a single module exporting
// add and mul.
type fakeBridge struct {
	next    int64
	live    map[int64]bool
	loads   []string
	dropped []int64
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{next: 1, live: make(map[int64]bool)}
}

func (f *fakeBridge) Load(_ context.Context, path string) (int64, error) {
	f.loads = append(f.loads, path)
	h := f.next
	f.next++
	f.live[h] = true
	return h, nil
}

func (f *fakeBridge) Exports(h int64) ([]string, error) {
	if !f.live[h] {
		return nil, errors.NotFound(errors.PhaseInterop, "module handle", "stale")
	}
	return []string{"add", "mul"}, nil
}

func (f *fakeBridge) Call(_ context.Context, h int64, name string, args []runtime.Value) (runtime.Value, error) {
	if !f.live[h] {
		return runtime.Unit, errors.NotFound(errors.PhaseInterop, "module handle", "stale")
	}
	a, _ := args[0].AsInt()
	b, _ := args[1].AsInt()
	switch name {
	case "add":
		return runtime.Int(a + b), nil
	case "mul":
		return runtime.Int(a * b), nil
	}
	return runtime.Unit, errors.NotFound(errors.PhaseInterop, "export", name)
}

func (f *fakeBridge) Drop(h int64) bool {
	if !f.live[h] {
		return false
	}
	delete(f.live, h)
	f.dropped = append(f.dropped, h)
	return true
}

func TestWasmIntrinsicsThroughBridge(t *testing.T) {
	bridge := newFakeBridge()
	m := machine(t, `
let h = wasm_load("calc.wasm")
let sum = wasm_call(h, "add", 19, 23)
wasm_drop(h)
return sum
`, WithWasm(bridge))

	v, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n, _ := v.AsInt(); n != 42 {
		t.Fatalf("result = %s, want 42", v)
	}
	if len(bridge.loads) != 1 || bridge.loads[0] != "calc.wasm" {
		t.Fatalf("loads = %v", bridge.loads)
	}
	if len(bridge.dropped) != 1 {
		t.Fatalf("dropped = %v", bridge.dropped)
	}
}

func TestWasmExportsIntrinsic(t *testing.T) {
	m := machine(t, `
let h = wasm_load("calc.wasm")
return wasm_exports(h)
`, WithWasm(newFakeBridge()))

	v, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	elems, ok := v.AsList()
	if !ok || len(elems) != 2 {
		t.Fatalf("exports = %s", v)
	}
	if s, _ := elems[0].AsStr(); s != "add" {
		t.Fatalf("exports[0] = %s", elems[0])
	}
}

func TestWasmDropReportsLiveness(t *testing.T) {
	m := machine(t, `
let h = wasm_load("calc.wasm")
let first = wasm_drop(h)
let second = wasm_drop(h)
return [first, second]
`, WithWasm(newFakeBridge()))

	v, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	elems, _ := v.AsList()
	if b, _ := elems[0].AsBool(); !b {
		t.Fatal("first drop reported dead handle")
	}
	if b, _ := elems[1].AsBool(); b {
		t.Fatal("second drop reported live handle")
	}
}

func TestWasmIntrinsicsWithoutBridgeFault(t *testing.T) {
	m := machine(t, `let h = wasm_load("calc.wasm")`)
	_, err := m.Run(context.Background())
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindUnsupported {
		t.Fatalf("error = %v", err)
	}
	if m.State() != StateFaulted {
		t.Fatalf("state = %s, want faulted", m.State())
	}
}

func TestWasmCallBadHandleFaults(t *testing.T) {
	m := machine(t, `wasm_call("not a handle", "add", 1, 2)`, WithWasm(newFakeBridge()))
	_, err := m.Run(context.Background())
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindTypeMismatch {
		t.Fatalf("error = %v", err)
	}
}
