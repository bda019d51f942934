package codegen

import (
	"context"
	"math"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/host"
	"github.com/merchantmoh-debug/ArkLang/parser"
	"github.com/merchantmoh-debug/ArkLang/wasm"
)

func generate(t *testing.T, src string) []byte {
	t.Helper()
	block, err := parser.ParseBlock(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bytes, err := CompileToBytes(block)
	if err != nil {
		t.Fatalf("codegen: %v", err)
	}
	return bytes
}

func TestExportPolicyMarked(t *testing.T) {
	bytes := generate(t, `
#[export]
func public(a: Int) -> Int { return a }

func hidden(a: Int) -> Int { return a }
`)
	names, err := wasm.FunctionExports(bytes)
	if err != nil {
		t.Fatalf("parse exports: %v", err)
	}
	if len(names) != 1 || names[0] != "public" {
		t.Fatalf("exports = %v, want [public]", names)
	}
}

func TestExportPolicyUnmarked(t *testing.T) {
	bytes := generate(t, `
func one() -> Int { return 1 }
func _scratch() -> Int { return 2 }
func intrinsic_helper() -> Int { return 3 }
func two() -> Int { return 2 }
`)
	names, err := wasm.FunctionExports(bytes)
	if err != nil {
		t.Fatalf("parse exports: %v", err)
	}
	if len(names) != 2 || names[0] != "one" || names[1] != "two" {
		t.Fatalf("exports = %v, want [one two]", names)
	}
}

func TestExportedHelper(t *testing.T) {
	fns := ast.Functions(mustParse(t, `
#[export]
func a() -> Unit { return }
func b() -> Unit { return }
`).Stmts)
	exp := Exported(fns)
	if !exp["a"] || exp["b"] {
		t.Fatalf("exported = %v", exp)
	}
}

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	block, err := parser.ParseBlock(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return block
}

func runGuest(t *testing.T, src string) (context.Context, func(name string, args ...uint64) []uint64) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	if _, err := host.Register(ctx, rt); err != nil {
		t.Fatalf("register host: %v", err)
	}
	mod, err := rt.Instantiate(ctx, generate(t, src))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return ctx, func(name string, args ...uint64) []uint64 {
		t.Helper()
		fn := mod.ExportedFunction(name)
		if fn == nil {
			t.Fatalf("no export %q", name)
		}
		res, err := fn.Call(ctx, args...)
		if err != nil {
			t.Fatalf("call %s: %v", name, err)
		}
		return res
	}
}

func TestGeneratedAdd(t *testing.T) {
	_, call := runGuest(t, `
#[export]
func add(a: Int, b: Int) -> Int {
    return a + b
}
`)
	res := call("add", 10, 20)
	if int64(res[0]) != 30 {
		t.Fatalf("add(10, 20) = %d, want 30", int64(res[0]))
	}
}

func TestGeneratedControlFlow(t *testing.T) {
	_, call := runGuest(t, `
#[export]
func fib(n: Int) -> Int {
    if n < 2 {
        return n
    }
    return fib(n - 1) + fib(n - 2)
}

#[export]
func sum_to(n: Int) -> Int {
    let total = 0
    let i = 1
    while i < n + 1 {
        let total = total + i
        let i = i + 1
    }
    return total
}
`)
	if res := call("fib", 10); int64(res[0]) != 55 {
		t.Fatalf("fib(10) = %d, want 55", int64(res[0]))
	}
	if res := call("sum_to", 100); int64(res[0]) != 5050 {
		t.Fatalf("sum_to(100) = %d, want 5050", int64(res[0]))
	}
}

func TestGeneratedBoolsAndComparisons(t *testing.T) {
	_, call := runGuest(t, `
#[export]
func is_even(n: Int) -> Bool {
    return n % 2 == 0
}
`)
	if res := call("is_even", 4); int64(res[0]) != 1 {
		t.Fatalf("is_even(4) = %d, want 1", int64(res[0]))
	}
	if res := call("is_even", 5); int64(res[0]) != 0 {
		t.Fatalf("is_even(5) = %d, want 0", int64(res[0]))
	}
}

func TestGeneratedHostCall(t *testing.T) {
	_, call := runGuest(t, `
#[export]
func pm(base: Int, exp: Int, m: Int) -> Int {
    return math_pow_mod(base, exp, m)
}
`)
	if res := call("pm", 2, 10, 1000); int64(res[0]) != 24 {
		t.Fatalf("pm(2, 10, 1000) = %d, want 24", int64(res[0]))
	}
}

func TestGeneratedFloatBridge(t *testing.T) {
	_, call := runGuest(t, `
#[export]
func root(bits: Int) -> Int {
    return math_sqrt(bits)
}
`)
	res := call("root", math.Float64bits(9.0))
	if got := math.Float64frombits(res[0]); got != 3.0 {
		t.Fatalf("sqrt(9) = %v, want 3", got)
	}
}

func TestGeneratedMemoryExport(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := host.Register(ctx, rt); err != nil {
		t.Fatalf("register host: %v", err)
	}
	mod, err := rt.Instantiate(ctx, generate(t, `func f() -> Int { return 1 }`))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer mod.Close(ctx)

	if mod.Memory() == nil {
		t.Fatal("generated module has no memory export")
	}
}

func TestUnsupportedTypesRejected(t *testing.T) {
	block := mustParse(t, `
func f(s: Str) -> Int { return 1 }
`)
	_, err := CompileToBytes(block)
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindUnsupported {
		t.Fatalf("error = %v", err)
	}
	if arkErr.Phase != errors.PhaseCodegen {
		t.Fatalf("phase = %s", arkErr.Phase)
	}
}

func TestUnresolvedCalleeRejected(t *testing.T) {
	block := mustParse(t, `
func f() -> Int { return missing(1) }
`)
	_, err := CompileToBytes(block)
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) || arkErr.Kind != errors.KindUnresolved {
		t.Fatalf("error = %v", err)
	}
}
