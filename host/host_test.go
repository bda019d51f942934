package host

import (
	"bytes"
	"context"
	"crypto/sha512"
	"math"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/merchantmoh-debug/ArkLang/wasm"
)

// buildGuest assembles a module importing a slice of ark_host
// functions and re-exporting forwarding wrappers, plus one page of
// exported memory.
func buildGuest(imports ...guestImport) []byte {
	m := wasm.NewModule()

	var indices []uint32
	for _, imp := range imports {
		sig := m.AddType(wasm.FuncType{Params: imp.params, Results: imp.results})
		indices = append(indices, m.AddImport(ModuleName, imp.name, sig))
	}

	for i, imp := range imports {
		sig := m.AddType(wasm.FuncType{Params: imp.params, Results: imp.results})
		body := wasm.NewBody()
		for p := range imp.params {
			body.OpU32(wasm.OpLocalGet, uint32(p))
		}
		body.OpU32(wasm.OpCall, indices[i])
		idx := m.AddFunction(sig, body.Encode())
		m.AddExport(imp.name, wasm.KindFunc, idx)
	}

	m.AddMemory(1)
	m.AddExport("memory", wasm.KindMemory, 0)
	return m.Encode()
}

type guestImport struct {
	name    string
	params  []wasm.ValType
	results []wasm.ValType
}

func i64x(n int) []wasm.ValType {
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i] = wasm.ValI64
	}
	return out
}

func i32x(n int) []wasm.ValType {
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i] = wasm.ValI32
	}
	return out
}

func TestPowMod(t *testing.T) {
	tests := []struct {
		base, exp, mod, want int64
	}{
		{2, 10, 1000, 24},
		{3, 0, 7, 1},
		{5, 3, 13, 8},
		{2, 10, 0, 0},
		{2, 10, -5, 0},
		{10, 1, 1, 0},
	}
	for _, tt := range tests {
		if got := PowMod(tt.base, tt.exp, tt.mod); got != tt.want {
			t.Errorf("PowMod(%d, %d, %d) = %d, want %d", tt.base, tt.exp, tt.mod, got, tt.want)
		}
	}
}

func TestMathBitPatternRoundTrip(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(
		guestImport{name: "math_sqrt", params: i64x(1), results: i64x(1)},
		guestImport{name: "math_atan2", params: i64x(2), results: i64x(1)},
		guestImport{name: "math_pow", params: i64x(2), results: i64x(1)},
	)
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	res, err := mod.ExportedFunction("math_sqrt").Call(ctx, math.Float64bits(2.0))
	if err != nil {
		t.Fatalf("sqrt: %v", err)
	}
	if got := math.Float64frombits(res[0]); got != math.Sqrt(2.0) {
		t.Fatalf("sqrt(2) = %v", got)
	}

	res, err = mod.ExportedFunction("math_atan2").Call(ctx, math.Float64bits(1.0), math.Float64bits(1.0))
	if err != nil {
		t.Fatalf("atan2: %v", err)
	}
	if got := math.Float64frombits(res[0]); got != math.Atan2(1, 1) {
		t.Fatalf("atan2(1, 1) = %v", got)
	}

	res, err = mod.ExportedFunction("math_pow").Call(ctx, math.Float64bits(2.0), math.Float64bits(10.0))
	if err != nil {
		t.Fatalf("pow: %v", err)
	}
	if got := math.Float64frombits(res[0]); got != 1024.0 {
		t.Fatalf("pow(2, 10) = %v", got)
	}
}

func TestPowModThroughGuest(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(guestImport{name: "math_pow_mod", params: i64x(3), results: i64x(1)})
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	res, err := mod.ExportedFunction("math_pow_mod").Call(ctx, 2, 10, 1000)
	if err != nil {
		t.Fatalf("pow_mod: %v", err)
	}
	if int64(res[0]) != 24 {
		t.Fatalf("pow_mod(2, 10, 1000) = %d, want 24", int64(res[0]))
	}
}

func TestSha512(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(guestImport{name: "crypto_sha512", params: i32x(3), results: i32x(1)})
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	input := []byte("the quick brown fox")
	if !mod.Memory().Write(0, input) {
		t.Fatal("write input")
	}

	const outPtr = 1024
	res, err := mod.ExportedFunction("crypto_sha512").Call(ctx, 0, uint64(len(input)), outPtr)
	if err != nil {
		t.Fatalf("sha512: %v", err)
	}
	if int32(res[0]) != 0 {
		t.Fatalf("status = %d, want 0", int32(res[0]))
	}

	got, ok := mod.Memory().Read(outPtr, sha512.Size)
	if !ok {
		t.Fatal("read digest")
	}
	want := sha512.Sum512(input)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("digest mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestSha512OutOfBounds(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(guestImport{name: "crypto_sha512", params: i32x(3), results: i32x(1)})
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	memSize := mod.Memory().Size()

	// output range would cross the end of memory
	outPtr := memSize - 10
	before, _ := mod.Memory().Read(outPtr, 10)
	snapshot := make([]byte, len(before))
	copy(snapshot, before)

	res, err := mod.ExportedFunction("crypto_sha512").Call(ctx, 0, 4, uint64(outPtr))
	if err != nil {
		t.Fatalf("sha512: %v", err)
	}
	if int32(res[0]) == 0 {
		t.Fatal("out of bounds output accepted")
	}

	after, _ := mod.Memory().Read(outPtr, 10)
	if !bytes.Equal(snapshot, after) {
		t.Fatal("failed call wrote into memory")
	}

	// input range out of bounds
	res, err = mod.ExportedFunction("crypto_sha512").Call(ctx, uint64(memSize), 100, 0)
	if err != nil {
		t.Fatalf("sha512: %v", err)
	}
	if int32(res[0]) == 0 {
		t.Fatal("out of bounds input accepted")
	}
}

func TestJSONPassthrough(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(
		guestImport{name: "json_parse", params: i32x(3), results: i32x(1)},
		guestImport{name: "json_stringify", params: i32x(3), results: i32x(1)},
	)
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	payload := []byte(`{"name":"ark","n":3}`)
	mod.Memory().Write(0, payload)

	res, err := mod.ExportedFunction("json_parse").Call(ctx, 0, uint64(len(payload)), 512)
	if err != nil {
		t.Fatalf("json_parse: %v", err)
	}
	if int32(res[0]) != int32(len(payload)) {
		t.Fatalf("bytes written = %d", int32(res[0]))
	}
	out, _ := mod.Memory().Read(512, uint32(len(payload)))
	if !bytes.Equal(out, payload) {
		t.Fatalf("passthrough changed payload: %s", out)
	}

	// malformed JSON is rejected
	bad := []byte(`{"name":`)
	mod.Memory().Write(0, bad)
	res, err = mod.ExportedFunction("json_parse").Call(ctx, 0, uint64(len(bad)), 512)
	if err != nil {
		t.Fatalf("json_parse: %v", err)
	}
	if int32(res[0]) != -1 {
		t.Fatalf("malformed JSON returned %d, want -1", int32(res[0]))
	}

	// stringify copies without validating
	mod.Memory().Write(0, bad)
	res, err = mod.ExportedFunction("json_stringify").Call(ctx, 0, uint64(len(bad)), 512)
	if err != nil {
		t.Fatalf("json_stringify: %v", err)
	}
	if int32(res[0]) != int32(len(bad)) {
		t.Fatalf("stringify wrote %d", int32(res[0]))
	}
}

func TestAskAI(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Register(ctx, rt); err != nil {
		t.Fatalf("register: %v", err)
	}

	guest := buildGuest(guestImport{name: "ask_ai", params: i32x(4), results: i32x(1)})
	mod, err := rt.Instantiate(ctx, guest)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	res, err := mod.ExportedFunction("ask_ai").Call(ctx, 0, 0, 256, 1024)
	if err != nil {
		t.Fatalf("ask_ai: %v", err)
	}
	n := int32(res[0])
	if n != int32(len(AIResponse)) {
		t.Fatalf("bytes written = %d", n)
	}
	out, _ := mod.Memory().Read(256, uint32(n))
	if string(out) != AIResponse {
		t.Fatalf("response = %q", out)
	}

	// a small capacity truncates the response
	res, err = mod.ExportedFunction("ask_ai").Call(ctx, 0, 0, 256, 5)
	if err != nil {
		t.Fatalf("ask_ai: %v", err)
	}
	if int32(res[0]) != 5 {
		t.Fatalf("truncated length = %d", int32(res[0]))
	}
}
