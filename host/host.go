// Package host links the ark_host import module into a wazero
// runtime. Guest modules compiled from Ark source import these
// functions for math, hashing, JSON and AI access.
//
// Ark integers are i64. Floating point operations reinterpret the i64
// as an IEEE 754 bit pattern, apply the operation, and reinterpret
// back, so the guest never needs f64 value types.
package host

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/merchantmoh-debug/ArkLang/errors"
)

// ModuleName is the import module guests link against.
const ModuleName = "ark_host"

// Status codes returned by crypto_sha512.
const (
	statusOK       int32 = 0
	statusNoMemory int32 = 1
	statusFault    int32 = 2
)

// Register instantiates the ark_host module in the runtime. It must
// run before any guest that imports it.
func Register(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(ModuleName)

	unary := func(name string, op func(float64) float64) {
		b.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
				x := math.Float64frombits(stack[0])
				stack[0] = math.Float64bits(op(x))
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(name)
	}

	unary("math_sin", math.Sin)
	unary("math_cos", math.Cos)
	unary("math_tan", math.Tan)
	unary("math_asin", math.Asin)
	unary("math_acos", math.Acos)
	unary("math_atan", math.Atan)
	unary("math_sqrt", math.Sqrt)

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			y := math.Float64frombits(stack[0])
			x := math.Float64frombits(stack[1])
			stack[0] = math.Float64bits(math.Atan2(y, x))
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("math_atan2")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			base := math.Float64frombits(stack[0])
			exp := math.Float64frombits(stack[1])
			stack[0] = math.Float64bits(math.Pow(base, exp))
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("math_pow")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(PowMod(int64(stack[0]), int64(stack[1]), int64(stack[2])))
		}), []api.ValueType{api.ValueTypeI64, api.ValueTypeI64, api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("math_pow_mod")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(sha512Func),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("crypto_sha512")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(jsonParseFunc),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("json_parse")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(jsonStringifyFunc),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("json_stringify")

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(askAIFunc),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("ask_ai")

	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindExecution, err, "instantiate ark_host")
	}
	return mod, nil
}

// PowMod computes base^exp mod modulus by square and multiply on the
// unsigned 64-bit domain. A non-positive modulus yields 0.
func PowMod(base, exp, modulus int64) int64 {
	if modulus <= 0 {
		return 0
	}
	m := uint64(modulus)
	result := uint64(1)
	b := uint64(base % modulus)
	e := uint64(exp)
	for e > 0 {
		if e&1 == 1 {
			result = (result * b) % m
		}
		e >>= 1
		b = (b * b) % m
	}
	return int64(result)
}

// sha512Func implements crypto_sha512(data_ptr, data_len, out_ptr),
// returning 0 on success. Both the input range and the 64-byte output
// range are bounds checked before anything is written.
func sha512Func(_ context.Context, mod api.Module, stack []uint64) {
	dataPtr := uint32(stack[0])
	dataLen := uint32(stack[1])
	outPtr := uint32(stack[2])

	mem := mod.Memory()
	if mem == nil {
		stack[0] = api.EncodeI32(statusNoMemory)
		return
	}

	data, ok := mem.Read(dataPtr, dataLen)
	if !ok {
		stack[0] = api.EncodeI32(statusFault)
		return
	}
	// check the output range before hashing so a bad out_ptr never
	// results in a partial write
	if _, ok := mem.Read(outPtr, sha512.Size); !ok {
		stack[0] = api.EncodeI32(statusFault)
		return
	}

	sum := sha512.Sum512(data)
	if !mem.Write(outPtr, sum[:]) {
		stack[0] = api.EncodeI32(statusFault)
		return
	}
	stack[0] = api.EncodeI32(statusOK)
}

// jsonParseFunc implements json_parse(str_ptr, str_len, out_ptr),
// returning the number of bytes written or -1. The payload is
// validated as JSON and passed through unchanged.
func jsonParseFunc(_ context.Context, mod api.Module, stack []uint64) {
	strPtr := uint32(stack[0])
	strLen := uint32(stack[1])
	outPtr := uint32(stack[2])

	mem := mod.Memory()
	if mem == nil {
		stack[0] = api.EncodeI32(-1)
		return
	}
	data, ok := mem.Read(strPtr, strLen)
	if !ok {
		stack[0] = api.EncodeI32(-1)
		return
	}
	if !json.Valid(data) {
		stack[0] = api.EncodeI32(-1)
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if !mem.Write(outPtr, buf) {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(strLen))
}

// jsonStringifyFunc implements json_stringify(val_ptr, val_len,
// out_ptr) as a passthrough copy.
func jsonStringifyFunc(_ context.Context, mod api.Module, stack []uint64) {
	valPtr := uint32(stack[0])
	valLen := uint32(stack[1])
	outPtr := uint32(stack[2])

	mem := mod.Memory()
	if mem == nil {
		stack[0] = api.EncodeI32(-1)
		return
	}
	data, ok := mem.Read(valPtr, valLen)
	if !ok {
		stack[0] = api.EncodeI32(-1)
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if !mem.Write(outPtr, buf) {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(valLen))
}

// AIResponse is what ask_ai writes until a real model hookup exists.
const AIResponse = "AI response placeholder"

// askAIFunc implements ask_ai(prompt_ptr, prompt_len, out_ptr,
// out_cap), returning the number of bytes written or -1. The response
// is truncated to the caller's capacity.
func askAIFunc(_ context.Context, mod api.Module, stack []uint64) {
	outPtr := uint32(stack[2])
	outCap := int32(stack[3])

	response := []byte(AIResponse)
	n := len(response)
	if int(outCap) < n {
		n = int(outCap)
	}
	if n < 0 {
		n = 0
	}

	mem := mod.Memory()
	if mem == nil {
		stack[0] = api.EncodeI32(-1)
		return
	}
	if !mem.Write(outPtr, response[:n]) {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(n))
}
