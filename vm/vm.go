// Package vm executes compiled chunks on a fuel-metered stack machine.
// A machine only accepts a chunk whose hash matches the source program
// it claims to come from, and every instruction burns one unit of
// fuel, so runaway programs fault instead of spinning.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/merchantmoh-debug/ArkLang/compiler"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/runtime"
)

// State tracks the machine lifecycle.
type State int

const (
	StateReady State = iota
	StateRunning
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

// ctxCheckInterval controls how often the run loop polls the context.
const ctxCheckInterval = 256

// Option configures a machine.
type Option func(*Machine)

// WithStdout redirects print output.
func WithStdout(w io.Writer) Option {
	return func(m *Machine) { m.stdout = w }
}

// WithExec enables the exec intrinsic. It is disabled by default so a
// chunk cannot reach the host shell unless the embedder opts in.
func WithExec() Option {
	return func(m *Machine) { m.allowExec = true }
}

// WithWasm installs a bridge for the wasm_* intrinsics. Without a
// bridge those intrinsics fault with an unsupported error.
func WithWasm(b WasmBridge) Option {
	return func(m *Machine) { m.wasm = b }
}

// WasmBridge loads and invokes guest modules on behalf of a running
// chunk. interop.Registry satisfies it.
type WasmBridge interface {
	Load(ctx context.Context, path string) (int64, error)
	Exports(handle int64) ([]string, error)
	Call(ctx context.Context, handle int64, name string, args []runtime.Value) (runtime.Value, error)
	Drop(handle int64) bool
}

// Machine is a single-threaded bytecode interpreter. It is not safe
// for concurrent use; run one machine per goroutine.
type Machine struct {
	chunk     *compiler.Chunk
	fuel      uint64
	budget    uint64
	state     State
	fault     error
	globals   *runtime.Scope
	stdout    io.Writer
	allowExec bool
	wasm      WasmBridge
}

// New verifies the chunk against the hash of the source program it
// was compiled from and prepares a machine with the given fuel budget.
func New(chunk *compiler.Chunk, sourceHash string, fuel uint64, opts ...Option) (*Machine, error) {
	if chunk.Hash != sourceHash {
		return nil, errors.HashMismatch(sourceHash, chunk.Hash)
	}
	m := &Machine{
		chunk:   chunk,
		fuel:    fuel,
		budget:  fuel,
		state:   StateReady,
		globals: runtime.NewScope(),
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Machine) State() State  { return m.state }
func (m *Machine) Fuel() uint64  { return m.fuel }
func (m *Machine) Fault() error  { return m.fault }
func (m *Machine) Hash() string  { return m.chunk.Hash }

// Exports lists the functions marked for export, in source order.
func (m *Machine) Exports() []compiler.FuncInfo {
	var out []compiler.FuncInfo
	for _, name := range m.chunk.Order {
		if fn := m.chunk.Funcs[name]; fn.Exported {
			out = append(out, fn)
		}
	}
	return out
}

// Run executes the top-level code. The machine must be in the ready
// state.
func (m *Machine) Run(ctx context.Context) (runtime.Value, error) {
	if m.state != StateReady {
		return runtime.Unit, errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Detail("machine is %s, not ready", m.state).Build()
	}
	return m.execute(ctx, m.chunk.Entry, m.globals)
}

// CallFunction invokes a compiled function by name. The machine must
// not be faulted; a faulted machine stays faulted.
func (m *Machine) CallFunction(ctx context.Context, name string, args ...runtime.Value) (runtime.Value, error) {
	if m.state == StateFaulted {
		return runtime.Unit, errors.New(errors.PhaseRun, errors.KindHalted).
			Detail("machine faulted: %v", m.fault).Build()
	}
	fn, ok := m.chunk.Funcs[name]
	if !ok {
		return runtime.Unit, errors.Unresolved(errors.PhaseRun, "function", name)
	}
	if len(args) != len(fn.Params) {
		return runtime.Unit, errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Path(name).Detail("want %d arguments, got %d", len(fn.Params), len(args)).Build()
	}

	scope := m.globals.Child()
	for i, p := range fn.Params {
		scope.Set(p, args[i])
	}
	return m.execute(ctx, fn.Entry, scope)
}

// fail records a fault and flips the machine state.
func (m *Machine) fail(err error) (runtime.Value, error) {
	m.state = StateFaulted
	m.fault = err
	logger.Debug("machine faulted",
		zap.String("hash", m.chunk.Hash),
		zap.Uint64("fuel_left", m.fuel),
		zap.Error(err))
	return runtime.Unit, err
}

type frame struct {
	ret   int
	scope *runtime.Scope
}

func (m *Machine) execute(ctx context.Context, entry int, scope *runtime.Scope) (runtime.Value, error) {
	m.state = StateRunning

	var (
		stack  []runtime.Value
		frames []frame
		iptr   = entry
		steps  int
	)

	push := func(v runtime.Value) { stack = append(stack, v) }
	pop := func() (runtime.Value, bool) {
		if len(stack) == 0 {
			return runtime.Unit, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for {
		if iptr < 0 || iptr >= len(m.chunk.Code) {
			return m.fail(errors.OutOfBounds(errors.PhaseRun, iptr, len(m.chunk.Code)))
		}

		steps++
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return m.fail(errors.Wrap(errors.PhaseRun, errors.KindExecution, err, "context canceled"))
			}
		}

		if m.fuel == 0 {
			return m.fail(errors.FuelExhausted(m.budget))
		}
		m.fuel--

		op, imm := compiler.Unpack(m.chunk.Code[iptr])
		iptr++

		switch op {
		case compiler.OpNop:

		case compiler.OpConst:
			if int(imm) >= len(m.chunk.Consts) {
				return m.fail(errors.OutOfBounds(errors.PhaseRun, int(imm), len(m.chunk.Consts)))
			}
			push(m.chunk.Consts[imm])

		case compiler.OpUnit:
			push(runtime.Unit)

		case compiler.OpPop:
			if _, ok := pop(); !ok {
				return m.fail(errors.StackUnderflow("pop"))
			}

		case compiler.OpLoad:
			name, err := m.constName(imm)
			if err != nil {
				return m.fail(err)
			}
			v, ok := scope.GetOrMove(name)
			if !ok {
				return m.fail(errors.Unresolved(errors.PhaseRun, "name", name))
			}
			push(v)

		case compiler.OpStore:
			name, err := m.constName(imm)
			if err != nil {
				return m.fail(err)
			}
			v, ok := pop()
			if !ok {
				return m.fail(errors.StackUnderflow("store"))
			}
			scope.Set(name, v)

		case compiler.OpMakeList:
			n := int(imm)
			if len(stack) < n {
				return m.fail(errors.StackUnderflow("make list"))
			}
			elems := make([]runtime.Value, n)
			copy(elems, stack[len(stack)-n:])
			stack = stack[:len(stack)-n]
			push(runtime.List(elems))

		case compiler.OpMakeStruct:
			n := int(imm)
			if len(stack) < 2*n {
				return m.fail(errors.StackUnderflow("make struct"))
			}
			fields := make(map[string]runtime.Value, n)
			base := len(stack) - 2*n
			for i := 0; i < n; i++ {
				name, ok := stack[base+2*i].AsStr()
				if !ok {
					return m.fail(errors.InvalidData(errors.PhaseRun, "struct field name is not a string"))
				}
				fields[name] = stack[base+2*i+1]
			}
			stack = stack[:base]
			push(runtime.Struct(fields))

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv,
			compiler.OpMod, compiler.OpLt, compiler.OpGt, compiler.OpEq, compiler.OpNe:
			right, ok := pop()
			if !ok {
				return m.fail(errors.StackUnderflow("binary op"))
			}
			left, ok := pop()
			if !ok {
				return m.fail(errors.StackUnderflow("binary op"))
			}
			v, err := m.binary(op, left, right)
			if err != nil {
				return m.fail(err)
			}
			push(v)

		case compiler.OpJump:
			iptr = int(imm)

		case compiler.OpJumpIfFalse:
			cond, ok := pop()
			if !ok {
				return m.fail(errors.StackUnderflow("branch"))
			}
			if !cond.Truthy() {
				iptr = int(imm)
			}

		case compiler.OpCall:
			argc, idx := compiler.UnpackCall(imm)
			name, err := m.constName(idx)
			if err != nil {
				return m.fail(err)
			}
			fn, ok := m.chunk.Funcs[name]
			if !ok {
				return m.fail(errors.Unresolved(errors.PhaseRun, "function", name))
			}
			if argc != len(fn.Params) {
				return m.fail(errors.New(errors.PhaseRun, errors.KindInvalidInput).
					Path(name).Detail("want %d arguments, got %d", len(fn.Params), argc).Build())
			}
			if len(stack) < argc {
				return m.fail(errors.StackUnderflow("call"))
			}
			callee := m.globals.Child()
			base := len(stack) - argc
			for i, p := range fn.Params {
				callee.Set(p, stack[base+i])
			}
			stack = stack[:base]
			frames = append(frames, frame{ret: iptr, scope: scope})
			scope = callee
			iptr = fn.Entry

		case compiler.OpIntrinsic:
			argc, id := compiler.UnpackCall(imm)
			if len(stack) < argc {
				return m.fail(errors.StackUnderflow("intrinsic"))
			}
			base := len(stack) - argc
			args := make([]runtime.Value, argc)
			copy(args, stack[base:])
			stack = stack[:base]
			v, err := m.intrinsic(ctx, compiler.Intrinsic(id), args)
			if err != nil {
				return m.fail(err)
			}
			push(v)

		case compiler.OpReturn:
			v, ok := pop()
			if !ok {
				return m.fail(errors.StackUnderflow("return"))
			}
			if len(frames) == 0 {
				m.state = StateHalted
				return v, nil
			}
			f := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			scope = f.scope
			iptr = f.ret
			push(v)

		case compiler.OpHalt:
			m.state = StateHalted
			if v, ok := pop(); ok {
				return v, nil
			}
			return runtime.Unit, nil

		default:
			return m.fail(errors.New(errors.PhaseRun, errors.KindInvalidData).
				Detail("unknown opcode %d", op).Build())
		}
	}
}

func (m *Machine) constName(idx uint32) (string, error) {
	if int(idx) >= len(m.chunk.Consts) {
		return "", errors.OutOfBounds(errors.PhaseRun, int(idx), len(m.chunk.Consts))
	}
	name, ok := m.chunk.Consts[idx].AsStr()
	if !ok {
		return "", errors.InvalidData(errors.PhaseRun, "name constant is not a string")
	}
	return name, nil
}

func (m *Machine) binary(op compiler.Opcode, left, right runtime.Value) (runtime.Value, error) {
	// addition doubles as concatenation when either side is a string
	if op == compiler.OpAdd {
		return addValues(left, right)
	}

	switch op {
	case compiler.OpEq:
		return runtime.Bool(left.Equal(right)), nil
	case compiler.OpNe:
		return runtime.Bool(!left.Equal(right)), nil
	}

	a, aok := left.AsInt()
	b, bok := right.AsInt()
	if !aok || !bok {
		return runtime.Unit, errors.TypeMismatch(errors.PhaseRun, "Int",
			fmt.Sprintf("%s and %s", left.Kind(), right.Kind()))
	}

	switch op {
	case compiler.OpSub:
		return runtime.Int(a - b), nil
	case compiler.OpMul:
		return runtime.Int(a * b), nil
	case compiler.OpDiv:
		if b == 0 {
			return runtime.Unit, errors.Execution("divide", errors.InvalidInput(errors.PhaseRun, "division by zero"))
		}
		return runtime.Int(a / b), nil
	case compiler.OpMod:
		if b == 0 {
			return runtime.Unit, errors.Execution("modulo", errors.InvalidInput(errors.PhaseRun, "division by zero"))
		}
		return runtime.Int(a % b), nil
	case compiler.OpLt:
		return runtime.Bool(a < b), nil
	case compiler.OpGt:
		return runtime.Bool(a > b), nil
	}
	return runtime.Unit, errors.InvalidData(errors.PhaseRun, "unknown binary opcode")
}

func addValues(left, right runtime.Value) (runtime.Value, error) {
	if a, ok := left.AsInt(); ok {
		if b, ok := right.AsInt(); ok {
			return runtime.Int(a + b), nil
		}
	}
	ls, lstr := left.AsStr()
	rs, rstr := right.AsStr()
	switch {
	case lstr && rstr:
		return runtime.Str(ls + rs), nil
	case lstr:
		if b, ok := right.AsInt(); ok {
			return runtime.Str(fmt.Sprintf("%s%d", ls, b)), nil
		}
	case rstr:
		if a, ok := left.AsInt(); ok {
			return runtime.Str(fmt.Sprintf("%d%s", a, rs)), nil
		}
	}
	return runtime.Unit, errors.TypeMismatch(errors.PhaseRun, "Int or Str",
		fmt.Sprintf("%s and %s", left.Kind(), right.Kind()))
}

func (m *Machine) intrinsic(ctx context.Context, id compiler.Intrinsic, args []runtime.Value) (runtime.Value, error) {
	switch id {
	case compiler.IntrinsicWasmLoad, compiler.IntrinsicWasmExports,
		compiler.IntrinsicWasmCall, compiler.IntrinsicWasmDrop:
		return m.wasmIntrinsic(ctx, id, args)

	case compiler.IntrinsicPrint:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(m.stdout, strings.Join(parts, " "))
		return runtime.Unit, nil

	case compiler.IntrinsicAskAI:
		return runtime.Str("AI response placeholder"), nil

	case compiler.IntrinsicExec:
		if !m.allowExec {
			return runtime.Unit, errors.Unsupported(errors.PhaseRun, "exec intrinsic (not enabled)")
		}
		cmd, err := strArg(args, 0, "exec")
		if err != nil {
			return runtime.Unit, err
		}
		out, err := exec.Command("sh", "-c", cmd).CombinedOutput()
		if err != nil {
			return runtime.Unit, errors.Execution("exec", err)
		}
		return runtime.Str(string(out)), nil

	case compiler.IntrinsicFsWrite:
		path, err := strArg(args, 0, "fs_write")
		if err != nil {
			return runtime.Unit, err
		}
		content, err := strArg(args, 1, "fs_write")
		if err != nil {
			return runtime.Unit, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return runtime.Unit, errors.Execution("fs_write", err)
		}
		return runtime.Unit, nil

	case compiler.IntrinsicAdd:
		left, right, err := twoArgs(args, "add")
		if err != nil {
			return runtime.Unit, err
		}
		return addValues(left, right)

	case compiler.IntrinsicSub:
		return intIntrinsic(args, "sub", func(a, b int64) int64 { return a - b })
	case compiler.IntrinsicMul:
		return intIntrinsic(args, "mul", func(a, b int64) int64 { return a * b })

	// comparison intrinsics yield 1 or 0, not booleans
	case compiler.IntrinsicGt:
		return intIntrinsic(args, "gt", func(a, b int64) int64 {
			if a > b {
				return 1
			}
			return 0
		})
	case compiler.IntrinsicLt:
		return intIntrinsic(args, "lt", func(a, b int64) int64 {
			if a < b {
				return 1
			}
			return 0
		})
	case compiler.IntrinsicEq:
		return intIntrinsic(args, "eq", func(a, b int64) int64 {
			if a == b {
				return 1
			}
			return 0
		})
	}
	return runtime.Unit, errors.Unresolved(errors.PhaseRun, "intrinsic", fmt.Sprintf("#%d", id))
}

func (m *Machine) wasmIntrinsic(ctx context.Context, id compiler.Intrinsic, args []runtime.Value) (runtime.Value, error) {
	if m.wasm == nil {
		return runtime.Unit, errors.Unsupported(errors.PhaseRun, "wasm intrinsics (no bridge installed)")
	}

	switch id {
	case compiler.IntrinsicWasmLoad:
		path, err := strArg(args, 0, "wasm_load")
		if err != nil {
			return runtime.Unit, err
		}
		h, err := m.wasm.Load(ctx, path)
		if err != nil {
			return runtime.Unit, err
		}
		return runtime.Int(h), nil

	case compiler.IntrinsicWasmExports:
		h, err := handleArg(args, "wasm_exports")
		if err != nil {
			return runtime.Unit, err
		}
		names, err := m.wasm.Exports(h)
		if err != nil {
			return runtime.Unit, err
		}
		elems := make([]runtime.Value, len(names))
		for i, n := range names {
			elems[i] = runtime.Str(n)
		}
		return runtime.List(elems), nil

	case compiler.IntrinsicWasmCall:
		h, err := handleArg(args, "wasm_call")
		if err != nil {
			return runtime.Unit, err
		}
		name, err := strArg(args, 1, "wasm_call")
		if err != nil {
			return runtime.Unit, err
		}
		return m.wasm.Call(ctx, h, name, args[2:])

	case compiler.IntrinsicWasmDrop:
		h, err := handleArg(args, "wasm_drop")
		if err != nil {
			return runtime.Unit, err
		}
		return runtime.Bool(m.wasm.Drop(h)), nil
	}
	return runtime.Unit, errors.Unresolved(errors.PhaseRun, "intrinsic", fmt.Sprintf("#%d", id))
}

func handleArg(args []runtime.Value, op string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Path(op).Detail("missing module handle").Build()
	}
	h, ok := args[0].AsInt()
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseRun, "Int handle", args[0].Kind().String())
	}
	return h, nil
}

func strArg(args []runtime.Value, i int, op string) (string, error) {
	if i >= len(args) {
		return "", errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Path(op).Detail("missing argument %d", i).Build()
	}
	s, ok := args[i].AsStr()
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseRun, "Str", args[i].Kind().String())
	}
	return s, nil
}

func twoArgs(args []runtime.Value, op string) (runtime.Value, runtime.Value, error) {
	if len(args) != 2 {
		return runtime.Unit, runtime.Unit, errors.New(errors.PhaseRun, errors.KindInvalidInput).
			Path(op).Detail("want 2 arguments, got %d", len(args)).Build()
	}
	return args[0], args[1], nil
}

func intIntrinsic(args []runtime.Value, op string, f func(a, b int64) int64) (runtime.Value, error) {
	left, right, err := twoArgs(args, op)
	if err != nil {
		return runtime.Unit, err
	}
	a, aok := left.AsInt()
	b, bok := right.AsInt()
	if !aok || !bok {
		return runtime.Unit, errors.TypeMismatch(errors.PhaseRun, "Int",
			fmt.Sprintf("%s and %s", left.Kind(), right.Kind()))
	}
	return runtime.Int(f(a, b)), nil
}
