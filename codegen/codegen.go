// Package codegen lowers Ark functions to a WebAssembly module. The
// ABI is uniform: every Ark integer and boolean travels as an i64, a
// Unit result maps to no result at all. Every module imports the full
// ark_host surface and exports one page of linear memory, so host
// functions that touch memory always have somewhere to work.
package codegen

import (
	"strings"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/wasm"
)

// hostImport describes one ark_host function the module links.
type hostImport struct {
	name    string
	params  []wasm.ValType
	results []wasm.ValType
}

func i64s(n int) []wasm.ValType {
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i] = wasm.ValI64
	}
	return out
}

func i32s(n int) []wasm.ValType {
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i] = wasm.ValI32
	}
	return out
}

// hostImports is the full ark_host surface, in link order.
var hostImports = []hostImport{
	{"math_sin", i64s(1), i64s(1)},
	{"math_cos", i64s(1), i64s(1)},
	{"math_tan", i64s(1), i64s(1)},
	{"math_asin", i64s(1), i64s(1)},
	{"math_acos", i64s(1), i64s(1)},
	{"math_atan", i64s(1), i64s(1)},
	{"math_sqrt", i64s(1), i64s(1)},
	{"math_atan2", i64s(2), i64s(1)},
	{"math_pow", i64s(2), i64s(1)},
	{"math_pow_mod", i64s(3), i64s(1)},
	{"crypto_sha512", i32s(3), i32s(1)},
	{"json_parse", i32s(3), i32s(1)},
	{"json_stringify", i32s(3), i32s(1)},
	{"ask_ai", i32s(4), i32s(1)},
}

// HostModule is the import module name guests link against.
const HostModule = "ark_host"

// Exported decides which functions a module exposes. When any
// function carries an export marker, only marked functions are
// exported. Otherwise every function is exported except internal
// ones, recognized by an intrinsic_ or underscore prefix.
func Exported(fns []*ast.FunctionDef) map[string]bool {
	anyMarked := false
	for _, fn := range fns {
		if fn.HasAttr("export") {
			anyMarked = true
			break
		}
	}

	out := make(map[string]bool, len(fns))
	for _, fn := range fns {
		if anyMarked {
			out[fn.Name] = fn.HasAttr("export")
			continue
		}
		internal := strings.HasPrefix(fn.Name, "intrinsic_") || strings.HasPrefix(fn.Name, "_")
		out[fn.Name] = !internal
	}
	return out
}

// CompileToBytes lowers a program's functions into a WASM binary.
func CompileToBytes(block *ast.Block) ([]byte, error) {
	fns := ast.Functions(block.Stmts)

	g := &generator{
		mod:      wasm.NewModule(),
		hostIdx:  map[string]uint32{},
		funcIdx:  map[string]*funcMeta{},
		exported: Exported(fns),
	}

	for _, imp := range hostImports {
		sig := g.mod.AddType(wasm.FuncType{Params: imp.params, Results: imp.results})
		g.hostIdx[imp.name] = g.mod.AddImport(HostModule, imp.name, sig)
	}

	// assign indices up front so functions can call forward
	next := uint32(len(hostImports))
	for _, fn := range fns {
		if _, dup := g.funcIdx[fn.Name]; dup {
			return nil, errors.New(errors.PhaseCodegen, errors.KindInvalidInput).
				Path(fn.Name).Detail("function defined twice").Build()
		}
		g.funcIdx[fn.Name] = &funcMeta{def: fn, index: next}
		next++
	}

	for _, fn := range fns {
		if err := g.function(fn); err != nil {
			return nil, err
		}
	}

	g.mod.AddMemory(1)
	g.mod.AddExport("memory", wasm.KindMemory, 0)

	return g.mod.Encode(), nil
}

type funcMeta struct {
	def   *ast.FunctionDef
	index uint32
}

type generator struct {
	mod      *wasm.Module
	hostIdx  map[string]uint32
	funcIdx  map[string]*funcMeta
	exported map[string]bool
}

// lowerable reports whether a surface type fits the i64 ABI.
func lowerable(t ast.Type) bool {
	switch t.Kind {
	case ast.TypeInt, ast.TypeBool, ast.TypeUnit:
		return true
	}
	return false
}

func (g *generator) signature(fn *ast.FunctionDef) (wasm.FuncType, error) {
	var sig wasm.FuncType
	for _, p := range fn.Params {
		if !lowerable(p.Type) {
			return sig, errors.New(errors.PhaseCodegen, errors.KindUnsupported).
				Path(fn.Name, p.Name).Detail("type %s has no WASM lowering", p.Type.String()).Build()
		}
		sig.Params = append(sig.Params, wasm.ValI64)
	}
	if !lowerable(fn.Result) {
		return sig, errors.New(errors.PhaseCodegen, errors.KindUnsupported).
			Path(fn.Name).Detail("result type %s has no WASM lowering", fn.Result.String()).Build()
	}
	if !fn.Result.IsUnit() {
		sig.Results = []wasm.ValType{wasm.ValI64}
	}
	return sig, nil
}

func (g *generator) function(fn *ast.FunctionDef) error {
	sig, err := g.signature(fn)
	if err != nil {
		return err
	}

	fc := &funcCompiler{
		gen:    g,
		fn:     fn,
		locals: map[string]uint32{},
		body:   wasm.NewBody(),
	}
	for i, p := range fn.Params {
		fc.locals[p.Name] = uint32(i)
	}
	collectLets(fn.Body, func(name string) {
		if _, ok := fc.locals[name]; !ok {
			fc.locals[name] = uint32(len(fc.locals))
		}
	})
	extra := uint32(len(fc.locals) - len(fn.Params))
	fc.body.Locals(extra, wasm.ValI64)

	for _, s := range fn.Body {
		if err := fc.stmt(s); err != nil {
			return err
		}
	}
	// implicit tail: a unit function just falls off the end, a valued
	// one supplies a zero so the body always validates
	if !fn.Result.IsUnit() {
		fc.body.OpS64(wasm.OpI64Const, 0)
	}

	typeIdx := g.mod.AddType(sig)
	idx := g.mod.AddFunction(typeIdx, fc.body.Encode())
	if g.exported[fn.Name] {
		g.mod.AddExport(fn.Name, wasm.KindFunc, idx)
	}
	return nil
}

// collectLets walks statements in order, reporting each let name once
// per first occurrence.
func collectLets(stmts []ast.Stmt, visit func(string)) {
	for _, s := range stmts {
		switch x := s.(type) {
		case *ast.Let:
			visit(x.Name)
		case *ast.If:
			collectLets(x.Then, visit)
			collectLets(x.Else, visit)
		case *ast.While:
			collectLets(x.Body, visit)
		case *ast.Block:
			collectLets(x.Stmts, visit)
		}
	}
}

type funcCompiler struct {
	gen    *generator
	fn     *ast.FunctionDef
	locals map[string]uint32
	body   *wasm.Body
}

func (fc *funcCompiler) unsupported(what string) error {
	return errors.New(errors.PhaseCodegen, errors.KindUnsupported).
		Path(fc.fn.Name).Detail("%s has no WASM lowering", what).Build()
}

func (fc *funcCompiler) stmt(n ast.Stmt) error {
	switch x := n.(type) {
	case *ast.Let:
		if err := fc.expr(x.Value); err != nil {
			return err
		}
		idx, ok := fc.locals[x.Name]
		if !ok {
			return errors.Unresolved(errors.PhaseCodegen, "local", x.Name)
		}
		fc.body.OpU32(wasm.OpLocalSet, idx)
		return nil

	case *ast.ExprStmt:
		if err := fc.expr(x.Expr); err != nil {
			return err
		}
		if fc.producesValue(x.Expr) {
			fc.body.Op(wasm.OpDrop)
		}
		return nil

	case *ast.Return:
		if x.Value != nil {
			if fc.fn.Result.IsUnit() {
				return fc.unsupported("valued return from a Unit function")
			}
			if err := fc.expr(x.Value); err != nil {
				return err
			}
		} else if !fc.fn.Result.IsUnit() {
			return fc.unsupported("bare return from a valued function")
		}
		fc.body.Op(wasm.OpReturn)
		return nil

	case *ast.If:
		if err := fc.condition(x.Cond); err != nil {
			return err
		}
		fc.body.Op(wasm.OpIf)
		fc.body.Op(wasm.BlockEmpty)
		for _, s := range x.Then {
			if err := fc.stmt(s); err != nil {
				return err
			}
		}
		if len(x.Else) > 0 {
			fc.body.Op(wasm.OpElse)
			for _, s := range x.Else {
				if err := fc.stmt(s); err != nil {
					return err
				}
			}
		}
		fc.body.Op(wasm.OpEnd)
		return nil

	case *ast.While:
		fc.body.Op(wasm.OpBlock)
		fc.body.Op(wasm.BlockEmpty)
		fc.body.Op(wasm.OpLoop)
		fc.body.Op(wasm.BlockEmpty)
		if err := fc.condition(x.Cond); err != nil {
			return err
		}
		fc.body.Op(wasm.OpI32Eqz)
		fc.body.OpU32(wasm.OpBrIf, 1)
		for _, s := range x.Body {
			if err := fc.stmt(s); err != nil {
				return err
			}
		}
		fc.body.OpU32(wasm.OpBr, 0)
		fc.body.Op(wasm.OpEnd)
		fc.body.Op(wasm.OpEnd)
		return nil

	case *ast.Block:
		for _, s := range x.Stmts {
			if err := fc.stmt(s); err != nil {
				return err
			}
		}
		return nil

	case *ast.StructDecl:
		return nil
	}
	return fc.unsupported("statement " + n.Kind())
}

// condition lowers an expression used as a branch test to an i32.
func (fc *funcCompiler) condition(e ast.Expr) error {
	if err := fc.expr(e); err != nil {
		return err
	}
	fc.body.Op(wasm.OpI32WrapI64)
	return nil
}

var i64Ops = map[ast.BinaryOp]byte{
	ast.OpAdd: wasm.OpI64Add,
	ast.OpSub: wasm.OpI64Sub,
	ast.OpMul: wasm.OpI64Mul,
	ast.OpDiv: wasm.OpI64DivS,
	ast.OpMod: wasm.OpI64RemS,
}

var cmpOps = map[ast.BinaryOp]byte{
	ast.OpLt: wasm.OpI64LtS,
	ast.OpGt: wasm.OpI64GtS,
	ast.OpEq: wasm.OpI64Eq,
	ast.OpNe: wasm.OpI64Ne,
}

func (fc *funcCompiler) expr(e ast.Expr) error {
	switch x := e.(type) {
	case *ast.IntLit:
		fc.body.OpS64(wasm.OpI64Const, x.Value)
		return nil

	case *ast.BoolLit:
		v := int64(0)
		if x.Value {
			v = 1
		}
		fc.body.OpS64(wasm.OpI64Const, v)
		return nil

	case *ast.UnitLit:
		return nil

	case *ast.Ident:
		idx, ok := fc.locals[x.Name]
		if !ok {
			return errors.Unresolved(errors.PhaseCodegen, "local", x.Name)
		}
		fc.body.OpU32(wasm.OpLocalGet, idx)
		return nil

	case *ast.Binary:
		if err := fc.expr(x.Left); err != nil {
			return err
		}
		if err := fc.expr(x.Right); err != nil {
			return err
		}
		if op, ok := i64Ops[x.Op]; ok {
			fc.body.Op(op)
			return nil
		}
		if op, ok := cmpOps[x.Op]; ok {
			fc.body.Op(op)
			fc.body.Op(wasm.OpI64ExtendI32S)
			return nil
		}
		return fc.unsupported("operator " + string(x.Op))

	case *ast.Call:
		for _, a := range x.Args {
			if err := fc.expr(a); err != nil {
				return err
			}
		}
		if meta, ok := fc.gen.funcIdx[x.Callee]; ok {
			if len(x.Args) != len(meta.def.Params) {
				return errors.New(errors.PhaseCodegen, errors.KindInvalidInput).
					Path(fc.fn.Name, x.Callee).
					Detail("want %d arguments, got %d", len(meta.def.Params), len(x.Args)).Build()
			}
			fc.body.OpU32(wasm.OpCall, meta.index)
			return nil
		}
		if idx, ok := fc.gen.hostIdx[x.Callee]; ok {
			fc.body.OpU32(wasm.OpCall, idx)
			return nil
		}
		return errors.Unresolved(errors.PhaseCodegen, "function", x.Callee)

	case *ast.StrLit:
		return fc.unsupported("string literal")
	case *ast.ListLit:
		return fc.unsupported("list literal")
	case *ast.StructLit:
		return fc.unsupported("struct literal")
	}
	return fc.unsupported("expression " + e.Kind())
}

// producesValue reports whether an expression leaves a value on the
// stack under the i64 ABI.
func (fc *funcCompiler) producesValue(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.UnitLit:
		return false
	case *ast.Call:
		if meta, ok := fc.gen.funcIdx[x.Callee]; ok {
			return !meta.def.Result.IsUnit()
		}
		return true
	}
	return true
}
