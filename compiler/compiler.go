// Package compiler lowers a checked AST into compact stack bytecode.
// Compilation is deterministic: identical trees always produce
// identical chunks, so a chunk inherits the content hash of the
// program it came from.
package compiler

import (
	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/runtime"
)

// Opcode occupies the top byte of a packed instruction, the low 24
// bits carry the immediate.
type Opcode uint8

const (
	OpNop Opcode = iota

	OpConst // push consts[imm]
	OpUnit  // push ()
	OpPop   // discard top

	OpLoad  // push scope value; imm = name const, linear values move
	OpStore // pop into scope; imm = name const

	OpMakeList   // pop imm values into a list
	OpMakeStruct // pop imm (name, value) pairs into a struct

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpGt
	OpEq
	OpNe

	OpJump        // iptr = imm
	OpJumpIfFalse // pop cond; jump when falsy

	OpCall      // imm = argc<<16 | name const; user function or intrinsic
	OpIntrinsic // imm = argc<<16 | intrinsic id

	OpReturn // pop return value, unwind frame
	OpHalt   // stop the machine
)

// Intrinsic identifies a built-in callable. The set is closed: an
// unknown name never resolves to an intrinsic at run time.
type Intrinsic uint8

const (
	IntrinsicPrint Intrinsic = iota
	IntrinsicAskAI
	IntrinsicExec
	IntrinsicFsWrite
	IntrinsicAdd
	IntrinsicSub
	IntrinsicMul
	IntrinsicGt
	IntrinsicLt
	IntrinsicEq
	IntrinsicWasmLoad
	IntrinsicWasmExports
	IntrinsicWasmCall
	IntrinsicWasmDrop
)

// intrinsicNames maps surface callee names onto intrinsic ids. The
// intrinsic_ prefix forms are the canonical names, print is the only
// bare alias.
var intrinsicNames = map[string]Intrinsic{
	"print":              IntrinsicPrint,
	"intrinsic_print":    IntrinsicPrint,
	"intrinsic_ask_ai":   IntrinsicAskAI,
	"intrinsic_exec":     IntrinsicExec,
	"sys_exec":           IntrinsicExec,
	"intrinsic_fs_write": IntrinsicFsWrite,
	"sys_fs_write":       IntrinsicFsWrite,
	"intrinsic_add":      IntrinsicAdd,
	"intrinsic_sub":      IntrinsicSub,
	"intrinsic_mul":      IntrinsicMul,
	"intrinsic_gt":       IntrinsicGt,
	"intrinsic_lt":       IntrinsicLt,
	"intrinsic_eq":       IntrinsicEq,
	"wasm_load":          IntrinsicWasmLoad,
	"wasm_exports":       IntrinsicWasmExports,
	"wasm_call":          IntrinsicWasmCall,
	"wasm_drop":          IntrinsicWasmDrop,
}

// ResolveIntrinsic maps a callee name onto its intrinsic id.
func ResolveIntrinsic(name string) (Intrinsic, bool) {
	id, ok := intrinsicNames[name]
	return id, ok
}

// Pack combines an opcode and a 24-bit immediate into one word.
func Pack(op Opcode, imm uint32) uint32 { return uint32(op)<<24 | (imm & 0xFFFFFF) }

// Unpack splits a packed instruction.
func Unpack(ins uint32) (Opcode, uint32) { return Opcode(ins >> 24), ins & 0xFFFFFF }

// PackCall folds an argument count into the upper byte of the
// immediate, leaving 16 bits for the name constant.
func PackCall(argc int, idx uint32) uint32 { return uint32(argc)<<16 | (idx & 0xFFFF) }

// UnpackCall splits a call immediate.
func UnpackCall(imm uint32) (argc int, idx uint32) { return int(imm >> 16), imm & 0xFFFF }

// FuncInfo records where a compiled function lives in the code.
type FuncInfo struct {
	Name     string
	Params   []string
	Entry    int
	Exported bool
}

// Chunk is a compiled program. Hash carries the content hash of the
// source program the chunk was compiled from.
type Chunk struct {
	Code   []uint32
	Consts []runtime.Value
	Funcs  map[string]FuncInfo
	Order  []string // function names in source order
	Entry  int      // start of top-level code
	Hash   string
}

// Compile lowers a program into a chunk.
func Compile(prog *ast.Program) (*Chunk, error) {
	c := &compiler{
		chunk:    &Chunk{Funcs: map[string]FuncInfo{}, Hash: prog.Hash},
		constIdx: map[constKey]uint32{},
	}

	// function bodies first, top-level entry after them
	for _, s := range prog.Content.Stmts {
		fn, ok := s.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if err := c.function(fn); err != nil {
			return nil, err
		}
	}

	c.chunk.Entry = len(c.chunk.Code)
	for _, s := range prog.Content.Stmts {
		switch s.(type) {
		case *ast.FunctionDef, *ast.StructDecl:
			continue
		}
		if err := c.stmt(s); err != nil {
			return nil, err
		}
	}
	c.emit(OpHalt, 0)
	return c.chunk, nil
}

type constKey struct {
	kind runtime.Kind
	i    int64
	s    string
	b    bool
}

type compiler struct {
	chunk    *Chunk
	constIdx map[constKey]uint32
}

func (c *compiler) emit(op Opcode, imm uint32) int {
	c.chunk.Code = append(c.chunk.Code, Pack(op, imm))
	return len(c.chunk.Code) - 1
}

// patch rewrites the immediate of a previously emitted jump.
func (c *compiler) patch(at int, target int) {
	op, _ := Unpack(c.chunk.Code[at])
	c.chunk.Code[at] = Pack(op, uint32(target))
}

// constant interns a value, reusing the slot on repeats so identical
// sources compile to identical constant pools.
func (c *compiler) constant(v runtime.Value) (uint32, error) {
	var key constKey
	key.kind = v.Kind()
	switch v.Kind() {
	case runtime.KindInt:
		key.i, _ = v.AsInt()
	case runtime.KindStr:
		key.s, _ = v.AsStr()
	case runtime.KindBool:
		key.b, _ = v.AsBool()
	}
	if idx, ok := c.constIdx[key]; ok {
		return idx, nil
	}
	idx := uint32(len(c.chunk.Consts))
	if idx > 0xFFFF {
		return 0, errors.New(errors.PhaseCompile, errors.KindOverflow).
			Detail("constant pool exceeds %d entries", 0x10000).Build()
	}
	c.chunk.Consts = append(c.chunk.Consts, v)
	c.constIdx[key] = idx
	return idx, nil
}

func (c *compiler) nameConst(name string) (uint32, error) {
	return c.constant(runtime.Str(name))
}

func (c *compiler) function(fn *ast.FunctionDef) error {
	if _, dup := c.chunk.Funcs[fn.Name]; dup {
		return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Path(fn.Name).Detail("function defined twice").Build()
	}

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	c.chunk.Funcs[fn.Name] = FuncInfo{
		Name:     fn.Name,
		Params:   params,
		Entry:    len(c.chunk.Code),
		Exported: fn.HasAttr("export"),
	}
	c.chunk.Order = append(c.chunk.Order, fn.Name)

	for _, s := range fn.Body {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	// implicit unit return at the end of a body
	c.emit(OpUnit, 0)
	c.emit(OpReturn, 0)
	return nil
}

func (c *compiler) stmt(n ast.Stmt) error {
	switch x := n.(type) {
	case *ast.Let:
		if err := c.expr(x.Value); err != nil {
			return err
		}
		idx, err := c.nameConst(x.Name)
		if err != nil {
			return err
		}
		c.emit(OpStore, idx)
		return nil

	case *ast.ExprStmt:
		if err := c.expr(x.Expr); err != nil {
			return err
		}
		c.emit(OpPop, 0)
		return nil

	case *ast.Return:
		if x.Value != nil {
			if err := c.expr(x.Value); err != nil {
				return err
			}
		} else {
			c.emit(OpUnit, 0)
		}
		c.emit(OpReturn, 0)
		return nil

	case *ast.If:
		if err := c.expr(x.Cond); err != nil {
			return err
		}
		jumpElse := c.emit(OpJumpIfFalse, 0)
		for _, s := range x.Then {
			if err := c.stmt(s); err != nil {
				return err
			}
		}
		if len(x.Else) == 0 {
			c.patch(jumpElse, len(c.chunk.Code))
			return nil
		}
		jumpEnd := c.emit(OpJump, 0)
		c.patch(jumpElse, len(c.chunk.Code))
		for _, s := range x.Else {
			if err := c.stmt(s); err != nil {
				return err
			}
		}
		c.patch(jumpEnd, len(c.chunk.Code))
		return nil

	case *ast.While:
		top := len(c.chunk.Code)
		if err := c.expr(x.Cond); err != nil {
			return err
		}
		jumpOut := c.emit(OpJumpIfFalse, 0)
		for _, s := range x.Body {
			if err := c.stmt(s); err != nil {
				return err
			}
		}
		c.emit(OpJump, uint32(top))
		c.patch(jumpOut, len(c.chunk.Code))
		return nil

	case *ast.Block:
		for _, s := range x.Stmts {
			if err := c.stmt(s); err != nil {
				return err
			}
		}
		return nil

	case *ast.StructDecl:
		return nil

	case *ast.FunctionDef:
		return errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(x.Name).Detail("nested function definitions").Build()
	}
	return errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Detail("statement %s", n.Kind()).Build()
}

var binaryOps = map[ast.BinaryOp]Opcode{
	ast.OpAdd: OpAdd,
	ast.OpSub: OpSub,
	ast.OpMul: OpMul,
	ast.OpDiv: OpDiv,
	ast.OpMod: OpMod,
	ast.OpLt:  OpLt,
	ast.OpGt:  OpGt,
	ast.OpEq:  OpEq,
	ast.OpNe:  OpNe,
}

func (c *compiler) expr(e ast.Expr) error {
	switch x := e.(type) {
	case *ast.IntLit:
		idx, err := c.constant(runtime.Int(x.Value))
		if err != nil {
			return err
		}
		c.emit(OpConst, idx)
		return nil

	case *ast.StrLit:
		idx, err := c.constant(runtime.Str(x.Value))
		if err != nil {
			return err
		}
		c.emit(OpConst, idx)
		return nil

	case *ast.BoolLit:
		idx, err := c.constant(runtime.Bool(x.Value))
		if err != nil {
			return err
		}
		c.emit(OpConst, idx)
		return nil

	case *ast.UnitLit:
		c.emit(OpUnit, 0)
		return nil

	case *ast.Ident:
		idx, err := c.nameConst(x.Name)
		if err != nil {
			return err
		}
		c.emit(OpLoad, idx)
		return nil

	case *ast.ListLit:
		for _, el := range x.Elems {
			if err := c.expr(el); err != nil {
				return err
			}
		}
		c.emit(OpMakeList, uint32(len(x.Elems)))
		return nil

	case *ast.StructLit:
		for _, f := range x.Fields {
			idx, err := c.nameConst(f.Name)
			if err != nil {
				return err
			}
			c.emit(OpConst, idx)
			if err := c.expr(f.Value); err != nil {
				return err
			}
		}
		c.emit(OpMakeStruct, uint32(len(x.Fields)))
		return nil

	case *ast.Binary:
		if err := c.expr(x.Left); err != nil {
			return err
		}
		if err := c.expr(x.Right); err != nil {
			return err
		}
		op, ok := binaryOps[x.Op]
		if !ok {
			return errors.New(errors.PhaseCompile, errors.KindUnsupported).
				Detail("operator %s", x.Op).Build()
		}
		c.emit(op, 0)
		return nil

	case *ast.Call:
		if len(x.Args) > 0xFF {
			return errors.New(errors.PhaseCompile, errors.KindOverflow).
				Path(x.Callee).Detail("call with more than 255 arguments").Build()
		}
		for _, a := range x.Args {
			if err := c.expr(a); err != nil {
				return err
			}
		}
		if id, ok := ResolveIntrinsic(x.Callee); ok {
			c.emit(OpIntrinsic, PackCall(len(x.Args), uint32(id)))
			return nil
		}
		idx, err := c.nameConst(x.Callee)
		if err != nil {
			return err
		}
		c.emit(OpCall, PackCall(len(x.Args), idx))
		return nil
	}
	return errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Detail("expression %s", e.Kind()).Build()
}
