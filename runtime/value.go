package runtime

import (
	"fmt"
	"strings"

	"github.com/merchantmoh-debug/ArkLang/ast"
)

// Kind discriminates runtime values.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt
	KindStr
	KindBool
	KindLinear
	KindFunc
	KindList
	KindBuffer
	KindStruct
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	case KindLinear:
		return "linear"
	case KindFunc:
		return "func"
	case KindList:
		return "list"
	case KindBuffer:
		return "buffer"
	case KindStruct:
		return "struct"
	case KindReturn:
		return "return"
	}
	return "unknown"
}

// Value is a runtime value. The zero value is Unit.
type Value struct {
	kind   Kind
	i      int64
	s      string
	b      bool
	fn     *ast.FunctionDef
	list   []Value
	buf    []byte
	fields map[string]Value
	inner  *Value

	// linear object identity
	id       string
	typename string
	payload  string
}

var Unit = Value{kind: KindUnit}

func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func Str(v string) Value    { return Value{kind: KindStr, s: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }
func Buffer(b []byte) Value { return Value{kind: KindBuffer, buf: b} }

func Func(fn *ast.FunctionDef) Value { return Value{kind: KindFunc, fn: fn} }

// Linear wraps an owned resource with its identity and type name.
func Linear(id, typename, payload string) Value {
	return Value{kind: KindLinear, id: id, typename: typename, payload: payload}
}

func Struct(fields map[string]Value) Value {
	return Value{kind: KindStruct, fields: fields}
}

// Return wraps a value propagating out of a function body.
func Return(v Value) Value {
	inner := v
	return Value{kind: KindReturn, inner: &inner}
}

func (v Value) Kind() Kind { return v.kind }

// IsLinear reports whether the value is single-owner. Return wrappers
// inherit linearity from the wrapped value.
func (v Value) IsLinear() bool {
	switch v.kind {
	case KindList, KindLinear, KindBuffer, KindStruct:
		return true
	case KindReturn:
		return v.inner.IsLinear()
	}
	return false
}

func (v Value) AsInt() (int64, bool)   { return v.i, v.kind == KindInt }
func (v Value) AsStr() (string, bool)  { return v.s, v.kind == KindStr }
func (v Value) AsBool() (bool, bool)   { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }
func (v Value) AsBuffer() ([]byte, bool) { return v.buf, v.kind == KindBuffer }

func (v Value) AsFunc() (*ast.FunctionDef, bool) { return v.fn, v.kind == KindFunc }

func (v Value) AsStruct() (map[string]Value, bool) {
	return v.fields, v.kind == KindStruct
}

// LinearParts returns the identity of a linear object.
func (v Value) LinearParts() (id, typename, payload string, ok bool) {
	return v.id, v.typename, v.payload, v.kind == KindLinear
}

// Unwrap strips a Return wrapper, if any.
func (v Value) Unwrap() Value {
	if v.kind == KindReturn {
		return *v.inner
	}
	return v
}

func (v Value) IsReturn() bool { return v.kind == KindReturn }

// Truthy reports whether the value drives a branch. Only booleans and
// nonzero integers count as true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	}
	return false
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnit:
		return true
	case KindInt:
		return v.i == o.i
	case KindStr:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindLinear:
		return v.id == o.id && v.typename == o.typename && v.payload == o.payload
	case KindFunc:
		return v.fn == o.fn
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindBuffer:
		if len(v.buf) != len(o.buf) {
			return false
		}
		for i := range v.buf {
			if v.buf[i] != o.buf[i] {
				return false
			}
		}
		return true
	case KindStruct:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, fv := range v.fields {
			ov, ok := o.fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case KindReturn:
		return v.inner.Equal(*o.inner)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindUnit:
		return "()"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindStr:
		return v.s
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindLinear:
		return fmt.Sprintf("<%s #%s>", v.typename, v.id)
	case KindFunc:
		return fmt.Sprintf("<func %s>", v.fn.Name)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindBuffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.buf))
	case KindStruct:
		return fmt.Sprintf("<struct %d fields>", len(v.fields))
	case KindReturn:
		return v.inner.String()
	}
	return "<?>"
}
