// Package checker enforces the linear ownership discipline at compile
// time. Every linear binding must be consumed exactly once: a second
// use is a double-use violation, an unconsumed binding at scope exit
// is a leak. The checker fails fast on the first violation, so code
// that reaches the compiler is already linearity-clean.
package checker

import (
	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
)

// Check validates a whole program.
func Check(block *ast.Block) error {
	c := &checker{
		funcs:   map[string]*ast.FunctionDef{},
		structs: map[string]*ast.StructDecl{},
	}
	for _, fn := range ast.Functions(block.Stmts) {
		c.funcs[fn.Name] = fn
	}
	for _, sd := range ast.Structs(block.Stmts) {
		c.structs[sd.Name] = sd
	}

	top := c.push(nil, false)
	for _, s := range block.Stmts {
		if err := c.stmt(top, s); err != nil {
			return err
		}
	}
	return c.pop(top)
}

type binding struct {
	linear   bool
	consumed bool
	loop     int // loop depth at declaration
	pos      ast.Pos
}

type scope struct {
	vars   map[string]*binding
	parent *scope
	loop   int
}

type checker struct {
	funcs   map[string]*ast.FunctionDef
	structs map[string]*ast.StructDecl
}

func (c *checker) push(parent *scope, inLoop bool) *scope {
	s := &scope{vars: map[string]*binding{}, parent: parent}
	if parent != nil {
		s.loop = parent.loop
	}
	if inLoop {
		s.loop++
	}
	return s
}

// pop sweeps a scope for linear bindings that were never consumed.
func (c *checker) pop(s *scope) error {
	for name, b := range s.vars {
		if b.linear && !b.consumed {
			return errors.Leak(name, b.pos.Line, b.pos.Col)
		}
	}
	return nil
}

func (s *scope) lookup(name string) *binding {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b
		}
	}
	return nil
}

// isLinearType reports whether values of a surface type are
// single-owner. Containers and struct references are linear,
// primitives are shared.
func isLinearType(t ast.Type) bool {
	switch t.Kind {
	case ast.TypeList, ast.TypeMap, ast.TypeStruct:
		return true
	case ast.TypeOptional:
		return t.Elem != nil && isLinearType(*t.Elem)
	}
	return false
}

// exprLinear reports whether evaluating an expression produces a
// linear value. Identifiers inherit from their binding, calls from the
// callee's declared result type.
func (c *checker) exprLinear(s *scope, e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.ListLit, *ast.StructLit:
		return true
	case *ast.Ident:
		if b := s.lookup(x.Name); b != nil {
			return b.linear
		}
		return false
	case *ast.Call:
		if fn, ok := c.funcs[x.Callee]; ok {
			return isLinearType(fn.Result)
		}
		return false
	}
	return false
}

func (c *checker) stmt(s *scope, n ast.Stmt) error {
	switch x := n.(type) {
	case *ast.Let:
		if err := c.expr(s, x.Value); err != nil {
			return err
		}
		linear := false
		if x.Type != nil {
			linear = isLinearType(*x.Type)
		} else {
			linear = c.exprLinear(s, x.Value)
		}
		// rebinding a live linear value leaks the old one
		if old, ok := s.vars[x.Name]; ok && old.linear && !old.consumed {
			return errors.Leak(x.Name, old.pos.Line, old.pos.Col)
		}
		s.vars[x.Name] = &binding{linear: linear, loop: s.loop, pos: x.Pos}
		return nil

	case *ast.ExprStmt:
		return c.expr(s, x.Expr)

	case *ast.Return:
		if x.Value != nil {
			return c.expr(s, x.Value)
		}
		return nil

	case *ast.If:
		if err := c.expr(s, x.Cond); err != nil {
			return err
		}
		if err := c.block(s, x.Then, false); err != nil {
			return err
		}
		return c.block(s, x.Else, false)

	case *ast.While:
		if err := c.expr(s, x.Cond); err != nil {
			return err
		}
		return c.block(s, x.Body, true)

	case *ast.Block:
		return c.block(s, x.Stmts, false)

	case *ast.FunctionDef:
		return c.function(x)

	case *ast.StructDecl:
		return nil
	}
	return nil
}

func (c *checker) block(parent *scope, stmts []ast.Stmt, inLoop bool) error {
	if stmts == nil {
		return nil
	}
	s := c.push(parent, inLoop)
	for _, st := range stmts {
		if err := c.stmt(s, st); err != nil {
			return err
		}
	}
	return c.pop(s)
}

func (c *checker) function(fn *ast.FunctionDef) error {
	s := c.push(nil, false)
	for _, p := range fn.Params {
		s.vars[p.Name] = &binding{linear: isLinearType(p.Type), loop: 0, pos: fn.Pos}
	}
	for _, st := range fn.Body {
		if err := c.stmt(s, st); err != nil {
			return err
		}
	}
	return c.pop(s)
}

func (c *checker) expr(s *scope, e ast.Expr) error {
	switch x := e.(type) {
	case *ast.Ident:
		b := s.lookup(x.Name)
		if b == nil {
			return nil // free name, resolved later as function or intrinsic
		}
		if !b.linear {
			return nil
		}
		if b.consumed {
			return errors.DoubleUse(x.Name, x.Pos.Line, x.Pos.Col)
		}
		// consuming inside a loop a value declared outside it would
		// consume again on the next iteration
		if s.loop > b.loop {
			return errors.DoubleUse(x.Name, x.Pos.Line, x.Pos.Col)
		}
		b.consumed = true
		return nil

	case *ast.Binary:
		if err := c.expr(s, x.Left); err != nil {
			return err
		}
		return c.expr(s, x.Right)

	case *ast.Call:
		for _, a := range x.Args {
			if err := c.expr(s, a); err != nil {
				return err
			}
		}
		return nil

	case *ast.ListLit:
		for _, el := range x.Elems {
			if err := c.expr(s, el); err != nil {
				return err
			}
		}
		return nil

	case *ast.StructLit:
		for _, f := range x.Fields {
			if err := c.expr(s, f.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
