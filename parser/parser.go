package parser

import (
	"strconv"
	"strings"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
)

// Parse tokenizes and parses a source file into a content-addressed
// program envelope. The file name only feeds the span, it does not
// affect the content hash.
func Parse(file, src string) (*ast.Program, error) {
	block, err := ParseBlock(src)
	if err != nil {
		return nil, err
	}

	span := &ast.Span{File: file, StartLine: 1, StartCol: 1}
	span.EndLine = 1 + strings.Count(src, "\n")
	return ast.NewProgram(block, span)
}

// ParseBlock parses a sequence of top-level statements.
func ParseBlock(src string) (*ast.Block, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmts, err := p.statements(func() bool { return p.cur().Kind == tokEOF })
	if err != nil {
		return nil, err
	}
	return &ast.Block{Stmts: stmts}, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.Kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.cur()
	return t.Kind == kind && t.Text == text
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if p.at(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	if p.at(kind, text) {
		return p.advance(), nil
	}
	t := p.cur()
	got := t.Text
	if t.Kind == tokEOF {
		got = "end of input"
	}
	return token{}, errors.Syntax(t.Line, t.Col, "expected "+strconv.Quote(text)+", found "+strconv.Quote(got))
}

func (p *parser) expectIdent() (token, error) {
	t := p.cur()
	if t.Kind != tokIdent {
		return token{}, errors.Syntax(t.Line, t.Col, "expected identifier, found "+strconv.Quote(t.Text))
	}
	return p.advance(), nil
}

func pos(t token) ast.Pos { return ast.Pos{Line: t.Line, Col: t.Col} }

func (p *parser) statements(done func() bool) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !done() {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *parser) statement() (ast.Stmt, error) {
	t := p.cur()
	switch {
	case p.at(tokPunct, "#["):
		attrs, err := p.attributes()
		if err != nil {
			return nil, err
		}
		fn, err := p.functionDef()
		if err != nil {
			return nil, err
		}
		fn.Attrs = attrs
		return fn, nil
	case p.at(tokKeyword, "func"):
		return p.functionDef()
	case p.at(tokKeyword, "struct"):
		return p.structDecl()
	case p.at(tokKeyword, "let"):
		return p.letStmt()
	case p.at(tokKeyword, "return"):
		return p.returnStmt()
	case p.at(tokKeyword, "if"):
		return p.ifStmt()
	case p.at(tokKeyword, "while"):
		return p.whileStmt()
	case p.at(tokPunct, "{"):
		body, err := p.braceBlock()
		if err != nil {
			return nil, err
		}
		return &ast.Block{Pos: pos(t), Stmts: body}, nil
	}

	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.accept(tokPunct, ";")
	return &ast.ExprStmt{Pos: pos(t), Expr: e}, nil
}

// attributes parses one or more #[name] markers before a function.
func (p *parser) attributes() ([]string, error) {
	var attrs []string
	for p.accept(tokPunct, "#[") {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPunct, "]"); err != nil {
			return nil, err
		}
		attrs = append(attrs, name.Text)
	}
	return attrs, nil
}

func (p *parser) functionDef() (*ast.FunctionDef, error) {
	kw, err := p.expect(tokKeyword, "func")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokPunct, "("); err != nil {
		return nil, err
	}

	var params []ast.Param
	for !p.at(tokPunct, ")") {
		if len(params) > 0 {
			if _, err := p.expect(tokPunct, ","); err != nil {
				return nil, err
			}
		}
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPunct, ":"); err != nil {
			return nil, err
		}
		typ, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname.Text, Type: typ})
	}
	if _, err := p.expect(tokPunct, ")"); err != nil {
		return nil, err
	}

	result := ast.Unit
	if p.accept(tokPunct, "->") {
		result, err = p.typeRef()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.braceBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{
		Pos:    pos(kw),
		Name:   name.Text,
		Params: params,
		Result: result,
		Body:   body,
	}, nil
}

func (p *parser) structDecl() (*ast.StructDecl, error) {
	kw, err := p.expect(tokKeyword, "struct")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return nil, err
	}

	var fields []ast.StructItem
	for !p.at(tokPunct, "}") {
		if len(fields) > 0 {
			if _, err := p.expect(tokPunct, ","); err != nil {
				return nil, err
			}
			if p.at(tokPunct, "}") { // trailing comma
				break
			}
		}
		fname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPunct, ":"); err != nil {
			return nil, err
		}
		typ, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructItem{Name: fname.Text, Type: typ})
	}
	if _, err := p.expect(tokPunct, "}"); err != nil {
		return nil, err
	}
	return &ast.StructDecl{Pos: pos(kw), Name: name.Text, Fields: fields}, nil
}

func (p *parser) letStmt() (ast.Stmt, error) {
	kw, err := p.expect(tokKeyword, "let")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var typ *ast.Type
	if p.accept(tokPunct, ":") {
		t, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		typ = &t
	}

	if _, err := p.expect(tokPunct, "="); err != nil {
		return nil, err
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.accept(tokPunct, ";")
	return &ast.Let{Pos: pos(kw), Name: name.Text, Type: typ, Value: value}, nil
}

func (p *parser) returnStmt() (ast.Stmt, error) {
	kw, err := p.expect(tokKeyword, "return")
	if err != nil {
		return nil, err
	}
	if p.at(tokPunct, "}") || p.accept(tokPunct, ";") {
		return &ast.Return{Pos: pos(kw)}, nil
	}
	value, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.accept(tokPunct, ";")
	return &ast.Return{Pos: pos(kw), Value: value}, nil
}

func (p *parser) ifStmt() (ast.Stmt, error) {
	kw, err := p.expect(tokKeyword, "if")
	if err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	then, err := p.braceBlock()
	if err != nil {
		return nil, err
	}

	var els []ast.Stmt
	if p.accept(tokKeyword, "else") {
		if p.at(tokKeyword, "if") {
			nested, err := p.ifStmt()
			if err != nil {
				return nil, err
			}
			els = []ast.Stmt{nested}
		} else {
			els, err = p.braceBlock()
			if err != nil {
				return nil, err
			}
		}
	}
	return &ast.If{Pos: pos(kw), Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) whileStmt() (ast.Stmt, error) {
	kw, err := p.expect(tokKeyword, "while")
	if err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.braceBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Pos: pos(kw), Cond: cond, Body: body}, nil
}

func (p *parser) braceBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return nil, err
	}
	stmts, err := p.statements(func() bool {
		return p.at(tokPunct, "}") || p.cur().Kind == tokEOF
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokPunct, "}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// typeRef parses a type reference, re-joining generic arguments into
// the textual form the ast type parser understands.
func (p *parser) typeRef() (ast.Type, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.Type{}, err
	}
	text := name.Text
	if p.accept(tokPunct, "<") {
		inner, err := p.typeRef()
		if err != nil {
			return ast.Type{}, err
		}
		text += "<" + inner.String()
		for p.accept(tokPunct, ",") {
			next, err := p.typeRef()
			if err != nil {
				return ast.Type{}, err
			}
			text += ", " + next.String()
		}
		if _, err := p.expect(tokPunct, ">"); err != nil {
			return ast.Type{}, err
		}
		text += ">"
	}
	return ast.ParseType(text), nil
}

// Expression precedence, loosest first: equality, comparison,
// additive, multiplicative, primary.

func (p *parser) expr() (ast.Expr, error) {
	return p.equality()
}

func (p *parser) equality() (ast.Expr, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(tokPunct, "=="):
			op = ast.OpEq
		case p.at(tokPunct, "!="):
			op = ast.OpNe
		default:
			return left, nil
		}
		t := p.advance()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: pos(t), Op: op, Left: left, Right: right}
	}
}

func (p *parser) comparison() (ast.Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(tokPunct, "<"):
			op = ast.OpLt
		case p.at(tokPunct, ">"):
			op = ast.OpGt
		default:
			return left, nil
		}
		t := p.advance()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: pos(t), Op: op, Left: left, Right: right}
	}
}

func (p *parser) additive() (ast.Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(tokPunct, "+"):
			op = ast.OpAdd
		case p.at(tokPunct, "-"):
			op = ast.OpSub
		default:
			return left, nil
		}
		t := p.advance()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: pos(t), Op: op, Left: left, Right: right}
	}
}

func (p *parser) multiplicative() (ast.Expr, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.at(tokPunct, "*"):
			op = ast.OpMul
		case p.at(tokPunct, "/"):
			op = ast.OpDiv
		case p.at(tokPunct, "%"):
			op = ast.OpMod
		default:
			return left, nil
		}
		t := p.advance()
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: pos(t), Op: op, Left: left, Right: right}
	}
}

func (p *parser) primary() (ast.Expr, error) {
	t := p.cur()

	switch t.Kind {
	case tokInt:
		p.advance()
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, errors.Syntax(t.Line, t.Col, "integer literal out of range")
		}
		return &ast.IntLit{Pos: pos(t), Value: v}, nil

	case tokStr:
		p.advance()
		return &ast.StrLit{Pos: pos(t), Value: t.Text}, nil

	case tokKeyword:
		switch t.Text {
		case "true":
			p.advance()
			return &ast.BoolLit{Pos: pos(t), Value: true}, nil
		case "false":
			p.advance()
			return &ast.BoolLit{Pos: pos(t), Value: false}, nil
		}

	case tokIdent:
		p.advance()
		if p.at(tokPunct, "(") {
			return p.callArgs(t)
		}
		// Struct literals are only recognized after capitalized names,
		// so block-opening braces after a condition stay unambiguous.
		if p.at(tokPunct, "{") && isCapitalized(t.Text) {
			return p.structLit(t)
		}
		return &ast.Ident{Pos: pos(t), Name: t.Text}, nil

	case tokPunct:
		switch t.Text {
		case "(":
			p.advance()
			if p.accept(tokPunct, ")") {
				return &ast.UnitLit{Pos: pos(t)}, nil
			}
			inner, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokPunct, ")"); err != nil {
				return nil, err
			}
			return inner, nil
		case "[":
			p.advance()
			var elems []ast.Expr
			for !p.at(tokPunct, "]") {
				if len(elems) > 0 {
					if _, err := p.expect(tokPunct, ","); err != nil {
						return nil, err
					}
				}
				e, err := p.expr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			if _, err := p.expect(tokPunct, "]"); err != nil {
				return nil, err
			}
			return &ast.ListLit{Pos: pos(t), Elems: elems}, nil
		}
	}

	got := t.Text
	if t.Kind == tokEOF {
		got = "end of input"
	}
	return nil, errors.Syntax(t.Line, t.Col, "unexpected "+strconv.Quote(got))
}

func (p *parser) callArgs(name token) (ast.Expr, error) {
	if _, err := p.expect(tokPunct, "("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(tokPunct, ")") {
		if len(args) > 0 {
			if _, err := p.expect(tokPunct, ","); err != nil {
				return nil, err
			}
		}
		a, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if _, err := p.expect(tokPunct, ")"); err != nil {
		return nil, err
	}
	return &ast.Call{Pos: pos(name), Callee: name.Text, Args: args}, nil
}

func (p *parser) structLit(name token) (ast.Expr, error) {
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return nil, err
	}
	var fields []ast.Field
	for !p.at(tokPunct, "}") {
		if len(fields) > 0 {
			if _, err := p.expect(tokPunct, ","); err != nil {
				return nil, err
			}
			if p.at(tokPunct, "}") {
				break
			}
		}
		fname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokPunct, ":"); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.Field{Name: fname.Text, Value: value})
	}
	if _, err := p.expect(tokPunct, "}"); err != nil {
		return nil, err
	}
	return &ast.StructLit{Pos: pos(name), Name: name.Text, Fields: fields}, nil
}

func isCapitalized(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
