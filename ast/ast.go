package ast

// Pos is a source position. Zero value means "unknown".
type Pos struct {
	Line int `json:"line,omitempty"`
	Col  int `json:"col,omitempty"`
}

// Span is a source range attached to a content-addressed program.
type Span struct {
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Node is implemented by every AST node.
type Node interface {
	Kind() string
	NodePos() Pos
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// BinaryOp is a binary operator token.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpMod BinaryOp = "%"
	OpLt  BinaryOp = "<"
	OpGt  BinaryOp = ">"
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
)

// Expressions

type IntLit struct {
	Pos   Pos   `json:"pos,omitempty"`
	Value int64 `json:"value"`
}

func (n *IntLit) Kind() string { return "int" }
func (n *IntLit) NodePos() Pos { return n.Pos }
func (n *IntLit) exprNode()    {}

type StrLit struct {
	Pos   Pos    `json:"pos,omitempty"`
	Value string `json:"value"`
}

func (n *StrLit) Kind() string { return "str" }
func (n *StrLit) NodePos() Pos { return n.Pos }
func (n *StrLit) exprNode()    {}

type BoolLit struct {
	Pos   Pos  `json:"pos,omitempty"`
	Value bool `json:"value"`
}

func (n *BoolLit) Kind() string { return "bool" }
func (n *BoolLit) NodePos() Pos { return n.Pos }
func (n *BoolLit) exprNode()    {}

type UnitLit struct {
	Pos Pos `json:"pos,omitempty"`
}

func (n *UnitLit) Kind() string { return "unit" }
func (n *UnitLit) NodePos() Pos { return n.Pos }
func (n *UnitLit) exprNode()    {}

// Ident is a variable reference. Reading an identifier bound to a linear
// value consumes it; see the checker and runtime scope semantics.
type Ident struct {
	Pos  Pos    `json:"pos,omitempty"`
	Name string `json:"name"`
}

func (n *Ident) Kind() string { return "ident" }
func (n *Ident) NodePos() Pos { return n.Pos }
func (n *Ident) exprNode()    {}

type ListLit struct {
	Pos   Pos    `json:"pos,omitempty"`
	Elems []Expr `json:"elems"`
}

func (n *ListLit) Kind() string { return "list" }
func (n *ListLit) NodePos() Pos { return n.Pos }
func (n *ListLit) exprNode()    {}

// StructLit instantiates a declared struct. Field order is declaration order.
type StructLit struct {
	Pos    Pos     `json:"pos,omitempty"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

type Field struct {
	Name  string `json:"name"`
	Value Expr   `json:"value"`
}

func (n *StructLit) Kind() string { return "struct" }
func (n *StructLit) NodePos() Pos { return n.Pos }
func (n *StructLit) exprNode()    {}

type Binary struct {
	Pos   Pos      `json:"pos,omitempty"`
	Op    BinaryOp `json:"op"`
	Left  Expr     `json:"left"`
	Right Expr     `json:"right"`
}

func (n *Binary) Kind() string { return "binary" }
func (n *Binary) NodePos() Pos { return n.Pos }
func (n *Binary) exprNode()    {}

// Call invokes a named function or intrinsic. Callee resolution happens
// at compile time, never by name at runtime.
type Call struct {
	Pos    Pos    `json:"pos,omitempty"`
	Callee string `json:"callee"`
	Args   []Expr `json:"args"`
}

func (n *Call) Kind() string { return "call" }
func (n *Call) NodePos() Pos { return n.Pos }
func (n *Call) exprNode()    {}

// Statements

type Let struct {
	Pos   Pos    `json:"pos,omitempty"`
	Name  string `json:"name"`
	Type  *Type  `json:"type,omitempty"`
	Value Expr   `json:"value"`
}

func (n *Let) Kind() string { return "let" }
func (n *Let) NodePos() Pos { return n.Pos }
func (n *Let) stmtNode()    {}

type ExprStmt struct {
	Pos  Pos  `json:"pos,omitempty"`
	Expr Expr `json:"expr"`
}

func (n *ExprStmt) Kind() string { return "expr" }
func (n *ExprStmt) NodePos() Pos { return n.Pos }
func (n *ExprStmt) stmtNode()    {}

type Return struct {
	Pos   Pos  `json:"pos,omitempty"`
	Value Expr `json:"value,omitempty"`
}

func (n *Return) Kind() string { return "return" }
func (n *Return) NodePos() Pos { return n.Pos }
func (n *Return) stmtNode()    {}

type If struct {
	Pos  Pos    `json:"pos,omitempty"`
	Cond Expr   `json:"cond"`
	Then []Stmt `json:"then"`
	Else []Stmt `json:"else,omitempty"`
}

func (n *If) Kind() string { return "if" }
func (n *If) NodePos() Pos { return n.Pos }
func (n *If) stmtNode()    {}

type While struct {
	Pos  Pos    `json:"pos,omitempty"`
	Cond Expr   `json:"cond"`
	Body []Stmt `json:"body"`
}

func (n *While) Kind() string { return "while" }
func (n *While) NodePos() Pos { return n.Pos }
func (n *While) stmtNode()    {}

// Block is a statement list with its own lexical scope.
type Block struct {
	Pos   Pos    `json:"pos,omitempty"`
	Stmts []Stmt `json:"stmts"`
}

func (n *Block) Kind() string { return "block" }
func (n *Block) NodePos() Pos { return n.Pos }
func (n *Block) stmtNode()    {}

// Param is a named, typed function parameter.
type Param struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// FunctionDef declares a top-level or nested function. Attrs carries
// source attributes such as "export".
type FunctionDef struct {
	Pos    Pos      `json:"pos,omitempty"`
	Name   string   `json:"name"`
	Params []Param  `json:"params"`
	Result Type     `json:"result"`
	Body   []Stmt   `json:"body"`
	Attrs  []string `json:"attrs,omitempty"`
}

func (n *FunctionDef) Kind() string { return "func" }
func (n *FunctionDef) NodePos() Pos { return n.Pos }
func (n *FunctionDef) stmtNode()    {}

// HasAttr reports whether the function carries the named attribute.
func (n *FunctionDef) HasAttr(name string) bool {
	for _, a := range n.Attrs {
		if a == name {
			return true
		}
	}
	return false
}

// StructDecl declares a record type. Fields keep declaration order.
type StructDecl struct {
	Pos    Pos          `json:"pos,omitempty"`
	Name   string       `json:"name"`
	Fields []StructItem `json:"fields"`
}

type StructItem struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

func (n *StructDecl) Kind() string { return "structdecl" }
func (n *StructDecl) NodePos() Pos { return n.Pos }
func (n *StructDecl) stmtNode()    {}

// Functions returns all function definitions in a top-level block,
// in declaration order.
func Functions(stmts []Stmt) []*FunctionDef {
	var defs []*FunctionDef
	for _, s := range stmts {
		if f, ok := s.(*FunctionDef); ok {
			defs = append(defs, f)
		}
	}
	return defs
}

// Structs returns all struct declarations in a top-level block,
// in declaration order.
func Structs(stmts []Stmt) []*StructDecl {
	var decls []*StructDecl
	for _, s := range stmts {
		if d, ok := s.(*StructDecl); ok {
			decls = append(decls, d)
		}
	}
	return decls
}
