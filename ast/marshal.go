package ast

import (
	"encoding/json"
	"fmt"
)

// Every node serializes as a kind-tagged JSON object so a tree can be
// decoded without knowing its shape up front. The tag is spliced in
// front of the node's own fields.

func tagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(kind)+12)
	out = append(out, `{"kind":"`...)
	out = append(out, kind...)
	out = append(out, '"')
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

func (n *IntLit) MarshalJSON() ([]byte, error) {
	type alias IntLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *StrLit) MarshalJSON() ([]byte, error) {
	type alias StrLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *BoolLit) MarshalJSON() ([]byte, error) {
	type alias BoolLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *UnitLit) MarshalJSON() ([]byte, error) {
	type alias UnitLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Ident) MarshalJSON() ([]byte, error) {
	type alias Ident
	return tagged(n.Kind(), (*alias)(n))
}

func (n *ListLit) MarshalJSON() ([]byte, error) {
	type alias ListLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *StructLit) MarshalJSON() ([]byte, error) {
	type alias StructLit
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Binary) MarshalJSON() ([]byte, error) {
	type alias Binary
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Call) MarshalJSON() ([]byte, error) {
	type alias Call
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Let) MarshalJSON() ([]byte, error) {
	type alias Let
	return tagged(n.Kind(), (*alias)(n))
}

func (n *ExprStmt) MarshalJSON() ([]byte, error) {
	type alias ExprStmt
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Return) MarshalJSON() ([]byte, error) {
	type alias Return
	return tagged(n.Kind(), (*alias)(n))
}

func (n *If) MarshalJSON() ([]byte, error) {
	type alias If
	return tagged(n.Kind(), (*alias)(n))
}

func (n *While) MarshalJSON() ([]byte, error) {
	type alias While
	return tagged(n.Kind(), (*alias)(n))
}

func (n *Block) MarshalJSON() ([]byte, error) {
	type alias Block
	return tagged(n.Kind(), (*alias)(n))
}

func (n *FunctionDef) MarshalJSON() ([]byte, error) {
	type alias FunctionDef
	return tagged(n.Kind(), (*alias)(n))
}

func (n *StructDecl) MarshalJSON() ([]byte, error) {
	type alias StructDecl
	return tagged(n.Kind(), (*alias)(n))
}

// Decoding

type kindProbe struct {
	Kind string `json:"kind"`
}

// DecodeExpr decodes a kind-tagged expression node.
func DecodeExpr(data []byte) (Expr, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	var n Expr
	switch probe.Kind {
	case "int":
		n = &IntLit{}
	case "str":
		n = &StrLit{}
	case "bool":
		n = &BoolLit{}
	case "unit":
		n = &UnitLit{}
	case "ident":
		n = &Ident{}
	case "list":
		n = &ListLit{}
	case "struct":
		n = &StructLit{}
	case "binary":
		n = &Binary{}
	case "call":
		n = &Call{}
	default:
		return nil, fmt.Errorf("unknown expression kind %q", probe.Kind)
	}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DecodeStmt decodes a kind-tagged statement node.
func DecodeStmt(data []byte) (Stmt, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	var n Stmt
	switch probe.Kind {
	case "let":
		n = &Let{}
	case "expr":
		n = &ExprStmt{}
	case "return":
		n = &Return{}
	case "if":
		n = &If{}
	case "while":
		n = &While{}
	case "block":
		n = &Block{}
	case "func":
		n = &FunctionDef{}
	case "structdecl":
		n = &StructDecl{}
	default:
		return nil, fmt.Errorf("unknown statement kind %q", probe.Kind)
	}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeExprs(raw []json.RawMessage) ([]Expr, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]Expr, len(raw))
	for i, r := range raw {
		e, err := DecodeExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeStmts(raw []json.RawMessage) ([]Stmt, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]Stmt, len(raw))
	for i, r := range raw {
		s, err := DecodeStmt(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (n *ListLit) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos   Pos               `json:"pos"`
		Elems []json.RawMessage `json:"elems"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	elems, err := decodeExprs(shadow.Elems)
	if err != nil {
		return err
	}
	n.Pos = shadow.Pos
	n.Elems = elems
	return nil
}

func (n *StructLit) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos    Pos    `json:"pos"`
		Name   string `json:"name"`
		Fields []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	n.Pos = shadow.Pos
	n.Name = shadow.Name
	n.Fields = make([]Field, len(shadow.Fields))
	for i, f := range shadow.Fields {
		v, err := DecodeExpr(f.Value)
		if err != nil {
			return err
		}
		n.Fields[i] = Field{Name: f.Name, Value: v}
	}
	return nil
}

func (n *Binary) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos   Pos             `json:"pos"`
		Op    BinaryOp        `json:"op"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	left, err := DecodeExpr(shadow.Left)
	if err != nil {
		return err
	}
	right, err := DecodeExpr(shadow.Right)
	if err != nil {
		return err
	}
	n.Pos, n.Op, n.Left, n.Right = shadow.Pos, shadow.Op, left, right
	return nil
}

func (n *Call) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos    Pos               `json:"pos"`
		Callee string            `json:"callee"`
		Args   []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	args, err := decodeExprs(shadow.Args)
	if err != nil {
		return err
	}
	n.Pos, n.Callee, n.Args = shadow.Pos, shadow.Callee, args
	return nil
}

func (n *Let) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos   Pos             `json:"pos"`
		Name  string          `json:"name"`
		Type  *Type           `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	v, err := DecodeExpr(shadow.Value)
	if err != nil {
		return err
	}
	n.Pos, n.Name, n.Type, n.Value = shadow.Pos, shadow.Name, shadow.Type, v
	return nil
}

func (n *ExprStmt) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos  Pos             `json:"pos"`
		Expr json.RawMessage `json:"expr"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	e, err := DecodeExpr(shadow.Expr)
	if err != nil {
		return err
	}
	n.Pos, n.Expr = shadow.Pos, e
	return nil
}

func (n *Return) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos   Pos             `json:"pos"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	n.Pos = shadow.Pos
	if len(shadow.Value) > 0 {
		v, err := DecodeExpr(shadow.Value)
		if err != nil {
			return err
		}
		n.Value = v
	}
	return nil
}

func (n *If) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos  Pos               `json:"pos"`
		Cond json.RawMessage   `json:"cond"`
		Then []json.RawMessage `json:"then"`
		Else []json.RawMessage `json:"else"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	cond, err := DecodeExpr(shadow.Cond)
	if err != nil {
		return err
	}
	then, err := decodeStmts(shadow.Then)
	if err != nil {
		return err
	}
	els, err := decodeStmts(shadow.Else)
	if err != nil {
		return err
	}
	n.Pos, n.Cond, n.Then, n.Else = shadow.Pos, cond, then, els
	return nil
}

func (n *While) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos  Pos               `json:"pos"`
		Cond json.RawMessage   `json:"cond"`
		Body []json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	cond, err := DecodeExpr(shadow.Cond)
	if err != nil {
		return err
	}
	body, err := decodeStmts(shadow.Body)
	if err != nil {
		return err
	}
	n.Pos, n.Cond, n.Body = shadow.Pos, cond, body
	return nil
}

func (n *Block) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos   Pos               `json:"pos"`
		Stmts []json.RawMessage `json:"stmts"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	stmts, err := decodeStmts(shadow.Stmts)
	if err != nil {
		return err
	}
	n.Pos, n.Stmts = shadow.Pos, stmts
	return nil
}

func (n *FunctionDef) UnmarshalJSON(data []byte) error {
	var shadow struct {
		Pos    Pos               `json:"pos"`
		Name   string            `json:"name"`
		Params []Param           `json:"params"`
		Result Type              `json:"result"`
		Body   []json.RawMessage `json:"body"`
		Attrs  []string          `json:"attrs"`
	}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	body, err := decodeStmts(shadow.Body)
	if err != nil {
		return err
	}
	n.Pos, n.Name, n.Params, n.Result = shadow.Pos, shadow.Name, shadow.Params, shadow.Result
	n.Body, n.Attrs = body, shadow.Attrs
	return nil
}
