package parser

import (
	"testing"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/errors"
)

const sampleSrc = `
// vector math helpers
struct Point { x: Int, y: Int }

#[export]
func add(a: Int, b: Int) -> Int {
    let sum: Int = a + b
    return sum
}

func classify(n: Int) -> Str {
    if n < 0 {
        return "negative"
    } else if n == 0 {
        return "zero"
    }
    return "positive"
}

func count_down(n: Int) -> Unit {
    while n > 0 {
        let m = n - 1
    }
}
`

func TestParseProgram(t *testing.T) {
	prog, err := Parse("sample.ark", sampleSrc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prog.Hash == "" {
		t.Fatal("program has no content hash")
	}
	if prog.Span == nil || prog.Span.File != "sample.ark" {
		t.Fatalf("span = %+v", prog.Span)
	}

	fns := ast.Functions(prog.Content.Stmts)
	if len(fns) != 3 {
		t.Fatalf("functions = %d, want 3", len(fns))
	}
	if !fns[0].HasAttr("export") {
		t.Fatal("add lost its export attribute")
	}
	if fns[1].HasAttr("export") {
		t.Fatal("classify gained an export attribute")
	}

	structs := ast.Structs(prog.Content.Stmts)
	if len(structs) != 1 || structs[0].Name != "Point" {
		t.Fatalf("structs = %v", structs)
	}
	if len(structs[0].Fields) != 2 || structs[0].Fields[1].Type.Kind != ast.TypeInt {
		t.Fatalf("struct fields = %+v", structs[0].Fields)
	}
}

func TestParseDeterministicHash(t *testing.T) {
	a, err := Parse("a.ark", sampleSrc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := Parse("b.ark", sampleSrc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Hash != b.Hash {
		t.Fatalf("same source hashed differently: %s vs %s", a.Hash, b.Hash)
	}
}

func TestParseFunctionSignature(t *testing.T) {
	block, err := ParseBlock(`func area(w: Int, h: Int) -> Int { return w * h }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := ast.Functions(block.Stmts)[0]
	if len(fn.Params) != 2 || fn.Params[0].Name != "w" || fn.Params[1].Type.Kind != ast.TypeInt {
		t.Fatalf("params = %+v", fn.Params)
	}
	if fn.Result.Kind != ast.TypeInt {
		t.Fatalf("result = %+v", fn.Result)
	}
}

func TestParseDefaultsToUnitResult(t *testing.T) {
	block, err := ParseBlock(`func log_it(msg: Str) { print(msg) }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := ast.Functions(block.Stmts)[0]
	if !fn.Result.IsUnit() {
		t.Fatalf("result = %+v, want Unit", fn.Result)
	}
}

func TestParsePrecedence(t *testing.T) {
	block, err := ParseBlock(`let r = 1 + 2 * 3`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	let := block.Stmts[0].(*ast.Let)
	bin := let.Value.(*ast.Binary)
	if bin.Op != ast.OpAdd {
		t.Fatalf("top op = %s, want +", bin.Op)
	}
	right := bin.Right.(*ast.Binary)
	if right.Op != ast.OpMul {
		t.Fatalf("right op = %s, want *", right.Op)
	}
}

func TestParseGrouping(t *testing.T) {
	block, err := ParseBlock(`let r = (1 + 2) * 3`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	let := block.Stmts[0].(*ast.Let)
	bin := let.Value.(*ast.Binary)
	if bin.Op != ast.OpMul {
		t.Fatalf("top op = %s, want *", bin.Op)
	}
}

func TestParseLiterals(t *testing.T) {
	block, err := ParseBlock(`
let a = "hi\nthere"
let b = true
let c = ()
let d = [1, 2, 3]
let e = Point { x: 1, y: 2 }
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(block.Stmts) != 5 {
		t.Fatalf("statements = %d", len(block.Stmts))
	}

	str := block.Stmts[0].(*ast.Let).Value.(*ast.StrLit)
	if str.Value != "hi\nthere" {
		t.Fatalf("string = %q", str.Value)
	}
	if !block.Stmts[1].(*ast.Let).Value.(*ast.BoolLit).Value {
		t.Fatal("bool literal lost")
	}
	if _, ok := block.Stmts[2].(*ast.Let).Value.(*ast.UnitLit); !ok {
		t.Fatal("unit literal lost")
	}
	list := block.Stmts[3].(*ast.Let).Value.(*ast.ListLit)
	if len(list.Elems) != 3 {
		t.Fatalf("list elems = %d", len(list.Elems))
	}
	lit := block.Stmts[4].(*ast.Let).Value.(*ast.StructLit)
	if lit.Name != "Point" || len(lit.Fields) != 2 {
		t.Fatalf("struct literal = %+v", lit)
	}
}

func TestParseIfConditionNotStructLiteral(t *testing.T) {
	// A lowercase identifier before a brace opens the block, it never
	// starts a struct literal.
	block, err := ParseBlock(`
func f(flag: Bool) -> Int {
    if flag {
        return 1
    }
    return 0
}
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := ast.Functions(block.Stmts)[0]
	stmt, ok := fn.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("first body stmt = %T", fn.Body[0])
	}
	if _, ok := stmt.Cond.(*ast.Ident); !ok {
		t.Fatalf("condition = %T, want identifier", stmt.Cond)
	}
}

func TestParseGenericTypes(t *testing.T) {
	block, err := ParseBlock(`func f(xs: List<Int>, m: Map<Str, Int>, o: Optional<Str>) -> Unit { return }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := ast.Functions(block.Stmts)[0]
	if fn.Params[0].Type.String() != "List<Int>" {
		t.Fatalf("param 0 = %s", fn.Params[0].Type.String())
	}
	if fn.Params[1].Type.String() != "Map<Str, Int>" {
		t.Fatalf("param 1 = %s", fn.Params[1].Type.String())
	}
	if fn.Params[2].Type.String() != "Optional<Str>" {
		t.Fatalf("param 2 = %s", fn.Params[2].Type.String())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated string", `let s = "oops`},
		{"missing paren", `func f( { }`},
		{"bad character", `let x = 1 ? 2`},
		{"missing brace", `func f() { return 1`},
		{"attr without func", `#[export] let x = 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlock(tt.src)
			if err == nil {
				t.Fatalf("expected syntax error for %q", tt.src)
			}
			var arkErr *errors.Error
			if !errors.As(err, &arkErr) {
				t.Fatalf("error type = %T", err)
			}
			if arkErr.Phase != errors.PhaseParse {
				t.Fatalf("phase = %s", arkErr.Phase)
			}
			if arkErr.Line == 0 {
				t.Fatal("syntax error carries no line")
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseBlock("let a = 1\nlet b = $")
	if err == nil {
		t.Fatal("expected error")
	}
	var arkErr *errors.Error
	if !errors.As(err, &arkErr) {
		t.Fatalf("error type = %T", err)
	}
	if arkErr.Line != 2 {
		t.Fatalf("line = %d, want 2", arkErr.Line)
	}
}
