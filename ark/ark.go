package ark

import (
	"context"
	"os"
	"strings"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/checker"
	"github.com/merchantmoh-debug/ArkLang/codegen"
	"github.com/merchantmoh-debug/ArkLang/compiler"
	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/parser"
	"github.com/merchantmoh-debug/ArkLang/runtime"
	"github.com/merchantmoh-debug/ArkLang/vm"
	"github.com/merchantmoh-debug/ArkLang/witgen"
)

// Version of the toolchain.
const Version = "0.3.0"

// DefaultFuel bounds program execution when the embedder does not
// choose a budget.
const DefaultFuel = 1_000_000

// LoadFile reads a program from disk. Files ending in .json hold a
// hashed MAST envelope; everything else is parsed as source.
func LoadFile(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	if strings.HasSuffix(path, ".json") {
		return ast.Load(data)
	}
	return parser.Parse(path, string(data))
}

// LoadSource parses source text into a hashed program.
func LoadSource(name, src string) (*ast.Program, error) {
	return parser.Parse(name, src)
}

// Check runs the linear checker over a program.
func Check(prog *ast.Program) error {
	return checker.Check(prog.Content)
}

// Build checks a program and lowers it to bytecode.
func Build(prog *ast.Program) (*compiler.Chunk, error) {
	if err := Check(prog); err != nil {
		return nil, err
	}
	return compiler.Compile(prog)
}

// Run builds a program and executes its top-level code with the given
// fuel budget.
func Run(ctx context.Context, prog *ast.Program, fuel uint64, opts ...vm.Option) (runtime.Value, error) {
	chunk, err := Build(prog)
	if err != nil {
		return runtime.Unit, err
	}
	m, err := vm.New(chunk, prog.Hash, fuel, opts...)
	if err != nil {
		return runtime.Unit, err
	}
	return m.Run(ctx)
}

// CompileWASM checks a program and lowers it to a WASM binary.
func CompileWASM(prog *ast.Program) ([]byte, error) {
	if err := Check(prog); err != nil {
		return nil, err
	}
	return codegen.CompileToBytes(prog.Content)
}

// GenerateWIT renders the WIT interface a compiled module exposes.
func GenerateWIT(prog *ast.Program, packageName string) (string, error) {
	return witgen.Generate(prog.Content, packageName)
}
