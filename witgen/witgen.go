// Package witgen emits WIT interface definitions for compiled modules
// so they can participate in the Component Model ecosystem. Surface
// types are resolved to wit.Type values first, then rendered.
package witgen

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/merchantmoh-debug/ArkLang/ast"
	"github.com/merchantmoh-debug/ArkLang/codegen"
	"github.com/merchantmoh-debug/ArkLang/errors"
)

// Interface is a WIT interface plus the world that exports it.
type Interface struct {
	Package   string
	Name      string
	Functions []Function
	Records   []Record
}

// Function is one exported function signature. A nil Result means the
// function returns nothing.
type Function struct {
	Name   string
	Params []Param
	Result wit.Type
}

type Param struct {
	Name string
	Type wit.Type
}

// Record is a named record type derived from a struct declaration.
type Record struct {
	Name   string
	Fields []Param
}

// ResolveType maps a surface type onto its wit.Type. Unit has no WIT
// representation and resolves to nil.
func ResolveType(t ast.Type) (wit.Type, error) {
	switch t.Kind {
	case ast.TypeInt:
		return wit.S64{}, nil
	case ast.TypeStr:
		return wit.String{}, nil
	case ast.TypeBool:
		return wit.Bool{}, nil
	case ast.TypeFloat:
		return wit.F64{}, nil
	case ast.TypeUnit:
		return nil, nil
	case ast.TypeAny:
		// no dedicated WIT type, falls back to the i64 ABI
		return wit.S64{}, nil
	case ast.TypeList:
		elem, err := ResolveType(*t.Elem)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case ast.TypeOptional:
		elem, err := ResolveType(*t.Elem)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: elem}}, nil
	case ast.TypeMap:
		key, err := ResolveType(*t.Key)
		if err != nil {
			return nil, err
		}
		val, err := ResolveType(*t.Value)
		if err != nil {
			return nil, err
		}
		pair := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{key, val}}}
		return &wit.TypeDef{Kind: &wit.List{Type: pair}}, nil
	case ast.TypeStruct:
		return &wit.TypeDef{Name: named(Ident(t.Name))}, nil
	}
	return nil, errors.Unsupported(errors.PhaseWit, fmt.Sprintf("type %s in WIT interface", t))
}

func named(name string) *string { return &name }

// Ident converts a surface name to a kebab-case WIT identifier.
func Ident(name string) string {
	var b strings.Builder
	for i, c := range name {
		switch {
		case c >= 'A' && c <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(c + ('a' - 'A'))
		case c == '_':
			b.WriteByte('-')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// FromBlock builds the interface for a top-level block. The export
// policy matches the WASM backend, so the WIT file describes exactly
// what the compiled module exposes.
func FromBlock(block *ast.Block, packageName string) (*Interface, error) {
	fns := ast.Functions(block.Stmts)
	exported := codegen.Exported(fns)

	iface := &Interface{Package: packageName, Name: "exports"}

	for _, decl := range ast.Structs(block.Stmts) {
		rec := Record{Name: Ident(decl.Name)}
		for _, f := range decl.Fields {
			ft, err := ResolveType(f.Type)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, Param{Name: Ident(f.Name), Type: ft})
		}
		iface.Records = append(iface.Records, rec)
	}

	for _, fn := range fns {
		if !exported[fn.Name] {
			continue
		}
		out := Function{Name: Ident(fn.Name)}
		for _, p := range fn.Params {
			pt, err := ResolveType(p.Type)
			if err != nil {
				return nil, err
			}
			out.Params = append(out.Params, Param{Name: Ident(p.Name), Type: pt})
		}
		if !fn.Result.IsUnit() {
			rt, err := ResolveType(fn.Result)
			if err != nil {
				return nil, err
			}
			out.Result = rt
		}
		iface.Functions = append(iface.Functions, out)
	}
	return iface, nil
}

// Render produces the .wit source text.
func (i *Interface) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s;\n\n", i.Package)
	fmt.Fprintf(&b, "interface %s {\n", i.Name)

	for _, rec := range i.Records {
		fmt.Fprintf(&b, "  record %s {\n", rec.Name)
		for _, f := range rec.Fields {
			fmt.Fprintf(&b, "    %s: %s,\n", f.Name, typeText(f.Type))
		}
		b.WriteString("  }\n\n")
	}

	for _, fn := range i.Functions {
		params := make([]string, len(fn.Params))
		for j, p := range fn.Params {
			params[j] = fmt.Sprintf("%s: %s", p.Name, typeText(p.Type))
		}
		if fn.Result != nil {
			fmt.Fprintf(&b, "  %s: func(%s) -> %s;\n", fn.Name, strings.Join(params, ", "), typeText(fn.Result))
		} else {
			fmt.Fprintf(&b, "  %s: func(%s);\n", fn.Name, strings.Join(params, ", "))
		}
	}
	b.WriteString("}\n\n")

	world := Ident(strings.ReplaceAll(i.Package, ":", "-"))
	fmt.Fprintf(&b, "world %s {\n  export %s;\n}\n", world, i.Name)
	return b.String()
}

// typeText renders a wit.Type in .wit surface syntax.
func typeText(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S64:
		return "s64"
	case wit.F64:
		return "float64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + typeText(k.Type) + ">"
		case *wit.Option:
			return "option<" + typeText(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = typeText(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		}
	}
	return "s64"
}

// Generate renders the WIT text for a block in one step.
func Generate(block *ast.Block, packageName string) (string, error) {
	iface, err := FromBlock(block, packageName)
	if err != nil {
		return "", err
	}
	return iface.Render(), nil
}
