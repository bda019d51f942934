package ast

import "strings"

// TypeKind discriminates the Type union.
type TypeKind string

const (
	TypeInt      TypeKind = "int"
	TypeStr      TypeKind = "str"
	TypeBool     TypeKind = "bool"
	TypeUnit     TypeKind = "unit"
	TypeFloat    TypeKind = "float"
	TypeList     TypeKind = "list"
	TypeMap      TypeKind = "map"
	TypeOptional TypeKind = "optional"
	TypeStruct   TypeKind = "struct"
	TypeAny      TypeKind = "any"
)

// Type describes an Ark surface type. Elem is set for list/optional,
// Key and Value for map, Name for struct references.
type Type struct {
	Kind  TypeKind `json:"kind"`
	Name  string   `json:"name,omitempty"`
	Elem  *Type    `json:"elem,omitempty"`
	Key   *Type    `json:"key,omitempty"`
	Value *Type    `json:"value,omitempty"`
}

// Unit is the zero return type.
var Unit = Type{Kind: TypeUnit}

// ParseType resolves a surface type name to a Type. Compound names use
// angle brackets: List<Int>, Map<Str, Int>, Optional<Bool>. Unknown
// names are struct references.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	switch s {
	case "Int":
		return Type{Kind: TypeInt}
	case "Str", "String":
		return Type{Kind: TypeStr}
	case "Bool":
		return Type{Kind: TypeBool}
	case "Unit", "":
		return Type{Kind: TypeUnit}
	case "Float":
		return Type{Kind: TypeFloat}
	case "Any":
		return Type{Kind: TypeAny}
	}

	if inner, ok := genericArg(s, "List"); ok {
		t := ParseType(inner)
		return Type{Kind: TypeList, Elem: &t}
	}
	if inner, ok := genericArg(s, "Optional"); ok {
		t := ParseType(inner)
		return Type{Kind: TypeOptional, Elem: &t}
	}
	if inner, ok := genericArg(s, "Map"); ok {
		k, v := splitPair(inner)
		kt, vt := ParseType(k), ParseType(v)
		return Type{Kind: TypeMap, Key: &kt, Value: &vt}
	}

	return Type{Kind: TypeStruct, Name: s}
}

func genericArg(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix+"<") && strings.HasSuffix(s, ">") {
		return s[len(prefix)+1 : len(s)-1], true
	}
	return "", false
}

// splitPair splits "K, V" at the top-level comma, respecting nesting.
func splitPair(s string) (string, string) {
	depth := 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}

// String renders the type in surface syntax.
func (t Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "Int"
	case TypeStr:
		return "Str"
	case TypeBool:
		return "Bool"
	case TypeUnit:
		return "Unit"
	case TypeFloat:
		return "Float"
	case TypeAny:
		return "Any"
	case TypeList:
		return "List<" + t.Elem.String() + ">"
	case TypeOptional:
		return "Optional<" + t.Elem.String() + ">"
	case TypeMap:
		return "Map<" + t.Key.String() + ", " + t.Value.String() + ">"
	case TypeStruct:
		return t.Name
	}
	return string(t.Kind)
}

// IsUnit reports whether the type is the unit (void) type.
func (t Type) IsUnit() bool { return t.Kind == TypeUnit }
