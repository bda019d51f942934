package wasm

// Module assembles a WebAssembly binary section by section. Function
// index space is imports first, then defined functions, in the order
// they were added.
type Module struct {
	types   []FuncType
	imports []importEntry
	funcs   []uint32 // type index per defined function
	codes   [][]byte
	mems    []memEntry
	exports []exportEntry
}

type memEntry struct {
	min uint32
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (t FuncType) equal(o FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

type importEntry struct {
	module  string
	name    string
	typeIdx uint32
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

// NewModule creates an empty module builder.
func NewModule() *Module {
	return &Module{}
}

// AddType interns a function signature and returns its type index.
func (m *Module) AddType(t FuncType) uint32 {
	for i, existing := range m.types {
		if existing.equal(t) {
			return uint32(i)
		}
	}
	m.types = append(m.types, t)
	return uint32(len(m.types) - 1)
}

// AddImport declares a function import and returns its function index.
// All imports must be added before the first defined function.
func (m *Module) AddImport(module, name string, typeIdx uint32) uint32 {
	m.imports = append(m.imports, importEntry{module: module, name: name, typeIdx: typeIdx})
	return uint32(len(m.imports) - 1)
}

// AddFunction defines a function with an already encoded body and
// returns its function index.
func (m *Module) AddFunction(typeIdx uint32, body []byte) uint32 {
	m.funcs = append(m.funcs, typeIdx)
	m.codes = append(m.codes, body)
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// AddMemory declares a linear memory with a minimum page count and
// returns its memory index.
func (m *Module) AddMemory(minPages uint32) uint32 {
	m.mems = append(m.mems, memEntry{min: minPages})
	return uint32(len(m.mems) - 1)
}

// AddExport exposes an item under a name.
func (m *Module) AddExport(name string, kind byte, idx uint32) {
	m.exports = append(m.exports, exportEntry{name: name, kind: kind, idx: idx})
}

// Encode renders the module to its binary form.
func (m *Module) Encode() []byte {
	w := NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.types) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.types)))
		for _, t := range m.types {
			s.Byte(0x60) // func type form
			s.WriteU32(uint32(len(t.Params)))
			for _, p := range t.Params {
				s.Byte(byte(p))
			}
			s.WriteU32(uint32(len(t.Results)))
			for _, r := range t.Results {
				s.Byte(byte(r))
			}
		}
		w.WriteSection(SectionType, s.Bytes())
	}

	if len(m.imports) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			s.WriteName(imp.module)
			s.WriteName(imp.name)
			s.Byte(KindFunc)
			s.WriteU32(imp.typeIdx)
		}
		w.WriteSection(SectionImport, s.Bytes())
	}

	if len(m.funcs) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.funcs)))
		for _, typeIdx := range m.funcs {
			s.WriteU32(typeIdx)
		}
		w.WriteSection(SectionFunction, s.Bytes())
	}

	if len(m.mems) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.mems)))
		for _, mem := range m.mems {
			s.Byte(0x00) // limits: min only
			s.WriteU32(mem.min)
		}
		w.WriteSection(SectionMemory, s.Bytes())
	}

	if len(m.exports) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.exports)))
		for _, e := range m.exports {
			s.WriteName(e.name)
			s.Byte(e.kind)
			s.WriteU32(e.idx)
		}
		w.WriteSection(SectionExport, s.Bytes())
	}

	if len(m.codes) > 0 {
		s := NewWriter()
		s.WriteU32(uint32(len(m.codes)))
		for _, body := range m.codes {
			s.WriteU32(uint32(len(body)))
			s.WriteBytes(body)
		}
		w.WriteSection(SectionCode, s.Bytes())
	}

	return w.Bytes()
}

// Body encodes a function body: a local declaration block followed by
// instructions and the trailing end opcode.
type Body struct {
	locals []localRun
	code   []byte
}

type localRun struct {
	count uint32
	typ   ValType
}

// NewBody creates an empty function body.
func NewBody() *Body {
	return &Body{}
}

// Locals declares a run of locals of one type.
func (b *Body) Locals(count uint32, t ValType) *Body {
	if count > 0 {
		b.locals = append(b.locals, localRun{count: count, typ: t})
	}
	return b
}

// Op appends a bare opcode.
func (b *Body) Op(op byte) *Body {
	b.code = append(b.code, op)
	return b
}

// OpU32 appends an opcode with an unsigned LEB immediate.
func (b *Body) OpU32(op byte, imm uint32) *Body {
	b.code = append(b.code, op)
	b.code = AppendU32(b.code, imm)
	return b
}

// OpS64 appends an opcode with a signed LEB immediate.
func (b *Body) OpS64(op byte, imm int64) *Body {
	b.code = append(b.code, op)
	b.code = AppendS64(b.code, imm)
	return b
}

// Raw appends already encoded instructions.
func (b *Body) Raw(code []byte) *Body {
	b.code = append(b.code, code...)
	return b
}

// Encode renders the body, appending the end opcode.
func (b *Body) Encode() []byte {
	out := AppendU32(nil, uint32(len(b.locals)))
	for _, run := range b.locals {
		out = AppendU32(out, run.count)
		out = append(out, byte(run.typ))
	}
	out = append(out, b.code...)
	out = append(out, OpEnd)
	return out
}
