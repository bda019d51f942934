package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Import/export descriptor kinds identify the type of the item.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

// ValType is a WebAssembly value type encoding.
type ValType byte

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

// Instruction opcodes used by the code generator.
const (
	OpEnd           byte = 0x0B
	OpCall          byte = 0x10
	OpDrop          byte = 0x1A
	OpLocalGet      byte = 0x20
	OpLocalSet      byte = 0x21
	OpI64Const      byte = 0x42
	OpI64Add        byte = 0x7C
	OpI64Sub        byte = 0x7D
	OpI64Mul        byte = 0x7E
	OpI64DivS       byte = 0x7F
	OpI64RemS       byte = 0x81
	OpI64Eq         byte = 0x51
	OpI64Ne         byte = 0x52
	OpI64LtS        byte = 0x53
	OpI64GtS        byte = 0x55
	OpI64ExtendI32S byte = 0xAC
	OpIf            byte = 0x04
	OpElse          byte = 0x05
	OpBlock         byte = 0x02
	OpLoop          byte = 0x03
	OpBr            byte = 0x0C
	OpBrIf          byte = 0x0D
	OpReturn        byte = 0x0F
	OpI32Eqz        byte = 0x45
	OpI32WrapI64    byte = 0xA7
)

// BlockEmpty is the empty block type, used by if/loop constructs that
// leave nothing on the stack.
const BlockEmpty byte = 0x40
