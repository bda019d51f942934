package wasm

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/merchantmoh-debug/ArkLang/errors"
)

// Export is one entry of a module's export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// ParseExports walks a WASM binary and returns the entries of its
// export section. Only the sections up to and including the export
// section are visited; everything after it is skipped. A module
// without an export section yields an empty list.
func ParseExports(data []byte) ([]Export, error) {
	if len(data) < 8 {
		return nil, errors.InvalidData(errors.PhaseInterop, "module shorter than 8 bytes")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, errors.InvalidData(errors.PhaseInterop, "bad magic number")
	}
	// the version word is read but not enforced
	_ = binary.LittleEndian.Uint32(data[4:8])

	var exports []Export
	offset := 8

	for offset < len(data) {
		sectionID := data[offset]
		offset++

		sectionLen, n, err := readU32At(data, offset)
		if err != nil {
			return nil, err
		}
		offset += n
		sectionEnd := offset + int(sectionLen)
		if sectionEnd > len(data) {
			return nil, errors.InvalidData(errors.PhaseInterop, "section extends past end of module")
		}

		if sectionID != SectionExport {
			offset = sectionEnd
			continue
		}

		count, n, err := readU32At(data, offset)
		if err != nil {
			return nil, err
		}
		pos := offset + n

		for i := uint32(0); i < count; i++ {
			nameLen, n, err := readU32At(data, pos)
			if err != nil {
				return nil, err
			}
			pos += n
			if pos+int(nameLen) > len(data) {
				return nil, errors.InvalidData(errors.PhaseInterop, "export name extends past end of module")
			}
			name := data[pos : pos+int(nameLen)]
			if !utf8.Valid(name) {
				return nil, errors.New(errors.PhaseInterop, errors.KindInvalidUTF8).
					Detail("export name is not valid UTF-8").Build()
			}
			pos += int(nameLen)

			if pos >= len(data) {
				return nil, errors.InvalidData(errors.PhaseInterop, "truncated export entry")
			}
			kind := data[pos]
			pos++

			index, n, err := readU32At(data, pos)
			if err != nil {
				return nil, err
			}
			pos += n

			exports = append(exports, Export{Name: string(name), Kind: kind, Index: index})
		}
		break
	}

	return exports, nil
}

// FunctionExports returns the names of exported functions, in export
// section order.
func FunctionExports(data []byte) ([]string, error) {
	exports, err := ParseExports(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(exports))
	for _, e := range exports {
		if e.Kind == KindFunc {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// readU32At decodes an unsigned LEB128 value from data at offset,
// returning the value and the number of bytes consumed.
func readU32At(data []byte, offset int) (uint32, int, error) {
	var result uint32
	var shift uint
	i := offset
	for {
		if i >= len(data) {
			return 0, 0, errors.InvalidData(errors.PhaseInterop, "unexpected end of LEB128")
		}
		b := data[i]
		result |= uint32(b&0x7f) << shift
		i++
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, errors.New(errors.PhaseInterop, errors.KindOverflow).
				Detail("LEB128 value exceeds 32 bits").Build()
		}
	}
	return result, i - offset, nil
}
