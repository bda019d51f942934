package wasm

import (
	"errors"
	"io"
)

// LEB128 encoding/decoding utilities for the WebAssembly binary format

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = errors.New("leb128: overflow")

// readUnsigned decodes an unsigned LEB128 value, erroring once the
// accumulated shift passes maxShift (35 for u32, 70 for u64).
func readUnsigned(r io.ByteReader, maxShift uint) (uint64, error) {
	var result uint64
	for shift := uint(0); ; shift += 7 {
		if shift >= maxShift {
			return 0, ErrOverflow
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
}

// ReadU32 reads an unsigned LEB128 value.
func ReadU32(r io.ByteReader) (uint32, error) {
	v, err := readUnsigned(r, 35)
	return uint32(v), err
}

// ReadU64 reads an unsigned 64-bit LEB128 value.
func ReadU64(r io.ByteReader) (uint64, error) {
	return readUnsigned(r, 70)
}

// ReadS64 reads a signed 64-bit LEB128 value.
func ReadS64(r io.ByteReader) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, ErrOverflow
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

// AppendU32 appends an unsigned LEB128 encoding of v.
func AppendU32(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendU64 appends an unsigned 64-bit LEB128 encoding of v.
func AppendU64(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendS64 appends a signed LEB128 encoding of v.
func AppendS64(dst []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}
