package wasm

import (
	"encoding/binary"
	"errors"
	"math"
)

var errLEBOverflow = errors.New("wasm: leb128 overflow")

func appendULEB128(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func appendSLEB128(buf []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func appendF64(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
}

func appendName(buf []byte, s string) []byte {
	buf = appendULEB128(buf, uint32(len(s)))
	return append(buf, s...)
}

// readULEB128 decodes an unsigned value and returns it with the number of
// bytes consumed.
func readULEB128(b []byte) (uint32, int, error) {
	var v uint32
	var shift uint
	for i, c := range b {
		if shift >= 35 {
			return 0, 0, errLEBOverflow
		}
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errors.New("wasm: truncated leb128")
}
