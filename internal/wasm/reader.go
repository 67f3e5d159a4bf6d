package wasm

import (
	"bytes"
	"errors"
	"fmt"
)

var ErrNotModule = errors.New("wasm: missing module header")

// RawSection is one undecoded section of a module. Name is set for custom
// sections only.
type RawSection struct {
	ID      byte
	Name    string
	Payload []byte
}

// ReadSections splits an encoded module into its sections without
// validating their contents.
func ReadSections(b []byte) ([]RawSection, error) {
	if len(b) < len(header) || !bytes.Equal(b[:len(header)], header) {
		return nil, ErrNotModule
	}
	b = b[len(header):]
	var out []RawSection
	for len(b) > 0 {
		id := b[0]
		size, n, err := readULEB128(b[1:])
		if err != nil {
			return nil, err
		}
		start := 1 + n
		end := start + int(size)
		if end > len(b) {
			return nil, fmt.Errorf("wasm: section %d overruns module", id)
		}
		sec := RawSection{ID: id, Payload: b[start:end]}
		if id == SectionCustom {
			nameLen, m, err := readULEB128(sec.Payload)
			if err != nil || m+int(nameLen) > len(sec.Payload) {
				return nil, errors.New("wasm: malformed custom section name")
			}
			sec.Name = string(sec.Payload[m : m+int(nameLen)])
			sec.Payload = sec.Payload[m+int(nameLen):]
		}
		out = append(out, sec)
		b = b[end:]
	}
	return out, nil
}

// Segment is an active data segment targeting memory 0 with an i32.const
// offset, the only shape this package emits.
type Segment struct {
	Offset int32
	Data   []byte
}

// ReadDataSegments decodes a data section payload.
func ReadDataSegments(payload []byte) ([]Segment, error) {
	count, n, err := readULEB128(payload)
	if err != nil {
		return nil, err
	}
	p := payload[n:]
	segs := make([]Segment, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(p) < 2 || p[0] != 0x00 || p[1] != opI32Const {
			return nil, fmt.Errorf("wasm: unsupported data segment %d", i)
		}
		off, m, err := readSLEB128(p[2:])
		if err != nil {
			return nil, err
		}
		p = p[2+m:]
		if len(p) == 0 || p[0] != opEnd {
			return nil, fmt.Errorf("wasm: data segment %d offset not terminated", i)
		}
		size, m, err := readULEB128(p[1:])
		if err != nil {
			return nil, err
		}
		p = p[1+m:]
		if int(size) > len(p) {
			return nil, fmt.Errorf("wasm: data segment %d overruns section", i)
		}
		segs = append(segs, Segment{Offset: off, Data: p[:size]})
		p = p[size:]
	}
	return segs, nil
}

func readSLEB128(b []byte) (int32, int, error) {
	var v int32
	var shift uint
	for i, c := range b {
		if shift >= 35 {
			return 0, 0, errLEBOverflow
		}
		v |= int32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 32 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("wasm: truncated leb128")
}

// ReadI32Globals decodes a global section whose globals are all i32 with
// constant initializers and returns the initial values.
func ReadI32Globals(payload []byte) ([]int32, error) {
	count, n, err := readULEB128(payload)
	if err != nil {
		return nil, err
	}
	p := payload[n:]
	out := make([]int32, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(p) < 3 || ValType(p[0]) != I32 || p[2] != opI32Const {
			return nil, fmt.Errorf("wasm: unsupported global %d", i)
		}
		v, m, err := readSLEB128(p[3:])
		if err != nil {
			return nil, err
		}
		p = p[3+m:]
		if len(p) == 0 || p[0] != opEnd {
			return nil, fmt.Errorf("wasm: global %d initializer not terminated", i)
		}
		p = p[1:]
		out = append(out, v)
	}
	return out, nil
}
