// Package wasm encodes WebAssembly binary modules section by section.
package wasm

import "fmt"

const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionCode     byte = 10
	SectionData     byte = 11
)

type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(t))
	}
}

type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
)

const funcTypeTag = 0x60

var header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section is anything that can be appended to a Module.
type Section interface {
	ID() byte
	Payload() []byte
}

// Module accumulates encoded sections. Sections are written in the order
// they are added; callers are responsible for the order the format mandates.
type Module struct {
	buf []byte
}

func NewModule() *Module {
	m := &Module{}
	m.buf = append(m.buf, header...)
	return m
}

func (m *Module) Section(s Section) *Module {
	payload := s.Payload()
	m.buf = append(m.buf, s.ID())
	m.buf = appendULEB128(m.buf, uint32(len(payload)))
	m.buf = append(m.buf, payload...)
	return m
}

// Finish returns the encoded module. The Module must not be used afterwards.
func (m *Module) Finish() []byte {
	out := m.buf
	m.buf = nil
	return out
}

type FuncType struct {
	Params  []ValType
	Results []ValType
}

type TypeSection struct {
	types []FuncType
}

// Func appends a function type and returns its index. Types are not
// deduplicated.
func (s *TypeSection) Func(params, results []ValType) uint32 {
	s.types = append(s.types, FuncType{Params: params, Results: results})
	return uint32(len(s.types) - 1)
}

func (s *TypeSection) ID() byte { return SectionType }

func (s *TypeSection) Payload() []byte {
	buf := appendULEB128(nil, uint32(len(s.types)))
	for _, t := range s.types {
		buf = append(buf, funcTypeTag)
		buf = appendValTypes(buf, t.Params)
		buf = appendValTypes(buf, t.Results)
	}
	return buf
}

func appendValTypes(buf []byte, ts []ValType) []byte {
	buf = appendULEB128(buf, uint32(len(ts)))
	for _, t := range ts {
		buf = append(buf, byte(t))
	}
	return buf
}

// MemoryType describes linear memory limits in 64KiB pages. A zero Max with
// HasMax unset means unbounded.
type MemoryType struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Shared bool
}

func (m MemoryType) append(buf []byte) []byte {
	var flags byte
	if m.HasMax {
		flags |= 0x01
	}
	if m.Shared {
		flags |= 0x02
	}
	buf = append(buf, flags)
	buf = appendULEB128(buf, m.Min)
	if m.HasMax {
		buf = appendULEB128(buf, m.Max)
	}
	return buf
}

type ImportSection struct {
	count uint32
	funcs uint32
	buf   []byte
}

func (s *ImportSection) Func(module, name string, typeIdx uint32) {
	s.buf = appendName(s.buf, module)
	s.buf = appendName(s.buf, name)
	s.buf = append(s.buf, byte(ExternFunc))
	s.buf = appendULEB128(s.buf, typeIdx)
	s.count++
	s.funcs++
}

func (s *ImportSection) Memory(module, name string, mt MemoryType) {
	s.buf = appendName(s.buf, module)
	s.buf = appendName(s.buf, name)
	s.buf = append(s.buf, byte(ExternMemory))
	s.buf = mt.append(s.buf)
	s.count++
}

// Funcs is the number of imported functions, which is also the index of the
// first locally defined function.
func (s *ImportSection) Funcs() uint32 { return s.funcs }

func (s *ImportSection) ID() byte { return SectionImport }

func (s *ImportSection) Payload() []byte {
	return append(appendULEB128(nil, s.count), s.buf...)
}

type FunctionSection struct {
	types []uint32
}

func (s *FunctionSection) Func(typeIdx uint32) {
	s.types = append(s.types, typeIdx)
}

func (s *FunctionSection) Len() uint32 { return uint32(len(s.types)) }

func (s *FunctionSection) ID() byte { return SectionFunction }

func (s *FunctionSection) Payload() []byte {
	buf := appendULEB128(nil, uint32(len(s.types)))
	for _, t := range s.types {
		buf = appendULEB128(buf, t)
	}
	return buf
}

type MemorySection struct {
	mems []MemoryType
}

func (s *MemorySection) Memory(mt MemoryType) {
	s.mems = append(s.mems, mt)
}

func (s *MemorySection) ID() byte { return SectionMemory }

func (s *MemorySection) Payload() []byte {
	buf := appendULEB128(nil, uint32(len(s.mems)))
	for _, m := range s.mems {
		buf = m.append(buf)
	}
	return buf
}

type GlobalType struct {
	Val     ValType
	Mutable bool
}

type GlobalSection struct {
	count uint32
	buf   []byte
}

// GlobalI32 appends an i32 global initialized by a constant expression and
// returns its index.
func (s *GlobalSection) GlobalI32(mutable bool, init int32) uint32 {
	s.buf = append(s.buf, byte(I32))
	if mutable {
		s.buf = append(s.buf, 0x01)
	} else {
		s.buf = append(s.buf, 0x00)
	}
	s.buf = append(s.buf, opI32Const)
	s.buf = appendSLEB128(s.buf, init)
	s.buf = append(s.buf, opEnd)
	s.count++
	return s.count - 1
}

func (s *GlobalSection) ID() byte { return SectionGlobal }

func (s *GlobalSection) Payload() []byte {
	return append(appendULEB128(nil, s.count), s.buf...)
}

type ExportSection struct {
	count uint32
	buf   []byte
}

func (s *ExportSection) Export(name string, kind ExternKind, idx uint32) {
	s.buf = appendName(s.buf, name)
	s.buf = append(s.buf, byte(kind))
	s.buf = appendULEB128(s.buf, idx)
	s.count++
}

func (s *ExportSection) ID() byte { return SectionExport }

func (s *ExportSection) Payload() []byte {
	return append(appendULEB128(nil, s.count), s.buf...)
}

type CodeSection struct {
	bodies [][]byte
}

func (s *CodeSection) Func(f *Function) {
	s.bodies = append(s.bodies, f.encode())
}

func (s *CodeSection) ID() byte { return SectionCode }

func (s *CodeSection) Payload() []byte {
	buf := appendULEB128(nil, uint32(len(s.bodies)))
	for _, b := range s.bodies {
		buf = appendULEB128(buf, uint32(len(b)))
		buf = append(buf, b...)
	}
	return buf
}

type DataSection struct {
	count uint32
	buf   []byte
}

// Active appends a segment copied into memory mem at a constant offset
// during instantiation.
func (s *DataSection) Active(mem uint32, offset int32, data []byte) {
	if mem == 0 {
		s.buf = append(s.buf, 0x00)
	} else {
		s.buf = append(s.buf, 0x02)
		s.buf = appendULEB128(s.buf, mem)
	}
	s.buf = append(s.buf, opI32Const)
	s.buf = appendSLEB128(s.buf, offset)
	s.buf = append(s.buf, opEnd)
	s.buf = appendULEB128(s.buf, uint32(len(data)))
	s.buf = append(s.buf, data...)
	s.count++
}

func (s *DataSection) Len() uint32 { return s.count }

func (s *DataSection) ID() byte { return SectionData }

func (s *DataSection) Payload() []byte {
	return append(appendULEB128(nil, s.count), s.buf...)
}

// StartSection names a function that runs during instantiation.
type StartSection struct {
	Func uint32
}

func (s StartSection) ID() byte { return SectionStart }

func (s StartSection) Payload() []byte { return appendULEB128(nil, s.Func) }
