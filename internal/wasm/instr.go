package wasm

const (
	opEnd          = 0x0b
	opCall         = 0x10
	opDrop         = 0x1a
	opLocalGet     = 0x20
	opLocalSet     = 0x21
	opI32Const     = 0x41
	opF64Const     = 0x44
	opI32Add       = 0x6a
	opI32Sub       = 0x6b
	opI32Mul       = 0x6c
	opI32DivS      = 0x6d
	opF64Neg       = 0x9a
	opF64Add       = 0xa0
	opF64Sub       = 0xa1
	opF64Mul       = 0xa2
	opF64Div       = 0xa3
	opI32TruncF64S = 0xaa
	opF64ConvI32S  = 0xb7
)

// Function is one code-section entry: local declarations plus an
// instruction stream. Every instruction method returns the receiver so calls
// can be chained.
type Function struct {
	locals []ValType
	code   []byte
}

// NewFunction declares one local per entry of locals, in order.
func NewFunction(locals []ValType) *Function {
	return &Function{locals: locals}
}

func (f *Function) encode() []byte {
	buf := appendULEB128(nil, uint32(len(f.locals)))
	for _, t := range f.locals {
		buf = appendULEB128(buf, 1)
		buf = append(buf, byte(t))
	}
	return append(buf, f.code...)
}

func (f *Function) op(b byte) *Function {
	f.code = append(f.code, b)
	return f
}

func (f *Function) End() *Function  { return f.op(opEnd) }
func (f *Function) Drop() *Function { return f.op(opDrop) }

func (f *Function) Call(idx uint32) *Function {
	f.code = appendULEB128(append(f.code, opCall), idx)
	return f
}

func (f *Function) LocalGet(idx uint32) *Function {
	f.code = appendULEB128(append(f.code, opLocalGet), idx)
	return f
}

func (f *Function) LocalSet(idx uint32) *Function {
	f.code = appendULEB128(append(f.code, opLocalSet), idx)
	return f
}

func (f *Function) I32Const(v int32) *Function {
	f.code = appendSLEB128(append(f.code, opI32Const), v)
	return f
}

func (f *Function) F64Const(v float64) *Function {
	f.code = appendF64(append(f.code, opF64Const), v)
	return f
}

func (f *Function) I32Add() *Function  { return f.op(opI32Add) }
func (f *Function) I32Sub() *Function  { return f.op(opI32Sub) }
func (f *Function) I32Mul() *Function  { return f.op(opI32Mul) }
func (f *Function) I32DivS() *Function { return f.op(opI32DivS) }

func (f *Function) F64Add() *Function { return f.op(opF64Add) }
func (f *Function) F64Sub() *Function { return f.op(opF64Sub) }
func (f *Function) F64Mul() *Function { return f.op(opF64Mul) }
func (f *Function) F64Div() *Function { return f.op(opF64Div) }
func (f *Function) F64Neg() *Function { return f.op(opF64Neg) }

// I32TruncF64S truncates toward zero; it traps on NaN and out-of-range input.
func (f *Function) I32TruncF64S() *Function { return f.op(opI32TruncF64S) }

func (f *Function) F64ConvertI32S() *Function { return f.op(opF64ConvI32S) }
