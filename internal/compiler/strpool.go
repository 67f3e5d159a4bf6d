package compiler

import "mpl/internal/wasm"

// Blob is a placed string: a pointer into the static data region and its
// byte length.
type Blob struct {
	Ptr uint32
	Len uint32
}

// Pool interns literal text into the module's data section. Each text maps
// to its most recent placement; a lookup that needs stricter alignment than
// the cached copy gets a fresh copy and replaces the cache entry. Earlier
// placements stay in the data section because emitted code already refers
// to them.
type Pool struct {
	entries map[string]Blob
	cursor  uint32
	data    wasm.DataSection
}

func NewPool() *Pool {
	return &Pool{entries: map[string]Blob{}}
}

func (p *Pool) Place(text string, align uint32) Blob {
	if b, ok := p.entries[text]; ok && (align <= 1 || b.Ptr%align == 0) {
		return b
	}
	ptr := alignUp(p.cursor, align)
	b := Blob{Ptr: ptr, Len: uint32(len(text))}
	p.data.Active(0, int32(ptr), []byte(text))
	p.cursor = ptr + b.Len
	p.entries[text] = b
	return b
}

// End is the offset one past the last placed byte.
func (p *Pool) End() uint32 { return p.cursor }

func (p *Pool) Section() *wasm.DataSection { return &p.data }

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
