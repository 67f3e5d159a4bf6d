package runtime

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	pageSize  = 65536
	heapAlign = 16
)

// Memory is an engine's view of guest linear memory. Bytes may be
// invalidated by Grow.
type Memory interface {
	Bytes() []byte
	Grow(pages uint32) error
}

// Cursor is the guest's heap_ptr global.
type Cursor interface {
	Get() int32
	Set(v int32) error
}

var errOutOfBounds = errors.New("memory access out of bounds")

// Host implements the imported functions independent of the engine. Every
// allocation bumps the shared cursor and leaves it 16-byte aligned.
type Host struct {
	out io.Writer
}

func NewHost(out io.Writer) *Host {
	return &Host{out: out}
}

func (h *Host) Output(mem Memory, ptr, length int32) error {
	b, err := read(mem.Bytes(), ptr, length)
	if err != nil {
		return err
	}
	_, err = io.WriteString(h.out, strings.ToValidUTF8(string(b), "\uFFFD"))
	return err
}

func (h *Host) FromInt32(mem Memory, heap Cursor, v int32) (int32, int32, error) {
	return h.store(mem, heap, []byte(strconv.FormatInt(int64(v), 10)))
}

func (h *Host) FromFloat64(mem Memory, heap Cursor, v float64) (int32, int32, error) {
	return h.store(mem, heap, []byte(FormatFloat(v)))
}

func (h *Host) Concat(mem Memory, heap Cursor, p1, l1, p2, l2 int32) (int32, int32, error) {
	data := mem.Bytes()
	a, err := read(data, p1, l1)
	if err != nil {
		return 0, 0, err
	}
	b, err := read(data, p2, l2)
	if err != nil {
		return 0, 0, err
	}
	joined := make([]byte, 0, len(a)+len(b))
	joined = append(append(joined, a...), b...)
	return h.store(mem, heap, joined)
}

func (h *Host) store(mem Memory, heap Cursor, b []byte) (int32, int32, error) {
	ptr, err := alloc(mem, heap, uint32(len(b)))
	if err != nil {
		return 0, 0, err
	}
	copy(mem.Bytes()[ptr:], b)
	return int32(ptr), int32(len(b)), nil
}

// alloc reserves n bytes at the cursor, growing memory when the reservation
// crosses its end.
func alloc(mem Memory, heap Cursor, n uint32) (uint32, error) {
	ptr := uint32(heap.Get())
	end := uint64(ptr) + uint64(n)
	next := (end + heapAlign - 1) / heapAlign * heapAlign
	if next > math.MaxUint32 {
		return 0, fmt.Errorf("heap exhausted allocating %d bytes at %d", n, ptr)
	}
	if size := uint64(len(mem.Bytes())); end > size {
		pages := (end - size + pageSize - 1) / pageSize
		if err := mem.Grow(uint32(pages)); err != nil {
			return 0, fmt.Errorf("grow memory by %d pages: %w", pages, err)
		}
	}
	if err := heap.Set(int32(uint32(next))); err != nil {
		return 0, err
	}
	return ptr, nil
}

func read(data []byte, ptr, length int32) ([]byte, error) {
	start := uint64(uint32(ptr))
	end := start + uint64(uint32(length))
	if end > uint64(len(data)) {
		return nil, errOutOfBounds
	}
	return data[start:end], nil
}

// FormatFloat renders v as the shortest decimal that reads back to the same
// value, never in exponent form.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
