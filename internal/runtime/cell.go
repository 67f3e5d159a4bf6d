package runtime

import (
	"errors"
	"sync/atomic"
)

var (
	ErrUnbound = errors.New("runtime: cell read before it was bound")
	ErrBound   = errors.New("runtime: cell is already bound")
)

// Cell is a write-once slot. Host functions are created before the module
// they serve is instantiated, so they reach late values through a Cell.
type Cell[T any] struct {
	v atomic.Pointer[T]
}

func (c *Cell[T]) Bind(v T) error {
	if !c.v.CompareAndSwap(nil, &v) {
		return ErrBound
	}
	return nil
}

func (c *Cell[T]) Get() (T, error) {
	p := c.v.Load()
	if p == nil {
		var zero T
		return zero, ErrUnbound
	}
	return *p, nil
}
