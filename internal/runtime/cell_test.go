package runtime

import (
	"errors"
	"testing"
)

func TestCellLifecycle(t *testing.T) {
	var c Cell[int]
	if _, err := c.Get(); !errors.Is(err, ErrUnbound) {
		t.Fatalf("unbound Get = %v", err)
	}
	if err := c.Bind(7); err != nil {
		t.Fatalf("Bind = %v", err)
	}
	if err := c.Bind(8); !errors.Is(err, ErrBound) {
		t.Fatalf("second Bind = %v", err)
	}
	v, err := c.Get()
	if err != nil || v != 7 {
		t.Fatalf("Get = %d, %v", v, err)
	}
}

func TestCellZeroValueCountsAsBound(t *testing.T) {
	var c Cell[*int]
	if err := c.Bind(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(); err != nil {
		t.Fatalf("Get after binding nil = %v", err)
	}
}
