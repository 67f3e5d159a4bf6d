package compiler

import (
	"fmt"

	"mpl/internal/ast"
)

// Error is a generation failure tied to a source position. It is the only
// error class the generator returns.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func errorf(pos ast.Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
