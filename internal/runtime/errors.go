package runtime

import "fmt"

// TrapError is an abrupt failure of the guest while it was running, such as
// an invalid float to int conversion or a failing host call.
type TrapError struct {
	Message string
	Err     error
}

func (e *TrapError) Error() string {
	return "trap: " + e.Message
}

func (e *TrapError) Unwrap() error { return e.Err }

// HostError is an environment failure around the run: a module that does
// not decode or link, or a missing export.
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }
