// Package logging holds the process-wide zap logger. It is a no-op until a
// command installs a real one.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

func Logger() *zap.Logger {
	return current.Load()
}

// SetLogger replaces the shared logger. A nil logger restores the no-op one.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// Named returns a child of the shared logger scoped to one component.
func Named(name string) *zap.Logger {
	return Logger().Named(name)
}
