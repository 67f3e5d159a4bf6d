package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mpl/internal/logging"
)

type countingSink struct {
	bytes.Buffer
	syncs int
}

func (s *countingSink) Sync() error {
	s.syncs++
	return nil
}

func useCountingLogger(t *testing.T) *countingSink {
	t.Helper()
	sink := &countingSink{}
	prev := newLogger
	newLogger = func(...zap.Option) (*zap.Logger, error) {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, sink, zapcore.DebugLevel)), nil
	}
	t.Cleanup(func() {
		newLogger = prev
		logging.SetLogger(nil)
	})
	return sink
}

func TestVerboseLoggerFlushedOnce(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mpl")
	bad := filepath.Join(dir, "bad.mpl")
	if err := os.WriteFile(good, []byte("main {\n\tprintln(\"hi\")\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("main { print( }"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"success", []string{"-v", "build", "-o", filepath.Join(dir, "good.wasm"), good}, 0},
		{"syntax error", []string{"-v", "build", bad}, 1},
		{"unknown command", []string{"-v", "frobnicate"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := useCountingLogger(t)
			if code := mainExit(tt.args); code != tt.code {
				t.Fatalf("exit code = %d, want %d", code, tt.code)
			}
			if sink.syncs != 1 {
				t.Fatalf("logger synced %d times, want 1", sink.syncs)
			}
		})
	}
}
