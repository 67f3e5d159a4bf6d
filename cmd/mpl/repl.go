package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"mpl/internal/ast"
	"mpl/internal/compiler"
	"mpl/internal/parser"
	"mpl/internal/runtime"
)

const (
	historyFile = ".mpl_history"
	promptMain  = "mpl> "
)

// session accumulates the statements entered so far into one main block.
// Each evaluation reruns the whole block on a fresh instance and shows only
// the output past what earlier inputs already printed.
type session struct {
	main    *ast.Function
	printed int
	runner  *runtime.Runner
	out     *bytes.Buffer
}

func newSession(engine string) (*session, error) {
	out := &bytes.Buffer{}
	runner, err := newRunner(engine, runtime.WithOutput(out))
	if err != nil {
		return nil, err
	}
	s := &session{runner: runner, out: out}
	s.reset()
	return s, nil
}

func (s *session) reset() {
	s.main = &ast.Function{Name: parser.EntryName}
	s.printed = 0
}

// eval commits line to the session only if it parses, generates and runs.
func (s *session) eval(ctx context.Context, line string) (string, error) {
	next := &ast.Function{
		Name:      s.main.Name,
		Variables: append([]ast.Variable(nil), s.main.Variables...),
	}
	stmts, err := parser.New("<repl>", line).ParseStatements(next)
	if err != nil {
		return "", err
	}
	next.Body = append(append([]ast.Stmt(nil), s.main.Body...), stmts...)
	bin, err := compiler.Generate("repl", &ast.Program{Main: &ast.MainProgram{Main: next}})
	if err != nil {
		return "", err
	}
	s.out.Reset()
	if err := s.runner.Run(ctx, bin); err != nil {
		return "", err
	}
	full := s.out.String()
	fresh := ""
	if len(full) > s.printed {
		fresh = full[s.printed:]
	}
	s.main = next
	s.printed = len(full)
	return fresh, nil
}

func replCmd(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	engine := engineFlag(fs)
	_ = fs.Parse(args)
	s, err := newSession(*engine)
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Printf("mpl repl (%s). Type :help for commands.\n", s.runner.Engine())
	ctx := context.Background()
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			switch line {
			case ":quit", ":q":
				return nil
			case ":reset":
				s.reset()
			case ":locals":
				for _, v := range s.main.Variables {
					fmt.Printf("%s %s\n", v.Type, v.Name)
				}
			case ":help":
				fmt.Println(":locals  list declared locals")
				fmt.Println(":reset   forget every statement and local")
				fmt.Println(":quit    leave the repl")
			default:
				fmt.Println("unknown command. Type :help for commands.")
			}
			continue
		}

		out, err := s.eval(ctx, line)
		if err != nil {
			report(err)
			continue
		}
		fmt.Print(out)
		if out != "" && !strings.HasSuffix(out, "\n") {
			fmt.Println()
		}
	}
}
