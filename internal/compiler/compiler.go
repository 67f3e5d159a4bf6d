package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mpl/internal/ast"
	"mpl/internal/logging"
	"mpl/internal/parser"
)

type Result struct {
	Name string
	Wasm []byte
	// Key identifies the inputs of this compilation for the module cache.
	Key string
}

// Compiler loads a program file with its imports and generates a module.
// Library files are loaded at most once even when imported twice.
type Compiler struct {
	gen      *Generator
	readFile func(string) ([]byte, error)
	log      *zap.Logger
}

func New() *Compiler {
	return &Compiler{gen: NewGenerator(), readFile: os.ReadFile, log: logging.Named("compiler")}
}

type source struct {
	path string
	text string
}

// Load parses entry and every library it imports. The returned key hashes
// all loaded sources together with the generator version.
func (c *Compiler) Load(entry string) (*ast.Program, string, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, "", err
	}
	src, err := c.readFile(abs)
	if err != nil {
		return nil, "", err
	}
	return c.load(abs, string(src))
}

func (c *Compiler) load(path, text string) (*ast.Program, string, error) {
	main, err := parser.New(path, text).ParseMain()
	if err != nil {
		return nil, "", err
	}
	prog := &ast.Program{Main: main}
	sources := []source{{path: path, text: text}}
	seen := map[string]bool{path: true}
	dir := filepath.Dir(path)
	for _, imp := range main.Imports {
		resolved := resolveImport(dir, imp.Path)
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		libSrc, err := c.readFile(resolved)
		if err != nil {
			return nil, "", &parser.Error{Pos: imp.Pos, Msg: fmt.Sprintf("cannot import %q: %v", imp.Path, err)}
		}
		fns, err := parser.New(resolved, string(libSrc)).ParseLibrary()
		if err != nil {
			return nil, "", err
		}
		c.log.Debug("loaded library", zap.String("path", resolved), zap.Int("functions", len(fns)))
		prog.Functions = append(prog.Functions, fns...)
		sources = append(sources, source{path: resolved, text: string(libSrc)})
	}
	return prog, cacheKey(sources), nil
}

func (c *Compiler) Compile(entry string) (*Result, error) {
	prog, key, err := c.Load(entry)
	if err != nil {
		return nil, err
	}
	return c.generate(ModuleName(entry), prog, key)
}

// Store holds generated modules by cache key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, wasm []byte) error
}

// CompileCached is Compile backed by store. Sources are always parsed so the
// key reflects the current imports; generation is skipped on a hit. The
// boolean reports a hit.
func (c *Compiler) CompileCached(ctx context.Context, entry string, store Store) (*Result, bool, error) {
	prog, key, err := c.Load(entry)
	if err != nil {
		return nil, false, err
	}
	name := ModuleName(entry)
	if wasm, ok, err := store.Get(ctx, key); err != nil {
		c.log.Warn("cache read failed", zap.Error(err))
	} else if ok {
		return &Result{Name: name, Wasm: wasm, Key: key}, true, nil
	}
	res, err := c.generate(name, prog, key)
	if err != nil {
		return nil, false, err
	}
	if err := store.Put(ctx, key, res.Wasm); err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
	return res, false, nil
}

// CompileSource compiles in-memory source. Imports resolve relative to the
// directory of name.
func (c *Compiler) CompileSource(name, src string) (*Result, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	prog, key, err := c.load(abs, src)
	if err != nil {
		return nil, err
	}
	return c.generate(ModuleName(name), prog, key)
}

func (c *Compiler) generate(name string, prog *ast.Program, key string) (*Result, error) {
	wasm, err := c.gen.Generate(name, prog)
	if err != nil {
		return nil, err
	}
	return &Result{Name: name, Wasm: wasm, Key: key}, nil
}

// ModuleName is the file stem of path.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func resolveImport(baseDir, imp string) string {
	path := imp
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, imp)
	}
	if filepath.Ext(path) == "" {
		path += ".mpl"
	}
	return filepath.Clean(path)
}

func cacheKey(sources []source) string {
	h := sha256.New()
	h.Write([]byte(Version))
	for _, s := range sources {
		fmt.Fprintf(h, "\x00%s\x00%d\x00", s.path, len(s.text))
		h.Write([]byte(s.text))
	}
	return hex.EncodeToString(h.Sum(nil))
}
