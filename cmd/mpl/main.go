package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"mpl/internal/cache"
	"mpl/internal/compiler"
	"mpl/internal/formatter"
	"mpl/internal/logging"
	"mpl/internal/parser"
	"mpl/internal/runtime"
)

// CacheEnv overrides the module cache location.
const CacheEnv = "MPL_CACHE"

// newLogger builds the -v logger.
var newLogger = zap.NewDevelopment

func main() {
	os.Exit(mainExit(os.Args[1:]))
}

// mainExit runs one command line and returns the exit code. The logger is
// flushed exactly once, after the command and before any error report.
func mainExit(argv []string) int {
	top := flag.NewFlagSet("mpl", flag.ContinueOnError)
	verbose := top.Bool("v", false, "log compiler and runtime internals to stderr")
	top.Usage = usage
	if err := top.Parse(argv); err != nil {
		return 2
	}
	args := top.Args()
	if len(args) < 1 {
		usage()
		return 1
	}
	if *verbose {
		l, err := newLogger()
		if err != nil {
			report(err)
			return 1
		}
		logging.SetLogger(l)
	}

	err := dispatch(args)
	_ = logging.Logger().Sync()
	switch {
	case errors.Is(err, errUsage):
		usage()
		return 1
	case err != nil:
		report(err)
		return 1
	}
	return 0
}

func dispatch(args []string) error {
	switch args[0] {
	case "build":
		return buildCmd(args[1:])
	case "run":
		return runCmd(args[1:])
	case "launch":
		return launchCmd(args[1:])
	case "format":
		return formatCmd(args[1:])
	case "repl":
		return replCmd(args[1:])
	case "cache":
		return cacheCmd(args[1:])
	default:
		return errUsage
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  mpl [-v] build [-o <file.wasm>] <entry.mpl>")
	fmt.Fprintln(os.Stderr, "  mpl [-v] run [-engine wasmtime|wazero] [-cache] <entry.mpl>")
	fmt.Fprintln(os.Stderr, "  mpl [-v] launch [-engine wasmtime|wazero] <module.wasm>")
	fmt.Fprintln(os.Stderr, "  mpl format [-write] <file.mpl>...")
	fmt.Fprintln(os.Stderr, "  mpl repl [-engine wasmtime|wazero]")
	fmt.Fprintln(os.Stderr, "  mpl cache prune [-age <duration>]")
}

var (
	errInput = errors.New("input file required")
	errUsage = errors.New("usage")
)

// label names the class of a failure the way users see it.
func label(err error) string {
	var (
		syntax *parser.Error
		gen    *compiler.Error
		trap   *runtime.TrapError
		host   *runtime.HostError
	)
	switch {
	case errors.As(err, &syntax):
		return "syntax error"
	case errors.As(err, &gen):
		return "generation error"
	case errors.As(err, &trap):
		return "trap"
	case errors.As(err, &host):
		return "host error"
	default:
		return "error"
	}
}

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

func colorStderr() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func report(err error) {
	prefix := label(err) + ":"
	if colorStderr() {
		prefix = red(prefix)
	}
	fmt.Fprintln(os.Stderr, prefix, err)
}

func engineFlag(fs *flag.FlagSet) *string {
	return fs.String("engine", "", "execution engine: wasmtime or wazero (default from "+runtime.EngineEnv+")")
}

func newRunner(engine string, opts ...runtime.Option) (*runtime.Runner, error) {
	if engine != "" {
		e, err := runtime.ParseEngine(engine)
		if err != nil {
			return nil, err
		}
		opts = append(opts, runtime.WithEngine(e))
	}
	return runtime.NewRunner(opts...), nil
}

func buildCmd(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output file (default: entry name with .wasm next to the entry)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		return errInput
	}
	entry := fs.Arg(0)
	res, err := compiler.New().Compile(entry)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Join(filepath.Dir(entry), res.Name+".wasm")
	}
	if err := writeAtomic(path, res.Wasm); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(res.Wasm))))
	return nil
}

// writeAtomic replaces path only once data is fully on disk.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func openCache() (*cache.Cache, error) {
	path := os.Getenv(CacheEnv)
	if path == "" {
		var err error
		if path, err = cache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return cache.Open(path)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	engine := engineFlag(fs)
	useCache := fs.Bool("cache", false, "reuse generated modules from the module cache ("+CacheEnv+" overrides its location)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		return errInput
	}
	runner, err := newRunner(*engine)
	if err != nil {
		return err
	}
	ctx := context.Background()
	entry := fs.Arg(0)

	var res *compiler.Result
	if *useCache {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()
		var hit bool
		res, hit, err = compiler.New().CompileCached(ctx, entry, c)
		if err != nil {
			return err
		}
		logging.Logger().Debug("module cache", zap.Bool("hit", hit), zap.String("key", res.Key))
	} else {
		if res, err = compiler.New().Compile(entry); err != nil {
			return err
		}
	}
	return runner.Run(ctx, res.Wasm)
}

func launchCmd(args []string) error {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	engine := engineFlag(fs)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		return errInput
	}
	bin, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	runner, err := newRunner(*engine)
	if err != nil {
		return err
	}
	return runner.Run(context.Background(), bin)
}

func formatCmd(args []string) error {
	fs := flag.NewFlagSet("format", flag.ExitOnError)
	write := fs.Bool("write", false, "overwrite the files instead of printing")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		return errInput
	}
	for _, file := range fs.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		formatted, err := formatter.New().Format(file, string(src))
		if err != nil {
			return err
		}
		if !*write {
			fmt.Print(formatted)
			continue
		}
		if formatted == string(src) {
			continue
		}
		if err := writeAtomic(file, []byte(formatted)); err != nil {
			return err
		}
	}
	return nil
}

func cacheCmd(args []string) error {
	if len(args) < 1 || args[0] != "prune" {
		return errUsage
	}
	fs := flag.NewFlagSet("cache prune", flag.ExitOnError)
	age := fs.Duration("age", 30*24*time.Hour, "remove modules older than this")
	_ = fs.Parse(args[1:])
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()
	n, err := c.Prune(context.Background(), time.Now().Add(-*age))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "removed %s cached %s\n", humanize.Comma(n), plural(n, "module", "modules"))
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
