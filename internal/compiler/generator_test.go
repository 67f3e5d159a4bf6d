package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"mpl/internal/ast"
	"mpl/internal/parser"
	"mpl/internal/wasm"
)

func generateSource(t *testing.T, src string) []byte {
	t.Helper()
	main, err := parser.New("test.mpl", src).ParseMain()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	bin, err := Generate("test", &ast.Program{Main: main})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return bin
}

func sectionsOf(t *testing.T, bin []byte) map[byte]wasm.RawSection {
	t.Helper()
	secs, err := wasm.ReadSections(bin)
	if err != nil {
		t.Fatalf("read sections: %v", err)
	}
	out := map[byte]wasm.RawSection{}
	for _, s := range secs {
		out[s.ID] = s
	}
	return out
}

func segmentsOf(t *testing.T, bin []byte) []wasm.Segment {
	t.Helper()
	segs, err := wasm.ReadDataSegments(sectionsOf(t, bin)[wasm.SectionData].Payload)
	if err != nil {
		t.Fatalf("read data: %v", err)
	}
	return segs
}

func TestPoolReusesPlacement(t *testing.T) {
	p := NewPool()
	a := p.Place("hello", 16)
	b := p.Place("hello", 16)
	if a != b {
		t.Fatalf("second placement moved: %+v vs %+v", a, b)
	}
	if a.Ptr != 0 || a.Len != 5 {
		t.Fatalf("unexpected blob %+v", a)
	}
	c := p.Place("x", 16)
	if c.Ptr != 16 {
		t.Fatalf("expected 16-byte alignment, got %d", c.Ptr)
	}
	if p.End() != 17 {
		t.Fatalf("end = %d", p.End())
	}
	if p.Section().Len() != 2 {
		t.Fatalf("segments = %d", p.Section().Len())
	}
}

func TestPoolUpgradesAlignment(t *testing.T) {
	p := NewPool()
	p.Place("abc", 1)
	loose := p.Place("de", 1)
	if loose.Ptr != 3 {
		t.Fatalf("loose ptr = %d", loose.Ptr)
	}
	strict := p.Place("de", 16)
	if strict.Ptr != 16 {
		t.Fatalf("strict ptr = %d", strict.Ptr)
	}
	if again := p.Place("de", 1); again != strict {
		t.Fatalf("cache should keep the newest placement, got %+v", again)
	}
	if p.Section().Len() != 3 {
		t.Fatalf("stale copy should stay in the data section, segments = %d", p.Section().Len())
	}
}

func TestGenerateSectionOrder(t *testing.T) {
	bin := generateSource(t, `main { print("hi") }`)
	secs, err := wasm.ReadSections(bin)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		wasm.SectionType, wasm.SectionImport, wasm.SectionFunction, wasm.SectionGlobal,
		wasm.SectionExport, wasm.SectionCode, wasm.SectionData, wasm.SectionCustom,
	}
	if len(secs) != len(want) {
		t.Fatalf("got %d sections, want %d", len(secs), len(want))
	}
	for i, s := range secs {
		if s.ID != want[i] {
			t.Fatalf("section %d has id %d, want %d", i, s.ID, want[i])
		}
	}
	if secs[len(secs)-1].Name != "name" {
		t.Fatalf("custom section = %q", secs[len(secs)-1].Name)
	}
}

func TestGenerateHeapStartsAfterData(t *testing.T) {
	bin := generateSource(t, `
main {
	print("a")
	println("bcd", "e")
}`)
	var end int32
	for _, seg := range segmentsOf(t, bin) {
		if e := seg.Offset + int32(len(seg.Data)); e > end {
			end = e
		}
		if seg.Offset%16 != 0 {
			t.Fatalf("literal at %d is not 16-byte aligned", seg.Offset)
		}
	}
	globals, err := wasm.ReadI32Globals(sectionsOf(t, bin)[wasm.SectionGlobal].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(globals) != 1 {
		t.Fatalf("globals = %v", globals)
	}
	heap := globals[0]
	if heap%16 != 0 || heap < end {
		t.Fatalf("heap_ptr = %d with data ending at %d", heap, end)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := `
fn f { println(to_str(1.5 * 2)) }
main {
	local int x
	let x = 7
	call f
	print("x=", to_str(x), nl)
}`
	a := generateSource(t, src)
	b := generateSource(t, src)
	if !bytes.Equal(a, b) {
		t.Fatal("generating the same program twice produced different bytes")
	}
}

func TestGenerateInternsLiteralOnce(t *testing.T) {
	bin := generateSource(t, `
fn a { print("42") }
fn b { print("42") }
main {
	call a
	call b
}`)
	count := 0
	for _, seg := range segmentsOf(t, bin) {
		count += bytes.Count(seg.Data, []byte("42"))
	}
	if count != 1 {
		t.Fatalf("data region holds %d copies of \"42\"", count)
	}
}

func TestGenerateConversionsAreNotInterned(t *testing.T) {
	bin := generateSource(t, `
fn a { print(to_str(42)) }
fn b { print(to_str(42)) }
main {
	call a
	call b
}`)
	if segs := segmentsOf(t, bin); len(segs) != 0 {
		t.Fatalf("expected an empty data region, got %d segments", len(segs))
	}
}

func TestGenerateValidatesWithWazero(t *testing.T) {
	bin := generateSource(t, `
fn show {
	local float f
	let f = -(1 + 2) / 4
	println("f=", to_str(f))
}
main {
	local int i
	local float g
	let g = 2.75
	let i = g * 2
	print()
	call show
	println(to_str(i - -3), nl)
}`)
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		t.Fatalf("module does not validate: %v", err)
	}
	if compiled.Name() != "test" {
		t.Fatalf("module name = %q", compiled.Name())
	}
	exports := compiled.ExportedFunctions()
	if _, ok := exports["main"]; !ok {
		t.Fatalf("main is not exported: %v", exports)
	}
	if imports := compiled.ImportedFunctions(); len(imports) != 4 {
		t.Fatalf("expected 4 imported functions, got %d", len(imports))
	}
}

func pos(line, col int) ast.Position {
	return ast.Position{File: "gen.mpl", Line: line, Col: col}
}

func mainOnly(body []ast.Stmt, vars ...ast.Variable) *ast.Program {
	return &ast.Program{Main: &ast.MainProgram{
		Main: &ast.Function{Name: "main", Body: body, Variables: vars, Pos: pos(1, 1)},
	}}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		want string
	}{
		{
			name: "missing main",
			prog: &ast.Program{Main: &ast.MainProgram{}},
			want: "program has no main block",
		},
		{
			name: "unknown function",
			prog: mainOnly([]ast.Stmt{&ast.CallStmt{Name: "nope", Pos: pos(2, 2)}}),
			want: "gen.mpl:2:2: unknown function 'nope'",
		},
		{
			name: "unknown variable",
			prog: mainOnly([]ast.Stmt{&ast.AssignStmt{
				Var:   &ast.VarRef{Name: "y", Pos: pos(3, 6)},
				Value: &ast.IntLit{Value: 1, Pos: pos(3, 10)},
				Pos:   pos(3, 2),
			}}),
			want: "gen.mpl:3:6: unknown variable 'y'",
		},
		{
			name: "text assignment",
			prog: mainOnly([]ast.Stmt{&ast.AssignStmt{
				Var:   &ast.VarRef{Name: "x", Pos: pos(4, 6)},
				Value: &ast.StrLit{Value: "a", Pos: pos(4, 10)},
				Pos:   pos(4, 2),
			}}, ast.Variable{Name: "x", Type: ast.Float}),
			want: "gen.mpl:4:10: cannot assign text to float variable 'x'",
		},
		{
			name: "duplicate function",
			prog: &ast.Program{
				Functions: []*ast.Function{{Name: "f", Pos: pos(1, 1)}},
				Main: &ast.MainProgram{
					Functions: []*ast.Function{{Name: "f", Pos: pos(5, 1)}},
					Main:      &ast.Function{Name: "main"},
				},
			},
			want: "gen.mpl:5:1: function 'f' is declared more than once",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := Generate("gen", tt.prog)
			if bin != nil {
				t.Fatal("no bytes should be returned on error")
			}
			var genErr *Error
			if !errors.As(err, &genErr) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}
