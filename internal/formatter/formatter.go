package formatter

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"mpl/internal/ast"
	"mpl/internal/lexer"
	"mpl/internal/parser"
)

// Formatter prints mpl source in canonical layout, keeping comments.
type Formatter struct {
	indent   int
	lines    []string
	comments []lexer.Comment
	lastLine int
}

func New() *Formatter {
	return &Formatter{}
}

// Format formats a program or library file. A file without a main block is
// treated as a library.
func (f *Formatter) Format(path, src string) (string, error) {
	p := parser.New(path, src)
	if IsLibrary(src) {
		fns, err := p.ParseLibrary()
		if err != nil {
			return "", err
		}
		f.reset(p.Comments())
		f.formatFunctions(fns)
		return f.finish(), nil
	}
	prog, err := p.ParseMain()
	if err != nil {
		return "", err
	}
	f.reset(p.Comments())
	f.FormatProgram(prog)
	return f.finish(), nil
}

// IsLibrary reports whether src has no main block.
func IsLibrary(src string) bool {
	lex := lexer.New(src)
	for {
		tok := lex.Next()
		switch tok.Kind {
		case lexer.TokenMain:
			return false
		case lexer.TokenEOF, lexer.TokenIllegal:
			return true
		}
	}
}

func (f *Formatter) reset(comments []lexer.Comment) {
	f.indent = 0
	f.lines = f.lines[:0]
	f.comments = comments
	f.lastLine = 0
}

func (f *Formatter) FormatProgram(prog *ast.MainProgram) {
	for _, imp := range prog.Imports {
		f.flushBefore(imp.Pos.Line)
		f.emit(imp.Pos.Line, "import "+quote(imp.Path))
	}
	if len(prog.Imports) > 0 {
		f.blank()
	}
	f.formatFunctions(prog.Functions)
	if len(prog.Functions) > 0 {
		f.blank()
	}
	f.formatFunction("main", prog.Main)
}

func (f *Formatter) formatFunctions(fns []*ast.Function) {
	for i, fn := range fns {
		if i > 0 {
			f.blank()
		}
		f.formatFunction("fn "+fn.Name, fn)
	}
}

type item struct {
	pos  ast.Position
	vars []ast.Variable
	stmt ast.Stmt
}

func (f *Formatter) formatFunction(header string, fn *ast.Function) {
	f.flushBefore(fn.Pos.Line)
	f.emit(fn.Pos.Line, header+" {")
	f.indent++

	var items []item
	for _, v := range fn.Variables {
		if n := len(items); n > 0 && items[n-1].vars != nil {
			prev := items[n-1].vars[0]
			if prev.Type == v.Type && prev.Pos.Line == v.Pos.Line {
				items[n-1].vars = append(items[n-1].vars, v)
				continue
			}
		}
		items = append(items, item{pos: v.Pos, vars: []ast.Variable{v}})
	}
	for _, s := range fn.Body {
		items = append(items, item{pos: s.GetPos(), stmt: s})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].pos, items[j].pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})

	for _, it := range items {
		f.flushBefore(it.pos.Line)
		if it.vars != nil {
			names := make([]string, len(it.vars))
			for i, v := range it.vars {
				names[i] = v.Name
			}
			f.emit(it.pos.Line, "local "+it.vars[0].Type.String()+" "+strings.Join(names, ", "))
			continue
		}
		f.emit(it.pos.Line, formatStmt(it.stmt))
	}
	f.flushBefore(fn.End.Line + 1)
	f.indent--
	f.emit(fn.End.Line, "}")
}

func formatStmt(s ast.Stmt) string {
	switch s := s.(type) {
	case *ast.PrintStmt:
		name := "print"
		if s.Newline {
			name = "println"
		}
		args := make([]string, len(s.Args))
		for i, a := range s.Args {
			args[i] = formatStrExpr(a)
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	case *ast.CallStmt:
		return "call " + s.Name
	case *ast.AssignStmt:
		var value string
		switch v := s.Value.(type) {
		case ast.NumExpr:
			value = FormatNumExpr(v)
		case ast.StrExpr:
			value = formatStrExpr(v)
		}
		return "let " + s.Var.Name + " = " + value
	default:
		return ""
	}
}

func formatStrExpr(e ast.StrExpr) string {
	switch e := e.(type) {
	case *ast.StrLit:
		return quote(e.Value)
	case *ast.Newline:
		return "nl"
	case *ast.NumToStr:
		return "to_str(" + FormatNumExpr(e.Expr) + ")"
	default:
		return ""
	}
}

func precedence(e ast.NumExpr) int {
	b, ok := e.(*ast.BinaryExpr)
	if !ok {
		return 3
	}
	if b.Op == ast.Add || b.Op == ast.Sub {
		return 1
	}
	return 2
}

// FormatNumExpr prints e with the fewest parentheses that preserve its
// shape.
func FormatNumExpr(e ast.NumExpr) string {
	switch e := e.(type) {
	case *ast.IntLit:
		return strconv.FormatInt(int64(e.Value), 10)
	case *ast.FloatLit:
		return formatFloatLit(e.Value)
	case *ast.VarRef:
		return e.Name
	case *ast.NegExpr:
		inner := FormatNumExpr(e.Expr)
		if precedence(e.Expr) < 3 || strings.HasPrefix(inner, "-") {
			inner = "(" + inner + ")"
		}
		return "-" + inner
	case *ast.BinaryExpr:
		prec := precedence(e)
		left := FormatNumExpr(e.Left)
		if precedence(e.Left) < prec {
			left = "(" + left + ")"
		}
		right := FormatNumExpr(e.Right)
		if precedence(e.Right) <= prec {
			right = "(" + right + ")"
		}
		return left + " " + e.Op.String() + " " + right
	default:
		return ""
	}
}

func formatFloatLit(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "1e999"
	case math.IsInf(v, -1):
		return "-1e999"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// flushBefore writes every pending comment that starts before line. A
// comment sharing a line with the previous output trails it.
func (f *Formatter) flushBefore(line int) {
	for len(f.comments) > 0 && f.comments[0].Pos.Line < line {
		c := f.comments[0]
		f.comments = f.comments[1:]
		if c.Inline && c.Pos.Line == f.lastLine && len(f.lines) > 0 {
			f.lines[len(f.lines)-1] += " " + c.Text
			continue
		}
		f.emit(c.Pos.Line, c.Text)
	}
}

func (f *Formatter) emit(line int, text string) {
	f.lines = append(f.lines, strings.Repeat("  ", f.indent)+text)
	if line > 0 {
		f.lastLine = line
	}
}

func (f *Formatter) blank() {
	if n := len(f.lines); n > 0 && f.lines[n-1] != "" {
		f.lines = append(f.lines, "")
	}
}

func (f *Formatter) finish() string {
	f.flushBefore(math.MaxInt)
	for len(f.lines) > 0 && f.lines[len(f.lines)-1] == "" {
		f.lines = f.lines[:len(f.lines)-1]
	}
	return strings.Join(f.lines, "\n") + "\n"
}
