package parser

import (
	"fmt"
	"strconv"

	"mpl/internal/ast"
	"mpl/internal/lexer"
)

// Error is a syntax error. The front end reports only the first one.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// EntryName is the function name the main block is compiled under.
const EntryName = "main"

type Parser struct {
	lex  *lexer.Lexer
	curr lexer.Token
	path string
	errs []error

	fn *ast.Function
}

func New(path, src string) *Parser {
	lex := lexer.New(src)
	p := &Parser{lex: lex, path: path}
	p.curr = lex.Next()
	return p
}

// Comments returns the comments seen so far, for the formatter.
func (p *Parser) Comments() []lexer.Comment {
	return p.lex.Comments()
}

// ParseMain parses a program file: imports, functions, then the main block.
func (p *Parser) ParseMain() (*ast.MainProgram, error) {
	prog := &ast.MainProgram{}
	for p.curr.Kind == lexer.TokenImport {
		start := p.pos()
		p.next()
		pathTok := p.expect(lexer.TokenString)
		p.optional(lexer.TokenSemicolon)
		prog.Imports = append(prog.Imports, ast.Import{Path: pathTok.Text, Pos: start})
	}
	for p.curr.Kind == lexer.TokenFn && len(p.errs) == 0 {
		prog.Functions = append(prog.Functions, p.parseFunction())
	}
	if len(p.errs) == 0 {
		if p.curr.Kind != lexer.TokenMain {
			if p.curr.Kind == lexer.TokenImport {
				p.err("imports must come before any function")
			} else {
				p.err("main block expected")
			}
		} else {
			start := p.pos()
			p.next()
			prog.Main = p.parseBody(EntryName, start)
		}
	}
	if len(p.errs) == 0 && p.curr.Kind != lexer.TokenEOF {
		p.err(fmt.Sprintf("unexpected %s after main block", p.curr.Kind))
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return prog, nil
}

// ParseLibrary parses an imported file, which holds functions only.
func (p *Parser) ParseLibrary() ([]*ast.Function, error) {
	var fns []*ast.Function
	for p.curr.Kind != lexer.TokenEOF && len(p.errs) == 0 {
		if p.curr.Kind != lexer.TokenFn {
			p.err(fmt.Sprintf("library files may only declare functions, found %s", p.curr.Kind))
			break
		}
		fns = append(fns, p.parseFunction())
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return fns, nil
}

func (p *Parser) parseFunction() *ast.Function {
	start := p.pos()
	p.expect(lexer.TokenFn)
	nameTok := p.expect(lexer.TokenIdent)
	return p.parseBody(nameTok.Text, start)
}

func (p *Parser) parseBody(name string, start ast.Position) *ast.Function {
	fn := &ast.Function{Name: name, Pos: start}
	p.fn = fn
	defer func() { p.fn = nil }()
	p.expect(lexer.TokenLBrace)
	for p.curr.Kind != lexer.TokenRBrace && p.curr.Kind != lexer.TokenEOF && len(p.errs) == 0 {
		if p.curr.Kind == lexer.TokenLocal {
			p.parseLocals()
			continue
		}
		if stmt := p.parseStmt(); stmt != nil {
			fn.Body = append(fn.Body, stmt)
		}
		p.optional(lexer.TokenSemicolon)
	}
	fn.End = p.pos()
	p.expect(lexer.TokenRBrace)
	return fn
}

// ParseStatements parses a bare statement sequence into fn, as typed at the
// REPL prompt. Locals declared here are appended to fn.Variables.
func (p *Parser) ParseStatements(fn *ast.Function) ([]ast.Stmt, error) {
	p.fn = fn
	defer func() { p.fn = nil }()
	var stmts []ast.Stmt
	for p.curr.Kind != lexer.TokenEOF && len(p.errs) == 0 {
		if p.curr.Kind == lexer.TokenLocal {
			p.parseLocals()
			continue
		}
		if stmt := p.parseStmt(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.optional(lexer.TokenSemicolon)
	}
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return stmts, nil
}

func (p *Parser) parseLocals() {
	p.expect(lexer.TokenLocal)
	var typ ast.Type
	switch p.curr.Kind {
	case lexer.TokenIntType:
		typ = ast.Int
	case lexer.TokenFloatType:
		typ = ast.Float
	default:
		p.err("int or float expected")
		return
	}
	p.next()
	for {
		pos := p.pos()
		nameTok := p.expect(lexer.TokenIdent)
		p.fn.Variables = append(p.fn.Variables, ast.Variable{Name: nameTok.Text, Type: typ, Pos: pos})
		if p.curr.Kind != lexer.TokenComma {
			break
		}
		p.next()
	}
	p.optional(lexer.TokenSemicolon)
}

func (p *Parser) parseStmt() ast.Stmt {
	start := p.pos()
	switch p.curr.Kind {
	case lexer.TokenPrint, lexer.TokenPrintln:
		newline := p.curr.Kind == lexer.TokenPrintln
		p.next()
		p.expect(lexer.TokenLParen)
		var args []ast.StrExpr
		for p.curr.Kind != lexer.TokenRParen && len(p.errs) == 0 {
			args = append(args, p.parseStrExpr())
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
		p.expect(lexer.TokenRParen)
		return &ast.PrintStmt{Args: args, Newline: newline, Pos: start}
	case lexer.TokenCall:
		p.next()
		nameTok := p.expect(lexer.TokenIdent)
		return &ast.CallStmt{Name: nameTok.Text, Pos: start}
	case lexer.TokenLet:
		p.next()
		target := p.parseVarRef()
		p.expect(lexer.TokenEq)
		var value ast.Expr
		if p.startsStrExpr() {
			value = p.parseStrExpr()
		} else {
			value = p.parseNumExpr(0)
		}
		return &ast.AssignStmt{Var: target, Value: value, Pos: start}
	case lexer.TokenIllegal:
		p.err(p.curr.Text)
		return nil
	default:
		p.err(fmt.Sprintf("statement expected, found %s", p.curr.Kind))
		return nil
	}
}

func (p *Parser) startsStrExpr() bool {
	switch p.curr.Kind {
	case lexer.TokenString, lexer.TokenNl, lexer.TokenToStr:
		return true
	}
	return false
}

func (p *Parser) parseStrExpr() ast.StrExpr {
	start := p.pos()
	switch p.curr.Kind {
	case lexer.TokenString:
		tok := p.curr
		p.next()
		return &ast.StrLit{Value: tok.Text, Pos: start}
	case lexer.TokenNl:
		p.next()
		return &ast.Newline{Pos: start}
	case lexer.TokenToStr:
		p.next()
		p.expect(lexer.TokenLParen)
		expr := p.parseNumExpr(0)
		p.expect(lexer.TokenRParen)
		return &ast.NumToStr{Expr: expr, Pos: start}
	default:
		p.err(fmt.Sprintf("string, nl or to_str expected, found %s", p.curr.Kind))
		p.next()
		return &ast.StrLit{Pos: start}
	}
}

func (p *Parser) parseNumExpr(precedence int) ast.NumExpr {
	expr := p.parseUnary()
	for len(p.errs) == 0 {
		prec := binaryPrecedence(p.curr.Kind)
		if prec < precedence {
			break
		}
		op := opFromToken(p.curr.Kind)
		p.next()
		right := p.parseNumExpr(prec + 1)
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: right, Pos: expr.GetPos()}
	}
	return expr
}

// parseUnary folds a minus directly in front of a literal into the literal,
// which is the only way to write the smallest int.
func (p *Parser) parseUnary() ast.NumExpr {
	if p.curr.Kind != lexer.TokenMinus {
		return p.parsePrimary("")
	}
	start := p.pos()
	p.next()
	if p.curr.Kind == lexer.TokenInt || p.curr.Kind == lexer.TokenFloat {
		lit := p.parsePrimary("-")
		switch lit := lit.(type) {
		case *ast.IntLit:
			lit.Pos = start
		case *ast.FloatLit:
			lit.Pos = start
		}
		return lit
	}
	return &ast.NegExpr{Expr: p.parseUnary(), Pos: start}
}

func (p *Parser) parsePrimary(sign string) ast.NumExpr {
	start := p.pos()
	switch p.curr.Kind {
	case lexer.TokenInt:
		tok := p.curr
		p.next()
		v, err := strconv.ParseInt(sign+tok.Text, 10, 32)
		if err != nil {
			p.errAt(start, fmt.Sprintf("integer literal %s%s does not fit in int", sign, tok.Text))
		}
		return &ast.IntLit{Value: int32(v), Pos: start}
	case lexer.TokenFloat:
		tok := p.curr
		p.next()
		v, err := strconv.ParseFloat(sign+tok.Text, 64)
		if err != nil {
			p.errAt(start, fmt.Sprintf("malformed float literal %s", tok.Text))
		}
		return &ast.FloatLit{Value: v, Pos: start}
	case lexer.TokenIdent:
		return p.parseVarRef()
	case lexer.TokenLParen:
		p.next()
		expr := p.parseNumExpr(0)
		p.expect(lexer.TokenRParen)
		return expr
	case lexer.TokenIllegal:
		p.err(p.curr.Text)
	default:
		p.err(fmt.Sprintf("numeric expression expected, found %s", p.curr.Kind))
	}
	return &ast.IntLit{Pos: start}
}

func (p *Parser) parseVarRef() *ast.VarRef {
	start := p.pos()
	nameTok := p.expect(lexer.TokenIdent)
	ref := &ast.VarRef{Name: nameTok.Text, Pos: start}
	if nameTok.Kind != lexer.TokenIdent {
		return ref
	}
	slot, ok := p.fn.Lookup(nameTok.Text)
	if !ok {
		p.errAt(start, fmt.Sprintf("undeclared variable '%s'", nameTok.Text))
		return ref
	}
	ref.Type = p.fn.Variables[slot].Type
	return ref
}

func binaryPrecedence(kind lexer.TokenKind) int {
	switch kind {
	case lexer.TokenPlus, lexer.TokenMinus:
		return 1
	case lexer.TokenStar, lexer.TokenSlash:
		return 2
	default:
		return -1
	}
}

func opFromToken(kind lexer.TokenKind) ast.BinOp {
	switch kind {
	case lexer.TokenMinus:
		return ast.Sub
	case lexer.TokenStar:
		return ast.Mul
	case lexer.TokenSlash:
		return ast.Div
	default:
		return ast.Add
	}
}

func (p *Parser) optional(kind lexer.TokenKind) {
	if p.curr.Kind == kind {
		p.next()
	}
}

func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	if p.curr.Kind != kind {
		if p.curr.Kind == lexer.TokenIllegal {
			p.err(p.curr.Text)
		} else {
			p.err(fmt.Sprintf("%s expected, found %s", kind, p.curr.Kind))
		}
		return p.curr
	}
	tok := p.curr
	p.next()
	return tok
}

func (p *Parser) next() {
	p.curr = p.lex.Next()
}

func (p *Parser) pos() ast.Position {
	return ast.Position{File: p.path, Line: p.curr.Pos.Line, Col: p.curr.Pos.Col}
}

func (p *Parser) err(msg string) {
	p.errAt(p.pos(), msg)
}

func (p *Parser) errAt(pos ast.Position, msg string) {
	p.errs = append(p.errs, &Error{Pos: pos, Msg: msg})
}
