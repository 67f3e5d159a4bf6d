package ast

import "fmt"

// Program is everything the generator needs: library functions pulled in by
// imports, followed by the main program.
type Program struct {
	Functions []*Function
	Main      *MainProgram
}

type MainProgram struct {
	Imports   []Import
	Functions []*Function
	Main      *Function
}

type Import struct {
	Path string
	Pos  Position
}

type Function struct {
	Name      string
	Body      []Stmt
	Variables []Variable
	Pos       Position
	End       Position
}

// Lookup returns the slot of the first local declared with name.
func (f *Function) Lookup(name string) (int, bool) {
	for i, v := range f.Variables {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Type is a scalar value type. Strings are not values in this language.
type Type int

const (
	Int Type = iota
	Float
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

type Variable struct {
	Name string
	Type Type
	Pos  Position
}

// Expr is the right-hand side of an assignment: either a NumExpr or a StrExpr.
type Expr interface {
	exprNode()
	GetPos() Position
}

type NumExpr interface {
	Expr
	numNode()
}

type StrExpr interface {
	Expr
	strNode()
}

type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

type IntLit struct {
	Value int32
	Pos   Position
}

type FloatLit struct {
	Value float64
	Pos   Position
}

type BinaryExpr struct {
	Op    BinOp
	Left  NumExpr
	Right NumExpr
	Pos   Position
}

type NegExpr struct {
	Expr NumExpr
	Pos  Position
}

// VarRef names a local. Type is the declared type the front end resolved.
type VarRef struct {
	Name string
	Type Type
	Pos  Position
}

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*BinaryExpr) exprNode() {}
func (*NegExpr) exprNode()    {}
func (*VarRef) exprNode()     {}

func (*IntLit) numNode()     {}
func (*FloatLit) numNode()   {}
func (*BinaryExpr) numNode() {}
func (*NegExpr) numNode()    {}
func (*VarRef) numNode()     {}

func (e *IntLit) GetPos() Position     { return e.Pos }
func (e *FloatLit) GetPos() Position   { return e.Pos }
func (e *BinaryExpr) GetPos() Position { return e.Pos }
func (e *NegExpr) GetPos() Position    { return e.Pos }
func (e *VarRef) GetPos() Position     { return e.Pos }

type StrLit struct {
	Value string
	Pos   Position
}

// NumToStr converts a numeric expression to its decimal text at run time.
type NumToStr struct {
	Expr NumExpr
	Pos  Position
}

type Newline struct {
	Pos Position
}

func (*StrLit) exprNode()   {}
func (*NumToStr) exprNode() {}
func (*Newline) exprNode()  {}

func (*StrLit) strNode()   {}
func (*NumToStr) strNode() {}
func (*Newline) strNode()  {}

func (e *StrLit) GetPos() Position   { return e.Pos }
func (e *NumToStr) GetPos() Position { return e.Pos }
func (e *Newline) GetPos() Position  { return e.Pos }

type Stmt interface {
	stmtNode()
	GetPos() Position
}

// PrintStmt is print(...) or, with Newline set, println(...).
type PrintStmt struct {
	Args    []StrExpr
	Newline bool
	Pos     Position
}

type CallStmt struct {
	Name string
	Pos  Position
}

type AssignStmt struct {
	Var   *VarRef
	Value Expr
	Pos   Position
}

func (*PrintStmt) stmtNode()  {}
func (*CallStmt) stmtNode()   {}
func (*AssignStmt) stmtNode() {}

func (s *PrintStmt) GetPos() Position  { return s.Pos }
func (s *CallStmt) GetPos() Position   { return s.Pos }
func (s *AssignStmt) GetPos() Position { return s.Pos }

type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}
