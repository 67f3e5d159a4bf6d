package lexer

import "fmt"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIllegal
	TokenIdent
	TokenInt
	TokenFloat
	TokenString
	TokenImport
	TokenFn
	TokenMain
	TokenLocal
	TokenIntType
	TokenFloatType
	TokenPrint
	TokenPrintln
	TokenCall
	TokenLet
	TokenNl
	TokenToStr
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon
	TokenEq
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
)

type Position struct {
	Line int
	Col  int
}

// Token is one lexeme. For TokenIllegal, Text holds the error message.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenIllegal:
		return "illegal"
	case TokenIdent:
		return "ident"
	case TokenInt:
		return "int literal"
	case TokenFloat:
		return "float literal"
	case TokenString:
		return "string"
	case TokenImport:
		return "import"
	case TokenFn:
		return "fn"
	case TokenMain:
		return "main"
	case TokenLocal:
		return "local"
	case TokenIntType:
		return "int"
	case TokenFloatType:
		return "float"
	case TokenPrint:
		return "print"
	case TokenPrintln:
		return "println"
	case TokenCall:
		return "call"
	case TokenLet:
		return "let"
	case TokenNl:
		return "nl"
	case TokenToStr:
		return "to_str"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	case TokenEq:
		return "="
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

var keywords = map[string]TokenKind{
	"import":  TokenImport,
	"fn":      TokenFn,
	"main":    TokenMain,
	"local":   TokenLocal,
	"int":     TokenIntType,
	"float":   TokenFloatType,
	"print":   TokenPrint,
	"println": TokenPrintln,
	"call":    TokenCall,
	"let":     TokenLet,
	"nl":      TokenNl,
	"to_str":  TokenToStr,
}

type CommentKind int

const (
	CommentLine CommentKind = iota
	CommentBlock
)

// Comment is a source comment with its text including delimiters.
type Comment struct {
	Kind   CommentKind
	Text   string
	Pos    Position
	Inline bool
}
