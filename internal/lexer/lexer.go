package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	src      string
	pos      int
	line     int
	col      int
	peeked   *Token
	comments []Comment
	illegal  *Token
}

func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Comments returns all comments encountered during lexing in source order.
func (l *Lexer) Comments() []Comment {
	if len(l.comments) == 0 {
		return nil
	}
	out := make([]Comment, len(l.comments))
	copy(out, l.comments)
	return out
}

func (l *Lexer) Next() Token {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok
	}
	l.skipSpace()
	if l.illegal != nil {
		tok := *l.illegal
		l.illegal = nil
		return tok
	}
	startPos := Position{Line: l.line, Col: l.col}
	if l.eof() {
		return Token{Kind: TokenEOF, Pos: startPos}
	}
	ch := l.peek()
	if isIdentStart(ch) {
		text := l.readIdent()
		if kind, ok := keywords[text]; ok {
			return Token{Kind: kind, Text: text, Pos: startPos}
		}
		return Token{Kind: TokenIdent, Text: text, Pos: startPos}
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))) {
		text, isFloat := l.readNumber()
		kind := TokenInt
		if isFloat {
			kind = TokenFloat
		}
		return Token{Kind: kind, Text: text, Pos: startPos}
	}
	switch ch {
	case '"':
		text, ok := l.readString()
		if !ok {
			return Token{Kind: TokenIllegal, Text: "unterminated string literal", Pos: startPos}
		}
		return Token{Kind: TokenString, Text: text, Pos: startPos}
	case '(':
		l.advance()
		return Token{Kind: TokenLParen, Text: "(", Pos: startPos}
	case ')':
		l.advance()
		return Token{Kind: TokenRParen, Text: ")", Pos: startPos}
	case '{':
		l.advance()
		return Token{Kind: TokenLBrace, Text: "{", Pos: startPos}
	case '}':
		l.advance()
		return Token{Kind: TokenRBrace, Text: "}", Pos: startPos}
	case ',':
		l.advance()
		return Token{Kind: TokenComma, Text: ",", Pos: startPos}
	case ';':
		l.advance()
		return Token{Kind: TokenSemicolon, Text: ";", Pos: startPos}
	case '=':
		l.advance()
		return Token{Kind: TokenEq, Text: "=", Pos: startPos}
	case '+':
		l.advance()
		return Token{Kind: TokenPlus, Text: "+", Pos: startPos}
	case '-':
		l.advance()
		return Token{Kind: TokenMinus, Text: "-", Pos: startPos}
	case '*':
		l.advance()
		return Token{Kind: TokenStar, Text: "*", Pos: startPos}
	case '/':
		l.advance()
		return Token{Kind: TokenSlash, Text: "/", Pos: startPos}
	default:
		l.advance()
		return Token{Kind: TokenIllegal, Text: "unexpected character " + strconv.QuoteRune(ch), Pos: startPos}
	}
}

func (l *Lexer) Peek() Token {
	if l.peeked == nil {
		tok := l.Next()
		l.peeked = &tok
	}
	return *l.peeked
}

func (l *Lexer) skipSpace() {
	for {
		if l.eof() {
			return
		}
		ch := l.peek()
		if ch == '/' && l.peekN(1) == '/' {
			startByte := l.pos
			startPos := Position{Line: l.line, Col: l.col}
			inline := l.hasCodeBeforeInLine(startByte)
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
			l.comments = append(l.comments, Comment{
				Kind:   CommentLine,
				Text:   strings.TrimRight(l.src[startByte:l.pos], "\r"),
				Pos:    startPos,
				Inline: inline,
			})
			continue
		}
		if ch == '/' && l.peekN(1) == '*' {
			startByte := l.pos
			startPos := Position{Line: l.line, Col: l.col}
			inline := l.hasCodeBeforeInLine(startByte)
			l.advance()
			l.advance()
			closed := false
			for !l.eof() {
				if l.peek() == '*' && l.peekN(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.illegal = &Token{Kind: TokenIllegal, Text: "unterminated block comment", Pos: startPos}
				return
			}
			l.comments = append(l.comments, Comment{
				Kind:   CommentBlock,
				Text:   l.src[startByte:l.pos],
				Pos:    startPos,
				Inline: inline,
			})
			continue
		}
		if unicode.IsSpace(ch) {
			l.advance()
			continue
		}
		return
	}
}

func (l *Lexer) hasCodeBeforeInLine(commentStart int) bool {
	for i := commentStart - 1; i >= 0; i-- {
		ch := l.src[i]
		if ch == '\n' || ch == '\r' {
			return false
		}
		if ch != ' ' && ch != '\t' {
			return true
		}
	}
	return false
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for !l.eof() {
		ch := l.peek()
		if !isIdentPart(ch) {
			break
		}
		l.advance()
	}
	return l.src[start:l.pos]
}

// readNumber scans digits with an optional fraction and exponent. Whether
// the text is a well-formed literal is left to the parser.
func (l *Lexer) readNumber() (string, bool) {
	start := l.pos
	isFloat := false
	for !l.eof() {
		ch := l.peek()
		if isDigit(ch) {
			l.advance()
			continue
		}
		if ch == '.' && !isFloat {
			isFloat = true
			l.advance()
			continue
		}
		if ch == 'e' || ch == 'E' {
			isFloat = true
			l.advance()
			if !l.eof() {
				if l.peek() == '+' || l.peek() == '-' {
					l.advance()
				}
			}
			continue
		}
		break
	}
	return l.src[start:l.pos], isFloat
}

func (l *Lexer) readString() (string, bool) {
	l.advance()
	var b strings.Builder
	for !l.eof() {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			return b.String(), true
		}
		if ch == '\n' {
			return "", false
		}
		if ch == '\\' {
			l.advance()
			if l.eof() {
				break
			}
			esc := l.peek()
			l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte('\\')
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(ch)
		l.advance()
	}
	return "", false
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	ch := l.src[l.pos : l.pos+size]
	l.pos += size
	if ch == "\n" {
		l.line++
		l.col = 1
		return
	}
	l.col++
}

func (l *Lexer) peek() rune {
	if l.eof() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return ch
}

func (l *Lexer) peekN(n int) rune {
	idx := l.pos
	for i := 0; i < n; i++ {
		if idx >= len(l.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.src[idx:])
		idx += size
	}
	if idx >= len(l.src) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[idx:])
	return ch
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.src)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
