package lexer

import "testing"

func collect(src string) []Token {
	l := New(src)
	var out []Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Kind == TokenEOF || tok.Kind == TokenIllegal {
			return out
		}
	}
}

func TestKeywordsAndPunctuation(t *testing.T) {
	toks := collect(`fn greet { local int x; let x = (1 + 2) * 3 / -4 }`)
	want := []TokenKind{
		TokenFn, TokenIdent, TokenLBrace, TokenLocal, TokenIntType, TokenIdent, TokenSemicolon,
		TokenLet, TokenIdent, TokenEq, TokenLParen, TokenInt, TokenPlus, TokenInt, TokenRParen,
		TokenStar, TokenInt, TokenSlash, TokenMinus, TokenInt, TokenRBrace, TokenEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestNumbers(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"42", TokenInt},
		{"2.5", TokenFloat},
		{"1e20", TokenFloat},
		{"3.0E-2", TokenFloat},
		{".5", TokenFloat},
	}
	for _, c := range cases {
		tok := New(c.src).Next()
		if tok.Kind != c.kind || tok.Text != c.src {
			t.Fatalf("%q: got %s %q", c.src, tok.Kind, tok.Text)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tok := New(`"a\tb\n\"c\"\\"`).Next()
	if tok.Kind != TokenString {
		t.Fatalf("kind = %s", tok.Kind)
	}
	if tok.Text != "a\tb\n\"c\"\\" {
		t.Fatalf("text = %q", tok.Text)
	}
}

func TestPositionsAndComments(t *testing.T) {
	src := "// header\nmain {\n  /* note */ print(nl)\n}"
	l := New(src)
	main := l.Next()
	if main.Kind != TokenMain || main.Pos != (Position{Line: 2, Col: 1}) {
		t.Fatalf("main token = %+v", main)
	}
	l.Next()
	print := l.Next()
	if print.Kind != TokenPrint || print.Pos != (Position{Line: 3, Col: 14}) {
		t.Fatalf("print token = %+v", print)
	}
	comments := l.Comments()
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].Kind != CommentLine || comments[0].Text != "// header" || comments[0].Inline {
		t.Fatalf("line comment = %+v", comments[0])
	}
	if comments[1].Kind != CommentBlock || comments[1].Text != "/* note */" {
		t.Fatalf("block comment = %+v", comments[1])
	}
}

func TestIllegalInput(t *testing.T) {
	cases := map[string]string{
		"/* open":  "unterminated block comment",
		`"open`:    "unterminated string literal",
		"print(@)": "unexpected character '@'",
		"\"a\nb\"": "unterminated string literal",
	}
	for src, msg := range cases {
		toks := collect(src)
		last := toks[len(toks)-1]
		if last.Kind != TokenIllegal || last.Text != msg {
			t.Fatalf("%q: got %s %q", src, last.Kind, last.Text)
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("call f")
	if l.Peek().Kind != TokenCall {
		t.Fatal("peek should see call")
	}
	if l.Next().Kind != TokenCall {
		t.Fatal("next should return the peeked token")
	}
	if tok := l.Next(); tok.Kind != TokenIdent || tok.Text != "f" {
		t.Fatalf("got %+v", tok)
	}
}
