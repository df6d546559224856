package compiler

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"exit": EXIT,
	"let":  LET,
}

// Lexer holds all mutable state for a single scanning pass over src.
// A Lexer is not restartable; use a fresh one per source.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // 1-based column of the next rune
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1, col: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// isSpace matches the C isspace set.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnum(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && isSpace(l.peek()) {
		l.advance()
	}
}

// scanWord collects a maximal alphanumeric run and classifies it as a keyword
// or an identifier. The first letter must still be at l.peek().
func (l *Lexer) scanWord() Token {
	tok := Token{Pos: l.pos, Line: l.line, Col: l.col}
	start := l.pos
	for !l.atEnd() && isAlnum(l.peek()) {
		l.advance()
	}
	tok.Lexeme = string(l.src[start:l.pos])
	tok.Type = IDENTIFIER
	if kw, ok := keywords[tok.Lexeme]; ok {
		tok.Type = kw
	}
	return tok
}

// scanInt collects a maximal run of decimal digits.
func (l *Lexer) scanInt() Token {
	tok := Token{Type: INT_LIT, Pos: l.pos, Line: l.line, Col: l.col}
	start := l.pos
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	tok.Lexeme = string(l.src[start:l.pos])
	return tok
}

// nextToken skips whitespace and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.atEnd() {
		return Token{Type: EOF, Pos: l.pos, Line: l.line, Col: l.col}, nil
	}

	ch := l.peek()
	if isAlpha(ch) {
		return l.scanWord(), nil
	}
	if isDigit(ch) {
		return l.scanInt(), nil
	}

	tok := Token{Lexeme: string(ch), Pos: l.pos, Line: l.line, Col: l.col}
	switch ch {
	case '(':
		tok.Type = LPAREN
	case ')':
		tok.Type = RPAREN
	case '=':
		tok.Type = ASSIGN
	case ';':
		tok.Type = SEMICOLON
	default:
		return Token{}, &LexError{Char: ch, Pos: l.pos, Line: l.line, Col: l.col}
	}
	l.advance()
	return tok, nil
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *LexError on the first character outside the language.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
