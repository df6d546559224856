package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable name
	INT_LIT    // decimal integer literal

	// Keywords
	EXIT // "exit"
	LET  // "let"

	// Punctuation
	LPAREN    // (
	RPAREN    // )
	ASSIGN    // =
	SEMICOLON // ;
)

var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INT_LIT:    "INT_LIT",
	EXIT:       "EXIT",
	LET:        "LET",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	ASSIGN:     "ASSIGN",
	SEMICOLON:  "SEMICOLON",
}

// tokenSpelling is the source text of the punctuation the parser expects. It
// is used when a parse error names the token it was looking for.
var tokenSpelling = map[TokenType]string{
	LPAREN:    "'('",
	RPAREN:    "')'",
	ASSIGN:    "'='",
	SEMICOLON: "';'",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// describe returns the name used for tt in diagnostics: the quoted spelling
// for punctuation, a lower-case category for literals.
func (tt TokenType) describe() string {
	if s, ok := tokenSpelling[tt]; ok {
		return s
	}
	switch tt {
	case IDENTIFIER:
		return "identifier"
	case INT_LIT:
		return "integer literal"
	case EOF:
		return "end of input"
	}
	return tt.String()
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Pos    int    // 0-based rune offset of the first character
	Line   int    // 1-based source line
	Col    int    // 1-based column
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
}
