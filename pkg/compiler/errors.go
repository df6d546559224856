package compiler

import (
	"fmt"
	"strings"
)

// LexError reports a character that starts no token.
type LexError struct {
	Char rune
	Pos  int
	Line int
	Col  int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d:%d: unexpected character %q", e.Line, e.Col, e.Char)
}

// ParseError reports a token that does not fit the grammar at its position.
// Expected names what the parser was looking for, e.g. "')'" or "statement".
type ParseError struct {
	Expected string
	Got      Token
	Snippet  string // trimmed source line of Got, when available
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "line %d: expected %s, got %s", e.Got.Line, e.Expected, e.Got.Type)
	if e.Got.Type != EOF {
		fmt.Fprintf(&sb, " (%q)", e.Got.Lexeme)
	}
	if e.Snippet != "" {
		fmt.Fprintf(&sb, "\n  |> %s", e.Snippet)
	}
	return sb.String()
}

// DuplicateDeclarationError reports a second let for a name already bound.
type DuplicateDeclarationError struct {
	Name string
	Slot int // slot of the first declaration
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("identifier already used: %s", e.Name)
}

// UndeclaredIdentifierError reports a read of a name no earlier let bound.
type UndeclaredIdentifierError struct {
	Name string
}

func (e *UndeclaredIdentifierError) Error() string {
	return fmt.Sprintf("undeclared identifier: %s", e.Name)
}
