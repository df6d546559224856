package compiler

import "strings"

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program    = statement* EOF
//	statement  = "exit" "(" expression ")" ";"
//	           | "let" IDENTIFIER "=" expression ";"
//	expression = INT_LIT | IDENTIFIER
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a ParseError for tok, attaching the source line it sits on.
func (p *Parser) fmtError(tok Token, expected string) error {
	snippet := ""
	lineIdx := tok.Line - 1 // Lines are 1-based
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}
	return &ParseError{Expected: expected, Got: tok, Snippet: snippet}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
// Past the end of the slice it keeps answering with the final EOF token.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if n := len(p.tokens); n > 0 && p.tokens[n-1].Type == EOF {
			return p.tokens[n-1]
		}
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an
// error without consuming.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, tt.describe())
	}
	return p.advance(), nil
}

// parseExpression returns nil when the current token cannot start an
// expression; the caller decides whether that is an error.
func (p *Parser) parseExpression() Expr {
	switch tok := p.peek(); tok.Type {
	case INT_LIT:
		p.advance()
		return &IntLiteral{Value: tok.Lexeme}
	case IDENTIFIER:
		p.advance()
		return &Identifier{Name: tok.Lexeme}
	}
	return nil
}

// parseExit parses  exit ( expression ) ;  with the "exit" keyword current.
func (p *Parser) parseExit() (Stmt, error) {
	p.advance() // exit
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	expr := p.parseExpression()
	if expr == nil {
		return nil, p.fmtError(p.peek(), "expression")
	}

	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ExitStmt{Expr: expr}, nil
}

// parseLet parses  let IDENTIFIER = expression ;  with the "let" keyword
// current. The name and "=" are checked by lookahead before anything is
// consumed.
func (p *Parser) parseLet() (Stmt, error) {
	if tok := p.peekAt(1); tok.Type != IDENTIFIER {
		return nil, p.fmtError(tok, IDENTIFIER.describe())
	}
	if tok := p.peekAt(2); tok.Type != ASSIGN {
		return nil, p.fmtError(tok, ASSIGN.describe())
	}
	p.advance() // let
	name := p.advance().Lexeme
	p.advance() // =

	expr := p.parseExpression()
	if expr == nil {
		return nil, p.fmtError(p.peek(), "expression")
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &LetStmt{Name: name, Expr: expr}, nil
}

// parseStatement dispatches on the current token. It returns a nil Stmt and
// nil error when the token cannot start a statement.
func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {
	case EXIT:
		return p.parseExit()
	case LET:
		return p.parseLet()
	}
	return nil, nil
}

// Parse builds a Program from tokens. rawSource is only used to quote the
// offending line in errors. The first error aborts parsing.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	p := NewParser(tokens, rawSource)
	prog := &Program{}
	for p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt == nil {
			return nil, p.fmtError(p.peek(), "statement")
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}
