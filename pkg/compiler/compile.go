package compiler

import "fmt"

// Result holds every intermediate product of a successful compilation.
type Result struct {
	Tokens   []Token
	Program  *Program
	Symbols  *SymbolTable
	Assembly string
}

// Build runs the whole pipeline and keeps the intermediate stages, for tools
// that want to show them. Stage errors are wrapped with the stage name.
func Build(src string, target Target) (*Result, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex error: %w", err)
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	syms := NewSymbolTable()
	assembly, err := Generate(prog, syms, target)
	if err != nil {
		return nil, fmt.Errorf("codegen error: %w", err)
	}

	return &Result{Tokens: tokens, Program: prog, Symbols: syms, Assembly: assembly}, nil
}

// Compile translates src into assembly text for target.
func Compile(src string, target Target) (string, error) {
	res, err := Build(src, target)
	if err != nil {
		return "", err
	}
	return res.Assembly, nil
}
