// Package compiler provides the lexer, parser, and code generator for the
// hydrogen language, targeting ARM64 assembly.
//
// Pipeline: source → Lex → Parse → Generate → assembly text
//
// The language has two statements, exit(expr); and let name = expr;, and two
// expressions, integer literals and variable reads. Every variable lives in
// its own 8-byte stack slot.
package compiler
