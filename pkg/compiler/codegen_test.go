package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestGenerate_Empty(t *testing.T) {
	code, err := Generate(&Program{}, nil, TargetDarwinARM64)
	require.NoError(t, err)
	assert.Equal(t, lines(
		".global _main",
		".align 2",
		"_main:",
		"    sub sp, sp, #16",
		"    add sp, sp, #16",
		"    mov w16, 1",
		"    mov w0, 0",
		"    svc 0",
	), code)
}

func TestGenerate_ExitLiteral(t *testing.T) {
	prog := &Program{Stmts: []Stmt{
		&ExitStmt{Expr: &IntLiteral{Value: "42"}},
	}}

	code, err := Generate(prog, nil, TargetDarwinARM64)
	require.NoError(t, err)
	assert.Equal(t, lines(
		".global _main",
		".align 2",
		"_main:",
		"    sub sp, sp, #16",
		"    mov w16, 42",
		"    str w16, [sp, #0]",
		"    mov w16, 1",
		"    ldr w0, [sp, #0]",
		"    add sp, sp, #0",
		"    svc 0",
		"    add sp, sp, #16",
		"    mov w16, 1",
		"    mov w0, 0",
		"    svc 0",
	), code)
}

func TestGenerate_LetThenExit(t *testing.T) {
	prog := &Program{Stmts: []Stmt{
		&LetStmt{Name: "x", Expr: &IntLiteral{Value: "5"}},
		&ExitStmt{Expr: &Identifier{Name: "x"}},
	}}

	syms := NewSymbolTable()
	code, err := Generate(prog, syms, TargetDarwinARM64)
	require.NoError(t, err)
	assert.Equal(t, lines(
		".global _main",
		".align 2",
		"_main:",
		"    sub sp, sp, #16",
		"    mov w16, 5",
		"    str w16, [sp, #0]",
		"    ldr w16, [sp, #0]",
		"    str w16, [sp, #8]",
		"    mov w16, 1",
		"    ldr w0, [sp, #8]",
		"    add sp, sp, #8",
		"    svc 0",
		"    add sp, sp, #16",
		"    mov w16, 1",
		"    mov w0, 0",
		"    svc 0",
	), code)

	sym, ok := syms.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 0, sym.Slot)
}

func TestGenerate_SlotsFollowStackDepth(t *testing.T) {
	prog := &Program{Stmts: []Stmt{
		&LetStmt{Name: "a", Expr: &IntLiteral{Value: "1"}},
		&LetStmt{Name: "b", Expr: &Identifier{Name: "a"}},
		&LetStmt{Name: "c", Expr: &IntLiteral{Value: "3"}},
		&ExitStmt{Expr: &Identifier{Name: "b"}},
	}}

	syms := NewSymbolTable()
	code, err := Generate(prog, syms, TargetDarwinARM64)
	require.NoError(t, err)

	assert.Equal(t, []Symbol{
		{Name: "a", Slot: 0},
		{Name: "b", Slot: 1},
		{Name: "c", Slot: 2},
	}, syms.Symbols())

	// b is read from its own slot and pushed above c.
	assertContains(t, code, "    ldr w16, [sp, #8]\n    str w16, [sp, #24]\n")
	assertContains(t, code, "    ldr w0, [sp, #24]\n    add sp, sp, #24\n")
}

func TestGenerate_ExitLiteralTextIsPreserved(t *testing.T) {
	for _, n := range []string{"0", "1", "42", "255", "007", "65535"} {
		prog := &Program{Stmts: []Stmt{&ExitStmt{Expr: &IntLiteral{Value: n}}}}
		code, err := Generate(prog, nil, TargetDarwinARM64)
		require.NoError(t, err)
		assertContains(t, code, "    mov w16, "+n+"\n")
	}
}

func TestGenerate_LinuxTarget(t *testing.T) {
	prog := &Program{Stmts: []Stmt{
		&ExitStmt{Expr: &IntLiteral{Value: "7"}},
	}}

	code, err := Generate(prog, nil, TargetLinuxARM64)
	require.NoError(t, err)
	assert.Equal(t, lines(
		".global _start",
		".align 2",
		"_start:",
		"    sub sp, sp, #16",
		"    mov w16, 7",
		"    str w16, [sp, #0]",
		"    mov w8, 93",
		"    ldr w0, [sp, #0]",
		"    add sp, sp, #0",
		"    svc 0",
		"    add sp, sp, #16",
		"    mov w8, 93",
		"    mov w0, 0",
		"    svc 0",
	), code)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("duplicate with same value", func(t *testing.T) {
		prog := &Program{Stmts: []Stmt{
			&LetStmt{Name: "x", Expr: &IntLiteral{Value: "1"}},
			&LetStmt{Name: "x", Expr: &IntLiteral{Value: "1"}},
		}}
		code, err := Generate(prog, nil, TargetDarwinARM64)
		assert.Empty(t, code)

		var dup *DuplicateDeclarationError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "x", dup.Name)
		assert.Equal(t, 0, dup.Slot)
		assert.EqualError(t, err, "identifier already used: x")
	})

	t.Run("duplicate with different value", func(t *testing.T) {
		prog := &Program{Stmts: []Stmt{
			&LetStmt{Name: "x", Expr: &IntLiteral{Value: "1"}},
			&LetStmt{Name: "y", Expr: &IntLiteral{Value: "2"}},
			&LetStmt{Name: "x", Expr: &Identifier{Name: "y"}},
		}}
		_, err := Generate(prog, nil, TargetDarwinARM64)

		var dup *DuplicateDeclarationError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "x", dup.Name)
	})

	t.Run("undeclared", func(t *testing.T) {
		prog := &Program{Stmts: []Stmt{
			&ExitStmt{Expr: &Identifier{Name: "y"}},
		}}
		code, err := Generate(prog, nil, TargetDarwinARM64)
		assert.Empty(t, code)

		var undeclared *UndeclaredIdentifierError
		require.ErrorAs(t, err, &undeclared)
		assert.Equal(t, "y", undeclared.Name)
		assert.EqualError(t, err, "undeclared identifier: y")
	})

	t.Run("self reference", func(t *testing.T) {
		// The name is bound before its value is generated, so this reads
		// the slot being filled rather than failing.
		prog := &Program{Stmts: []Stmt{
			&LetStmt{Name: "x", Expr: &Identifier{Name: "x"}},
		}}
		code, err := Generate(prog, nil, TargetDarwinARM64)
		require.NoError(t, err)
		assertContains(t, code, "    ldr w16, [sp, #0]\n    str w16, [sp, #0]\n")
	})

	t.Run("use before declaration", func(t *testing.T) {
		prog := &Program{Stmts: []Stmt{
			&ExitStmt{Expr: &Identifier{Name: "x"}},
			&LetStmt{Name: "x", Expr: &IntLiteral{Value: "1"}},
		}}
		_, err := Generate(prog, nil, TargetDarwinARM64)

		var undeclared *UndeclaredIdentifierError
		require.ErrorAs(t, err, &undeclared)
	})
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []string{"darwin-arm64", "linux-arm64"}, Targets())

	tgt, err := LookupTarget("linux-arm64")
	require.NoError(t, err)
	assert.Equal(t, TargetLinuxARM64, tgt)

	_, err = LookupTarget("riscv64")
	assert.Error(t, err)

	host := HostTarget()
	assert.Contains(t, Targets(), host.Name)
}
