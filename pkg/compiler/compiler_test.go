package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydrogen/pkg/asm"
	"hydrogen/pkg/compiler"
	"hydrogen/pkg/cpu"
)

// compileAndRun compiles src for target, reads the result back with the
// assembler front end and executes it, returning the exit status.
func compileAndRun(t *testing.T, src string, target compiler.Target) (string, int) {
	t.Helper()

	assembly, err := compiler.Compile(src, target)
	require.NoError(t, err)

	prog, err := asm.Parse(assembly)
	require.NoError(t, err, "assembly:\n%s", assembly)

	abi, ok := cpu.ABIFor(target.Name)
	require.True(t, ok)

	vm := cpu.NewCPU(abi, 0)
	vm.StrictAlign = true
	vm.Load(prog)
	code, err := vm.Run()
	require.NoError(t, err, "assembly:\n%s", assembly)
	return assembly, code
}

func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"exit literal", "exit(42);", 42},
		{"let then exit", "let x = 5; exit(x);", 5},
		{"empty program exits zero", "", 0},
		{"copy chain", "let a = 7; let b = a; let c = b; exit(c);", 7},
		{"reads earlier slot", "let a = 3; let b = 9; exit(a);", 3},
		{"first exit wins", "exit(1); exit(2);", 1},
		{"leading zeros", "exit(007);", 7},
		{"leading zero reads as octal", "exit(010);", 8},
		{"largest single halfword", "exit(65535);", 255},
		{"status is truncated to a byte", "exit(300);", 44},
		{"multiline", "let first = 11;\nlet second = 22;\n\texit(second);\n", 22},
	}

	for _, target := range []compiler.Target{compiler.TargetDarwinARM64, compiler.TargetLinuxARM64} {
		for _, tt := range tests {
			t.Run(target.Name+"/"+tt.name, func(t *testing.T) {
				_, code := compileAndRun(t, tt.src, target)
				assert.Equal(t, tt.want, code)
			})
		}
	}
}

func TestEndToEnd_LetExitAssembly(t *testing.T) {
	assembly, code := compileAndRun(t, "let x = 5; exit(x);", compiler.TargetDarwinARM64)
	assert.Equal(t, 5, code)

	prog, err := asm.Parse(assembly)
	require.NoError(t, err)

	var got []string
	for _, in := range prog.Instructions {
		got = append(got, in.String())
	}
	assert.Equal(t, []string{
		"sub sp, sp, #16",
		"mov w16, #5",
		"str w16, [sp, #0]",
		"ldr w16, [sp, #0]",
		"str w16, [sp, #8]",
		"mov w16, #1",
		"ldr w0, [sp, #8]",
		"add sp, sp, #8",
		"svc #0",
		"add sp, sp, #16",
		"mov w16, #1",
		"mov w0, #0",
		"svc #0",
	}, got)
}

func TestEndToEnd_Failures(t *testing.T) {
	t.Run("duplicate declaration", func(t *testing.T) {
		assembly, err := compiler.Compile("let x = 1; let x = 2; exit(x);", compiler.TargetDarwinARM64)
		assert.Empty(t, assembly)

		var dup *compiler.DuplicateDeclarationError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "x", dup.Name)
		assert.EqualError(t, err, "codegen error: identifier already used: x")
	})

	t.Run("undeclared identifier", func(t *testing.T) {
		assembly, err := compiler.Compile("exit(y);", compiler.TargetDarwinARM64)
		assert.Empty(t, assembly)

		var undeclared *compiler.UndeclaredIdentifierError
		require.ErrorAs(t, err, &undeclared)
		assert.Equal(t, "y", undeclared.Name)
	})

	t.Run("missing close paren", func(t *testing.T) {
		assembly, err := compiler.Compile("exit(5;", compiler.TargetDarwinARM64)
		assert.Empty(t, assembly)

		var parseErr *compiler.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "')'", parseErr.Expected)
		assert.Contains(t, err.Error(), "parse error: line 1: expected ')'")
	})

	t.Run("unexpected character", func(t *testing.T) {
		assembly, err := compiler.Compile("exit(1 + 2);", compiler.TargetDarwinARM64)
		assert.Empty(t, assembly)

		var lexErr *compiler.LexError
		require.ErrorAs(t, err, &lexErr)
		assert.Equal(t, '+', lexErr.Char)
		assert.Contains(t, err.Error(), "lex error: ")
	})
}

// Literals the native assembler cannot take still compile, but the
// assembler front end refuses them instead of truncating.
func TestEndToEnd_UnassemblableLiterals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"wider than w register", "exit(4294967297);", "immediate 4294967297 cannot be moved into w16"},
		{"no single mov encoding", "exit(70000);", "immediate 70000 cannot be moved into w16"},
		{"invalid octal digit", "exit(08);", "invalid immediate '08'"},
	}

	for _, target := range []compiler.Target{compiler.TargetDarwinARM64, compiler.TargetLinuxARM64} {
		for _, tt := range tests {
			t.Run(target.Name+"/"+tt.name, func(t *testing.T) {
				assembly, err := compiler.Compile(tt.src, target)
				require.NoError(t, err)

				_, err = asm.Parse(assembly)
				var asmErr *asm.Error
				require.ErrorAs(t, err, &asmErr)
				assert.Equal(t, 5, asmErr.Line)
				assert.Contains(t, asmErr.Msg, tt.msg)
			})
		}
	}
}

func TestBuildKeepsStages(t *testing.T) {
	res, err := compiler.Build("let x = 5; exit(x);", compiler.TargetDarwinARM64)
	require.NoError(t, err)

	assert.Len(t, res.Tokens, 11)
	assert.Equal(t, compiler.EOF, res.Tokens[len(res.Tokens)-1].Type)
	assert.Len(t, res.Program.Stmts, 2)
	assert.Equal(t, 1, res.Symbols.Len())
	assert.Contains(t, res.Assembly, "_main:")
}

// Every compilation starts with an empty symbol table.
func TestCompileDoesNotShareState(t *testing.T) {
	for i := 0; i < 2; i++ {
		_, err := compiler.Compile("let x = 1; exit(x);", compiler.TargetDarwinARM64)
		require.NoError(t, err)
	}
}
