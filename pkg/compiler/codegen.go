package compiler

import (
	"fmt"
	"strings"
)

const (
	wordSize    = 8     // bytes per stack slot
	scratchReg  = "w16" // every expression is loaded through this register
	exitCodeReg = "w0"
)

// CodeGen walks an AST and emits ARM64 assembly source text.
type CodeGen struct {
	syms   *SymbolTable
	target Target
	out    strings.Builder

	// stackSize counts logical pushes minus pops, in slots. It is separate
	// from the fixed frame the prologue reserves.
	stackSize int
}

func newCodeGen(syms *SymbolTable, target Target) *CodeGen {
	return &CodeGen{syms: syms, target: target}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) instr(format string, args ...any) {
	cg.line("    "+format, args...)
}

// push stores reg into the next free slot.
func (cg *CodeGen) push(reg string) {
	cg.instr("str %s, [sp, #%d]", reg, cg.stackSize*wordSize)
	cg.stackSize++
}

// pop loads the top slot into reg.
func (cg *CodeGen) pop(reg string) {
	cg.stackSize--
	cg.instr("ldr %s, [sp, #%d]", reg, cg.stackSize*wordSize)
}

func (cg *CodeGen) syscall() {
	cg.instr("svc 0")
}

func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *IntLiteral:
		cg.instr("mov %s, %s", scratchReg, n.Value)
		cg.push(scratchReg)
		return nil

	case *Identifier:
		sym, ok := cg.syms.Lookup(n.Name)
		if !ok {
			return &UndeclaredIdentifierError{Name: n.Name}
		}
		cg.instr("ldr %s, [sp, #%d]", scratchReg, sym.Offset())
		cg.push(scratchReg)
		return nil
	}
	return fmt.Errorf("unsupported expression %T", e)
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *ExitStmt:
		if err := cg.genExpr(n.Expr); err != nil {
			return err
		}
		cg.instr("mov %s, %d", cg.target.SyscallReg, cg.target.ExitSyscall)
		cg.pop(exitCodeReg)
		// Sized by the dynamic counter, not the fixed frame.
		cg.instr("add sp, sp, #%d", cg.stackSize*wordSize)
		cg.syscall()
		return nil

	case *LetStmt:
		// The slot is reserved before the value is generated; the push
		// performed by genExpr is what fills it.
		if sym, exists := cg.syms.Allocate(n.Name, cg.stackSize); exists {
			return &DuplicateDeclarationError{Name: n.Name, Slot: sym.Slot}
		}
		return cg.genExpr(n.Expr)
	}
	return fmt.Errorf("unsupported statement %T", s)
}

func (cg *CodeGen) prologue() {
	cg.line(".global %s", cg.target.Entry)
	cg.line(".align 2")
	cg.line("%s:", cg.target.Entry)
	cg.instr("sub sp, sp, #%d", cg.target.FrameSize)
}

func (cg *CodeGen) epilogue() {
	cg.instr("add sp, sp, #%d", cg.target.FrameSize)
	cg.instr("mov %s, %d", cg.target.SyscallReg, cg.target.ExitSyscall)
	cg.instr("mov %s, 0", exitCodeReg)
	cg.syscall()
}

// Generate emits assembly for prog. syms receives every declared variable; a
// nil table is replaced with a fresh one. On error no text is returned.
func Generate(prog *Program, syms *SymbolTable, target Target) (string, error) {
	if syms == nil {
		syms = NewSymbolTable()
	}
	cg := newCodeGen(syms, target)

	cg.prologue()
	for _, s := range prog.Stmts {
		if err := cg.genStmt(s); err != nil {
			return "", err
		}
	}
	cg.epilogue()

	return cg.out.String(), nil
}
