package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"hydrogen/pkg/asm"
)

// ABI is the system call convention of a target OS.
type ABI struct {
	Name        string
	SyscallReg  int    // register holding the system call number
	ExitSyscall uint64 // number of the exit call
}

var (
	DarwinABI = ABI{Name: "darwin-arm64", SyscallReg: 16, ExitSyscall: 1}
	LinuxABI  = ABI{Name: "linux-arm64", SyscallReg: 8, ExitSyscall: 93}
)

// ABIFor returns the ABI matching a compiler target name.
func ABIFor(target string) (ABI, bool) {
	switch target {
	case DarwinABI.Name:
		return DarwinABI, true
	case LinuxABI.Name:
		return LinuxABI, true
	}
	return ABI{}, false
}

const (
	// DefaultMemSize is the stack memory given to a CPU by NewCPU when
	// memSize is zero.
	DefaultMemSize = 64 * 1024

	// stackHeadroom is left above the initial sp, standing in for the
	// caller's frame that a real process would have there.
	stackHeadroom = 4 * 1024

	// DefaultStepLimit bounds Run.
	DefaultStepLimit = 1 << 20
)

var (
	ErrHalted      = errors.New("cpu halted")
	ErrNoProgram   = errors.New("no program loaded")
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrEndOfText   = errors.New("execution ran past the last instruction")
	ErrUnalignedSP = errors.New("stack pointer not 16-byte aligned")
)

// CPU executes an asm.Program against a register file and a flat stack
// memory. Addresses are offsets into Memory.
type CPU struct {
	X  [31]uint64
	SP uint64
	PC int // index into Program.Instructions

	Memory []byte

	ABI      ABI
	Halted   bool
	ExitCode int
	Steps    int

	// StepLimit bounds Run; zero means DefaultStepLimit.
	StepLimit int

	// StrictAlign makes sp-relative accesses fail when sp is not 16-byte
	// aligned, as the hardware does.
	StrictAlign bool

	prog *asm.Program
}

func NewCPU(abi ABI, memSize int) *CPU {
	if memSize <= 0 {
		memSize = DefaultMemSize
	}
	c := &CPU{
		ABI:    abi,
		Memory: make([]byte, memSize),
	}
	c.Reset()
	return c
}

// Reset clears registers and memory and rewinds to the program entry.
func (c *CPU) Reset() {
	c.X = [31]uint64{}
	clear(c.Memory)
	c.SP = uint64(len(c.Memory) - stackHeadroom)
	c.SP &^= 0xF
	c.Halted = false
	c.ExitCode = 0
	c.Steps = 0
	c.PC = 0
	if c.prog != nil {
		c.PC = c.prog.Entry
	}
}

// Load installs prog and resets the machine.
func (c *CPU) Load(prog *asm.Program) {
	c.prog = prog
	c.Reset()
}

// readReg reads r, truncated to 32 bits for the w view.
func (c *CPU) readReg(r asm.Register) uint64 {
	var v uint64
	switch {
	case r.SP:
		v = c.SP
	case r.Zero:
		v = 0
	default:
		v = c.X[r.Num]
	}
	if !r.Wide {
		v &= 0xFFFFFFFF
	}
	return v
}

// writeReg writes r; w writes zero the upper half.
func (c *CPU) writeReg(r asm.Register, v uint64) {
	if !r.Wide {
		v &= 0xFFFFFFFF
	}
	switch {
	case r.SP:
		c.SP = v
	case r.Zero:
	default:
		c.X[r.Num] = v
	}
}

func (c *CPU) address(op asm.Operand, size int) (uint64, error) {
	base := c.readReg(op.Reg)
	if op.Reg.SP && c.StrictAlign && base%16 != 0 {
		return 0, ErrUnalignedSP
	}
	addr := base + uint64(op.Imm)
	if addr >= uint64(len(c.Memory)) || addr+uint64(size) > uint64(len(c.Memory)) {
		return 0, fmt.Errorf("memory access out of range: 0x%X (+%d)", addr, size)
	}
	return addr, nil
}

func (c *CPU) Read(addr uint64, size int) uint64 {
	if size == 8 {
		return binary.LittleEndian.Uint64(c.Memory[addr:])
	}
	return uint64(binary.LittleEndian.Uint32(c.Memory[addr:]))
}

func (c *CPU) Write(addr uint64, size int, v uint64) {
	if size == 8 {
		binary.LittleEndian.PutUint64(c.Memory[addr:], v)
		return
	}
	binary.LittleEndian.PutUint32(c.Memory[addr:], uint32(v))
}

func accessSize(r asm.Register) int {
	if r.Wide {
		return 8
	}
	return 4
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}
	if c.prog == nil {
		return ErrNoProgram
	}
	if c.PC < 0 || c.PC >= len(c.prog.Instructions) {
		return ErrEndOfText
	}

	in := c.prog.Instructions[c.PC]
	c.PC++
	c.Steps++

	if err := c.exec(in); err != nil {
		return fmt.Errorf("line %d: %s: %w", in.Line, in, err)
	}
	return nil
}

func (c *CPU) exec(in asm.Instruction) error {
	ops := in.Operands
	switch in.Mnemonic {
	case "NOP":
		// No operation.

	case "MOV":
		if ops[1].Kind == asm.KindImmediate {
			c.writeReg(ops[0].Reg, uint64(ops[1].Imm))
		} else {
			c.writeReg(ops[0].Reg, c.readReg(ops[1].Reg))
		}

	case "ADD", "SUB":
		lhs := c.readReg(ops[1].Reg)
		var rhs uint64
		if ops[2].Kind == asm.KindImmediate {
			rhs = uint64(ops[2].Imm)
		} else {
			rhs = c.readReg(ops[2].Reg)
		}
		if in.Mnemonic == "SUB" {
			rhs = -rhs
		}
		c.writeReg(ops[0].Reg, lhs+rhs)

	case "LDR":
		size := accessSize(ops[0].Reg)
		addr, err := c.address(ops[1], size)
		if err != nil {
			return err
		}
		c.writeReg(ops[0].Reg, c.Read(addr, size))

	case "STR":
		size := accessSize(ops[0].Reg)
		addr, err := c.address(ops[1], size)
		if err != nil {
			return err
		}
		c.Write(addr, size, c.readReg(ops[0].Reg))

	case "SVC":
		return c.syscall()

	default:
		return fmt.Errorf("unsupported instruction %s", in.Mnemonic)
	}
	return nil
}

func (c *CPU) syscall() error {
	num := c.X[c.ABI.SyscallReg]
	switch num {
	case c.ABI.ExitSyscall:
		c.ExitCode = int(c.X[0] & 0xFF)
		c.Halted = true
		return nil
	}
	return fmt.Errorf("unsupported system call %d for %s", num, c.ABI.Name)
}

// Run steps until the program exits and returns its exit status.
func (c *CPU) Run() (int, error) {
	limit := c.StepLimit
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	for !c.Halted {
		if c.Steps >= limit {
			return 0, ErrStepLimit
		}
		if err := c.Step(); err != nil {
			return 0, err
		}
	}
	return c.ExitCode, nil
}

// Execute loads prog on a fresh CPU and runs it to completion.
func Execute(prog *asm.Program, abi ABI) (int, error) {
	c := NewCPU(abi, 0)
	c.Load(prog)
	return c.Run()
}
