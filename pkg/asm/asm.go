// Package asm reads the ARM64 assembly subset emitted by the compiler into a
// Program that pkg/cpu can execute.
package asm

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"unicode"
)

// OperandKind classifies an instruction operand.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindImmediate
	KindMemory
)

func (k OperandKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindImmediate:
		return "immediate"
	case KindMemory:
		return "memory"
	}
	return fmt.Sprintf("OperandKind(%d)", int(k))
}

// Register is one view of a general purpose register.
type Register struct {
	Num  int  // 0-30, or 31 for sp and the zero register
	Wide bool // x (64-bit) view rather than w (32-bit)
	SP   bool
	Zero bool
}

func (r Register) String() string {
	prefix := "w"
	if r.Wide {
		prefix = "x"
	}
	switch {
	case r.SP && r.Wide:
		return "sp"
	case r.SP:
		return "wsp"
	case r.Zero:
		return prefix + "zr"
	}
	return fmt.Sprintf("%s%d", prefix, r.Num)
}

// Operand is a parsed instruction operand. Imm holds the immediate value for
// KindImmediate and the byte offset for KindMemory; Reg holds the register
// for KindRegister and the base for KindMemory.
type Operand struct {
	Kind OperandKind
	Reg  Register
	Imm  int64
}

func (o Operand) String() string {
	switch o.Kind {
	case KindImmediate:
		return fmt.Sprintf("#%d", o.Imm)
	case KindMemory:
		return fmt.Sprintf("[%s, #%d]", o.Reg, o.Imm)
	}
	return o.Reg.String()
}

// Instruction is a single decoded source instruction.
type Instruction struct {
	Line     int
	Mnemonic string // upper case
	Operands []Operand
}

func (in Instruction) String() string {
	ops := make([]string, len(in.Operands))
	for i, op := range in.Operands {
		ops[i] = op.String()
	}
	return strings.TrimSpace(strings.ToLower(in.Mnemonic) + " " + strings.Join(ops, ", "))
}

// Program is an assembled instruction stream.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int // label -> instruction index
	Globals      []string
	Entry        int // instruction index execution starts at
}

// Error reports a malformed source line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func errorf(lineNo int, format string, args ...any) error {
	return &Error{Line: lineNo, Msg: fmt.Sprintf(format, args...)}
}

const (
	reg = KindRegister
	imm = KindImmediate
	mem = KindMemory
)

// forms lists the operand shapes each mnemonic accepts.
var forms = map[string][][]OperandKind{
	"NOP": {{}},
	"SVC": {{imm}},
	"MOV": {{reg, reg}, {reg, imm}},
	"ADD": {{reg, reg, imm}, {reg, reg, reg}},
	"SUB": {{reg, reg, imm}, {reg, reg, reg}},
	"LDR": {{reg, mem}},
	"STR": {{reg, mem}},
}

var directives = map[string]int{
	".GLOBAL":  1,
	".GLOBL":   1,
	".ALIGN":   1,
	".P2ALIGN": 1,
	".TEXT":    0,
}

type Assembler struct {
	labels      map[string]int
	globals     []string
	globalLines []int // source line of each .global
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Parse reads code into a Program.
func Parse(code string) (*Program, error) {
	return NewAssembler().Parse(code)
}

func (a *Assembler) Parse(code string) (*Program, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(lines)
}

// pass1 records labels and global symbols.
func (a *Assembler) pass1(lines []string) error {
	index := 0

	for n, raw := range lines {
		lineNo := n + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return errorf(lineNo, "duplicate label '%s'", lbl)
			}
			a.labels[lbl] = index
		}

		if p.mnemonic == "" {
			continue
		}

		if want, ok := directives[p.mnemonic]; ok {
			if len(p.operands) != want {
				return errorf(lineNo, "%s expects %d operand(s)", strings.ToLower(p.mnemonic), want)
			}
			switch p.mnemonic {
			case ".GLOBAL", ".GLOBL":
				if !isIdentifier(p.operands[0]) {
					return errorf(lineNo, "invalid symbol '%s'", p.operands[0])
				}
				a.globals = append(a.globals, p.operands[0])
				a.globalLines = append(a.globalLines, lineNo)
			case ".ALIGN", ".P2ALIGN":
				if _, err := parseImmediate(p.operands[0], lineNo); err != nil {
					return err
				}
			}
			continue
		}

		if _, ok := forms[p.mnemonic]; !ok {
			return errorf(lineNo, "unknown instruction: %s", strings.ToLower(p.mnemonic))
		}
		index++
	}

	return nil
}

// pass2 decodes instructions and resolves the entry point.
func (a *Assembler) pass2(lines []string) (*Program, error) {
	prog := &Program{
		Labels:  a.labels,
		Globals: a.globals,
	}

	for n, raw := range lines {
		lineNo := n + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" {
			continue
		}
		if _, ok := directives[p.mnemonic]; ok {
			continue
		}

		ops := make([]Operand, 0, len(p.operands))
		for _, text := range p.operands {
			op, err := parseOperand(text, lineNo)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}

		if !matchesForm(p.mnemonic, ops) {
			return nil, errorf(lineNo, "invalid operands for %s: %s",
				strings.ToLower(p.mnemonic), strings.Join(p.operands, ", "))
		}

		if err := checkImmediates(p.mnemonic, ops, lineNo); err != nil {
			return nil, err
		}

		prog.Instructions = append(prog.Instructions, Instruction{
			Line:     lineNo,
			Mnemonic: p.mnemonic,
			Operands: ops,
		})
	}

	if len(prog.Globals) > 0 {
		entry, ok := prog.Labels[prog.Globals[0]]
		if !ok {
			return nil, errorf(a.globalLines[0], "undefined label '%s' for global entry", prog.Globals[0])
		}
		prog.Entry = entry
	}

	return prog, nil
}

func matchesForm(mnemonic string, ops []Operand) bool {
	for _, form := range forms[mnemonic] {
		if len(form) != len(ops) {
			continue
		}
		ok := true
		for n, kind := range form {
			if ops[n].Kind != kind {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// checkImmediates rejects operands the instruction cannot encode, so that
// anything accepted here also assembles natively.
func checkImmediates(mnemonic string, ops []Operand, lineNo int) error {
	switch mnemonic {
	case "MOV":
		if ops[1].Kind == KindImmediate && !movEncodable(ops[1].Imm, ops[0].Reg.Wide) {
			return errorf(lineNo, "immediate %d cannot be moved into %s", ops[1].Imm, ops[0].Reg)
		}
	case "ADD", "SUB":
		if ops[2].Kind == KindImmediate && !addEncodable(ops[2].Imm) {
			return errorf(lineNo, "immediate out of range for %s: %d", strings.ToLower(mnemonic), ops[2].Imm)
		}
	case "LDR", "STR":
		size := int64(4)
		if ops[0].Reg.Wide {
			size = 8
		}
		if !offsetEncodable(ops[1].Imm, size) {
			return errorf(lineNo, "offset out of range for %s: %d", strings.ToLower(mnemonic), ops[1].Imm)
		}
	}
	return nil
}

// movEncodable reports whether v fits a single movz, movn or orr (bitmask)
// into a register of the given width. A w register takes -2^31..2^32-1.
func movEncodable(v int64, wide bool) bool {
	width := 64
	u := uint64(v)
	if !wide {
		if v < -(1<<31) || v > 0xFFFFFFFF {
			return false
		}
		width = 32
		u &= 0xFFFFFFFF
	}
	mask := ^uint64(0) >> (64 - width)
	return singleHalfword(u, width) || singleHalfword(^u&mask, width) || isBitmaskImm(u, width)
}

// singleHalfword reports whether at most one 16-bit chunk of u is non-zero.
func singleHalfword(u uint64, width int) bool {
	nonZero := 0
	for shift := 0; shift < width; shift += 16 {
		if (u>>shift)&0xFFFF != 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// isBitmaskImm reports whether u is a logical immediate: a repeating element
// of 2..width bits holding one rotated run of ones.
func isBitmaskImm(u uint64, width int) bool {
	if width == 32 {
		u |= u << 32
	}
	if u == 0 || u == ^uint64(0) {
		return false
	}

	size := 64
	for size > 2 {
		half := size / 2
		m := uint64(1)<<half - 1
		if u&m != (u>>half)&m {
			break
		}
		size = half
	}

	m := ^uint64(0) >> (64 - size)
	elem := u & m
	rotated := (elem>>1 | elem<<(size-1)) & m
	return bits.OnesCount64(elem^rotated) == 2
}

// addEncodable reports whether v fits the 12-bit, optionally shifted,
// immediate of add and sub.
func addEncodable(v int64) bool {
	return (v >= 0 && v <= 0xFFF) || (v&0xFFF == 0 && v>>12 >= 0 && v>>12 <= 0xFFF)
}

// offsetEncodable reports whether off fits ldr/str: a scaled unsigned
// 12-bit offset, or the unscaled signed 9-bit form.
func offsetEncodable(off, size int64) bool {
	if off >= -256 && off <= 255 {
		return true
	}
	return off >= 0 && off%size == 0 && off/size <= 0xFFF
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t[") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, errorf(lineNo, "invalid label '%s'", beforeColon)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexFunc(line, unicode.IsSpace); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}
	p.mnemonic = strings.ToUpper(mnemonic)

	operands, err := splitOperands(rest, lineNo)
	if err != nil {
		return p, err
	}
	p.operands = operands

	return p, nil
}

func stripComments(line string) string {
	if cut := strings.Index(line, "//"); cut >= 0 {
		return line[:cut]
	}
	return line
}

// splitOperands splits on commas outside brackets.
func splitOperands(s string, lineNo int) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []string
	depth, start := 0, 0
	for n, ch := range s {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, errorf(lineNo, "unbalanced ']'")
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:n]))
				start = n + 1
			}
		}
	}
	if depth != 0 {
		return nil, errorf(lineNo, "unbalanced '['")
	}
	out = append(out, strings.TrimSpace(s[start:]))

	for _, op := range out {
		if op == "" {
			return nil, errorf(lineNo, "empty operand")
		}
	}
	return out, nil
}

func parseOperand(text string, lineNo int) (Operand, error) {
	if strings.HasPrefix(text, "[") {
		return parseMemory(text, lineNo)
	}
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "-") || unicode.IsDigit(rune(text[0])) {
		imm, err := parseImmediate(text, lineNo)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: KindImmediate, Imm: imm}, nil
	}
	reg, err := parseRegister(text, lineNo)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Kind: KindRegister, Reg: reg}, nil
}

// parseMemory handles [base] and [base, #offset].
func parseMemory(text string, lineNo int) (Operand, error) {
	if !strings.HasSuffix(text, "]") {
		return Operand{}, errorf(lineNo, "invalid memory operand '%s'", text)
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	baseText, offText, hasOff := strings.Cut(inner, ",")

	base, err := parseRegister(strings.TrimSpace(baseText), lineNo)
	if err != nil {
		return Operand{}, err
	}
	if !base.Wide || base.Zero {
		return Operand{}, errorf(lineNo, "invalid base register '%s'", base)
	}

	op := Operand{Kind: KindMemory, Reg: base}
	if hasOff {
		op.Imm, err = parseImmediate(strings.TrimSpace(offText), lineNo)
		if err != nil {
			return Operand{}, err
		}
	}
	return op, nil
}

func parseRegister(token string, lineNo int) (Register, error) {
	name := strings.ToLower(token)
	switch name {
	case "sp":
		return Register{Num: 31, Wide: true, SP: true}, nil
	case "wsp":
		return Register{Num: 31, SP: true}, nil
	case "xzr":
		return Register{Num: 31, Wide: true, Zero: true}, nil
	case "wzr":
		return Register{Num: 31, Zero: true}, nil
	}

	if len(name) >= 2 && (name[0] == 'x' || name[0] == 'w') {
		n, err := strconv.Atoi(name[1:])
		if err == nil && n >= 0 && n <= 30 && strconv.Itoa(n) == name[1:] {
			return Register{Num: n, Wide: name[0] == 'x'}, nil
		}
	}
	return Register{}, errorf(lineNo, "invalid register '%s'", token)
}

func parseImmediate(token string, lineNo int) (int64, error) {
	text := strings.TrimPrefix(token, "#")
	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, errorf(lineNo, "invalid immediate '%s'", token)
	}
	return value, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for n, ch := range s {
		if n == 0 {
			if !unicode.IsLetter(ch) && ch != '_' && ch != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' && ch != '.' && ch != '$' {
			return false
		}
	}

	return true
}
