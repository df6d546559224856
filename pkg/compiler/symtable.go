package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Symbol is a declared variable and the stack slot holding its value.
type Symbol struct {
	Name string
	Slot int // index in 8-byte words from sp
}

// Offset is the byte offset of the symbol's slot from sp.
func (s Symbol) Offset() int {
	return s.Slot * wordSize
}

// SymbolTable maps variable names to stack slots.
// There is exactly one scope: a name is bound at most once per compilation.
type SymbolTable struct {
	vars map[string]Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{vars: make(map[string]Symbol)}
}

// Allocate binds name to slot. If name is already bound, the existing symbol
// is returned with exists set and the table is left unchanged.
func (s *SymbolTable) Allocate(name string, slot int) (sym Symbol, exists bool) {
	if sym, ok := s.vars[name]; ok {
		return sym, true
	}
	sym = Symbol{Name: name, Slot: slot}
	s.vars[name] = sym
	return sym, false
}

// Lookup returns the symbol and whether it was found.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	sym, ok := s.vars[name]
	return sym, ok
}

// Len returns the number of declared variables.
func (s *SymbolTable) Len() int {
	return len(s.vars)
}

// Symbols returns all symbols ordered by slot.
func (s *SymbolTable) Symbols() []Symbol {
	syms := make([]Symbol, 0, len(s.vars))
	for _, sym := range s.vars {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Slot < syms[j].Slot })
	return syms
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	if len(s.vars) == 0 {
		return "Variables: (empty)\n"
	}
	var sb strings.Builder
	sb.WriteString("Variables:\n")
	for _, sym := range s.Symbols() {
		fmt.Fprintf(&sb, "  %-20s  Slot: %d (Offset: %d)\n", sym.Name, sym.Slot, sym.Offset())
	}
	return sb.String()
}
