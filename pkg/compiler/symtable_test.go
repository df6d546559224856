package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTable(t *testing.T) {
	t.Run("Allocation", func(t *testing.T) {
		s := NewSymbolTable()
		x, exists := s.Allocate("x", 0)
		assert.False(t, exists)
		assert.Equal(t, Symbol{Name: "x", Slot: 0}, x)

		y, exists := s.Allocate("y", 2)
		assert.False(t, exists)
		assert.Equal(t, 16, y.Offset())
		assert.Equal(t, 2, s.Len())
	})

	t.Run("Redeclaration keeps first slot", func(t *testing.T) {
		s := NewSymbolTable()
		s.Allocate("x", 0)

		sym, exists := s.Allocate("x", 3)
		assert.True(t, exists)
		assert.Equal(t, 0, sym.Slot)
		assert.Equal(t, 1, s.Len())

		got, ok := s.Lookup("x")
		assert.True(t, ok)
		assert.Equal(t, 0, got.Slot)
	})

	t.Run("Lookup missing", func(t *testing.T) {
		s := NewSymbolTable()
		_, ok := s.Lookup("nope")
		assert.False(t, ok)
	})

	t.Run("String is ordered by slot", func(t *testing.T) {
		s := NewSymbolTable()
		assert.Equal(t, "Variables: (empty)\n", s.String())

		s.Allocate("zeta", 0)
		s.Allocate("alpha", 1)
		want := "Variables:\n" +
			"  zeta                  Slot: 0 (Offset: 0)\n" +
			"  alpha                 Slot: 1 (Offset: 8)\n"
		assert.Equal(t, want, s.String())
		assert.Equal(t, []Symbol{{Name: "zeta", Slot: 0}, {Name: "alpha", Slot: 1}}, s.Symbols())
	})
}
