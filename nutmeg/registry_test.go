package nutmeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservedConstants(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsPositive(r.False()))
	assert.True(t, r.IsPositive(r.True()))
	lo, hi := r.IntBounds(r.Zero())
	assert.Equal(t, 0, lo)
	assert.Equal(t, 0, hi)
}

func TestNewIntVarDeduplicatesConstants(t *testing.T) {
	r := NewRegistry()
	a := r.NewIntVar(5, 5, true, "five")
	b := r.NewIntVar(5, 5, true, "another-five")
	assert.Equal(t, a, b)
}

func TestPromoteToMIPIsIdempotent(t *testing.T) {
	r := NewRegistry()
	b := newMIPBuilder()
	i := r.NewIntVar(0, 10, false, "x")
	assert.False(t, r.HasMIPColumn(i))

	r.PromoteToMIP(i, b)
	assert.True(t, r.HasMIPColumn(i))
	col := r.intEntryAt(i).mipCol

	r.PromoteToMIP(i, b)
	assert.Equal(t, col, r.intEntryAt(i).mipCol)
}

func TestNegateIsInvolutive(t *testing.T) {
	r := NewRegistry()
	b := newMIPBuilder()
	x := r.NewBoolVar("x")

	negX := r.Negate(x, b)
	assert.NotEqual(t, x, negX)
	assert.False(t, r.IsPositive(negX))

	negNegX := r.Negate(negX, b)
	assert.Equal(t, x, negNegX)
}

func TestIndicatorVarsAreCachedAndLinked(t *testing.T) {
	r := NewRegistry()
	b := newMIPBuilder()
	x := r.NewIntVar(1, 3, true, "x")

	ind1 := r.IndicatorVars(x, nil, b)
	require.Len(t, ind1, 3)

	ind2 := r.IndicatorVars(x, nil, b)
	assert.Equal(t, ind1, ind2)
}

func TestIndicatorVarsExcludeSubdomain(t *testing.T) {
	r := NewRegistry()
	b := newMIPBuilder()
	x := r.NewIntVar(1, 3, true, "x")

	ind := r.IndicatorVars(x, map[int]bool{1: true, 3: true}, b)
	require.Len(t, ind, 3)
	assert.True(t, r.CP().IsBoolFixed(r.boolEntry(ind[1]).cpVar))
	assert.False(t, r.CP().BoolValue(r.boolEntry(ind[1]).cpVar))
}
