package nutmeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLinearNEMarksInfeasibleWhenCombinedWithEquality(t *testing.T) {
	m := NewModel(MethodMIP)
	x := m.AddMIPVar(0, 3, "x")
	m.AddLinearNE([]I{x}, []int{1}, 0)
	m.AddLinear([]I{x}, []int{1}, EQ, 0)
	status := m.Minimize(x, 0)
	assert.Equal(t, StatusInfeasible, status)
}

func TestAddSetPartitionForcesExactlyOne(t *testing.T) {
	m := NewModel(MethodBC)
	a := m.AddBoolVar("a")
	b := m.AddBoolVar("b")
	m.AddSetPartition([]B{a, b})
	m.AddFix(a, false)

	total := m.AddMIPVar(0, 1, "total")
	m.AddBoolLinearEqObj([]B{a, b}, []int{0, 1}, total)

	status := m.Minimize(total, 0)
	require.Equal(t, StatusOptimal, status)
	assert.True(t, m.GetBoolSol(b))
}

func TestAddElementNarrowsValueInBCMode(t *testing.T) {
	m := NewModel(MethodBC)
	idx := m.AddMIPVar(1, 3, "idx")
	val := m.AddMIPVar(0, 100, "val")
	m.AddElement(idx, []int{10, 20, 30}, val)
	m.AddLinear([]I{idx}, []int{1}, EQ, 2)

	status := m.Minimize(val, 0)
	require.Equal(t, StatusOptimal, status)
	assert.Equal(t, 20.0, m.GetSol(val))
}

func TestAddAllDifferentForcesValue(t *testing.T) {
	m, z := ExampleAllDifferentForcesValue(MethodBC)
	status := m.Minimize(z, 0)
	require.Equal(t, StatusOptimal, status)
	assert.Equal(t, 3.0, m.GetSol(z))
}

func TestAddCumulativeDetectsInfeasibility(t *testing.T) {
	m, s0 := ExampleCumulativeInfeasibility(MethodBC)
	status := m.Minimize(s0, 0)
	assert.Equal(t, StatusInfeasible, status)
}

func TestAddReifiedSubtractionHoldsUnderFixedControl(t *testing.T) {
	m := NewModel(MethodBC)
	x := m.AddMIPVar(0, 5, "x")
	y := m.AddMIPVar(0, 5, "y")
	r := m.AddBoolVar("r")
	m.AddReifiedSubtraction(r, x, y, 0)
	m.AddLinear([]I{x}, []int{1}, EQ, 1)
	m.AddLinear([]I{y}, []int{1}, EQ, 4)
	m.AddFix(r, true)

	status := m.Minimize(x, 0)
	assert.Equal(t, StatusOptimal, status)
}
