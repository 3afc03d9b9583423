package nutmeg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimizeReportsInfeasibleWithoutSolving(t *testing.T) {
	m := NewModel(MethodMIP)
	x := m.AddMIPVar(0, 3, "x")
	m.AddLinearNE([]I{x}, []int{1}, 0)
	m.AddLinear([]I{x}, []int{1}, EQ, 0)
	status := m.Minimize(x, 0)
	assert.Equal(t, StatusInfeasible, status)
	assert.True(t, m.reg.IsInfeasible())
}

func TestGetSolPanicsWithoutSolution(t *testing.T) {
	m := NewModel(MethodMIP)
	x := m.AddMIPVar(0, 3, "x")
	assert.Panics(t, func() { m.GetSol(x) })
}

func TestWriteLPDumpsBoundsAndRows(t *testing.T) {
	m := NewModel(MethodMIP)
	x := m.AddMIPVar(0, 5, "x")
	m.AddLinear([]I{x}, []int{1}, EQ, 2)
	m.buildProblem(x)

	var buf bytes.Buffer
	err := m.WriteLP(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Minimize")
	assert.Contains(t, out, "A0: +1*x3 = 2")
	assert.Contains(t, out, "Bounds")
}

func TestMinimizeSolvesSimpleModel(t *testing.T) {
	m := NewModel(MethodMIP)
	x := m.AddMIPVar(0, 10, "x")
	m.AddLinear([]I{x}, []int{1}, GE, 4)
	status := m.Minimize(x, 0)
	require.Equal(t, StatusOptimal, status)
	assert.Equal(t, 4.0, m.GetSol(x))
	assert.Equal(t, 4.0, m.GetPrimalBound())
}
