package cp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolAssumeAndClear(t *testing.T) {
	s := NewSolver()
	b := s.NewBoolVar()

	ok := s.Assume(BoolLit(b, true))
	require.True(t, ok)
	assert.True(t, s.BoolValue(b))

	s.ClearAssumptions()
	assert.False(t, s.bools[b].fixed())
}

func TestAssumeConflictingLiteralsRefutes(t *testing.T) {
	s := NewSolver()
	b := s.NewBoolVar()

	require.True(t, s.Assume(BoolLit(b, true)))
	ok := s.Assume(BoolLit(b, false))
	assert.False(t, ok)
	assert.NotEmpty(t, s.GetConflict())
}

func TestAllDifferentForcesValue(t *testing.T) {
	s := NewSolver()
	x := s.NewIntVar(1, 3)
	y := s.NewIntVar(1, 3)
	z := s.NewIntVar(1, 3)
	require.True(t, s.PostPropagator(&AllDifferent{Vars: []int{x, y, z}}))

	require.True(t, s.Assume(IntAtMost(x, 1)))
	require.True(t, s.Assume(IntAtLeast(y, 2)))
	require.True(t, s.Assume(IntAtMost(y, 2)))

	lo, hi := s.IntBounds(z)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 3, hi)
}

func TestLinearLETightensBounds(t *testing.T) {
	s := NewSolver()
	x := s.NewIntVar(0, 10)
	y := s.NewIntVar(0, 10)
	require.True(t, s.PostPropagator(&LinearLE{Coeffs: []int{1, 1}, Vars: []int{x, y}, RHS: 5}))

	require.True(t, s.Assume(IntAtLeast(y, 5)))
	_, hi := s.IntBounds(x)
	assert.Equal(t, 0, hi)
}

func TestIntElementNarrowsValue(t *testing.T) {
	s := NewSolver()
	idx := s.NewIntVar(1, 3)
	val := s.NewIntVar(0, 100)
	require.True(t, s.PostPropagator(&IntElement{Idx: idx, Array: []int{10, 20, 30}, Val: val}))

	require.True(t, s.Assume(IntAtMost(idx, 1)))
	lo, hi := s.IntBounds(val)
	assert.Equal(t, 10, lo)
	assert.Equal(t, 10, hi)
}

func TestCumulativeDetectsOverload(t *testing.T) {
	s := NewSolver()
	t0 := s.NewIntVar(0, 0)
	t1 := s.NewIntVar(0, 0)
	ok := s.PostPropagator(&Cumulative{
		Tasks: []CumulativeTask{
			{Start: t0, Duration: 2, Resource: 1, Active: -1},
			{Start: t1, Duration: 2, Resource: 1, Active: -1},
		},
		Capacity: 1,
	})
	assert.False(t, ok)
}

func TestSolveFindsSAT(t *testing.T) {
	s := NewSolver()
	x := s.NewIntVar(1, 3)
	y := s.NewIntVar(1, 3)
	require.True(t, s.PostPropagator(&AllDifferent{Vars: []int{x, y}}))

	status := s.Solve(Limits{Time: time.Second})
	assert.Equal(t, SAT, status)
}

func TestSolveDetectsUNSAT(t *testing.T) {
	s := NewSolver()
	x := s.NewIntVar(1, 1)
	y := s.NewIntVar(1, 1)
	ok := s.PostPropagator(&AllDifferent{Vars: []int{x, y}})
	assert.False(t, ok)
	assert.Equal(t, UNSAT, s.Solve(Limits{Time: time.Second}))
}

func TestClauseForcesLastLiteral(t *testing.T) {
	s := NewSolver()
	a := s.NewBoolVar()
	b := s.NewBoolVar()
	require.True(t, s.PostPropagator(&Clause{Lits: []Lit{BoolLit(a, true), BoolLit(b, true)}}))

	require.True(t, s.Assume(BoolLit(a, false)))
	assert.True(t, s.BoolValue(b))
}
