package nutmeg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ed-lam/nutmeg/milp"
)

func newTestHandler(t *testing.T, reg *Registry, objCol int) *hybridHandler {
	t.Helper()
	h := newHybridHandler(reg, objCol, false)
	h.Transform()
	return h
}

func TestCheckOnlySkipsLPEnforcementAndPropagation(t *testing.T) {
	reg := NewRegistry()
	b := newMIPBuilder()
	x := reg.NewIntVar(0, 5, true, "x")
	reg.PromoteToMIP(x, b)

	h := newTestHandler(t, reg, -1)
	h.checkOnly = true

	n := len(reg.mipCols)
	col := reg.intEntryAt(x).mipCol
	xVal, lb, ub := make([]float64, n), make([]float64, n), make([]float64, n)
	xVal[col], ub[col] = 2.5, 5

	cand := &milp.Candidate{X: xVal, LB: lb, UB: ub, Deadline: time.Now().Add(time.Second)}
	res := h.EnforceLP(context.Background(), cand)
	assert.Equal(t, milp.Feasible, res.Outcome)

	res = h.Propagate(context.Background(), cand)
	assert.Equal(t, milp.DidNotFind, res.Outcome)
}

func TestCheckIntegerSolutionRejectsPastDualBound(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(t, reg, 0)
	h.haveDual = true
	h.dualBound = 10

	cand := &milp.Candidate{
		X:        make([]float64, len(reg.mipCols)),
		Obj:      5,
		Deadline: time.Now().Add(time.Second),
	}
	res := h.CheckIntegerSolution(context.Background(), cand)
	assert.Equal(t, milp.Infeasible, res.Outcome)
}

func TestCheckIntegerSolutionConfirmsFeasible(t *testing.T) {
	reg := NewRegistry()
	b := newMIPBuilder()
	x := reg.NewIntVar(0, 5, true, "x")
	reg.PromoteToMIP(x, b)

	h := newTestHandler(t, reg, -1)

	n := len(reg.mipCols)
	xVal := make([]float64, n)
	xVal[reg.intEntryAt(x).mipCol] = 3
	xVal[reg.boolEntry(reg.True()).mipCol] = 1

	cand := &milp.Candidate{X: xVal, Deadline: time.Now().Add(time.Second)}
	res := h.CheckIntegerSolution(context.Background(), cand)
	assert.Equal(t, milp.Feasible, res.Outcome)
}

func TestLockDeclaresBothDirectionsOnEveryColumn(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(t, reg, -1)
	down, up := h.Lock(3)
	require.Len(t, down, 3)
	require.Len(t, up, 3)
	for i := range down {
		assert.Equal(t, 1, down[i])
		assert.Equal(t, 1, up[i])
	}
}
