package nutmeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/milp"
)

func TestLiftAtomsBooleanConflict(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewBoolVar("a")
	b := reg.NewBoolVar("b")
	h := newTestHandler(t, reg, -1)

	conflict := []cp.Lit{
		cp.BoolLit(reg.boolEntry(a).cpVar, true),
		cp.BoolLit(reg.boolEntry(b).cpVar, false),
	}
	atoms, allBinary := h.liftAtoms(conflict)
	require.Len(t, atoms, 2)
	assert.True(t, allBinary)
	assert.Equal(t, reg.boolEntry(a).mipCol, atoms[0].col)
	assert.Equal(t, milp.Lower, atoms[0].dir)
	assert.Equal(t, reg.boolEntry(b).mipCol, atoms[1].col)
	assert.Equal(t, milp.Upper, atoms[1].dir)
}

func TestLiftAtomsIntegerWithMIPColumnIsNotBinary(t *testing.T) {
	reg := NewRegistry()
	mb := newMIPBuilder()
	x := reg.NewIntVar(0, 10, true, "x")
	reg.PromoteToMIP(x, mb)
	h := newTestHandler(t, reg, -1)

	conflict := []cp.Lit{cp.IntAtLeast(reg.intEntryAt(x).cpVar, 3)}
	atoms, allBinary := h.liftAtoms(conflict)
	require.Len(t, atoms, 1)
	assert.False(t, allBinary)
	assert.Equal(t, reg.intEntryAt(x).mipCol, atoms[0].col)
	assert.Equal(t, milp.Lower, atoms[0].dir)
	assert.Equal(t, 3.0, atoms[0].threshold)
}

func TestLiftAtomsIntegerWithoutMIPColumnExpandsIndicators(t *testing.T) {
	reg := NewRegistry()
	mb := newMIPBuilder()
	x := reg.NewIntVar(1, 3, false, "x")
	reg.IndicatorVars(x, nil, mb)
	h := newTestHandler(t, reg, -1)

	conflict := []cp.Lit{cp.IntAtLeast(reg.intEntryAt(x).cpVar, 2)}
	atoms, allBinary := h.liftAtoms(conflict)
	assert.True(t, allBinary)
	require.Len(t, atoms, 2)
}

func TestEmitCutSingleAtomUpdatesDualBound(t *testing.T) {
	reg := NewRegistry()
	mb := newMIPBuilder()
	obj := reg.NewIntVar(0, 100, true, "obj")
	reg.PromoteToMIP(obj, mb)
	h := newTestHandler(t, reg, reg.intEntryAt(obj).mipCol)

	atoms := []nogoodAtom{{col: h.objCol, dir: milp.Lower, threshold: 7}}
	res := h.emitCut(atoms, false)
	assert.Equal(t, milp.Infeasible, res.Outcome)
	require.NotNil(t, res.GlobalBoundChange)
	assert.Equal(t, 7.0, res.GlobalBoundChange.Value)
	assert.True(t, h.haveDual)
	assert.Equal(t, 7.0, h.dualBound)
}

func TestEmitCutAllBinaryProducesClauseRow(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewBoolVar("a")
	b := reg.NewBoolVar("b")
	h := newTestHandler(t, reg, -1)

	atoms := []nogoodAtom{
		{col: reg.boolEntry(a).mipCol, dir: milp.Lower, threshold: 1},
		{col: reg.boolEntry(b).mipCol, dir: milp.Upper, threshold: 0},
	}
	res := h.emitCut(atoms, true)
	assert.Equal(t, milp.Infeasible, res.Outcome)
	require.NotNil(t, res.GlobalCut)
	assert.Equal(t, -1.0, res.GlobalCut[reg.boolEntry(a).mipCol])
	assert.Equal(t, 1.0, res.GlobalCut[reg.boolEntry(b).mipCol])
	assert.Equal(t, 0.0, res.GlobalCutRHS)
}

func TestEmitCutMixedConflictFallsBackToNodeRejection(t *testing.T) {
	reg := NewRegistry()
	mb := newMIPBuilder()
	a := reg.NewBoolVar("a")
	x := reg.NewIntVar(0, 10, true, "x")
	reg.PromoteToMIP(x, mb)
	h := newTestHandler(t, reg, -1)

	atoms := []nogoodAtom{
		{col: reg.boolEntry(a).mipCol, dir: milp.Lower, threshold: 1},
		{col: reg.intEntryAt(x).mipCol, dir: milp.Lower, threshold: 3},
	}
	res := h.emitCut(atoms, false)
	assert.Equal(t, milp.Infeasible, res.Outcome)
	assert.Nil(t, res.GlobalCut)
	assert.Nil(t, res.GlobalBoundChange)
}

func TestEmitCutEmptyConflictIsCutoff(t *testing.T) {
	reg := NewRegistry()
	h := newTestHandler(t, reg, -1)
	res := h.emitCut(nil, true)
	assert.Equal(t, milp.Cutoff, res.Outcome)
}
