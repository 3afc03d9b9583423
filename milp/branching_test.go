package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxFunBranchPoint(t *testing.T) {
	c := []float64{1, -5, 2}
	integer := []bool{true, true, true}
	assert.Equal(t, 1, maxFunBranchPoint(c, integer))
}

func TestMaxFunBranchPointSkipsContinuous(t *testing.T) {
	c := []float64{1, -5, 2}
	integer := []bool{true, false, true}
	assert.Equal(t, 2, maxFunBranchPoint(c, integer))
}

func TestMostInfeasibleBranchPoint(t *testing.T) {
	x := []float64{1.1, 2.5, 3.9}
	integer := []bool{true, true, true}
	assert.Equal(t, 1, mostInfeasibleBranchPoint(x, integer))
}

func TestGetChildTightensBounds(t *testing.T) {
	p := knapsackProblem()
	root := p.toInitialSubproblem()

	upperChild := root.getChild(0, Upper, 0)
	assert.Equal(t, 0.0, upperChild.ub[0])
	assert.Equal(t, root.lb[0], upperChild.lb[0])

	lowerChild := root.getChild(0, Lower, 1)
	assert.Equal(t, 1.0, lowerChild.lb[0])
}

func TestBranchProducesDisjointChildren(t *testing.T) {
	p := knapsackProblem()
	root := p.toInitialSubproblem()
	sol := root.solve()
	assert.Nil(t, sol.err)

	p1, p2 := sol.branch()
	assert.NotEqual(t, p1.id, p2.id)
	assert.NotEqual(t, p1.ub[0], p2.lb[0])
}
