package nutmeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ed-lam/nutmeg/milp"
)

func TestExampleTrivialFixAcrossMethods(t *testing.T) {
	for _, method := range []Method{MethodMIP, MethodBC, MethodLBBD} {
		m, zero := ExampleTrivialFix(method)
		status := m.Minimize(zero, 0)
		assert.Equal(t, StatusOptimal, status, "method %s", method)
		assert.Equal(t, 0.0, m.GetPrimalBound(), "method %s", method)
	}
}

func TestExampleTrivialFixUnderCP(t *testing.T) {
	m, _ := ExampleTrivialFix(MethodCP)
	zero := m.GetZero()
	status := m.Minimize(zero, 0)
	assert.Equal(t, StatusFeasible, status)
}

func TestExampleImmediateInfeasibilityAcrossMethods(t *testing.T) {
	for _, method := range []Method{MethodMIP, MethodBC, MethodLBBD} {
		m, x := ExampleImmediateInfeasibility(method)
		status := m.Minimize(x, 0)
		assert.Equal(t, StatusInfeasible, status, "method %s", method)
	}
}

func TestExampleAssignmentSchedulingFindsCheapestAssignment(t *testing.T) {
	for _, method := range []Method{MethodBC, MethodLBBD} {
		m, total := ExampleAssignmentScheduling(method)
		status := m.Minimize(total, 0)
		require.Equal(t, StatusOptimal, status, "method %s", method)
		assert.Equal(t, 5.0, m.GetPrimalBound(), "method %s", method)
	}
}

func TestExampleLBBDConvergence(t *testing.T) {
	for _, method := range []Method{MethodBC, MethodLBBD} {
		m, y := ExampleLBBDConvergence(method)
		status := m.Minimize(y, 0)
		require.Equal(t, StatusOptimal, status, "method %s", method)
		assert.Equal(t, 10.0, m.GetPrimalBound(), "method %s", method)
	}
}

func TestBCReportsInfeasibleOnCumulativeOverload(t *testing.T) {
	m, s0 := ExampleCumulativeInfeasibility(MethodBC)
	status := m.Minimize(s0, 0)
	assert.Equal(t, StatusInfeasible, status)
}

func TestMapResultStatusCollapsesNoIntegerFeasible(t *testing.T) {
	r := &milp.Result{Status: milp.StatusNoIntegerFeasible}
	assert.Equal(t, StatusInfeasible, mapResultStatus(r))
}

func TestMapResultStatusTimeLimitWithIncumbentIsFeasible(t *testing.T) {
	r := &milp.Result{Status: milp.StatusTimeLimit, X: []float64{1}}
	assert.Equal(t, StatusFeasible, mapResultStatus(r))
}

func TestMapResultStatusTimeLimitWithoutIncumbentIsUnknown(t *testing.T) {
	r := &milp.Result{Status: milp.StatusTimeLimit}
	assert.Equal(t, StatusUnknown, mapResultStatus(r))
}
