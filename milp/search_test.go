package milp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// simple knapsack: maximize 5x1 + 4x2 s.t. 2x1 + 3x2 <= 5, x in {0,1}.
// Solve minimizes, so the objective is negated.
func knapsackProblem() *Problem {
	return &Problem{
		C:           []float64{-5, -4},
		G:           mat.NewDense(1, 2, []float64{2, 3}),
		H:           []float64{5},
		LB:          []float64{0, 0},
		UB:          []float64{1, 1},
		Integer:     []bool{true, true},
		ObjVarIndex: -1,
	}
}

func TestSolveKnapsack(t *testing.T) {
	p := knapsackProblem()
	res, err := Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, -9, res.Obj, 1e-6)
	assert.InDelta(t, 1, res.X[0], 1e-6)
	assert.InDelta(t, 1, res.X[1], 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	p := &Problem{
		C:           []float64{1, 1},
		G:           mat.NewDense(2, 2, []float64{1, 0, -1, 0}),
		H:           []float64{-1, -1},
		LB:          []float64{0, 0},
		UB:          []float64{10, 10},
		Integer:     []bool{false, false},
		ObjVarIndex: -1,
	}
	res, err := Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestSolveWithPresolve(t *testing.T) {
	p := &Problem{
		C:           []float64{-5, -4, 0},
		G:           mat.NewDense(1, 3, []float64{2, 3, 0}),
		H:           []float64{5},
		LB:          []float64{0, 0, 3},
		UB:          []float64{1, 1, 3},
		Integer:     []bool{true, true, true},
		ObjVarIndex: -1,
	}
	res, err := Solve(context.Background(), p, Options{Presolve: true})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, res.Status)
	require.Len(t, res.X, 3)
	assert.InDelta(t, 3, res.X[2], 1e-6)
}

type alwaysFeasibleHandler struct{ checks int }

func (h *alwaysFeasibleHandler) CheckIntegerSolution(ctx context.Context, c *Candidate) HandlerResult {
	h.checks++
	return HandlerResult{Outcome: Feasible}
}
func (h *alwaysFeasibleHandler) EnforceLP(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: Feasible}
}
func (h *alwaysFeasibleHandler) EnforcePseudo(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: Feasible}
}
func (h *alwaysFeasibleHandler) Propagate(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: DidNotFind}
}
func (h *alwaysFeasibleHandler) Lock(numVars int) (down, up []int) {
	return make([]int, numVars), make([]int, numVars)
}
func (h *alwaysFeasibleHandler) Transform() {}

func TestSolveWithHandler(t *testing.T) {
	p := knapsackProblem()
	h := &alwaysFeasibleHandler{}
	res, err := Solve(context.Background(), p, Options{Handler: h})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, res.Status)
	assert.Greater(t, h.checks, 0)
}

type rejectingHandler struct{}

func (rejectingHandler) CheckIntegerSolution(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: Cutoff}
}
func (rejectingHandler) EnforceLP(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: Feasible}
}
func (rejectingHandler) EnforcePseudo(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: Feasible}
}
func (rejectingHandler) Propagate(ctx context.Context, c *Candidate) HandlerResult {
	return HandlerResult{Outcome: DidNotFind}
}
func (rejectingHandler) Lock(numVars int) (down, up []int) {
	return make([]int, numVars), make([]int, numVars)
}
func (rejectingHandler) Transform() {}

func TestSolveHandlerCutoff(t *testing.T) {
	p := knapsackProblem()
	res, err := Solve(context.Background(), p, Options{Handler: rejectingHandler{}})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
}

func TestTreeLoggerRecordsRoot(t *testing.T) {
	p := knapsackProblem()
	tl := NewTreeLogger()
	_, err := Solve(context.Background(), p, Options{Middleware: tl})
	require.NoError(t, err)
	assert.NotEmpty(t, tl.nodes)
}
