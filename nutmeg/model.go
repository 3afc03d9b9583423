package nutmeg

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ed-lam/nutmeg/internal/assert"
	"github.com/ed-lam/nutmeg/milp"
)

// Model is the public hybrid-solver API: a fluent variable/constraint
// builder, grounded in structure on jjhbw-GoMILP's Problem/Variable/
// Constraint builder (api.go), sitting atop the Variable Registry (C1),
// Constraint Library (C2) and Search Controller (C6).
type Model struct {
	reg *Registry
	b   *mipBuilder

	method       Method
	minimizeCuts bool
	presolve     bool
	verbose      bool

	integerTolerance float64

	objVar  I
	objCol  int
	haveObj bool

	status      Status
	primal      []float64 // MIP column values of the accepted incumbent
	primalBound float64
	haveDual    bool
	dualBound   float64
	runtime     time.Duration
	nodes       int
}

// NewModel returns an empty model that will be solved with method once
// Minimize is called.
func NewModel(method Method) *Model {
	return &Model{
		reg:              NewRegistry(),
		b:                newMIPBuilder(),
		method:           method,
		integerTolerance: 1e-6,
		objCol:           -1,
		status:           StatusUnknown,
		dualBound:        math.Inf(-1),
	}
}

// SetMinimizeCuts toggles the nogood builder's optional cut-minimization
// pass.
func (m *Model) SetMinimizeCuts(on bool) { m.minimizeCuts = on }

// SetPresolve toggles the MIP engine's fixed-variable presolve pass.
func (m *Model) SetPresolve(on bool) { m.presolve = on }

// SetVerbose toggles the one-line summary banner Minimize logs through
// logrus at Info level on completion (method, runtime, status, objective,
// bound). Off by default; diagnostic events below Info still go through
// searchLog regardless of this setting.
func (m *Model) SetVerbose(on bool) { m.verbose = on }

// AddBoolVar registers a new Boolean variable.
func (m *Model) AddBoolVar(name string) B { return m.reg.NewBoolVar(name) }

// AddIntVar registers a new integer variable with domain [lb,ub].
// includeInMIP controls whether it gets a MIP column immediately, or stays
// CP-only until PromoteToMIP (implicitly triggered by any constraint that
// needs one).
func (m *Model) AddIntVar(lb, ub int, includeInMIP bool, name string) I {
	return m.reg.NewIntVar(lb, ub, includeInMIP, name)
}

// AddMIPVar is AddIntVar with includeInMIP forced true, for variables
// known up front to need a linear-relaxation presence.
func (m *Model) AddMIPVar(lb, ub int, name string) I {
	return m.reg.NewIntVar(lb, ub, true, name)
}

// AddIndicatorVars returns i's indicator set, building it (and the
// exactly-one/linking constraints) on first request.
func (m *Model) AddIndicatorVars(i I, subdomain map[int]bool) []B {
	return m.reg.IndicatorVars(i, subdomain, m.b)
}

// GetNeg returns b's negated alias, creating it lazily.
func (m *Model) GetNeg(b B) B { return m.reg.Negate(b, m.b) }

// GetFalse, GetTrue, GetZero return the model's reserved constants.
func (m *Model) GetFalse() B { return m.reg.False() }
func (m *Model) GetTrue() B  { return m.reg.True() }
func (m *Model) GetZero() I  { return m.reg.Zero() }

// AddLinear posts sum(coeffs[k]*vars[k]) sign rhs.
func (m *Model) AddLinear(vars []I, coeffs []int, sign Sign, rhs int) *Model {
	if !m.reg.AddLinear(vars, coeffs, sign, rhs, 0, NoTerm, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddLinearTerm posts sum(coeffs[k]*vars[k]) sign rhs + termCoeff*termVar.
func (m *Model) AddLinearTerm(vars []I, coeffs []int, sign Sign, rhs int, termCoeff int, termVar I) *Model {
	if !m.reg.AddLinear(vars, coeffs, sign, rhs, termCoeff, termVar, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddBoolLinear posts sum(coeffs[k]*bs[k]) sign rhs.
func (m *Model) AddBoolLinear(bs []B, coeffs []int, sign Sign, rhs int) *Model {
	if !m.reg.AddBoolLinear(bs, coeffs, sign, rhs, 0, NoTerm, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddBoolLinearTerm posts sum(coeffs[k]*bs[k]) sign rhs + termCoeff*termVar.
// A non-unit termCoeff synthesizes an auxiliary CP integer variable to
// carry the scaled term; see Registry.AddBoolLinear.
func (m *Model) AddBoolLinearTerm(bs []B, coeffs []int, sign Sign, rhs int, termCoeff int, termVar I) *Model {
	if !m.reg.AddBoolLinear(bs, coeffs, sign, rhs, termCoeff, termVar, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddIndexedLinear posts sum_j sum_k coeffs[j][k]*[vars[j]=k] sign rhs, a
// linear constraint whose per-variable contribution is indexed by the
// variable's realized value.
func (m *Model) AddIndexedLinear(vars []I, coeffs [][]int, sign Sign, rhs int) *Model {
	if !m.reg.AddIndexedLinear(vars, coeffs, sign, rhs, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddLinearNE posts sum(coeffs[k]*vars[k]) != rhs.
func (m *Model) AddLinearNE(vars []I, coeffs []int, rhs int) *Model {
	if !m.reg.AddLinearNE(vars, coeffs, rhs, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddElement posts val == array[idx-1].
func (m *Model) AddElement(idx I, array []int, val I) *Model {
	if !m.reg.AddElement(idx, array, val, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddAllDifferent posts pairwise distinctness over vars.
func (m *Model) AddAllDifferent(vars []I) *Model {
	if !m.reg.AddAllDifferent(vars, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddCumulative posts a resource-capacity schedule over jobs.
func (m *Model) AddCumulative(jobs []CumulativeJob, capacity int) *Model {
	if !m.reg.AddCumulative(jobs, capacity, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddReifiedSubtraction posts rVar -> (x - y <= k).
func (m *Model) AddReifiedSubtraction(rVar B, x, y I, k int) *Model {
	if !m.reg.AddReifiedSubtraction(rVar, x, y, k, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddImplication posts (rVar == v) -> (x sign k).
func (m *Model) AddImplication(rVar B, v bool, x I, sign Sign, k int) *Model {
	if !m.reg.AddImplication(rVar, v, x, sign, k, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddSetPartition posts exactly-one(bs).
func (m *Model) AddSetPartition(bs []B) *Model {
	if !m.reg.AddSetPartition(bs, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// AddFix fixes bv to value.
func (m *Model) AddFix(bv B, value bool) *Model {
	if !m.reg.AddFix(bv, value, m.b) {
		m.reg.MarkInfeasible()
	}
	return m
}

// buildProblem assembles the registry's accumulated rows and columns into
// a milp.Problem with obj as the single objective column, matching
// Model-SolveBC.cpp's reified-objective convention (ObjVarIndex cross-
// checked against the LP value at every integer-feasible node).
func (m *Model) buildProblem(obj I) *milp.Problem {
	m.reg.PromoteToMIP(obj, m.b)
	m.objVar = obj
	m.objCol = m.reg.intEntryAt(obj).mipCol
	m.haveObj = true

	nCols := len(m.reg.mipCols)
	A, Bv, G, H := m.b.assemble(nCols)

	c := make([]float64, nCols)
	c[m.objCol] = 1

	lb := make([]float64, nCols)
	ub := make([]float64, nCols)
	integer := make([]bool, nCols)
	names := make([]string, nCols)
	for i, col := range m.reg.mipCols {
		lb[i] = col.lb
		ub[i] = col.ub
		integer[i] = col.integer
		names[i] = col.name
	}

	return &milp.Problem{
		C:           c,
		A:           A,
		B:           Bv,
		G:           G,
		H:           H,
		LB:          lb,
		UB:          ub,
		Integer:     integer,
		VarNames:    names,
		ObjVarIndex: m.objCol,
	}
}

// Minimize solves the model for the minimum value of obj (a MIP-promoted
// integer variable) using the method passed to NewModel (under MethodCP obj
// is not optimized; see MethodCP). timeLimit <= 0 means no deadline.
func (m *Model) Minimize(obj I, timeLimit time.Duration) Status {
	if m.reg.IsInfeasible() {
		m.status = StatusInfeasible
		return m.status
	}

	start := time.Now()
	var deadline time.Time
	if timeLimit > 0 {
		deadline = start.Add(timeLimit)
	}
	remaining := timeLimit
	if remaining <= 0 {
		remaining = 365 * 24 * time.Hour
	}

	ctx := context.Background()

	switch m.method {
	case MethodCP:
		m.status = m.solveCP(remaining)
		if m.status == StatusFeasible {
			m.readCPSolution()
		}

	case MethodMIP, MethodBC, MethodLBBD:
		prob := m.buildProblem(obj)

		var res *milp.Result
		var h *hybridHandler
		var err error
		switch m.method {
		case MethodMIP:
			res, err = m.solveMIP(ctx, prob, deadline)
		case MethodBC:
			res, h, err = m.solveHybrid(ctx, prob, deadline, false)
		case MethodLBBD:
			res, h, err = m.solveHybrid(ctx, prob, deadline, true)
		}
		if h != nil && h.haveDual {
			m.haveDual = true
			m.dualBound = h.dualBound
		}

		if err != nil {
			searchLog.WithField("error", err).Error("solve: MIP engine returned an unexpected error")
			m.status = StatusError
			break
		}

		m.nodes = res.Nodes
		m.status = mapResultStatus(res)
		if res.X != nil {
			m.primal = res.X
			m.primalBound = res.Obj
		}

	default:
		assert.Require(false, "Minimize: unknown method %v", m.method)
	}

	m.runtime = time.Since(start)
	searchLog.WithFields(map[string]interface{}{
		"method":  m.method,
		"status":  m.status,
		"runtime": m.runtime,
		"nodes":   m.nodes,
	}).Debug("solve finished")

	if m.verbose {
		searchLog.WithFields(map[string]interface{}{
			"method":    m.method,
			"runtime":   m.runtime,
			"status":    m.status,
			"objective": m.GetPrimalBound(),
			"bound":     m.dualBound,
		}).Info("solve finished")
	}

	return m.status
}

// readCPSolution copies the fixed CP-side values of every variable into
// the registry's MIP columns' worth of storage, for MethodCP's Get* calls.
func (m *Model) readCPSolution() {
	m.primal = make([]float64, len(m.reg.mipCols))
	for i := range m.reg.bools {
		e := &m.reg.bools[i]
		if e.mipCol == -1 {
			continue
		}
		if m.reg.cp.IsBoolFixed(e.cpVar) && m.reg.cp.BoolValue(e.cpVar) {
			m.primal[e.mipCol] = 1
		}
	}
	for i := range m.reg.ints {
		e := &m.reg.ints[i]
		if e.mipCol == -1 {
			continue
		}
		lo, _ := m.reg.cp.IntBounds(e.cpVar)
		m.primal[e.mipCol] = float64(lo)
	}
}

// GetStatus returns the outcome of the last Minimize call.
func (m *Model) GetStatus() Status { return m.status }

// GetPrimalBound returns the accepted incumbent's objective value, or NaN
// if none was found.
func (m *Model) GetPrimalBound() float64 {
	if m.primal == nil {
		return math.NaN()
	}
	return m.primalBound
}

// GetDualBound returns the best proven lower bound on the objective, or
// -Inf if none has been established (only meaningful for MethodBC/LBBD,
// which populate it via nogood-derived objective-column bound changes).
func (m *Model) GetDualBound() float64 { return m.dualBound }

// GetSol returns v's value in the last accepted solution; panics if no
// solution is available or v has no MIP column.
func (m *Model) GetSol(i I) float64 {
	assert.Require(m.primal != nil, "GetSol: no solution available")
	col := m.reg.intEntryAt(i).mipCol
	assert.Require(col != -1, "GetSol: %q has no MIP column", m.reg.IntName(i))
	return m.primal[col]
}

// GetBoolSol returns b's value in the last accepted solution.
func (m *Model) GetBoolSol(b B) bool {
	assert.Require(m.primal != nil, "GetBoolSol: no solution available")
	return m.primal[m.reg.boolEntry(b).mipCol] >= 0.5
}

// GetRuntime returns how long the last Minimize call took.
func (m *Model) GetRuntime() time.Duration { return m.runtime }

// GetNodes returns the number of branch-and-bound nodes explored by the
// last Minimize call (0 for MethodCP).
func (m *Model) GetNodes() int { return m.nodes }

// WriteLP writes the assembled MIP relaxation (the latest Minimize call's
// objective column, or a zero objective if Minimize was never called) to
// out as a plain-text LP-style dump, for debugging ("Persisted
// state").
func (m *Model) WriteLP(out io.Writer) error {
	objCol := m.objCol
	prob := m.buildProblemForDump(objCol)

	fmt.Fprintln(out, "\\ nutmeg model dump")
	if objCol >= 0 {
		fmt.Fprintf(out, "Minimize\n  obj: x%d\n", objCol)
	} else {
		fmt.Fprintln(out, "Minimize\n  obj: 0")
	}
	fmt.Fprintln(out, "Subject To")
	writeRows(out, "A", prob.A, prob.B, "=")
	writeRows(out, "G", prob.G, prob.H, "<=")
	fmt.Fprintln(out, "Bounds")
	for i := range prob.LB {
		kind := "C"
		if prob.Integer[i] {
			kind = "I"
		}
		name := prob.VarNames[i]
		if name == "" {
			name = fmt.Sprintf("x%d", i)
		}
		fmt.Fprintf(out, "  %g <= %s <= %g  (%s)\n", prob.LB[i], name, prob.UB[i], kind)
	}
	return nil
}

func (m *Model) buildProblemForDump(objCol int) *milp.Problem {
	if objCol < 0 {
		objCol = 0
	}
	nCols := len(m.reg.mipCols)
	A, Bv, G, H := m.b.assemble(nCols)
	c := make([]float64, nCols)
	if m.haveObj {
		c[m.objCol] = 1
	}
	lb := make([]float64, nCols)
	ub := make([]float64, nCols)
	integer := make([]bool, nCols)
	names := make([]string, nCols)
	for i, col := range m.reg.mipCols {
		lb[i] = col.lb
		ub[i] = col.ub
		integer[i] = col.integer
		names[i] = col.name
	}
	return &milp.Problem{C: c, A: A, B: Bv, G: G, H: H, LB: lb, UB: ub, Integer: integer, VarNames: names, ObjVarIndex: objCol}
}

func writeRows(out io.Writer, label string, mtx *mat.Dense, rhs []float64, rel string) {
	if mtx == nil {
		return
	}
	r, c := mtx.Dims()
	for i := 0; i < r; i++ {
		fmt.Fprintf(out, "  %s%d:", label, i)
		for j := 0; j < c; j++ {
			if v := mtx.At(i, j); v != 0 {
				fmt.Fprintf(out, " %+g*x%d", v, j)
			}
		}
		fmt.Fprintf(out, " %s %g\n", rel, rhs[i])
	}
}
