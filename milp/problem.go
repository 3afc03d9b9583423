// Package milp implements the black-box MIP engine the hybrid solver drives:
// a dense-matrix branch-and-bound search over a gonum simplex LP relaxation,
// with a narrow callback interface (ConstraintHandler) invoked at integer
// feasibility, after each LP solve, and during domain propagation.
package milp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Problem is the numerical MILP problem handed to Solve:
//
//	minimize    c^T x
//	subject to  A x = b
//	            G x <= h
//	            LB <= x <= UB
//	            x integer on the columns marked true in Integer
//
// Variable bounds are kept apart from the general constraint rows (unlike
// the teacher's user-facing Problem, which folded bounds into G/h once at
// build time): branching and handler-driven global bound tightenings both
// need to inspect and tighten per-column bounds throughout the search, so
// Solve regenerates the bound rows for every node from LB/UB rather than
// baking them into a frozen G/h at the root. Like the teacher, a variable's
// lower bound is only enforced when it is strictly positive: gonum's
// simplex assumes x>=0 throughout, so a negative lower bound is not
// actually enforceable without shifting the whole problem, a limitation
// this rewrite inherits rather than silently papering over (non-goals:
// no new LP algorithm).
type Problem struct {
	C []float64
	A *mat.Dense
	B []float64
	G *mat.Dense
	H []float64

	// LB, UB are the original (root) bounds per structural column.
	LB, UB []float64

	// Integer marks which columns carry an integrality constraint. Must be
	// the same length as C.
	Integer []bool

	// VarNames is optional, used only for diagnostics.
	VarNames []string

	// ObjVarIndex is the column holding the declared objective variable, or
	// -1 if there is none. When set, Solve cross-checks that the LP
	// objective value matches x[ObjVarIndex] on every integer-feasible node,
	// mirroring Model-SolveBC.cpp's release_assert on obj_ == sol.
	ObjVarIndex int

	// BranchHeuristic selects which fractional integer variable is branched
	// on at each node.
	BranchHeuristic BranchHeuristic

	// globalCuts accumulates multi-column nogood cuts injected by a
	// ConstraintHandler while Solve is running (the n>=2 cut case). Every
	// subProblem reads this slice fresh at solve time, so a cut injected
	// while nodes are queued is visible to all of them.
	globalCuts []bnbConstraint

	// globalLB, globalUB accumulate single-atom nogood bound tightenings
	// (the n=1 bound-change case). They only ever move toward the interior (raise
	// globalLB, lower globalUB), matching the monotonic-bounds invariant.
	globalLB, globalUB []float64
}

var (
	// ErrInitialRelaxationInfeasible is returned when the LP relaxation of
	// the root node has no feasible solution.
	ErrInitialRelaxationInfeasible = errors.New("milp: initial relaxation is not feasible")
	// ErrNoIntegerFeasibleSolution is returned when the branch-and-bound
	// tree is exhausted without finding an integer-feasible solution.
	ErrNoIntegerFeasibleSolution = errors.New("milp: no integer-feasible solution found")
)

// bnbDecision records, for diagnostics and the tree logger, what the search
// concluded about a node.
type bnbDecision string

const (
	decisionDegenerate        bnbDecision = "subproblem contains a degenerate (singular) matrix"
	decisionInfeasible        bnbDecision = "subproblem has no feasible solution"
	decisionWorseThanIncumb   bnbDecision = "worse than incumbent"
	decisionBetterBranching   bnbDecision = "better than incumbent but fractional, so branching"
	decisionBetterFeasible    bnbDecision = "better than incumbent and integer-feasible"
	decisionHandlerRejected   bnbDecision = "rejected by constraint handler, cut injected"
	decisionHandlerCutoff     bnbDecision = "constraint handler proved global infeasibility"
	decisionHandlerEarlyStop  bnbDecision = "constraint handler early-stopped, treated as feasible"
	decisionInitialRelaxation bnbDecision = "initial relaxation is legal"
)

// expectedFailures maps simplex errors that are expected outcomes of a
// branch-and-bound node (infeasible or degenerate subproblem) to the
// corresponding decision, rather than a fatal error.
var expectedFailures = map[error]bnbDecision{
	lp.ErrInfeasible: decisionInfeasible,
	lp.ErrSingular:   decisionDegenerate,
}

// bnbConstraint is a single multi-column inequality row `gsharp . x <=
// hsharp`, used exclusively for handler-injected nogood cuts (the n>=2 case).
// Branching and single-atom bound tightenings are represented directly as
// per-column bounds instead (see subProblem.lb/ub), not as rows.
type bnbConstraint struct {
	gsharp []float64
	hsharp float64
}

// toInitialSubproblem converts Problem's inequalities (if any) into
// equalities via slack variables, producing the root node of the
// branch-and-bound tree. The slack-variable count fixed here never changes
// for the lifetime of the search; subsequent nodes only ever tighten
// per-column bounds or add new global cuts, never new structural columns.
func (p *Problem) toInitialSubproblem() subProblem {
	cNew := p.C
	aNew := p.A
	bNew := p.B
	intNew := p.Integer

	if p.G != nil {
		cNew, aNew, bNew = convertToEqualities(p.C, p.A, p.B, p.G, p.H)

		intNew = make([]bool, len(cNew))
		copy(intNew, p.Integer)
	}

	lb := make([]float64, len(cNew))
	ub := make([]float64, len(cNew))
	for i := range p.C {
		lb[i] = p.LB[i]
		ub[i] = p.UB[i]
	}
	// Slack variables introduced by the equality conversion are themselves
	// unbounded-above, non-negative columns.
	for i := len(p.C); i < len(cNew); i++ {
		ub[i] = infinity
	}

	if p.globalLB == nil {
		p.globalLB = make([]float64, len(p.C))
		p.globalUB = make([]float64, len(p.C))
		for i := range p.C {
			p.globalLB[i] = p.LB[i]
			p.globalUB[i] = p.UB[i]
		}
	}

	return subProblem{
		id:      0,
		problem: p,

		c: cNew,
		a: aNew,
		b: bNew,

		lb: lb,
		ub: ub,

		lastBranched: -1,

		integer:    intNew,
		branchHeur: p.BranchHeuristic,
	}
}

const infinity = 1e18

// subProblem is one node of the branch-and-bound tree: the root problem
// (c, a, b; shared, never mutated after toInitialSubproblem) plus this
// node's own per-column bounds (tightened along the path from the root by
// branching decisions) and whatever global cuts/bound tightenings the
// constraint handler has injected by the time this node is solved.
type subProblem struct {
	id     int64
	parent int64

	problem *Problem

	c []float64
	a *mat.Dense
	b []float64

	lb, ub []float64

	// lastBranched is the column branched on to produce this node, or -1 at
	// the root; BranchNaive resumes its column cursor from here.
	lastBranched int

	integer    []bool
	branchHeur BranchHeuristic
}

type solution struct {
	problem *subProblem
	x       []float64
	z       float64
	err     error
}

// effectiveBounds intersects this node's own bounds with the problem's
// globally-tightened bounds (which may have moved since this node was
// created, if a nogood's global bound change was injected by a sibling
// node's handler invocation).
func (p subProblem) effectiveBounds() (lb, ub []float64) {
	lb = make([]float64, len(p.lb))
	ub = make([]float64, len(p.ub))
	copy(lb, p.lb)
	copy(ub, p.ub)

	for i, v := range p.problem.globalLB {
		if v > lb[i] {
			lb[i] = v
		}
	}
	for i, v := range p.problem.globalUB {
		if v < ub[i] {
			ub[i] = v
		}
	}
	return
}

// boundRows turns this node's effective per-column bounds into inequality
// rows, the way the teacher's Problem.toSolveable folded Variable bounds
// into G/h: an upper-bound row for every finite UB, a lower-bound row
// (negated) for every strictly-positive LB.
func boundRows(lb, ub []float64, nCols int) (rows [][]float64, rhs []float64) {
	for i := 0; i < nCols; i++ {
		if ub[i] < infinity {
			row := make([]float64, nCols)
			row[i] = 1
			rows = append(rows, row)
			rhs = append(rhs, ub[i])
		}
		if lb[i] > 0 {
			row := make([]float64, nCols)
			row[i] = -1
			rows = append(rows, row)
			rhs = append(rhs, -lb[i])
		}
	}
	return
}

// combineInequalities folds this node's effective bound rows together with
// the problem-wide globalCuts (nogoods injected by the handler) into a
// single G/h pair, ready for equality conversion.
func (p subProblem) combineInequalities() (*mat.Dense, []float64) {
	lb, ub := p.effectiveBounds()
	rows, rhs := boundRows(lb, ub, len(p.c))

	for _, constr := range p.problem.globalCuts {
		// A cut is written over the structural columns only; pad it with
		// zeros for the slack columns this node's tableau carries.
		row := make([]float64, len(p.c))
		copy(row, constr.gsharp)
		rows = append(rows, row)
		rhs = append(rhs, constr.hsharp)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	gvects := make([]float64, 0, len(rows)*len(p.c))
	for _, row := range rows {
		gvects = append(gvects, row...)
	}

	return mat.NewDense(len(rows), len(p.c), gvects), rhs
}

// convertToEqualities rewrites `A x = b, G x <= h` into a single equality
// system `Anew x' = bnew` by appending one non-negative slack variable per
// inequality row.
func convertToEqualities(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) (cNew []float64, aNew *mat.Dense, bNew []float64) {
	if G == nil {
		panic("milp: convertToEqualities called with nil G matrix")
	}
	if insane := sanityCheckDimensions(c, A, b, G, h); insane != nil {
		panic(insane)
	}

	nVar := len(c)
	nCons := len(b)
	nIneq := len(h)
	nNewVar := nVar + nIneq
	nNewCons := nCons + nIneq

	cNew = make([]float64, nNewVar)
	copy(cNew, c)

	bNew = make([]float64, nNewCons)
	copy(bNew, b)
	copy(bNew[nCons:], h)

	aNew = mat.NewDense(nNewCons, nNewVar, nil)
	if A != nil {
		aNew.Slice(0, nCons, 0, nVar).(*mat.Dense).Copy(A)
	}
	aNew.Slice(nCons, nNewCons, 0, nVar).(*mat.Dense).Copy(G)

	bottomRight := aNew.Slice(nCons, nNewCons, nVar, nVar+nIneq).(*mat.Dense)
	for i := 0; i < nIneq; i++ {
		bottomRight.Set(i, i, 1)
	}

	if insane := sanityCheckDimensions(cNew, aNew, bNew, nil, nil); insane != nil {
		panic(insane)
	}

	return
}

// solve runs the LP relaxation of this node via gonum's primal simplex.
func (p subProblem) solve() solution {
	G, h := p.combineInequalities()

	var z float64
	var x []float64
	var err error

	if G != nil {
		c, a, b := convertToEqualities(p.c, p.a, p.b, G, h)
		z, x, err = lp.Simplex(c, a, b, 0, nil)
		if err == nil && len(x) != len(p.c) {
			x = x[:len(p.c)]
		}
	} else {
		z, x, err = lp.Simplex(p.c, p.a, p.b, 0, nil)
	}

	return solution{
		problem: &p,
		x:       x,
		z:       z,
		err:     err,
	}
}

// copy returns a node that shares the immutable root arrays but owns its
// own bound slices, so branching one child never mutates the other.
func (p subProblem) copy() subProblem {
	n := subProblem{
		id:           p.id,
		parent:       p.id,
		problem:      p.problem,
		c:            p.c,
		a:            p.a,
		b:            p.b,
		lb:           make([]float64, len(p.lb)),
		ub:           make([]float64, len(p.ub)),
		lastBranched: p.lastBranched,
		integer:      p.integer,
		branchHeur:   p.branchHeur,
	}
	copy(n.lb, p.lb)
	copy(n.ub, p.ub)
	return n
}

func sanityCheckDimensions(c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64) error {
	if G == nil && A == nil {
		return errors.New("milp: no constraint matrices provided")
	}

	if G != nil {
		if h == nil {
			return errors.New("milp: h vector is nil while G matrix is provided")
		}
		rG, cG := G.Dims()
		if rG != len(h) {
			return errors.New("milp: number of rows in G does not match length of h")
		}
		if cG != len(c) {
			return fmt.Errorf("milp: number of columns in G (%d) does not match number of variables (%d)", cG, len(c))
		}
	}
	if h != nil && G == nil {
		return errors.New("milp: h vector is provided while G matrix is nil")
	}

	if A != nil {
		rA, cA := A.Dims()
		if rA != len(b) {
			return errors.New("milp: number of rows in A does not match length of b")
		}
		if cA != len(c) {
			return fmt.Errorf("milp: number of columns in A (%d) does not match number of variables (%d)", cA, len(c))
		}
	}
	if b != nil && A == nil {
		return errors.New("milp: b vector is provided while A matrix is nil")
	}

	return nil
}
