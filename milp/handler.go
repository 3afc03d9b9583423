package milp

import (
	"context"
	"time"
)

// Direction is the bound a BoundChange or nogood atom tightens.
type Direction int

const (
	// Lower means the column's lower bound is being raised.
	Lower Direction = iota
	// Upper means the column's upper bound is being lowered.
	Upper
)

// BoundChange is a tightening of one column's bound, either scoped to the
// current node (returned from Propagate) or applied globally (returned as
// part of a cut, see HandlerResult.GlobalBoundChange).
type BoundChange struct {
	VarIndex int
	Dir      Direction
	Value    float64
}

// Outcome is the handler's verdict for one invocation.
type Outcome int

const (
	// Feasible: the candidate is accepted (CHECK) or the probe found no
	// conflict and search may continue (ENFORCE_LP, including early-stop).
	Feasible Outcome = iota
	// Infeasible: the candidate is rejected; see HandlerResult for whether
	// a cut, a global bound change, or a full cutoff accompanies this.
	Infeasible
	// Cutoff: the handler proved the whole model is globally infeasible;
	// the search must terminate immediately.
	Cutoff
	// ReducedDomain: Propagate tightened at least one bound.
	ReducedDomain
	// DidNotFind: Propagate ran but found nothing to tighten.
	DidNotFind
)

// Candidate is the view of a branch-and-bound node exposed to a
// ConstraintHandler: its LP solution, objective value, and the node-local
// bounds resulting from branching decisions and previously-applied global
// tightenings.
type Candidate struct {
	// X holds the LP solution: the structural columns first, in Problem
	// order, followed by the slack columns introduced for the root's
	// inequality rows (if any).
	X []float64
	// Obj is the LP objective value at this node.
	Obj float64
	// LB, UB are the node-local bounds per column (same layout as X), i.e.
	// the variable's original bound intersected with every branching
	// decision and global tightening applied on the path from the root to
	// this node.
	LB, UB []float64
	// Integer marks which columns carry an integrality constraint.
	Integer []bool
	// IsIntegerFeasible is true when every integer column of X is within
	// tolerance of an integer value.
	IsIntegerFeasible bool
	// Fractional is true iff at least one integer column of X is
	// non-integral; this is the handler's "frac" flag.
	Fractional bool
	// Deadline is the time by which the caller's overall time limit
	// expires; a handler must recompute remaining time against it before
	// every CP probe rather than using a fixed budget.
	Deadline time.Time
}

// HandlerResult is returned by every ConstraintHandler event method.
type HandlerResult struct {
	Outcome Outcome

	// BoundChanges is populated by Propagate: node-local tightenings to
	// apply to this node only.
	BoundChanges []BoundChange

	// Primal, when non-nil, is a full assignment over structural columns
	// that improves on (or matches) the incumbent; CHECK and ENFORCE_LP use
	// this to inject a CP-discovered primal solution.
	Primal []float64

	// GlobalCut, when non-nil, is a nogood lifted to an inequality row over
	// structural columns (`GlobalCut . x <= GlobalCutRHS`) to be added to
	// every subsequent node for the remainder of the search (the n>=2 case).
	GlobalCut    []float64
	GlobalCutRHS float64

	// GlobalBoundChange, when non-nil, is a single-atom nogood (the n=1 case):
	// a bound to tighten globally and monotonically from this point on.
	GlobalBoundChange *BoundChange
}

// Event identifies which of the handler's invocation points produced a
// given HandlerResult; used only for logging/instrumentation.
type Event int

const (
	EventCheck Event = iota
	EventEnforceLP
	EventEnforcePseudo
	EventPropagate
)

// ConstraintHandler is the narrow callback interface the MIP engine drives
// the hybrid constraint handler (C4) through. It mirrors the inbound
// surface: check integer solution, enforce LP, enforce
// pseudo-cost branching candidates, propagate, lock, and transform.
type ConstraintHandler interface {
	// CheckIntegerSolution validates an integer-feasible candidate.
	CheckIntegerSolution(ctx context.Context, c *Candidate) HandlerResult

	// EnforceLP runs the three-stage CP escalation against a (possibly
	// fractional) LP solution before the search decides to branch.
	EnforceLP(ctx context.Context, c *Candidate) HandlerResult

	// EnforcePseudo is the pseudo-cost-branching analogue of EnforceLP,
	// invoked when the search considers branching candidates without a
	// fresh LP solve. The default hybrid handler defers to EnforceLP.
	EnforcePseudo(ctx context.Context, c *Candidate) HandlerResult

	// Propagate runs CP domain propagation only and reports any bound
	// tightenings.
	Propagate(ctx context.Context, c *Candidate) HandlerResult

	// Lock declares rounding locks for every model variable: the number of
	// times each column's lower/upper bound rounding would violate a
	// constraint the handler owns. numVars is the number of structural
	// columns; the returned slices must have that length.
	Lock(numVars int) (down, up []int)

	// Transform is called once before search starts, mirroring SCIP's
	// problem-transformation stage: a chance for the handler to reset any
	// internal subsolver state before the first node is solved.
	Transform()
}
