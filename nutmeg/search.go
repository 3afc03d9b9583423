package nutmeg

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/milp"
)

// Method selects which of the Search Controller's four solve strategies
// Minimize runs.
type Method int

const (
	// MethodMIP ignores the CP side entirely: pure branch-and-bound over the
	// MIP relaxation of the model (no ConstraintHandler at all).
	MethodMIP Method = iota
	// MethodCP ignores the MIP side entirely: a single CP satisfaction
	// search over the model's Boolean/integer variables. The objective
	// passed to Minimize is not optimized: a successful search reports
	// StatusFeasible, never StatusOptimal.
	MethodCP
	// MethodBC is branch-and-check: the full three-stage hybrid constraint
	// handler runs at every LP relaxation (not just integer-feasible ones),
	// so CP feedback tightens the search as early as possible.
	MethodBC
	// MethodLBBD is logic-based Benders: CP only ever checks integer-
	// feasible candidates (EnforceLP/Propagate are skipped), so the master
	// MIP solve runs undisturbed and subproblem feasibility is enforced
	// purely through lazily-injected nogoods at incumbent points.
	MethodLBBD
)

func (m Method) String() string {
	switch m {
	case MethodMIP:
		return "mip"
	case MethodCP:
		return "cp"
	case MethodBC:
		return "bc"
	case MethodLBBD:
		return "lbbd"
	default:
		return "unknown"
	}
}

// Status is the Search Controller's unified solve outcome, spanning both
// the MIP and pure-CP code paths.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// solveMIP runs pure branch-and-bound with no constraint handler at all.
func (m *Model) solveMIP(ctx context.Context, prob *milp.Problem, deadline time.Time) (*milp.Result, error) {
	return milp.Solve(ctx, prob, milp.Options{Deadline: deadline})
}

// solveCP runs a single CP search over the registry's Boolean/integer
// variables and reports a Status directly; there is no MIP incumbent to
// report alongside it.
func (m *Model) solveCP(remaining time.Duration) Status {
	m.reg.cp.ClearAssumptions()
	switch m.reg.cp.Solve(cp.Limits{Time: remaining}) {
	case cp.SAT:
		return StatusFeasible
	case cp.UNSAT:
		return StatusInfeasible
	default:
		return StatusUnknown
	}
}

// solveHybrid runs milp.Solve with the hybrid constraint handler attached,
// either in full branch-and-check mode (checkOnly=false, MethodBC) or in
// logic-based-Benders mode (checkOnly=true, MethodLBBD: CP only ever
// checks integer-feasible candidates).
func (m *Model) solveHybrid(ctx context.Context, prob *milp.Problem, deadline time.Time, checkOnly bool) (*milp.Result, *hybridHandler, error) {
	h := newHybridHandler(m.reg, m.objCol, m.minimizeCuts)
	h.checkOnly = checkOnly
	h.Transform()
	res, err := milp.Solve(ctx, prob, milp.Options{
		Handler:          h,
		Deadline:         deadline,
		IntegerTolerance: m.integerTolerance,
		Presolve:         m.presolve,
	})
	return res, h, err
}

// mapResultStatus converts the MIP engine's Status into the Search
// Controller's unified one. StatusNoIntegerFeasible collapses to
// StatusInfeasible: the tree was fully explored and nothing the handler
// would accept was ever found, which is indistinguishable from
// infeasibility from the caller's point of view.
func mapResultStatus(r *milp.Result) Status {
	switch r.Status {
	case milp.StatusOptimal:
		return StatusOptimal
	case milp.StatusInfeasible, milp.StatusNoIntegerFeasible:
		return StatusInfeasible
	case milp.StatusTimeLimit:
		if r.X != nil {
			return StatusFeasible
		}
		return StatusUnknown
	default:
		return StatusUnknown
	}
}

var searchLog = log.WithField("component", "search")
