package milp

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

var nodeIDCounter int64

// nextNodeID hands out process-wide unique branch-and-bound node IDs, used
// by the tree logger to key nodes.
func nextNodeID() int64 {
	return atomic.AddInt64(&nodeIDCounter, 1)
}

// Status summarizes how a Solve call concluded.
type Status int

const (
	// StatusOptimal: the search exhausted the tree and the returned
	// solution is provably optimal.
	StatusOptimal Status = iota
	// StatusInfeasible: the root LP relaxation has no feasible solution, or
	// the constraint handler proved the model globally infeasible.
	StatusInfeasible
	// StatusNoIntegerFeasible: the tree was exhausted with no handler-
	// accepted integer-feasible solution found.
	StatusNoIntegerFeasible
	// StatusTimeLimit: the context deadline or ctx.Done() fired before the
	// tree was exhausted; X/Obj hold the best-effort incumbent, if any.
	StatusTimeLimit
)

// Options configures a Solve call.
type Options struct {
	// Handler is invoked at the three event kinds described on
	// ConstraintHandler. Nil means no handler (pure MIP search).
	Handler ConstraintHandler

	// Middleware, if non-nil, observes every node as it is created and
	// solved; used for tree logging and diagnostics, never for control
	// flow.
	Middleware BnbMiddleware

	// Deadline bounds the wall-clock time Solve may run. The zero Time
	// means no deadline.
	Deadline time.Time

	// IntegerTolerance is how close to an integer an integer column's LP
	// value must be to count as integer-feasible. Defaults to 1e-6.
	IntegerTolerance float64

	// Presolve enables the fixed-variable presolve pass before search.
	Presolve bool
}

// Result is the outcome of a Solve call.
type Result struct {
	Status Status
	X      []float64
	Obj    float64

	// Nodes is the number of branch-and-bound nodes explored.
	Nodes int
}

// Solve runs branch-and-bound search over p, driving h at the three event
// kinds described on ConstraintHandler, until the tree is exhausted or ctx
// is done / opts.Deadline passes.
func Solve(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	if len(p.Integer) != len(p.C) {
		panic("milp: Integer vector is not the same length as C")
	}
	if len(p.LB) != len(p.C) || len(p.UB) != len(p.C) {
		panic("milp: LB/UB vectors are not the same length as C")
	}

	tol := opts.IntegerTolerance
	if tol == 0 {
		tol = 1e-6
	}

	middleware := opts.Middleware
	if middleware == nil {
		middleware = dummyMiddleware{}
	}

	var prepper *preProcessor
	solveProblem := p
	if opts.Presolve {
		prepper = newPreprocessor()
		solveProblem = prepper.presolve(p)
	}

	root := solveProblem.toInitialSubproblem()
	middleware.NewSubProblem(root)

	stack := []subProblem{root}

	var incumbent *solution
	incumbentObj := math.Inf(1)
	nodes := 0

	deadlineExceeded := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return !opts.Deadline.IsZero() && time.Now().After(opts.Deadline)
	}

	for len(stack) > 0 {
		if deadlineExceeded() {
			return finish(prepper, incumbent, StatusTimeLimit, nodes), nil
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		sol := node.solve()

		if sol.err != nil {
			decision, known := expectedFailures[sol.err]
			if !known {
				return nil, sol.err
			}
			middleware.ProcessDecision(sol, decision)
			if node.id == 0 {
				return finish(prepper, nil, StatusInfeasible, nodes), nil
			}
			continue
		}

		if node.id == 0 {
			middleware.ProcessDecision(sol, decisionInitialRelaxation)
		}

		if incumbent != nil && sol.z >= incumbentObj {
			middleware.ProcessDecision(sol, decisionWorseThanIncumb)
			continue
		}

		cand := node.toCandidate(sol, opts.Deadline, tol)

		if opts.Handler != nil {
			propRes := opts.Handler.Propagate(ctx, cand)
			if len(propRes.BoundChanges) > 0 {
				node = applyBoundChanges(node, propRes.BoundChanges)
				cand = node.toCandidate(sol, opts.Deadline, tol)
			}
			applyGlobalEffects(node.problem, propRes)
		}

		if cand.IsIntegerFeasible {
			if objIdx := node.problem.ObjVarIndex; objIdx >= 0 && math.Abs(sol.x[objIdx]-sol.z) > 1e-6 {
				panic("milp: objective variable's value does not match the LP objective at an integer-feasible node")
			}

			if opts.Handler != nil {
				res := opts.Handler.CheckIntegerSolution(ctx, cand)
				applyGlobalEffects(node.problem, res)
				if res.Outcome == Cutoff {
					middleware.ProcessDecision(sol, decisionHandlerCutoff)
					return finish(prepper, incumbent, StatusInfeasible, nodes), nil
				}
				if res.Outcome != Feasible {
					middleware.ProcessDecision(sol, decisionHandlerRejected)
					continue
				}
			}

			middleware.ProcessDecision(sol, decisionBetterFeasible)
			s := sol
			incumbent = &s
			incumbentObj = sol.z
			continue
		}

		if opts.Handler != nil {
			res := opts.Handler.EnforceLP(ctx, cand)
			applyGlobalEffects(node.problem, res)
			if res.Outcome == Cutoff {
				middleware.ProcessDecision(sol, decisionHandlerCutoff)
				return finish(prepper, incumbent, StatusInfeasible, nodes), nil
			}
			if res.Outcome != Feasible {
				middleware.ProcessDecision(sol, decisionHandlerRejected)
				continue
			}
		}

		middleware.ProcessDecision(sol, decisionBetterBranching)

		p1, p2 := sol.branch()
		middleware.NewSubProblem(p1)
		middleware.NewSubProblem(p2)
		stack = append(stack, p1, p2)
	}

	if incumbent == nil {
		return finish(prepper, nil, StatusNoIntegerFeasible, nodes), nil
	}
	return finish(prepper, incumbent, StatusOptimal, nodes), nil
}

func finish(prepper *preProcessor, incumbent *solution, status Status, nodes int) *Result {
	r := &Result{Status: status, Nodes: nodes, Obj: math.NaN()}
	if incumbent == nil {
		return r
	}
	x := incumbent.x
	if prepper != nil {
		x = prepper.postsolve(x)
	}
	r.X = x
	r.Obj = incumbent.z
	return r
}

// toCandidate builds the Candidate view of node/sol exposed to a handler.
func (p subProblem) toCandidate(sol solution, deadline time.Time, tol float64) *Candidate {
	lb, ub := p.effectiveBounds()
	frac := false
	intFeasible := true
	for i, isInt := range p.integer {
		if !isInt {
			continue
		}
		_, f := math.Modf(sol.x[i])
		if math.Abs(f) > tol && math.Abs(f-1) > tol {
			frac = true
			intFeasible = false
		}
	}

	return &Candidate{
		X:                 sol.x,
		Obj:               sol.z,
		LB:                lb,
		UB:                ub,
		Integer:           p.integer,
		IsIntegerFeasible: intFeasible,
		Fractional:        frac,
		Deadline:          deadline,
	}
}

// applyBoundChanges returns a copy of node with the given node-local
// tightenings applied.
func applyBoundChanges(node subProblem, changes []BoundChange) subProblem {
	child := node.copy()
	for _, ch := range changes {
		switch ch.Dir {
		case Lower:
			if ch.Value > child.lb[ch.VarIndex] {
				child.lb[ch.VarIndex] = ch.Value
			}
		case Upper:
			if ch.Value < child.ub[ch.VarIndex] {
				child.ub[ch.VarIndex] = ch.Value
			}
		}
	}
	return child
}

// applyGlobalEffects installs any cut or global bound change a handler
// returned onto the shared Problem, so every subsequent node observes it.
func applyGlobalEffects(p *Problem, res HandlerResult) {
	if res.GlobalCut != nil {
		p.globalCuts = append(p.globalCuts, bnbConstraint{gsharp: res.GlobalCut, hsharp: res.GlobalCutRHS})
	}
	if res.GlobalBoundChange != nil {
		ch := res.GlobalBoundChange
		switch ch.Dir {
		case Lower:
			if ch.Value > p.globalLB[ch.VarIndex] {
				p.globalLB[ch.VarIndex] = ch.Value
			}
		case Upper:
			if ch.Value < p.globalUB[ch.VarIndex] {
				p.globalUB[ch.VarIndex] = ch.Value
			}
		}
	}
}
