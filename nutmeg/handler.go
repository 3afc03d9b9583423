package nutmeg

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/milp"
)

// ownerKind tags which half of the registry owns a MIP column.
type ownerKind int

const (
	ownerNone ownerKind = iota
	ownerBool
	ownerInt
)

type colOwner struct {
	kind ownerKind
	b    B
	i    I
}

// hybridHandler is the Hybrid Constraint Handler (C4): the sole
// implementation of milp.ConstraintHandler, driving the CP adapter under
// assumption frames at each integer-feasibility check, LP enforcement
// round, and propagation event, and lifting CP conflicts into cuts via the
// nogood builder.
type hybridHandler struct {
	reg    *Registry
	owners []colOwner // indexed by MIP column

	cpIntToI  map[int]I // cp integer-var index -> registry handle
	cpBoolToB map[int]B // cp boolean-var index -> registry handle, for nogood lifting

	objCol int // MIP column of the objective variable, or -1

	dualBound    float64
	haveDual     bool
	minimizeCuts bool

	// checkOnly, when set, skips CP enforcement at the LP and propagation
	// events entirely (EnforceLP/Propagate become no-ops reporting
	// Feasible/DidNotFind): CP only ever runs at CheckIntegerSolution. Used
	// by MethodLBBD to decouple the master MIP solve from the CP
	// subproblem, as opposed to MethodBC's full escalation at every node.
	checkOnly bool

	log *log.Entry
}

func newHybridHandler(reg *Registry, objCol int, minimizeCuts bool) *hybridHandler {
	return &hybridHandler{
		reg:          reg,
		objCol:       objCol,
		minimizeCuts: minimizeCuts,
		log:          log.WithField("component", "hybrid-handler"),
	}
}

// Transform builds the column-ownership and CP-var reverse maps once,
// before the first node is solved, mirroring the MIP engine's
// problem-transformation stage.
func (h *hybridHandler) Transform() {
	h.owners = make([]colOwner, len(h.reg.mipCols))
	h.cpIntToI = make(map[int]I, len(h.reg.ints))
	h.cpBoolToB = make(map[int]B, len(h.reg.bools))

	for i := range h.reg.bools {
		e := &h.reg.bools[i]
		h.cpBoolToB[e.cpVar] = B(i)
		if e.mipCol != -1 {
			h.owners[e.mipCol] = colOwner{kind: ownerBool, b: B(i)}
		}
	}
	for i := range h.reg.ints {
		e := &h.reg.ints[i]
		h.cpIntToI[e.cpVar] = I(i)
		if e.mipCol != -1 {
			h.owners[e.mipCol] = colOwner{kind: ownerInt, i: I(i)}
		}
	}
}

// Lock declares rounding locks on every model variable: this handler may
// tighten any column in either direction, so every column gets one lock of
// each sign.
func (h *hybridHandler) Lock(numVars int) (down, up []int) {
	down = make([]int, numVars)
	up = make([]int, numVars)
	for i := range down {
		down[i] = 1
		up[i] = 1
	}
	return
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (h *hybridHandler) intMIPCol(i I) int {
	return h.reg.intEntryAt(i).mipCol
}

// assumeBoolsFromSolution assumes every Boolean column's literal at its
// current LP value (>= 0.5 rounds to true).
func (h *hybridHandler) assumeBoolsFromSolution(c *milp.Candidate) bool {
	for col, owner := range h.owners {
		if owner.kind != ownerBool {
			continue
		}
		lit := cp.BoolLit(h.reg.boolEntry(owner.b).cpVar, c.X[col] >= 0.5)
		if !h.reg.cp.Assume(lit) {
			return false
		}
	}
	return true
}

func (h *hybridHandler) assumeIntBothBounds(c *milp.Candidate, col int, lo, hi int) bool {
	cpVar := h.reg.intEntryAt(h.owners[col].i).cpVar
	if !h.reg.cp.Assume(cp.IntAtLeast(cpVar, lo)) {
		return false
	}
	return h.reg.cp.Assume(cp.IntAtMost(cpVar, hi))
}

func (h *hybridHandler) assumeIntFromSolution(c *milp.Candidate, col int) bool {
	v := int(math.Round(c.X[col]))
	return h.assumeIntBothBounds(c, col, v, v)
}

func (h *hybridHandler) assumeAllIntsFromSolution(c *milp.Candidate) bool {
	for col, owner := range h.owners {
		if owner.kind != ownerInt {
			continue
		}
		if !h.assumeIntFromSolution(c, col) {
			return false
		}
	}
	return true
}

// CheckIntegerSolution validates an integer-feasible candidate by
// confirming its rounded assignment under a full CP solve.
func (h *hybridHandler) CheckIntegerSolution(ctx context.Context, c *milp.Candidate) milp.HandlerResult {
	if h.haveDual && c.Obj < h.dualBound {
		return milp.HandlerResult{Outcome: milp.Infeasible}
	}

	remaining := time.Until(c.Deadline)
	if remaining <= 0 {
		return milp.HandlerResult{Outcome: milp.Infeasible}
	}

	h.reg.cp.ClearAssumptions()

	ok := true
	for col, owner := range h.owners {
		switch owner.kind {
		case ownerBool:
			lit := cp.BoolLit(h.reg.boolEntry(owner.b).cpVar, c.X[col] >= 0.5)
			ok = h.reg.cp.Assume(lit)
		case ownerInt:
			lo := int(math.Floor(c.X[col]))
			hi := int(math.Ceil(c.X[col]))
			ok = h.assumeIntBothBounds(c, col, lo, hi)
		}
		if !ok {
			break
		}
	}
	if !ok {
		h.log.Debug("check: assumption frame immediately refuted")
		return milp.HandlerResult{Outcome: milp.Infeasible}
	}

	status := h.reg.cp.Solve(cp.Limits{Time: remaining})
	if status == cp.SAT {
		h.log.WithField("obj", c.Obj).Debug("check: CP confirmed feasible")
		return milp.HandlerResult{Outcome: milp.Feasible}
	}
	if status == cp.UNSAT {
		// The LBBD outer iteration: rather than a separate top-level
		// milp.Solve call, the lifted nogood is injected into the same
		// branch-and-bound run via applyGlobalEffects, which re-enters the
		// search under the tightened relaxation exactly as a fresh master
		// solve would, just without rebuilding the MIP transform from
		// scratch.
		conflict := h.reg.cp.GetConflict()
		h.log.WithField("atoms", len(conflict)).Debug("check: CP refuted, lifting nogood")
		return h.liftConflict(conflict)
	}
	return milp.HandlerResult{Outcome: milp.Infeasible}
}

// EnforceLP runs the three-stage CP escalation (Boolean values, then the
// objective bound, then every integer bound) against the LP solution,
// stopping as soon as a stage proves UNSAT (lifted into a cut) or, for a
// fractional candidate, a stage times out (treated as an early-stop pass).
func (h *hybridHandler) EnforceLP(ctx context.Context, c *milp.Candidate) milp.HandlerResult {
	if h.checkOnly {
		return milp.HandlerResult{Outcome: milp.Feasible}
	}

	remaining := time.Until(c.Deadline)
	if remaining <= 0 {
		return milp.HandlerResult{Outcome: milp.Infeasible}
	}

	frac := c.Fractional
	lim := cp.Limits{Time: remaining}
	if frac {
		lim = cp.Limits{Time: minDuration(remaining, 300*time.Millisecond), Conflicts: 300}
	}

	h.reg.cp.ClearAssumptions()

	if !h.assumeBoolsFromSolution(c) {
		return h.conflictResult("A")
	}
	if res, done := h.runEnforceStage(lim, frac, "A"); done {
		return res
	}

	if h.objCol >= 0 {
		if !h.assumeIntFromSolution(c, h.objCol) {
			return h.conflictResult("B")
		}
	}
	if res, done := h.runEnforceStage(lim, frac, "B"); done {
		return res
	}

	if !h.assumeAllIntsFromSolution(c) {
		return h.conflictResult("C")
	}
	if res, done := h.runEnforceStage(lim, frac, "C"); done {
		return res
	}

	h.log.Debug("enforce: SAT through stage C")
	return milp.HandlerResult{Outcome: milp.Feasible}
}

// runEnforceStage solves under the stage's limits and reports whether the
// caller should return immediately (done=true) along with what to return:
// UNSAT lifts a conflict; UNKNOWN on a fractional candidate is an
// early-stop pass; any other outcome lets the caller proceed to the next
// stage.
func (h *hybridHandler) runEnforceStage(lim cp.Limits, frac bool, stage string) (milp.HandlerResult, bool) {
	switch h.reg.cp.Solve(lim) {
	case cp.UNSAT:
		return h.conflictResult(stage), true
	case cp.UNKNOWN:
		if frac {
			h.log.WithField("stage", stage).Debug("enforce: early-stop")
			return milp.HandlerResult{Outcome: milp.Feasible}, true
		}
	}
	return milp.HandlerResult{}, false
}

func (h *hybridHandler) conflictResult(stage string) milp.HandlerResult {
	conflict := h.reg.cp.GetConflict()
	h.log.WithField("stage", stage).WithField("atoms", len(conflict)).Debug("enforce: conflict")
	return h.liftConflict(conflict)
}

// EnforcePseudo is the pseudo-cost-branching analogue of EnforceLP; this
// handler has no cheaper probe available and defers to it directly.
func (h *hybridHandler) EnforcePseudo(ctx context.Context, c *milp.Candidate) milp.HandlerResult {
	return h.EnforceLP(ctx, c)
}

// Propagate runs CP domain propagation against the node's current bounds
// and reports any tightening translated back to the MIP side.
func (h *hybridHandler) Propagate(ctx context.Context, c *milp.Candidate) milp.HandlerResult {
	if h.checkOnly {
		return milp.HandlerResult{Outcome: milp.DidNotFind}
	}

	remaining := time.Until(c.Deadline)
	if remaining <= 0 {
		return milp.HandlerResult{Outcome: milp.DidNotFind}
	}

	h.reg.cp.ClearAssumptions()
	h.reg.cp.ResetMonitors()

	ok := true
	for col, owner := range h.owners {
		switch owner.kind {
		case ownerBool:
			if c.LB[col] != c.UB[col] {
				continue
			}
			lit := cp.BoolLit(h.reg.boolEntry(owner.b).cpVar, c.LB[col] >= 0.5)
			ok = h.reg.cp.Assume(lit)
		case ownerInt:
			ok = h.assumeIntBothBounds(c, col, int(math.Ceil(c.LB[col])), int(math.Floor(c.UB[col])))
		}
		if !ok {
			break
		}
	}
	if !ok || !h.reg.cp.IsConsistent() {
		return milp.HandlerResult{Outcome: milp.Cutoff}
	}

	var changes []milp.BoundChange
	for _, cpVar := range h.reg.cp.LowerChanged() {
		iIdx, known := h.cpIntToI[cpVar]
		if !known {
			continue
		}
		if col := h.intMIPCol(iIdx); col != -1 {
			lo, _ := h.reg.cp.IntBounds(cpVar)
			if float64(lo) > c.LB[col] {
				changes = append(changes, milp.BoundChange{VarIndex: col, Dir: milp.Lower, Value: float64(lo)})
			}
		}
	}
	for _, cpVar := range h.reg.cp.UpperChanged() {
		iIdx, known := h.cpIntToI[cpVar]
		if !known {
			continue
		}
		if col := h.intMIPCol(iIdx); col != -1 {
			_, hi := h.reg.cp.IntBounds(cpVar)
			if float64(hi) < c.UB[col] {
				changes = append(changes, milp.BoundChange{VarIndex: col, Dir: milp.Upper, Value: float64(hi)})
			}
		}
	}

	if len(changes) == 0 {
		return milp.HandlerResult{Outcome: milp.DidNotFind}
	}
	return milp.HandlerResult{Outcome: milp.ReducedDomain, BoundChanges: changes}
}
