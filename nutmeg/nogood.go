package nutmeg

import (
	"sort"
	"time"

	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/internal/assert"
	"github.com/ed-lam/nutmeg/milp"
)

// nogoodAtom is one lifted conflict atom: a MIP column, the bound
// direction being asserted, and the threshold value.
type nogoodAtom struct {
	col       int
	dir       milp.Direction
	threshold float64
}

// liftConflict is the Nogood Builder (C5) entry point: given a CP conflict
// (already the negated, clause-valid form GetConflict returns), optionally
// minimizes it, lifts every atom to its MIP representation, and emits the
// resulting cut.
func (h *hybridHandler) liftConflict(conflict []cp.Lit) milp.HandlerResult {
	if h.minimizeCuts {
		conflict = h.minimizeConflict(conflict)
	}
	atoms, allBinary := h.liftAtoms(conflict)
	return h.emitCut(atoms, allBinary)
}

// liftAtoms converts every CP literal into one or more MIP-side atoms. An
// integer bound atom over a CP-only variable (no MIP column) expands into
// one atom per indicator whose value lies in the bound's range, a
// one-to-many lift, since no single MIP column represents the bound
// directly.
func (h *hybridHandler) liftAtoms(conflict []cp.Lit) ([]nogoodAtom, bool) {
	atoms := make([]nogoodAtom, 0, len(conflict))
	allBinary := true

	for _, a := range conflict {
		switch a.Kind {
		case cp.KindBool:
			bIdx, known := h.cpBoolToB[a.BoolVar]
			assert.Require(known, "nogood: conflict literal references an unregistered CP boolean %d", a.BoolVar)
			dir, threshold := milp.Lower, 1.0
			if !a.Positive {
				dir, threshold = milp.Upper, 0.0
			}
			atoms = append(atoms, nogoodAtom{col: h.reg.boolEntry(bIdx).mipCol, dir: dir, threshold: threshold})

		case cp.KindInt:
			iIdx, known := h.cpIntToI[a.IntVar]
			assert.Require(known, "nogood: conflict literal references an unregistered CP integer %d", a.IntVar)
			e := h.reg.intEntryAt(iIdx)

			switch {
			case e.mipCol != -1:
				dir := milp.Lower
				if a.Dir == cp.AtMost {
					dir = milp.Upper
				}
				atoms = append(atoms, nogoodAtom{col: e.mipCol, dir: dir, threshold: float64(a.Value)})
				allBinary = false

			case e.indVars != nil:
				lo, hi := e.lb, e.ub
				if a.Dir == cp.AtLeast {
					lo = a.Value
				} else {
					hi = a.Value
				}
				for k := lo; k <= hi; k++ {
					if k < e.lb || k > e.ub {
						continue
					}
					bv := e.indVars[k-e.lb]
					atoms = append(atoms, nogoodAtom{col: h.reg.boolEntry(bv).mipCol, dir: milp.Lower, threshold: 1})
				}

			default:
				assert.Require(false, "nogood: integer variable %q has neither a MIP column nor an indicator set", e.name)
			}

		default:
			assert.Require(false, "nogood: conflict literal of unknown kind")
		}
	}

	return atoms, allBinary
}

// minimizeConflict iteratively drops atoms that turn out to be redundant:
// re-assuming the negation of every remaining atom (i.e. the original
// assumption it came from) and checking whether CP still proves UNSAT
// without the dropped one. Atoms are sorted integer-typed first; a dropped
// atom is replaced by the last one (swap-with-last), which can move a later
// atom ahead of those not yet tried. Stops once fewer than two atoms remain.
func (h *hybridHandler) minimizeConflict(conflict []cp.Lit) []cp.Lit {
	atoms := append([]cp.Lit(nil), conflict...)
	sort.SliceStable(atoms, func(i, j int) bool {
		return atoms[i].Kind == cp.KindInt && atoms[j].Kind != cp.KindInt
	})

	for i := 0; len(atoms) >= 2 && i < len(atoms); {
		rest := make([]cp.Lit, 0, len(atoms)-1)
		for j, a := range atoms {
			if j != i {
				rest = append(rest, a)
			}
		}
		if h.conflictSurvivesWithout(rest) {
			atoms[i] = atoms[len(atoms)-1]
			atoms = atoms[:len(atoms)-1]
			continue
		}
		i++
	}

	h.reg.cp.ClearAssumptions()
	return atoms
}

// conflictSurvivesWithout reports whether re-assuming the original
// assumptions named by rest (each rest atom's negation) still drives CP to
// UNSAT under a tight budget, meaning the atom that rest excludes was not
// needed.
func (h *hybridHandler) conflictSurvivesWithout(rest []cp.Lit) bool {
	h.reg.cp.ClearAssumptions()
	for _, a := range rest {
		if !h.reg.cp.Assume(a.Negate()) {
			return true
		}
	}
	status := h.reg.cp.Solve(cp.Limits{Time: 300 * time.Millisecond, Conflicts: 300})
	return status == cp.UNSAT
}

// emitCut applies the three-way cut-emission disposition on the final
// nogood size.
func (h *hybridHandler) emitCut(atoms []nogoodAtom, allBinary bool) milp.HandlerResult {
	switch {
	case len(atoms) == 0:
		h.log.Debug("nogood: empty conflict, model globally infeasible")
		return milp.HandlerResult{Outcome: milp.Cutoff}

	case len(atoms) == 1:
		a := atoms[0]
		if a.col == h.objCol && a.dir == milp.Lower && (!h.haveDual || a.threshold > h.dualBound) {
			// Raising the objective variable's globally-valid lower bound is
			// this engine's dual bound; the search controller's own
			// worse-than-incumbent pruning takes it from here.
			h.dualBound = a.threshold
			h.haveDual = true
		}
		return milp.HandlerResult{
			Outcome:           milp.Infeasible,
			GlobalBoundChange: &milp.BoundChange{VarIndex: a.col, Dir: a.dir, Value: a.threshold},
		}

	case allBinary:
		row := make([]float64, len(h.reg.mipCols))
		negCount := 0
		for _, a := range atoms {
			if a.dir == milp.Lower {
				row[a.col] += -1
			} else {
				row[a.col] += 1
				negCount++
			}
		}
		return milp.HandlerResult{
			Outcome:      milp.Infeasible,
			GlobalCut:    row,
			GlobalCutRHS: float64(negCount - 1),
		}

	default:
		// A genuinely mixed (Boolean + non-indicator integer) disjunction
		// has no sound single-row linear encoding and milp.HandlerResult
		// carries no disjunctive-cut channel, so this falls back to
		// rejecting the current node without adding a global constraint:
		// sound (nothing incorrect is cut), just weaker pruning than a true
		// bound-disjunction would give. See DESIGN.md.
		h.log.WithField("atoms", len(atoms)).Debug("nogood: mixed conflict, no global cut added")
		return milp.HandlerResult{Outcome: milp.Infeasible}
	}
}
