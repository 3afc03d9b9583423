package nutmeg

import "github.com/ed-lam/nutmeg/cp"

// Clause2 posts a 2-literal logical-OR (A ∨ B). Used for negated-alias
// tying (alias ↔ ¬b becomes the pair of clauses (¬alias∨¬b), (alias∨b))
// and for Implication's unit clause.
type Clause2 struct {
	A, B cp.Lit
}

func (c *Clause2) Propagate(s *cp.Solver) bool {
	cl := cp.Clause{Lits: []cp.Lit{c.A, c.B}}
	return cl.Propagate(s)
}

// indicatorSetProp ties an integer variable's domain to its indicator set
// (the indicator-set invariants): a value outside the integer variable's
// current bounds forces the matching indicator false (values excluded inside
// the bounds are not checked); fixing an indicator true forces the integer
// variable to that value; if the integer variable becomes fixed, the
// matching indicator is forced true and every other indicator false.
type indicatorSetProp struct {
	intVar     int
	lb         int
	indicators []int // cp bool var index per value k - lb
}

func (p *indicatorSetProp) Propagate(s *cp.Solver) bool {
	lo, hi := s.IntBounds(p.intVar)

	for k, bv := range p.indicators {
		val := p.lb + k
		if val < lo || val > hi {
			if !s.ApplyDuringPropagate(cp.BoolLit(bv, false)) {
				return false
			}
			continue
		}
		if boolFixedTrue(s, bv) {
			if !s.ApplyDuringPropagate(cp.IntAtLeast(p.intVar, val)) {
				return false
			}
			if !s.ApplyDuringPropagate(cp.IntAtMost(p.intVar, val)) {
				return false
			}
		}
	}

	if lo == hi {
		fixedIdx := lo - p.lb
		for k, bv := range p.indicators {
			if k == fixedIdx {
				if !s.ApplyDuringPropagate(cp.BoolLit(bv, true)) {
					return false
				}
			} else if !boolFixedFalse(s, bv) {
				if !s.ApplyDuringPropagate(cp.BoolLit(bv, false)) {
					return false
				}
			}
		}
	}

	return true
}

// reifiedLinearLE only runs its inner LinearLE propagator once Control is
// fixed to Positive, used by AddReifiedSubtraction.
type reifiedLinearLE struct {
	Control  int
	Positive bool
	Inner    cp.LinearLE
}

func (rp *reifiedLinearLE) Propagate(s *cp.Solver) bool {
	if !(s.IsBoolFixed(rp.Control) && s.BoolValue(rp.Control) == rp.Positive) {
		return true
	}
	return rp.Inner.Propagate(s)
}

func boolFixedTrue(s *cp.Solver, bv int) bool {
	return s.IsBoolFixed(bv) && s.BoolValue(bv)
}

func boolFixedFalse(s *cp.Solver, bv int) bool {
	return s.IsBoolFixed(bv) && !s.BoolValue(bv)
}
