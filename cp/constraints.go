package cp

// LinearLE posts sum(coeffs[i] * vars[i]) <= rhs as a bound-consistency
// propagator: each variable's bound is tightened from the others' current
// extreme values, the standard technique for a box-consistent linear
// inequality (grounded on gokanlogic's linear/arith propagators in
// pkg/minikanren/fd_arith.go, re-expressed over this package's interval
// domains rather than bitset domains).
type LinearLE struct {
	Coeffs []int
	Vars   []int
	RHS    int
}

func (c *LinearLE) Propagate(s *Solver) bool {
	n := len(c.Vars)
	for i := 0; i < n; i++ {
		// slack = rhs - sum_{j!=i} coeffs[j]*extreme(vars[j])
		// where extreme maximizes each term (so the remaining slack is the
		// tightest bound we can still guarantee for term i).
		slack := c.RHS
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			lo, hi := s.IntBounds(c.Vars[j])
			if c.Coeffs[j] >= 0 {
				slack -= c.Coeffs[j] * lo
			} else {
				slack -= c.Coeffs[j] * hi
			}
		}

		ai := c.Coeffs[i]
		if ai == 0 {
			continue
		}
		if ai > 0 {
			// ai*xi <= slack => xi <= floor(slack/ai)
			bound := floorDiv(slack, ai)
			if !s.ApplyDuringPropagate(IntAtMost(c.Vars[i], bound)) {
				return false
			}
		} else {
			// ai*xi <= slack, ai<0 => xi >= ceil(slack/ai)
			bound := ceilDiv(slack, ai)
			if !s.ApplyDuringPropagate(IntAtLeast(c.Vars[i], bound)) {
				return false
			}
		}
	}
	return true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

// BoolLinearLE posts sum(coeffs[i]*vars[i]) <= rhs over Boolean variables.
// The same bound-consistency technique as LinearLE, but reading and writing
// s.bools directly rather than s.ints: a Boolean's only two possible
// tightenings are forcing it to false or to true, applied as a BoolLit
// rather than an IntAtMost/IntAtLeast.
type BoolLinearLE struct {
	Coeffs []int
	Vars   []int
	RHS    int
}

func (c *BoolLinearLE) Propagate(s *Solver) bool {
	n := len(c.Vars)
	for i := 0; i < n; i++ {
		slack := c.RHS
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			d := s.bools[c.Vars[j]]
			if c.Coeffs[j] >= 0 {
				slack -= c.Coeffs[j] * d.lo
			} else {
				slack -= c.Coeffs[j] * d.hi
			}
		}

		ai := c.Coeffs[i]
		if ai == 0 {
			continue
		}
		if ai > 0 {
			// ai*xi <= slack; xi in {0,1}, so xi must be forced false unless
			// slack/ai still admits 1.
			if floorDiv(slack, ai) < 1 {
				if !s.ApplyDuringPropagate(BoolLit(c.Vars[i], false)) {
					return false
				}
			}
		} else {
			if ceilDiv(slack, ai) > 0 {
				if !s.ApplyDuringPropagate(BoolLit(c.Vars[i], true)) {
					return false
				}
			}
		}
	}
	return true
}

// MixedLinearLE posts sum(boolCoeffs[i]*boolVars[i]) +
// sum(intCoeffs[j]*intVars[j]) <= rhs, a single bound-consistency row
// spanning both variable kinds. Needed wherever an auxiliary CP integer
// variable (e.g. a synthesized z=c·y term) has to be folded into an
// otherwise-Boolean sum; LinearLE and BoolLinearLE each assume a single
// domain kind throughout.
type MixedLinearLE struct {
	BoolCoeffs []int
	BoolVars   []int
	IntCoeffs  []int
	IntVars    []int
	RHS        int
}

func (c *MixedLinearLE) Propagate(s *Solver) bool {
	boolSlack := func(skip int) int {
		total := 0
		for j, v := range c.BoolVars {
			if j == skip {
				continue
			}
			d := s.bools[v]
			if c.BoolCoeffs[j] >= 0 {
				total += c.BoolCoeffs[j] * d.lo
			} else {
				total += c.BoolCoeffs[j] * d.hi
			}
		}
		return total
	}
	intSlack := func(skip int) int {
		total := 0
		for j, v := range c.IntVars {
			if j == skip {
				continue
			}
			lo, hi := s.IntBounds(v)
			if c.IntCoeffs[j] >= 0 {
				total += c.IntCoeffs[j] * lo
			} else {
				total += c.IntCoeffs[j] * hi
			}
		}
		return total
	}

	for i := range c.BoolVars {
		slack := c.RHS - boolSlack(i) - intSlack(-1)
		ai := c.BoolCoeffs[i]
		if ai == 0 {
			continue
		}
		if ai > 0 {
			if floorDiv(slack, ai) < 1 {
				if !s.ApplyDuringPropagate(BoolLit(c.BoolVars[i], false)) {
					return false
				}
			}
		} else {
			if ceilDiv(slack, ai) > 0 {
				if !s.ApplyDuringPropagate(BoolLit(c.BoolVars[i], true)) {
					return false
				}
			}
		}
	}
	for i := range c.IntVars {
		slack := c.RHS - boolSlack(-1) - intSlack(i)
		ai := c.IntCoeffs[i]
		if ai == 0 {
			continue
		}
		if ai > 0 {
			bound := floorDiv(slack, ai)
			if !s.ApplyDuringPropagate(IntAtMost(c.IntVars[i], bound)) {
				return false
			}
		} else {
			bound := ceilDiv(slack, ai)
			if !s.ApplyDuringPropagate(IntAtLeast(c.IntVars[i], bound)) {
				return false
			}
		}
	}
	return true
}

// LinearNE posts sum(coeffs[i]*vars[i]) != rhs. Only fires once every
// variable but one is fixed, at which point it excludes the single value
// that would make the sum equal rhs, mirroring a lazy "value exclusion"
// propagator.
type LinearNE struct {
	Coeffs []int
	Vars   []int
	RHS    int
}

func (c *LinearNE) Propagate(s *Solver) bool {
	freeIdx := -1
	sum := 0
	for i, v := range c.Vars {
		lo, hi := s.IntBounds(v)
		if lo == hi {
			sum += c.Coeffs[i] * lo
			continue
		}
		if freeIdx != -1 {
			return true // more than one free variable, nothing to do yet
		}
		freeIdx = i
	}
	if freeIdx == -1 {
		return sum != c.RHS
	}
	ai := c.Coeffs[freeIdx]
	if ai == 0 {
		return true
	}
	remainder := c.RHS - sum
	if remainder%ai != 0 {
		return true
	}
	forbidden := remainder / ai
	nd := s.ints[c.Vars[freeIdx]].exclude(forbidden)
	return s.setIntDomain(c.Vars[freeIdx], nd)
}

// AllDifferent posts all_different_int(vars): whenever a variable is
// fixed, its value is excluded from every other variable's domain. This is
// forward-checking consistency, not the stronger Régin matching-based
// filtering; sufficient for the bound-disjunction conflicts this engine
// needs to extract (the all-different example relies only on forward-checking to force the
// third variable).
type AllDifferent struct {
	Vars []int
}

func (c *AllDifferent) Propagate(s *Solver) bool {
	for i, vi := range c.Vars {
		d := s.ints[vi]
		if !d.fixed() {
			continue
		}
		val := d.lo
		for j, vj := range c.Vars {
			if i == j {
				continue
			}
			dj := s.ints[vj]
			if !dj.has(val) {
				continue
			}
			ndj := dj.exclude(val)
			if !s.setIntDomain(vj, ndj) {
				return false
			}
		}
	}
	return true
}

// IntElement posts val = array[idx-1] with idx in the 1-based range
// [1,len(array)] (this propagator narrows idx into [1,|array|] on the CP
// side; the MIP side's bounds for idx are not touched by it). Bound
// consistency: idx's domain narrows to indices whose array value is still
// possible for val; val's domain narrows to the union of array[k] over
// idx's current domain.
type IntElement struct {
	Idx   int
	Array []int
	Val   int
}

func (c *IntElement) Propagate(s *Solver) bool {
	idxLo, idxHi := s.IntBounds(c.Idx)
	if idxLo < 1 {
		if !s.ApplyDuringPropagate(IntAtLeast(c.Idx, 1)) {
			return false
		}
		idxLo = 1
	}
	if idxHi > len(c.Array) {
		if !s.ApplyDuringPropagate(IntAtMost(c.Idx, len(c.Array))) {
			return false
		}
		idxHi = len(c.Array)
	}

	valLo, valHi := s.IntBounds(c.Val)

	minVal, maxVal := c.Array[idxLo-1], c.Array[idxLo-1]
	for k := idxLo; k <= idxHi; k++ {
		d := s.ints[c.Idx]
		if !d.has(k) {
			continue
		}
		v := c.Array[k-1]
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		if v < valLo || v > valHi {
			nd := d.exclude(k)
			if !s.setIntDomain(c.Idx, nd) {
				return false
			}
		}
	}

	if !s.ApplyDuringPropagate(IntAtLeast(c.Val, minVal)) {
		return false
	}
	if !s.ApplyDuringPropagate(IntAtMost(c.Val, maxVal)) {
		return false
	}
	return true
}

// CumulativeTask is one task in a Cumulative constraint: start (an integer
// variable index), a fixed duration and resource requirement, and an
// optional "active" Boolean (-1 when the task is mandatory).
type CumulativeTask struct {
	Start    int
	Duration int
	Resource int
	Active   int
}

// Cumulative posts the scheduling constraint bounding simultaneous
// resource use across tasks to capacity, via time-table ("obligatory
// parts") filtering: for each instant, the tasks whose current start
// domain forces them to occupy it contribute a mandatory demand; if that
// alone exceeds capacity the constraint is violated, and any optional
// placement that would push an instant over capacity is excluded. A task
// with an Active Boolean takes part only once that Boolean is fixed true.
// Grounded on gokanlogic's cumulative.go sweep-line idiom, re-expressed
// over interval domains.
type Cumulative struct {
	Tasks    []CumulativeTask
	Capacity int
}

func (c *Cumulative) Propagate(s *Solver) bool {
	demand := make(map[int]int)
	for _, t := range c.Tasks {
		if t.Active != -1 {
			d := s.bools[t.Active]
			if !d.fixed() || !d.value() {
				continue
			}
		}
		lo, hi := s.IntBounds(t.Start)
		// obligatory part: [hi, lo+duration)
		for time := hi; time < lo+t.Duration; time++ {
			demand[time] += t.Resource
		}
	}
	for _, dem := range demand {
		if dem > c.Capacity {
			return false
		}
	}

	for _, t := range c.Tasks {
		if t.Active != -1 {
			d := s.bools[t.Active]
			if !d.fixed() || !d.value() {
				continue
			}
		}
		lo, hi := s.IntBounds(t.Start)
		// Take this task's own obligatory part out of demand while its
		// placements are tested, so a task never conflicts with itself.
		for time := hi; time < lo+t.Duration; time++ {
			demand[time] -= t.Resource
		}
		for start := lo; start <= hi; start++ {
			if !s.ints[t.Start].has(start) {
				continue
			}
			if overloads(demand, c.Capacity, start, t) {
				nd := s.ints[t.Start].exclude(start)
				if !s.setIntDomain(t.Start, nd) {
					return false
				}
			}
		}
		for time := hi; time < lo+t.Duration; time++ {
			demand[time] += t.Resource
		}
	}
	return true
}

// overloads reports whether placing t at the given start would push any
// instant's total demand (the obligatory demand of the other tasks, plus
// this placement) over capacity. The caller removes t's own obligatory
// part from demand before calling.
func overloads(demand map[int]int, capacity int, start int, t CumulativeTask) bool {
	for time := start; time < start+t.Duration; time++ {
		if demand[time]+t.Resource > capacity {
			return true
		}
	}
	return false
}

// Clause posts a logical-OR over literals: at least one must hold.
// Bound-consistency fires only once every literal but one is refuted, at
// which point the last is forced true, mirroring the unit-propagation rule
// used for implication and set-partition encodings.
type Clause struct {
	Lits []Lit
}

func (c *Clause) Propagate(s *Solver) bool {
	unresolved := -1
	anyTrue := false
	for i, l := range c.Lits {
		if s.litHolds(l) {
			anyTrue = true
			break
		}
		if s.litRefuted(l) {
			continue
		}
		if unresolved != -1 {
			return true // more than one undetermined literal, nothing to force yet
		}
		unresolved = i
	}
	if anyTrue {
		return true
	}
	if unresolved == -1 {
		return false // every literal refuted: clause violated
	}
	return s.ApplyDuringPropagate(c.Lits[unresolved])
}

// litHolds/litRefuted test a literal against the current domains without
// mutating them.
func (s *Solver) litHolds(l Lit) bool {
	switch l.Kind {
	case KindBool:
		d := s.bools[l.BoolVar]
		return d.fixed() && d.value() == l.Positive
	case KindInt:
		d := s.ints[l.IntVar]
		if l.Dir == AtLeast {
			return d.lo >= l.Value
		}
		return d.hi <= l.Value
	default:
		panic("cp: literal of unknown kind")
	}
}

func (s *Solver) litRefuted(l Lit) bool {
	return s.litHolds(l.Negate())
}
