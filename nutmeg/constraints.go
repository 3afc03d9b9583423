package nutmeg

import (
	"math"

	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/internal/assert"
)

// Sign is the relational operator of a linear or bound constraint.
type Sign int

const (
	LE Sign = iota
	EQ
	GE
)

func cloneRow(row map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func negateInts(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = -x
	}
	return out
}

// linearEnvelope returns the coefficient-weighted min/max of coeffs.vars
// over each variable's declared (not currently narrowed) bounds.
func linearEnvelope(r *Registry, vars []I, coeffs []int) (minSum, maxSum int) {
	for i, v := range vars {
		e := r.intEntryAt(v)
		c := coeffs[i]
		if c >= 0 {
			minSum += c * e.lb
			maxSum += c * e.ub
		} else {
			minSum += c * e.ub
			maxSum += c * e.lb
		}
	}
	return
}

// allHaveMIPColumns reports whether every listed integer variable has
// already been promoted to a MIP column; constraint construction only
// emits the MIP half of a dual encoding when this holds (a constraint over
// a CP-only variable is CP-only).
func allHaveMIPColumns(r *Registry, vars []I) bool {
	for _, v := range vars {
		if !r.HasMIPColumn(v) {
			return false
		}
	}
	return true
}

// NoTerm marks the optional c·y term on AddLinear/AddBoolLinear as absent,
// following the same sentinel convention as NoActive.
const NoTerm I = -1

// AddLinear posts sum(coeffs[i]*vars[i]) sign rhs [+ termCoeff*termVar]
// (pass NoTerm for termVar when the optional term is unused). The term is
// folded directly into the row as -termCoeff at termVar's column/CP
// variable, exactly like any other summand; no auxiliary variable is
// needed since termVar is already an integer CP/MIP variable. MIP: a
// direct linear row (skipped when any variable, including termVar, is
// CP-only). CP: one or two LinearLE propagators depending on sign.
func (r *Registry) AddLinear(vars []I, coeffs []int, sign Sign, rhs int, termCoeff int, termVar I, b *mipBuilder) bool {
	assert.Require(len(vars) == len(coeffs), "AddLinear: vars/coeffs length mismatch (%d vs %d)", len(vars), len(coeffs))
	if r.infeasible {
		return false
	}

	allVars, allCoeffs := vars, coeffs
	if termVar != NoTerm {
		allVars = append(append([]I(nil), vars...), termVar)
		allCoeffs = append(append([]int(nil), coeffs...), -termCoeff)
	}

	if allHaveMIPColumns(r, allVars) {
		row := make(map[int]float64, len(allVars))
		for i, v := range allVars {
			row[r.intEntryAt(v).mipCol] += float64(allCoeffs[i])
		}
		switch sign {
		case LE:
			b.addLE(row, float64(rhs))
		case GE:
			b.addGE(row, float64(rhs))
		case EQ:
			b.addEq(row, float64(rhs))
		}
	}

	cpVars := make([]int, len(allVars))
	for i, v := range allVars {
		cpVars[i] = r.intEntryAt(v).cpVar
	}

	var ok bool
	switch sign {
	case LE:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: allCoeffs, Vars: cpVars, RHS: rhs})
	case GE:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: negateInts(allCoeffs), Vars: cpVars, RHS: -rhs})
	case EQ:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: allCoeffs, Vars: cpVars, RHS: rhs})
		if ok {
			ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: negateInts(allCoeffs), Vars: cpVars, RHS: -rhs})
		}
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddBoolLinear posts sum(coeffs[i]*bs[i]) sign rhs [+ termCoeff*termVar]
// over Boolean variables (pass NoTerm for termVar when the optional term is
// unused). When every coefficient is 1, sign is EQ and rhs is 1, this is
// exactly a set-partition and AddSetPartition is preferred by the caller;
// this constructor makes no such upgrade decision itself.
//
// A unit-coefficient term (termCoeff==1) folds termVar directly into the
// same row as the Booleans. A non-unit coefficient instead synthesizes an
// auxiliary CP integer variable z=termCoeff*termVar (tied by two opposing
// LinearLE inequalities) and folds z into the row in termVar's place, so
// the CP side never has to scale a variable's bound by a non-unit factor
// mid-propagation.
func (r *Registry) AddBoolLinear(bs []B, coeffs []int, sign Sign, rhs int, termCoeff int, termVar I, b *mipBuilder) bool {
	assert.Require(len(bs) == len(coeffs), "AddBoolLinear: bs/coeffs length mismatch (%d vs %d)", len(bs), len(coeffs))
	if r.infeasible {
		return false
	}

	hasTerm := termVar != NoTerm
	termHasMIPCol := hasTerm && r.HasMIPColumn(termVar)

	if !hasTerm || termHasMIPCol {
		row := make(map[int]float64, len(bs)+1)
		for i, bv := range bs {
			row[r.boolEntry(bv).mipCol] += float64(coeffs[i])
		}
		if hasTerm {
			row[r.intEntryAt(termVar).mipCol] += -float64(termCoeff)
		}
		switch sign {
		case LE:
			b.addLE(row, float64(rhs))
		case GE:
			b.addGE(row, float64(rhs))
		case EQ:
			b.addEq(row, float64(rhs))
		}
	}

	cpVars := make([]int, len(bs))
	for i, bv := range bs {
		cpVars[i] = r.boolEntry(bv).cpVar
	}

	if !hasTerm {
		return r.postBoolLinear(cpVars, coeffs, sign, rhs)
	}

	termCP := r.intEntryAt(termVar).cpVar
	zVar := termCP
	if termCoeff != 1 {
		lb, ub := r.IntBounds(termVar)
		lo, hi := termCoeff*lb, termCoeff*ub
		if lo > hi {
			lo, hi = hi, lo
		}
		z := r.cp.NewIntVar(lo, hi)
		ok := r.cp.PostPropagator(&cp.LinearLE{Coeffs: []int{1, -termCoeff}, Vars: []int{z, termCP}, RHS: 0})
		ok = ok && r.cp.PostPropagator(&cp.LinearLE{Coeffs: []int{-1, termCoeff}, Vars: []int{z, termCP}, RHS: 0})
		if !ok {
			r.MarkInfeasible()
			return false
		}
		zVar = z
	}

	return r.postMixedBoolIntLinear(cpVars, coeffs, []int{zVar}, []int{-1}, sign, rhs)
}

// postBoolLinear posts a pure-Boolean sum(coeffs[i]*vars[i]) sign rhs via
// the native-Boolean BoolLinearLE propagator (unlike LinearLE, which only
// ever reads/writes the CP solver's integer domains).
func (r *Registry) postBoolLinear(cpVars, coeffs []int, sign Sign, rhs int) bool {
	var ok bool
	switch sign {
	case LE:
		ok = r.cp.PostPropagator(&cp.BoolLinearLE{Coeffs: coeffs, Vars: cpVars, RHS: rhs})
	case GE:
		ok = r.cp.PostPropagator(&cp.BoolLinearLE{Coeffs: negateInts(coeffs), Vars: cpVars, RHS: -rhs})
	case EQ:
		ok = r.cp.PostPropagator(&cp.BoolLinearLE{Coeffs: coeffs, Vars: cpVars, RHS: rhs})
		if ok {
			ok = r.cp.PostPropagator(&cp.BoolLinearLE{Coeffs: negateInts(coeffs), Vars: cpVars, RHS: -rhs})
		}
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// postMixedBoolIntLinear posts sum(boolCoeffs[i]*boolVars[i]) +
// sum(intCoeffs[j]*intVars[j]) sign rhs via MixedLinearLE, for a Boolean
// sum carrying a folded-in integer term (the c·y rhs extension).
func (r *Registry) postMixedBoolIntLinear(boolVars, boolCoeffs, intVars, intCoeffs []int, sign Sign, rhs int) bool {
	var ok bool
	switch sign {
	case LE:
		ok = r.cp.PostPropagator(&cp.MixedLinearLE{BoolCoeffs: boolCoeffs, BoolVars: boolVars, IntCoeffs: intCoeffs, IntVars: intVars, RHS: rhs})
	case GE:
		ok = r.cp.PostPropagator(&cp.MixedLinearLE{BoolCoeffs: negateInts(boolCoeffs), BoolVars: boolVars, IntCoeffs: negateInts(intCoeffs), IntVars: intVars, RHS: -rhs})
	case EQ:
		ok = r.cp.PostPropagator(&cp.MixedLinearLE{BoolCoeffs: boolCoeffs, BoolVars: boolVars, IntCoeffs: intCoeffs, IntVars: intVars, RHS: rhs})
		if ok {
			ok = r.cp.PostPropagator(&cp.MixedLinearLE{BoolCoeffs: negateInts(boolCoeffs), BoolVars: boolVars, IntCoeffs: negateInts(intCoeffs), IntVars: intVars, RHS: -rhs})
		}
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddLinearNE posts sum(coeffs[i]*vars[i]) != rhs. MIP: a fresh indicator z
// with two big-M reified rows (z=1 -> sum <= rhs-1; z=0 -> sum >= rhs+1),
// skipped when any variable is CP-only. CP: a direct LinearNE propagator.
func (r *Registry) AddLinearNE(vars []I, coeffs []int, rhs int, b *mipBuilder) bool {
	assert.Require(len(vars) == len(coeffs), "AddLinearNE: vars/coeffs length mismatch (%d vs %d)", len(vars), len(coeffs))
	if r.infeasible {
		return false
	}

	if allHaveMIPColumns(r, vars) {
		minSum, maxSum := linearEnvelope(r, vars, coeffs)
		bigM1 := maxSum - (rhs - 1)
		bigM2 := (rhs + 1) - minSum

		z := r.NewBoolVar("")
		zCol := r.boolEntry(z).mipCol

		row := make(map[int]float64, len(vars))
		for i, v := range vars {
			row[r.intEntryAt(v).mipCol] += float64(coeffs[i])
		}

		upper := cloneRow(row)
		upper[zCol] = float64(bigM1)
		b.addLE(upper, float64(rhs-1+bigM1))

		lower := make(map[int]float64, len(row)+1)
		for k, v := range row {
			lower[k] = -v
		}
		lower[zCol] = float64(bigM2)
		b.addLE(lower, float64(bigM2-rhs-1))
	}

	cpVars := make([]int, len(vars))
	for i, v := range vars {
		cpVars[i] = r.intEntryAt(v).cpVar
	}
	ok := r.cp.PostPropagator(&cp.LinearNE{Coeffs: coeffs, Vars: cpVars, RHS: rhs})
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddIndexedLinear posts sum_j sum_k coeffs[j][k]*[vars[j]=k] sign rhs: a
// linear constraint whose per-variable contribution depends on the
// variable's realized value, not on the variable itself. coeffs[j] must be
// aligned to vars[j]'s domain: coeffs[j][k] is the weight contributed when
// vars[j] == vars[j].lb+k, so len(coeffs[j]) must equal vars[j]'s domain
// size. Distinct from AddElement's x_val=array[x_idx] shape: this sums a
// value-dependent weight across several variables rather than looking up a
// single array entry.
//
// MIP (only when every variable has a MIP column): one row per vars[j]
// over its indicator set, summed into a single constraint. CP: one
// IntElement per variable, extracting vars[j]'s value-dependent
// coefficient into a synthesized CP integer variable (reusing AddElement's
// 1-based-array convention, offset so index 1 aligns with vars[j].lb), fed
// into a single LinearLE (twice for EQ) over the synthesized variables.
func (r *Registry) AddIndexedLinear(vars []I, coeffs [][]int, sign Sign, rhs int, b *mipBuilder) bool {
	assert.Require(len(vars) == len(coeffs), "AddIndexedLinear: vars/coeffs length mismatch (%d vs %d)", len(vars), len(coeffs))
	if r.infeasible {
		return false
	}
	for j, v := range vars {
		e := r.intEntryAt(v)
		assert.Require(len(coeffs[j]) == e.ub-e.lb+1, "AddIndexedLinear: coeffs[%d] length (%d) does not match %s's domain size (%d)", j, len(coeffs[j]), e.name, e.ub-e.lb+1)
	}

	if allHaveMIPColumns(r, vars) {
		row := make(map[int]float64)
		for j, v := range vars {
			indicators := r.IndicatorVars(v, nil, b)
			for k, bv := range indicators {
				if coeffs[j][k] == 0 {
					continue
				}
				row[r.boolEntry(bv).mipCol] += float64(coeffs[j][k])
			}
		}
		switch sign {
		case LE:
			b.addLE(row, float64(rhs))
		case GE:
			b.addGE(row, float64(rhs))
		case EQ:
			b.addEq(row, float64(rhs))
		}
	}

	zVars := make([]int, len(vars))
	allOK := true
	for j, v := range vars {
		e := r.intEntryAt(v)
		minC, maxC := coeffs[j][0], coeffs[j][0]
		for _, c := range coeffs[j] {
			if c < minC {
				minC = c
			}
			if c > maxC {
				maxC = c
			}
		}
		z := r.cp.NewIntVar(minC, maxC)
		zVars[j] = z

		// IntElement's Idx is a 1-based index into Array; vars[j]'s domain
		// starts at e.lb, so an auxiliary CP variable idx = vars[j]-e.lb+1,
		// tied by two opposing LinearLE rows, makes index k+1 line up with
		// value e.lb+k.
		idx := r.cp.NewIntVar(1, e.ub-e.lb+1)
		allOK = allOK && r.cp.PostPropagator(&cp.LinearLE{Coeffs: []int{1, -1}, Vars: []int{idx, e.cpVar}, RHS: 1 - e.lb})
		allOK = allOK && r.cp.PostPropagator(&cp.LinearLE{Coeffs: []int{-1, 1}, Vars: []int{idx, e.cpVar}, RHS: e.lb - 1})
		allOK = allOK && r.cp.PostPropagator(&cp.IntElement{Idx: idx, Array: coeffs[j], Val: z})
	}
	if !allOK {
		r.MarkInfeasible()
		return false
	}

	ones := onesLike(zVars)
	var ok bool
	switch sign {
	case LE:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: ones, Vars: zVars, RHS: rhs})
	case GE:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: negateInts(ones), Vars: zVars, RHS: -rhs})
	case EQ:
		ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: ones, Vars: zVars, RHS: rhs})
		if ok {
			ok = r.cp.PostPropagator(&cp.LinearLE{Coeffs: negateInts(ones), Vars: zVars, RHS: -rhs})
		}
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

func onesLike(xs []int) []int {
	out := make([]int, len(xs))
	for i := range out {
		out[i] = 1
	}
	return out
}

// AddElement posts val = array[idx] with idx interpreted as a 1-based
// index into array. MIP (only when idx and val both have MIP columns): a
// single linking equality over idx's indicator set, val = sum_k
// array[k-1]*[idx=k], exact because exactly one indicator holds; values of
// idx outside [1,len(array)] are fixed false in the indicator set (idx's
// own MIP column bounds are left unchanged, a documented looseness). CP: a
// bound-consistency IntElement propagator.
func (r *Registry) AddElement(idx I, array []int, val I, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	if r.HasMIPColumn(idx) && r.HasMIPColumn(val) {
		e := r.intEntryAt(idx)
		subdomain := make(map[int]bool, len(array))
		for k := 1; k <= len(array); k++ {
			subdomain[k] = true
		}
		indicators := r.IndicatorVars(idx, subdomain, b)

		row := make(map[int]float64, len(array)+1)
		for k := 1; k <= len(array); k++ {
			if k < e.lb || k > e.ub {
				continue
			}
			bv := indicators[k-e.lb]
			row[r.boolEntry(bv).mipCol] += float64(array[k-1])
		}
		row[r.intEntryAt(val).mipCol] = -1
		b.addEq(row, 0)
	}

	ok := r.cp.PostPropagator(&cp.IntElement{
		Idx:   r.intEntryAt(idx).cpVar,
		Array: array,
		Val:   r.intEntryAt(val).cpVar,
	})
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddAllDifferent posts all_different(vars). MIP relaxation (only among
// variables with MIP columns): a set-packing row per value in the
// coefficient envelope, over each variable's indicator set. CP: forward
// checking.
func (r *Registry) AddAllDifferent(vars []I, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	mipVars := make([]I, 0, len(vars))
	for _, v := range vars {
		if r.HasMIPColumn(v) {
			mipVars = append(mipVars, v)
		}
	}
	if len(mipVars) > 1 {
		minLB, maxUB := math.MaxInt, math.MinInt
		entries := make([]*intEntry, len(mipVars))
		for i, v := range mipVars {
			e := r.intEntryAt(v)
			entries[i] = e
			if e.lb < minLB {
				minLB = e.lb
			}
			if e.ub > maxUB {
				maxUB = e.ub
			}
		}
		indicatorSets := make([][]B, len(mipVars))
		for i, v := range mipVars {
			indicatorSets[i] = r.IndicatorVars(v, nil, b)
		}
		for k := minLB; k <= maxUB; k++ {
			row := make(map[int]float64)
			for i, e := range entries {
				if k < e.lb || k > e.ub {
					continue
				}
				row[r.boolEntry(indicatorSets[i][k-e.lb]).mipCol] = 1
			}
			if len(row) > 1 {
				b.addLE(row, 1)
			}
		}
	}

	cpVars := make([]int, len(vars))
	for i, v := range vars {
		cpVars[i] = r.intEntryAt(v).cpVar
	}
	ok := r.cp.PostPropagator(&cp.AllDifferent{Vars: cpVars})
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// andBool returns a fresh Boolean tied to a AND c in both solvers (a
// reified conjunction), used to linearize an optional task's per-instant
// occupancy in AddCumulative.
func (r *Registry) andBool(a, c B, b *mipBuilder) B {
	p := r.NewBoolVar("")
	pCol, aCol, cCol := r.boolEntry(p).mipCol, r.boolEntry(a).mipCol, r.boolEntry(c).mipCol
	b.addLE(map[int]float64{pCol: 1, aCol: -1}, 0)
	b.addLE(map[int]float64{pCol: 1, cCol: -1}, 0)
	b.addGE(map[int]float64{pCol: 1, aCol: -1, cCol: -1}, -1)

	aLit := cp.BoolLit(r.boolEntry(a).cpVar, true)
	cLit := cp.BoolLit(r.boolEntry(c).cpVar, true)
	pLit := cp.BoolLit(r.boolEntry(p).cpVar, true)
	ok := r.cp.PostPropagator(&Clause2{A: pLit.Negate(), B: aLit})
	ok = ok && r.cp.PostPropagator(&Clause2{A: pLit.Negate(), B: cLit})
	ok = ok && r.cp.PostPropagator(&cp.Clause{Lits: []cp.Lit{aLit.Negate(), cLit.Negate(), pLit}})
	if !ok {
		r.MarkInfeasible()
	}
	return p
}

// CumulativeJob is one task supplied to AddCumulative: a start-time
// integer variable, a fixed duration and resource demand, and an optional
// "active" Boolean (use NoActive when the task is mandatory).
type CumulativeJob struct {
	Start    I
	Duration int
	Resource int
	Active   B
}

// NoActive marks a CumulativeJob as mandatory (always occupies its
// resource), rather than gated by an active Boolean.
const NoActive B = -1

// AddCumulative posts a scheduling constraint bounding simultaneous
// resource use across jobs to capacity. MIP (time-indexed, only among jobs
// whose start variable has a MIP column): for each instant in the
// earliest/latest start envelope, a knapsack row over per-job occupancy
// indicators (linearized against the active Boolean for optional jobs),
// plus a capacity-makespan relaxation. CP: time-table filtering.
func (r *Registry) AddCumulative(jobs []CumulativeJob, capacity int, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	mipJobs := make([]CumulativeJob, 0, len(jobs))
	for _, j := range jobs {
		if r.HasMIPColumn(j.Start) {
			mipJobs = append(mipJobs, j)
		}
	}
	if len(mipJobs) > 0 {
		earliest, latest := math.MaxInt, math.MinInt
		for _, j := range mipJobs {
			e := r.intEntryAt(j.Start)
			if e.lb < earliest {
				earliest = e.lb
			}
			if e.ub+j.Duration-1 > latest {
				latest = e.ub + j.Duration - 1
			}
		}

		indicatorSets := make(map[I][]B, len(mipJobs))
		for _, j := range mipJobs {
			if _, ok := indicatorSets[j.Start]; !ok {
				indicatorSets[j.Start] = r.IndicatorVars(j.Start, nil, b)
			}
		}

		for t := earliest; t <= latest; t++ {
			row := make(map[int]float64)
			for _, j := range mipJobs {
				e := r.intEntryAt(j.Start)
				inds := indicatorSets[j.Start]
				for start := t - j.Duration + 1; start <= t; start++ {
					if start < e.lb || start > e.ub {
						continue
					}
					occ := inds[start-e.lb]
					if j.Active == NoActive {
						row[r.boolEntry(occ).mipCol] += float64(j.Resource)
						continue
					}
					gated := r.andBool(j.Active, occ, b)
					row[r.boolEntry(gated).mipCol] += float64(j.Resource)
				}
			}
			if len(row) > 0 {
				b.addLE(row, float64(capacity))
			}
		}

		makespan := latest + 1
		relax := make(map[int]float64, len(mipJobs))
		for _, j := range mipJobs {
			if j.Active == NoActive {
				continue
			}
			relax[r.boolEntry(j.Active).mipCol] += float64(j.Resource * j.Duration)
		}
		if len(relax) > 0 {
			b.addLE(relax, float64(capacity*makespan))
		}
	}

	tasks := make([]cp.CumulativeTask, len(jobs))
	for i, j := range jobs {
		active := -1
		if j.Active != NoActive {
			active = r.boolEntry(j.Active).cpVar
		}
		tasks[i] = cp.CumulativeTask{
			Start:    r.intEntryAt(j.Start).cpVar,
			Duration: j.Duration,
			Resource: j.Resource,
			Active:   active,
		}
	}
	ok := r.cp.PostPropagator(&cp.Cumulative{Tasks: tasks, Capacity: capacity})
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddReifiedSubtraction posts r -> (x - y <= k). MIP (only when x and y
// both have MIP columns): a single big-M row. CP: a reified LinearLE that
// only propagates once r is fixed true.
func (r *Registry) AddReifiedSubtraction(rVar B, x, y I, k int, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	if r.HasMIPColumn(x) && r.HasMIPColumn(y) {
		ex, ey := r.intEntryAt(x), r.intEntryAt(y)
		bigM := (ex.ub - ey.lb) - k
		if bigM < 0 {
			bigM = 0
		}
		row := map[int]float64{ex.mipCol: 1, ey.mipCol: -1, r.boolEntry(rVar).mipCol: float64(bigM)}
		b.addLE(row, float64(k+bigM))
	}

	ok := r.cp.PostPropagator(&reifiedLinearLE{
		Control:  r.boolEntry(rVar).cpVar,
		Positive: true,
		Inner:    cp.LinearLE{Coeffs: []int{1, -1}, Vars: []int{r.intEntryAt(x).cpVar, r.intEntryAt(y).cpVar}, RHS: k},
	})
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddImplication posts (rVar = v) -> (x sign k). MIP (only when x has a
// MIP column): indicator-conditional set-packing rows over x's indicator
// set, one per value violating the consequent. CP: the unit clause
// not(r=v) or (x sign k).
func (r *Registry) AddImplication(rVar B, v bool, x I, sign Sign, k int, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	controlCol := r.boolEntry(rVar).mipCol
	if !v {
		alias := r.Negate(rVar, b)
		controlCol = r.boolEntry(alias).mipCol
	}

	if r.HasMIPColumn(x) {
		e := r.intEntryAt(x)
		indicators := r.IndicatorVars(x, nil, b)
		for offset, bv := range indicators {
			val := e.lb + offset
			violates := false
			switch sign {
			case LE:
				violates = val > k
			case GE:
				violates = val < k
			case EQ:
				violates = val != k
			}
			if violates {
				b.addLE(map[int]float64{controlCol: 1, r.boolEntry(bv).mipCol: 1}, 1)
			}
		}
	}

	rLit := cp.BoolLit(r.boolEntry(rVar).cpVar, v)
	cpX := r.intEntryAt(x).cpVar

	var ok bool
	switch sign {
	case LE:
		ok = r.cp.PostPropagator(&Clause2{A: rLit.Negate(), B: cp.IntAtMost(cpX, k)})
	case GE:
		ok = r.cp.PostPropagator(&Clause2{A: rLit.Negate(), B: cp.IntAtLeast(cpX, k)})
	case EQ:
		ok = r.cp.PostPropagator(&Clause2{A: rLit.Negate(), B: cp.IntAtMost(cpX, k)})
		ok = ok && r.cp.PostPropagator(&Clause2{A: rLit.Negate(), B: cp.IntAtLeast(cpX, k)})
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddSetPartition posts sum(bs) = 1. MIP: a single equality row. CP: a
// positive clause plus pairwise negative clauses.
func (r *Registry) AddSetPartition(bs []B, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	row := make(map[int]float64, len(bs))
	for _, bv := range bs {
		row[r.boolEntry(bv).mipCol] = 1
	}
	b.addEq(row, 1)

	lits := make([]cp.Lit, len(bs))
	for i, bv := range bs {
		lits[i] = cp.BoolLit(r.boolEntry(bv).cpVar, true)
	}
	ok := r.cp.PostPropagator(&cp.Clause{Lits: lits})
	for i := 0; i < len(bs) && ok; i++ {
		for j := i + 1; j < len(bs) && ok; j++ {
			ok = r.cp.PostPropagator(&Clause2{A: lits[i].Negate(), B: lits[j].Negate()})
		}
	}
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}

// AddFix posts bv = value, permanently tightening both the MIP column's
// bounds and the CP literal.
func (r *Registry) AddFix(bv B, value bool, b *mipBuilder) bool {
	if r.infeasible {
		return false
	}

	e := r.boolEntry(bv)
	v := 0.0
	if value {
		v = 1.0
	}
	col := &r.mipCols[e.mipCol]
	if v < col.lb || v > col.ub {
		r.MarkInfeasible()
		return false
	}
	col.lb, col.ub = v, v

	ok := r.cp.Post(cp.BoolLit(e.cpVar, value))
	if !ok {
		r.MarkInfeasible()
	}
	return ok
}
