// Package nutmeg is the hybrid MIP/CP engine: a variable registry and
// constraint library that keep paired MIP and CP representations in sync
// (C1/C2), a CP adapter wrapper (C3, package cp), a hybrid constraint
// handler plugged into the MIP engine's branch-and-bound (C4, package
// milp), a nogood builder (C5), and a search controller offering four
// solve methods (C6). Grounded in structure on jjhbw-GoMILP's fluent
// Problem/Variable/Constraint builder (api.go) and in exact semantics on
// original_source/Nutmeg's Model-*.cpp files.
package nutmeg

import (
	"github.com/ed-lam/nutmeg/cp"
	"github.com/ed-lam/nutmeg/internal/assert"
)

// B is an opaque handle to a registered Boolean variable.
type B int

// I is an opaque handle to a registered integer variable.
type I int

// boolEntry is one Variable Registry row for a Boolean variable: its MIP
// column, CP literal index, optional negation back-pointer, and name.
type boolEntry struct {
	mipCol  int // always created; Booleans always have a MIP column
	cpVar   int
	negBack int // back-index to the positive twin, or -1 if this entry is itself a positive variable
	name    string
}

// intEntry is one Variable Registry row for an integer variable.
type intEntry struct {
	cpVar   int
	mipCol  int // -1 until promoted
	lb, ub  int
	name    string
	indVars []B // cached indicator set, nil until first requested
}

// Registry is the Variable Registry (C1): identity, bounds and names for
// Boolean/integer variables, with paired MIP/CP handles, indicator-set
// caching, and negated-Boolean aliasing.
type Registry struct {
	bools []boolEntry
	ints  []intEntry

	constants map[int]I // value -> canonical integer-variable handle

	cp *cp.Solver

	// mipCols mirrors every MIP column created so far (Booleans and
	// promoted integers alike), in column order; mipBuilder consumes this
	// to assemble the final milp.Problem.
	mipCols []mipColumn

	// falseVar, trueVar, zeroVar cache the three reserved constants.
	falseVar B
	trueVar  B
	zeroVar  I

	infeasible bool
}

type mipColumn struct {
	lb, ub  float64
	integer bool
	name    string
}

// NewRegistry returns an empty registry with its reserved constants
// already created: B(0)=false, B(1)=true, I(0)=0.
func NewRegistry() *Registry {
	r := &Registry{
		constants: make(map[int]I),
		cp:        cp.NewSolver(),
	}
	r.falseVar = r.addBoolVar("false")
	r.trueVar = r.addBoolVar("true")
	r.mipCols[r.boolEntry(r.falseVar).mipCol].ub = 0
	r.mipCols[r.boolEntry(r.trueVar).mipCol].lb = 1
	assert.Require(r.cp.Post(cp.BoolLit(r.boolEntry(r.falseVar).cpVar, false)), "reserved false constant is infeasible")
	assert.Require(r.cp.Post(cp.BoolLit(r.boolEntry(r.trueVar).cpVar, true)), "reserved true constant is infeasible")
	r.zeroVar = r.newIntNoDedup(0, 0, true, "zero")
	r.constants[0] = r.zeroVar
	return r
}

// False, True, Zero return the reserved constants.
func (r *Registry) False() B { return r.falseVar }
func (r *Registry) True() B  { return r.trueVar }
func (r *Registry) Zero() I  { return r.zeroVar }

// IsInfeasible reports whether a constraint addition has already proven
// the model infeasible.
func (r *Registry) IsInfeasible() bool { return r.infeasible }

// MarkInfeasible transitions the model to terminal Infeasible status.
func (r *Registry) MarkInfeasible() { r.infeasible = true }

func (r *Registry) boolEntry(b B) *boolEntry { return &r.bools[b] }
func (r *Registry) intEntryAt(i I) *intEntry { return &r.ints[i] }

// NewBoolVar appends a fresh Boolean variable with both a MIP binary
// column and a CP Boolean literal.
func (r *Registry) NewBoolVar(name string) B {
	return r.addBoolVar(name)
}

func (r *Registry) addBoolVar(name string) B {
	mipCol := r.addMIPColumn(0, 1, true, name)
	cpVar := r.cp.NewBoolVar()
	r.bools = append(r.bools, boolEntry{mipCol: mipCol, cpVar: cpVar, negBack: -1, name: name})
	return B(len(r.bools) - 1)
}

func (r *Registry) addMIPColumn(lb, ub float64, integer bool, name string) int {
	r.mipCols = append(r.mipCols, mipColumn{lb: lb, ub: ub, integer: integer, name: name})
	return len(r.mipCols) - 1
}

// NewIntVar creates a CP integer variable with domain [lb,ub]; when
// includeInMIP is set, also creates the MIP column. If lb==ub, returns the
// existing canonical constant when one is already registered at that
// value (constant de-duplication).
func (r *Registry) NewIntVar(lb, ub int, includeInMIP bool, name string) I {
	assert.Require(lb <= ub, "NewIntVar: lb (%d) > ub (%d)", lb, ub)

	if lb == ub {
		if existing, ok := r.constants[lb]; ok {
			return existing
		}
	}

	id := r.newIntNoDedup(lb, ub, includeInMIP, name)

	if lb == ub {
		r.constants[lb] = id
	}
	return id
}

func (r *Registry) newIntNoDedup(lb, ub int, includeInMIP bool, name string) I {
	cpVar := r.cp.NewIntVar(lb, ub)
	mipCol := -1
	if includeInMIP {
		mipCol = r.addMIPColumn(float64(lb), float64(ub), true, name)
	}
	r.ints = append(r.ints, intEntry{cpVar: cpVar, mipCol: mipCol, lb: lb, ub: ub, name: name})
	return I(len(r.ints) - 1)
}

// PromoteToMIP creates I's MIP column if absent; idempotent. If an
// indicator set already exists for I, also emits the linking equality
// ∑ k·I_x[k] = x over the new column, via the supplied builder.
func (r *Registry) PromoteToMIP(i I, b *mipBuilder) I {
	e := r.intEntryAt(i)
	if e.mipCol != -1 {
		return i
	}
	e.mipCol = r.addMIPColumn(float64(e.lb), float64(e.ub), true, e.name)

	if e.indVars != nil {
		row := make(map[int]float64, len(e.indVars)+1)
		for k, bv := range e.indVars {
			row[r.boolEntry(bv).mipCol] = float64(e.lb + k)
		}
		row[e.mipCol] = -1
		assert.Invariant(len(row) == len(e.indVars)+1, "PromoteToMIP: linking row for %s has %d terms, want %d", e.name, len(row), len(e.indVars)+1)
		b.addEq(row, 0)
	}
	return i
}

// IndicatorVars returns I's cached indicator set, building it on first
// request. subdomain, if non-nil, restricts which values get a "live"
// indicator; values in [lb,ub] outside it are permanently fixed false in
// both solvers.
func (r *Registry) IndicatorVars(i I, subdomain map[int]bool, b *mipBuilder) []B {
	e := r.intEntryAt(i)
	if e.indVars != nil {
		assert.Invariant(len(e.indVars) == e.ub-e.lb+1, "IndicatorVars: cached set length (%d) does not match %s's domain size (%d)", len(e.indVars), e.name, e.ub-e.lb+1)
		return e.indVars
	}

	n := e.ub - e.lb + 1
	indicators := make([]B, n)
	for k := 0; k < n; k++ {
		indicators[k] = r.NewBoolVar("")
	}
	e.indVars = indicators

	// exactly-one, MIP side.
	row := make(map[int]float64, n)
	for _, bv := range indicators {
		row[r.boolEntry(bv).mipCol] = 1
	}
	assert.Invariant(len(row) == n, "IndicatorVars: exactly-one row for %s has %d terms, want %d", e.name, len(row), n)
	b.addEq(row, 1)

	// linking equality, MIP side, if I already has a column.
	if e.mipCol != -1 {
		linkRow := make(map[int]float64, n+1)
		for k, bv := range indicators {
			linkRow[r.boolEntry(bv).mipCol] = float64(e.lb + k)
		}
		linkRow[e.mipCol] = -1
		assert.Invariant(len(linkRow) == n+1, "IndicatorVars: linking row for %s has %d terms, want %d", e.name, len(linkRow), n+1)
		b.addEq(linkRow, 0)
	}

	// CP side: ties and exactly-one via a dedicated propagator, plus
	// permanent exclusion of out-of-subdomain values.
	cpIndicators := make([]int, n)
	for k, bv := range indicators {
		cpIndicators[k] = r.boolEntry(bv).cpVar
	}
	r.cp.PostPropagator(&indicatorSetProp{intVar: e.cpVar, lb: e.lb, indicators: cpIndicators})

	if subdomain != nil {
		for k := 0; k < n; k++ {
			if !subdomain[e.lb+k] {
				r.mipCols[r.boolEntry(indicators[k]).mipCol].ub = 0
				ok := r.cp.Post(cp.BoolLit(cpIndicators[k], false))
				assert.Require(ok, "indicator subdomain exclusion made the model infeasible during construction")
			}
		}
	}

	return indicators
}

// Negate returns b's alias, creating it lazily. The alias stores a
// back-index to its positive counterpart so neg(neg(b)) == b.
func (r *Registry) Negate(b B, builder *mipBuilder) B {
	e := r.boolEntry(b)
	if e.negBack >= 0 {
		// b is itself an alias; its back-pointer names the positive twin,
		// whose own alias is, by construction, b.
		return B(e.negBack)
	}
	for idx, other := range r.bools {
		if other.negBack == int(b) {
			return B(idx)
		}
	}

	aliasMip := r.addMIPColumn(0, 1, true, e.name+"_neg")
	aliasCP := r.cp.NewBoolVar()
	r.bools = append(r.bools, boolEntry{mipCol: aliasMip, cpVar: aliasCP, negBack: int(b), name: e.name + "_neg"})
	alias := B(len(r.bools) - 1)

	// tie alias == ¬b, both solvers: MIP linking row alias + b == 1; CP
	// pairwise clause (¬alias ∨ ¬b) plus (alias ∨ b).
	builder.addEq(map[int]float64{aliasMip: 1, e.mipCol: 1}, 1)

	ok1 := r.cp.PostPropagator(&Clause2{A: cp.BoolLit(aliasCP, false), B: cp.BoolLit(e.cpVar, false)})
	ok2 := r.cp.PostPropagator(&Clause2{A: cp.BoolLit(aliasCP, true), B: cp.BoolLit(e.cpVar, true)})
	assert.Require(ok1 && ok2, "negated-alias construction made the model infeasible")

	return alias
}

// IsPositive reports whether b is the positive half of its pair.
func (r *Registry) IsPositive(b B) bool {
	return r.boolEntry(b).negBack == -1
}

// Name returns a variable's diagnostic name.
func (r *Registry) BoolName(b B) string { return r.boolEntry(b).name }
func (r *Registry) IntName(i I) string  { return r.intEntryAt(i).name }

// IntBounds returns I's current (possibly CP-narrowed) bounds.
func (r *Registry) IntBounds(i I) (lb, ub int) {
	return r.cp.IntBounds(r.intEntryAt(i).cpVar)
}

// HasMIPColumn reports whether I has been promoted to the MIP side.
func (r *Registry) HasMIPColumn(i I) bool { return r.intEntryAt(i).mipCol != -1 }

// CP returns the underlying CP adapter, for the hybrid handler and search
// controller.
func (r *Registry) CP() *cp.Solver { return r.cp }
