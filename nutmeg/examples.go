package nutmeg

// Example models (the S1-S6 scenarios), exercised by cmd/nutmeg's solve
// subcommand and by the package's own integration tests.

// ExampleTrivialFix is S1: a single fixed Boolean, objective is the
// constant zero. Expected: Optimal, obj=0, b=true.
func ExampleTrivialFix(method Method) (*Model, I) {
	m := NewModel(method)
	b := m.AddBoolVar("b")
	m.AddFix(b, true)
	zero := m.GetZero()
	return m, zero
}

// ExampleImmediateInfeasibility is S2: x in [0,3], x != 0 and x == 0
// posted together, contradicting each other at build time.
func ExampleImmediateInfeasibility(method Method) (*Model, I) {
	m := NewModel(method)
	x := m.AddMIPVar(0, 3, "x")
	m.AddLinearNE([]I{x}, []int{1}, 0)
	m.AddLinear([]I{x}, []int{1}, EQ, 0)
	return m, x
}

// ExampleAssignmentScheduling is S3: 2 jobs, 2 machines, costs
// [[3,5],[2,6]], each job takes 1 time unit on a capacity-1 machine;
// minimises total cost.
func ExampleAssignmentScheduling(method Method) (*Model, I) {
	m := NewModel(method)
	costs := [2][2]int{{3, 5}, {2, 6}}

	assign := make([][]B, 2)
	starts := make([]I, 2)
	for j := 0; j < 2; j++ {
		assign[j] = []B{m.AddBoolVar(""), m.AddBoolVar("")}
		m.AddSetPartition(assign[j])
		starts[j] = m.AddMIPVar(0, 1, "")
	}

	for mach := 0; mach < 2; mach++ {
		jobs := make([]CumulativeJob, 0, 2)
		for j := 0; j < 2; j++ {
			jobs = append(jobs, CumulativeJob{Start: starts[j], Duration: 1, Resource: 1, Active: assign[j][mach]})
		}
		m.AddCumulative(jobs, 1)
	}

	total := m.AddMIPVar(0, 100, "cost")
	row := make([]B, 0, 4)
	coeffs := make([]int, 0, 4)
	for j := 0; j < 2; j++ {
		for mach := 0; mach < 2; mach++ {
			row = append(row, assign[j][mach])
			coeffs = append(coeffs, costs[j][mach])
		}
	}
	m.AddBoolLinearEqObj(row, coeffs, total)

	return m, total
}

// AddBoolLinearEqObj posts total == sum(coeffs[k]*bs[k]) as a single MIP
// row mixing Boolean and integer columns directly, the same way
// AddReifiedSubtraction and AddCumulative already mix a control Boolean's
// column with integer columns in one row. No CP-side counterpart is
// needed: total's value is fully determined by the already-consistent LP
// solution, so CheckIntegerSolution's assumed candidate values satisfy
// this row automatically without CP having to re-derive it.
func (m *Model) AddBoolLinearEqObj(bs []B, coeffs []int, total I) *Model {
	m.reg.PromoteToMIP(total, m.b)
	row := make(map[int]float64, len(bs)+1)
	for k, bv := range bs {
		row[m.reg.boolEntry(bv).mipCol] += float64(coeffs[k])
	}
	row[m.reg.intEntryAt(total).mipCol] = -1
	m.b.addEq(row, 0)
	return m
}

// ExampleAllDifferentForcesValue is S4: x,y,z in [1,3], alldifferent,
// x=1, y=2; propagation alone should force z=3.
func ExampleAllDifferentForcesValue(method Method) (*Model, I) {
	m := NewModel(method)
	x := m.AddMIPVar(1, 3, "x")
	y := m.AddMIPVar(1, 3, "y")
	z := m.AddMIPVar(1, 3, "z")
	m.AddAllDifferent([]I{x, y, z})
	m.AddLinear([]I{x}, []int{1}, EQ, 1)
	m.AddLinear([]I{y}, []int{1}, EQ, 2)
	return m, z
}

// ExampleCumulativeInfeasibility is S5: two duration-2 tasks pinned to
// start at 0 on a capacity-1 resource; infeasible. CP propagation already
// empties s1's domain while the second equality is posted, so the model is
// marked infeasible during construction and Minimize returns before any
// search: no nogood is produced in any mode.
func ExampleCumulativeInfeasibility(method Method) (*Model, I) {
	m := NewModel(method)
	s0 := m.AddMIPVar(0, 2, "s0")
	s1 := m.AddMIPVar(0, 2, "s1")
	m.AddCumulative([]CumulativeJob{
		{Start: s0, Duration: 2, Resource: 1, Active: NoActive},
		{Start: s1, Duration: 2, Resource: 1, Active: NoActive},
	}, 1)
	m.AddLinear([]I{s0}, []int{1}, EQ, 0)
	m.AddLinear([]I{s1}, []int{1}, EQ, 0)
	return m, s0
}

// ExampleLBBDConvergence is S6: y = a[x], a = [10,20,30], x in [1,3],
// minimise y; the MIP relaxation is tight enough that LBBD converges in
// one outer iteration.
func ExampleLBBDConvergence(method Method) (*Model, I) {
	m := NewModel(method)
	x := m.AddMIPVar(1, 3, "x")
	y := m.AddMIPVar(0, 30, "y")
	m.AddElement(x, []int{10, 20, 30}, y)
	return m, y
}
