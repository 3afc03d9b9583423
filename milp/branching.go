package milp

import "math"

// BranchHeuristic selects which fractional integer-constrained variable is
// branched on at a node.
type BranchHeuristic int

const (
	// BranchMaxFun picks the fractional integer-constrained variable with
	// the largest absolute objective coefficient.
	BranchMaxFun BranchHeuristic = iota
	// BranchMostInfeasible picks the variable whose fractional part is
	// closest to one half.
	BranchMostInfeasible
	// BranchNaive cycles through the fractional integer-constrained
	// variables in column order, continuing from the last one branched on.
	BranchNaive
)

// branchPoint selects the column to branch on according to s's inherited
// heuristic. Only integer columns whose LP value is not already integral
// are candidates: branching on an integral value would leave one child's
// relaxation identical to its parent's.
func (s solution) branchPoint() int {
	fractional := make([]bool, len(s.problem.integer))
	for i, isInt := range s.problem.integer {
		fractional[i] = isInt && s.x[i] != math.Floor(s.x[i])
	}
	switch s.problem.branchHeur {
	case BranchMaxFun:
		return maxFunBranchPoint(s.problem.c, fractional)
	case BranchMostInfeasible:
		return mostInfeasibleBranchPoint(s.x, fractional)
	case BranchNaive:
		return s.naiveBranchPoint(fractional)
	default:
		panic("milp: unknown branching heuristic")
	}
}

// naiveBranchPoint cycles through the fractional integer-constrained
// columns, starting just after the column branched on by the most recent
// ancestor.
func (s solution) naiveBranchPoint(fractional []bool) int {
	branchOn := 0

	if s.problem.lastBranched < 0 {
		for i := range fractional {
			if fractional[i] {
				branchOn = i
			}
		}
		return branchOn
	}

	cursor := s.problem.lastBranched
	for {
		if cursor == len(s.problem.c)-1 {
			cursor = -1
		}
		cursor++
		if fractional[cursor] {
			branchOn = cursor
			break
		}
	}

	return branchOn
}

// maxFunBranchPoint picks the integer-constrained variable with the
// largest-magnitude objective coefficient, breaking ties toward the
// latest column.
func maxFunBranchPoint(c []float64, integer []bool) int {
	if len(c) != len(integer) {
		panic("milp: objective vector and integrality vector have different lengths")
	}

	var candidateValue float64
	currentCandidate := 0
	for i, v := range c {
		if integer[i] && math.Abs(v) >= candidateValue {
			currentCandidate = i
			candidateValue = math.Abs(v)
		}
	}
	return currentCandidate
}

// mostInfeasibleBranchPoint picks the integer-constrained variable whose LP
// value has a fractional part closest to one half.
func mostInfeasibleBranchPoint(x []float64, integer []bool) int {
	if len(x) != len(integer) {
		panic("milp: solution vector and integrality vector have different lengths")
	}

	candidateRemainder := 1.0
	currentCandidate := 0
	found := false
	for i, v := range x {
		if !integer[i] {
			continue
		}
		_, f := math.Modf(v)
		remainder := math.Abs(0.5 - math.Abs(f))
		if !found || remainder <= candidateRemainder {
			currentCandidate = i
			candidateRemainder = remainder
			found = true
		}
	}
	return currentCandidate
}

// branch splits s into two child nodes on the column chosen by the node's
// branching heuristic: one constraining the column to its floor and below,
// the other to its ceiling and above. Unlike the teacher, which encoded
// each branching decision as an extra inequality row, a branch here only
// ever tightens the chosen column's own lb/ub entry: cheaper to apply and
// cheaper for the LP to re-solve, since the tableau's row count never
// grows with tree depth.
func (s solution) branch() (p1, p2 subProblem) {
	branchOn := s.branchPoint()
	currentCoeff := s.x[branchOn]
	floor := math.Floor(currentCoeff)

	p1 = s.problem.getChild(branchOn, Upper, floor)
	p2 = s.problem.getChild(branchOn, Lower, floor+1)

	p1.id = nextNodeID()
	p2.id = nextNodeID()

	return
}

// getChild returns a copy of p with column branchOn's bound tightened: dir
// Upper lowers its ub to bound, dir Lower raises its lb to bound.
func (p subProblem) getChild(branchOn int, dir Direction, bound float64) subProblem {
	child := p.copy()
	child.lastBranched = branchOn

	switch dir {
	case Upper:
		if bound < child.ub[branchOn] {
			child.ub[branchOn] = bound
		}
	case Lower:
		if bound > child.lb[branchOn] {
			child.lb[branchOn] = bound
		}
	}

	return child
}
