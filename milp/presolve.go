package milp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TODO: see Andersen 1995 for a nice enumeration of simple presolving operations.

// preProcessor fixes columns whose lower and upper bound coincide, removing
// them from the problem handed to the simplex/branch-and-bound core and
// restoring their fixed value into the final solution afterwards.
type preProcessor struct {
	fixedValue map[int]float64
	colMap     []int // colMap[newIndex] = originalIndex, for surviving columns
	nOrig      int
	objVarIdx  int
}

func newPreprocessor() *preProcessor {
	return &preProcessor{fixedValue: make(map[int]float64)}
}

// presolve returns a copy of p with every fixed column (LB[i]==UB[i])
// removed: each structural row's RHS absorbs that column's fixed
// contribution (bi := bi - aij*xj), mirroring the teacher's
// filterFixedVars, and ObjVarIndex is remapped onto the reduced column
// indices, or left at -1 if the objective variable itself was fixed.
func (prepper *preProcessor) presolve(p *Problem) *Problem {
	prepper.nOrig = len(p.C)
	prepper.objVarIdx = -1

	var keep []int
	for i := range p.C {
		if p.LB[i] == p.UB[i] {
			prepper.fixedValue[i] = p.LB[i]
			continue
		}
		keep = append(keep, i)
	}
	prepper.colMap = keep

	reduced := &Problem{
		BranchHeuristic: p.BranchHeuristic,
		ObjVarIndex:     -1,
	}
	for newIdx, origIdx := range keep {
		reduced.C = append(reduced.C, p.C[origIdx])
		reduced.LB = append(reduced.LB, p.LB[origIdx])
		reduced.UB = append(reduced.UB, p.UB[origIdx])
		reduced.Integer = append(reduced.Integer, p.Integer[origIdx])
		if len(p.VarNames) > origIdx {
			reduced.VarNames = append(reduced.VarNames, p.VarNames[origIdx])
		}
		if origIdx == p.ObjVarIndex {
			reduced.ObjVarIndex = newIdx
		}
	}

	reduced.A, reduced.B = presolveRows(p.A, p.B, prepper.fixedValue, keep)
	reduced.G, reduced.H = presolveRows(p.G, p.H, prepper.fixedValue, keep)

	return reduced
}

// presolveRows slices m down to the kept columns, folding each fixed
// column's contribution into rhs; returns (nil, nil) if m is nil.
func presolveRows(m *mat.Dense, rhs []float64, fixed map[int]float64, keep []int) (*mat.Dense, []float64) {
	if m == nil {
		return nil, nil
	}

	rows, _ := m.Dims()
	newRHS := make([]float64, rows)
	copy(newRHS, rhs)
	for origIdx, val := range fixed {
		for r := 0; r < rows; r++ {
			newRHS[r] -= m.At(r, origIdx) * val
		}
	}

	newM := mat.NewDense(rows, len(keep), nil)
	for newIdx, origIdx := range keep {
		for r := 0; r < rows; r++ {
			newM.Set(r, newIdx, m.At(r, origIdx))
		}
	}

	return newM, newRHS
}

// postsolve expands a solution vector over the reduced column set back to
// the original column count, re-inserting each fixed column's value.
func (prepper *preProcessor) postsolve(xReduced []float64) []float64 {
	if len(prepper.fixedValue) == 0 {
		return xReduced
	}

	x := make([]float64, prepper.nOrig)
	for i, v := range prepper.fixedValue {
		x[i] = v
	}
	for newIdx, origIdx := range prepper.colMap {
		x[origIdx] = xReduced[newIdx]
	}
	return x
}

func (prepper *preProcessor) summary() string {
	return fmt.Sprintf("presolve fixed %d of %d variables", len(prepper.fixedValue), prepper.nOrig)
}
