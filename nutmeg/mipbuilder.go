package nutmeg

import "gonum.org/v1/gonum/mat"

// mipRow is one linear row accumulated by mipBuilder before final
// assembly into a milp.Problem; sparse by column index, since most rows
// only touch a handful of the model's columns.
type mipRow struct {
	coeffs map[int]float64
	eq     bool // true: equality row; false: <= row
	rhs    float64
}

// mipBuilder accumulates the rows emitted by constraint construction
// (C2) and variable promotion (C1), ready to be assembled into the dense
// matrices milp.Problem expects once the column count is final.
type mipBuilder struct {
	rows []mipRow
}

func newMIPBuilder() *mipBuilder {
	return &mipBuilder{}
}

// addEq posts `row . x == rhs`.
func (b *mipBuilder) addEq(row map[int]float64, rhs float64) {
	b.rows = append(b.rows, mipRow{coeffs: row, eq: true, rhs: rhs})
}

// addLE posts `row . x <= rhs`.
func (b *mipBuilder) addLE(row map[int]float64, rhs float64) {
	b.rows = append(b.rows, mipRow{coeffs: row, eq: false, rhs: rhs})
}

// addGE posts `row . x >= rhs`, stored internally as a negated <= row.
func (b *mipBuilder) addGE(row map[int]float64, rhs float64) {
	neg := make(map[int]float64, len(row))
	for k, v := range row {
		neg[k] = -v
	}
	b.addLE(neg, -rhs)
}

// assemble builds the dense A/B (equality) and G/H (inequality) matrices
// for nCols structural columns.
func (b *mipBuilder) assemble(nCols int) (A *mat.Dense, B []float64, G *mat.Dense, H []float64) {
	var eqRows, ineqRows []mipRow
	for _, r := range b.rows {
		if r.eq {
			eqRows = append(eqRows, r)
		} else {
			ineqRows = append(ineqRows, r)
		}
	}

	if len(eqRows) > 0 {
		A = mat.NewDense(len(eqRows), nCols, nil)
		B = make([]float64, len(eqRows))
		for i, r := range eqRows {
			for col, coeff := range r.coeffs {
				A.Set(i, col, coeff)
			}
			B[i] = r.rhs
		}
	}

	if len(ineqRows) > 0 {
		G = mat.NewDense(len(ineqRows), nCols, nil)
		H = make([]float64, len(ineqRows))
		for i, r := range ineqRows {
			for col, coeff := range r.coeffs {
				G.Set(i, col, coeff)
			}
			H[i] = r.rhs
		}
	}

	return
}
