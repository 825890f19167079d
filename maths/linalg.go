package maths

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SolveLinear solves the square system a x = b by LU decomposition.
func SolveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, fmt.Errorf("SolveLinear: %d rows, %d right-hand side entries", n, len(b))
	}
	m, err := toDense(a, n)
	if err != nil {
		return nil, fmt.Errorf("SolveLinear: %w", err)
	}
	return luSolve(m, mat.NewVecDense(n, append([]float64(nil), b...)))
}

// LeastSquares solves the over-determined system a x ≈ b (rows >= columns)
// through the normal equations aᵀa x = aᵀb.
func LeastSquares(a [][]float64, b []float64) ([]float64, error) {
	rows := len(a)
	if rows == 0 || len(b) != rows {
		return nil, fmt.Errorf("LeastSquares: %d rows, %d right-hand side entries", rows, len(b))
	}
	cols := len(a[0])
	if cols > rows {
		return nil, fmt.Errorf("LeastSquares: %d columns exceed %d rows", cols, rows)
	}
	m, err := toDense(a, cols)
	if err != nil {
		return nil, fmt.Errorf("LeastSquares: %w", err)
	}
	var ata mat.Dense
	ata.Mul(m.T(), m)
	var atb mat.VecDense
	atb.MulVec(m.T(), mat.NewVecDense(rows, append([]float64(nil), b...)))
	return luSolve(&ata, &atb)
}

func toDense(a [][]float64, cols int) (*mat.Dense, error) {
	data := make([]float64, 0, len(a)*cols)
	for i, row := range a {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(a), cols, data), nil
}

func luSolve(a mat.Matrix, b *mat.VecDense) ([]float64, error) {
	var lu mat.LU
	lu.Factorize(a)
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("LU solve: %v: %w", err, ErrSingular)
	}
	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}
