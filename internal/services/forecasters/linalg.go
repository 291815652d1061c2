package forecasters

import (
	"errors"
	"math"
)

var errSingular = errors.New("singular design matrix")

// leastSquares solves min ||Xb - y||^2 + ridge*||b||^2 through the normal
// equations with partial-pivot Gaussian elimination.
func leastSquares(X [][]float64, y []float64, ridge float64) ([]float64, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("empty or mismatched design")
	}
	k := len(X[0])
	a := make([][]float64, k)
	for i := range a {
		a[i] = make([]float64, k+1)
	}
	for r, row := range X {
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				a[i][j] += row[i] * row[j]
			}
			a[i][k] += row[i] * y[r]
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			a[i][j] = a[j][i]
		}
		a[i][i] += ridge
	}
	return solve(a, k)
}

// solve reduces the augmented k×(k+1) matrix in place.
func solve(a [][]float64, k int) ([]float64, error) {
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < k; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= k; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	b := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		s := a[i][k]
		for j := i + 1; j < k; j++ {
			s -= a[i][j] * b[j]
		}
		b[i] = s / a[i][i]
	}
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errSingular
		}
	}
	return b, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
