package agents

import "math"

const singularTolerance = 1e-12

// linearModel is an ordinary least squares fit with intercept.
type linearModel struct {
	Coef      []float64
	Intercept float64
	Means     []float64
}

// fitOLS solves the centered normal equations by Gaussian elimination with
// partial pivoting. ok is false when the system is singular.
func fitOLS(x [][]float64, y []float64) (linearModel, bool) {
	n := len(x)
	if n == 0 || len(y) != n {
		return linearModel{}, false
	}
	k := len(x[0])

	means := make([]float64, k)
	for _, row := range x {
		for j := range k {
			means[j] += row[j]
		}
	}
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	for j := range k {
		means[j] /= float64(n)
	}
	yMean /= float64(n)

	// augmented matrix [X'X | X'y] over centered data
	a := make([][]float64, k)
	for i := range a {
		a[i] = make([]float64, k+1)
	}
	for r, row := range x {
		dy := y[r] - yMean
		for i := range k {
			di := row[i] - means[i]
			for j := range k {
				a[i][j] += di * (row[j] - means[j])
			}
			a[i][k] += di * dy
		}
	}

	for col := range k {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < singularTolerance {
			return linearModel{Means: means}, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := range k {
			if r == col {
				continue
			}
			factor := a[r][col] / a[col][col]
			for c := col; c <= k; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	coef := make([]float64, k)
	intercept := yMean
	for j := range k {
		coef[j] = a[j][k] / a[j][j]
		intercept -= coef[j] * means[j]
	}

	return linearModel{Coef: coef, Intercept: intercept, Means: means}, true
}

func (m linearModel) Predict(x []float64) float64 {
	out := m.Intercept
	for j, c := range m.Coef {
		out += c * x[j]
	}
	return out
}

// Contributions returns coef_j * (x_j - mean_j) for every feature.
func (m linearModel) Contributions(x []float64) []float64 {
	out := make([]float64, len(m.Coef))
	for j, c := range m.Coef {
		out[j] = c * (x[j] - m.Means[j])
	}
	return out
}
