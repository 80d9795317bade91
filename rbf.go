package gemgis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// An rbf is a fitted radial basis function interpolant.
type rbf struct {
	xs      []float64
	ys      []float64
	weights []float64
	method  RadialBasis
}

// fitRBF solves for the weights of the radial basis function through the
// points xs, ys, zs.
func fitRBF(xs, ys, zs []float64, method RadialBasis) (*rbf, error) {
	n := len(xs)
	a := mat.NewDense(n, n, nil)
	for i := range n {
		for j := range n {
			r := math.Hypot(xs[i]-xs[j], ys[i]-ys[j])
			a.Set(i, j, method.Kernel.phi(r, method.Epsilon))
		}
	}

	var lu mat.LU
	lu.Factorize(a)
	var weights mat.VecDense
	if err := lu.SolveVecTo(&weights, false, mat.NewVecDense(n, zs)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNumericalFailure, err)
	}
	result := &rbf{
		xs:      xs,
		ys:      ys,
		weights: make([]float64, n),
		method:  method,
	}
	for i := range n {
		weight := weights.AtVec(i)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, fmt.Errorf("%w: singular RBF system", ErrNumericalFailure)
		}
		result.weights[i] = weight
	}
	return result, nil
}

// eval returns the value of r at x, y.
func (r *rbf) eval(x, y float64) float64 {
	value := 0.0
	for i, weight := range r.weights {
		value += weight * r.method.Kernel.phi(math.Hypot(x-r.xs[i], y-r.ys[i]), r.method.Epsilon)
	}
	return value
}
