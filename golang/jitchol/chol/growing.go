package chol

import (
	"gonum.org/v1/gonum/mat"
)

//GrowingSystem keeps the factor of a covariance matrix together with Alpha = L⁻¹·y while new
//observations are appended block by block. Every Extend returns a new value.
type GrowingSystem struct {
	Factor     *Factor
	Alpha      *mat.Dense
	factorizer *Factorizer
}

//NewGrowingSystem factors a and computes the cached solution for the right-hand sides y.
//A nil factorizer means DefaultFactorizer.
func NewGrowingSystem(factorizer *Factorizer, a, y mat.Matrix) (*GrowingSystem, error) {
	if factorizer == nil {
		factorizer = DefaultFactorizer
	}
	factor, err := factorizer.Cholesky(a)
	if err != nil {
		return nil, err
	}
	alpha, err := SolveTriangular(factor, y, false)
	if err != nil {
		return nil, err
	}
	return &GrowingSystem{Factor: factor, Alpha: alpha, factorizer: factorizer}, nil
}

//Extend appends the cross block b, the diagonal block c and the right-hand side rows y.
func (g *GrowingSystem) Extend(b, c, y mat.Matrix) (*GrowingSystem, error) {
	factor, alpha, err := g.factorizer.UpdateSolve(g.Factor, b, c, g.Alpha, y)
	if err != nil {
		return nil, err
	}
	return &GrowingSystem{Factor: factor, Alpha: alpha, factorizer: g.factorizer}, nil
}

//Solution returns X with (L·Lᵗ)·X = y for all the right-hand sides seen so far.
func (g *GrowingSystem) Solution() (*mat.Dense, error) {
	return SolveTriangular(g.Factor, g.Alpha, true)
}

func (g *GrowingSystem) Dim() int {
	return g.Factor.Dim()
}
