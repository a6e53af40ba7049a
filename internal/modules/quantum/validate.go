package quantum

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is the absolute tolerance used by the validators.
const DefaultTolerance = 1e-9

var (
	// ErrInvalidQuantumState is returned when a state or operator breaks the
	// invariants the engine relies on.
	ErrInvalidQuantumState = errors.New("invalid quantum state")
	// ErrImaginaryResidue is returned when a Hermitian sandwich comes back
	// with a non-negligible imaginary part.
	ErrImaginaryResidue = errors.New("imaginary residue in hermitian expectation")
	// ErrUnknownState is returned for names outside the catalog.
	ErrUnknownState = errors.New("unknown state")
)

// ValidateState checks that every amplitude is finite and that the state has
// unit norm within tol.
func ValidateState(state Vector4, tol float64) error {
	for i, a := range state {
		if math.IsNaN(real(a)) || math.IsNaN(imag(a)) || math.IsInf(real(a), 0) || math.IsInf(imag(a), 0) {
			return fmt.Errorf("%w: amplitude %d is not finite", ErrInvalidQuantumState, i)
		}
	}
	if n := state.NormSquared(); !scalar.EqualWithinAbs(n, 1, tol) {
		return fmt.Errorf("%w: squared norm %g, want 1", ErrInvalidQuantumState, n)
	}
	return nil
}

// ValidateObservable checks that op is a spin observable: Hermitian with
// eigenvalues exactly -1 and +1.
func ValidateObservable(op Matrix2, tol float64) error {
	if !op.ApproxEqual(op.Dagger(), tol) {
		return fmt.Errorf("%w: observable is not hermitian", ErrInvalidQuantumState)
	}
	vals, err := HermitianEigenvalues(op.Rows())
	if err != nil {
		return err
	}
	if !floats.EqualApprox(vals, []float64{-1, 1}, tol) {
		return fmt.Errorf("%w: observable eigenvalues %v, want [-1 1]", ErrInvalidQuantumState, vals)
	}
	return nil
}

// ValidateProjector checks that p is Hermitian and idempotent.
func ValidateProjector(p Matrix4, tol float64) error {
	if !p.ApproxEqual(p.Dagger(), tol) {
		return fmt.Errorf("%w: projector is not hermitian", ErrInvalidQuantumState)
	}
	if !p.Mul(p).ApproxEqual(p, tol) {
		return fmt.Errorf("%w: projector is not idempotent", ErrInvalidQuantumState)
	}
	return nil
}

// HermitianEigenvalues returns the eigenvalues of the n×n Hermitian matrix h
// in ascending order.
//
// H = A + iB is embedded as the real symmetric matrix [[A, -B], [B, A]],
// whose spectrum is that of H with every eigenvalue doubled.
func HermitianEigenvalues(h [][]complex128) ([]float64, error) {
	n := len(h)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidQuantumState)
	}
	data := make([]float64, 4*n*n)
	dim := 2 * n
	for i := 0; i < n; i++ {
		if len(h[i]) != n {
			return nil, fmt.Errorf("%w: matrix is not square", ErrInvalidQuantumState)
		}
		for j := 0; j < n; j++ {
			re, im := real(h[i][j]), imag(h[i][j])
			data[i*dim+j] = re
			data[i*dim+j+n] = -im
			data[(i+n)*dim+j] = im
			data[(i+n)*dim+j+n] = re
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(dim, data), false); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition failed", ErrInvalidQuantumState)
	}
	doubled := eig.Values(nil)

	vals := make([]float64, n)
	for i := range vals {
		vals[i] = (doubled[2*i] + doubled[2*i+1]) / 2
	}
	return vals, nil
}
