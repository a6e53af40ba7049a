package quantum

import "math/cmplx"

// Vector2 is a single-qubit state in the {|0>, |1>} basis.
type Vector2 [2]complex128

// Vector4 is a two-qubit state in the {|00>, |01>, |10>, |11>} basis.
type Vector4 [4]complex128

// Matrix2 is a single-qubit operator.
type Matrix2 [2][2]complex128

// Matrix4 is a two-qubit operator.
type Matrix4 [4][4]complex128

// Add returns m + o.
func (m Matrix2) Add(o Matrix2) Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][j] + o[i][j]
		}
	}
	return r
}

// Sub returns m - o.
func (m Matrix2) Sub(o Matrix2) Matrix2 {
	return m.Add(o.Scale(-1))
}

// Scale returns s·m.
func (m Matrix2) Scale(s complex128) Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = s * m[i][j]
		}
	}
	return r
}

// Mul returns the matrix product m·o.
func (m Matrix2) Mul(o Matrix2) Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j]
		}
	}
	return r
}

// Dagger returns the conjugate transpose of m.
func (m Matrix2) Dagger() Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = cmplx.Conj(m[j][i])
		}
	}
	return r
}

// Trace returns the sum of the diagonal entries.
func (m Matrix2) Trace() complex128 {
	return m[0][0] + m[1][1]
}

// ApproxEqual reports whether every entry of m is within tol of o.
func (m Matrix2) ApproxEqual(o Matrix2, tol float64) bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(m[i][j]-o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Rows returns m as a slice of rows.
func (m Matrix2) Rows() [][]complex128 {
	return [][]complex128{m[0][:], m[1][:]}
}

// Kron returns the Kronecker product a ⊗ b.
// Entry (2i+k, 2j+l) is a[i][j]·b[k][l].
func Kron(a, b Matrix2) Matrix4 {
	var r Matrix4
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				for l := 0; l < 2; l++ {
					r[2*i+k][2*j+l] = a[i][j] * b[k][l]
				}
			}
		}
	}
	return r
}

// KronVec returns the tensor product a ⊗ b of two single-qubit states.
func KronVec(a, b Vector2) Vector4 {
	return Vector4{a[0] * b[0], a[0] * b[1], a[1] * b[0], a[1] * b[1]}
}

// Add returns m + o.
func (m Matrix4) Add(o Matrix4) Matrix4 {
	var r Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = m[i][j] + o[i][j]
		}
	}
	return r
}

// Mul returns the matrix product m·o.
func (m Matrix4) Mul(o Matrix4) Matrix4 {
	var r Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum complex128
			for k := 0; k < 4; k++ {
				sum += m[i][k] * o[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// Dagger returns the conjugate transpose of m.
func (m Matrix4) Dagger() Matrix4 {
	var r Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = cmplx.Conj(m[j][i])
		}
	}
	return r
}

// Apply returns m·v.
func (m Matrix4) Apply(v Vector4) Vector4 {
	var r Vector4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i] += m[i][j] * v[j]
		}
	}
	return r
}

// ApproxEqual reports whether every entry of m is within tol of o.
func (m Matrix4) ApproxEqual(o Matrix4, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if cmplx.Abs(m[i][j]-o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Rows returns m as a slice of rows.
func (m Matrix4) Rows() [][]complex128 {
	rows := make([][]complex128, 4)
	for i := range m {
		rows[i] = m[i][:]
	}
	return rows
}

// Add returns v + w.
func (v Vector4) Add(w Vector4) Vector4 {
	return Vector4{v[0] + w[0], v[1] + w[1], v[2] + w[2], v[3] + w[3]}
}

// Scale returns s·v.
func (v Vector4) Scale(s complex128) Vector4 {
	return Vector4{s * v[0], s * v[1], s * v[2], s * v[3]}
}

// Inner returns <v|w>, conjugating v.
func (v Vector4) Inner(w Vector4) complex128 {
	var sum complex128
	for i := 0; i < 4; i++ {
		sum += cmplx.Conj(v[i]) * w[i]
	}
	return sum
}

// NormSquared returns the sum of squared amplitude magnitudes.
func (v Vector4) NormSquared() float64 {
	var sum float64
	for _, a := range v {
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	return sum
}

// NormSquared returns |a|² + |b|².
func (v Vector2) NormSquared() float64 {
	return real(v[0])*real(v[0]) + imag(v[0])*imag(v[0]) +
		real(v[1])*real(v[1]) + imag(v[1])*imag(v[1])
}

// Sandwich returns <v|m|v> with v treated as a column vector.
// For Hermitian m the result is real up to rounding.
func Sandwich(v Vector4, m Matrix4) complex128 {
	return v.Inner(m.Apply(v))
}
