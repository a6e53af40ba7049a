package quantum

import "math"

// Generating set for single-qubit observables.
var (
	Identity2 = Matrix2{{1, 0}, {0, 1}}
	PauliX    = Matrix2{{0, 1}, {1, 0}}
	PauliY    = Matrix2{{0, -1i}, {1i, 0}}
	PauliZ    = Matrix2{{1, 0}, {0, -1}}

	Identity4 = Kron(Identity2, Identity2)
)

// Orientation is a measurement direction on the unit sphere.
// Theta is the polar angle and Phi the azimuth, both in radians.
type Orientation struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// Direction returns the unit vector (sin θ cos φ, sin θ sin φ, cos θ).
func (o Orientation) Direction() (x, y, z float64) {
	sinTheta, cosTheta := math.Sincos(o.Theta)
	sinPhi, cosPhi := math.Sincos(o.Phi)
	return sinTheta * cosPhi, sinTheta * sinPhi, cosTheta
}

// SpinOperator returns n·σ for the direction given by theta and phi.
// The result is Hermitian, traceless and has eigenvalues ±1.
func SpinOperator(theta, phi float64) Matrix2 {
	nx, ny, nz := Orientation{Theta: theta, Phi: phi}.Direction()
	return PauliX.Scale(complex(nx, 0)).
		Add(PauliY.Scale(complex(ny, 0))).
		Add(PauliZ.Scale(complex(nz, 0)))
}

// Projectors returns (I + op)/2 and (I - op)/2, the projectors onto the
// +1 and -1 eigenspaces of a spin observable.
func Projectors(op Matrix2) (plus, minus Matrix2) {
	plus = Identity2.Add(op).Scale(0.5)
	minus = Identity2.Sub(op).Scale(0.5)
	return plus, minus
}

// Outcome indexes the four joint measurement outcomes.
type Outcome int

// Joint outcomes, party A first.
const (
	OutcomePP Outcome = iota
	OutcomePM
	OutcomeMP
	OutcomeMM
)

func (o Outcome) String() string {
	switch o {
	case OutcomePP:
		return "++"
	case OutcomePM:
		return "+-"
	case OutcomeMP:
		return "-+"
	case OutcomeMM:
		return "--"
	}
	return "unknown"
}

// JointProjectors returns the four joint projectors for orientations a and b,
// indexed by Outcome. They are mutually orthogonal and sum to Identity4.
func JointProjectors(a, b Orientation) [4]Matrix4 {
	aPlus, aMinus := Projectors(SpinOperator(a.Theta, a.Phi))
	bPlus, bMinus := Projectors(SpinOperator(b.Theta, b.Phi))

	return [4]Matrix4{
		OutcomePP: Kron(aPlus, bPlus),
		OutcomePM: Kron(aPlus, bMinus),
		OutcomeMP: Kron(aMinus, bPlus),
		OutcomeMM: Kron(aMinus, bMinus),
	}
}
