package quantum

import "math"

// Bell-inequality bounds for the CHSH statistic.
const (
	// ClassicalBound is the largest S any local hidden-variable model allows.
	ClassicalBound = 2.0
	// TsirelsonBound is the largest S quantum mechanics allows (2√2).
	TsirelsonBound = 2 * math.Sqrt2
)

// Outcomes holds the joint probabilities of the four measurement results.
type Outcomes struct {
	PP float64 `json:"pp" msgpack:"pp"`
	PM float64 `json:"pm" msgpack:"pm"`
	MP float64 `json:"mp" msgpack:"mp"`
	MM float64 `json:"mm" msgpack:"mm"`
}

// Sum returns PP + PM + MP + MM.
func (o Outcomes) Sum() float64 {
	return o.PP + o.PM + o.MP + o.MM
}

// CHSHAngles holds the four orientations of a CHSH experiment.
type CHSHAngles struct {
	A      Orientation `json:"a"`
	APrime Orientation `json:"a_prime"`
	B      Orientation `json:"b"`
	BPrime Orientation `json:"b_prime"`
}

// CanonicalAngles rotates a and b into the primed settings used by the
// simulator: a' = a + π/2 and b' = b - π/2, azimuths unchanged.
func CanonicalAngles(a, b Orientation) CHSHAngles {
	return CHSHAngles{
		A:      a,
		APrime: Orientation{Theta: a.Theta + math.Pi/2, Phi: a.Phi},
		B:      b,
		BPrime: Orientation{Theta: b.Theta - math.Pi/2, Phi: b.Phi},
	}
}

// ReferenceAngles returns settings at which CHSH reaches the Tsirelson bound
// for Φ+ under this package's sign convention: a = 0, a' = π/2, b = π/4,
// b' = 3π/4, all in the x-z plane.
func ReferenceAngles() CHSHAngles {
	return CHSHAngles{
		A:      Orientation{Theta: 0},
		APrime: Orientation{Theta: math.Pi / 2},
		B:      Orientation{Theta: math.Pi / 4},
		BPrime: Orientation{Theta: 3 * math.Pi / 4},
	}
}

// ViolatesClassicalBound reports whether s exceeds the local-realist limit.
func ViolatesClassicalBound(s float64) bool {
	return s > ClassicalBound
}

// Observable returns the two-party observable σa ⊗ σb.
func Observable(a, b Orientation) Matrix4 {
	return Kron(SpinOperator(a.Theta, a.Phi), SpinOperator(b.Theta, b.Phi))
}

// ExpectationValue returns Re <ψ|σa ⊗ σb|ψ>. The state is not normalised.
func ExpectationValue(state Vector4, thetaA, phiA, thetaB, phiB float64) float64 {
	return real(expectation(state, Orientation{thetaA, phiA}, Orientation{thetaB, phiB}))
}

// JointProbabilities returns the probabilities of the four joint outcomes
// when A measures along (thetaA, phiA) and B along (thetaB, phiB).
func JointProbabilities(state Vector4, thetaA, phiA, thetaB, phiB float64) Outcomes {
	amps := jointAmplitudes(state, Orientation{thetaA, phiA}, Orientation{thetaB, phiB})
	return Outcomes{
		PP: real(amps[OutcomePP]),
		PM: real(amps[OutcomePM]),
		MP: real(amps[OutcomeMP]),
		MM: real(amps[OutcomeMM]),
	}
}

// CHSH returns |E(a,b) - E(a,b') + E(a',b) + E(a',b')|.
func CHSH(state Vector4, angles CHSHAngles) float64 {
	return math.Abs(chshSum(state, angles))
}

func chshSum(state Vector4, angles CHSHAngles) float64 {
	terms := chshTerms(state, angles)
	return real(terms[0]) - real(terms[1]) + real(terms[2]) + real(terms[3])
}

// chshTerms returns the unreduced sandwiches for (a,b), (a,b'), (a',b), (a',b').
func chshTerms(state Vector4, angles CHSHAngles) [4]complex128 {
	return [4]complex128{
		expectation(state, angles.A, angles.B),
		expectation(state, angles.A, angles.BPrime),
		expectation(state, angles.APrime, angles.B),
		expectation(state, angles.APrime, angles.BPrime),
	}
}

func expectation(state Vector4, a, b Orientation) complex128 {
	return Sandwich(state, Observable(a, b))
}

func jointAmplitudes(state Vector4, a, b Orientation) [4]complex128 {
	var out [4]complex128
	for i, p := range JointProjectors(a, b) {
		out[i] = Sandwich(state, p)
	}
	return out
}
