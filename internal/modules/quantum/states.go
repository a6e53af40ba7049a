package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Single-qubit basis vectors.
var (
	Up   = Vector2{1, 0} // |0>
	Down = Vector2{0, 1} // |1>
)

var invSqrt2 = complex(1/math.Sqrt2, 0)

// Catalog states. All have unit norm.
var (
	PhiPlus   = KronVec(Up, Up).Add(KronVec(Down, Down)).Scale(invSqrt2)
	PhiMinus  = KronVec(Up, Up).Add(KronVec(Down, Down).Scale(-1)).Scale(invSqrt2)
	PsiPlus   = KronVec(Up, Down).Add(KronVec(Down, Up)).Scale(invSqrt2)
	PsiMinus  = KronVec(Up, Down).Add(KronVec(Down, Up).Scale(-1)).Scale(invSqrt2)
	Product00 = KronVec(Up, Up)
)

// StateName identifies a catalog state.
type StateName string

// Catalog state names.
const (
	StatePhiPlus   StateName = "phi_plus"
	StatePhiMinus  StateName = "phi_minus"
	StatePsiPlus   StateName = "psi_plus"
	StatePsiMinus  StateName = "psi_minus"
	StateProduct00 StateName = "product_00"
)

// CatalogEntry describes one prepared two-qubit state.
type CatalogEntry struct {
	Name      StateName
	Symbol    string
	Label     string
	Vector    Vector4
	Entangled bool
}

var catalog = []CatalogEntry{
	{Name: StatePhiPlus, Symbol: "Φ+", Label: "Φ+ (Phi Plus)", Vector: PhiPlus, Entangled: true},
	{Name: StateProduct00, Symbol: "|00>", Label: "Product State |00> (Separable)", Vector: Product00},
	{Name: StatePhiMinus, Symbol: "Φ-", Label: "Φ- (Phi Minus)", Vector: PhiMinus, Entangled: true},
	{Name: StatePsiPlus, Symbol: "Ψ+", Label: "Ψ+ (Psi Plus)", Vector: PsiPlus, Entangled: true},
	{Name: StatePsiMinus, Symbol: "Ψ-", Label: "Ψ- (Psi Minus)", Vector: PsiMinus, Entangled: true},
}

// Catalog returns the prepared states in display order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the state vector for name.
func Lookup(name StateName) (Vector4, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e.Vector, true
		}
	}
	return Vector4{}, false
}

// ParseStateName accepts a catalog name ("phi_plus") or its symbol ("Φ+").
func ParseStateName(s string) (StateName, error) {
	trimmed := strings.TrimSpace(s)
	for _, e := range catalog {
		if strings.EqualFold(trimmed, string(e.Name)) || trimmed == e.Symbol {
			return e.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// NewQubit returns cos(θ/2)|0> + e^{iφ} sin(θ/2)|1>, the single-qubit state
// pointing along (θ, φ) on the Bloch sphere.
func NewQubit(theta, phi float64) Vector2 {
	s, c := math.Sincos(theta / 2)
	return Vector2{complex(c, 0), complex(s, 0) * cmplx.Exp(complex(0, phi))}
}

// ProductState returns the separable state a ⊗ b.
func ProductState(a, b Vector2) Vector4 {
	return KronVec(a, b)
}
