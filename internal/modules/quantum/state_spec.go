package quantum

import (
	"strconv"
	"strings"
)

// StateSpec selects the state an evaluation runs against: either a catalog
// entry by name or a separable product of two Bloch-sphere qubits.
type StateSpec struct {
	Name    StateName
	Product *ProductSpec
}

// ProductSpec describes |a> ⊗ |b> by the Bloch directions of each qubit.
type ProductSpec struct {
	A Orientation `json:"a"`
	B Orientation `json:"b"`
}

// CatalogState returns a spec for a catalog entry.
func CatalogState(name StateName) StateSpec {
	return StateSpec{Name: name}
}

// ProductOf returns a spec for the product of the qubits pointing along a and b.
func ProductOf(a, b Orientation) StateSpec {
	return StateSpec{Product: &ProductSpec{A: a, B: b}}
}

// Resolve returns the state vector the spec denotes.
func (s StateSpec) Resolve() (Vector4, error) {
	if s.Product != nil {
		return ProductState(
			NewQubit(s.Product.A.Theta, s.Product.A.Phi),
			NewQubit(s.Product.B.Theta, s.Product.B.Phi),
		), nil
	}
	name, err := ParseStateName(string(s.Name))
	if err != nil {
		return Vector4{}, err
	}
	v, _ := Lookup(name)
	return v, nil
}

// String renders the spec for logs and cache keys. Angles are written with
// the shortest exact representation so distinct inputs never collide.
func (s StateSpec) String() string {
	if s.Product != nil {
		return "product(" + angleKey(s.Product.A, s.Product.B) + ")"
	}
	return string(s.Name)
}

func angleKey(orientations ...Orientation) string {
	var b strings.Builder
	for i, o := range orientations {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatFloat(o.Theta, 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(o.Phi, 'g', -1, 64))
	}
	return b.String()
}
