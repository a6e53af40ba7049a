package handlers

import (
	"errors"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/aristath/entangle/internal/modules/quantum"
)

// validate is shared by HTTP and live handlers. The custom "finite" tag
// rejects NaN and ±Inf. State names are checked by the evaluator so unknown
// names map to 404 rather than a validation failure.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Float64 {
		return false
	}
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// errMissingState is returned when neither a catalog name nor a product is given.
var errMissingState = errors.New("either state or product is required")

// AnglePair is a measurement orientation in radians.
type AnglePair struct {
	Theta float64 `json:"theta" msgpack:"theta" validate:"finite"`
	Phi   float64 `json:"phi" msgpack:"phi" validate:"finite"`
}

func (p AnglePair) orientation() quantum.Orientation {
	return quantum.Orientation{Theta: p.Theta, Phi: p.Phi}
}

// ProductRequest describes a separable state by the Bloch directions of its qubits.
type ProductRequest struct {
	A *AnglePair `json:"a" msgpack:"a" validate:"required"`
	B *AnglePair `json:"b" msgpack:"b" validate:"required"`
}

// StateRequest selects a state by catalog name or as a product of two qubits.
type StateRequest struct {
	State   string          `json:"state,omitempty" msgpack:"state,omitempty"`
	Product *ProductRequest `json:"product,omitempty" msgpack:"product,omitempty"`
}

func (r StateRequest) selection() (quantum.StateSpec, error) {
	if r.Product != nil {
		return quantum.ProductOf(r.Product.A.orientation(), r.Product.B.orientation()), nil
	}
	if r.State == "" {
		return quantum.StateSpec{}, errMissingState
	}
	name, err := quantum.ParseStateName(r.State)
	if err != nil {
		return quantum.StateSpec{}, err
	}
	return quantum.CatalogState(name), nil
}

// MeasurementRequest is the body of expectation, probabilities and simulate.
type MeasurementRequest struct {
	StateRequest `msgpack:",inline"`
	A            *AnglePair `json:"a" msgpack:"a" validate:"required"`
	B            *AnglePair `json:"b" msgpack:"b" validate:"required"`
}

// CHSHRequest is the body of the CHSH endpoint. Missing primed settings are
// filled in with quantum.CanonicalAngles.
type CHSHRequest struct {
	StateRequest
	A      *AnglePair `json:"a" validate:"required"`
	B      *AnglePair `json:"b" validate:"required"`
	APrime *AnglePair `json:"a_prime,omitempty"`
	BPrime *AnglePair `json:"b_prime,omitempty"`
}

func (r CHSHRequest) angles() quantum.CHSHAngles {
	angles := quantum.CanonicalAngles(r.A.orientation(), r.B.orientation())
	if r.APrime != nil {
		angles.APrime = r.APrime.orientation()
	}
	if r.BPrime != nil {
		angles.BPrime = r.BPrime.orientation()
	}
	return angles
}

// GridRequest is the body of the correlation-grid endpoint.
type GridRequest struct {
	StateRequest
	Resolution int     `json:"resolution" validate:"min=2"`
	PhiA       float64 `json:"phi_a" validate:"finite"`
	PhiB       float64 `json:"phi_b" validate:"finite"`
}
