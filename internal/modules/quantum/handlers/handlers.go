// Package handlers provides HTTP handlers for the two-qubit evaluator.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/entangle/internal/modules/quantum"
)

// Handler handles quantum HTTP requests
type Handler struct {
	evaluator     *quantum.Evaluator
	maxResolution int
	log           zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(
	evaluator *quantum.Evaluator,
	maxResolution int,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		evaluator:     evaluator,
		maxResolution: maxResolution,
		log:           log.With().Str("handler", "quantum").Logger(),
	}
}

// Amplitude is a JSON-friendly complex number.
type Amplitude struct {
	Real      float64 `json:"real"`
	Imaginary float64 `json:"imaginary"`
}

// StateInfo describes one catalog state.
type StateInfo struct {
	Name       quantum.StateName `json:"name"`
	Symbol     string            `json:"symbol"`
	Label      string            `json:"label"`
	Entangled  bool              `json:"entangled"`
	Amplitudes []Amplitude       `json:"amplitudes"`
}

// HandleListStates handles GET /api/quantum/states
func (h *Handler) HandleListStates(w http.ResponseWriter, r *http.Request) {
	entries := quantum.Catalog()
	states := make([]StateInfo, 0, len(entries))
	for _, e := range entries {
		amps := make([]Amplitude, len(e.Vector))
		for i, a := range e.Vector {
			amps[i] = Amplitude{Real: real(a), Imaginary: imag(a)}
		}
		states = append(states, StateInfo{
			Name:       e.Name,
			Symbol:     e.Symbol,
			Label:      e.Label,
			Entangled:  e.Entangled,
			Amplitudes: amps,
		})
	}

	h.respond(w, map[string]interface{}{
		"states": states,
		"count":  len(states),
		"basis":  []string{"|00>", "|01>", "|10>", "|11>"},
	})
}

// HandleGetBounds handles GET /api/quantum/bounds
func (h *Handler) HandleGetBounds(w http.ResponseWriter, r *http.Request) {
	h.respond(w, map[string]interface{}{
		"classical": quantum.ClassicalBound,
		"tsirelson": quantum.TsirelsonBound,
		"note":      "Local hidden-variable models satisfy S <= 2; quantum mechanics allows S <= 2√2",
	})
}

// HandleExpectation handles POST /api/quantum/expectation
func (h *Handler) HandleExpectation(w http.ResponseWriter, r *http.Request) {
	var req MeasurementRequest
	if !h.decode(w, r, &req) {
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	e, err := h.evaluator.Expectation(sel, req.A.orientation(), req.B.orientation())
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	h.respond(w, map[string]interface{}{
		"state":       sel.String(),
		"a":           req.A,
		"b":           req.B,
		"expectation": e,
	})
}

// HandleProbabilities handles POST /api/quantum/probabilities
func (h *Handler) HandleProbabilities(w http.ResponseWriter, r *http.Request) {
	var req MeasurementRequest
	if !h.decode(w, r, &req) {
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	probs, err := h.evaluator.Probabilities(sel, req.A.orientation(), req.B.orientation())
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	h.respond(w, map[string]interface{}{
		"state":         sel.String(),
		"a":             req.A,
		"b":             req.B,
		"probabilities": probs,
	})
}

// HandleCHSH handles POST /api/quantum/chsh
func (h *Handler) HandleCHSH(w http.ResponseWriter, r *http.Request) {
	var req CHSHRequest
	if !h.decode(w, r, &req) {
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	angles := req.angles()
	s, err := h.evaluator.CHSH(sel, angles)
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	h.respond(w, map[string]interface{}{
		"state":              sel.String(),
		"angles":             angles,
		"s":                  s,
		"violates_classical": quantum.ViolatesClassicalBound(s),
	})
}

// HandleSimulate handles POST /api/quantum/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req MeasurementRequest
	if !h.decode(w, r, &req) {
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	sim, err := h.evaluator.Simulate(sel, req.A.orientation(), req.B.orientation())
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	h.respond(w, map[string]interface{}{
		"state":      sel.String(),
		"simulation": sim,
	})
}

// HandleCorrelationGrid handles POST /api/quantum/correlation-grid
func (h *Handler) HandleCorrelationGrid(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Resolution > h.maxResolution {
		http.Error(w, fmt.Sprintf("Resolution must not exceed %d", h.maxResolution), http.StatusBadRequest)
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	grid, err := h.evaluator.Grid(sel, req.Resolution, req.PhiA, req.PhiB)
	if err != nil {
		h.writeEvalError(w, err)
		return
	}

	h.respond(w, map[string]interface{}{
		"state":      sel.String(),
		"resolution": req.Resolution,
		"phi_a":      req.PhiA,
		"phi_b":      req.PhiB,
		"rows":       quantum.GridRows(grid),
		"summary":    quantum.SummarizeGrid(grid),
		"axes":       "rows: theta_b from 0 to 2π, columns: theta_a from 0 to 2π",
	})
}

// decode reads and validates a JSON body. It writes the error response and
// returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.log.Debug().Err(err).Msg("Request failed validation")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeEvalError maps evaluator errors to HTTP statuses
func (h *Handler) writeEvalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingState):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, quantum.ErrUnknownState):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quantum.ErrInvalidQuantumState), errors.Is(err, quantum.ErrImaginaryResidue):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Msg("Evaluation failed")
		http.Error(w, "Evaluation failed", http.StatusInternalServerError)
	}
}

// respond wraps data in the standard envelope
func (h *Handler) respond(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
