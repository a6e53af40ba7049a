package quantum

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/mat"
)

// Options configures an Evaluator.
type Options struct {
	// Strict validates states and every constructed operator before use.
	Strict bool
	// CacheSize bounds the number of memoised results. Zero disables the cache.
	CacheSize int64
	// Tolerance is the absolute tolerance for norms, operator checks and
	// imaginary residues.
	Tolerance float64
}

// DefaultOptions returns strict validation with a 4096-entry cache.
func DefaultOptions() Options {
	return Options{
		Strict:    true,
		CacheSize: 4096,
		Tolerance: DefaultTolerance,
	}
}

// Simulation is what the simulator recomputes on every parameter change:
// joint probabilities at (a, b) and CHSH at the canonical rotation of (a, b).
type Simulation struct {
	Probabilities Outcomes   `json:"probabilities" msgpack:"probabilities"`
	CHSH          float64    `json:"chsh" msgpack:"chsh"`
	Violates      bool       `json:"violates_classical" msgpack:"violates_classical"`
	Angles        CHSHAngles `json:"angles" msgpack:"angles"`
}

// CacheStats reports memo cache activity since the last reset.
type CacheStats struct {
	Enabled bool   `json:"enabled"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Resets  uint64 `json:"resets"`
}

type cachedResult struct {
	probs Outcomes
	value float64
}

// Evaluator is the checked entry point to the engine. It resolves states,
// validates inputs, rejects imaginary residues and memoises results by their
// full input tuple. It is safe for concurrent use.
type Evaluator struct {
	opts   Options
	cache  *ristretto.Cache[string, cachedResult]
	flight singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
	resets atomic.Uint64
	log    zerolog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts Options, log zerolog.Logger) (*Evaluator, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	e := &Evaluator{
		opts: opts,
		log:  log.With().Str("component", "quantum_evaluator").Logger(),
	}

	if opts.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, cachedResult]{
			NumCounters:        opts.CacheSize * 10,
			MaxCost:            opts.CacheSize,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		e.cache = cache
	}

	return e, nil
}

// Close releases the cache.
func (e *Evaluator) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Expectation returns E(a, b) for the state.
func (e *Evaluator) Expectation(spec StateSpec, a, b Orientation) (float64, error) {
	key := "E|" + spec.String() + "|" + angleKey(a, b)
	res, err := e.memo("expectation", key, func() (cachedResult, error) {
		state, err := e.prepare(spec, a, b)
		if err != nil {
			return cachedResult{}, err
		}
		z := expectation(state, a, b)
		if err := e.checkResidue(z); err != nil {
			return cachedResult{}, err
		}
		return cachedResult{value: real(z)}, nil
	})
	return res.value, err
}

// Probabilities returns the joint outcome probabilities at (a, b).
func (e *Evaluator) Probabilities(spec StateSpec, a, b Orientation) (Outcomes, error) {
	key := "P|" + spec.String() + "|" + angleKey(a, b)
	res, err := e.memo("probabilities", key, func() (cachedResult, error) {
		state, err := e.prepare(spec, a, b)
		if err != nil {
			return cachedResult{}, err
		}
		if e.opts.Strict {
			for _, p := range JointProjectors(a, b) {
				if err := ValidateProjector(p, e.opts.Tolerance); err != nil {
					return cachedResult{}, err
				}
			}
		}
		amps := jointAmplitudes(state, a, b)
		for _, z := range amps {
			if err := e.checkResidue(z); err != nil {
				return cachedResult{}, err
			}
		}
		return cachedResult{probs: Outcomes{
			PP: real(amps[OutcomePP]),
			PM: real(amps[OutcomePM]),
			MP: real(amps[OutcomeMP]),
			MM: real(amps[OutcomeMM]),
		}}, nil
	})
	return res.probs, err
}

// CHSH returns the CHSH statistic for the four settings.
func (e *Evaluator) CHSH(spec StateSpec, angles CHSHAngles) (float64, error) {
	key := "S|" + spec.String() + "|" + angleKey(angles.A, angles.APrime, angles.B, angles.BPrime)
	res, err := e.memo("chsh", key, func() (cachedResult, error) {
		state, err := e.prepare(spec, angles.A, angles.APrime, angles.B, angles.BPrime)
		if err != nil {
			return cachedResult{}, err
		}
		terms := chshTerms(state, angles)
		for _, z := range terms {
			if err := e.checkResidue(z); err != nil {
				return cachedResult{}, err
			}
		}
		s := real(terms[0]) - real(terms[1]) + real(terms[2]) + real(terms[3])
		return cachedResult{value: math.Abs(s)}, nil
	})
	return res.value, err
}

// Simulate evaluates probabilities at (a, b) and CHSH at CanonicalAngles(a, b).
func (e *Evaluator) Simulate(spec StateSpec, a, b Orientation) (Simulation, error) {
	probs, err := e.Probabilities(spec, a, b)
	if err != nil {
		return Simulation{}, err
	}
	angles := CanonicalAngles(a, b)
	s, err := e.CHSH(spec, angles)
	if err != nil {
		return Simulation{}, err
	}
	return Simulation{
		Probabilities: probs,
		CHSH:          s,
		Violates:      ViolatesClassicalBound(s),
		Angles:        angles,
	}, nil
}

// Grid samples the correlation surface of the state. Grids are not cached.
func (e *Evaluator) Grid(spec StateSpec, resolution int, phiA, phiB float64) (*mat.Dense, error) {
	start := time.Now()
	defer func() {
		evaluationDuration.WithLabelValues("grid").Observe(time.Since(start).Seconds())
	}()

	if resolution < 2 {
		evaluationsTotal.WithLabelValues("grid", "error").Inc()
		return nil, fmt.Errorf("resolution must be at least 2, got %d", resolution)
	}
	state, err := e.prepare(spec)
	if err != nil {
		evaluationsTotal.WithLabelValues("grid", "error").Inc()
		return nil, err
	}
	evaluationsTotal.WithLabelValues("grid", "success").Inc()
	return CorrelationGrid(state, resolution, phiA, phiB), nil
}

// SelfCheck verifies the catalog and the reference CHSH value. It is run
// periodically by the scheduler.
func (e *Evaluator) SelfCheck() error {
	var errs []error
	for _, entry := range catalog {
		if err := ValidateState(entry.Vector, e.opts.Tolerance); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
		}
	}

	a := Orientation{Theta: 0.3, Phi: 1.1}
	b := Orientation{Theta: 2.2, Phi: 4.0}
	var sum Matrix4
	for _, p := range JointProjectors(a, b) {
		sum = sum.Add(p)
	}
	if !sum.ApproxEqual(Identity4, e.opts.Tolerance) {
		errs = append(errs, fmt.Errorf("%w: joint projectors do not sum to identity", ErrInvalidQuantumState))
	}

	if s := CHSH(PhiPlus, ReferenceAngles()); math.Abs(s-TsirelsonBound) > 1e-6 {
		errs = append(errs, fmt.Errorf("reference CHSH for %s is %g, want %g", StatePhiPlus, s, TsirelsonBound))
	}

	if err := errors.Join(errs...); err != nil {
		e.log.Error().Err(err).Msg("Self-check failed")
		return err
	}
	e.log.Debug().Int("states", len(catalog)).Msg("Self-check passed")
	return nil
}

// ResetCache drops all memoised results.
func (e *Evaluator) ResetCache() {
	if e.cache == nil {
		return
	}
	e.cache.Clear()
	e.resets.Add(1)
	e.log.Debug().
		Uint64("hits", e.hits.Load()).
		Uint64("misses", e.misses.Load()).
		Msg("Result cache cleared")
}

// CacheStats returns cache counters.
func (e *Evaluator) CacheStats() CacheStats {
	return CacheStats{
		Enabled: e.cache != nil,
		Hits:    e.hits.Load(),
		Misses:  e.misses.Load(),
		Resets:  e.resets.Load(),
	}
}

// prepare resolves the state and, in strict mode, validates it together with
// the spin observables for each orientation.
func (e *Evaluator) prepare(spec StateSpec, orientations ...Orientation) (Vector4, error) {
	state, err := spec.Resolve()
	if err != nil {
		return Vector4{}, err
	}
	if !e.opts.Strict {
		return state, nil
	}
	if err := ValidateState(state, e.opts.Tolerance); err != nil {
		return Vector4{}, err
	}
	for _, o := range orientations {
		if err := ValidateObservable(SpinOperator(o.Theta, o.Phi), e.opts.Tolerance); err != nil {
			return Vector4{}, fmt.Errorf("orientation (%g, %g): %w", o.Theta, o.Phi, err)
		}
	}
	return state, nil
}

func (e *Evaluator) checkResidue(z complex128) error {
	if math.Abs(imag(z)) > e.opts.Tolerance {
		return fmt.Errorf("%w: %g", ErrImaginaryResidue, imag(z))
	}
	return nil
}

func (e *Evaluator) memo(op, key string, compute func() (cachedResult, error)) (cachedResult, error) {
	start := time.Now()
	defer func() {
		evaluationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			e.hits.Add(1)
			cacheLookups.WithLabelValues("hit").Inc()
			evaluationsTotal.WithLabelValues(op, "success").Inc()
			return v, nil
		}
		e.misses.Add(1)
		cacheLookups.WithLabelValues("miss").Inc()
	}

	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			e.cache.Set(key, res, 1)
			e.cache.Wait()
		}
		return res, nil
	})
	if err != nil {
		evaluationsTotal.WithLabelValues(op, "error").Inc()
		e.log.Warn().Err(err).Str("operation", op).Str("key", key).Msg("Evaluation rejected")
		return cachedResult{}, err
	}

	evaluationsTotal.WithLabelValues(op, "success").Inc()
	return v.(cachedResult), nil
}
