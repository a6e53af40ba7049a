package quantum

import (
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T, opts Options) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(opts, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEvaluator_ProbabilitiesMatchCore(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	a := Orientation{Theta: 0.3, Phi: 1.2}
	b := Orientation{Theta: 2.1, Phi: 0.4}

	for _, entry := range Catalog() {
		t.Run(string(entry.Name), func(t *testing.T) {
			got, err := e.Probabilities(CatalogState(entry.Name), a, b)
			require.NoError(t, err)

			assert.Equal(t, JointProbabilities(entry.Vector, a.Theta, a.Phi, b.Theta, b.Phi), got)
			assert.InDelta(t, 1.0, got.Sum(), 1e-9)
		})
	}
}

func TestEvaluator_Expectation(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	got, err := e.Expectation(CatalogState(StateProduct00), Orientation{Theta: 0.5}, Orientation{Theta: 1.5})

	require.NoError(t, err)
	assert.InDelta(t, math.Cos(0.5)*math.Cos(1.5), got, 1e-12)
}

func TestEvaluator_CHSH(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	s, err := e.CHSH(CatalogState(StatePhiPlus), ReferenceAngles())

	require.NoError(t, err)
	assert.InDelta(t, TsirelsonBound, s, 1e-6)
}

func TestEvaluator_AcceptsSymbols(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	s, err := e.CHSH(CatalogState("Φ+"), ReferenceAngles())

	require.NoError(t, err)
	assert.InDelta(t, TsirelsonBound, s, 1e-6)
}

func TestEvaluator_UnknownState(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	_, err := e.Probabilities(CatalogState("ghz"), Orientation{}, Orientation{})
	assert.ErrorIs(t, err, ErrUnknownState)

	_, err = e.CHSH(CatalogState("w_state"), ReferenceAngles())
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestEvaluator_ProductState(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	a := Orientation{Theta: 1.0, Phi: 0.5}
	b := Orientation{Theta: 2.0, Phi: -0.3}

	p, err := e.Probabilities(ProductOf(a, b), a, b)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.PP, 1e-12)
}

func TestEvaluator_Simulate(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	a := Orientation{Theta: 0}
	b := Orientation{Theta: math.Pi / 4}

	sim, err := e.Simulate(CatalogState(StatePhiPlus), a, b)

	require.NoError(t, err)
	assert.InDelta(t, (1+math.Cos(math.Pi/4))/4, sim.Probabilities.PP, 1e-12)
	assert.InDelta(t, CHSH(PhiPlus, CanonicalAngles(a, b)), sim.CHSH, 1e-15)
	assert.False(t, sim.Violates)
	assert.Equal(t, CanonicalAngles(a, b), sim.Angles)
}

func TestEvaluator_CacheReturnsIdenticalResults(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	a := Orientation{Theta: 0.77, Phi: 3.1}
	b := Orientation{Theta: 1.91, Phi: 0.2}

	first, err := e.Probabilities(CatalogState(StatePsiPlus), a, b)
	require.NoError(t, err)
	second, err := e.Probabilities(CatalogState(StatePsiPlus), a, b)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	stats := e.CacheStats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits+stats.Misses)
}

func TestEvaluator_CacheDistinguishesAngles(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	first, err := e.Expectation(CatalogState(StatePhiPlus), Orientation{Theta: 0.1}, Orientation{Theta: 0.2})
	require.NoError(t, err)
	second, err := e.Expectation(CatalogState(StatePhiPlus), Orientation{Theta: 0.1}, Orientation{Theta: 0.2000000001})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, uint64(2), e.CacheStats().Misses)
}

func TestEvaluator_ResetCache(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	a := Orientation{Theta: 0.5}

	_, err := e.Expectation(CatalogState(StatePhiMinus), a, a)
	require.NoError(t, err)

	e.ResetCache()
	_, err = e.Expectation(CatalogState(StatePhiMinus), a, a)
	require.NoError(t, err)

	stats := e.CacheStats()
	assert.Equal(t, uint64(1), stats.Resets)
	assert.Equal(t, uint64(2), stats.Misses)
}

func TestEvaluator_CacheDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.CacheSize = 0
	e := newTestEvaluator(t, opts)

	_, err := e.Expectation(CatalogState(StatePhiPlus), Orientation{}, Orientation{})
	require.NoError(t, err)
	e.ResetCache()

	stats := e.CacheStats()
	assert.False(t, stats.Enabled)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Resets)
}

func TestEvaluator_ConcurrentCallsAgree(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())
	angles := CanonicalAngles(Orientation{Theta: 0.4, Phi: 0.9}, Orientation{Theta: 1.3, Phi: 2.2})
	expected := CHSH(PsiMinus, angles)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.CHSH(CatalogState(StatePsiMinus), angles)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, expected, results[i])
	}
}

func TestEvaluator_Grid(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	grid, err := e.Grid(CatalogState(StatePsiMinus), 6, 0, 0)
	require.NoError(t, err)
	rows, cols := grid.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 6, cols)

	_, err = e.Grid(CatalogState(StatePsiMinus), 0, 0, 0)
	assert.Error(t, err)

	_, err = e.Grid(CatalogState("nope"), 4, 0, 0)
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestEvaluator_SelfCheck(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	assert.NoError(t, e.SelfCheck())
}

func TestEvaluator_CheckResidue(t *testing.T) {
	e := newTestEvaluator(t, DefaultOptions())

	assert.NoError(t, e.checkResidue(complex(0.5, 1e-13)))
	assert.ErrorIs(t, e.checkResidue(complex(0.5, 1e-3)), ErrImaginaryResidue)
}

func TestEvaluator_DefaultTolerance(t *testing.T) {
	e := newTestEvaluator(t, Options{Strict: true})

	assert.Equal(t, DefaultTolerance, e.opts.Tolerance)
}
