package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/entangle/internal/modules/quantum"
)

// CacheResetter is the part of the evaluator the cache reset job needs.
// Used by scheduler to enable testing with mocks
type CacheResetter interface {
	ResetCache()
	CacheStats() quantum.CacheStats
}

// SelfChecker is the part of the evaluator the self-check job needs.
// Used by scheduler to enable testing with mocks
type SelfChecker interface {
	SelfCheck() error
}

// CacheResetJob drops memoised evaluations
type CacheResetJob struct {
	cache CacheResetter
	log   zerolog.Logger
}

// NewCacheResetJob creates a new cache reset job
func NewCacheResetJob(cache CacheResetter, log zerolog.Logger) *CacheResetJob {
	return &CacheResetJob{
		cache: cache,
		log:   log.With().Str("job", "cache_reset").Logger(),
	}
}

// Name returns the job name
func (j *CacheResetJob) Name() string {
	return "cache_reset"
}

// Run executes the job
func (j *CacheResetJob) Run() error {
	before := j.cache.CacheStats()
	if !before.Enabled {
		return nil
	}

	j.cache.ResetCache()
	j.log.Info().
		Uint64("hits", before.Hits).
		Uint64("misses", before.Misses).
		Msg("Evaluation cache cleared")
	return nil
}

// SelfCheckJob re-verifies the catalog, projector completeness and the
// Tsirelson reference value
type SelfCheckJob struct {
	checker SelfChecker
	log     zerolog.Logger
}

// NewSelfCheckJob creates a new self-check job
func NewSelfCheckJob(checker SelfChecker, log zerolog.Logger) *SelfCheckJob {
	return &SelfCheckJob{
		checker: checker,
		log:     log.With().Str("job", "self_check").Logger(),
	}
}

// Name returns the job name
func (j *SelfCheckJob) Name() string {
	return "self_check"
}

// Run executes the job
func (j *SelfCheckJob) Run() error {
	if err := j.checker.SelfCheck(); err != nil {
		return fmt.Errorf("evaluator self-check failed: %w", err)
	}
	j.log.Debug().Msg("Evaluator self-check passed")
	return nil
}
