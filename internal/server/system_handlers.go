package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/entangle/internal/modules/quantum"
	"github.com/aristath/entangle/internal/scheduler"
)

// CacheStatsProvider reports evaluator cache counters
type CacheStatsProvider interface {
	CacheStats() quantum.CacheStats
}

// JobLister reports registered scheduler jobs
type JobLister interface {
	Jobs() []scheduler.JobInfo
}

// SystemHandlers contains system-related HTTP handlers
type SystemHandlers struct {
	log       zerolog.Logger
	cache     CacheStatsProvider
	jobs      JobLister
	version   string
	startedAt time.Time
	statsFunc func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	cache CacheStatsProvider,
	jobs JobLister,
	version string,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		cache:     cache,
		jobs:      jobs,
		version:   version,
		startedAt: time.Now(),
	}
	h.statsFunc = h.getSystemStats
	return h
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string              `json:"status"`
	Version       string              `json:"version"`
	StartedAt     string              `json:"started_at"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	CPUPercent    float64             `json:"cpu_percent"`
	MemoryPercent float64             `json:"memory_percent"`
	Goroutines    int                 `json:"goroutines"`
	Cache         quantum.CacheStats  `json:"cache"`
	Jobs          []scheduler.JobInfo `json:"jobs"`
	Bounds        map[string]float64  `json:"bounds"`
}

// GetSystemStatusSnapshot returns a snapshot of the current system status.
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	cpuPercent, memPercent := h.statsFunc()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       h.version,
		StartedAt:     h.startedAt.Format(time.RFC3339),
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Jobs:          []scheduler.JobInfo{},
		Bounds: map[string]float64{
			"classical": quantum.ClassicalBound,
			"tsirelson": quantum.TsirelsonBound,
		},
	}
	if h.cache != nil {
		response.Cache = h.cache.CacheStats()
	}
	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
	}

	return response
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := h.GetSystemStatusSnapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
