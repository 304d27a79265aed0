package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	goruntime "runtime"
	"time"

	"courier/runtime"

	"github.com/shirou/gopsutil/process"
)

// StatsHandler reports live process and registry figures for the debug
// dashboard.
type StatsHandler struct {
	log       *slog.Logger
	registry  *runtime.Registry
	startedAt time.Time
}

func NewStatsHandler(log *slog.Logger, registry *runtime.Registry) *StatsHandler {
	return &StatsHandler{log: log, registry: registry, startedAt: time.Now().UTC()}
}

type statsResponse struct {
	Sessions      int     `json:"sessions"`
	Goroutines    int     `json:"goroutines"`
	AllocMemMb    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	RssMb         uint64  `json:"rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var memStats goruntime.MemStats
	goruntime.ReadMemStats(&memStats)

	stats := statsResponse{
		Sessions:      h.registry.SessionCount(),
		Goroutines:    goruntime.NumGoroutine(),
		AllocMemMb:    memStats.Alloc / 1024 / 1024,
		NumGC:         memStats.NumGC,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			stats.RssMb = memInfo.RSS / 1024 / 1024
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.log.Debug("Encoding stats failed", "error", err)
	}
}
