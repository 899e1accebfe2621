// Package memdiag samples runtime memory statistics and compares them with
// the decode budget.
//
// Enable sampling with SPLAT4D_MEM_DEBUG=1. SPLAT4D_MEM_PPROF=1 also serves
// pprof on SPLAT4D_MEM_PPROF_ADDR (default localhost:6060).
package memdiag

import (
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	// Registers pprof handlers on DefaultServeMux for the pprof HTTP server.
	_ "net/http/pprof"

	"github.com/eunmann/splat4d/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvDebug     = "SPLAT4D_MEM_DEBUG"
	EnvPprof     = "SPLAT4D_MEM_PPROF"
	EnvPprofAddr = "SPLAT4D_MEM_PPROF_ADDR"
)

// Config controls the tracker.
type Config struct {
	Enabled      bool
	PprofEnabled bool
	PprofAddr    string
	// LogInterval is the period between samples. Zero disables the
	// periodic loop; explicit samples still log.
	LogInterval time.Duration
}

// ConfigFromEnv reads the tracker configuration from the environment.
func ConfigFromEnv() Config {
	addr := os.Getenv(EnvPprofAddr)
	if addr == "" {
		addr = "localhost:6060"
	}
	return Config{
		Enabled:      os.Getenv(EnvDebug) == "1",
		PprofEnabled: os.Getenv(EnvPprof) == "1",
		PprofAddr:    addr,
		LogInterval:  5 * time.Second,
	}
}

// Stats is the subset of runtime.MemStats the tracker reports.
type Stats struct {
	HeapAlloc  uint64
	HeapSys    uint64
	HeapInuse  uint64
	StackInuse uint64
	Sys        uint64
	NumGC      uint32
}

// Read samples the runtime.
func Read() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		HeapInuse:  m.HeapInuse,
		StackInuse: m.StackInuse,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// Tracker logs memory samples tagged with the current phase and keeps the
// peak heap seen. A disabled tracker does nothing.
type Tracker struct {
	config  Config
	log     zerolog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool

	mu       sync.Mutex
	phase    string
	peakHeap uint64
}

// NewTracker creates a tracker that logs to log.
func NewTracker(config Config, log zerolog.Logger) *Tracker {
	return &Tracker{
		config: config,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		phase:  "init",
	}
}

// Enabled reports whether samples are logged.
func (t *Tracker) Enabled() bool {
	return t.config.Enabled
}

// Start begins periodic sampling and the pprof server, if configured.
// Calling Start more than once has no effect.
func (t *Tracker) Start() {
	if !t.config.Enabled || !t.started.CompareAndSwap(false, true) {
		return
	}
	t.log.Info().Msg("memory diagnostics enabled")

	if t.config.PprofEnabled {
		go func() {
			t.log.Info().Str("addr", t.config.PprofAddr).Msg("starting pprof server")
			if err := http.ListenAndServe(t.config.PprofAddr, nil); err != nil {
				t.log.Error().Err(err).Msg("pprof server failed")
			}
		}()
	}

	if t.config.LogInterval <= 0 {
		close(t.doneCh)
		return
	}
	go t.loop()
}

// Stop ends periodic sampling and logs a final sample.
func (t *Tracker) Stop() {
	if !t.started.CompareAndSwap(true, false) {
		return
	}
	close(t.stopCh)
	<-t.doneCh
	t.Sample("shutdown")
}

// SetPhase tags subsequent samples and logs one immediately.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	t.phase = phase
	t.mu.Unlock()
	t.Sample("phase_change")
}

// Sample logs the current statistics.
func (t *Tracker) Sample(reason string) {
	if !t.config.Enabled {
		return
	}
	stats, phase, peak := t.read()
	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.BytesUint64(stats.HeapAlloc)).
		Str("heap_inuse", humanfmt.BytesUint64(stats.HeapInuse)).
		Str("stack_inuse", humanfmt.BytesUint64(stats.StackInuse)).
		Str("sys_total", humanfmt.BytesUint64(stats.Sys)).
		Str("peak_heap", humanfmt.BytesUint64(peak)).
		Uint32("num_gc", stats.NumGC).
		Msg("memory stats")
}

// SampleWithBudget logs the heap next to the budget reservation. A heap
// more than twice the reservation, once the reservation passes 64 MiB,
// is logged as a warning.
func (t *Tracker) SampleWithBudget(reason string, budgetInUse, budgetTotal uint64) {
	if !t.config.Enabled {
		return
	}
	stats, phase, peak := t.read()

	var ratio float64
	if budgetInUse > 0 {
		ratio = float64(stats.HeapAlloc) / float64(budgetInUse)
	}
	t.log.Debug().
		Str("reason", reason).
		Str("phase", phase).
		Str("heap_alloc", humanfmt.BytesUint64(stats.HeapAlloc)).
		Str("budget_inuse", humanfmt.BytesUint64(budgetInUse)).
		Str("budget_total", humanfmt.BytesUint64(budgetTotal)).
		Float64("heap_vs_budget", ratio).
		Str("peak_heap", humanfmt.BytesUint64(peak)).
		Msg("memory stats with budget")

	if ratio > 2.0 && budgetInUse > 64*humanfmt.MiB {
		t.log.Warn().
			Str("heap_alloc", humanfmt.BytesUint64(stats.HeapAlloc)).
			Str("budget_inuse", humanfmt.BytesUint64(budgetInUse)).
			Float64("ratio", ratio).
			Msg("heap well above budget reservation")
	}
}

// PeakHeap returns the largest heap allocation sampled.
func (t *Tracker) PeakHeap() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peakHeap
}

func (t *Tracker) read() (Stats, string, uint64) {
	stats := Read()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peakHeap = max(t.peakHeap, stats.HeapAlloc)
	return stats, t.phase, t.peakHeap
}

func (t *Tracker) loop() {
	defer close(t.doneCh)
	ticker := time.NewTicker(t.config.LogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.Sample("periodic")
		}
	}
}
