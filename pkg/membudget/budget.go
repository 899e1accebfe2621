// Package membudget accounts for the memory a decode is about to allocate.
//
// Palette and index sizes come from untrusted headers, so the decoder
// reserves their byte counts here before allocating and releases them when
// the video is discarded. A reservation that does not fit fails instead of
// letting a hostile header drive the process out of memory.
package membudget

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

// DefaultBudgetBytes is the fallback memory budget when system RAM cannot be detected.
const DefaultBudgetBytes uint64 = 8 * 1024 * 1024 * 1024

// EnvBudget overrides the budget when no CLI value is given.
const EnvBudget = "SPLAT4D_MEM_BUDGET"

// ErrExceeded is returned when a reservation does not fit.
var ErrExceeded = errors.New("memory budget exceeded")

// BudgetSource indicates how the memory budget was determined.
type BudgetSource string

const (
	// BudgetSourceAuto50Pct indicates the budget was set to 50% of detected RAM.
	BudgetSourceAuto50Pct BudgetSource = "auto-50pct"
	// BudgetSourceDefault indicates the budget used the fallback default.
	BudgetSourceDefault BudgetSource = "default"
	// BudgetSourceCLI indicates the budget was set via CLI flag.
	BudgetSourceCLI BudgetSource = "cli"
	// BudgetSourceEnv indicates the budget was set via environment variable.
	BudgetSourceEnv BudgetSource = "env"
	// BudgetSourceConfig indicates the budget came from the config file.
	BudgetSourceConfig BudgetSource = "config"
)

// Budget tracks reserved bytes against a fixed total.
//
// Budget is safe for concurrent use.
type Budget struct {
	total  uint64
	inUse  atomic.Uint64
	source BudgetSource
}

// Config holds configuration for creating a Budget.
type Config struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// Source indicates how the budget was determined.
	Source BudgetSource
}

// New creates a new Budget with the given configuration.
func New(cfg Config) *Budget {
	return &Budget{
		total:  cfg.TotalBytes,
		source: cfg.Source,
	}
}

// NewFromSystemRAM creates a Budget set to 50% of system RAM.
// If RAM cannot be detected, uses DefaultBudgetBytes.
func NewFromSystemRAM() *Budget {
	if ram, ok := totalSystemMemory(); ok && ram > 0 {
		return New(Config{TotalBytes: ram / 2, Source: BudgetSourceAuto50Pct})
	}
	return New(Config{TotalBytes: DefaultBudgetBytes, Source: BudgetSourceDefault})
}

// Resolve picks the budget by precedence: CLI value, then the
// SPLAT4D_MEM_BUDGET environment variable, then the config file value,
// then 50% of system RAM. Empty strings are skipped.
func Resolve(cliValue, configValue string) (*Budget, error) {
	candidates := []struct {
		value  string
		source BudgetSource
	}{
		{cliValue, BudgetSourceCLI},
		{os.Getenv(EnvBudget), BudgetSourceEnv},
		{configValue, BudgetSourceConfig},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		n, err := ParseHumanSize(c.value)
		if err != nil {
			return nil, fmt.Errorf("parse %s memory budget %q: %w", c.source, c.value, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%s memory budget must be positive", c.source)
		}
		return New(Config{TotalBytes: n, Source: c.source}), nil
	}
	return NewFromSystemRAM(), nil
}

// Total returns the total budget in bytes.
func (b *Budget) Total() uint64 {
	return b.total
}

// InUse returns the currently reserved bytes.
func (b *Budget) InUse() uint64 {
	return b.inUse.Load()
}

// Available returns the available bytes (total - inUse).
func (b *Budget) Available() uint64 {
	inUse := b.inUse.Load()
	if inUse >= b.total {
		return 0
	}
	return b.total - inUse
}

// Source returns how the budget was determined.
func (b *Budget) Source() BudgetSource {
	return b.source
}

// TryReserve attempts to reserve n bytes.
// Returns true if successful, false if it would exceed the budget.
func (b *Budget) TryReserve(n uint64) bool {
	for {
		current := b.inUse.Load()
		newTotal := current + n
		if newTotal < current || newTotal > b.total {
			return false
		}
		if b.inUse.CompareAndSwap(current, newTotal) {
			return true
		}
	}
}

// Reserve is TryReserve with an error naming the shortfall.
func (b *Budget) Reserve(n uint64) error {
	if !b.TryReserve(n) {
		return fmt.Errorf("%w: need %s, available %s of %s",
			ErrExceeded, FormatBytes(n), FormatBytes(b.Available()), FormatBytes(b.total))
	}
	return nil
}

// Release returns n bytes to the available pool.
func (b *Budget) Release(n uint64) {
	for {
		current := b.inUse.Load()
		next := current - n
		if n > current {
			next = 0
		}
		if b.inUse.CompareAndSwap(current, next) {
			return
		}
	}
}

// Stats is a point-in-time snapshot of a Budget.
type Stats struct {
	TotalBytes     uint64
	InUseBytes     uint64
	AvailableBytes uint64
	Source         BudgetSource
	UsagePercent   float64
}

// Stats returns current budget statistics.
func (b *Budget) Stats() Stats {
	inUse := b.inUse.Load()
	var usagePct float64
	if b.total > 0 {
		usagePct = float64(inUse) / float64(b.total) * 100.0
	}
	return Stats{
		TotalBytes:     b.total,
		InUseBytes:     inUse,
		AvailableBytes: b.Available(),
		Source:         b.source,
		UsagePercent:   usagePct,
	}
}

// ParseHumanSize parses a human-readable size string (e.g., "4GiB", "512MB").
// Supported suffixes: B, KB, KiB, MB, MiB, GB, GiB, TB, TiB.
func ParseHumanSize(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty size string")
	}

	numEnd := 0
	for i, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			numEnd = i
			break
		}
		numEnd = i + 1
	}

	numStr := s[:numEnd]
	suffix := s[numEnd:]

	var num float64
	if _, err := fmt.Sscanf(numStr, "%f", &num); err != nil {
		return 0, fmt.Errorf("invalid number: %s", numStr)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1.0
	case "KB":
		multiplier = 1000
	case "KiB", "K":
		multiplier = 1024
	case "MB":
		multiplier = 1000 * 1000
	case "MiB", "M":
		multiplier = 1024 * 1024
	case "GB":
		multiplier = 1000 * 1000 * 1000
	case "GiB", "G":
		multiplier = 1024 * 1024 * 1024
	case "TB":
		multiplier = 1000 * 1000 * 1000 * 1000
	case "TiB", "T":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	return uint64(num * multiplier), nil
}

// FormatBytes formats a byte count as a human-readable string.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
