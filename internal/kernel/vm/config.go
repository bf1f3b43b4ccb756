// Package vm implements the demand-paged virtual memory manager: frame
// allocation with uniform-random eviction, per-process page directories,
// the page-fault handler, and the identity-map API, per spec §4.4.
package vm

import (
	"math/rand"

	"github.com/eduos/eduos/internal/metrics"
)

// PageSize is the x86-style 4 KiB page spec §4.4 assumes.
const PageSize = 4096

// SectorsPerPage derives from PageSize/blockdev.SectorSize (4096/512).
const SectorsPerPage = PageSize / 512

// Config parameterizes a Manager. RandSource is injected so tests can pin
// a deterministic eviction sequence (spec §9's "Eviction policy" note:
// "specify the choice in a config struct so tests can pin behavior").
// Metrics is optional; NewManager substitutes a no-op handle when nil.
type Config struct {
	PageablePages int
	RandSource    *rand.Rand
	Metrics       metrics.MetricHandle
}
