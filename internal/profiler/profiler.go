// Package profiler implements the Profiler: a single process-wide
// opaque object of atomic fields that records the empirical size
// distribution and peak live-allocation count of a host process, then
// persists both as a DistributionArtifact on finalization.
package profiler

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/nicovank/litterer/internal/artifact"
	"github.com/nicovank/litterer/internal/envutil"
	"github.com/nicovank/litterer/internal/sizeclass"
)

// State holds the profiler's process-wide mutable state. All fields are
// touched from any thread that calls into the host allocator, so every
// one of them is atomic; there are no locks (lock acquisition may itself
// allocate, which the observer must never do).
type State struct {
	initialized atomic.Bool

	sizeClasses sizeclass.Table
	bins        []atomic.Uint64

	overflowEnabled bool
	overflow        atomic.Uint64

	current atomic.Int64
	max     atomic.Int64

	dataFilename string
}

// Global is the single instance wired to the cgo-exported malloc-family
// symbols in cmd/profiler.
var Global = &State{}

// Config parameterizes Init.
type Config struct {
	SizeClasses     sizeclass.Table
	DataFilename    string
	OverflowEnabled bool

	// PreloadBins, when non-nil, seeds bins with a previously recorded
	// artifact's counts (LITTER_DETECTOR_APPEND). Its length must match
	// SizeClasses.
	PreloadBins []uint64
}

// Init brings up the profiler for a fresh process lifetime. It must be
// called exactly once before any Observe* call is made.
func (s *State) Init(cfg Config) error {
	if err := cfg.SizeClasses.Validate(); err != nil {
		return err
	}

	bins := make([]atomic.Uint64, len(cfg.SizeClasses))
	if cfg.PreloadBins != nil {
		if len(cfg.PreloadBins) != len(bins) {
			return fmt.Errorf("profiler: preloaded bins length %d does not match size classes length %d", len(cfg.PreloadBins), len(bins))
		}
		for i, v := range cfg.PreloadBins {
			bins[i].Store(v)
		}
	}

	s.sizeClasses = cfg.SizeClasses
	s.bins = bins
	s.overflowEnabled = cfg.OverflowEnabled
	s.dataFilename = cfg.DataFilename
	s.current.Store(0)
	s.max.Store(0)
	s.overflow.Store(0)

	// initialized is set last: no bin is ever written before
	// initialization completes.
	s.initialized.Store(true)
	return nil
}

// InitFromEnv reads LITTER_DATA_FILENAME, LITTER_DETECTOR_APPEND,
// LITTER_SIZE_CLASSES, and LITTER_OVERFLOW_BIN and calls Init
// accordingly, exactly as the original's scoped Initialization
// constructor reads std::getenv at load time.
func (s *State) InitFromEnv() error {
	dataFilename := envutil.String("LITTER_DATA_FILENAME", "distribution.json")

	overflowEnabled, err := envutil.Bool("LITTER_OVERFLOW_BIN", true)
	if err != nil {
		return err
	}

	appendMode, err := envutil.Bool("LITTER_DETECTOR_APPEND", false)
	if err != nil {
		return err
	}
	if appendMode {
		if _, statErr := os.Stat(dataFilename); statErr == nil {
			existing, loadErr := artifact.Load(dataFilename)
			if loadErr != nil {
				return loadErr
			}
			return s.Init(Config{
				SizeClasses:     existing.SizeClasses,
				DataFilename:    dataFilename,
				OverflowEnabled: overflowEnabled,
				PreloadBins:     existing.Bins,
			})
		}
	}

	scheme := envutil.String("LITTER_SIZE_CLASSES", "under-4096")
	table, err := sizeclass.New(scheme)
	if err != nil {
		return err
	}
	return s.Init(Config{
		SizeClasses:     table,
		DataFilename:    dataFilename,
		OverflowEnabled: overflowEnabled,
	})
}

// ObserveAllocation records a request of size s. newlyLive is false only
// for a reallocation's size sample, which reuses an existing logical
// slot rather than creating a new one.
func (s *State) ObserveAllocation(size uint64, newlyLive bool) {
	if size == 0 {
		return
	}
	if !s.initialized.Load() {
		return
	}

	idx, overflow := s.sizeClasses.IndexFor(size)
	if overflow {
		if s.overflowEnabled {
			s.overflow.Add(1)
		}
	} else {
		s.bins[idx].Add(1)
	}

	if newlyLive {
		live := s.current.Add(1)
		for {
			m := s.max.Load()
			if live <= m {
				break
			}
			if s.max.CompareAndSwap(m, live) {
				break
			}
		}
	}
}

// ObserveRelease records the release of ptr. A null pointer is a no-op.
func (s *State) ObserveRelease(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if !s.initialized.Load() {
		return
	}
	s.current.Add(-1)
}

// ObserveReallocation records a reallocation of oldPtr to newSize.
// Reallocation from a null pointer is equivalent to a fresh allocation
// and must increment the live count (edge case c); reallocation to size
// zero is treated as a release and is not binned (edge case d).
func (s *State) ObserveReallocation(oldPtr unsafe.Pointer, newSize uint64) {
	if !s.initialized.Load() {
		return
	}
	if newSize == 0 {
		if oldPtr != nil {
			s.current.Add(-1)
		}
		return
	}
	s.ObserveAllocation(newSize, oldPtr == nil)
}

// ObserveZeroedAllocation records a calloc(n, s) request as a single
// request of size n*s, newly live.
func (s *State) ObserveZeroedAllocation(n, size uint64) {
	s.ObserveAllocation(n*size, true)
}

// ObserveAlignedAllocation records a posix_memalign/aligned_alloc
// request of the given size, newly live. Alignment is not recorded.
func (s *State) ObserveAlignedAllocation(size uint64) {
	s.ObserveAllocation(size, true)
}

// Finalize clears the initialized flag (so any allocator calls made
// during process teardown are no longer observed) and serializes a
// DistributionArtifact to the configured output path.
func (s *State) Finalize() error {
	s.initialized.Store(false)

	bins := make([]uint64, len(s.bins))
	for i := range s.bins {
		bins[i] = s.bins[i].Load()
	}

	art := &artifact.DistributionArtifact{
		SizeClasses:        s.sizeClasses,
		Bins:               bins,
		MaxLiveAllocations: s.max.Load(),
	}
	if s.overflowEnabled {
		overflow := s.overflow.Load()
		art.Ignored = &overflow
	}

	return art.Save(s.dataFilename)
}
