// Package litterer implements the Litterer: it reads a
// DistributionArtifact, synthesizes a population of heap objects drawn
// from the recorded distribution, frees a controllable subset of them
// in a controllable order, and issues a marker syscall before returning
// control to the host application.
package litterer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"sort"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nicovank/litterer/internal/artifact"
	"github.com/nicovank/litterer/internal/log"
)

// Allocator is the host allocator the Litterer drives directly,
// bypassing any interposed symbol (the draw loop must reach the real
// allocator, never re-enter the observer).
type Allocator interface {
	Malloc(size uintptr) unsafe.Pointer
	Free(ptr unsafe.Pointer)
}

// Plan is the derived, transient structure built from a
// DistributionArtifact: the cumulative-sum vector used for inverse-CDF
// sampling, the target population size N, and the number of releases F.
type Plan struct {
	Cumulative []uint64
	Total      uint64
	N          uint64
	F          uint64
}

// BuildPlan computes a Plan for art under cfg. It fails if the artifact
// records no allocations at all, since no size could ever be drawn.
func BuildPlan(art *artifact.DistributionArtifact, cfg Config) (*Plan, error) {
	cum := artifact.CumulativeSum(art.Bins)
	total := artifact.Total(cum)
	if total == 0 {
		return nil, fmt.Errorf("litterer: artifact %s records no allocations", cfg.DataFilename)
	}

	n := uint64(art.MaxLiveAllocations) * uint64(cfg.Multiplier)
	f := uint64(float64(n) * (1 - cfg.Occupancy))

	return &Plan{Cumulative: cum, Total: total, N: n, F: f}, nil
}

// Result summarizes a completed run, for the human-readable log.
type Result struct {
	N       uint64
	F       uint64
	Elapsed time.Duration
}

// newRand builds a math/rand/v2 generator seeded from cfg, or from OS
// entropy when no seed was configured (mirroring std::random_device).
//
// This module uses rand/v2's PCG generator rather than the original's
// std::mt19937_64: PCG is not bit-for-bit identical to MT19937, so a
// given LITTER_SEED does not reproduce the same draw sequence as the
// C++ binary, only the same sequence across runs of this Go
// implementation.
func newRand(cfg Config) *mathrand.Rand {
	seed1, seed2 := cfg.Seed, cfg.Seed
	if !cfg.HasSeed {
		seed1 = entropyUint64()
		seed2 = entropyUint64()
	}
	return mathrand.New(mathrand.NewPCG(seed1, seed2))
}

func entropyUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on a supported platform does not fail; if it
		// somehow does, fall back to a fixed seed rather than panicking.
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Run executes the littering algorithm on an already loaded artifact:
// build the plan, draw sizes, select addresses to free, release,
// optional sleep, marker syscall. Loading the artifact from disk is the
// caller's job (artifact.Load).
func Run(cfg Config, art *artifact.DistributionArtifact, alloc Allocator) (*Result, error) {
	plan, err := BuildPlan(art, cfg)
	if err != nil {
		return nil, err
	}

	rng := newRand(cfg)
	start := time.Now()

	objects := make([]unsafe.Pointer, plan.N)
	for i := range objects {
		u := rng.Uint64N(plan.Total) + 1
		idx := artifact.SampleIndex(plan.Cumulative, u)
		objects[i] = alloc.Malloc(uintptr(art.SizeClasses[idx]))
	}

	switch {
	case cfg.Shuffle:
		partialShuffle(objects, plan.F, rng)
	case cfg.Sort:
		sortDescending(objects)
	}

	for i := uint64(0); i < plan.F; i++ {
		alloc.Free(objects[i])
	}

	elapsed := time.Since(start)

	if cfg.SleepSeconds > 0 {
		log.Info("sleeping for %v seconds", cfg.SleepSeconds)
		time.Sleep(time.Duration(cfg.SleepSeconds * float64(time.Second)))
	}

	// Marker syscall: signals to any external dynamic-instrumentation
	// tool the boundary between littering and the host program's own
	// behavior.
	unix.Getpid()

	return &Result{N: plan.N, F: plan.F, Elapsed: elapsed}, nil
}

// partialShuffle places a uniform random sample of size min(n, len(v)-2)
// into the first F positions of v. The bound min(n, len(v)-2) and the
// full-range draw on each step are preserved byte-for-byte from the
// original detail::partial_shuffle; why the last two positions are
// singled out is not documented upstream (see DESIGN.md).
func partialShuffle(v []unsafe.Pointer, n uint64, rng *mathrand.Rand) {
	size := uint64(len(v))
	var m uint64
	if size >= 2 {
		m = min(n, size-2)
	}
	for i := uint64(0); i < m; i++ {
		j := i + uint64(rng.Int64N(int64(size-i)))
		v[i], v[j] = v[j], v[i]
	}
}

// sortDescending sorts v by pointer address, descending.
func sortDescending(v []unsafe.Pointer) {
	sort.Slice(v, func(i, j int) bool { return uintptr(v[i]) > uintptr(v[j]) })
}
