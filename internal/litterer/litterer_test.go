package litterer

import (
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicovank/litterer/internal/artifact"
	"github.com/nicovank/litterer/internal/testharness"
)

func writeArtifact(t *testing.T, a *artifact.DistributionArtifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "distribution.json")
	require.NoError(t, a.Save(path))
	return path
}

// TestScenarioS4: sizeClasses=[1,2,3,4], bins=[0,10,0,0], maxLive=1,
// multiplier=4, occupancy=0.5, no shuffle/sort -> 4 allocations of size
// 2 and 2 releases, in index order.
func TestScenarioS4(t *testing.T) {
	art := &artifact.DistributionArtifact{
		SizeClasses:        []uint64{1, 2, 3, 4},
		Bins:               []uint64{0, 10, 0, 0},
		MaxLiveAllocations: 1,
	}
	cfg := Config{
		Seed:       1,
		HasSeed:    true,
		Occupancy:  0.5,
		Multiplier: 4,
	}

	plan, err := BuildPlan(art, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), plan.N)
	assert.Equal(t, uint64(2), plan.F)

	alloc := testharness.NewFakeAllocator()
	result, err := Run(cfg, art, alloc)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), result.N)
	assert.Equal(t, uint64(2), result.F)
	assert.Equal(t, 2, alloc.FreedCount())
	assert.Equal(t, 2, alloc.LiveCount())
}

// TestRunFromFile exercises the full Load -> BuildPlan -> Run path end
// to end, the same sequence cmd/litterer drives in production.
func TestRunFromFile(t *testing.T) {
	path := writeArtifact(t, &artifact.DistributionArtifact{
		SizeClasses:        []uint64{1, 2, 3, 4},
		Bins:               []uint64{0, 10, 0, 0},
		MaxLiveAllocations: 1,
	})

	art, err := artifact.Load(path)
	require.NoError(t, err)

	cfg := Config{Seed: 1, HasSeed: true, Occupancy: 0.5, Multiplier: 4}
	alloc := testharness.NewFakeAllocator()
	result, err := Run(cfg, art, alloc)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.F)
}

// TestExclusiveOptions is P8 / S5: both shuffle and sort set aborts
// before any allocation.
func TestExclusiveOptions(t *testing.T) {
	t.Setenv("LITTER_SHUFFLE", "1")
	t.Setenv("LITTER_SORT", "1")
	_, err := ConfigFromEnv()
	assert.Error(t, err)
}

// TestMissingArtifact is S6: loading an absent artifact fails with a
// "<path> does not exist" diagnostic.
func TestMissingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	_, err := artifact.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

// TestOccupancy is P7: after littering with occupancy o and multiplier
// m, exactly floor((1-o) * m * maxLive) releases are issued.
func TestOccupancy(t *testing.T) {
	art := &artifact.DistributionArtifact{
		SizeClasses:        []uint64{1, 2, 3},
		Bins:               []uint64{5, 3, 2},
		MaxLiveAllocations: 100,
	}
	cfg := Config{
		Seed:       42,
		HasSeed:    true,
		Occupancy:  0.8,
		Multiplier: 10,
		Shuffle:    true,
	}

	alloc := testharness.NewFakeAllocator()
	result, err := Run(cfg, art, alloc)
	require.NoError(t, err)

	n := uint64(art.MaxLiveAllocations) * uint64(cfg.Multiplier)
	want := uint64(float64(n) * (1 - cfg.Occupancy))
	assert.Equal(t, want, result.F)
	assert.Equal(t, int(want), alloc.FreedCount())
}

// TestInverseCDFFidelity is P6: the empirical frequencies of sizes
// produced by the sampling step converge to bins[i]/nAllocations, via a
// chi-squared goodness-of-fit test.
func TestInverseCDFFidelity(t *testing.T) {
	bins := []uint64{10, 20, 30, 40}
	cum := artifact.CumulativeSum(bins)
	total := artifact.Total(cum)

	const draws = 200_000
	rng := newRand(Config{Seed: 7, HasSeed: true})
	observed := make([]uint64, len(bins))
	for i := 0; i < draws; i++ {
		u := rng.Uint64N(total) + 1
		idx := artifact.SampleIndex(cum, u)
		observed[idx]++
	}

	var chiSq float64
	for i, b := range bins {
		expected := float64(draws) * float64(b) / float64(total)
		diff := float64(observed[i]) - expected
		chiSq += diff * diff / expected
	}

	// 3 degrees of freedom; critical value at p=0.001 is ~16.27. A
	// correct sampler should land far below that on every run.
	assert.Less(t, chiSq, 30.0, "chi-squared statistic too high: %v (observed=%v)", chiSq, observed)
}

// TestPartialShuffleBounds exercises the min(F, N-2) boundary preserved
// from the original detail::partial_shuffle (see DESIGN.md's Open
// Question resolution): it must run to completion (and only ever
// permute within bounds) even when n exceeds len(v)-2.
func TestPartialShuffleBounds(t *testing.T) {
	rng := newRand(Config{Seed: 3, HasSeed: true})

	values := make([]int, 5)
	for i := range values {
		values[i] = i
	}
	ptrs := make([]unsafe.Pointer, len(values))
	for i := range values {
		ptrs[i] = unsafe.Pointer(&values[i])
	}

	partialShuffle(ptrs, 10, rng) // n=10 clamps to min(10, 5-2)=3
	assert.Len(t, ptrs, 5)

	seen := make(map[unsafe.Pointer]bool)
	for _, p := range ptrs {
		seen[p] = true
	}
	assert.Len(t, seen, 5, "shuffle must not duplicate or drop pointers")
}

func TestConfigDefaults(t *testing.T) {
	clearLitterEnv(t)
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "distribution.json", cfg.DataFilename)
	assert.Equal(t, 0.95, cfg.Occupancy)
	assert.True(t, cfg.Shuffle)
	assert.False(t, cfg.Sort)
	assert.Equal(t, uint32(20), cfg.Multiplier)
	assert.False(t, cfg.HasSeed)
}

func TestConfigInvalidOccupancy(t *testing.T) {
	clearLitterEnv(t)
	t.Setenv("LITTER_OCCUPANCY", "1.5")
	_, err := ConfigFromEnv()
	assert.Error(t, err)
}

// clearLitterEnv sets every litterer env var to empty for the duration
// of the test; envutil treats an empty value the same as unset.
func clearLitterEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LITTER_DATA_FILENAME", "LITTER_SEED", "LITTER_OCCUPANCY",
		"LITTER_SHUFFLE", "LITTER_SORT", "LITTER_SLEEP",
		"LITTER_MULTIPLIER", "LITTER_LOG_FILENAME",
	} {
		t.Setenv(name, "")
	}
}
