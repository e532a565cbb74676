// Package sizeclass implements the discrete allocation-size table the
// profiler buckets requests into and the litterer samples sizes from.
package sizeclass

import (
	"fmt"
	"sort"
)

// Table is an ordered sequence of positive integers s1 < s2 < ... < sk,
// identifying the discrete allocation sizes the profiler distinguishes.
type Table []uint64

// UnderLimit builds the "under-N" scheme: every integer size in [1, limit].
func UnderLimit(limit uint64) Table {
	t := make(Table, limit)
	for i := range t {
		t[i] = uint64(i) + 1
	}
	return t
}

// New resolves a named scheme. "under-4096" is the only scheme required;
// an empty name is treated as the default. Unknown names fail.
func New(scheme string) (Table, error) {
	switch scheme {
	case "", "under-4096":
		return UnderLimit(4096), nil
	default:
		return nil, fmt.Errorf("sizeclass: unknown size class scheme %q", scheme)
	}
}

// Validate checks that t is strictly increasing with a first element >= 1.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("sizeclass: table is empty")
	}
	if t[0] < 1 {
		return fmt.Errorf("sizeclass: first size class must be >= 1, got %d", t[0])
	}
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return fmt.Errorf("sizeclass: table not strictly increasing at index %d (%d <= %d)", i, t[i], t[i-1])
		}
	}
	return nil
}

// IndexFor finds the smallest index i with t[i] >= size. When size exceeds
// every entry in the table, overflow is true and idx is meaningless.
func (t Table) IndexFor(size uint64) (idx int, overflow bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i] >= size })
	if i == len(t) {
		return 0, true
	}
	return i, false
}
