// Package testharness provides a synthetic host allocator that
// internal/litterer's tests drive through direct Go calls, bypassing the
// cgo/LD_PRELOAD boundary that only an actual OS process can exercise.
package testharness

import (
	"sync"
	"unsafe"
)

// FakeAllocator is an in-process stand-in for the host allocator: it
// retains every live allocation (preventing the Go garbage collector
// from reusing the address, which would break pointer-identity-based
// assertions) until Free is called.
type FakeAllocator struct {
	mu         sync.Mutex
	live       map[unsafe.Pointer][]byte
	freedOrder []unsafe.Pointer
}

// NewFakeAllocator returns an empty FakeAllocator.
func NewFakeAllocator() *FakeAllocator {
	return &FakeAllocator{live: make(map[unsafe.Pointer][]byte)}
}

// Malloc allocates a size-byte buffer and returns a pointer to it.
func (f *FakeAllocator) Malloc(size uintptr) unsafe.Pointer {
	buf := make([]byte, size)
	p := unsafe.Pointer(unsafe.SliceData(buf))

	f.mu.Lock()
	f.live[p] = buf
	f.mu.Unlock()
	return p
}

// Free releases the buffer at ptr. Freeing an unknown or already-freed
// pointer is a no-op, matching a well-behaved allocator's contract for
// this harness (the Litterer itself never double-frees by construction).
func (f *FakeAllocator) Free(ptr unsafe.Pointer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[ptr]; !ok {
		return
	}
	delete(f.live, ptr)
	f.freedOrder = append(f.freedOrder, ptr)
}

// FreedCount returns the number of distinct pointers freed so far.
func (f *FakeAllocator) FreedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.freedOrder)
}

// LiveCount returns the number of allocations still outstanding.
func (f *FakeAllocator) LiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}
