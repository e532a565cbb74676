// Package interpose provides the platform-abstraction layer the
// profiler and litterer link against: cached access to the host
// allocator's real implementations, reachable even after this package's
// own cgo-exported symbols have preempted their external names, plus a
// strictly per-OS-thread reentrancy guard.
//
// Every cgo-exported malloc-family symbol in cmd/profiler and
// cmd/litterer runs on the OS thread that made the underlying C call
// (cgo pins an M to that thread for the call's duration), so the guard
// is backed by a C _Thread_local counter rather than any Go-level
// construct — a goroutine-local or mutex-based scheme cannot stand in
// for true thread-local storage here, and a lock must never be taken on
// this path since lock acquisition may itself allocate.
package interpose

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void* (*malloc_fn)(size_t);
typedef void  (*free_fn)(void*);
typedef void* (*calloc_fn)(size_t, size_t);
typedef void* (*realloc_fn)(void*, size_t);
typedef void* (*reallocarray_fn)(void*, size_t, size_t);
typedef int   (*posix_memalign_fn)(void**, size_t, size_t);
typedef void* (*aligned_alloc_fn)(size_t, size_t);

static void* litter_dlsym_next(const char* name) {
    return dlsym(RTLD_NEXT, name);
}

static void* litter_call_malloc(void* fn, size_t size) {
    return ((malloc_fn) fn)(size);
}

static void litter_call_free(void* fn, void* ptr) {
    ((free_fn) fn)(ptr);
}

static void* litter_call_calloc(void* fn, size_t n, size_t size) {
    return ((calloc_fn) fn)(n, size);
}

static void* litter_call_realloc(void* fn, void* ptr, size_t size) {
    return ((realloc_fn) fn)(ptr, size);
}

static void* litter_call_reallocarray(void* fn, void* ptr, size_t n, size_t size) {
    return ((reallocarray_fn) fn)(ptr, n, size);
}

static int litter_call_posix_memalign(void* fn, void** memptr, size_t alignment, size_t size) {
    return ((posix_memalign_fn) fn)(memptr, alignment, size);
}

static void* litter_call_aligned_alloc(void* fn, size_t alignment, size_t size) {
    return ((aligned_alloc_fn) fn)(alignment, size);
}

// Reentrancy guard. _Thread_local, never a lock: an interposed call that
// recurses into the allocator it is itself observing must bypass
// observation on its way back in, on the same OS thread only.
static _Thread_local int litter_guard_depth = 0;

static int litter_guard_enter(void) {
    if (litter_guard_depth > 0) {
        return 0;
    }
    litter_guard_depth++;
    return 1;
}

static void litter_guard_exit(void) {
    if (litter_guard_depth > 0) {
        litter_guard_depth--;
    }
}

static int litter_guard_busy(void) {
    return litter_guard_depth > 0;
}
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/nicovank/litterer/internal/log"
)

// resolved caches a single real-function pointer, resolved at most once.
type resolved struct {
	once sync.Once
	ptr  unsafe.Pointer
}

func (r *resolved) get(name string) unsafe.Pointer {
	r.once.Do(func() {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))

		p := C.litter_dlsym_next(cname)
		if p == nil {
			log.Error("interpose: could not resolve real %s via dlsym(RTLD_NEXT, ...)", name)
			log.Flush()
			os.Exit(1)
		}
		r.ptr = p
	})
	return r.ptr
}

var (
	realMallocSym        resolved
	realFreeSym          resolved
	realCallocSym        resolved
	realReallocSym       resolved
	realReallocarraySym  resolved
	realPosixMemalignSym resolved
	realAlignedAllocSym  resolved
)

// RealMalloc invokes the host allocator's real malloc.
func RealMalloc(size uintptr) unsafe.Pointer {
	fn := realMallocSym.get("malloc")
	return C.litter_call_malloc(fn, C.size_t(size))
}

// RealFree invokes the host allocator's real free.
func RealFree(ptr unsafe.Pointer) {
	fn := realFreeSym.get("free")
	C.litter_call_free(fn, ptr)
}

// RealCalloc invokes the host allocator's real calloc.
func RealCalloc(n, size uintptr) unsafe.Pointer {
	fn := realCallocSym.get("calloc")
	return C.litter_call_calloc(fn, C.size_t(n), C.size_t(size))
}

// RealRealloc invokes the host allocator's real realloc.
func RealRealloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	fn := realReallocSym.get("realloc")
	return C.litter_call_realloc(fn, ptr, C.size_t(size))
}

// RealReallocarray invokes the host allocator's real reallocarray. Not
// available on Darwin; cmd/profiler and cmd/litterer guard its export
// behind a build tag the same way the original gates it on __APPLE__.
func RealReallocarray(ptr unsafe.Pointer, n, size uintptr) unsafe.Pointer {
	fn := realReallocarraySym.get("reallocarray")
	return C.litter_call_reallocarray(fn, ptr, C.size_t(n), C.size_t(size))
}

// RealPosixMemalign invokes the host allocator's real posix_memalign.
func RealPosixMemalign(memptr *unsafe.Pointer, alignment, size uintptr) int {
	fn := realPosixMemalignSym.get("posix_memalign")
	return int(C.litter_call_posix_memalign(fn, (*unsafe.Pointer)(unsafe.Pointer(memptr)), C.size_t(alignment), C.size_t(size)))
}

// RealAlignedAlloc invokes the host allocator's real aligned_alloc.
func RealAlignedAlloc(alignment, size uintptr) unsafe.Pointer {
	fn := realAlignedAllocSym.get("aligned_alloc")
	return C.litter_call_aligned_alloc(fn, C.size_t(alignment), C.size_t(size))
}

// GuardEnter attempts to enter the observation region on the calling OS
// thread. It returns false (and does not increment the guard) when the
// thread is already inside an interposed call, meaning the caller must
// skip observation and go straight to the real function.
func GuardEnter() bool { return C.litter_guard_enter() != 0 }

// GuardExit leaves the observation region entered by a successful
// GuardEnter.
func GuardExit() { C.litter_guard_exit() }

// GuardBusy reports whether the calling OS thread is already inside an
// interposed call.
func GuardBusy() bool { return C.litter_guard_busy() != 0 }

// Observe runs fn only if the calling thread is not already inside an
// interposed call, bracketing it with the guard. The real allocator call
// a replacement makes must happen outside of fn, never through it.
func Observe(fn func()) {
	if !GuardEnter() {
		return
	}
	defer GuardExit()
	fn()
}
