// Command profiler is the Profiler: a shared library, preloaded into a
// target process, that records the empirical distribution of heap
// allocation sizes and the peak number of simultaneously live
// allocations, then writes a DistributionArtifact on process exit.
//
// Build as a preloadable shared object:
//
//	go build -buildmode=c-shared -o libprofiler.so ./cmd/profiler   # Linux
//	go build -buildmode=c-shared -o libprofiler.dylib ./cmd/profiler # Darwin
//
// Run a target process under it:
//
//	LD_PRELOAD=./libprofiler.so ./target            # Linux
//	DYLD_INSERT_LIBRARIES=./libprofiler.dylib ./target # Darwin
package main

/*
#include <stddef.h>

extern void profiler_go_init(void);
extern void profiler_go_fini(void);

static void __attribute__((constructor)) litter_profiler_ctor(void) {
    profiler_go_init();
}

static void __attribute__((destructor)) litter_profiler_dtor(void) {
    profiler_go_fini();
}
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/nicovank/litterer/internal/interpose"
	"github.com/nicovank/litterer/internal/log"
	"github.com/nicovank/litterer/internal/profiler"
	"github.com/nicovank/litterer/internal/version"
)

//export profiler_go_init
func profiler_go_init() {
	if err := log.Configure(); err != nil {
		log.Error("profiler: log configuration failed: %v", err)
	}
	if err := profiler.Global.InitFromEnv(); err != nil {
		log.Error("profiler: initialization failed: %v", err)
		log.Flush()
		os.Exit(1)
	}
	log.Info("profiler %s attached (pid %d)", version.Tag, os.Getpid())
}

//export profiler_go_fini
func profiler_go_fini() {
	if err := profiler.Global.Finalize(); err != nil {
		log.Error("profiler: finalization failed: %v", err)
		log.Flush()
		os.Exit(1)
	}
	log.Info("profiler %s detached, artifact written", version.Tag)
	log.Flush()
}

//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	sz := uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveAllocation(sz, true)
	})
	return interpose.RealMalloc(uintptr(size))
}

//export free
func free(ptr unsafe.Pointer) {
	interpose.Observe(func() {
		profiler.Global.ObserveRelease(ptr)
	})
	interpose.RealFree(ptr)
}

//export calloc
func calloc(n, size C.size_t) unsafe.Pointer {
	nn, sz := uint64(n), uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveZeroedAllocation(nn, sz)
	})
	return interpose.RealCalloc(uintptr(n), uintptr(size))
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	sz := uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveReallocation(ptr, sz)
	})
	return interpose.RealRealloc(ptr, uintptr(size))
}

//export posix_memalign
func posix_memalign(memptr *unsafe.Pointer, alignment, size C.size_t) C.int {
	sz := uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveAlignedAllocation(sz)
	})
	return C.int(interpose.RealPosixMemalign(memptr, uintptr(alignment), uintptr(size)))
}

//export aligned_alloc
func aligned_alloc(alignment, size C.size_t) unsafe.Pointer {
	sz := uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveAlignedAllocation(sz)
	})
	return interpose.RealAlignedAlloc(uintptr(alignment), uintptr(size))
}

func main() {}
