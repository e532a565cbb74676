// Command litterer is the Litterer: a shared library, preloaded into a
// target process, that synthesizes a population of heap objects matching
// a previously recorded DistributionArtifact before the host's own main
// begins, fragmenting the heap the way the profiled workload would have.
//
// Build as a preloadable shared object:
//
//	go build -buildmode=c-shared -o liblitterer.so ./cmd/litterer    # Linux
//	go build -buildmode=c-shared -o liblitterer.dylib ./cmd/litterer # Darwin
//
// Run a target process under it:
//
//	LD_PRELOAD=./liblitterer.so ./target             # Linux
//	DYLD_INSERT_LIBRARIES=./liblitterer.dylib ./target # Darwin
//
// Every malloc-family symbol is re-exported here too, unobserved, simply
// forwarding to the host allocator: a preloaded litterer still owns those
// symbols for the remainder of the process, and must not leave them
// unresolved.
package main

/*
#include <stddef.h>

extern void litterer_go_run(void);

static void __attribute__((constructor)) litter_litterer_ctor(void) {
    litterer_go_run();
}
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/nicovank/litterer/internal/artifact"
	"github.com/nicovank/litterer/internal/interpose"
	"github.com/nicovank/litterer/internal/litterer"
	"github.com/nicovank/litterer/internal/log"
)

// hostAllocator drives the real allocator directly; the litterer's own
// draw loop must never re-enter an observer.
type hostAllocator struct{}

func (hostAllocator) Malloc(size uintptr) unsafe.Pointer { return interpose.RealMalloc(size) }
func (hostAllocator) Free(ptr unsafe.Pointer)            { interpose.RealFree(ptr) }

//export litterer_go_run
func litterer_go_run() {
	if err := log.Configure(); err != nil {
		log.Error("litterer: log configuration failed: %v", err)
	}

	cfg, err := litterer.ConfigFromEnv()
	if err != nil {
		log.Error("litterer: %v", err)
		log.Flush()
		os.Exit(1)
	}

	art, err := artifact.Load(cfg.DataFilename)
	if err != nil {
		log.Error("litterer: %v", err)
		log.Flush()
		os.Exit(1)
	}

	result, err := litterer.Run(cfg, art, hostAllocator{})
	if err != nil {
		log.Error("litterer: %v", err)
		log.Flush()
		os.Exit(1)
	}

	litterer.LogRun(cfg, art.MaxLiveAllocations, result)
	log.Flush()
}

//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	return interpose.RealMalloc(uintptr(size))
}

//export free
func free(ptr unsafe.Pointer) {
	interpose.RealFree(ptr)
}

//export calloc
func calloc(n, size C.size_t) unsafe.Pointer {
	return interpose.RealCalloc(uintptr(n), uintptr(size))
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	return interpose.RealRealloc(ptr, uintptr(size))
}

//export posix_memalign
func posix_memalign(memptr *unsafe.Pointer, alignment, size C.size_t) C.int {
	return C.int(interpose.RealPosixMemalign(memptr, uintptr(alignment), uintptr(size)))
}

//export aligned_alloc
func aligned_alloc(alignment, size C.size_t) unsafe.Pointer {
	return interpose.RealAlignedAlloc(uintptr(alignment), uintptr(size))
}

func main() {}
