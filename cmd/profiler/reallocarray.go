//go:build !darwin

package main

/*
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"github.com/nicovank/litterer/internal/interpose"
	"github.com/nicovank/litterer/internal/profiler"
)

// reallocarray is not part of the macOS libc; the original gates this
// symbol behind #ifndef __APPLE__ and so does this build.
//
//export reallocarray
func reallocarray(ptr unsafe.Pointer, n, size C.size_t) unsafe.Pointer {
	nn, sz := uint64(n), uint64(size)
	interpose.Observe(func() {
		profiler.Global.ObserveReallocation(ptr, nn*sz)
	})
	return interpose.RealReallocarray(ptr, uintptr(n), uintptr(size))
}
